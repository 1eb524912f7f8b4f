package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/log"
)

// restEndpoint is a resolved (method, path) pair for one operation.
type restEndpoint struct {
	Method string
	Path   string
}

// openAPISpec is the minimal slice of an OpenAPI 3.0 document the REST
// adapter reads: just enough to discover operationIds and path/method
// pairs. The spec is the contract — swap the YAML and the endpoint map
// regenerates without a code change.
type openAPISpec struct {
	Servers []struct {
		URL string `yaml:"url"`
	} `yaml:"servers"`
	Paths map[string]map[string]struct {
		OperationID string `yaml:"operationId"`
	} `yaml:"paths"`
}

// BatchBuffer accumulates outbound payloads and flushes them
// periodically on its own goroutine, or immediately via FlushNow.
type BatchBuffer struct {
	mu       sync.Mutex
	buffer   []map[string]any
	interval time.Duration
	flush    func([]map[string]any) error
	lg       *log.Logger

	stop chan struct{}
	done chan struct{}
}

// NewBatchBuffer constructs a buffer that calls flush on each tick of
// interval, and whenever FlushNow is called.
func NewBatchBuffer(interval time.Duration, flush func([]map[string]any) error, lg *log.Logger) *BatchBuffer {
	return &BatchBuffer{interval: interval, flush: flush, lg: lg}
}

func (b *BatchBuffer) Add(payload map[string]any) {
	b.mu.Lock()
	b.buffer = append(b.buffer, payload)
	b.mu.Unlock()
}

// Start launches the periodic-flush goroutine.
func (b *BatchBuffer) Start() {
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				if err := b.FlushNow(); err != nil && b.lg != nil {
					b.lg.Warn("batch flush error", "error", err)
				}
			}
		}
	}()
}

// FlushNow sends whatever has accumulated, if anything.
func (b *BatchBuffer) FlushNow() error {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.buffer
	b.buffer = nil
	b.mu.Unlock()
	return b.flush(batch)
}

// Stop halts the periodic-flush goroutine.
func (b *BatchBuffer) Stop() {
	if b.stop == nil {
		return
	}
	close(b.stop)
	<-b.done
}

// RESTAdapter is a spec-driven REST transport: it reads an OpenAPI 3.0
// document to discover endpoints, then maps entity updates and events
// to HTTP calls against them, with optional batching, dry-run logging,
// and exponential-backoff retries.
type RESTAdapter struct {
	specPath      string
	baseURL       string
	apiKey        string
	bearerToken   string
	batchMode     bool
	batchInterval time.Duration
	dryRun        bool
	maxRetries    int
	httpClient    *http.Client
	lg            *log.Logger

	endpoints map[string]restEndpoint
	batch     *BatchBuffer

	mu              sync.Mutex
	createdEntities map[string]struct{}
	dryRunLog       []map[string]any
}

// RESTOptions configures a RESTAdapter; zero values pick the same
// defaults the original Python adapter used.
type RESTOptions struct {
	SpecPath          string
	BaseURL           string
	APIKey            string
	BearerToken       string
	BatchMode         bool
	BatchIntervalSecs float64
	DryRun            bool
	MaxRetries        int
}

func NewRESTAdapter(opts RESTOptions, lg *log.Logger) *RESTAdapter {
	interval := time.Duration(opts.BatchIntervalSecs * float64(time.Second))
	if interval <= 0 {
		interval = time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RESTAdapter{
		specPath:        opts.SpecPath,
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		apiKey:          opts.APIKey,
		bearerToken:     opts.BearerToken,
		batchMode:       opts.BatchMode,
		batchInterval:   interval,
		dryRun:          opts.DryRun,
		maxRetries:      maxRetries,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		lg:              lg,
		endpoints:       make(map[string]restEndpoint),
		createdEntities: make(map[string]struct{}),
	}
}

func (a *RESTAdapter) Name() string { return "rest" }

func (a *RESTAdapter) Connect() error {
	a.loadSpec()

	if a.batchMode {
		a.batch = NewBatchBuffer(a.batchInterval, a.flushBatch, a.lg)
		a.batch.Start()
	}

	if a.lg != nil {
		a.lg.Info("rest adapter connected", "base_url", a.baseURL, "dry_run", a.dryRun, "batch", a.batchMode)
	}
	return nil
}

func (a *RESTAdapter) Disconnect() error {
	if a.batch != nil {
		if err := a.batch.FlushNow(); err != nil && a.lg != nil {
			a.lg.Warn("final batch flush failed", "error", err)
		}
		a.batch.Stop()
	}
	if a.lg != nil {
		a.lg.Info("rest adapter disconnected", "dry_run_entries", len(a.dryRunLog))
	}
	return nil
}

// Reset clears per-run entity-creation tracking so a restarted
// scenario re-creates every entity instead of only updating position.
func (a *RESTAdapter) Reset() {
	a.mu.Lock()
	a.createdEntities = make(map[string]struct{})
	a.mu.Unlock()
}

func (a *RESTAdapter) loadSpec() {
	if a.specPath == "" {
		return
	}
	raw, err := os.ReadFile(a.specPath)
	if err != nil {
		if a.lg != nil {
			a.lg.Warn("rest adapter: spec not found", "path", a.specPath, "error", err)
		}
		return
	}
	var spec openAPISpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		if a.lg != nil {
			a.lg.Warn("rest adapter: spec parse error", "error", err)
		}
		return
	}

	basePath := ""
	if len(spec.Servers) > 0 {
		if _, after, ok := strings.Cut(spec.Servers[0].URL, "://"); ok {
			if idx := strings.Index(after, "/"); idx >= 0 {
				basePath = after[idx:]
			}
		}
	}

	for path, methods := range spec.Paths {
		full := basePath + path
		for method, op := range methods {
			key := classifyOperation(op.OperationID, path, method)
			if key != "" {
				a.endpoints[key] = restEndpoint{Method: strings.ToUpper(method), Path: full}
			}
		}
	}
}

func classifyOperation(operationID, path, method string) string {
	method = strings.ToLower(method)
	switch {
	case operationID == "updateEntityPosition", strings.Contains(path, "position") && method == "post" && strings.Contains(path, "{entity_id}"):
		return "position_update"
	case operationID == "bulkPositionUpdate", strings.Contains(path, "bulk") && method == "post":
		return "bulk_update"
	case operationID == "createEntity", strings.HasSuffix(path, "/entities") && method == "post":
		return "entity_create"
	case operationID == "createEvent", strings.HasSuffix(path, "/events") && method == "post":
		return "event_create"
	case operationID == "pushAisSignal", strings.Contains(path, "signals") && strings.Contains(path, "ais") && method == "post":
		return "ais_signal"
	case operationID == "pushAdsbSignal", strings.Contains(path, "signals") && strings.Contains(path, "adsb") && method == "post":
		return "adsb_signal"
	case operationID == "healthCheck", strings.Contains(path, "health") && method == "get":
		return "health"
	default:
		return ""
	}
}

func (a *RESTAdapter) PushEntityUpdate(e entity.Entity) error {
	a.mu.Lock()
	_, created := a.createdEntities[e.ID]
	if !created {
		a.createdEntities[e.ID] = struct{}{}
	}
	a.mu.Unlock()

	if !created {
		if endpoint, ok := a.endpoints["entity_create"]; ok {
			if err := a.send(endpoint.Method, endpoint.Path, entityCreatePayload(e)); err != nil {
				return err
			}
		}
	}

	payload := entityPositionPayload(e)
	if a.batchMode && a.batch != nil {
		payload["entity_id"] = e.ID
		a.batch.Add(payload)
		return nil
	}

	endpoint, ok := a.endpoints["position_update"]
	if !ok {
		return nil
	}
	path := strings.ReplaceAll(endpoint.Path, "{entity_id}", e.ID)
	return a.send(endpoint.Method, path, payload)
}

func (a *RESTAdapter) PushBulkUpdate(entities []entity.Entity) error {
	for _, e := range entities {
		if err := a.PushEntityUpdate(e); err != nil {
			return err
		}
	}
	return nil
}

func (a *RESTAdapter) PushEvent(ev event.Event) error {
	endpoint, ok := a.endpoints["event_create"]
	if !ok {
		if a.lg != nil {
			a.lg.Debug("rest adapter: no event endpoint in spec")
		}
		return nil
	}
	return a.send(endpoint.Method, endpoint.Path, eventPayload(ev))
}

func (a *RESTAdapter) flushBatch(items []map[string]any) error {
	endpoint, ok := a.endpoints["bulk_update"]
	if ok {
		return a.send(endpoint.Method, endpoint.Path, map[string]any{"updates": items})
	}
	posEndpoint, ok := a.endpoints["position_update"]
	if !ok {
		return nil
	}
	for _, item := range items {
		id, _ := item["entity_id"].(string)
		delete(item, "entity_id")
		path := strings.ReplaceAll(posEndpoint.Path, "{entity_id}", id)
		if err := a.send(posEndpoint.Method, path, item); err != nil {
			return err
		}
	}
	return nil
}

func (a *RESTAdapter) send(method, path string, payload map[string]any) error {
	if a.dryRun {
		a.mu.Lock()
		a.dryRunLog = append(a.dryRunLog, map[string]any{"method": method, "path": path, "payload": payload})
		a.mu.Unlock()
		return nil
	}
	return a.sendWithRetry(method, path, payload)
}

func (a *RESTAdapter) sendWithRetry(method, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		req, err := http.NewRequest(method, a.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if a.apiKey != "" {
			req.Header.Set("X-API-Key", a.apiKey)
		}
		if a.bearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+a.bearerToken)
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			lastErr = err
			a.backoff(attempt)
			continue
		}

		ok, retryable, callErr := classifyResponse(method, path, resp)
		if ok {
			return nil
		}
		lastErr = callErr
		if !retryable {
			return lastErr
		}
		a.backoff(attempt)
	}
	return fmt.Errorf("%s %s failed after %d retries: %w", method, path, a.maxRetries, lastErr)
}

func classifyResponse(method, path string, resp *http.Response) (ok, retryable bool, err error) {
	defer resp.Body.Close()
	if resp.StatusCode < 400 {
		return true, false, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return false, true, fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return false, false, fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
	}
}

func (a *RESTAdapter) backoff(attempt int) {
	time.Sleep(time.Duration(1<<attempt) * time.Second)
}

func entityPositionPayload(e entity.Entity) map[string]any {
	return map[string]any{
		"position": map[string]any{
			"latitude":   e.Position.Latitude,
			"longitude":  e.Position.Longitude,
			"altitude_m": e.Position.AltitudeM,
		},
		"heading_deg": e.HeadingDeg,
		"speed_knots": e.SpeedKnots,
		"course_deg":  e.CourseDeg,
		"timestamp":   e.Timestamp,
		"status":      string(e.Status),
	}
}

func entityCreatePayload(e entity.Entity) map[string]any {
	return map[string]any{
		"entity_id":   e.ID,
		"entity_type": e.EntityType,
		"domain":      string(e.Domain),
		"agency":      string(e.Agency),
		"callsign":    e.Callsign,
		"position": map[string]any{
			"latitude":   e.Position.Latitude,
			"longitude":  e.Position.Longitude,
			"altitude_m": e.Position.AltitudeM,
		},
		"heading_deg": e.HeadingDeg,
		"speed_knots": e.SpeedKnots,
		"status":      string(e.Status),
		"sidc":        e.SIDC,
		"metadata":    e.Metadata,
	}
}

func eventPayload(ev event.Event) map[string]any {
	payload := map[string]any{
		"event_type":  ev.EventType,
		"description": ev.Description,
		"severity":    ev.Severity,
	}
	if ev.Position != nil {
		payload["position"] = map[string]any{"lat": ev.Position.Lat, "lon": ev.Position.Lon}
	}
	if ev.Target != "" {
		payload["target_entity_id"] = ev.Target
	}
	if len(ev.AlertAgencies) > 0 {
		payload["agencies_involved"] = ev.AlertAgencies
	}
	return payload
}
