// edge-c2-sim drives a scenario-defined common operating picture
// simulation and fans the result out to whichever transports are
// selected on the command line.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/davidarule/edge-c2-sim/pkg/log"
	"github.com/davidarule/edge-c2-sim/pkg/orchestrator"
	"github.com/davidarule/edge-c2-sim/pkg/scenario"
	"github.com/davidarule/edge-c2-sim/pkg/signals"
	"github.com/davidarule/edge-c2-sim/pkg/transport"
)

const defaultConsoleInterval = 2 * time.Second

var (
	scenarioFile = pflag.String("scenario", "", "path to the scenario YAML file (required)")
	geodataDir   = pflag.String("geodata", "", "directory of named patrol-area/waypoint-group GeoJSON files")
	speed        = pflag.Float64("speed", 1.0, "simulation clock speed multiplier")
	tickRateHz   = pflag.Float64("tick-rate", 1.0, "ticks per second while the clock is running")
	wsPort       = pflag.Int("port", 8765, "WebSocket adapter listen port")
	transports   = pflag.String("transport", "console", "comma-separated transports to enable: console,websocket,rest,cot")
	restSpec     = pflag.String("rest-spec", "", "OpenAPI spec path for the REST adapter")
	restURL      = pflag.String("rest-url", "", "base URL for the REST adapter")
	cotHost      = pflag.String("cot-host", "127.0.0.1", "Cursor on Target TAK server host")
	cotPort      = pflag.Int("cot-port", 8087, "Cursor on Target TAK server port")
	logLevel     = pflag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir       = pflag.String("logdir", "", "log file directory (empty = Vice folder under the user config dir)")
)

func main() {
	pflag.Parse()

	lg := log.New(false, *logLevel, *logDir)

	if *scenarioFile == "" {
		fmt.Fprintln(os.Stderr, "edge-c2-sim: -scenario is required")
		pflag.Usage()
		os.Exit(1)
	}

	wantWebSocket := wantsTransport("websocket", "ws")

	registry := transport.NewRegistry(lg)
	if err := registerNonLiveTransports(registry, lg); err != nil {
		lg.Errorf("transport setup: %v", err)
		os.Exit(1)
	}

	opts := orchestrator.Options{
		AISEncoder:  signals.NewAISEncoder(),
		ADSBEncoder: signals.NewADSBEncoder(),
		TickRateHz:  *tickRateHz,
	}

	loader := scenario.New(*geodataDir, lg)
	orch, err := orchestrator.New(loader, *scenarioFile, scenario.TypeTable{}, registry, opts, lg)
	if err != nil {
		lg.Errorf("loading scenario %q: %v", *scenarioFile, err)
		os.Exit(1)
	}

	// The WebSocket adapter streams the live store/clock, so it can
	// only be built once the orchestrator owns them.
	if wantWebSocket {
		auth, err := transport.AuthConfigFromEnv()
		if err != nil {
			lg.Errorf("websocket auth: %v", err)
			os.Exit(1)
		}
		addr := fmt.Sprintf(":%d", *wsPort)
		ws := transport.NewWebSocketAdapter(orch.Store(), orch.Clock(), addr, 0, auth, lg)
		ws.SetCommandHandler("restart", func(map[string]any) error {
			orch.Enqueue(func(o *orchestrator.Orchestrator) { o.Restart() })
			return nil
		})
		registry.Register(ws)
	}

	orch.Clock().SetSpeed(*speed)
	orch.Clock().Start()

	registry.ConnectAll()
	defer registry.DisconnectAll()

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("caught signal, shutting down")
		orch.Clock().Pause()
		close(done)
	}()

	orch.Run(done)
}

func selectedTransports() []string {
	var out []string
	for _, name := range strings.Split(*transports, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		out = []string{"console"}
	}
	return out
}

func wantsTransport(names ...string) bool {
	for _, sel := range selectedTransports() {
		for _, name := range names {
			if sel == name {
				return true
			}
		}
	}
	return false
}

// registerNonLiveTransports registers every selected transport except
// the WebSocket adapter, which needs the orchestrator's live store and
// clock and is registered separately once those exist.
func registerNonLiveTransports(registry *transport.Registry, lg *log.Logger) error {
	for _, name := range selectedTransports() {
		switch name {
		case "console":
			registry.Register(transport.NewConsoleAdapter(defaultConsoleInterval))
		case "websocket", "ws":
			// registered after the orchestrator is built
		case "rest":
			registry.Register(transport.NewRESTAdapter(transport.RESTOptions{
				SpecPath: *restSpec,
				BaseURL:  *restURL,
				DryRun:   *restURL == "",
			}, lg))
		case "cot":
			registry.Register(transport.NewCoTAdapter(*cotHost, *cotPort, 0, lg))
		default:
			return fmt.Errorf("unknown transport %q", name)
		}
	}
	return nil
}
