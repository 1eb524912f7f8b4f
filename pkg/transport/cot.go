package transport

import (
	"encoding/xml"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/davidarule/edge-c2-sim/pkg/entity"
	"github.com/davidarule/edge-c2-sim/pkg/event"
	"github.com/davidarule/edge-c2-sim/pkg/log"
)

const cotKnotsToMS = 0.514444
const cotTimeLayout = "2006-01-02T15:04:05.000Z"

// cotTypeByEntityType maps the closed set of scenario entity types
// (spec.md §6) to a MIL-STD-2525-derived CoT type string. Unmapped
// types fall back to "a-u-G" (unknown ground), matching the affiliation
// a reader should assume for anything the simulator hasn't classified.
var cotTypeByEntityType = map[string]string{
	"MMEA_PATROL":         "a-f-S-X-N",
	"MMEA_FAST_INTERCEPT": "a-f-S-X-N",
	"MIL_NAVAL":           "a-f-S-C",
	"MIL_NAVAL_FIC":       "a-f-S-X-N",
	"SUSPECT_VESSEL":      "a-u-S-X",
	"HOSTILE_VESSEL":      "a-h-S-X",
	"HOSTILE_PERSONNEL":   "a-h-G-U-C-I",
	"CIVILIAN_CARGO":      "a-n-S-C-M",
	"CIVILIAN_FISHING":    "a-n-S-C-F",
	"CIVILIAN_TANKER":     "a-n-S-C-M",
	"CIVILIAN_PASSENGER":  "a-n-S-C-M",
	"CIVILIAN_BOAT":       "a-n-S-X",
	"CIVILIAN_TOURIST":    "a-n-G-U",
	"CIVILIAN_LIGHT":      "a-n-A-C",
	"RMAF_FIGHTER":        "a-f-A-M-F",
	"RMAF_HELICOPTER":     "a-f-A-M-H",
	"RMAF_TRANSPORT":      "a-f-A-M-C",
	"RMAF_MPA":            "a-f-A-M-P",
	"RMP_PATROL_CAR":      "a-f-G-E-V-C-P",
	"RMP_TACTICAL_TEAM":   "a-f-G-U-C-I",
	"RMP_OFFICER":         "a-f-G-U-C-I",
	"MIL_APC":             "a-f-G-E-V-A",
	"MIL_VEHICLE":         "a-f-G-E-V",
	"MIL_INFANTRY":        "a-f-G-U-C-I",
	"MIL_INFANTRY_SQUAD":  "a-f-G-U-C-I",
	"CI_OFFICER":          "a-f-G-U-C-I",
	"CI_IMMIGRATION_TEAM": "a-f-G-U-C-I",
}

// cotEvent is a Cursor on Target XML event message. Field shapes are
// those any TAK-ecosystem consumer (FreeTAKServer, WinTAK, ATAK)
// expects; the CoT bit-packing spec itself is out of scope, only this
// message shape is produced.
type cotEvent struct {
	XMLName xml.Name  `xml:"event"`
	Version string    `xml:"version,attr"`
	UID     string    `xml:"uid,attr"`
	Type    string    `xml:"type,attr"`
	How     string    `xml:"how,attr"`
	Time    string    `xml:"time,attr"`
	Start   string    `xml:"start,attr"`
	Stale   string    `xml:"stale,attr"`
	Point   cotPoint  `xml:"point"`
	Detail  cotDetail `xml:"detail"`
}

type cotPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
	Hae float64 `xml:"hae,attr"`
	CE  float64 `xml:"ce,attr"`
	LE  float64 `xml:"le,attr"`
}

type cotDetail struct {
	Contact cotContact `xml:"contact"`
	Track   cotTrack   `xml:"track"`
	Remarks string     `xml:"remarks,omitempty"`
	Group   *cotGroup  `xml:"__group,omitempty"`
}

type cotContact struct {
	Callsign string `xml:"callsign,attr"`
}

type cotTrack struct {
	Speed  float64 `xml:"speed,attr"`
	Course float64 `xml:"course,attr"`
}

type cotGroup struct {
	Name string `xml:"name,attr"`
	Role string `xml:"role,attr"`
}

// CoTAdapter sends Cursor on Target XML events over a single
// serialised TCP connection to a TAK server, reconnecting lazily on
// the next send after a failure (spec.md §7).
type CoTAdapter struct {
	host         string
	port         int
	staleSeconds int

	mu        sync.Mutex
	conn      net.Conn
	connected bool

	lg *log.Logger
}

// NewCoTAdapter builds a disconnected adapter targeting host:port
// (FreeTAKServer's default CoT ingest port is 8087).
func NewCoTAdapter(host string, port int, staleSeconds int, lg *log.Logger) *CoTAdapter {
	if staleSeconds <= 0 {
		staleSeconds = 30
	}
	return &CoTAdapter{host: host, port: port, staleSeconds: staleSeconds, lg: lg}
}

func (c *CoTAdapter) Name() string { return "cot" }

func (c *CoTAdapter) Connect() error {
	return c.dial()
}

func (c *CoTAdapter) dial() error {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", c.host, c.port), 5*time.Second)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.connected = false
		return err
	}
	c.conn = conn
	c.connected = true
	return nil
}

func (c *CoTAdapter) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
	return nil
}

func (c *CoTAdapter) PushEntityUpdate(e entity.Entity) error {
	return c.send(entityToCoT(e, c.staleSeconds))
}

func (c *CoTAdapter) PushBulkUpdate(entities []entity.Entity) error {
	for _, e := range entities {
		if err := c.PushEntityUpdate(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *CoTAdapter) PushEvent(ev event.Event) error {
	return c.send(eventToCoT(ev))
}

func (c *CoTAdapter) send(xmlBytes []byte) error {
	c.mu.Lock()
	connected, conn := c.connected, c.conn
	c.mu.Unlock()

	if !connected || conn == nil {
		if err := c.dial(); err != nil {
			if c.lg != nil {
				c.lg.Warn("cot adapter: reconnect failed", "error", err)
			}
			return nil
		}
		c.mu.Lock()
		conn = c.conn
		c.mu.Unlock()
	}

	if _, err := conn.Write(xmlBytes); err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		if c.lg != nil {
			c.lg.Warn("cot adapter: send failed", "error", err)
		}
	}
	return nil
}

func entityToCoT(e entity.Entity, staleSeconds int) []byte {
	now := e.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cotType, ok := cotTypeByEntityType[e.EntityType]
	if !ok {
		cotType = "a-u-G"
	}

	ev := cotEvent{
		Version: "2.0",
		UID:     e.ID,
		Type:    cotType,
		How:     "m-g",
		Time:    now.Format(cotTimeLayout),
		Start:   now.Format(cotTimeLayout),
		Stale:   now.Add(time.Duration(staleSeconds) * time.Second).Format(cotTimeLayout),
		Point: cotPoint{
			Lat: e.Position.Latitude,
			Lon: e.Position.Longitude,
			Hae: e.Position.AltitudeM,
			CE:  15.0,
			LE:  15.0,
		},
		Detail: cotDetail{
			Contact: cotContact{Callsign: e.Callsign},
			Track:   cotTrack{Speed: e.SpeedKnots * cotKnotsToMS, Course: e.HeadingDeg},
			Remarks: fmt.Sprintf("%s: %s - %s | Speed: %.1f kts", e.Agency, e.EntityType, e.Status, e.SpeedKnots),
			Group:   &cotGroup{Name: string(e.Agency), Role: "Team Lead"},
		},
	}
	return marshalCoT(ev)
}

func eventToCoT(ev event.Event) []byte {
	now := time.Now().UTC()
	lat, lon := 0.0, 0.0
	if ev.Position != nil {
		lat, lon = ev.Position.Lat, ev.Position.Lon
	}

	msg := cotEvent{
		Version: "2.0",
		UID:     fmt.Sprintf("event-%s-%d", ev.EventType, now.UnixNano()),
		Type:    "b-t-f",
		How:     "h-g-i-g-o",
		Time:    now.Format(cotTimeLayout),
		Start:   now.Format(cotTimeLayout),
		Stale:   now.Add(5 * time.Minute).Format(cotTimeLayout),
		Point:   cotPoint{Lat: lat, Lon: lon, CE: 999999, LE: 999999},
		Detail:  cotDetail{Remarks: ev.Description},
	}
	return marshalCoT(msg)
}

func marshalCoT(ev cotEvent) []byte {
	body, err := xml.Marshal(ev)
	if err != nil {
		return nil
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`), body...)
}
