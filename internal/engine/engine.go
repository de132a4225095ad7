// Package engine ties the packet parser, the state region, persistence
// and the event bus together. Every inbound line and every operator
// action flows through here, so the rest of the program never has to
// coordinate those four pieces itself.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ki9ng/PawPrint/internal/events"
	"github.com/ki9ng/PawPrint/internal/persist"
	"github.com/ki9ng/PawPrint/internal/state"
	"github.com/ki9ng/PawPrint/pkg/aprs"
	"github.com/ki9ng/PawPrint/pkg/config"
	"github.com/ki9ng/PawPrint/pkg/geo"
)

// Blob names under the persistence store. They line up with the JSON
// files earlier installs kept on disk.
const (
	blobStations = "stations"
	blobMessages = "messages"
	blobTracks   = "tracks"
	blobSettings = "pawprint"
)

// PacketSender delivers outbound packets and subscription changes to the
// network. The live feed session implements it; tests substitute a stub.
type PacketSender interface {
	// SendPacket transmits one TNC2 packet line.
	SendPacket(packet string) error

	// PushFilter re-centers the geographic subscription.
	PushFilter(lat, lon, radiusKM float64) error
}

// Engine is the application core.
type Engine struct {
	cfg    *config.Config
	state  *state.State
	store  persist.Store
	bus    *events.Broadcaster
	parser *aprs.Parser
	sender PacketSender
	logger *log.Logger
}

// New builds an engine around the given packet decoder. A sender is
// attached later with SetSender once the feed session exists.
func New(cfg *config.Config, st *state.State, store persist.Store, bus *events.Broadcaster, logger *log.Logger, dec aprs.Decoder) *Engine {
	return &Engine{
		cfg:    cfg,
		state:  st,
		store:  store,
		bus:    bus,
		parser: aprs.NewParser(cfg.Station.Callsign, dec),
		logger: logger,
	}
}

// SetSender attaches the outbound packet path.
func (e *Engine) SetSender(s PacketSender) {
	e.sender = s
}

// State exposes the shared state region for read-side consumers.
func (e *Engine) State() *state.State {
	return e.state
}

// Bus exposes the event broadcaster for stream subscribers.
func (e *Engine) Bus() *events.Broadcaster {
	return e.bus
}

// Config exposes the active configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

type trackPointEvent struct {
	Callsign string  `json:"callsign"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	TS       float64 `json:"ts"`
}

func (e *Engine) publishTrackPoint(callsign string, lat, lon, ts float64) {
	e.bus.Publish(events.Event{Type: "track_point", Data: trackPointEvent{
		Callsign: callsign,
		Lat:      lat,
		Lon:      lon,
		TS:       ts,
	}})
}

// HandleLine interprets one payload line from the feed. Server comment
// lines must be filtered out by the caller.
func (e *Engine) HandleLine(raw string) {
	raw = strings.TrimRight(raw, "\r\n")
	if raw == "" {
		return
	}

	now := time.Now()
	switch f := e.parser.Parse(raw).(type) {
	case *aprs.StationReport:
		st := e.state.ApplyReport(f, now)
		// Objects are fixed infrastructure; only real stations draw trails.
		if f.Position != nil && !f.IsObject {
			if e.state.AppendTrackPoint(f.Callsign, f.Position.Lat, f.Position.Lon, st.LastHeardTS) {
				e.publishTrackPoint(f.Callsign, f.Position.Lat, f.Position.Lon, st.LastHeardTS)
				e.flushTracks()
			}
		}
		e.bus.Publish(events.Event{Type: "packet", Data: st})
		e.flushStations()

	case *aprs.MessageReceived:
		e.logger.Info("Message received", "from", f.From, "text", f.Text)
		m := state.NewMessage(state.DirectionRX, f.From, f.To, f.Text, f.MessageID, state.StatusReceived, now)
		e.state.AppendMessage(m)
		e.bus.Publish(events.Event{Type: "message", Data: m})
		e.flushMessages()
		if f.MessageID != "" {
			e.sendAck(f.From, f.MessageID)
		}

	case *aprs.MessageAck:
		if e.state.AckMessage(f.MessageID) {
			e.logger.Info("Message acked", "by", f.From, "msg_id", f.MessageID)
			e.bus.Publish(events.Event{Type: "message_update", Data: map[string]string{
				"msg_id": f.MessageID,
				"status": state.StatusAcked,
			}})
			e.flushMessages()
		}

	case *aprs.OwnPosition:
		e.SetOwnPosition(f.Lat, f.Lon, true)

	case *aprs.Unrecognized:
		e.logger.Debug("Unparsed packet", "raw", f.Raw)
	}
}

// SetOwnPosition records a new own-position fix. recordTrack also appends
// the fix to our own track so the operator's station draws a trail like
// everyone else's.
func (e *Engine) SetOwnPosition(lat, lon float64, recordTrack bool) {
	if !geo.ValidLatLon(lat, lon) {
		return
	}
	now := time.Now()
	e.state.SetOwnPosition(lat, lon)
	if recordTrack {
		call := aprs.NormalizeCall(e.cfg.Station.Callsign)
		ts := float64(now.UnixNano()) / 1e9
		if e.state.AppendTrackPoint(call, lat, lon, ts) {
			e.publishTrackPoint(call, lat, lon, ts)
			e.flushTracks()
		}
	}
	e.bus.Publish(events.Event{Type: "own_position", Data: state.Position{Lat: lat, Lon: lon}})
	e.flushSettings()
	e.CheckFilter()
}

// CheckFilter re-centers the feed subscription on our own position when
// we have drifted at least FilterMoveKM from the last confirmed center.
// No own position yet, or no sender yet, means nothing to do.
func (e *Engine) CheckFilter() {
	if e.sender == nil {
		return
	}
	pos, ok := e.state.OwnPosition()
	if !ok {
		return
	}
	if center, ok := e.state.FilterCenter(); ok {
		moved := geo.DistanceKM(center.Lat, center.Lon, pos.Lat, pos.Lon)
		if moved < e.cfg.APRSIS.FilterMoveKM {
			return
		}
		e.logger.Info("Recentering feed subscription", "moved_km", fmt.Sprintf("%.1f", moved))
	}
	if err := e.sender.PushFilter(pos.Lat, pos.Lon, e.state.FilterRadius()); err != nil {
		e.logger.Warn("Filter push failed", "err", err)
		return
	}
	e.state.SetFilterCenter(pos.Lat, pos.Lon)
	e.bus.Publish(events.Event{Type: "status", Data: e.state.Status()})
}

// SendMessage creates an outbound ledger entry and starts delivery in
// the background. The returned entry is in the "sending" state; delivery
// completion arrives later as a message_update event.
func (e *Engine) SendMessage(to, text string) (*state.Message, error) {
	to = aprs.NormalizeCall(to)
	text = strings.TrimSpace(text)
	if to == "" || text == "" {
		return nil, fmt.Errorf("recipient and text are required")
	}
	if len(text) > aprs.MaxMessageLen {
		return nil, fmt.Errorf("message too long: %d > %d characters", len(text), aprs.MaxMessageLen)
	}
	if e.sender == nil {
		return nil, fmt.Errorf("no send path available")
	}

	ourCall := aprs.NormalizeCall(e.cfg.Station.Callsign)
	id := e.state.NextMessageID()
	m := state.NewMessage(state.DirectionTX, ourCall, to, text, id, state.StatusSending, time.Now())
	e.state.AppendMessage(m)
	e.bus.Publish(events.Event{Type: "message", Data: m})
	e.flushMessages()

	go func() {
		status := state.StatusSent
		if err := e.sender.SendPacket(aprs.FormatMessage(ourCall, to, text, id)); err != nil {
			e.logger.Error("Message send failed", "to", to, "msg_id", id, "err", err)
			status = state.StatusFailed
		}
		if e.state.SetMessageStatus(id, status) {
			e.bus.Publish(events.Event{Type: "message_update", Data: map[string]string{
				"msg_id": id,
				"status": status,
			}})
		}
		e.flushMessages()
	}()

	return m, nil
}

// sendAck transmits the ack for a received message id. Delivery failures
// are logged and dropped; the sender will retransmit and we ack again.
func (e *Engine) sendAck(to, messageID string) {
	if e.sender == nil {
		return
	}
	ourCall := aprs.NormalizeCall(e.cfg.Station.Callsign)
	go func() {
		if err := e.sender.SendPacket(aprs.FormatAck(ourCall, to, messageID)); err != nil {
			e.logger.Warn("Ack send failed", "to", to, "msg_id", messageID, "err", err)
		}
	}()
}

// BeaconNow transmits an immediate position beacon from the last known
// own position.
func (e *Engine) BeaconNow(comment string) error {
	pos, ok := e.state.OwnPosition()
	if !ok {
		return fmt.Errorf("own position not yet known")
	}
	if e.sender == nil {
		return fmt.Errorf("no send path available")
	}
	ourCall := aprs.NormalizeCall(e.cfg.Station.Callsign)
	return e.sender.SendPacket(aprs.FormatPosition(ourCall, pos.Lat, pos.Lon, '/', '>', comment))
}

// CullStations removes stations past the retention window and returns
// the removed callsigns.
func (e *Engine) CullStations() []string {
	removed := e.state.Cull(time.Now())
	if len(removed) > 0 {
		e.logger.Info("Culled stale stations", "count", len(removed))
		e.bus.Publish(events.Event{Type: "cull", Data: removed})
		e.flushStations()
		e.flushTracks()
	}
	return removed
}

// ClearStations wipes the whole registry on operator request.
func (e *Engine) ClearStations() []string {
	removed := e.state.ClearAll()
	e.bus.Publish(events.Event{Type: "cull", Data: removed})
	e.flushStations()
	e.flushTracks()
	return removed
}

// SetMaxAgeHours updates the retention window and applies it right away.
func (e *Engine) SetMaxAgeHours(hours int) int {
	applied := e.state.SetMaxAgeHours(hours)
	e.CullStations()
	e.flushSettings()
	e.bus.Publish(events.Event{Type: "status", Data: e.state.Status()})
	return applied
}

// SetFilterRadius updates the subscription radius and pushes the new
// filter immediately, centered on our position or the configured center.
func (e *Engine) SetFilterRadius(km float64) float64 {
	applied := e.state.SetFilterRadius(km)
	e.flushSettings()
	if e.sender != nil {
		lat, lon := e.cfg.APRSIS.FilterCenterLat, e.cfg.APRSIS.FilterCenterLon
		if pos, ok := e.state.OwnPosition(); ok {
			lat, lon = pos.Lat, pos.Lon
		}
		if err := e.sender.PushFilter(lat, lon, applied); err != nil {
			e.logger.Warn("Filter push failed", "err", err)
		} else {
			e.state.SetFilterCenter(lat, lon)
		}
	}
	e.bus.Publish(events.Event{Type: "status", Data: e.state.Status()})
	return applied
}

// RunCullLoop culls hourly until the context ends.
func (e *Engine) RunCullLoop(done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.CullStations()
		}
	}
}

// PublishStatus pushes the current connectivity/config snapshot to all
// stream subscribers.
func (e *Engine) PublishStatus() {
	e.bus.Publish(events.Event{Type: "status", Data: e.state.Status()})
}
