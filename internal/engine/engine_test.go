package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ki9ng/PawPrint/internal/events"
	"github.com/ki9ng/PawPrint/internal/persist"
	"github.com/ki9ng/PawPrint/internal/state"
	"github.com/ki9ng/PawPrint/pkg/aprs"
	"github.com/ki9ng/PawPrint/pkg/config"
)

// memStore is an in-memory persist.Store for tests.
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Load(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, persist.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Save(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return nil
}

// stubSender records outbound packets and filter pushes.
type stubSender struct {
	mu      sync.Mutex
	packets []string
	filters []string
	fail    bool
}

func (s *stubSender) SendPacket(packet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("send path down")
	}
	s.packets = append(s.packets, packet)
	return nil
}

func (s *stubSender) PushFilter(lat, lon, radiusKM float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("send path down")
	}
	s.filters = append(s.filters, fmt.Sprintf("r/%.4f/%.4f/%.0f", lat, lon, radiusKM))
	return nil
}

func (s *stubSender) sentPackets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.packets...)
}

func (s *stubSender) pushedFilters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.filters...)
}

// scriptDecoder returns a canned decode per raw line, erroring on
// anything unscripted so the parser falls back to direct extraction.
type scriptDecoder struct {
	byRaw map[string]*aprs.Decoded
}

func (d *scriptDecoder) Decode(raw string) (*aprs.Decoded, error) {
	if dec, ok := d.byRaw[raw]; ok {
		return dec, nil
	}
	return nil, errors.New("unscripted packet")
}

func newTestEngine(t *testing.T, script map[string]*aprs.Decoded) (*Engine, *memStore, *stubSender) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Station.Callsign = "KI9NG-10"
	store := newMemStore()
	bus := events.NewBroadcaster()
	logger := log.New(io.Discard)
	e := New(cfg, state.New(state.Options{}), store, bus, logger, &scriptDecoder{byRaw: script})
	sender := &stubSender{}
	e.SetSender(sender)
	return e, store, sender
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before deadline")
}

func TestHandleLinePosition(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)

	// Unscripted, so the fallback extractor does the work.
	e.HandleLine("N9XYZ-9>APRS,WIDE1-1:!4132.40N/08708.40W>mobile")

	stations := e.State().Stations()
	if len(stations) != 1 {
		t.Fatalf("Expected 1 station, got %d", len(stations))
	}
	st := stations[0]
	if st.Callsign != "N9XYZ-9" || st.Lat == nil {
		t.Fatalf("Bad station: %+v", st)
	}
	if e.State().TrackLen("N9XYZ-9") != 1 {
		t.Errorf("Expected track point recorded, got %d", e.State().TrackLen("N9XYZ-9"))
	}

	// Station blob persisted immediately.
	data, err := store.Load("stations")
	if err != nil {
		t.Fatalf("Stations blob missing: %v", err)
	}
	var persisted map[string]*state.Station
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	if _, ok := persisted["N9XYZ-9"]; !ok {
		t.Error("Station not in persisted blob")
	}
}

func f64(v float64) *float64 { return &v }

func TestHandleLineObjectSkipsTrack(t *testing.T) {
	raw1 := "WINLINK>APWL2K,TCPIP*:;W9ML-10  *111111z4142.00N/08718.00Wa"
	raw2 := "WINLINK>APWL2K,TCPIP*:;W9ML-10  *111111z4143.00N/08719.00Wa"
	e, _, _ := newTestEngine(t, map[string]*aprs.Decoded{
		raw1: {
			From: "WINLINK", To: "APWL2K", Format: "object",
			ObjectName: "W9ML-10", Lat: f64(41.70), Lon: f64(-87.30),
		},
		raw2: {
			From: "WINLINK", To: "APWL2K", Format: "object",
			ObjectName: "W9ML-10", Lat: f64(41.72), Lon: f64(-87.32),
		},
	})
	ch := e.Bus().Subscribe()
	defer e.Bus().Unsubscribe(ch)

	e.HandleLine(raw1)
	e.HandleLine(raw2)

	stations := e.State().Stations()
	if len(stations) != 1 || !stations[0].IsObject {
		t.Fatalf("Expected one object station, got %+v", stations)
	}
	if n := e.State().TrackLen("W9ML-10"); n != 0 {
		t.Errorf("Expected objects to accumulate no track history, got %d points", n)
	}
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == "track_point" {
			t.Errorf("Unexpected track_point event for an object: %+v", ev.Data)
		}
	}
}

func TestTrackPointEvent(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	ch := e.Bus().Subscribe()
	defer e.Bus().Unsubscribe(ch)

	e.HandleLine("N9XYZ-9>APRS,WIDE1-1:!4132.40N/08708.40W>mobile")

	var got *trackPointEvent
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == "track_point" {
			tp := ev.Data.(trackPointEvent)
			got = &tp
		}
	}
	if got == nil {
		t.Fatal("Expected a track_point event for a positioned report")
	}
	if got.Callsign != "N9XYZ-9" || got.Lat < 41 || got.Lat > 42 || got.TS <= 0 {
		t.Errorf("Bad track_point payload: %+v", got)
	}

	// A duplicate fix dedups away and must not announce a point.
	e.HandleLine("N9XYZ-9>APRS,WIDE1-1:!4132.40N/08708.40W>mobile")
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == "track_point" {
			t.Errorf("Unexpected track_point event for a deduplicated fix: %+v", ev.Data)
		}
	}
}

func TestOwnPositionTrackPointEvent(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	ch := e.Bus().Subscribe()
	defer e.Bus().Unsubscribe(ch)

	e.SetOwnPosition(41.54, -87.14, true)

	found := false
	for len(ch) > 0 {
		if ev := <-ch; ev.Type == "track_point" {
			found = true
			if tp := ev.Data.(trackPointEvent); tp.Callsign != "KI9NG-10" {
				t.Errorf("Expected own callsign on the point, got %+v", tp)
			}
		}
	}
	if !found {
		t.Error("Expected a track_point event for an own-position fix")
	}
}

func TestHandleLineMessage(t *testing.T) {
	raw := "N9XYZ-9>APRS::KI9NG-10 :hello there{42}"
	e, _, sender := newTestEngine(t, map[string]*aprs.Decoded{
		raw: {
			From: "N9XYZ-9", To: "APRS", Format: "message",
			Addressee: "KI9NG-10", MessageText: "hello there", MessageID: "42",
		},
	})

	e.HandleLine(raw)

	msgs := e.State().Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 ledger entry, got %d", len(msgs))
	}
	if msgs[0].Direction != state.DirectionRX || msgs[0].Text != "hello there" {
		t.Errorf("Bad ledger entry: %+v", msgs[0])
	}

	// The ack goes out asynchronously.
	waitFor(t, func() bool { return len(sender.sentPackets()) == 1 })
	ack := sender.sentPackets()[0]
	if ack != "KI9NG-10>APRS,TCPIP*::N9XYZ-9  :ack42" {
		t.Errorf("Unexpected ack packet: %q", ack)
	}
}

func TestHandleLineAck(t *testing.T) {
	raw := "N9XYZ-9>APRS::KI9NG-10 :ack7"
	e, _, _ := newTestEngine(t, map[string]*aprs.Decoded{
		raw: {
			From: "N9XYZ-9", To: "APRS", Format: "message",
			Addressee: "KI9NG-10", AckID: "7",
		},
	})

	e.State().AppendMessage(state.NewMessage(state.DirectionTX, "KI9NG-10", "N9XYZ-9", "ping", "7", state.StatusSent, time.Now()))

	e.HandleLine(raw)

	msgs := e.State().Messages()
	if msgs[0].Status != state.StatusAcked {
		t.Errorf("Expected acked, got %s", msgs[0].Status)
	}
	// The ack itself never becomes a ledger entry.
	if len(msgs) != 1 {
		t.Errorf("Expected 1 ledger entry, got %d", len(msgs))
	}
}

func TestSendMessage(t *testing.T) {
	t.Run("Delivery marks sent", func(t *testing.T) {
		e, _, sender := newTestEngine(t, nil)

		m, err := e.SendMessage("n9xyz-9", "checking in")
		if err != nil {
			t.Fatal(err)
		}
		if m.Status != state.StatusSending {
			t.Errorf("Expected sending status first, got %s", m.Status)
		}

		waitFor(t, func() bool {
			msgs := e.State().Messages()
			return len(msgs) == 1 && msgs[0].Status == state.StatusSent
		})
		pkt := sender.sentPackets()[0]
		if !strings.HasPrefix(pkt, "KI9NG-10>APRS,TCPIP*::N9XYZ-9  :checking in{") {
			t.Errorf("Unexpected packet: %q", pkt)
		}
	})

	t.Run("Failure marks failed", func(t *testing.T) {
		e, _, sender := newTestEngine(t, nil)
		sender.fail = true

		if _, err := e.SendMessage("N9XYZ-9", "lost"); err != nil {
			t.Fatal(err)
		}
		waitFor(t, func() bool {
			msgs := e.State().Messages()
			return len(msgs) == 1 && msgs[0].Status == state.StatusFailed
		})
	})

	t.Run("Oversized text rejected", func(t *testing.T) {
		e, _, _ := newTestEngine(t, nil)
		if _, err := e.SendMessage("N9XYZ-9", strings.Repeat("x", aprs.MaxMessageLen+1)); err == nil {
			t.Error("Expected length error")
		}
	})

	t.Run("Empty recipient rejected", func(t *testing.T) {
		e, _, _ := newTestEngine(t, nil)
		if _, err := e.SendMessage("", "text"); err == nil {
			t.Error("Expected validation error")
		}
	})
}

func TestCheckFilterHysteresis(t *testing.T) {
	e, _, sender := newTestEngine(t, nil)

	// First fix: no confirmed center yet, push unconditionally.
	e.SetOwnPosition(41.54, -87.14, false)
	if n := len(sender.pushedFilters()); n != 1 {
		t.Fatalf("Expected first push, got %d", n)
	}

	// Tiny move, under the 2 km threshold: no push.
	e.SetOwnPosition(41.545, -87.14, false)
	if n := len(sender.pushedFilters()); n != 1 {
		t.Errorf("Expected no push for a small move, got %d", n)
	}

	// Real move: push again.
	e.SetOwnPosition(41.60, -87.14, false)
	if n := len(sender.pushedFilters()); n != 2 {
		t.Errorf("Expected push after moving, got %d", n)
	}
}

func TestCheckFilterPushFailureKeepsCenter(t *testing.T) {
	e, _, sender := newTestEngine(t, nil)
	sender.fail = true

	e.SetOwnPosition(41.54, -87.14, false)
	if _, ok := e.State().FilterCenter(); ok {
		t.Error("Failed push must not record a filter center")
	}

	// Once the path recovers, the very next check pushes.
	sender.fail = false
	e.CheckFilter()
	if len(sender.pushedFilters()) != 1 {
		t.Error("Expected push after recovery")
	}
	if _, ok := e.State().FilterCenter(); !ok {
		t.Error("Successful push must record the center")
	}
}

func TestBeaconNow(t *testing.T) {
	e, _, sender := newTestEngine(t, nil)

	if err := e.BeaconNow("test"); err == nil {
		t.Error("Expected error before the first fix")
	}

	e.SetOwnPosition(41.54, -87.14, false)
	if err := e.BeaconNow("PawPrint"); err != nil {
		t.Fatal(err)
	}
	pkts := sender.sentPackets()
	last := pkts[len(pkts)-1]
	if !strings.HasPrefix(last, "KI9NG-10>APRS,TCPIP*:=4132.40N/08708.40W>PawPrint") {
		t.Errorf("Unexpected beacon packet: %q", last)
	}
}

func TestLoadAllRoundTrip(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	e.HandleLine("N9XYZ-9>APRS:!4132.40N/08708.40W>mobile")
	e.SetOwnPosition(41.54, -87.14, true)
	e.State().SetFilterRadius(75)
	e.FlushAll()

	// Fresh engine over the same store.
	cfg := config.DefaultConfig()
	cfg.Station.Callsign = "KI9NG-10"
	e2 := New(cfg, state.New(state.Options{}), store, events.NewBroadcaster(), log.New(io.Discard), &scriptDecoder{})
	e2.LoadAll()

	if e2.State().StationCount() != 1 {
		t.Errorf("Expected 1 station after reload, got %d", e2.State().StationCount())
	}
	if r := e2.State().FilterRadius(); r != 75 {
		t.Errorf("Expected filter radius 75 after reload, got %v", r)
	}
	if _, ok := e2.State().OwnPosition(); !ok {
		t.Error("Own position lost on reload")
	}
}

func TestLoadAllLegacyDaysMigration(t *testing.T) {
	store := newMemStore()
	store.Save("pawprint", []byte(`{"filter_radius_km":50,"station_max_age_days":3}`))

	cfg := config.DefaultConfig()
	e := New(cfg, state.New(state.Options{}), store, events.NewBroadcaster(), log.New(io.Discard), &scriptDecoder{})
	e.LoadAll()

	if h := e.State().MaxAgeHours(); h != 72 {
		t.Errorf("Expected 3 days to migrate to 72 hours, got %d", h)
	}
}

func TestSetMaxAgeHoursCullsImmediately(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.HandleLine("N9XYZ-9>APRS:!4132.40N/08708.40W>mobile")

	// A 1 hour window leaves the just-heard station alone.
	e.SetMaxAgeHours(1)
	if e.State().StationCount() != 1 {
		t.Error("Fresh station must survive a retention change")
	}

	// Floor at one hour.
	if h := e.SetMaxAgeHours(0); h != 1 {
		t.Errorf("Expected floor of 1 hour, got %d", h)
	}
}
