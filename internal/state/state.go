// Package state is the single owner of PawPrint's shared mutable state:
// the station registry, per-station track history, the message ledger, own
// position, filter state, and connectivity flags.
//
// One mutex guards everything because stations and their tracks mutate
// together and must be observed consistently. The lock is only ever held
// for the in-memory update itself, never across network or disk I/O; every
// accessor returns copies.
package state

import (
	"sync"
	"time"
)

// Position is a lat/lon pair as shipped to clients and disk.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Options bound the state. Zero values fall back to the original limits.
type Options struct {
	StationMaxAgeHours int
	MaxStations        int
	TrackMaxPoints     int
	MessageHistory     int
	FilterRadiusKM     float64
}

func (o Options) withDefaults() Options {
	if o.StationMaxAgeHours <= 0 {
		o.StationMaxAgeHours = 168
	}
	if o.MaxStations <= 0 {
		o.MaxStations = 500
	}
	if o.TrackMaxPoints <= 0 {
		o.TrackMaxPoints = 2016
	}
	if o.MessageHistory <= 0 {
		o.MessageHistory = 200
	}
	if o.FilterRadiusKM <= 0 {
		o.FilterRadiusKM = 50
	}
	return o
}

// Status is the connectivity/config snapshot served by the API.
type Status struct {
	APRSISConnected    bool      `json:"aprs_is_connected"`
	AGWConnected       bool      `json:"agw_connected"`
	StationCount       int       `json:"station_count"`
	OwnPosition        *Position `json:"own_position"`
	FilterRadius       float64   `json:"filter_radius"`
	FilterCenter       *Position `json:"filter_center"`
	StationMaxAgeHours int       `json:"station_max_age_hours"`
}

// State is the lock-protected shared state region.
type State struct {
	mu sync.Mutex

	opts Options

	stations map[string]*Station
	tracks   map[string][]TrackPoint
	messages []*Message
	msgSeq   int

	ownPos       *Position
	filterCenter *Position
	filterRadius float64
	maxAgeHours  int

	feedConnected bool
	agwConnected  bool
}

// New returns an empty state region.
func New(opts Options) *State {
	opts = opts.withDefaults()
	return &State{
		opts:         opts,
		stations:     make(map[string]*Station),
		tracks:       make(map[string][]TrackPoint),
		filterRadius: opts.FilterRadiusKM,
		maxAgeHours:  opts.StationMaxAgeHours,
	}
}

// nowSeconds matches the float unix-seconds timestamps used on disk.
func nowSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// SetOwnPosition records this node's last known position.
func (s *State) SetOwnPosition(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownPos = &Position{Lat: lat, Lon: lon}
}

// OwnPosition returns the node position, ok=false before the first fix.
func (s *State) OwnPosition() (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownPos == nil {
		return Position{}, false
	}
	return *s.ownPos, true
}

// FilterCenter returns the point the feed subscription was last centered
// on. ok=false until the first confirmed filter push.
func (s *State) FilterCenter() (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filterCenter == nil {
		return Position{}, false
	}
	return *s.filterCenter, true
}

// SetFilterCenter records a confirmed subscription move.
func (s *State) SetFilterCenter(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filterCenter = &Position{Lat: lat, Lon: lon}
}

// FilterRadius returns the subscription radius in km.
func (s *State) FilterRadius() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterRadius
}

// SetFilterRadius updates the subscription radius. Values below 10 km are
// clamped; a tighter filter than that starves the feed.
func (s *State) SetFilterRadius(km float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if km < 10 {
		km = 10
	}
	s.filterRadius = km
	return km
}

// MaxAgeHours returns the station retention window.
func (s *State) MaxAgeHours() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxAgeHours
}

// SetMaxAgeHours updates the retention window, minimum one hour.
func (s *State) SetMaxAgeHours(hours int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hours < 1 {
		hours = 1
	}
	s.maxAgeHours = hours
	return hours
}

// SetFeedConnected flips the inbound feed connectivity flag.
func (s *State) SetFeedConnected(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedConnected = up
}

// SetAGWConnected flips the send-channel connectivity flag.
func (s *State) SetAGWConnected(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agwConnected = up
}

// Status returns a consistent snapshot for the API and stream init event.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		APRSISConnected:    s.feedConnected,
		AGWConnected:       s.agwConnected,
		StationCount:       len(s.stations),
		FilterRadius:       s.filterRadius,
		StationMaxAgeHours: s.maxAgeHours,
	}
	if s.ownPos != nil {
		p := *s.ownPos
		st.OwnPosition = &p
	}
	if s.filterCenter != nil {
		p := *s.filterCenter
		st.FilterCenter = &p
	}
	return st
}
