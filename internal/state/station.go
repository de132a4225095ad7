package state

import (
	"sort"
	"time"

	"github.com/ki9ng/PawPrint/pkg/aprs"
)

// Station is the latest-known fact set for one callsign. JSON field names
// are byte-compatible with the stations.json files written by earlier
// PawPrint installs.
type Station struct {
	Callsign    string   `json:"callsign"`
	Destination string   `json:"to"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Comment     string   `json:"comment"`
	SymbolTable string   `json:"symbol_table"`
	Symbol      string   `json:"symbol"`
	Format      string   `json:"type"`
	IsObject    bool     `json:"is_object"`
	Gateway     string   `json:"gateway,omitempty"`
	LastHeardTS float64  `json:"last_heard_ts"`
	LastHeard   string   `json:"last_heard"`
	PacketCount int      `json:"packet_count"`
	Raw         string   `json:"raw"`
}

func (st *Station) clone() *Station {
	c := *st
	if st.Lat != nil {
		lat := *st.Lat
		c.Lat = &lat
	}
	if st.Lon != nil {
		lon := *st.Lon
		c.Lon = &lon
	}
	return &c
}

// ApplyReport merges a parsed station fact into the registry and returns
// the resulting snapshot for event publication.
//
// The merge is sticky: a packet without a position keeps the previous
// position, and an empty comment never erases an existing one. Last-heard,
// packet count and the raw diagnostic text always refresh.
func (s *State) ApplyReport(f *aprs.StationReport, now time.Time) *Station {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.stations[f.Callsign]

	st := &Station{
		Callsign:    f.Callsign,
		Destination: f.Destination,
		Comment:     f.Comment,
		SymbolTable: string(f.SymbolTable),
		Symbol:      string(f.SymbolCode),
		Format:      f.Format,
		IsObject:    f.IsObject,
		Gateway:     f.Gateway,
		LastHeardTS: nowSeconds(now),
		LastHeard:   now.UTC().Format(time.RFC3339),
		PacketCount: 1,
		Raw:         f.Raw,
	}

	if f.Position != nil {
		lat, lon := f.Position.Lat, f.Position.Lon
		st.Lat, st.Lon = &lat, &lon
	} else if existing != nil {
		st.Lat, st.Lon = existing.Lat, existing.Lon
	}

	if existing != nil {
		st.PacketCount = existing.PacketCount + 1
		if st.Comment == "" {
			st.Comment = existing.Comment
		}
	}

	s.stations[f.Callsign] = st
	return st.clone()
}

// Stations returns all stations, most recently heard first.
func (s *State) Stations() []*Station {
	s.mu.Lock()
	out := make([]*Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, st.clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastHeardTS > out[j].LastHeardTS
	})
	return out
}

// StationCount returns the live registry size.
func (s *State) StationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stations)
}

// Cull removes every station not heard within the retention window, along
// with its track history, and returns the removed callsigns so the caller
// can emit removal events and persist.
func (s *State) Cull(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowSeconds(now) - float64(s.maxAgeHours)*3600
	var removed []string
	for call, st := range s.stations {
		if st.LastHeardTS < cutoff {
			removed = append(removed, call)
			delete(s.stations, call)
			delete(s.tracks, call)
		}
	}
	return removed
}

// ClearAll wipes the registry and all tracks unconditionally, returning
// the removed callsigns. Calling it twice removes nothing the second time.
func (s *State) ClearAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]string, 0, len(s.stations))
	for call := range s.stations {
		removed = append(removed, call)
	}
	s.stations = make(map[string]*Station)
	s.tracks = make(map[string][]TrackPoint)
	return removed
}

// ExportStations returns a copy of the registry capped to the most
// recently heard MaxStations entries, ready for persistence.
func (s *State) ExportStations() map[string]*Station {
	all := s.Stations()
	if len(all) > s.opts.MaxStations {
		all = all[:s.opts.MaxStations]
	}
	out := make(map[string]*Station, len(all))
	for _, st := range all {
		out[st.Callsign] = st
	}
	return out
}

// ImportStations seeds the registry from persisted data, applying the
// same age filter used by culling so stale entries never reload as live.
func (s *State) ImportStations(stations map[string]*Station, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowSeconds(now) - float64(s.maxAgeHours)*3600
	loaded := 0
	for call, st := range stations {
		if st.LastHeardTS >= cutoff {
			s.stations[call] = st
			loaded++
		}
	}
	return loaded
}
