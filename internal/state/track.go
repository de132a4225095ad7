package state

import "time"

// TrackPoint is one timestamped position fix in a station's track.
type TrackPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	TS  float64 `json:"ts"`
}

// trackDedupDeg: consecutive fixes closer than this on both axes are the
// same place. Keeps a parked station from growing a degenerate track.
const trackDedupDeg = 0.0001

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// AppendTrackPoint appends a position fix to a callsign's track and
// reports whether a point was actually added.
//
// Order matters: dedup first, then the age prune, then the length cap —
// a mostly-stale track must be pruned before the cap can bite.
func (s *State) AppendTrackPoint(callsign string, lat, lon, ts float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pts := s.tracks[callsign]
	if n := len(pts); n > 0 {
		last := pts[n-1]
		if abs(last.Lat-lat) < trackDedupDeg && abs(last.Lon-lon) < trackDedupDeg {
			return false
		}
	}
	pts = append(pts, TrackPoint{Lat: lat, Lon: lon, TS: ts})

	cutoff := ts - float64(s.maxAgeHours)*3600
	fresh := pts[:0]
	for _, p := range pts {
		if p.TS >= cutoff {
			fresh = append(fresh, p)
		}
	}
	pts = fresh

	if len(pts) > s.opts.TrackMaxPoints {
		pts = pts[len(pts)-s.opts.TrackMaxPoints:]
	}

	s.tracks[callsign] = pts
	return true
}

// Tracks returns, for every callsign, the points newer than maxAge —
// but only callsigns that still have at least two points, since a single
// point cannot render a track.
func (s *State) Tracks(maxAge time.Duration, now time.Time) map[string][]TrackPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowSeconds(now) - maxAge.Seconds()
	out := make(map[string][]TrackPoint)
	for call, pts := range s.tracks {
		var fresh []TrackPoint
		for _, p := range pts {
			if p.TS >= cutoff {
				fresh = append(fresh, p)
			}
		}
		if len(fresh) >= 2 {
			out[call] = fresh
		}
	}
	return out
}

// TrackLen returns the stored track length for one callsign.
func (s *State) TrackLen(callsign string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks[callsign])
}

// ExportTracks returns a copy of all tracks for persistence.
func (s *State) ExportTracks() map[string][]TrackPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]TrackPoint, len(s.tracks))
	for call, pts := range s.tracks {
		cp := make([]TrackPoint, len(pts))
		copy(cp, pts)
		out[call] = cp
	}
	return out
}

// ImportTracks seeds tracks from persisted data, dropping points older
// than the retention window and callsigns left empty by the filter.
func (s *State) ImportTracks(tracks map[string][]TrackPoint, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := nowSeconds(now) - float64(s.maxAgeHours)*3600
	loaded := 0
	for call, pts := range tracks {
		var fresh []TrackPoint
		for _, p := range pts {
			if p.TS >= cutoff {
				fresh = append(fresh, p)
			}
		}
		if len(fresh) > 0 {
			s.tracks[call] = fresh
			loaded++
		}
	}
	return loaded
}
