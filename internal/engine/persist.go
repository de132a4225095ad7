package engine

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ki9ng/PawPrint/internal/persist"
	"github.com/ki9ng/PawPrint/internal/state"
)

// runtimeSettings is the operator-adjustable state persisted across
// restarts, separate from the config file so runtime changes never
// rewrite operator-edited configuration.
type runtimeSettings struct {
	FilterRadiusKM     float64         `json:"filter_radius_km"`
	StationMaxAgeHours int             `json:"station_max_age_hours"`
	OwnPosition        *state.Position `json:"own_position,omitempty"`

	// StationMaxAgeDays is read for blobs written by older releases that
	// stored the window in days. Never written.
	StationMaxAgeDays int `json:"station_max_age_days,omitempty"`
}

// LoadAll seeds state from the persistence store. Missing blobs are the
// first-run case, not an error; corrupt blobs are logged and skipped so
// one bad file never takes the whole service down.
func (e *Engine) LoadAll() {
	now := time.Now()

	var settings runtimeSettings
	if err := e.loadBlob(blobSettings, &settings); err == nil {
		if settings.StationMaxAgeHours == 0 && settings.StationMaxAgeDays > 0 {
			settings.StationMaxAgeHours = settings.StationMaxAgeDays * 24
		}
		if settings.StationMaxAgeHours > 0 {
			e.state.SetMaxAgeHours(settings.StationMaxAgeHours)
		}
		if settings.FilterRadiusKM > 0 {
			e.state.SetFilterRadius(settings.FilterRadiusKM)
		}
		if settings.OwnPosition != nil {
			e.state.SetOwnPosition(settings.OwnPosition.Lat, settings.OwnPosition.Lon)
		}
	}

	var stations map[string]*state.Station
	if err := e.loadBlob(blobStations, &stations); err == nil {
		n := e.state.ImportStations(stations, now)
		e.logger.Info("Loaded stations", "count", n)
	}

	var tracks map[string][]state.TrackPoint
	if err := e.loadBlob(blobTracks, &tracks); err == nil {
		n := e.state.ImportTracks(tracks, now)
		e.logger.Info("Loaded tracks", "count", n)
	}

	var msgs []*state.Message
	if err := e.loadBlob(blobMessages, &msgs); err == nil {
		n := e.state.ImportMessages(msgs)
		e.logger.Info("Loaded messages", "count", n)
	}
}

func (e *Engine) loadBlob(name string, into interface{}) error {
	data, err := e.store.Load(name)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			e.logger.Warn("Blob load failed", "name", name, "err", err)
		}
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		e.logger.Warn("Blob corrupt, skipping", "name", name, "err", err)
		return err
	}
	return nil
}

// FlushAll persists everything. Called on shutdown.
func (e *Engine) FlushAll() {
	e.flushStations()
	e.flushTracks()
	e.flushMessages()
	e.flushSettings()
}

func (e *Engine) flushStations() {
	e.saveBlob(blobStations, e.state.ExportStations())
}

func (e *Engine) flushTracks() {
	e.saveBlob(blobTracks, e.state.ExportTracks())
}

func (e *Engine) flushMessages() {
	e.saveBlob(blobMessages, e.state.ExportMessages())
}

func (e *Engine) flushSettings() {
	s := runtimeSettings{
		FilterRadiusKM:     e.state.FilterRadius(),
		StationMaxAgeHours: e.state.MaxAgeHours(),
	}
	if pos, ok := e.state.OwnPosition(); ok {
		s.OwnPosition = &pos
	}
	e.saveBlob(blobSettings, s)
}

func (e *Engine) saveBlob(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		e.logger.Error("Blob marshal failed", "name", name, "err", err)
		return
	}
	if err := e.store.Save(name, data); err != nil {
		e.logger.Error("Blob save failed", "name", name, "err", err)
	}
}
