// Package logmon tails the Direwolf console log for our own transmitted
// beacons. The radio is the authority on where we are: every beacon
// Direwolf logs carries the position it just sent on air, and that fix
// drives the map marker, our own track, and the adaptive feed filter.
package logmon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ki9ng/PawPrint/internal/engine"
	"github.com/ki9ng/PawPrint/pkg/aprs"
)

const (
	seedLines  = 200
	pollEvery  = time.Second
	retryDelay = 15 * time.Second
)

// Monitor follows one log file for one callsign.
type Monitor struct {
	path     string
	beaconRe *regexp.Regexp
	eng      *engine.Engine
	logger   *log.Logger
}

func New(path, callsign string, eng *engine.Engine, logger *log.Logger) *Monitor {
	// A transmitted beacon line looks like:
	//   [0L] KI9NG-10>APDW17,WIDE1-1:=4132.40N/08708.40W>PawPrint
	re := regexp.MustCompile(
		`\[\S+\]\s+` + regexp.QuoteMeta(aprs.NormalizeCall(callsign)) +
			`>[\w,-]+:[!=@](\d{2})(\d{2}\.\d+)([NS])[\/\\A-Za-z0-9](\d{3})(\d{2}\.\d+)([EW])`)
	return &Monitor{
		path:     path,
		beaconRe: re,
		eng:      eng,
		logger:   logger,
	}
}

// parseBeacon extracts the position from a matching log line.
func (m *Monitor) parseBeacon(line string) (lat, lon float64, ok bool) {
	g := m.beaconRe.FindStringSubmatch(line)
	if g == nil {
		return 0, 0, false
	}
	deg, _ := strconv.ParseFloat(g[1], 64)
	min, _ := strconv.ParseFloat(g[2], 64)
	lat = deg + min/60
	if g[3] == "S" {
		lat = -lat
	}
	deg, _ = strconv.ParseFloat(g[4], 64)
	min, _ = strconv.ParseFloat(g[5], 64)
	lon = deg + min/60
	if g[6] == "W" {
		lon = -lon
	}
	return lat, lon, true
}

func (m *Monitor) handleLine(line string) {
	if lat, lon, ok := m.parseBeacon(line); ok {
		m.logger.Info("Own beacon seen in Direwolf log", "lat", lat, "lon", lon)
		m.eng.SetOwnPosition(lat, lon, true)
	}
}

// Run tails the log until ctx ends. A missing or rotated file is retried
// forever; the monitor never gives up on the radio coming back.
func (m *Monitor) Run(ctx context.Context) {
	for {
		if err := m.followOnce(ctx); err != nil && ctx.Err() == nil {
			m.logger.Debug("Log follow interrupted", "path", m.path, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

// followOnce seeds from the file tail, then streams appended lines until
// the file is rotated away or an error occurs.
func (m *Monitor) followOnce(ctx context.Context) error {
	f, err := os.Open(m.path)
	if err != nil {
		return err
	}
	defer f.Close()

	offset, err := m.seed(f)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollEvery):
		}

		fi, err := os.Stat(m.path)
		if err != nil {
			return fmt.Errorf("log vanished: %w", err)
		}
		if fi.Size() < offset {
			// Truncated or rotated in place; start over from the top.
			m.logger.Info("Direwolf log rotated, reopening", "path", m.path)
			return nil
		}
		if fi.Size() == offset {
			continue
		}

		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		r := bufio.NewReader(f)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				// A partial final line stays unread until its newline
				// arrives.
				break
			}
			offset += int64(len(line))
			m.handleLine(line)
		}
	}
}

// seed scans the last seedLines of the file so a restart picks up the
// most recent beacon without replaying days of log, and returns the
// offset to continue following from.
func (m *Monitor) seed(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := fi.Size()

	// Read a generous tail window; beacon lines are short.
	const window = 64 * 1024
	start := size - window
	if start < 0 {
		start = 0
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}

	lines := splitTail(string(data), seedLines)
	var lastBeacon string
	for _, line := range lines {
		if m.beaconRe.MatchString(line) {
			lastBeacon = line
		}
	}
	if lastBeacon != "" {
		m.handleLine(lastBeacon)
	}
	return size, nil
}

// splitTail returns at most n trailing complete lines of s.
func splitTail(s string, n int) []string {
	var lines []string
	for len(s) > 0 && len(lines) < n {
		i := len(s) - 1
		if s[i] == '\n' {
			s = s[:i]
			continue
		}
		j := -1
		for k := len(s) - 1; k >= 0; k-- {
			if s[k] == '\n' {
				j = k
				break
			}
		}
		lines = append(lines, s[j+1:])
		if j < 0 {
			break
		}
		s = s[:j]
	}
	// Oldest first.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines
}
