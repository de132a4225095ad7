// Package dwconf reads and edits the local direwolf.conf in place. Only
// the handful of directives the operator can change from the dashboard
// are touched; every other line, comment and blank included, passes
// through byte for byte so hand-edited configs survive.
package dwconf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Settings is the editable slice of a direwolf.conf.
type Settings struct {
	MyCall  string `json:"mycall"`
	Symbol  string `json:"symbol"` // two characters, table then code
	Comment string `json:"comment"`

	SmartBeaconing *SmartBeaconing `json:"smart_beaconing,omitempty"`
}

// SmartBeaconing mirrors the seven SMARTBEACONING parameters in
// direwolf's order.
type SmartBeaconing struct {
	FastSpeed int `json:"fast_speed"` // mph
	FastRate  int `json:"fast_rate"`  // seconds
	SlowSpeed int `json:"slow_speed"` // mph
	SlowRate  int `json:"slow_rate"`  // seconds
	TurnTime  int `json:"turn_time"`  // seconds
	TurnAngle int `json:"turn_angle"` // degrees
	TurnSlope int `json:"turn_slope"`
}

// legacySymbols maps the symbol names older dashboard builds stored to
// the two-character APRS symbol they meant.
var legacySymbols = map[string]string{
	"car":     "/>",
	"jeep":    "/j",
	"truck":   "/k",
	"van":     "/v",
	"bike":    "/b",
	"jogger":  "/[",
	"boat":    "/Y",
	"house":   "/-",
	"balloon": "/O",
	"dog":     "/p",
}

// NormalizeSymbol accepts either a two-character APRS symbol or a legacy
// symbol name and returns the two-character form, defaulting to a car.
func NormalizeSymbol(s string) string {
	if mapped, ok := legacySymbols[strings.ToLower(strings.TrimSpace(s))]; ok {
		return mapped
	}
	if len(s) == 2 {
		return s
	}
	return "/>"
}

var (
	mycallRe      = regexp.MustCompile(`(?m)^(\s*MYCALL\s+)\S+`)
	mycallValueRe = regexp.MustCompile(`(?m)^\s*MYCALL\s+(\S+)`)
	symbolRe      = regexp.MustCompile(`symbol="[^"]*"`)
	commentRe     = regexp.MustCompile(`comment="[^"]*"`)
	smartRe       = regexp.MustCompile(`(?m)^\s*SMARTBEACONING\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`)
	beaconRe      = regexp.MustCompile(`(?m)^\s*[TP]BEACON\s`)
	igfRe         = regexp.MustCompile(`(?m)^\s*IGFILTER\s`)
)

// Read extracts the editable settings from a direwolf.conf.
func Read(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	s := &Settings{Symbol: "/>"}
	if m := mycallValueRe.FindStringSubmatch(text); m != nil {
		s.MyCall = m[1]
	}

	for _, line := range strings.Split(text, "\n") {
		if !beaconRe.MatchString(line) {
			continue
		}
		if m := symbolRe.FindString(line); m != "" {
			s.Symbol = NormalizeSymbol(strings.Trim(m[len(`symbol="`):], `"`))
		}
		if m := commentRe.FindString(line); m != "" {
			s.Comment = strings.Trim(m[len(`comment="`):], `"`)
		}
		break
	}

	if m := smartRe.FindStringSubmatch(text); m != nil {
		sb := &SmartBeaconing{}
		fields := []*int{&sb.FastSpeed, &sb.FastRate, &sb.SlowSpeed, &sb.SlowRate,
			&sb.TurnTime, &sb.TurnAngle, &sb.TurnSlope}
		for i, f := range fields {
			*f, _ = strconv.Atoi(m[i+1])
		}
		s.SmartBeaconing = sb
	}

	return s, nil
}

// Write applies the settings to the file in place and returns whether
// anything actually changed. The rewrite is atomic.
func Write(path string, s *Settings) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	original := string(data)
	text := original

	if s.MyCall != "" {
		text = mycallRe.ReplaceAllString(text, "${1}"+strings.ToUpper(s.MyCall))
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !beaconRe.MatchString(line) {
			continue
		}
		// An empty Symbol means the update does not touch the symbol.
		if s.Symbol != "" {
			line = symbolRe.ReplaceAllString(line, `symbol="`+NormalizeSymbol(s.Symbol)+`"`)
		}
		if s.Comment != "" {
			if commentRe.MatchString(line) {
				line = commentRe.ReplaceAllString(line, `comment="`+s.Comment+`"`)
			} else {
				line = line + ` comment="` + s.Comment + `"`
			}
		}
		lines[i] = line
	}
	text = strings.Join(lines, "\n")

	if sb := s.SmartBeaconing; sb != nil {
		replacement := fmt.Sprintf("SMARTBEACONING %d %d %d %d %d %d %d",
			sb.FastSpeed, sb.FastRate, sb.SlowSpeed, sb.SlowRate,
			sb.TurnTime, sb.TurnAngle, sb.TurnSlope)
		if smartRe.MatchString(text) {
			text = smartRe.ReplaceAllString(text, replacement)
		} else {
			text = ensureTrailingNewline(text) + replacement + "\n"
		}
	}

	// Direwolf only gates server-to-RF traffic when an IGFILTER is set;
	// without one, messages gated from APRS-IS never hit the air.
	if !igfRe.MatchString(text) && s.MyCall != "" {
		text = ensureTrailingNewline(text) +
			fmt.Sprintf("IGFILTER t/m b/%s\n", strings.ToUpper(s.MyCall))
	}

	if text == original {
		return false, nil
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, nil
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
