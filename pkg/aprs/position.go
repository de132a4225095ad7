package aprs

import (
	"regexp"
	"strconv"

	"github.com/ki9ng/PawPrint/pkg/geo"
)

// Uncompressed APRS position: [!=/@]DDMM.mmN<T>DDDMM.mmW where <T> is the
// symbol table identifier: '/', '\', or an overlay character A-Za-z0-9.
//
// The table identifier MUST be this explicit character class. A wildcard
// '.' there is the classic erratic-position bug: it matches digits too, so
// the pattern can latch onto an unrelated part of the packet and emit
// garbage coordinates that still pass a loose bounds check.
var uncompressedPositionRe = regexp.MustCompile(
	`[!=/@](\d{2})(\d{2}\.\d+)([NS])[\/\\A-Za-z0-9](\d{3})(\d{2}\.\d+)([EW])`)

// Position with symbol: the character after [NS] is the table, the
// character after [EW] is the symbol code.
var symbolRe = regexp.MustCompile(
	`[!=/@]\d{4}\.\d+[NS](.)\d{5}\.\d+[EW](.)`)

// ParsePosition extracts lat/lon from an APRS info field using the
// uncompressed format. Returns ok=false when no position is present or the
// coordinates fall outside [-90,90]x[-180,180].
func ParsePosition(info string) (lat, lon float64, ok bool) {
	m := uncompressedPositionRe.FindStringSubmatch(info)
	if m == nil {
		return 0, 0, false
	}

	latDeg, _ := strconv.Atoi(m[1])
	latMin, _ := strconv.ParseFloat(m[2], 64)
	lat = float64(latDeg) + latMin/60.0
	if m[3] == "S" {
		lat = -lat
	}

	lonDeg, _ := strconv.Atoi(m[4])
	lonMin, _ := strconv.ParseFloat(m[5], 64)
	lon = float64(lonDeg) + lonMin/60.0
	if m[6] == "W" {
		lon = -lon
	}

	if !geo.ValidLatLon(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

// ExtractSymbol returns the symbol table and code characters from an info
// field, or the generic '/' '>' pair when none can be found.
func ExtractSymbol(info string) (table, code byte) {
	if m := symbolRe.FindStringSubmatch(info); m != nil {
		return m[1][0], m[2][0]
	}
	return '/', '>'
}
