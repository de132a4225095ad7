package aprs

import (
	"math"
	"testing"
)

func TestParsePosition(t *testing.T) {
	t.Run("Uncompressed with slash table", func(t *testing.T) {
		lat, lon, ok := ParsePosition("!4132.40N/08708.50W>PHG5132")
		if !ok {
			t.Fatal("Expected a position")
		}
		if math.Abs(lat-41.54) > 0.001 {
			t.Errorf("Expected lat ~41.54, got %f", lat)
		}
		if math.Abs(lon-(-87.1417)) > 0.001 {
			t.Errorf("Expected lon ~-87.1417, got %f", lon)
		}
	})

	t.Run("Southern and eastern hemispheres", func(t *testing.T) {
		lat, lon, ok := ParsePosition("=3352.10S/15112.70E-Sydney")
		if !ok {
			t.Fatal("Expected a position")
		}
		if lat >= 0 || lon <= 0 {
			t.Errorf("Expected negative lat / positive lon, got %f, %f", lat, lon)
		}
	})

	// Regression: the symbol table identifier may be an overlay digit.
	// A digit there must be treated as the table character and yield the
	// same coordinates as '/'; a wildcard match would shift the pattern
	// and extract garbage.
	t.Run("Digit overlay table parses same as slash", func(t *testing.T) {
		slashLat, slashLon, ok1 := ParsePosition("!4132.40N/08708.50W>")
		digitLat, digitLon, ok2 := ParsePosition("!4132.40N508708.50W>")
		if !ok1 || !ok2 {
			t.Fatal("Expected both variants to parse")
		}
		if slashLat != digitLat || slashLon != digitLon {
			t.Errorf("Digit table changed coordinates: (%f,%f) vs (%f,%f)",
				slashLat, slashLon, digitLat, digitLon)
		}
	})

	t.Run("Invalid table character yields no position", func(t *testing.T) {
		if _, _, ok := ParsePosition("!4132.40N.08708.50W>"); ok {
			t.Error("Expected '.' table character to be rejected")
		}
	})

	t.Run("Out of range latitude rejected", func(t *testing.T) {
		if _, _, ok := ParsePosition("!9132.40N/08708.50W>"); ok {
			t.Error("Expected out-of-range latitude to be rejected")
		}
	})

	t.Run("No position in info", func(t *testing.T) {
		if _, _, ok := ParsePosition(">status text only"); ok {
			t.Error("Expected no position")
		}
	})
}

func TestExtractSymbol(t *testing.T) {
	t.Run("Car symbol", func(t *testing.T) {
		table, code := ExtractSymbol("!4132.40N/08708.50W>on the move")
		if table != '/' || code != '>' {
			t.Errorf("Expected /> got %c%c", table, code)
		}
	})

	t.Run("House symbol", func(t *testing.T) {
		table, code := ExtractSymbol("=4132.40N/08708.50W-home station")
		if table != '/' || code != '-' {
			t.Errorf("Expected /- got %c%c", table, code)
		}
	})

	t.Run("Default on no match", func(t *testing.T) {
		table, code := ExtractSymbol("no position here")
		if table != '/' || code != '>' {
			t.Errorf("Expected default /> got %c%c", table, code)
		}
	})
}
