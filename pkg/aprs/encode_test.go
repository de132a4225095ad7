package aprs

import "testing"

func TestFormatMessage(t *testing.T) {
	t.Run("Addressee padded to 9", func(t *testing.T) {
		got := FormatMessage("KI9NG-10", "N9XYZ", "hello there", "3")
		want := "KI9NG-10>APRS,TCPIP*::N9XYZ    :hello there{3}"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("Long addressee truncated to 9", func(t *testing.T) {
		got := FormatMessage("KI9NG-10", "VERYLONGCALL", "x", "1")
		want := "KI9NG-10>APRS,TCPIP*::VERYLONGC:x{1}"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})
}

func TestFormatPosition(t *testing.T) {
	got := FormatPosition("KI9NG-10", 41.54, -87.141667, '/', '>', "AllStar Node")
	want := "KI9NG-10>APRS,TCPIP*:=4132.40N/08708.50W>AllStar Node"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	// A beacon must round-trip through our own fallback parser.
	info := got[len("KI9NG-10>APRS,TCPIP*:"):]
	lat, lon, ok := ParsePosition(info)
	if !ok {
		t.Fatal("Encoded beacon did not parse back")
	}
	if lat < 41.5 || lat > 41.6 || lon > -87.1 || lon < -87.2 {
		t.Errorf("Round-trip position off: %f, %f", lat, lon)
	}
}

func TestFormatLogin(t *testing.T) {
	t.Run("With filter", func(t *testing.T) {
		got := FormatLogin("KI9NG-10", "12345", "1.0", 41.54, -87.14, 50)
		want := "user KI9NG-10 pass 12345 vers PawPrint 1.0 filter r/41.54/-87.14/50"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})

	t.Run("Send-only login omits filter", func(t *testing.T) {
		got := FormatLogin("KI9NG-10", "12345", "1.0", 0, 0, 0)
		want := "user KI9NG-10 pass 12345 vers PawPrint 1.0"
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	})
}

func TestFormatFilter(t *testing.T) {
	got := FormatFilter(41.5412, -87.1398, 50)
	want := "#filter r/41.5412/-87.1398/50"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
