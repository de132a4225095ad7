package dwconf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConf = `# Direwolf configuration
ADEVICE plughw:1,0
CHANNEL 0
MYCALL N0CALL-10
MODEM 1200

PBEACON delay=1 every=10 symbol="/>" lat=41^32.40N long=087^08.40W comment="old comment"
SMARTBEACONING 60 30 5 300 15 30 255
IGSERVER noam.aprs2.net
IGLOGIN N0CALL-10 12345
IGFILTER t/m b/N0CALL-10
`

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "direwolf.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead(t *testing.T) {
	path := writeSample(t, sampleConf)
	s, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.MyCall != "N0CALL-10" {
		t.Errorf("MyCall = %q", s.MyCall)
	}
	if s.Symbol != "/>" {
		t.Errorf("Symbol = %q", s.Symbol)
	}
	if s.Comment != "old comment" {
		t.Errorf("Comment = %q", s.Comment)
	}
	sb := s.SmartBeaconing
	if sb == nil {
		t.Fatal("SmartBeaconing missing")
	}
	if sb.FastSpeed != 60 || sb.SlowRate != 300 || sb.TurnSlope != 255 {
		t.Errorf("SmartBeaconing = %+v", sb)
	}
}

func TestWrite(t *testing.T) {
	t.Run("Rewrites the editable directives only", func(t *testing.T) {
		path := writeSample(t, sampleConf)
		changed, err := Write(path, &Settings{
			MyCall:  "ki9ng-10",
			Symbol:  "/k",
			Comment: "new comment",
			SmartBeaconing: &SmartBeaconing{
				FastSpeed: 70, FastRate: 20, SlowSpeed: 3,
				SlowRate: 600, TurnTime: 10, TurnAngle: 25, TurnSlope: 240,
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !changed {
			t.Fatal("Expected a change")
		}

		data, _ := os.ReadFile(path)
		text := string(data)
		if !strings.Contains(text, "MYCALL KI9NG-10") {
			t.Error("MYCALL not rewritten or not upper-cased")
		}
		if !strings.Contains(text, `symbol="/k"`) {
			t.Error("Beacon symbol not rewritten")
		}
		if !strings.Contains(text, `comment="new comment"`) {
			t.Error("Beacon comment not rewritten")
		}
		if !strings.Contains(text, "SMARTBEACONING 70 20 3 600 10 25 240") {
			t.Error("SMARTBEACONING not rewritten")
		}
		// Untouched directives survive verbatim.
		if !strings.Contains(text, "ADEVICE plughw:1,0") {
			t.Error("Unrelated line damaged")
		}
	})

	t.Run("Comment-only update leaves the symbol alone", func(t *testing.T) {
		path := writeSample(t, sampleConf)
		if _, err := Write(path, &Settings{Symbol: "/k"}); err != nil {
			t.Fatal(err)
		}
		changed, err := Write(path, &Settings{Comment: "fresh comment"})
		if err != nil {
			t.Fatal(err)
		}
		if !changed {
			t.Fatal("Expected the comment rewrite to register")
		}

		data, _ := os.ReadFile(path)
		text := string(data)
		if !strings.Contains(text, `symbol="/k"`) {
			t.Error("Comment-only update rewrote the symbol")
		}
		if !strings.Contains(text, `comment="fresh comment"`) {
			t.Error("Comment not rewritten")
		}
	})

	t.Run("No-op write reports unchanged", func(t *testing.T) {
		path := writeSample(t, sampleConf)
		changed, err := Write(path, &Settings{
			MyCall: "N0CALL-10", Symbol: "/>", Comment: "old comment",
		})
		if err != nil {
			t.Fatal(err)
		}
		if changed {
			t.Error("Identical settings must not rewrite the file")
		}
	})

	t.Run("IGFILTER appended when missing", func(t *testing.T) {
		conf := strings.Replace(sampleConf, "IGFILTER t/m b/N0CALL-10\n", "", 1)
		path := writeSample(t, conf)
		if _, err := Write(path, &Settings{MyCall: "KI9NG-10", Symbol: "/>"}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "IGFILTER t/m b/KI9NG-10") {
			t.Error("IGFILTER not appended")
		}
	})

	t.Run("Legacy symbol names map", func(t *testing.T) {
		path := writeSample(t, sampleConf)
		if _, err := Write(path, &Settings{Symbol: "truck"}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), `symbol="/k"`) {
			t.Error("Legacy name not mapped")
		}
	})
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"car":   "/>",
		"House": "/-",
		"/j":    "/j",
		"":      "/>",
		"bogus": "/>",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
