package news

import (
	"strings"
	"testing"
	"time"
)

func TestFingerprintDeterministic(t *testing.T) {
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := Fingerprint("X", "https://e.com/x", published)
	b := Fingerprint("X", "https://e.com/x", published)

	if a != b {
		t.Errorf("Expected identical fingerprints, got '%s' and '%s'", a, b)
	}
	if len(a) != 16 {
		t.Errorf("Expected 16-character fingerprint, got %d characters", len(a))
	}
}

func TestFingerprintDistinctOnTimestamp(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	a := Fingerprint("X", "https://e.com/x", first)
	b := Fingerprint("X", "https://e.com/x", second)

	if a == b {
		t.Error("Expected different fingerprints for different publication times")
	}
}

func TestFingerprintTimezoneNormalized(t *testing.T) {
	utc := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))

	if Fingerprint("X", "https://e.com/x", utc) != Fingerprint("X", "https://e.com/x", est) {
		t.Error("Expected the same fingerprint regardless of timezone representation")
	}
}

func TestNewSetsID(t *testing.T) {
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	item := New("X", "https://e.com/x", published, "feed:test", "Example")

	if item.ID == "" {
		t.Fatal("Expected item ID to be set")
	}
	if item.ID != Fingerprint("X", "https://e.com/x", published) {
		t.Error("Expected item ID to match its fingerprint")
	}
	if item.Published.Location() != time.UTC {
		t.Error("Expected published time normalized to UTC")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"rfc3339", "2024-01-01T00:00:00Z", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", "2024-01-01T05:00:00+05:00", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"rfc1123z", "Mon, 01 Jan 2024 00:00:00 +0000", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"date only", "2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"epoch seconds", float64(1704067200), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"epoch millis", float64(1704067200000), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTime(tt.input)
			if !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if got.Location() != time.UTC {
				t.Errorf("Expected UTC location, got %v", got.Location())
			}
		})
	}
}

func TestParseTimeFallback(t *testing.T) {
	before := time.Now().UTC()
	got := ParseTime("not a timestamp")
	after := time.Now().UTC()

	if got.Before(before) || got.After(after) {
		t.Errorf("Expected fallback to current time, got %v", got)
	}

	if ParseTime(nil).IsZero() {
		t.Error("Expected non-zero time for nil input")
	}
}

func TestClampSummary(t *testing.T) {
	short := "brief summary"
	if ClampSummary(short) != short {
		t.Error("Expected short summary unchanged")
	}

	long := strings.Repeat("a", 600)
	clamped := ClampSummary(long)
	if len([]rune(clamped)) != 500 {
		t.Errorf("Expected summary clamped to 500 runes, got %d", len([]rune(clamped)))
	}
}
