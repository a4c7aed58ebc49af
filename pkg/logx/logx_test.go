package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Info("ignored", String("k", "v"))
	if l.With(String("a", "b")).IsZero() {
		t.Fatalf("logger with fields should not be zero")
	}
}

func TestWithFieldsAreWritten(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").Named("tracker")
	l.Info("cycle done", Int("notified", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%q)", err, buf.String())
	}
	if rec["comp"] != "tracker" || rec["message"] != "cycle done" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["notified"].(float64) != 3 {
		t.Fatalf("notified=%v", rec["notified"])
	}
}

type status string

func (s status) String() string { return "status:" + string(s) }

func TestNilSafeFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")
	l.Info("fetch", Err(nil), Stringer("none", nil), Stringer("status", status("degraded")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := rec["err"]; ok {
		t.Fatalf("nil error should not be written: %v", rec)
	}
	if _, ok := rec["none"]; ok {
		t.Fatalf("nil stringer should not be written: %v", rec)
	}
	if rec["status"] != "status:degraded" {
		t.Fatalf("status=%v", rec["status"])
	}
}

func TestLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
	if l.Enabled(LevelInfo) {
		t.Fatalf("info should not be enabled")
	}
	l.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warn should pass: %q", buf.String())
	}
}

func TestFormatChatLine(t *testing.T) {
	t.Parallel()

	got := formatChatLine([]byte(`{"level":"warn","time":"x","message":"fetch degraded","status":503,"comp":"csfloat"}` + "\n"))
	want := "[WARN] fetch degraded\n- comp=csfloat\n- status=503"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	if got := formatChatLine([]byte("  plain text  ")); got != "plain text" {
		t.Fatalf("non-JSON line: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"0123456789abcdef", 12, "012345678..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Fatalf("truncate(%q,%d)=%q want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
