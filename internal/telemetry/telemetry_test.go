package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestFileRecorder_EventFields(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriterRecorder(&buf)
	at := time.Unix(1700000000, 500_000_000)

	r.Record(Event{Kind: SessionStart, SessionID: "s1", At: at})
	r.Record(Event{Kind: FirstPartial, SessionID: "s1", Latency: 420 * time.Millisecond, At: at})
	r.Record(Event{Kind: Partial, SessionID: "s1", Text: "hel", At: at})
	r.Record(Event{Kind: Final, SessionID: "s1", Text: "hello", At: at})
	r.Record(Event{Kind: TimeToFinal, SessionID: "s1", TimeToFinal: 1250 * time.Millisecond, At: at})

	lines := decodeLines(t, buf.Bytes())
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}

	if lines[0]["event"] != "session_start" || lines[0]["sessionId"] != "s1" {
		t.Errorf("unexpected session_start line %v", lines[0])
	}
	if ts, _ := lines[0]["t"].(float64); ts != 1700000000.5 {
		t.Errorf("expected t=1700000000.5, got %v", lines[0]["t"])
	}
	if lines[1]["latency_ms"] != float64(420) {
		t.Errorf("expected latency_ms 420, got %v", lines[1]["latency_ms"])
	}
	if lines[2]["text"] != "hel" || lines[3]["text"] != "hello" {
		t.Errorf("unexpected text fields %v / %v", lines[2], lines[3])
	}
	if lines[4]["time_to_final_ms"] != float64(1250) {
		t.Errorf("expected time_to_final_ms 1250, got %v", lines[4]["time_to_final_ms"])
	}
	if _, ok := lines[0]["text"]; ok {
		t.Error("session_start must not carry text")
	}
}

func TestFileRecorder_DefaultsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	NewWriterRecorder(&buf).Record(Event{Kind: FirstAudio})

	lines := decodeLines(t, buf.Bytes())
	if ts, _ := lines[0]["t"].(float64); ts <= 0 {
		t.Errorf("expected wall-clock t, got %v", lines[0]["t"])
	}
}

func TestOpen_AppendsToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	r, err := Open(dir, time.UnixMilli(1234))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(r.Path(), "session_1234.jsonl") {
		t.Errorf("unexpected path %s", r.Path())
	}

	r.Record(Event{Kind: SessionStart})
	r.Record(Event{Kind: FirstAudio})
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(r.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := len(decodeLines(t, data)); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

func TestFileRecorder_ConcurrentSessions(t *testing.T) {
	var buf bytes.Buffer
	r := NewWriterRecorder(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				r.Record(Event{Kind: Partial, Text: "concurrent text"})
			}
		}()
	}
	wg.Wait()

	if n := len(decodeLines(t, buf.Bytes())); n != 500 {
		t.Errorf("expected 500 intact lines, got %d", n)
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.Record(Event{Kind: Final, Text: "ignored"})
}
