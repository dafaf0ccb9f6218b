package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/confloom/confloom/pkg/logging"
)

func TestSetSSEHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	setSSEHeaders(w)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if cn := w.Header().Get("Connection"); cn != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", cn)
	}
}

func TestWriteSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()
	writeSSEEvent(w, "42", "put", `{"key":"value"}`)

	body := w.Body.String()
	if !strings.Contains(body, "id: 42\n") {
		t.Errorf("missing id line in %q", body)
	}
	if !strings.Contains(body, "event: put\n") {
		t.Errorf("missing event line in %q", body)
	}
	if !strings.Contains(body, "data: {\"key\":\"value\"}\n") {
		t.Errorf("missing data line in %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("SSE event should end with double newline")
	}
}

func TestWriteSSEEventNoEventType(t *testing.T) {
	w := httptest.NewRecorder()
	writeSSEEvent(w, "1", "", "hello")

	body := w.Body.String()
	if strings.Contains(body, "event:") {
		t.Errorf("should not have event line when empty, got %q", body)
	}
	if !strings.Contains(body, "id: 1\n") {
		t.Errorf("missing id line")
	}
	if !strings.Contains(body, "data: hello\n") {
		t.Errorf("missing data line")
	}
}

func TestEventStreamHandler(t *testing.T) {
	buf := logging.NewEventBuffer(100)
	s := &Server{eventBuf: buf}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	// Run handler in background
	done := make(chan struct{})
	go func() {
		s.eventStreamHandler(w, req)
		close(done)
	}()

	// Wait for subscription to be set up
	time.Sleep(50 * time.Millisecond)

	buf.Add(logging.Event{
		Time:   time.Now(),
		Op:     "put",
		Target: "edge1",
		Detail: "214 bytes",
		Level:  "info",
	})

	time.Sleep(50 * time.Millisecond)

	// Cancel and wait for handler to exit
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: put") {
		t.Errorf("expected put event in response, got %q", body)
	}
	if !strings.Contains(body, "edge1") {
		t.Errorf("expected target in event data, got %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	// The data line carries the full event JSON
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			var ev logging.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if ev.Op != "put" || ev.Target != "edge1" {
				t.Errorf("event = %+v", ev)
			}
			break
		}
	}
}

func TestEventStreamOpFilter(t *testing.T) {
	buf := logging.NewEventBuffer(100)
	s := &Server{eventBuf: buf}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/events/stream?op=compare,synthesize", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.eventStreamHandler(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	// Should be filtered out
	buf.Add(logging.Event{Time: time.Now(), Op: "put", Target: "edge1"})
	// Should pass
	buf.Add(logging.Event{Time: time.Now(), Op: "compare", Target: "base cand", Detail: "3 changes"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if strings.Contains(body, "event: put") {
		t.Errorf("put should be filtered out, got %q", body)
	}
	if !strings.Contains(body, "event: compare") {
		t.Errorf("compare should pass filter, got %q", body)
	}
}

func TestEventStreamNoBuffer(t *testing.T) {
	s := &Server{eventBuf: nil}
	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil)
	w := httptest.NewRecorder()
	s.eventStreamHandler(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestParseOps(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"put", []string{"put"}},
		{"put,compare", []string{"put", "compare"}},
		{" Put , SYNTHESIZE ", []string{"put", "synthesize"}},
	}

	for _, tt := range tests {
		got := parseOps(tt.input)
		if tt.want == nil {
			if got != nil {
				t.Errorf("parseOps(%q) = %v, want nil", tt.input, got)
			}
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseOps(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for _, op := range tt.want {
			if !got[op] {
				t.Errorf("parseOps(%q) missing %q", tt.input, op)
			}
		}
	}
}
