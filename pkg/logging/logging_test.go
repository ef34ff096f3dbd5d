package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.With("component", "refresh").WithGroup("report").Info("loaded report", "rows", 42, "path", "a b.kreport2")

	line := buf.String()
	if !strings.HasPrefix(line, "[INFO]  ") {
		t.Errorf("unexpected prefix: %q", line)
	}
	for _, want := range []string{"loaded report |", "component=refresh", "report.rows=42", `report.path="a b.kreport2"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
}

func TestCompactHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	l.Debug("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "[WARN]  ") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	if err := Configure("", 2, false); err != nil {
		t.Fatal(err)
	}
	Trace("deep detail")
	if !strings.Contains(buf.String(), "[TRACE]") {
		t.Errorf("expected trace output with -vv, got %q", buf.String())
	}

	buf.Reset()
	if err := Configure("warn", 2, true); err != nil {
		t.Fatal(err)
	}
	Info("quiet")
	Warn("loud", "n", 1)
	if strings.Contains(buf.String(), "quiet") {
		t.Error("explicit verbosity should override -v")
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "loud" {
		t.Errorf("unexpected record %v", rec)
	}

	if err := Configure("chatty", 0, false); err == nil {
		t.Error("expected error for unknown verbosity")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sankey", nil)
	req.Header.Set("X-Request-ID", "fixed-request-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "fixed-request-id" || rec.Header().Get("X-Request-ID") != "fixed-request-id" {
		t.Errorf("request id not propagated: ctx=%q header=%q", seen, rec.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), "request rejected") || !strings.Contains(buf.String(), "status=400") {
		t.Errorf("unexpected log output %q", buf.String())
	}

	// Without a header a fresh id is generated.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("expected generated uuid, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestStatusRecorder(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := NewStatusRecorder(rr)
	if rec.Status() != http.StatusOK {
		t.Errorf("default status = %d", rec.Status())
	}

	rec.WriteHeader(http.StatusTeapot)
	rec.Flush()
	if rec.Status() != http.StatusTeapot || rr.Code != http.StatusTeapot {
		t.Errorf("status not recorded: %d / %d", rec.Status(), rr.Code)
	}
	if !rr.Flushed {
		t.Error("Flush was not passed through")
	}
	if rec.Unwrap() != rr {
		t.Error("Unwrap should return the wrapped writer")
	}
}
