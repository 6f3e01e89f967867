package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounter(t *testing.T) {
	t.Run("without labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("test_counter", "A test counter")

		_ = c.Inc()
		_ = c.Inc()
		_ = c.Add(3)

		samples := c.Collect()
		if len(samples) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(samples))
		}
		if samples[0].Value != 5 {
			t.Errorf("expected value 5, got %f", samples[0].Value)
		}
	})

	t.Run("with labels", func(t *testing.T) {
		r := NewRegistry()
		c := r.NewCounter("ws_messages", "Messages", "direction")

		vec, err := c.WithLabels("inbound")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = vec.Inc()
		vec, _ = c.WithLabels("inbound")
		_ = vec.Inc()
		vec, _ = c.WithLabels("outbound")
		_ = vec.Add(5)

		found := make(map[string]float64)
		for _, s := range c.Collect() {
			found[s.Labels["direction"]] = s.Value
		}
		if found["inbound"] != 2 || found["outbound"] != 5 {
			t.Errorf("unexpected samples: %v", found)
		}
	})

	t.Run("negative add", func(t *testing.T) {
		c := NewRegistry().NewCounter("neg", "neg")
		if err := c.Add(-1); !errors.Is(err, ErrNegativeCounterValue) {
			t.Errorf("expected ErrNegativeCounterValue, got %v", err)
		}
	})

	t.Run("label mismatch", func(t *testing.T) {
		c := NewRegistry().NewCounter("mismatch", "m", "a", "b")
		if _, err := c.WithLabels("only-one"); !errors.Is(err, ErrLabelCountMismatch) {
			t.Errorf("expected ErrLabelCountMismatch, got %v", err)
		}
	})
}

func TestGauge(t *testing.T) {
	g := NewRegistry().NewGauge("conns", "Connections", "protocol")
	vec, err := g.WithLabels("websocket")
	if err != nil {
		t.Fatal(err)
	}
	vec.Inc()
	vec.Inc()
	vec.Dec()
	vec.Add(3)
	if vec.Value() != 4 {
		t.Errorf("expected 4, got %f", vec.Value())
	}
	vec.Set(-2)
	if vec.Value() != -2 {
		t.Errorf("expected -2, got %f", vec.Value())
	}
}

func TestGauge_Concurrent(t *testing.T) {
	g := NewRegistry().NewGauge("concurrent", "c", "protocol")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				vec, _ := g.WithLabels("websocket")
				vec.Inc()
			}
		}()
	}
	wg.Wait()

	vec, _ := g.WithLabels("websocket")
	if vec.Value() != 5000 {
		t.Errorf("expected 5000, got %f", vec.Value())
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.NewCounter("dup", "first")
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate metric name")
		}
	}()
	r.NewGauge("dup", "second")
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	c := r.NewCounter("http_requests_total", "Total requests", "method", "path")
	vec, _ := c.WithLabels("POST", `/a"b`)
	_ = vec.Inc()
	r.NewGauge("empty_gauge", "Never set")

	scraped := 0
	r.OnScrape(func() { scraped++ })

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(out, "# TYPE http_requests_total counter") {
		t.Errorf("missing TYPE line:\n%s", out)
	}
	if !strings.Contains(out, `http_requests_total{method="POST",path="/a\"b"} 1`) {
		t.Errorf("missing escaped sample:\n%s", out)
	}
	if strings.Contains(out, "empty_gauge") {
		t.Errorf("metrics without samples should be omitted:\n%s", out)
	}
	if scraped != 1 {
		t.Errorf("OnScrape hook ran %d times, want 1", scraped)
	}
}

func TestInit_Idempotent(t *testing.T) {
	Reset()
	defer Reset()

	r1 := Init()
	r2 := Init()
	if r1 != r2 {
		t.Error("Init should return the same registry")
	}
	if ActiveConnections == nil || WSMessagesTotal == nil || HTTPRequestsTotal == nil {
		t.Fatal("default metrics not initialized")
	}

	var sb strings.Builder
	r1.WriteText(&sb)
	if !strings.Contains(sb.String(), "wsbridge_uptime_seconds") {
		t.Errorf("uptime gauge missing:\n%s", sb.String())
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{42, "42"},
		{-3, "-3"},
		{0.5, "0.5"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
