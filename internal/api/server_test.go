package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunShutsDownGracefully(t *testing.T) {
	srv, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// Give the listener a moment, then trigger shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	d := &testDeps{
		ingestor: &mockIngestor{}, answerer: &mockAnswerer{},
		titler: &mockTitler{}, sessions: newMockSessions(), chunks: &mockChunks{},
	}
	srv := New(Config{RequestsPerMinute: 1}, Deps{
		Ingestor: d.ingestor, Answerer: d.answerer, Titler: d.titler,
		Sessions: d.sessions, Chunks: d.chunks,
	}, nil, nil)

	body := map[string]string{"question": "q"}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}

	// Unlimited endpoints stay reachable.
	rec = doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health during rate limit = %d, want 200", rec.Code)
	}
}
