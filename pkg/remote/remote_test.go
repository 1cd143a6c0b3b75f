package remote

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"github.com/sudorandom/screenshot-automator/pkg/trigger"
)

type stubCapturer struct {
	mu    sync.Mutex
	kinds []capture.TriggerKind
	err   error
}

func (s *stubCapturer) Capture(_ context.Context, kind capture.TriggerKind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, kind)
	if s.err != nil {
		return "", s.err
	}
	return "Screenshots/" + kind.String() + "/shot.png", nil
}

func (s *stubCapturer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubCapturer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.kinds)
}

func dialTest(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/capture"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	return c
}

func TestRemoteCapture(t *testing.T) {
	stub := &stubCapturer{}
	srv := httptest.NewServer(NewServer(stub).Handler())
	defer srv.Close()

	c := dialTest(t, srv)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Capture(ctx, capture.Triggered)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if resp.Path != "Screenshots/Triggered/shot.png" || resp.Error != "" {
		t.Errorf("Unexpected response %+v", resp)
	}

	resp, err = c.Capture(ctx, capture.Manual)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if resp.Kind != "Manual" {
		t.Errorf("Expected Manual, got %q", resp.Kind)
	}
	if n := stub.calls(); n != 2 {
		t.Errorf("Expected 2 captures, got %d", n)
	}
}

func TestRemoteReportsNoOpAndBusy(t *testing.T) {
	stub := &stubCapturer{err: capture.ErrNoCamera}
	srv := httptest.NewServer(NewServer(stub).Handler())
	defer srv.Close()
	c := dialTest(t, srv)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := c.Capture(ctx, capture.Triggered)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !resp.NoOp || resp.Error != "" {
		t.Errorf("Expected no-op response, got %+v", resp)
	}

	stub.setErr(trigger.ErrCaptureInFlight)
	resp, err = c.Capture(ctx, capture.Triggered)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !resp.Busy {
		t.Errorf("Expected busy response, got %+v", resp)
	}
}

func TestServeRejectsUnknownKind(t *testing.T) {
	s := NewServer(&stubCapturer{})
	resp := s.serve(context.Background(), Request{Kind: "Sometimes"})
	if resp.Error == "" {
		t.Error("Expected error for unknown kind")
	}
	resp = s.serve(context.Background(), Request{})
	if resp.Kind != "Triggered" {
		t.Errorf("Expected default kind Triggered, got %q", resp.Kind)
	}
}
