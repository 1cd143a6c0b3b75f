// Package remote lets other processes request captures over a websocket.
package remote

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"github.com/sudorandom/screenshot-automator/pkg/trigger"
)

// Request asks for one capture. An empty Kind means Triggered.
type Request struct {
	Kind string `json:"kind,omitempty"`
}

// Response answers a Request.
type Response struct {
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
	// NoOp is set when nothing was captured, for example without a camera.
	NoOp bool `json:"no_op,omitempty"`
	// Busy is set when another capture was already running.
	Busy bool `json:"busy,omitempty"`
}

// Server upgrades connections on /capture and runs one capture per request.
type Server struct {
	capturer trigger.Capturer
	upgrader websocket.Upgrader
	timeout  time.Duration
}

func NewServer(c trigger.Capturer) *Server {
	return &Server{
		capturer: c,
		timeout:  30 * time.Second,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/capture", s.handleCapture)
	return mux
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade error: %v", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Remote read error: %v", err)
			}
			return
		}
		resp := s.serve(r.Context(), req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("Remote write error: %v", err)
			return
		}
	}
}

func (s *Server) serve(ctx context.Context, req Request) Response {
	kind := capture.Triggered
	if req.Kind != "" {
		var err error
		kind, err = capture.ParseTriggerKind(req.Kind)
		if err != nil {
			return Response{Kind: req.Kind, Error: err.Error()}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	path, err := s.capturer.Capture(ctx, kind)
	resp := Response{Kind: kind.String(), Path: path}
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrNoCamera):
		resp.NoOp = true
	case errors.Is(err, trigger.ErrCaptureInFlight):
		resp.Busy = true
		resp.Error = err.Error()
	default:
		resp.Error = err.Error()
	}
	return resp
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Remote capture listening on ws://%s/capture", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
