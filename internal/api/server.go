package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/whitespainting/sally/internal/crm"
	"github.com/whitespainting/sally/internal/intake"
	"github.com/whitespainting/sally/internal/proposal"
	"github.com/whitespainting/sally/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address (host:port).
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the intake flows, lead store, proposal engine, and CRM
// forwarder behind HTTP handlers.
type Server struct {
	st        store.Store
	smsFlow   *intake.SMSFlow
	voiceFlow *intake.VoiceFlow
	proposals *proposal.Engine
	crm       *crm.Forwarder
	addr      string
}

// NewServer creates the API server. The listen address falls back to the
// API_ADDR environment variable, then to DefaultAddr.
func NewServer(st store.Store, smsFlow *intake.SMSFlow, voiceFlow *intake.VoiceFlow, proposals *proposal.Engine, forwarder *crm.Forwarder, options ...Option) *Server {
	opts := &Opts{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.Addr == "" {
		opts.Addr = os.Getenv("API_ADDR")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	return &Server{
		st:        st,
		smsFlow:   smsFlow,
		voiceFlow: voiceFlow,
		proposals: proposals,
		crm:       forwarder,
		addr:      opts.Addr,
	}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/sms", s.smsHandler)
	mux.HandleFunc("/voice", s.voiceHandler)
	mux.HandleFunc("/voice/turn", s.voiceTurnHandler)
	mux.HandleFunc("/web/lead", s.webLeadHandler)
	mux.HandleFunc("/admin/leads", s.adminLeadsHandler)
	mux.HandleFunc("/admin/messages", s.adminMessagesHandler)
	mux.HandleFunc("/admin/proposals", s.adminProposalsHandler)
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run: shut down cleanly")
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
