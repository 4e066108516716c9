// Package server is the HTTP shell: one webhook endpoint receiving Telegram
// updates, plus health and metrics. Telegram retries on non-2xx, so the
// handler only returns 5xx for genuinely broken requests.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modshield/internal/config"
	"modshield/internal/dispatch"
	"modshield/internal/telegram"
	logx "modshield/pkg/logx"
)

const maxUpdateBytes = 1 << 20 // Telegram updates are small; cap the body

type Server struct {
	dispatcher *dispatch.Dispatcher
	log        logx.Logger
	http       *http.Server
}

func New(cfg config.ServerConfig, d *dispatch.Dispatcher, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{dispatcher: d, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer) // unhandled panic => 500
	r.Post(cfg.WebhookPath, s.handleWebhook)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if cfg.Pprof {
		r.Mount("/debug", middleware.Profiler())
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router. Test hook.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// handleWebhook processes exactly one Telegram Update per request.
// Non-POST methods never reach here (the router answers 405). A body that
// does not decode as an update yields 500; every handled or deliberately
// ignored update yields 200 so Telegram stops retrying.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpdateBytes))
	if err != nil {
		s.log.Warn("webhook body read failed", logx.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	up, err := telegram.DecodeUpdate(body)
	if err != nil {
		s.log.Warn("webhook body undecodable", logx.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := s.dispatcher.Dispatch(r.Context(), up); err != nil {
		s.log.Error("update dispatch failed", logx.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Run serves until ctx is cancelled, then shuts down gracefully. It signals
// readiness/stopping to systemd when running under it.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", logx.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
