// Package api provides the HTTP surface of the cutroom daemon.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/balintmendlik/cutroom/internal/config"
	"github.com/balintmendlik/cutroom/internal/render"
	"github.com/balintmendlik/cutroom/internal/timeline"
	"github.com/balintmendlik/cutroom/internal/transcribe"
)

// RenderService is the slice of the orchestrator the handlers need.
type RenderService interface {
	Bootstrap(ctx context.Context, opts render.BootstrapOptions) (render.Infrastructure, error)
	Submit(ctx context.Context, inf render.Infrastructure, props render.Props, opts render.SubmitOptions) (*render.Job, error)
	Poll(ctx context.Context, job *render.Job) error
}

// Transcriber is the slice of the transcription client the handlers need.
type Transcriber interface {
	Transcribe(ctx context.Context, media io.Reader, mimeType, language string) (*transcribe.Result, error)
}

// Visualizer is the slice of the audio visualization manager the handlers need.
type Visualizer interface {
	SetFPS(fps int)
	SetItems(ctx context.Context, items []timeline.Item)
	SyncItems(ctx context.Context, items []timeline.Item)
	DataForFrame(frame int) []float64
}

// Server wires handlers to their collaborators.
type Server struct {
	cfg         config.Config
	renders     RenderService
	transcriber Transcriber
	visualizer  Visualizer
	fetch       func(ctx context.Context, url string) (io.ReadCloser, error)
}

// NewServer constructs the API server. fetch retrieves media bytes for the
// transcription endpoint.
func NewServer(cfg config.Config, renders RenderService, transcriber Transcriber, visualizer Visualizer, fetch func(ctx context.Context, url string) (io.ReadCloser, error)) *Server {
	return &Server{
		cfg:         cfg,
		renders:     renders,
		transcriber: transcriber,
		visualizer:  visualizer,
		fetch:       fetch,
	}
}

// Router builds the chi router with the daemon's middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(tracingMiddleware(s.cfg.LogService))
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(chimw.Recoverer)
	if s.cfg.RateLimitRPM > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitRPM, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/render", s.handleStartRender)
		r.Get("/render", s.handleRenderProgress)
		r.Post("/transcribe", s.handleTranscribe)
		r.Post("/audio-items", s.handleSetAudioItems)
		r.Get("/audio-data", s.handleAudioData)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
