package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/balintmendlik/cutroom/internal/log"
	"github.com/balintmendlik/cutroom/internal/render"
	"github.com/balintmendlik/cutroom/internal/timeline"
	"github.com/balintmendlik/cutroom/internal/transcribe"
)

type renderOptions struct {
	SiteName        string `json:"siteName,omitempty"`
	ForceRedeploy   bool   `json:"forceRedeploy,omitempty"`
	Codec           string `json:"codec,omitempty"`
	ImageFormat     string `json:"imageFormat,omitempty"`
	MaxRetries      int    `json:"maxRetries,omitempty"`
	FramesPerLambda int    `json:"framesPerLambda,omitempty"`
	Privacy         string `json:"privacy,omitempty"`
}

type startRenderResponse struct {
	Success      bool   `json:"success"`
	RenderID     string `json:"renderId"`
	BucketName   string `json:"bucketName"`
	FunctionName string `json:"functionName"`
	SiteName     string `json:"siteName"`
}

// handleStartRender runs the full submission flow: bootstrap, plan build,
// submit. Progress is tracked by the client through handleRenderProgress.
func (s *Server) handleStartRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body unreadable")
		return
	}

	project, err := timeline.DecodeProject(body, logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(project.Items) == 0 {
		writeError(w, http.StatusBadRequest, "trackItems array is required")
		return
	}

	var opts renderOptions
	if err := json.Unmarshal(body, &opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid render options")
		return
	}

	inf, err := s.renders.Bootstrap(ctx, render.BootstrapOptions{
		SiteName: opts.SiteName,
		Force:    opts.ForceRedeploy,
	})
	if err != nil {
		logger.Error().Err(err).Str("event", "render.bootstrap_failed").Msg("infrastructure bootstrap failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// The plan build validates and orders items exactly as the offline
	// renderer will; items the plan drops are not submitted.
	plan := timeline.BuildPlan(project.Items, project.FPS, logger)
	items := make([]timeline.Item, 0, len(plan))
	for _, entry := range plan {
		items = append(items, entry.Item)
	}

	job, err := s.renders.Submit(ctx, inf, render.Props{
		TrackItems:        items,
		Background:        project.Background,
		VideoWidth:        project.VideoWidth,
		VideoHeight:       project.VideoHeight,
		FPS:               project.FPS,
		DurationInSeconds: project.DurationInSeconds,
	}, render.SubmitOptions{
		Codec:           opts.Codec,
		ImageFormat:     opts.ImageFormat,
		MaxRetries:      opts.MaxRetries,
		FramesPerLambda: opts.FramesPerLambda,
		Privacy:         opts.Privacy,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, render.ErrSubmission) {
			status = http.StatusBadRequest
		}
		logger.Error().Err(err).Str("event", "render.submit_failed").Msg("render submission failed")
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, startRenderResponse{
		Success:      true,
		RenderID:     job.RenderID,
		BucketName:   job.BucketName,
		FunctionName: job.FunctionName,
		SiteName:     inf.SiteName,
	})
}

type renderProgressResponse struct {
	Success   bool     `json:"success"`
	Status    string   `json:"status"`
	Progress  float64  `json:"progress"`
	OutputURL string   `json:"outputUrl,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// handleRenderProgress performs one poll tick for the identified job.
func (s *Server) handleRenderProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	renderID := q.Get("renderId")
	bucketName := q.Get("bucketName")
	functionName := q.Get("functionName")
	if renderID == "" || bucketName == "" || functionName == "" {
		writeError(w, http.StatusBadRequest, "renderId, bucketName, and functionName parameters are required")
		return
	}

	ctx := log.ContextWithRenderID(r.Context(), renderID)
	job := &render.Job{
		RenderID:     renderID,
		BucketName:   bucketName,
		FunctionName: functionName,
		Status:       render.StatusPending,
	}
	if err := s.renders.Poll(ctx, job); err != nil {
		logger := log.WithComponentFromContext(ctx, "api")
		logger.Error().
			Err(err).
			Str("event", "render.poll_failed").
			Msg("render progress check failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, renderProgressResponse{
		Success:   true,
		Status:    string(job.Status),
		Progress:  job.Progress,
		OutputURL: job.OutputURL,
		Errors:    job.Errors,
	})
}

type transcribeRequest struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Language string `json:"language,omitempty"`
}

type transcribeResponse struct {
	Success bool                   `json:"success"`
	Words   []timeline.CaptionWord `json:"words"`
	Items   []timeline.Item        `json:"trackItems"`
}

// handleTranscribe fetches the media, transcribes it and returns word-level
// caption timings plus ready-made caption items.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "media url is required")
		return
	}

	media, err := s.fetch(ctx, req.URL)
	if err != nil {
		logger.Error().Err(err).Str("event", "transcribe.fetch_failed").Str("src", req.URL).Msg("media fetch failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer media.Close()

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	result, err := s.transcriber.Transcribe(ctx, media, mimeType, req.Language)
	if err != nil {
		logger.Error().Err(err).Str("event", "transcribe.failed").Msg("transcription failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	words := transcribe.ToCaptionWords(result.Words, 0)
	items := transcribe.BuildCaptionItems(words, 0, uuid.NewString)
	writeJSON(w, http.StatusOK, transcribeResponse{Success: true, Words: words, Items: items})
}
