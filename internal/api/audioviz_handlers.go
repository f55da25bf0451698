package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/balintmendlik/cutroom/internal/log"
	"github.com/balintmendlik/cutroom/internal/timeline"
)

type audioItemsRequest struct {
	TrackItems []timeline.Item `json:"trackItems"`
	FPS        int             `json:"fps,omitempty"`
	// Sync updates tracked items in place instead of replacing the set,
	// preserving decoded audio for unchanged sources.
	Sync bool `json:"sync,omitempty"`
}

// handleSetAudioItems feeds the visualization manager the current timeline.
// The editor calls this on every timeline mutation; decodes for new sources
// start in the background and are never awaited here.
func (s *Server) handleSetAudioItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "api")

	var req audioItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FPS > 0 {
		s.visualizer.SetFPS(req.FPS)
	}
	if req.Sync {
		s.visualizer.SyncItems(ctx, req.TrackItems)
	} else {
		s.visualizer.SetItems(ctx, req.TrackItems)
	}

	logger.Debug().
		Str("event", "audioviz.items_updated").
		Int("items", len(req.TrackItems)).
		Bool("sync", req.Sync).
		Msg("audio visualization items updated")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type audioDataResponse struct {
	Success bool      `json:"success"`
	Frame   int       `json:"frame"`
	Data    []float64 `json:"data"`
}

// handleAudioData serves one combined visualization vector.
func (s *Server) handleAudioData(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("frame")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "frame parameter is required")
		return
	}
	frame, err := strconv.Atoi(raw)
	if err != nil || frame < 0 {
		writeError(w, http.StatusBadRequest, "frame must be a non-negative integer")
		return
	}

	writeJSON(w, http.StatusOK, audioDataResponse{
		Success: true,
		Frame:   frame,
		Data:    s.visualizer.DataForFrame(frame),
	})
}
