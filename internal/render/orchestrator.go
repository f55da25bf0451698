// Package render orchestrates remote video renders: idempotent infrastructure
// bootstrap, job submission and a polled state machine until terminal state.
package render

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/balintmendlik/cutroom/internal/metrics"
	"github.com/balintmendlik/cutroom/internal/timeline"
)

// Status is the lifecycle state of a render job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further polling occurs.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one submitted render. It is created on submission and mutated
// only by the polling loop.
type Job struct {
	RenderID     string   `json:"renderId"`
	BucketName   string   `json:"bucketName"`
	FunctionName string   `json:"functionName"`
	Status       Status   `json:"status"`
	Progress     float64  `json:"progress"`
	OutputURL    string   `json:"outputUrl,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Config holds the orchestrator's provider-facing settings.
type Config struct {
	Region             string
	SiteName           string
	EntryPoint         string
	FunctionMemoryMB   int
	FunctionTimeoutSec int
	PollInterval       time.Duration
	// RetryInterval seeds the bootstrap retry backoff; zero keeps the
	// library default.
	RetryInterval time.Duration
}

// Orchestrator coordinates bootstrap, submission and polling against a
// Provider. One orchestrator run tracks a single job.
type Orchestrator struct {
	provider Provider
	cache    *InfraCache
	cfg      Config
	logger   zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New constructs an Orchestrator. The cache is injected so repeated exports
// share resolved infrastructure and tests stay isolated.
func New(provider Provider, cache *InfraCache, cfg Config, logger zerolog.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2500 * time.Millisecond
	}
	return &Orchestrator{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SubmitOptions shape a render submission. Zero values take the documented
// defaults.
type SubmitOptions struct {
	Composition     string
	Codec           string
	ImageFormat     string
	MaxRetries      int
	FramesPerLambda int
	Privacy         string
}

const defaultComposition = "VideoWithCaptions"

func (s SubmitOptions) withDefaults() SubmitOptions {
	if s.Composition == "" {
		s.Composition = defaultComposition
	}
	if s.Codec == "" {
		s.Codec = "h264"
	}
	if s.ImageFormat == "" {
		s.ImageFormat = "jpeg"
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 1
	}
	if s.FramesPerLambda <= 0 {
		s.FramesPerLambda = 20
	}
	if s.Privacy == "" {
		s.Privacy = "public"
	}
	return s
}

// Submit sends a render to the compute function. The compute layer cannot
// reach a caller's local filesystem, so every item source must already be a
// fully qualified URL; the caller resolves local media through the storage
// collaborator first.
func (o *Orchestrator) Submit(ctx context.Context, inf Infrastructure, props Props, opts SubmitOptions) (*Job, error) {
	if err := validateSources(props.TrackItems); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmission, err)
	}
	opts = opts.withDefaults()

	result, err := o.provider.SubmitRender(ctx, SubmitInput{
		FunctionName:    inf.FunctionName,
		ServeURL:        inf.ServeURL,
		Composition:     opts.Composition,
		Props:           props,
		Codec:           opts.Codec,
		ImageFormat:     opts.ImageFormat,
		MaxRetries:      opts.MaxRetries,
		FramesPerLambda: opts.FramesPerLambda,
		Privacy:         opts.Privacy,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmission, err)
	}

	metrics.IncRenderStarted()
	o.logger.Info().
		Str("event", "render.submitted").
		Str("render_id", result.RenderID).
		Str("bucket", result.BucketName).
		Str("codec", opts.Codec).
		Int("items", len(props.TrackItems)).
		Msg("render submitted")

	return &Job{
		RenderID:     result.RenderID,
		BucketName:   result.BucketName,
		FunctionName: inf.FunctionName,
		Status:       StatusPending,
	}, nil
}

func validateSources(items []timeline.Item) error {
	for _, it := range items {
		src := it.Source()
		if src == "" {
			continue
		}
		u, err := url.Parse(src)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("item %s source %q is not a fully qualified URL", it.ID, src)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("item %s source %q uses unsupported scheme %q", it.ID, src, u.Scheme)
		}
	}
	return nil
}

// Poll performs one status round trip and advances the job. Unrecognized
// remote statuses are treated as non-terminal so newer provider versions do
// not wedge the loop.
func (o *Orchestrator) Poll(ctx context.Context, job *Job) error {
	report, err := o.provider.PollRender(ctx, job.RenderID, job.BucketName, job.FunctionName)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransport, err)
	}
	metrics.IncPollTick()

	job.Progress = report.OverallProgress

	switch {
	case report.Done:
		job.Status = StatusCompleted
		job.Progress = 1
		job.OutputURL = report.OutputFile
		metrics.IncRenderFinished("completed")
		o.logger.Info().
			Str("event", "render.completed").
			Str("render_id", job.RenderID).
			Str("output", job.OutputURL).
			Msg("render completed")
	case report.FatalErrorEncountered || strings.EqualFold(report.Status, "failed"):
		job.Status = StatusFailed
		job.Errors = joinErrors(report.Errors)
		metrics.IncRenderFinished("failed")
		o.logger.Error().
			Str("event", "render.failed").
			Str("render_id", job.RenderID).
			Strs("errors", job.Errors).
			Msg("render failed")
	default:
		job.Status = StatusProcessing
	}
	return nil
}

func joinErrors(errs []RenderError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			out = append(out, e.Message)
		}
	}
	return out
}

// Wait polls the job at the configured fixed interval until a terminal state.
// Ticks are strictly sequential; a new poll is scheduled only after the
// previous one resolved. onProgress, if set, observes every tick including
// non-terminal ones. Cancelling ctx short-circuits the next scheduled tick.
func (o *Orchestrator) Wait(ctx context.Context, job *Job, onProgress func(Job)) error {
	for {
		if err := o.Poll(ctx, job); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(*job)
		}
		if job.Status.Terminal() {
			break
		}
		if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
			return err
		}
	}
	if job.Status == StatusFailed {
		return fmt.Errorf("%w: %s", ErrRemoteRender, strings.Join(job.Errors, "; "))
	}
	return nil
}
