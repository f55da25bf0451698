package render

import (
	"context"

	"github.com/balintmendlik/cutroom/internal/timeline"
)

// FunctionSpec describes a deployed compute function compatible with the
// current renderer version.
type FunctionSpec struct {
	FunctionName     string `json:"functionName"`
	Version          string `json:"version"`
	MemorySizeInMB   int    `json:"memorySizeInMb"`
	TimeoutInSeconds int    `json:"timeoutInSeconds"`
}

// SiteInfo describes a deployed render bundle.
type SiteInfo struct {
	ID       string `json:"id"`
	ServeURL string `json:"serveUrl"`
}

// DeployFunctionInput parameterizes a function deployment.
type DeployFunctionInput struct {
	Region           string
	Architecture     string
	MemorySizeInMB   int
	TimeoutInSeconds int
}

// DeploySiteInput parameterizes a bundle deployment.
type DeploySiteInput struct {
	Region     string
	BucketName string
	EntryPoint string
	SiteName   string
}

// Props is the typed props object handed to the rendering engine.
type Props struct {
	TrackItems        []timeline.Item     `json:"trackItems"`
	Background        timeline.Background `json:"background"`
	VideoWidth        int                 `json:"videoWidth"`
	VideoHeight       int                 `json:"videoHeight"`
	FPS               int                 `json:"fps"`
	DurationInSeconds float64             `json:"durationInSeconds"`
}

// SubmitInput is the full render submission payload.
type SubmitInput struct {
	FunctionName    string
	ServeURL        string
	Composition     string
	Props           Props
	Codec           string
	ImageFormat     string
	MaxRetries      int
	FramesPerLambda int
	Privacy         string
}

// SubmitResult is the tracking key for all subsequent polls.
type SubmitResult struct {
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
}

// RenderError is one remote error reported by the compute layer.
type RenderError struct {
	Message string `json:"message"`
}

// ProgressReport is the raw poll response from the compute layer.
type ProgressReport struct {
	Done                  bool          `json:"done"`
	OverallProgress       float64       `json:"overallProgress"`
	OutputFile            string        `json:"outputFile,omitempty"`
	FatalErrorEncountered bool          `json:"fatalErrorEncountered"`
	Status                string        `json:"status,omitempty"`
	Errors                []RenderError `json:"errors,omitempty"`
}

// Provider is the narrow contract to the compute/deploy provider. Every step
// of the bootstrap is get-or-create and therefore safe to retry.
type Provider interface {
	EnsureBucket(ctx context.Context, region string) (string, error)
	ListCompatibleFunctions(ctx context.Context, region string) ([]FunctionSpec, error)
	DeployFunction(ctx context.Context, in DeployFunctionInput) (FunctionSpec, error)
	DeploySite(ctx context.Context, in DeploySiteInput) (SiteInfo, error)
	ListSites(ctx context.Context, region, bucketName string) ([]SiteInfo, error)
	SubmitRender(ctx context.Context, in SubmitInput) (SubmitResult, error)
	PollRender(ctx context.Context, renderID, bucketName, functionName string) (ProgressReport, error)
}
