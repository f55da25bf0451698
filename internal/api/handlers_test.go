package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balintmendlik/cutroom/internal/config"
	"github.com/balintmendlik/cutroom/internal/render"
	"github.com/balintmendlik/cutroom/internal/timeline"
	"github.com/balintmendlik/cutroom/internal/transcribe"
)

type fakeRenderService struct {
	bootstrapErr error
	submitErr    error
	pollReport   render.Job
	pollErr      error

	lastProps render.Props
	lastOpts  render.SubmitOptions
	lastBoot  render.BootstrapOptions
}

func (f *fakeRenderService) Bootstrap(_ context.Context, opts render.BootstrapOptions) (render.Infrastructure, error) {
	f.lastBoot = opts
	if f.bootstrapErr != nil {
		return render.Infrastructure{}, f.bootstrapErr
	}
	site := opts.SiteName
	if site == "" {
		site = "default-site"
	}
	return render.Infrastructure{
		BucketName:   "bucket",
		FunctionName: "fn",
		ServeURL:     "https://bucket.example.com/" + site,
		SiteName:     site,
	}, nil
}

func (f *fakeRenderService) Submit(_ context.Context, inf render.Infrastructure, props render.Props, opts render.SubmitOptions) (*render.Job, error) {
	f.lastProps = props
	f.lastOpts = opts
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &render.Job{
		RenderID:     "r-42",
		BucketName:   inf.BucketName,
		FunctionName: inf.FunctionName,
		Status:       render.StatusPending,
	}, nil
}

func (f *fakeRenderService) Poll(_ context.Context, job *render.Job) error {
	if f.pollErr != nil {
		return f.pollErr
	}
	job.Status = f.pollReport.Status
	job.Progress = f.pollReport.Progress
	job.OutputURL = f.pollReport.OutputURL
	job.Errors = f.pollReport.Errors
	return nil
}

type fakeTranscriber struct {
	result *transcribe.Result
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ io.Reader, _, _ string) (*transcribe.Result, error) {
	return f.result, f.err
}

type fakeVisualizer struct {
	fps       int
	items     []timeline.Item
	synced    []timeline.Item
	amplitude float64
}

func (f *fakeVisualizer) SetFPS(fps int) { f.fps = fps }

func (f *fakeVisualizer) SetItems(_ context.Context, items []timeline.Item) { f.items = items }

func (f *fakeVisualizer) SyncItems(_ context.Context, items []timeline.Item) { f.synced = items }

func (f *fakeVisualizer) DataForFrame(_ int) []float64 {
	out := make([]float64, 4)
	for i := range out {
		out[i] = f.amplitude
	}
	return out
}

func newTestServer(renders *fakeRenderService, tr *fakeTranscriber) *Server {
	return newTestServerWithViz(renders, tr, &fakeVisualizer{})
}

func newTestServerWithViz(renders *fakeRenderService, tr *fakeTranscriber, viz *fakeVisualizer) *Server {
	fetch := func(_ context.Context, _ string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("media")), nil
	}
	cfg := config.Defaults()
	cfg.RateLimitRPM = 0
	return NewServer(cfg, renders, tr, viz, fetch)
}

const renderBody = `{
	"trackItems": [
		{"id": "v1", "type": "video", "display": {"from": 0, "to": 5000},
		 "details": {"src": "https://cdn.example.com/v1.mp4", "width": 1920, "height": 1080}},
		{"id": "bad", "type": "video", "display": {"from": 5000, "to": 1000}, "details": {"src": "https://x", "width": 1, "height": 1}}
	],
	"fps": 30,
	"videoWidth": 1080,
	"videoHeight": 1920,
	"durationInSeconds": 5,
	"siteName": "my-site",
	"codec": "h265"
}`

func TestStartRender(t *testing.T) {
	renders := &fakeRenderService{}
	srv := newTestServer(renders, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(renderBody))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"renderId":"r-42"`)
	assert.Contains(t, rec.Body.String(), `"siteName":"my-site"`)

	// The invalid item was dropped by the plan build before submission.
	require.Len(t, renders.lastProps.TrackItems, 1)
	assert.Equal(t, "v1", renders.lastProps.TrackItems[0].ID)
	assert.Equal(t, "h265", renders.lastOpts.Codec)
	assert.Equal(t, "my-site", renders.lastBoot.SiteName)
}

func TestStartRenderRequiresItems(t *testing.T) {
	srv := newTestServer(&fakeRenderService{}, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(`{"trackItems": []}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRenderBootstrapFailure(t *testing.T) {
	renders := &fakeRenderService{
		bootstrapErr: fmt.Errorf("%w: ensure bucket: denied", render.ErrInfrastructure),
	}
	srv := newTestServer(renders, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(renderBody))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "denied")
}

func TestStartRenderSubmissionRejection(t *testing.T) {
	renders := &fakeRenderService{
		submitErr: fmt.Errorf("%w: relative source", render.ErrSubmission),
	}
	srv := newTestServer(renders, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader(renderBody))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderProgress(t *testing.T) {
	renders := &fakeRenderService{pollReport: render.Job{
		Status:    render.StatusCompleted,
		Progress:  1,
		OutputURL: "https://bucket.example.com/out.mp4",
	}}
	srv := newTestServer(renders, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/render?renderId=r-42&bucketName=b&functionName=f", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
	assert.Contains(t, rec.Body.String(), "out.mp4")
}

func TestRenderProgressRequiresParams(t *testing.T) {
	srv := newTestServer(&fakeRenderService{}, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/render?renderId=r-42", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderProgressTransportFailure(t *testing.T) {
	renders := &fakeRenderService{pollErr: fmt.Errorf("%w: reset", render.ErrTransport)}
	srv := newTestServer(renders, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/api/render?renderId=r&bucketName=b&functionName=f", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTranscribeEndpoint(t *testing.T) {
	tr := &fakeTranscriber{result: &transcribe.Result{
		Words: []transcribe.Word{
			{Word: "hello", Start: 0.1, End: 0.4},
			{Word: "world", Start: 0.5, End: 0.8},
		},
		Language: "english",
	}}
	srv := newTestServer(&fakeRenderService{}, tr)

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe",
		strings.NewReader(`{"url": "https://cdn.example.com/a.mp3", "language": "en"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"word":"hello"`)
	assert.Contains(t, rec.Body.String(), `"type":"caption"`)
}

func TestTranscribeRequiresURL(t *testing.T) {
	srv := newTestServer(&fakeRenderService{}, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscribeServiceFailure(t *testing.T) {
	srv := newTestServer(&fakeRenderService{}, &fakeTranscriber{err: errors.New("whisper down")})

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe",
		strings.NewReader(`{"url": "https://cdn.example.com/a.mp3"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "whisper down")
}

func TestSetAudioItems(t *testing.T) {
	viz := &fakeVisualizer{}
	srv := newTestServerWithViz(&fakeRenderService{}, &fakeTranscriber{}, viz)

	body := `{
		"trackItems": [
			{"id": "a1", "type": "audio", "display": {"from": 0, "to": 3000},
			 "details": {"src": "https://cdn.example.com/a1.mp3"}}
		],
		"fps": 24
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/audio-items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 24, viz.fps)
	require.Len(t, viz.items, 1)
	assert.Equal(t, "a1", viz.items[0].ID)
	assert.Empty(t, viz.synced)
}

func TestSetAudioItemsSyncMode(t *testing.T) {
	viz := &fakeVisualizer{}
	srv := newTestServerWithViz(&fakeRenderService{}, &fakeTranscriber{}, viz)

	body := `{
		"trackItems": [
			{"id": "a1", "type": "audio", "display": {"from": 0, "to": 3000},
			 "details": {"src": "https://cdn.example.com/a1.mp3"}}
		],
		"sync": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/audio-items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, viz.items)
	require.Len(t, viz.synced, 1)
}

func TestAudioData(t *testing.T) {
	viz := &fakeVisualizer{amplitude: 0.5}
	srv := newTestServerWithViz(&fakeRenderService{}, &fakeTranscriber{}, viz)

	req := httptest.NewRequest(http.MethodGet, "/api/audio-data?frame=42", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"frame":42`)
	assert.Contains(t, rec.Body.String(), `"data":[0.5,0.5,0.5,0.5]`)
}

func TestAudioDataRejectsBadFrame(t *testing.T) {
	srv := newTestServer(&fakeRenderService{}, &fakeTranscriber{})

	for _, q := range []string{"", "frame=abc", "frame=-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/audio-data?"+q, nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeRenderService{}, &fakeTranscriber{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
