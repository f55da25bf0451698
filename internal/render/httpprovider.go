package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPProvider talks to the render control plane over HTTP. Every method maps
// to one endpoint of the compute service; get-or-create semantics live on the
// remote side.
type HTTPProvider struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewHTTPProvider creates a provider for the given control-plane base URL.
func NewHTTPProvider(base, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.base+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	res, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func (p *HTTPProvider) EnsureBucket(ctx context.Context, region string) (string, error) {
	var out struct {
		BucketName string `json:"bucketName"`
	}
	in := map[string]string{"region": region}
	if err := p.do(ctx, http.MethodPost, "/v1/buckets", in, &out); err != nil {
		return "", err
	}
	return out.BucketName, nil
}

func (p *HTTPProvider) ListCompatibleFunctions(ctx context.Context, region string) ([]FunctionSpec, error) {
	var out struct {
		Functions []FunctionSpec `json:"functions"`
	}
	path := "/v1/functions?region=" + url.QueryEscape(region) + "&compatibleOnly=true"
	if err := p.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Functions, nil
}

func (p *HTTPProvider) DeployFunction(ctx context.Context, in DeployFunctionInput) (FunctionSpec, error) {
	var out FunctionSpec
	body := map[string]any{
		"region":           in.Region,
		"architecture":     in.Architecture,
		"memorySizeInMb":   in.MemorySizeInMB,
		"timeoutInSeconds": in.TimeoutInSeconds,
	}
	if err := p.do(ctx, http.MethodPost, "/v1/functions", body, &out); err != nil {
		return FunctionSpec{}, err
	}
	return out, nil
}

func (p *HTTPProvider) DeploySite(ctx context.Context, in DeploySiteInput) (SiteInfo, error) {
	var out SiteInfo
	body := map[string]any{
		"region":     in.Region,
		"bucketName": in.BucketName,
		"entryPoint": in.EntryPoint,
		"siteName":   in.SiteName,
	}
	if err := p.do(ctx, http.MethodPost, "/v1/sites", body, &out); err != nil {
		return SiteInfo{}, err
	}
	return out, nil
}

func (p *HTTPProvider) ListSites(ctx context.Context, region, bucketName string) ([]SiteInfo, error) {
	var out struct {
		Sites []SiteInfo `json:"sites"`
	}
	path := "/v1/sites?region=" + url.QueryEscape(region) + "&bucketName=" + url.QueryEscape(bucketName)
	if err := p.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Sites, nil
}

func (p *HTTPProvider) SubmitRender(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	var out SubmitResult
	body := map[string]any{
		"functionName":    in.FunctionName,
		"serveUrl":        in.ServeURL,
		"composition":     in.Composition,
		"inputProps":      in.Props,
		"codec":           in.Codec,
		"imageFormat":     in.ImageFormat,
		"maxRetries":      in.MaxRetries,
		"framesPerLambda": in.FramesPerLambda,
		"privacy":         in.Privacy,
	}
	if err := p.do(ctx, http.MethodPost, "/v1/renders", body, &out); err != nil {
		return SubmitResult{}, err
	}
	return out, nil
}

func (p *HTTPProvider) PollRender(ctx context.Context, renderID, bucketName, functionName string) (ProgressReport, error) {
	var out ProgressReport
	path := "/v1/renders/" + url.PathEscape(renderID) +
		"?bucketName=" + url.QueryEscape(bucketName) +
		"&functionName=" + url.QueryEscape(functionName)
	if err := p.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ProgressReport{}, err
	}
	return out, nil
}
