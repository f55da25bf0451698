package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/balintmendlik/cutroom/internal/metrics"
)

// Infrastructure is the resolved set of provisioned resources a render
// submission needs. Callers never construct one directly; Bootstrap does.
type Infrastructure struct {
	BucketName   string `json:"bucketName"`
	FunctionName string `json:"functionName"`
	ServeURL     string `json:"serveUrl"`
	SiteName     string `json:"siteName"`
}

type infraKey struct {
	bucket string
	site   string
}

// InfraCache stores resolved infrastructure keyed by (bucketName, siteName).
// It is constructed explicitly and injected so tests get isolated instances;
// entries are invalidated explicitly, never by TTL.
type InfraCache struct {
	mu      sync.RWMutex
	entries map[infraKey]Infrastructure
}

// NewInfraCache creates an empty cache.
func NewInfraCache() *InfraCache {
	return &InfraCache{entries: make(map[infraKey]Infrastructure)}
}

// Get returns the cached handle for (bucketName, siteName).
func (c *InfraCache) Get(bucketName, siteName string) (Infrastructure, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inf, ok := c.entries[infraKey{bucket: bucketName, site: siteName}]
	return inf, ok
}

// Find returns the cached handle for a site name when the bucket is not yet
// known, which is the state every export starts in.
func (c *InfraCache) Find(siteName string) (Infrastructure, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for key, inf := range c.entries {
		if key.site == siteName {
			return inf, true
		}
	}
	return Infrastructure{}, false
}

// Put stores a resolved handle.
func (c *InfraCache) Put(inf Infrastructure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[infraKey{bucket: inf.BucketName, site: inf.SiteName}] = inf
}

// Invalidate drops the handle for (bucketName, siteName).
func (c *InfraCache) Invalidate(bucketName, siteName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, infraKey{bucket: bucketName, site: siteName})
}

// Clear drops every cached handle.
func (c *InfraCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[infraKey]Infrastructure)
}

// BootstrapOptions controls one bootstrap run.
type BootstrapOptions struct {
	SiteName string
	// Force bypasses the cache and re-resolves every step.
	Force bool
}

const bootstrapMaxTries = 3

// Bootstrap provisions storage, compute function and deployed bundle, in that
// strict order since each later step depends on the former's output. The
// resolved handle is cached so repeated exports in the same process skip all
// three steps.
func (o *Orchestrator) Bootstrap(ctx context.Context, opts BootstrapOptions) (Infrastructure, error) {
	siteName := opts.SiteName
	if siteName == "" {
		siteName = o.cfg.SiteName
	}
	// The cache is keyed by site name; an empty name would deploy a fresh
	// auto-named site on every export without ever hitting the cache.
	if siteName == "" {
		return Infrastructure{}, fmt.Errorf("%w: site name is empty", ErrInfrastructure)
	}

	if !opts.Force {
		if inf, ok := o.cache.Find(siteName); ok {
			o.logger.Debug().
				Str("event", "bootstrap.cached").
				Str("bucket", inf.BucketName).
				Str("site", inf.SiteName).
				Msg("reusing cached infrastructure")
			metrics.IncBootstrap("cached")
			return inf, nil
		}
	}

	bucketName, err := retryStep(ctx, o.cfg.RetryInterval, func() (string, error) {
		return o.provider.EnsureBucket(ctx, o.cfg.Region)
	})
	if err != nil {
		metrics.IncBootstrap("failed")
		return Infrastructure{}, fmt.Errorf("%w: ensure bucket: %s", ErrInfrastructure, err)
	}
	o.logger.Info().
		Str("event", "bootstrap.bucket_ready").
		Str("bucket", bucketName).
		Msg("storage bucket ready")

	functionName, err := o.ensureFunction(ctx)
	if err != nil {
		metrics.IncBootstrap("failed")
		return Infrastructure{}, fmt.Errorf("%w: ensure function: %s", ErrInfrastructure, err)
	}

	site, err := o.ensureSite(ctx, bucketName, siteName, opts.Force)
	if err != nil {
		metrics.IncBootstrap("failed")
		return Infrastructure{}, fmt.Errorf("%w: ensure site: %s", ErrInfrastructure, err)
	}

	inf := Infrastructure{
		BucketName:   bucketName,
		FunctionName: functionName,
		ServeURL:     site.ServeURL,
		SiteName:     site.ID,
	}
	o.cache.Put(inf)
	metrics.IncBootstrap("resolved")
	o.logger.Info().
		Str("event", "bootstrap.ready").
		Str("bucket", inf.BucketName).
		Str("function", inf.FunctionName).
		Str("site", inf.SiteName).
		Msg("infrastructure ready")
	return inf, nil
}

// ensureFunction looks for a compatible deployed function first and deploys a
// new one only when none exists. A compatible function is never redeployed.
func (o *Orchestrator) ensureFunction(ctx context.Context) (string, error) {
	functions, err := retryStep(ctx, o.cfg.RetryInterval, func() ([]FunctionSpec, error) {
		return o.provider.ListCompatibleFunctions(ctx, o.cfg.Region)
	})
	if err != nil {
		return "", fmt.Errorf("list compatible functions: %w", err)
	}
	if len(functions) > 0 {
		o.logger.Info().
			Str("event", "bootstrap.function_reused").
			Str("function", functions[0].FunctionName).
			Msg("using existing compatible function")
		return functions[0].FunctionName, nil
	}

	fn, err := retryStep(ctx, o.cfg.RetryInterval, func() (FunctionSpec, error) {
		return o.provider.DeployFunction(ctx, DeployFunctionInput{
			Region:           o.cfg.Region,
			Architecture:     "arm64",
			MemorySizeInMB:   o.cfg.FunctionMemoryMB,
			TimeoutInSeconds: o.cfg.FunctionTimeoutSec,
		})
	})
	if err != nil {
		return "", fmt.Errorf("deploy function: %w", err)
	}
	o.logger.Info().
		Str("event", "bootstrap.function_deployed").
		Str("function", fn.FunctionName).
		Msg("compute function deployed")
	return fn.FunctionName, nil
}

// ensureSite reuses an existing site by name, enabling fast iterative exports
// without redeploying the bundle every time.
func (o *Orchestrator) ensureSite(ctx context.Context, bucketName, siteName string, force bool) (SiteInfo, error) {
	if siteName != "" && !force {
		sites, err := o.provider.ListSites(ctx, o.cfg.Region, bucketName)
		if err != nil {
			// Listing is an optimization; fall through to deploy.
			o.logger.Warn().
				Str("event", "bootstrap.site_list_failed").
				Err(err).
				Msg("could not check existing sites, deploying")
		} else {
			for _, s := range sites {
				if s.ID == siteName {
					o.logger.Info().
						Str("event", "bootstrap.site_reused").
						Str("site", s.ID).
						Msg("reusing existing site")
					return s, nil
				}
			}
		}
	}

	site, err := retryStep(ctx, o.cfg.RetryInterval, func() (SiteInfo, error) {
		return o.provider.DeploySite(ctx, DeploySiteInput{
			Region:     o.cfg.Region,
			BucketName: bucketName,
			EntryPoint: o.cfg.EntryPoint,
			SiteName:   siteName,
		})
	})
	if err != nil {
		return SiteInfo{}, fmt.Errorf("deploy site: %w", err)
	}
	o.logger.Info().
		Str("event", "bootstrap.site_deployed").
		Str("site", site.ID).
		Str("serve_url", site.ServeURL).
		Msg("render bundle deployed")
	return site, nil
}

func retryStep[T any](ctx context.Context, interval time.Duration, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	if interval > 0 {
		bo.InitialInterval = interval
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(bootstrapMaxTries))
}
