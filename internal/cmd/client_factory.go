package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/barcodeapi/barcodeapi-cli/internal/api"
	"github.com/barcodeapi/barcodeapi-cli/internal/cache"
	"github.com/barcodeapi/barcodeapi-cli/internal/config"
	"github.com/barcodeapi/barcodeapi-cli/internal/dryrun"
	"github.com/barcodeapi/barcodeapi-cli/internal/iocontext"
	"github.com/barcodeapi/barcodeapi-cli/internal/validation"
)

type clientFactory struct {
	timeout   time.Duration
	userAgent string
	transport string
	noCache   bool
	// preview is set in dry-run mode and replaces the network transport.
	preview   *dryrun.Transport
	overrides config.Overrides

	// One transport stack per command, so every worker of a fan-out shares
	// the circuit breaker and the cache store.
	once   sync.Once
	shared api.Transport
	store  cache.Store
}

func newClientFactory(ctx context.Context) *clientFactory {
	var preview *dryrun.Transport
	if dryrun.IsEnabled(ctx) {
		preview = &dryrun.Transport{Out: iocontext.GetIO(ctx).Out}
	}
	return &clientFactory{
		timeout:   flags.Timeout,
		userAgent: fmt.Sprintf("barcodeapi-cli/%s", version),
		transport: flags.Transport,
		noCache:   flags.NoCache,
		preview:   preview,
		overrides: config.Overrides{
			BaseURL: flags.BaseURL,
			Token:   flags.Token,
			Profile: flags.Profile,
		},
	}
}

// resolve merges flags, env and profile, then checks the resulting base URL.
func (f *clientFactory) resolve() (config.ClientConfig, error) {
	cfg, err := config.ResolveClientConfig(f.overrides)
	if err != nil {
		return config.ClientConfig{}, err
	}
	if cfg.BaseURL != "" {
		if err := validation.ValidateBaseURL(cfg.BaseURL); err != nil {
			return config.ClientConfig{}, fmt.Errorf("invalid --base-url %q: %w", cfg.BaseURL, err)
		}
	}
	return cfg, nil
}

// client builds a Client from the resolved configuration.
func (f *clientFactory) client() (*api.Client, error) {
	cfg, err := f.resolve()
	if err != nil {
		return nil, err
	}
	return f.newClient(cfg), nil
}

// newClient returns a Client for cfg on the factory's shared transport. The
// stack is built on first use, with the cache keyed to that call's base URL.
func (f *clientFactory) newClient(cfg config.ClientConfig) *api.Client {
	f.once.Do(func() { f.shared = f.newTransport(cfg.BaseURL) })
	client := api.New(cfg.BaseURL, cfg.Token, f.shared)
	if f.userAgent != "" {
		client.SetHeader("User-Agent", f.userAgent)
	}
	return client
}

// newTransport stacks cache, debug logging, retry and the selected HTTP adapter.
// Status checking is on so error responses become *api.APIError.
func (f *clientFactory) newTransport(baseURL string) api.Transport {
	if f.preview != nil {
		return api.WithDebugLogging(f.preview)
	}

	var base api.Transport
	switch f.transport {
	case transportResty:
		rc := resty.New()
		if f.timeout > 0 {
			rc.SetTimeout(f.timeout)
		}
		rt := api.NewRestyTransport(rc)
		rt.CheckStatus = true
		base = rt
	default:
		ht := api.NewHTTPTransport(nil)
		ht.HTTP.Timeout = f.timeout
		ht.CheckStatus = true
		base = ht
	}

	t := api.WithDebugLogging(api.WithRetry(base, api.DefaultRetryConfig()))
	if f.noCache || cache.Disabled() {
		return t
	}
	store, err := openCacheStore()
	if err != nil {
		slog.Warn("cache unavailable", "error", err)
		return t
	}
	f.store = store
	return cache.NewTransport(t, store, baseURL)
}

// Close releases the cache store, if one was opened.
func (f *clientFactory) Close() {
	if c, ok := f.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Debug("closing cache store", "error", err)
		}
	}
}

// openCacheStore returns the redis store when BARCODEAPI_REDIS_URL is set,
// else the file store in the default cache directory.
func openCacheStore() (cache.Store, error) {
	if url := strings.TrimSpace(os.Getenv("BARCODEAPI_REDIS_URL")); url != "" {
		return cache.OpenRedisStore(url, cache.DefaultTTL)
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine cache directory: %w", err)
	}
	return cache.NewFileStore(dir, cache.DefaultTTL), nil
}
