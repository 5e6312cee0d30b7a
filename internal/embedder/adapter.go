package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/rag"
)

// Adapter defaults.
const (
	DefaultBatchSize    = 64
	DefaultMaxRetries   = 3
	DefaultRetryInitial = 200 * time.Millisecond
	DefaultRetryMax     = 5 * time.Second
	DefaultTimeout      = 60 * time.Second
)

// Client is a provider that embeds a batch of texts in one call. The result
// must be parallel to texts.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Adapter implements rag.Embedder over a Client. It pages large batches,
// retries transient failures with exponential backoff, optionally limits the
// call rate and bounds every call with a timeout. A nil client makes the
// adapter permanently unconfigured. It is safe for concurrent use.
type Adapter struct {
	client       Client
	batchSize    int
	maxRetries   int
	retryInitial time.Duration
	retryMax     time.Duration
	timeout      time.Duration
	// limiter is nil when no rate limit is configured.
	limiter *rate.Limiter
}

var _ rag.Embedder = (*Adapter)(nil)

// NewAdapter wraps client using the paging, retry and timeout settings from
// cfg. Zero values fall back to the package defaults.
func NewAdapter(client Client, cfg *Config) *Adapter {
	a := &Adapter{
		client:       client,
		batchSize:    DefaultBatchSize,
		maxRetries:   DefaultMaxRetries,
		retryInitial: DefaultRetryInitial,
		retryMax:     DefaultRetryMax,
		timeout:      DefaultTimeout,
	}
	if cfg == nil {
		return a
	}
	if cfg.BatchSize > 0 {
		a.batchSize = cfg.BatchSize
	}
	if cfg.MaxRetries >= 0 {
		a.maxRetries = cfg.MaxRetries
	}
	if cfg.RetryInitial > 0 {
		a.retryInitial = cfg.RetryInitial
	}
	if cfg.RetryMax > 0 {
		a.retryMax = cfg.RetryMax
	}
	if cfg.Timeout > 0 {
		a.timeout = cfg.Timeout
	}
	if cfg.RPS > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)))
	}
	return a
}

// Configured reports whether a provider client is present.
func (a *Adapter) Configured() bool { return a.client != nil }

// Provider returns the client name, or "none" when unconfigured.
func (a *Adapter) Provider() string {
	if a.client == nil {
		return "none"
	}
	return a.client.Name()
}

// EmbedBatch embeds texts page by page. The result is parallel to texts with
// nil entries for texts whose page failed. It returns nil when the adapter
// is unconfigured or no page produced a vector.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	if a.client == nil || len(texts) == 0 {
		return nil
	}
	log := logging.FromContext(ctx)

	out := make([][]float32, len(texts))
	embedded := 0
	for start := 0; start < len(texts); start += a.batchSize {
		end := min(start+a.batchSize, len(texts))
		vecs, err := a.call(ctx, texts[start:end])
		if err != nil {
			log.Warn("embedder: page failed, chunks stored without embeddings",
				slog.String("provider", a.client.Name()),
				slog.Int("page_start", start),
				slog.Int("page_size", end-start),
				slog.Any("error", err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		for i, v := range vecs {
			if len(v) > 0 {
				out[start+i] = v
				embedded++
			}
		}
	}
	if embedded == 0 {
		return nil
	}
	return out
}

// EmbedOne embeds a single text. Every failure is reported as
// rag.ErrProviderUnavailable wrapping the cause.
func (a *Adapter) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if a.client == nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrProviderUnavailable, ErrNotConfigured)
	}
	vecs, err := a.call(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrProviderUnavailable, err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: %s returned no vector", rag.ErrProviderUnavailable, a.client.Name())
	}
	return vecs[0], nil
}

// call performs one provider call with rate limiting, a per-attempt timeout
// and bounded retries of transient failures.
func (a *Adapter) call(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	attempt := 0
	op := func() error {
		attempt++
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		vecs, err := a.client.Embed(callCtx, texts)
		if err != nil {
			if !retryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			logging.FromContext(ctx).Debug("embedder: retrying",
				slog.String("provider", a.client.Name()),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return err
		}
		out = vecs
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.retryInitial
	b.MaxInterval = a.retryMax
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(a.maxRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}
