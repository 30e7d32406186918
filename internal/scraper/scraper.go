// Package scraper implements Smart Import: reading price, size and cost
// details from Redfin and Realtor.com listing pages.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("investment-calculator/scraper")

const cacheSize = 512

type Options struct {
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	// InitialInterval is the first backoff delay; it grows exponentially.
	InitialInterval time.Duration
	CacheTTL        time.Duration
}

type Scraper struct {
	fetcher Fetcher
	cache   *expirable.LRU[string, Listing]
	opts    Options
}

func New(fetcher Fetcher, opts Options) *Scraper {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Scraper{
		fetcher: fetcher,
		cache:   expirable.NewLRU[string, Listing](cacheSize, nil, opts.CacheTTL),
		opts:    opts,
	}
}

// Scrape loads and parses a listing. Navigation failures are retried with
// exponential backoff; unsupported sites, client errors and pages missing
// required fields fail immediately.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (Listing, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("listing.url", rawURL))

	site, err := DetectSite(rawURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Listing{}, err
	}
	span.SetAttributes(attribute.String("listing.site", string(site)))

	key := cacheKey(rawURL)
	if l, ok := s.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return l, nil
	}

	var (
		listing  Listing
		attempts int
	)
	op := func() error {
		attempts++
		fetchCtx, fetchSpan := tracer.Start(ctx, "Fetch")
		fetchSpan.SetAttributes(attribute.Int("scrape.attempt", attempts))
		html, err := s.fetcher.Fetch(fetchCtx, rawURL)
		if err != nil {
			fetchSpan.RecordError(err)
		}
		fetchSpan.End()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			err = fmt.Errorf("%w: %w", ErrNavigation, err)
			var status *StatusError
			if errors.As(err, &status) && !status.Temporary() {
				return backoff.Permanent(err)
			}
			return err
		}
		l, err := Extract(site, rawURL, html)
		if err != nil {
			return backoff.Permanent(err)
		}
		listing = l
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.opts.InitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.opts.Retries)), ctx)

	err = backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		slog.WarnContext(ctx, "listing fetch failed, retrying", "url", rawURL, "wait", wait, "err", err)
	})
	span.SetAttributes(attribute.Int("scrape.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		return Listing{}, err
	}

	s.cache.Add(key, listing)
	return listing, nil
}

// cacheKey ignores query strings and fragments, which listing sites use for
// tracking only.
func cacheKey(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Host) + strings.TrimSuffix(u.Path, "/")
}
