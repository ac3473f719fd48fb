package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
)

// fetcher retrieves single pages through colly with a bounded retry budget
// and a fixed inter-attempt delay. Each call builds a fresh collector, so
// concurrent fetches for different titles never share state.
type fetcher struct {
	config Config
}

func newFetcher(config Config) *fetcher {
	return &fetcher{config: config.withDefaults()}
}

// get fetches url and returns the response body. It retries transport
// failures up to the configured attempt budget, sleeping the configured
// delay between attempts. Context cancellation aborts immediately.
func (f *fetcher) get(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		slog.Debug("fetch attempt failed",
			"url", url, "attempt", attempt, "error", err)

		if attempt < f.config.MaxRetries {
			select {
			case <-time.After(f.config.Delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("fetch %s: retry budget exhausted: %w", url, lastErr)
}

func (f *fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(f.config.Timeout)

	var body string
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			fetchErr = ctx.Err()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 400 {
			fetchErr = fmt.Errorf("HTTP %d", r.StatusCode)
			return
		}
		body = string(r.Body)
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("HTTP %d: %w", r.StatusCode, err)
		} else {
			fetchErr = err
		}
	})

	if err := c.Visit(url); err != nil {
		return "", err
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if body == "" {
		return "", fmt.Errorf("empty response from %s", url)
	}
	return body, nil
}
