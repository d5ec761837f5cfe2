package feed

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matt653/high-life-auto-sub000/internal/transport"
	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
)

// Fetcher retrieves the raw bytes of one feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPFetcher downloads a feed over HTTP. Concurrent callers share a
// single in-flight request.
type HTTPFetcher struct {
	Name   string
	URL    string
	client *transport.Client
	group  singleflight.Group
}

// NewHTTPFetcher creates an HTTP fetcher. A nil client uses an
// unauthenticated client with the default timeout.
func NewHTTPFetcher(name, url string, client *transport.Client) *HTTPFetcher {
	if client == nil {
		client = transport.New(nil, "")
	}
	return &HTTPFetcher{
		Name:   name,
		URL:    url,
		client: client,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	ch := f.group.DoChan(f.URL, func() (any, error) {
		// detached so one caller's cancellation does not fail the others;
		// the client timeout still bounds the request
		return f.download(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, errors.WrapFetch(f.Name, f.URL, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *HTTPFetcher) download(ctx context.Context) ([]byte, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)

	resp, err := f.client.Get(ctx, f.URL)
	if err != nil {
		return nil, errors.WrapFetch(f.Name, f.URL, err)
	}

	body, err := transport.ReadBody(resp, f.Name, constants.MaxFeedBytes)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("feed", f.Name).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Feed downloaded")

	return body, nil
}

// FileFetcher reads a feed from the local filesystem.
type FileFetcher struct {
	Path string
}

// Fetch implements Fetcher.
func (f FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.FetchError{
				Source:     f.Path,
				URL:        f.Path,
				StatusCode: 404,
				Message:    "file does not exist",
				Err:        err,
			}
		}
		return nil, errors.WrapFetch(f.Path, f.Path, err)
	}
	return data, nil
}

// StaticFetcher serves fixed bytes. Useful for tests and stdin.
type StaticFetcher []byte

// Fetch implements Fetcher.
func (s StaticFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]byte, error)

// Fetch implements Fetcher.
func (fn FetcherFunc) Fetch(ctx context.Context) ([]byte, error) {
	return fn(ctx)
}
