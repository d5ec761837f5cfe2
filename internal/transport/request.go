package transport

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
)

// ReadBody reads and closes a response body. Non-2xx statuses become a
// FetchError carrying a snippet of the body. Bodies larger than limit bytes
// are rejected; a limit of 0 disables the check.
func ReadBody(resp *http.Response, source string, limit int64) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Str("feed", source).Msg("Failed to close response body")
		}
	}()

	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}

	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.WrapFetch(source, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewFetchError(source, url, resp.StatusCode, snippet(body))
	}

	if limit > 0 && int64(len(body)) > limit {
		return nil, errors.NewFetchError(source, url, resp.StatusCode,
			fmt.Sprintf("body exceeds %d bytes", limit))
	}

	return body, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "empty response"
	}
	return s
}
