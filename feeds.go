package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/matt653/high-life-auto-sub000/internal/transport"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/feed"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/schema"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Feed describes one configured inventory source. Exactly one of URL, Path
// or Fetcher supplies the bytes.
type Feed struct {
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	URL  string `mapstructure:"url" yaml:"url,omitempty" json:"url,omitempty"`
	Path string `mapstructure:"path" yaml:"path,omitempty" json:"path,omitempty"`

	// Mode is "line" (default) or "rfc" for feeds with quoted newlines.
	Mode string `mapstructure:"mode" yaml:"mode,omitempty" json:"mode,omitempty"`

	// Headers is the path to a header table file. Empty uses the default table.
	Headers string `mapstructure:"headers" yaml:"headers,omitempty" json:"headers,omitempty"`

	APIKey  string               `mapstructure:"api_key" yaml:"-" json:"-"`
	Auth    transport.AuthConfig `mapstructure:"auth" yaml:"auth,omitempty" json:"-"`
	Timeout time.Duration        `mapstructure:"timeout" yaml:"timeout,omitempty" json:"-"`

	// Table overrides Headers when set.
	Table *schema.Table `mapstructure:"-" yaml:"-" json:"-"`
	// Fetcher overrides URL and Path when set.
	Fetcher feed.Fetcher `mapstructure:"-" yaml:"-" json:"-"`
}

// FeedReport summarizes one feed within an ingestion.
type FeedReport struct {
	Name      string    `json:"name"`
	Mode      feed.Mode `json:"mode"`
	Bytes     int       `json:"bytes"`
	Rows      int       `json:"rows"`
	Malformed int       `json:"malformed"`
	Records   int       `json:"records"`
}

// source is a Feed compiled into its fetcher and normalizer.
type source struct {
	name       string
	mode       feed.Mode
	fetcher    feed.Fetcher
	normalizer *schema.Normalizer
}

func compileFeeds(feeds []Feed, client *transport.Client) ([]*source, error) {
	seen := make(map[string]bool, len(feeds))
	sources := make([]*source, 0, len(feeds))
	for i, f := range feeds {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, errors.NewConfigError("feeds", "feed name is required", errors.NewValidationError("name", i, "is empty"))
		}
		if seen[name] {
			return nil, errors.NewConfigError("feeds", "duplicate feed name "+name, nil)
		}
		seen[name] = true

		src, err := compileFeed(name, f, client)
		if err != nil {
			return nil, errors.NewConfigError("feeds", "invalid feed "+name, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func compileFeed(name string, f Feed, client *transport.Client) (*source, error) {
	mode, err := feed.ParseMode(f.Mode)
	if err != nil {
		return nil, err
	}

	table := schema.DefaultTable()
	switch {
	case f.Table != nil:
		table = f.Table.Clone()
	case f.Headers != "":
		if table, err = schema.LoadTable(f.Headers); err != nil {
			return nil, err
		}
	}

	var fetcher feed.Fetcher
	switch {
	case f.Fetcher != nil:
		fetcher = f.Fetcher
	case f.URL != "":
		c := client
		if c == nil || f.APIKey != "" {
			c = transport.New(transport.AuthenticatorFor(f.Auth), f.APIKey)
		}
		if f.Timeout > 0 {
			c = c.WithTimeout(f.Timeout)
		}
		fetcher = feed.NewHTTPFetcher(name, f.URL, c)
	case f.Path != "":
		fetcher = feed.FileFetcher{Path: f.Path}
	default:
		return nil, errors.NewValidationError("url", "", "one of url or path is required")
	}

	return &source{
		name:       name,
		mode:       mode,
		fetcher:    fetcher,
		normalizer: schema.NewNormalizer(table),
	}, nil
}

// load fetches, parses and normalizes one feed.
func (s *source) load(ctx context.Context) ([]vehicles.Vehicle, FeedReport, error) {
	logger := logging.FromContext(ctx).With().Str("feed", s.name).Logger()

	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Feed fetch failed")
		return nil, FeedReport{}, err
	}

	table, err := feed.Parse(string(data), feed.WithMode(s.mode), feed.WithName(s.name))
	if err != nil {
		return nil, FeedReport{}, errors.WrapParse("csv", s.name, err)
	}

	records := s.normalizer.NormalizeTable(table)
	for i := range records {
		records[i].Feed = s.name
	}

	report := FeedReport{
		Name:      s.name,
		Mode:      table.Mode,
		Bytes:     len(data),
		Rows:      table.Len(),
		Malformed: table.Malformed,
		Records:   len(records),
	}
	logger.Debug().
		Int("bytes", report.Bytes).
		Int("rows", report.Rows).
		Int("malformed", report.Malformed).
		Msg("Feed parsed")

	return records, report, nil
}
