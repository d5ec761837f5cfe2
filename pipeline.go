package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/identity"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// pipeline fetches, parses and normalizes every feed concurrently, then
// resolves the records of all feeds as one batch in configured feed order.
// A later feed therefore wins when two feeds list the same VIN.
type pipeline struct {
	sources  []*source
	resolver *identity.Resolver
}

func (p *pipeline) names() []string {
	names := make([]string, 0, len(p.sources))
	for _, s := range p.sources {
		names = append(names, s.name)
	}
	return names
}

// run performs one full pass. Any feed failure fails the pass, so a
// partial fetch never replaces the whole base set.
func (p *pipeline) run(ctx context.Context) (*identity.Result, []FeedReport, error) {
	if len(p.sources) == 0 {
		return nil, nil, errors.NewConfigError("feeds", "no feeds configured", nil)
	}

	batch := identity.NewBatch(strings.Join(p.names(), ","))
	ctx = logging.WithBatch(ctx, batch.ID)

	records := make([][]vehicles.Vehicle, len(p.sources))
	reports := make([]FeedReport, len(p.sources))

	var (
		mu     sync.Mutex
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.MaxConcurrentFeeds)
	for i, src := range p.sources {
		g.Go(func() error {
			recs, report, err := src.load(logging.WithFeed(gctx, src.name))
			if err != nil {
				mu.Lock()
				failed = append(failed, src.name)
				mu.Unlock()
				return err
			}
			records[i] = recs
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		sort.Strings(failed)
		return nil, nil, errors.NewIngestError(failed, err)
	}

	var all []vehicles.Vehicle
	for _, recs := range records {
		all = append(all, recs...)
	}

	return p.resolver.Resolve(all, batch), reports, nil
}

// lookup runs a fresh pass and returns the record for id, or nil when the
// feeds no longer list it. Stock numbers are matched case-insensitively
// since callers pass keys normalized as VINs.
func (p *pipeline) lookup(ctx context.Context, id string) (*vehicles.Vehicle, error) {
	res, _, err := p.run(ctx)
	if err != nil {
		return nil, err
	}
	if v, ok := res.Index()[id]; ok {
		return &v, nil
	}
	for _, v := range res.Vehicles {
		if v.Identity.Kind == vehicles.IdentityStock && strings.EqualFold(v.Identity.Key, id) {
			return &v, nil
		}
	}
	return nil, nil
}
