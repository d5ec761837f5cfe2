// Package loader decides which merged view of a vehicle is authoritative
// while its sources resolve at different speeds.
//
// Each resolution walks a forward-only state machine:
//
//	INIT → HAVE_CACHED (optional) → HAVE_BASE → HAVE_ENHANCED | SETTLED
//
// with DEGRADED reachable from any non-terminal state. Sources are consulted
// in a fixed order of preference (navigation state, persisted snapshot, fresh
// feed, enhancement overlay) but fetched concurrently; a completion that would
// move the state backwards is discarded. Every resolution is bounded by a
// deadline, after which it settles on what it has or reports not found.
package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/reconciler"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Sources named in updates.
const (
	SourceNav         = "nav"
	SourceSnapshot    = "snapshot"
	SourceFeed        = "feed"
	SourceEnhancement = "enhancement"
	SourceDeadline    = "deadline"
)

// Update is one state transition of a resolution.
type Update struct {
	Identity   string         `json:"identity"`
	Seq        uint64         `json:"seq"`
	State      State          `json:"state"`
	Source     string         `json:"source,omitempty"`
	View       *vehicles.View `json:"view,omitempty"`
	Stale      bool           `json:"stale,omitempty"`
	NotFound   bool           `json:"notFound,omitempty"`
	Superseded bool           `json:"superseded,omitempty"`
	At         time.Time      `json:"at"`
}

// Resolution is the outcome of a single Resolve call.
type Resolution struct {
	Identity string         `json:"identity"`
	Seq      uint64         `json:"seq"`
	State    State          `json:"state"`
	Source   string         `json:"source,omitempty"`
	View     *vehicles.View `json:"view,omitempty"`

	// Stale is set when the view comes from a cache the feed could not confirm.
	Stale bool `json:"stale,omitempty"`
	// NotFound is set when no source knows the identity.
	NotFound bool `json:"notFound,omitempty"`
	// Superseded is set when a newer resolution of the same identity took over.
	Superseded bool `json:"superseded,omitempty"`

	Transitions []State       `json:"transitions"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Controller resolves vehicles by identity.
type Controller struct {
	base      BaseSource
	enh       *enhancer.Guarded
	nav       NavState
	snapshots SnapshotStore
	merger    *reconciler.Reconciler
	deadline  time.Duration
	logger    *zerolog.Logger
	now       func() time.Time

	cursors sync.Map // identity key → *cursor
}

// cursor holds the per-identity sequence numbers.
type cursor struct {
	issued   atomic.Uint64
	accepted atomic.Uint64
}

// accept records that seq applied a completion. It fails when a newer
// sequence already did.
func (c *cursor) accept(seq uint64) bool {
	for {
		cur := c.accepted.Load()
		if seq < cur {
			return false
		}
		if seq == cur || c.accepted.CompareAndSwap(cur, seq) {
			return true
		}
	}
}

// New creates a Controller. enh may be nil, in which case every resolution
// settles on base data.
func New(base BaseSource, enh enhancer.Adapter, opts ...Option) *Controller {
	o := defaultOptions().apply(opts...)
	if base == nil {
		base = BaseFunc(func(context.Context, string) (*vehicles.Vehicle, error) {
			return nil, errors.ErrFeedUnavailable
		})
	}
	g := enhancer.Guard(enh, o.enhancementTimeout)
	if o.logger != nil {
		g.WithLogger(o.logger)
	}
	return &Controller{
		base:      base,
		enh:       g,
		nav:       o.nav,
		snapshots: o.snapshots,
		merger:    reconciler.New(o.reconcilerOpts...),
		deadline:  o.deadline,
		logger:    o.logger,
		now:       o.now,
	}
}

// Deadline returns the bound applied to every resolution.
func (c *Controller) Deadline() time.Duration {
	return c.deadline
}

// Resolve runs one resolution of id to a terminal state. A total failure is
// reported as a DEGRADED resolution with NotFound set, not as an error.
// The only errors are an invalid id and cancellation of ctx. A resolution
// overtaken by a newer one for the same identity returns its latest state
// together with an error matching errors.ErrSuperseded.
func (c *Controller) Resolve(ctx context.Context, id string) (*Resolution, error) {
	key, err := normalizeKey(id)
	if err != nil {
		return nil, err
	}
	return c.run(ctx, key, nil)
}

// Watch runs one resolution of id and streams every transition. The channel
// is closed after the terminal update. Cancel ctx to abandon it.
func (c *Controller) Watch(ctx context.Context, id string) (<-chan Update, error) {
	key, err := normalizeKey(id)
	if err != nil {
		return nil, err
	}

	ch := make(chan Update, constants.ChannelBufferSize)
	go func() {
		defer close(ch)
		_, _ = c.run(ctx, key, func(u Update) {
			select {
			case ch <- u:
			case <-ctx.Done():
			}
		})
	}()
	return ch, nil
}

func normalizeKey(id string) (string, error) {
	key := vehicles.ParseIdentity(id).Key
	if key == "" {
		return "", errors.NewValidationError("identity", id, "is required")
	}
	return key, nil
}

func (c *Controller) cursor(key string) *cursor {
	v, _ := c.cursors.LoadOrStore(key, &cursor{})
	return v.(*cursor)
}

func (c *Controller) log(ctx context.Context) *zerolog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.FromContext(ctx)
}

type eventKind int

const (
	evSnapshot eventKind = iota
	evBase
	evEnhancement
)

type event struct {
	kind eventKind
	view *vehicles.View
	base *vehicles.Vehicle
	enh  *vehicles.Enhancement
	err  error
}

func (c *Controller) run(ctx context.Context, key string, emit func(Update)) (*Resolution, error) {
	start := c.now()
	cur := c.cursor(key)
	seq := cur.issued.Add(1)

	logger := c.log(ctx).With().Str("identity", key).Uint64("seq", seq).Logger()

	rctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	m := &machine{key: key, seq: seq, state: StateInit, emit: emit, now: c.now}
	m.transitions = []State{StateInit}
	m.publish(false)

	var cached *vehicles.View
	if c.nav != nil {
		if v, ok := c.nav.Get(key); ok {
			v = v.Clone()
			cached = &v
			m.move(StateHaveCached, SourceNav, cached, true)
		}
	}

	// one slot per fetch so senders never block after we stop listening
	events := make(chan event, 3)
	pending := 2
	snapshotPending := false
	if cached == nil && c.snapshots != nil {
		pending++
		snapshotPending = true
		go func() {
			v, err := c.snapshots.Load(rctx, key)
			events <- event{kind: evSnapshot, view: v, err: err}
		}()
	}
	go func() {
		b, err := c.base.Base(rctx, key)
		events <- event{kind: evBase, base: b, err: err}
	}()
	go func() {
		e, _ := c.enh.FetchOne(rctx, vehicles.ParseIdentity(key))
		events <- event{kind: evEnhancement, enh: e}
	}()

	var (
		base    *vehicles.Vehicle
		enh     *vehicles.Enhancement
		enhDone bool
		baseErr error
	)

loop:
	for pending > 0 && !m.state.Terminal() {
		select {
		case <-rctx.Done():
			break loop
		case ev := <-events:
			pending--
			if !cur.accept(seq) {
				logger.Debug().Msg("Newer resolution in flight, discarding completion")
				m.superseded = true
				break loop
			}

			switch ev.kind {
			case evSnapshot:
				snapshotPending = false
				switch {
				case ev.err != nil:
					logger.Debug().Err(ev.err).Msg("Snapshot load failed")
				case ev.view == nil:
				case !m.move(StateHaveCached, SourceSnapshot, ev.view, true):
					logger.Debug().Str("state", m.state.String()).Msg("Discarding late snapshot")
				}

			case evBase:
				switch {
				case ev.err != nil:
					baseErr = ev.err
					logger.Warn().Err(ev.err).Msg("Feed fetch failed")
				case ev.base == nil:
					m.notFound = true
					m.move(StateDegraded, SourceFeed, nil, false)
				default:
					base = ev.base
					view := c.merger.Merge(*base, nil)
					m.move(StateHaveBase, SourceFeed, &view, false)
					if enhDone {
						c.overlay(m, *base, enh)
					}
				}

			case evEnhancement:
				enhDone = true
				enh = ev.enh
				if m.state == StateHaveBase {
					c.overlay(m, *base, enh)
				} else if enh != nil {
					logger.Debug().Msg("Holding enhancement until base arrives")
				}
			}

			// without a feed, settle as soon as the snapshot has had its say
			if baseErr != nil && !snapshotPending {
				break loop
			}
		}
	}

	if m.superseded {
		m.publish(true)
		return m.resolution(c.now().Sub(start)), fmt.Errorf("resolve %s: %w", key, errors.ErrSuperseded)
	}

	if !m.state.Terminal() {
		if err := ctx.Err(); err != nil {
			logger.Debug().Err(err).Str("state", m.state.String()).Msg("Resolution abandoned")
			return m.resolution(c.now().Sub(start)), fmt.Errorf("resolve %s: %w: %w", key, errors.ErrCanceled, err)
		}

		source := SourceDeadline
		if baseErr != nil && rctx.Err() == nil {
			source = SourceFeed
		}
		switch m.state {
		case StateHaveBase:
			// the enhancement never answered; base data is authoritative
			m.move(StateSettled, source, m.view, false)
		case StateHaveCached:
			m.move(StateSettled, source, m.view, true)
		default:
			m.notFound = true
			m.move(StateDegraded, source, nil, false)
		}
	}

	if m.state == StateDegraded {
		logger.Info().
			Bool("feed_failed", baseErr != nil).
			Dur("elapsed", c.now().Sub(start)).
			Msg("Vehicle not found")
	}

	if m.state.Settled() && !m.stale && cur.accepted.Load() <= seq {
		c.writeBack(ctx, &logger, *m.view)
	}

	return m.resolution(c.now().Sub(start)), nil
}

// overlay applies the enhancement outcome to a machine in HAVE_BASE.
func (c *Controller) overlay(m *machine, base vehicles.Vehicle, enh *vehicles.Enhancement) {
	if enh == nil {
		m.move(StateSettled, SourceEnhancement, m.view, false)
		return
	}
	view := c.merger.Merge(base, enh)
	m.move(StateHaveEnhanced, SourceEnhancement, &view, false)
}

// writeBack stores a settled fresh view in nav state and the snapshot store.
func (c *Controller) writeBack(ctx context.Context, logger *zerolog.Logger, view vehicles.View) {
	if c.nav != nil {
		c.nav.Put(view.Clone())
	}
	if c.snapshots == nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultTimeout)
	defer cancel()
	if err := c.snapshots.Save(wctx, view.Clone()); err != nil {
		logger.Warn().Err(err).Msg("Failed to save snapshot")
	}
}

// machine is the state of one resolution. It is owned by a single goroutine.
type machine struct {
	key         string
	seq         uint64
	state       State
	source      string
	view        *vehicles.View
	stale       bool
	notFound    bool
	superseded  bool
	transitions []State
	emit        func(Update)
	now         func() time.Time
}

// move performs a forward transition and publishes it. It reports false and
// changes nothing when the transition would not move forward.
func (m *machine) move(to State, source string, view *vehicles.View, stale bool) bool {
	if !canMove(m.state, to) {
		return false
	}
	m.state = to
	m.source = source
	m.view = view
	m.stale = stale
	m.transitions = append(m.transitions, to)
	m.publish(false)
	return true
}

func (m *machine) publish(superseded bool) {
	if m.emit == nil {
		return
	}
	u := Update{
		Identity:   m.key,
		Seq:        m.seq,
		State:      m.state,
		Source:     m.source,
		Stale:      m.stale,
		NotFound:   m.notFound,
		Superseded: superseded,
		At:         m.now(),
	}
	if m.view != nil {
		v := m.view.Clone()
		u.View = &v
	}
	m.emit(u)
}

func (m *machine) resolution(elapsed time.Duration) *Resolution {
	r := &Resolution{
		Identity:    m.key,
		Seq:         m.seq,
		State:       m.state,
		Source:      m.source,
		Stale:       m.stale,
		NotFound:    m.notFound,
		Superseded:  m.superseded,
		Transitions: m.transitions,
		Elapsed:     elapsed,
	}
	if m.view != nil {
		v := m.view.Clone()
		r.View = &v
	}
	return r
}
