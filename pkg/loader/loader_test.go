package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/logging"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

const testKey = "1G1JC12345"

func testVehicle(price float64) vehicles.Vehicle {
	return vehicles.Vehicle{
		Identity: vehicles.VINIdentity(testKey),
		VIN:      testKey,
		Year:     2016,
		Make:     "Chevrolet",
		Model:    "Malibu",
		Price:    price,
		Mileage:  84210,
	}
}

type memNav struct {
	mu    sync.Mutex
	views map[string]vehicles.View
	puts  int
}

func newMemNav(views ...vehicles.View) *memNav {
	n := &memNav{views: make(map[string]vehicles.View)}
	for _, v := range views {
		n.views[v.Identity.Key] = v
	}
	return n
}

func (n *memNav) Get(id string) (vehicles.View, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.views[id]
	return v, ok
}

func (n *memNav) Put(v vehicles.View) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.puts++
	n.views[v.Identity.Key] = v
}

func (n *memNav) putCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.puts
}

type memSnapshots struct {
	mu     sync.Mutex
	views  map[string]vehicles.View
	saves  int
	loadFn func(ctx context.Context) error
}

func newMemSnapshots(views ...vehicles.View) *memSnapshots {
	s := &memSnapshots{views: make(map[string]vehicles.View)}
	for _, v := range views {
		s.views[v.Identity.Key] = v
	}
	return s
}

func (s *memSnapshots) Load(ctx context.Context, id string) (*vehicles.View, error) {
	if s.loadFn != nil {
		if err := s.loadFn(ctx); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *memSnapshots) Save(_ context.Context, v vehicles.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.views[v.Identity.Key] = v
	return nil
}

func (s *memSnapshots) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func staticBase(v vehicles.Vehicle) BaseSource {
	return IndexSource{v.Identity.Key: v}
}

func failingBase(err error) BaseSource {
	return BaseFunc(func(context.Context, string) (*vehicles.Vehicle, error) {
		return nil, err
	})
}

func blockingBase() BaseSource {
	return BaseFunc(func(ctx context.Context, _ string) (*vehicles.Vehicle, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

func TestAbsentEnhancementSettlesFromBase(t *testing.T) {
	nav := newMemNav()
	snaps := newMemSnapshots()
	c := New(staticBase(testVehicle(5900)), enhancer.Nop(), WithNavState(nav), WithSnapshots(snaps))

	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateSettled, res.State)
	assert.Equal(t, []State{StateInit, StateHaveBase, StateSettled}, res.Transitions)
	assert.False(t, res.Stale)
	assert.False(t, res.NotFound)
	require.NotNil(t, res.View)
	assert.Equal(t, 5900.0, res.View.Price)
	assert.False(t, res.View.Enhanced)

	// settled fresh views are written back
	assert.Equal(t, 1, nav.putCount())
	assert.Equal(t, 1, snaps.saveCount())
}

func TestEnhancementOverlay(t *testing.T) {
	store := enhancer.NewMemory(&vehicles.Enhancement{
		Identity:    vehicles.VINIdentity(testKey),
		Description: "Clean sedan",
		Overrides: vehicles.Overrides{
			Price:   vehicles.Ptr(9999.0),
			Mileage: vehicles.Ptr(84000),
		},
	})
	c := New(staticBase(testVehicle(5900)), store)

	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateHaveEnhanced, res.State)
	assert.True(t, res.State.Settled())
	assert.Equal(t, []State{StateInit, StateHaveBase, StateHaveEnhanced}, res.Transitions)
	assert.Equal(t, SourceEnhancement, res.Source)
	assert.Equal(t, 5900.0, res.View.Price)
	assert.Equal(t, 84000, res.View.Mileage)
	assert.Equal(t, "Clean sedan", res.View.Description)
}

func TestEnhancementArrivingFirstIsHeld(t *testing.T) {
	enhReturned := make(chan struct{})
	enh := enhancer.Funcs{
		One: func(_ context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
			defer close(enhReturned)
			return &vehicles.Enhancement{Identity: id, Description: "early"}, nil
		},
	}
	base := BaseFunc(func(ctx context.Context, id string) (*vehicles.Vehicle, error) {
		<-enhReturned
		time.Sleep(20 * time.Millisecond)
		v := testVehicle(5900)
		return &v, nil
	})

	res, err := New(base, enh).Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, []State{StateInit, StateHaveBase, StateHaveEnhanced}, res.Transitions)
	assert.Equal(t, "early", res.View.Description)
}

func TestCachedViewIsReplacedWholesale(t *testing.T) {
	cachedBase := testVehicle(4500)
	cachedBase.Trim = "LS"
	cached := vehicles.FromVehicle(cachedBase)
	cached.Description = "from an old enhancement"

	nav := newMemNav(cached)
	c := New(staticBase(testVehicle(5900)), enhancer.Nop(), WithNavState(nav))

	updates, err := c.Watch(context.Background(), testKey)
	require.NoError(t, err)

	var got []Update
	for u := range updates {
		got = append(got, u)
	}

	require.Len(t, got, 4)
	assert.Equal(t, StateInit, got[0].State)

	assert.Equal(t, StateHaveCached, got[1].State)
	assert.Equal(t, SourceNav, got[1].Source)
	assert.True(t, got[1].Stale)
	assert.Equal(t, 4500.0, got[1].View.Price)

	assert.Equal(t, StateHaveBase, got[2].State)
	assert.False(t, got[2].Stale)
	assert.Equal(t, 5900.0, got[2].View.Price)
	assert.Empty(t, got[2].View.Trim)
	assert.Empty(t, got[2].View.Description)

	assert.Equal(t, StateSettled, got[3].State)
	for _, u := range got {
		assert.Equal(t, uint64(1), u.Seq)
	}
}

func TestSnapshotSurfacesAsCached(t *testing.T) {
	snaps := newMemSnapshots(vehicles.FromVehicle(testVehicle(4500)))
	gate := make(chan struct{})
	snaps.loadFn = func(context.Context) error {
		defer close(gate)
		return nil
	}
	base := BaseFunc(func(ctx context.Context, _ string) (*vehicles.Vehicle, error) {
		<-gate
		time.Sleep(20 * time.Millisecond)
		v := testVehicle(5900)
		return &v, nil
	})

	res, err := New(base, enhancer.Nop(), WithSnapshots(snaps)).Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, []State{StateInit, StateHaveCached, StateHaveBase, StateSettled}, res.Transitions)
	assert.Equal(t, 5900.0, res.View.Price)
	assert.Equal(t, 1, snaps.saveCount())
}

func TestLateSnapshotIsDiscarded(t *testing.T) {
	baseCalled := make(chan struct{})
	snapReturned := make(chan struct{})

	snaps := newMemSnapshots(vehicles.FromVehicle(testVehicle(4500)))
	snaps.loadFn = func(context.Context) error {
		<-baseCalled
		time.Sleep(20 * time.Millisecond)
		close(snapReturned)
		return nil
	}
	base := BaseFunc(func(context.Context, string) (*vehicles.Vehicle, error) {
		defer close(baseCalled)
		v := testVehicle(5900)
		return &v, nil
	})
	enh := enhancer.Funcs{
		One: func(_ context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
			<-snapReturned
			time.Sleep(20 * time.Millisecond)
			return &vehicles.Enhancement{Identity: id, Description: "late"}, nil
		},
	}

	tl := logging.NewTestLogger(t)
	res, err := New(base, enh, WithSnapshots(snaps), WithLogger(tl.Logger)).Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, []State{StateInit, StateHaveBase, StateHaveEnhanced}, res.Transitions)
	assert.Equal(t, 5900.0, res.View.Price)
	tl.AssertContains(t, "Discarding late snapshot")
}

func TestIdentityMissingFromFeedIsNotFound(t *testing.T) {
	nav := newMemNav(vehicles.FromVehicle(testVehicle(4500)))
	c := New(IndexSource{}, enhancer.Nop(), WithNavState(nav))

	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, res.State)
	assert.True(t, res.NotFound)
	assert.Nil(t, res.View)
	assert.Equal(t, []State{StateInit, StateHaveCached, StateDegraded}, res.Transitions)
	assert.Equal(t, 0, nav.putCount())
}

func TestFeedFailureFallsBackToStaleCache(t *testing.T) {
	snaps := newMemSnapshots(vehicles.FromVehicle(testVehicle(4500)))
	c := New(failingBase(errors.NewFetchError("main", "http://feed", 503, "down")), enhancer.Nop(), WithSnapshots(snaps))

	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateSettled, res.State)
	assert.True(t, res.Stale)
	assert.Equal(t, SourceFeed, res.Source)
	assert.Equal(t, 4500.0, res.View.Price)
	assert.Equal(t, 0, snaps.saveCount(), "stale views are not written back")
}

func TestFeedFailureWithoutCacheDegradesImmediately(t *testing.T) {
	c := New(failingBase(errors.ErrFeedUnavailable), enhancer.Nop(), WithDeadline(5*time.Second))

	start := time.Now()
	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, res.State)
	assert.True(t, res.NotFound)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDeadlineWithNoSourcesDegrades(t *testing.T) {
	c := New(blockingBase(), enhancer.Nop(), WithDeadline(50*time.Millisecond))

	start := time.Now()
	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, res.State)
	assert.True(t, res.NotFound)
	assert.Equal(t, SourceDeadline, res.Source)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDeadlineAfterBaseSettlesOnBase(t *testing.T) {
	hanging := enhancer.Funcs{
		One: func(ctx context.Context, _ vehicles.Identity) (*vehicles.Enhancement, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	c := New(staticBase(testVehicle(5900)), hanging,
		WithDeadline(50*time.Millisecond),
		WithEnhancementTimeout(time.Minute))

	res, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)

	assert.Equal(t, StateSettled, res.State)
	assert.False(t, res.Stale)
	assert.Equal(t, 5900.0, res.View.Price)
}

func TestCancellationAbandonsResolution(t *testing.T) {
	snaps := newMemSnapshots()
	c := New(blockingBase(), enhancer.Nop(), WithSnapshots(snaps))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := c.Resolve(ctx, testKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.False(t, res.State.Terminal())
	assert.Equal(t, 0, snaps.saveCount())
}

func TestNewerResolutionSupersedesOlder(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	base := BaseFunc(func(ctx context.Context, _ string) (*vehicles.Vehicle, error) {
		if calls.Add(1) == 1 {
			<-release
			v := testVehicle(1000)
			return &v, nil
		}
		v := testVehicle(2000)
		return &v, nil
	})
	nav := newMemNav()
	c := New(base, enhancer.Nop(), WithNavState(nav))

	first := make(chan *Resolution, 1)
	firstErr := make(chan error, 1)
	go func() {
		res, err := c.Resolve(context.Background(), testKey)
		firstErr <- err
		first <- res
	}()

	// wait for the first resolution to be waiting on its feed
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second, err := c.Resolve(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, StateSettled, second.State)
	assert.Equal(t, 2000.0, second.View.Price)

	close(release)
	assert.True(t, errors.IsSuperseded(<-firstErr))
	older := <-first
	require.NotNil(t, older)
	assert.Equal(t, uint64(1), older.Seq)
	assert.True(t, older.Superseded)

	v, ok := nav.Get(testKey)
	require.True(t, ok)
	assert.Equal(t, 2000.0, v.Price, "older resolution must not overwrite newer state")
}

func TestSyntheticIdentityNeverEnhanced(t *testing.T) {
	synthetic := vehicles.SyntheticIdentity(1700000000000, 3)
	v := vehicles.Vehicle{Identity: synthetic, Make: "Kia", Model: "Rio", Price: 100}

	calls := 0
	enh := enhancer.Funcs{
		One: func(context.Context, vehicles.Identity) (*vehicles.Enhancement, error) {
			calls++
			return &vehicles.Enhancement{Description: "nope"}, nil
		},
	}

	res, err := New(IndexSource{synthetic.Key: v}, enh).Resolve(context.Background(), synthetic.Key)
	require.NoError(t, err)
	assert.Equal(t, StateSettled, res.State)
	assert.Empty(t, res.View.Description)
	assert.Equal(t, 0, calls)
}

func TestResolveRejectsEmptyIdentity(t *testing.T) {
	c := New(nil, nil)

	_, err := c.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = c.Watch(context.Background(), "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestNilBaseSourceDegrades(t *testing.T) {
	res, err := New(nil, nil).Resolve(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, StateDegraded, res.State)
	assert.True(t, res.NotFound)
}

func TestCanMove(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateInit, StateHaveCached, true},
		{StateInit, StateHaveBase, true},
		{StateHaveCached, StateHaveBase, true},
		{StateHaveBase, StateHaveCached, false},
		{StateHaveBase, StateHaveEnhanced, true},
		{StateHaveBase, StateSettled, true},
		{StateHaveCached, StateDegraded, true},
		{StateSettled, StateDegraded, false},
		{StateHaveEnhanced, StateSettled, false},
		{StateDegraded, StateHaveBase, false},
		{StateHaveBase, StateHaveBase, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, canMove(tt.from, tt.to))
		})
	}
}
