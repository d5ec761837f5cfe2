package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/matt653/high-life-auto-sub000/pkg/loader"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

var _ loader.NavState = (*Nav)(nil)

// Nav holds the views this process has already shown. Entries expire after
// ttl so a long-running process does not serve a view forever without a
// feed round trip; a zero ttl keeps entries until the process exits.
type Nav struct {
	store *gocache.Cache
}

// NewNav creates navigation state with the given entry lifetime.
func NewNav(ttl time.Duration) *Nav {
	cleanup := ttl
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &Nav{store: gocache.New(ttl, cleanup)}
}

// Get returns a copy of the view held for id. It never blocks on I/O.
func (n *Nav) Get(id string) (vehicles.View, bool) {
	v, ok := n.store.Get(id)
	if !ok {
		return vehicles.View{}, false
	}
	view, ok := v.(vehicles.View)
	if !ok {
		return vehicles.View{}, false
	}
	return view.Clone(), true
}

// Put stores a copy of view under its identity key.
func (n *Nav) Put(view vehicles.View) {
	if view.Identity.Key == "" {
		return
	}
	n.store.Set(view.Identity.Key, view.Clone(), gocache.DefaultExpiration)
}

// Forget drops the view held for id.
func (n *Nav) Forget(id string) {
	n.store.Delete(id)
}

// Len returns the number of views held.
func (n *Nav) Len() int {
	return n.store.ItemCount()
}
