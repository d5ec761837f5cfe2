package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *recorder) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestBrokerDeliversInOrder(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)

	// subscribing before Run must not block
	sub := &recorder{}
	b.Subscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	b.PublishVehicle(VehicleAdded, "1G1JC12345", nil)
	b.Publish(VehicleUpdated, nil)
	b.Publish(VehicleRemoved, nil)

	require.Eventually(t, func() bool { return len(sub.types()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{VehicleAdded, VehicleUpdated, VehicleRemoved}, sub.types())
	assert.EqualValues(t, 3, b.EventsPublished())
	sub.mu.Lock()
	assert.NotEmpty(t, sub.events[0].ID)
	assert.Equal(t, "1G1JC12345", sub.events[0].Identity)
	assert.Empty(t, sub.events[1].Identity)
	sub.mu.Unlock()
}

func TestBrokerShutdownClosesSubscribers(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	s1, s2 := &recorder{}, &recorder{}
	b.Subscribe(s1)
	b.Subscribe(s2)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	s1.mu.Lock()
	assert.True(t, s1.closed)
	s1.mu.Unlock()
}

func TestBrokerUnsubscribe(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	sub := &recorder{}
	b.Subscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Unsubscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)

	// not running, so the queue fills
	for range cap(b.events) + 5 {
		b.Publish(IngestCompleted, nil)
	}
	assert.EqualValues(t, cap(b.events), b.EventsPublished())
	assert.EqualValues(t, 5, b.EventsDropped())
	assert.Equal(t, cap(b.events), b.QueueDepth())
}
