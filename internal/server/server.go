// Package server provides the HTTP server for the inventory API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/matt653/high-life-auto-sub000/cmd/application"
	"github.com/matt653/high-life-auto-sub000/internal/cache"
	"github.com/matt653/high-life-auto-sub000/internal/server/events"
	"github.com/matt653/high-life-auto-sub000/internal/server/events/adapters"
	"github.com/matt653/high-life-auto-sub000/internal/server/handlers"
	"github.com/matt653/high-life-auto-sub000/internal/server/sse"
	ws "github.com/matt653/high-life-auto-sub000/internal/server/websocket"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app            application.Application
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	handlers       *handlers.Handlers
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startTime      time.Time
}

// New creates a new server instance with the given configuration and
// connects the inventory client's hooks to the event broker.
func New(app application.Application, cfg Config) (*Server, error) {
	logger := app.Logger()

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	// Subscribe transports to broker
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		app:            app,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		logger:         logger,
		config:         cfg,
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	s.handlers = handlers.New(app, s.cache, broker, wsHub, sseBroadcaster, websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(_ *http.Request) bool {
			return true
		},
	}, logger)

	if err := s.connectHooks(); err != nil {
		cancel()
		return nil, err
	}

	logger.Debug().Str("prefix", cfg.PathPrefix).Msg("Server instance created")
	return s, nil
}

// connectHooks publishes inventory changes to the broker and drops cached
// responses that could have observed the old state.
func (s *Server) connectHooks() error {
	c, err := s.app.Client()
	if err != nil {
		return err
	}

	c.OnVehicleAdded(func(v vehicles.View) {
		s.handlers.Invalidate()
		s.broker.PublishVehicle(events.VehicleAdded, v.Identity.Key, map[string]any{
			"vehicle": v,
		})
	})

	c.OnVehicleUpdated(func(old, updated vehicles.View) {
		s.handlers.Invalidate()
		s.broker.PublishVehicle(events.VehicleUpdated, updated.Identity.Key, map[string]any{
			"old_vehicle": old,
			"new_vehicle": updated,
		})
	})

	c.OnVehicleRemoved(func(v vehicles.View) {
		s.handlers.Invalidate()
		s.broker.PublishVehicle(events.VehicleRemoved, v.Identity.Key, map[string]any{
			"vehicle": v,
		})
	})

	s.logger.Debug().Msg("Inventory hooks connected to event broker")
	return nil
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	for _, run := range []func(context.Context){
		s.broker.Run,
		s.wsHub.Run,
		s.sseBroadcaster.Run,
	} {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			run(s.ctx)
		}()
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services and waits for them until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Cache returns the server's response cache.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// Uptime reports how long the server has existed.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
