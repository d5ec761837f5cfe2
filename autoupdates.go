package inventory

import (
	"context"
	"time"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoUpdater = (*client)(nil)

// AutoUpdater provides controls for periodic re-ingestion.
type AutoUpdater interface {
	// AutoUpdatesOn begins automatic updates if configured
	AutoUpdatesOn() error

	// AutoUpdatesOff stops automatic updates
	AutoUpdatesOff() error
}

// AutoUpdatesOn begins automatic updates if configured.
func (c *client) AutoUpdatesOn() error {
	if c.options.autoUpdateInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoUpdateInterval",
			Value:   c.options.autoUpdateInterval,
			Message: "update interval must be positive",
		}
	}

	c.autoMu.Lock()
	defer c.autoMu.Unlock()

	// Stop any existing auto-updates to prevent resource leaks
	c.stopLocked()

	// Recreate stopCh since it was closed by stopLocked
	c.stopCh = make(chan struct{})
	c.updateTicker = time.NewTicker(c.options.autoUpdateInterval)

	ctx, cancel := context.WithCancel(context.Background())
	c.updateCancel = cancel

	go c.autoUpdateLoop(ctx, c.updateTicker, c.stopCh)

	return nil
}

func (c *client) autoUpdateLoop(parentCtx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			updateCtx, updateCancel := context.WithTimeout(parentCtx, constants.UpdateContextTimeout)
			_, err := c.Ingest(updateCtx)
			updateCancel()

			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					if parentCtx.Err() != nil {
						return
					}
				}
				// The previous base set is still being served.
				c.logger.Error().Err(err).Msg("Auto-update failed")
			}
		case <-parentCtx.Done():
			return
		case <-stop:
			return
		}
	}
}

// AutoUpdatesOff stops automatic updates.
func (c *client) AutoUpdatesOff() error {
	c.autoMu.Lock()
	defer c.autoMu.Unlock()
	c.stopLocked()
	return nil
}

func (c *client) stopLocked() {
	if c.updateTicker != nil {
		c.updateTicker.Stop()
		c.updateTicker = nil
	}
	if c.updateCancel != nil {
		c.updateCancel()
		c.updateCancel = nil
	}
	select {
	case <-c.stopCh:
		// Already closed
	default:
		close(c.stopCh)
	}
}
