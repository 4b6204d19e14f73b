package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Controller is the non-real-time side of the bridge: it forwards
// commands, consumes events and retains the most recent metering and
// performance snapshots for polling.
type Controller struct {
	bridge *Bridge
	log    *logrus.Entry

	mu          sync.Mutex
	metering    MeteringSnapshot
	performance PerformanceStats
}

// NewController wraps an engine bridge. A nil logger falls back to the
// logrus standard logger.
func NewController(bridge *Bridge, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Controller{
		bridge: bridge,
		log:    log.WithField("component", "dynamics-controller"),
	}
}

// Run consumes engine events until ctx is cancelled. It is meant to run
// on its own goroutine; the audio path is never blocked by it.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.bridge.Events():
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev.Kind {
	case EventMetering:
		c.mu.Lock()
		c.metering = ev.Metering
		c.mu.Unlock()

	case EventPerformance:
		c.mu.Lock()
		c.performance = ev.Performance
		c.mu.Unlock()

		if ev.Performance.CPULoadPercent > 100 {
			c.log.WithField("cpuLoadPercent", ev.Performance.CPULoadPercent).
				Warn("quantum deadline exceeded")
		}

	case EventError:
		c.log.WithField("timestamp", ev.Timestamp).Error(ev.Message)
	}
}

// Metering returns the most recent snapshot received from the engine.
func (c *Controller) Metering() MeteringSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.metering
}

// Performance returns the most recent performance stats received from
// the engine.
func (c *Controller) Performance() PerformanceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.performance
}

// SetParameter forwards a parameter change, logging delivery failures.
func (c *Controller) SetParameter(name string, value float64) error {
	err := c.bridge.SetParameter(name, value)
	if err != nil {
		c.log.WithField("parameter", name).WithError(err).Warn("command dropped")
	}

	return err
}

// SetParameters forwards a batch parameter change.
func (c *Controller) SetParameters(values map[string]float64) error {
	err := c.bridge.SetParameters(values)
	if err != nil {
		c.log.WithError(err).Warn("command dropped")
	}

	return err
}

// SetBypass forwards a bypass toggle.
func (c *Controller) SetBypass(bypass bool) error {
	return c.bridge.SetBypass(bypass)
}

// Reset forwards a state reset.
func (c *Controller) Reset() error {
	return c.bridge.Reset()
}

// RequestMetering asks the engine for a fresh snapshot; it arrives
// asynchronously and is readable via Metering after the next quantum.
func (c *Controller) RequestMetering() error {
	return c.bridge.RequestMetering()
}
