// Package debug provides runtime monitoring and diagnostics for a running
// reactor.
package debug

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mctsd/mcts/event"
	"github.com/mctsd/mcts/reactor"
)

// Enabled returns true if debug mode is active (MCTS_DEBUG=1).
func Enabled() bool {
	return os.Getenv("MCTS_DEBUG") == "1"
}

// Monitor periodically logs reactor statistics, and logs every lifecycle
// event as it arrives, when debug mode is enabled.
type Monitor struct {
	reactor  *reactor.Reactor
	events   chan event.Event
	interval time.Duration
	ctx      context.Context
	logger   *log.Logger
}

// NewMonitor creates a monitor for the given reactor. If debug mode is not
// enabled, returns nil; Start() is safe to call on a nil receiver.
func NewMonitor(ctx context.Context, r *reactor.Reactor) *Monitor {
	if !Enabled() {
		return nil
	}
	events := make(chan event.Event, 64)
	r.Events = events
	return &Monitor{
		reactor:  r,
		events:   events,
		interval: 5 * time.Second,
		ctx:      ctx,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Start begins the monitoring loop in a goroutine.
func (m *Monitor) Start() {
	if m == nil {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Println("[DEBUG] monitor started")

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Println("[DEBUG] monitor stopped")
			return
		case ev := <-m.events:
			m.logEvent(ev)
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logEvent(ev event.Event) {
	switch ev.Type {
	case event.ConnAccepted:
		m.logger.Printf("[DEBUG] accepted %v", ev.Payload)
	case event.ConnClosed:
		m.logger.Printf("[DEBUG] closed %v", ev.Payload)
	case event.ConnRejected:
		m.logger.Printf("[DEBUG] rejected: connection table full")
	case event.ConnError:
		if e, ok := ev.Payload.(event.Err); ok {
			m.logger.Printf("[DEBUG] error: %v", e.Err)
		}
	}
}

func (m *Monitor) logStats() {
	s := m.reactor.Stats()
	m.logger.Printf("[DEBUG] conns=%d/%d accepted=%d closed=%d rejected=%d bytesRead=%d",
		s.ActiveConns, reactor.MaxConns, s.AcceptedTotal, s.ClosedTotal, s.RejectedAtCap, s.BytesRead)
}
