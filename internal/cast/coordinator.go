package cast

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acetvpair/tvlink-go/internal/model"
)

// Coordinator wakes the paired device through a platform casting session
// when direct delivery reports it unreachable. It remembers whether it
// opened the session itself so it never tears down a session the user
// already had.
type Coordinator struct {
	ctrl SessionController

	mu         sync.Mutex
	initDone   bool
	initFailed bool
	openedByUs bool
}

func NewCoordinator(ctrl SessionController) *Coordinator {
	return &Coordinator{ctrl: ctrl}
}

// OpenChooser initializes the platform context once per client lifetime
// and requests a session. It returns immediately; establishment is
// observed through WaitForReady. The return value reports whether the
// request was dispatched at all.
func (c *Coordinator) OpenChooser() bool {
	if !c.ensureInit() {
		return false
	}

	c.mu.Lock()
	// If no session existed before this call, closing it later is on us.
	c.openedByUs = !c.ctrl.HasSession()
	c.mu.Unlock()

	if err := c.ctrl.RequestSession(); err != nil {
		log.Warn().Err(err).Msg("cast session request failed")
		c.mu.Lock()
		c.openedByUs = false
		c.mu.Unlock()
		return false
	}
	return true
}

// WaitForReady resolves true once a session is active, false on a
// start-failure or ended transition or when the timeout elapses. It
// always settles, and its listener is detached exactly once no matter
// which path resolves it.
func (c *Coordinator) WaitForReady(ctx context.Context, timeout time.Duration) bool {
	if c.ctrl.HasSession() {
		return true
	}

	result := make(chan bool, 1)
	var once sync.Once
	settle := func(ready bool) {
		once.Do(func() {
			result <- ready
		})
	}

	dispose := c.ctrl.Subscribe(func(state model.CastSessionState) {
		switch {
		case state.Ready():
			settle(true)
		case state.Terminal():
			settle(false)
		}
	})
	defer dispose()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ready := <-result:
		return ready
	case <-timer.C:
		// A session may have raced the transition events.
		return c.ctrl.HasSession()
	case <-ctx.Done():
		return false
	}
}

// CloseIfOwned ends the session, but only if this coordinator opened it.
// The delay gives the receiver's power/input-switch signaling time to
// complete before the session drops. Errors from ending are swallowed.
func (c *Coordinator) CloseIfOwned(delay time.Duration) {
	c.mu.Lock()
	if !c.openedByUs {
		c.mu.Unlock()
		return
	}
	c.openedByUs = false
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if err := c.ctrl.EndSession(); err != nil {
		log.Debug().Err(err).Msg("ending cast session failed, ignored")
	}
}

// OpenedByUs reports whether this coordinator currently owns a session
// it would be responsible for closing.
func (c *Coordinator) OpenedByUs() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openedByUs
}

func (c *Coordinator) ensureInit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initDone {
		return !c.initFailed
	}
	c.initDone = true
	if err := c.ctrl.Init(); err != nil {
		log.Warn().Err(err).Msg("cast platform unavailable")
		c.initFailed = true
		return false
	}
	return true
}
