package cast

import (
	"errors"
	"sync"

	"github.com/acetvpair/tvlink-go/internal/model"
	"github.com/acetvpair/tvlink-go/internal/notify"
)

// ErrCastUnavailable means the UI reported that no casting framework
// exists on its platform.
var ErrCastUnavailable = errors.New("cast framework unavailable")

// Publisher is the slice of the notify broker the controller needs.
type Publisher interface {
	Publish(event notify.Event)
}

// UIController is a SessionController proxied through the presentation
// layer: the browser owns the actual casting framework, executes the
// published control events, and reports session transitions back via
// the gateway. State seen here is therefore the UI's last report.
type UIController struct {
	events Publisher

	mu          sync.Mutex
	unavailable bool
	hasSession  bool
	subs        map[int]func(model.CastSessionState)
	nextSub     int
}

func NewUIController(events Publisher) *UIController {
	return &UIController{
		events: events,
		subs:   make(map[int]func(model.CastSessionState)),
	}
}

func (u *UIController) Init() error {
	u.mu.Lock()
	unavailable := u.unavailable
	u.mu.Unlock()

	if unavailable {
		return ErrCastUnavailable
	}
	u.events.Publish(notify.Event{Type: notify.EventCastInit})
	return nil
}

func (u *UIController) HasSession() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hasSession
}

func (u *UIController) RequestSession() error {
	u.mu.Lock()
	unavailable := u.unavailable
	u.mu.Unlock()

	if unavailable {
		return ErrCastUnavailable
	}
	u.events.Publish(notify.Event{Type: notify.EventCastRequestSession})
	return nil
}

func (u *UIController) EndSession() error {
	u.events.Publish(notify.Event{Type: notify.EventCastEndSession})
	return nil
}

func (u *UIController) Subscribe(fn func(model.CastSessionState)) func() {
	u.mu.Lock()
	id := u.nextSub
	u.nextSub++
	u.subs[id] = fn
	u.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			u.mu.Lock()
			delete(u.subs, id)
			u.mu.Unlock()
		})
	}
}

// ReportAvailability records whether the UI's platform exposes a casting
// framework and whether a session was already active.
func (u *UIController) ReportAvailability(available, hasSession bool) {
	u.mu.Lock()
	u.unavailable = !available
	u.hasSession = available && hasSession
	u.mu.Unlock()
}

// ReportState applies a session transition reported by the UI and fans
// it out to subscribers.
func (u *UIController) ReportState(state model.CastSessionState) {
	u.mu.Lock()
	switch {
	case state.Ready():
		u.hasSession = true
	case state.Terminal():
		u.hasSession = false
	}
	fns := make([]func(model.CastSessionState), 0, len(u.subs))
	for _, fn := range u.subs {
		fns = append(fns, fn)
	}
	u.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

var _ SessionController = (*UIController)(nil)
