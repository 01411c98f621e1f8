package cast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acetvpair/tvlink-go/internal/model"
)

type scriptedCtrl struct {
	mu          sync.Mutex
	hasSession  bool
	initErr     error
	requestErr  error
	initCalls   int
	endCalls    int
	listener    func(model.CastSessionState)
	disposeCnt  int
	subscribeCh chan struct{}
}

func (s *scriptedCtrl) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	return s.initErr
}

func (s *scriptedCtrl) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSession
}

func (s *scriptedCtrl) RequestSession() error {
	return s.requestErr
}

func (s *scriptedCtrl) EndSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endCalls++
	s.hasSession = false
	return nil
}

func (s *scriptedCtrl) Subscribe(fn func(model.CastSessionState)) func() {
	s.mu.Lock()
	s.listener = fn
	ch := s.subscribeCh
	s.mu.Unlock()
	if ch != nil {
		close(ch)
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.disposeCnt++
		s.listener = nil
	}
}

func (s *scriptedCtrl) emit(state model.CastSessionState) {
	s.mu.Lock()
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}

var _ SessionController = (*scriptedCtrl)(nil)

func TestCoordinatorOpenChooser(t *testing.T) {
	t.Run("claims ownership when no session existed", func(t *testing.T) {
		ctrl := &scriptedCtrl{}
		c := NewCoordinator(ctrl)

		assert.True(t, c.OpenChooser())
		assert.True(t, c.OpenedByUs())
	})

	t.Run("does not claim an existing session", func(t *testing.T) {
		ctrl := &scriptedCtrl{hasSession: true}
		c := NewCoordinator(ctrl)

		assert.True(t, c.OpenChooser())
		assert.False(t, c.OpenedByUs())
	})

	t.Run("init failure is cached and final", func(t *testing.T) {
		ctrl := &scriptedCtrl{initErr: errors.New("framework missing")}
		c := NewCoordinator(ctrl)

		assert.False(t, c.OpenChooser())
		assert.False(t, c.OpenChooser())
		assert.Equal(t, 1, ctrl.initCalls)
	})

	t.Run("request failure releases ownership", func(t *testing.T) {
		ctrl := &scriptedCtrl{requestErr: errors.New("chooser dismissed")}
		c := NewCoordinator(ctrl)

		assert.False(t, c.OpenChooser())
		assert.False(t, c.OpenedByUs())
	})
}

func TestCoordinatorWaitForReady(t *testing.T) {
	t.Run("resolves immediately when a session exists", func(t *testing.T) {
		ctrl := &scriptedCtrl{hasSession: true}
		c := NewCoordinator(ctrl)

		assert.True(t, c.WaitForReady(context.Background(), time.Second))
	})

	t.Run("resolves true on a ready transition", func(t *testing.T) {
		ctrl := &scriptedCtrl{subscribeCh: make(chan struct{})}
		c := NewCoordinator(ctrl)

		done := make(chan bool, 1)
		go func() {
			done <- c.WaitForReady(context.Background(), time.Second)
		}()
		<-ctrl.subscribeCh
		ctrl.emit(model.CastSessionStarted)

		assert.True(t, <-done)
	})

	t.Run("resolves false on a terminal transition", func(t *testing.T) {
		ctrl := &scriptedCtrl{subscribeCh: make(chan struct{})}
		c := NewCoordinator(ctrl)

		done := make(chan bool, 1)
		go func() {
			done <- c.WaitForReady(context.Background(), time.Second)
		}()
		<-ctrl.subscribeCh
		ctrl.emit(model.CastSessionStartFailed)

		assert.False(t, <-done)
	})

	t.Run("detaches the listener exactly once per wait", func(t *testing.T) {
		ctrl := &scriptedCtrl{subscribeCh: make(chan struct{})}
		c := NewCoordinator(ctrl)

		done := make(chan bool, 1)
		go func() {
			done <- c.WaitForReady(context.Background(), time.Second)
		}()
		<-ctrl.subscribeCh
		// Duplicate transitions must not double-settle or double-dispose.
		ctrl.emit(model.CastSessionStarted)
		ctrl.emit(model.CastSessionResumed)
		<-done

		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		assert.Equal(t, 1, ctrl.disposeCnt)
	})

	t.Run("timeout rechecks for a session that raced the events", func(t *testing.T) {
		ctrl := &scriptedCtrl{}
		c := NewCoordinator(ctrl)

		start := time.Now()
		ok := c.WaitForReady(context.Background(), 30*time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("context cancellation resolves false", func(t *testing.T) {
		ctrl := &scriptedCtrl{}
		c := NewCoordinator(ctrl)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, c.WaitForReady(ctx, time.Second))
	})
}

func TestCoordinatorCloseIfOwned(t *testing.T) {
	t.Run("ends only a session it opened", func(t *testing.T) {
		ctrl := &scriptedCtrl{}
		c := NewCoordinator(ctrl)
		c.OpenChooser()

		c.CloseIfOwned(0)
		ctrl.mu.Lock()
		assert.Equal(t, 1, ctrl.endCalls)
		ctrl.mu.Unlock()
		assert.False(t, c.OpenedByUs())
	})

	t.Run("leaves a pre-existing session alone", func(t *testing.T) {
		ctrl := &scriptedCtrl{hasSession: true}
		c := NewCoordinator(ctrl)
		c.OpenChooser()

		c.CloseIfOwned(0)
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		assert.Equal(t, 0, ctrl.endCalls)
	})

	t.Run("a second close is a no-op", func(t *testing.T) {
		ctrl := &scriptedCtrl{}
		c := NewCoordinator(ctrl)
		c.OpenChooser()

		c.CloseIfOwned(0)
		c.CloseIfOwned(0)
		ctrl.mu.Lock()
		defer ctrl.mu.Unlock()
		assert.Equal(t, 1, ctrl.endCalls)
	})
}
