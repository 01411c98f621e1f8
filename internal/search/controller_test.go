package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
)

type fakeLookup struct {
	mu      sync.Mutex
	handler func(ctx context.Context, term string) ([]model.SearchSource, error)
	calls   []string
}

func (f *fakeLookup) Search(ctx context.Context, term string) ([]model.SearchSource, error) {
	f.mu.Lock()
	f.calls = append(f.calls, term)
	handler := f.handler
	f.mu.Unlock()
	return handler(ctx, term)
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingSignal struct {
	mu      sync.Mutex
	started []uint64
	settled []uint64
}

func (r *recordingSignal) SearchStarted(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, seq)
}

func (r *recordingSignal) SearchSettled(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, seq)
}

func TestControllerSearch(t *testing.T) {
	t.Run("empty term is a no-op", func(t *testing.T) {
		relay := &fakeLookup{handler: func(ctx context.Context, term string) ([]model.SearchSource, error) {
			t.Fatal("relay should not be called")
			return nil, nil
		}}
		c := NewController(relay, &recordingSignal{})

		result, err := c.Search(context.Background(), "")
		assert.NoError(t, err)
		assert.Nil(t, result)
		assert.Equal(t, 0, relay.callCount())
	})

	t.Run("resolves sources and signals start and settle", func(t *testing.T) {
		relay := &fakeLookup{handler: func(ctx context.Context, term string) ([]model.SearchSource, error) {
			return []model.SearchSource{{Source: "siteA", Links: []model.StreamLink{{Link: "acestream://aa"}}}}, nil
		}}
		signal := &recordingSignal{}
		c := NewController(relay, signal)

		result, err := c.Search(context.Background(), "derby")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Len(t, result.Sources, 1)
		assert.Equal(t, []uint64{1}, signal.started)
		assert.Equal(t, []uint64{1}, signal.settled)
	})

	t.Run("newer search supersedes and cancels the older one", func(t *testing.T) {
		firstStarted := make(chan struct{})
		relay := &fakeLookup{}
		relay.handler = func(ctx context.Context, term string) ([]model.SearchSource, error) {
			if term == "derby" {
				close(firstStarted)
				<-ctx.Done()
				return nil, apperrors.Canceled()
			}
			return []model.SearchSource{{Source: "siteB"}}, nil
		}
		c := NewController(relay, &recordingSignal{})

		firstErr := make(chan error, 1)
		go func() {
			_, err := c.Search(context.Background(), "derby")
			firstErr <- err
		}()
		<-firstStarted

		result, err := c.Search(context.Background(), "milan")
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "siteB", result.Sources[0].Source)

		select {
		case err := <-firstErr:
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCanceled),
				"superseded search must settle as canceled, got %v", err)
		case <-time.After(time.Second):
			t.Fatal("superseded search never settled")
		}

		assert.Equal(t, uint64(2), c.Current())
	})

	t.Run("relay failure is wrapped as a network error", func(t *testing.T) {
		relay := &fakeLookup{handler: func(ctx context.Context, term string) ([]model.SearchSource, error) {
			return nil, errors.New("connection refused")
		}}
		c := NewController(relay, &recordingSignal{})

		_, err := c.Search(context.Background(), "derby")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNetwork))
	})
}
