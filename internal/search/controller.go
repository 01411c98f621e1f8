package search

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/acetvpair/tvlink-go/internal/errors"
	"github.com/acetvpair/tvlink-go/internal/model"
)

// LookupClient is the slice of the relay client the controller needs.
type LookupClient interface {
	Search(ctx context.Context, term string) ([]model.SearchSource, error)
}

// Signal drives the transient in-progress UI transitions. The
// presentation layer owns the rendering; the controller only marks the
// start and settlement of each request.
type Signal interface {
	SearchStarted(seq uint64)
	SearchSettled(seq uint64)
}

// Token identifies one issued request. A result is only applied when its
// token still matches the controller's current sequence value.
type Token struct {
	seq uint64
}

func (t Token) Seq() uint64 { return t.seq }

// Controller issues cancelable, de-duplicated lookups. Every new search
// supersedes the one before it: the older request is actively canceled
// and its outcome, whether result or error, is discarded even if it
// completes later.
type Controller struct {
	relay  LookupClient
	signal Signal

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewController(relay LookupClient, signal Signal) *Controller {
	return &Controller{
		relay:  relay,
		signal: signal,
	}
}

// Search runs a lookup for term. An empty term is a no-op. A superseded
// call returns a CANCELED error, which callers must treat as silence.
func (c *Controller) Search(ctx context.Context, term string) (*model.SearchResult, error) {
	if term == "" {
		return nil, nil
	}

	c.mu.Lock()
	c.seq++
	token := Token{seq: c.seq}
	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	defer cancel()

	c.signal.SearchStarted(token.seq)

	sources, err := c.relay.Search(reqCtx, term)

	c.mu.Lock()
	current := token.seq == c.seq
	if current {
		c.cancel = nil
	}
	c.mu.Unlock()

	c.signal.SearchSettled(token.seq)

	if !current {
		// A newer search won the fence; this outcome is void.
		return nil, apperrors.Canceled()
	}
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeCanceled) {
			return nil, err
		}
		log.Warn().Err(err).Uint64("seq", token.seq).Str("term", term).Msg("search failed")
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, "Could not fetch results", err)
	}

	log.Debug().Uint64("seq", token.seq).Str("term", term).Int("sources", len(sources)).Msg("search resolved")
	return &model.SearchResult{Sources: sources}, nil
}

// Current returns the latest issued token's sequence value.
func (c *Controller) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
