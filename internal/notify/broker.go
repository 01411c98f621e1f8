package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const HeartbeatInterval = 30 * time.Second

// Event is one message pushed to the presentation layer. The
// orchestration core only requests that something be shown; rendering
// is owned by the UI.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event types consumed by the UI.
const (
	EventToast          = "toast"
	EventConfirmRequest = "confirm_request"
	EventPairingOpen    = "pairing_open"
	EventPairingClose   = "pairing_close"
	EventPairingState   = "pairing_state"
	EventSearchStarted  = "search_started"
	EventSearchSettled  = "search_settled"
	EventDeliveryState  = "delivery_state"

	// Cast control events: the UI owns the platform casting framework
	// and executes these requests, reporting transitions back.
	EventCastInit           = "cast_init"
	EventCastRequestSession = "cast_request_session"
	EventCastEndSession     = "cast_end_session"
)

// Toast variants.
const (
	VariantInfo    = "info"
	VariantSuccess = "success"
	VariantWarn    = "warn"
	VariantError   = "error"
)

type Subscriber struct {
	Events chan Event
	Done   chan struct{}
}

type pendingConfirm struct {
	reply     chan bool
	onConfirm func()
}

// Broker fans UI events out to every connected presentation client and
// tracks pending confirm prompts until the UI answers them. A single
// local process needs no external pub/sub.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]bool
	pending     map[string]*pendingConfirm
	closed      bool
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[*Subscriber]bool),
		pending:     make(map[string]*pendingConfirm),
	}
}

func (b *Broker) Subscribe() *Subscriber {
	sub := &Subscriber{
		Events: make(chan Event, 100),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[sub] = true
	count := len(b.subscribers)
	b.mu.Unlock()

	log.Info().Int("clientCount", count).Msg("ui client subscribed")
	return sub
}

func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub.Done)
		log.Info().Int("clientCount", len(b.subscribers)).Msg("ui client unsubscribed")
	}
}

func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			// Slow consumer: drop rather than block the orchestrator.
		}
	}
}

func (b *Broker) publishJSON(eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("failed to encode ui event")
		return
	}
	b.Publish(Event{Type: eventType, Data: raw})
}

// Toast requests a transient message.
func (b *Broker) Toast(message, variant string) {
	b.publishJSON(EventToast, map[string]string{
		"message": message,
		"variant": variant,
	})
}

// OpenPairing asks the UI to show the pairing code entry.
func (b *Broker) OpenPairing() {
	b.Publish(Event{Type: EventPairingOpen})
}

// ClosePairing asks the UI to dismiss the pairing code entry.
func (b *Broker) ClosePairing() {
	b.Publish(Event{Type: EventPairingClose})
}

// PairingState mirrors the digit buffer / error state for the UI.
func (b *Broker) PairingState(digits []string, errMessage string, submitting bool) {
	b.publishJSON(EventPairingState, map[string]any{
		"digits":     digits,
		"error":      errMessage,
		"submitting": submitting,
	})
}

// SearchStarted signals the in-progress transition for a lookup.
func (b *Broker) SearchStarted(seq uint64) {
	b.publishJSON(EventSearchStarted, map[string]uint64{"sequence": seq})
}

// SearchSettled signals that the lookup either resolved or was superseded.
func (b *Broker) SearchSettled(seq uint64) {
	b.publishJSON(EventSearchSettled, map[string]uint64{"sequence": seq})
}

// DeliveryState publishes the per-item command lifecycle so the UI can
// disable re-invocation while a send is pending for that item.
func (b *Broker) DeliveryState(itemKey, state string) {
	b.publishJSON(EventDeliveryState, map[string]string{
		"item":  itemKey,
		"state": state,
	})
}

// Confirm asks the user a yes/no question and blocks until the UI
// answers or ctx expires (treated as a decline). onConfirm, if set, runs
// on the accepting answer before Confirm returns, mirroring the
// user-gesture window the platform casting API requires.
func (b *Broker) Confirm(ctx context.Context, text string, onConfirm func()) bool {
	id := uuid.New().String()
	pc := &pendingConfirm{
		reply:     make(chan bool, 1),
		onConfirm: onConfirm,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.pending[id] = pc
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	b.publishJSON(EventConfirmRequest, map[string]string{
		"id":   id,
		"text": text,
	})

	select {
	case accept := <-pc.reply:
		if accept && pc.onConfirm != nil {
			pc.onConfirm()
		}
		return accept
	case <-ctx.Done():
		return false
	}
}

// Resolve answers a pending confirm prompt. It reports whether the id
// matched an open prompt.
func (b *Broker) Resolve(id string, accept bool) bool {
	b.mu.RLock()
	pc, ok := b.pending[id]
	b.mu.RUnlock()

	if !ok {
		return false
	}

	select {
	case pc.reply <- accept:
		return true
	default:
		// Already answered; a second reply is a no-op.
		return false
	}
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub.Done)
	}
}
