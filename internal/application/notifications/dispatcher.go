// Package notifications emits best-effort side effects after a workflow
// transition has committed. Delivery failures are logged and never reach the caller.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"estates-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	ListingSubmitted    EventType = "listing_submitted"
	ListingApproved     EventType = "listing_approved"
	ListingRejected     EventType = "listing_rejected"
	EngagementCreated   EventType = "engagement_created"
	EngagementResponded EventType = "engagement_responded"
)

// Event is a snapshot of the entity right after the transition.
// Engagement events carry the referenced listing when there is one.
type Event struct {
	Type       EventType          `json:"type"`
	OccurredAt time.Time          `json:"occurred_at"`
	ActorID    *uuid.UUID         `json:"actor_id,omitempty"`
	Listing    *domain.Listing    `json:"listing,omitempty"`
	Engagement *domain.Engagement `json:"engagement,omitempty"`
}

// Dispatcher is fire-and-forget: there is nothing to return to the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// Sink is one delivery channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev Event) error
}

const defaultTimeout = 10 * time.Second

// AsyncDispatcher fans each event out to every sink on its own goroutine.
type AsyncDispatcher struct {
	Sinks   []Sink
	Timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(timeout time.Duration, sinks ...Sink) *AsyncDispatcher {
	return &AsyncDispatcher{Sinks: sinks, Timeout: timeout}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, ev Event) {
	if len(d.Sinks) == 0 {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// The request context is cancelled as soon as the handler returns.
	base := context.WithoutCancel(ctx)

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		log.Warn().Str("event", string(ev.Type)).Msg("notification dropped: dispatcher closed")
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		for _, s := range d.Sinks {
			deliver(ctx, s, ev)
		}
	}()
}

// Wait blocks until every in-flight dispatch has finished. Dispatch may still be
// called afterwards; use Close on shutdown.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting events and waits for the in-flight ones.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func deliver(ctx context.Context, s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(ev.Type)).
				Str("sink", s.Name()).
				Str("panic", fmt.Sprint(r)).
				Msg("notification sink panicked")
		}
	}()
	if err := s.Deliver(ctx, ev); err != nil {
		log.Warn().
			Err(err).
			Str("event", string(ev.Type)).
			Str("sink", s.Name()).
			Msg("notification delivery failed")
		return
	}
	log.Debug().Str("event", string(ev.Type)).Str("sink", s.Name()).Msg("notification delivered")
}

// Nop drops every event.
type Nop struct{}

func (Nop) Dispatch(context.Context, Event) {}
