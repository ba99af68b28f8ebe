// Package audit captures structured records of security and money-relevant
// actions. Events are transport-agnostic so sinks can fan out: the in-memory
// sink backs tests and single-node deployments, the Kafka sink feeds the
// store's central pipeline.
package audit

import (
	"context"
	"sync"
	"time"

	id "till/pkg/domain"
	"till/pkg/requestcontext"
)

// Action names the audited operation.
type Action string

const (
	ActionTransactionCreated   Action = "transaction_created"
	ActionTransactionCompleted Action = "transaction_completed"
	ActionTransactionVoided    Action = "transaction_voided"
	ActionPaymentRecorded      Action = "payment_recorded"

	ActionLoginSucceeded Action = "login_succeeded"
	ActionLoginFailed    Action = "login_failed"
	ActionLogout         Action = "logout"

	ActionUserCreated Action = "user_created"
	ActionUserUpdated Action = "user_updated"
	ActionUserDeleted Action = "user_deleted"

	ActionProductCreated Action = "product_created"
	ActionProductUpdated Action = "product_updated"
	ActionProductDeleted Action = "product_deleted"

	ActionSettingsUpdated Action = "settings_updated"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ActorID   id.UserID `json:"actor_id"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	StoreID   string    `json:"store_id,omitempty"`
}

// Sink receives events. Append must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher enriches events from the request context before handing them to
// the sink. Enrichment keeps call sites to action, subject, and detail.
type Publisher struct {
	sink    Sink
	storeID string
}

func NewPublisher(sink Sink, storeID string) *Publisher {
	return &Publisher{sink: sink, storeID: storeID}
}

func (p *Publisher) Emit(ctx context.Context, action Action, subject, detail string) error {
	return p.sink.Append(ctx, Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		ActorID:   requestcontext.UserID(ctx),
		Subject:   subject,
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
		StoreID:   p.storeID,
	})
}

// MemorySink keeps events in order for tests and single-node runs.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
