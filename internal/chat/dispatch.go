package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"expense-cli/internal/api"
)

// ReconcilePolicy decides what happens to a reply that resolves after the
// user has switched to another conversation.
type ReconcilePolicy string

const (
	// ReconcileAlwaysPersist writes the reply into the originating
	// conversation's stored transcript regardless of current focus. The user
	// sees it when they come back. This is the default.
	ReconcileAlwaysPersist ReconcilePolicy = "always-persist"
	// ReconcileDiscardIfInactive drops a reply whose conversation is no
	// longer the active one.
	ReconcileDiscardIfInactive ReconcilePolicy = "discard-if-inactive"
)

// SendMinInterval is the minimum gap between accepted dispatches. Attempts
// inside the window are dropped silently; this guards against accidental
// double-submission, not abuse.
const SendMinInterval = time.Second

// SendFailureText replaces the thinking placeholder when the query call
// fails.
const SendFailureText = "I'm sorry, I'm having trouble connecting right now. Please try again later."

// Dispatcher serializes outbound questions and reconciles the asynchronous
// reply with whichever conversation is relevant when it lands.
type Dispatcher struct {
	Now func() time.Time

	store    *Store
	svc      Service
	thinking *Thinking
	log      *zap.Logger

	policy      ReconcilePolicy
	minInterval time.Duration

	mu       sync.Mutex
	lastSend time.Time
}

func NewDispatcher(store *Store, svc Service, thinking *Thinking, policy ReconcilePolicy, log *zap.Logger) *Dispatcher {
	if policy != ReconcileDiscardIfInactive {
		policy = ReconcileAlwaysPersist
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		Now:         time.Now,
		store:       store,
		svc:         svc,
		thinking:    thinking,
		log:         log,
		policy:      policy,
		minInterval: SendMinInterval,
	}
}

// releaseThrottle gives back a throttle slot taken by a send that aborted
// before it changed any state, so an immediate retry is not dropped. Only
// rolls back when no newer send has claimed the slot since.
func (d *Dispatcher) releaseThrottle(taken, prev time.Time) {
	d.mu.Lock()
	if d.lastSend.Equal(taken) {
		d.lastSend = prev
	}
	d.mu.Unlock()
}

// SetMinInterval overrides the throttle window. Non-positive values keep the
// default.
func (d *Dispatcher) SetMinInterval(iv time.Duration) {
	if iv > 0 {
		d.minInterval = iv
	}
}

// Pending is an accepted dispatch whose reply is still outstanding. Await
// performs the network call and reconciliation; run it from a goroutine or a
// bubbletea command.
type Pending struct {
	SessionID     string
	PlaceholderID string

	d        *Dispatcher
	question string
}

// Outcome reports how a dispatch resolved.
type Outcome struct {
	SessionID string
	MessageID string
	Reply     string
	Discarded bool
	// Unauthorized is set when the server rejected the token mid-send. The
	// caller must treat this as a dead session: clear credentials and route
	// to login.
	Unauthorized bool
	Err          error
}

// Send accepts a user message for dispatch. The synchronous part appends the
// user message and a thinking placeholder to the target conversation and
// starts the indicator; the returned Pending carries the network half.
//
// A nil, nil return means the throttle dropped the call: nothing was
// appended, nothing was sent, and the user sees no error.
//
// Target resolution: explicitSessionID if given, else the active
// conversation, else a conversation is created and activated first; if that
// creation fails the send aborts with no state change.
func (d *Dispatcher) Send(ctx context.Context, text string, att *Attachment, explicitSessionID string) (*Pending, error) {
	d.mu.Lock()
	now := d.Now()
	if !d.lastSend.IsZero() && now.Sub(d.lastSend) < d.minInterval {
		d.mu.Unlock()
		d.log.Debug("send throttled", zap.Duration("since_last", now.Sub(d.lastSend)))
		return nil, nil
	}
	prev := d.lastSend
	d.lastSend = now
	d.mu.Unlock()

	target := explicitSessionID
	if target == "" {
		target = d.store.ActiveID()
	}
	if target == "" {
		created, err := d.store.Create(ctx)
		if err != nil {
			d.releaseThrottle(now, prev)
			return nil, err
		}
		target = created.ID
	}

	userMsg := Message{Role: RoleUser, Content: text}
	if att != nil {
		userMsg.Attachments = []Attachment{*att}
	}
	// Optimistic: the user's message stays in the transcript even if the
	// query call later fails.
	if _, err := d.store.AppendTo(target, userMsg); err != nil {
		d.releaseThrottle(now, prev)
		return nil, err
	}

	d.thinking.Start(target)

	placeholder, err := d.store.AppendTo(target, Message{Role: RoleThinking, Content: ThinkingSentinel})
	if err != nil {
		d.thinking.StopIf(target)
		return nil, err
	}

	return &Pending{
		SessionID:     target,
		PlaceholderID: placeholder.ID,
		d:             d,
		question:      text,
	}, nil
}

// Await runs the remote query and folds the result back into the originating
// conversation. The placeholder is mutated in place into the assistant reply,
// or into a fixed error message on failure. The indicator stops only if it
// still belongs to this dispatch's conversation.
func (p *Pending) Await(ctx context.Context) Outcome {
	d := p.d
	out := Outcome{SessionID: p.SessionID, MessageID: p.PlaceholderID}

	reply, err := d.svc.Ask(ctx, p.question, p.SessionID)
	content := reply
	if err != nil {
		out.Err = err
		content = SendFailureText
		if errors.Is(err, api.ErrUnauthorized) {
			out.Unauthorized = true
		}
		d.log.Error("query failed", zap.String("session", p.SessionID), zap.Error(err))
	}
	out.Reply = content

	deliver := true
	if d.policy == ReconcileDiscardIfInactive && d.store.ActiveID() != p.SessionID {
		deliver = false
		out.Discarded = true
	}
	if deliver {
		uerr := d.store.UpdateIn(p.SessionID, p.PlaceholderID, func(m *Message) {
			m.Role = RoleAssistant
			m.Content = content
		})
		if uerr != nil {
			// Conversation was deleted while the reply was in flight.
			d.log.Warn("reply had nowhere to land", zap.String("session", p.SessionID), zap.Error(uerr))
			out.Discarded = true
		}
	}

	d.thinking.StopIf(p.SessionID)
	return out
}
