package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTitle is the title a conversation carries until the first user
// message names it.
const DefaultTitle = "New Chat"

// ErrNoActiveSession is returned by operations that need a selected
// conversation when none is selected.
var ErrNoActiveSession = errors.New("chat: no active session")

// Summary is a conversation as it appears in the sidebar list.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detail is a conversation with its loaded transcript. Messages stay sorted
// ascending by timestamp after every mutation. HasMore and Cursor describe
// the unloaded older history.
type Detail struct {
	Summary
	Messages []Message
	HasMore  bool
	Cursor   string
}

// Store owns the conversation list and the active conversation's transcript.
// The server is the source of truth; everything here is an in-memory view,
// with previously visited conversations retained in a cache so returning to
// one needs no reload.
type Store struct {
	// Now and NewID are swappable for tests.
	Now   func() time.Time
	NewID func() string

	svc   Service
	pager *Pager
	log   *zap.Logger

	mu        sync.Mutex
	summaries []Summary
	active    *Detail
	cache     map[string]*Detail
	loaded    bool

	activateSeq  uint64 // invalidates activations superseded mid-fetch
	loadingOlder bool
}

func NewStore(svc Service, pager *Pager, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		Now:   time.Now,
		NewID: uuid.NewString,
		svc:   svc,
		pager: pager,
		log:   log,
		cache: make(map[string]*Detail),
	}
}

// Load fetches the conversation list once. Subsequent calls are no-ops; the
// list is maintained locally afterward.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	convos, err := s.svc.ListConversations(ctx)
	if err != nil {
		s.log.Error("listing conversations", zap.Error(err))
		return err
	}

	summaries := make([]Summary, 0, len(convos))
	for _, c := range convos {
		summaries = append(summaries, Summary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	s.mu.Lock()
	s.summaries = summaries
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Summaries returns a copy of the sidebar list, most recent first.
func (s *Store) Summaries() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// ActiveID returns the active conversation's id, or "" when none is active.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.ID
}

// Active returns a snapshot of the active conversation for rendering.
func (s *Store) Active() (Detail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Detail{}, false
	}
	snap := *s.active
	snap.Messages = make([]Message, len(s.active.Messages))
	copy(snap.Messages, s.active.Messages)
	return snap, true
}

// Create makes a new conversation server-side, prepends it to the list and
// activates it empty. On failure nothing changes and no session exists.
func (s *Store) Create(ctx context.Context) (Detail, error) {
	convo, err := s.svc.CreateConversation(ctx, DefaultTitle)
	if err != nil {
		s.log.Error("creating conversation", zap.Error(err))
		return Detail{}, err
	}

	d := &Detail{
		Summary: Summary{
			ID:        convo.ID,
			Title:     convo.Title,
			CreatedAt: convo.CreatedAt,
			UpdatedAt: convo.UpdatedAt,
		},
	}
	if d.Title == "" {
		d.Title = DefaultTitle
	}

	s.mu.Lock()
	s.summaries = append([]Summary{d.Summary}, s.summaries...)
	s.stashActive()
	s.active = d
	s.cache[d.ID] = d
	s.activateSeq++
	snap := *d
	s.mu.Unlock()
	return snap, nil
}

// Activate makes id the active conversation. Re-activating the already
// active conversation is a contractual no-op: zero network calls. A cached
// conversation with messages is adopted directly; otherwise metadata and the
// newest page are fetched.
func (s *Store) Activate(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.active != nil && s.active.ID == id {
		s.mu.Unlock()
		return nil
	}
	if cached, ok := s.cache[id]; ok && len(cached.Messages) > 0 {
		s.stashActive()
		s.active = cached
		s.activateSeq++
		s.mu.Unlock()
		return nil
	}
	meta, haveMeta := s.findSummary(id)
	s.activateSeq++
	seq := s.activateSeq
	s.mu.Unlock()

	if !haveMeta {
		convo, err := s.svc.GetConversation(ctx, id)
		if err != nil {
			s.log.Error("loading conversation", zap.String("id", id), zap.Error(err))
			return err
		}
		meta = Summary{
			ID:        convo.ID,
			Title:     convo.Title,
			CreatedAt: convo.CreatedAt,
			UpdatedAt: convo.UpdatedAt,
		}
	}

	page, err := s.pager.LoadInitial(ctx, id)
	if err != nil {
		s.log.Error("loading first page", zap.String("id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activateSeq != seq {
		// A newer activation won while this fetch was in flight. Keep the
		// result in the cache; do not steal focus.
		s.cache[id] = &Detail{Summary: meta, Messages: page.Messages, HasMore: page.HasMore, Cursor: page.Cursor}
		return nil
	}
	s.stashActive()
	d := &Detail{Summary: meta, Messages: page.Messages, HasMore: page.HasMore, Cursor: page.Cursor}
	s.active = d
	s.cache[id] = d
	return nil
}

// Deactivate clears the active conversation, keeping it cached.
func (s *Store) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stashActive()
	s.active = nil
	s.activateSeq++
}

// AppendLocal inserts a message into the active transcript, assigning a local
// id and timestamp when absent. The first user message titles an untitled
// conversation from its leading text.
func (s *Store) AppendLocal(msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Message{}, ErrNoActiveSession
	}
	return s.appendLocked(s.active, msg), nil
}

// AppendTo is AppendLocal for a specific conversation, active or cached.
func (s *Store) AppendTo(sessionID string, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.detailLocked(sessionID)
	if d == nil {
		return Message{}, ErrNoActiveSession
	}
	return s.appendLocked(d, msg), nil
}

func (s *Store) appendLocked(d *Detail, msg Message) Message {
	if msg.ID == "" {
		msg.ID = s.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.Now()
	}

	if len(d.Messages) == 0 && msg.Role == RoleUser {
		if d.Title == "" || d.Title == DefaultTitle {
			s.setTitleLocked(d.ID, titleFrom(msg.Content))
		}
	}

	d.Messages = insertAscending(d.Messages, msg)
	d.UpdatedAt = s.Now()
	s.touchSummaryLocked(d.ID, d.UpdatedAt)
	return msg
}

// UpdateMessage mutates a message of the active transcript in place.
func (s *Store) UpdateMessage(messageID string, fn func(*Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveSession
	}
	return updateIn(s.active, messageID, fn, s.Now())
}

// UpdateIn mutates a message within a specific conversation, active or
// cached. Used to reconcile replies that resolve after the user has moved on.
func (s *Store) UpdateIn(sessionID, messageID string, fn func(*Message)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.detailLocked(sessionID)
	if d == nil {
		return ErrNoActiveSession
	}
	return updateIn(d, messageID, fn, s.Now())
}

// Rename changes a conversation's title. The title shown never moves ahead of
// the server: on failure nothing local changes.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	if err := s.svc.RenameConversation(ctx, id, title); err != nil {
		s.log.Error("renaming conversation", zap.String("id", id), zap.Error(err))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTitleLocked(id, title)
	return nil
}

// Delete removes a conversation. If it was active, no conversation is active
// afterward; callers show an empty state rather than auto-creating.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteConversation(ctx, id); err != nil {
		s.log.Error("deleting conversation", zap.String("id", id), zap.Error(err))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sum := range s.summaries {
		if sum.ID == id {
			s.summaries = append(s.summaries[:i], s.summaries[i+1:]...)
			break
		}
	}
	delete(s.cache, id)
	if s.active != nil && s.active.ID == id {
		s.active = nil
		s.activateSeq++
	}
	return nil
}

// LoadOlder fetches and prepends the next older page of the active
// conversation. Returns how many messages were prepended. Calls while a load
// is already in flight, or when no older history exists, are no-ops.
func (s *Store) LoadOlder(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.active == nil || !s.active.HasMore || s.active.Cursor == "" || s.loadingOlder {
		s.mu.Unlock()
		return 0, nil
	}
	d := s.active
	cursor := d.Cursor
	s.loadingOlder = true
	s.mu.Unlock()

	page, err := s.pager.LoadOlder(ctx, d.ID, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingOlder = false
	if err != nil {
		s.log.Error("loading older page", zap.String("id", d.ID), zap.Error(err))
		return 0, err
	}
	// d is the same *Detail the cache holds, so the merge lands in the right
	// conversation even if the user switched away mid-fetch.
	before := len(d.Messages)
	d.Messages = mergeOlder(page.Messages, d.Messages)
	d.HasMore = page.HasMore
	d.Cursor = page.Cursor
	return len(d.Messages) - before, nil
}

// stashActive parks the current active detail in the cache. Callers hold mu.
func (s *Store) stashActive() {
	if s.active != nil {
		s.cache[s.active.ID] = s.active
	}
}

func (s *Store) detailLocked(id string) *Detail {
	if s.active != nil && s.active.ID == id {
		return s.active
	}
	return s.cache[id]
}

func (s *Store) findSummary(id string) (Summary, bool) {
	for _, sum := range s.summaries {
		if sum.ID == id {
			return sum, true
		}
	}
	return Summary{}, false
}

func (s *Store) setTitleLocked(id, title string) {
	for i := range s.summaries {
		if s.summaries[i].ID == id {
			s.summaries[i].Title = title
			break
		}
	}
	if d := s.detailLocked(id); d != nil {
		d.Title = title
	}
}

func (s *Store) touchSummaryLocked(id string, at time.Time) {
	for i := range s.summaries {
		if s.summaries[i].ID == id {
			s.summaries[i].UpdatedAt = at
			break
		}
	}
}

func updateIn(d *Detail, messageID string, fn func(*Message), at time.Time) error {
	for i := range d.Messages {
		if d.Messages[i].ID == messageID {
			fn(&d.Messages[i])
			d.UpdatedAt = at
			return nil
		}
	}
	return errors.New("chat: message not found: " + messageID)
}

// insertAscending keeps the transcript sorted when a locally created message
// carries a timestamp older than the tail (clock skew between local clock and
// server timestamps).
func insertAscending(msgs []Message, msg Message) []Message {
	i := len(msgs)
	for i > 0 && msgs[i-1].Timestamp.After(msg.Timestamp) {
		i--
	}
	msgs = append(msgs, Message{})
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = msg
	return msgs
}

// titleFrom derives a conversation title from the first user message.
func titleFrom(content string) string {
	content = strings.TrimSpace(content)
	r := []rune(content)
	if len(r) <= 50 {
		return content
	}
	return string(r[:50]) + "..."
}
