package chat

import (
	"context"

	"go.uber.org/zap"
)

// DefaultPageSize is how many messages one history page holds.
const DefaultPageSize = 5

// Page is one processed slice of a conversation's history: messages sorted
// ascending by timestamp, plus the cursor needed for the next older page.
type Page struct {
	Messages []Message
	HasMore  bool
	Cursor   string
}

// Pager loads conversation history backward, page by page. The cursor is an
// opaque server token; it is echoed back verbatim, never inspected.
type Pager struct {
	svc      Service
	pageSize int
	log      *zap.Logger
}

func NewPager(svc Service, pageSize int, log *zap.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pager{svc: svc, pageSize: pageSize, log: log}
}

// LoadInitial fetches the newest page of a conversation.
func (p *Pager) LoadInitial(ctx context.Context, conversationID string) (Page, error) {
	return p.load(ctx, conversationID, "")
}

// LoadOlder fetches the page immediately preceding a previous page's cursor.
// Callers must check HasMore first and must hold off overlapping loads for
// the same conversation; the cursor only advances when the store adopts the
// returned page.
func (p *Pager) LoadOlder(ctx context.Context, conversationID, cursor string) (Page, error) {
	if cursor == "" {
		return Page{}, nil
	}
	return p.load(ctx, conversationID, cursor)
}

func (p *Pager) load(ctx context.Context, conversationID, cursor string) (Page, error) {
	wire, err := p.svc.MessagePage(ctx, conversationID, p.pageSize, cursor)
	if err != nil {
		return Page{}, err
	}

	page := Page{
		HasMore: wire.NextCursor != "",
		Cursor:  wire.NextCursor,
	}
	for _, w := range wire.Messages {
		msg, err := fromWire(w)
		if err != nil {
			p.log.Warn("dropping malformed message",
				zap.String("conversation", conversationID),
				zap.Error(err))
			continue
		}
		page.Messages = append(page.Messages, msg)
	}
	sortAscending(page.Messages)
	return page, nil
}

// mergeOlder prepends an older page onto an existing ascending transcript.
// Pages are disjoint by construction, but duplicates by id are filtered as a
// safety net against server retries.
func mergeOlder(older []Message, existing []Message) []Message {
	if len(older) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		if m.ID != "" {
			seen[m.ID] = struct{}{}
		}
	}
	merged := make([]Message, 0, len(older)+len(existing))
	for _, m := range older {
		if m.ID != "" {
			if _, dup := seen[m.ID]; dup {
				continue
			}
		}
		merged = append(merged, m)
	}
	merged = append(merged, existing...)
	return merged
}
