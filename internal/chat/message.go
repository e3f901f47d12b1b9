package chat

import (
	"fmt"
	"sort"
	"time"

	"expense-cli/internal/api"
)

// Role is the enumerated author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleThinking marks the transient placeholder that occupies the reply's
	// slot while a question is outstanding. Never sent to or returned by the
	// server.
	RoleThinking Role = "assistant_thinking"
)

// ThinkingSentinel is the placeholder content of a RoleThinking message. It
// is an internal marker; the UI renders the live indicator instead.
const ThinkingSentinel = "__thinking__"

// Attachment is file metadata attached to a message.
type Attachment struct {
	Name string
	Size int64
}

// Message is one transcript entry. Timestamp drives ordering; transcripts are
// kept ascending by it after every mutation.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
}

// IsThinking reports whether m is the transient placeholder.
func (m Message) IsThinking() bool { return m.Role == RoleThinking }

// parseRole validates a wire role string into the enumerated type. The
// placeholder role is rejected here on purpose: the server must never emit it.
func parseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("chat: unknown message role %q", s)
	}
}

// fromWire maps a server message into the strict local shape. Messages with
// roles outside the enum are dropped by callers rather than trusted.
func fromWire(w api.Message) (Message, error) {
	role, err := parseRole(w.Role)
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		ID:        w.ID,
		Role:      role,
		Content:   w.Content,
		Timestamp: w.CreatedAt,
	}
	for _, a := range w.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{Name: a.Name, Size: a.Size})
	}
	return msg, nil
}

// sortAscending orders messages by timestamp, oldest first. The transport
// makes no ordering promise, so every batch fetch runs through this.
func sortAscending(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
