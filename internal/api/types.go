package api

import "time"

// Conversation is the summary record returned by the conversation list and
// create endpoints.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetail is a conversation with its most recent messages inlined.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages"`
}

// Message is a single transcript entry as the server returns it. Role is an
// arbitrary wire string here; callers validate it before use.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment carries file metadata only. Upload mechanics live server-side.
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// MessagePage is one backward page of a conversation's history. NextCursor is
// an opaque token; empty means no older page exists.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor"`
}

// Profile holds the basic user fields the login endpoint returns.
type Profile struct {
	UserLoginName string `json:"userloginname"`
	UserFirstName string `json:"userfirstname"`
	UserLastName  string `json:"userlastname"`
}

// LoginResult is the response of POST /auth/login.
type LoginResult struct {
	AccessToken string  `json:"access_token"`
	User        Profile `json:"user"`
}

// State is an Indian state the expense endpoints key on.
type State struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Expense is a single categorized expense row.
type Expense struct {
	ID                  string    `json:"id"`
	State               string    `json:"state"`
	EmbossingCenterName string    `json:"embossingCenterName"`
	Month               string    `json:"month"`
	Year                int       `json:"year"`
	Category            string    `json:"category"`
	Price               float64   `json:"price"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ExpenseForm is the payload for creating an expense.
type ExpenseForm struct {
	StateID             string  `json:"stateId"`
	EmbossingCenterName string  `json:"embossingCenterName"`
	Month               string  `json:"month"`
	Year                int     `json:"year"`
	Category            string  `json:"category"`
	Price               float64 `json:"price"`
}
