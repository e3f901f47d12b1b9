package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListConversations returns every conversation summary for the current user.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation creates a new conversation with the given title.
func (c *Client) CreateConversation(ctx context.Context, title string) (Conversation, error) {
	in := map[string]string{"title": title}
	var out Conversation
	if err := c.do(ctx, http.MethodPost, "/chat/conversations", in, &out); err != nil {
		return Conversation{}, err
	}
	if out.ID == "" {
		return Conversation{}, fmt.Errorf("api: create conversation returned no id")
	}
	return out, nil
}

// GetConversation fetches one conversation's metadata with inlined messages.
func (c *Client) GetConversation(ctx context.Context, id string) (ConversationDetail, error) {
	var out ConversationDetail
	err := c.do(ctx, http.MethodGet, "/chat/conversations/"+url.PathEscape(id), nil, &out)
	return out, err
}

// MessagePage fetches one backward page of a conversation's history. cursor
// is the opaque token from a previous page, or "" for the newest page. The
// server does not guarantee message order within a page.
func (c *Client) MessagePage(ctx context.Context, id string, limit int, cursor string) (MessagePage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/chat/conversations/" + url.PathEscape(id) + "/messages/scroll?" + q.Encode()
	var out MessagePage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// RenameConversation changes a conversation's title.
func (c *Client) RenameConversation(ctx context.Context, id, title string) error {
	in := map[string]string{"title": title}
	return c.do(ctx, http.MethodPatch, "/chat/conversations/"+url.PathEscape(id)+"/rename", in, nil)
}

// DeleteConversation removes a conversation and its history.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/conversations/"+url.PathEscape(id), nil, nil)
}
