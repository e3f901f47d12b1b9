package api

import (
	"context"
	"net/http"
)

// Ask sends a natural-language question to the assistant for the given
// conversation and returns the reply text. The call blocks until the server
// has generated an answer, so pass a context with a deadline.
func (c *Client) Ask(ctx context.Context, question, conversationID string) (string, error) {
	in := map[string]string{
		"question": question,
		"convo_id": conversationID,
	}
	var out struct {
		Message string `json:"message"`
		Error   string `json:"error,omitempty"`
	}
	if err := c.do(ctx, http.MethodPost, "/sql/query", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}
