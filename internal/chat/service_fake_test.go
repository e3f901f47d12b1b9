package chat

import (
	"context"
	"fmt"
	"sync"

	"expense-cli/internal/api"
)

// fakeService scripts the remote API for controller tests and counts calls.
type fakeService struct {
	mu sync.Mutex

	conversations []api.Conversation
	// pages is keyed by cursor; "" is the newest page.
	pages map[string]api.MessagePage

	askReply string
	askErr   error
	// askStarted/askRelease let a test hold a reply in flight.
	askStarted chan struct{}
	askRelease chan struct{}

	listCalls   int
	getCalls    int
	pageCalls   int
	createCalls int
	renameCalls int
	deleteCalls int
	askCalls    int

	renameErr error
	deleteErr error
	createErr error
}

func newFakeService() *fakeService {
	return &fakeService{pages: map[string]api.MessagePage{}}
}

func (f *fakeService) ListConversations(ctx context.Context) ([]api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]api.Conversation(nil), f.conversations...), nil
}

func (f *fakeService) CreateConversation(ctx context.Context, title string) (api.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return api.Conversation{}, f.createErr
	}
	c := api.Conversation{ID: fmt.Sprintf("conv-%d", f.createCalls), Title: title}
	f.conversations = append(f.conversations, c)
	return c, nil
}

func (f *fakeService) GetConversation(ctx context.Context, id string) (api.ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	for _, c := range f.conversations {
		if c.ID == id {
			return api.ConversationDetail{Conversation: c}, nil
		}
	}
	return api.ConversationDetail{}, api.ErrNotFound
}

func (f *fakeService) MessagePage(ctx context.Context, id string, limit int, cursor string) (api.MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++
	return f.pages[cursor], nil
}

func (f *fakeService) RenameConversation(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameCalls++
	return f.renameErr
}

func (f *fakeService) DeleteConversation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeService) Ask(ctx context.Context, question, conversationID string) (string, error) {
	f.mu.Lock()
	f.askCalls++
	started := f.askStarted
	release := f.askRelease
	reply, err := f.askReply, f.askErr
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.askStarted = nil
		f.mu.Unlock()
	}
	if release != nil {
		<-release
	}
	return reply, err
}

func (f *fakeService) counts() (list, get, page, ask int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.getCalls, f.pageCalls, f.askCalls
}
