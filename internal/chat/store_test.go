package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"expense-cli/internal/api"
)

func testClock() func() time.Time {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestStore(svc *fakeService) *Store {
	store := NewStore(svc, NewPager(svc, 5, nil), nil)
	store.Now = testClock()
	ids := 0
	store.NewID = func() string {
		ids++
		return fmt.Sprintf("local-%d", ids)
	}
	return store
}

func wireMsg(id, role, content string, at time.Time) api.Message {
	return api.Message{ID: id, Role: role, Content: content, CreatedAt: at}
}

func TestLoadIsIdempotent(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a", Title: "first"}}
	store := newTestStore(svc)

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load again: %v", err)
	}
	if list, _, _, _ := svc.counts(); list != 1 {
		t.Fatalf("list calls = %d, want 1", list)
	}
}

func TestActivateTwiceMakesNoSecondNetworkCall(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a", Title: "first"}}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.pages[""] = api.MessagePage{Messages: []api.Message{
		wireMsg("m1", "user", "hi", base),
	}}
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	_, get1, page1, _ := svc.counts()

	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("re-Activate: %v", err)
	}
	_, get2, page2, _ := svc.counts()
	if get2 != get1 || page2 != page1 {
		t.Fatalf("re-activation made network calls: get %d->%d page %d->%d", get1, get2, page1, page2)
	}
}

func TestActivateAdoptsCachedConversation(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a"}, {ID: "b"}}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.pages[""] = api.MessagePage{Messages: []api.Message{
		wireMsg("m1", "user", "hi", base),
	}}
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate a: %v", err)
	}
	if err := store.Activate(context.Background(), "b"); err != nil {
		t.Fatalf("Activate b: %v", err)
	}
	_, _, pagesBefore, _ := svc.counts()

	// Returning to a: adopted from cache, no further page fetch.
	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate a again: %v", err)
	}
	if _, _, pagesAfter, _ := svc.counts(); pagesAfter != pagesBefore {
		t.Fatalf("cache adoption fetched a page: %d -> %d", pagesBefore, pagesAfter)
	}
	active, ok := store.Active()
	if !ok || active.ID != "a" || len(active.Messages) != 1 {
		t.Fatalf("unexpected active after cache adoption: %+v ok=%v", active, ok)
	}
}

func TestOrderingInvariantAcrossLoadPaginateAppend(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a"}}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	// Newest page arrives out of order; older page too.
	svc.pages[""] = api.MessagePage{
		Messages: []api.Message{
			wireMsg("m5", "assistant", "five", base.Add(5*time.Minute)),
			wireMsg("m4", "user", "four", base.Add(4*time.Minute)),
		},
		NextCursor: "c1",
	}
	svc.pages["c1"] = api.MessagePage{
		Messages: []api.Message{
			wireMsg("m2", "assistant", "two", base.Add(2*time.Minute)),
			wireMsg("m1", "user", "one", base.Add(1*time.Minute)),
		},
	}
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := store.LoadOlder(context.Background()); err != nil {
		t.Fatalf("LoadOlder: %v", err)
	}
	if _, err := store.AppendLocal(Message{Role: RoleUser, Content: "latest"}); err != nil {
		t.Fatalf("AppendLocal: %v", err)
	}

	active, _ := store.Active()
	for i := 1; i < len(active.Messages); i++ {
		if active.Messages[i].Timestamp.Before(active.Messages[i-1].Timestamp) {
			t.Fatalf("messages out of order at %d: %v before %v",
				i, active.Messages[i].Timestamp, active.Messages[i-1].Timestamp)
		}
	}
	if len(active.Messages) != 5 {
		t.Fatalf("message count = %d, want 5", len(active.Messages))
	}
}

func TestPaginationTerminates(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a"}}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.pages[""] = api.MessagePage{
		Messages:   []api.Message{wireMsg("m3", "user", "three", base.Add(3 * time.Minute))},
		NextCursor: "c1",
	}
	svc.pages["c1"] = api.MessagePage{
		Messages:   []api.Message{wireMsg("m2", "user", "two", base.Add(2 * time.Minute))},
		NextCursor: "c2",
	}
	svc.pages["c2"] = api.MessagePage{
		Messages: []api.Message{wireMsg("m1", "user", "one", base.Add(1 * time.Minute))},
	}
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	for i := 0; i < 2; i++ {
		if n, err := store.LoadOlder(context.Background()); err != nil || n != 1 {
			t.Fatalf("LoadOlder %d = (%d, %v), want (1, nil)", i, n, err)
		}
	}
	active, _ := store.Active()
	if active.HasMore {
		t.Fatal("HasMore still true after exhausting pages")
	}

	_, _, pagesBefore, _ := svc.counts()
	if n, err := store.LoadOlder(context.Background()); err != nil || n != 0 {
		t.Fatalf("exhausted LoadOlder = (%d, %v), want (0, nil)", n, err)
	}
	if _, _, pagesAfter, _ := svc.counts(); pagesAfter != pagesBefore {
		t.Fatal("exhausted LoadOlder still hit the network")
	}
}

func TestFirstUserMessageTitlesConversation(t *testing.T) {
	svc := newFakeService()
	store := newTestStore(svc)
	if _, err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	long := "how much did I spend on travel in March, and how does it compare to February?"
	if _, err := store.AppendLocal(Message{Role: RoleUser, Content: long}); err != nil {
		t.Fatalf("AppendLocal: %v", err)
	}
	active, _ := store.Active()
	want := string([]rune(long)[:50]) + "..."
	if active.Title != want {
		t.Fatalf("title = %q, want %q", active.Title, want)
	}
	if sums := store.Summaries(); sums[0].Title != want {
		t.Fatalf("summary title = %q, want %q", sums[0].Title, want)
	}
}

func TestRenameIsNotOptimistic(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a", Title: "before"}}
	svc.renameErr = fmt.Errorf("boom")
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := store.Rename(context.Background(), "a", "after"); err == nil {
		t.Fatal("Rename succeeded, want error")
	}
	if sums := store.Summaries(); sums[0].Title != "before" {
		t.Fatalf("title = %q after failed rename, want %q", sums[0].Title, "before")
	}
}

func TestDeleteActiveLeavesNoActiveSession(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a"}}
	svc.pages[""] = api.MessagePage{}
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if err := store.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if id := store.ActiveID(); id != "" {
		t.Fatalf("active id = %q after delete, want none", id)
	}
	if sums := store.Summaries(); len(sums) != 0 {
		t.Fatalf("summaries = %d after delete, want 0", len(sums))
	}
}

func TestMalformedRolesAreDroppedAtBoundary(t *testing.T) {
	svc := newFakeService()
	svc.conversations = []api.Conversation{{ID: "a"}}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.pages[""] = api.MessagePage{Messages: []api.Message{
		wireMsg("m1", "user", "ok", base),
		wireMsg("m2", "assistant_thinking", "never persisted", base.Add(time.Minute)),
		wireMsg("m3", "robot", "junk", base.Add(2*time.Minute)),
	}}
	store := newTestStore(svc)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Activate(context.Background(), "a"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	active, _ := store.Active()
	if len(active.Messages) != 1 || active.Messages[0].ID != "m1" {
		t.Fatalf("messages = %+v, want only m1", active.Messages)
	}
}
