package chat

import (
	"sync"
	"time"
)

const (
	// PhraseInterval is how often the waiting phrase rotates.
	PhraseInterval = 4 * time.Second
	// DotInterval is the ellipsis animation tick.
	DotInterval = 500 * time.Millisecond
)

// thinkingPhrases rotate under the indicator while a question is outstanding.
// Pure perceived-latency dressing; no business meaning.
var thinkingPhrases = []string{
	"Looking through your expenses",
	"Crunching the numbers",
	"Summing things up",
	"Checking the ledgers",
	"Almost there",
}

// ThinkingView is a render snapshot of the indicator.
type ThinkingView struct {
	Active         bool
	ConversationID string
	Phrase         string
	Dots           int
}

// Thinking models the assistant's "composing a reply" lifecycle. It is Idle
// or Thinking for exactly one conversation; starting it for a new
// conversation cancels the previous run's timers. Stopping never cancels the
// underlying network request, only the animation.
type Thinking struct {
	mu        sync.Mutex
	convoID   string
	phraseIdx int
	dots      int
	alive     bool
	stop      chan struct{}

	// onChange fires after every visible state change so a UI can repaint.
	// May be nil. Called without the lock held.
	onChange func()
}

func NewThinking(onChange func()) *Thinking {
	return &Thinking{onChange: onChange}
}

// Start transitions to Thinking(conversationID), resetting the animation and
// replacing any previous run's timers.
func (t *Thinking) Start(conversationID string) {
	t.mu.Lock()
	t.stopLocked()
	t.convoID = conversationID
	t.phraseIdx = 0
	t.dots = 0
	t.alive = true
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go t.run(stop)
	t.notify()
}

// Stop transitions to Idle and cancels both timers.
func (t *Thinking) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
	t.notify()
}

// StopIf stops only when the indicator still belongs to conversationID. A
// newer send may have reassigned it; that run keeps its indicator.
func (t *Thinking) StopIf(conversationID string) {
	t.mu.Lock()
	if !t.alive || t.convoID != conversationID {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
	t.mu.Unlock()
	t.notify()
}

// View returns the current snapshot.
func (t *Thinking) View() ThinkingView {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.alive {
		return ThinkingView{}
	}
	return ThinkingView{
		Active:         true,
		ConversationID: t.convoID,
		Phrase:         thinkingPhrases[t.phraseIdx%len(thinkingPhrases)],
		Dots:           t.dots,
	}
}

// VisibleFor reports whether the indicator should render in the conversation
// currently on screen. A request for another conversation keeps running, it
// just isn't shown.
func (t *Thinking) VisibleFor(viewedConversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive && viewedConversationID != "" && t.convoID == viewedConversationID
}

func (t *Thinking) run(stop chan struct{}) {
	rotate := time.NewTicker(PhraseInterval)
	dots := time.NewTicker(DotInterval)
	defer rotate.Stop()
	defer dots.Stop()
	for {
		select {
		case <-stop:
			return
		case <-rotate.C:
			t.advancePhrase()
		case <-dots.C:
			t.advanceDots()
		}
	}
}

// advancePhrase and advanceDots check liveness before mutating: a tick that
// raced with Stop must not resurrect state.
func (t *Thinking) advancePhrase() {
	t.mu.Lock()
	if !t.alive {
		t.mu.Unlock()
		return
	}
	t.phraseIdx = (t.phraseIdx + 1) % len(thinkingPhrases)
	t.mu.Unlock()
	t.notify()
}

func (t *Thinking) advanceDots() {
	t.mu.Lock()
	if !t.alive {
		t.mu.Unlock()
		return
	}
	t.dots = (t.dots + 1) % 4
	t.mu.Unlock()
	t.notify()
}

// stopLocked cancels timers and resets to Idle. Callers hold mu.
func (t *Thinking) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.alive = false
	t.convoID = ""
}

func (t *Thinking) notify() {
	if t.onChange != nil {
		t.onChange()
	}
}
