package chat

import (
	"testing"
	"time"
)

func TestThinkingStartStop(t *testing.T) {
	th := NewThinking(nil)
	if th.View().Active {
		t.Fatal("fresh indicator is active")
	}

	th.Start("c1")
	v := th.View()
	if !v.Active || v.ConversationID != "c1" {
		t.Fatalf("after Start: %+v", v)
	}
	if v.Phrase != thinkingPhrases[0] || v.Dots != 0 {
		t.Fatalf("animation not reset on Start: %+v", v)
	}

	th.Stop()
	if th.View().Active {
		t.Fatal("still active after Stop")
	}
}

func TestThinkingRestartResetsAnimation(t *testing.T) {
	th := NewThinking(nil)
	th.Start("c1")
	th.advancePhrase()
	th.advanceDots()
	th.advanceDots()

	th.Start("c2")
	v := th.View()
	if v.ConversationID != "c2" || v.Phrase != thinkingPhrases[0] || v.Dots != 0 {
		t.Fatalf("second Start did not reset: %+v", v)
	}
	th.Stop()
}

func TestStopIfChecksOwnership(t *testing.T) {
	th := NewThinking(nil)
	th.Start("c1")
	th.Start("c2")

	// c1's reply landing must not cancel c2's indicator.
	th.StopIf("c1")
	if v := th.View(); !v.Active || v.ConversationID != "c2" {
		t.Fatalf("StopIf(c1) disturbed c2's run: %+v", v)
	}

	th.StopIf("c2")
	if th.View().Active {
		t.Fatal("StopIf(c2) did not stop the owner's run")
	}
}

func TestVisibleForGatesByViewedConversation(t *testing.T) {
	th := NewThinking(nil)
	th.Start("c1")
	defer th.Stop()

	if !th.VisibleFor("c1") {
		t.Fatal("not visible in its own conversation")
	}
	if th.VisibleFor("c2") {
		t.Fatal("visible in an unrelated conversation")
	}
	if th.VisibleFor("") {
		t.Fatal("visible with no conversation on screen")
	}
}

func TestLateTickCannotResurrectStoppedIndicator(t *testing.T) {
	th := NewThinking(nil)
	th.Start("c1")
	th.Stop()

	// Ticks that raced with Stop arrive after it.
	th.advancePhrase()
	th.advanceDots()
	if v := th.View(); v.Active || v.Dots != 0 {
		t.Fatalf("stale tick mutated stopped indicator: %+v", v)
	}
}

func TestThinkingNotifiesOnChange(t *testing.T) {
	fired := make(chan struct{}, 8)
	th := NewThinking(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	th.Start("c1")
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Start did not notify")
	}
	th.Stop()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Stop did not notify")
	}
}

func TestDotsWrapAroundAtFour(t *testing.T) {
	th := NewThinking(nil)
	th.Start("c1")
	defer th.Stop()
	for i := 0; i < 4; i++ {
		th.advanceDots()
	}
	if v := th.View(); v.Dots != 0 {
		t.Fatalf("dots after four ticks = %d, want wrap to 0", v.Dots)
	}
}
