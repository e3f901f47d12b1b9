package tui

import "github.com/charmbracelet/bubbles/viewport"

// Scroll continuity over the chat viewport. Two rules:
//
//  1. Follow the bottom only when the user was already there. A background
//     reply must not yank the view while older messages are being read.
//  2. When an older page is prepended, shift the offset by exactly the added
//     height so the line the user was reading stays put.

// bottomSlack is how close to the last line still counts as "at bottom".
const bottomSlack = 2

// NearTopThreshold is how close to the first line triggers a backward-page
// load.
const NearTopThreshold = 4

// Anchor captures the viewport geometry before a content mutation.
type Anchor struct {
	Lines  int
	Offset int
}

// CaptureAnchor records total content height and current offset.
func CaptureAnchor(vp viewport.Model) Anchor {
	return Anchor{Lines: vp.TotalLineCount(), Offset: vp.YOffset}
}

// RestoreAfterPrepend keeps the previously visible line fixed after taller
// content was set: the offset grows by the height delta.
func RestoreAfterPrepend(vp *viewport.Model, a Anchor) {
	delta := vp.TotalLineCount() - a.Lines
	if delta > 0 {
		vp.SetYOffset(a.Offset + delta)
	}
}

// WasAtBottom reports whether the viewport sat within bottomSlack lines of
// the end before a mutation.
func WasAtBottom(vp viewport.Model) bool {
	maxOffset := vp.TotalLineCount() - vp.Height
	if maxOffset <= 0 {
		return true
	}
	return vp.YOffset >= maxOffset-bottomSlack
}

// NearTop reports whether the viewport is close enough to the first line to
// warrant loading the next older page.
func NearTop(vp viewport.Model) bool {
	return vp.YOffset <= NearTopThreshold
}
