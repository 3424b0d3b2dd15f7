// Package gate models the focus policy: a stream shown full-screen is taken
// out of the background snapshot polling set and fed through the uncapped
// video_feed proxy instead.
package gate

import "sync"

// Mode selects what focusing a stream suspends.
type Mode int

const (
	// ModeExcludeFocused drops only the focused stream from the sweep.
	ModeExcludeFocused Mode = iota
	// ModeSuspendAll pauses background snapshot polling entirely while any
	// stream is focused.
	ModeSuspendAll
)

// ViewGate tracks the single focused stream. Exactly one stream may be
// focused at a time; focusing another replaces the previous focus.
type ViewGate struct {
	mode Mode

	mu      sync.Mutex
	focused string
}

func New(mode Mode) *ViewGate {
	return &ViewGate{mode: mode}
}

// Focus marks streamID as the exclusive focused view.
func (g *ViewGate) Focus(streamID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.focused = streamID
}

// Unfocus clears the focused view, re-admitting the stream to the next sweep.
func (g *ViewGate) Unfocus() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.focused = ""
}

// UnfocusIf clears the focus only if streamID still holds it. Два
// одновременных фида перехватывают фокус друг у друга: закрытие старого
// не должно снимать фокус с более нового.
func (g *ViewGate) UnfocusIf(streamID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.focused == streamID {
		g.focused = ""
	}
}

// Focused returns the focused stream id and whether one is set.
func (g *ViewGate) Focused() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.focused, g.focused != ""
}

// Allows reports whether streamID may be admitted to a snapshot sweep.
func (g *ViewGate) Allows(streamID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.focused == "" {
		return true
	}
	if g.mode == ModeSuspendAll {
		return false
	}
	return streamID != g.focused
}
