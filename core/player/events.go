package player

// EventType identifies a deck lifecycle or time event.
type EventType string

const (
	// EventReady fires once a deck knows its duration and can accept
	// transport commands.
	EventReady EventType = "ready"
	// EventTimeUpdate fires periodically while a deck is ticking.
	EventTimeUpdate EventType = "timeupdate"
	// EventSeeking fires on a user-initiated scrub.
	EventSeeking EventType = "seeking"
	// EventInteraction fires on a direct click/drag on this deck's waveform.
	EventInteraction EventType = "interaction"
	// EventFinish fires when playback reaches the end of the media.
	EventFinish EventType = "finish"
	// EventLoadError fires when a deck's source cannot be opened. The deck
	// stays in a non-ready terminal state; the event is informational.
	EventLoadError EventType = "loaderror"
)

// Event is a deck event. Time carries the deck position in seconds for
// time-related events.
type Event struct {
	Type EventType
	Deck *Deck
	Time float64
}

// EventHandler receives deck events. Handlers run synchronously on the
// goroutine that caused the transition; a deck never holds its own lock
// while invoking handlers.
type EventHandler func(Event)

// listenerTable is the owned per-deck subscription set. Dispose drops every
// handler at once so a discarded deck cannot leak callbacks into a new
// session.
type listenerTable struct {
	handlers map[EventType][]EventHandler
}

func newListenerTable() *listenerTable {
	return &listenerTable{handlers: make(map[EventType][]EventHandler)}
}

func (l *listenerTable) add(t EventType, h EventHandler) {
	if l.handlers == nil {
		return
	}
	l.handlers[t] = append(l.handlers[t], h)
}

func (l *listenerTable) get(t EventType) []EventHandler {
	if l.handlers == nil {
		return nil
	}
	hs := l.handlers[t]
	if len(hs) == 0 {
		return nil
	}
	out := make([]EventHandler, len(hs))
	copy(out, hs)
	return out
}

func (l *listenerTable) dispose() {
	l.handlers = nil
}
