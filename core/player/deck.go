package player

import (
	"context"
	"sync"
	"time"

	"FretLab/logger"
	"FretLab/model"
)

// Playback rate bounds shared by every deck. Rate changes are time-stretch:
// the decode facility preserves musical pitch, the deck only rescales its
// position clock.
const (
	MinRate = 0.25
	MaxRate = 1.5
)

// Deck owns one media source and exposes a uniform transport surface plus a
// stream of lifecycle/time events. Position is derived from the session
// clock rather than polled from a decoder, so a paused deck costs nothing.
//
// A deck is safe for concurrent use. Events are emitted after the deck's own
// lock is released, so handlers may call back into this or any other deck.
type Deck struct {
	name   string
	opener MediaOpener
	clock  Clock

	mu        sync.Mutex
	listeners *listenerTable

	sourceURL string
	peaks     *model.PeakSummary
	duration  float64

	ready    bool
	failed   bool
	playing  bool
	muted    bool
	rate     float64
	disposed bool

	// Position bookkeeping: position = basePos + elapsed-since-startedAt*rate
	// while playing, basePos otherwise. Every play/seek/rate change rebases.
	basePos   float64
	startedAt time.Time

	// Load generation guards against a stale async open completing after the
	// deck was re-loaded or disposed.
	gen        uint64
	loadCancel context.CancelFunc
}

// NewDeck creates a deck. The name only labels events and logs.
func NewDeck(name string, opener MediaOpener, clock Clock) *Deck {
	if clock == nil {
		clock = SystemClock()
	}
	return &Deck{
		name:      name,
		opener:    opener,
		clock:     clock,
		rate:      1.0,
		listeners: newListenerTable(),
	}
}

// Name returns the deck's label.
func (d *Deck) Name() string { return d.name }

// On registers an event handler. All handlers are dropped by Dispose.
func (d *Deck) On(t EventType, h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return
	}
	d.listeners.add(t, h)
}

// Load attaches a source to the deck, tearing down any previously loaded
// source first. The open happens asynchronously; the deck emits "ready" (or
// "loaderror") when it completes. Peaks are optional.
func (d *Deck) Load(url string, peaks *model.PeakSummary) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}

	d.teardownLocked()
	d.gen++
	gen := d.gen

	ctx, cancel := context.WithCancel(context.Background())
	d.loadCancel = cancel
	d.sourceURL = url
	d.peaks = peaks
	opener := d.opener
	d.mu.Unlock()

	go func() {
		info, err := opener.Open(ctx, url)
		d.finishLoad(gen, info, err, ctx.Err() != nil)
	}()
}

func (d *Deck) finishLoad(gen uint64, info *MediaInfo, err error, cancelled bool) {
	d.mu.Lock()
	if d.disposed || gen != d.gen || cancelled {
		// Teardown raced the open. Expected, not an error.
		d.mu.Unlock()
		return
	}

	if err != nil {
		d.failed = true
		d.ready = false
		url := d.sourceURL
		d.mu.Unlock()
		logger.Warn("track unavailable",
			logger.String("deck", d.name),
			logger.String("url", url),
			logger.ErrorField(err))
		d.emit(Event{Type: EventLoadError, Deck: d})
		return
	}

	d.duration = info.Duration
	if d.duration <= 0 && d.peaks != nil {
		d.duration = d.peaks.Duration()
	}
	d.ready = true
	d.basePos = 0
	d.mu.Unlock()

	d.emit(Event{Type: EventReady, Deck: d, Time: 0})
}

// Play starts playback. No-op while not ready or already playing.
func (d *Deck) Play() {
	d.mu.Lock()
	if !d.ready || d.playing || d.disposed {
		d.mu.Unlock()
		return
	}
	d.playing = true
	d.startedAt = d.clock.Now()
	d.mu.Unlock()
}

// Pause stops playback, keeping position. No-op if not playing.
func (d *Deck) Pause() {
	d.mu.Lock()
	if !d.playing {
		d.mu.Unlock()
		return
	}
	d.basePos = d.posLocked()
	d.playing = false
	d.mu.Unlock()
}

// SeekToTime jumps to t seconds, clamped to [0, duration]. Dropped while
// not ready. Emits "seeking".
func (d *Deck) SeekToTime(t float64) {
	d.seek(t, true)
}

// SeekToFraction jumps to p*duration for p in [0,1].
func (d *Deck) SeekToFraction(p float64) {
	d.mu.Lock()
	dur := d.duration
	d.mu.Unlock()
	d.seek(clampFloat(p, 0, 1)*dur, true)
}

// setPosition moves the play head without announcing a scrub. Used for loop
// restarts and slave realignment, which must not re-trigger the master's
// seek fan-out.
func (d *Deck) setPosition(t float64) {
	d.seek(t, false)
}

func (d *Deck) seek(t float64, scrub bool) {
	d.mu.Lock()
	if !d.ready || d.disposed {
		d.mu.Unlock()
		return
	}
	t = clampFloat(t, 0, d.duration)
	d.basePos = t
	d.startedAt = d.clock.Now()
	d.mu.Unlock()

	if scrub {
		d.emit(Event{Type: EventSeeking, Deck: d, Time: t})
	}
}

// SetPlaybackRate sets the time-stretch rate, clamped to [MinRate, MaxRate].
func (d *Deck) SetPlaybackRate(r float64) {
	d.mu.Lock()
	// Rebase so already-elapsed time keeps its old rate.
	d.basePos = d.posLocked()
	d.startedAt = d.clock.Now()
	d.rate = clampFloat(r, MinRate, MaxRate)
	d.mu.Unlock()
}

// PlaybackRate returns the current rate.
func (d *Deck) PlaybackRate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// SetMuted mutes or unmutes this deck only.
func (d *Deck) SetMuted(muted bool) {
	d.mu.Lock()
	d.muted = muted
	d.mu.Unlock()
}

// Muted reports the deck's mute flag.
func (d *Deck) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Ready reports whether duration is known and transport commands apply.
func (d *Deck) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// Failed reports whether the source could not be opened.
func (d *Deck) Failed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed
}

// IsPlaying reports whether the deck is playing. Always false while not
// ready.
func (d *Deck) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Duration returns the media duration in seconds (0 until ready).
func (d *Deck) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

// CurrentTime returns the play head position in seconds.
func (d *Deck) CurrentTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.posLocked()
}

// Peaks returns the amplitude summary attached at load, or nil.
func (d *Deck) Peaks() *model.PeakSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peaks
}

// SourceURL returns the loaded source.
func (d *Deck) SourceURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sourceURL
}

// posLocked computes the current position. Caller holds d.mu.
func (d *Deck) posLocked() float64 {
	pos := d.basePos
	if d.playing {
		pos += d.clock.Now().Sub(d.startedAt).Seconds() * d.rate
	}
	return clampFloat(pos, 0, d.duration)
}

// Tick emits a timeupdate for the current position, plus finish when the
// play head has reached the end of the media. The owning session drives
// ticks from a single timer.
func (d *Deck) Tick() {
	d.mu.Lock()
	if !d.ready || d.disposed {
		d.mu.Unlock()
		return
	}
	pos := d.posLocked()
	finished := d.playing && pos >= d.duration
	if finished {
		d.basePos = d.duration
		d.playing = false
	}
	d.mu.Unlock()

	d.emit(Event{Type: EventTimeUpdate, Deck: d, Time: pos})
	if finished {
		d.emit(Event{Type: EventFinish, Deck: d, Time: pos})
	}
}

// Interact announces a direct click/drag on this deck's waveform.
func (d *Deck) Interact() {
	d.emit(Event{Type: EventInteraction, Deck: d, Time: d.CurrentTime()})
}

// Dispose tears the deck down: cancels an in-flight load, drops every
// registered handler and releases the source. Safe to call multiple times;
// a dispose that races a load is a normal cancellation, not an error.
func (d *Deck) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.teardownLocked()
	d.disposed = true
	d.listeners.dispose()
	d.mu.Unlock()
}

// teardownLocked resets load state. Caller holds d.mu.
func (d *Deck) teardownLocked() {
	if d.loadCancel != nil {
		d.loadCancel()
		d.loadCancel = nil
	}
	d.ready = false
	d.failed = false
	d.playing = false
	d.basePos = 0
	d.duration = 0
	d.sourceURL = ""
	d.peaks = nil
}

// emit invokes handlers with no deck lock held.
func (d *Deck) emit(ev Event) {
	d.mu.Lock()
	handlers := d.listeners.get(ev.Type)
	d.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
