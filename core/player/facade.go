package player

import (
	"context"
	"sync"
	"time"

	"FretLab/logger"
	"FretLab/model"
)

// Mode selects the facade topology.
type Mode string

const (
	// ModeLesson pairs the guitar stem (master) with the vocal/talk stem
	// (slave).
	ModeLesson Mode = "lesson"
	// ModePractice is a single master deck, still with region support.
	ModePractice Mode = "practice"
)

// PeakFetcher resolves a stem's waveform peaks. Implementations must not
// fail: any transport or parse problem resolves to nil, which means "render
// from raw decode instead".
type PeakFetcher interface {
	FetchPeaks(ctx context.Context, lessonID, track string) *model.PeakSummary
}

// Options configure one facade session.
type Options struct {
	Mode     Mode
	LessonID string

	// Source URLs per stem. VocalsURL is ignored in practice mode.
	GuitarURL string
	VocalsURL string

	// InitialRegion re-creates a saved excerpt when the session opens. Both
	// decks are sought to its start once the master is ready.
	InitialRegion *Region
	// AutoPlay starts playback once the master is ready.
	AutoPlay bool
	// InitialVocalsMuted opens the session with the vocal deck muted.
	InitialVocalsMuted bool

	// TickInterval drives timeupdate emission. Zero means DefaultTickInterval.
	TickInterval time.Duration
	// LoopDebounce guards against loop-restart thrashing. Zero means
	// DefaultLoopDebounce.
	LoopDebounce time.Duration
}

// DefaultTickInterval matches the timeupdate cadence browsers use.
const DefaultTickInterval = 250 * time.Millisecond

// StateSnapshot is the read-only observable state the facade re-exposes.
type StateSnapshot struct {
	Ready        bool            `json:"ready"`
	IsPlaying    bool            `json:"isPlaying"`
	CurrentTime  float64         `json:"currentTime"`
	TotalTime    float64         `json:"totalTime"`
	HasSelection bool            `json:"hasSelection"`
	Region       *Region         `json:"region,omitempty"`
	Rate         float64         `json:"rate"`
	Zoom         float64         `json:"zoom"`
	LoopEnabled  bool            `json:"loopEnabled"`
	Controller   ControllerState `json:"-"`
}

// SessionEvent is what the facade pushes to its external consumer (the
// WebSocket session, a TUI, tests).
type SessionEvent struct {
	Type   EventType `json:"type"`
	Track  string    `json:"track,omitempty"`
	Time   float64   `json:"time,omitempty"`
	Region *Region   `json:"region,omitempty"`
}

// Facade composes the peak provider, the decks, the region manager and the
// sync controller into one externally consumed player. One facade session is
// its own arena: Close discards every deck, handler and pending fetch
// wholesale, so nothing leaks across lesson switches.
type Facade struct {
	opts    Options
	clock   Clock
	fetcher PeakFetcher

	master  *Deck
	slave   *Deck // nil in practice mode
	regions *RegionManager
	ctrl    *SyncController

	mu       sync.Mutex
	started  bool
	closed   bool
	pending  []func() // commands buffered until the master is ready
	eventFn  func(SessionEvent)
	selectFn func(*Region)

	fetchCancel context.CancelFunc
	tickStop    chan struct{}
}

// New builds a facade session. Call Start to begin loading; Close to tear
// down. The opener is shared by both decks.
func New(opts Options, fetcher PeakFetcher, opener MediaOpener, clock Clock) *Facade {
	if clock == nil {
		clock = SystemClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	f := &Facade{
		opts:    opts,
		clock:   clock,
		fetcher: fetcher,
		regions: NewRegionManager(),
	}

	f.master = NewDeck(model.TrackGuitar, opener, clock)
	f.ctrl = NewSyncController(f.master, f.regions, clock, opts.LoopDebounce)

	if opts.Mode == ModeLesson {
		f.slave = NewDeck(model.TrackVocals, opener, clock)
		f.ctrl.AddSlave(f.slave)
	}

	f.regions.SetSelectionObserver(f.onSelectionChanged)
	f.ctrl.SetZoomObserver(func(z float64) {
		f.pushEvent(SessionEvent{Type: "zoom", Time: z})
	})

	f.master.On(EventReady, func(Event) { f.onMasterReady() })
	f.wireDeckEvents(f.master)
	if f.slave != nil {
		f.slave.On(EventReady, func(Event) { f.onSlaveReady() })
		f.wireDeckEvents(f.slave)
	}

	return f
}

// wireDeckEvents forwards a deck's lifecycle/time events to the session
// consumer.
func (f *Facade) wireDeckEvents(d *Deck) {
	name := d.Name()
	d.On(EventReady, func(ev Event) {
		f.pushEvent(SessionEvent{Type: EventReady, Track: name, Time: ev.Deck.Duration()})
	})
	d.On(EventTimeUpdate, func(ev Event) {
		f.pushEvent(SessionEvent{Type: EventTimeUpdate, Track: name, Time: ev.Time})
	})
	d.On(EventSeeking, func(ev Event) {
		f.pushEvent(SessionEvent{Type: EventSeeking, Track: name, Time: ev.Time})
	})
	d.On(EventFinish, func(ev Event) {
		f.pushEvent(SessionEvent{Type: EventFinish, Track: name, Time: ev.Time})
	})
	d.On(EventLoadError, func(Event) {
		f.pushEvent(SessionEvent{Type: EventLoadError, Track: name})
	})
}

// OnEvent registers the sink receiving session events. Must be set before
// Start.
func (f *Facade) OnEvent(fn func(SessionEvent)) {
	f.mu.Lock()
	f.eventFn = fn
	f.mu.Unlock()
}

// OnSelectionChange registers the selection-changed callback, the only way
// the core communicates selection to external collaborators.
func (f *Facade) OnSelectionChange(fn func(*Region)) {
	f.mu.Lock()
	f.selectFn = fn
	f.mu.Unlock()
}

// Start fetches peaks and loads the decks. The two peak fetches run
// concurrently and independently: neither deck's construction waits for the
// other's fetch.
func (f *Facade) Start() {
	f.mu.Lock()
	if f.started || f.closed {
		f.mu.Unlock()
		return
	}
	f.started = true

	ctx, cancel := context.WithCancel(context.Background())
	f.fetchCancel = cancel
	f.tickStop = make(chan struct{})
	f.mu.Unlock()

	f.ctrl.MarkLoading()

	f.loadDeck(ctx, f.master, model.TrackGuitar, f.opts.GuitarURL)
	if f.slave != nil {
		if f.opts.InitialVocalsMuted {
			f.slave.SetMuted(true)
		}
		f.loadDeck(ctx, f.slave, model.TrackVocals, f.opts.VocalsURL)
	}

	go f.tickLoop()
}

// loadDeck fetches peaks for one stem and then loads its deck. A failed or
// cancelled fetch yields nil peaks; the deck loads regardless.
func (f *Facade) loadDeck(ctx context.Context, d *Deck, track, url string) {
	go func() {
		var peaks *model.PeakSummary
		if f.fetcher != nil {
			peaks = f.fetcher.FetchPeaks(ctx, f.opts.LessonID, track)
		}
		if ctx.Err() != nil {
			// Session was closed while fetching; the deck must not observe
			// anything from a stale fetch.
			return
		}
		d.Load(url, peaks)
	}()
}

// tickLoop drives timeupdate emission for every deck in the session.
func (f *Facade) tickLoop() {
	ticker := time.NewTicker(f.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.tickStop:
			return
		case <-ticker.C:
			f.master.Tick()
			if f.slave != nil {
				f.slave.Tick()
			}
		}
	}
}

// onMasterReady applies buffered intent: the injected initial region,
// autoplay and any commands queued before readiness, in order.
func (f *Facade) onMasterReady() {
	f.regions.SetBound(f.master.Duration())
	if r := f.opts.InitialRegion; r != nil {
		f.regions.SetRegion(r.Start, r.End)
		f.ctrl.SeekAll(r.Start)
	}
	if f.opts.AutoPlay {
		f.ctrl.PlayAll()
	}

	f.mu.Lock()
	queued := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, cmd := range queued {
		cmd()
	}

	logger.Debug("player session ready",
		logger.String("lessonId", f.opts.LessonID),
		logger.Float64("duration", f.master.Duration()))
}

// onSlaveReady pulls a late slave to wherever the master already is. The
// stems may resolve in either order; a slave that comes up second must not
// start from zero while the master is mid-lesson.
func (f *Facade) onSlaveReady() {
	slave := f.slave
	if slave == nil || !f.master.Ready() {
		return
	}
	slave.SetPlaybackRate(f.master.PlaybackRate())
	slave.setPosition(f.master.CurrentTime())
	if f.master.IsPlaying() {
		slave.Play()
	}
}

// enqueueOrRun runs cmd now when the master is ready, otherwise buffers it
// as pending intent to be replayed on the ready transition. Commands are
// never dropped for arriving early.
func (f *Facade) enqueueOrRun(cmd func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if !f.master.Ready() {
		f.pending = append(f.pending, cmd)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	cmd()
}

// ========== transport surface ==========

// Play starts synchronized playback (buffered until ready).
func (f *Facade) Play() {
	f.enqueueOrRun(f.ctrl.PlayAll)
}

// Pause pauses synchronized playback. Buffered like Play, so a play/pause
// pair issued before readiness replays in order and the pause wins.
func (f *Facade) Pause() {
	f.enqueueOrRun(f.ctrl.PauseAll)
}

// SeekTo jumps every deck to t and starts playback: the imperative
// jump-to-and-play entry point for external references (transcript lines,
// key points). Buffered until the master is ready.
func (f *Facade) SeekTo(t float64) {
	f.enqueueOrRun(func() { f.ctrl.SeekAllAndPlay(t) })
}

// Scrub seeks the master to t as a user-initiated scrub; slaves follow via
// the pull-to-master correction.
func (f *Facade) Scrub(t float64) {
	f.master.SeekToTime(t)
}

// ScrubFraction seeks the master to the fraction p of its duration.
func (f *Facade) ScrubFraction(p float64) {
	f.master.SeekToFraction(p)
}

// SetRate applies a group-wide time-stretch rate.
func (f *Facade) SetRate(r float64) {
	f.ctrl.SetGroupRate(r)
}

// SetZoom broadcasts a render zoom factor.
func (f *Facade) SetZoom(z float64) {
	f.ctrl.SetGroupZoom(z)
}

// SetLoopEnabled switches loop-at-region-end on or off.
func (f *Facade) SetLoopEnabled(enabled bool) {
	f.ctrl.SetLoopEnabled(enabled)
}

// SetTrackMuted mutes a single stem. Mute is per-deck: silencing the vocal
// track while the guitar plays is the isolate feature. Unknown tracks are
// ignored; so is the vocal track in practice mode.
func (f *Facade) SetTrackMuted(track string, muted bool) {
	switch track {
	case model.TrackGuitar:
		f.master.SetMuted(muted)
	case model.TrackVocals:
		if f.slave != nil {
			f.slave.SetMuted(muted)
		}
	}
}

// ========== region gestures (master waveform) ==========

// DragStart begins a drag-selection at t.
func (f *Facade) DragStart(t float64) {
	f.regions.DragStart(f.clampToMaster(t))
}

// DragUpdate extends the drag to t.
func (f *Facade) DragUpdate(t float64) {
	f.regions.DragUpdate(f.clampToMaster(t))
}

// DragRelease commits the dragged region.
func (f *Facade) DragRelease() {
	f.regions.DragRelease()
}

// ResizeRegion moves one edge of the active region.
func (f *Facade) ResizeRegion(edge RegionEdge, t float64) {
	f.regions.Resize(edge, f.clampToMaster(t))
}

// ClickAt handles a click on the master waveform. Inside the active region
// it seeks both decks to the region start and plays; outside, it is a plain
// scrub plus interaction.
func (f *Facade) ClickAt(t float64) {
	t = f.clampToMaster(t)
	if f.regions.ClickAt(t) {
		return
	}
	f.master.SeekToTime(t)
	f.master.Interact()
}

// ClearRegion drops the active region.
func (f *Facade) ClearRegion() {
	f.regions.Clear()
}

// SetRegion injects a region programmatically.
func (f *Facade) SetRegion(start, end float64) {
	f.regions.SetRegion(f.clampToMaster(start), f.clampToMaster(end))
}

func (f *Facade) clampToMaster(t float64) float64 {
	if dur := f.master.Duration(); dur > 0 && t > dur {
		return dur
	}
	if t < 0 {
		return 0
	}
	return t
}

// ========== observable state ==========

// Snapshot returns the read-only state the facade re-exposes to callers.
func (f *Facade) Snapshot() StateSnapshot {
	region := f.regions.Region()
	return StateSnapshot{
		Ready:        f.master.Ready(),
		IsPlaying:    f.master.IsPlaying(),
		CurrentTime:  f.master.CurrentTime(),
		TotalTime:    f.master.Duration(),
		HasSelection: region != nil,
		Region:       region,
		Rate:         f.master.PlaybackRate(),
		Zoom:         f.ctrl.Zoom(),
		LoopEnabled:  f.ctrl.LoopEnabled(),
		Controller:   f.ctrl.State(),
	}
}

// Master exposes the master deck (read-oriented: tests, peaks, snapshots).
func (f *Facade) Master() *Deck { return f.master }

// Slave exposes the slave deck, nil in practice mode.
func (f *Facade) Slave() *Deck { return f.slave }

// Controller exposes the sync controller.
func (f *Facade) Controller() *SyncController { return f.ctrl }

// Regions exposes the region manager.
func (f *Facade) Regions() *RegionManager { return f.regions }

func (f *Facade) onSelectionChanged(r *Region) {
	f.mu.Lock()
	fn := f.selectFn
	f.mu.Unlock()

	if fn != nil {
		fn(r)
	}
	f.pushEvent(SessionEvent{Type: "selection", Region: r})
}

func (f *Facade) pushEvent(ev SessionEvent) {
	f.mu.Lock()
	fn := f.eventFn
	closed := f.closed
	f.mu.Unlock()

	if fn != nil && !closed {
		fn(ev)
	}
}

// Close tears the session down: cancels pending peak fetches, stops the
// tick loop and disposes both decks. Safe to call multiple times; a close
// that races an in-flight load is a normal cancellation.
func (f *Facade) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	cancel := f.fetchCancel
	stop := f.tickStop
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stop != nil {
		close(stop)
	}

	f.master.Dispose()
	if f.slave != nil {
		f.slave.Dispose()
	}
}
