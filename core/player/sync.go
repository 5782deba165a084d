package player

import (
	"sync"
	"time"

	"FretLab/logger"
)

// ControllerState is the explicit transport state of a sync group.
type ControllerState int

const (
	StateIdle ControllerState = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
)

func (s ControllerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// DefaultLoopDebounce is the window after a loop restart during which a
// repeated region-exit is ignored. Near the boundary a coarse tick rate can
// observe the old position again right after the restart; without the guard
// the loop would thrash.
const DefaultLoopDebounce = 250 * time.Millisecond

// SyncController makes a group of decks behave as one transport. One deck is
// the master: it owns the region and is the only source of seek/interaction
// authority. Slaves are re-aligned to the master at discrete master events
// (pull-to-master), never on timeupdate, which would fight the playback
// clock and stutter.
type SyncController struct {
	master  *Deck
	regions *RegionManager
	clock   Clock

	mu           sync.Mutex
	slaves       []*Deck
	state        ControllerState
	loopEnabled  bool
	zoom         float64
	loopDebounce time.Duration
	lastLoop     time.Time
	onZoom       func(zoom float64)
}

// NewSyncController binds a master deck and a region manager into a group.
func NewSyncController(master *Deck, regions *RegionManager, clock Clock, loopDebounce time.Duration) *SyncController {
	if clock == nil {
		clock = SystemClock()
	}
	if loopDebounce <= 0 {
		loopDebounce = DefaultLoopDebounce
	}
	c := &SyncController{
		master:       master,
		regions:      regions,
		clock:        clock,
		state:        StateIdle,
		loopEnabled:  true,
		zoom:         1.0,
		loopDebounce: loopDebounce,
	}

	master.On(EventReady, func(Event) { c.onMasterReady() })
	master.On(EventSeeking, func(ev Event) { c.onMasterSeeking(ev.Time) })
	master.On(EventInteraction, func(Event) { c.onMasterInteraction() })
	master.On(EventTimeUpdate, func(ev Event) { c.onMasterTick(ev.Time) })
	master.On(EventFinish, func(Event) { c.onMasterFinish() })
	master.On(EventLoadError, func(Event) { c.onMasterLoadError() })

	if regions != nil {
		regions.SetClickSeekFunc(c.SeekAllAndPlay)
	}

	return c
}

// AddSlave attaches a slave deck. A slave that later fails to load simply
// stops accepting transport commands; the group keeps functioning.
func (c *SyncController) AddSlave(d *Deck) {
	c.mu.Lock()
	c.slaves = append(c.slaves, d)
	c.mu.Unlock()
}

// SetZoomObserver registers the callback receiving group zoom changes.
// Zoom affects rendering only, never decode or playback.
func (c *SyncController) SetZoomObserver(fn func(zoom float64)) {
	c.mu.Lock()
	c.onZoom = fn
	c.mu.Unlock()
}

// Master returns the master deck.
func (c *SyncController) Master() *Deck { return c.master }

// State returns the group transport state.
func (c *SyncController) State() ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkLoading moves Idle -> Loading when the facade kicks off deck loads.
func (c *SyncController) MarkLoading() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.state = StateLoading
	}
	c.mu.Unlock()
}

// LoopEnabled reports whether region exits restart playback.
func (c *SyncController) LoopEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loopEnabled
}

// SetLoopEnabled switches between loop-at-region-end and pause-at-region-end.
func (c *SyncController) SetLoopEnabled(enabled bool) {
	c.mu.Lock()
	c.loopEnabled = enabled
	c.mu.Unlock()
}

// Zoom returns the group zoom factor.
func (c *SyncController) Zoom() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

// PlayAll starts master and every slave back-to-back in the same pass, with
// no intervening waits; this is the point most vulnerable to drift.
func (c *SyncController) PlayAll() {
	c.mu.Lock()
	slaves := c.slavesLocked()
	c.mu.Unlock()

	c.master.Play()
	for _, s := range slaves {
		s.Play()
	}

	c.mu.Lock()
	if c.master.IsPlaying() {
		c.state = StatePlaying
	}
	c.mu.Unlock()
}

// PauseAll pauses master and every slave in the same pass.
func (c *SyncController) PauseAll() {
	c.mu.Lock()
	slaves := c.slavesLocked()
	c.mu.Unlock()

	c.master.Pause()
	for _, s := range slaves {
		s.Pause()
	}

	c.mu.Lock()
	if c.state == StatePlaying {
		c.state = StatePaused
	}
	c.mu.Unlock()
}

// SeekAll moves every deck to t without changing play state.
func (c *SyncController) SeekAll(t float64) {
	c.mu.Lock()
	slaves := c.slavesLocked()
	c.mu.Unlock()

	c.master.setPosition(t)
	for _, s := range slaves {
		s.setPosition(t)
	}
}

// SeekAllAndPlay jumps every deck to t and starts playback: the
// click-inside-region and external seekTo semantics.
func (c *SyncController) SeekAllAndPlay(t float64) {
	c.SeekAll(t)
	c.PlayAll()
}

// SetGroupRate applies a time-stretch rate to every deck in the same pass.
// Rate is group-wide; mute is per-deck and deliberately not broadcast.
func (c *SyncController) SetGroupRate(r float64) {
	c.mu.Lock()
	slaves := c.slavesLocked()
	c.mu.Unlock()

	c.master.SetPlaybackRate(r)
	for _, s := range slaves {
		s.SetPlaybackRate(r)
	}
}

// SetGroupZoom broadcasts a render zoom factor to every waveform view.
func (c *SyncController) SetGroupZoom(z float64) {
	c.mu.Lock()
	if z <= 0 {
		z = 1.0
	}
	c.zoom = z
	fn := c.onZoom
	c.mu.Unlock()

	if fn != nil {
		fn(z)
	}
}

// slavesLocked returns a copy of the slave list. Caller holds c.mu.
func (c *SyncController) slavesLocked() []*Deck {
	out := make([]*Deck, len(c.slaves))
	copy(out, c.slaves)
	return out
}

// ========== master event handlers ==========

func (c *SyncController) onMasterReady() {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateLoading {
		c.state = StateReady
	}
	c.mu.Unlock()
}

func (c *SyncController) onMasterLoadError() {
	c.mu.Lock()
	if c.state == StateLoading {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

// onMasterSeeking pulls every slave to the master's new position. This runs
// on discrete master events only; continuous timeupdates never re-seek
// slaves.
func (c *SyncController) onMasterSeeking(t float64) {
	c.mu.Lock()
	slaves := c.slavesLocked()
	c.mu.Unlock()

	for _, s := range slaves {
		s.setPosition(t)
	}
}

func (c *SyncController) onMasterInteraction() {
	c.onMasterSeeking(c.master.CurrentTime())
}

// onMasterTick runs the region-exit check against the master's position.
func (c *SyncController) onMasterTick(t float64) {
	if !c.master.IsPlaying() {
		return
	}

	region := c.regionSnapshot()
	if region == nil || t < region.End {
		return
	}

	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}
	// Debounce: a second exit observed right after a loop restart is the
	// same boundary crossing seen again through a coarse tick.
	if c.clock.Now().Sub(c.lastLoop) < c.loopDebounce {
		c.mu.Unlock()
		return
	}
	loop := c.loopEnabled
	if loop {
		c.lastLoop = c.clock.Now()
	}
	c.mu.Unlock()

	if loop {
		logger.Debug("region loop restart",
			logger.Float64("start", region.Start),
			logger.Float64("end", region.End))
		c.SeekAllAndPlay(region.Start)
	} else {
		c.PauseAll()
	}
}

func (c *SyncController) onMasterFinish() {
	c.mu.Lock()
	slaves := c.slavesLocked()
	c.state = StatePaused
	c.mu.Unlock()

	for _, s := range slaves {
		s.Pause()
	}
}

func (c *SyncController) regionSnapshot() *Region {
	if c.regions == nil {
		return nil
	}
	return c.regions.Region()
}
