package player

import "sync"

// Region is a committed [start,end) time range on the master deck, used for
// selection, looping and click-to-seek. The presentation flags carry no
// semantics.
type Region struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Color     string  `json:"color,omitempty"`
	Draggable bool    `json:"draggable"`
	Resizable bool    `json:"resizable"`
}

// RegionEdge names the handle being resized.
type RegionEdge int

const (
	EdgeStart RegionEdge = iota
	EdgeEnd
)

// regionPhase is the tagged state of the region machine:
// noRegion -> dragging -> active -> (dragging | noRegion).
type regionPhase uint8

const (
	phaseNone regionPhase = iota
	phaseDragging
	phaseActive
)

// A drag narrower than this is a click, not a selection.
const minRegionSpan = 0.05

// RegionManager owns the zero-or-one active time range of a session and
// enforces the single-active-region invariant. Every change to the committed
// region goes through a single selection observer; a click inside the active
// region is forwarded as a seek-and-play command.
type RegionManager struct {
	mu    sync.Mutex
	phase regionPhase

	start, end float64
	anchor     float64

	// Upper limit regions may extend to (the master duration); 0 means
	// unbounded, used while the master is still loading.
	bound float64

	// Committed region preserved while a new drag is in flight; the old
	// region is discarded only when the drag commits.
	prevStart, prevEnd float64
	hadPrev            bool

	onSelection func(*Region)
	onClickSeek func(start float64)
}

// NewRegionManager creates an empty region manager.
func NewRegionManager() *RegionManager {
	return &RegionManager{}
}

// SetBound caps region edges at max, typically the master deck duration.
func (m *RegionManager) SetBound(max float64) {
	m.mu.Lock()
	m.bound = max
	m.mu.Unlock()
}

// SetSelectionObserver registers the single selection-changed callback.
// It receives the committed region, or nil after a clear.
func (m *RegionManager) SetSelectionObserver(fn func(*Region)) {
	m.mu.Lock()
	m.onSelection = fn
	m.mu.Unlock()
}

// SetClickSeekFunc registers the command issued when a click lands inside
// the active region.
func (m *RegionManager) SetClickSeekFunc(fn func(start float64)) {
	m.mu.Lock()
	m.onClickSeek = fn
	m.mu.Unlock()
}

// Region returns a snapshot of the committed region, or nil. A region being
// dragged is provisional and not reported.
func (m *RegionManager) Region() *Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.committedLocked()
}

func (m *RegionManager) committedLocked() *Region {
	switch m.phase {
	case phaseActive:
		return &Region{Start: m.start, End: m.end, Draggable: true, Resizable: true}
	case phaseDragging:
		if m.hadPrev {
			return &Region{Start: m.prevStart, End: m.prevEnd, Draggable: true, Resizable: true}
		}
	}
	return nil
}

// HasRegion reports whether a committed region exists.
func (m *RegionManager) HasRegion() bool {
	return m.Region() != nil
}

// DragStart begins tracking a provisional range anchored at t. Any committed
// region survives until the drag commits.
func (m *RegionManager) DragStart(t float64) {
	m.mu.Lock()
	if t < 0 {
		t = 0
	}
	if m.phase == phaseActive {
		m.prevStart, m.prevEnd = m.start, m.end
		m.hadPrev = true
	} else if m.phase == phaseNone {
		m.hadPrev = false
	}
	m.phase = phaseDragging
	m.anchor = t
	m.start, m.end = t, t
	m.mu.Unlock()
}

// DragUpdate extends the provisional range from the anchor toward t.
// Dragging left of the anchor is allowed; start/end stay ordered.
func (m *RegionManager) DragUpdate(t float64) {
	m.mu.Lock()
	if m.phase != phaseDragging {
		m.mu.Unlock()
		return
	}
	if t < 0 {
		t = 0
	}
	if t < m.anchor {
		m.start, m.end = t, m.anchor
	} else {
		m.start, m.end = m.anchor, t
	}
	m.mu.Unlock()
}

// DragRelease commits the provisional range as the single active region and
// discards any prior one. A drag narrower than minRegionSpan is treated as a
// click: the prior region (if any) is restored untouched.
func (m *RegionManager) DragRelease() {
	m.mu.Lock()
	if m.phase != phaseDragging {
		m.mu.Unlock()
		return
	}

	if m.end-m.start < minRegionSpan {
		if m.hadPrev {
			m.start, m.end = m.prevStart, m.prevEnd
			m.phase = phaseActive
		} else {
			m.phase = phaseNone
		}
		m.hadPrev = false
		m.mu.Unlock()
		return
	}

	m.phase = phaseActive
	m.hadPrev = false
	region := &Region{Start: m.start, End: m.end, Draggable: true, Resizable: true}
	fn := m.onSelection
	m.mu.Unlock()

	if fn != nil {
		fn(region)
	}
}

// Resize moves one edge of the active region to t. Dragging past the
// opposite edge swaps the handles so start < end always holds.
func (m *RegionManager) Resize(edge RegionEdge, t float64) {
	m.mu.Lock()
	if m.phase != phaseActive {
		m.mu.Unlock()
		return
	}
	if t < 0 {
		t = 0
	}

	switch edge {
	case EdgeStart:
		m.start = t
	case EdgeEnd:
		m.end = t
	}
	if m.start > m.end {
		m.start, m.end = m.end, m.start
	}
	if m.end-m.start < minRegionSpan {
		m.end = m.start + minRegionSpan
	}
	m.clampToBoundLocked()

	region := &Region{Start: m.start, End: m.end, Draggable: true, Resizable: true}
	fn := m.onSelection
	m.mu.Unlock()

	if fn != nil {
		fn(region)
	}
}

// clampToBoundLocked pulls an overshooting end back to the bound, shifting
// the start when the minimum span no longer fits. Resizing at the very end
// of the track must not push the region past the master duration.
func (m *RegionManager) clampToBoundLocked() {
	if m.bound <= 0 || m.end <= m.bound {
		return
	}
	m.end = m.bound
	if m.start > m.end-minRegionSpan {
		m.start = m.end - minRegionSpan
		if m.start < 0 {
			m.start = 0
		}
	}
}

// SetRegion injects a region programmatically (e.g. reopening a saved lick),
// replacing any existing one. Start/end are normalized so start < end.
func (m *RegionManager) SetRegion(start, end float64) {
	m.mu.Lock()
	if start > end {
		start, end = end, start
	}
	if start < 0 {
		start = 0
	}
	if end-start < minRegionSpan {
		end = start + minRegionSpan
	}
	m.phase = phaseActive
	m.hadPrev = false
	m.start, m.end = start, end
	m.clampToBoundLocked()
	region := &Region{Start: m.start, End: m.end, Draggable: true, Resizable: true}
	fn := m.onSelection
	m.mu.Unlock()

	if fn != nil {
		fn(region)
	}
}

// ClickAt handles a click (not a drag) on the master waveform at t. A click
// inside the active region is a rehearsal-mark command: seek to the region
// start and play. Returns true when the click was consumed that way.
func (m *RegionManager) ClickAt(t float64) bool {
	m.mu.Lock()
	if m.phase != phaseActive || t < m.start || t >= m.end {
		m.mu.Unlock()
		return false
	}
	start := m.start
	fn := m.onClickSeek
	m.mu.Unlock()

	if fn != nil {
		fn(start)
	}
	return true
}

// Clear drops any region and notifies the observer with nil.
func (m *RegionManager) Clear() {
	m.mu.Lock()
	had := m.phase != phaseNone || m.hadPrev
	m.phase = phaseNone
	m.hadPrev = false
	fn := m.onSelection
	m.mu.Unlock()

	if had && fn != nil {
		fn(nil)
	}
}
