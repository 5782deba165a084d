package player

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selectionLog records every selection-changed notification.
type selectionLog struct {
	mu      sync.Mutex
	changes []*Region
}

func (l *selectionLog) observer() func(*Region) {
	return func(r *Region) {
		l.mu.Lock()
		l.changes = append(l.changes, r)
		l.mu.Unlock()
	}
}

func (l *selectionLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.changes)
}

func (l *selectionLog) last() *Region {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.changes) == 0 {
		return nil
	}
	return l.changes[len(l.changes)-1]
}

func TestRegionDragCommit(t *testing.T) {
	m := NewRegionManager()
	var log selectionLog
	m.SetSelectionObserver(log.observer())

	assert.False(t, m.HasRegion())

	m.DragStart(10)
	m.DragUpdate(12)
	m.DragUpdate(15)
	assert.Nil(t, m.Region(), "a drag in flight is provisional")
	assert.Equal(t, 0, log.count())

	m.DragRelease()

	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 10.0, region.Start)
	assert.Equal(t, 15.0, region.End)
	assert.Equal(t, 1, log.count(), "commit notifies exactly once")
}

func TestRegionDragLeftOfAnchor(t *testing.T) {
	m := NewRegionManager()

	m.DragStart(20)
	m.DragUpdate(12)
	m.DragRelease()

	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 12.0, region.Start)
	assert.Equal(t, 20.0, region.End)
}

func TestRegionNarrowDragIsAClick(t *testing.T) {
	m := NewRegionManager()
	var log selectionLog
	m.SetSelectionObserver(log.observer())

	m.SetRegion(5, 10)
	require.Equal(t, 1, log.count())

	// A sub-threshold drag must leave the committed region untouched and
	// stay silent.
	m.DragStart(30)
	m.DragUpdate(30.01)
	m.DragRelease()

	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 5.0, region.Start)
	assert.Equal(t, 10.0, region.End)
	assert.Equal(t, 1, log.count())
}

func TestRegionSingleActiveInvariant(t *testing.T) {
	m := NewRegionManager()

	m.DragStart(1)
	m.DragUpdate(3)
	m.DragRelease()

	// The old region survives while the replacement drag is in flight.
	m.DragStart(40)
	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 1.0, region.Start)

	m.DragUpdate(45)
	m.DragRelease()

	region = m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 40.0, region.Start)
	assert.Equal(t, 45.0, region.End)
}

func TestRegionResizeSwapsCrossedEdges(t *testing.T) {
	m := NewRegionManager()
	var log selectionLog
	m.SetSelectionObserver(log.observer())

	m.SetRegion(10, 20)

	// Dragging the start handle past the end swaps them.
	m.Resize(EdgeStart, 25)
	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 20.0, region.Start)
	assert.Equal(t, 25.0, region.End)
	assert.Less(t, region.Start, region.End)

	m.Resize(EdgeEnd, 30)
	region = m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 30.0, region.End)

	assert.Equal(t, 3, log.count())
}

func TestRegionResizeKeepsMinimumSpan(t *testing.T) {
	m := NewRegionManager()
	m.SetRegion(10, 20)

	m.Resize(EdgeEnd, 10)
	region := m.Region()
	require.NotNil(t, region)
	assert.Less(t, region.Start, region.End)
}

func TestRegionResizeAtBoundKeepsEndInside(t *testing.T) {
	m := NewRegionManager()
	m.SetBound(30)
	m.SetRegion(20, 30)

	// Pulling the start handle almost onto the pinned end would normally
	// push the end out to preserve the minimum span; with the bound it is
	// the start that gives way.
	m.Resize(EdgeStart, 29.99)
	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 30.0, region.End)
	assert.InDelta(t, 30.0-minRegionSpan, region.Start, 1e-9)
}

func TestRegionSetRegionClampedToBound(t *testing.T) {
	m := NewRegionManager()
	m.SetBound(30)

	m.SetRegion(25, 40)
	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 25.0, region.Start)
	assert.Equal(t, 30.0, region.End)
}

func TestRegionResizeWithoutActiveRegionIsNoop(t *testing.T) {
	m := NewRegionManager()
	m.Resize(EdgeEnd, 30)
	assert.False(t, m.HasRegion())
}

func TestRegionSetRegionNormalizes(t *testing.T) {
	m := NewRegionManager()

	m.SetRegion(20, 10)
	region := m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 10.0, region.Start)
	assert.Equal(t, 20.0, region.End)

	m.SetRegion(-5, 3)
	region = m.Region()
	require.NotNil(t, region)
	assert.Equal(t, 0.0, region.Start)
}

func TestRegionClickInsideSeeksToStart(t *testing.T) {
	m := NewRegionManager()

	var sought []float64
	m.SetClickSeekFunc(func(start float64) {
		sought = append(sought, start)
	})

	m.SetRegion(10, 20)

	assert.True(t, m.ClickAt(15))
	require.Len(t, sought, 1)
	assert.Equal(t, 10.0, sought[0])

	// End is exclusive; outside clicks are not consumed.
	assert.False(t, m.ClickAt(20))
	assert.False(t, m.ClickAt(5))
	assert.Len(t, sought, 1)
}

func TestRegionClickWithoutRegion(t *testing.T) {
	m := NewRegionManager()
	m.SetClickSeekFunc(func(float64) { t.Fatal("no region, no seek command") })
	assert.False(t, m.ClickAt(5))
}

func TestRegionClear(t *testing.T) {
	m := NewRegionManager()
	var log selectionLog
	m.SetSelectionObserver(log.observer())

	m.SetRegion(1, 2)
	m.Clear()

	assert.False(t, m.HasRegion())
	require.Equal(t, 2, log.count())
	assert.Nil(t, log.last())

	// Clearing an already-empty manager stays silent.
	m.Clear()
	assert.Equal(t, 2, log.count())
}
