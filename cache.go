package ioc

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// fastCell caches the unkeyed factories of one closed service type, as seen
// by one registry at one revision.
type fastCell struct {
	reg       *registry
	revision  uint64
	factories []*Factory

	// single is set when exactly one factory is registered.
	single *Factory
}

// fastCells maps a closed reflect.Type to its *atomic.Pointer[fastCell].
// Cells are shared by all containers; a cell is only trusted by the registry
// that built it and only at the revision it was built at.
var fastCells sync.Map

func fastCellFor(t reflect.Type) *atomic.Pointer[fastCell] {
	if p, ok := fastCells.Load(t); ok {
		return p.(*atomic.Pointer[fastCell])
	}
	p, _ := fastCells.LoadOrStore(t, new(atomic.Pointer[fastCell]))
	return p.(*atomic.Pointer[fastCell])
}

// cachedFactories returns the unkeyed factories of t. A valid cell is read
// without taking any lock. Otherwise the cell is rebuilt under the registry
// read lock and published with a single atomic store. Another goroutine may
// briefly act on a cell one revision behind a concurrent mutation.
func (c *Container) cachedFactories(t reflect.Type) *fastCell {
	p := fastCellFor(t)
	reg := c.reg

	if cell := p.Load(); cell != nil && cell.reg == reg && cell.revision == reg.currentRevision() {
		c.stats.fastHits.Add(1)
		return cell
	}

	c.stats.fastMisses.Add(1)
	factories, revision := reg.snapshotWithRevision(t, nil)

	cell := &fastCell{reg: reg, revision: revision, factories: factories}
	if len(factories) == 1 {
		cell.single = factories[0]
	}
	p.Store(cell)

	return cell
}
