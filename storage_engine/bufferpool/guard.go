package bufferpool

import (
	"HeapDB/storage_engine/page"
	"HeapDB/types"
)

// PageGuard holds one pin and releases it exactly once.
//
//	g, err := bp.PinGuard(id, false)
//	if err != nil { ... }
//	defer g.Release()
type PageGuard struct {
	bp       *BufferPool
	pg       *page.Page
	id       types.PageID
	dirty    bool
	released bool
}

func (bp *BufferPool) PinGuard(id types.PageID, emptyPage bool) (*PageGuard, error) {
	pg, err := bp.PinPage(id, emptyPage)
	if err != nil {
		return nil, err
	}
	return &PageGuard{bp: bp, pg: pg, id: id}, nil
}

// NewPageGuard is NewPage with the first page of the run held by a guard.
// New pages start dirty so the caller's initialization reaches disk on release.
func (bp *BufferPool) NewPageGuard(count int) (*PageGuard, error) {
	id, pg, err := bp.NewPage(count)
	if err != nil {
		return nil, err
	}
	return &PageGuard{bp: bp, pg: pg, id: id, dirty: true}, nil
}

func (g *PageGuard) ID() types.PageID {
	return g.id
}

func (g *PageGuard) Page() *page.Page {
	return g.pg
}

func (g *PageGuard) Data() []byte {
	return g.pg.Data
}

// MarkDirty makes Release write the page through.
func (g *PageGuard) MarkDirty() {
	g.dirty = true
}

// Release unpins the page. Calls after the first are no-ops.
func (g *PageGuard) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	return g.bp.UnpinPage(g.id, g.dirty)
}
