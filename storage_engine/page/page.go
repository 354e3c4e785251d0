package page

import "HeapDB/types"

/*
This contains the page struct, which is also the buffer pool frame.

Frames are created once when the buffer pool is built and live as long as the pool does,
only their identity and bytes change on eviction. Data is borrowed by whoever pinned the
page and must not be kept after the matching unpin.

A pin only keeps the frame from being evicted. Callers that share a page serialize their
writes themselves; HeapFile does it with its own mutex.
*/

type Page struct {
	ID       types.PageID // InvalidPageID while the frame holds no page
	Data     []byte
	PinCount int32
}

func NewFrame(pageSize int) *Page {
	return &Page{
		ID:   types.InvalidPageID,
		Data: make([]byte, pageSize),
	}
}

// Reset clears identity and bytes, leaving the buffer allocated.
func (p *Page) Reset() {
	p.ID = types.InvalidPageID
	p.PinCount = 0
	clear(p.Data)
}
