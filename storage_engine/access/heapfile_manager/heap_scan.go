package heapfile

import "HeapDB/types"

/*
HeapScan reads every record of a heap file in chain order.

The scan works on the page list as it was when the scan opened. It keeps the page holding
the next record pinned and releases it before pinning the following page, so a scan never
holds more than one pin. Running off the end or closing releases the last pin.
The file cannot be deleted while a scan is open. A scan that has run off the end holds
nothing and no longer counts as open.
*/

// settle moves the cursor to the first live record at or after (idx, nextSlot),
// crossing and unpinning pages as needed.
func (s *HeapScan) settle() error {
	for {
		if s.cur != nil {
			pg := s.cur.Page()
			slot, ok := FirstRecord(pg)
			if s.nextSlot > 0 {
				slot, ok = NextRecord(pg, uint16(s.nextSlot-1))
			}
			if ok {
				s.nextSlot = int(slot)
				s.hasNext = true
				return nil
			}
			err := s.cur.Release()
			s.cur = nil
			if err != nil {
				s.hasNext = false
				return err
			}
		}

		s.idx++
		if s.idx >= len(s.pageIDs) {
			s.hasNext = false
			s.unregister()
			return nil
		}
		g, err := s.hf.bp.PinGuard(s.pageIDs[s.idx], false)
		if err != nil {
			s.hasNext = false
			return err
		}
		s.cur = g
		s.nextSlot = 0
	}
}

// unregister drops the scan from the file's open scan count, once.
func (s *HeapScan) unregister() {
	if !s.registered {
		return
	}
	s.registered = false
	s.hf.mu.Lock()
	s.hf.openScans--
	s.hf.mu.Unlock()
}

// HasNext reports whether GetNext will return a record (or a pending error).
func (s *HeapScan) HasNext() bool {
	return !s.closed && (s.hasNext || s.err != nil)
}

// GetNext returns a copy of the next record and its RID. ok is false once the
// scan is exhausted, which is not an error.
func (s *HeapScan) GetNext() (rec []byte, rid types.RID, ok bool, err error) {
	if s.closed {
		return nil, types.RID{}, false, ErrScanClosed
	}
	if s.err != nil {
		err, s.err = s.err, nil
		return nil, types.RID{}, false, err
	}
	if !s.hasNext {
		return nil, types.RID{}, false, nil
	}
	// the record under the cursor may have been deleted since the last call
	if err := s.settle(); err != nil {
		return nil, types.RID{}, false, err
	}
	if !s.hasNext {
		return nil, types.RID{}, false, nil
	}

	slot := uint16(s.nextSlot)
	rec, err = GetRecord(s.cur.Page(), slot)
	if err != nil {
		return nil, types.RID{}, false, err
	}
	rid = types.NewRID(s.pageIDs[s.idx], slot)

	s.nextSlot++
	s.err = s.settle()
	return rec, rid, true, nil
}

// Close releases the pinned page, if any. Closing twice is a no-op.
func (s *HeapScan) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.hasNext = false

	var err error
	if s.cur != nil {
		err = s.cur.Release()
		s.cur = nil
	}

	s.unregister()
	return err
}
