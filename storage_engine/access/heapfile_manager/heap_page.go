package heapfile

import (
	"HeapDB/storage_engine/page"
	"HeapDB/types"

	"github.com/pkg/errors"
)

/*
This file contains standalone functions operating on *page.Page for heap pages.
All functions take *page.Page as first argument since methods cannot be defined on
types from external packages. The page size is len(pg.Data).

Heap page binary layout (all values little-endian):

	Offset  Size  Field
	──────────────────────────────────────────────────────
	0       1     PageType        uint8  (PageTypeHeapData)
	1       8     CurPage         int64
	9       8     PrevPage        int64  -1 = head of the chain
	17      8     NextPage        int64  -1 = tail of the chain
	25      2     SlotCount       uint16 slot entries, live and tombstone
	27      2     RecordEndPtr    uint16 first free byte after the last record
	29      2     SlotRegionStart uint16 first byte of the slot directory
	31      2     NumRows         uint16 live records
	──────────────────────────────────────────────────────
	33            HeapHeaderSize

	[ header 33B ][ records → ][ free space ][ ← slot dir ]
	              ^             ^             ^
	      HeapHeaderSize  RecordEndPtr  SlotRegionStart

Slot i lives at PageSize - (i+1)*SlotSize and holds [ Offset uint16 ][ Length uint16 ].
Offset 0 marks a tombstone (records never start inside the header), so zero-length
records are legal. Record bytes are kept contiguous: a delete shifts the records
behind it left and fixes their offsets, slot numbers never change.
*/

const (
	heapOffPageType        = 0
	heapOffCurPage         = 1
	heapOffPrevPage        = 9
	heapOffNextPage        = 17
	heapOffSlotCount       = 25
	heapOffRecordEndPtr    = 27
	heapOffSlotRegionStart = 29
	heapOffNumRows         = 31

	HeapHeaderSize = 33

	SlotSize = types.SlotSize
)

// MaxRecordSize is the largest record an empty page of pageSize bytes accepts.
func MaxRecordSize(pageSize int) int {
	return pageSize - HeapHeaderSize - SlotSize
}

// InitHeapPage formats pg as an empty heap page with the given chain links.
func InitHeapPage(pg *page.Page, id, prev, next types.PageID) {
	clear(pg.Data)
	pg.Data[heapOffPageType] = byte(types.PageTypeHeapData)
	setPageID(pg, heapOffCurPage, id)
	SetPrevPage(pg, prev)
	SetNextPage(pg, next)
	setSlotCount(pg, 0)
	setRecordEndPtr(pg, HeapHeaderSize)
	setSlotRegionStart(pg, uint16(len(pg.Data)))
	setNumRows(pg, 0)
}

func IsHeapPage(pg *page.Page) bool {
	return types.PageType(pg.Data[heapOffPageType]) == types.PageTypeHeapData
}

// ─────────────────────────────────────────────────────────────────────────────
// Record operations
// ─────────────────────────────────────────────────────────────────────────────

// InsertRecord copies data into the page and returns its slot number.
// A tombstone slot is reused before the directory grows.
func InsertRecord(pg *page.Page, data []byte) (uint16, error) {
	slotCount := GetSlotCount(pg)
	slotNo := slotCount
	for i := uint16(0); i < slotCount; i++ {
		if off, _ := readSlot(pg, i); off == 0 {
			slotNo = i
			break
		}
	}

	gap := int(GetSlotRegionStart(pg)) - int(GetRecordEndPtr(pg))
	need := len(data)
	if slotNo == slotCount {
		need += SlotSize
	}
	if need > gap {
		return 0, errors.Wrapf(ErrSpaceNotAvailable, "page %d: need %d bytes, have %d", GetCurPage(pg), need, gap)
	}

	offset := GetRecordEndPtr(pg)
	copy(pg.Data[offset:], data)
	setRecordEndPtr(pg, offset+uint16(len(data)))

	if slotNo == slotCount {
		setSlotRegionStart(pg, GetSlotRegionStart(pg)-SlotSize)
		setSlotCount(pg, slotCount+1)
	}
	writeSlot(pg, slotNo, offset, uint16(len(data)))
	setNumRows(pg, GetNumRows(pg)+1)
	return slotNo, nil
}

// GetRecord returns a copy of the record in slotNo.
func GetRecord(pg *page.Page, slotNo uint16) ([]byte, error) {
	rec, err := recordBytes(pg, slotNo)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(rec))
	copy(out, rec)
	return out, nil
}

// UpdateRecord overwrites the record in slotNo. The length must not change.
func UpdateRecord(pg *page.Page, slotNo uint16, data []byte) error {
	rec, err := recordBytes(pg, slotNo)
	if err != nil {
		return err
	}
	if len(rec) != len(data) {
		return errors.Wrapf(ErrInvalidUpdate, "slot %d holds %d bytes, got %d", slotNo, len(rec), len(data))
	}
	copy(rec, data)
	return nil
}

// DeleteRecord removes the record in slotNo and closes the gap it leaves.
// Trailing tombstones are dropped from the slot directory.
func DeleteRecord(pg *page.Page, slotNo uint16) error {
	if !IsSlotLive(pg, slotNo) {
		return errors.Wrapf(ErrInvalidRID, "page %d slot %d", GetCurPage(pg), slotNo)
	}
	offset, length := readSlot(pg, slotNo)
	end := GetRecordEndPtr(pg)

	if length > 0 {
		copy(pg.Data[offset:], pg.Data[offset+length:end])
		clear(pg.Data[end-length : end])
		for i := uint16(0); i < GetSlotCount(pg); i++ {
			if off, l := readSlot(pg, i); off > offset {
				writeSlot(pg, i, off-length, l)
			}
		}
		setRecordEndPtr(pg, end-length)
	}
	writeSlot(pg, slotNo, 0, 0)
	setNumRows(pg, GetNumRows(pg)-1)

	count := GetSlotCount(pg)
	for count > 0 {
		if off, _ := readSlot(pg, count-1); off != 0 {
			break
		}
		count--
		setSlotRegionStart(pg, GetSlotRegionStart(pg)+SlotSize)
	}
	setSlotCount(pg, count)
	return nil
}

// FirstRecord returns the lowest live slot.
func FirstRecord(pg *page.Page) (uint16, bool) {
	return nextLive(pg, 0)
}

// NextRecord returns the first live slot after slotNo.
func NextRecord(pg *page.Page, slotNo uint16) (uint16, bool) {
	return nextLive(pg, int(slotNo)+1)
}

func nextLive(pg *page.Page, from int) (uint16, bool) {
	for i := from; i < int(GetSlotCount(pg)); i++ {
		if off, _ := readSlot(pg, uint16(i)); off != 0 {
			return uint16(i), true
		}
	}
	return 0, false
}

// recordBytes returns the record in place, it aliases pg.Data.
func recordBytes(pg *page.Page, slotNo uint16) ([]byte, error) {
	if !IsSlotLive(pg, slotNo) {
		return nil, errors.Wrapf(ErrInvalidRID, "page %d slot %d", GetCurPage(pg), slotNo)
	}
	offset, length := readSlot(pg, slotNo)
	return pg.Data[offset : offset+length], nil
}
