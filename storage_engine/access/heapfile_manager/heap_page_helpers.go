package heapfile

import (
	"HeapDB/storage_engine/page"
	"HeapDB/types"
	"encoding/binary"
)

// ─────────────────────────────────────────────────────────────────────────────
// Header accessors
// ─────────────────────────────────────────────────────────────────────────────

func getPageID(pg *page.Page, off int) types.PageID {
	return types.PageID(int64(binary.LittleEndian.Uint64(pg.Data[off:])))
}

func setPageID(pg *page.Page, off int, id types.PageID) {
	binary.LittleEndian.PutUint64(pg.Data[off:], uint64(id))
}

func GetCurPage(pg *page.Page) types.PageID {
	return getPageID(pg, heapOffCurPage)
}

func GetPrevPage(pg *page.Page) types.PageID {
	return getPageID(pg, heapOffPrevPage)
}

func SetPrevPage(pg *page.Page, id types.PageID) {
	setPageID(pg, heapOffPrevPage, id)
}

func GetNextPage(pg *page.Page) types.PageID {
	return getPageID(pg, heapOffNextPage)
}

func SetNextPage(pg *page.Page, id types.PageID) {
	setPageID(pg, heapOffNextPage, id)
}

func GetSlotCount(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[heapOffSlotCount:])
}
func setSlotCount(pg *page.Page, n uint16) {
	binary.LittleEndian.PutUint16(pg.Data[heapOffSlotCount:], n)
}

// RecordEndPtr is the first free byte after the last record.
func GetRecordEndPtr(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[heapOffRecordEndPtr:])
}
func setRecordEndPtr(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[heapOffRecordEndPtr:], v)
}

// SlotRegionStart moves left as slots are appended and right as trailing tombstones are trimmed.
func GetSlotRegionStart(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[heapOffSlotRegionStart:])
}
func setSlotRegionStart(pg *page.Page, v uint16) {
	binary.LittleEndian.PutUint16(pg.Data[heapOffSlotRegionStart:], v)
}

func GetNumRows(pg *page.Page) uint16 {
	return binary.LittleEndian.Uint16(pg.Data[heapOffNumRows:])
}
func setNumRows(pg *page.Page, n uint16) {
	binary.LittleEndian.PutUint16(pg.Data[heapOffNumRows:], n)
}

// ─────────────────────────────────────────────────────────────────────────────
// Free space
// ─────────────────────────────────────────────────────────────────────────────

// FreeSpace returns the largest record InsertRecord would accept.
//
//	available = SlotRegionStart - RecordEndPtr            (a tombstone slot can be reused)
//	available = SlotRegionStart - RecordEndPtr - SlotSize (otherwise)
func FreeSpace(pg *page.Page) int {
	available := int(GetSlotRegionStart(pg)) - int(GetRecordEndPtr(pg))
	if !hasTombstone(pg) {
		available -= SlotSize
	}
	if available < 0 {
		return 0
	}
	return available
}

// hasTombstone reports whether a deleted slot is waiting to be reused.
func hasTombstone(pg *page.Page) bool {
	for i := uint16(0); i < GetSlotCount(pg); i++ {
		if off, _ := readSlot(pg, i); off == 0 {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Slot directory
// ─────────────────────────────────────────────────────────────────────────────

// slotByteOffset returns where slot i begins; slot 0 is at the end of the page.
func slotByteOffset(pg *page.Page, i uint16) int {
	return len(pg.Data) - (int(i)+1)*SlotSize
}

func readSlot(pg *page.Page, i uint16) (offset, length uint16) {
	base := slotByteOffset(pg, i)
	return binary.LittleEndian.Uint16(pg.Data[base:]),
		binary.LittleEndian.Uint16(pg.Data[base+2:])
}

func writeSlot(pg *page.Page, i uint16, offset, length uint16) {
	base := slotByteOffset(pg, i)
	binary.LittleEndian.PutUint16(pg.Data[base:], offset)
	binary.LittleEndian.PutUint16(pg.Data[base+2:], length)
}

func IsSlotLive(pg *page.Page, i uint16) bool {
	if i >= GetSlotCount(pg) {
		return false
	}
	offset, _ := readSlot(pg, i)
	return offset != 0
}
