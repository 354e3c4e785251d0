package types

import "fmt"

// RID points to a specific record in a heap file
type RID struct {
	PageID PageID `json:"page_id"`
	SlotNo uint16 `json:"slot_no"` // Index in the slot directory
}

func NewRID(pageID PageID, slot uint16) RID {
	return RID{PageID: pageID, SlotNo: slot}
}

func (r RID) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageID, r.SlotNo)
}
