package types

const (
	DefaultPageSize = 1024 // bytes per page unless configured otherwise
	SlotSize        = 4    // 4 bytes per slot entry (offset: 2B, length: 2B)
)

// PageID identifies one fixed-size page in the database file.
type PageID int64

// InvalidPageID is the "no page" sentinel used in page links and empty lookups.
const InvalidPageID PageID = -1

func (id PageID) IsValid() bool {
	return id >= 0
}

type PageType uint8

const (
	PageTypeUnknown PageType = iota
	PageTypeHeapData
	PageTypeDirectory
)

func (t PageType) String() string {
	switch t {
	case PageTypeHeapData:
		return "heap"
	case PageTypeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}
