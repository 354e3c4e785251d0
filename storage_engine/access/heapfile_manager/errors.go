package heapfile

import "github.com/pkg/errors"

var (
	ErrRecordTooLarge    = errors.New("record is too large for a heap page")
	ErrSpaceNotAvailable = errors.New("not enough space on heap page")
	ErrInvalidRID        = errors.New("record id does not name a live record")
	ErrInvalidUpdate     = errors.New("update must keep the record length")
	ErrFileDeleted       = errors.New("heap file has been deleted")
	ErrFileInUse         = errors.New("heap file has open scans")
	ErrScanClosed        = errors.New("heap scan is closed")
	ErrCorruptChain      = errors.New("heap page chain is corrupt")
)

var ErrFileNotFound = errors.New("heap file not found")
