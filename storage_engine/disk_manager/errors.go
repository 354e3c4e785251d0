package diskmanager

import "github.com/pkg/errors"

var (
	ErrOutOfSpace        = errors.New("database file is out of space")
	ErrInvalidRunSize    = errors.New("invalid page run size")
	ErrPageNotAllocated  = errors.New("page is not allocated")
	ErrInvalidPageSize   = errors.New("buffer size does not match page size")
	ErrChecksumMismatch  = errors.New("page checksum mismatch")
	ErrFileEntryExists   = errors.New("file entry already exists")
	ErrFileEntryNotFound = errors.New("file entry not found")
	ErrNameTooLong       = errors.New("file name is empty or too long")
	ErrFormatMismatch    = errors.New("database was created with different page settings")
	ErrClosed            = errors.New("disk manager is closed")
)
