package bufferpool

import "github.com/pkg/errors"

var (
	ErrBufferPoolExhausted = errors.New("all buffer pool frames are pinned")
	ErrPageNotResident     = errors.New("page not in buffer pool")
	ErrAlreadyUnpinned     = errors.New("page is already unpinned")
	ErrPagePinned          = errors.New("page is pinned")
	ErrInvalidPageID       = errors.New("invalid page id")
)

func IsBufferPoolExhausted(err error) bool {
	return errors.Is(err, ErrBufferPoolExhausted)
}

func IsPageNotResident(err error) bool {
	return errors.Is(err, ErrPageNotResident)
}

func IsAlreadyUnpinned(err error) bool {
	return errors.Is(err, ErrAlreadyUnpinned)
}

func IsPagePinned(err error) bool {
	return errors.Is(err, ErrPagePinned)
}
