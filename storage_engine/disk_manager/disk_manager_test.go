package diskmanager

import (
	"HeapDB/logger"
	"HeapDB/types"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.PageSize = 256
	opts.MaxPages = 32
	return opts
}

func openTestDisk(t *testing.T, dir string, opts Options) *DiskManager {
	t.Helper()
	logger.Discard()
	dm, err := NewDiskManager(filepath.Join(dir, "test.db"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	return dm
}

func pageWith(size int, fill byte) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fill
	}
	return buf
}

func TestAllocateFirstFitAndReuse(t *testing.T) {
	dm := openTestDisk(t, t.TempDir(), testOptions())

	a, err := dm.AllocatePages(3)
	require.NoError(t, err)
	assert.Equal(t, types.PageID(1), a, "page 0 is reserved for the directory")

	b, err := dm.AllocatePages(2)
	require.NoError(t, err)
	assert.Equal(t, types.PageID(4), b)

	require.NoError(t, dm.DeallocatePages(a, 3))

	// fits in the freed run
	c, err := dm.AllocatePages(2)
	require.NoError(t, err)
	assert.Equal(t, types.PageID(1), c)

	// does not fit in the single page left at 3, goes past the end
	d, err := dm.AllocatePages(2)
	require.NoError(t, err)
	assert.Equal(t, types.PageID(6), d)

	stats := dm.GetStats()
	assert.Equal(t, int64(7), stats.AllocatedPages)
	assert.Equal(t, int64(8), stats.HighWater)
}

func TestAllocateErrors(t *testing.T) {
	dm := openTestDisk(t, t.TempDir(), testOptions())

	_, err := dm.AllocatePages(0)
	assert.True(t, errors.Is(err, ErrInvalidRunSize))

	_, err = dm.AllocatePages(32)
	assert.True(t, errors.Is(err, ErrOutOfSpace))

	_, err = dm.AllocatePages(31)
	require.NoError(t, err)
	_, err = dm.AllocatePages(1)
	assert.True(t, errors.Is(err, ErrOutOfSpace))

	assert.True(t, errors.Is(dm.DeallocatePage(0), ErrPageNotAllocated))
	assert.True(t, errors.Is(dm.DeallocatePage(40), ErrPageNotAllocated))
}

func TestReadWriteRoundTrip(t *testing.T) {
	dm := openTestDisk(t, t.TempDir(), testOptions())

	id, err := dm.AllocatePages(1)
	require.NoError(t, err)

	// never written pages read back as zeros
	buf := make([]byte, 256)
	require.NoError(t, dm.ReadPage(id, buf))
	assert.Equal(t, make([]byte, 256), buf)

	want := pageWith(256, 0xAB)
	require.NoError(t, dm.WritePage(id, want))
	require.NoError(t, dm.ReadPage(id, buf))
	assert.Equal(t, want, buf)

	assert.True(t, errors.Is(dm.ReadPage(id, make([]byte, 100)), ErrInvalidPageSize))
	assert.True(t, errors.Is(dm.ReadPage(id+5, buf), ErrPageNotAllocated))
	assert.True(t, errors.Is(dm.WritePage(id+5, buf), ErrPageNotAllocated))
}

func TestChecksumDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	dm := openTestDisk(t, dir, testOptions())

	id, err := dm.AllocatePages(1)
	require.NoError(t, err)
	require.NoError(t, dm.WritePage(id, pageWith(256, 7)))

	f, err := os.OpenFile(filepath.Join(dir, "test.db"), os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{8}, int64(id)*(256+checksumSize)+10)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = dm.ReadPage(id, make([]byte, 256))
	assert.True(t, errors.Is(err, ErrChecksumMismatch), "got %v", err)
}

func TestReopenKeepsPagesAndDirectory(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions()

	dm, err := NewDiskManager(filepath.Join(dir, "test.db"), opts)
	require.NoError(t, err)
	id, err := dm.AllocatePages(2)
	require.NoError(t, err)
	require.NoError(t, dm.WritePage(id+1, pageWith(256, 3)))
	require.NoError(t, dm.AddFileEntry("students", id))
	require.NoError(t, dm.Close())

	dm = openTestDisk(t, dir, opts)
	first, ok, err := dm.GetFileEntry("students")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, first)

	buf := make([]byte, 256)
	require.NoError(t, dm.ReadPage(id+1, buf))
	assert.Equal(t, pageWith(256, 3), buf)

	next, err := dm.AllocatePages(1)
	require.NoError(t, err)
	assert.Equal(t, id+2, next, "allocated runs survive a reopen")
}

func TestReopenWithDifferentPageSizeFails(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewDiskManager(filepath.Join(dir, "test.db"), testOptions())
	require.NoError(t, err)
	require.NoError(t, dm.Close())

	opts := testOptions()
	opts.PageSize = 512
	_, err = NewDiskManager(filepath.Join(dir, "test.db"), opts)
	assert.True(t, errors.Is(err, ErrFormatMismatch))
}

func TestFileDirectory(t *testing.T) {
	dm := openTestDisk(t, t.TempDir(), testOptions())

	_, ok, err := dm.GetFileEntry("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dm.AddFileEntry("a", 5))
	assert.True(t, errors.Is(dm.AddFileEntry("a", 6), ErrFileEntryExists))
	assert.True(t, errors.Is(dm.AddFileEntry("", 6), ErrNameTooLong))
	assert.True(t, errors.Is(dm.AddFileEntry(string(make([]byte, MaxNameLen+1)), 6), ErrNameTooLong))

	require.NoError(t, dm.DeleteFileEntry("a"))
	_, ok, err = dm.GetFileEntry("a")
	require.NoError(t, err)
	assert.False(t, ok, "deleted entries are not served from the cache")
	assert.True(t, errors.Is(dm.DeleteFileEntry("a"), ErrFileEntryNotFound))
}

func TestFileDirectoryGrowsAcrossPages(t *testing.T) {
	dm := openTestDisk(t, t.TempDir(), testOptions())
	perPage := dm.dirCapacity()
	total := perPage*2 + 1

	for i := 0; i < total; i++ {
		require.NoError(t, dm.AddFileEntry(fmt.Sprintf("file_%02d", i), types.PageID(100+i)))
	}

	entries, err := dm.FileEntries()
	require.NoError(t, err)
	assert.Len(t, entries, total)

	// remove one from the head page, the slot is reused by the next add
	require.NoError(t, dm.DeleteFileEntry("file_00"))
	require.NoError(t, dm.AddFileEntry("late", 7))

	for i := 1; i < total; i++ {
		id, ok, err := dm.GetFileEntry(fmt.Sprintf("file_%02d", i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.PageID(100+i), id)
	}
	id, ok, err := dm.GetFileEntry("late")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.PageID(7), id)
}

func TestClosedDiskManager(t *testing.T) {
	dm := openTestDisk(t, t.TempDir(), testOptions())
	require.NoError(t, dm.Close())
	require.NoError(t, dm.Close())

	_, err := dm.AllocatePages(1)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(dm.ReadPage(0, make([]byte, 256)), ErrClosed))
}
