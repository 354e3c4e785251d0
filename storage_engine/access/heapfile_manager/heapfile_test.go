package heapfile

import (
	"HeapDB/logger"
	"HeapDB/storage_engine/bufferpool"
	diskmanager "HeapDB/storage_engine/disk_manager"
	"HeapDB/types"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 256

// 50 byte records take 54 bytes with their slot, four fit on a 256 byte page
const (
	fixedRecordLen = 50
	recordsPerPage = 4
)

type testEnv struct {
	dbPath string
	dm     *diskmanager.DiskManager
	bp     *bufferpool.BufferPool
}

func newTestEnv(t *testing.T, frames int) *testEnv {
	t.Helper()
	logger.Discard()
	env := &testEnv{dbPath: filepath.Join(t.TempDir(), "heap.db")}
	env.open(t, frames)
	return env
}

func (env *testEnv) open(t *testing.T, frames int) {
	t.Helper()
	opts := diskmanager.DefaultOptions()
	opts.PageSize = testPageSize
	opts.MaxPages = 256
	dm, err := diskmanager.NewDiskManager(env.dbPath, opts)
	require.NoError(t, err)
	t.Cleanup(func() { dm.Close() })
	env.dm = dm
	env.bp = bufferpool.NewBufferPool(frames, dm)
}

// reopen closes the database and opens it again with a fresh buffer pool.
func (env *testEnv) reopen(t *testing.T, frames int) {
	t.Helper()
	require.NoError(t, env.bp.FlushAllPages())
	require.NoError(t, env.dm.Close())
	env.open(t, frames)
}

func fixedRecord(i int) []byte {
	rec := make([]byte, fixedRecordLen)
	copy(rec, fmt.Sprintf("row-%04d", i))
	return rec
}

func assertNoPins(t *testing.T, bp *bufferpool.BufferPool) {
	t.Helper()
	assert.Equal(t, 0, bp.GetStats().Pinned, "every pin was released")
}

func TestInsertSelectRoundTrip(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "students")
	require.NoError(t, err)

	rows := []string{"Alice|20|A", "Bob|21|B", "Charlie|22|A", "Diana|19|C", "Eve|20|B", "", "Frank|21|A"}
	rids := make([]types.RID, len(rows))
	for i, row := range rows {
		rids[i], err = hf.Insert([]byte(row))
		require.NoError(t, err)
	}
	assert.Equal(t, len(rows), hf.RecordCount())

	for i, row := range rows {
		got, err := hf.Select(rids[i])
		require.NoError(t, err)
		assert.Equal(t, row, string(got))
	}
	assertNoPins(t, env.bp)
}

func TestNewFileHasOneEmptyPage(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "empty")
	require.NoError(t, err)

	assert.Equal(t, 1, hf.PageCount())
	free, ok := hf.FreeSpace(hf.PageIDs()[0])
	assert.True(t, ok)
	assert.Equal(t, MaxRecordSize(testPageSize), free)

	head, ok, err := env.dm.GetFileEntry("empty")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hf.PageIDs()[0], head)
}

func TestFileGrowsByOnePageWhenFull(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "grow")
	require.NoError(t, err)

	for i := 0; i < recordsPerPage; i++ {
		_, err := hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, hf.PageCount())

	rid, err := hf.Insert(fixedRecord(recordsPerPage))
	require.NoError(t, err)
	assert.Equal(t, 2, hf.PageCount())
	assert.Equal(t, hf.PageIDs()[1], rid.PageID)

	// chain links on disk
	ids := hf.PageIDs()
	pg, err := env.bp.PinPage(ids[0], false)
	require.NoError(t, err)
	assert.Equal(t, ids[1], GetNextPage(pg))
	require.NoError(t, env.bp.UnpinPage(ids[0], false))

	pg, err = env.bp.PinPage(ids[1], false)
	require.NoError(t, err)
	assert.Equal(t, ids[0], GetPrevPage(pg))
	assert.Equal(t, types.InvalidPageID, GetNextPage(pg))
	require.NoError(t, env.bp.UnpinPage(ids[1], false))
}

func TestInsertReusesSpaceAfterDelete(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "reuse")
	require.NoError(t, err)

	rids := make([]types.RID, recordsPerPage)
	for i := range rids {
		rids[i], err = hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}
	require.NoError(t, hf.Delete(rids[1]))
	assert.Equal(t, recordsPerPage-1, hf.RecordCount())

	rid, err := hf.Insert(fixedRecord(99))
	require.NoError(t, err)
	assert.Equal(t, 1, hf.PageCount(), "no new page was needed")
	assert.Equal(t, rids[1], rid, "the freed slot is reused")

	got, err := hf.Select(rids[2])
	require.NoError(t, err)
	assert.Equal(t, fixedRecord(2), got, "other records keep their RIDs")
}

func TestInsertReusesTombstoneOnTightPage(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "tight")
	require.NoError(t, err)

	// 51 byte records leave less slack than one slot entry
	rec := make([]byte, 51)
	rids := make([]types.RID, 4)
	for i := range rids {
		rids[i], err = hf.Insert(rec)
		require.NoError(t, err)
	}
	require.Equal(t, 1, hf.PageCount())
	require.NoError(t, hf.Delete(rids[1]))

	free, ok := hf.FreeSpace(rids[1].PageID)
	require.True(t, ok)
	assert.GreaterOrEqual(t, free, len(rec))

	rid, err := hf.Insert(rec)
	require.NoError(t, err)
	assert.Equal(t, rids[1], rid)
	assert.Equal(t, 1, hf.PageCount(), "no new page was needed")
}

func TestInsertTooLarge(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "big")
	require.NoError(t, err)

	_, err = hf.Insert(make([]byte, MaxRecordSize(testPageSize)+1))
	assert.True(t, errors.Is(err, ErrRecordTooLarge))
	assert.Equal(t, 0, hf.RecordCount())

	rid, err := hf.Insert(make([]byte, MaxRecordSize(testPageSize)))
	require.NoError(t, err)
	assert.Equal(t, hf.PageIDs()[0], rid.PageID, "a maximal record fits on an empty page")
}

func TestSelectUpdateDeleteErrors(t *testing.T) {
	env := newTestEnv(t, 4)
	hf, err := OpenHeapFile(env.bp, env.dm, "errs")
	require.NoError(t, err)

	rid, err := hf.Insert([]byte("Grace|20|B"))
	require.NoError(t, err)

	_, err = hf.Select(types.NewRID(rid.PageID, 5))
	assert.True(t, errors.Is(err, ErrInvalidRID))
	_, err = hf.Select(types.NewRID(rid.PageID+100, 0))
	assert.True(t, errors.Is(err, ErrInvalidRID))

	assert.True(t, errors.Is(hf.Update(rid, []byte("Grace|20")), ErrInvalidUpdate))
	require.NoError(t, hf.Update(rid, []byte("Grace|21|B")))
	got, err := hf.Select(rid)
	require.NoError(t, err)
	assert.Equal(t, "Grace|21|B", string(got))

	require.NoError(t, hf.Delete(rid))
	_, err = hf.Select(rid)
	assert.True(t, errors.Is(err, ErrInvalidRID))
	assert.True(t, errors.Is(hf.Delete(rid), ErrInvalidRID))
	assert.Equal(t, 0, hf.RecordCount())
	assertNoPins(t, env.bp)
}

func TestReopenRebuildsState(t *testing.T) {
	env := newTestEnv(t, 3)
	hf, err := OpenHeapFile(env.bp, env.dm, "persist")
	require.NoError(t, err)

	const n = 3*recordsPerPage + 2
	rids := make([]types.RID, n)
	for i := 0; i < n; i++ {
		rids[i], err = hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}
	require.NoError(t, hf.Delete(rids[0]))
	pages := hf.PageIDs()
	free, _ := hf.FreeSpace(pages[0])

	env.reopen(t, 3)
	hf, err = OpenHeapFile(env.bp, env.dm, "persist")
	require.NoError(t, err)

	assert.Equal(t, n-1, hf.RecordCount())
	assert.Equal(t, pages, hf.PageIDs())
	got, ok := hf.FreeSpace(pages[0])
	assert.True(t, ok)
	assert.Equal(t, free, got)

	rec, err := hf.Select(rids[n-1])
	require.NoError(t, err)
	assert.Equal(t, fixedRecord(n-1), rec)
}

func TestScanReturnsEveryRecordOnce(t *testing.T) {
	env := newTestEnv(t, 3)
	hf, err := OpenHeapFile(env.bp, env.dm, "scan")
	require.NoError(t, err)

	want := make(map[types.RID][]byte)
	var rids []types.RID
	for i := 0; i < 5*recordsPerPage; i++ {
		rid, err := hf.Insert(fixedRecord(i))
		require.NoError(t, err)
		want[rid] = fixedRecord(i)
		rids = append(rids, rid)
	}
	// empty the second page completely and thin out the others
	for _, rid := range rids {
		if rid.PageID == hf.PageIDs()[1] || rid.SlotNo == 0 {
			require.NoError(t, hf.Delete(rid))
			delete(want, rid)
		}
	}

	scan, err := hf.OpenScan()
	require.NoError(t, err)
	got := make(map[types.RID][]byte)
	for scan.HasNext() {
		rec, rid, ok, err := scan.GetNext()
		require.NoError(t, err)
		require.True(t, ok)
		_, dup := got[rid]
		require.False(t, dup, "record %s returned twice", rid)
		got[rid] = rec
	}
	_, _, ok, err := scan.GetNext()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, want, got)
	assertNoPins(t, env.bp)
	require.NoError(t, scan.Close())
	assert.Equal(t, 0, hf.OpenScans())
}

func TestScanHoldsOnePinAndCloseReleasesIt(t *testing.T) {
	env := newTestEnv(t, 3)
	hf, err := OpenHeapFile(env.bp, env.dm, "scanpin")
	require.NoError(t, err)
	for i := 0; i < 3*recordsPerPage; i++ {
		_, err := hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}

	scan, err := hf.OpenScan()
	require.NoError(t, err)
	for i := 0; i < recordsPerPage+1; i++ {
		_, _, ok, err := scan.GetNext()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, env.bp.GetStats().Pinned)
	}

	require.NoError(t, scan.Close())
	require.NoError(t, scan.Close())
	assertNoPins(t, env.bp)

	_, _, _, err = scan.GetNext()
	assert.True(t, errors.Is(err, ErrScanClosed))
	assert.False(t, scan.HasNext())
}

func TestScanOfEmptyFile(t *testing.T) {
	env := newTestEnv(t, 2)
	hf := CreateTempHeapFile(env.bp)

	scan, err := hf.OpenScan()
	require.NoError(t, err)
	assert.False(t, scan.HasNext())
	assert.Equal(t, 0, hf.OpenScans())
	_, _, ok, err := scan.GetNext()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, scan.Close())
}

func TestDrainedScanDoesNotBlockDelete(t *testing.T) {
	env := newTestEnv(t, 2)
	hf := CreateTempHeapFile(env.bp)
	_, err := hf.Insert([]byte("only"))
	require.NoError(t, err)

	scan, err := hf.OpenScan()
	require.NoError(t, err)
	assert.Equal(t, 1, hf.OpenScans())

	_, _, ok, err := scan.GetNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, scan.HasNext())
	assert.Equal(t, 0, hf.OpenScans(), "an exhausted scan is no longer open")
	assertNoPins(t, env.bp)

	require.NoError(t, hf.Close())
	assert.True(t, hf.IsDeleted())

	// closing afterwards is still fine and does not go negative
	require.NoError(t, scan.Close())
	assert.Equal(t, 0, hf.OpenScans())
}

func TestForEach(t *testing.T) {
	env := newTestEnv(t, 3)
	hf, err := OpenHeapFile(env.bp, env.dm, "foreach")
	require.NoError(t, err)
	for i := 0; i < 2*recordsPerPage; i++ {
		_, err := hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}

	count := 0
	require.NoError(t, hf.ForEach(func(_ types.RID, _ []byte) error {
		count++
		return nil
	}))
	assert.Equal(t, hf.RecordCount(), count)

	stop := errors.New("stop")
	err = hf.ForEach(func(types.RID, []byte) error { return stop })
	assert.True(t, errors.Is(err, stop))
	assert.Equal(t, 0, hf.OpenScans())
	assertNoPins(t, env.bp)
}

func TestDeleteFile(t *testing.T) {
	env := newTestEnv(t, 3)
	hf, err := OpenHeapFile(env.bp, env.dm, "doomed")
	require.NoError(t, err)
	for i := 0; i < 2*recordsPerPage; i++ {
		_, err := hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}
	pages := hf.PageIDs()

	scan, err := hf.OpenScan()
	require.NoError(t, err)
	assert.True(t, errors.Is(hf.DeleteFile(), ErrFileInUse))
	require.NoError(t, scan.Close())

	require.NoError(t, hf.DeleteFile())
	require.NoError(t, hf.DeleteFile())

	for _, id := range pages {
		assert.False(t, env.bp.IsResident(id))
		err := env.dm.ReadPage(id, make([]byte, testPageSize))
		assert.True(t, errors.Is(err, diskmanager.ErrPageNotAllocated))
	}
	_, ok, err := env.dm.GetFileEntry("doomed")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hf.Insert([]byte("x"))
	assert.True(t, errors.Is(err, ErrFileDeleted))
	_, err = hf.OpenScan()
	assert.True(t, errors.Is(err, ErrFileDeleted))
	assert.Equal(t, 0, hf.RecordCount())
}

func TestTempFile(t *testing.T) {
	env := newTestEnv(t, 3)
	allocated := env.dm.GetStats().AllocatedPages

	hf := CreateTempHeapFile(env.bp)
	assert.True(t, hf.IsTemp())
	assert.Equal(t, 0, hf.PageCount(), "no page until the first insert")

	rid, err := hf.Insert([]byte("scratch"))
	require.NoError(t, err)
	assert.Equal(t, 1, hf.PageCount())
	got, err := hf.Select(rid)
	require.NoError(t, err)
	assert.Equal(t, "scratch", string(got))

	require.NoError(t, hf.Close())
	assert.Equal(t, allocated, env.dm.GetStats().AllocatedPages)
}

func TestManyPagesThroughSmallPool(t *testing.T) {
	env := newTestEnv(t, 2)
	hf, err := OpenHeapFile(env.bp, env.dm, "pressure")
	require.NoError(t, err)

	const n = 10 * recordsPerPage
	rids := make([]types.RID, n)
	for i := 0; i < n; i++ {
		rids[i], err = hf.Insert(fixedRecord(i))
		require.NoError(t, err)
	}
	assert.Equal(t, 10, hf.PageCount())
	for i, rid := range rids {
		got, err := hf.Select(rid)
		require.NoError(t, err)
		assert.Equal(t, fixedRecord(i), got)
	}
	assert.LessOrEqual(t, env.bp.Size(), 2)
	assertNoPins(t, env.bp)
}
