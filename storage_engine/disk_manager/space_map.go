package diskmanager

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

/*
The space map records which pages of the database file are in use. It is small
(one entry per allocated run) so it is rewritten as a whole on every change:
write to a temp file, fsync, rename over the old one.

	page_size = 1024
	checksums = true
	high_water = 12

	[[run]]
	  start = 0
	  count = 3
*/

func loadSpaceMap(path string) (*spaceMapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read space map %s", path)
	}
	sm := &spaceMapFile{}
	if err := toml.Unmarshal(data, sm); err != nil {
		return nil, errors.Wrapf(err, "parse space map %s", path)
	}
	if sm.HighWater < 1 {
		return nil, errors.Errorf("space map %s: invalid high water %d", path, sm.HighWater)
	}
	for _, r := range sm.Runs {
		if r.Start < 0 || r.Count < 1 || r.Start+r.Count > sm.HighWater {
			return nil, errors.Errorf("space map %s: invalid run start=%d count=%d", path, r.Start, r.Count)
		}
	}
	return sm, nil
}

func (sm *spaceMapFile) bitmap() []bool {
	allocated := make([]bool, sm.HighWater)
	for _, r := range sm.Runs {
		for i := r.Start; i < r.Start+r.Count; i++ {
			allocated[i] = true
		}
	}
	allocated[0] = true
	return allocated
}

// runsOf collapses the bitmap into maximal runs of allocated pages.
func runsOf(allocated []bool) []pageRun {
	var runs []pageRun
	for i := 0; i < len(allocated); i++ {
		if !allocated[i] {
			continue
		}
		start := i
		for i+1 < len(allocated) && allocated[i+1] {
			i++
		}
		runs = append(runs, pageRun{Start: int64(start), Count: int64(i - start + 1)})
	}
	return runs
}

func (dm *DiskManager) persistSpaceMap() error {
	sm := spaceMapFile{
		PageSize:  int64(dm.pageSize),
		Checksums: dm.checksums,
		HighWater: int64(len(dm.allocated)),
		Runs:      runsOf(dm.allocated),
	}
	data, err := toml.Marshal(sm)
	if err != nil {
		return errors.Wrap(err, "encode space map")
	}

	tmp := dm.spaceMapPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, dm.spaceMapPath); err != nil {
		return errors.Wrapf(err, "install space map %s", dm.spaceMapPath)
	}
	return nil
}
