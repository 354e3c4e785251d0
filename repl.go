package main

import (
	storageengine "HeapDB/storage_engine"
	heapfile "HeapDB/storage_engine/access/heapfile_manager"
	"HeapDB/types"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

/*
REPL commands over heap files. Records are plain text; a RID is written as "<page> <slot>".

	open <name>                 open or create a heap file and make it current
	temp                        make a new temporary file current
	insert <text>               insert a record, prints its RID
	select <page> <slot>
	update <page> <slot> <text> same length as the old record
	delete <page> <slot>
	scan                        print every record of the current file
	count                       records and pages of the current file
	files                       named heap files
	drop <name>
	stats                       buffer pool and disk counters
	flush                       write every resident page
	exit
*/

var errNoFile = errors.New(`no current heap file, use "open <name>" or "temp"`)

type session struct {
	se  *storageengine.StorageEngine
	cur *heapfile.HeapFile
	out io.Writer
}

func newSession(se *storageengine.StorageEngine, out io.Writer) *session {
	return &session{se: se, out: out}
}

func (s *session) prompt() string {
	switch {
	case s.cur == nil:
		return "heapdb> "
	case s.cur.IsTemp():
		return "heapdb(temp)> "
	default:
		return fmt.Sprintf("heapdb(%s)> ", s.cur.Name())
	}
}

// exec runs one command line. quit is true for exit.
func (s *session) exec(line string) (quit bool, err error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "exit", "quit":
		return true, s.closeCurrent()
	case "help":
		fmt.Fprintln(s.out, "open <name> | temp | insert <text> | select <page> <slot> | update <page> <slot> <text>")
		fmt.Fprintln(s.out, "delete <page> <slot> | scan | count | files | drop <name> | stats | flush | exit")
		return false, nil
	case "open":
		return false, s.open(rest)
	case "temp":
		return false, s.temp()
	case "insert":
		return false, s.insert(rest)
	case "select":
		return false, s.selectRecord(rest)
	case "update":
		return false, s.update(rest)
	case "delete":
		return false, s.delete(rest)
	case "scan":
		return false, s.scan()
	case "count":
		return false, s.count()
	case "files":
		return false, s.files()
	case "drop":
		return false, s.drop(rest)
	case "stats":
		s.stats()
		return false, nil
	case "flush":
		return false, s.se.BufferPool.FlushAllPages()
	default:
		return false, errors.Errorf("unknown command %q", cmd)
	}
}

func (s *session) open(name string) error {
	if name == "" {
		return errors.New("usage: open <name>")
	}
	hf, err := s.se.Open(name)
	if err != nil {
		return err
	}
	if err := s.closeCurrent(); err != nil {
		return err
	}
	s.cur = hf
	fmt.Fprintf(s.out, "%s: %d records on %d pages\n", name, hf.RecordCount(), hf.PageCount())
	return nil
}

func (s *session) temp() error {
	hf, err := s.se.CreateTemp()
	if err != nil {
		return err
	}
	if err := s.closeCurrent(); err != nil {
		return err
	}
	s.cur = hf
	fmt.Fprintln(s.out, "temporary file, deleted when you switch away or exit")
	return nil
}

// closeCurrent deletes the current file if it is temporary.
func (s *session) closeCurrent() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	return err
}

func (s *session) insert(text string) error {
	if s.cur == nil {
		return errNoFile
	}
	rid, err := s.cur.Insert([]byte(text))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "inserted %s\n", rid)
	return nil
}

func (s *session) selectRecord(args string) error {
	if s.cur == nil {
		return errNoFile
	}
	rid, _, err := parseRID(args)
	if err != nil {
		return err
	}
	rec, err := s.cur.Select(rid)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s %s\n", rid, rec)
	return nil
}

func (s *session) update(args string) error {
	if s.cur == nil {
		return errNoFile
	}
	rid, text, err := parseRID(args)
	if err != nil {
		return err
	}
	if err := s.cur.Update(rid, []byte(text)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "updated %s\n", rid)
	return nil
}

func (s *session) delete(args string) error {
	if s.cur == nil {
		return errNoFile
	}
	rid, _, err := parseRID(args)
	if err != nil {
		return err
	}
	if err := s.cur.Delete(rid); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "deleted %s\n", rid)
	return nil
}

func (s *session) scan() error {
	if s.cur == nil {
		return errNoFile
	}
	n := 0
	err := s.cur.ForEach(func(rid types.RID, rec []byte) error {
		fmt.Fprintf(s.out, "%-10s %s\n", rid, rec)
		n++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "(%d records)\n", n)
	return nil
}

func (s *session) count() error {
	if s.cur == nil {
		return errNoFile
	}
	fmt.Fprintf(s.out, "%d records on %d pages\n", s.cur.RecordCount(), s.cur.PageCount())
	return nil
}

func (s *session) files() error {
	names, err := s.se.Files()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func (s *session) drop(name string) error {
	if name == "" {
		return errors.New("usage: drop <name>")
	}
	if s.cur != nil && !s.cur.IsTemp() && s.cur.Name() == name {
		s.cur = nil
	}
	if err := s.se.Drop(name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "dropped %s\n", name)
	return nil
}

func (s *session) stats() {
	st := s.se.Stats()
	pageSize := uint64(s.se.BufferPool.PageSize())
	fmt.Fprintf(s.out, "buffer pool: %d/%d frames resident, %d pinned, %s\n",
		st.Pool.Resident, st.Pool.Capacity, st.Pool.Pinned, humanize.IBytes(uint64(st.Pool.Capacity)*pageSize))
	fmt.Fprintf(s.out, "  hits %s  misses %s  evictions %s  writes %s  hit rate %.1f%%\n",
		humanize.Comma(int64(st.Pool.Hits)), humanize.Comma(int64(st.Pool.Misses)),
		humanize.Comma(int64(st.Pool.Evictions)), humanize.Comma(int64(st.Pool.Writes)), st.Pool.HitRate*100)
	fmt.Fprintf(s.out, "disk: %d pages allocated (%s), %s reads, %s writes\n",
		st.Disk.AllocatedPages, humanize.IBytes(uint64(st.Disk.AllocatedPages)*pageSize),
		humanize.Comma(int64(st.Disk.Reads)), humanize.Comma(int64(st.Disk.Writes)))
}

// parseRID reads "<page> <slot>" and returns whatever follows.
func parseRID(args string) (types.RID, string, error) {
	fields := strings.SplitN(args, " ", 3)
	if len(fields) < 2 {
		return types.RID{}, "", errors.New("expected <page> <slot>")
	}
	page, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return types.RID{}, "", errors.Wrapf(err, "page %q", fields[0])
	}
	slot, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return types.RID{}, "", errors.Wrapf(err, "slot %q", fields[1])
	}
	rest := ""
	if len(fields) == 3 {
		rest = fields[2]
	}
	return types.NewRID(types.PageID(page), uint16(slot)), rest, nil
}
