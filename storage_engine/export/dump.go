package export

import (
	heapfile "HeapDB/storage_engine/access/heapfile_manager"
	"HeapDB/types"
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

/*
Dump and Load move the records of a heap file through a byte stream.

	"HDMP" | version uint8 | codec uint8 | body

The body is compressed with the codec and holds one entry per record:

	uvarint length | record bytes

Records are written in scan order. Load inserts them into the target file, so RIDs are not preserved.
*/

const formatVersion = 1

var (
	dumpMagic = []byte("HDMP")

	ErrBadDump = errors.New("malformed heap dump")
)

// Dump writes every record of hf to w and returns how many were written.
func Dump(w io.Writer, hf *heapfile.HeapFile, codec Codec) (int, error) {
	if codec.String() == "unknown" {
		return 0, errors.Wrapf(ErrUnknownCodec, "codec %d", codec)
	}
	header := append(append([]byte(nil), dumpMagic...), formatVersion, byte(codec))
	if _, err := w.Write(header); err != nil {
		return 0, errors.Wrap(err, "write dump header")
	}
	cw, err := codec.writer(w)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(cw)
	var lenBuf [binary.MaxVarintLen64]byte
	n := 0
	err = hf.ForEach(func(_ types.RID, rec []byte) error {
		k := binary.PutUvarint(lenBuf[:], uint64(len(rec)))
		if _, err := bw.Write(lenBuf[:k]); err != nil {
			return err
		}
		if _, err := bw.Write(rec); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		return n, errors.Wrapf(err, "dump record %d", n)
	}

	if err := bw.Flush(); err != nil {
		return n, errors.Wrap(err, "flush dump")
	}
	if err := cw.Close(); err != nil {
		return n, errors.Wrapf(err, "close %s stream", codec)
	}
	return n, nil
}

// Load inserts every record of the dump in r into hf and returns how many were inserted.
func Load(r io.Reader, hf *heapfile.HeapFile) (int, error) {
	header := make([]byte, len(dumpMagic)+2)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, errors.Wrapf(ErrBadDump, "read header: %v", err)
	}
	if string(header[:len(dumpMagic)]) != string(dumpMagic) {
		return 0, errors.Wrapf(ErrBadDump, "bad magic %q", header[:len(dumpMagic)])
	}
	if v := header[len(dumpMagic)]; v != formatVersion {
		return 0, errors.Wrapf(ErrBadDump, "unsupported version %d", v)
	}
	codec := Codec(header[len(dumpMagic)+1])
	cr, err := codec.reader(r)
	if err != nil {
		return 0, err
	}

	br := bufio.NewReader(cr)
	limit := uint64(hf.MaxRecordSize())
	n := 0
	for {
		size, err := binary.ReadUvarint(br)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrapf(ErrBadDump, "record %d length: %v", n, err)
		}
		if size > limit {
			return n, errors.Wrapf(ErrBadDump, "record %d is %d bytes (max %d)", n, size, limit)
		}

		rec := make([]byte, size)
		if _, err := io.ReadFull(br, rec); err != nil {
			return n, errors.Wrapf(ErrBadDump, "record %d body: %v", n, err)
		}
		if _, err := hf.Insert(rec); err != nil {
			return n, errors.Wrapf(err, "load record %d", n)
		}
		n++
	}
}
