package export

import (
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Codec selects how the record stream after the dump header is compressed.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecSnappy
	CodecLZ4
)

var ErrUnknownCodec = errors.New("unknown dump codec")

func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CodecNone, nil
	case "snappy":
		return CodecSnappy, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return CodecNone, errors.Wrapf(ErrUnknownCodec, "%q", name)
	}
}

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecSnappy:
		return "snappy"
	case CodecLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// writer wraps w; closing the result flushes the codec but leaves w open.
func (c Codec) writer(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CodecNone:
		return nopWriteCloser{w}, nil
	case CodecSnappy:
		return snappy.NewBufferedWriter(w), nil
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, errors.Wrapf(ErrUnknownCodec, "codec %d", c)
	}
}

func (c Codec) reader(r io.Reader) (io.Reader, error) {
	switch c {
	case CodecNone:
		return r, nil
	case CodecSnappy:
		return snappy.NewReader(r), nil
	case CodecLZ4:
		return lz4.NewReader(r), nil
	default:
		return nil, errors.Wrapf(ErrUnknownCodec, "codec %d", c)
	}
}
