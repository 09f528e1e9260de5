// Package codec implements the streaming block codec used as tabforge's
// storage and transport boundary. The input byte stream is split into
// fixed-size blocks, each compressed independently and in parallel across a
// bounded worker pool, then framed sequentially so decode order matches
// block order. Blocks are independently compressible on the producer side
// only; decompression is strictly sequential on a single reader thread.
//
// Container layout: a 10-byte header (magic "TFZ1", a version byte, an
// algorithm byte, and the little-endian uint32 block size), followed by one
// frame per block of little-endian uint32 compressed length plus payload.
package codec

import (
	"encoding/binary"
	"io"

	"github.com/tabforge/tabforge/pkg/errors"
)

// Algorithm represents a block compression algorithm.
type Algorithm string

const (
	// Snappy is the default: fast with decent compression.
	Snappy Algorithm = "snappy"
	// S2 is Snappy-compatible with better compression.
	S2 Algorithm = "s2"
	// Zstd trades some speed for the best compression ratio.
	Zstd Algorithm = "zstd"
	// Gzip offers wide compatibility.
	Gzip Algorithm = "gzip"
	// LZ4 is the fastest option.
	LZ4 Algorithm = "lz4"
)

// Level represents a compression level.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Best maximizes compression ratio.
	Best Level = 9
)

// MinBlockSize is the hard minimum block size imposed by the container;
// smaller requests are silently raised to it.
const MinBlockSize = 64 * 1024

// DefaultBlockSize is used when no block size is configured.
const DefaultBlockSize = 1024 * 1024

var magic = [4]byte{'T', 'F', 'Z', '1'}

const formatVersion = byte(1)

// headerLen is magic + version + algorithm + block size.
const headerLen = 4 + 1 + 1 + 4

// Config carries the codec parameters.
type Config struct {
	// Algorithm selects the block compressor. Empty means Snappy.
	Algorithm Algorithm
	// Level tunes algorithms that support levels.
	Level Level
	// BlockSize is the uncompressed block size; values below MinBlockSize
	// are raised to it.
	BlockSize int
	// Jobs bounds the compression worker pool. Zero means one worker per
	// CPU.
	Jobs int
}

func (c Config) normalize() Config {
	if c.Algorithm == "" {
		c.Algorithm = Snappy
	}
	if c.Level == 0 {
		c.Level = Default
	}
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.BlockSize < MinBlockSize {
		c.BlockSize = MinBlockSize
	}
	return c
}

func algorithmByte(a Algorithm) (byte, error) {
	switch a {
	case Snappy:
		return 1, nil
	case S2:
		return 2, nil
	case Zstd:
		return 3, nil
	case Gzip:
		return 4, nil
	case LZ4:
		return 5, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", a)
	}
}

func algorithmFromByte(b byte) (Algorithm, bool) {
	switch b {
	case 1:
		return Snappy, true
	case 2:
		return S2, true
	case 3:
		return Zstd, true
	case 4:
		return Gzip, true
	case 5:
		return LZ4, true
	default:
		return "", false
	}
}

func writeHeader(w io.Writer, cfg Config) error {
	alg, err := algorithmByte(cfg.Algorithm)
	if err != nil {
		return err
	}
	buf := make([]byte, headerLen)
	copy(buf[0:4], magic[:])
	buf[4] = formatVersion
	buf[5] = alg
	binary.LittleEndian.PutUint32(buf[6:10], uint32(cfg.BlockSize))
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write container header")
	}
	return nil
}

func readHeader(r io.Reader) (Algorithm, uint32, error) {
	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrorTypeData, "failed to read container header")
	}
	if [4]byte(buf[0:4]) != magic {
		return "", 0, errors.New(errors.ErrorTypeData, "not a compressed container: bad magic")
	}
	if buf[4] != formatVersion {
		return "", 0, errors.Newf(errors.ErrorTypeData, "unsupported container version %d", buf[4])
	}
	alg, ok := algorithmFromByte(buf[5])
	if !ok {
		return "", 0, errors.Newf(errors.ErrorTypeData, "unknown algorithm byte %d", buf[5])
	}
	blockSize := binary.LittleEndian.Uint32(buf[6:10])
	if blockSize < MinBlockSize {
		return "", 0, errors.New(errors.ErrorTypeData, "container block size below format minimum")
	}
	return alg, blockSize, nil
}

// Check reads only the fixed header prefix and reports whether it is a
// well-formed container. It is cheap and not exhaustive: corruption beyond
// the prefix goes undetected here and is left to Validate.
func Check(r io.Reader) bool {
	_, _, err := readHeader(r)
	return err == nil
}

// Validate decompresses the entire stream to a discard sink, returning the
// total decompressed size or a corruption error.
func Validate(r io.Reader) (int64, error) {
	return Decompress(io.Discard, r)
}
