package codec

import (
	"encoding/binary"
	"io"

	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/pool"
)

// Decompress decodes a container from src into dst in one sequential pass
// on a single thread. It returns the number of bytes successfully
// decompressed; a mid-stream failure aborts and reports that count in the
// error's details as well.
func Decompress(dst io.Writer, src io.Reader) (int64, error) {
	alg, blockSize, err := readHeader(src)
	if err != nil {
		return 0, err
	}

	// Incompressible blocks grow under framing overhead, but only by a
	// small fraction of the block size. Anything past this bound is a
	// corrupted length field, rejected before allocating for it.
	maxFrameLen := blockSize + blockSize/4 + 256

	var total int64
	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(src, lenBuf[:]); err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, errors.Wrap(err, errors.ErrorTypeData, "truncated block frame").
				WithDetail("decompressed_bytes", total)
		}
		frameLen := binary.LittleEndian.Uint32(lenBuf[:])
		if frameLen == 0 || frameLen > maxFrameLen {
			return total, errors.Newf(errors.ErrorTypeData,
				"block frame length %d outside the valid range for block size %d", frameLen, blockSize).
				WithDetail("decompressed_bytes", total)
		}

		buf := pool.Global.Get(int(frameLen))
		if _, err := io.ReadFull(src, buf); err != nil {
			pool.Global.Put(buf)
			return total, errors.Wrap(err, errors.ErrorTypeData, "truncated block payload").
				WithDetail("decompressed_bytes", total)
		}

		out, err := decompressBlock(alg, buf)
		pool.Global.Put(buf)
		if err != nil {
			return total, errors.Wrap(err, errors.ErrorTypeData, "corrupt compressed block").
				WithDetail("decompressed_bytes", total)
		}

		if _, err := dst.Write(out); err != nil {
			return total, errors.Wrap(err, errors.ErrorTypeIO, "failed to write decompressed data")
		}
		total += int64(len(out))
	}
}
