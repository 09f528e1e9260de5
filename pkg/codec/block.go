package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/tabforge/tabforge/pkg/errors"
)

// compressBlock compresses one block independently of its neighbors.
func compressBlock(alg Algorithm, level Level, data []byte) ([]byte, error) {
	switch alg {
	case Snappy:
		return snappy.Encode(nil, data), nil

	case S2:
		return s2.Encode(nil, data), nil

	case Zstd:
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(mapZstdLevel(level)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create zstd encoder")
		}
		if _, err := enc.Write(data); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, mapGzipLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create gzip writer")
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", alg)
	}
}

// decompressBlock inverts compressBlock.
func decompressBlock(alg Algorithm, data []byte) ([]byte, error) {
	switch alg {
	case Snappy:
		return snappy.Decode(nil, data)

	case S2:
		return s2.Decode(nil, data)

	case Zstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)

	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)

	case LZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))

	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm %q", alg)
	}
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
