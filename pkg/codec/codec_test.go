package codec

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/tabforge/tabforge/pkg/errors"
)

// testData builds a compressible byte stream of the given size.
func testData(size int) []byte {
	rng := rand.New(rand.NewSource(42))
	words := []string{"alpha,", "beta,", "gamma,", "delta,", "42\n", "1337\n"}
	var buf bytes.Buffer
	for buf.Len() < size {
		buf.WriteString(words[rng.Intn(len(words))])
	}
	return buf.Bytes()[:size]
}

func roundTrip(t *testing.T, data []byte, cfg Config) []byte {
	t.Helper()

	var compressed bytes.Buffer
	n, err := Compress(&compressed, bytes.NewReader(data), cfg)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if n != int64(len(data)) {
		t.Fatalf("Compress consumed %d bytes, want %d", n, len(data))
	}

	var decompressed bytes.Buffer
	total, err := Decompress(&decompressed, bytes.NewReader(compressed.Bytes()))
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if total != int64(len(data)) {
		t.Fatalf("Decompress reported %d bytes, want %d", total, len(data))
	}
	if !bytes.Equal(data, decompressed.Bytes()) {
		t.Fatal("round trip does not reproduce the original bytes")
	}
	return compressed.Bytes()
}

func TestRoundTripParallel(t *testing.T) {
	// 10MB across 4 workers with 1MB blocks: multiple blocks in flight.
	data := testData(10 * 1024 * 1024)
	compressed := roundTrip(t, data, Config{Jobs: 4, BlockSize: 1024 * 1024})

	if !Check(bytes.NewReader(compressed)) {
		t.Error("Check rejected a valid container")
	}
	if Check(bytes.NewReader(data)) {
		t.Error("Check accepted the raw uncompressed input")
	}
}

func TestRoundTripAllAlgorithms(t *testing.T) {
	data := testData(256 * 1024)
	for _, alg := range []Algorithm{Snappy, S2, Zstd, Gzip, LZ4} {
		t.Run(string(alg), func(t *testing.T) {
			roundTrip(t, data, Config{Algorithm: alg, Jobs: 2})
		})
	}
}

func TestBlockSizeRaisedToMinimum(t *testing.T) {
	// A 1-byte block size request must be raised silently, not fail.
	data := testData(192 * 1024)
	roundTrip(t, data, Config{BlockSize: 1, Jobs: 2})
}

func TestUnevenFinalBlock(t *testing.T) {
	// Input that is not a multiple of the block size.
	data := testData(MinBlockSize + MinBlockSize/3)
	roundTrip(t, data, Config{BlockSize: MinBlockSize, Jobs: 2})
}

func TestEmptyInput(t *testing.T) {
	compressed := roundTrip(t, nil, Config{Jobs: 2})
	if !Check(bytes.NewReader(compressed)) {
		t.Error("Check rejected an empty container")
	}
}

func TestValidate(t *testing.T) {
	data := testData(300 * 1024)
	var compressed bytes.Buffer
	if _, err := Compress(&compressed, bytes.NewReader(data), Config{Jobs: 2}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	total, err := Validate(bytes.NewReader(compressed.Bytes()))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if total != int64(len(data)) {
		t.Errorf("Validate reported %d bytes, want %d", total, len(data))
	}
}

func TestDecompressTruncated(t *testing.T) {
	data := testData(512 * 1024)
	var compressed bytes.Buffer
	if _, err := Compress(&compressed, bytes.NewReader(data), Config{BlockSize: MinBlockSize, Jobs: 2}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	// Cut the stream mid-block.
	truncated := compressed.Bytes()[:compressed.Len()-100]
	var out bytes.Buffer
	total, err := Decompress(&out, bytes.NewReader(truncated))
	if err == nil {
		t.Fatal("Decompress accepted a truncated stream")
	}
	if !errors.IsType(err, errors.ErrorTypeData) {
		t.Errorf("expected a data error, got %v", err)
	}
	if total != int64(out.Len()) {
		t.Errorf("reported %d decompressed bytes but wrote %d", total, out.Len())
	}
}

func TestDecompressRejectsOversizedFrameLength(t *testing.T) {
	// A corrupted length field must be rejected before any allocation
	// sized from it.
	var compressed bytes.Buffer
	if _, err := Compress(&compressed, bytes.NewReader(nil), Config{}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	corrupted := append(compressed.Bytes(), 0xff, 0xff, 0xff, 0xff)

	var out bytes.Buffer
	total, err := Decompress(&out, bytes.NewReader(corrupted))
	if err == nil {
		t.Fatal("Decompress accepted a frame length far beyond the block size")
	}
	if !errors.IsType(err, errors.ErrorTypeData) {
		t.Errorf("expected a data error, got %v", err)
	}
	if total != 0 {
		t.Errorf("reported %d decompressed bytes, want 0", total)
	}
}

func TestDecompressRejectsZeroFrameLength(t *testing.T) {
	var compressed bytes.Buffer
	if _, err := Compress(&compressed, bytes.NewReader(nil), Config{}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	corrupted := append(compressed.Bytes(), 0, 0, 0, 0)

	var out bytes.Buffer
	if _, err := Decompress(&out, bytes.NewReader(corrupted)); err == nil {
		t.Fatal("Decompress accepted a zero-length block frame")
	}
}

func TestDecompressGarbage(t *testing.T) {
	var out bytes.Buffer
	if _, err := Decompress(&out, bytes.NewReader([]byte("definitely not a container"))); err == nil {
		t.Fatal("Decompress accepted garbage input")
	}
}

func TestCheckShortInput(t *testing.T) {
	if Check(bytes.NewReader([]byte("TF"))) {
		t.Error("Check accepted a short prefix")
	}
	if Check(bytes.NewReader(nil)) {
		t.Error("Check accepted empty input")
	}
}

func TestValidateCorrupted(t *testing.T) {
	data := testData(256 * 1024)
	var compressed bytes.Buffer
	if _, err := Compress(&compressed, bytes.NewReader(data), Config{Algorithm: Zstd, Jobs: 2}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	// Flip bytes inside the first block payload.
	raw := compressed.Bytes()
	for i := headerLen + 10; i < headerLen+20; i++ {
		raw[i] ^= 0xff
	}
	if _, err := Validate(bytes.NewReader(raw)); err == nil {
		t.Fatal("Validate accepted a corrupted container")
	}
}

func TestSequentialDecodeViaReader(t *testing.T) {
	// Decompress must work from a pure stream with no seeking.
	data := testData(256 * 1024)
	var compressed bytes.Buffer
	if _, err := Compress(&compressed, bytes.NewReader(data), Config{Jobs: 4}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	var out bytes.Buffer
	if _, err := Decompress(&out, io.LimitReader(bytes.NewReader(compressed.Bytes()), int64(compressed.Len()))); err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(data, out.Bytes()) {
		t.Fatal("stream decode does not reproduce the original bytes")
	}
}
