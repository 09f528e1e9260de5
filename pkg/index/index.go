// Package index implements the persisted random-access index: a binary
// side-car file mapping record number to byte offset in the source, so
// operators can seek to a record in O(1) instead of rescanning.
//
// The side-car lives next to the source by convention (source path plus the
// ".tfx" extension) and is created once by a full linear scan. It is
// read-only thereafter and is not validated against the source on open; an
// index that outlives a modification of its source is stale and its use is
// undefined. Serializing creation and source mutation is the caller's
// responsibility.
package index

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tabforge/tabforge/pkg/errors"
	"github.com/tabforge/tabforge/pkg/logger"
	"github.com/tabforge/tabforge/pkg/record"
)

// Extension is the conventional side-car suffix.
const Extension = ".tfx"

var (
	magic         = [4]byte{'T', 'F', 'X', '1'}
	formatVersion = uint16(1)

	flagHasHeader = uint16(1)
)

// headerLen is magic + version + flags + entry count.
const headerLen = 4 + 2 + 2 + 8

// Index is an ordered sequence of byte offsets, one per physical record in
// the source, including the header record when the source has one.
type Index struct {
	offsets   []uint64
	hasHeader bool
}

// SidecarPath returns the conventional side-car location for a source.
func SidecarPath(sourcePath string) string {
	return sourcePath + Extension
}

// Create scans the source once, recording the byte offset at which every
// physical record begins, and persists the mapping to sidecarPath. The
// side-car is written to a temporary file and renamed into place, so a
// failed creation never leaves a readable index claiming more entries than
// it holds.
func Create(sourcePath, sidecarPath string, opts record.Options) (*Index, error) {
	if sidecarPath == "" {
		sidecarPath = SidecarPath(sourcePath)
	}

	// Scan physical records: header handling is disabled so the header
	// record, when present, gets an offset entry like any other.
	scanOpts := record.Options{Delimiter: opts.Delimiter, HasHeader: false}
	r, err := record.Open(sourcePath, scanOpts)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var offsets []uint64
	for {
		off := r.Offset()
		if _, err := r.Next(); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		offsets = append(offsets, uint64(off))
	}

	idx := &Index{offsets: offsets, hasHeader: opts.HasHeader}
	if err := idx.persist(sidecarPath); err != nil {
		return nil, err
	}

	logger.Get().Info("created random-access index",
		zap.String("source", sourcePath),
		zap.String("sidecar", sidecarPath),
		zap.Int("physical_records", len(offsets)))

	return idx, nil
}

func (idx *Index) persist(sidecarPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(sidecarPath), filepath.Base(sidecarPath)+".tmp*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to create index temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := idx.encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to finalize index file")
	}
	if err := os.Rename(tmpPath, sidecarPath); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to commit index file")
	}
	return nil
}

func (idx *Index) encode(w io.Writer) error {
	buf := make([]byte, headerLen)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	var flags uint16
	if idx.hasHeader {
		flags |= flagHasHeader
	}
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(idx.offsets)))
	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write index header")
	}

	entry := make([]byte, 8)
	for _, off := range idx.offsets {
		binary.LittleEndian.PutUint64(entry, off)
		if _, err := w.Write(entry); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write index entry")
		}
	}
	return nil
}

// Open loads a previously persisted index. The source content is not
// revalidated; the caller is trusted to have kept the source unchanged
// since creation.
func Open(sidecarPath string) (*Index, error) {
	f, err := os.Open(sidecarPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open index side-car")
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (*Index, error) {
	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read index header")
	}
	if [4]byte(buf[0:4]) != magic {
		return nil, errors.New(errors.ErrorTypeData, "not an index side-car: bad magic")
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != formatVersion {
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported index version %d", v)
	}
	flags := binary.LittleEndian.Uint16(buf[6:8])
	count := binary.LittleEndian.Uint64(buf[8:16])

	offsets := make([]uint64, count)
	entry := make([]byte, 8)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeData,
				"index truncated: claims %d entries, readable up to %d", count, i)
		}
		offsets[i] = binary.LittleEndian.Uint64(entry)
	}

	return &Index{
		offsets:   offsets,
		hasHeader: flags&flagHasHeader != 0,
	}, nil
}

// ForSource opens the conventional side-car for a source, returning nil
// when it is missing or unreadable. Absence means "fall back to scanning",
// never a fatal error, unless the caller explicitly demanded indexed
// access (in which case it uses Open and surfaces the failure).
func ForSource(sourcePath string) *Index {
	idx, err := Open(SidecarPath(sourcePath))
	if err != nil {
		logger.Get().Debug("no usable index side-car",
			zap.String("source", sourcePath),
			zap.Error(err))
		return nil
	}
	return idx
}

// Count returns the logical record count: physical entries minus the
// header entry when a header is present.
func (idx *Index) Count() uint64 {
	n := uint64(len(idx.offsets))
	if idx.hasHeader && n > 0 {
		return n - 1
	}
	return n
}

// HasHeader reports whether the indexed source carries a header record.
func (idx *Index) HasHeader() bool {
	return idx.hasHeader
}

// Seek returns the byte offset of logical record i. It fails with a
// resource error when i is out of range.
func (idx *Index) Seek(i uint64) (int64, error) {
	if i >= idx.Count() {
		return 0, errors.Newf(errors.ErrorTypeResource,
			"record %d out of range: source holds %d records", i, idx.Count()).
			WithDetail("record", i).
			WithDetail("count", idx.Count())
	}
	physical := i
	if idx.hasHeader {
		physical++
	}
	return int64(idx.offsets[physical]), nil
}

// SeekReader repositions rs at logical record i.
func (idx *Index) SeekReader(rs io.ReadSeeker, i uint64) error {
	off, err := idx.Seek(i)
	if err != nil {
		return err
	}
	if _, err := rs.Seek(off, io.SeekStart); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to seek source")
	}
	return nil
}
