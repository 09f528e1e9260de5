// Package record defines the byte-record data model shared by every
// tabforge operator: a delimited record as an ordered sequence of byte
// fields, a streaming reader and writer over that representation, and the
// field selection used by order-sensitive operators.
//
// Records preserve exact byte content. A record read from a source and
// written back through a Writer with the same delimiter reproduces the
// original line bytes, with only the line terminator normalized to '\n'.
package record

// Record is an ordered sequence of byte fields forming one logical row.
// Records are immutable once read; a record's identity is its 0-based
// position in the stream, excluding the header.
type Record [][]byte

// Clone returns a deep copy of the record. Readers may reuse their internal
// buffers between calls, so operators that hold a record across reads must
// clone it first.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for i, f := range r {
		if f == nil {
			continue
		}
		c := make([]byte, len(f))
		copy(c, f)
		out[i] = c
	}
	return out
}

// Size returns the encoded byte length of the record for a single-byte
// delimiter and a single-byte terminator.
func (r Record) Size() int {
	if len(r) == 0 {
		return 1
	}
	n := len(r) // delimiters + terminator
	for _, f := range r {
		n += len(f)
	}
	return n
}
