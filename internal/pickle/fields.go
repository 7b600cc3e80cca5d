package pickle

import (
	"encoding/binary"
	"errors"
)

// ErrShortField is returned when a Reader runs off the end of its
// buffer while decoding a field.
var ErrShortField = errors.New("pickle: field runs past end of buffer")

// Writer builds the flat, version-ordered cleartext payload that sits
// under the pickle envelope. Fields are appended in the exact order the
// object's pickle version dictates; there is no self-description.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteFixed appends a fixed-size key field verbatim, with no length
// prefix (the reader already knows the size from the field's type).
func (w *Writer) WriteFixed(b []byte) { w.buf = append(w.buf, b...) }

// WriteBytes appends a u32-length-prefixed byte field.
func (w *Writer) WriteBytes(b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, b...)
}

// WriteU32 appends a big-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteBool appends a single flag byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// Reader decodes a Writer-produced payload in the same field order it
// was written in.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential field reads starting at offset 0.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Len reports the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// ReadFixed reads exactly n bytes verbatim.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, ErrShortField
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

// ReadBytes reads a u32-length-prefixed byte field.
func (r *Reader) ReadBytes() ([]byte, error) {
	if r.off+4 > len(r.buf) {
		return nil, ErrShortField
	}
	n := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return r.ReadFixed(int(n))
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadFixed(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadBool reads a single flag byte.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadFixed(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}
