package utils

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// StreamReader is little-endian cursor over seekable source.
// First error is sticky, all following reads return zero values.
type StreamReader struct {
	r   io.ReadSeeker
	err error
	buf [8]byte
}

func NewStreamReader(r io.ReadSeeker) *StreamReader {
	return &StreamReader{r: r}
}

func (sr *StreamReader) Err() error {
	return sr.err
}

func (sr *StreamReader) setErr(err error) {
	if sr.err == nil {
		sr.err = err
	}
}

func (sr *StreamReader) Pos() int64 {
	if sr.err != nil {
		return -1
	}
	pos, err := sr.r.Seek(0, io.SeekCurrent)
	if err != nil {
		sr.setErr(errors.Wrapf(err, "Failed to get stream position"))
		return -1
	}
	return pos
}

func (sr *StreamReader) Seek(pos int64) {
	if sr.err != nil {
		return
	}
	if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
		sr.setErr(errors.Wrapf(err, "Failed to seek to 0x%x", pos))
	}
}

func (sr *StreamReader) Skip(amount int64) {
	if sr.err != nil {
		return
	}
	if _, err := sr.r.Seek(amount, io.SeekCurrent); err != nil {
		sr.setErr(errors.Wrapf(err, "Failed to skip 0x%x bytes", amount))
	}
}

func (sr *StreamReader) Read(amount int) []byte {
	var b []byte
	if amount <= len(sr.buf) {
		b = sr.buf[:amount]
	} else {
		b = make([]byte, amount)
	}
	if sr.err != nil {
		for i := range b {
			b[i] = 0
		}
		return b
	}
	if _, err := io.ReadFull(sr.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		sr.setErr(err)
		for i := range b {
			b[i] = 0
		}
	}
	return b
}

func (sr *StreamReader) ReadU8() uint8 {
	return sr.Read(1)[0]
}

func (sr *StreamReader) ReadI8() int8 {
	return int8(sr.ReadU8())
}

func (sr *StreamReader) ReadLU16() uint16 {
	return binary.LittleEndian.Uint16(sr.Read(2))
}

func (sr *StreamReader) ReadLI16() int16 {
	return int16(sr.ReadLU16())
}

func (sr *StreamReader) ReadLU32() uint32 {
	return binary.LittleEndian.Uint32(sr.Read(4))
}

func (sr *StreamReader) ReadLI32() int32 {
	return int32(sr.ReadLU32())
}

func (sr *StreamReader) ReadStringBuffer(size int) string {
	return BytesToString(sr.Read(size))
}

// reads string terminated by 0 or by limit
func (sr *StreamReader) ReadZString(limit int) string {
	return sr.readTerminated(0, limit)
}

// reads string terminated by '\n' or by limit
func (sr *StreamReader) ReadLineString(limit int) string {
	return sr.readTerminated('\n', limit)
}

func (sr *StreamReader) readTerminated(terminator byte, limit int) string {
	raw := make([]byte, 0, 16)
	for i := 0; i < limit && sr.err == nil; i++ {
		b := sr.ReadU8()
		if b == terminator {
			break
		}
		raw = append(raw, b)
	}
	return BytesToString(raw)
}

// StreamWriter is little-endian writer over seekable destination.
// Used for back-patching of offsets tables after the payload is written.
type StreamWriter struct {
	w   io.WriteSeeker
	err error
	buf [8]byte
}

func NewStreamWriter(w io.WriteSeeker) *StreamWriter {
	return &StreamWriter{w: w}
}

func (sw *StreamWriter) Err() error {
	return sw.err
}

func (sw *StreamWriter) setErr(err error) {
	if sw.err == nil {
		sw.err = err
	}
}

func (sw *StreamWriter) Pos() int64 {
	if sw.err != nil {
		return -1
	}
	pos, err := sw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		sw.setErr(errors.Wrapf(err, "Failed to get stream position"))
		return -1
	}
	return pos
}

func (sw *StreamWriter) Seek(pos int64) {
	if sw.err != nil {
		return
	}
	if _, err := sw.w.Seek(pos, io.SeekStart); err != nil {
		sw.setErr(errors.Wrapf(err, "Failed to seek to 0x%x", pos))
	}
}

func (sw *StreamWriter) Write(b []byte) {
	if sw.err != nil {
		return
	}
	if _, err := sw.w.Write(b); err != nil {
		sw.setErr(err)
	}
}

func (sw *StreamWriter) WriteU8(v uint8) {
	sw.buf[0] = v
	sw.Write(sw.buf[:1])
}

func (sw *StreamWriter) WriteI8(v int8) {
	sw.WriteU8(uint8(v))
}

func (sw *StreamWriter) WriteLU16(v uint16) {
	binary.LittleEndian.PutUint16(sw.buf[:2], v)
	sw.Write(sw.buf[:2])
}

func (sw *StreamWriter) WriteLI16(v int16) {
	sw.WriteLU16(uint16(v))
}

func (sw *StreamWriter) WriteLU32(v uint32) {
	binary.LittleEndian.PutUint32(sw.buf[:4], v)
	sw.Write(sw.buf[:4])
}

func (sw *StreamWriter) WriteLI32(v int32) {
	sw.WriteLU32(uint32(v))
}

func (sw *StreamWriter) WriteZeros(amount int) {
	sw.Write(make([]byte, amount))
}

func (sw *StreamWriter) WriteStringBuffer(s string, size int) {
	b, err := StringToBytesBuffer(s, size, false)
	if err != nil {
		sw.setErr(err)
		return
	}
	sw.Write(b)
}

func (sw *StreamWriter) WriteZString(s string) {
	b, err := StringToBytes(s, true)
	if err != nil {
		sw.setErr(err)
		return
	}
	sw.Write(b)
}

func (sw *StreamWriter) WriteLineString(s string) {
	b, err := StringToBytes(s, false)
	if err != nil {
		sw.setErr(err)
		return
	}
	sw.Write(append(b, '\n'))
}

// SeekBuffer is in-memory io.WriteSeeker + io.ReadSeeker
type SeekBuffer struct {
	buf []byte
	pos int64
}

func NewSeekBuffer(b []byte) *SeekBuffer {
	return &SeekBuffer{buf: b}
}

func (sb *SeekBuffer) Bytes() []byte {
	return sb.buf
}

func (sb *SeekBuffer) Len() int {
	return len(sb.buf)
}

func (sb *SeekBuffer) Write(p []byte) (int, error) {
	end := sb.pos + int64(len(p))
	if end > int64(len(sb.buf)) {
		if end > int64(cap(sb.buf)) {
			grown := make([]byte, end, end*2)
			copy(grown, sb.buf)
			sb.buf = grown
		} else {
			sb.buf = sb.buf[:end]
		}
	}
	copy(sb.buf[sb.pos:end], p)
	sb.pos = end
	return len(p), nil
}

func (sb *SeekBuffer) Read(p []byte) (int, error) {
	if sb.pos >= int64(len(sb.buf)) {
		return 0, io.EOF
	}
	n := copy(p, sb.buf[sb.pos:])
	sb.pos += int64(n)
	return n, nil
}

func (sb *SeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = sb.pos + offset
	case io.SeekEnd:
		pos = int64(len(sb.buf)) + offset
	default:
		return 0, errors.Errorf("Invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.Errorf("Negative position %d", pos)
	}
	sb.pos = pos
	return pos, nil
}
