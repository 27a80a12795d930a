package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Writer provides buffered writing of RESP frames. Nothing reaches the
// underlying stream until Flush is called, so one reply costs one write.
type Writer struct {
	bw      *bufio.Writer
	scratch []byte // Reusable buffer for formatting integers
}

// NewWriter creates a new RESP protocol writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw:      bufio.NewWriter(w),
		scratch: make([]byte, 0, 20),
	}
}

// WriteFrame writes a frame to the output buffer
func (w *Writer) WriteFrame(f Frame) error {
	switch f.Type {
	case TypeSimpleString:
		return w.writeLine(TypeSimpleString, f.Data)
	case TypeError:
		return w.writeLine(TypeError, f.Data)
	case TypeInteger:
		return w.WriteInteger(f.Integer)
	case TypeBulkString:
		return w.WriteBulkString(f.Data)
	case TypeNull:
		return w.WriteNull()
	case TypeArray:
		return w.WriteArray(f.Array)
	default:
		return fmt.Errorf("unsupported frame type: %c", byte(f.Type))
	}
}

// WriteSimpleString writes a simple string
func (w *Writer) WriteSimpleString(s string) error {
	return w.writeLine(TypeSimpleString, []byte(s))
}

// WriteError writes an error message
func (w *Writer) WriteError(msg string) error {
	return w.writeLine(TypeError, []byte(msg))
}

// WriteInteger writes an integer
func (w *Writer) WriteInteger(n uint64) error {
	w.scratch = strconv.AppendUint(w.scratch[:0], n, 10)
	return w.writeLine(TypeInteger, w.scratch)
}

// WriteBulkString writes a bulk string
func (w *Writer) WriteBulkString(data []byte) error {
	if err := w.writeHeader(TypeBulkString, len(data)); err != nil {
		return err
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteNull writes the null bulk string
func (w *Writer) WriteNull() error {
	if _, err := w.bw.WriteString("$-1"); err != nil {
		return err
	}
	return w.writeCRLF()
}

// WriteArray writes an array of frames
func (w *Writer) WriteArray(items []Frame) error {
	if err := w.writeHeader(TypeArray, len(items)); err != nil {
		return err
	}

	for _, item := range items {
		if err := w.WriteFrame(item); err != nil {
			return err
		}
	}

	return nil
}

// WriteCommand writes a command as an array of bulk strings
func (w *Writer) WriteCommand(cmd string, args ...string) error {
	if err := w.writeHeader(TypeArray, 1+len(args)); err != nil {
		return err
	}

	if err := w.WriteBulkString([]byte(cmd)); err != nil {
		return err
	}

	for _, arg := range args {
		if err := w.WriteBulkString([]byte(arg)); err != nil {
			return err
		}
	}

	return nil
}

// Flush flushes any buffered data to the underlying writer
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Reset discards buffered data and writes to a new underlying writer
func (w *Writer) Reset(writer io.Writer) {
	w.bw.Reset(writer)
}

// writeLine writes <prefix><payload>\r\n
func (w *Writer) writeLine(prefix FrameType, payload []byte) error {
	if err := w.bw.WriteByte(byte(prefix)); err != nil {
		return err
	}
	if _, err := w.bw.Write(payload); err != nil {
		return err
	}
	return w.writeCRLF()
}

// writeHeader writes <prefix><length>\r\n
func (w *Writer) writeHeader(prefix FrameType, n int) error {
	w.scratch = strconv.AppendInt(w.scratch[:0], int64(n), 10)
	return w.writeLine(prefix, w.scratch)
}

// writeCRLF writes the CRLF terminator
func (w *Writer) writeCRLF() error {
	_, err := w.bw.WriteString(CRLF)
	return err
}
