package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

const (
	// CRLF is the RESP line terminator
	CRLF = "\r\n"

	// maxBulkSize is the maximum size for bulk strings (512MB, same as proto-max-bulk-len)
	maxBulkSize = 512 * 1024 * 1024

	// maxArraySize is the maximum number of elements in an array
	maxArraySize = 1024 * 1024

	// arrayPrealloc caps the up-front allocation for a declared array length
	arrayPrealloc = 1024
)

var (
	crlfBytes = []byte(CRLF)
	nullLen   = []byte("-1")
)

// Reader is a streaming RESP reader. It tolerates partial delivery from
// the underlying stream: every read blocks until the bytes of the current
// frame are available.
type Reader struct {
	br  *bufio.Reader
	crl [2]byte // scratch for CRLF checks

	// left behind by a malformed frame, discarded by the next ReadFrame
	midLine   bool
	remaining uint64
}

// NewReader creates a new streaming RESP reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		br: bufio.NewReader(r),
	}
}

// Buffered returns the number of bytes already read from the stream but
// not yet consumed by a frame
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

// ReadFrame reads the next frame from the stream.
//
// It returns io.EOF only when the stream ends cleanly before the first
// byte of a frame, which means the peer closed the connection between
// frames. A stream that ends inside a frame yields io.ErrUnexpectedEOF.
// Malformed input yields a *ProtocolError. Unless the error is Fatal,
// the next call first discards what is left of the malformed frame, so
// one bad request produces exactly one error.
func (r *Reader) ReadFrame() (Frame, error) {
	if err := r.resync(); err != nil {
		return Frame{}, err
	}

	typeByte, err := r.br.ReadByte()
	if err != nil {
		return Frame{}, err
	}

	if FrameType(typeByte) == TypeArray {
		return r.readArray()
	}
	return r.readScalar(typeByte)
}

// readScalar decodes one non-array value whose prefix byte is already consumed
func (r *Reader) readScalar(typeByte byte) (Frame, error) {
	switch FrameType(typeByte) {
	case TypeSimpleString:
		line, err := r.readLine()
		if err != nil {
			return Frame{}, err
		}
		return Frame{Type: TypeSimpleString, Data: line}, nil
	case TypeError:
		line, err := r.readLine()
		if err != nil {
			return Frame{}, err
		}
		return Frame{Type: TypeError, Data: line}, nil
	case TypeInteger:
		return r.readInteger()
	case TypeBulkString:
		return r.readBulkString()
	case TypeArray:
		r.midLine = true
		return Frame{}, protocolErrorf(nil, "nested arrays are not supported")
	default:
		r.midLine = typeByte != '\n'
		if typeByte == 0 {
			return Frame{}, protocolErrorf(nil, "unknown RESP type: empty byte")
		}
		return Frame{}, protocolErrorf(nil, "unknown RESP type: %c (0x%02x)", typeByte, typeByte)
	}
}

// readInteger reads an unsigned integer value
func (r *Reader) readInteger() (Frame, error) {
	line, err := r.readLine()
	if err != nil {
		return Frame{}, err
	}

	n, err := parseUint(line)
	if err != nil {
		return Frame{}, protocolErrorf(line, "invalid integer")
	}

	return Frame{Type: TypeInteger, Integer: n}, nil
}

// readBulkString reads a bulk string value, or Null for $-1
func (r *Reader) readBulkString() (Frame, error) {
	line, err := r.readLine()
	if err != nil {
		return Frame{}, err
	}

	if bytes.Equal(line, nullLen) {
		return Frame{Type: TypeNull}, nil
	}

	length, err := parseUint(line)
	if err != nil {
		return Frame{}, protocolErrorf(line, "invalid bulk string length")
	}
	if length > maxBulkSize {
		return Frame{}, fatalProtocolErrorf("invalid bulk string length: %d", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r.br, data); err != nil {
		return Frame{}, unexpected(err)
	}

	if err := r.expectCRLF(); err != nil {
		return Frame{}, err
	}

	return Frame{Type: TypeBulkString, Data: data}, nil
}

// readArray reads an array of scalar values
func (r *Reader) readArray() (Frame, error) {
	line, err := r.readLine()
	if err != nil {
		return Frame{}, err
	}

	length, err := parseUint(line)
	if err != nil {
		return Frame{}, protocolErrorf(line, "invalid array length")
	}
	if length > maxArraySize {
		return Frame{}, fatalProtocolErrorf("invalid array length: %d", length)
	}

	items := make([]Frame, 0, min(length, arrayPrealloc))
	for i := uint64(0); i < length; i++ {
		typeByte, err := r.br.ReadByte()
		if err != nil {
			return Frame{}, unexpected(err)
		}

		item, err := r.readScalar(typeByte)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) && !perr.Fatal {
				r.remaining = length - i - 1
			}
			return Frame{}, err
		}
		items = append(items, item)
	}

	return Frame{Type: TypeArray, Array: items}, nil
}

// readLine reads a line terminated by CRLF and returns it without the terminator
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		return nil, unexpected(err)
	}

	if !bytes.HasSuffix(line, crlfBytes) {
		return nil, protocolErrorf(line, "missing CRLF terminator")
	}

	return line[:len(line)-2], nil
}

// expectCRLF reads and validates the CRLF that follows bulk data
func (r *Reader) expectCRLF() error {
	if _, err := io.ReadFull(r.br, r.crl[:]); err != nil {
		return unexpected(err)
	}

	if r.crl[0] != '\r' || r.crl[1] != '\n' {
		r.midLine = r.crl[1] != '\n'
		return protocolErrorf(r.crl[:], "expected CRLF terminator after bulk data")
	}

	return nil
}

// resync discards the rest of the line a malformed frame stopped in, then
// the elements its array still declared
func (r *Reader) resync() error {
	if r.midLine {
		r.midLine = false
		if _, err := r.br.ReadBytes('\n'); err != nil {
			return unexpected(err)
		}
	}

	for r.remaining > 0 {
		r.remaining--
		if err := r.skipElement(); err != nil {
			r.remaining = 0
			return err
		}
	}
	return nil
}

// skipElement discards one array element: its header line and, for a
// well-formed bulk string, the payload
func (r *Reader) skipElement() error {
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		return unexpected(err)
	}
	if len(line) < 3 || FrameType(line[0]) != TypeBulkString || !bytes.HasSuffix(line, crlfBytes) {
		return nil
	}

	n, err := parseUint(line[1 : len(line)-2])
	if err != nil || n > maxBulkSize {
		return nil
	}
	_, err = r.br.Discard(int(n) + len(crlfBytes))
	return unexpected(err)
}

// parseUint parses a non-negative decimal without allocation
func parseUint(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, strconv.ErrSyntax
	}

	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}

		d := uint64(c - '0')
		if n > (1<<64-1-d)/10 {
			return 0, strconv.ErrRange
		}

		n = n*10 + d
	}

	return n, nil
}

// unexpected maps an end-of-stream inside a frame to io.ErrUnexpectedEOF
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
