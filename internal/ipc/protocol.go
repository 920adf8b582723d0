package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// The daemon reads a request as a 4-byte length followed by that many bytes:
// the arguments joined with NUL and terminated by two NUL bytes.
//
//	<len><"query\0--spaces\0\0">
const (
	lengthPrefixSize = 4
	argSeparator     = "\x00"
	requestTrailer   = "\x00\x00"
	maxRequestSize   = 1 << 20
)

var (
	// ErrEmptyCommand is returned when a command has no arguments.
	ErrEmptyCommand = errors.New("empty command")
	// ErrProtocol marks malformed frames and undecodable responses.
	ErrProtocol = errors.New("protocol error")
)

// ByteOrder names accepted by ParseByteOrder.
const (
	ByteOrderNative = "native"
	ByteOrderLittle = "little"
	ByteOrderBig    = "big"
)

// ParseByteOrder maps a configured name to the order used for the length
// prefix. An empty name selects the host's native order, which is what the
// daemon uses when it copies the raw int out of the buffer.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ByteOrderNative:
		return binary.NativeEndian, nil
	case ByteOrderLittle:
		return binary.LittleEndian, nil
	case ByteOrderBig:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q (want native, little or big)", name)
	}
}

// EncodeRequest frames args for the daemon socket.
func EncodeRequest(order binary.ByteOrder, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	for i, arg := range args {
		if strings.Contains(arg, argSeparator) {
			return nil, fmt.Errorf("argument %d contains a NUL byte", i)
		}
	}

	payload := strings.Join(args, argSeparator) + requestTrailer
	if len(payload) > maxRequestSize {
		return nil, fmt.Errorf("request too large: %d bytes", len(payload))
	}

	buf := make([]byte, lengthPrefixSize+len(payload))
	order.PutUint32(buf[:lengthPrefixSize], uint32(len(payload)))
	copy(buf[lengthPrefixSize:], payload)
	return buf, nil
}

// DecodeRequest reads one framed request from r and returns its arguments.
func DecodeRequest(order binary.ByteOrder, r io.Reader) ([]string, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	size := order.Uint32(header[:])
	if size < uint32(len(requestTrailer)) || size > maxRequestSize {
		return nil, fmt.Errorf("%w: invalid frame length %d", ErrProtocol, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if !bytes.HasSuffix(payload, []byte(requestTrailer)) {
		return nil, fmt.Errorf("%w: frame is not NUL terminated", ErrProtocol)
	}

	body := string(payload[:len(payload)-len(requestTrailer)])
	return strings.Split(body, argSeparator), nil
}
