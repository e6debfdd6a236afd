package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	FixedHeaderLen uint16 = 32
	Magic          uint32 = 0x50424244
	Version        uint16 = 1

	// TypeBoardEvent carries one wire-encoded board event.
	TypeBoardEvent uint32 = 1
)

var (
	ErrShortHeader         = errors.New("frame: short fixed header")
	ErrInvalidMagic        = errors.New("frame: invalid magic")
	ErrUnsupportedVersion  = errors.New("frame: unsupported version")
	ErrHeaderLenMismatch   = errors.New("frame: header_len does not match fixed header")
	ErrPayloadTooLarge     = errors.New("frame: payload too large")
	ErrUnexpectedEOFInBody = errors.New("frame: payload truncated")
)

// Header is the fixed wire header.
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageID   uint64
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

// Frame is one complete message on a peer link.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 1024 * 1024}
}

// New wraps payload as a board event frame with the given sequence id.
func New(id uint64, payload []byte) Frame {
	return Frame{
		Header: Header{
			Magic:       Magic,
			Version:     Version,
			MessageID:   id,
			MessageType: TypeBoardEvent,
		},
		Payload: payload,
	}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Magic != Magic {
		return Frame{}, ErrInvalidMagic
	}
	if h.Version != Version {
		return Frame{}, ErrUnsupportedVersion
	}
	if h.HeaderLen != FixedHeaderLen {
		return Frame{}, ErrHeaderLenMismatch
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrUnexpectedEOFInBody
			}
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

// WriteFrame writes header and payload in a single Write so one frame is
// one transport write.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	payloadLen := uint64(len(f.Payload))
	if payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.HeaderLen = FixedHeaderLen
	h.PayloadLen = payloadLen

	buf := make([]byte, 0, int(FixedHeaderLen)+len(f.Payload))
	buf = append(buf, EncodeHeader(h)...)
	buf = append(buf, f.Payload...)
	_, err := w.Write(buf)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint64(buf[8:16], h.MessageID)
	binary.BigEndian.PutUint32(buf[16:20], h.MessageType)
	binary.BigEndian.PutUint32(buf[20:24], h.Flags)
	binary.BigEndian.PutUint64(buf[24:32], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     binary.BigEndian.Uint16(b[4:6]),
		HeaderLen:   binary.BigEndian.Uint16(b[6:8]),
		MessageID:   binary.BigEndian.Uint64(b[8:16]),
		MessageType: binary.BigEndian.Uint32(b[16:20]),
		Flags:       binary.BigEndian.Uint32(b[20:24]),
		PayloadLen:  binary.BigEndian.Uint64(b[24:32]),
	}, nil
}
