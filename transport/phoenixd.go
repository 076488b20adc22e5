package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/phoenix-rtos/plo-sub001/clock"
	"github.com/phoenix-rtos/plo-sub001/errs"
)

// Byte-stuffing sentinels (spec §4.2).
const (
	Mark byte = 0x7E
	Esc  byte = 0x7D

	escMarkXor = 0x7E ^ 0x20 // 0x5E: the byte that follows ESC for an escaped MARK
	escEscXor  = 0x7D ^ 0x20 // 0x5D: the byte that follows ESC for an escaped ESC
)

// Message types (spec §4.2). The wire encoding leaves room for future
// types; values are assigned in the order spec.md lists them.
const (
	MsgOpen  uint16 = 0
	MsgRead  uint16 = 1
	MsgWrite uint16 = 2
	MsgFstat uint16 = 3
	MsgClose uint16 = 4
)

// MaxPayload is the largest payload a single frame may carry.
const MaxPayload = 512

// headerSize is the two 32-bit words preceding the payload.
const headerSize = 8

// TFrame and RetryBudget are the send-protocol constants from spec §4.2.
const (
	TFrameMs   = 500
	RetryBudget = 3
)

// header is the two 32-bit wire words: word0 = checksum(16) | seq(16);
// word1 = msgType(16) | length(16).
type header struct {
	checksum uint16
	seq      uint16
	msgType  uint16
	length   uint16
}

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.checksum)|uint32(h.seq)<<16)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.msgType)|uint32(h.length)<<16)
	return buf
}

func decodeHeader(buf []byte) header {
	w0 := binary.LittleEndian.Uint32(buf[0:4])
	w1 := binary.LittleEndian.Uint32(buf[4:8])
	return header{
		checksum: uint16(w0 & 0xFFFF),
		seq:      uint16(w0 >> 16),
		msgType:  uint16(w1 & 0xFFFF),
		length:   uint16(w1 >> 16),
	}
}

// checksum16 sums every byte from the type word onward, modulo 2^16,
// plus the sequence number (spec §4.2's "checksum... used for
// detection only").
func checksum16(seq uint16, msgType uint16, payload []byte) uint16 {
	var sum uint32
	sum += uint32(msgType & 0xFF)
	sum += uint32(msgType >> 8)
	length := uint16(len(payload))
	sum += uint32(length & 0xFF)
	sum += uint32(length >> 8)
	for _, b := range payload {
		sum += uint32(b)
	}
	sum += uint32(seq)
	return uint16(sum % 0x10000)
}

// Frame is a fully decoded phoenixd message.
type Frame struct {
	Seq     uint16
	MsgType uint16
	Payload []byte
}

// encodeFrame builds the MARK-delimited, byte-stuffed wire
// representation of a message (spec §4.2 "Send protocol" steps 1-2).
func encodeFrame(seq uint16, msgType uint16, payload []byte) []byte {
	h := header{
		checksum: checksum16(seq, msgType, payload),
		seq:      seq,
		msgType:  msgType,
		length:   uint16(len(payload)),
	}
	raw := append(h.encode(), payload...)

	out := make([]byte, 0, len(raw)+4)
	out = append(out, Mark)
	for _, b := range raw {
		switch b {
		case Mark:
			out = append(out, Esc, escMarkXor)
		case Esc:
			out = append(out, Esc, escEscXor)
		default:
			out = append(out, b)
		}
	}
	out = append(out, Mark)
	return out
}

// decoder is the receive state machine from spec §4.2: two states,
// DESYN (scanning for MARK) and FRAME (collecting escaped bytes).
type decoder struct {
	inFrame bool
	escaped bool
	buf     []byte
}

var errOverflow = errors.New("phoenixd: frame overflow")
var errUnexpectedMark = errors.New("phoenixd: unexpected terminator")

// feed processes one received byte. It returns a decoded Frame once a
// complete, checksum-valid frame has been collected; a non-nil error
// on a protocol violation (resets to DESYN); or (nil, nil) while still
// collecting.
func (d *decoder) feed(b byte) (*Frame, error) {
	if !d.inFrame {
		if b == Mark {
			d.inFrame = true
			d.escaped = false
			d.buf = d.buf[:0]
		}
		return nil, nil
	}

	if d.escaped {
		d.escaped = false
		d.buf = append(d.buf, b^0x20)
	} else if b == Mark {
		if len(d.buf) == 0 {
			// Back-to-back MARKs: the previous frame's terminator
			// followed by this frame's opener.
			return nil, nil
		}
		d.reset()
		return nil, errUnexpectedMark
	} else if b == Esc {
		d.escaped = true
		return nil, nil
	} else {
		d.buf = append(d.buf, b)
	}

	if len(d.buf) > MaxPayload+headerSize {
		d.reset()
		return nil, errOverflow
	}

	if len(d.buf) < headerSize {
		return nil, nil
	}
	h := decodeHeader(d.buf)
	wantLen := int(h.length) + headerSize
	if len(d.buf) < wantLen {
		return nil, nil
	}

	payload := append([]byte(nil), d.buf[headerSize:wantLen]...)
	got := checksum16(h.seq, h.msgType, payload)
	d.reset()
	if got != h.checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", errs.EIO)
	}
	return &Frame{Seq: h.seq, MsgType: h.msgType, Payload: payload}, nil
}

func (d *decoder) reset() {
	d.inFrame = false
	d.escaped = false
	d.buf = d.buf[:0]
}

// Client drives the request/reply round trip over a ByteStream,
// implementing the retry-with-ack protocol from spec §4.2.
type Client struct {
	stream ByteStream
	clk    *clock.Clock
	seq    uint16
}

// NewClient builds a Client. clk may be nil to use a wall-clock
// default.
func NewClient(stream ByteStream, clk *clock.Clock) *Client {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Client{stream: stream, clk: clk}
}

// roundTrip sends msgType/payload and returns the reply frame's
// payload, retrying up to RetryBudget times total on timeout or bad
// checksum before surfacing EIO.
func (c *Client) roundTrip(msgType uint16, payload []byte) ([]byte, error) {
	if !c.stream.IsConnected() {
		return nil, errs.ECONNREFUSED
	}

	seq := c.seq
	c.seq++
	wire := encodeFrame(seq, msgType, payload)

	var lastErr error
	for attempt := 0; attempt < RetryBudget; attempt++ {
		if !c.stream.IsConnected() {
			return nil, errs.ECONNREFUSED
		}
		if _, err := c.stream.Write(wire); err != nil {
			lastErr = err
			continue
		}
		frame, err := c.readReply(seq)
		if err == nil {
			return frame.Payload, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errs.EIO
	}
	return nil, fmt.Errorf("%w: %v after %d attempts", errs.EIO, lastErr, RetryBudget)
}

// readReply blocks up to TFrameMs collecting bytes through the
// decoder state machine until a valid frame for seq arrives or the
// deadline expires.
func (c *Client) readReply(wantSeq uint16) (*Frame, error) {
	dec := &decoder{}
	startMs := c.clk.NowMs()
	one := make([]byte, 1)
	for {
		if c.clk.Deadline(startMs, TFrameMs) {
			return nil, errs.ETIME
		}
		if !c.stream.IsConnected() {
			return nil, errs.ECONNREFUSED
		}
		n, err := c.stream.Read(one, 1)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		frame, ferr := dec.feed(one[0])
		if ferr != nil {
			// Desync/checksum failure: this attempt is spent, let the
			// caller retransmit.
			return nil, ferr
		}
		if frame != nil {
			if frame.Seq != wantSeq {
				continue
			}
			return frame, nil
		}
	}
}

// Open issues OPEN(flags, path) and returns the daemon's handle. A
// zero reply handle means "no such file" (spec §4.3).
func (c *Client) Open(flags uint32, path string) (uint32, error) {
	payload := make([]byte, 4+len(path)+1)
	binary.LittleEndian.PutUint32(payload[0:4], flags)
	copy(payload[4:], path)
	// payload[4+len(path)] stays zero: the NUL terminator.

	reply, err := c.roundTrip(MsgOpen, payload)
	if err != nil {
		return 0, err
	}
	if len(reply) < 4 {
		return 0, errs.EIO
	}
	return binary.LittleEndian.Uint32(reply), nil
}

// Read issues READ(handle, pos, len) and returns the (possibly short)
// bytes returned.
func (c *Client) Read(handle uint32, pos uint32, length uint32) ([]byte, error) {
	payload := make([]byte, 12)
	binary.LittleEndian.PutUint32(payload[0:4], handle)
	binary.LittleEndian.PutUint32(payload[4:8], pos)
	binary.LittleEndian.PutUint32(payload[8:12], length)
	return c.roundTrip(MsgRead, payload)
}

// Write issues WRITE(handle, pos, bytes) and returns the daemon's
// reported byte count.
func (c *Client) Write(handle uint32, pos uint32, data []byte) (int, error) {
	payload := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint32(payload[0:4], handle)
	binary.LittleEndian.PutUint32(payload[4:8], pos)
	copy(payload[8:], data)

	reply, err := c.roundTrip(MsgWrite, payload)
	if err != nil {
		return 0, err
	}
	if len(reply) < 4 {
		return 0, errs.EIO
	}
	return int(binary.LittleEndian.Uint32(reply)), nil
}

// StatRecord is FSTAT's reply payload.
type StatRecord struct {
	Size uint32
	Mode uint32
}

// Fstat issues FSTAT(handle).
func (c *Client) Fstat(handle uint32) (StatRecord, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, handle)
	reply, err := c.roundTrip(MsgFstat, payload)
	if err != nil {
		return StatRecord{}, err
	}
	if len(reply) < 8 {
		return StatRecord{}, errs.EIO
	}
	return StatRecord{
		Size: binary.LittleEndian.Uint32(reply[0:4]),
		Mode: binary.LittleEndian.Uint32(reply[4:8]),
	}, nil
}

// Close issues CLOSE(handle).
func (c *Client) Close(handle uint32) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, handle)
	_, err := c.roundTrip(MsgClose, payload)
	return err
}
