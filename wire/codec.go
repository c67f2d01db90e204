// Package wire frames engine messages as fixed 50-byte big-endian packets.
//
// Every datagram, inbound or outbound, is exactly FrameSize bytes with the
// message type in byte 0. OrderSubmit follows the canonical field layout;
// MatchResult reuses the same offsets with the maker order id in the
// expire_time slot and the low 40 bits of the sequence number in the 5-byte
// tail. EngineStatus packs the counter sample described on Status. Encoding
// then decoding any valid message yields a bit-identical original.
package wire

import (
	"encoding/binary"
	"fmt"

	"bolt/domain/orderbook"
)

const FrameSize = 50

const (
	MsgSentinel     byte = 0 // end-of-stream record on the fuel protocol
	MsgOrderSubmit  byte = 1
	MsgOrderCancel  byte = 2
	MsgMatchResult  byte = 3
	MsgEngineStatus byte = 4
)

// Field offsets within a frame.
const (
	offType       = 0
	offProductID  = 1
	offSide       = 3
	offPriceType  = 4
	offPrice      = 5
	offQuantity   = 13
	offOrderID    = 21
	offSubmitTime = 29
	offExpireTime = 37
	offTail       = 45
)

// SeqMask bounds the sequence bits a MatchResult frame can carry.
const SeqMask = uint64(1)<<40 - 1

// Tag is the instance tag as carried in a frame tail.
type Tag [5]byte

// MakeTag truncates an instance name to the 5 tail bytes, zero-padded.
func MakeTag(name string) Tag {
	var t Tag
	copy(t[:], name)
	return t
}

func (t Tag) String() string {
	n := 0
	for n < len(t) && t[n] != 0 {
		n++
	}
	return string(t[:n])
}

// MessageType returns byte 0 after checking the frame size.
func MessageType(frame []byte) (byte, error) {
	if len(frame) != FrameSize {
		return 0, fmt.Errorf("wire: frame is %d bytes, want %d", len(frame), FrameSize)
	}
	return frame[offType], nil
}

// ---------------- OrderSubmit ---------------- //

// EncodeOrder writes an OrderSubmit frame. The tail is zero-padded; the
// engine only decodes submits, clients own the tag bytes.
func EncodeOrder(frame []byte, o *orderbook.Order) {
	clear(frame[:FrameSize])
	frame[offType] = MsgOrderSubmit
	binary.BigEndian.PutUint16(frame[offProductID:], o.ProductID)
	frame[offSide] = byte(o.Side)
	frame[offPriceType] = byte(o.PriceType)
	binary.BigEndian.PutUint64(frame[offPrice:], o.Price)
	binary.BigEndian.PutUint64(frame[offQuantity:], o.Quantity)
	binary.BigEndian.PutUint64(frame[offOrderID:], o.OrderID)
	binary.BigEndian.PutUint64(frame[offSubmitTime:], o.SubmitTime)
	binary.BigEndian.PutUint64(frame[offExpireTime:], o.ExpireTime)
}

// DecodeOrder fills o from an OrderSubmit frame.
func DecodeOrder(frame []byte, o *orderbook.Order) error {
	if len(frame) != FrameSize {
		return fmt.Errorf("wire: frame is %d bytes, want %d", len(frame), FrameSize)
	}
	if frame[offType] != MsgOrderSubmit {
		return fmt.Errorf("wire: message type %d is not an order submit", frame[offType])
	}
	side := orderbook.Side(frame[offSide])
	priceType := orderbook.PriceType(frame[offPriceType])
	if !side.Valid() {
		return fmt.Errorf("wire: invalid side %d", frame[offSide])
	}
	if !priceType.Valid() {
		return fmt.Errorf("wire: invalid price type %d", frame[offPriceType])
	}
	o.ProductID = binary.BigEndian.Uint16(frame[offProductID:])
	o.Side = side
	o.PriceType = priceType
	o.Price = binary.BigEndian.Uint64(frame[offPrice:])
	o.Quantity = binary.BigEndian.Uint64(frame[offQuantity:])
	o.OrderID = binary.BigEndian.Uint64(frame[offOrderID:])
	o.SubmitTime = binary.BigEndian.Uint64(frame[offSubmitTime:])
	o.ExpireTime = binary.BigEndian.Uint64(frame[offExpireTime:])
	return nil
}

// ---------------- OrderCancel ---------------- //

func EncodeCancel(frame []byte, productID uint16, orderID uint64) {
	clear(frame[:FrameSize])
	frame[offType] = MsgOrderCancel
	binary.BigEndian.PutUint16(frame[offProductID:], productID)
	binary.BigEndian.PutUint64(frame[offOrderID:], orderID)
}

func DecodeCancel(frame []byte) (productID uint16, orderID uint64, err error) {
	if len(frame) != FrameSize {
		return 0, 0, fmt.Errorf("wire: frame is %d bytes, want %d", len(frame), FrameSize)
	}
	if frame[offType] != MsgOrderCancel {
		return 0, 0, fmt.Errorf("wire: message type %d is not a cancel", frame[offType])
	}
	return binary.BigEndian.Uint16(frame[offProductID:]), binary.BigEndian.Uint64(frame[offOrderID:]), nil
}

// ---------------- MatchResult ---------------- //

func EncodeResult(frame []byte, r *orderbook.MatchResult) {
	clear(frame[:FrameSize])
	frame[offType] = MsgMatchResult
	binary.BigEndian.PutUint16(frame[offProductID:], r.ProductID)
	frame[offSide] = byte(r.TakerSide)
	binary.BigEndian.PutUint64(frame[offPrice:], r.Price)
	binary.BigEndian.PutUint64(frame[offQuantity:], r.Quantity)
	binary.BigEndian.PutUint64(frame[offOrderID:], r.TakerID)
	binary.BigEndian.PutUint64(frame[offSubmitTime:], r.ExecTime)
	binary.BigEndian.PutUint64(frame[offExpireTime:], r.MakerID)
	putUint40(frame[offTail:], r.Seq&SeqMask)
}

// DecodeResult is the receiver-side inverse of EncodeResult. Seq carries the
// low 40 bits of the original sequence number.
func DecodeResult(frame []byte) (orderbook.MatchResult, error) {
	if len(frame) != FrameSize {
		return orderbook.MatchResult{}, fmt.Errorf("wire: frame is %d bytes, want %d", len(frame), FrameSize)
	}
	if frame[offType] != MsgMatchResult {
		return orderbook.MatchResult{}, fmt.Errorf("wire: message type %d is not a match result", frame[offType])
	}
	side := orderbook.Side(frame[offSide])
	if !side.Valid() {
		return orderbook.MatchResult{}, fmt.Errorf("wire: invalid taker side %d", frame[offSide])
	}
	return orderbook.MatchResult{
		ProductID: binary.BigEndian.Uint16(frame[offProductID:]),
		TakerSide: side,
		Price:     binary.BigEndian.Uint64(frame[offPrice:]),
		Quantity:  binary.BigEndian.Uint64(frame[offQuantity:]),
		TakerID:   binary.BigEndian.Uint64(frame[offOrderID:]),
		ExecTime:  binary.BigEndian.Uint64(frame[offSubmitTime:]),
		MakerID:   binary.BigEndian.Uint64(frame[offExpireTime:]),
		Seq:       uint40(frame[offTail:]),
	}, nil
}

// ---------------- EngineStatus ---------------- //

// Status is the periodic counter sample broadcast on the status group.
type Status struct {
	ProductID     uint16
	Ready         bool
	Received      uint64
	Matched       uint64
	BidOrders     uint32
	AskOrders     uint32
	StartTime     uint64
	InboundDrops  uint32
	OutboundDrops uint32
	Tag           Tag
}

func EncodeStatus(frame []byte, s *Status) {
	clear(frame[:FrameSize])
	frame[offType] = MsgEngineStatus
	binary.BigEndian.PutUint16(frame[offProductID:], s.ProductID)
	if s.Ready {
		frame[offSide] = 1
	}
	binary.BigEndian.PutUint64(frame[offPrice:], s.Received)
	binary.BigEndian.PutUint64(frame[offQuantity:], s.Matched)
	binary.BigEndian.PutUint32(frame[offOrderID:], s.BidOrders)
	binary.BigEndian.PutUint32(frame[offOrderID+4:], s.AskOrders)
	binary.BigEndian.PutUint64(frame[offSubmitTime:], s.StartTime)
	binary.BigEndian.PutUint32(frame[offExpireTime:], s.InboundDrops)
	binary.BigEndian.PutUint32(frame[offExpireTime+4:], s.OutboundDrops)
	copy(frame[offTail:FrameSize], s.Tag[:])
}

func DecodeStatus(frame []byte) (Status, error) {
	if len(frame) != FrameSize {
		return Status{}, fmt.Errorf("wire: frame is %d bytes, want %d", len(frame), FrameSize)
	}
	if frame[offType] != MsgEngineStatus {
		return Status{}, fmt.Errorf("wire: message type %d is not an engine status", frame[offType])
	}
	var s Status
	s.ProductID = binary.BigEndian.Uint16(frame[offProductID:])
	s.Ready = frame[offSide] == 1
	s.Received = binary.BigEndian.Uint64(frame[offPrice:])
	s.Matched = binary.BigEndian.Uint64(frame[offQuantity:])
	s.BidOrders = binary.BigEndian.Uint32(frame[offOrderID:])
	s.AskOrders = binary.BigEndian.Uint32(frame[offOrderID+4:])
	s.StartTime = binary.BigEndian.Uint64(frame[offSubmitTime:])
	s.InboundDrops = binary.BigEndian.Uint32(frame[offExpireTime:])
	s.OutboundDrops = binary.BigEndian.Uint32(frame[offExpireTime+4:])
	copy(s.Tag[:], frame[offTail:FrameSize])
	return s, nil
}

// EncodeSentinel writes the zero record that terminates a fuel stream.
func EncodeSentinel(frame []byte) {
	clear(frame[:FrameSize])
}

func putUint40(b []byte, v uint64) {
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
}

func uint40(b []byte) uint64 {
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
}
