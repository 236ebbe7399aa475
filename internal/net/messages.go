package net

import (
	"encoding/binary"
	"errors"

	"hati/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrInvalidSide        = errors.New("invalid side")
	ErrInvalidOrderType   = errors.New("invalid order type")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	AmendOrder
)

type OrderType int

const (
	LimitOrder OrderType = iota
	MarketOrder
)

type ReportType int

const (
	ExecutionReport ReportType = iota
	DepthReport
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	BaseMessageHeaderLen   = 2
	NewOrderMessageLen     = 2 + 8 + 2 + 1 + 4 + 8
	CancelOrderMessageLen  = 2 + 8
	AmendOrderMessageLen   = 2 + 8 + 8
	reportFixedHeaderLen   = 1 + 1 + 4 + 8 + 8 + 8 + 8 + 2
	MaxReportErrStringSize = 256
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func ParseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case AmendOrder:
		return parseAmendOrder(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

type NewOrderMessage struct {
	BaseMessage
	OrderID   engine.OrderID // 8 bytes
	OrderType OrderType      // 2 bytes
	Side      engine.Side    // 1 byte
	Price     engine.Price   // 4 bytes, ignored for market orders
	Quantity  uint64         // 8 bytes
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageLen-BaseMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.OrderID = engine.OrderID(binary.BigEndian.Uint64(msg[0:8]))
	m.OrderType = OrderType(binary.BigEndian.Uint16(msg[8:10]))
	if m.OrderType != LimitOrder && m.OrderType != MarketOrder {
		return NewOrderMessage{}, ErrInvalidOrderType
	}
	switch msg[10] {
	case 0:
		m.Side = engine.Buy
	case 1:
		m.Side = engine.Sell
	default:
		return NewOrderMessage{}, ErrInvalidSide
	}
	m.Price = engine.Price(binary.BigEndian.Uint32(msg[11:15]))
	m.Quantity = binary.BigEndian.Uint64(msg[15:23])

	return m, nil
}

// Serialize packs the message for the wire, header included.
func (m NewOrderMessage) Serialize() []byte {
	buf := make([]byte, NewOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(m.OrderID))
	binary.BigEndian.PutUint16(buf[10:12], uint16(m.OrderType))
	if m.Side == engine.Sell {
		buf[12] = 1
	}
	binary.BigEndian.PutUint32(buf[13:17], uint32(m.Price))
	binary.BigEndian.PutUint64(buf[17:25], m.Quantity)
	return buf
}

type CancelOrderMessage struct {
	BaseMessage
	OrderID engine.OrderID // 8 bytes
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageLen-BaseMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.OrderID = engine.OrderID(binary.BigEndian.Uint64(msg[0:8]))
	return m, nil
}

func (m CancelOrderMessage) Serialize() []byte {
	buf := make([]byte, CancelOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(m.OrderID))
	return buf
}

type AmendOrderMessage struct {
	BaseMessage
	OrderID     engine.OrderID // 8 bytes
	NewQuantity uint64         // 8 bytes
}

func parseAmendOrder(msg []byte) (AmendOrderMessage, error) {
	if len(msg) < AmendOrderMessageLen-BaseMessageHeaderLen {
		return AmendOrderMessage{}, ErrMessageTooShort
	}
	m := AmendOrderMessage{BaseMessage: BaseMessage{TypeOf: AmendOrder}}
	m.OrderID = engine.OrderID(binary.BigEndian.Uint64(msg[0:8]))
	m.NewQuantity = binary.BigEndian.Uint64(msg[8:16])
	return m, nil
}

func (m AmendOrderMessage) Serialize() []byte {
	buf := make([]byte, AmendOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(AmendOrder))
	binary.BigEndian.PutUint64(buf[2:10], uint64(m.OrderID))
	binary.BigEndian.PutUint64(buf[10:18], m.NewQuantity)
	return buf
}

// Report is the single outbound frame shape: executions, depth updates
// and command rejections all share it, discriminated by ReportType.
type Report struct {
	TypeOf      ReportType     // 1 byte
	Side        engine.Side    // 1 byte
	Price       engine.Price   // 4 bytes
	Quantity    uint64         // 8 bytes
	AggressorID engine.OrderID // 8 bytes
	RestingID   engine.OrderID // 8 bytes
	Sequence    uint64         // 8 bytes
	ErrStrLen   uint16         // 2 bytes
	Err         string         // n bytes
}

// Serialize converts the report to be sent on the wire.
func (r Report) Serialize() []byte {
	errStr := r.Err
	if len(errStr) > MaxReportErrStringSize {
		errStr = errStr[:MaxReportErrStringSize]
	}

	buf := make([]byte, reportFixedHeaderLen+len(errStr))
	buf[0] = byte(r.TypeOf)
	if r.Side == engine.Sell {
		buf[1] = 1
	}
	binary.BigEndian.PutUint32(buf[2:6], uint32(r.Price))
	binary.BigEndian.PutUint64(buf[6:14], r.Quantity)
	binary.BigEndian.PutUint64(buf[14:22], uint64(r.AggressorID))
	binary.BigEndian.PutUint64(buf[22:30], uint64(r.RestingID))
	binary.BigEndian.PutUint64(buf[30:38], r.Sequence)
	binary.BigEndian.PutUint16(buf[38:40], uint16(len(errStr)))
	copy(buf[reportFixedHeaderLen:], errStr)
	return buf
}

// ParseReport decodes an outbound frame; the test client uses it.
func ParseReport(msg []byte) (Report, error) {
	if len(msg) < reportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		TypeOf:      ReportType(msg[0]),
		Price:       engine.Price(binary.BigEndian.Uint32(msg[2:6])),
		Quantity:    binary.BigEndian.Uint64(msg[6:14]),
		AggressorID: engine.OrderID(binary.BigEndian.Uint64(msg[14:22])),
		RestingID:   engine.OrderID(binary.BigEndian.Uint64(msg[22:30])),
		Sequence:    binary.BigEndian.Uint64(msg[30:38]),
		ErrStrLen:   binary.BigEndian.Uint16(msg[38:40]),
	}
	if msg[1] == 1 {
		r.Side = engine.Sell
	}
	if int(r.ErrStrLen) > len(msg)-reportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}
	r.Err = string(msg[reportFixedHeaderLen : reportFixedHeaderLen+int(r.ErrStrLen)])
	return r, nil
}
