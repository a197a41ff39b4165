package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	. "tradingfloor/internal/common"

	"github.com/google/uuid"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrTickerTooLong      = errors.New("ticker too long")
	ErrUsernameTooLong    = errors.New("username too long")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOffer
	PriceRequest
)

type ReportMessageType int

const (
	AckReport ReportMessageType = iota
	ExecutionReport
	PriceReport
	ErrorReport
)

func (t ReportMessageType) String() string {
	switch t {
	case AckReport:
		return "ACK"
	case ExecutionReport:
		return "EXECUTION"
	case PriceReport:
		return "PRICE"
	case ErrorReport:
		return "ERROR"
	}
	return fmt.Sprintf("ReportMessageType(%d)", int(t))
}

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	TickerLen                    = 8
	BaseMessageHeaderLen         = 2
	NewOfferMessageHeaderLen     = TickerLen + 8 + 8 + 1 + 1
	PriceRequestMessageHeaderLen = TickerLen + 8 + 1
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

// ReadMessage reads the next client message off the stream.
func ReadMessage(r io.Reader) (Message, error) {
	header := make([]byte, BaseMessageHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	typeOf := MessageType(binary.BigEndian.Uint16(header))
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case NewOffer:
		return readNewOffer(r)
	case PriceRequest:
		return readPriceRequest(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMessageType, typeOf)
	}
}

// readBody reads a fixed header of n bytes followed by the username whose
// length is the last header byte.
func readBody(r io.Reader, n int) ([]byte, string, error) {
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMessageTooShort, err)
	}

	username := make([]byte, body[n-1])
	if _, err := io.ReadFull(r, username); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMessageTooShort, err)
	}
	return body, string(username), nil
}

type NewOfferMessage struct {
	BaseMessage
	Ticker      string  // 8 bytes
	Price       float64 // 8 bytes
	Quantity    uint64  // 8 bytes
	Side        Side    // 1 byte
	UsernameLen uint8   // 1 byte
	Username    string  // n bytes
}

func NewOfferRequest(username, ticker string, side Side, quantity uint64, price float64) NewOfferMessage {
	return NewOfferMessage{
		BaseMessage: BaseMessage{TypeOf: NewOffer},
		Ticker:      ticker,
		Price:       price,
		Quantity:    quantity,
		Side:        side,
		UsernameLen: uint8(len(username)),
		Username:    username,
	}
}

func readNewOffer(r io.Reader) (NewOfferMessage, error) {
	body, username, err := readBody(r, NewOfferMessageHeaderLen)
	if err != nil {
		return NewOfferMessage{}, err
	}

	m := NewOfferMessage{BaseMessage: BaseMessage{TypeOf: NewOffer}}
	m.Ticker = decodeTicker(body[0:8])
	m.Price = math.Float64frombits(binary.BigEndian.Uint64(body[8:16]))
	m.Quantity = binary.BigEndian.Uint64(body[16:24])
	m.Side = Side(body[24])
	m.UsernameLen = body[25]
	m.Username = username
	return m, nil
}

// Serialize converts the message to be sent on the wire.
func (m NewOfferMessage) Serialize() ([]byte, error) {
	if err := checkLengths(m.Ticker, m.Username); err != nil {
		return nil, err
	}

	buf := make([]byte, BaseMessageHeaderLen+NewOfferMessageHeaderLen+len(m.Username))
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOffer))
	copy(buf[2:10], m.Ticker)
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(m.Price))
	binary.BigEndian.PutUint64(buf[18:26], m.Quantity)
	buf[26] = byte(m.Side)
	buf[27] = uint8(len(m.Username))
	copy(buf[28:], m.Username)
	return buf, nil
}

type PriceRequestMessage struct {
	BaseMessage
	Ticker      string    // 8 bytes
	Instant     time.Time // 8 bytes, unix nanoseconds
	UsernameLen uint8     // 1 byte
	Username    string    // n bytes
}

func NewPriceRequest(username, ticker string, instant time.Time) PriceRequestMessage {
	return PriceRequestMessage{
		BaseMessage: BaseMessage{TypeOf: PriceRequest},
		Ticker:      ticker,
		Instant:     instant,
		UsernameLen: uint8(len(username)),
		Username:    username,
	}
}

func readPriceRequest(r io.Reader) (PriceRequestMessage, error) {
	body, username, err := readBody(r, PriceRequestMessageHeaderLen)
	if err != nil {
		return PriceRequestMessage{}, err
	}

	m := PriceRequestMessage{BaseMessage: BaseMessage{TypeOf: PriceRequest}}
	m.Ticker = decodeTicker(body[0:8])
	m.Instant = time.Unix(0, int64(binary.BigEndian.Uint64(body[8:16])))
	m.UsernameLen = body[16]
	m.Username = username
	return m, nil
}

func (m PriceRequestMessage) Serialize() ([]byte, error) {
	if err := checkLengths(m.Ticker, m.Username); err != nil {
		return nil, err
	}

	buf := make([]byte, BaseMessageHeaderLen+PriceRequestMessageHeaderLen+len(m.Username))
	binary.BigEndian.PutUint16(buf[0:2], uint16(PriceRequest))
	copy(buf[2:10], m.Ticker)
	binary.BigEndian.PutUint64(buf[10:18], uint64(m.Instant.UnixNano()))
	buf[18] = uint8(len(m.Username))
	copy(buf[19:], m.Username)
	return buf, nil
}

// SerializeHeartbeat returns the two byte heartbeat frame.
func SerializeHeartbeat() []byte {
	buf := make([]byte, BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf, uint16(Heartbeat))
	return buf
}

func checkLengths(ticker, username string) error {
	if len(ticker) > TickerLen {
		return fmt.Errorf("%w: %q", ErrTickerTooLong, ticker)
	}
	if len(username) > math.MaxUint8 {
		return ErrUsernameTooLong
	}
	return nil
}

func decodeTicker(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

type Report struct {
	MessageType     ReportMessageType // 1 byte
	Side            Side              // 1 byte
	Status          OfferStatus       // 1 byte
	Timestamp       uint64            // 8 bytes, unix nanoseconds
	Quantity        uint64            // 8 bytes
	Price           float64           // 8 bytes
	CounterpartyLen uint16            // 2 bytes
	ErrStrLen       uint32            // 4 bytes
	Ticker          string            // 8 bytes
	UUID            uuid.UUID         // 16 bytes
	Err             string            // n bytes
	Counterparty    string            // n bytes (in this case we show who)
}

const ReportFixedHeaderLen = 1 + 1 + 1 + 8 + 8 + 8 + 2 + 4 + TickerLen + 16

// Serialize converts the report to be sent on the wire. The length fields are
// derived from the strings.
func (r *Report) Serialize() ([]byte, error) {
	if len(r.Ticker) > TickerLen {
		return nil, fmt.Errorf("%w: %q", ErrTickerTooLong, r.Ticker)
	}
	r.ErrStrLen = uint32(len(r.Err))
	r.CounterpartyLen = uint16(len(r.Counterparty))

	buf := make([]byte, ReportFixedHeaderLen+len(r.Err)+len(r.Counterparty))
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	buf[2] = byte(r.Status)
	binary.BigEndian.PutUint64(buf[3:11], r.Timestamp)
	binary.BigEndian.PutUint64(buf[11:19], r.Quantity)
	binary.BigEndian.PutUint64(buf[19:27], math.Float64bits(r.Price))
	binary.BigEndian.PutUint16(buf[27:29], r.CounterpartyLen)
	binary.BigEndian.PutUint32(buf[29:33], r.ErrStrLen)
	copy(buf[33:41], r.Ticker)
	copy(buf[41:57], r.UUID[:])

	offset := ReportFixedHeaderLen
	copy(buf[offset:], r.Err)
	offset += len(r.Err)
	copy(buf[offset:], r.Counterparty)
	return buf, nil
}

// ReadReport reads the next report off the stream.
func ReadReport(rd io.Reader) (Report, error) {
	header := make([]byte, ReportFixedHeaderLen)
	if _, err := io.ReadFull(rd, header); err != nil {
		return Report{}, err
	}

	r := Report{
		MessageType:     ReportMessageType(header[0]),
		Side:            Side(header[1]),
		Status:          OfferStatus(header[2]),
		Timestamp:       binary.BigEndian.Uint64(header[3:11]),
		Quantity:        binary.BigEndian.Uint64(header[11:19]),
		Price:           math.Float64frombits(binary.BigEndian.Uint64(header[19:27])),
		CounterpartyLen: binary.BigEndian.Uint16(header[27:29]),
		ErrStrLen:       binary.BigEndian.Uint32(header[29:33]),
		Ticker:          decodeTicker(header[33:41]),
	}
	copy(r.UUID[:], header[41:57])

	body := make([]byte, int(r.ErrStrLen)+int(r.CounterpartyLen))
	if len(body) > 0 {
		if _, err := io.ReadFull(rd, body); err != nil {
			return Report{}, fmt.Errorf("%w: %w", ErrMessageTooShort, err)
		}
	}
	r.Err = string(body[:r.ErrStrLen])
	r.Counterparty = string(body[r.ErrStrLen:])
	return r, nil
}

// generateWireTradeReports generates both trade reports, one addressed to
// each counterparty.
func generateWireTradeReports(trade Trade) ([]byte, []byte, error) {
	createReport := func(side Side, counterParty Broker) Report {
		return Report{
			MessageType:  ExecutionReport,
			Side:         side,
			Timestamp:    uint64(trade.Timestamp.UnixNano()),
			Quantity:     trade.Quantity,
			Price:        trade.Price,
			Ticker:       trade.Asset.Symbol,
			Counterparty: counterParty.ID,
		}
	}

	sellerReport := createReport(Sell, trade.Buyer)
	buyerReport := createReport(Buy, trade.Seller)

	b1, err := sellerReport.Serialize()
	if err != nil {
		return nil, nil, err
	}
	b2, err := buyerReport.Serialize()
	if err != nil {
		return nil, nil, err
	}
	return b1, b2, nil
}

func generateWireErrorReport(err error) ([]byte, error) {
	report := Report{
		MessageType: ErrorReport,
		Timestamp:   uint64(time.Now().UnixNano()),
		Err:         err.Error(),
	}
	return report.Serialize()
}
