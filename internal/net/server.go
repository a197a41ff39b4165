package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	. "tradingfloor/internal/common"
	"tradingfloor/internal/engine"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	defaultWriteTimeout = time.Second
	defaultOutboxSize   = 256
)

var (
	ErrClientDoesNotExist = errors.New("client does not exist")
	ErrBrokerMismatch     = errors.New("connection is bound to another broker")
	ErrSessionBacklogged  = errors.New("client is not reading its reports")
	ErrSessionClosed      = errors.New("client session is closed")
)

// ClientSession is a connected TCP client. A session binds to the broker
// named in its first offer or price request.
//
// Reports are queued and written by the session's own writer, so matching
// never waits on a client socket.
type ClientSession struct {
	conn   net.Conn
	broker string

	outbox    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newClientSession(conn net.Conn, outboxSize int) *ClientSession {
	return &ClientSession{
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		closed: make(chan struct{}),
	}
}

// send queues buf without blocking.
func (c *ClientSession) send(buf []byte) error {
	select {
	case <-c.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case c.outbox <- buf:
		return nil
	default:
		return ErrSessionBacklogged
	}
}

func (c *ClientSession) write(buf []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write(buf)
	return err
}

// close stops the writer. Reports already queued are still flushed before
// the connection is closed.
func (c *ClientSession) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// writeLoop drains the outbox until the session is closed or a write fails,
// then closes the connection.
func (c *ClientSession) writeLoop() {
	defer c.conn.Close()

	for {
		select {
		case buf := <-c.outbox:
			if err := c.write(buf); err != nil {
				log.Warn().Err(err).Str("address", c.conn.RemoteAddr().String()).Msg("unable to write report")
				c.close()
				return
			}
		case <-c.closed:
			c.flush()
			return
		}
	}
}

func (c *ClientSession) flush() {
	for {
		select {
		case buf := <-c.outbox:
			if err := c.write(buf); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Server is the TCP gateway brokers use to submit operations to the engine
// and receive execution and price reports.
type Server struct {
	address string
	port    int
	engine  *engine.Engine

	listener   net.Listener
	ready      chan struct{}
	outboxSize int

	// All open connections, closed on shutdown.
	connections     map[*ClientSession]struct{}
	connectionsLock sync.Mutex

	// Bound sessions by broker id. The latest connection of a broker wins.
	clientSessions     map[string]*ClientSession
	clientSessionsLock sync.Mutex
}

func New(address string, port int, eng *engine.Engine) *Server {
	return &Server{
		address:        address,
		port:           port,
		engine:         eng,
		ready:          make(chan struct{}),
		outboxSize:     defaultOutboxSize,
		connections:    make(map[*ClientSession]struct{}),
		clientSessions: make(map[string]*ClientSession),
	}
}

// Addr blocks until the listener is up and returns its address.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.listener.Addr()
}

// Run listens until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	if err := s.engine.Observe(s); err != nil {
		_ = listener.Close()
		return err
	}
	s.listener = listener
	close(s.ready)

	t.Go(func() error {
		return s.accept(t)
	})

	// Unblock Accept and every reader once we are dying.
	t.Go(func() error {
		<-t.Dying()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
		s.closeConnections()
		return nil
	})

	log.Info().Str("address", listener.Addr().String()).Msg("gateway running")
	err = t.Wait()
	log.Info().Msg("gateway shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) accept(t *tomb.Tomb) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-t.Dying():
				return nil
			default:
			}
			log.Error().Err(err).Msg("error accepting client")
			continue
		}

		log.Info().
			Str("address", conn.RemoteAddr().String()).
			Msg("new client added")

		session := newClientSession(conn, s.outboxSize)
		s.connectionsLock.Lock()
		s.connections[session] = struct{}{}
		s.connectionsLock.Unlock()

		t.Go(func() error {
			session.writeLoop()
			return nil
		})
		t.Go(func() error {
			s.handleConnection(t, session)
			return nil
		})
	}
}

// handleConnection reads messages off the connection until the client
// leaves, a frame cannot be parsed or the gateway shuts down. Rejected
// operations are answered with an error report and keep the session alive.
func (s *Server) handleConnection(t *tomb.Tomb, session *ClientSession) {
	address := session.conn.RemoteAddr().String()
	defer s.deleteClientSession(session)

	for {
		message, err := ReadMessage(session.conn)
		if err != nil {
			select {
			case <-t.Dying():
				return
			default:
			}
			if errors.Is(err, io.EOF) {
				log.Info().Str("address", address).Msg("client disconnected")
				return
			}
			log.Error().Err(err).Str("address", address).Msg("error parsing message")
			s.replyError(session, err)
			return
		}

		if err := s.handleMessage(session, message); err != nil {
			log.Warn().Err(err).Str("address", address).Msg("operation rejected")
			s.replyError(session, err)
		}
	}
}

func (s *Server) handleMessage(session *ClientSession, message Message) error {
	switch m := message.(type) {
	case NewOfferMessage:
		broker, asset, err := s.resolve(session, m.Username, m.Ticker)
		if err != nil {
			return err
		}
		offer, err := engine.NewOffer(broker, asset, m.Side, m.Quantity, m.Price)
		if err != nil {
			return err
		}
		if err := s.engine.RegisterOperation(offer); err != nil {
			return err
		}
		return s.reply(session, Report{
			MessageType: AckReport,
			Side:        offer.Side(),
			Status:      offer.Status(),
			Timestamp:   uint64(offer.Instant().UnixNano()),
			Quantity:    offer.Quantity(),
			Price:       offer.Price(),
			Ticker:      asset.Symbol,
			UUID:        offer.ID(),
		})

	case PriceRequestMessage:
		broker, asset, err := s.resolve(session, m.Username, m.Ticker)
		if err != nil {
			return err
		}
		var info *engine.Info
		info, err = engine.NewInfo(broker, asset, m.Instant, func(price float64) {
			s.answerPrice(session, asset, info, price)
		})
		if err != nil {
			return err
		}
		if err := s.engine.RegisterOperation(info); err != nil {
			return err
		}
		return s.reply(session, Report{
			MessageType: AckReport,
			Timestamp:   uint64(info.Instant().UnixNano()),
			Ticker:      asset.Symbol,
			UUID:        info.ID(),
		})

	case BaseMessage:
		// Heartbeat.
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidMessageType, message.GetType())
}

// resolve looks up the broker and asset of a request and binds the session to
// the broker.
func (s *Server) resolve(session *ClientSession, username, ticker string) (Broker, Asset, error) {
	broker, err := s.engine.Broker(username)
	if err != nil {
		return Broker{}, Asset{}, err
	}
	book, err := s.engine.OrderBookBySymbol(ticker)
	if err != nil {
		return Broker{}, Asset{}, err
	}
	if err := s.bindClientSession(session, broker.ID); err != nil {
		return Broker{}, Asset{}, err
	}
	return broker, book.Asset(), nil
}

func (s *Server) answerPrice(session *ClientSession, asset Asset, info *engine.Info, price float64) {
	err := s.reply(session, Report{
		MessageType: PriceReport,
		Timestamp:   uint64(info.Target().UnixNano()),
		Price:       price,
		Ticker:      asset.Symbol,
		UUID:        info.ID(),
	})
	if err != nil {
		log.Error().Err(err).Str("broker", info.Broker().ID).Msg("unable to send price report")
	}
}

// OnTransaction sends an execution report to each side of the trade that has
// a connected session.
func (s *Server) OnTransaction(trade Trade) {
	sellerReport, buyerReport, err := generateWireTradeReports(trade)
	if err != nil {
		log.Error().Err(err).Msg("unable to generate trade reports")
		return
	}

	reports := []struct {
		broker string
		buf    []byte
	}{
		{trade.Seller.ID, sellerReport},
		{trade.Buyer.ID, buyerReport},
	}
	for _, report := range reports {
		if err := s.Report(report.broker, report.buf); err != nil && !errors.Is(err, ErrClientDoesNotExist) {
			log.Error().Err(err).Str("broker", report.broker).Msg("unable to send execution report")
		}
	}
}

// Report queues a serialized report for the session bound to broker. A
// session that lets its queue fill up is dropped.
func (s *Server) Report(broker string, buf []byte) error {
	s.clientSessionsLock.Lock()
	session, ok := s.clientSessions[broker]
	s.clientSessionsLock.Unlock()
	if !ok {
		return ErrClientDoesNotExist
	}

	if err := session.send(buf); err != nil {
		s.deleteClientSession(session)
		return fmt.Errorf("unable to send report: %w", err)
	}
	return nil
}

func (s *Server) reply(session *ClientSession, report Report) error {
	buf, err := report.Serialize()
	if err != nil {
		return err
	}
	return session.send(buf)
}

func (s *Server) replyError(session *ClientSession, err error) {
	buf, serr := generateWireErrorReport(err)
	if serr != nil {
		log.Error().Err(serr).Msg("unable to generate error report")
		return
	}
	if werr := session.send(buf); werr != nil {
		log.Error().Err(werr).Msg("unable to send error report")
	}
}

// bindClientSession is an atomic map add. A connection serves one broker.
func (s *Server) bindClientSession(session *ClientSession, broker string) error {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	if session.broker != "" && session.broker != broker {
		return fmt.Errorf("%w: %s", ErrBrokerMismatch, session.broker)
	}
	session.broker = broker
	s.clientSessions[broker] = session
	return nil
}

// deleteClientSession is an atomic map remove that also closes the session.
// The connection is closed by the session writer once its queue is flushed.
func (s *Server) deleteClientSession(session *ClientSession) {
	s.clientSessionsLock.Lock()
	if current, ok := s.clientSessions[session.broker]; ok && current == session {
		delete(s.clientSessions, session.broker)
	}
	s.clientSessionsLock.Unlock()

	s.connectionsLock.Lock()
	delete(s.connections, session)
	s.connectionsLock.Unlock()

	session.close()
}

func (s *Server) closeConnections() {
	s.connectionsLock.Lock()
	defer s.connectionsLock.Unlock()

	for session := range s.connections {
		session.close()
		if err := session.conn.Close(); err != nil {
			log.Debug().Err(err).Msg("unable to close connection")
		}
	}
}
