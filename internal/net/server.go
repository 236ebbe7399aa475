package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"hati/internal/engine"
	"hati/internal/journal"
	"hati/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	MaxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	id   uuid.UUID
	conn net.Conn
}

// ClientMessage links a parsed message to the session that sent it.
type ClientMessage struct {
	sessionID uuid.UUID
	message   Message
}

// Server is the order-entry gateway. Connections are read by a worker
// pool, but every parsed command funnels into a single dispatch
// goroutine that owns the book, giving the engine the total command
// order its price-time semantics require.
type Server struct {
	address string
	port    int

	book *engine.Book
	jnl  journal.Appender

	pool           utils.WorkerPool
	cancel         context.CancelFunc
	sessions       map[uuid.UUID]ClientSession
	sessionsLock   sync.Mutex
	clientMessages chan ClientMessage

	// owners routes execution reports back to the session that placed
	// each live order. Guarded by the dispatch goroutine only.
	owners map[engine.OrderID]uuid.UUID

	// current is the session whose command is being applied; sink
	// callbacks fire synchronously inside that application.
	current uuid.UUID
}

// New builds a gateway for one book. jnl may be nil to run without
// journalling.
func New(address string, port int, book *engine.Book, jnl journal.Appender) *Server {
	return &Server{
		address:        address,
		port:           port,
		book:           book,
		jnl:            jnl,
		pool:           utils.NewWorkerPool(defaultNWorkers),
		sessions:       make(map[uuid.UUID]ClientSession),
		clientMessages: make(chan ClientMessage, 1),
		owners:         make(map[engine.OrderID]uuid.UUID),
	}
}

// SetBook swaps the gateway's book before Run; used when the sink chain
// needs the server constructed first.
func (s *Server) SetBook(book *engine.Book) {
	s.book = book
}

func (s *Server) Shutdown() {
	log.Info().Msg("gateway shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool.
	s.pool.Setup(t, s.handleConnection)

	// Start the dispatcher. It is the only goroutine that touches the
	// book.
	t.Go(func() error {
		return s.dispatch(t)
	})

	log.Info().Str("address", s.address).Int("port", s.port).Msg("gateway running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			session := s.addClientSession(conn)
			log.Info().
				Str("session", session.id.String()).
				Str("address", conn.RemoteAddr().String()).
				Msg("new client added")

			s.pool.AddTask(session)
		}
	}
}

// dispatch applies commands to the book one at a time and answers the
// submitting client. Journalling happens before application, so a crash
// after the append replays the command rather than losing it.
func (s *Server) dispatch(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case cm := <-s.clientMessages:
			s.apply(cm)
		}
	}
}

func (s *Server) apply(cm ClientMessage) {
	s.current = cm.sessionID

	var err error
	switch m := cm.message.(type) {
	case NewOrderMessage:
		s.journal(journal.RecordNew, m.Serialize())
		if m.OrderType == MarketOrder {
			err = s.book.NewMarket(m.OrderID, m.Side, m.Quantity)
		} else {
			err = s.book.NewLimit(m.OrderID, m.Side, m.Price, m.Quantity)
		}
		// Only accepted orders that rested need report routing.
		if err == nil {
			if _, rerr := s.book.Remaining(m.OrderID); rerr == nil {
				s.owners[m.OrderID] = cm.sessionID
			}
		}
	case CancelOrderMessage:
		s.journal(journal.RecordCancel, m.Serialize())
		err = s.book.Cancel(m.OrderID)
		if err == nil {
			delete(s.owners, m.OrderID)
		}
	case AmendOrderMessage:
		s.journal(journal.RecordAmend, m.Serialize())
		err = s.book.AmendDown(m.OrderID, m.NewQuantity)
		if _, rerr := s.book.Remaining(m.OrderID); rerr != nil {
			delete(s.owners, m.OrderID)
		}
	case BaseMessage:
		// Heartbeat; nothing to apply.
		return
	default:
		err = ErrInvalidMessageType
	}

	if err != nil {
		log.Info().Err(err).Str("session", cm.sessionID.String()).Msg("command rejected")
		s.report(cm.sessionID, Report{
			TypeOf:    ErrorReport,
			ErrStrLen: uint16(len(err.Error())),
			Err:       err.Error(),
		})
	}
}

func (s *Server) journal(typ journal.RecordType, frame []byte) {
	if s.jnl == nil {
		return
	}
	if err := s.jnl.Append(journal.Record{Type: typ, Data: frame}); err != nil {
		log.Error().Err(err).Msg("journal append failed")
	}
}

// OnTrade implements engine.EventSink: both parties to the fill get an
// execution report. Fired synchronously inside apply, on the dispatch
// goroutine.
func (s *Server) OnTrade(tr engine.Trade) {
	rep := Report{
		TypeOf:      ExecutionReport,
		Price:       tr.Price,
		Quantity:    tr.Quantity,
		AggressorID: tr.AggressorID,
		RestingID:   tr.RestingID,
		Sequence:    tr.Sequence,
	}
	s.report(s.current, rep)
	if owner, ok := s.owners[tr.RestingID]; ok && owner != s.current {
		s.report(owner, rep)
	}
}

// OnBookChanged implements engine.EventSink. Depth changes are a
// market-data concern; the gateway only answers order-entry traffic.
func (s *Server) OnBookChanged(engine.Side, engine.Price, uint64) {}

func (s *Server) report(sessionID uuid.UUID, rep Report) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	client, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if _, err := client.conn.Write(rep.Serialize()); err != nil {
		log.Error().Err(err).Str("session", sessionID.String()).Msg("unable to send report")
		delete(s.sessions, sessionID)
	}
}

// handleConnection is a short-lived worker method which reads the next
// message off the connection, parses it and passes it to the dispatcher.
// If the connection dies, the client session is cleaned up. The session
// is re-queued after each message so one slow client cannot pin a
// worker.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	session, ok := task.(ClientSession)
	if !ok {
		return ErrImproperConversion
	}

	if err := session.conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Err(err).
			Str("session", session.id.String()).
			Msg("failed setting deadline for connection")
		s.deleteClientSession(session.id)
		return nil
	}

	buffer := make([]byte, MaxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := session.conn.Read(buffer)
		if err != nil {
			// Likely a departed client; drop the session.
			log.Info().
				Err(err).
				Str("session", session.id.String()).
				Msg("closing client connection")
			s.deleteClientSession(session.id)
			return nil
		}

		message, err := ParseMessage(buffer[:n])
		if err != nil {
			log.Error().
				Err(err).
				Str("session", session.id.String()).
				Msg("error parsing message")
			s.deleteClientSession(session.id)
			return nil
		}

		s.clientMessages <- ClientMessage{
			sessionID: session.id,
			message:   message,
		}

		// Push the session back to handle the next message.
		s.pool.AddTask(session)
	}
	return nil
}

// addClientSession is an atomic map add.
func (s *Server) addClientSession(conn net.Conn) ClientSession {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	session := ClientSession{id: uuid.New(), conn: conn}
	s.sessions[session.id] = session
	return session
}

// deleteClientSession is an atomic map remove.
func (s *Server) deleteClientSession(id uuid.UUID) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	if client, ok := s.sessions[id]; ok {
		_ = client.conn.Close()
		delete(s.sessions, id)
	}
}
