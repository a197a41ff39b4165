package server

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"tradingfloor/internal/engine"
	fnet "tradingfloor/internal/net"
	"tradingfloor/internal/utils"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

var ErrImproperConversion = errors.New("improper type conversion")

// Server drives the engine: every tick it hands each order book to the
// worker pool and waits for all of them before the next tick starts, so a
// book is never processed by two passes at once.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc

	engine  *engine.Engine
	gateway *fnet.Server // Optional.
	pool    *utils.WorkerPool
	period  time.Duration

	ticks atomic.Uint64
}

// tickTask is one book to process in the current tick.
type tickTask struct {
	book    *engine.OrderBook
	results chan<- engine.TickStats
}

func Create(ctx context.Context, cancel context.CancelFunc, eng *engine.Engine, period time.Duration, workers uint, gateway *fnet.Server) *Server {
	return &Server{
		ctx:     ctx,
		cancel:  cancel,
		engine:  eng,
		gateway: gateway,
		pool:    utils.NewWorkerPool(workers),
		period:  period,
	}
}

// Destroys the server context, and signals to running routines to issue a cleanup.
func (s *Server) Shutdown() {
	s.cancel()
}

// Ticks is the number of completed processing ticks.
func (s *Server) Ticks() uint64 {
	return s.ticks.Load()
}

// Run blocks until the server context is done or a routine fails.
func (s *Server) Run() error {
	t, ctx := tomb.WithContext(s.ctx)

	s.pool.Setup(t, s.processBook)

	if s.gateway != nil {
		t.Go(func() error {
			return s.gateway.Run(ctx)
		})
	}

	t.Go(func() error {
		return s.tickLoop(t)
	})

	log.Info().
		Dur("period", s.period).
		Int("workers", s.pool.Size()).
		Int("books", len(s.engine.OrderBooks())).
		Msg("server running")

	err := t.Wait()
	log.Info().Uint64("ticks", s.ticks.Load()).Msg("server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) tickLoop(t *tomb.Tomb) error {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			stats, ok := s.tick(t)
			if !ok {
				return nil
			}
			s.ticks.Add(1)
			log.Debug().
				Int("operations", stats.Operations).
				Int("processed", stats.Processed).
				Int("failed", stats.Failed).
				Msg("tick processed")
		}
	}
}

// tick dispatches every book to the pool and collects their stats. It gives
// up when the tomb starts dying.
func (s *Server) tick(t *tomb.Tomb) (engine.TickStats, bool) {
	books := s.engine.OrderBooks()
	results := make(chan engine.TickStats, len(books))

	dispatched := 0
	for _, book := range books {
		if err := s.pool.AddTask(tickTask{book: book, results: results}); err != nil {
			return engine.TickStats{}, false
		}
		dispatched++
	}

	var total engine.TickStats
	for i := 0; i < dispatched; i++ {
		select {
		case <-t.Dying():
			return total, false
		case stats := <-results:
			total = total.Add(stats)
		}
	}
	return total, true
}

// processBook is the pool's work function.
func (s *Server) processBook(_ *tomb.Tomb, task any) error {
	tt, ok := task.(tickTask)
	if !ok {
		return ErrImproperConversion
	}

	stats, err := tt.book.Process(s.engine)
	if err != nil {
		log.Error().Err(err).Str("asset", tt.book.Asset().Symbol).Msg("unable to process book")
	}
	tt.results <- stats
	return nil
}
