package utils

import (
	"errors"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	TASK_CHAN_SIZE = 100
)

var ErrPoolStopped = errors.New("worker pool stopped")

type WorkerFunction = func(t *tomb.Tomb, task any) error
type WorkerPool struct {
	n     int            // number of workers
	tasks chan any       // pending tasks
	t     *tomb.Tomb     // lifecycle of the workers, set by Setup
	ready chan struct{}  // closed once Setup has run
	work  WorkerFunction // do work method
}

func NewWorkerPool(size uint) *WorkerPool {
	if size == 0 {
		size = 1
	}
	return &WorkerPool{
		n:     int(size),
		tasks: make(chan any, TASK_CHAN_SIZE),
		ready: make(chan struct{}),
	}
}

func (pool *WorkerPool) Size() int {
	return pool.n
}

// Setup starts the workers on the tomb. Workers live until the tomb starts
// dying or the work function returns an error, which kills the tomb.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.t = t
	pool.work = work
	for id := 0; id < pool.n; id++ {
		t.Go(func() error {
			return pool.worker(t, id)
		})
	}
	close(pool.ready)
}

// AddTask queues a task, blocking while the queue is full. It fails once the
// pool's tomb is dying.
func (pool *WorkerPool) AddTask(task any) error {
	<-pool.ready
	select {
	case <-pool.t.Dying():
		return ErrPoolStopped
	default:
	}
	select {
	case <-pool.t.Dying():
		return ErrPoolStopped
	case pool.tasks <- task:
		return nil
	}
}

// Workers wait on tasks in the task pool and action them.
func (pool *WorkerPool) worker(t *tomb.Tomb, id int) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := pool.work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}
