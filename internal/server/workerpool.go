package server

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction does the actual work for one queued task. A non-nil
// return is fatal to the worker pool's tomb (matching the teacher's
// worker.go contract).
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool is a fixed-size pool of long-lived workers draining a
// shared task channel. This is the teacher's internal/worker.go shape
// with one change: Setup spawns exactly n workers once and each blocks
// on the task channel, instead of the teacher's Setup loop which polls
// `activeWorkers < pool.n` in a tight `select { default: }` with no
// blocking case -- that shape busy-spins the CPU once the pool is full.
type WorkerPool struct {
	n     int
	tasks chan any
}

// NewWorkerPool returns a pool sized for n concurrent workers.
func NewWorkerPool(n int) WorkerPool {
	return WorkerPool{
		n:     n,
		tasks: make(chan any, taskChanSize),
	}
}

// Setup starts the pool's n workers under t. Blocks until t is dying.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	for i := 0; i < pool.n; i++ {
		t.Go(func() error {
			return pool.worker(t, work)
		})
	}
	<-t.Dying()
}

// worker pulls tasks off the shared channel until the tomb is dying.
func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("worker exiting")
				return err
			}
		}
	}
}

// AddTask enqueues task for the next free worker. Blocks if the task
// channel is full.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}
