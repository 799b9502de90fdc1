package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned when a task is dropped because the pool is saturated.
var ErrQueueFull = errors.New("worker queue full")

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of workers. Keyed tasks land on
// the lane owned by one worker, so tasks sharing a key never run concurrently
// and keep their submission order.
type Pool struct {
	wg    sync.WaitGroup
	jobs  chan Task
	lanes []chan Task
	quit  chan struct{}
	once  sync.Once
	n     int
	log   *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	lanes := make([]chan Task, workers)
	for i := range lanes {
		lanes[i] = make(chan Task, 16)
	}
	return &Pool{
		jobs:  make(chan Task, workers*4),
		lanes: lanes,
		quit:  make(chan struct{}),
		n:     workers,
		log:   logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			lane := p.lanes[id]
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-lane:
					p.run(ctx, id, task)
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("worker task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int("worker", id).Msg("worker task error")
	}
}

// Stop signals the workers and waits for running tasks. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitKeyed queues task on the lane for key.
func (p *Pool) SubmitKeyed(key int64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.lanes[p.laneFor(key)] <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) laneFor(key int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(key, 10)))
	return int(h.Sum32() % uint32(p.n))
}
