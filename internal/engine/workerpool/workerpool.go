/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

// Package workerpool runs mutator.Mutator executors across a fixed set of
// goroutines, sized from configuration and recycled periodically so a
// single worker goroutine doesn't accumulate state across thousands of
// mutant runs.
package workerpool

import (
	"runtime"
	"sync"

	"github.com/gremlor/gremlor/internal/configuration"
)

// queueCapacity bounds how many pending Executor values the Pool will
// buffer before AppendExecutor blocks, so a slow consumer applies
// backpressure instead of letting memory grow unbounded on a big module.
const queueCapacity = 100

// cycleProcessAfter is the number of jobs a single worker processes
// before the Pool retires it and spins up a replacement, bounding how
// much a long run can leak in the Go runtime's per-goroutine state.
const cycleProcessAfter = 100

// Executor is a unit of work a Worker runs.
type Executor interface {
	Start(worker *Worker)
}

// Worker runs Executor values pulled off a shared queue.
type Worker struct {
	Name   string
	ID     int
	stopCh chan struct{}
}

// NewWorker initialises a Worker identified by id and name.
func NewWorker(id int, name string) *Worker {
	return &Worker{
		Name: name,
		ID:   id,
	}
}

// Start runs a goroutine that pulls Executor values off queue until it
// closes. Used directly by callers that want a single, non-recycled
// worker; Pool uses its own recycling loop instead.
func (w *Worker) Start(queue <-chan Executor) {
	w.stopCh = make(chan struct{})
	go func() {
		w.drain(queue)
		w.stopCh <- struct{}{}
	}()
}

func (w *Worker) stop() {
	<-w.stopCh
}

// drain pulls Executor values off queue until it closes.
func (w *Worker) drain(queue <-chan Executor) {
	for job := range queue {
		job.Start(w)
	}
}

// runCycle pulls Executor values off queue until either queue closes
// (returns false, the caller should not replace this worker) or
// cycleProcessAfter jobs have been processed (returns true, the caller
// should replace this worker with a fresh one and keep consuming).
func (w *Worker) runCycle(queue <-chan Executor) bool {
	for processed := 0; processed < cycleProcessAfter; processed++ {
		job, ok := <-queue
		if !ok {
			return false
		}
		job.Start(w)
	}

	return true
}

// Pool is a fixed-size set of Worker goroutines consuming a shared,
// bounded Executor queue.
type Pool struct {
	queue   chan Executor
	name    string
	workers []*Worker
	size    int
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// Initialize sizes a Pool from the unleash.workers configuration key
// (defaulting to runtime.NumCPU). In integration mode the size is halved,
// since each worker there runs the full test suite rather than a single
// package.
func Initialize(name string) *Pool {
	size := configuration.Get[int](configuration.UnleashWorkersKey)
	if size == 0 {
		size = runtime.NumCPU()
	}
	if configuration.Get[bool](configuration.UnleashIntegrationMode) {
		size /= 2
	}
	if size < 1 {
		size = 1
	}

	p := &Pool{
		size: size,
		name: name,
	}
	p.queue = make(chan Executor, queueCapacity)

	return p
}

// ActiveWorkers returns how many workers the Pool is configured to run
// concurrently. A recycled worker is replaced in place, so this count
// stays constant for the Pool's lifetime.
func (p *Pool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.workers)
}

// AppendExecutor enqueues job for the next free worker, blocking if the
// queue is full.
func (p *Pool) AppendExecutor(job Executor) {
	p.queue <- job
}

// Start spins up the Pool's workers, each supervised so that hitting
// cycleProcessAfter retires it in favor of a freshly initialised one.
func (p *Pool) Start() {
	p.mu.Lock()
	p.workers = make([]*Worker, p.size)
	for i := 0; i < p.size; i++ {
		p.workers[i] = NewWorker(i, p.name)
	}
	p.mu.Unlock()

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.superviseSlot(i)
	}
}

func (p *Pool) superviseSlot(idx int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		w := p.workers[idx]
		p.mu.Unlock()

		if !w.runCycle(p.queue) {
			return
		}

		p.mu.Lock()
		p.workers[idx] = NewWorker(idx, p.name)
		p.mu.Unlock()
	}
}

// Stop closes the job queue and waits for every worker slot to drain.
func (p *Pool) Stop() {
	close(p.queue)
	p.wg.Wait()
}
