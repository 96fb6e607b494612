package services

import "sync"

// workerPool runs fire-and-forget tasks on a fixed set of goroutines.
// Nobody awaits a task's result; failures are the task's own business
// (they get logged by the submitter's closure).
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup

	closeOnce sync.Once
}

func newWorkerPool(workers, queueSize int) *workerPool {
	p := &workerPool{tasks: make(chan func(), queueSize)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Submit enqueues a task. Blocks when the queue is full.
func (p *workerPool) Submit(task func()) {
	p.tasks <- task
}

// Shutdown stops accepting tasks and waits for queued ones to drain.
func (p *workerPool) Shutdown() {
	p.closeOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()
}
