package jobs

import (
	"context"
	"log"
	"time"
)

// Task defines a unit of recurring background work
type Task interface {
	Run(ctx context.Context) error
}

// Worker runs a task on a fixed interval
type Worker struct {
	task     Task
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the task once immediately, then on every tick until the context
// is cancelled or Stop is called. A non-positive interval runs the task once
// and then only waits for shutdown; time.NewTicker panics on those.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	log.Printf("Worker started with interval: %v", w.interval)

	if err := w.task.Run(ctx); err != nil {
		log.Printf("Error running task: %v", err)
	}

	if w.interval <= 0 {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
		case <-w.stopChan:
			log.Println("Worker stopped: stop signal received")
		}
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.task.Run(ctx); err != nil {
				log.Printf("Error running task: %v", err)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Worker shutdown complete")
}
