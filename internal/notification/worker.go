package notification

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Notify when every worker is busy and the queue is full.
var ErrQueueFull = errors.New("notification queue full")

// Notice is one user-facing notification.
type Notice struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Sender delivers a Notice over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notice) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	senders []Sender
	log     *logrus.Entry
}

// NewWorkerPool creates a new worker pool. Each notice is delivered to every sender.
func NewWorkerPool(size, queueSize int, senders ...Sender) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, queueSize),
		senders: senders,
		log:     logrus.WithField("component", "notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.WithField("worker", id)
	log.Debug("worker started")
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, n Notice) {
	for _, s := range wp.senders {
		if err := s.Send(ctx, n); err != nil {
			wp.log.WithError(err).WithField("sender", s.Name()).Warn("failed to send notification")
		}
	}
}

// Notify queues n without blocking.
func (wp *WorkerPool) Notify(n Notice) error {
	select {
	case wp.jobs <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notice {
	return wp.jobs
}

// LogSender writes notices to the log. It is always registered so that a notice
// is visible even with no push channel configured.
type LogSender struct {
	Log *logrus.Entry
}

// Name implements Sender.
func (s *LogSender) Name() string { return "log" }

// Send implements Sender.
func (s *LogSender) Send(ctx context.Context, n Notice) error {
	log := s.Log
	if log == nil {
		log = logrus.WithField("component", "notification")
	}
	log.WithFields(logrus.Fields{"title": n.Title, "url": n.URL}).Info(n.Body)
	return nil
}
