package services

import (
	"context"
	"sync"
	"time"

	"github.com/HSouheill/vendor_settlement/metrics"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.uber.org/zap"
)

// Message is one outbound notification. Mail channels deliver it when To is set,
// push channels when DeviceToken is set.
type Message struct {
	To          string
	Subject     string
	Body        string
	DeviceToken string
	Data        map[string]string
}

// Channel delivers messages over one transport.
type Channel interface {
	Name() string
	Accepts(msg Message) bool
	Send(ctx context.Context, msg Message) error
}

// Enqueuer accepts notifications for asynchronous delivery. Enqueue never blocks
// and reports whether the message was accepted.
type Enqueuer interface {
	Enqueue(msg Message) bool
}

type nopEnqueuer struct{}

func (nopEnqueuer) Enqueue(Message) bool { return true }

// NotificationQueueConfig configures a NotificationQueue.
type NotificationQueueConfig struct {
	Workers  int
	Size     int
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
	Clock    clock.Clock
}

// NotificationQueue is a bounded buffer drained by a fixed pool of workers.
type NotificationQueue struct {
	cfg      NotificationQueueConfig
	channels []Channel
	logger   *zap.Logger
	queue    chan Message

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewNotificationQueue(cfg NotificationQueueConfig, logger *zap.Logger, channels ...Channel) *NotificationQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Size <= 0 {
		cfg.Size = 100
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationQueue{
		cfg:      cfg,
		channels: channels,
		logger:   logger,
		queue:    make(chan Message, cfg.Size),
		stop:     make(chan struct{}),
	}
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (q *NotificationQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
	q.logger.Info("Notification queue started",
		zap.Int("workers", q.cfg.Workers),
		zap.Int("size", q.cfg.Size),
	)
}

// Stop signals the workers and waits for in-flight deliveries to finish.
// Messages still buffered are discarded.
func (q *NotificationQueue) Stop() {
	q.mu.Lock()
	select {
	case <-q.stop:
	default:
		close(q.stop)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *NotificationQueue) Enqueue(msg Message) bool {
	select {
	case <-q.stop:
		return false
	default:
	}

	select {
	case q.queue <- msg:
		return true
	default:
		metrics.NotificationsTotal.WithLabelValues("queue", "dropped").Inc()
		q.logger.Warn("Notification queue full, dropping message",
			zap.String("subject", msg.Subject),
			zap.Int("size", q.cfg.Size),
		)
		return false
	}
}

func (q *NotificationQueue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case msg := <-q.queue:
			q.deliver(ctx, msg)
		}
	}
}

func (q *NotificationQueue) deliver(ctx context.Context, msg Message) {
	for _, ch := range q.channels {
		if !ch.Accepts(msg) {
			continue
		}
		name := ch.Name()
		err := retry.Call(retry.CallArgs{
			Func: func() error {
				return ch.Send(ctx, msg)
			},
			NotifyFunc: func(err error, attempt int) {
				q.logger.Debug("Notification attempt failed",
					zap.String("channel", name),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			},
			Attempts:    q.cfg.Attempts,
			Delay:       q.cfg.Delay,
			MaxDelay:    q.cfg.MaxDelay,
			BackoffFunc: retry.DoubleDelay,
			Clock:       q.cfg.Clock,
			Stop:        q.stop,
		})
		if err != nil {
			metrics.NotificationsTotal.WithLabelValues(name, "failed").Inc()
			q.logger.Error("Failed to deliver notification",
				zap.String("channel", name),
				zap.String("subject", msg.Subject),
				zap.Int("attempts", q.cfg.Attempts),
				zap.Error(err),
			)
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(name, "sent").Inc()
	}
}
