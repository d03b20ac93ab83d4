package notify

import (
	"context"
	"sync"
	"time"

	"ground-booking/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher is the broker side of a BrokerSink; *mq.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type BrokerOption func(*BrokerSink)

// WithRetry sets the attempt count after the first try and the first delay.
func WithRetry(maxRetries int, initialDelay time.Duration) BrokerOption {
	return func(s *BrokerSink) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if initialDelay > 0 {
			s.initialDelay = initialDelay
		}
	}
}

func WithMetrics(m *metrics.Metrics) BrokerOption {
	return func(s *BrokerSink) {
		s.metrics = m
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) BrokerOption {
	return func(s *BrokerSink) {
		s.sleep = sleep
	}
}

// BrokerSink publishes events asynchronously with exponential backoff.
type BrokerSink struct {
	pub          Publisher
	log          *zap.Logger
	metrics      *metrics.Metrics
	maxRetries   int
	initialDelay time.Duration
	timeout      time.Duration
	sleep        func(ctx context.Context, d time.Duration) error

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

func NewBrokerSink(pub Publisher, log *zap.Logger, opts ...BrokerOption) *BrokerSink {
	s := &BrokerSink{
		pub:          pub,
		log:          log.With(zap.String("sink", "broker")),
		maxRetries:   3,
		initialDelay: 200 * time.Millisecond,
		timeout:      5 * time.Second,
		sleep:        sleepCtx,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit detaches from ctx: the request may finish before delivery does.
func (s *BrokerSink) Emit(_ context.Context, userID uuid.UUID, kind string, payload map[string]any) {
	evt := newEvent(userID, kind, payload, time.Now())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(evt)
	}()
}

func (s *BrokerSink) deliver(evt Event) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	delay := s.initialDelay
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if serr := s.sleep(ctx, delay); serr != nil {
				err = serr
				break
			}
			delay *= 2
		}

		pubCtx, pubCancel := context.WithTimeout(ctx, s.timeout)
		err = s.pub.PublishJSON(pubCtx, evt.Kind, evt)
		pubCancel()
		if err == nil {
			s.observe("delivered")
			s.log.Debug("Notification delivered",
				zap.String("kind", evt.Kind),
				zap.String("event_id", evt.ID),
				zap.Int("attempt", attempt+1),
			)
			return
		}

		s.log.Warn("Notification attempt failed",
			zap.Error(err),
			zap.String("kind", evt.Kind),
			zap.Int("attempt", attempt+1),
		)
	}

	s.observe("dropped")
	s.log.Error("Notification dropped",
		zap.Error(err),
		zap.String("kind", evt.Kind),
		zap.String("event_id", evt.ID),
		zap.String("user_id", evt.UserID),
	)
}

func (s *BrokerSink) observe(result string) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(result).Inc()
	}
}

// Close waits for in-flight deliveries until ctx ends, then aborts the rest.
func (s *BrokerSink) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.stopOnce.Do(func() { close(s.stop) })
		<-done
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
