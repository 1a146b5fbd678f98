package audit

import (
	"context"
	"sync"
	"time"

	"github.com/courierd/courierd/internal/domain/models"
	"github.com/courierd/courierd/internal/domain/repository"
	"github.com/courierd/courierd/internal/domain/service"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

// DropCounter receives overflow notifications; monitoring.Metrics satisfies it.
type DropCounter interface {
	IncAuditDropped()
}

// Forwarder is an optional secondary destination for stored events, such as a
// Kafka topic. Forward failures never affect the durable write.
type Forwarder interface {
	Forward(ctx context.Context, event *models.SecurityEvent) error
}

// AsyncSink decouples audit durability from authorization latency: Record is
// a non-blocking send into a bounded channel, a single writer goroutine signs
// and persists. When the queue is full the event is dropped and logged loudly
// rather than backpressuring validation. Ordering per key id is not
// guaranteed and not required.
type AsyncSink struct {
	repo      repository.SecurityEventRepository
	signer    *Signer
	forwarder Forwarder
	logger    logger.Logger
	drops     DropCounter

	queue chan *models.SecurityEvent
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

var _ service.AuditSink = (*AsyncSink)(nil)

// NewAsyncSink creates a sink with the given queue capacity and starts its
// writer goroutine. forwarder and drops may be nil.
func NewAsyncSink(
	repo repository.SecurityEventRepository,
	signer *Signer,
	forwarder Forwarder,
	queueSize int,
	log logger.Logger,
	drops DropCounter,
) *AsyncSink {
	if queueSize <= 0 {
		queueSize = constants.DefaultAuditQueueSize
	}
	s := &AsyncSink{
		repo:      repo,
		signer:    signer,
		forwarder: forwarder,
		logger:    log.WithComponent("audit_sink"),
		drops:     drops,
		queue:     make(chan *models.SecurityEvent, queueSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Record implements service.AuditSink. It never blocks and never fails the
// caller: on overflow the event is dropped and logged at error level.
func (s *AsyncSink) Record(event *models.SecurityEvent) {
	if event == nil {
		return
	}
	select {
	case <-s.stop:
		s.drop(event, "sink closed, event dropped")
		return
	default:
	}
	select {
	case s.queue <- event:
	default:
		s.drop(event, "audit queue full, event dropped")
	}
}

func (s *AsyncSink) drop(event *models.SecurityEvent, reason string) {
	if s.drops != nil {
		s.drops.IncAuditDropped()
	}
	s.logger.Error(context.Background(), reason, nil,
		logger.String("event_type", string(event.EventType)),
		logger.String("request_id", event.RequestID),
		logger.Int("queue_size", cap(s.queue)),
	)
}

// Close drains the queue and stops the writer. The queue channel itself is
// never closed, so Record calls racing or following Close are dropped and
// counted rather than panicking.
func (s *AsyncSink) Close() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for {
		select {
		case event := <-s.queue:
			s.write(event)
		case <-s.stop:
			for {
				select {
				case event := <-s.queue:
					s.write(event)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) write(event *models.SecurityEvent) {
	// Writes use a fresh context: a disconnected caller must not cancel an
	// already-issued audit write.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.signer != nil {
		sig, err := s.signer.Sign(event)
		if err != nil {
			s.logger.Error(ctx, "failed to sign audit event", err,
				logger.String("event_id", event.ID),
			)
		} else {
			event.Signature = sig
		}
	}

	if err := s.repo.Append(ctx, event); err != nil {
		s.logger.Error(ctx, "failed to persist audit event", err,
			logger.String("event_id", event.ID),
			logger.String("event_type", string(event.EventType)),
		)
		return
	}

	if s.forwarder != nil {
		if err := s.forwarder.Forward(ctx, event); err != nil {
			s.logger.Warn(ctx, "failed to forward audit event",
				logger.String("event_id", event.ID),
				logger.Error(err),
			)
		}
	}
}
