package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
	"github.com/kirillkom/hybrid-rag/internal/infrastructure/resilience"
)

const (
	DefaultRebuildSubject = "kb.rebuild"
	DefaultUpdatedSubject = "kb.updated"

	rebuildQueueGroup = "kb-builders"
)

// Queue carries knowledge base lifecycle events: rebuild requests go to one
// builder in the queue group, update notices fan out to every API instance.
type Queue struct {
	conn           *nats.Conn
	rebuildSubject string
	updatedSubject string
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Options struct {
	RebuildSubject       string
	UpdatedSubject       string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string) (*Queue, error) {
	return NewWithOptions(url, Options{})
}

func NewWithOptions(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("hybrid-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		rebuildSubject: orDefault(options.RebuildSubject, DefaultRebuildSubject),
		updatedSubject: orDefault(options.UpdatedSubject, DefaultUpdatedSubject),
		executor:       options.ResilienceExecutor,
		logger:         logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishRebuildRequested(ctx context.Context, trigger domain.BuildTrigger) error {
	payload, err := encodeRebuildRequest(trigger, time.Now().UTC())
	if err != nil {
		return err
	}
	return q.publish(ctx, q.rebuildSubject, payload)
}

func (q *Queue) PublishKnowledgeBaseUpdated(ctx context.Context, status domain.KnowledgeBaseStatus) error {
	payload, err := encodeUpdated(status)
	if err != nil {
		return err
	}
	return q.publish(ctx, q.updatedSubject, payload)
}

func (q *Queue) SubscribeRebuildRequested(ctx context.Context, handler func(context.Context, domain.BuildTrigger) error) error {
	return q.consume(ctx, q.rebuildSubject, rebuildQueueGroup, func(ctx context.Context, data []byte) error {
		req, err := decodeRebuildRequest(data)
		if err != nil {
			return err
		}
		return handler(ctx, req.Trigger)
	})
}

func (q *Queue) SubscribeKnowledgeBaseUpdated(ctx context.Context, handler func(context.Context, domain.KnowledgeBaseStatus) error) error {
	return q.consume(ctx, q.updatedSubject, "", func(ctx context.Context, data []byte) error {
		status, err := decodeUpdated(data)
		if err != nil {
			return err
		}
		return handler(ctx, status)
	})
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	err := q.executor.Execute(ctx, "nats.publish", func(context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}, classifyNATSError)
	return wrapTemporaryIfNeeded(err)
}

// consume blocks until ctx is done, then drains the subscription.
func (q *Queue) consume(ctx context.Context, subject, group string, handle func(context.Context, []byte) error) error {
	cb := func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handle(handlerCtx, msg.Data); err != nil {
			q.logger.Error("queue_handler_failed", "subject", subject, "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group != "" {
		sub, err = q.conn.QueueSubscribe(subject, group, cb)
	} else {
		sub, err = q.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
