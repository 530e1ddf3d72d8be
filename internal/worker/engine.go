package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/messaging"
)

const maxBackoff = 30 * time.Second

// HandlerRegistration binds message topics to handlers.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs a pool of consumers and routes each message to the handler
// registered for its topic.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	enabled  bool
	workers  int
	backoff  time.Duration
	handlers map[string]messaging.Handler
	handled  metric.Int64Counter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs the worker Engine.
func NewEngine(p Params) *Engine {
	handlers := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		handlers[r.Topic] = r.Handler
	}

	workers := p.Config.Messaging.Workers.Concurrency
	if workers <= 0 {
		workers = 1
	}
	backoff := p.Config.Messaging.Workers.PollInterval
	if backoff <= 0 {
		backoff = time.Second
	}

	handled, _ := otel.Meter("github.com/Additional-Code/stitchbook/worker").Int64Counter("worker.messages",
		metric.WithDescription("Messages taken off the bus, by outcome"))

	return &Engine{
		client:   p.Client,
		logger:   p.Logger,
		enabled:  p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		workers:  workers,
		backoff:  backoff,
		handlers: handlers,
		handled:  handled,
	}
}

// Module wires the engine into Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.StartStopHook(engine.start, engine.stop))
	}),
)

func (e *Engine) start(context.Context) error {
	switch {
	case !e.enabled:
		e.logger.Info("worker engine disabled")
		return nil
	case len(e.handlers) == 0:
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	// The start context ends once OnStart returns, so consumers get their own.
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for id := 0; id < e.workers; id++ {
		e.wg.Add(1)
		go func(id int) {
			defer e.wg.Done()
			e.consume(runCtx, id)
		}(id)
	}

	e.logger.Info("worker engine started", zap.Int("workers", e.workers), zap.String("topic", e.client.Topic()))
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped")
		return nil
	}
}

// consume keeps one consumer attached to the bus, reconnecting with
// exponential backoff until ctx is cancelled.
func (e *Engine) consume(ctx context.Context, id int) {
	backoff := e.backoff
	for ctx.Err() == nil {
		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.dispatch(msgCtx, id, msg)
		})
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Int("worker", id), zap.Duration("retryIn", backoff), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// dispatch runs the handler for msg.Topic. A panicking handler is turned into
// an error so the message stays uncommitted and the consumer survives.
func (e *Engine) dispatch(ctx context.Context, id int, msg messaging.Message) (err error) {
	handler, ok := e.handlers[msg.Topic]
	if !ok {
		e.record(ctx, msg.Topic, "unrouted")
		e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "failed"
			e.logger.Error("message handler failed",
				zap.Int("worker", id),
				zap.String("topic", msg.Topic),
				zap.ByteString("key", msg.Key),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
		e.record(ctx, msg.Topic, outcome)
	}()

	e.logger.Debug("processing message", zap.String("topic", msg.Topic), zap.Int("worker", id))
	return handler(ctx, msg)
}

func (e *Engine) record(ctx context.Context, topic, outcome string) {
	if e.handled == nil {
		return
	}
	e.handled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("outcome", outcome),
	))
}
