package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
)

// Event is one inbound message from a viewer shell or API client.
type Event struct {
	Command   string
	Payload   json.RawMessage
	Session   string
	Timestamp time.Time
}

// Decode unmarshals the payload into v. A missing or null payload leaves v as is.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Command, err)
	}
	return nil
}

type HandlerFunc func(Event) (any, error)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type Option func(*options)

type options struct {
	queue    int
	blocking bool
	logged   bool
}

// Buffered runs the handler on its own goroutine behind a queue of size n.
// Dispatch then answers "queued" without waiting for the result.
func Buffered(n int) Option {
	return func(o *options) { o.queue = n }
}

// Blocking makes a full queue wait for room. Without it the event is dropped.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged logs each event at debug level and failures at error level.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

// Dispatcher maps viewer message types to handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueDepth metric.Int64ObservableGauge
	depthReg   metric.Registration
	processed  metric.Int64Counter
	dropped    metric.Int64Counter

	mu     sync.RWMutex
	queues map[string]chan Event
}

// New builds a dispatcher reporting to the global OTel meter, which is a
// no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.instrument(meter()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	if d.queueDepth, err = m.Int64ObservableGauge(
		"tour360.dispatcher.queue.depth",
		metric.WithDescription("Events waiting in a buffered handler queue"),
	); err != nil {
		return fmt.Errorf("queue depth gauge: %w", err)
	}
	if d.depthReg, err = m.RegisterCallback(d.observeDepth, d.queueDepth); err != nil {
		return fmt.Errorf("queue depth callback: %w", err)
	}
	if d.processed, err = m.Int64Counter(
		"tour360.dispatcher.events.processed",
		metric.WithDescription("Buffered events handled"),
	); err != nil {
		return fmt.Errorf("processed counter: %w", err)
	}
	if d.dropped, err = m.Int64Counter(
		"tour360.dispatcher.events.dropped",
		metric.WithDescription("Buffered events dropped on a full queue"),
	); err != nil {
		return fmt.Errorf("dropped counter: %w", err)
	}
	return nil
}

func (d *Dispatcher) observeDepth(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, q := range d.queues {
		o.ObserveInt64(d.queueDepth, int64(len(q)), metric.WithAttributes(attribute.String("command", cmd)))
	}
	return nil
}

// Register binds h to command. Logged wraps outermost so queueing is logged too.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.queue > 0 {
		h = d.queued(command, o.queue, o.blocking, h)
	}
	if o.logged {
		h = d.logged(command, h)
	}
	d.handlers[command] = h
}

func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	return h(e)
}

func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands lists registered message types, sorted.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Close stops the queue workers and the depth gauge. Dispatch must not be
// called afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for cmd, q := range d.queues {
		close(q)
		delete(d.queues, cmd)
	}
	if d.depthReg != nil {
		_ = d.depthReg.Unregister()
		d.depthReg = nil
	}
}

func (d *Dispatcher) queued(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := make(chan Event, size)
	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))
	go func() {
		for e := range q {
			h(e)
			d.processed.Add(context.Background(), 1, attrs)
		}
	}()

	return func(e Event) (any, error) {
		if blocking {
			q <- e
			return "queued", nil
		}
		select {
		case q <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling viewer message", "command", command, "session", e.Session, "bytes", len(e.Payload))
		result, err := h(e)
		if err != nil {
			d.logger.Error("viewer message failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("viewer message handled", "command", command, "duration", time.Since(start))
		return result, err
	}
}
