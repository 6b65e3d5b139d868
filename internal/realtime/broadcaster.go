package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

const (
	DefaultMaxParallel = 64
	DefaultQueueSize   = 256
)

// Delivery is the outcome of one send attempt.
type Delivery struct {
	ConnID uint64
	Err    error
}

// Report summarizes one broadcast. Callers use it for logging and tests only.
type Report struct {
	Attempted  int
	Delivered  int
	Evicted    []uint64
	Deliveries []Delivery
}

type BroadcasterOptions struct {
	MaxParallel int
	QueueSize   int
	Metrics     *observability.Metrics
}

type Broadcaster struct {
	log      *logger.Logger
	registry *Registry
	metrics  *observability.Metrics

	maxParallel int
	queue       chan Event

	// seqMu orders broadcasts so every conn sees events in call order.
	seqMu sync.Mutex
}

func NewBroadcaster(log *logger.Logger, registry *Registry, opts BroadcasterOptions) *Broadcaster {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Broadcaster{
		log:         log.With("service", "Broadcaster"),
		registry:    registry,
		metrics:     opts.Metrics,
		maxParallel: opts.MaxParallel,
		queue:       make(chan Event, opts.QueueSize),
	}
}

func (b *Broadcaster) Registry() *Registry {
	return b.registry
}

// Broadcast sends ev to every connection registered when the call starts. Failed
// connections are deregistered and closed. It never returns an error.
func (b *Broadcaster) Broadcast(ctx context.Context, ev Event) Report {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Error("marshal event failed", "type", ev.Type, "action", ev.Action, "error", err)
		return Report{}
	}

	b.seqMu.Lock()
	defer b.seqMu.Unlock()

	start := time.Now()
	targets := b.registry.Snapshot()
	report := Report{
		Attempted:  len(targets),
		Deliveries: make([]Delivery, len(targets)),
	}
	if len(targets) == 0 {
		return report
	}

	// Send errors are collected per conn rather than returned to the group, so
	// one failure never cancels the others.
	g := new(errgroup.Group)
	g.SetLimit(b.maxParallel)
	for i, c := range targets {
		i, c := i, c
		g.Go(func() error {
			report.Deliveries[i] = Delivery{ConnID: c.ID(), Err: c.Send(ctx, payload)}
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range report.Deliveries {
		if d.Err == nil {
			report.Delivered++
			continue
		}
		c := targets[i]
		b.registry.Deregister(c)
		_ = c.Close()
		report.Evicted = append(report.Evicted, d.ConnID)
		b.metrics.IncEviction(evictionReason(d.Err))
		b.log.Warn("evicted connection after failed send",
			"conn_id", d.ConnID,
			"remote_addr", c.RemoteAddr(),
			"error", d.Err,
		)
	}

	b.metrics.ObserveBroadcast(time.Since(start), report.Delivered, len(report.Evicted))
	b.metrics.SetConnections(b.registry.Len())
	b.log.Debug("broadcast complete",
		"type", ev.Type,
		"action", ev.Action,
		"attempted", report.Attempted,
		"delivered", report.Delivered,
		"evicted", len(report.Evicted),
	)
	return report
}

// Publish queues ev for the dispatch loop and returns immediately. When the queue
// is full the event is dropped.
func (b *Broadcaster) Publish(ev Event) {
	select {
	case b.queue <- ev:
	default:
		b.metrics.IncEventDropped()
		b.log.Warn("event queue full, dropping event", "type", ev.Type, "action", ev.Action)
	}
}

// Run drains the publish queue until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-b.queue:
			b.Broadcast(ctx, ev)
		}
	}
}

func evictionReason(err error) string {
	switch {
	case errors.Is(err, ErrSendTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrConnClosed):
		return "closed"
	default:
		return "write_error"
	}
}
