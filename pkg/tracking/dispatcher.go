package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-gaze/pkg/debug"
)

type eventKind int

const (
	eventStatus eventKind = iota
	eventFrame
)

type event struct {
	kind   eventKind
	status ReceptionStatus
	frame  Frame
	ts     Timestamp
}

// Dispatcher is the single ingestion point between a Producer and the consumers.
//
// The ingest goroutine reacts to producer signals: it publishes new frames into the
// slot, applies connectivity to the status tracker and queues events. The fan-out
// goroutine drains the queue into the registry. Status events are delivered in
// order and never dropped; a run of queued frame events collapses to the newest,
// so a slow listener sees the latest frame instead of a backlog and never delays
// the next slot publication.
type Dispatcher struct {
	producer Producer
	slot     *FrameSlot
	status   *StatusTracker
	registry *Registry
	waiter   *Waiter
	observer Observer
	logger   *slog.Logger

	mu      sync.Mutex // guards queue, lastSeq, requesting and status transitions
	queue   []event
	lastSeq uint64
	wake    chan struct{}

	// requesting is set while producer.RequestAutoStart runs. A failure the
	// producer reports in that window belongs to an earlier attempt.
	requesting bool

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    chan struct{}
}

// NewDispatcher wires a dispatcher to p. Call Start to begin ingestion.
func NewDispatcher(p Producer, cfg Config) (*Dispatcher, error) {
	if p == nil {
		return nil, ErrNilProducer
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	slot := NewFrameSlot()
	return &Dispatcher{
		producer: p,
		slot:     slot,
		status:   NewStatusTracker(),
		registry: NewRegistry(cfg),
		waiter:   NewWaiter(slot),
		observer: cfg.Observer,
		logger:   cfg.Logger,
		wake:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}, nil
}

// Start launches the ingest and fan-out goroutines. Later calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		d.wg.Add(2)
		go d.ingestLoop(ctx)
		go d.fanOutLoop(ctx)
	})
}

// Close stops both goroutines and waits for them. Queued events are discarded.
// The producer is not closed.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		close(d.closed)
		d.startOnce.Do(func() {})
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
	})
	return nil
}

// Slot returns the frame slot fed by this dispatcher.
func (d *Dispatcher) Slot() *FrameSlot { return d.slot }

// Registry returns the listener registry served by this dispatcher.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Waiter returns a waiter over the slot.
func (d *Dispatcher) Waiter() *Waiter { return d.waiter }

// Status returns the current reception status.
func (d *Dispatcher) Status() ReceptionStatus { return d.status.Status() }

// AttemptAutoStart asks the producer to start the tracker.
//
// From NOT_RECEIVING the status moves to ATTEMPTING_AUTO_START and the request is
// sent. If the producer rejects it the attempt fails at once: listeners see
// NOT_RECEIVING again and the result is false. While an attempt is pending or data
// is already flowing nothing is sent and the result is true.
func (d *Dispatcher) AttemptAutoStart() bool {
	select {
	case <-d.closed:
		return false
	default:
	}

	d.mu.Lock()
	from, to, changed := d.status.RequestAutoStart()
	if changed {
		d.pushStatus(from, to)
		d.requesting = true
	}
	d.mu.Unlock()

	if !changed {
		return to != NotReceiving
	}
	d.signal()

	err := d.producer.RequestAutoStart()
	d.mu.Lock()
	d.requesting = false
	d.mu.Unlock()
	if err != nil {
		d.logger.Warn("auto-start request rejected", "error", err,
			"unavailable", errors.Is(err, ErrProducerUnavailable))
		d.apply(AutoStartFailed)
		return false
	}
	return true
}

// apply feeds a connectivity report through the status machine.
func (d *Dispatcher) apply(c Connectivity) {
	d.mu.Lock()
	from, to, changed := d.status.Observe(c)
	if changed {
		d.pushStatus(from, to)
	}
	d.mu.Unlock()
	if changed {
		d.signal()
	}
}

func (d *Dispatcher) ingestLoop(ctx context.Context) {
	defer d.wg.Done()

	updates := d.producer.Updates()
	d.ingest()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				d.logger.Debug("producer updates channel closed")
				return
			}
			d.ingest()
		}
	}
}

// ingest handles one producer signal: slot first, then status, then the frame event.
func (d *Dispatcher) ingest() {
	s := d.producer.Fetch()

	d.mu.Lock()
	published := false
	if s.Seq > d.lastSeq {
		d.lastSeq = s.Seq
		d.slot.Publish(s.Frame, s.Timestamp)
		published = true
	}
	c := s.Connectivity
	if d.requesting && c == AutoStartFailed {
		c = Disconnected
	}
	from, to, changed := d.status.Observe(c)
	if changed {
		d.pushStatus(from, to)
	}
	if published {
		d.pushFrame(s.Frame, s.Timestamp)
	}
	d.mu.Unlock()

	if published {
		d.observer.FramePublished(s.Timestamp)
		debug.FrameLog("frame published", "seq", s.Seq, "ts", float64(s.Timestamp))
	}
	if published || changed {
		d.signal()
	}
}

// pushStatus must be called with d.mu held.
func (d *Dispatcher) pushStatus(from, to ReceptionStatus) {
	d.logger.Info("reception status changed", "from", from.String(), "to", to.String())
	d.observer.StatusChanged(from, to)
	d.queue = append(d.queue, event{kind: eventStatus, status: to})
}

// pushFrame must be called with d.mu held.
func (d *Dispatcher) pushFrame(frame Frame, ts Timestamp) {
	ev := event{kind: eventFrame, frame: frame, ts: ts}
	if n := len(d.queue); n > 0 && d.queue[n-1].kind == eventFrame {
		d.queue[n-1] = ev
		d.observer.FramesCoalesced(1)
		return
	}
	d.queue = append(d.queue, ev)
}

func (d *Dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) fanOutLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}

		for {
			ev, ok := d.pop()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return
			}
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) pop() (event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return event{}, false
	}
	ev := d.queue[0]
	d.queue[0] = event{}
	d.queue = d.queue[1:]
	if len(d.queue) == 0 {
		d.queue = nil
	}
	return ev, true
}

func (d *Dispatcher) deliver(ev event) {
	start := time.Now()
	var n int
	switch ev.kind {
	case eventStatus:
		n = d.registry.NotifyStatus(ev.status)
	case eventFrame:
		n = d.registry.NotifyFrame(&ev.frame, ev.ts)
		debug.FrameLog("frame delivered", "ts", float64(ev.ts), "listeners", n)
	}
	d.observer.FanOutCompleted(time.Since(start), n)
}
