package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/config"
	"github.com/medgraph/patient-portal-go/internal/model"
	"github.com/medgraph/patient-portal-go/internal/repository"
)

// Entry is one security event to be recorded.
type Entry struct {
	IdentityID *string
	Action     model.AuditAction
	Status     model.AuditStatus
	IP         string
	UserAgent  string
	Metadata   map[string]any
}

// Recorder accepts security events. Implementations are best-effort: Record
// never returns an error and never blocks the caller's primary operation —
// an audit-store outage must not turn into a login outage.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Dispatcher is the production Recorder: a buffered queue drained by a single
// worker that appends events through the audit repository. Writes run on a
// detached context, so a caller abandoning its request cannot cancel an
// in-flight audit append.
type Dispatcher struct {
	repo      repository.AuditRepository
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(repo repository.AuditRepository, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &Dispatcher{
		repo: repo,
		ch:   make(chan Entry, bufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.write(entry)
		case <-d.done:
			// Drain what is already queued before exiting.
			for {
				select {
				case entry := <-d.ch:
					d.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), config.AuditWriteTimeout)
	defer cancel()

	err := d.repo.Append(ctx, model.AppendAuditEventParams{
		ID:         uuid.NewString(),
		IdentityID: entry.IdentityID,
		Action:     entry.Action,
		Status:     entry.Status,
		IPAddress:  entry.IP,
		UserAgent:  entry.UserAgent,
		Metadata:   entry.Metadata,
	})
	if err != nil {
		// Swallowed by contract: log internally, never surface.
		log.Error().Err(err).
			Str("action", string(entry.Action)).
			Msg("audit append failed")
	}

	logEvent(entry)
}

// Record enqueues the entry without blocking. If the queue is full the entry
// is dropped and counted; losing one audit row beats stalling a login.
func (d *Dispatcher) Record(ctx context.Context, entry Entry) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- entry:
	case <-d.done:
	default:
		d.dropped.Add(1)
		log.Warn().
			Str("action", string(entry.Action)).
			Uint64("dropped_total", d.dropped.Load()).
			Msg("audit queue full, event dropped")
	}
}

// Close stops the worker after draining queued entries.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many entries were discarded due to a full queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
