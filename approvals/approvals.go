// Package approvals tracks outstanding user-consent requests and the popup
// surfaces asking for them. It guarantees that every request resolves exactly
// once and that at most one surface is open per (origin, kind).
package approvals

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/signal"
)

// Kind is the logical request group an approval belongs to. Concurrency is
// limited per (origin, kind), not per method, so e.g. two different signing
// methods from one origin still share one popup.
type Kind string

const (
	KindConnect      Kind = "connect"
	KindSign         Kind = "sign"
	KindSuggestToken Kind = "suggest-token"
)

// ErrRequestsExceeded is returned when a popup for the same origin and kind
// is already open for a different correlation key. The caller surfaces it
// verbatim so dApps can retry later.
var ErrRequestsExceeded = errors.New("Requests exceeded")

// Request describes a pending consent question.
type Request struct {
	CorrelationKey string
	Kind           Kind
	Origin         string
	ChainIDs       []string
	Payload        json.RawMessage
	CreatedAt      time.Time
}

// Decision is the terminal outcome of a request. Surface closure without an
// explicit answer arrives as Approved=false.
type Decision struct {
	Approved bool
	Payload  json.RawMessage
}

// SurfaceOpener materializes and dismisses UI surfaces. The ledger only holds
// the returned surface id; it never mutates UI state directly.
type SurfaceOpener interface {
	OpenSurface(req Request) (surfaceID string, err error)
	CloseSurface(surfaceID string)
}

type slotKey struct {
	origin string
	kind   Kind
}

type pendingApproval struct {
	req       Request
	surfaceID string

	// done is closed exactly once when the request reaches a terminal
	// state; result is valid afterwards. Every coalesced waiter blocks on
	// done, so duplicate resolutions and late waiters are both safe.
	done   chan struct{}
	result Decision

	timer *time.Timer
}

// Ledger is the in-memory table of outstanding approvals.
type Ledger struct {
	mu      sync.Mutex
	pending *orderedmap.OrderedMap[string, *pendingApproval]
	slots   map[slotKey]string

	opener SurfaceOpener
	expiry time.Duration
	logger *zap.Logger
}

// NewLedger creates a ledger. expiry bounds how long a request may stay
// pending; zero disables the expiry.
func NewLedger(opener SurfaceOpener, expiry time.Duration, logger *zap.Logger) *Ledger {
	return &Ledger{
		pending: orderedmap.New[string, *pendingApproval](),
		slots:   make(map[slotKey]string),
		opener:  opener,
		expiry:  expiry,
		logger:  logger.Named("approvals"),
	}
}

// RequestApproval blocks until the user decides, the surface closes, or the
// expiry fires. A request whose correlation key is already pending attaches
// to the existing surface; a request hitting a busy (origin, kind) slot with
// a different key fails immediately with ErrRequestsExceeded.
//
// The wait deliberately ignores caller teardown: the user may still complete
// the approval from the popup after the requesting page is gone, in which
// case only the final response write is discarded by the transport.
func (l *Ledger) RequestApproval(req Request) (Decision, error) {
	l.mu.Lock()

	if existing, ok := l.pending.Get(req.CorrelationKey); ok {
		l.mu.Unlock()
		<-existing.done
		return existing.result, nil
	}

	slot := slotKey{origin: req.Origin, kind: req.Kind}
	if _, busy := l.slots[slot]; busy {
		l.mu.Unlock()
		return Decision{}, ErrRequestsExceeded
	}

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	p := &pendingApproval{
		req:  req,
		done: make(chan struct{}),
	}
	l.pending.Set(req.CorrelationKey, p)
	l.slots[slot] = req.CorrelationKey

	if l.expiry > 0 {
		key := req.CorrelationKey
		p.timer = time.AfterFunc(l.expiry, func() {
			l.Resolve(key, Decision{Approved: false})
		})
	}
	l.mu.Unlock()

	surfaceID, err := l.opener.OpenSurface(req)
	if err != nil {
		l.logger.Error("open approval surface", zap.String("origin", req.Origin), zap.Error(err))
		l.Resolve(req.CorrelationKey, Decision{Approved: false})
		<-p.done
		return Decision{}, err
	}

	l.mu.Lock()
	// The surface may have been resolved before OpenSurface returned
	// (expiry with a very short configured window); only record the id
	// while the request is still live.
	if _, live := l.pending.Get(req.CorrelationKey); live {
		p.surfaceID = surfaceID
	} else {
		l.opener.CloseSurface(surfaceID)
	}
	l.mu.Unlock()

	signal.SendBrokerApprovalPending(signal.BrokerApprovalPendingSignal{
		CorrelationKey: req.CorrelationKey,
		Kind:           string(req.Kind),
		Origin:         req.Origin,
		ChainIDs:       req.ChainIDs,
		Payload:        string(req.Payload),
	})

	<-p.done
	return p.result, nil
}

// Resolve transitions a request to its terminal state and unblocks every
// waiter. Duplicate signals for an already-terminal key are ignored.
func (l *Ledger) Resolve(correlationKey string, decision Decision) {
	l.mu.Lock()
	p, ok := l.pending.Get(correlationKey)
	if !ok {
		l.mu.Unlock()
		return
	}

	l.pending.Delete(correlationKey)
	delete(l.slots, slotKey{origin: p.req.Origin, kind: p.req.Kind})
	if p.timer != nil {
		p.timer.Stop()
	}
	surfaceID := p.surfaceID
	p.result = decision
	close(p.done)
	l.mu.Unlock()

	if surfaceID != "" {
		l.opener.CloseSurface(surfaceID)
	}

	signal.SendBrokerApprovalResolved(signal.BrokerApprovalResolvedSignal{
		CorrelationKey: correlationKey,
		Approved:       decision.Approved,
	})
}

// NotifySurfaceClosed reports that a UI surface went away without answering.
// Treated as an explicit rejection of whatever it was asking.
func (l *Ledger) NotifySurfaceClosed(surfaceID string) {
	l.mu.Lock()
	var key string
	for pair := l.pending.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.surfaceID == surfaceID {
			key = pair.Key
			break
		}
	}
	l.mu.Unlock()

	if key != "" {
		l.Resolve(key, Decision{Approved: false})
	}
}

// Pending lists outstanding requests, oldest first. Used by UI surfaces that
// restart and need to recover what they should render.
func (l *Ledger) Pending() []Request {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := make([]Request, 0, l.pending.Len())
	for pair := l.pending.Oldest(); pair != nil; pair = pair.Next() {
		res = append(res, pair.Value.req)
	}
	return res
}

// IsSlotBusy reports whether a surface is currently open for (origin, kind).
func (l *Ledger) IsSlotBusy(origin string, kind Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.slots[slotKey{origin: origin, kind: kind}]
	return busy
}
