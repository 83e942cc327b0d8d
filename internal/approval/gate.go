// Package approval pauses a run on a failed item until someone decides whether to continue.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

// Gate holds at most one pending request. RequestApproval blocks until ResolveApproval is called
// or the request context ends.
type Gate struct {
	mu      sync.Mutex
	pending *pending
	notify  []func(entity.ApprovalRequest)
	logger  *slog.Logger
	now     func() time.Time
}

type pending struct {
	req      entity.ApprovalRequest
	decision chan bool
}

type Option func(*Gate)

// WithNotify registers fn to be called (outside the lock) each time a request becomes pending.
// fn may call ResolveApproval directly.
func WithNotify(fn func(entity.ApprovalRequest)) Option {
	return func(g *Gate) {
		if fn != nil {
			g.notify = append(g.notify, fn)
		}
	}
}

func NewGate(logger *slog.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{logger: logger, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// RequestApproval registers req and waits for a decision. It returns common.ErrGateBusy when another
// request is already pending, and ctx.Err() when the context ends first.
func (g *Gate) RequestApproval(ctx context.Context, req entity.ApprovalRequest) (bool, error) {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = g.now().UTC()
	}

	g.mu.Lock()
	if g.pending != nil {
		busy := g.pending.req.FileName
		g.mu.Unlock()
		return false, fmt.Errorf("request for %s while %s is pending: %w", req.FileName, busy, common.ErrGateBusy)
	}
	p := &pending{req: req, decision: make(chan bool, 1)}
	g.pending = p
	notify := append([]func(entity.ApprovalRequest){}, g.notify...)
	g.mu.Unlock()

	g.logger.Info("approval.requested", "item_id", req.ItemID, "file", req.FileName, "error", req.ErrorMessage)
	for _, fn := range notify {
		fn(req)
	}

	select {
	case approved := <-p.decision:
		g.logger.Info("approval.resolved", "item_id", req.ItemID, "file", req.FileName, "approved", approved)
		return approved, nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.pending == p {
			g.pending = nil
			g.mu.Unlock()
			g.logger.Warn("approval.abandoned", "item_id", req.ItemID, "file", req.FileName, "error", ctx.Err())
			return false, ctx.Err()
		}
		g.mu.Unlock()
		// resolved concurrently with cancellation; the decision is already buffered
		return <-p.decision, nil
	}
}

// ResolveApproval delivers a decision to the pending request. It reports whether a request was waiting;
// calls with nothing pending are no-ops.
func (g *Gate) ResolveApproval(approved bool) bool {
	g.mu.Lock()
	p := g.pending
	g.pending = nil
	if p != nil {
		p.decision <- approved
	}
	g.mu.Unlock()

	if p == nil {
		g.logger.Debug("approval.resolve.noop", "approved", approved)
		return false
	}
	return true
}

// Pending returns the outstanding request, if any.
func (g *Gate) Pending() (entity.ApprovalRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return entity.ApprovalRequest{}, false
	}
	return g.pending.req, true
}
