// Package workflow implements the request approval state machine.
//
// A request starts pending and moves exactly once to approved or rejected.
// Approval debits the item's stock, checked against the stock at approval
// time rather than at request time, and records an outgoing mutation. Each
// operation runs in a single transaction; the stock debit and the status
// change are conditional updates, so concurrent approvals cannot overdraw an
// item or process a request twice.
package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/pisarna/internal/apperr"
	"github.com/erazemk/pisarna/internal/audit"
	"github.com/erazemk/pisarna/internal/ledger"
	"github.com/erazemk/pisarna/internal/metrics"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
)

// Operation names used for metrics.
const (
	opCreate  = "create"
	opApprove = "approve"
	opReject  = "reject"
)

// Service runs workflow operations.
type Service struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// New returns a workflow service. m may be nil.
func New(db *sql.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m}
}

// CreateRequest files a pending request. Stock is not checked here.
func (s *Service) CreateRequest(ctx context.Context, itemID int64, quantity int, note string, requesterID int64) (*model.Request, error) {
	if quantity <= 0 {
		err := apperr.Validation("quantity must be a positive integer").With("quantity", quantity)
		s.observe(opCreate, err)
		return nil, err
	}
	note = strings.TrimSpace(note)

	var created *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item", itemID)
		}

		created, err = store.CreateRequest(ctx, tx, requesterID, itemID, quantity, note)
		if err != nil {
			return err
		}

		return audit.Record(ctx, tx, requesterID, model.ActionRequestItem,
			fmt.Sprintf("requested %d %s of %s (request #%d)", quantity, unitOr(item.Unit), item.Name, created.ID))
	})
	s.observe(opCreate, err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ApproveRequest approves a pending request and debits the item's stock.
// A positive approvedQuantity overrides the requested quantity; zero or
// less keeps the original.
func (s *Service) ApproveRequest(ctx context.Context, requestID, adminID int64, approvedQuantity int) (*model.Request, error) {
	var approved *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		req, err := loadPending(ctx, tx, requestID)
		if err != nil {
			return err
		}

		final := req.Quantity
		if approvedQuantity > 0 {
			final = approvedQuantity
		}
		if final <= 0 {
			return apperr.Validation("approved quantity must be positive").With("quantity", final)
		}

		item, err := store.GetItem(ctx, tx, req.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item", req.ItemID)
		}
		if item.Stock < final {
			return apperr.InsufficientStock(item.ID, final, item.Stock)
		}

		note := req.Note
		if final != req.Quantity {
			note = adjustedNote(req.Note, req.Quantity, final)
		}

		ok, err := store.DebitItemStock(ctx, tx, item.ID, final)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InsufficientStock(item.ID, final, item.Stock)
		}

		ok, err = store.TransitionRequest(ctx, tx, req.ID, model.RequestApproved, final, note, adminID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("request", req.ID, "processed")
		}

		if _, err := ledger.Record(ctx, tx, item.ID, model.MutationOut, final,
			fmt.Sprintf("approved request #%d", req.ID), adminID); err != nil {
			return err
		}

		if err := audit.Record(ctx, tx, adminID, model.ActionApproveRequest,
			fmt.Sprintf("approved request #%d (%d items)", req.ID, final)); err != nil {
			return err
		}

		approved, err = store.GetRequest(ctx, tx, req.ID)
		return err
	})
	s.observe(opApprove, err)
	if err != nil {
		return nil, err
	}
	s.metrics.UnitsIssued(approved.Quantity)
	return approved, nil
}

// RejectRequest rejects a pending request. The reason is required and is
// folded into the note together with the requester's original note.
func (s *Service) RejectRequest(ctx context.Context, requestID, adminID int64, reason string) (*model.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := apperr.Validation("a reason is required to reject a request").With("field", "reason")
		s.observe(opReject, err)
		return nil, err
	}

	var rejected *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		req, err := loadPending(ctx, tx, requestID)
		if err != nil {
			return err
		}

		ok, err := store.TransitionRequest(ctx, tx, req.ID, model.RequestRejected, req.Quantity,
			rejectedNote(reason, req.Note), adminID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("request", req.ID, "processed")
		}

		if err := audit.Record(ctx, tx, adminID, model.ActionRejectRequest,
			fmt.Sprintf("rejected request #%d: %s", req.ID, reason)); err != nil {
			return err
		}

		rejected, err = store.GetRequest(ctx, tx, req.ID)
		return err
	})
	s.observe(opReject, err)
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// ListRequests returns requests matching filter, newest first.
func (s *Service) ListRequests(ctx context.Context, filter model.RequestFilter) ([]model.Request, error) {
	if filter.Status != "" && !model.ValidRequestStatus(filter.Status) {
		return nil, apperr.Validation("unknown request status").With("status", filter.Status)
	}
	return store.ListRequests(ctx, s.db, filter)
}

// GetRequest returns a request or a not-found error.
func (s *Service) GetRequest(ctx context.Context, id int64) (*model.Request, error) {
	req, err := store.GetRequest(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request", id)
	}
	return req, nil
}

func loadPending(ctx context.Context, q store.DBTX, id int64) (*model.Request, error) {
	req, err := store.GetRequest(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("request", id)
	}
	if req.Status != model.RequestPending {
		return nil, apperr.InvalidState("request", id, req.Status)
	}
	return req, nil
}

func adjustedNote(original string, from, to int) string {
	return strings.TrimSpace(fmt.Sprintf("%s (quantity adjusted by admin from %d to %d)", original, from, to))
}

func rejectedNote(reason, original string) string {
	if original == "" {
		return "Rejected: " + reason
	}
	return fmt.Sprintf("Rejected: %s (prior note: %s)", reason, original)
}

func unitOr(unit string) string {
	if unit == "" {
		return "units"
	}
	return unit
}

func (s *Service) observe(op string, err error) {
	switch {
	case err == nil:
		s.metrics.Operation(op, metrics.OutcomeOK)
	case apperr.CodeOf(err) == apperr.CodeInternal:
		s.metrics.Operation(op, metrics.OutcomeFailed)
	default:
		s.metrics.Operation(op, metrics.OutcomeInvalid)
	}
}
