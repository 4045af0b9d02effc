package claims

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

// Service runs the HMO claim desk: submission, item review and the
// approve or reject decision.
type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{store: st, logger: logger.With().Str("component", "claims").Logger()}
}

type Filter struct {
	Status    string
	Provider  string
	PatientID string
	Query     string
}

func (f Filter) match(c model.HMOClaim) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Provider != "" && !strings.EqualFold(c.Provider, f.Provider) {
		return false
	}
	if f.PatientID != "" && c.PatientID != f.PatientID {
		return false
	}
	return query.Match(f.Query, c.ID, c.PatientName, c.PatientID, c.EnrolleeID, c.Provider, c.BillID)
}

// Create submits a claim. Provider and enrollee number default to the
// patient's HMO registration and every item starts unapproved.
func (s *Service) Create(ctx context.Context, c model.HMOClaim) (model.ClaimView, error) {
	var out model.HMOClaim
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		p, err := tx.Patients().Require(c.PatientID)
		if err != nil {
			return err
		}
		out, err = insertClaim(tx, p, c)
		return err
	})
	if err != nil {
		return model.ClaimView{}, err
	}
	s.logger.Info().Str("claim_id", out.ID).Str("provider", out.Provider).Float64("claimed", out.ClaimedTotal()).Msg("claim submitted")
	return out.View(), nil
}

// CreateFromBill submits a claim whose items mirror the bill's line items,
// with any bill discount spread across the unit prices. A bill may back at
// most one claim.
func (s *Service) CreateFromBill(ctx context.Context, billID string) (model.ClaimView, error) {
	var out model.HMOClaim
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		b, err := tx.Bills().Require(billID)
		if err != nil {
			return err
		}
		if b.Status == model.BillCancelled {
			return model.Invalid("bill %s is cancelled", billID)
		}
		if b.Type == model.BillDeposit {
			return model.Invalid("deposits cannot be claimed")
		}
		existing := tx.Claims().Find(func(c model.HMOClaim) bool { return c.BillID == billID })
		if len(existing) > 0 {
			return fmt.Errorf("%w: bill %s is already claimed by %s", store.ErrAlreadyExists, billID, existing[0].ID)
		}
		p, err := tx.Patients().Require(b.PatientID)
		if err != nil {
			return err
		}
		c := model.HMOClaim{PatientID: p.ID, BillID: b.ID}
		share := discountShare(b)
		for _, li := range b.Items {
			c.Items = append(c.Items, model.ClaimItem{
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   floorMoney(li.UnitPrice * share),
			})
		}
		out, err = insertClaim(tx, p, c)
		return err
	})
	if err != nil {
		return model.ClaimView{}, err
	}
	s.logger.Info().Str("claim_id", out.ID).Str("bill_id", billID).Msg("claim raised from bill")
	return out.View(), nil
}

// discountShare is the fraction of the subtotal the patient was actually
// billed. Claim lines are scaled by it so a claim never exceeds its bill.
func discountShare(b model.Bill) float64 {
	sub := b.Subtotal()
	if b.Discount == nil || sub <= 0 {
		return 1
	}
	return b.Total() / sub
}

// floorMoney truncates to whole cents.
func floorMoney(v float64) float64 {
	return math.Floor(v*100+1e-6) / 100
}

func insertClaim(tx *store.Tx, p model.Patient, c model.HMOClaim) (model.HMOClaim, error) {
	c.ID = ""
	c.PatientName = p.FullName()
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = p.HMOProvider
	}
	if c.EnrolleeID == "" {
		c.EnrolleeID = p.HMONumber
	}
	c.Items = append([]model.ClaimItem(nil), c.Items...)
	for i := range c.Items {
		c.Items[i].Approved = false
	}
	if err := c.Validate(); err != nil {
		return model.HMOClaim{}, err
	}
	c.Status = model.ClaimPending
	c.ApprovalCode = ""
	c.RejectionReason = ""
	c.ReviewedAt = nil
	c.CompletedAt = nil
	c.SubmittedAt = tx.Now()
	c.UpdatedAt = tx.Now()
	return tx.Claims().Insert(c)
}

func (s *Service) Get(ctx context.Context, id string) (model.ClaimView, error) {
	var out model.HMOClaim
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = v.Claims().Require(id)
		return err
	})
	if err != nil {
		return model.ClaimView{}, err
	}
	return out.View(), nil
}

// List returns matching claims, most recently submitted first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.ClaimView, error) {
	var found []model.HMOClaim
	err := s.store.View(ctx, func(v *store.View) error {
		found = v.Claims().Find(f.match)
		return nil
	})
	sort.SliceStable(found, func(i, j int) bool { return found[i].SubmittedAt.After(found[j].SubmittedAt) })
	return query.Map(found, model.HMOClaim.View), err
}

// SetItemApproval marks one line of a pending claim approved or not.
func (s *Service) SetItemApproval(ctx context.Context, id string, index int, approved bool, note string) (model.ClaimView, error) {
	return s.mutate(ctx, id, func(now func() time.Time, c *model.HMOClaim) error {
		if c.Status != model.ClaimPending {
			return fmt.Errorf("%w: items of a %s claim are locked", model.ErrInvalidTransition, c.Status)
		}
		if index < 0 || index >= len(c.Items) {
			return model.Invalid("claim %s has no item %d", id, index)
		}
		c.Items[index].Approved = approved
		c.Items[index].Note = strings.TrimSpace(note)
		return nil
	})
}

// Approve accepts a pending claim under the provider's authorisation code.
func (s *Service) Approve(ctx context.Context, id, code string) (model.ClaimView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.ClaimView{}, model.Invalid("an approval code is required")
	}
	out, err := s.transition(ctx, id, model.ClaimApproved, func(now func() time.Time, c *model.HMOClaim) error {
		c.ApprovalCode = code
		t := now()
		c.ReviewedAt = &t
		return nil
	})
	if err == nil {
		s.logger.Info().Str("claim_id", id).Str("approval_code", code).Float64("approved", out.ApprovedTotal).Msg("claim approved")
	}
	return out, err
}

func (s *Service) Reject(ctx context.Context, id, reason string) (model.ClaimView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.ClaimView{}, model.Invalid("a rejection reason is required")
	}
	out, err := s.transition(ctx, id, model.ClaimRejected, func(now func() time.Time, c *model.HMOClaim) error {
		c.RejectionReason = reason
		t := now()
		c.ReviewedAt = &t
		return nil
	})
	if err == nil {
		s.logger.Info().Str("claim_id", id).Str("reason", reason).Msg("claim rejected")
	}
	return out, err
}

// Complete closes an approved claim once the provider has paid it.
func (s *Service) Complete(ctx context.Context, id string) (model.ClaimView, error) {
	out, err := s.transition(ctx, id, model.ClaimCompleted, func(now func() time.Time, c *model.HMOClaim) error {
		t := now()
		c.CompletedAt = &t
		return nil
	})
	if err == nil {
		s.logger.Info().Str("claim_id", id).Msg("claim completed")
	}
	return out, err
}

func (s *Service) transition(ctx context.Context, id, status string, fn func(func() time.Time, *model.HMOClaim) error) (model.ClaimView, error) {
	return s.mutate(ctx, id, func(now func() time.Time, c *model.HMOClaim) error {
		if !model.CanTransitionClaim(c.Status, status) {
			return fmt.Errorf("%w: claim %s cannot move from %s to %s", model.ErrInvalidTransition, id, c.Status, status)
		}
		if err := fn(now, c); err != nil {
			return err
		}
		c.Status = status
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(func() time.Time, *model.HMOClaim) error) (model.ClaimView, error) {
	var out model.HMOClaim
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Claims().Update(id, func(c *model.HMOClaim) error {
			if err := fn(tx.Now, c); err != nil {
				return err
			}
			c.UpdatedAt = tx.Now()
			return nil
		})
		return err
	})
	if err != nil {
		return model.ClaimView{}, err
	}
	return out.View(), nil
}
