package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{store: st, logger: logger.With().Str("component", "patient").Logger()}
}

// Filter narrows a patient search.
type Filter struct {
	Query       string
	PatientType string
	HMOProvider string
}

func (f Filter) match(p model.Patient) bool {
	if f.PatientType != "" && p.PatientType != f.PatientType {
		return false
	}
	if f.HMOProvider != "" && !strings.EqualFold(p.HMOProvider, f.HMOProvider) {
		return false
	}
	return query.Match(f.Query, p.FullName(), p.ID, p.Phone, p.Email, p.HMONumber)
}

func (s *Service) Register(ctx context.Context, p model.Patient) (model.Patient, error) {
	p.ID = ""
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	if p.PatientType == "" {
		p.PatientType = model.PatientTypePrivate
	}
	p.Balance = 0
	p.Visits = nil
	if err := p.Validate(); err != nil {
		return model.Patient{}, err
	}

	var out model.Patient
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		p.RegisteredAt = tx.Now()
		p.UpdatedAt = tx.Now()
		var err error
		out, err = tx.Patients().Insert(p)
		return err
	})
	if err != nil {
		return model.Patient{}, err
	}
	s.logger.Info().Str("patient_id", out.ID).Str("patient_type", out.PatientType).Msg("patient registered")
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Patient, error) {
	var out model.Patient
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = v.Patients().Require(id)
		return err
	})
	return out, err
}

// Search returns the patients matching f in registration order.
func (s *Service) Search(ctx context.Context, f Filter) ([]model.Patient, error) {
	var out []model.Patient
	err := s.store.View(ctx, func(v *store.View) error {
		out = v.Patients().Find(f.match)
		return nil
	})
	return out, err
}

// Update applies a partial edit. Names, contact details and HMO details can
// change; the balance and visit history cannot.
func (s *Service) Update(ctx context.Context, id string, patch model.PatientPatch) (model.Patient, error) {
	if patch.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*patch.Gender))
		patch.Gender = &g
	}
	var out model.Patient
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Patients().Update(id, func(p *model.Patient) error {
			patch.Apply(p)
			if err := p.Validate(); err != nil {
				return err
			}
			p.UpdatedAt = tx.Now()
			return nil
		})
		return err
	})
	return out, err
}

// DepositResult is the credited patient and the receipt bill.
type DepositResult struct {
	Patient model.Patient  `json:"patient"`
	Receipt model.BillView `json:"receipt"`
}

// Deposit credits amount to the patient's balance and records a paid
// deposit bill as the receipt.
func (s *Service) Deposit(ctx context.Context, id string, amount float64, method, by string) (DepositResult, error) {
	amount = model.RoundMoney(amount)
	if amount <= 0 {
		return DepositResult{}, model.Invalid("deposit amount must be greater than zero")
	}
	if method == "" {
		method = model.PayCash
	}
	if !model.ValidPaymentMethod(method) || method == model.PayBalance || method == model.PayHMO {
		return DepositResult{}, model.Invalid("invalid deposit method: %s", method)
	}

	var res DepositResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		now := tx.Now()
		p, err := tx.Patients().Update(id, func(p *model.Patient) error {
			p.Balance = model.RoundMoney(p.Balance + amount)
			p.UpdatedAt = now
			return nil
		})
		if err != nil {
			return err
		}
		receipt, err := tx.Bills().Insert(model.Bill{
			PatientID:   p.ID,
			PatientName: p.FullName(),
			Type:        model.BillDeposit,
			Department:  "Accounts",
			Items: []model.LineItem{{
				Description: "Account deposit",
				Quantity:    1,
				UnitPrice:   amount,
			}},
			Status:        model.BillPaid,
			PaymentMethod: method,
			PaidAt:        &now,
			PaidBy:        by,
			CreatedBy:     by,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("record deposit: %w", err)
		}
		res = DepositResult{Patient: p, Receipt: receipt.View()}
		return nil
	})
	if err != nil {
		return DepositResult{}, err
	}
	s.logger.Info().
		Str("patient_id", id).
		Str("bill_id", res.Receipt.ID).
		Float64("amount", amount).
		Float64("balance", res.Patient.Balance).
		Msg("deposit received")
	return res, nil
}

// Visits returns the patient's visit history, most recent first.
func (s *Service) Visits(ctx context.Context, id string) ([]model.Visit, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]model.Visit, 0, len(p.Visits))
	for i := len(p.Visits) - 1; i >= 0; i-- {
		out = append(out, p.Visits[i])
	}
	return out, nil
}
