package billing

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
	return &Service{store: st, logger: logger.With().Str("component", "billing").Logger()}
}

// Filter narrows a bill listing. Empty fields match everything.
type Filter struct {
	Status     string
	Type       string
	PatientID  string
	Department string
	Query      string
}

func (f Filter) match(b model.Bill) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Type != "" && b.Type != f.Type {
		return false
	}
	if f.PatientID != "" && b.PatientID != f.PatientID {
		return false
	}
	if f.Department != "" && !strings.EqualFold(b.Department, f.Department) {
		return false
	}
	return query.Match(f.Query, b.ID, b.PatientID, b.PatientName, b.Department)
}

// CreateRequest is the input for a new pending bill.
type CreateRequest struct {
	PatientID  string           `json:"patient_id"`
	Type       string           `json:"type"`
	Department string           `json:"department"`
	Items      []model.LineItem `json:"items"`
	Discount   *model.Discount  `json:"discount,omitempty"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest, by string) (model.BillView, error) {
	if !model.ValidBillType(req.Type) {
		return model.BillView{}, model.Invalid("invalid billing type: %s", req.Type)
	}
	if req.Type == model.BillDeposit {
		return model.BillView{}, model.Invalid("deposits are recorded through the patient account")
	}
	if req.Discount != nil {
		if err := req.Discount.Validate(); err != nil {
			return model.BillView{}, err
		}
	}

	var out model.Bill
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		p, err := tx.Patients().Require(req.PatientID)
		if err != nil {
			return err
		}
		items, err := priceItems(tx.View(), req.Items, nil)
		if err != nil {
			return err
		}
		now := tx.Now()
		out, err = tx.Bills().Insert(model.Bill{
			PatientID:   p.ID,
			PatientName: p.FullName(),
			Type:        req.Type,
			Department:  req.Department,
			Items:       items,
			Discount:    req.Discount,
			Status:      model.BillPending,
			CreatedBy:   by,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if err != nil {
		return model.BillView{}, err
	}
	s.logger.Info().Str("bill_id", out.ID).Str("patient_id", out.PatientID).Float64("total", out.Total()).Msg("bill created")
	return out.View(), nil
}

// priceItems validates line items, filling the description and unit price
// of catalog-linked items the caller left blank. Deactivated catalog items
// are rejected unless their id is in keep.
func priceItems(v *store.View, items []model.LineItem, keep map[string]bool) ([]model.LineItem, error) {
	if len(items) == 0 {
		return nil, model.Invalid("a bill needs at least one line item")
	}
	out := make([]model.LineItem, len(items))
	for i, li := range items {
		if li.CatalogID != "" {
			name, price, active, err := catalogEntry(v, li.CatalogID)
			if err != nil {
				return nil, err
			}
			if !active && !keep[li.CatalogID] {
				return nil, model.Invalid("%s (%s) is inactive", name, li.CatalogID)
			}
			if strings.TrimSpace(li.Description) == "" {
				li.Description = name
			}
			if li.UnitPrice == 0 {
				li.UnitPrice = price
			}
		}
		if err := li.Validate(); err != nil {
			return nil, err
		}
		out[i] = li
	}
	return out, nil
}

func catalogEntry(v *store.View, id string) (string, float64, bool, error) {
	switch model.IDPrefix(id) {
	case model.PrefixMedicine:
		m, err := v.Medicines().Require(id)
		return m.Name, m.Price, m.Active, err
	case model.PrefixConsumable:
		c, err := v.Consumables().Require(id)
		return c.Name, c.Price, c.Active, err
	case model.PrefixLabTest:
		l, err := v.LabTests().Require(id)
		return l.Name, l.Price, l.Active, err
	case model.PrefixVaccine:
		vc, err := v.Vaccines().Require(id)
		return vc.Name, vc.Price, vc.Active, err
	default:
		return "", 0, false, model.Invalid("unknown catalog id: %s", id)
	}
}

// catalogIDs returns the catalog ids already billed on items.
func catalogIDs(items []model.LineItem) map[string]bool {
	ids := make(map[string]bool, len(items))
	for _, li := range items {
		if li.CatalogID != "" {
			ids[li.CatalogID] = true
		}
	}
	return ids
}

func (s *Service) Get(ctx context.Context, id string) (model.BillView, error) {
	var out model.Bill
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = v.Bills().Require(id)
		return err
	})
	if err != nil {
		return model.BillView{}, err
	}
	return out.View(), nil
}

// List returns the matching bills, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]model.BillView, error) {
	var bills []model.Bill
	err := s.store.View(ctx, func(v *store.View) error {
		bills = v.Bills().Find(f.match)
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.BillView, 0, len(bills))
	for i := len(bills) - 1; i >= 0; i-- {
		out = append(out, bills[i].View())
	}
	return out, nil
}

func (s *Service) Pending(ctx context.Context) ([]model.BillView, error) {
	return s.List(ctx, Filter{Status: model.BillPending})
}

func (s *Service) Paid(ctx context.Context) ([]model.BillView, error) {
	return s.List(ctx, Filter{Status: model.BillPaid})
}

func requirePending(b model.Bill, action string) error {
	if b.Status != model.BillPending {
		return fmt.Errorf("%w: cannot %s a %s bill", model.ErrInvalidTransition, action, b.Status)
	}
	return nil
}

// ApplyDiscount sets or replaces the discount on a pending bill. A nil
// discount clears it.
func (s *Service) ApplyDiscount(ctx context.Context, id string, d *model.Discount) (model.BillView, error) {
	if d != nil {
		if err := d.Validate(); err != nil {
			return model.BillView{}, err
		}
	}
	var out model.Bill
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Bills().Update(id, func(b *model.Bill) error {
			if err := requirePending(*b, "discount"); err != nil {
				return err
			}
			b.Discount = d
			b.UpdatedAt = tx.Now()
			return nil
		})
		return err
	})
	if err != nil {
		return model.BillView{}, err
	}
	return out.View(), nil
}

// Pay settles a pending bill. Paying from the patient balance deducts the
// total; paying a pharmacy bill draws its medicines and consumables from
// stock. Either failure leaves the bill, balance and stock untouched.
func (s *Service) Pay(ctx context.Context, id, method, by string) (model.BillView, error) {
	if !model.ValidPaymentMethod(method) {
		return model.BillView{}, model.Invalid("invalid payment method: %s", method)
	}
	var out model.Bill
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		b, err := tx.Bills().Require(id)
		if err != nil {
			return err
		}
		if err := requirePending(b, "pay"); err != nil {
			return err
		}
		total := b.Total()
		if method == model.PayBalance {
			if _, err := tx.Patients().Update(b.PatientID, func(p *model.Patient) error {
				if p.Balance < total {
					return fmt.Errorf("%w: balance %.2f, bill total %.2f", model.ErrInsufficientBalance, p.Balance, total)
				}
				p.Balance = model.RoundMoney(p.Balance - total)
				p.UpdatedAt = tx.Now()
				return nil
			}); err != nil {
				return err
			}
		}
		if b.Type == model.BillPharmacy {
			if err := dispense(tx, b.Items); err != nil {
				return err
			}
		}
		now := tx.Now()
		out, err = tx.Bills().Update(id, func(b *model.Bill) error {
			b.Status = model.BillPaid
			b.PaymentMethod = method
			b.PaidAt = &now
			b.PaidBy = by
			b.UpdatedAt = now
			return nil
		})
		return err
	})
	if err != nil {
		return model.BillView{}, err
	}
	s.logger.Info().
		Str("bill_id", out.ID).
		Str("patient_id", out.PatientID).
		Str("method", method).
		Float64("total", out.Total()).
		Msg("bill paid")
	return out.View(), nil
}

// dispense decrements stock for medicine and consumable lines.
func dispense(tx *store.Tx, items []model.LineItem) error {
	for _, li := range items {
		switch model.IDPrefix(li.CatalogID) {
		case model.PrefixMedicine:
			if _, err := tx.Medicines().Update(li.CatalogID, func(m *model.Medicine) error {
				next, err := model.StockAfter(m.Name, m.Stock, -li.Quantity)
				m.Stock = next
				m.UpdatedAt = tx.Now()
				return err
			}); err != nil {
				return err
			}
		case model.PrefixConsumable:
			if _, err := tx.Consumables().Update(li.CatalogID, func(c *model.Consumable) error {
				next, err := model.StockAfter(c.Name, c.Stock, -li.Quantity)
				c.Stock = next
				c.UpdatedAt = tx.Now()
				return err
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (model.BillView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.BillView{}, model.Invalid("a cancellation reason is required")
	}
	var out model.Bill
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Bills().Update(id, func(b *model.Bill) error {
			if err := requirePending(*b, "cancel"); err != nil {
				return err
			}
			b.Status = model.BillCancelled
			b.CancelReason = reason
			b.UpdatedAt = tx.Now()
			return nil
		})
		return err
	})
	if err != nil {
		return model.BillView{}, err
	}
	s.logger.Info().Str("bill_id", id).Str("reason", reason).Msg("bill cancelled")
	return out.View(), nil
}

// AdjustResult reports the outcome of an upgrade or downgrade.
type AdjustResult struct {
	Kind       string         `json:"kind"`
	Difference float64        `json:"difference"`
	Original   model.BillView `json:"original"`
	Adjustment model.BillView `json:"adjustment"`
	Balance    *float64       `json:"balance,omitempty"`
}

// Adjust re-prices a paid bill against a revised set of items. A higher
// total raises a new pending bill for the difference; a lower total
// credits the difference to the patient balance and records it as a paid
// adjustment bill. The original bill is never modified.
func (s *Service) Adjust(ctx context.Context, id string, items []model.LineItem, by string) (AdjustResult, error) {
	var res AdjustResult
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		orig, err := tx.Bills().Require(id)
		if err != nil {
			return err
		}
		if orig.Status != model.BillPaid {
			return fmt.Errorf("%w: only paid bills can be adjusted, %s is %s", model.ErrInvalidTransition, orig.ID, orig.Status)
		}
		priced, err := priceItems(tx.View(), items, catalogIDs(orig.Items))
		if err != nil {
			return err
		}
		revised := orig.Clone()
		revised.Items = priced
		diff := model.RoundMoney(revised.Total() - orig.Total())
		if diff == 0 {
			return model.Invalid("revised total equals the original total of %.2f", orig.Total())
		}

		now := tx.Now()
		adj := model.Bill{
			PatientID:    orig.PatientID,
			PatientName:  orig.PatientName,
			Type:         orig.Type,
			Department:   orig.Department,
			ParentBillID: orig.ID,
			CreatedBy:    by,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if diff > 0 {
			adj.Adjustment = model.AdjustUpgrade
			adj.Status = model.BillPending
			adj.Items = []model.LineItem{{Description: "Upgrade of " + orig.ID, Quantity: 1, UnitPrice: diff}}
		} else {
			credit := -diff
			p, err := tx.Patients().Update(orig.PatientID, func(p *model.Patient) error {
				p.Balance = model.RoundMoney(p.Balance + credit)
				p.UpdatedAt = now
				return nil
			})
			if err != nil {
				return err
			}
			adj.Adjustment = model.AdjustDowngrade
			adj.Status = model.BillPaid
			adj.PaymentMethod = model.PayBalance
			adj.PaidAt = &now
			adj.PaidBy = by
			adj.Items = []model.LineItem{{Description: "Downgrade credit for " + orig.ID, Quantity: 1, UnitPrice: credit}}
			res.Balance = &p.Balance
		}
		created, err := tx.Bills().Insert(adj)
		if err != nil {
			return err
		}
		res.Kind = adj.Adjustment
		res.Difference = diff
		res.Original = orig.View()
		res.Adjustment = created.View()
		return nil
	})
	if err != nil {
		return AdjustResult{}, err
	}
	s.logger.Info().
		Str("bill_id", id).
		Str("adjustment_id", res.Adjustment.ID).
		Str("kind", res.Kind).
		Float64("difference", res.Difference).
		Msg("bill adjusted")
	return res, nil
}
