package model

import (
	"strings"
	"time"
)

// Bill statuses.
const (
	BillPending   = "pending"
	BillPaid      = "paid"
	BillCancelled = "cancelled"
)

// Billing types.
const (
	BillConsultation = "consultation"
	BillPharmacy     = "pharmacy"
	BillLab          = "lab"
	BillDeposit      = "deposit"
	BillVaccination  = "vaccination"
	BillProcedure    = "procedure"
)

// Payment methods.
const (
	PayCash     = "cash"
	PayCard     = "card"
	PayTransfer = "transfer"
	PayBalance  = "balance"
	PayHMO      = "hmo"
)

// Discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Adjustment kinds recorded on bills created by an upgrade or downgrade.
const (
	AdjustUpgrade   = "upgrade"
	AdjustDowngrade = "downgrade"
)

var validBillTypes = map[string]bool{
	BillConsultation: true, BillPharmacy: true, BillLab: true,
	BillDeposit: true, BillVaccination: true, BillProcedure: true,
}

var validPaymentMethods = map[string]bool{
	PayCash: true, PayCard: true, PayTransfer: true, PayBalance: true, PayHMO: true,
}

// ValidBillType reports whether t is a known billing type.
func ValidBillType(t string) bool { return validBillTypes[t] }

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m string) bool { return validPaymentMethods[m] }

type LineItem struct {
	Description string  `json:"description"`
	CatalogID   string  `json:"catalog_id,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total is quantity × unit price.
func (li LineItem) Total() float64 {
	return RoundMoney(float64(li.Quantity) * li.UnitPrice)
}

// Validate checks a single line item.
func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return Invalid("line item description is required")
	}
	if li.Quantity <= 0 {
		return Invalid("line item %q: quantity must be positive", li.Description)
	}
	if li.UnitPrice < 0 {
		return Invalid("line item %q: unit_price cannot be negative", li.Description)
	}
	return nil
}

type Discount struct {
	Type   string  `json:"type"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason,omitempty"`
}

// Validate checks discount bounds.
func (d Discount) Validate() error {
	switch d.Type {
	case DiscountPercentage:
		if d.Value < 0 || d.Value > 100 {
			return Invalid("percentage discount must be between 0 and 100")
		}
	case DiscountFixed:
		if d.Value < 0 {
			return Invalid("fixed discount cannot be negative")
		}
	default:
		return Invalid("discount type must be percentage or fixed")
	}
	return nil
}

// Amount returns the discount applied to subtotal, clamped to [0, subtotal].
func (d Discount) Amount(subtotal float64) float64 {
	var amt float64
	switch d.Type {
	case DiscountPercentage:
		amt = subtotal * d.Value / 100
	case DiscountFixed:
		amt = d.Value
	}
	if amt < 0 {
		amt = 0
	}
	if amt > subtotal {
		amt = subtotal
	}
	return RoundMoney(amt)
}

type Bill struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patient_id"`
	PatientName   string     `json:"patient_name"`
	Type          string     `json:"type"`
	Department    string     `json:"department,omitempty"`
	Items         []LineItem `json:"items"`
	Discount      *Discount  `json:"discount,omitempty"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PaidBy        string     `json:"paid_by,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	ParentBillID  string     `json:"parent_bill_id,omitempty"`
	Adjustment    string     `json:"adjustment,omitempty"`
	CreatedBy     string     `json:"created_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Subtotal sums the line item totals.
func (b Bill) Subtotal() float64 {
	var sum float64
	for _, li := range b.Items {
		sum += li.Total()
	}
	return RoundMoney(sum)
}

// DiscountAmount is the discount applied to the subtotal.
func (b Bill) DiscountAmount() float64 {
	if b.Discount == nil {
		return 0
	}
	return b.Discount.Amount(b.Subtotal())
}

// Total is the subtotal minus the discount.
func (b Bill) Total() float64 {
	return RoundMoney(b.Subtotal() - b.DiscountAmount())
}

// Clone returns a deep copy.
func (b Bill) Clone() Bill {
	out := b
	out.Items = append([]LineItem(nil), b.Items...)
	if b.Discount != nil {
		d := *b.Discount
		out.Discount = &d
	}
	if b.PaidAt != nil {
		t := *b.PaidAt
		out.PaidAt = &t
	}
	return out
}

// BillView is the JSON shape returned to clients: the bill plus its
// derived amounts.
type BillView struct {
	Bill
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	Total          float64 `json:"total"`
}

// View decorates the bill with its derived amounts.
func (b Bill) View() BillView {
	return BillView{Bill: b, Subtotal: b.Subtotal(), DiscountAmount: b.DiscountAmount(), Total: b.Total()}
}

var billTransitions = map[string][]string{
	BillPending: {BillPaid, BillCancelled},
}

// CanTransitionBill reports whether a bill may move from one status to another.
func CanTransitionBill(from, to string) bool {
	return allowed(billTransitions, from, to)
}

func allowed(table map[string][]string, from, to string) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}
