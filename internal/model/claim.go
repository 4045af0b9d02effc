package model

import (
	"strings"
	"time"
)

// HMO claim statuses.
const (
	ClaimPending   = "pending"
	ClaimApproved  = "approved"
	ClaimRejected  = "rejected"
	ClaimCompleted = "completed"
)

type ClaimItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Approved    bool    `json:"approved"`
	Note        string  `json:"note,omitempty"`
}

// Total is quantity × unit price.
func (ci ClaimItem) Total() float64 {
	return RoundMoney(float64(ci.Quantity) * ci.UnitPrice)
}

type HMOClaim struct {
	ID              string      `json:"id"`
	PatientID       string      `json:"patient_id"`
	PatientName     string      `json:"patient_name"`
	Provider        string      `json:"provider"`
	EnrolleeID      string      `json:"enrollee_id,omitempty"`
	BillID          string      `json:"bill_id,omitempty"`
	Items           []ClaimItem `json:"items"`
	Status          string      `json:"status"`
	ApprovalCode    string      `json:"approval_code,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time   `json:"submitted_at"`
	ReviewedAt      *time.Time  `json:"reviewed_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ClaimedTotal sums every item.
func (c HMOClaim) ClaimedTotal() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Total()
	}
	return RoundMoney(sum)
}

// ApprovedTotal sums only the items flagged approved.
func (c HMOClaim) ApprovedTotal() float64 {
	var sum float64
	for _, it := range c.Items {
		if it.Approved {
			sum += it.Total()
		}
	}
	return RoundMoney(sum)
}

// Validate checks the fields required to submit a claim.
func (c HMOClaim) Validate() error {
	if strings.TrimSpace(c.Provider) == "" {
		return Invalid("provider is required")
	}
	if len(c.Items) == 0 {
		return Invalid("a claim needs at least one item")
	}
	for _, it := range c.Items {
		if strings.TrimSpace(it.Description) == "" {
			return Invalid("claim item description is required")
		}
		if it.Quantity <= 0 {
			return Invalid("claim item %q: quantity must be positive", it.Description)
		}
		if it.UnitPrice < 0 {
			return Invalid("claim item %q: unit_price cannot be negative", it.Description)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c HMOClaim) Clone() HMOClaim {
	out := c
	out.Items = append([]ClaimItem(nil), c.Items...)
	if c.ReviewedAt != nil {
		t := *c.ReviewedAt
		out.ReviewedAt = &t
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// ClaimView is the claim plus its derived totals.
type ClaimView struct {
	HMOClaim
	ClaimedTotal  float64 `json:"claimed_total"`
	ApprovedTotal float64 `json:"approved_total"`
}

// View decorates the claim with its derived totals.
func (c HMOClaim) View() ClaimView {
	return ClaimView{HMOClaim: c, ClaimedTotal: c.ClaimedTotal(), ApprovedTotal: c.ApprovedTotal()}
}

var claimTransitions = map[string][]string{
	ClaimPending:  {ClaimApproved, ClaimRejected},
	ClaimApproved: {ClaimCompleted},
}

// CanTransitionClaim reports whether a claim may move between statuses.
func CanTransitionClaim(from, to string) bool {
	return allowed(claimTransitions, from, to)
}
