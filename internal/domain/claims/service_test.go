package claims

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/store"
)

var testNow = time.Date(2026, 4, 10, 11, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New(store.WithClock(func() time.Time { return testNow }))
	err := st.RunInTransaction(context.Background(), func(tx *store.Tx) error {
		tx.Patients().Insert(model.Patient{FirstName: "Ada", LastName: "Obi", PatientType: model.PatientTypeHMO,
			HMOProvider: "Hygeia", HMONumber: "HYG-4471"})
		tx.Bills().Insert(model.Bill{PatientID: "P-1001", Type: model.BillLab, Status: model.BillPaid, Items: []model.LineItem{
			{Description: "Full blood count", Quantity: 1, UnitPrice: 3500},
			{Description: "Malaria parasite", Quantity: 2, UnitPrice: 1500},
		}})
		_, err := tx.Bills().Insert(model.Bill{PatientID: "P-1001", Type: model.BillLab, Status: model.BillCancelled,
			Items: []model.LineItem{{Description: "Urinalysis", Quantity: 1, UnitPrice: 2000}}})
		return err
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return NewService(st, zerolog.Nop()), st
}

func sampleClaim() model.HMOClaim {
	return model.HMOClaim{
		PatientID: "P-1001",
		Items: []model.ClaimItem{
			{Description: "Consultation", Quantity: 1, UnitPrice: 5000, Approved: true},
			{Description: "Paracetamol", Quantity: 10, UnitPrice: 150},
		},
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.Create(context.Background(), sampleClaim())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "HMO-1001" || c.Status != model.ClaimPending {
		t.Errorf("unexpected claim: %+v", c)
	}
	if c.Provider != "Hygeia" || c.EnrolleeID != "HYG-4471" || c.PatientName != "Ada Obi" {
		t.Errorf("expected HMO details from the patient: %+v", c)
	}
	if c.ClaimedTotal != 6500 || c.ApprovedTotal != 0 {
		t.Errorf("expected items to start unapproved, got claimed=%v approved=%v", c.ClaimedTotal, c.ApprovedTotal)
	}
	if !c.SubmittedAt.Equal(testNow) {
		t.Errorf("expected submitted at %v, got %v", testNow, c.SubmittedAt)
	}
}

func TestService_Create_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c := sampleClaim()
	c.PatientID = "P-9999"
	if _, err := svc.Create(ctx, c); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	c = sampleClaim()
	c.Items = nil
	if _, err := svc.Create(ctx, c); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestService_CreateFromBill(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c, err := svc.CreateFromBill(ctx, "BILL-1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.BillID != "BILL-1001" || len(c.Items) != 2 || c.ClaimedTotal != 6500 {
		t.Errorf("unexpected claim: %+v", c)
	}

	if _, err := svc.CreateFromBill(ctx, "BILL-1001"); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.CreateFromBill(ctx, "BILL-1002"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected cancelled bill to be refused, got %v", err)
	}
}

func TestService_CreateFromBill_SpreadsDiscount(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	err := st.RunInTransaction(ctx, func(tx *store.Tx) error {
		_, err := tx.Bills().Insert(model.Bill{PatientID: "P-1001", Type: model.BillLab, Status: model.BillPending,
			Discount: &model.Discount{Type: model.DiscountPercentage, Value: 10, Reason: "staff"},
			Items: []model.LineItem{
				{Description: "Full blood count", Quantity: 1, UnitPrice: 3500},
				{Description: "Malaria parasite", Quantity: 2, UnitPrice: 1500},
			}})
		return err
	})
	if err != nil {
		t.Fatalf("insert bill: %v", err)
	}

	c, err := svc.CreateFromBill(ctx, "BILL-1003")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ClaimedTotal != 5850 {
		t.Errorf("expected claimed total to match the discounted bill (5850), got %v", c.ClaimedTotal)
	}
	if c.Items[0].UnitPrice != 3150 || c.Items[1].UnitPrice != 1350 {
		t.Errorf("unexpected unit prices: %+v", c.Items)
	}
}

func TestService_ReviewAndApprove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, sampleClaim())

	c, err := svc.SetItemApproval(ctx, "HMO-1001", 0, true, "covered under plan B")
	if err != nil {
		t.Fatalf("set approval: %v", err)
	}
	if c.ApprovedTotal != 5000 {
		t.Errorf("expected approved total 5000, got %v", c.ApprovedTotal)
	}
	if _, err := svc.SetItemApproval(ctx, "HMO-1001", 5, true, ""); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected out of range index to fail, got %v", err)
	}

	if _, err := svc.Approve(ctx, "HMO-1001", " "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected approval code to be required, got %v", err)
	}
	c, err = svc.Approve(ctx, "HMO-1001", "AUTH-77812")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if c.Status != model.ClaimApproved || c.ApprovalCode != "AUTH-77812" || c.ReviewedAt == nil {
		t.Errorf("unexpected claim: %+v", c)
	}

	if _, err := svc.SetItemApproval(ctx, "HMO-1001", 1, true, ""); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected items to lock after approval, got %v", err)
	}

	c, err = svc.Complete(ctx, "HMO-1001")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.Status != model.ClaimCompleted || c.CompletedAt == nil {
		t.Errorf("unexpected claim: %+v", c)
	}
}

func TestService_Reject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, sampleClaim())

	if _, err := svc.Reject(ctx, "HMO-1001", ""); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected reason to be required, got %v", err)
	}
	c, err := svc.Reject(ctx, "HMO-1001", "enrollee not active")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if c.Status != model.ClaimRejected || c.RejectionReason != "enrollee not active" {
		t.Errorf("unexpected claim: %+v", c)
	}
	if _, err := svc.Complete(ctx, "HMO-1001"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected rejected claim not to complete, got %v", err)
	}
	if _, err := svc.Approve(ctx, "HMO-1001", "AUTH-1"); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected rejected claim not to approve, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, sampleClaim())
	other := sampleClaim()
	other.Provider = "AXA Mansard"
	other.EnrolleeID = "AXA-1"
	svc.Create(ctx, other)
	svc.Reject(ctx, "HMO-1002", "duplicate")

	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"all", Filter{}, 2},
		{"provider", Filter{Provider: "hygeia"}, 1},
		{"status", Filter{Status: model.ClaimRejected}, 1},
		{"query on enrollee", Filter{Query: "axa-1"}, 1},
		{"patient", Filter{PatientID: "P-1002"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.f)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d, got %d", tt.want, len(got))
			}
		})
	}
}
