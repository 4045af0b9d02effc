package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/platform/blobstore"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

var testNow = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

func at(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
	return &t
}

func newTestService(t *testing.T) (*Service, *blobstore.Memory) {
	t.Helper()
	st := store.New(store.WithClock(func() time.Time { return testNow }))
	err := st.RunInTransaction(context.Background(), func(tx *store.Tx) error {
		tx.Patients().Insert(model.Patient{FirstName: "Ada", LastName: "Obi", PatientType: model.PatientTypeHMO,
			RegisteredAt: *at(2026, 1, 15)})
		tx.Patients().Insert(model.Patient{FirstName: "Bola", LastName: "Ade", PatientType: model.PatientTypePrivate,
			RegisteredAt: *at(2026, 2, 3)})

		bills := []model.Bill{
			{PatientID: "P-1001", Type: model.BillConsultation, Department: "General Medicine", Status: model.BillPaid,
				Items: []model.LineItem{{Description: "Consultation", Quantity: 1, UnitPrice: 5000}}, PaidAt: at(2026, 2, 10)},
			{PatientID: "P-1002", Type: model.BillPharmacy, Department: "Pharmacy", Status: model.BillPaid,
				Items:    []model.LineItem{{Description: "Amoxicillin", Quantity: 2, UnitPrice: 1500}},
				Discount: &model.Discount{Type: model.DiscountFixed, Value: 500}, PaidAt: at(2026, 3, 1)},
			{PatientID: "P-1002", Type: model.BillDeposit, Department: "Accounts", Status: model.BillPaid,
				Items: []model.LineItem{{Description: "Account deposit", Quantity: 1, UnitPrice: 10000}}, PaidAt: at(2026, 3, 1)},
			{PatientID: "P-1001", Type: model.BillLab, Status: model.BillPending,
				Items: []model.LineItem{{Description: "Lipid profile", Quantity: 1, UnitPrice: 3500}}},
			{PatientID: "P-1001", Type: model.BillConsultation, Department: "General Medicine", Status: model.BillPaid,
				Adjustment: model.AdjustDowngrade, ParentBillID: "BILL-1001",
				Items: []model.LineItem{{Description: "Downgrade credit for BILL-1001", Quantity: 1, UnitPrice: 1000}}, PaidAt: at(2026, 3, 1)},
			{PatientID: "P-1002", Type: model.BillLab, Status: model.BillCancelled,
				Items: []model.LineItem{{Description: "Widal", Quantity: 1, UnitPrice: 9999}}},
		}
		for _, b := range bills {
			if _, err := tx.Bills().Insert(b); err != nil {
				return err
			}
		}

		tx.Appointments().Insert(model.Appointment{PatientID: "P-1001", Department: "General Medicine",
			ScheduledAt: testNow.Add(time.Hour), Status: model.AppointmentScheduled})
		tx.Appointments().Insert(model.Appointment{PatientID: "P-1002", Department: "Dental",
			ScheduledAt: testNow.Add(-2 * time.Hour), Status: model.AppointmentCancelled})
		tx.Appointments().Insert(model.Appointment{PatientID: "P-1002", Department: "Dental",
			ScheduledAt: testNow.AddDate(0, 0, 1), Status: model.AppointmentScheduled})

		tx.Claims().Insert(model.HMOClaim{PatientID: "P-1001", Provider: "Hygeia", Status: model.ClaimPending,
			Items: []model.ClaimItem{{Description: "Consultation", Quantity: 1, UnitPrice: 5000, Approved: true},
				{Description: "Scan", Quantity: 1, UnitPrice: 2000}}})
		tx.Claims().Insert(model.HMOClaim{PatientID: "P-1001", Provider: "Hygeia", Status: model.ClaimApproved,
			Items: []model.ClaimItem{{Description: "Drugs", Quantity: 3, UnitPrice: 800, Approved: true}}})
		tx.Claims().Insert(model.HMOClaim{PatientID: "P-1001", Provider: "AXA Mansard", Status: model.ClaimRejected,
			Items: []model.ClaimItem{{Description: "Physio", Quantity: 2, UnitPrice: 4000}}})

		tx.Medicines().Insert(model.Medicine{Name: "Insulin", Price: 5000, Stock: 1, ReorderLevel: 5, Active: true})
		_, err := tx.Medicines().Insert(model.Medicine{Name: "ORS", Price: 100, Stock: 50, ReorderLevel: 10, Active: true})
		return err
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	blobs := blobstore.NewMemory()
	return NewService(st, blobs, zerolog.Nop()), blobs
}

func TestService_Summary(t *testing.T) {
	svc, _ := newTestService(t)
	s, err := svc.Summary(context.Background(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Summary{
		GeneratedAt:       testNow,
		Patients:          2,
		HMOPatients:       1,
		PendingBills:      1,
		PendingAmount:     3500,
		Revenue:           6500,
		RevenueToday:      1500,
		AppointmentsToday: 1,
		PendingClaims:     1,
		LowStock:          1,
	}
	if s != want {
		t.Errorf("summary = %+v\nwant      %+v", s, want)
	}
}

func TestService_Revenue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tests := []struct {
		name    string
		groupBy string
		from    time.Time
		to      time.Time
		want    []query.Bucket
	}{
		{"by month", GroupByMonth, time.Time{}, time.Time{}, []query.Bucket{
			{Label: "2026-02", Count: 1, Total: 5000},
			{Label: "2026-03", Count: 2, Total: 1500},
		}},
		{"default is month", "", time.Time{}, time.Time{}, []query.Bucket{
			{Label: "2026-02", Count: 1, Total: 5000},
			{Label: "2026-03", Count: 2, Total: 1500},
		}},
		{"by department", GroupByDepartment, time.Time{}, time.Time{}, []query.Bucket{
			{Label: "General Medicine", Count: 2, Total: 4000},
			{Label: "Pharmacy", Count: 1, Total: 2500},
		}},
		{"by type in range", GroupByType, *at(2026, 3, 1), time.Time{}, []query.Bucket{
			{Label: "consultation", Count: 1, Total: -1000},
			{Label: "pharmacy", Count: 1, Total: 2500},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Revenue(ctx, tt.groupBy, tt.from, tt.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("bucket %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestService_Revenue_BadGrouping(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Revenue(context.Background(), "weekday", time.Time{}, time.Time{}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestService_ClaimsByProvider(t *testing.T) {
	svc, _ := newTestService(t)
	got, err := svc.ClaimsByProvider(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []ProviderClaims{
		{Provider: "AXA Mansard", Count: 1, ClaimedTotal: 8000, ApprovedTotal: 0},
		{Provider: "Hygeia", Count: 2, Pending: 1, ClaimedTotal: 9400, ApprovedTotal: 7400},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("provider %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestService_RegistrationsAndAppointments(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg, _ := svc.Registrations(ctx)
	if len(reg) != 2 || reg[0].Label != "2026-01" || reg[1].Count != 1 {
		t.Errorf("unexpected registrations: %+v", reg)
	}

	appts, _ := svc.AppointmentsByDepartment(ctx, "")
	if len(appts) != 2 || appts[0].Label != "Dental" || appts[0].Count != 2 {
		t.Errorf("unexpected appointments: %+v", appts)
	}
	scheduled, _ := svc.AppointmentsByDepartment(ctx, model.AppointmentScheduled)
	if len(scheduled) != 2 || scheduled[0].Count != 1 {
		t.Errorf("unexpected scheduled appointments: %+v", scheduled)
	}
}
