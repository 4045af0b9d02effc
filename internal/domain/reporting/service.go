package reporting

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/platform/blobstore"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

// Revenue groupings.
const (
	GroupByMonth      = "month"
	GroupByDepartment = "department"
	GroupByType       = "type"
)

// Summary is the dashboard headline.
type Summary struct {
	GeneratedAt       time.Time `json:"generated_at"`
	Patients          int       `json:"patients"`
	HMOPatients       int       `json:"hmo_patients"`
	PendingBills      int       `json:"pending_bills"`
	PendingAmount     float64   `json:"pending_amount"`
	Revenue           float64   `json:"revenue"`
	RevenueToday      float64   `json:"revenue_today"`
	AppointmentsToday int       `json:"appointments_today"`
	PendingClaims     int       `json:"pending_claims"`
	LowStock          int       `json:"low_stock"`
}

// ProviderClaims totals the claims filed with one HMO.
type ProviderClaims struct {
	Provider      string  `json:"provider"`
	Count         int     `json:"count"`
	Pending       int     `json:"pending"`
	ClaimedTotal  float64 `json:"claimed_total"`
	ApprovedTotal float64 `json:"approved_total"`
}

type Service struct {
	store  *store.Store
	blobs  blobstore.Store
	logger zerolog.Logger
}

func NewService(st *store.Store, blobs blobstore.Store, logger zerolog.Logger) *Service {
	return &Service{store: st, blobs: blobs, logger: logger.With().Str("component", "reporting").Logger()}
}

func (s *Service) Summary(ctx context.Context, now time.Time) (Summary, error) {
	var out Summary
	err := s.store.View(ctx, func(v *store.View) error {
		out = summarize(v, now)
		return nil
	})
	return out, err
}

func (s *Service) Revenue(ctx context.Context, groupBy string, from, to time.Time) ([]query.Bucket, error) {
	key, err := revenueKey(groupBy)
	if err != nil {
		return nil, err
	}
	var out []query.Bucket
	err = s.store.View(ctx, func(v *store.View) error {
		out = query.GroupBy(revenueBills(v, from, to), key, revenueAmount)
		return nil
	})
	return out, err
}

func (s *Service) ClaimsByProvider(ctx context.Context) ([]ProviderClaims, error) {
	var out []ProviderClaims
	err := s.store.View(ctx, func(v *store.View) error {
		out = claimsByProvider(v)
		return nil
	})
	return out, err
}

// Registrations counts new patients per month.
func (s *Service) Registrations(ctx context.Context) ([]query.Bucket, error) {
	var out []query.Bucket
	err := s.store.View(ctx, func(v *store.View) error {
		out = registrations(v)
		return nil
	})
	return out, err
}

// AppointmentsByDepartment counts appointments per department, optionally
// only those in status.
func (s *Service) AppointmentsByDepartment(ctx context.Context, status string) ([]query.Bucket, error) {
	var out []query.Bucket
	err := s.store.View(ctx, func(v *store.View) error {
		out = appointmentsByDepartment(v, status)
		return nil
	})
	return out, err
}

// -- Calculations over a view --

func summarize(v *store.View, now time.Time) Summary {
	patients := v.Patients().List()
	bills := v.Bills().List()
	pending := query.Filter(bills, func(b model.Bill) bool { return b.Status == model.BillPending })
	earned := revenueBills(v, time.Time{}, time.Time{})

	return Summary{
		GeneratedAt:   now,
		Patients:      len(patients),
		HMOPatients:   query.Count(patients, func(p model.Patient) bool { return p.PatientType == model.PatientTypeHMO }),
		PendingBills:  len(pending),
		PendingAmount: model.RoundMoney(query.Sum(pending, model.Bill.Total)),
		Revenue:       model.RoundMoney(query.Sum(earned, revenueAmount)),
		RevenueToday: model.RoundMoney(query.Sum(earned, func(b model.Bill) float64 {
			if query.SameDay(now, revenueDate(b)) {
				return revenueAmount(b)
			}
			return 0
		})),
		AppointmentsToday: len(v.Appointments().Find(func(a model.Appointment) bool {
			return query.SameDay(now, a.ScheduledAt) && a.Status != model.AppointmentCancelled
		})),
		PendingClaims: len(v.Claims().Find(func(c model.HMOClaim) bool { return c.Status == model.ClaimPending })),
		LowStock:      len(catalog.LowStockFrom(v)),
	}
}

// revenueBills are the paid bills that count as earnings: deposits are
// excluded because they only move money onto a patient account.
func revenueBills(v *store.View, from, to time.Time) []model.Bill {
	return v.Bills().Find(func(b model.Bill) bool {
		return b.Status == model.BillPaid && b.Type != model.BillDeposit && query.InRange(revenueDate(b), from, to)
	})
}

// revenueAmount is the bill total, negated for downgrade credits.
func revenueAmount(b model.Bill) float64 {
	if b.Adjustment == model.AdjustDowngrade {
		return -b.Total()
	}
	return b.Total()
}

func revenueDate(b model.Bill) time.Time {
	if b.PaidAt != nil {
		return *b.PaidAt
	}
	return b.CreatedAt
}

func revenueKey(groupBy string) (func(model.Bill) string, error) {
	switch strings.ToLower(groupBy) {
	case "", GroupByMonth:
		return func(b model.Bill) string { return query.MonthLabel(revenueDate(b)) }, nil
	case GroupByDepartment:
		return func(b model.Bill) string { return labelOr(b.Department, "Unassigned") }, nil
	case GroupByType:
		return func(b model.Bill) string { return b.Type }, nil
	}
	return nil, model.Invalid("group_by must be one of month, department, type")
}

func claimsByProvider(v *store.View) []ProviderClaims {
	idx := map[string]int{}
	var out []ProviderClaims
	for _, c := range v.Claims().List() {
		name := labelOr(c.Provider, "Unknown")
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, ProviderClaims{Provider: name})
		}
		out[i].Count++
		if c.Status == model.ClaimPending {
			out[i].Pending++
		}
		out[i].ClaimedTotal = model.RoundMoney(out[i].ClaimedTotal + c.ClaimedTotal())
		out[i].ApprovedTotal = model.RoundMoney(out[i].ApprovedTotal + c.ApprovedTotal())
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Provider < out[b].Provider })
	return out
}

func registrations(v *store.View) []query.Bucket {
	return query.GroupBy(v.Patients().List(), func(p model.Patient) string { return query.MonthLabel(p.RegisteredAt) }, nil)
}

func appointmentsByDepartment(v *store.View, status string) []query.Bucket {
	items := v.Appointments().Find(func(a model.Appointment) bool { return status == "" || a.Status == status })
	return query.GroupBy(items, func(a model.Appointment) string { return labelOr(a.Department, "Unassigned") }, nil)
}

func labelOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
