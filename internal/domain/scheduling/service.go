package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

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
	return &Service{store: st, logger: logger.With().Str("component", "scheduling").Logger()}
}

// -- Appointment --

// AppointmentFilter narrows an appointment listing. A non-zero Date keeps
// appointments scheduled on that calendar day.
type AppointmentFilter struct {
	Status     string
	Doctor     string
	Department string
	PatientID  string
	Date       time.Time
	Query      string
}

func (f AppointmentFilter) match(a model.Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Doctor != "" && !strings.EqualFold(a.DoctorID, f.Doctor) && !query.Match(f.Doctor, a.DoctorName) {
		return false
	}
	if f.Department != "" && !strings.EqualFold(a.Department, f.Department) {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if !f.Date.IsZero() && !query.SameDay(f.Date, a.ScheduledAt) {
		return false
	}
	return query.Match(f.Query, a.ID, a.PatientName, a.PatientID, a.DoctorName, a.Reason)
}

func (s *Service) CreateAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	a.ID = ""
	if strings.TrimSpace(a.Department) == "" {
		return model.Appointment{}, model.Invalid("department is required")
	}
	if a.ScheduledAt.IsZero() {
		return model.Appointment{}, model.Invalid("scheduled_at is required")
	}

	var out model.Appointment
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		p, err := tx.Patients().Require(a.PatientID)
		if err != nil {
			return err
		}
		a.PatientName = p.FullName()
		a.Status = model.AppointmentScheduled
		a.CreatedAt = tx.Now()
		a.UpdatedAt = tx.Now()
		out, err = tx.Appointments().Insert(a)
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info().Str("appointment_id", out.ID).Str("patient_id", out.PatientID).Time("scheduled_at", out.ScheduledAt).Msg("appointment booked")
	return out, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	var out model.Appointment
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = v.Appointments().Require(id)
		return err
	})
	return out, err
}

// ListAppointments returns matching appointments in schedule order.
func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter) ([]model.Appointment, error) {
	var out []model.Appointment
	err := s.store.View(ctx, func(v *store.View) error {
		out = v.Appointments().Find(f.match)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, err
}

// UpdateAppointment edits or reschedules an appointment that has not
// started yet.
func (s *Service) UpdateAppointment(ctx context.Context, id string, patch model.AppointmentPatch) (model.Appointment, error) {
	var out model.Appointment
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Appointments().Update(id, func(a *model.Appointment) error {
			if a.Status != model.AppointmentScheduled {
				return fmt.Errorf("%w: a %s appointment cannot be edited", model.ErrInvalidTransition, a.Status)
			}
			patch.Apply(a)
			if strings.TrimSpace(a.Department) == "" {
				return model.Invalid("department is required")
			}
			if a.ScheduledAt.IsZero() {
				return model.Invalid("scheduled_at is required")
			}
			a.UpdatedAt = tx.Now()
			return nil
		})
		return err
	})
	return out, err
}

// TransitionAppointment moves an appointment along its workflow. Starting a
// consultation needs vitals recorded against the appointment; completing it
// appends a visit to the patient's history.
func (s *Service) TransitionAppointment(ctx context.Context, id, status string) (model.Appointment, error) {
	var out model.Appointment
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		a, err := tx.Appointments().Require(id)
		if err != nil {
			return err
		}
		if !model.CanTransitionAppointment(a.Status, status) {
			return fmt.Errorf("%w: appointment %s cannot move from %s to %s", model.ErrInvalidTransition, id, a.Status, status)
		}
		if status == model.AppointmentInProgress {
			taken := tx.Vitals().Find(func(v model.Vitals) bool { return v.AppointmentID == id })
			if len(taken) == 0 {
				return model.Invalid("vitals must be recorded before the consultation starts")
			}
		}
		now := tx.Now()
		if status == model.AppointmentCompleted {
			if _, err := tx.Patients().Update(a.PatientID, func(p *model.Patient) error {
				p.Visits = append(p.Visits, model.Visit{
					Date:          now,
					Department:    a.Department,
					Doctor:        a.DoctorName,
					Reason:        a.Reason,
					AppointmentID: a.ID,
				})
				p.UpdatedAt = now
				return nil
			}); err != nil {
				return err
			}
		}
		out, err = tx.Appointments().Update(id, func(a *model.Appointment) error {
			a.Status = status
			a.UpdatedAt = now
			return nil
		})
		return err
	})
	if err != nil {
		return model.Appointment{}, err
	}
	s.logger.Info().Str("appointment_id", id).Str("status", status).Msg("appointment status changed")
	return out, nil
}
