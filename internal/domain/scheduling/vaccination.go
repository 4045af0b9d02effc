package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

// -- Vaccination --

type VaccinationFilter struct {
	Status    string
	PatientID string
	VaccineID string
	Query     string
}

func (f VaccinationFilter) match(v model.VaccinationAppointment) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.PatientID != "" && v.PatientID != f.PatientID {
		return false
	}
	if f.VaccineID != "" && v.VaccineID != f.VaccineID {
		return false
	}
	return query.Match(f.Query, v.ID, v.PatientName, v.PatientID, v.VaccineName)
}

// ScheduleVaccination books a dose of an active vaccine.
func (s *Service) ScheduleVaccination(ctx context.Context, va model.VaccinationAppointment) (model.VaccinationAppointment, error) {
	va.ID = ""
	if va.ScheduledAt.IsZero() {
		return model.VaccinationAppointment{}, model.Invalid("scheduled_at is required")
	}
	if va.Dose == 0 {
		va.Dose = 1
	}

	var out model.VaccinationAppointment
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		p, err := tx.Patients().Require(va.PatientID)
		if err != nil {
			return err
		}
		vac, err := tx.Vaccines().Require(va.VaccineID)
		if err != nil {
			return err
		}
		if !vac.Active {
			return model.Invalid("vaccine %s is not available", vac.Name)
		}
		if va.Dose < 1 || va.Dose > vac.DosesRequired {
			return model.Invalid("dose must be between 1 and %d for %s", vac.DosesRequired, vac.Name)
		}
		va.PatientName = p.FullName()
		va.VaccineName = vac.Name
		va.Status = model.VaccinationScheduled
		va.VitalsID = ""
		va.AdministeredBy = ""
		va.AdministeredAt = nil
		va.CreatedAt = tx.Now()
		va.UpdatedAt = tx.Now()
		out, err = tx.Vaccinations().Insert(va)
		return err
	})
	if err != nil {
		return model.VaccinationAppointment{}, err
	}
	s.logger.Info().Str("vaccination_id", out.ID).Str("patient_id", out.PatientID).Str("vaccine", out.VaccineName).Msg("vaccination scheduled")
	return out, nil
}

func (s *Service) GetVaccination(ctx context.Context, id string) (model.VaccinationAppointment, error) {
	var out model.VaccinationAppointment
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = v.Vaccinations().Require(id)
		return err
	})
	return out, err
}

func (s *Service) ListVaccinations(ctx context.Context, f VaccinationFilter) ([]model.VaccinationAppointment, error) {
	var out []model.VaccinationAppointment
	err := s.store.View(ctx, func(v *store.View) error {
		out = v.Vaccinations().Find(f.match)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, err
}

func (s *Service) transitionVaccination(ctx context.Context, id, status string, fn func(tx *store.Tx, va *model.VaccinationAppointment) error) (model.VaccinationAppointment, error) {
	var out model.VaccinationAppointment
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		var err error
		out, err = tx.Vaccinations().Update(id, func(va *model.VaccinationAppointment) error {
			if !model.CanTransitionVaccination(va.Status, status) {
				return fmt.Errorf("%w: vaccination %s cannot move from %s to %s", model.ErrInvalidTransition, id, va.Status, status)
			}
			if err := fn(tx, va); err != nil {
				return err
			}
			va.Status = status
			va.UpdatedAt = tx.Now()
			return nil
		})
		return err
	})
	if err != nil {
		return model.VaccinationAppointment{}, err
	}
	s.logger.Info().Str("vaccination_id", id).Str("status", status).Msg("vaccination status changed")
	return out, nil
}

// StartVaccination opens the session once vitals have been taken for it.
func (s *Service) StartVaccination(ctx context.Context, id string) (model.VaccinationAppointment, error) {
	return s.transitionVaccination(ctx, id, model.VaccinationInProgress, func(tx *store.Tx, va *model.VaccinationAppointment) error {
		if va.VitalsID != "" {
			return nil
		}
		taken := tx.Vitals().Find(func(v model.Vitals) bool { return v.VaccinationAppointmentID == id })
		if len(taken) == 0 {
			return model.Invalid("vitals must be recorded before vaccination")
		}
		va.VitalsID = taken[len(taken)-1].ID
		return nil
	})
}

// CompleteVaccination records the administered dose, draws one unit of the
// vaccine from stock and adds an immunisation visit to the patient.
func (s *Service) CompleteVaccination(ctx context.Context, id, by string) (model.VaccinationAppointment, error) {
	return s.transitionVaccination(ctx, id, model.VaccinationCompleted, func(tx *store.Tx, va *model.VaccinationAppointment) error {
		now := tx.Now()
		if _, err := tx.Vaccines().Update(va.VaccineID, func(v *model.Vaccine) error {
			next, err := model.StockAfter(v.Name, v.Stock, -1)
			v.Stock = next
			v.UpdatedAt = now
			return err
		}); err != nil {
			return err
		}
		if _, err := tx.Patients().Update(va.PatientID, func(p *model.Patient) error {
			p.Visits = append(p.Visits, model.Visit{
				Date:       now,
				Department: "Immunisation",
				Doctor:     by,
				Reason:     fmt.Sprintf("%s dose %d", va.VaccineName, va.Dose),
			})
			p.UpdatedAt = now
			return nil
		}); err != nil {
			return err
		}
		va.AdministeredBy = by
		va.AdministeredAt = &now
		return nil
	})
}

// DenyVaccination closes the appointment without a dose.
func (s *Service) DenyVaccination(ctx context.Context, id, reason string) (model.VaccinationAppointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.VaccinationAppointment{}, model.Invalid("a reason is required to deny vaccination")
	}
	return s.transitionVaccination(ctx, id, model.VaccinationDenied, func(_ *store.Tx, va *model.VaccinationAppointment) error {
		va.DenialReason = reason
		return nil
	})
}
