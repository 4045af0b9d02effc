package vitals

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/store"
)

type Service struct {
	store  *store.Store
	logger zerolog.Logger
}

func NewService(st *store.Store, logger zerolog.Logger) *Service {
	return &Service{store: st, logger: logger.With().Str("component", "vitals").Logger()}
}

// Record validates and stores a set of readings. BMI is derived from weight
// and height when both are present. Readings taken for an appointment or a
// vaccination must name one that belongs to the same patient; a vaccination
// appointment is linked back to the new record.
func (s *Service) Record(ctx context.Context, v model.Vitals, by string) (model.Vitals, error) {
	v.ID = ""
	if err := v.Validate(); err != nil {
		return model.Vitals{}, err
	}
	v.BMI = model.BMI(v.WeightKg, v.HeightCm)
	v.BMICategory = model.BMICategoryFor(v.BMI)
	if v.RecordedBy == "" {
		v.RecordedBy = by
	}

	var out model.Vitals
	err := s.store.RunInTransaction(ctx, func(tx *store.Tx) error {
		if _, err := tx.Patients().Require(v.PatientID); err != nil {
			return err
		}
		if v.AppointmentID != "" {
			a, err := tx.Appointments().Require(v.AppointmentID)
			if err != nil {
				return err
			}
			if a.PatientID != v.PatientID {
				return model.Invalid("appointment %s belongs to another patient", a.ID)
			}
		}
		if v.VaccinationAppointmentID != "" {
			va, err := tx.Vaccinations().Require(v.VaccinationAppointmentID)
			if err != nil {
				return err
			}
			if va.PatientID != v.PatientID {
				return model.Invalid("vaccination appointment %s belongs to another patient", va.ID)
			}
		}
		v.RecordedAt = tx.Now()
		var err error
		out, err = tx.Vitals().Insert(v)
		if err != nil {
			return err
		}
		if v.VaccinationAppointmentID != "" {
			if _, err := tx.Vaccinations().Update(v.VaccinationAppointmentID, func(va *model.VaccinationAppointment) error {
				va.VitalsID = out.ID
				va.UpdatedAt = tx.Now()
				return nil
			}); err != nil {
				return fmt.Errorf("link vitals: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Vitals{}, err
	}
	s.logger.Info().Str("vitals_id", out.ID).Str("patient_id", out.PatientID).Msg("vitals recorded")
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (model.Vitals, error) {
	var out model.Vitals
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		out, err = v.Vitals().Require(id)
		return err
	})
	return out, err
}

// ListByPatient returns the patient's readings, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]model.Vitals, error) {
	var found []model.Vitals
	err := s.store.View(ctx, func(v *store.View) error {
		if _, err := v.Patients().Require(patientID); err != nil {
			return err
		}
		found = v.Vitals().Find(func(r model.Vitals) bool { return r.PatientID == patientID })
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Vitals, 0, len(found))
	for i := len(found) - 1; i >= 0; i-- {
		out = append(out, found[i])
	}
	return out, nil
}

// Latest returns the most recent reading for the patient.
func (s *Service) Latest(ctx context.Context, patientID string) (model.Vitals, error) {
	list, err := s.ListByPatient(ctx, patientID)
	if err != nil {
		return model.Vitals{}, err
	}
	if len(list) == 0 {
		return model.Vitals{}, fmt.Errorf("%w: no vitals recorded for %s", store.ErrNotFound, patientID)
	}
	return list[0], nil
}
