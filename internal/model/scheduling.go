package model

import "time"

// Appointment statuses.
const (
	AppointmentScheduled  = "scheduled"
	AppointmentCheckedIn  = "checked_in"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
	AppointmentNoShow     = "no_show"
)

// Vaccination appointment statuses.
const (
	VaccinationScheduled  = "scheduled"
	VaccinationInProgress = "in_progress"
	VaccinationCompleted  = "completed"
	VaccinationDenied     = "denied"
)

type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	DoctorID    string    `json:"doctor_id,omitempty"`
	DoctorName  string    `json:"doctor_name"`
	Department  string    `json:"department"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy; Appointment holds no reference fields.
func (a Appointment) Clone() Appointment { return a }

// AppointmentPatch is a partial edit of a scheduled appointment.
type AppointmentPatch struct {
	DoctorID    *string    `json:"doctor_id,omitempty"`
	DoctorName  *string    `json:"doctor_name,omitempty"`
	Department  *string    `json:"department,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// Apply copies the set fields onto a.
func (ap AppointmentPatch) Apply(a *Appointment) {
	setString(&a.DoctorID, ap.DoctorID)
	setString(&a.DoctorName, ap.DoctorName)
	setString(&a.Department, ap.Department)
	setString(&a.Reason, ap.Reason)
	setString(&a.Notes, ap.Notes)
	if ap.ScheduledAt != nil {
		a.ScheduledAt = *ap.ScheduledAt
	}
}

var appointmentTransitions = map[string][]string{
	AppointmentScheduled:  {AppointmentCheckedIn, AppointmentCancelled, AppointmentNoShow},
	AppointmentCheckedIn:  {AppointmentInProgress, AppointmentCancelled},
	AppointmentInProgress: {AppointmentCompleted},
}

// CanTransitionAppointment reports whether an appointment may move between statuses.
func CanTransitionAppointment(from, to string) bool {
	return allowed(appointmentTransitions, from, to)
}

type VaccinationAppointment struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	PatientName    string     `json:"patient_name"`
	VaccineID      string     `json:"vaccine_id"`
	VaccineName    string     `json:"vaccine_name"`
	Dose           int        `json:"dose"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Status         string     `json:"status"`
	DenialReason   string     `json:"denial_reason,omitempty"`
	VitalsID       string     `json:"vitals_id,omitempty"`
	AdministeredBy string     `json:"administered_by,omitempty"`
	AdministeredAt *time.Time `json:"administered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Clone returns a deep copy.
func (v VaccinationAppointment) Clone() VaccinationAppointment {
	out := v
	if v.AdministeredAt != nil {
		t := *v.AdministeredAt
		out.AdministeredAt = &t
	}
	return out
}

var vaccinationTransitions = map[string][]string{
	VaccinationScheduled:  {VaccinationInProgress, VaccinationDenied},
	VaccinationInProgress: {VaccinationCompleted, VaccinationDenied},
}

// CanTransitionVaccination reports whether a vaccination appointment may move between statuses.
func CanTransitionVaccination(from, to string) bool {
	return allowed(vaccinationTransitions, from, to)
}
