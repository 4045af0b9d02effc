package model

import (
	"strings"
	"time"
)

// Patient types.
const (
	PatientTypePrivate   = "private"
	PatientTypeHMO       = "hmo"
	PatientTypeCorporate = "corporate"
)

var validPatientTypes = map[string]bool{
	PatientTypePrivate: true, PatientTypeHMO: true, PatientTypeCorporate: true,
}

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true,
}

// Contact is a guardian or next-of-kin attached to a patient.
type Contact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Visit is one entry in a patient's visit history.
type Visit struct {
	Date          time.Time `json:"date"`
	Department    string    `json:"department"`
	Doctor        string    `json:"doctor,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
}

type Patient struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	OtherNames   string     `json:"other_names,omitempty"`
	Gender       string     `json:"gender"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email,omitempty"`
	Address      string     `json:"address,omitempty"`
	BloodGroup   string     `json:"blood_group,omitempty"`
	Genotype     string     `json:"genotype,omitempty"`
	Allergies    []string   `json:"allergies,omitempty"`
	PatientType  string     `json:"patient_type"`
	HMOProvider  string     `json:"hmo_provider,omitempty"`
	HMONumber    string     `json:"hmo_number,omitempty"`
	Balance      float64    `json:"balance"`
	Visits       []Visit    `json:"visits,omitempty"`
	Guardian     *Contact   `json:"guardian,omitempty"`
	NextOfKin    *Contact   `json:"next_of_kin,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName joins the first, other and last names.
func (p Patient) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.OtherNames, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Age returns the patient's age in whole years at now, or -1 when the date
// of birth is unknown.
func (p Patient) Age(now time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Clone returns a deep copy.
func (p Patient) Clone() Patient {
	out := p
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		out.DateOfBirth = &dob
	}
	out.Allergies = append([]string(nil), p.Allergies...)
	out.Visits = append([]Visit(nil), p.Visits...)
	if p.Guardian != nil {
		g := *p.Guardian
		out.Guardian = &g
	}
	if p.NextOfKin != nil {
		n := *p.NextOfKin
		out.NextOfKin = &n
	}
	return out
}

// Validate checks the fields the registration form requires.
func (p Patient) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return Invalid("first_name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return Invalid("last_name is required")
	}
	if !validGenders[strings.ToLower(p.Gender)] {
		return Invalid("gender must be male, female or other")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return Invalid("phone is required")
	}
	if !validPatientTypes[p.PatientType] {
		return Invalid("invalid patient_type: %s", p.PatientType)
	}
	if p.PatientType == PatientTypeHMO && strings.TrimSpace(p.HMOProvider) == "" {
		return Invalid("hmo_provider is required for hmo patients")
	}
	return nil
}

// PatientPatch carries a partial update; nil fields are left unchanged.
// Balance is not patchable; it moves only through deposits and settlements.
type PatientPatch struct {
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	OtherNames  *string    `json:"other_names,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Address     *string    `json:"address,omitempty"`
	BloodGroup  *string    `json:"blood_group,omitempty"`
	Genotype    *string    `json:"genotype,omitempty"`
	Allergies   []string   `json:"allergies,omitempty"`
	PatientType *string    `json:"patient_type,omitempty"`
	HMOProvider *string    `json:"hmo_provider,omitempty"`
	HMONumber   *string    `json:"hmo_number,omitempty"`
	Guardian    *Contact   `json:"guardian,omitempty"`
	NextOfKin   *Contact   `json:"next_of_kin,omitempty"`
}

// Apply copies the set fields onto p.
func (pp PatientPatch) Apply(p *Patient) {
	setString(&p.FirstName, pp.FirstName)
	setString(&p.LastName, pp.LastName)
	setString(&p.OtherNames, pp.OtherNames)
	setString(&p.Gender, pp.Gender)
	setString(&p.Phone, pp.Phone)
	setString(&p.Email, pp.Email)
	setString(&p.Address, pp.Address)
	setString(&p.BloodGroup, pp.BloodGroup)
	setString(&p.Genotype, pp.Genotype)
	setString(&p.PatientType, pp.PatientType)
	setString(&p.HMOProvider, pp.HMOProvider)
	setString(&p.HMONumber, pp.HMONumber)
	if pp.DateOfBirth != nil {
		dob := *pp.DateOfBirth
		p.DateOfBirth = &dob
	}
	if pp.Allergies != nil {
		p.Allergies = append([]string(nil), pp.Allergies...)
	}
	if pp.Guardian != nil {
		g := *pp.Guardian
		p.Guardian = &g
	}
	if pp.NextOfKin != nil {
		n := *pp.NextOfKin
		p.NextOfKin = &n
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
