package model

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestPatientAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		dob  *time.Time
		want int
	}{
		{nil, -1},
		{date(1990, 3, 1), 36},
		{date(1990, 3, 2), 35},
		{date(2000, 2, 29), 26},
		{date(2026, 2, 1), 0},
		{date(2027, 1, 1), 0},
	}
	for _, tt := range tests {
		p := Patient{DateOfBirth: tt.dob}
		if got := p.Age(now); got != tt.want {
			t.Errorf("Age(%v) = %d, want %d", tt.dob, got, tt.want)
		}
	}
}

func TestPatientFullName(t *testing.T) {
	p := Patient{FirstName: "Ada", OtherNames: " ", LastName: "Obi"}
	if got := p.FullName(); got != "Ada Obi" {
		t.Errorf("FullName = %q", got)
	}
	p.OtherNames = "Chioma"
	if got := p.FullName(); got != "Ada Chioma Obi" {
		t.Errorf("FullName = %q", got)
	}
}

func TestPatientValidate(t *testing.T) {
	valid := Patient{FirstName: "Ada", LastName: "Obi", Gender: "Female", Phone: "0803", PatientType: PatientTypePrivate}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hmo := valid
	hmo.PatientType = PatientTypeHMO
	if err := hmo.Validate(); err == nil {
		t.Error("expected error for hmo patient without provider")
	}
	hmo.HMOProvider = "Hygeia"
	if err := hmo.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	noPhone := valid
	noPhone.Phone = ""
	if err := noPhone.Validate(); err == nil {
		t.Error("expected error without phone")
	}
	badGender := valid
	badGender.Gender = "x"
	if err := badGender.Validate(); err == nil {
		t.Error("expected error for unknown gender")
	}
}

func TestPatientPatchApply(t *testing.T) {
	p := Patient{FirstName: "Ada", LastName: "Obi", Phone: "0803", Balance: 500, Allergies: []string{"penicillin"}}
	phone := "0805"
	PatientPatch{Phone: &phone, Guardian: &Contact{Name: "Ngozi Obi"}}.Apply(&p)
	if p.Phone != "0805" || p.FirstName != "Ada" || p.Balance != 500 {
		t.Errorf("unexpected patch result: %+v", p)
	}
	if p.Guardian == nil || p.Guardian.Name != "Ngozi Obi" {
		t.Errorf("guardian not applied: %+v", p.Guardian)
	}
	if len(p.Allergies) != 1 {
		t.Errorf("allergies should be untouched, got %v", p.Allergies)
	}
}

func TestPatientClone(t *testing.T) {
	p := Patient{DateOfBirth: date(1990, 1, 1), Visits: []Visit{{Department: "GOPD"}}, Guardian: &Contact{Name: "A"}}
	c := p.Clone()
	*c.DateOfBirth = c.DateOfBirth.AddDate(1, 0, 0)
	c.Visits[0].Department = "ANC"
	c.Guardian.Name = "B"
	if p.DateOfBirth.Year() != 1990 || p.Visits[0].Department != "GOPD" || p.Guardian.Name != "A" {
		t.Error("clone shares memory with original")
	}
}
