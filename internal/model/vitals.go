package model

import (
	"math"
	"time"
)

// BMI categories.
const (
	BMIUnderweight = "underweight"
	BMINormal      = "normal"
	BMIOverweight  = "overweight"
	BMIObese       = "obese"
)

type Vitals struct {
	ID                       string    `json:"id"`
	PatientID                string    `json:"patient_id"`
	AppointmentID            string    `json:"appointment_id,omitempty"`
	VaccinationAppointmentID string    `json:"vaccination_appointment_id,omitempty"`
	TemperatureC             float64   `json:"temperature_c"`
	Systolic                 int       `json:"systolic"`
	Diastolic                int       `json:"diastolic"`
	Pulse                    int       `json:"pulse"`
	RespiratoryRate          int       `json:"respiratory_rate,omitempty"`
	SpO2                     int       `json:"spo2,omitempty"`
	WeightKg                 float64   `json:"weight_kg,omitempty"`
	HeightCm                 float64   `json:"height_cm,omitempty"`
	BMI                      float64   `json:"bmi,omitempty"`
	BMICategory              string    `json:"bmi_category,omitempty"`
	RecordedBy               string    `json:"recorded_by,omitempty"`
	RecordedAt               time.Time `json:"recorded_at"`
}

// Clone returns a copy; Vitals holds no reference fields.
func (v Vitals) Clone() Vitals { return v }

// Validate checks that readings fall in physiologically plausible ranges.
func (v Vitals) Validate() error {
	if v.TemperatureC < 25 || v.TemperatureC > 45 {
		return Invalid("temperature_c must be between 25 and 45")
	}
	if v.Systolic < 50 || v.Systolic > 260 {
		return Invalid("systolic must be between 50 and 260")
	}
	if v.Diastolic < 30 || v.Diastolic > 160 {
		return Invalid("diastolic must be between 30 and 160")
	}
	if v.Diastolic >= v.Systolic {
		return Invalid("diastolic must be lower than systolic")
	}
	if v.Pulse < 20 || v.Pulse > 250 {
		return Invalid("pulse must be between 20 and 250")
	}
	if v.RespiratoryRate < 0 || v.RespiratoryRate > 80 {
		return Invalid("respiratory_rate must be between 0 and 80")
	}
	if v.SpO2 < 0 || v.SpO2 > 100 {
		return Invalid("spo2 must be between 0 and 100")
	}
	if v.WeightKg < 0 || v.WeightKg > 500 {
		return Invalid("weight_kg must be between 0 and 500")
	}
	if v.HeightCm < 0 || v.HeightCm > 272 {
		return Invalid("height_cm must be between 0 and 272")
	}
	return nil
}

// BMI computes body mass index from weight in kilograms and height in
// centimetres, rounded to one decimal place. It returns 0 when either
// measurement is missing.
func BMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10
}

// BMICategoryFor classifies a BMI value; an empty string means unknown.
func BMICategoryFor(bmi float64) string {
	switch {
	case bmi <= 0:
		return ""
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMINormal
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}
