// Package seed loads a small, consistent demo hospital: patients of every
// type, a stocked catalog, bills in each state, the day's appointments and
// claims awaiting review. Dates are relative to the supplied clock so the
// dashboard always has something to show for "today".
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/store"
)

// ErrNotEmpty is returned when the store already holds patients.
var ErrNotEmpty = errors.New("store already has data")

// Counts reports how many records of each entity were inserted.
type Counts map[store.Entity]int

// Load inserts the demo data in one transaction.
func Load(ctx context.Context, st *store.Store, logger zerolog.Logger) (Counts, error) {
	counts := Counts{}
	err := st.RunInTransaction(ctx, func(tx *store.Tx) error {
		if tx.Patients().Len() > 0 {
			return ErrNotEmpty
		}
		d := data(tx.Now())

		steps := []struct {
			entity store.Entity
			insert func() (int, error)
		}{
			{store.EntityPatient, func() (int, error) { return insertAll(tx.Patients(), d.patients) }},
			{store.EntityMedicine, func() (int, error) { return insertAll(tx.Medicines(), d.medicines) }},
			{store.EntityConsumable, func() (int, error) { return insertAll(tx.Consumables(), d.consumables) }},
			{store.EntityLabTest, func() (int, error) { return insertAll(tx.LabTests(), d.labTests) }},
			{store.EntityVaccine, func() (int, error) { return insertAll(tx.Vaccines(), d.vaccines) }},
			{store.EntityBill, func() (int, error) { return insertAll(tx.Bills(), d.bills) }},
			{store.EntityAppointment, func() (int, error) { return insertAll(tx.Appointments(), d.appointments) }},
			{store.EntityVitals, func() (int, error) { return insertAll(tx.Vitals(), d.vitals) }},
			{store.EntityVaccination, func() (int, error) { return insertAll(tx.Vaccinations(), d.vaccinations) }},
			{store.EntityClaim, func() (int, error) { return insertAll(tx.Claims(), d.claims) }},
		}
		for _, s := range steps {
			n, err := s.insert()
			if err != nil {
				return fmt.Errorf("seed %s: %w", s.entity, err)
			}
			counts[s.entity] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Interface("counts", counts).Msg("demo data loaded")
	return counts, nil
}

type validator interface{ Validate() error }

func insertAll[T any](t store.Table[T], items []T) (int, error) {
	for _, it := range items {
		if v, ok := any(it).(validator); ok {
			if err := v.Validate(); err != nil {
				return 0, err
			}
		}
		if _, err := t.Insert(it); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

type dataset struct {
	patients     []model.Patient
	medicines    []model.Medicine
	consumables  []model.Consumable
	labTests     []model.LabTest
	vaccines     []model.Vaccine
	bills        []model.Bill
	appointments []model.Appointment
	vitals       []model.Vitals
	vaccinations []model.VaccinationAppointment
	claims       []model.HMOClaim
}

func data(now time.Time) dataset {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	at := func(days, hour, minute int) time.Time {
		return today.AddDate(0, 0, days).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}
	ptr := func(t time.Time) *time.Time { return &t }
	dob := func(y int, m time.Month, d int) *time.Time { return ptr(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) }

	patients := []model.Patient{
		{
			ID: "P-1001", FirstName: "Adaeze", LastName: "Okafor", Gender: "female", DateOfBirth: dob(1988, time.April, 12),
			Phone: "08031234567", Email: "adaeze.okafor@example.com", Address: "14 Allen Avenue, Ikeja, Lagos",
			BloodGroup: "O+", Genotype: "AA", Allergies: []string{"Penicillin"},
			PatientType: model.PatientTypeHMO, HMOProvider: "Hygeia", HMONumber: "HYG-20418",
			NextOfKin:    &model.Contact{Name: "Chinedu Okafor", Relationship: "Husband", Phone: "08037654321"},
			RegisteredAt: at(-75, 9, 10),
			Visits: []model.Visit{
				{Date: at(-30, 10, 0), Department: "General Medicine", Doctor: "Dr. Bello", Reason: "Malaria follow-up"},
			},
		},
		{
			ID: "P-1002", FirstName: "Tunde", LastName: "Bakare", Gender: "male", DateOfBirth: dob(1975, time.November, 3),
			Phone: "08029876543", Address: "7 Bode Thomas Street, Surulere, Lagos",
			BloodGroup: "A+", Genotype: "AS",
			PatientType: model.PatientTypePrivate,
			RegisteredAt: at(-40, 11, 30),
		},
		{
			ID: "P-1003", FirstName: "Zainab", LastName: "Musa", Gender: "female", DateOfBirth: dob(2019, time.February, 21),
			Phone: "08051112233", Address: "22 Ahmadu Bello Way, Kaduna",
			Genotype:     "AA",
			PatientType:  model.PatientTypePrivate,
			Guardian:     &model.Contact{Name: "Aisha Musa", Relationship: "Mother", Phone: "08051112233"},
			RegisteredAt: at(-12, 8, 45),
		},
		{
			ID: "P-1004", FirstName: "Emeka", LastName: "Nwosu", Gender: "male", DateOfBirth: dob(1992, time.July, 8),
			Phone: "08064445566", Email: "emeka.nwosu@example.com",
			BloodGroup: "B+", Genotype: "AA",
			PatientType: model.PatientTypeCorporate, Balance: 20000,
			RegisteredAt: at(-5, 14, 0),
		},
		{
			ID: "P-1005", FirstName: "Folake", LastName: "Adeyemi", Gender: "female", DateOfBirth: dob(1969, time.January, 30),
			Phone: "08077778899", Address: "3 Ring Road, Ibadan",
			BloodGroup: "AB+", Genotype: "AA", Allergies: []string{"Sulfonamides"},
			PatientType: model.PatientTypeHMO, HMOProvider: "AXA Mansard", HMONumber: "AXA-99213",
			RegisteredAt: at(-2, 10, 15),
		},
		{
			ID: "P-1006", FirstName: "Ibrahim", LastName: "Sani", Gender: "male", DateOfBirth: dob(1983, time.September, 17),
			Phone: "08090001122",
			PatientType: model.PatientTypeHMO, HMOProvider: "Hygeia", HMONumber: "HYG-31877",
			RegisteredAt: at(0, 8, 5),
		},
	}

	medicines := []model.Medicine{
		{ID: "MED-1001", Name: "Paracetamol 500mg", GenericName: "Paracetamol", Form: "tablet", Strength: "500mg", Category: "Analgesic", Price: 50, Stock: 1200, ReorderLevel: 200, ExpiryDate: ptr(at(400, 0, 0)), Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "MED-1002", Name: "Amoxicillin 500mg", GenericName: "Amoxicillin", Form: "capsule", Strength: "500mg", Category: "Antibiotic", Price: 120, Stock: 45, ReorderLevel: 60, ExpiryDate: ptr(at(200, 0, 0)), Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "MED-1003", Name: "Artemether/Lumefantrine 80/480", GenericName: "Artemether/Lumefantrine", Form: "tablet", Strength: "80/480mg", Category: "Antimalarial", Price: 1800, Stock: 150, ReorderLevel: 30, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "MED-1004", Name: "Metformin 500mg", GenericName: "Metformin", Form: "tablet", Strength: "500mg", Category: "Antidiabetic", Price: 80, Stock: 600, ReorderLevel: 100, Active: true, CreatedAt: at(-60, 9, 0)},
		{ID: "MED-1005", Name: "Ciprofloxacin 500mg", GenericName: "Ciprofloxacin", Form: "tablet", Strength: "500mg", Category: "Antibiotic", Price: 150, Stock: 0, ReorderLevel: 50, Active: true, CreatedAt: at(-60, 9, 0)},
	}
	consumables := []model.Consumable{
		{ID: "CON-1001", Name: "Syringe 5ml", Unit: "piece", Price: 100, Stock: 500, ReorderLevel: 100, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "CON-1002", Name: "Examination Gloves", Unit: "pair", Price: 150, Stock: 80, ReorderLevel: 100, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "CON-1003", Name: "Cotton Wool 100g", Unit: "roll", Price: 600, Stock: 40, ReorderLevel: 10, Active: true, CreatedAt: at(-90, 9, 0)},
	}
	labTests := []model.LabTest{
		{ID: "LAB-1001", Name: "Full Blood Count", Code: "FBC", Category: "Haematology", Price: 3500, TurnaroundHours: 4, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "LAB-1002", Name: "Malaria Parasite", Code: "MP", Category: "Parasitology", Price: 1500, TurnaroundHours: 1, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "LAB-1003", Name: "Fasting Blood Sugar", Code: "FBS", Category: "Chemistry", Price: 2000, TurnaroundHours: 2, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "LAB-1004", Name: "Urinalysis", Code: "UA", Category: "Chemistry", Price: 2500, TurnaroundHours: 2, Active: true, CreatedAt: at(-90, 9, 0)},
	}
	vaccines := []model.Vaccine{
		{ID: "VAC-1001", Name: "Hepatitis B", Manufacturer: "GSK", DosesRequired: 3, Price: 4500, Stock: 30, ReorderLevel: 10, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "VAC-1002", Name: "Tetanus Toxoid", Manufacturer: "Serum Institute", DosesRequired: 2, Price: 2000, Stock: 8, ReorderLevel: 10, Active: true, CreatedAt: at(-90, 9, 0)},
		{ID: "VAC-1003", Name: "Yellow Fever", Manufacturer: "Sanofi", DosesRequired: 1, Price: 6000, Stock: 12, ReorderLevel: 5, Active: true, CreatedAt: at(-90, 9, 0)},
	}

	bills := []model.Bill{
		{
			ID: "BILL-1001", PatientID: "P-1001", PatientName: "Adaeze Okafor", Type: model.BillLab, Department: "Laboratory",
			Items: []model.LineItem{
				{Description: "Full Blood Count", CatalogID: "LAB-1001", Quantity: 1, UnitPrice: 3500},
				{Description: "Malaria Parasite", CatalogID: "LAB-1002", Quantity: 1, UnitPrice: 1500},
			},
			Status: model.BillPaid, PaymentMethod: model.PayHMO, PaidAt: ptr(at(-30, 11, 0)), PaidBy: "Cashier Ngozi",
			CreatedBy: "Lab Scientist Femi", CreatedAt: at(-30, 10, 30),
		},
		{
			ID: "BILL-1002", PatientID: "P-1002", PatientName: "Tunde Bakare", Type: model.BillConsultation, Department: "General Medicine",
			Items:  []model.LineItem{{Description: "General consultation", Quantity: 1, UnitPrice: 5000}},
			Status: model.BillPaid, PaymentMethod: model.PayCash, PaidAt: ptr(at(-1, 12, 0)), PaidBy: "Cashier Ngozi",
			CreatedBy: "Records Bisi", CreatedAt: at(-1, 11, 40),
		},
		{
			ID: "BILL-1003", PatientID: "P-1002", PatientName: "Tunde Bakare", Type: model.BillPharmacy, Department: "Pharmacy",
			Items: []model.LineItem{
				{Description: "Artemether/Lumefantrine 80/480", CatalogID: "MED-1003", Quantity: 1, UnitPrice: 1800},
				{Description: "Paracetamol 500mg", CatalogID: "MED-1001", Quantity: 10, UnitPrice: 50},
			},
			Discount: &model.Discount{Type: model.DiscountPercentage, Value: 10, Reason: "Staff referral"},
			Status:   model.BillPending, CreatedBy: "Pharmacist Kemi", CreatedAt: at(0, 9, 20),
		},
		{
			ID: "BILL-1004", PatientID: "P-1004", PatientName: "Emeka Nwosu", Type: model.BillDeposit, Department: "Accounts",
			Items:  []model.LineItem{{Description: "Account deposit", Quantity: 1, UnitPrice: 20000}},
			Status: model.BillPaid, PaymentMethod: model.PayTransfer, PaidAt: ptr(at(-5, 14, 30)), PaidBy: "Cashier Ngozi",
			CreatedBy: "Cashier Ngozi", CreatedAt: at(-5, 14, 20),
		},
		{
			ID: "BILL-1005", PatientID: "P-1003", PatientName: "Zainab Musa", Type: model.BillVaccination, Department: "Immunisation",
			Items:  []model.LineItem{{Description: "Yellow Fever dose 1", CatalogID: "VAC-1003", Quantity: 1, UnitPrice: 6000}},
			Status: model.BillCancelled, CancelReason: "Rescheduled", CreatedBy: "Nurse Halima", CreatedAt: at(-12, 9, 30),
		},
		{
			ID: "BILL-1006", PatientID: "P-1005", PatientName: "Folake Adeyemi", Type: model.BillLab, Department: "Laboratory",
			Items: []model.LineItem{
				{Description: "Fasting Blood Sugar", CatalogID: "LAB-1003", Quantity: 1, UnitPrice: 2000},
				{Description: "Urinalysis", CatalogID: "LAB-1004", Quantity: 1, UnitPrice: 2500},
			},
			Status: model.BillPending, CreatedBy: "Lab Scientist Femi", CreatedAt: at(-2, 11, 0),
		},
	}

	appointments := []model.Appointment{
		{ID: "APT-1001", PatientID: "P-1001", PatientName: "Adaeze Okafor", DoctorName: "Dr. Bello", Department: "General Medicine", ScheduledAt: at(-30, 10, 0), Reason: "Malaria follow-up", Status: model.AppointmentCompleted, CreatedAt: at(-32, 9, 0)},
		{ID: "APT-1002", PatientID: "P-1002", PatientName: "Tunde Bakare", DoctorName: "Dr. Bello", Department: "General Medicine", ScheduledAt: at(0, 9, 0), Reason: "Fever and headache", Status: model.AppointmentCheckedIn, CreatedAt: at(-1, 11, 45)},
		{ID: "APT-1003", PatientID: "P-1005", PatientName: "Folake Adeyemi", DoctorName: "Dr. Eze", Department: "Endocrinology", ScheduledAt: at(0, 11, 30), Reason: "Blood sugar review", Status: model.AppointmentScheduled, CreatedAt: at(-2, 11, 5)},
		{ID: "APT-1004", PatientID: "P-1004", PatientName: "Emeka Nwosu", DoctorName: "Dr. Eze", Department: "General Medicine", ScheduledAt: at(0, 14, 0), Reason: "Annual medical", Status: model.AppointmentScheduled, CreatedAt: at(-5, 14, 40)},
		{ID: "APT-1005", PatientID: "P-1006", PatientName: "Ibrahim Sani", DoctorName: "Dr. Bello", Department: "Orthopaedics", ScheduledAt: at(1, 10, 0), Reason: "Knee pain", Status: model.AppointmentScheduled, CreatedAt: at(0, 8, 10)},
	}

	vitals := []model.Vitals{
		{ID: "VIT-1001", PatientID: "P-1002", AppointmentID: "APT-1002", TemperatureC: 38.4, Systolic: 128, Diastolic: 84, Pulse: 96, RespiratoryRate: 18, SpO2: 97, WeightKg: 82, HeightCm: 176, BMI: model.BMI(82, 176), BMICategory: model.BMICategoryFor(model.BMI(82, 176)), RecordedBy: "Nurse Halima", RecordedAt: at(0, 9, 10)},
	}

	vaccinations := []model.VaccinationAppointment{
		{ID: "VAPT-1001", PatientID: "P-1003", PatientName: "Zainab Musa", VaccineID: "VAC-1003", VaccineName: "Yellow Fever", Dose: 1, ScheduledAt: at(0, 10, 0), Status: model.VaccinationScheduled, CreatedAt: at(-12, 9, 35)},
		{ID: "VAPT-1002", PatientID: "P-1001", PatientName: "Adaeze Okafor", VaccineID: "VAC-1001", VaccineName: "Hepatitis B", Dose: 2, ScheduledAt: at(3, 9, 30), Status: model.VaccinationScheduled, CreatedAt: at(-30, 11, 30)},
	}

	claims := []model.HMOClaim{
		{
			ID: "HMO-1001", PatientID: "P-1001", PatientName: "Adaeze Okafor", Provider: "Hygeia", EnrolleeID: "HYG-20418", BillID: "BILL-1001",
			Items: []model.ClaimItem{
				{Description: "Full Blood Count", Quantity: 1, UnitPrice: 3500, Approved: true},
				{Description: "Malaria Parasite", Quantity: 1, UnitPrice: 1500, Approved: true},
			},
			Status: model.ClaimApproved, ApprovalCode: "HYG-AUTH-5521",
			SubmittedAt: at(-30, 12, 0), ReviewedAt: ptr(at(-28, 10, 0)),
		},
		{
			ID: "HMO-1002", PatientID: "P-1005", PatientName: "Folake Adeyemi", Provider: "AXA Mansard", EnrolleeID: "AXA-99213", BillID: "BILL-1006",
			Items: []model.ClaimItem{
				{Description: "Fasting Blood Sugar", Quantity: 1, UnitPrice: 2000},
				{Description: "Urinalysis", Quantity: 1, UnitPrice: 2500},
			},
			Status: model.ClaimPending, SubmittedAt: at(-2, 12, 0),
		},
	}

	for i := range bills {
		bills[i].UpdatedAt = bills[i].CreatedAt
	}
	for i := range patients {
		patients[i].UpdatedAt = patients[i].RegisteredAt
	}
	for i := range appointments {
		appointments[i].UpdatedAt = appointments[i].CreatedAt
	}
	for i := range vaccinations {
		vaccinations[i].UpdatedAt = vaccinations[i].CreatedAt
	}
	for i := range claims {
		claims[i].UpdatedAt = claims[i].SubmittedAt
	}

	return dataset{
		patients:     patients,
		medicines:    medicines,
		consumables:  consumables,
		labTests:     labTests,
		vaccines:     vaccines,
		bills:        bills,
		appointments: appointments,
		vitals:       vitals,
		vaccinations: vaccinations,
		claims:       claims,
	}
}
