package store

import "github.com/hms/hms/internal/model"

// Entity names a collection in the store.
type Entity string

const (
	EntityPatient     Entity = "patient"
	EntityBill        Entity = "bill"
	EntityAppointment Entity = "appointment"
	EntityVaccination Entity = "vaccination_appointment"
	EntityVitals      Entity = "vitals"
	EntityClaim       Entity = "hmo_claim"
	EntityMedicine    Entity = "medicine"
	EntityConsumable  Entity = "consumable"
	EntityLabTest     Entity = "lab_test"
	EntityVaccine     Entity = "vaccine"
)

// Entities lists every collection.
var Entities = []Entity{
	EntityPatient, EntityBill, EntityAppointment, EntityVaccination, EntityVitals,
	EntityClaim, EntityMedicine, EntityConsumable, EntityLabTest, EntityVaccine,
}

// ParseEntity returns the Entity named s.
func ParseEntity(s string) (Entity, bool) {
	for _, e := range Entities {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

// Id prefixes per entity.
const (
	PrefixPatient     = "P"
	PrefixBill        = "BILL"
	PrefixAppointment = "APT"
	PrefixVaccination = "VAPT"
	PrefixVitals      = "VIT"
	PrefixClaim       = "HMO"
)

type state struct {
	patients     *collection[model.Patient]
	bills        *collection[model.Bill]
	appointments *collection[model.Appointment]
	vaccinations *collection[model.VaccinationAppointment]
	vitals       *collection[model.Vitals]
	claims       *collection[model.HMOClaim]
	medicines    *collection[model.Medicine]
	consumables  *collection[model.Consumable]
	labTests     *collection[model.LabTest]
	vaccines     *collection[model.Vaccine]
	sequences    map[string]int
}

func newState() *state {
	return &state{
		patients:     newCollection[model.Patient](),
		bills:        newCollection[model.Bill](),
		appointments: newCollection[model.Appointment](),
		vaccinations: newCollection[model.VaccinationAppointment](),
		vitals:       newCollection[model.Vitals](),
		claims:       newCollection[model.HMOClaim](),
		medicines:    newCollection[model.Medicine](),
		consumables:  newCollection[model.Consumable](),
		labTests:     newCollection[model.LabTest](),
		vaccines:     newCollection[model.Vaccine](),
		sequences:    make(map[string]int),
	}
}

func (s *state) clone() *state {
	seq := make(map[string]int, len(s.sequences))
	for k, v := range s.sequences {
		seq[k] = v
	}
	return &state{
		patients:     s.patients.clone(patientKind.clone),
		bills:        s.bills.clone(billKind.clone),
		appointments: s.appointments.clone(appointmentKind.clone),
		vaccinations: s.vaccinations.clone(vaccinationKind.clone),
		vitals:       s.vitals.clone(vitalsKind.clone),
		claims:       s.claims.clone(claimKind.clone),
		medicines:    s.medicines.clone(medicineKind.clone),
		consumables:  s.consumables.clone(consumableKind.clone),
		labTests:     s.labTests.clone(labTestKind.clone),
		vaccines:     s.vaccines.clone(vaccineKind.clone),
		sequences:    seq,
	}
}

var (
	patientKind = &kind[model.Patient]{
		entity: EntityPatient, prefix: PrefixPatient,
		id:    func(v *model.Patient) *string { return &v.ID },
		clone: model.Patient.Clone,
		pick:  func(s *state) *collection[model.Patient] { return s.patients },
	}
	billKind = &kind[model.Bill]{
		entity: EntityBill, prefix: PrefixBill,
		id:    func(v *model.Bill) *string { return &v.ID },
		clone: model.Bill.Clone,
		pick:  func(s *state) *collection[model.Bill] { return s.bills },
	}
	appointmentKind = &kind[model.Appointment]{
		entity: EntityAppointment, prefix: PrefixAppointment,
		id:    func(v *model.Appointment) *string { return &v.ID },
		clone: model.Appointment.Clone,
		pick:  func(s *state) *collection[model.Appointment] { return s.appointments },
	}
	vaccinationKind = &kind[model.VaccinationAppointment]{
		entity: EntityVaccination, prefix: PrefixVaccination,
		id:    func(v *model.VaccinationAppointment) *string { return &v.ID },
		clone: model.VaccinationAppointment.Clone,
		pick:  func(s *state) *collection[model.VaccinationAppointment] { return s.vaccinations },
	}
	vitalsKind = &kind[model.Vitals]{
		entity: EntityVitals, prefix: PrefixVitals,
		id:    func(v *model.Vitals) *string { return &v.ID },
		clone: model.Vitals.Clone,
		pick:  func(s *state) *collection[model.Vitals] { return s.vitals },
	}
	claimKind = &kind[model.HMOClaim]{
		entity: EntityClaim, prefix: PrefixClaim,
		id:    func(v *model.HMOClaim) *string { return &v.ID },
		clone: model.HMOClaim.Clone,
		pick:  func(s *state) *collection[model.HMOClaim] { return s.claims },
	}
	medicineKind = &kind[model.Medicine]{
		entity: EntityMedicine, prefix: model.PrefixMedicine,
		id:    func(v *model.Medicine) *string { return &v.ID },
		clone: model.Medicine.Clone,
		pick:  func(s *state) *collection[model.Medicine] { return s.medicines },
	}
	consumableKind = &kind[model.Consumable]{
		entity: EntityConsumable, prefix: model.PrefixConsumable,
		id:    func(v *model.Consumable) *string { return &v.ID },
		clone: model.Consumable.Clone,
		pick:  func(s *state) *collection[model.Consumable] { return s.consumables },
	}
	labTestKind = &kind[model.LabTest]{
		entity: EntityLabTest, prefix: model.PrefixLabTest,
		id:    func(v *model.LabTest) *string { return &v.ID },
		clone: model.LabTest.Clone,
		pick:  func(s *state) *collection[model.LabTest] { return s.labTests },
	}
	vaccineKind = &kind[model.Vaccine]{
		entity: EntityVaccine, prefix: model.PrefixVaccine,
		id:    func(v *model.Vaccine) *string { return &v.ID },
		clone: model.Vaccine.Clone,
		pick:  func(s *state) *collection[model.Vaccine] { return s.vaccines },
	}
)

// View is a read-only handle over a consistent state.
type View struct {
	state *state
}

func (v *View) Patients() Reader[model.Patient]         { return newReader(v.state, patientKind) }
func (v *View) Bills() Reader[model.Bill]               { return newReader(v.state, billKind) }
func (v *View) Appointments() Reader[model.Appointment] { return newReader(v.state, appointmentKind) }
func (v *View) Vaccinations() Reader[model.VaccinationAppointment] {
	return newReader(v.state, vaccinationKind)
}
func (v *View) Vitals() Reader[model.Vitals]           { return newReader(v.state, vitalsKind) }
func (v *View) Claims() Reader[model.HMOClaim]         { return newReader(v.state, claimKind) }
func (v *View) Medicines() Reader[model.Medicine]      { return newReader(v.state, medicineKind) }
func (v *View) Consumables() Reader[model.Consumable]  { return newReader(v.state, consumableKind) }
func (v *View) LabTests() Reader[model.LabTest]        { return newReader(v.state, labTestKind) }
func (v *View) Vaccines() Reader[model.Vaccine]        { return newReader(v.state, vaccineKind) }

func (tx *Tx) Patients() Table[model.Patient]         { return newTable(tx, patientKind) }
func (tx *Tx) Bills() Table[model.Bill]               { return newTable(tx, billKind) }
func (tx *Tx) Appointments() Table[model.Appointment] { return newTable(tx, appointmentKind) }
func (tx *Tx) Vaccinations() Table[model.VaccinationAppointment] {
	return newTable(tx, vaccinationKind)
}
func (tx *Tx) Vitals() Table[model.Vitals]          { return newTable(tx, vitalsKind) }
func (tx *Tx) Claims() Table[model.HMOClaim]        { return newTable(tx, claimKind) }
func (tx *Tx) Medicines() Table[model.Medicine]     { return newTable(tx, medicineKind) }
func (tx *Tx) Consumables() Table[model.Consumable] { return newTable(tx, consumableKind) }
func (tx *Tx) LabTests() Table[model.LabTest]       { return newTable(tx, labTestKind) }
func (tx *Tx) Vaccines() Table[model.Vaccine]       { return newTable(tx, vaccineKind) }
