package store

import (
	"encoding/json"
	"fmt"

	"github.com/hms/hms/internal/model"
)

// Snapshot is a point-in-time copy of every collection, each as an ordered
// array, plus the id sequences.
type Snapshot struct {
	Patients     []model.Patient                `json:"patients"`
	Bills        []model.Bill                   `json:"bills"`
	Appointments []model.Appointment            `json:"appointments"`
	Vaccinations []model.VaccinationAppointment `json:"vaccinations"`
	Vitals       []model.Vitals                 `json:"vitals"`
	Claims       []model.HMOClaim               `json:"claims"`
	Medicines    []model.Medicine               `json:"medicines"`
	Consumables  []model.Consumable             `json:"consumables"`
	LabTests     []model.LabTest                `json:"lab_tests"`
	Vaccines     []model.Vaccine                `json:"vaccines"`
	Sequences    map[string]int                 `json:"sequences"`
}

func snapshotFromState(st *state) Snapshot {
	seq := make(map[string]int, len(st.sequences))
	for k, v := range st.sequences {
		seq[k] = v
	}
	return Snapshot{
		Patients:     newReader(st, patientKind).List(),
		Bills:        newReader(st, billKind).List(),
		Appointments: newReader(st, appointmentKind).List(),
		Vaccinations: newReader(st, vaccinationKind).List(),
		Vitals:       newReader(st, vitalsKind).List(),
		Claims:       newReader(st, claimKind).List(),
		Medicines:    newReader(st, medicineKind).List(),
		Consumables:  newReader(st, consumableKind).List(),
		LabTests:     newReader(st, labTestKind).List(),
		Vaccines:     newReader(st, vaccineKind).List(),
		Sequences:    seq,
	}
}

func stateFromSnapshot(snap Snapshot) (*state, error) {
	st := newState()
	tx := &Tx{state: st}
	if err := insertAll(newTable(tx, patientKind), snap.Patients); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, billKind), snap.Bills); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, appointmentKind), snap.Appointments); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, vaccinationKind), snap.Vaccinations); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, vitalsKind), snap.Vitals); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, claimKind), snap.Claims); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, medicineKind), snap.Medicines); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, consumableKind), snap.Consumables); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, labTestKind), snap.LabTests); err != nil {
		return nil, err
	}
	if err := insertAll(newTable(tx, vaccineKind), snap.Vaccines); err != nil {
		return nil, err
	}
	for prefix, n := range snap.Sequences {
		if n > st.sequences[prefix] {
			st.sequences[prefix] = n
		}
	}
	return st, nil
}

func insertAll[T any](t Table[T], items []T) error {
	for _, it := range items {
		if *t.k.id(&it) == "" {
			return fmt.Errorf("import %s: record without id", t.k.entity)
		}
		if _, err := t.Insert(it); err != nil {
			return fmt.Errorf("import %s: %w", t.k.entity, err)
		}
	}
	return nil
}

// ExportState returns a snapshot of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the whole state with snap. The store is unchanged if
// the snapshot holds duplicate or missing ids.
func (s *Store) ImportState(snap Snapshot) error {
	st, err := stateFromSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Bucket names used by the persisters, one row per collection.
var Buckets = []string{
	"patients", "bills", "appointments", "vaccinations", "vitals",
	"claims", "medicines", "consumables", "lab_tests", "vaccines", "sequences",
}

// EncodeBuckets serialises each collection of the snapshot to JSON.
func (snap Snapshot) EncodeBuckets() (map[string][]byte, error) {
	parts := map[string]any{
		"patients":     nonNil(snap.Patients),
		"bills":        nonNil(snap.Bills),
		"appointments": nonNil(snap.Appointments),
		"vaccinations": nonNil(snap.Vaccinations),
		"vitals":       nonNil(snap.Vitals),
		"claims":       nonNil(snap.Claims),
		"medicines":    nonNil(snap.Medicines),
		"consumables":  nonNil(snap.Consumables),
		"lab_tests":    nonNil(snap.LabTests),
		"vaccines":     nonNil(snap.Vaccines),
		"sequences":    snap.Sequences,
	}
	out := make(map[string][]byte, len(parts))
	for _, bucket := range Buckets {
		data, err := json.Marshal(parts[bucket])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from per-collection JSON payloads.
// Unknown buckets are ignored and missing ones stay empty.
func DecodeBuckets(raw map[string][]byte) (Snapshot, error) {
	var snap Snapshot
	targets := map[string]any{
		"patients":     &snap.Patients,
		"bills":        &snap.Bills,
		"appointments": &snap.Appointments,
		"vaccinations": &snap.Vaccinations,
		"vitals":       &snap.Vitals,
		"claims":       &snap.Claims,
		"medicines":    &snap.Medicines,
		"consumables":  &snap.Consumables,
		"lab_tests":    &snap.LabTests,
		"vaccines":     &snap.Vaccines,
		"sequences":    &snap.Sequences,
	}
	for bucket, payload := range raw {
		target, ok := targets[bucket]
		if !ok {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return snap, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
