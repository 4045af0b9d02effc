package catalog

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/model"
	"github.com/hms/hms/internal/store"
)

// Catalog kinds, as they appear in log lines and low-stock reports.
const (
	KindMedicine   = "medicine"
	KindConsumable = "consumable"
	KindLabTest    = "lab_test"
	KindVaccine    = "vaccine"
)

// LowStockItem is a stocked item at or below its reorder level.
type LowStockItem struct {
	Kind         string `json:"kind"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Stock        int    `json:"stock"`
	ReorderLevel int    `json:"reorder_level"`
}

func medicineFields(m *model.Medicine) itemFields {
	return itemFields{id: &m.ID, name: m.Name, active: &m.Active, stock: &m.Stock, reorder: m.ReorderLevel,
		created: &m.CreatedAt, updated: &m.UpdatedAt, search: []string{m.GenericName, m.Category}}
}

func consumableFields(c *model.Consumable) itemFields {
	return itemFields{id: &c.ID, name: c.Name, active: &c.Active, stock: &c.Stock, reorder: c.ReorderLevel,
		created: &c.CreatedAt, updated: &c.UpdatedAt, search: []string{c.Unit}}
}

func labTestFields(l *model.LabTest) itemFields {
	return itemFields{id: &l.ID, name: l.Name, active: &l.Active,
		created: &l.CreatedAt, updated: &l.UpdatedAt, search: []string{l.Code, l.Category}}
}

func vaccineFields(v *model.Vaccine) itemFields {
	return itemFields{id: &v.ID, name: v.Name, active: &v.Active, stock: &v.Stock, reorder: v.ReorderLevel,
		created: &v.CreatedAt, updated: &v.UpdatedAt, search: []string{v.Manufacturer}}
}

type Service struct {
	store       *store.Store
	Medicines   *Registry[model.Medicine, model.MedicinePatch]
	Consumables *Registry[model.Consumable, model.ConsumablePatch]
	LabTests    *Registry[model.LabTest, model.LabTestPatch]
	Vaccines    *Registry[model.Vaccine, model.VaccinePatch]
}

func NewService(st *store.Store, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "catalog").Logger()
	return &Service{
		store: st,
		Medicines: &Registry[model.Medicine, model.MedicinePatch]{
			kind: KindMedicine, store: st, logger: logger,
			table: (*store.Tx).Medicines, reader: (*store.View).Medicines, fields: medicineFields,
		},
		Consumables: &Registry[model.Consumable, model.ConsumablePatch]{
			kind: KindConsumable, store: st, logger: logger,
			table: (*store.Tx).Consumables, reader: (*store.View).Consumables, fields: consumableFields,
		},
		LabTests: &Registry[model.LabTest, model.LabTestPatch]{
			kind: KindLabTest, store: st, logger: logger,
			table: (*store.Tx).LabTests, reader: (*store.View).LabTests, fields: labTestFields,
		},
		Vaccines: &Registry[model.Vaccine, model.VaccinePatch]{
			kind: KindVaccine, store: st, logger: logger,
			table: (*store.Tx).Vaccines, reader: (*store.View).Vaccines, fields: vaccineFields,
		},
	}
}

// LowStock lists active stocked items at or below their reorder level,
// medicines first.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	var out []LowStockItem
	err := s.store.View(ctx, func(v *store.View) error {
		out = LowStockFrom(v)
		return nil
	})
	return out, err
}

// LowStockFrom computes the low-stock list against an open view.
func LowStockFrom(v *store.View) []LowStockItem {
	var out []LowStockItem
	out = append(out, lowStock(KindMedicine, v.Medicines().List(), medicineFields)...)
	out = append(out, lowStock(KindConsumable, v.Consumables().List(), consumableFields)...)
	out = append(out, lowStock(KindVaccine, v.Vaccines().List(), vaccineFields)...)
	return out
}
