package model

import (
	"fmt"
	"strings"
	"time"
)

// Catalog id prefixes; also used to tell which stock a bill line draws on.
const (
	PrefixMedicine   = "MED"
	PrefixConsumable = "CON"
	PrefixLabTest    = "LAB"
	PrefixVaccine    = "VAC"
)

type Medicine struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	GenericName  string     `json:"generic_name,omitempty"`
	Form         string     `json:"form,omitempty"`
	Strength     string     `json:"strength,omitempty"`
	Category     string     `json:"category,omitempty"`
	Price        float64    `json:"price"`
	Stock        int        `json:"stock"`
	ReorderLevel int        `json:"reorder_level"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (m Medicine) Clone() Medicine {
	out := m
	if m.ExpiryDate != nil {
		t := *m.ExpiryDate
		out.ExpiryDate = &t
	}
	return out
}

func (m Medicine) Validate() error {
	return validateCatalogItem(m.Name, m.Price, m.Stock, m.ReorderLevel)
}

type MedicinePatch struct {
	Name         *string    `json:"name,omitempty"`
	GenericName  *string    `json:"generic_name,omitempty"`
	Form         *string    `json:"form,omitempty"`
	Strength     *string    `json:"strength,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Price        *float64   `json:"price,omitempty"`
	ReorderLevel *int       `json:"reorder_level,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	Active       *bool      `json:"active,omitempty"`
}

func (p MedicinePatch) Apply(m *Medicine) {
	setString(&m.Name, p.Name)
	setString(&m.GenericName, p.GenericName)
	setString(&m.Form, p.Form)
	setString(&m.Strength, p.Strength)
	setString(&m.Category, p.Category)
	setFloat(&m.Price, p.Price)
	setInt(&m.ReorderLevel, p.ReorderLevel)
	if p.ExpiryDate != nil {
		t := *p.ExpiryDate
		m.ExpiryDate = &t
	}
	if p.Active != nil {
		m.Active = *p.Active
	}
}

type Consumable struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit,omitempty"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	ReorderLevel int       `json:"reorder_level"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c Consumable) Clone() Consumable { return c }

func (c Consumable) Validate() error {
	return validateCatalogItem(c.Name, c.Price, c.Stock, c.ReorderLevel)
}

type ConsumablePatch struct {
	Name         *string  `json:"name,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	ReorderLevel *int     `json:"reorder_level,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

func (p ConsumablePatch) Apply(c *Consumable) {
	setString(&c.Name, p.Name)
	setString(&c.Unit, p.Unit)
	setFloat(&c.Price, p.Price)
	setInt(&c.ReorderLevel, p.ReorderLevel)
	if p.Active != nil {
		c.Active = *p.Active
	}
}

type LabTest struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Code            string    `json:"code,omitempty"`
	Category        string    `json:"category,omitempty"`
	Price           float64   `json:"price"`
	TurnaroundHours int       `json:"turnaround_hours,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (l LabTest) Clone() LabTest { return l }

func (l LabTest) Validate() error {
	if l.TurnaroundHours < 0 {
		return Invalid("turnaround_hours cannot be negative")
	}
	return validateCatalogItem(l.Name, l.Price, 0, 0)
}

type LabTestPatch struct {
	Name            *string  `json:"name,omitempty"`
	Code            *string  `json:"code,omitempty"`
	Category        *string  `json:"category,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	TurnaroundHours *int     `json:"turnaround_hours,omitempty"`
	Active          *bool    `json:"active,omitempty"`
}

func (p LabTestPatch) Apply(l *LabTest) {
	setString(&l.Name, p.Name)
	setString(&l.Code, p.Code)
	setString(&l.Category, p.Category)
	setFloat(&l.Price, p.Price)
	setInt(&l.TurnaroundHours, p.TurnaroundHours)
	if p.Active != nil {
		l.Active = *p.Active
	}
}

type Vaccine struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Manufacturer  string    `json:"manufacturer,omitempty"`
	DosesRequired int       `json:"doses_required"`
	Price         float64   `json:"price"`
	Stock         int       `json:"stock"`
	ReorderLevel  int       `json:"reorder_level"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (v Vaccine) Clone() Vaccine { return v }

func (v Vaccine) Validate() error {
	if v.DosesRequired < 1 {
		return Invalid("doses_required must be at least 1")
	}
	return validateCatalogItem(v.Name, v.Price, v.Stock, v.ReorderLevel)
}

type VaccinePatch struct {
	Name          *string  `json:"name,omitempty"`
	Manufacturer  *string  `json:"manufacturer,omitempty"`
	DosesRequired *int     `json:"doses_required,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	ReorderLevel  *int     `json:"reorder_level,omitempty"`
	Active        *bool    `json:"active,omitempty"`
}

func (p VaccinePatch) Apply(v *Vaccine) {
	setString(&v.Name, p.Name)
	setString(&v.Manufacturer, p.Manufacturer)
	setInt(&v.DosesRequired, p.DosesRequired)
	setFloat(&v.Price, p.Price)
	setInt(&v.ReorderLevel, p.ReorderLevel)
	if p.Active != nil {
		v.Active = *p.Active
	}
}

func validateCatalogItem(name string, price float64, stock, reorder int) error {
	if strings.TrimSpace(name) == "" {
		return Invalid("name is required")
	}
	if price < 0 {
		return Invalid("price cannot be negative")
	}
	if stock < 0 {
		return Invalid("stock cannot be negative")
	}
	if reorder < 0 {
		return Invalid("reorder_level cannot be negative")
	}
	return nil
}

// StockAfter applies delta to stock and fails when the result would be negative.
func StockAfter(name string, stock, delta int) (int, error) {
	next := stock + delta
	if next < 0 {
		return stock, fmt.Errorf("%w: %s has %d in stock, %d requested", ErrInsufficientStock, name, stock, -delta)
	}
	return next, nil
}

// IDPrefix returns the part of an entity id before the first dash.
func IDPrefix(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return ""
}
