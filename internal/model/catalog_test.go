package model

import (
	"errors"
	"testing"
)

func TestStockAfter(t *testing.T) {
	got, err := StockAfter("Paracetamol", 10, -4)
	if err != nil || got != 6 {
		t.Errorf("StockAfter = %d, %v; want 6, nil", got, err)
	}
	got, err = StockAfter("Paracetamol", 3, -4)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if got != 3 {
		t.Errorf("stock should be unchanged on failure, got %d", got)
	}
	if got, _ := StockAfter("Gloves", 0, 50); got != 50 {
		t.Errorf("restock = %d, want 50", got)
	}
}

func TestIDPrefix(t *testing.T) {
	tests := map[string]string{
		"MED-1001":  PrefixMedicine,
		"CON-1002":  PrefixConsumable,
		"VAPT-1001": "VAPT",
		"nodash":    "",
		"-1":        "",
	}
	for id, want := range tests {
		if got := IDPrefix(id); got != want {
			t.Errorf("IDPrefix(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestCatalogValidate(t *testing.T) {
	if err := (Medicine{Name: "Paracetamol", Price: 150}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Medicine{Name: "", Price: 150}).Validate(); err == nil {
		t.Error("expected error for missing name")
	}
	if err := (Consumable{Name: "Gloves", Price: -1}).Validate(); err == nil {
		t.Error("expected error for negative price")
	}
	if err := (Vaccine{Name: "BCG", DosesRequired: 0}).Validate(); err == nil {
		t.Error("expected error for zero doses")
	}
	if err := (LabTest{Name: "FBC", TurnaroundHours: -2}).Validate(); err == nil {
		t.Error("expected error for negative turnaround")
	}
}

func TestMedicinePatchApply(t *testing.T) {
	m := Medicine{Name: "Paracetamol", Price: 150, Stock: 40, Active: true}
	price := 200.0
	inactive := false
	MedicinePatch{Price: &price, Active: &inactive}.Apply(&m)
	if m.Price != 200 || m.Active || m.Stock != 40 || m.Name != "Paracetamol" {
		t.Errorf("unexpected patch result: %+v", m)
	}
}
