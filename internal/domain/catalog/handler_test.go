package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/model"
)

func TestKindHandler_Create(t *testing.T) {
	svc := newTestService(t)
	kh := &kindHandler[model.Medicine, model.MedicinePatch]{registry: svc.Medicines}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Metformin","price":200,"stock":40,"reorder_level":10}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := kh.create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":"MED-1001"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestKindHandler_AdjustStock_Insufficient(t *testing.T) {
	svc := newTestService(t)
	svc.Consumables.Create(context.Background(), model.Consumable{Name: "Cotton wool", Price: 300, Stock: 1})
	kh := &kindHandler[model.Consumable, model.ConsumablePatch]{registry: svc.Consumables}
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"delta":-2}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("CON-1001")

	err := kh.adjustStock(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestKindHandler_Delete(t *testing.T) {
	svc := newTestService(t)
	svc.LabTests.Create(context.Background(), model.LabTest{Name: "Genotype", Price: 2500})
	kh := &kindHandler[model.LabTest, model.LabTestPatch]{registry: svc.LabTests}
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("LAB-1001")

	if err := kh.delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_LowStock(t *testing.T) {
	svc := newTestService(t)
	svc.Medicines.Create(context.Background(), model.Medicine{Name: "Insulin", Price: 5000, Stock: 1, ReorderLevel: 5})
	h := NewHandler(svc)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := h.LowStock(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"name":"Insulin"`) || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
