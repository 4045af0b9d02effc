package reporting

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"

	"github.com/hms/hms/internal/domain/catalog"
	"github.com/hms/hms/internal/query"
	"github.com/hms/hms/internal/store"
)

// XLSXContentType is the media type of exported workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetDefinition describes one worksheet of the exported workbook.
type SheetDefinition struct {
	Name    string
	Headers []string
	Rows    func(v *store.View, now time.Time) [][]interface{}
}

// WorkbookSheets lists the sheets of the export in order.
var WorkbookSheets = []SheetDefinition{
	{
		Name:    "Summary",
		Headers: []string{"Metric", "Value"},
		Rows: func(v *store.View, now time.Time) [][]interface{} {
			s := summarize(v, now)
			return [][]interface{}{
				{"Generated at", s.GeneratedAt.Format(time.RFC3339)},
				{"Patients", s.Patients},
				{"HMO patients", s.HMOPatients},
				{"Pending bills", s.PendingBills},
				{"Pending amount", s.PendingAmount},
				{"Revenue", s.Revenue},
				{"Revenue today", s.RevenueToday},
				{"Appointments today", s.AppointmentsToday},
				{"Pending claims", s.PendingClaims},
				{"Low stock items", s.LowStock},
			}
		},
	},
	{
		Name:    "Revenue by month",
		Headers: []string{"Month", "Bills", "Revenue"},
		Rows:    revenueRows(GroupByMonth),
	},
	{
		Name:    "Revenue by department",
		Headers: []string{"Department", "Bills", "Revenue"},
		Rows:    revenueRows(GroupByDepartment),
	},
	{
		Name:    "Claims by provider",
		Headers: []string{"Provider", "Claims", "Pending", "Claimed", "Approved"},
		Rows: func(v *store.View, _ time.Time) [][]interface{} {
			var rows [][]interface{}
			for _, p := range claimsByProvider(v) {
				rows = append(rows, []interface{}{p.Provider, p.Count, p.Pending, p.ClaimedTotal, p.ApprovedTotal})
			}
			return rows
		},
	},
	{
		Name:    "Registrations",
		Headers: []string{"Month", "Patients"},
		Rows: func(v *store.View, _ time.Time) [][]interface{} {
			return countRows(registrations(v))
		},
	},
	{
		Name:    "Appointments",
		Headers: []string{"Department", "Appointments"},
		Rows: func(v *store.View, _ time.Time) [][]interface{} {
			return countRows(appointmentsByDepartment(v, ""))
		},
	},
	{
		Name:    "Low stock",
		Headers: []string{"Kind", "ID", "Name", "Stock", "Reorder level"},
		Rows: func(v *store.View, _ time.Time) [][]interface{} {
			var rows [][]interface{}
			for _, it := range catalog.LowStockFrom(v) {
				rows = append(rows, []interface{}{it.Kind, it.ID, it.Name, it.Stock, it.ReorderLevel})
			}
			return rows
		},
	},
}

func revenueRows(groupBy string) func(*store.View, time.Time) [][]interface{} {
	key, _ := revenueKey(groupBy)
	return func(v *store.View, _ time.Time) [][]interface{} {
		var rows [][]interface{}
		for _, b := range query.GroupBy(revenueBills(v, time.Time{}, time.Time{}), key, revenueAmount) {
			rows = append(rows, []interface{}{b.Label, b.Count, b.Total})
		}
		return rows
	}
}

func countRows(buckets []query.Bucket) [][]interface{} {
	var rows [][]interface{}
	for _, b := range buckets {
		rows = append(rows, []interface{}{b.Label, b.Count})
	}
	return rows
}

// Export renders every report into one xlsx workbook.
func (s *Service) Export(ctx context.Context, now time.Time) ([]byte, error) {
	var data []byte
	err := s.store.View(ctx, func(v *store.View) error {
		var err error
		data, err = buildWorkbook(v, now)
		return err
	})
	return data, err
}

func buildWorkbook(v *store.View, now time.Time) ([]byte, error) {
	file := excelize.NewFile()
	for i, def := range WorkbookSheets {
		idx := file.NewSheet(def.Name)
		if i == 0 {
			file.SetActiveSheet(idx)
		}
		for col, h := range def.Headers {
			file.SetCellValue(def.Name, cell(col, 1), h)
		}
		for r, row := range def.Rows(v, now) {
			for col, val := range row {
				file.SetCellValue(def.Name, cell(col, r+2), val)
			}
		}
	}
	file.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cell returns the A1 reference of a zero-based column and one-based row.
func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
