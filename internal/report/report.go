// Package report exports the revenue report as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"salondesk/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetDaily     = "Daily"
	SheetMonthly   = "Monthly"
	SheetServices  = "Services"
	SheetCustomers = "Customers"
)

// ContentType is the MIME type of a written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []any
	rows   [][]any
	widths []float64
}

func sheets(r model.Reports) []sheet {
	daily := sheet{name: SheetDaily, header: []any{"Date", "Revenue"}, widths: []float64{14, 14}}
	for _, d := range r.DailyRevenue {
		daily.rows = append(daily.rows, []any{d.Date, d.Revenue})
	}

	monthly := sheet{name: SheetMonthly, header: []any{"Month", "Revenue"}, widths: []float64{14, 14}}
	for _, m := range r.MonthlyRevenue {
		monthly.rows = append(monthly.rows, []any{m.Month, m.Revenue})
	}

	services := sheet{name: SheetServices, header: []any{"Service", "Category", "Bookings", "Revenue"}, widths: []float64{28, 18, 12, 14}}
	for _, s := range r.PopularServices {
		services.rows = append(services.rows, []any{s.Name, s.Category, s.Bookings, s.Revenue})
	}

	customers := sheet{name: SheetCustomers, header: []any{"Customer", "Phone", "Visits", "Spent"}, widths: []float64{28, 18, 10, 14}}
	for _, c := range r.FrequentCustomers {
		customers.rows = append(customers.rows, []any{c.Name, c.Phone, c.Visits, c.Spent})
	}

	return []sheet{daily, monthly, services, customers}
}

// Workbook builds the report workbook. The caller must Close it.
func Workbook(r model.Reports) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report: header style: %w", err)
	}

	for i, sh := range sheets(r) {
		if err := writeSheet(f, i, sh, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("report: sheet %s: %w", sh.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, index int, sh sheet, headerStyle int) error {
	if index == 0 {
		// NewFile starts with a default sheet; reuse it for the first one.
		if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(sh.name); err != nil {
		return err
	}

	if err := f.SetSheetRow(sh.name, "A1", &sh.header); err != nil {
		return err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(sh.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sh.name, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
			return err
		}
	}

	for i, w := range sh.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sh.name, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// Write streams the report workbook to w.
func Write(w io.Writer, r model.Reports) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}
