// Package export renders ledger data as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"pharmaledger/internal/domain/registers/stock"
)

// ContentTypeXLSX is the MIME type of the workbooks written here.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const movementsSheet = "Movements"

var movementHeadings = []string{
	"Created At", "Kind", "Item", "Batch", "Quantity", "Delta",
	"Reference Type", "Reference", "Reference Line", "Actor", "Reason",
}

// WriteMovements writes movements as a single-sheet workbook to w.
func WriteMovements(w io.Writer, movements []stock.Movement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", movementsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, toAny(movementHeadings)); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(movementHeadings), 1)
	if err := f.SetCellStyle(movementsSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, m := range movements {
		if err := setRow(f, i+2, movementRow(m)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(movementsSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func movementRow(m stock.Movement) []any {
	lineID := ""
	if m.ReferenceLineID != nil {
		lineID = m.ReferenceLineID.String()
	}
	return []any{
		m.CreatedAt.UTC().Format(time.RFC3339),
		string(m.Kind),
		m.ItemID.String(),
		m.BatchID.String(),
		int64(m.Quantity),
		int64(m.Delta),
		m.ReferenceType,
		m.ReferenceID.String(),
		lineID,
		m.ActorID,
		m.Reason,
	}
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(movementsSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
