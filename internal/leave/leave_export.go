package leave

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// exportPageSize matches the listing page-size clamp; Export pages
// through the full result set in chunks of this size.
const exportPageSize = 100

var exportHeaders = []string{
	"ID", "Employee ID", "Type", "Start Date", "End Date",
	"Half Day", "Total Days", "Reason", "Status", "Decided By", "Decision Comments",
}

// BuildExportWorkbook renders an already-scoped listing into an xlsx
// workbook with one row per request.
func BuildExportWorkbook(leaves []LeaveResponse) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Leave Requests"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, l := range leaves {
		decidedBy := ""
		if l.DecidedBy != nil {
			decidedBy = *l.DecidedBy
		}
		comments := ""
		if l.DecisionComments != nil {
			comments = *l.DecisionComments
		}
		values := []any{
			l.ID, l.EmployeeID, l.LeaveType, l.StartDate, l.EndDate,
			l.IsHalfDay, l.TotalDays, l.Reason, l.Status, decidedBy, comments,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	return f, nil
}
