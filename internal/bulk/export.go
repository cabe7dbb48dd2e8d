package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/s/leadBoard/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Leads"

// ExportHeader is Header plus read-only columns; Parse ignores the extras so
// an export can be edited and uploaded again.
var ExportHeader = append([]string{"id"}, append(append([]string{}, Header...), "course", "assignee", "created_at")...)

var sampleRow = []string{
	"Jane Doe", "+1 555 0100", "1", "enquiry", "jane@example.com", "Analyst", "Acme", "Remote",
	"website", "", "", "", "", "pending", "1200", "0", "Asked about weekend batches",
}

// SampleCSV writes the upload template with one example row.
func SampleCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.Write(sampleRow); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV exports leads with a UTF-8 BOM so spreadsheets pick the encoding.
func WriteCSV(w io.Writer, leads []models.Lead) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, l := range leads {
		if err := cw.Write(exportRow(l)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX exports the same columns as WriteCSV into a single sheet.
func WriteXLSX(w io.Writer, leads []models.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	for i, h := range ExportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for r, l := range leads {
		row := exportRow(l)
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	return f.Write(w)
}

func exportRow(l models.Lead) []string {
	assignee := ""
	if l.Assignee != nil {
		assignee = l.Assignee.Name
	}
	return []string{
		strconv.FormatUint(uint64(l.ID), 10),
		l.Name,
		l.MobileNumber,
		formatID(l.CourseID),
		string(l.Status),
		l.Email,
		l.Role,
		l.Company,
		l.Location,
		l.Source,
		formatOptionalID(l.BatchID),
		formatOptionalID(l.TrainerID),
		formatID(l.UnitID),
		formatID(l.CardTypeID),
		string(l.FeeStatus),
		strconv.FormatFloat(l.TotalFee, 'f', -1, 64),
		strconv.FormatFloat(l.PaidFee, 'f', -1, 64),
		l.Comments,
		l.Course.Title,
		assignee,
		l.CreatedAt.Format("2006-01-02 15:04"),
	}
}

func formatID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

func formatOptionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return formatID(*id)
}
