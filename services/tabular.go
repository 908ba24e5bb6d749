package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyUpload     = errors.New("the uploaded file contains no data rows")
	ErrUnreadableSheet = errors.New("error reading file, please ensure it is a valid Excel file")
)

// MissingColumnsError is returned when an upload lacks required columns
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("Missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Sheet is the first worksheet of an upload with rows keyed by header
type Sheet struct {
	Headers []string
	Rows    []Row
}

// ReadSheet parses the first worksheet of an xlsx workbook. The first row is
// the header; completely blank rows are dropped.
func ReadSheet(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyUpload
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSheet, err)
	}

	sheet := &Sheet{}
	for i, cells := range rows {
		if i == 0 {
			for _, h := range cells {
				sheet.Headers = append(sheet.Headers, strings.TrimSpace(h))
			}
			continue
		}

		row := make(Row, len(sheet.Headers))
		blank := true
		for j, header := range sheet.Headers {
			if header == "" || j >= len(cells) {
				continue
			}
			row[header] = cells[j]
			if strings.TrimSpace(cells[j]) != "" {
				blank = false
			}
		}
		if !blank {
			sheet.Rows = append(sheet.Rows, row)
		}
	}

	return sheet, nil
}

// CheckUpload rejects a sheet that is empty or lacks required columns.
func CheckUpload(sheet *Sheet) error {
	if sheet == nil || len(sheet.Rows) == 0 {
		return ErrEmptyUpload
	}

	present := make(map[string]bool, len(sheet.Headers))
	for _, h := range sheet.Headers {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// WriteSheet builds a single-sheet workbook from headers and rows of cell values.
func WriteSheet(sheetName string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	for r, values := range rows {
		for c, value := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	if len(headers) > 0 {
		headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		lastCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheetName, "A1", lastCell, headerStyle)
		lastCol, _ := excelize.ColumnNumberToName(len(headers))
		f.SetColWidth(sheetName, "A", lastCol, 24)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

// GenerateUploadTemplate returns a workbook with the upload columns and one
// example row.
func GenerateUploadTemplate() (*bytes.Buffer, error) {
	headers := append(append([]string{}, RequiredColumns...), OptionalColumns...)
	example := []interface{}{
		"ACM",
		"Access Management",
		"Role based access",
		"Grant access to resources based on assigned roles",
		"Administrator",
		"to assign roles to users",
		"users only see what their role allows",
		"Cross-cutting",
	}
	return WriteSheet("Features", headers, [][]interface{}{example})
}
