package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, values := range rows {
		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadSheet(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Component Code", "Feature Group Name", "Feature Name", "Description", " User Roles "},
		{"ACM", "Access", "Login", "Sign in", "Citizen"},
		{"", "", "", "", ""},
		{"FEE", "Payments", "Pay", "Pay a fee"},
	})

	sheet, err := ReadSheet(buf)
	require.NoError(t, err)
	assert.Equal(t, RequiredColumns, sheet.Headers)
	require.Len(t, sheet.Rows, 2, "blank rows are dropped")

	assert.Equal(t, "Login", sheet.Rows[0][ColumnFeatureName])
	assert.Equal(t, "Citizen", sheet.Rows[0][ColumnUserRoles])
	assert.Equal(t, "FEE", sheet.Rows[1][ColumnComponentCode])
	assert.Equal(t, "", sheet.Rows[1][ColumnUserRoles])

	assert.NoError(t, CheckUpload(sheet))
}

func TestReadSheetRejectsNonWorkbook(t *testing.T) {
	_, err := ReadSheet(strings.NewReader("Component Code,Feature Name\nACM,Login\n"))
	assert.ErrorIs(t, err, ErrUnreadableSheet)
}

func TestCheckUpload(t *testing.T) {
	assert.ErrorIs(t, CheckUpload(nil), ErrEmptyUpload)

	headersOnly, err := ReadSheet(buildWorkbook(t, [][]interface{}{
		{"Component Code", "Feature Group Name", "Feature Name", "Description", "User Roles"},
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, CheckUpload(headersOnly), ErrEmptyUpload)

	err = CheckUpload(&Sheet{Headers: []string{"Component Code", "Feature Name", "Description"}, Rows: []Row{{}}})
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Missing required columns: Feature Group Name, User Roles", missing.Error())
}

func TestUploadTemplateReadsBack(t *testing.T) {
	buf, err := GenerateUploadTemplate()
	require.NoError(t, err)

	sheet, err := ReadSheet(buf)
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, RequiredColumns...), OptionalColumns...), sheet.Headers)
	require.Len(t, sheet.Rows, 1)
	require.NoError(t, CheckUpload(sheet))

	draft, rowErr := ValidateRow(sheet.Rows[0], map[string]string{"ACM": "Access Management"})
	require.Nil(t, rowErr)
	assert.Equal(t, "ACM", draft.ComponentCode)
}
