package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrUploadTooLarge  = errors.New("file is too large")
	ErrNotAWorkbook    = errors.New("only .xlsx workbooks are accepted")
	workbookSignature  = []byte("PK\x03\x04")
	workbookExtensions = []string{".xlsx"}
)

// ValidateWorkbookUpload checks size, extension and the zip signature every
// xlsx workbook starts with before the sheet is parsed
func ValidateWorkbookUpload(fileHeader *multipart.FileHeader, maxBytes int64) error {
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	allowed := false
	for _, e := range workbookExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrNotAWorkbook
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	header := make([]byte, len(workbookSignature))
	if _, err := io.ReadFull(file, header); err != nil {
		return ErrNotAWorkbook
	}
	if !bytes.Equal(header, workbookSignature) {
		return ErrNotAWorkbook
	}
	return nil
}
