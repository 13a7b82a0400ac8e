package tools

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"strings"
)

var ole2Magic = []byte{0xd0, 0xcf, 0x11, 0xe0}

// inspectDownload verifies a saved artifact is structurally what its
// extension claims and folds the findings into the result map. Invalid
// files get a "warning" field; the loop downgrades those to a system
// message instead of a file announcement.
func inspectDownload(path, filename string, result map[string]any) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		inspection := inspectPDF(path)
		result["file_inspection"] = inspection
		if valid, _ := inspection["valid"].(bool); !valid {
			result["warning"] = fmt.Sprintf("File does not appear to be a valid PDF: %v", inspection["error"])
		}
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		inspection := inspectExcel(path, strings.HasSuffix(lower, ".xlsx"))
		result["file_inspection"] = inspection
		if valid, _ := inspection["valid"].(bool); !valid {
			result["warning"] = fmt.Sprintf("File does not appear to be a valid Excel file: %v", inspection["error"])
		}
	}
}

// inspectPDF checks the %PDF- header.
func inspectPDF(path string) map[string]any {
	header := make([]byte, 5)
	f, err := os.Open(path)
	if err != nil {
		return map[string]any{"valid": false, "error": err.Error()}
	}
	defer f.Close()
	if _, err := f.Read(header); err != nil {
		return map[string]any{"valid": false, "error": err.Error()}
	}
	if !bytes.Equal(header, []byte("%PDF-")) {
		return map[string]any{"valid": false, "error": "invalid header"}
	}
	return map[string]any{"valid": true}
}

// inspectExcel validates an XLSX as a zip archive, an XLS by its OLE2
// magic bytes.
func inspectExcel(path string, isXLSX bool) map[string]any {
	if isXLSX {
		r, err := zip.OpenReader(path)
		if err != nil {
			return map[string]any{"valid": false, "error": err.Error()}
		}
		defer r.Close()
		return map[string]any{"valid": true, "entries": len(r.File), "is_zip": true}
	}

	header := make([]byte, 8)
	f, err := os.Open(path)
	if err != nil {
		return map[string]any{"valid": false, "error": err.Error()}
	}
	defer f.Close()
	if _, err := f.Read(header); err != nil {
		return map[string]any{"valid": false, "error": err.Error()}
	}
	isOLE := bytes.Equal(header[:4], ole2Magic)
	if !isOLE {
		return map[string]any{"valid": false, "is_ole": false, "error": "invalid format"}
	}
	return map[string]any{"valid": true, "is_ole": true}
}
