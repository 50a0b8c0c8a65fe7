package normalizer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"gateway-reconciliation-service/pkg/errors"
)

// readRows parses raw file bytes into rows of cells according to the file
// extension. Only .csv, .xlsx and .xls are supported.
func readRows(content []byte, filename string) ([][]string, *errors.ReconcilerError) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return readCSVRows(content, filename)
	case ".xlsx":
		return readXLSXRows(content, filename)
	case ".xls":
		return readXLSRows(content, filename)
	default:
		return nil, errors.UnsupportedFileType(filename, ext)
	}
}

func readCSVRows(content []byte, filename string) ([][]string, *errors.ReconcilerError) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.FileReadError(filename, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSXRows(content []byte, filename string) ([][]string, *errors.ReconcilerError) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.FileReadError(filename, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.FileReadError(filename, err)
	}
	return rows, nil
}

func readXLSRows(content []byte, filename string) ([][]string, *errors.ReconcilerError) {
	workbook, err := xls.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.FileReadError(filename, err)
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, errors.FileReadError(filename, err)
	}

	var rows [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
