package export

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/product-scraper/internal/model"
)

// SheetLayout maps record columns to spreadsheet column letters. Columns
// without a letter are not written.
var SheetLayout = map[string]string{
	"source":           "A",
	"title":            "B",
	"brand":            "C",
	"url":              "D",
	"asin":             "E",
	"category":         "F",
	"ingredients":      "H",
	"price":            "I",
	"price_per_count":  "J",
	"price_per_weight": "K",
	"first_available":  "L",
	"num_ratings":      "M",
	"rating":           "N",
	"rank":             "O",
	"form_factor":      "Q",
	"uses":             "U",
}

// WriteSheet writes records into the named sheet of the workbook at path,
// one record per row starting at startRow (1-based). An existing workbook is
// updated in place; cells outside the layout are left untouched.
func WriteSheet(path, sheetName string, startRow int, records []model.ProductRecord) error {
	if startRow < 1 {
		return eris.Errorf("export: start row %d must be >= 1", startRow)
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	f, err := openWorkbook(path)
	if err != nil {
		return err
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		sheet, err = f.AddSheet(sheetName)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %q", sheetName)
		}
	}

	for i, r := range records {
		row := startRow - 1 + i
		for column, letters := range SheetLayout {
			setCell(sheet.Cell(row, xlsx.ColLettersToIndex(letters)), r, column)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func openWorkbook(path string) (*xlsx.File, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return xlsx.NewFile(), nil
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open workbook %s", path)
	}
	return f, nil
}

// setCell writes numeric columns as numbers so spreadsheet formulas can use
// them; everything else, including the sentinel, is a string.
func setCell(cell *xlsx.Cell, r model.ProductRecord, column string) {
	switch column {
	case "rating":
		if v, ok := r.Rating.Get(); ok {
			cell.SetFloat(v)
			return
		}
	case "num_ratings":
		if v, ok := r.NumRatings.Get(); ok {
			cell.SetInt(v)
			return
		}
	case "rank":
		if v, ok := r.Rank.Get(); ok {
			cell.SetInt(v)
			return
		}
	}
	v, _ := r.Value(column)
	cell.SetString(v)
}
