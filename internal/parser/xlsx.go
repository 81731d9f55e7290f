package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Parse reads the first sheet of the workbook. Cells are read raw so numbers
// keep their stored precision instead of the display format. Date and boolean
// cells are rewritten from their raw serial or 0/1 form, and a column whose
// filled cells are all dates is typed as datetime.
func (xlsxParser) Parse(r io.Reader, name string) (*dataset.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("no columns to parse from file")
	}

	ct := &cellTyper{f: f, sheet: sheet, dateStyles: map[int]bool{}}
	ncol := len(rows[0])
	dates := make([]int, ncol)
	filled := make([]int, ncol)
	for i := 1; i < len(rows); i++ {
		for j, v := range rows[i] {
			if j >= ncol || v == "" {
				continue
			}
			filled[j]++
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			switch ct.kind(cell) {
			case excelize.CellTypeDate:
				if txt, ok := dateText(v); ok {
					rows[i][j] = txt
					dates[j]++
				}
			case excelize.CellTypeBool:
				rows[i][j] = boolText(v)
			}
		}
	}

	t, err := dataset.FromRecords(name, rows[0], rows[1:])
	if err != nil {
		return nil, err
	}
	for j, n := range dates {
		if n > 0 && n == filled[j] {
			t.Columns[j].SetKind(dataset.KindDatetime)
		}
	}
	return t, nil
}

// cellTyper reports the effective type of a cell. Workbooks usually store
// dates as numbers with a date number format, so the cell style decides.
type cellTyper struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool
}

func (c *cellTyper) kind(cell string) excelize.CellType {
	typ, err := c.f.GetCellType(c.sheet, cell)
	if err != nil {
		return excelize.CellTypeUnset
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		return typ
	}
	idx, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil || idx == 0 {
		return typ
	}
	isDate, ok := c.dateStyles[idx]
	if !ok {
		style, err := c.f.GetStyle(idx)
		isDate = err == nil && isDateFormat(style)
		c.dateStyles[idx] = isDate
	}
	if isDate {
		return excelize.CellTypeDate
	}
	return typ
}

// isDateFormat reports whether a style formats numbers as calendar dates,
// either through a built-in date format id or a custom code with day or year
// tokens.
func isDateFormat(s *excelize.Style) bool {
	if s == nil {
		return false
	}
	if s.CustomNumFmt != nil {
		code := strings.ToLower(stripLiterals(*s.CustomNumFmt))
		return strings.ContainsAny(code, "dy")
	}
	switch n := s.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 31, n >= 34 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// stripLiterals drops quoted text and bracketed sections such as colors and
// locales from a number format code.
func stripLiterals(code string) string {
	var b strings.Builder
	quoted, bracket := false, false
	for _, r := range code {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dateText(raw string) (string, bool) {
	var t time.Time
	if x, err := strconv.ParseFloat(raw, 64); err == nil {
		if t, err = excelize.ExcelDateToTime(x, false); err != nil {
			return "", false
		}
	} else {
		ok := false
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err = time.Parse(layout, raw); err == nil {
				ok = true
				break
			}
		}
		if !ok {
			return "", false
		}
	}
	return t.Format("2006-01-02 15:04:05"), true
}

func boolText(raw string) string {
	switch raw {
	case "1", "TRUE", "true":
		return "True"
	case "0", "FALSE", "false":
		return "False"
	}
	return raw
}
