package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

const (
	SummarySheet = "Summary Dashboard"
	emptyNotice  = "No data matched this category."
)

var tabColors = map[string]string{
	SummarySheet:                         "1F4E79",
	string(models.WastedAdspend):         "C00000",
	string(models.InefficientAdspend):    "ED7D31",
	string(models.ScalingOpportunity):    "00B050",
	string(models.HarvestingOpportunity): "4472C4",
}

// barColumn is the column that gets a data bar on each category sheet.
var barColumn = map[models.Category]string{
	models.WastedAdspend:         "Spend",
	models.InefficientAdspend:    "ACOS",
	models.ScalingOpportunity:    "Conversion Rate",
	models.HarvestingOpportunity: "Orders",
}

var summaryColumns = []struct {
	Header string
	Format string
	Value  func(models.CategorySummary) any
}{
	{"Category", "text", func(s models.CategorySummary) any { return s.Category }},
	{"Search Terms", "int", func(s models.CategorySummary) any { return s.SearchTerms }},
	{"Total Clicks", "int", func(s models.CategorySummary) any { return s.TotalClicks }},
	{"Total Spend", "currency", func(s models.CategorySummary) any { return s.TotalSpend }},
	{"Total Sales", "currency", func(s models.CategorySummary) any { return s.TotalSales }},
	{"Total Orders", "int", func(s models.CategorySummary) any { return s.TotalOrders }},
	{"Avg ACOS", "percent", func(s models.CategorySummary) any { return s.AvgACOS }},
	{"Avg CVR", "percent", func(s models.CategorySummary) any { return s.AvgCVR }},
}

type styles struct {
	header int
	text   int
	body   map[string]int // by column format
	total  map[string]int
}

// WriteWorkbook renders the summary dashboard and one sheet per category.
func WriteWorkbook(w io.Writer, summary []models.CategorySummary, results models.CategoryResults) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if err := writeSummary(f, st, summary); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	for _, c := range models.Categories {
		if _, err := f.NewSheet(string(c)); err != nil {
			return err
		}
		if err := writeCategory(f, st, c, results.Rows(c)); err != nil {
			return fmt.Errorf("%s sheet: %w", c, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSummary(f *excelize.File, st styles, summary []models.CategorySummary) error {
	sheet := SummarySheet
	for i, col := range summaryColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := 14.0
		if i == 0 {
			width = 28
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	if err := headerRow(f, st, sheet, len(summaryColumns)); err != nil {
		return err
	}
	for r, s := range summary {
		styleSet := st.body
		if r == len(summary)-1 {
			styleSet = st.total
		}
		for i, col := range summaryColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheet, cell, col.Value(s)); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, styleSet[col.Format]); err != nil {
				return err
			}
		}
	}
	return tabColor(f, sheet)
}

func writeCategory(f *excelize.File, st styles, c models.Category, rows []models.Row) error {
	sheet := string(c)
	if err := tabColor(f, sheet); err != nil {
		return err
	}
	if len(rows) == 0 {
		if err := f.SetCellValue(sheet, "A1", emptyNotice); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, "A1", "A1", st.text)
	}

	cols := models.OutputColumns
	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.Header); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, columnWidth(col)); err != nil {
			return err
		}
	}
	if err := headerRow(f, st, sheet, len(cols)); err != nil {
		return err
	}
	for r, row := range rows {
		for i, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(sheet, cell, col.Value(row)); err != nil {
				return err
			}
		}
	}
	last := len(rows) + 1
	for i, col := range cols {
		from, _ := excelize.CoordinatesToCellName(i+1, 2)
		to, _ := excelize.CoordinatesToCellName(i+1, last)
		if err := f.SetCellStyle(sheet, from, to, st.body[col.Format]); err != nil {
			return err
		}
	}

	end, _ := excelize.CoordinatesToCellName(len(cols), last)
	if err := f.AutoFilter(sheet, "A1:"+end, nil); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return dataBar(f, sheet, c, last)
}

func dataBar(f *excelize.File, sheet string, c models.Category, last int) error {
	for i, col := range models.OutputColumns {
		if col.Header != barColumn[c] {
			continue
		}
		from, _ := excelize.CoordinatesToCellName(i+1, 2)
		to, _ := excelize.CoordinatesToCellName(i+1, last)
		return f.SetConditionalFormat(sheet, from+":"+to, []excelize.ConditionalFormatOptions{{
			Type:     "data_bar",
			Criteria: "=",
			MinType:  "min",
			MaxType:  "max",
			BarColor: "#" + tabColors[sheet],
		}})
	}
	return nil
}

func headerRow(f *excelize.File, st styles, sheet string, n int) error {
	end, _ := excelize.CoordinatesToCellName(n, 1)
	return f.SetCellStyle(sheet, "A1", end, st.header)
}

func tabColor(f *excelize.File, sheet string) error {
	color := tabColors[sheet]
	return f.SetSheetProps(sheet, &excelize.SheetPropsOptions{TabColorRGB: &color})
}

func columnWidth(col models.OutputColumn) float64 {
	switch col.Header {
	case "Customer Search Term":
		return 35
	case "Campaign Name (Informational only)", "Portfolio Name (Informational only)":
		return 40
	case "Ad Group Name (Informational only)":
		return 30
	}
	if col.Format == "int" {
		return 14
	}
	return 16
}

func newStyles(f *excelize.File) (styles, error) {
	currency := "$#,##0.00"
	center := &excelize.Alignment{Horizontal: "center"}
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	totalFill := excelize.Fill{Type: "pattern", Color: []string{"D9E2F3"}, Pattern: 1}

	defs := map[string]*excelize.Style{
		"percent":  {NumFmt: 10, Alignment: center},
		"currency": {CustomNumFmt: &currency, Alignment: center},
		"int":      {NumFmt: 3, Alignment: center},
		"text":     {Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"}},
	}
	st := styles{body: map[string]int{}, total: map[string]int{}}
	var err error
	for name, def := range defs {
		if st.body[name], err = f.NewStyle(def); err != nil {
			return st, err
		}
		total := *def
		total.Font = &excelize.Font{Bold: true}
		total.Fill = totalFill
		total.Border = border
		if st.total[name], err = f.NewStyle(&total); err != nil {
			return st, err
		}
	}
	st.text = st.body["text"]
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	return st, err
}
