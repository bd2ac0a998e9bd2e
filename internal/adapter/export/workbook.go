package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
)

// シート名
const (
	FloorplanSheet = "Floorplan"
	BudgetSheet    = "Budget"
)

// ContentType はxlsxのMIMEタイプ
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FloorplanHeader は間取りシートの表頭
var FloorplanHeader = []string{
	"Floor",
	"Room",
	"Type",
	"Width (ft)",
	"Length (ft)",
	"Area (ft²)",
	"Cost",
}

// numFmtMoney は組み込み書式 "#,##0.00"
const numFmtMoney = 4

// Write はスナップショットの費用ワークブックをwに書き出す
func Write(w io.Writer, s conversation.Snapshot) error {
	f, err := build(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveFile はスナップショットの費用ワークブックをpathに保存する
func SaveFile(path string, s conversation.Snapshot) error {
	f, err := build(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// build は "Floorplan" と "Budget" の2シートを持つワークブックを作成
func build(s conversation.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()

	// 既定の Sheet1 を間取りシートにする
	if err := f.SetSheetName("Sheet1", FloorplanSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(BudgetSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeFloorplan(f, s, styles); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeBudget(f, s, styles); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

type sheetStyles struct {
	header int
	money  int
	total  int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("failed to create header style: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("failed to create money style: %w", err)
	}

	total, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: numFmtMoney,
		Border: []excelize.Border{
			{Type: "top", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("failed to create total style: %w", err)
	}

	return sheetStyles{header: header, money: money, total: total}, nil
}

func writeFloorplan(f *excelize.File, s conversation.Snapshot, st sheetStyles) error {
	sheet := FloorplanSheet

	header := make([]any, len(FloorplanHeader))
	for i, h := range FloorplanHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", st.header); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	costs := make(map[string]float64, len(s.Estimate.Lines))
	for _, line := range s.Estimate.Lines {
		costs[line.Room] = line.Cost
	}

	// 部屋は挿入順
	row := 2
	for _, r := range s.Rooms {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := []any{r.Floor, r.Name, r.Type, r.Width, r.Length, r.Area(), costs[r.Name]}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	// 合計行
	totals := []any{"Total", "", "", "", "", s.Estimate.TotalArea, s.Estimate.TotalCost}
	totalCell := fmt.Sprintf("A%d", row)
	if err := f.SetSheetRow(sheet, totalCell, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	if row > 2 {
		if err := f.SetCellStyle(sheet, "G2", fmt.Sprintf("G%d", row-1), st.money); err != nil {
			return fmt.Errorf("failed to set money style: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, totalCell, fmt.Sprintf("G%d", row), st.total); err != nil {
		return fmt.Errorf("failed to set total style: %w", err)
	}

	for col, width := range map[string]float64{"A": 8, "B": 24, "C": 14, "D": 12, "E": 12, "F": 12, "G": 16} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeBudget(f *excelize.File, s conversation.Snapshot, st sheetStyles) error {
	sheet := BudgetSheet

	rows := [][]any{
		{"Item", "Value"},
		{"Region", s.Pricing.Region},
		{"Currency", s.Pricing.Currency},
		{"Rate per ft²", s.Estimate.RatePerArea},
		{"Total area (ft²)", s.Estimate.TotalArea},
		{"Estimated cost", s.Estimate.TotalCost},
		{"Status", string(s.Budget.Status)},
	}
	if s.Budget.Status != cost.StatusNoBudget {
		rows = append(rows,
			[]any{"Budget", s.Budget.Budget},
			[]any{"Difference", s.Budget.Delta},
			[]any{"Difference (%)", s.Budget.DeltaPct},
		)
	}

	for i, values := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write budget row %d: %w", i+1, err)
		}
	}

	if err := f.SetCellStyle(sheet, "A1", "B1", st.header); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "B4", "B4", st.money); err != nil {
		return fmt.Errorf("failed to set money style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "B6", "B6", st.money); err != nil {
		return fmt.Errorf("failed to set money style: %w", err)
	}
	if len(rows) > 7 {
		if err := f.SetCellStyle(sheet, "B8", "B9", st.money); err != nil {
			return fmt.Errorf("failed to set money style: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return f.SetColWidth(sheet, "B", "B", 18)
}
