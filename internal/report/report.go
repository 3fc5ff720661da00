// Package report renders the monthly spreadsheet export.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/Matt-Gary/Accounting-app/internal/domain"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentType of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names, in workbook order.
const (
	SheetExpenses = "Expenses"
	SheetEarnings = "Earnings"
	SheetSummary  = "Summary"
)

// Excel built-in number format "#,##0.00".
const amountNumFmt = 4

var (
	expenseHeader = []any{"Date", "Amount", "Category", "Method", "Comment", "Currency", "User"}
	earningHeader = []any{"Date", "Amount", "User", "Description"}
	summaryHeader = []any{"Category", "Amount", "Formatted"}
)

// Filename is the attachment name of the report for month/year.
func Filename(month, year int) string {
	return fmt.Sprintf("report_%d_%d.xlsx", month, year)
}

// Write renders r as an xlsx workbook into w.
func Write(w io.Writer, r *domain.MonthlyReport) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func build(r *domain.MonthlyReport) (*excelize.File, error) {
	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetExpenses); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetEarnings, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	s, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeExpenses(f, s, r.Expenses); err != nil {
		return nil, err
	}
	if err := writeEarnings(f, s, r.Earnings); err != nil {
		return nil, err
	}
	if err := writeSummary(f, s, r); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	ok = true
	return f, nil
}

type styles struct {
	header int
	amount int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return styles{}, fmt.Errorf("header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return styles{}, fmt.Errorf("amount style: %w", err)
	}
	return styles{header: header, amount: amount}, nil
}

// writeTable writes a bold header row followed by rows, formatting the
// amount column.
func writeTable(f *excelize.File, s styles, sheet string, header []any, rows [][]any, amountCol int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheet, "A1", last+"1", s.header); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}

	if len(rows) > 0 {
		col, _ := excelize.ColumnNumberToName(amountCol)
		from := fmt.Sprintf("%s2", col)
		to := fmt.Sprintf("%s%d", col, len(rows)+1)
		if err := f.SetCellStyle(sheet, from, to, s.amount); err != nil {
			return fmt.Errorf("%s amount style: %w", sheet, err)
		}
	}
	return f.SetColWidth(sheet, "A", last, 16)
}

func writeExpenses(f *excelize.File, s styles, expenses []domain.Expense) error {
	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []any{
			e.SpentAt.String(),
			e.Amount.InexactFloat64(),
			label(e.CategoryLabel, e.CategoryKey),
			label(e.PaymentMethodName, e.PaymentMethodID),
			e.Comment,
			e.Currency,
			label(e.UserName, e.UserID),
		})
	}
	return writeTable(f, s, SheetExpenses, expenseHeader, rows, 2)
}

func writeEarnings(f *excelize.File, s styles, earnings []domain.Earning) error {
	rows := make([][]any, 0, len(earnings))
	for _, e := range earnings {
		rows = append(rows, []any{
			e.EarnedAt.String(),
			e.Amount.InexactFloat64(),
			label(e.UserName, e.UserID),
			e.Description,
		})
	}
	return writeTable(f, s, SheetEarnings, earningHeader, rows, 2)
}

// writeSummary lists spending per category, then the period totals.
func writeSummary(f *excelize.File, s styles, r *domain.MonthlyReport) error {
	byCategory := map[string]decimal.Decimal{}
	spent := decimal.Zero
	for _, e := range r.Expenses {
		c := label(e.CategoryLabel, e.CategoryKey)
		byCategory[c] = byCategory[c].Add(e.Amount)
		spent = spent.Add(e.Amount)
	}
	earned := decimal.Zero
	for _, e := range r.Earnings {
		earned = earned.Add(e.Amount)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	rows := make([][]any, 0, len(categories)+4)
	for _, c := range categories {
		rows = append(rows, summaryRow(c, byCategory[c]))
	}
	rows = append(rows,
		[]any{},
		summaryRow("Total spent", spent),
		summaryRow("Total earned", earned),
		summaryRow("Balance", earned.Sub(spent)),
	)
	return writeTable(f, s, SheetSummary, summaryHeader, rows, 2)
}

func summaryRow(name string, amount decimal.Decimal) []any {
	return []any{name, amount.InexactFloat64(), Format(amount, money.BRL)}
}

// Format renders amount in the display format of currency code, falling
// back to BRL for unknown codes.
func Format(amount decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		c = money.GetCurrency(money.BRL)
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}

func label(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
