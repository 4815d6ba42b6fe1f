package ledger

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Transacciones"

var exportHeaders = []string{
	"ID", "Fecha", "Concepto", "Socio", "Empresa", "Forma de pago",
	"Cantidad", "Precio unitario", "Tipo", "Total",
}

// ExportFileName returns the attachment name for an export made now.
func ExportFileName() string {
	return fmt.Sprintf("transacciones_%s.xlsx", NowInMexicoCity().Format("20060102_150405"))
}

// ExportTransactions writes every transaction matching filter as an XLSX
// workbook, newest first, followed by income, expense and balance rows.
func (c *Core) ExportTransactions(ctx context.Context, filter Filter, w io.Writer) error {
	f, err := filter.normalize()
	if err != nil {
		return err
	}
	where, args := f.where()
	items, err := c.queryTransactions(ctx,
		"SELECT "+transactionColumns+transactionFrom+where+" ORDER BY t.date DESC, t.id DESC",
		args...)
	if err != nil {
		return err
	}

	book := excelize.NewFile()
	defer func() {
		if err := book.Close(); err != nil {
			c.logger.Warn("close export workbook failed", "err", err)
		}
	}()
	if err := book.SetSheetName(book.GetSheetName(0), exportSheetName); err != nil {
		return WrapError(ErrCodeInternal, "name export sheet", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := book.SetCellValue(exportSheetName, cell, header); err != nil {
			return WrapError(ErrCodeInternal, "write export header", err)
		}
	}

	var income, expenses Amount
	for i, t := range items {
		row := i + 2
		companyName := ""
		if t.CompanyName != nil {
			companyName = *t.CompanyName
		}
		quantity, _ := t.Quantity.Float64()
		unitPrice, _ := t.UnitPrice.Float64()
		total, _ := t.Total.Round4().Float64()
		values := []any{
			t.ID, t.Date, t.Concept, t.PartnerName, companyName, t.PaymentMethod,
			quantity, unitPrice, t.Type.Label(), total,
		}
		if err := book.SetSheetRow(exportSheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return WrapError(ErrCodeInternal, "write export row", err)
		}
		switch t.Type {
		case TypeIncome:
			income = income.Add(t.Total)
		case TypeExpense:
			expenses = expenses.Add(t.Total)
		}
	}

	footer := len(items) + 3
	for i, line := range []struct {
		label  string
		amount Amount
	}{
		{"Ingresos", income},
		{"Gastos", expenses},
		{"Balance", income.Sub(expenses)},
	} {
		value, _ := line.amount.Round4().Float64()
		row := []any{line.label, value}
		if err := book.SetSheetRow(exportSheetName, fmt.Sprintf("I%d", footer+i), &row); err != nil {
			return WrapError(ErrCodeInternal, "write export totals", err)
		}
	}

	if err := book.Write(w); err != nil {
		return WrapError(ErrCodeInternal, "write export workbook", err)
	}
	c.logger.Info("transactions exported", "rows", len(items))
	return nil
}
