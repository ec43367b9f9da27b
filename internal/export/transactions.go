// Package export writes sales history as spreadsheets for the back office.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go-pos-ledger/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SalesSheet = "Sales"
	ItemsSheet = "Items"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var salesHeadings = []string{"ID", "Date", "Customer", "Payment", "Items", "Discount", "Tax", "Total", "Profit", "Points Used", "Points Earned"}

var itemHeadings = []string{"Transaction ID", "Date", "Product ID", "Name", "Category", "Quantity", "Price", "Cost", "Line Total"}

// FileName is the attachment name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("sales_%s.xlsx", t.Format("20060102_150405"))
}

// WriteTransactions writes one row per sale on the Sales sheet and one row per
// line on the Items sheet. Dates are rendered in loc.
func WriteTransactions(w io.Writer, txns []models.Transaction, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the sales sheet.
	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return err
	}

	if err := writeRow(f, SalesSheet, 1, toRow(salesHeadings)); err != nil {
		return err
	}
	if err := writeRow(f, ItemsSheet, 1, toRow(itemHeadings)); err != nil {
		return err
	}

	itemRow := 2
	for i, txn := range txns {
		date := txn.Timestamp.In(loc).Format("2006-01-02 15:04")
		names := make([]string, 0, len(txn.Items))
		for _, item := range txn.Items {
			names = append(names, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		}

		err := writeRow(f, SalesSheet, i+2, []interface{}{
			txn.ID,
			date,
			txn.CustomerName,
			txn.PaymentMethod,
			strings.Join(names, ", "),
			txn.Discount.InexactFloat64(),
			txn.Tax.InexactFloat64(),
			txn.Total.InexactFloat64(),
			txn.Profit.InexactFloat64(),
			txn.PointsUsed,
			txn.PointsEarned,
		})
		if err != nil {
			return err
		}

		for _, item := range txn.Items {
			err := writeRow(f, ItemsSheet, itemRow, []interface{}{
				txn.ID,
				date,
				item.ProductID,
				item.Name,
				item.Category,
				item.Quantity,
				item.PriceSell.InexactFloat64(),
				item.PriceBuy.InexactFloat64(),
				item.LineTotal().InexactFloat64(),
			})
			if err != nil {
				return err
			}
			itemRow++
		}
	}

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toRow(headings []string) []interface{} {
	out := make([]interface{}, len(headings))
	for i, h := range headings {
		out[i] = h
	}
	return out
}
