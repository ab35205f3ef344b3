// Package export renders the ledger for people and machines: the CSV
// history report and the JSON backup.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"tool_custody/models"
)

// utf8BOM lets spreadsheet apps detect the Arabic text correctly.
const utf8BOM = "\ufeff"

var csvHeader = []string{
	"المعرف",
	"اسم المعدة",
	"اسم المدرب",
	"تاريخ الخروج",
	"وقت الخروج",
	"تاريخ الإرجاع",
	"وقت الإرجاع",
	"الحالة",
}

const (
	statusActive   = "نشط"
	statusComplete = "مكتمل"
	missingValue   = "-"
	timeOnly       = "15:04:05"
)

func CSVFilename(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("inventory_report_%s.csv", now.In(loc).Format(time.DateOnly))
}

// WriteCSV writes txs in the order given; callers pass them newest first.
func WriteCSV(w io.Writer, txs []models.Transaction, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range txs {
		out := t.CheckoutTime.In(loc)
		retDate, retTime := missingValue, missingValue
		if t.ReturnTime != nil {
			r := t.ReturnTime.In(loc)
			retDate, retTime = r.Format(time.DateOnly), r.Format(timeOnly)
		}
		status := statusComplete
		if t.IsActive {
			status = statusActive
		}
		row := []string{
			t.ID,
			t.ItemName,
			t.TrainerName,
			out.Format(time.DateOnly),
			out.Format(timeOnly),
			retDate,
			retTime,
			status,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
