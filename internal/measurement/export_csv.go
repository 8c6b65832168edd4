package measurement

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CSVExporter writes sheet listings as semicolon-separated CSV with
// numbers formatted for pt-BR spreadsheets.
type CSVExporter struct {
	printer *message.Printer
}

// NewCSVExporter constructs a CSVExporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{printer: message.NewPrinter(language.BrazilianPortuguese)}
}

var csvHeader = []string{"Número", "Parceiro", "Período", "Modo", "Status", "Subtotal", "Retenção", "Total"}

// WriteSheets streams the sheets to w.
func (e *CSVExporter) WriteSheets(w io.Writer, sheets []Sheet) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range sheets {
		s := &sheets[i]
		record := []string{
			s.Number,
			strconv.FormatInt(s.PartnerID, 10),
			s.Period.String(),
			string(s.Mode),
			string(s.Status),
			e.money(s.Subtotal),
			e.money(s.RetentionAmount),
			e.money(s.Total),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *CSVExporter) money(v float64) string {
	return e.printer.Sprintf("%.2f", v)
}
