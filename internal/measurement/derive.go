package measurement

// ApprovedQty derives the billable quantity from a raw measurement.
// Negative raw inputs clamp to zero instead of erroring out.
func ApprovedQty(mode Mode, measuredQty, measuredPercent, baseQty float64) float64 {
	switch mode {
	case ModePercent:
		pct := measuredPercent
		if pct < 0 {
			pct = 0
		}
		qty := baseQty * pct / 100
		if qty < 0 {
			return 0
		}
		return qty
	default:
		if measuredQty < 0 {
			return 0
		}
		return measuredQty
	}
}

// LineSubtotal computes approved quantity times unit price.
func LineSubtotal(approvedQty, priceUnit float64) float64 {
	return approvedQty * priceUnit
}

// Amounts holds the monetary aggregates of a sheet.
type Amounts struct {
	Subtotal        float64
	RetentionAmount float64
	Total           float64
}

// SheetAmounts aggregates line subtotals and applies retention.
// RetentionPercent is taken as given, including values outside [0,100].
func SheetAmounts(lines []Line, retentionPercent float64) Amounts {
	var a Amounts
	for i := range lines {
		a.Subtotal += lines[i].Subtotal
	}
	if retentionPercent != 0 {
		a.RetentionAmount = a.Subtotal * retentionPercent / 100
	}
	a.Total = a.Subtotal - a.RetentionAmount
	return a
}

// Recompute refreshes the line's derived approved quantity and subtotal.
func (l *Line) Recompute(mode Mode) {
	l.ApprovedQty = ApprovedQty(mode, l.MeasuredQty, l.MeasuredPercent, l.BaseQty)
	l.Subtotal = LineSubtotal(l.ApprovedQty, l.PriceUnit)
}

// RecomputeAmounts refreshes the sheet's derived monetary aggregates
// from its loaded lines.
func (s *Sheet) RecomputeAmounts() {
	a := SheetAmounts(s.Lines, s.RetentionPercent)
	s.Subtotal = a.Subtotal
	s.RetentionAmount = a.RetentionAmount
	s.Total = a.Total
}
