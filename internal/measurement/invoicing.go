package measurement

import (
	"fmt"
	"strings"

	"github.com/medicao-erp/medicao-erp/internal/billing"
	"github.com/medicao-erp/medicao-erp/internal/contracts"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/products"
	"github.com/medicao-erp/medicao-erp/internal/sales/orders"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// RetentionLabel names the negative withholding line on derived invoices.
const RetentionLabel = "Retenção de Garantia"

// ErrNoBillableLines reports that every line had a zero approved quantity.
var ErrNoBillableLines = fmt.Errorf("no lines with positive approved quantity: %w", shared.ErrValidation)

// InvoiceSource bundles the read-only master data needed to derive an
// invoice from a sheet: the linked order and contract, the referenced
// lines keyed by id, and the products keyed by id.
type InvoiceSource struct {
	Order         *orders.Order
	Contract      *contracts.Contract
	OrderLines    map[int64]orders.OrderLine
	ContractLines map[int64]contracts.ContractLine
	Products      map[int64]products.Product
	IssuedByID    int64
}

// BuildInvoiceSpec derives a draft invoice specification from an
// approved sheet. Lines with approved quantity below or at zero are
// skipped; a nonzero retention amount appends one negative line.
func BuildInvoiceSpec(sheet *Sheet, lines []Line, src InvoiceSource) (*billing.InvoiceSpec, error) {
	if sheet.PartnerID == 0 {
		return nil, fmt.Errorf("sheet %s: billing partner required: %w", sheet.Number, shared.ErrValidation)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("sheet %s: %w", sheet.Number, ErrNoLines)
	}

	spec := &billing.InvoiceSpec{
		CompanyID:    sheet.CompanyID,
		PartnerID:    sheet.PartnerID,
		Origin:       invoiceOrigin(sheet, src),
		CurrencyCode: sheet.CurrencyCode,
		IssuedByID:   src.IssuedByID,
	}
	if src.Order != nil {
		spec.CurrencyCode = src.Order.CurrencyCode
		spec.PaymentTermID = src.Order.PaymentTermID
	}

	var analytic map[int64]float64
	if sheet.AnalyticAccountID != nil {
		analytic = map[int64]float64{*sheet.AnalyticAccountID: 100}
	}

	for i := range lines {
		l := &lines[i]
		if l.ApprovedQty <= 0 {
			continue
		}
		spec.Lines = append(spec.Lines, billing.LineSpec{
			Description:          lineDescription(l, src),
			ProductID:            l.ProductID,
			Quantity:             l.ApprovedQty,
			PriceUnit:            l.PriceUnit,
			UoM:                  l.UoM,
			TaxIDs:               lineTaxes(l, src),
			AnalyticDistribution: analytic,
		})
	}
	if len(spec.Lines) == 0 {
		return nil, fmt.Errorf("sheet %s: %w", sheet.Number, ErrNoBillableLines)
	}

	if sheet.RetentionAmount != 0 {
		spec.Lines = append(spec.Lines, billing.LineSpec{
			Description:          RetentionLabel,
			Quantity:             1,
			PriceUnit:            -sheet.RetentionAmount,
			AnalyticDistribution: analytic,
		})
	}
	return spec, nil
}

// invoiceOrigin joins the sheet number with the order and contract
// references, skipping the ones that are absent.
func invoiceOrigin(sheet *Sheet, src InvoiceSource) string {
	parts := []string{sheet.Number}
	if src.Order != nil && src.Order.Number != "" {
		parts = append(parts, src.Order.Number)
	}
	if src.Contract != nil && src.Contract.Number != "" {
		parts = append(parts, src.Contract.Number)
	}
	return strings.Join(parts, " / ")
}

// lineDescription picks the explicit name, then the source line's, then
// the product's display name, then a generic fallback.
func lineDescription(l *Line, src InvoiceSource) string {
	if l.Description != "" {
		return l.Description
	}
	if l.SaleOrderLineID != nil {
		if ol, ok := src.OrderLines[*l.SaleOrderLineID]; ok && ol.Description != "" {
			return ol.Description
		}
	}
	if l.ContractLineID != nil {
		if cl, ok := src.ContractLines[*l.ContractLineID]; ok && cl.Description != "" {
			return cl.Description
		}
	}
	if l.ProductID != nil {
		if p, ok := src.Products[*l.ProductID]; ok {
			return p.DisplayName()
		}
	}
	return "Serviço"
}

// lineTaxes uses the order line's taxes when the line is sourced from an
// order, otherwise the product's, otherwise none.
func lineTaxes(l *Line, src InvoiceSource) []int64 {
	if l.SaleOrderLineID != nil {
		if ol, ok := src.OrderLines[*l.SaleOrderLineID]; ok {
			return ol.TaxIDs
		}
	}
	if l.ProductID != nil {
		if p, ok := src.Products[*l.ProductID]; ok {
			return p.TaxIDs
		}
	}
	return nil
}
