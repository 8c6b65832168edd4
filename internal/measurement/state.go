package measurement

import (
	"fmt"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Sentinels chain onto the shared ones so the HTTP layer can classify
// them without importing this package.
var (
	// ErrNoLines blocks submitting an empty sheet.
	ErrNoLines = fmt.Errorf("sheet has no lines: %w", shared.ErrValidation)
	// ErrNegativeApproved blocks approving a sheet with a negative approved quantity.
	ErrNegativeApproved = fmt.Errorf("sheet has a line with negative approved quantity: %w", shared.ErrValidation)
	// ErrSheetInvoiced blocks resetting an invoiced sheet.
	ErrSheetInvoiced = fmt.Errorf("sheet already invoiced: %w", shared.ErrInvalidStatus)
	// ErrInvoicePosted blocks cancelling a sheet whose invoice progressed past draft.
	ErrInvoicePosted = fmt.Errorf("linked invoice is posted: %w", shared.ErrInvalidStatus)
	// ErrDuplicatePeriod reports a second active sheet for the same source and period.
	ErrDuplicatePeriod = fmt.Errorf("an active sheet already exists for this source and period: %w", shared.ErrConflict)
)

// TransitionAction enumerates lifecycle actions on a sheet.
type TransitionAction string

const (
	// ActionSubmit sends a draft sheet for approval.
	ActionSubmit TransitionAction = "submit"
	// ActionApprove clears a sheet for billing.
	ActionApprove TransitionAction = "approve"
	// ActionReset returns a sheet to draft.
	ActionReset TransitionAction = "reset"
	// ActionCancel cancels a sheet.
	ActionCancel TransitionAction = "cancel"
	// ActionInvoice marks the sheet invoiced after generating its invoice.
	ActionInvoice TransitionAction = "invoice"
)

// TransitionInput carries the facts each precondition inspects.
type TransitionInput struct {
	LineCount int
	// MinApprovedQty is the smallest approved quantity across the
	// sheet's lines; ignored when LineCount is zero.
	MinApprovedQty float64
	// InvoiceStatus is empty when no invoice is linked, otherwise the
	// linked invoice's state (DRAFT, POSTED or VOID).
	InvoiceStatus string
}

// Transition applies one lifecycle action to the sheet, mutating its
// status on success. All precondition checks live here.
func Transition(s *Sheet, action TransitionAction, in TransitionInput) error {
	switch action {
	case ActionSubmit:
		if in.LineCount == 0 {
			return ErrNoLines
		}
		s.Status = SheetStatusSubmitted
		return nil

	case ActionApprove:
		if s.Status != SheetStatusDraft && s.Status != SheetStatusSubmitted {
			return fmt.Errorf("approve from %s: %w", s.Status, shared.ErrInvalidStatus)
		}
		if in.LineCount > 0 && in.MinApprovedQty < 0 {
			return ErrNegativeApproved
		}
		s.Status = SheetStatusApproved
		return nil

	case ActionReset:
		if s.Status == SheetStatusInvoiced {
			return ErrSheetInvoiced
		}
		s.Status = SheetStatusDraft
		return nil

	case ActionCancel:
		if in.InvoiceStatus != "" && in.InvoiceStatus != "DRAFT" && in.InvoiceStatus != "VOID" {
			return ErrInvoicePosted
		}
		s.Status = SheetStatusCancelled
		return nil

	case ActionInvoice:
		if s.Status != SheetStatusSubmitted && s.Status != SheetStatusApproved {
			return fmt.Errorf("invoice from %s: %w", s.Status, shared.ErrInvalidStatus)
		}
		s.Status = SheetStatusInvoiced
		return nil

	default:
		return fmt.Errorf("unknown action %q: %w", action, shared.ErrValidation)
	}
}
