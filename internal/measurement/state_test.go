package measurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

func TestTransitionSubmit(t *testing.T) {
	s := &Sheet{Status: SheetStatusDraft}
	err := Transition(s, ActionSubmit, TransitionInput{LineCount: 0})
	assert.ErrorIs(t, err, ErrNoLines)
	assert.Equal(t, SheetStatusDraft, s.Status)

	err = Transition(s, ActionSubmit, TransitionInput{LineCount: 1})
	require.NoError(t, err)
	assert.Equal(t, SheetStatusSubmitted, s.Status)
}

func TestTransitionApprove(t *testing.T) {
	for _, from := range []SheetStatus{SheetStatusDraft, SheetStatusSubmitted} {
		s := &Sheet{Status: from}
		require.NoError(t, Transition(s, ActionApprove, TransitionInput{LineCount: 2, MinApprovedQty: 0}))
		assert.Equal(t, SheetStatusApproved, s.Status)
	}

	for _, from := range []SheetStatus{SheetStatusApproved, SheetStatusInvoiced, SheetStatusCancelled} {
		s := &Sheet{Status: from}
		err := Transition(s, ActionApprove, TransitionInput{LineCount: 1})
		assert.ErrorIs(t, err, shared.ErrInvalidStatus)
		assert.Equal(t, from, s.Status)
	}
}

func TestTransitionApproveNegativeGuard(t *testing.T) {
	// clamping keeps approved quantities at zero or above, so this guard
	// only fires on data written outside the derivation path
	s := &Sheet{Status: SheetStatusSubmitted}
	err := Transition(s, ActionApprove, TransitionInput{LineCount: 1, MinApprovedQty: -1})
	assert.ErrorIs(t, err, ErrNegativeApproved)
	assert.Equal(t, SheetStatusSubmitted, s.Status)
}

func TestTransitionReset(t *testing.T) {
	for _, from := range []SheetStatus{SheetStatusDraft, SheetStatusSubmitted, SheetStatusApproved, SheetStatusCancelled} {
		s := &Sheet{Status: from}
		require.NoError(t, Transition(s, ActionReset, TransitionInput{}))
		assert.Equal(t, SheetStatusDraft, s.Status)
	}

	s := &Sheet{Status: SheetStatusInvoiced}
	err := Transition(s, ActionReset, TransitionInput{})
	assert.ErrorIs(t, err, ErrSheetInvoiced)
	assert.Equal(t, SheetStatusInvoiced, s.Status)
}

func TestTransitionCancel(t *testing.T) {
	// no linked invoice
	s := &Sheet{Status: SheetStatusApproved}
	require.NoError(t, Transition(s, ActionCancel, TransitionInput{}))
	assert.Equal(t, SheetStatusCancelled, s.Status)

	// draft and void invoices do not block cancellation
	for _, invStatus := range []string{"DRAFT", "VOID"} {
		s := &Sheet{Status: SheetStatusInvoiced}
		require.NoError(t, Transition(s, ActionCancel, TransitionInput{InvoiceStatus: invStatus}))
		assert.Equal(t, SheetStatusCancelled, s.Status)
	}

	s = &Sheet{Status: SheetStatusInvoiced}
	err := Transition(s, ActionCancel, TransitionInput{InvoiceStatus: "POSTED"})
	assert.ErrorIs(t, err, ErrInvoicePosted)
	assert.Equal(t, SheetStatusInvoiced, s.Status)
}

func TestTransitionInvoice(t *testing.T) {
	for _, from := range []SheetStatus{SheetStatusSubmitted, SheetStatusApproved} {
		s := &Sheet{Status: from}
		require.NoError(t, Transition(s, ActionInvoice, TransitionInput{LineCount: 1}))
		assert.Equal(t, SheetStatusInvoiced, s.Status)
	}

	for _, from := range []SheetStatus{SheetStatusDraft, SheetStatusInvoiced, SheetStatusCancelled} {
		s := &Sheet{Status: from}
		err := Transition(s, ActionInvoice, TransitionInput{LineCount: 1})
		assert.ErrorIs(t, err, shared.ErrInvalidStatus)
		assert.Equal(t, from, s.Status)
	}
}

func TestTransitionUnknownAction(t *testing.T) {
	s := &Sheet{Status: SheetStatusDraft}
	err := Transition(s, TransitionAction("explode"), TransitionInput{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
