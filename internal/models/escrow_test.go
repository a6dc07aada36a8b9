package models

import (
	"errors"
	"testing"
	"time"
)

func TestEscrowTransferTransitions(t *testing.T) {
	now := time.Now().UTC()

	tr := &EscrowTransfer{Status: EscrowPending}
	if err := tr.Approve(now); err != nil {
		t.Fatalf("pending -> approved: %v", err)
	}
	if tr.DateSent == nil || !tr.DateSent.Equal(now) {
		t.Fatalf("approval must stamp date_sent, got %v", tr.DateSent)
	}
	if err := tr.Reject(); !errors.Is(err, ErrEscrowNotPending) {
		t.Fatalf("approved -> rejected must be rejected, got %v", err)
	}
	if err := tr.Approve(now); !errors.Is(err, ErrEscrowNotPending) {
		t.Fatalf("approved -> approved must be rejected, got %v", err)
	}
	if tr.Status != EscrowApproved {
		t.Fatalf("status mutated by rejected transition: %s", tr.Status)
	}

	tr = &EscrowTransfer{Status: EscrowPending}
	if err := tr.Reject(); err != nil {
		t.Fatalf("pending -> rejected: %v", err)
	}
	if tr.DateSent != nil {
		t.Fatal("rejection must not stamp date_sent")
	}
	if err := tr.Approve(now); !errors.Is(err, ErrEscrowNotPending) {
		t.Fatalf("rejected -> approved must be rejected, got %v", err)
	}
}

func TestEscrowWithdrawalTransitions(t *testing.T) {
	now := time.Now().UTC()

	w := &EscrowWithdrawal{Status: EscrowPending}
	if err := w.Approve(now); err != nil {
		t.Fatalf("pending -> approved: %v", err)
	}
	if w.Date == nil {
		t.Fatal("approval must stamp date")
	}
	if err := w.Reject(); !errors.Is(err, ErrEscrowNotPending) {
		t.Fatalf("approved -> rejected must be rejected, got %v", err)
	}

	w = &EscrowWithdrawal{Status: EscrowPending}
	if err := w.Reject(); err != nil {
		t.Fatalf("pending -> rejected: %v", err)
	}
	if err := w.Approve(now); !errors.Is(err, ErrEscrowNotPending) {
		t.Fatalf("rejected -> approved must be rejected, got %v", err)
	}
}
