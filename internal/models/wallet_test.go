package models

import (
	"errors"
	"testing"
)

func TestWalletTransactionTransitions(t *testing.T) {
	trx := &WalletTransaction{Status: WalletTrxPending}

	if err := trx.MarkCompleted(); err != nil {
		t.Fatalf("pending -> completed: %v", err)
	}
	if !trx.Terminal() {
		t.Fatal("completed must be terminal")
	}
	if err := trx.MarkFailed(); !errors.Is(err, ErrTrxNotPending) {
		t.Fatalf("completed -> failed must be rejected, got %v", err)
	}
	if err := trx.MarkCompleted(); !errors.Is(err, ErrTrxNotPending) {
		t.Fatalf("completed -> completed must be rejected, got %v", err)
	}
	if trx.Status != WalletTrxCompleted {
		t.Fatalf("status mutated by rejected transition: %s", trx.Status)
	}

	trx = &WalletTransaction{Status: WalletTrxPending}
	if err := trx.MarkFailed(); err != nil {
		t.Fatalf("pending -> failed: %v", err)
	}
	if err := trx.MarkCompleted(); !errors.Is(err, ErrTrxNotPending) {
		t.Fatalf("failed -> completed must be rejected, got %v", err)
	}
}
