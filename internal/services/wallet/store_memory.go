package wallet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitegrid/sitegrid_backend/internal/models"
)

// MemoryStore is an in-memory Store used by tests. It mirrors the
// atomicity rules of the Postgres store with a single mutex.
type MemoryStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*models.Wallet // keyed by wallet id
	byUser  map[uuid.UUID]uuid.UUID
	trxs    map[uuid.UUID]*models.WalletTransaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[uuid.UUID]*models.Wallet),
		byUser:  make(map[uuid.UUID]uuid.UUID),
		trxs:    make(map[uuid.UUID]*models.WalletTransaction),
	}
}

func (s *MemoryStore) GetOrCreateWallet(_ context.Context, userID uuid.UUID) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byUser[userID]; ok {
		return *s.wallets[id], nil
	}
	w := &models.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	s.wallets[w.ID] = w
	s.byUser[userID] = w.ID
	return *w, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, walletID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.WalletTransaction
	for _, t := range s.trxs {
		if t.WalletID == walletID {
			all = append(all, *t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) CreatePendingDeposit(_ context.Context, trx *models.WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trx.Reference != nil {
		for _, t := range s.trxs {
			if t.Reference != nil && *t.Reference == *trx.Reference {
				return fmt.Errorf("duplicate reference %s", *trx.Reference)
			}
		}
	}
	if trx.ID == uuid.Nil {
		trx.ID = uuid.New()
	}
	trx.CreatedAt = time.Now().UTC()
	cp := *trx
	s.trxs[trx.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByReference(_ context.Context, walletID uuid.UUID, reference string) (models.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.trxs {
		if t.WalletID == walletID && t.Reference != nil && *t.Reference == reference {
			return *t, nil
		}
	}
	return models.WalletTransaction{}, ErrTransactionNotFound
}

func (s *MemoryStore) SettleDeposit(_ context.Context, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trxs[trxID]
	if !ok {
		return models.WalletTransaction{}, models.Wallet{}, ErrTransactionNotFound
	}
	w, ok := s.wallets[t.WalletID]
	if !ok {
		return models.WalletTransaction{}, models.Wallet{}, fmt.Errorf("wallet not found for transaction %s", trxID)
	}

	// The model guard refuses already-terminal rows; those are returned
	// as-is with no balance effect.
	if err := t.MarkCompleted(); err == nil {
		w.Balance = w.Balance.Add(t.Amount)
	}
	return *t, *w, nil
}

func (s *MemoryStore) FailDeposit(_ context.Context, trxID uuid.UUID) (models.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trxs[trxID]
	if !ok {
		return models.WalletTransaction{}, ErrTransactionNotFound
	}
	// Already-terminal rows are returned unchanged.
	_ = t.MarkFailed()
	return *t, nil
}

func (s *MemoryStore) Withdraw(_ context.Context, walletID uuid.UUID, trx *models.WalletTransaction) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return models.Wallet{}, fmt.Errorf("wallet %s not found", walletID)
	}
	if w.Balance.LessThan(trx.Amount) {
		return models.Wallet{}, ErrInsufficientBalance
	}
	w.Balance = w.Balance.Sub(trx.Amount)

	if trx.ID == uuid.Nil {
		trx.ID = uuid.New()
	}
	trx.CreatedAt = time.Now().UTC()
	cp := *trx
	s.trxs[trx.ID] = &cp
	return *w, nil
}

func (s *MemoryStore) RefundWithdrawal(_ context.Context, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trxs[trxID]
	if !ok || t.Type != models.WalletTrxWithdrawal {
		return models.WalletTransaction{}, models.Wallet{}, ErrTransactionNotFound
	}
	if err := t.MarkFailed(); err != nil {
		return models.WalletTransaction{}, models.Wallet{}, err
	}
	w := s.wallets[t.WalletID]
	w.Balance = w.Balance.Add(t.Amount)
	return *t, *w, nil
}

func (s *MemoryStore) SetWalletPin(_ context.Context, walletID uuid.UUID, pinHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet %s not found", walletID)
	}
	w.PinHash = &pinHash
	return nil
}
