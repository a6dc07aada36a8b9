package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid_backend/internal/models"

	"gorm.io/gorm"
)

// GormStore is the Postgres-backed ledger store. Every composite operation
// runs inside one DB transaction; the conditional-UPDATE RowsAffected checks
// are what keep concurrent settlements and withdrawals from double-applying.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error) {
	var w models.Wallet
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = models.Wallet{UserID: userID}
		if err := s.DB.WithContext(ctx).Create(&w).Error; err != nil {
			// Lost a race against another first-access; load the winner.
			var again models.Wallet
			if ferr := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&again).Error; ferr == nil {
				return again, nil
			}
			return models.Wallet{}, err
		}
		return w, nil
	}
	return w, err
}

func (s *GormStore) ListTransactions(ctx context.Context, walletID uuid.UUID, page, limit int) ([]models.WalletTransaction, int64, error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("wallet_id = ?", walletID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var trxs []models.WalletTransaction
	err := s.DB.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&trxs).Error
	return trxs, total, err
}

func (s *GormStore) CreatePendingDeposit(ctx context.Context, trx *models.WalletTransaction) error {
	return s.DB.WithContext(ctx).Create(trx).Error
}

func (s *GormStore) FindByReference(ctx context.Context, walletID uuid.UUID, reference string) (models.WalletTransaction, error) {
	var trx models.WalletTransaction
	err := s.DB.WithContext(ctx).
		Where("wallet_id = ? AND reference = ?", walletID, reference).
		First(&trx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WalletTransaction{}, ErrTransactionNotFound
	}
	return trx, err
}

func (s *GormStore) SettleDeposit(ctx context.Context, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error) {
	var trx models.WalletTransaction
	var w models.Wallet

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trx, "id = ?", trxID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		// The model guard decides the transition; already-terminal rows are
		// returned as-is with no balance effect.
		if err := trx.MarkCompleted(); err != nil {
			return tx.First(&w, "id = ?", trx.WalletID).Error
		}

		// Claim the pending row. Under concurrency only one transaction sees
		// RowsAffected == 1; everyone else finds the row already terminal.
		claim := tx.Model(&models.WalletTransaction{}).
			Where("id = ? AND status = ?", trxID, models.WalletTrxPending).
			Update("status", models.WalletTrxCompleted)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			// Lost the race; reload the winner's terminal state.
			if err := tx.First(&trx, "id = ?", trxID).Error; err != nil {
				return err
			}
			return tx.First(&w, "id = ?", trx.WalletID).Error
		}

		credit := tx.Model(&models.Wallet{}).
			Where("id = ?", trx.WalletID).
			Update("balance", gorm.Expr("balance + ?", trx.Amount))
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			return fmt.Errorf("wallet not found for transaction %s", trxID)
		}

		return tx.First(&w, "id = ?", trx.WalletID).Error
	})

	return trx, w, err
}

func (s *GormStore) FailDeposit(ctx context.Context, trxID uuid.UUID) (models.WalletTransaction, error) {
	var trx models.WalletTransaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trx, "id = ?", trxID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		if err := trx.MarkFailed(); err != nil {
			// already terminal, return as-is
			return nil
		}

		res := tx.Model(&models.WalletTransaction{}).
			Where("id = ? AND status = ?", trxID, models.WalletTrxPending).
			Update("status", models.WalletTrxFailed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.First(&trx, "id = ?", trxID).Error
		}
		return nil
	})
	return trx, err
}

func (s *GormStore) Withdraw(ctx context.Context, walletID uuid.UUID, trx *models.WalletTransaction) (models.Wallet, error) {
	var w models.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Check-and-debit as one conditional UPDATE so a stale balance read
		// can never let two withdrawals overdraw the wallet.
		debit := tx.Model(&models.Wallet{}).
			Where("id = ? AND balance >= ?", walletID, trx.Amount).
			Update("balance", gorm.Expr("balance - ?", trx.Amount))
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		if err := tx.Create(trx).Error; err != nil {
			return err
		}
		return tx.First(&w, "id = ?", walletID).Error
	})
	return w, err
}

func (s *GormStore) RefundWithdrawal(ctx context.Context, trxID uuid.UUID) (models.WalletTransaction, models.Wallet, error) {
	var trx models.WalletTransaction
	var w models.Wallet

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trx, "id = ? AND type = ?", trxID, models.WalletTrxWithdrawal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		if err := trx.MarkFailed(); err != nil {
			return err
		}

		claim := tx.Model(&models.WalletTransaction{}).
			Where("id = ? AND status = ?", trxID, models.WalletTrxPending).
			Update("status", models.WalletTrxFailed)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return models.ErrTrxNotPending
		}

		credit := tx.Model(&models.Wallet{}).
			Where("id = ?", trx.WalletID).
			Update("balance", gorm.Expr("balance + ?", trx.Amount))
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			return fmt.Errorf("wallet not found for transaction %s", trxID)
		}

		return tx.First(&w, "id = ?", trx.WalletID).Error
	})

	return trx, w, err
}

func (s *GormStore) SetWalletPin(ctx context.Context, walletID uuid.UUID, pinHash string) error {
	res := s.DB.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("pin_hash", pinHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("wallet %s not found", walletID)
	}
	return nil
}
