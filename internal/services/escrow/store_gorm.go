package escrow

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid_backend/internal/models"

	"gorm.io/gorm"
)

// GormStore is the Postgres-backed escrow store. Decision saves are
// conditional on status = pending, which is what makes approve/reject a
// one-way transition even under concurrent admins.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	var p models.Project
	err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Project{}, ErrProjectNotFound
	}
	return p, err
}

func (s *GormStore) CreateTransfer(ctx context.Context, t *models.EscrowTransfer) error {
	return s.DB.WithContext(ctx).Create(t).Error
}

func (s *GormStore) CreateWithdrawal(ctx context.Context, w *models.EscrowWithdrawal) error {
	return s.DB.WithContext(ctx).Create(w).Error
}

func (s *GormStore) GetTransfer(ctx context.Context, id uuid.UUID) (models.EscrowTransfer, error) {
	var t models.EscrowTransfer
	err := s.DB.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.EscrowTransfer{}, ErrTransferNotFound
	}
	return t, err
}

func (s *GormStore) GetWithdrawal(ctx context.Context, id uuid.UUID) (models.EscrowWithdrawal, error) {
	var w models.EscrowWithdrawal
	err := s.DB.WithContext(ctx).First(&w, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.EscrowWithdrawal{}, ErrWithdrawalNotFound
	}
	return w, err
}

func (s *GormStore) SaveTransferDecision(ctx context.Context, t *models.EscrowTransfer) error {
	res := s.DB.WithContext(ctx).Model(&models.EscrowTransfer{}).
		Where("id = ? AND status = ?", t.ID, models.EscrowPending).
		Updates(map[string]interface{}{
			"status":    t.Status,
			"date_sent": t.DateSent,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrEscrowNotPending
	}
	return nil
}

func (s *GormStore) SaveWithdrawalDecision(ctx context.Context, w *models.EscrowWithdrawal) error {
	res := s.DB.WithContext(ctx).Model(&models.EscrowWithdrawal{}).
		Where("id = ? AND status = ?", w.ID, models.EscrowPending).
		Updates(map[string]interface{}{
			"status": w.Status,
			"date":   w.Date,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrEscrowNotPending
	}
	return nil
}

func (s *GormStore) ListTransfers(ctx context.Context, clientID *uuid.UUID) ([]models.EscrowTransfer, error) {
	q := s.DB.WithContext(ctx).Model(&models.EscrowTransfer{}).
		Preload("Project").
		Preload("TransferToUser")
	if clientID != nil {
		q = q.Joins("JOIN projects ON projects.id = escrow_transfers.project_id").
			Where("projects.client_id = ?", *clientID)
	}

	var transfers []models.EscrowTransfer
	err := q.Order("escrow_transfers.created_at DESC").Find(&transfers).Error
	return transfers, err
}

func (s *GormStore) ListWithdrawals(ctx context.Context, clientID *uuid.UUID) ([]models.EscrowWithdrawal, error) {
	q := s.DB.WithContext(ctx).Model(&models.EscrowWithdrawal{}).
		Preload("Project")
	if clientID != nil {
		q = q.Joins("JOIN projects ON projects.id = escrow_withdrawals.project_id").
			Where("projects.client_id = ?", *clientID)
	}

	var withdrawals []models.EscrowWithdrawal
	err := q.Order("escrow_withdrawals.created_at DESC").Find(&withdrawals).Error
	return withdrawals, err
}

func (s *GormStore) CountTransfers(ctx context.Context, clientID *uuid.UUID, status *models.EscrowStatus) (int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.EscrowTransfer{})
	if clientID != nil {
		q = q.Joins("JOIN projects ON projects.id = escrow_transfers.project_id").
			Where("projects.client_id = ?", *clientID)
	}
	if status != nil {
		q = q.Where("escrow_transfers.status = ?", *status)
	}

	var count int64
	err := q.Count(&count).Error
	return count, err
}
