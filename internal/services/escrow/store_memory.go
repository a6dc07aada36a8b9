package escrow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitegrid/sitegrid_backend/internal/models"
)

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu          sync.Mutex
	projects    map[uuid.UUID]models.Project
	transfers   map[uuid.UUID]*models.EscrowTransfer
	withdrawals map[uuid.UUID]*models.EscrowWithdrawal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:    make(map[uuid.UUID]models.Project),
		transfers:   make(map[uuid.UUID]*models.EscrowTransfer),
		withdrawals: make(map[uuid.UUID]*models.EscrowWithdrawal),
	}
}

// AddProject seeds a project for tests.
func (s *MemoryStore) AddProject(p models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

func (s *MemoryStore) GetProject(_ context.Context, id uuid.UUID) (models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *MemoryStore) CreateTransfer(_ context.Context, t *models.EscrowTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	cp := *t
	s.transfers[t.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateWithdrawal(_ context.Context, w *models.EscrowWithdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	w.CreatedAt = time.Now().UTC()
	cp := *w
	s.withdrawals[w.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTransfer(_ context.Context, id uuid.UUID) (models.EscrowTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return models.EscrowTransfer{}, ErrTransferNotFound
	}
	return *t, nil
}

func (s *MemoryStore) GetWithdrawal(_ context.Context, id uuid.UUID) (models.EscrowWithdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.withdrawals[id]
	if !ok {
		return models.EscrowWithdrawal{}, ErrWithdrawalNotFound
	}
	return *w, nil
}

func (s *MemoryStore) SaveTransferDecision(_ context.Context, t *models.EscrowTransfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transfers[t.ID]
	if !ok {
		return ErrTransferNotFound
	}
	if cur.Status != models.EscrowPending {
		return models.ErrEscrowNotPending
	}
	cur.Status = t.Status
	cur.DateSent = t.DateSent
	return nil
}

func (s *MemoryStore) SaveWithdrawalDecision(_ context.Context, w *models.EscrowWithdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.withdrawals[w.ID]
	if !ok {
		return ErrWithdrawalNotFound
	}
	if cur.Status != models.EscrowPending {
		return models.ErrEscrowNotPending
	}
	cur.Status = w.Status
	cur.Date = w.Date
	return nil
}

func (s *MemoryStore) ListTransfers(_ context.Context, clientID *uuid.UUID) ([]models.EscrowTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.EscrowTransfer
	for _, t := range s.transfers {
		if clientID != nil && s.projects[t.ProjectID].ClientID != *clientID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListWithdrawals(_ context.Context, clientID *uuid.UUID) ([]models.EscrowWithdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.EscrowWithdrawal
	for _, w := range s.withdrawals {
		if clientID != nil && s.projects[w.ProjectID].ClientID != *clientID {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CountTransfers(_ context.Context, clientID *uuid.UUID, status *models.EscrowStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, t := range s.transfers {
		if clientID != nil && s.projects[t.ProjectID].ClientID != *clientID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		count++
	}
	return count, nil
}
