package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"certifai/internal/verification/models"
	"certifai/pkg/platform/sentinel"
	"certifai/pkg/requestcontext"
)

// MemoryStore is an in-memory record store for tests.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	certificates map[string]*models.Certificate
	logs         []*models.LogRecord
}

// NewMemory constructs an empty in-memory record store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*models.User),
		certificates: make(map[string]*models.Certificate),
	}
}

// SeedUser adds a user. Test setup only.
func (s *MemoryStore) SeedUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// SeedCertificate adds a certificate. Test setup only.
func (s *MemoryStore) SeedCertificate(c *models.Certificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.certificates[c.ID] = &copied
}

// Certificate returns the stored certificate for assertions. Test use only.
func (s *MemoryStore) Certificate(certificateID string) *models.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.certificates[certificateID]
}

// Logs returns the appended durable rows for assertions. Test use only.
func (s *MemoryStore) Logs() []*models.LogRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]*models.LogRecord, len(s.logs))
	copy(logs, s.logs)
	return logs
}

func (s *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) GetCertificate(_ context.Context, userID, certificateID string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certificates[certificateID]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
	}
	copied := *c
	return &copied, nil
}

func (s *MemoryStore) UpdateCertificateStatus(ctx context.Context, certificateID string, status models.Status, details *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[certificateID]
	if !ok {
		return fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
	}
	if !c.Status.CanTransition(status) {
		return fmt.Errorf("transition %s to %s: %w", c.Status, status, sentinel.ErrInvalidState)
	}
	c.Status = status
	if details != nil {
		c.Details = details
	}
	c.UpdatedAt = requestcontext.Now(ctx)
	return nil
}

func (s *MemoryStore) ClaimPending(ctx context.Context, certificateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[certificateID]
	if !ok {
		return fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
	}
	switch c.Status {
	case models.StatusPending:
		c.Status = models.StatusInProgress
		c.UpdatedAt = requestcontext.Now(ctx)
		return nil
	case models.StatusInProgress:
		return fmt.Errorf("certificate already claimed: %w", sentinel.ErrConflict)
	default:
		return fmt.Errorf("certificate in state %s: %w", c.Status, sentinel.ErrInvalidState)
	}
}

func (s *MemoryStore) ReleaseClaim(ctx context.Context, certificateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certificates[certificateID]
	if !ok {
		return fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
	}
	if c.Status == models.StatusInProgress {
		c.Status = models.StatusPending
		c.UpdatedAt = requestcontext.Now(ctx)
	}
	return nil
}

func (s *MemoryStore) AppendVerificationLog(ctx context.Context, certificateID, step, status string, details map[string]any) (*models.LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := &models.LogRecord{
		ID:            uuid.NewString(),
		CertificateID: certificateID,
		Step:          step,
		Status:        status,
		Details:       details,
		CreatedAt:     requestcontext.Now(ctx),
	}
	s.logs = append(s.logs, record)
	return record, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Status]int)
	for _, c := range s.certificates {
		counts[c.Status]++
	}
	return counts, nil
}
