package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"certifai/internal/verification/models"
	"certifai/pkg/platform/sentinel"
	"certifai/pkg/requestcontext"
)

// PostgresStore persists verification records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, email, full_name, COALESCE(wallet_address, ''), created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Email, &u.FullName, &u.WalletAddress, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetCertificate(ctx context.Context, userID, certificateID string) (*models.Certificate, error) {
	query := `
		SELECT id, user_id, title, institution_name, program_name, issue_date,
		       COALESCE(certificate_url, ''), COALESCE(verification_url_pdf, ''),
		       COALESCE(verification_url, ''), arweave_url, nft_mint_address,
		       verification_status, verification_details, created_at, updated_at
		FROM certificates
		WHERE id = $1 AND user_id = $2
	`
	var (
		c       models.Certificate
		details []byte
	)
	err := s.db.QueryRowContext(ctx, query, certificateID, userID).Scan(
		&c.ID, &c.UserID, &c.Title, &c.InstitutionName, &c.ProgramName, &c.IssueDate,
		&c.CertificateURL, &c.VerificationURLPDF, &c.VerificationURL,
		&c.ArweaveURL, &c.NFTMintAddress,
		&c.Status, &details, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	if len(details) > 0 {
		var result models.AnalysisResult
		if err := json.Unmarshal(details, &result); err != nil {
			return nil, fmt.Errorf("decode verification details: %w", err)
		}
		c.Details = &result
	}
	return &c, nil
}

func (s *PostgresStore) UpdateCertificateStatus(ctx context.Context, certificateID string, status models.Status, details *models.AnalysisResult) error {
	var payload []byte
	if details != nil {
		var err error
		payload, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode verification details: %w", err)
		}
	}
	var current string
	err := s.db.QueryRowContext(ctx,
		`SELECT verification_status FROM certificates WHERE id = $1`, certificateID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("update certificate status: %w", err)
	}
	if !models.Status(current).CanTransition(status) {
		return fmt.Errorf("transition %s to %s: %w", current, status, sentinel.ErrInvalidState)
	}

	// conditional on the status just read, so a concurrent transition loses cleanly
	query := `
		UPDATE certificates
		SET verification_status = $2,
		    verification_details = COALESCE($3, verification_details),
		    updated_at = $4
		WHERE id = $1 AND verification_status = $5
	`
	res, err := s.db.ExecContext(ctx, query, certificateID, string(status), payload, requestcontext.Now(ctx), current)
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("certificate status changed concurrently: %w", sentinel.ErrConflict)
	}
	return nil
}

// ClaimPending uses the database's conditional update as the compare-and-swap:
// only a pending row transitions, so concurrent claimants lose cleanly.
func (s *PostgresStore) ClaimPending(ctx context.Context, certificateID string) error {
	query := `
		UPDATE certificates
		SET verification_status = $2, updated_at = $3
		WHERE id = $1 AND verification_status = $4
	`
	res, err := s.db.ExecContext(ctx, query, certificateID,
		string(models.StatusInProgress), requestcontext.Now(ctx), string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("claim certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim certificate: %w", err)
	}
	if affected == 0 {
		return s.classifyClaimFailure(ctx, certificateID)
	}
	return nil
}

func (s *PostgresStore) classifyClaimFailure(ctx context.Context, certificateID string) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT verification_status FROM certificates WHERE id = $1`, certificateID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("certificate not found: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("claim certificate: %w", err)
	}
	if models.Status(status) == models.StatusInProgress {
		return fmt.Errorf("certificate already claimed: %w", sentinel.ErrConflict)
	}
	return fmt.Errorf("certificate in state %s: %w", status, sentinel.ErrInvalidState)
}

func (s *PostgresStore) ReleaseClaim(ctx context.Context, certificateID string) error {
	query := `
		UPDATE certificates
		SET verification_status = $2, updated_at = $3
		WHERE id = $1 AND verification_status = $4
	`
	_, err := s.db.ExecContext(ctx, query, certificateID,
		string(models.StatusPending), requestcontext.Now(ctx), string(models.StatusInProgress))
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendVerificationLog(ctx context.Context, certificateID, step, status string, details map[string]any) (*models.LogRecord, error) {
	var payload []byte
	if details != nil {
		var err error
		payload, err = json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("encode log details: %w", err)
		}
	}
	record := &models.LogRecord{
		ID:            uuid.NewString(),
		CertificateID: certificateID,
		Step:          step,
		Status:        status,
		Details:       details,
		CreatedAt:     requestcontext.Now(ctx),
	}
	query := `
		INSERT INTO verification_logs (id, certificate_id, verification_step, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.CertificateID, record.Step, record.Status, payload, record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append verification log: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT verification_status, COUNT(*) FROM certificates GROUP BY verification_status`)
	if err != nil {
		return nil, fmt.Errorf("count certificates: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan certificate counts: %w", err)
		}
		counts[models.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count certificates: %w", err)
	}
	return counts, nil
}
