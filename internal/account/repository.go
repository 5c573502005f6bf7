package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts. Implementations return copies; callers
// never share a live Account between requests.
type Repository interface {
	ICNumberExists(ctx context.Context, icNumber string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	// Add inserts account and assigns its ID. It returns ErrDuplicate when
	// a unique field is already taken.
	Add(ctx context.Context, account *Account) error
	GetByICNumber(ctx context.Context, icNumber string) (Account, error)
	Update(ctx context.Context, account Account) error
}

const uniqueViolation = "23505"

const accountColumns = `id, customer_name, ic_number, email, phone_number, pin_hash,
        has_accepted_privacy_policy, is_email_verified, is_phone_verified,
        use_face_biometric, is_face_biometric_enabled,
        use_fingerprint_biometric, is_fingerprint_biometric_enabled,
        created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ICNumberExists reports whether an account uses icNumber.
func (r *PostgresRepository) ICNumberExists(ctx context.Context, icNumber string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE ic_number = $1)`, icNumber)
}

// EmailExists reports whether an account uses email.
func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
}

// PhoneExists reports whether an account uses phone.
func (r *PostgresRepository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE phone_number = $1)`, phone)
}

func (r *PostgresRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

// Add inserts a new account and fills in its ID and timestamps.
func (r *PostgresRepository) Add(ctx context.Context, account *Account) error {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (customer_name, ic_number, email, phone_number, pin_hash,
        has_accepted_privacy_policy, is_email_verified, is_phone_verified,
        use_face_biometric, is_face_biometric_enabled,
        use_fingerprint_biometric, is_fingerprint_biometric_enabled,
        created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
        RETURNING id`,
		account.CustomerName, account.ICNumber, account.Email, account.PhoneNumber, account.PINHash,
		account.HasAcceptedPrivacyPolicy, account.IsEmailVerified, account.IsPhoneVerified,
		account.UseFaceBiometric, account.IsFaceBiometricEnabled,
		account.UseFingerprintBiometric, account.IsFingerprintBiometricEnabled,
		now)
	var id int64
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return err
	}
	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetByICNumber fetches an account by IC number.
func (r *PostgresRepository) GetByICNumber(ctx context.Context, icNumber string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE ic_number = $1`, icNumber)
	var a Account
	err := row.Scan(&a.ID, &a.CustomerName, &a.ICNumber, &a.Email, &a.PhoneNumber, &a.PINHash,
		&a.HasAcceptedPrivacyPolicy, &a.IsEmailVerified, &a.IsPhoneVerified,
		&a.UseFaceBiometric, &a.IsFaceBiometricEnabled,
		&a.UseFingerprintBiometric, &a.IsFingerprintBiometricEnabled,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

// Update writes the mutable fields of account. Uniqueness fields are never
// rewritten.
func (r *PostgresRepository) Update(ctx context.Context, account Account) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET
        customer_name = $2, pin_hash = $3, has_accepted_privacy_policy = $4,
        is_email_verified = $5, is_phone_verified = $6,
        use_face_biometric = $7, is_face_biometric_enabled = $8,
        use_fingerprint_biometric = $9, is_fingerprint_biometric_enabled = $10,
        updated_at = $11
        WHERE id = $1`,
		account.ID, account.CustomerName, account.PINHash, account.HasAcceptedPrivacyPolicy,
		account.IsEmailVerified, account.IsPhoneVerified,
		account.UseFaceBiometric, account.IsFaceBiometricEnabled,
		account.UseFingerprintBiometric, account.IsFingerprintBiometricEnabled,
		time.Now().UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
