package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// accountRow is the GORM mapping of the accounts table.
type accountRow struct {
	ID                            int64     `gorm:"primaryKey;autoIncrement"`
	CustomerName                  string    `gorm:"type:varchar(100);not null"`
	ICNumber                      string    `gorm:"column:ic_number;type:varchar(15);not null;uniqueIndex"`
	Email                         string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	PhoneNumber                   string    `gorm:"type:varchar(16);not null;uniqueIndex"`
	PINHash                       string    `gorm:"column:pin_hash;type:varchar(255);not null;default:''"`
	HasAcceptedPrivacyPolicy      bool      `gorm:"not null;default:false"`
	IsEmailVerified               bool      `gorm:"not null;default:false"`
	IsPhoneVerified               bool      `gorm:"not null;default:false"`
	UseFaceBiometric              bool      `gorm:"not null;default:false"`
	IsFaceBiometricEnabled        bool      `gorm:"not null;default:false"`
	UseFingerprintBiometric       bool      `gorm:"not null;default:false"`
	IsFingerprintBiometricEnabled bool      `gorm:"not null;default:false"`
	CreatedAt                     time.Time `gorm:"not null"`
	UpdatedAt                     time.Time `gorm:"not null"`
}

func (accountRow) TableName() string { return "accounts" }

func rowFromAccount(a Account) accountRow {
	return accountRow{
		ID:                            a.ID,
		CustomerName:                  a.CustomerName,
		ICNumber:                      a.ICNumber,
		Email:                         a.Email,
		PhoneNumber:                   a.PhoneNumber,
		PINHash:                       a.PINHash,
		HasAcceptedPrivacyPolicy:      a.HasAcceptedPrivacyPolicy,
		IsEmailVerified:               a.IsEmailVerified,
		IsPhoneVerified:               a.IsPhoneVerified,
		UseFaceBiometric:              a.UseFaceBiometric,
		IsFaceBiometricEnabled:        a.IsFaceBiometricEnabled,
		UseFingerprintBiometric:       a.UseFingerprintBiometric,
		IsFingerprintBiometricEnabled: a.IsFingerprintBiometricEnabled,
		CreatedAt:                     a.CreatedAt,
		UpdatedAt:                     a.UpdatedAt,
	}
}

func (r accountRow) account() Account {
	return Account{
		ID:                            r.ID,
		CustomerName:                  r.CustomerName,
		ICNumber:                      r.ICNumber,
		Email:                         r.Email,
		PhoneNumber:                   r.PhoneNumber,
		PINHash:                       r.PINHash,
		HasAcceptedPrivacyPolicy:      r.HasAcceptedPrivacyPolicy,
		IsEmailVerified:               r.IsEmailVerified,
		IsPhoneVerified:               r.IsPhoneVerified,
		UseFaceBiometric:              r.UseFaceBiometric,
		IsFaceBiometricEnabled:        r.IsFaceBiometricEnabled,
		UseFingerprintBiometric:       r.UseFingerprintBiometric,
		IsFingerprintBiometricEnabled: r.IsFingerprintBiometricEnabled,
		CreatedAt:                     r.CreatedAt.UTC(),
		UpdatedAt:                     r.UpdatedAt.UTC(),
	}
}

// GormRepository implements Repository on top of GORM, used with MySQL.
// The *gorm.DB must be opened with TranslateError enabled so duplicate keys
// surface as gorm.ErrDuplicatedKey.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository builds a GORM-backed account repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the accounts table.
func (r *GormRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&accountRow{}); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

func (r *GormRepository) ICNumberExists(ctx context.Context, icNumber string) (bool, error) {
	return r.exists(ctx, "ic_number = ?", icNumber)
}

func (r *GormRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *GormRepository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, "phone_number = ?", phone)
}

func (r *GormRepository) exists(ctx context.Context, cond string, arg string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&accountRow{}).Where(cond, arg).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepository) Add(ctx context.Context, account *Account) error {
	row := rowFromAccount(*account)
	row.ID = 0
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	account.ID = row.ID
	account.CreatedAt = row.CreatedAt.UTC()
	account.UpdatedAt = row.UpdatedAt.UTC()
	return nil
}

func (r *GormRepository) GetByICNumber(ctx context.Context, icNumber string) (Account, error) {
	var row accountRow
	err := r.db.WithContext(ctx).Where("ic_number = ?", icNumber).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return row.account(), nil
}

func (r *GormRepository) Update(ctx context.Context, account Account) error {
	res := r.db.WithContext(ctx).Model(&accountRow{}).Where("id = ?", account.ID).Updates(map[string]any{
		"customer_name":                    account.CustomerName,
		"pin_hash":                         account.PINHash,
		"has_accepted_privacy_policy":      account.HasAcceptedPrivacyPolicy,
		"is_email_verified":                account.IsEmailVerified,
		"is_phone_verified":                account.IsPhoneVerified,
		"use_face_biometric":               account.UseFaceBiometric,
		"is_face_biometric_enabled":        account.IsFaceBiometricEnabled,
		"use_fingerprint_biometric":        account.UseFingerprintBiometric,
		"is_fingerprint_biometric_enabled": account.IsFingerprintBiometricEnabled,
		"updated_at":                       time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports changed rows, not matched rows.
		var count int64
		if err := r.db.WithContext(ctx).Model(&accountRow{}).Where("id = ?", account.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}
