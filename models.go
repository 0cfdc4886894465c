package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationPurpose binds a verification key to the one transition it may drive
type VerificationPurpose int

const (
	// PurposeNone means no verification is pending
	PurposeNone VerificationPurpose = 0
	// PurposeResetPassword is reserved for password reset flows
	PurposeResetPassword VerificationPurpose = 1
	// PurposeChangeEmail is reserved for email change flows
	PurposeChangeEmail VerificationPurpose = 2
	// PurposeConfirmAccount confirms a newly registered account
	PurposeConfirmAccount VerificationPurpose = 3
)

func (p VerificationPurpose) String() string {
	switch p {
	case PurposeResetPassword:
		return "reset_password"
	case PurposeChangeEmail:
		return "change_email"
	case PurposeConfirmAccount:
		return "confirm_account"
	default:
		return "none"
	}
}

// Verification is the pending verification attached to an account.
// The zero value means no verification is pending.
type Verification struct {
	Key     string              `bun:"key,nullzero" json:"-"`
	Purpose VerificationPurpose `bun:"purpose,nullzero" json:"purpose,omitempty"`
	SentAt  *time.Time          `bun:"key_sent_at,nullzero" json:"key_sent_at,omitempty"`
	Storage string              `bun:"storage,nullzero" json:"-"`
}

// IsZero reports whether no verification is pending
func (v Verification) IsZero() bool {
	return v.Key == "" && v.Purpose == PurposeNone && v.SentAt == nil && v.Storage == ""
}

// UserAccount is the identity root
type UserAccount struct {
	bun.BaseModel `bun:"table:user_accounts,alias:ua"`

	ID                uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	Email             string             `bun:"email,notnull,unique" json:"email"`
	IsEmailVerified   bool               `bun:"is_email_verified,notnull" json:"is_email_verified"`
	EmailVerifiedAt   *time.Time         `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	IsLoginAllowed    bool               `bun:"is_login_allowed,notnull" json:"is_login_allowed"`
	LastLoginAt       *time.Time         `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	LastFailedLoginAt *time.Time         `bun:"last_failed_login_at,nullzero" json:"last_failed_login_at,omitempty"`
	FailedLoginCount  int                `bun:"failed_login_count,notnull" json:"failed_login_count"`
	PasswordHash      string             `bun:"password_hash,nullzero" json:"-"`
	PasswordChangedAt *time.Time         `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	Verification      Verification       `bun:"embed:verification_" json:"verification"`
	CreatedAt         time.Time          `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time          `bun:"updated_at,notnull" json:"updated_at"`
	Accounts          []*ExternalAccount `bun:"rel:has-many,join:id=user_account_id" json:"accounts,omitempty"`
	Claims            []*UserClaim       `bun:"rel:has-many,join:id=user_account_id" json:"claims,omitempty"`
}

// ExternalAccount links a third party identity to an account
type ExternalAccount struct {
	bun.BaseModel `bun:"table:external_accounts,alias:ea"`

	UserAccountID uuid.UUID  `bun:"user_account_id,notnull,type:uuid" json:"user_account_id"`
	Provider      string     `bun:"provider,pk" json:"provider"`
	Subject       string     `bun:"subject,pk" json:"subject"`
	Email         string     `bun:"email" json:"email,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// UserClaim is arbitrary key/value metadata owned by an account
type UserClaim struct {
	bun.BaseModel `bun:"table:user_claims,alias:uc"`

	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserAccountID uuid.UUID `bun:"user_account_id,notnull,type:uuid" json:"user_account_id"`
	Type          string    `bun:"type,notnull" json:"type"`
	Value         string    `bun:"value" json:"value"`
	ValueType     string    `bun:"value_type" json:"value_type,omitempty"`
}

// HasPassword reports whether the account has a local credential
func (a *UserAccount) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// HasVerification reports whether a verification is pending
func (a *UserAccount) HasVerification() bool {
	return a != nil && !a.Verification.IsZero()
}

// SetPassword stores a password hash and stamps the change time
func (a *UserAccount) SetPassword(hash string, at time.Time) {
	a.PasswordHash = hash
	a.PasswordChangedAt = &at
}

// MarkEmailVerified promotes the account to verified and login-allowed
func (a *UserAccount) MarkEmailVerified(at time.Time) {
	a.IsEmailVerified = true
	a.EmailVerifiedAt = &at
	a.IsLoginAllowed = true
}

// Touch updates the modification time
func (a *UserAccount) Touch(at time.Time) {
	a.UpdatedAt = at
}

// ProviderNames returns the distinct provider names of the linked external accounts
func (a *UserAccount) ProviderNames() []string {
	if a == nil {
		return nil
	}
	seen := map[string]struct{}{}
	names := make([]string, 0, len(a.Accounts))
	for _, ext := range a.Accounts {
		if ext == nil || ext.Provider == "" {
			continue
		}
		if _, ok := seen[ext.Provider]; ok {
			continue
		}
		seen[ext.Provider] = struct{}{}
		names = append(names, ext.Provider)
	}
	return names
}

// EmailDomain returns the text after the last @ in the account email
func (a *UserAccount) EmailDomain() string {
	if a == nil {
		return ""
	}
	return EmailDomain(a.Email)
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the text after the last @ in email
func EmailDomain(email string) string {
	idx := strings.LastIndex(email, "@")
	if idx < 0 || idx == len(email)-1 {
		return ""
	}
	return email[idx+1:]
}
