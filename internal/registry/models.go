// Package registry stores users, authorization allow-lists, and audit entries
// in Firestore. The OCR pipeline reads users from here; all writes belong to
// the admin API.
package registry

import "time"

// Roles assignable to a user.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered person whose name is matched against extracted text.
type User struct {
	ID             string     `firestore:"-" json:"id"`
	Email          string     `firestore:"email" json:"email"`
	Name           string     `firestore:"name" json:"name"`
	AlternateNames []string   `firestore:"alternate_names" json:"alternate_names"`
	Role           string     `firestore:"role" json:"role"`
	Organization   string     `firestore:"organization" json:"organization"`
	IsDeleted      bool       `firestore:"is_deleted" json:"is_deleted"`
	DeletedAt      *time.Time `firestore:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `firestore:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `firestore:"updated_at" json:"updated_at"`
}

// UserCreate carries the fields accepted when creating a user.
type UserCreate struct {
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	AlternateNames []string `json:"alternate_names"`
	Role           string   `json:"role"`
	Organization   string   `json:"organization"`
}

// UserUpdate carries a partial user update; nil fields are left untouched.
type UserUpdate struct {
	Name           *string   `json:"name,omitempty"`
	AlternateNames *[]string `json:"alternate_names,omitempty"`
	Role           *string   `json:"role,omitempty"`
	Organization   *string   `json:"organization,omitempty"`
}

// AuthDomain is an allow-list entry granting access to a whole email domain.
type AuthDomain struct {
	ID          string    `firestore:"-" json:"id"`
	Domain      string    `firestore:"domain" json:"domain"`
	Description string    `firestore:"description" json:"description"`
	IsActive    bool      `firestore:"is_active" json:"is_active"`
	CreatedAt   time.Time `firestore:"created_at" json:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at" json:"updated_at"`
}

// AuthDomainCreate carries the fields accepted when registering a domain.
type AuthDomainCreate struct {
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

// AuthDomainUpdate carries a partial domain update.
type AuthDomainUpdate struct {
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AllowedEmail is an allow-list entry granting access to a single address.
type AllowedEmail struct {
	ID          string    `firestore:"-" json:"id"`
	Email       string    `firestore:"email" json:"email"`
	Description string    `firestore:"description" json:"description"`
	IsActive    bool      `firestore:"is_active" json:"is_active"`
	CreatedAt   time.Time `firestore:"created_at" json:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at" json:"updated_at"`
}

// AllowedEmailCreate carries the fields accepted when registering an email.
type AllowedEmailCreate struct {
	Email       string `json:"email"`
	Description string `json:"description"`
}

// AllowedEmailUpdate carries a partial allowed-email update.
type AllowedEmailUpdate struct {
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AuthSettings controls how the allow-lists are applied during sign-in.
type AuthSettings struct {
	AllowOnlyListedDomains bool      `firestore:"allow_only_listed_domains" json:"allow_only_listed_domains"`
	AllowPersonalGmail     bool      `firestore:"allow_personal_gmail" json:"allow_personal_gmail"`
	AllowListedEmailsOnly  bool      `firestore:"allow_listed_emails_only" json:"allow_listed_emails_only"`
	UpdatedAt              time.Time `firestore:"updated_at" json:"updated_at"`
}

// DefaultAuthSettings is the configuration written on first read.
func DefaultAuthSettings() AuthSettings {
	return AuthSettings{
		AllowOnlyListedDomains: true,
		AllowPersonalGmail:     false,
		AllowListedEmailsOnly:  true,
		UpdatedAt:              time.Now().UTC(),
	}
}

// AuthSettingsUpdate carries a partial settings update.
type AuthSettingsUpdate struct {
	AllowOnlyListedDomains *bool `json:"allow_only_listed_domains,omitempty"`
	AllowPersonalGmail     *bool `json:"allow_personal_gmail,omitempty"`
	AllowListedEmailsOnly  *bool `json:"allow_listed_emails_only,omitempty"`
}

// AuditEntry records an admin or authorization action.
type AuditEntry struct {
	LogID     string    `firestore:"log_id" json:"log_id"`
	UserID    string    `firestore:"user_id" json:"user_id"`
	Action    string    `firestore:"action" json:"action"`
	Details   string    `firestore:"details" json:"details"`
	IPAddress string    `firestore:"ip_address" json:"ip_address"`
	UserAgent string    `firestore:"user_agent" json:"user_agent"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
}
