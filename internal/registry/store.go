package registry

import (
	"context"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection    = "users"
	domainsCollection  = "allowed_domains"
	emailsCollection   = "allowed_emails"
	settingsCollection = "auth_settings"
	settingsDocID      = "config"
	auditCollection    = "auth_audit_logs"
)

// Store provides access to the user registry and authorization data.
type Store struct {
	client *firestore.Client
}

// NewStore creates a registry store with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env, falling back to application default credentials.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	const op = "NewStore"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, wrapStoreError(op, err)
	}
	return &Store{client: client}, nil
}

// NewStoreWithClient creates a store with an explicit client (for testing).
func NewStoreWithClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close closes the underlying Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// --- Users ---

// CreateUser registers a new user and returns it with its generated ID.
func (s *Store) CreateUser(ctx context.Context, in UserCreate) (*User, error) {
	const op = "CreateUser"

	now := time.Now().UTC()
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	u := User{
		Email:          in.Email,
		Name:           in.Name,
		AlternateNames: in.AlternateNames,
		Role:           role,
		Organization:   in.Organization,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ref := s.client.Collection(usersCollection).NewDoc()
	if _, err := ref.Set(ctx, u); err != nil {
		return nil, wrapStoreError(op, err)
	}
	u.ID = ref.ID
	return &u, nil
}

// GetUser fetches a single user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	const op = "GetUser"

	snap, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreError(op, err)
	}

	var u User
	if err := snap.DataTo(&u); err != nil {
		return nil, wrapStoreError(op, err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

// ListUsers returns all users, skipping soft-deleted ones unless requested.
func (s *Store) ListUsers(ctx context.Context, includeDeleted bool) ([]User, error) {
	const op = "ListUsers"

	q := s.client.Collection(usersCollection).Query
	if !includeDeleted {
		q = q.Where("is_deleted", "==", false)
	}

	var users []User
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapStoreError(op, err)
		}
		var u User
		if err := snap.DataTo(&u); err != nil {
			return nil, wrapStoreError(op, err)
		}
		u.ID = snap.Ref.ID
		users = append(users, u)
	}
	return users, nil
}

// ActiveUsers returns the non-deleted users in stable creation order. The
// matcher depends on this ordering: on ambiguous text the first-scanned user
// wins.
func (s *Store) ActiveUsers(ctx context.Context) ([]User, error) {
	const op = "ActiveUsers"

	it := s.client.Collection(usersCollection).
		Where("is_deleted", "==", false).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer it.Stop()

	var users []User
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapStoreError(op, err)
		}
		var u User
		if err := snap.DataTo(&u); err != nil {
			return nil, wrapStoreError(op, err)
		}
		u.ID = snap.Ref.ID
		users = append(users, u)
	}
	return users, nil
}

// UpdateUser applies a partial update and returns the updated user.
func (s *Store) UpdateUser(ctx context.Context, userID string, in UserUpdate) (*User, error) {
	const op = "UpdateUser"

	updates := []firestore.Update{
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if in.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *in.Name})
	}
	if in.AlternateNames != nil {
		updates = append(updates, firestore.Update{Path: "alternate_names", Value: *in.AlternateNames})
	}
	if in.Role != nil {
		updates = append(updates, firestore.Update{Path: "role", Value: *in.Role})
	}
	if in.Organization != nil {
		updates = append(updates, firestore.Update{Path: "organization", Value: *in.Organization})
	}

	ref := s.client.Collection(usersCollection).Doc(userID)
	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, wrapStoreError(op, err)
	}
	return s.GetUser(ctx, userID)
}

// DeleteUser soft-deletes a user. The row stays in place so historical
// matches keep resolving; the matcher excludes it from candidates.
func (s *Store) DeleteUser(ctx context.Context, userID string) (*User, error) {
	const op = "DeleteUser"

	now := time.Now().UTC()
	ref := s.client.Collection(usersCollection).Doc(userID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "is_deleted", Value: true},
		{Path: "deleted_at", Value: now},
		{Path: "updated_at", Value: now},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, wrapStoreError(op, err)
	}
	return s.GetUser(ctx, userID)
}

// --- Allowed domains ---

// CreateDomain registers an allow-listed domain. Duplicates are rejected.
func (s *Store) CreateDomain(ctx context.Context, in AuthDomainCreate) (*AuthDomain, error) {
	const op = "CreateDomain"

	dup, err := s.client.Collection(domainsCollection).
		Where("domain", "==", in.Domain).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapStoreError(op, err)
	}
	if len(dup) > 0 {
		return nil, ErrDuplicate
	}

	now := time.Now().UTC()
	d := AuthDomain{
		Domain:      in.Domain,
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ref := s.client.Collection(domainsCollection).Doc(uuid.NewString())
	if _, err := ref.Set(ctx, d); err != nil {
		return nil, wrapStoreError(op, err)
	}
	d.ID = ref.ID
	return &d, nil
}

// GetDomain fetches a single allow-listed domain by ID.
func (s *Store) GetDomain(ctx context.Context, domainID string) (*AuthDomain, error) {
	const op = "GetDomain"

	snap, err := s.client.Collection(domainsCollection).Doc(domainID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreError(op, err)
	}
	var d AuthDomain
	if err := snap.DataTo(&d); err != nil {
		return nil, wrapStoreError(op, err)
	}
	d.ID = snap.Ref.ID
	return &d, nil
}

// ListDomains returns all allow-listed domains, optionally active-only.
func (s *Store) ListDomains(ctx context.Context, activeOnly bool) ([]AuthDomain, error) {
	const op = "ListDomains"

	q := s.client.Collection(domainsCollection).Query
	if activeOnly {
		q = q.Where("is_active", "==", true)
	}

	var domains []AuthDomain
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapStoreError(op, err)
		}
		var d AuthDomain
		if err := snap.DataTo(&d); err != nil {
			return nil, wrapStoreError(op, err)
		}
		d.ID = snap.Ref.ID
		domains = append(domains, d)
	}
	return domains, nil
}

// UpdateDomain applies a partial update and returns the updated domain.
func (s *Store) UpdateDomain(ctx context.Context, domainID string, in AuthDomainUpdate) (*AuthDomain, error) {
	const op = "UpdateDomain"

	updates := []firestore.Update{
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if in.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *in.Description})
	}
	if in.IsActive != nil {
		updates = append(updates, firestore.Update{Path: "is_active", Value: *in.IsActive})
	}

	ref := s.client.Collection(domainsCollection).Doc(domainID)
	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, wrapStoreError(op, err)
	}
	return s.GetDomain(ctx, domainID)
}

// DeleteDomain removes an allow-listed domain. Allow-list entries have an
// independent lifecycle, so this is a hard delete.
func (s *Store) DeleteDomain(ctx context.Context, domainID string) error {
	const op = "DeleteDomain"

	ref := s.client.Collection(domainsCollection).Doc(domainID)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return ErrNotFound
	} else if err != nil {
		return wrapStoreError(op, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return wrapStoreError(op, err)
	}
	return nil
}

// IsDomainActive reports whether the domain has an active allow-list entry.
func (s *Store) IsDomainActive(ctx context.Context, domain string) (bool, error) {
	const op = "IsDomainActive"

	docs, err := s.client.Collection(domainsCollection).
		Where("domain", "==", domain).
		Where("is_active", "==", true).
		Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, wrapStoreError(op, err)
	}
	return len(docs) > 0, nil
}

// --- Allowed emails ---

// CreateEmail registers an allow-listed email address. Duplicates are rejected.
func (s *Store) CreateEmail(ctx context.Context, in AllowedEmailCreate) (*AllowedEmail, error) {
	const op = "CreateEmail"

	dup, err := s.client.Collection(emailsCollection).
		Where("email", "==", in.Email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapStoreError(op, err)
	}
	if len(dup) > 0 {
		return nil, ErrDuplicate
	}

	now := time.Now().UTC()
	e := AllowedEmail{
		Email:       in.Email,
		Description: in.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ref := s.client.Collection(emailsCollection).Doc(uuid.NewString())
	if _, err := ref.Set(ctx, e); err != nil {
		return nil, wrapStoreError(op, err)
	}
	e.ID = ref.ID
	return &e, nil
}

// GetEmail fetches a single allow-listed email by ID.
func (s *Store) GetEmail(ctx context.Context, emailID string) (*AllowedEmail, error) {
	const op = "GetEmail"

	snap, err := s.client.Collection(emailsCollection).Doc(emailID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreError(op, err)
	}
	var e AllowedEmail
	if err := snap.DataTo(&e); err != nil {
		return nil, wrapStoreError(op, err)
	}
	e.ID = snap.Ref.ID
	return &e, nil
}

// ListEmails returns all allow-listed emails, optionally active-only.
func (s *Store) ListEmails(ctx context.Context, activeOnly bool) ([]AllowedEmail, error) {
	const op = "ListEmails"

	q := s.client.Collection(emailsCollection).Query
	if activeOnly {
		q = q.Where("is_active", "==", true)
	}

	var emails []AllowedEmail
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapStoreError(op, err)
		}
		var e AllowedEmail
		if err := snap.DataTo(&e); err != nil {
			return nil, wrapStoreError(op, err)
		}
		e.ID = snap.Ref.ID
		emails = append(emails, e)
	}
	return emails, nil
}

// UpdateEmail applies a partial update and returns the updated entry.
func (s *Store) UpdateEmail(ctx context.Context, emailID string, in AllowedEmailUpdate) (*AllowedEmail, error) {
	const op = "UpdateEmail"

	updates := []firestore.Update{
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if in.Description != nil {
		updates = append(updates, firestore.Update{Path: "description", Value: *in.Description})
	}
	if in.IsActive != nil {
		updates = append(updates, firestore.Update{Path: "is_active", Value: *in.IsActive})
	}

	ref := s.client.Collection(emailsCollection).Doc(emailID)
	if _, err := ref.Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, wrapStoreError(op, err)
	}
	return s.GetEmail(ctx, emailID)
}

// DeleteEmail removes an allow-listed email address.
func (s *Store) DeleteEmail(ctx context.Context, emailID string) error {
	const op = "DeleteEmail"

	ref := s.client.Collection(emailsCollection).Doc(emailID)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return ErrNotFound
	} else if err != nil {
		return wrapStoreError(op, err)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return wrapStoreError(op, err)
	}
	return nil
}

// IsEmailActive reports whether the address has an active allow-list entry.
func (s *Store) IsEmailActive(ctx context.Context, email string) (bool, error) {
	const op = "IsEmailActive"

	docs, err := s.client.Collection(emailsCollection).
		Where("email", "==", email).
		Where("is_active", "==", true).
		Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, wrapStoreError(op, err)
	}
	return len(docs) > 0, nil
}

// --- Auth settings ---

// GetSettings returns the auth settings, creating defaults on first read.
func (s *Store) GetSettings(ctx context.Context) (*AuthSettings, error) {
	const op = "GetSettings"

	ref := s.client.Collection(settingsCollection).Doc(settingsDocID)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		settings := DefaultAuthSettings()
		if _, err := ref.Set(ctx, settings); err != nil {
			return nil, wrapStoreError(op, err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, wrapStoreError(op, err)
	}

	var settings AuthSettings
	if err := snap.DataTo(&settings); err != nil {
		return nil, wrapStoreError(op, err)
	}
	return &settings, nil
}

// UpdateSettings applies a partial settings update and returns the result.
func (s *Store) UpdateSettings(ctx context.Context, in AuthSettingsUpdate) (*AuthSettings, error) {
	const op = "UpdateSettings"

	if _, err := s.GetSettings(ctx); err != nil {
		return nil, err
	}

	updates := []firestore.Update{
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if in.AllowOnlyListedDomains != nil {
		updates = append(updates, firestore.Update{Path: "allow_only_listed_domains", Value: *in.AllowOnlyListedDomains})
	}
	if in.AllowPersonalGmail != nil {
		updates = append(updates, firestore.Update{Path: "allow_personal_gmail", Value: *in.AllowPersonalGmail})
	}
	if in.AllowListedEmailsOnly != nil {
		updates = append(updates, firestore.Update{Path: "allow_listed_emails_only", Value: *in.AllowListedEmailsOnly})
	}

	ref := s.client.Collection(settingsCollection).Doc(settingsDocID)
	if _, err := ref.Update(ctx, updates); err != nil {
		return nil, wrapStoreError(op, err)
	}
	return s.GetSettings(ctx)
}

// --- Audit log ---

// AppendAudit records an admin or authorization action.
func (s *Store) AppendAudit(ctx context.Context, entry AuditEntry) error {
	const op = "AppendAudit"

	if entry.LogID == "" {
		entry.LogID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	ref := s.client.Collection(auditCollection).Doc(entry.LogID)
	if _, err := ref.Set(ctx, entry); err != nil {
		return wrapStoreError(op, err)
	}
	return nil
}
