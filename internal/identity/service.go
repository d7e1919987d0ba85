package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commercezen/engine/pkg/config"
	pkgerrors "github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/security"
)

// userRecord is the persisted account document, keyed by email in the users
// namespace.
type userRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
}

// ServiceParams groups dependencies for the identity service.
type ServiceParams struct {
	Store    kvstore.Store
	Provider *Provider
	Password config.PasswordConfig
	JWT      config.JWTConfig
}

// Service owns signup, login, and logout. Credential storage here is local
// to the engine: accounts live in the same document store as everything
// else, and the provider is the single source of the active identity.
type Service struct {
	store    kvstore.Store
	provider *Provider
	password config.PasswordConfig
	jwt      config.JWTConfig
	now      func() time.Time
}

// NewService builds the identity service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	return &Service{
		store:    params.Store,
		provider: params.Provider,
		password: params.Password,
		jwt:      params.JWT,
		now:      time.Now,
	}, nil
}

// Signup creates the account and logs it in.
func (s *Service) Signup(ctx context.Context, name, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	if len(password) < 6 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}

	if _, err := s.store.Get(ctx, kvstore.NamespaceUsers, email); err == nil {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "an account already exists for this email")
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	record := userRecord{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode account")
	}
	if err := s.store.Put(ctx, kvstore.NamespaceUsers, email, doc); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist account")
	}

	return s.install(record)
}

// Login verifies credentials and installs the identity.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)

	doc, err := s.store.Get(ctx, kvstore.NamespaceUsers, email)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeLoginRequired, "unknown email or password")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	var record userRecord
	if err := json.Unmarshal(doc, &record); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode account")
	}

	ok, err := security.VerifyPassword(password, record.PasswordHash)
	if err != nil || !ok {
		return "", pkgerrors.New(pkgerrors.CodeLoginRequired, "unknown email or password")
	}

	return s.install(record)
}

// Logout clears the active identity. Scoped managers drop their working sets
// through the provider notification.
func (s *Service) Logout() {
	s.provider.Set(nil)
}

func (s *Service) install(record userRecord) (string, error) {
	id := Identity{ID: record.Email, Name: record.Name}
	token, err := IssueToken(id, s.jwt, s.now())
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue token")
	}
	s.provider.Set(&id)
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
