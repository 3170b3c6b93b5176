// Package service holds the business core: identity and access, the
// product catalog, package bundling and the customer cart. Every operation
// that acts on behalf of a caller takes the caller's model.Identity as an
// explicit argument.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/utils"
)

// UserRepository is the identity store the auth service needs.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration

	// BcryptCost is left zero in production, which selects
	// utils.PasswordCost. Tests lower it to keep hashing fast.
	BcryptCost int
}

type AuthService struct {
	users UserRepository
	cfg   AuthConfig
	log   *logger.Logger
	now   func() time.Time

	// dummyHash is compared against when the email is unknown so that both
	// login failure paths pay for one bcrypt comparison.
	dummyHash string
}

func NewAuthService(users UserRepository, cfg AuthConfig, log *logger.Logger) (*AuthService, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	dummy, err := utils.HashPassword("not-a-real-password", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:     users,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

// Register creates a CLIENT account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	u, err := s.createUser(ctx, email, password, name, model.RoleClient)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issue(u)
}

// CreateAdmin creates an ADMIN account. It is used by the server's seeding
// flag and is not reachable over HTTP.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (model.User, error) {
	return s.createUser(ctx, email, password, name, model.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, email, password, name string, role model.Role) (model.User, error) {
	email = model.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return model.User{}, model.Invalid("email", "must be a valid address")
	}
	if len(password) < 6 {
		return model.User{}, model.Invalid("password", "must be at least 6 characters")
	}
	if name == "" {
		return model.User{}, model.Invalid("name", "required")
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, model.Invalid("password", err.Error())
	}
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login checks the password and signs a token. Unknown email and wrong
// password both yield model.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return AuthResult{}, err
		}
		utils.VerifyPassword(s.dummyHash, password)
		return AuthResult{}, model.ErrInvalidCredentials
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, model.ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *AuthService) issue(u model.User) (AuthResult, error) {
	tok, err := utils.NewAccessToken(s.cfg.Secret, u.ID, string(u.Role), s.cfg.TokenTTL, s.now())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

// Verify validates the token and re-resolves its subject. A token whose
// user has been deleted fails with model.ErrIdentityGone even before it
// expires. The returned role is the one currently stored.
func (s *AuthService) Verify(ctx context.Context, raw string) (model.Identity, error) {
	claims, err := utils.ParseAccessToken(s.cfg.Secret, raw, s.now())
	if err != nil {
		return model.Identity{}, model.ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Identity{}, model.ErrIdentityGone
		}
		return model.Identity{}, err
	}
	return model.Identity{SubjectID: u.ID, Role: u.Role}, nil
}

// RequireRole fails with model.ErrForbidden unless id holds role.
func (s *AuthService) RequireRole(id model.Identity, role model.Role) error {
	return RequireRole(id, role)
}

// RequireRole is the stateless form used by the other services.
func RequireRole(id model.Identity, role model.Role) error {
	if id.SubjectID == "" || id.Role != role {
		return model.ErrForbidden
	}
	return nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, id model.Identity) (model.User, error) {
	u, err := s.users.GetByID(ctx, id.SubjectID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrIdentityGone
	}
	return u, err
}
