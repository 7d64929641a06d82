package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"timesheets/internal/ids"
	"timesheets/internal/models"
	"timesheets/internal/notify"
	"timesheets/internal/repository"
	"timesheets/internal/security"
)

const (
	minPasswordLength = 8
	resetTokenBytes   = 32
)

// passwordHasher is satisfied by *security.PasswordHasher.
type passwordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(password string, encodedHash []byte) (bool, error)
}

type AuthService struct {
	identities IdentityRepository
	directory  Directory
	refresh    *RefreshTokenStore
	resets     ResetTokenRepository
	issuer     *security.TokenIssuer
	hasher     passwordHasher
	notifier   EventDispatcher
	resetTTL   time.Duration
	now        func() time.Time
	log        zerolog.Logger

	decoyOnce sync.Once
	decoyHash []byte
}

type AuthDeps struct {
	Identities IdentityRepository
	Directory  Directory
	Refresh    *RefreshTokenStore
	Resets     ResetTokenRepository
	Issuer     *security.TokenIssuer
	Hasher     *security.PasswordHasher
	Notifier   EventDispatcher
	ResetTTL   time.Duration
}

func NewAuthService(deps AuthDeps, log zerolog.Logger) *AuthService {
	return &AuthService{
		identities: deps.Identities,
		directory:  deps.Directory,
		refresh:    deps.Refresh,
		resets:     deps.Resets,
		issuer:     deps.Issuer,
		hasher:     deps.Hasher,
		notifier:   deps.Notifier,
		resetTTL:   deps.ResetTTL,
		now:        time.Now,
		log:        log,
	}
}

// Session is what a successful login, registration or refresh hands back.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Identity     models.Identity
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type CreateIdentityInput struct {
	Email    string
	Password string
	Role     string
	Name     string
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateCredentials(email string, password string) *ValidationError {
	problems := &ValidationError{}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		problems.Add("email", "must be a valid email address")
	}
	if len(password) < minPasswordLength {
		problems.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	return problems
}

// Register creates a WORKER identity together with its worker record and
// signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	identity, err := s.createIdentity(ctx, CreateIdentityInput{
		Email:    input.Email,
		Password: input.Password,
		Role:     string(models.RoleWorker),
		Name:     input.Name,
	})
	if err != nil {
		return Session{}, err
	}
	return s.startSession(ctx, identity)
}

// CreateIdentity lets an administrator add supervisors, admins or workers.
func (s *AuthService) CreateIdentity(ctx context.Context, actorID string, input CreateIdentityInput) (models.Identity, error) {
	actor, err := s.identities.GetByID(ctx, actorID)
	if err != nil {
		return models.Identity{}, err
	}
	if actor.Role != models.RoleAdmin {
		return models.Identity{}, ErrForbidden
	}
	return s.createIdentity(ctx, input)
}

func (s *AuthService) createIdentity(ctx context.Context, input CreateIdentityInput) (models.Identity, error) {
	email := normalizeEmail(input.Email)
	problems := validateCredentials(email, input.Password)
	role, err := models.ParseRole(input.Role)
	if err != nil {
		problems.Add("role", "must be ADMIN, SUPERVISOR or WORKER")
	}
	if err := problems.OrNil(); err != nil {
		return models.Identity{}, err
	}

	if _, err := s.identities.FindByEmail(ctx, email); err == nil {
		return models.Identity{}, ErrEmailTaken
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return models.Identity{}, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.Identity{}, err
	}

	identity := models.Identity{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if role == models.RoleWorker {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		worker := models.Worker{ID: ids.New(), Name: name}
		if err := s.directory.CreateWorker(ctx, worker); err != nil {
			return models.Identity{}, fmt.Errorf("create worker record: %w", err)
		}
		identity.WorkerID = &worker.ID
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		return models.Identity{}, err
	}

	s.log.Info().
		Str("identity_id", identity.ID).
		Str("role", string(identity.Role)).
		Msg("identity created")
	return identity, nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (Session, error) {
	identity, err := s.identities.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			s.verifyDecoy(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	ok, err := s.hasher.Verify(password, identity.PasswordHash)
	if err != nil || !ok {
		return Session{}, ErrInvalidCredentials
	}

	return s.startSession(ctx, identity)
}

// verifyDecoy runs one password verification against a throwaway hash so an
// unknown address takes as long to refuse as a wrong password.
func (s *AuthService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, err := s.hasher.Hash(ids.New())
		if err != nil {
			s.log.Warn().Err(err).Msg("decoy password hash failed")
			return
		}
		s.decoyHash = hash
	})
	if s.decoyHash != nil {
		_, _ = s.hasher.Verify(password, s.decoyHash)
	}
}

func (s *AuthService) startSession(ctx context.Context, identity models.Identity) (Session, error) {
	refreshToken, err := s.refresh.Issue(ctx, identity.ID)
	if err != nil {
		return Session{}, err
	}
	return s.sessionFor(identity, refreshToken)
}

func (s *AuthService) sessionFor(identity models.Identity, refreshToken string) (Session, error) {
	accessToken, err := s.issuer.Mint(security.Identity{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Role:       identity.Role,
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.issuer.TTL(),
		Identity:     identity,
	}, nil
}

// Refresh rotates the refresh token and mints a new access token. Presenting
// a token that was already rotated fails with ErrRefreshTokenNotFound.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	identityID, next, err := s.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	return s.sessionFor(identity, next)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(ctx, refreshToken)
}

func (s *AuthService) LogoutAll(ctx context.Context, identityID string) error {
	revoked, err := s.refresh.RevokeAll(ctx, identityID)
	if err != nil {
		return err
	}
	s.log.Info().Str("identity_id", identityID).Int64("revoked", revoked).Msg("all sessions revoked")
	return nil
}

func (s *AuthService) Me(ctx context.Context, identityID string) (models.Identity, error) {
	return s.identities.GetByID(ctx, identityID)
}

// ForgotPassword replaces any outstanding reset token of the account and
// hands the new one to the notification pipeline. Unknown addresses succeed
// silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	identity, err := s.identities.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil
		}
		return err
	}

	raw, hash, err := security.GenerateOpaqueToken(resetTokenBytes)
	if err != nil {
		return err
	}
	now := s.now()
	token := models.ResetToken{
		ID:         ids.New(),
		IdentityID: identity.ID,
		TokenHash:  hash,
		ExpiresAt:  now.Add(s.resetTTL),
		CreatedAt:  now,
	}
	if err := s.resets.Replace(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.notifier.Dispatch(notify.Event{
		Type:       notify.EventPasswordReset,
		Recipients: []string{identity.ID},
		Email:      identity.Email,
		ResetToken: raw,
	})
	return nil
}

// ResetPassword consumes a reset token, sets the new password and signs the
// account out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return &ValidationError{Fields: map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", minPasswordLength),
		}}
	}

	reset, err := s.resets.Consume(ctx, security.HashOpaqueToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) || errors.Is(err, repository.ErrResetTokenExpired) {
			return ErrResetTokenInvalid
		}
		return err
	}

	return s.setPassword(ctx, reset.IdentityID, newPassword)
}

func (s *AuthService) ChangePassword(ctx context.Context, identityID string, current string, next string) error {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(current, identity.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return &ValidationError{Fields: map[string]string{
			"newPassword": fmt.Sprintf("must be at least %d characters", minPasswordLength),
		}}
	}
	return s.setPassword(ctx, identityID, next)
}

func (s *AuthService) setPassword(ctx context.Context, identityID string, password string) error {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.identities.UpdatePassword(ctx, identityID, passwordHash); err != nil {
		return err
	}
	if _, err := s.refresh.RevokeAll(ctx, identityID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("identity_id", identityID).Msg("password changed")
	return nil
}

// SweepResetTokens deletes reset tokens past their expiry.
func (s *AuthService) SweepResetTokens(ctx context.Context) (int64, error) {
	return s.resets.DeleteExpired(ctx, s.now())
}

// EnsureBootstrapAdmin creates the configured administrator when no ADMIN
// identity exists yet. An empty email disables it.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, email string, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}

	count, err := s.identities.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = s.createIdentity(ctx, CreateIdentityInput{
		Email:    email,
		Password: password,
		Role:     string(models.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	return nil
}
