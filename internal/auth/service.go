package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"openbook/internal/platform/crypto"
	"openbook/internal/platform/events"
	"openbook/internal/user"
)

type Service struct {
	secret    string
	ttl       time.Duration
	users     UserStore
	blacklist Blacklist
	publisher EventPublisher
	log       *zap.Logger
}

func NewService(secret string, ttl time.Duration, users UserStore, blacklist Blacklist, publisher EventPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret:    secret,
		ttl:       ttl,
		users:     users,
		blacklist: blacklist,
		publisher: publisher,
		log:       log,
	}
}

func (s *Service) publish(subject, name, userID string, props map[string]any) {
	if s.publisher != nil {
		s.publisher.Publish(subject, name, userID, props)
	}
}

func (s *Service) issue(u user.User) (Session, error) {
	id := crypto.Identity{
		UserID:        u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          u.Role(),
		RoleID:        u.RoleID,
		InstitutionID: u.InstitutionID,
	}
	token, _, err := crypto.GenerateToken(s.secret, id, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresIn: int(s.ttl.Seconds()),
		User: SessionUser{
			ID:            u.ID,
			Email:         u.Email,
			FullName:      u.FullName,
			Role:          id.Role,
			RoleID:        u.RoleID,
			InstitutionID: u.InstitutionID,
		},
		Redirect: user.DashboardPath(u.RoleID),
	}, nil
}

// Register creates the account and signs the new user in.
func (s *Service) Register(ctx context.Context, in user.RegisterInput) (Session, error) {
	u, err := s.users.Register(ctx, in)
	if err != nil {
		return Session{}, err
	}
	sess, err := s.issue(u)
	if err != nil {
		return Session{}, err
	}
	s.publish(events.SubjectAuthRegistered, "auth_registered", u.ID, map[string]any{"role": u.Role()})
	return sess, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !crypto.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	sess, err := s.issue(u)
	if err != nil {
		return Session{}, err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", u.ID), zap.Error(err))
	}
	s.publish(events.SubjectAuthLoggedIn, "auth_logged_in", u.ID, map[string]any{"role": u.Role()})
	return sess, nil
}

// Logout revokes token until it would have expired and stamps last_logout_at.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return ErrUnauthorized
	}

	expiresAt := time.Now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.blacklist.Add(ctx, claims.ID, claims.Sub, expiresAt); err != nil {
		return err
	}
	if err := s.users.TouchLastLogout(ctx, claims.Sub); err != nil {
		s.log.Warn("failed to record last logout", zap.String("user_id", claims.Sub), zap.Error(err))
	}
	return nil
}

// Verify parses token and returns its claims if it has not been revoked.
func (s *Service) Verify(ctx context.Context, token string) (*crypto.Claims, error) {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (user.Profile, error) {
	return s.users.Profile(ctx, userID)
}

func (s *Service) EmailAvailable(ctx context.Context, email string, roleID int) (bool, error) {
	return s.users.EmailAvailable(ctx, email, roleID)
}

// CleanupBlacklist drops revoked tokens that have expired anyway.
func (s *Service) CleanupBlacklist(ctx context.Context) {
	n, err := s.blacklist.CleanupExpired(ctx)
	if err != nil {
		s.log.Error("token blacklist cleanup failed", zap.Error(err))
		return
	}
	s.log.Info("token blacklist cleaned", zap.Int64("removed", n))
}
