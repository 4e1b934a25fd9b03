package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/placemate/placemate/internal/domain"
	"github.com/placemate/placemate/internal/store"
	"github.com/placemate/placemate/pkg/cryptox"
	"github.com/placemate/placemate/pkg/idx"
	"github.com/placemate/placemate/pkg/slogx"
)

// SettingsService owns the platform configuration record. The record is
// read on every signup (policy checks) and every gated page (setup check),
// so it is cached in-process and invalidated explicitly on writes. Stale
// reads between an update and the invalidation are possible and bounded
// to this process.
type SettingsService struct {
	Store store.Store

	mu     sync.RWMutex
	cached *domain.Settings
}

func NewSettingsService(st store.Store) *SettingsService {
	return &SettingsService{Store: st}
}

// SetupRequest configures the platform and creates its first administrator.
type SetupRequest struct {
	PlatformName            string
	AllowPublicRegistration bool
	StudentEmailDomain      string
	StaffEmailDomain        string
	SupportEmail            string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Get returns the configuration, serving from cache when possible.
// Returns store.ErrNotFound while the platform is unconfigured.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.RLock()
	if s.cached != nil {
		cfg := *s.cached
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	cfg, err := s.Store.Settings().GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	s.cached = &cfg
	s.mu.Unlock()
	return cfg, nil
}

// IsConfigured reports whether the one-time setup has happened.
func (s *SettingsService) IsConfigured(ctx context.Context) (bool, error) {
	_, err := s.Get(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate drops the cache; the next Get re-reads the database.
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Setup performs the one-time platform configuration: writes the settings
// record and creates the first administrator account, already verified.
// A second call returns ErrAlreadyConfigured. The transition is one-way;
// there is no teardown.
func (s *SettingsService) Setup(ctx context.Context, req SetupRequest) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Refuse when already configured.
	if configured, err := s.IsConfigured(ctx); err != nil {
		return domain.User{}, err
	} else if configured {
		l.Warn("setup attempted on configured platform")
		return domain.User{}, ErrAlreadyConfigured
	}

	// 2. Validate the admin account inputs.
	if req.PlatformName == "" || req.AdminName == "" {
		return domain.User{}, ErrInvalidInput
	}
	email, err := normalizeEmail(req.AdminEmail)
	if err != nil {
		return domain.User{}, ErrInvalidInput
	}
	if err := checkPasswordStrength(req.AdminPassword); err != nil {
		return domain.User{}, err
	}

	passHash, err := cryptox.HashPassword(req.AdminPassword)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 3. Write settings and the first administrator atomically. The admin
	// is created pre-verified; there is nobody to email them a link yet.
	now := time.Now().UTC()
	admin := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         req.AdminName,
		PasswordHash: passHash,
		Role:         domain.RoleAdministrator,
		VerifiedAt:   &now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.Settings().CreateSettings(ctx, domain.Settings{
			PlatformName:            req.PlatformName,
			AllowPublicRegistration: req.AllowPublicRegistration,
			StudentEmailDomain:      req.StudentEmailDomain,
			StaffEmailDomain:        req.StaffEmailDomain,
			SupportEmail:            req.SupportEmail,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAlreadyConfigured
		}
		if err != nil {
			return err
		}
		return tx.Users().CreateUser(ctx, admin)
	})
	if err != nil {
		l.Error("setup failed", slog.Any("error", err))
		return domain.User{}, err
	}

	s.Invalidate()
	l.Info("platform configured",
		slog.String("platform", req.PlatformName),
		slog.String("admin_user_id", admin.ID),
	)
	return admin, nil
}

// Update replaces the configuration record and drops the cache.
func (s *SettingsService) Update(ctx context.Context, cfg domain.Settings) error {
	if err := s.Store.Settings().UpdateSettings(ctx, cfg); err != nil {
		return err
	}
	s.Invalidate()
	return nil
}
