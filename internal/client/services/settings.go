package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worklog/internal/client/models"
	"github.com/dmitrijs2005/worklog/internal/client/remote"
	"github.com/dmitrijs2005/worklog/internal/common"
	"github.com/dmitrijs2005/worklog/internal/dbx"
)

// GetSettings returns the principal's settings, creating the defaults when
// there are none. Concurrent calls for one principal share a single load,
// so defaults are never created twice.
func (r *Repository) GetSettings(ctx context.Context) (*models.Settings, error) {
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return nil, err
	}

	v, err, _ := r.settingsGroup.Do(owner, func() (interface{}, error) {
		return r.loadSettings(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	s := *v.(*models.Settings)
	return &s, nil
}

func (r *Repository) loadSettings(ctx context.Context, owner string) (*models.Settings, error) {
	repo := r.store.repos.Settings(r.store.db)
	local, err := repo.GetByOwner(ctx, owner)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("get local settings: %w", err)
	}

	if r.readRemote() && (local == nil || !r.store.hasPending(ctx, owner, local.ID)) {
		s, err := r.fetchOrCreateSettings(ctx, owner)
		if err == nil {
			if err := repo.Put(ctx, s); err != nil {
				r.log.Warn(ctx, "mirror refresh failed", "collection", models.CollectionSettings, "error", err)
			}
			return s, nil
		}
		r.remoteFailed(ctx, "get settings", err)
	}

	if local != nil {
		return local, nil
	}

	defaults := models.DefaultSettings(r.newID(), owner)
	inserted, err := repo.InsertIgnore(ctx, &defaults)
	if err != nil {
		return nil, fmt.Errorf("save local settings: %w", err)
	}
	if inserted {
		if err := r.store.enqueue(ctx, owner, defaults.ID, &models.SettingsUpsert{Settings: defaults}); err != nil {
			return nil, err
		}
	}

	s, err := repo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get local settings: %w", err)
	}
	return s, nil
}

func (r *Repository) fetchOrCreateSettings(ctx context.Context, owner string) (*models.Settings, error) {
	s, err := r.remote.GetSettings(ctx, owner)
	if errors.Is(err, remote.ErrNotFound) {
		return r.remote.InsertSettings(ctx, owner, models.DefaultSettings("", owner))
	}
	return s, err
}

func validateSettingsPatch(p models.SettingsPatch) error {
	if p.Theme != nil {
		if err := models.ValidateTheme(*p.Theme); err != nil {
			return err
		}
	}
	if p.RequiredHours != nil && *p.RequiredHours < 0 {
		return fmt.Errorf("%w: required hours must not be negative", common.ErrInvalidInput)
	}
	if p.AccentColor != nil && *p.AccentColor == "" {
		return fmt.Errorf("%w: accent color is empty", common.ErrInvalidInput)
	}
	return nil
}

// UpdateSettings applies patch to the principal's settings.
func (r *Repository) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (*models.Settings, error) {
	if err := validateSettingsPatch(patch); err != nil {
		return nil, err
	}
	s, err := r.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	owner := s.Owner

	patch.Apply(s)
	if err := r.store.repos.Settings(r.store.db).Put(ctx, s); err != nil {
		return nil, fmt.Errorf("save local settings: %w", err)
	}

	if r.direct(ctx, owner, s.ID) {
		stored, err := r.remote.UpdateSettings(ctx, owner, patch)
		if errors.Is(err, remote.ErrNotFound) {
			stored, err = r.remote.UpsertSettings(ctx, owner, *s)
		}
		if err == nil {
			err = r.store.confirm(ctx, owner, models.CollectionSettings, s.ID, stored.ID,
				func(ctx context.Context, tx dbx.DBTX) error {
					return r.store.repos.Settings(tx).Put(ctx, stored)
				})
			if err != nil {
				return nil, err
			}
			return stored, nil
		}
		r.remoteFailed(ctx, "update settings", err)
	}

	if err := r.store.enqueue(ctx, owner, s.ID, &models.SettingsUpdate{Patch: patch}); err != nil {
		return nil, err
	}
	return s, nil
}

// SetThemeBestEffort stores the theme locally and pushes it to the remote
// store in the background. The push is non-critical: a failure is logged
// and dropped, nothing is queued and nothing is retried.
func (r *Repository) SetThemeBestEffort(ctx context.Context, theme string) error {
	if err := models.ValidateTheme(theme); err != nil {
		return err
	}
	owner, err := r.session.CurrentPrincipalID()
	if err != nil {
		return err
	}

	repo := r.store.repos.Settings(r.store.db)
	s, err := repo.GetByOwner(ctx, owner)
	if errors.Is(err, common.ErrNotFound) {
		d := models.DefaultSettings(r.newID(), owner)
		s, err = &d, nil
	}
	if err != nil {
		return fmt.Errorf("get local settings: %w", err)
	}
	s.Theme = theme
	if err := repo.Put(ctx, s); err != nil {
		return fmt.Errorf("save local settings: %w", err)
	}

	if !r.net.IsOnline() {
		r.log.Debug(ctx, "theme kept locally", "theme", theme)
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		if _, err := r.remote.UpdateSettings(ctx, owner, models.SettingsPatch{Theme: &theme}); err != nil {
			r.log.Warn(ctx, "theme not synced", "theme", theme, "error", err)
		}
	}()
	return nil
}
