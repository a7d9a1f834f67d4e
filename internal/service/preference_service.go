package service

import (
	"context"
	"fmt"

	"github.com/macrolog/internal/nutrition"
	"github.com/macrolog/internal/store"
)

// PreferenceService 读写界面偏好
type PreferenceService struct {
	store store.Store
}

// NewPreferenceService 构造 PreferenceService
func NewPreferenceService(s store.Store) *PreferenceService {
	return &PreferenceService{store: s}
}

// Theme 返回主题，未设置或取值非法时为浅色
func (s *PreferenceService) Theme(ctx context.Context) (nutrition.Theme, error) {
	theme, status, err := store.LoadJSON(ctx, s.store, store.KeyTheme, func(t nutrition.Theme) error {
		if !t.Valid() {
			return fmt.Errorf("unknown theme %q", t)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if status != store.Found {
		return nutrition.ThemeLight, nil
	}
	return theme, nil
}

// SetTheme 保存主题
func (s *PreferenceService) SetTheme(ctx context.Context, theme nutrition.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("%w: unknown theme %q", ErrValidation, theme)
	}
	return store.SaveJSON(ctx, s.store, store.KeyTheme, theme)
}
