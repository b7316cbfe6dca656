package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finportal/internal/models"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrInvalidSetting  = errors.New("invalid setting")
)

type SettingsStore interface {
	List(ctx context.Context, category string) ([]*models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, s *models.Setting) error
}

type SettingsService struct {
	repo SettingsStore
}

func NewSettingsService(repo SettingsStore) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) List(ctx context.Context, category string) ([]*models.Setting, error) {
	return s.repo.List(ctx, strings.TrimSpace(category))
}

func (s *SettingsService) Get(ctx context.Context, key string) (*models.Setting, error) {
	st, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrSettingNotFound
	}
	return st, nil
}

// Update writes value under key. Type and category default to the stored row's; the value must
// parse as its type. Last write wins.
func (s *SettingsService) Update(ctx context.Context, key, value, typ, category string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidSetting)
	}
	current, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	st := &models.Setting{Key: key, Value: value, Type: typ, Category: category}
	if current != nil {
		if st.Type == "" {
			st.Type = current.Type
		}
		if st.Category == "" {
			st.Category = current.Category
		}
	}
	if st.Type == "" {
		st.Type = models.SettingString
	}
	if st.Category == "" {
		st.Category = "general"
	}
	if _, err := st.Typed(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}

	if err := s.repo.Upsert(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
