package categorization

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/FACorreiaa/statement-ledger/internal/model"
)

// ListPresets returns the saved mapping snapshots.
func (s *Service) ListPresets(ctx context.Context) ([]model.Preset, error) {
	presets, err := s.repo.LoadPresets(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading presets: %w", err)
	}
	return presets, nil
}

// SavePreset snapshots the current mappings under name, replacing a preset
// with the same name.
func (s *Service) SavePreset(ctx context.Context, name string) (model.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Preset{}, fmt.Errorf("preset name is required")
	}

	mappings, err := s.repo.LoadAccountingMappings(ctx)
	if err != nil {
		return model.Preset{}, fmt.Errorf("loading accounting mappings: %w", err)
	}
	presets, err := s.repo.LoadPresets(ctx)
	if err != nil {
		return model.Preset{}, fmt.Errorf("loading presets: %w", err)
	}

	preset := model.Preset{Name: name, CreatedAt: s.now(), Mappings: mappings}
	if idx := presetIndex(presets, name); idx >= 0 {
		presets[idx] = preset
	} else {
		presets = append(presets, preset)
	}

	if err := s.repo.SavePresets(ctx, presets); err != nil {
		return model.Preset{}, fmt.Errorf("saving presets: %w", err)
	}

	s.logger.Info("preset saved", "name", name, "mappings", len(mappings))
	return preset, nil
}

// LoadPreset replaces the current mappings with the preset's. Transactions
// are not remapped.
func (s *Service) LoadPreset(ctx context.Context, name string) (model.Preset, error) {
	presets, err := s.repo.LoadPresets(ctx)
	if err != nil {
		return model.Preset{}, fmt.Errorf("loading presets: %w", err)
	}

	idx := presetIndex(presets, name)
	if idx < 0 {
		return model.Preset{}, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}

	if err := s.repo.SaveAccountingMappings(ctx, presets[idx].Mappings); err != nil {
		return model.Preset{}, fmt.Errorf("saving accounting mappings: %w", err)
	}

	s.logger.Info("preset loaded", "name", presets[idx].Name, "mappings", len(presets[idx].Mappings))
	return presets[idx], nil
}

// DeletePreset removes a preset by name.
func (s *Service) DeletePreset(ctx context.Context, name string) error {
	presets, err := s.repo.LoadPresets(ctx)
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}

	idx := presetIndex(presets, name)
	if idx < 0 {
		return fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}

	if err := s.repo.SavePresets(ctx, slices.Delete(presets, idx, idx+1)); err != nil {
		return fmt.Errorf("saving presets: %w", err)
	}
	return nil
}

func presetIndex(presets []model.Preset, name string) int {
	return slices.IndexFunc(presets, func(p model.Preset) bool {
		return strings.EqualFold(p.Name, strings.TrimSpace(name))
	})
}
