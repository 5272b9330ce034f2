package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
)

// settingsFile is the on-disk shape of the auto-open settings.
// Keys left out of the file keep their default.
type settingsFile struct {
	AutosellActivated  bool               `json:"autosellActivated"`
	AutosellAmount     decimal.Decimal    `json:"autosellAmount"`
	AutoFavoriteConfig autoFavoriteConfig `json:"autoFavoriteConfig"`
}

type autoFavoriteConfig struct {
	FavoriteLowFloats    bool     `json:"favoriteLowFloats"`
	FavoritePatterns     bool     `json:"favoritePatterns"`
	CustomLowFloat       float64  `json:"customLowFloat"`
	CustomHighFloat      float64  `json:"customHighFloat"`
	CustomSelectedFloats []string `json:"customSelectedFloats"`
	FavoriteCustomFloats bool     `json:"favoriteCustomFloats"`
}

// loadSettingsFile reads the auto-open settings at path over the defaults
func loadSettingsFile(path string) (remote.AutoOpenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return remote.AutoOpenConfig{}, fmt.Errorf("read settings file: %w", err)
	}

	def := remote.DefaultAutoOpenConfig()
	file := settingsFile{
		AutosellActivated: def.AutosellActivated,
		AutosellAmount:    def.AutosellAmount,
		AutoFavoriteConfig: autoFavoriteConfig{
			FavoriteLowFloats:    def.FavoriteLowFloats,
			FavoritePatterns:     def.FavoritePatterns,
			CustomLowFloat:       def.CustomLowFloat,
			CustomHighFloat:      def.CustomHighFloat,
			CustomSelectedFloats: def.CustomSelectedFloats,
			FavoriteCustomFloats: def.FavoriteCustomFloats,
		},
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return remote.AutoOpenConfig{}, fmt.Errorf("parse settings file %s: %w", path, err)
	}

	fav := file.AutoFavoriteConfig
	if fav.CustomLowFloat < 0 || fav.CustomHighFloat > 1 || fav.CustomLowFloat > fav.CustomHighFloat {
		return remote.AutoOpenConfig{}, fmt.Errorf("custom float bounds must satisfy 0 <= low <= high <= 1, got %g and %g", fav.CustomLowFloat, fav.CustomHighFloat)
	}
	if file.AutosellAmount.IsNegative() {
		return remote.AutoOpenConfig{}, fmt.Errorf("autosell amount must not be negative, got %s", file.AutosellAmount)
	}

	return remote.AutoOpenConfig{
		AutosellActivated:    file.AutosellActivated,
		AutosellAmount:       file.AutosellAmount,
		FavoriteLowFloats:    fav.FavoriteLowFloats,
		FavoritePatterns:     fav.FavoritePatterns,
		CustomLowFloat:       fav.CustomLowFloat,
		CustomHighFloat:      fav.CustomHighFloat,
		CustomSelectedFloats: fav.CustomSelectedFloats,
		FavoriteCustomFloats: fav.FavoriteCustomFloats,
	}, nil
}
