package game

import (
	"fmt"
	"strings"
)

// SettingsPatch changes only the fields that are set.
type SettingsPatch struct {
	AutoTick   *bool   `json:"autoTick,omitempty"`
	AutoOrders *bool   `json:"autoOrders,omitempty"`
	TickMs     *int64  `json:"tickMs,omitempty"`
	Rarity     *string `json:"rarity,omitempty"`
}

// UpdateSettings validates and applies a patch.
func (s *Simulation) UpdateSettings(patch SettingsPatch) (Settings, error) {
	next := s.state.Settings
	if patch.AutoTick != nil {
		next.AutoTick = *patch.AutoTick
	}
	if patch.AutoOrders != nil {
		next.AutoOrders = *patch.AutoOrders
	}
	if patch.TickMs != nil {
		if *patch.TickMs < MinTickInterval {
			return next, fmt.Errorf("%w: tick interval must be at least %dms", ErrInvalidSettings, MinTickInterval)
		}
		next.TickMs = *patch.TickMs
	}
	if patch.Rarity != nil {
		r := NormalizeRarity(*patch.Rarity)
		if r != strings.ToLower(strings.TrimSpace(*patch.Rarity)) {
			return next, fmt.Errorf("%w: rarity must be calm, normal or wild", ErrInvalidSettings)
		}
		next.Rarity = r
	}
	s.state.Settings = next
	return next, nil
}
