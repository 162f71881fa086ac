package world

import "isovoxel/internal/sim/tuning"

// ConfigFromTuning builds a world config from a loaded tuning file.
func ConfigFromTuning(id string, seed int64, t tuning.Tuning) Config {
	return Config{
		ID:      id,
		Seed:    seed,
		Gen:     t.Gen,
		View:    t.View,
		Control: t.Control,
	}
}
