package gen

import "math"

// ScalingParams drives the power curve applied to entities spawned at a
// mission level: multiplier = 1 + coefficient * level^exponent, capped.
type ScalingParams struct {
	HealthCoefficient float64
	DamageCoefficient float64
	Exponent          float64
	MaxMultiplier     float64
}

// DefaultScalingParams mirrors the shipped tuning: +20% per level^1.5,
// capped at 100x.
func DefaultScalingParams() ScalingParams {
	return ScalingParams{
		HealthCoefficient: 0.2,
		DamageCoefficient: 0.2,
		Exponent:          1.5,
		MaxMultiplier:     100,
	}
}

// Multipliers returns the (health, damage) multipliers for a mission level.
// Level 0 always yields (1, 1).
func (p ScalingParams) Multipliers(level int) (health, damage float64) {
	if level <= 0 {
		return 1, 1
	}
	pow := math.Pow(float64(level), p.Exponent)
	health = math.Min(1+p.HealthCoefficient*pow, p.MaxMultiplier)
	damage = math.Min(1+p.DamageCoefficient*pow, p.MaxMultiplier)
	return health, damage
}
