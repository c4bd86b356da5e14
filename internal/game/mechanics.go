/*
Package game
File: mechanics.go
Description:
    Contains the rules helpers shared by battle, navigation and events.
    This includes catalog lookups, player capacity rules, and the accuracy
    and cooldown modifiers used by the battle simulator.
    It serves as the rules engine for the numeric side of the game.
*/

package game

import (
	"errors"
	"time"
)

var (
	ErrWeaponSlotsFull = errors.New("no free weapon slot")
	ErrStorageFull     = errors.New("relic storage is full")
)

// MonsterDefinition looks up a monster by ID.
func (c *Catalog) MonsterDefinition(id string) (MonsterDefinition, error) {
	m, ok := c.Monsters[id]
	if !ok {
		return MonsterDefinition{}, configErr("monster", id, "")
	}
	return m, nil
}

// WeaponTemplate looks up a weapon template by ID.
func (c *Catalog) WeaponTemplate(id string) (WeaponTemplate, error) {
	t, ok := c.Weapons[id]
	if !ok {
		return WeaponTemplate{}, configErr("weapon", id, "")
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Player rules
// ---------------------------------------------------------------------------

// AddWeapon installs a weapon if a slot is free.
func (p *PlayerParameters) AddWeapon(w Weapon) error {
	if len(p.Weapons) >= p.Ship.WeaponSlots {
		return ErrWeaponSlotsFull
	}
	p.Weapons = append(p.Weapons, w)
	return nil
}

// AddRelic stores a relic if the hold has room.
func (p *PlayerParameters) AddRelic(r Relic) error {
	if len(p.Relics) >= p.Ship.Storage {
		return ErrStorageFull
	}
	p.Relics = append(p.Relics, r)
	return nil
}

// RemoveWeapon drops a weapon by ID and reports whether it was found.
func (p *PlayerParameters) RemoveWeapon(id string) bool {
	for i, w := range p.Weapons {
		if w.ID == id {
			p.Weapons = append(p.Weapons[:i], p.Weapons[i+1:]...)
			return true
		}
	}
	return false
}

// Damage lowers the hull, floored at 0.
func (p *PlayerParameters) Damage(amount int) {
	p.Hull -= amount
	if p.Hull < 0 {
		p.Hull = 0
	}
}

// Repair raises the hull, capped at the ship's maximum. Returns the amount repaired.
func (p *PlayerParameters) Repair(amount int) int {
	before := p.Hull
	p.Hull += amount
	if p.Hull > p.Ship.HullMax {
		p.Hull = p.Ship.HullMax
	}
	return p.Hull - before
}

// RelicBonus sums the values of every owned relic effect of type t.
func (p *PlayerParameters) RelicBonus(t RelicEffectType) int {
	total := 0
	for _, r := range p.Relics {
		for _, e := range r.Effects {
			if e.Type == t {
				total += e.Value
			}
		}
	}
	return total
}

// TotalHandling is the crew needed to operate every owned weapon at once.
func (p *PlayerParameters) TotalHandling() int {
	total := 0
	for _, w := range p.Weapons {
		total += w.Handling
	}
	return total
}

// ---------------------------------------------------------------------------
// Battle modifiers
// ---------------------------------------------------------------------------

// speedModifier compares attacker and defender speed.
func (t BattleTuning) speedModifier(attacker, defender int) float64 {
	switch {
	case attacker > defender:
		return t.Speed.Faster
	case attacker < defender:
		return t.Speed.Slower
	default:
		return t.Speed.Equal
	}
}

// sightModifier penalizes player accuracy below the sight threshold.
func (t BattleTuning) sightModifier(sight int) float64 {
	if sight < t.Sight.Threshold {
		return t.Sight.Penalty
	}
	return 1.0
}

// crewCooldownMultiplier inflates cooldowns when the crew cannot handle every
// weapon, and again when the crew ratio falls below the configured threshold.
func (t BattleTuning) crewCooldownMultiplier(p *PlayerParameters) float64 {
	mult := 1.0
	if shortfall := p.TotalHandling() - p.Crew; shortfall > 0 {
		mult *= 1 + t.Crew.HandlingPenaltyPerCrew*float64(shortfall)
	}
	if p.Ship.CrewMax > 0 && float64(p.Crew)/float64(p.Ship.CrewMax) < t.Crew.RatioThreshold {
		mult *= t.Crew.RatioMultiplier
	}
	return mult
}

// effectCooldownMultiplier combines fear and frenzy.
func (t BattleTuning) effectCooldownMultiplier(effects []StatusEffect) float64 {
	mult := 1.0
	for _, et := range []StatusEffectType{EffectFear, EffectFrenzy} {
		if hasEffect(effects, et) {
			if m := t.Effects[et].CooldownMultiplier; m > 0 {
				mult *= m
			}
		}
	}
	return mult
}

// effectAccuracyMultiplier applies blindness.
func (t BattleTuning) effectAccuracyMultiplier(effects []StatusEffect) float64 {
	if hasEffect(effects, EffectBlind) {
		if m := t.Effects[EffectBlind].AccuracyMultiplier; m > 0 {
			return m
		}
	}
	return 1.0
}

// effectiveSpeed applies slow to a base speed.
func (t BattleTuning) effectiveSpeed(base int, effects []StatusEffect) int {
	if hasEffect(effects, EffectSlow) {
		base -= t.Effects[EffectSlow].SpeedPenalty
	}
	return base
}

func (t BattleTuning) effectDuration(et StatusEffectType) time.Duration {
	return seconds(t.Effects[et].Duration)
}

func hasEffect(effects []StatusEffect, et StatusEffectType) bool {
	for _, e := range effects {
		if e.Type == et {
			return true
		}
	}
	return false
}

// applyEffect adds an effect or restarts it if already active.
func applyEffect(effects []StatusEffect, et StatusEffectType, d time.Duration, now time.Time) []StatusEffect {
	for i := range effects {
		if effects[i].Type == et {
			effects[i].StartTime = now
			effects[i].Duration = d
			effects[i].Ticks = 0
			return effects
		}
	}
	return append(effects, StatusEffect{Type: et, StartTime: now, Duration: d})
}
