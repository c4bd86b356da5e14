/*
Package game
File: relics.go
Description:
    Relic generation and application.
    A relic rolls a random number of distinct effects for its rarity.
    Legendary relics always carry exactly one legendary-only effect
    (a bonus weapon or a battle-start frenzy) on top of the normal ones.
*/

package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RelicForge rolls relics from the catalog's relic templates.
type RelicForge struct {
	cfg RelicConfig
	rng Rand
	// weights is shared with weapon rarity rolls
	weights map[Rarity]int
}

// NewRelicForge creates a relic forge.
func NewRelicForge(catalog *Catalog, rng Rand) *RelicForge {
	return &RelicForge{cfg: catalog.Relics, rng: rng, weights: catalog.RarityWeights}
}

// RollRarity draws a relic rarity.
func (f *RelicForge) RollRarity() Rarity {
	return rollRarity(f.rng, f.weights)
}

// Forge rolls a relic at the given rarity.
func (f *RelicForge) Forge(rarity Rarity) (Relic, error) {
	tier, ok := f.cfg.Tiers[rarity]
	if !ok {
		return Relic{}, configErr("rarity", "relic/"+string(rarity), "")
	}
	relic := Relic{ID: uuid.NewString(), Rarity: rarity, Effects: []RelicEffect{}}

	// 1. Legendary-only effect
	if rarity == RarityLegendary {
		if len(f.cfg.Legendary) == 0 {
			return Relic{}, configErr("relic", "legendary", "no legendary effect templates")
		}
		le := f.cfg.Legendary[f.rng.Intn(len(f.cfg.Legendary))]
		relic.Effects = append(relic.Effects, f.rollLegendary(le))
	}

	// 2. Normal effects: distinct templates that define this rarity
	var candidates []RelicEffectTemplate
	for _, t := range f.cfg.Effects {
		if _, ok := t.Values[rarity]; ok {
			candidates = append(candidates, t)
		}
	}
	f.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	count := rollRange(f.rng, tier.EffectCount)
	if count > len(candidates) {
		count = len(candidates)
	}
	for _, t := range candidates[:count] {
		v := rollRange(f.rng, t.Values[rarity])
		relic.Effects = append(relic.Effects, RelicEffect{
			Type:        t.Type,
			Value:       v,
			Description: describe(t.Description, v),
		})
	}
	return relic, nil
}

func (f *RelicForge) rollLegendary(le LegendaryEffectTemplate) RelicEffect {
	e := RelicEffect{Type: le.Type, Legendary: true}
	switch le.Type {
	case RelicBonusWeapon:
		w := forgeFromTier(f.rng, *le.Weapon, RarityLegendary)
		w.TemplateID = string(RelicBonusWeapon)
		w.Name = le.WeaponName
		e.Weapon = &w
		e.Value = 1
		e.Description = describe(le.Description, w.Damage.Max)
	default:
		e.Value = rollRange(f.rng, le.Value)
		e.Description = describe(le.Description, e.Value)
	}
	return e
}

func describe(tmpl string, v int) string {
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, v)
	}
	return tmpl
}

// ApplyRelic stores a relic and applies its stat effects to the player.
// A bonus weapon is installed only if a weapon slot is free.
func ApplyRelic(p *PlayerParameters, r Relic) error {
	if err := p.AddRelic(r); err != nil {
		return err
	}

	for _, e := range r.Effects {
		switch e.Type {
		case RelicMaxHull:
			p.Ship.HullMax += e.Value
			p.Hull += e.Value
		case RelicCrew:
			p.Ship.CrewMax += e.Value
			p.Crew += e.Value
		case RelicSight:
			p.Sight += e.Value
		case RelicSpeed:
			p.Speed += e.Value
		case RelicFood:
			p.Food += e.Value
		case RelicBonusWeapon:
			if e.Weapon != nil {
				_ = p.AddWeapon(*e.Weapon)
			}
		}
	}
	return nil
}

// frenzyDuration is the longest berserk effect among owned relics.
func frenzyDuration(p *PlayerParameters) time.Duration {
	best := 0
	for _, r := range p.Relics {
		for _, e := range r.Effects {
			if e.Type == RelicBerserk && e.Value > best {
				best = e.Value
			}
		}
	}
	return time.Duration(best) * time.Second
}
