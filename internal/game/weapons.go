/*
Package game
File: weapons.go
Description:
    Procedural weapon generation ("the forge").
    A weapon template is instantiated at a rarity tier by rolling every stat
    uniformly within the tier's range. The price is derived from how close
    the rolled stats sit to the best end of each range.
*/

package game

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// WeaponForge instantiates weapon templates from the catalog.
type WeaponForge struct {
	catalog *Catalog
	rng     Rand
}

// NewWeaponForge creates a forge over the catalog's weapon templates.
func NewWeaponForge(catalog *Catalog, rng Rand) *WeaponForge {
	return &WeaponForge{catalog: catalog, rng: rng}
}

// RollRarity draws a rarity tier using the catalog's rarity weights.
func (f *WeaponForge) RollRarity() Rarity {
	return rollRarity(f.rng, f.catalog.RarityWeights)
}

// Forge instantiates templateID at the given rarity.
func (f *WeaponForge) Forge(templateID string, rarity Rarity) (Weapon, error) {
	t, err := f.catalog.WeaponTemplate(templateID)
	if err != nil {
		return Weapon{}, err
	}
	tier, ok := t.Tiers[rarity]
	if !ok {
		return Weapon{}, configErr("rarity", templateID+"/"+string(rarity), "")
	}
	w := forgeFromTier(f.rng, tier, rarity)
	w.TemplateID = t.ID
	w.Name = t.Name
	w.Effect = t.Effect
	return w, nil
}

// ForgeRandom forges a random template at a rolled rarity. When no template
// offers the rolled tier the rarity steps down until one does.
func (f *WeaponForge) ForgeRandom() (Weapon, error) {
	rarity := f.RollRarity()
	ids := make([]string, 0, len(f.catalog.Weapons))
	for id := range f.catalog.Weapons {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for ri := rarityIndex(rarity); ri >= 0; ri-- {
		var candidates []string
		for _, id := range ids {
			if _, ok := f.catalog.Weapons[id].Tiers[rarityOrder[ri]]; ok {
				candidates = append(candidates, id)
			}
		}
		if len(candidates) > 0 {
			return f.Forge(candidates[f.rng.Intn(len(candidates))], rarityOrder[ri])
		}
	}
	return Weapon{}, configErr("weapon", "", "no templates available")
}

// forgeFromTier rolls a weapon's stats within a tier. Name and template are
// left for the caller.
func forgeFromTier(rng Rand, tier WeaponTier, rarity Rarity) Weapon {
	// 1. Roll every stat inside its range
	dmgMin := rollRange(rng, tier.DamageMin)
	dmgMax := rollRange(rng, tier.DamageMax)
	handling := rollRange(rng, tier.Handling)
	accuracy := rollRange(rng, tier.Accuracy)
	cdMin := rollFloat(rng, tier.CooldownMin)
	cdMax := rollFloat(rng, tier.CooldownMax)
	critRate := rollFloat(rng, tier.CritRate)
	critMult := rollFloat(rng, tier.CritMultiplier)

	// 2. Quality: mean closeness to the best bound of each range
	quality := mean(
		closeness(float64(dmgMin), float64(tier.DamageMin.Min), float64(tier.DamageMin.Max), true),
		closeness(float64(dmgMax), float64(tier.DamageMax.Min), float64(tier.DamageMax.Max), true),
		closeness(float64(accuracy), float64(tier.Accuracy.Min), float64(tier.Accuracy.Max), true),
		closeness(critRate, tier.CritRate.Min, tier.CritRate.Max, true),
		closeness(critMult, tier.CritMultiplier.Min, tier.CritMultiplier.Max, true),
		closeness(float64(handling), float64(tier.Handling.Min), float64(tier.Handling.Max), false),
		closeness(cdMin, tier.CooldownMin.Min, tier.CooldownMin.Max, false),
		closeness(cdMax, tier.CooldownMax.Min, tier.CooldownMax.Max, false),
	)

	// 3. Overlapping tier ranges can invert min and max
	if dmgMin > dmgMax {
		dmgMin, dmgMax = dmgMax, dmgMin
	}
	if cdMin > cdMax {
		cdMin, cdMax = cdMax, cdMin
	}

	return Weapon{
		ID:             uuid.NewString(),
		Damage:         Range{Min: dmgMin, Max: dmgMax},
		Handling:       handling,
		Accuracy:       accuracy,
		Cooldown:       FloatRange{Min: cdMin, Max: cdMax},
		CritRate:       critRate,
		CritMultiplier: critMult,
		Rarity:         rarity,
		Price:          int(math.Round(weaponPrice(tier.BasePrice, quality))),
	}
}

// weaponPrice maps quality 0..1 onto 50..100% of the tier base price.
func weaponPrice(base int, quality float64) float64 {
	return float64(base) * (0.5 + 0.5*quality)
}

// closeness is 0 at the worst end of [lo, hi] and 1 at the best end.
// A degenerate range counts as best.
func closeness(v, lo, hi float64, higherIsBetter bool) float64 {
	if hi <= lo {
		return 1
	}
	c := (v - lo) / (hi - lo)
	if !higherIsBetter {
		c = 1 - c
	}
	return math.Max(0, math.Min(1, c))
}

func mean(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

// rollRarity draws a tier from weights. Without weights it returns common.
func rollRarity(rng Rand, weights map[Rarity]int) Rarity {
	total := 0
	for _, r := range rarityOrder {
		total += weights[r]
	}
	if total <= 0 {
		return RarityCommon
	}
	roll := rng.Intn(total)
	for _, r := range rarityOrder {
		if roll < weights[r] {
			return r
		}
		roll -= weights[r]
	}
	return RarityCommon
}

func rarityIndex(r Rarity) int {
	for i, o := range rarityOrder {
		if o == r {
			return i
		}
	}
	return 0
}
