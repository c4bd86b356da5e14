/*
Package game
File: state.go
Description:
    Loads and validates the static configuration ("the catalog").
    The catalog is read once at session start from 'voyage.yaml' and then
    passed by reference to every service that needs it. Malformed documents
    are rejected here so that nothing fails deep inside a battle tick.
*/

package game

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfig is the sentinel wrapped by every configuration error.
var ErrConfig = errors.New("configuration error")

// ConfigError names the missing or malformed configuration entry.
type ConfigError struct {
	Kind   string // "weapon", "monster", "rarity", "chapter", ...
	ID     string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("config: %s %q not found", e.Kind, e.ID)
	}
	return fmt.Sprintf("config: %s %q: %s", e.Kind, e.ID, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErr(kind, id, reason string) error {
	return &ConfigError{Kind: kind, ID: id, Reason: reason}
}

// LoadCatalog reads a YAML catalog from disk and validates it.
func LoadCatalog(path string) (*Catalog, error) {
	// 1. Read the YAML file
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	// 2. Unmarshal and validate
	return ParseCatalog(f)
}

// ParseCatalog decodes a YAML document into a validated Catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults copies map keys into IDs and fills tuning values left at zero.
func (c *Catalog) applyDefaults() {
	for id, t := range c.Weapons {
		t.ID = id
		c.Weapons[id] = t
	}
	for id, m := range c.Monsters {
		m.ID = id
		if m.WeaponRarity == "" {
			m.WeaponRarity = RarityCommon
		}
		c.Monsters[id] = m
	}
	for i := range c.Chapters {
		ch := &c.Chapters[i]
		if ch.Number == 0 {
			ch.Number = i + 1
		}
		if ch.MinBranches <= 0 {
			ch.MinBranches = 1
		}
		if ch.MaxBranches <= 0 {
			ch.MaxBranches = 4
		}
		if ch.DifficultyStep <= 0 {
			ch.DifficultyStep = 3
		}
	}

	b := &c.Battle
	if b.TickMS <= 0 {
		b.TickMS = 100
	}
	if b.MonsterFireChance == 0 {
		b.MonsterFireChance = 0.05
	}
	if b.Speed == (SpeedModifiers{}) {
		b.Speed = SpeedModifiers{Faster: 1.1, Slower: 0.9, Equal: 1.0}
	}
	if b.Crew.HandlingPenaltyPerCrew == 0 {
		b.Crew.HandlingPenaltyPerCrew = 0.1
	}
	if b.Crew.RatioMultiplier == 0 {
		b.Crew.RatioMultiplier = 1
	}
	if b.Berserk.AccuracyMultiplier == 0 {
		b.Berserk.AccuracyMultiplier = 1
	}
	if b.Berserk.CooldownMultiplier == 0 {
		b.Berserk.CooldownMultiplier = 1
	}
	if b.Sight.Penalty == 0 {
		b.Sight.Penalty = 1
	}

	if c.Weather.Max == 0 {
		c.Weather.Max = 20
	}
	if c.Port.FoodBundle <= 0 {
		c.Port.FoodBundle = 1
	}
}

// Validate rejects malformed catalogs eagerly.
func (c *Catalog) Validate() error {
	if c.Ship.HullMax <= 0 || c.Ship.CrewMax <= 0 {
		return configErr("player_ship", c.Ship.Name, "hull_max and crew_max must be positive")
	}
	if c.Ship.WeaponSlots < 0 || c.Ship.Storage < 0 {
		return configErr("player_ship", c.Ship.Name, "negative capacity")
	}
	if len(c.Start.Weapons) > c.Ship.WeaponSlots {
		return configErr("start", "weapons", "more starting weapons than weapon slots")
	}
	for _, id := range c.Start.Weapons {
		t, ok := c.Weapons[id]
		if !ok {
			return configErr("weapon", id, "")
		}
		if _, ok := t.Tiers[RarityCommon]; !ok {
			return configErr("rarity", id+"/"+string(RarityCommon), "starting weapon needs a common tier")
		}
	}

	for id, t := range c.Weapons {
		if len(t.Tiers) == 0 {
			return configErr("weapon", id, "no rarity tiers")
		}
		for r, tier := range t.Tiers {
			if err := validateTier(id+"/"+string(r), tier); err != nil {
				return err
			}
		}
	}

	for id, m := range c.Monsters {
		if m.HP <= 0 {
			return configErr("monster", id, "hp must be positive")
		}
		if m.GoldReward.Min > m.GoldReward.Max {
			return configErr("monster", id, "gold_reward min > max")
		}
		for _, wid := range m.Weapons {
			t, ok := c.Weapons[wid]
			if !ok {
				return configErr("weapon", wid, "referenced by monster "+id)
			}
			if _, ok := t.Tiers[m.WeaponRarity]; !ok {
				return configErr("rarity", wid+"/"+string(m.WeaponRarity), "referenced by monster "+id)
			}
		}
	}

	if len(c.Chapters) == 0 {
		return configErr("chapter", "", "no chapters configured")
	}
	for _, ch := range c.Chapters {
		name := fmt.Sprint(ch.Number)
		if ch.RequiredEvents < 1 {
			return configErr("chapter", name, "required_events must be at least 1")
		}
		if ch.MinBranches > ch.MaxBranches {
			return configErr("chapter", name, "min_branches > max_branches")
		}
		for et, rule := range ch.Events {
			if et == EventBoss || et == EventStart {
				return configErr("chapter", name, "event type "+string(et)+" cannot be distributed")
			}
			if rule.Weight < 0 || rule.MinCount < 0 || rule.MaxCount < 0 || rule.FixedCount < 0 {
				return configErr("chapter", name, "negative event rule for "+string(et))
			}
			if rule.MaxCount > 0 && rule.MinCount > rule.MaxCount {
				return configErr("chapter", name, "min_count > max_count for "+string(et))
			}
		}
		for et, encs := range ch.Encounters {
			for _, enc := range encs {
				if enc.Weight <= 0 || len(enc.Monsters) == 0 {
					return configErr("chapter", name, "empty or zero-weight encounter for "+string(et))
				}
				for _, mid := range enc.Monsters {
					if _, ok := c.Monsters[mid]; !ok {
						return configErr("monster", mid, "referenced by chapter "+name)
					}
				}
			}
		}
	}

	for r, w := range c.RarityWeights {
		if w < 0 {
			return configErr("rarity", string(r), "negative weight")
		}
	}
	for r, tier := range c.Relics.Tiers {
		if tier.EffectCount.Min < 0 || tier.EffectCount.Min > tier.EffectCount.Max {
			return configErr("relic", string(r), "invalid effect_count")
		}
	}
	for _, le := range c.Relics.Legendary {
		if le.Type == RelicBonusWeapon && le.Weapon == nil {
			return configErr("relic", string(le.Type), "bonus_weapon needs weapon stat ranges")
		}
		if le.Weapon != nil {
			if err := validateTier(string(le.Type), *le.Weapon); err != nil {
				return err
			}
		}
	}

	w := c.Weather
	if w.IncrementPerMove < 0 || w.TypeLockThreshold > w.Max {
		return configErr("weather", "", "invalid progression constants")
	}
	return nil
}

func validateTier(id string, t WeaponTier) error {
	switch {
	case t.DamageMin.Min > t.DamageMin.Max, t.DamageMax.Min > t.DamageMax.Max:
		return configErr("weapon", id, "damage range min > max")
	case t.Handling.Min > t.Handling.Max:
		return configErr("weapon", id, "handling min > max")
	case t.Accuracy.Min < 0 || t.Accuracy.Max > 100 || t.Accuracy.Min > t.Accuracy.Max:
		return configErr("weapon", id, "accuracy must lie within 0..100")
	case t.CooldownMin.Min < 0 || t.CooldownMin.Min > t.CooldownMin.Max || t.CooldownMax.Min > t.CooldownMax.Max:
		return configErr("weapon", id, "invalid cooldown range")
	case t.CritRate.Min < 0 || t.CritRate.Max > 1:
		return configErr("weapon", id, "crit_rate must lie within 0..1")
	case t.CritRate.Max > 0 && (t.CritMultiplier.Min < 1 || t.CritMultiplier.Min > t.CritMultiplier.Max):
		return configErr("weapon", id, "crit_multiplier must be at least 1")
	case t.BasePrice < 0:
		return configErr("weapon", id, "negative base_price")
	}
	return nil
}

// Chapter returns the configuration of a chapter number. Chapters past the
// last configured one reuse the final entry.
func (c *Catalog) Chapter(number int) (ChapterConfig, error) {
	if len(c.Chapters) == 0 {
		return ChapterConfig{}, configErr("chapter", fmt.Sprint(number), "")
	}
	for _, ch := range c.Chapters {
		if ch.Number == number {
			return ch, nil
		}
	}
	if number > c.Chapters[len(c.Chapters)-1].Number {
		ch := c.Chapters[len(c.Chapters)-1]
		ch.Number = number
		return ch, nil
	}
	return ChapterConfig{}, configErr("chapter", fmt.Sprint(number), "")
}
