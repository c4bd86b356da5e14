package game

import (
	"io"
	"log"
	"testing"
)

// fixedRand always returns the same draws, clamped into range.
type fixedRand struct {
	n int
	f float64
}

func (r fixedRand) Intn(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}

func (r fixedRand) Float64() float64 { return r.f }

func (r fixedRand) Shuffle(int, func(i, j int)) {}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

const testCatalogYAML = `
player_ship:
  name: "Test Ship"
  hull_max: 50
  crew_max: 6
  storage: 2
  weapon_slots: 2
  speed: 10
start:
  food: 10
  money: 100
  sight: 5
  weapons: ["gun"]
  food_per_move: 1
  starvation_crew_loss: 1
rarity_weights:
  common: 3
  rare: 1
weapons:
  gun:
    name: "Gun"
    tiers:
      common:
        damage_min: { min: 4, max: 6 }
        damage_max: { min: 8, max: 10 }
        handling: { min: 1, max: 2 }
        accuracy: { min: 70, max: 90 }
        cooldown_min: { min: 1.0, max: 1.5 }
        cooldown_max: { min: 2.0, max: 2.5 }
        crit_rate: { min: 0.05, max: 0.1 }
        crit_multiplier: { min: 1.5, max: 2.0 }
        base_price: 100
      rare:
        damage_min: { min: 8, max: 12 }
        damage_max: { min: 10, max: 16 }
        handling: { min: 1, max: 3 }
        accuracy: { min: 80, max: 95 }
        cooldown_min: { min: 0.8, max: 1.2 }
        cooldown_max: { min: 1.0, max: 2.0 }
        crit_rate: { min: 0.1, max: 0.2 }
        crit_multiplier: { min: 1.5, max: 2.5 }
        base_price: 300
  fang:
    name: "Fang"
    tiers:
      common:
        damage_min: { min: 1, max: 2 }
        damage_max: { min: 3, max: 4 }
        handling: { min: 0, max: 0 }
        accuracy: { min: 50, max: 60 }
        cooldown_min: { min: 1.0, max: 1.0 }
        cooldown_max: { min: 2.0, max: 2.0 }
        crit_rate: { min: 0, max: 0 }
        crit_multiplier: { min: 1, max: 1 }
        base_price: 0
monsters:
  eel:
    name: "Eel"
    hp: 20
    speed: 8
    weapons: ["fang"]
    gold_reward: { min: 10, max: 10 }
    difficulty: 1
  kraken:
    name: "Kraken"
    hp: 80
    speed: 9
    weapons: ["fang", "fang"]
    gold_reward: { min: 50, max: 60 }
    difficulty: 4
chapters:
  - name: "Shallows"
    required_events: 4
    min_branches: 2
    max_branches: 3
    base_difficulty: 1
    events:
      monster: { weight: 5, min_count: 2 }
      elite_monster: { weight: 1, max_count: 1 }
      port: { weight: 2, fixed_count: 1 }
      treasure: { weight: 2 }
      temple: { weight: 1 }
    encounters:
      monster:
        - { monsters: ["eel"], weight: 1 }
      elite_monster:
        - { monsters: ["eel", "eel"], weight: 1 }
      boss:
        - { monsters: ["kraken"], weight: 1 }
battle:
  sight: { threshold: 3, penalty: 0.8 }
  effects:
    burn: { duration: 3, damage_per_second: 2 }
    frenzy: { cooldown_multiplier: 0.5 }
  loot_chance:
    boss: 1.0
relics:
  tiers:
    common: { effect_count: { min: 1, max: 1 } }
    rare: { effect_count: { min: 2, max: 2 } }
    legendary: { effect_count: { min: 1, max: 1 } }
  effects:
    - type: max_hull
      description: "Max hull +%d"
      values:
        common: { min: 5, max: 5 }
        rare: { min: 10, max: 10 }
        legendary: { min: 20, max: 20 }
    - type: sight
      description: "Sight +%d"
      values:
        rare: { min: 1, max: 1 }
        legendary: { min: 2, max: 2 }
  legendary:
    - type: berserk
      description: "Frenzy for %d seconds"
      value: { min: 10, max: 10 }
weather:
  increment_per_move: 5
  type_lock_threshold: 5
  severe_threshold: 10
  storm_threshold: 15
  effects:
    storm: { sight_multiplier: 0.5, hull_damage_per_move: 4 }
port:
  repair_cost_per_hull: 2
  food_price: 10
  food_bundle: 5
  crew_hire_cost: 20
  stock_size: 2
treasure:
  relic_chance: 0.5
  gold: { min: 30, max: 30 }
temple:
  sight_bonus: 2
  max_sight: 6
  crew_recovery: 1
`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := ParseCatalog([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("parse test catalog: %v", err)
	}
	return c
}
