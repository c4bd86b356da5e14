/*
Package game
File: models.go
Description:
    Defines the data structures used throughout the Mistvoyage core.
    This file serves as the "schema" for the application: the configuration
    documents loaded from 'voyage.yaml' and the runtime state that is
    returned to the presentation layer as JSON.

    No logic is performed here; this file is strictly for type definitions.
*/

package game

import "time"

// EventType tags what happens when the ship enters a map node.
type EventType string

const (
	EventMonster      EventType = "monster"
	EventEliteMonster EventType = "elite_monster"
	EventPort         EventType = "port"
	EventTreasure     EventType = "treasure"
	EventTemple       EventType = "temple"
	EventUnknown      EventType = "unknown"
	EventBoss         EventType = "boss"
	EventStart        EventType = "start"
)

// distributableEvents is the canonical iteration order for event types that
// can be placed on intermediate layers. Map iteration order is random in Go,
// so every loop over an EventConfig walks this slice instead.
var distributableEvents = []EventType{
	EventMonster,
	EventEliteMonster,
	EventPort,
	EventTreasure,
	EventTemple,
	EventUnknown,
}

// IsCombat reports whether entering a node of this type starts a battle.
func (e EventType) IsCombat() bool {
	return e == EventMonster || e == EventEliteMonster || e == EventBoss
}

// Rarity is the tier that gates stat ranges and prices of weapons and relics.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var rarityOrder = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

// StatusEffectType identifies a timed combat effect.
type StatusEffectType string

const (
	EffectNone   StatusEffectType = ""
	EffectFear   StatusEffectType = "fear"   // Slows weapon cooldowns of the afflicted side
	EffectBurn   StatusEffectType = "burn"   // Damage over time
	EffectSlow   StatusEffectType = "slow"   // Lowers speed for the speed comparison
	EffectBlind  StatusEffectType = "blind"  // Lowers accuracy
	EffectFrenzy StatusEffectType = "frenzy" // Legendary relic berserk: faster cooldowns
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// FloatRange is an inclusive float interval.
type FloatRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// ---------------------------------------------------------------------------
// Configuration documents
// ---------------------------------------------------------------------------

// EventRule controls how often one event type is placed on a chapter map.
// Zero values mean "unset": no fixed count, no minimum, unlimited maximum.
type EventRule struct {
	Weight     int `yaml:"weight" json:"weight"`
	FixedCount int `yaml:"fixed_count" json:"fixed_count,omitempty"`
	MinCount   int `yaml:"min_count" json:"min_count,omitempty"`
	MaxCount   int `yaml:"max_count" json:"max_count,omitempty"`
}

// EventConfig is the per-chapter event distribution configuration.
type EventConfig map[EventType]EventRule

// Encounter is one weighted group of monsters a combat node may spawn.
type Encounter struct {
	Monsters []string `yaml:"monsters" json:"monsters"`
	Weight   int      `yaml:"weight" json:"weight"`
}

// ChapterConfig describes how a chapter map is generated and populated.
type ChapterConfig struct {
	Number         int                       `yaml:"number" json:"number"`
	Name           string                    `yaml:"name" json:"name"`
	RequiredEvents int                       `yaml:"required_events" json:"required_events"` // Number of event layers between start and boss
	MinBranches    int                       `yaml:"min_branches" json:"min_branches"`       // Defaults to 1
	MaxBranches    int                       `yaml:"max_branches" json:"max_branches"`       // Defaults to 4
	BaseDifficulty int                       `yaml:"base_difficulty" json:"base_difficulty"`
	DifficultyStep int                       `yaml:"difficulty_step" json:"difficulty_step"` // Layers per +1 difficulty
	BossDifficulty int                       `yaml:"boss_difficulty" json:"boss_difficulty"`
	Events         EventConfig               `yaml:"events" json:"events"`
	Encounters     map[EventType][]Encounter `yaml:"encounters" json:"-"` // Keyed by monster, elite_monster, boss
}

// WeaponTier holds the stat ranges a weapon template rolls within at one rarity.
type WeaponTier struct {
	DamageMin      Range      `yaml:"damage_min" json:"damage_min"`
	DamageMax      Range      `yaml:"damage_max" json:"damage_max"`
	Handling       Range      `yaml:"handling" json:"handling"`
	Accuracy       Range      `yaml:"accuracy" json:"accuracy"`
	CooldownMin    FloatRange `yaml:"cooldown_min" json:"cooldown_min"` // Seconds
	CooldownMax    FloatRange `yaml:"cooldown_max" json:"cooldown_max"` // Seconds
	CritRate       FloatRange `yaml:"crit_rate" json:"crit_rate"`       // Probability 0..1
	CritMultiplier FloatRange `yaml:"crit_multiplier" json:"crit_multiplier"`
	BasePrice      int        `yaml:"base_price" json:"base_price"`
}

// WeaponTemplate is a weapon blueprint keyed by ID in the catalog.
type WeaponTemplate struct {
	ID     string                `yaml:"-" json:"id"`
	Name   string                `yaml:"name" json:"name"`
	Effect StatusEffectType      `yaml:"effect" json:"effect,omitempty"`
	Tiers  map[Rarity]WeaponTier `yaml:"tiers" json:"tiers"`
}

// MonsterDefinition is the static description of a monster type.
type MonsterDefinition struct {
	ID           string   `yaml:"-" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	HP           int      `yaml:"hp" json:"hp"`
	Speed        int      `yaml:"speed" json:"speed"`
	Weapons      []string `yaml:"weapons" json:"weapons"`             // Weapon template IDs
	WeaponRarity Rarity   `yaml:"weapon_rarity" json:"weapon_rarity"` // Tier the monster's weapons are forged at
	GoldReward   Range    `yaml:"gold_reward" json:"gold_reward"`
	Difficulty   int      `yaml:"difficulty" json:"difficulty"`
}

// SpeedModifiers are accuracy multipliers from comparing attacker and defender speed.
type SpeedModifiers struct {
	Faster float64 `yaml:"faster"`
	Slower float64 `yaml:"slower"`
	Equal  float64 `yaml:"equal"`
}

// SightModifiers penalize player accuracy below a sight threshold.
type SightModifiers struct {
	Threshold int     `yaml:"threshold"`
	Penalty   float64 `yaml:"penalty"`
}

// CrewPenalty inflates weapon cooldowns when the ship is undermanned.
type CrewPenalty struct {
	HandlingPenaltyPerCrew float64 `yaml:"handling_penalty_per_crew"` // Cooldown increase per missing crew member
	RatioThreshold         float64 `yaml:"ratio_threshold"`           // crew/crewMax below this triggers RatioMultiplier
	RatioMultiplier        float64 `yaml:"ratio_multiplier"`
}

// EffectTuning configures one status effect type.
type EffectTuning struct {
	Duration           float64 `yaml:"duration"`            // Seconds
	CooldownMultiplier float64 `yaml:"cooldown_multiplier"` // fear, frenzy
	AccuracyMultiplier float64 `yaml:"accuracy_multiplier"` // blind
	SpeedPenalty       int     `yaml:"speed_penalty"`       // slow
	DamagePerSecond    int     `yaml:"damage_per_second"`   // burn
}

// BerserkTuning is the monster desperation mechanic.
type BerserkTuning struct {
	HPRatioThreshold   float64 `yaml:"hp_ratio_threshold"`
	AccuracyMultiplier float64 `yaml:"accuracy_multiplier"`
	CooldownMultiplier float64 `yaml:"cooldown_multiplier"` // < 1 means monsters act more often
}

// BattleTuning groups all battle balancing constants.
type BattleTuning struct {
	TickMS            int                               `yaml:"tick_ms"`
	MonsterFireChance float64                           `yaml:"monster_fire_chance"`
	Speed             SpeedModifiers                    `yaml:"speed"`
	Sight             SightModifiers                    `yaml:"sight"`
	Crew              CrewPenalty                       `yaml:"crew"`
	Effects           map[StatusEffectType]EffectTuning `yaml:"effects"`
	Berserk           BerserkTuning                     `yaml:"berserk"`
	LootChance        map[EventType]float64             `yaml:"loot_chance"` // Chance of a weapon drop on victory
}

// RelicEffectType identifies what a relic effect modifies.
type RelicEffectType string

const (
	RelicMaxHull     RelicEffectType = "max_hull"
	RelicCrew        RelicEffectType = "crew"
	RelicSight       RelicEffectType = "sight"
	RelicSpeed       RelicEffectType = "speed"
	RelicFood        RelicEffectType = "food"
	RelicAccuracy    RelicEffectType = "accuracy"     // Flat accuracy bonus for player weapons
	RelicDamage      RelicEffectType = "damage"       // Flat damage bonus per hit
	RelicGoldBonus   RelicEffectType = "gold_bonus"   // Percent bonus to battle gold
	RelicBonusWeapon RelicEffectType = "bonus_weapon" // Legendary only
	RelicBerserk     RelicEffectType = "berserk"      // Legendary only
)

// RelicEffectTemplate is a normal relic effect with per-rarity value ranges.
type RelicEffectTemplate struct {
	Type        RelicEffectType  `yaml:"type"`
	Description string           `yaml:"description"` // fmt template taking the rolled value
	Values      map[Rarity]Range `yaml:"values"`
}

// LegendaryEffectTemplate is a legendary-only relic effect.
type LegendaryEffectTemplate struct {
	Type        RelicEffectType `yaml:"type"`
	Description string          `yaml:"description"`
	Value       Range           `yaml:"value"`       // berserk: seconds of frenzy
	WeaponName  string          `yaml:"weapon_name"` // bonus_weapon
	Weapon      *WeaponTier     `yaml:"weapon"`      // bonus_weapon stat ranges
}

// RelicTier holds per-rarity relic generation settings.
type RelicTier struct {
	EffectCount Range `yaml:"effect_count"`
}

// RelicConfig is the relic effect template document.
type RelicConfig struct {
	Tiers     map[Rarity]RelicTier      `yaml:"tiers"`
	Effects   []RelicEffectTemplate     `yaml:"effects"`
	Legendary []LegendaryEffectTemplate `yaml:"legendary"`
}

// WeatherEffect is the gameplay impact of one weather state.
type WeatherEffect struct {
	SightMultiplier   float64 `yaml:"sight_multiplier" json:"sight_multiplier"`
	SpeedPenalty      int     `yaml:"speed_penalty" json:"speed_penalty"`
	HullDamagePerMove int     `yaml:"hull_damage_per_move" json:"hull_damage_per_move"`
}

// WeatherConfig holds the weather progression constants.
type WeatherConfig struct {
	IncrementPerMove  float64                        `yaml:"increment_per_move"`
	TypeLockThreshold float64                        `yaml:"type_lock_threshold"`
	SevereThreshold   float64                        `yaml:"severe_threshold"`
	StormThreshold    float64                        `yaml:"storm_threshold"`
	Max               float64                        `yaml:"max"`
	Effects           map[WeatherState]WeatherEffect `yaml:"effects"`
}

// ShipConfig is the starting vessel.
type ShipConfig struct {
	Name        string `yaml:"name" json:"name"`
	HullMax     int    `yaml:"hull_max" json:"hull_max"`
	CrewMax     int    `yaml:"crew_max" json:"crew_max"`
	Storage     int    `yaml:"storage" json:"storage"`           // Relic capacity
	WeaponSlots int    `yaml:"weapon_slots" json:"weapon_slots"` // Weapon capacity
	Speed       int    `yaml:"speed" json:"speed"`
}

// StartConfig holds new-game resources and per-move upkeep.
type StartConfig struct {
	Food               int      `yaml:"food"`
	Money              int      `yaml:"money"`
	Sight              int      `yaml:"sight"`
	Weapons            []string `yaml:"weapons"`              // Template IDs forged at common rarity
	FoodPerMove        int      `yaml:"food_per_move"`        // Food consumed by each navigation
	StarvationCrewLoss int      `yaml:"starvation_crew_loss"` // Crew lost per move without food
}

// PortConfig prices the port services.
type PortConfig struct {
	RepairCostPerHull int `yaml:"repair_cost_per_hull"`
	FoodPrice         int `yaml:"food_price"`  // Price of one food bundle
	FoodBundle        int `yaml:"food_bundle"` // Food units per bundle
	CrewHireCost      int `yaml:"crew_hire_cost"`
	StockSize         int `yaml:"stock_size"` // Weapons offered per port visit
}

// TreasureConfig controls treasure node rewards.
type TreasureConfig struct {
	RelicChance float64 `yaml:"relic_chance"`
	Gold        Range   `yaml:"gold"`
}

// TempleConfig controls temple node blessings.
type TempleConfig struct {
	SightBonus   int `yaml:"sight_bonus"`
	MaxSight     int `yaml:"max_sight"`
	CrewRecovery int `yaml:"crew_recovery"`
}

// Universe-level document: the root of 'voyage.yaml'.
type Catalog struct {
	Ship          ShipConfig                   `yaml:"player_ship"`
	Start         StartConfig                  `yaml:"start"`
	RarityWeights map[Rarity]int               `yaml:"rarity_weights"`
	Weapons       map[string]WeaponTemplate    `yaml:"weapons"`
	Monsters      map[string]MonsterDefinition `yaml:"monsters"`
	Chapters      []ChapterConfig              `yaml:"chapters"`
	Battle        BattleTuning                 `yaml:"battle"`
	Relics        RelicConfig                  `yaml:"relics"`
	Weather       WeatherConfig                `yaml:"weather"`
	Port          PortConfig                   `yaml:"port"`
	Treasure      TreasureConfig               `yaml:"treasure"`
	Temple        TempleConfig                 `yaml:"temple"`
}

// ---------------------------------------------------------------------------
// Runtime state
// ---------------------------------------------------------------------------

// MapNode is one location on a chapter map.
type MapNode struct {
	ID          string    `json:"id"`
	Layer       int       `json:"layer"`  // Depth from start (0 = start)
	Branch      int       `json:"branch"` // Position within the layer, top to bottom
	Event       EventType `json:"event"`
	Difficulty  int       `json:"difficulty,omitempty"` // 0 = none
	Connections []string  `json:"connections"`          // Outgoing edges only
	Visible     bool      `json:"visible"`
	Accessible  bool      `json:"accessible"`
}

// ChapterMap owns every node of one chapter.
type ChapterMap struct {
	Chapter        int                 `json:"chapter"`
	Nodes          map[string]*MapNode `json:"nodes"`
	StartID        string              `json:"start_id"`
	BossID         string              `json:"boss_id"`
	TotalLayers    int                 `json:"total_layers"` // Including start and boss layers
	RequiredEvents int                 `json:"required_events"`
	EventConfig    EventConfig         `json:"event_config"`
}

// Weapon is a forged weapon instance.
type Weapon struct {
	ID             string           `json:"id"`
	TemplateID     string           `json:"template_id"`
	Name           string           `json:"name"`
	Damage         Range            `json:"damage"`
	Handling       int              `json:"handling"` // Crew needed to operate
	Accuracy       int              `json:"accuracy"` // 0..100
	Cooldown       FloatRange       `json:"cooldown"` // Seconds
	CritRate       float64          `json:"crit_rate"`
	CritMultiplier float64          `json:"crit_multiplier"`
	Rarity         Rarity           `json:"rarity"`
	Effect         StatusEffectType `json:"effect,omitempty"`
	Price          int              `json:"price"`
}

// RelicEffect is one rolled relic effect.
type RelicEffect struct {
	Type        RelicEffectType `json:"type"`
	Value       int             `json:"value"`
	Description string          `json:"description"`
	Legendary   bool            `json:"legendary"`
	Weapon      *Weapon         `json:"weapon,omitempty"` // bonus_weapon only
}

// Relic is a rolled relic instance.
type Relic struct {
	ID      string        `json:"id"`
	Rarity  Rarity        `json:"rarity"`
	Effects []RelicEffect `json:"effects"`
}

// PlayerParameters is the mutable player aggregate.
type PlayerParameters struct {
	Ship    ShipConfig `json:"ship"`
	Hull    int        `json:"hull"`
	Food    int        `json:"food"`
	Money   int        `json:"money"`
	Crew    int        `json:"crew"`
	Sight   int        `json:"sight"`
	Speed   int        `json:"speed"`
	Weapons []Weapon   `json:"weapons"`
	Relics  []Relic    `json:"relics"`
}

// StatusEffect is an active timed effect on a combatant.
type StatusEffect struct {
	Type      StatusEffectType `json:"type"`
	StartTime time.Time        `json:"start_time"`
	Duration  time.Duration    `json:"duration"`
	Ticks     int              `json:"ticks"` // Whole seconds already applied (burn)
}

// Monster is a spawned enemy, discarded at battle end.
type Monster struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"definition_id"`
	Name         string         `json:"name"`
	HP           int            `json:"hp"`
	MaxHP        int            `json:"max_hp"`
	Speed        int            `json:"speed"`
	WeaponIDs    []string       `json:"weapon_ids"`
	Weapons      []Weapon       `json:"weapons"`
	GoldReward   Range          `json:"gold_reward"`
	Difficulty   int            `json:"difficulty"`
	Effects      []StatusEffect `json:"effects"`
}

// BattlePhase is the battle state machine position.
type BattlePhase string

const (
	PhasePreparation BattlePhase = "preparation"
	PhaseCombat      BattlePhase = "combat"
	PhaseVictory     BattlePhase = "victory"
	PhaseDefeat      BattlePhase = "defeat"
)

// Terminal reports whether the phase ends the battle.
func (p BattlePhase) Terminal() bool {
	return p == PhaseVictory || p == PhaseDefeat
}

// BattleLogEntry is an immutable record of one fired action.
type BattleLogEntry struct {
	Actor    string           `json:"actor"`
	Weapon   string           `json:"weapon"`
	Target   string           `json:"target"`
	Damage   int              `json:"damage"`
	Hit      bool             `json:"hit"`
	Critical bool             `json:"critical,omitempty"`
	Effect   StatusEffectType `json:"effect,omitempty"`
	Time     time.Time        `json:"time"`
}

// BattleReward is computed when the battle resolves in victory.
type BattleReward struct {
	Gold   int     `json:"gold"`
	Weapon *Weapon `json:"weapon,omitempty"`
}

// BattleState is the full state of one encounter.
type BattleState struct {
	ID            string               `json:"id"`
	NodeID        string               `json:"node_id"`
	Event         EventType            `json:"event"`
	Active        bool                 `json:"active"`
	Phase         BattlePhase          `json:"phase"`
	Monsters      []*Monster           `json:"monsters"`
	LastUsed      map[string]time.Time `json:"last_used"` // Player weapon ID -> last fire time
	Log           []BattleLogEntry     `json:"log"`
	PlayerEffects []StatusEffect       `json:"player_effects"`
	StartTime     time.Time            `json:"start_time"`
	Reward        *BattleReward        `json:"reward,omitempty"`
}

// WeatherType locks in once weather crosses the type-lock threshold.
type WeatherType string

const (
	WeatherUnset WeatherType = ""
	WeatherFog   WeatherType = "fog"
	WeatherRain  WeatherType = "rain"
)

// WeatherState is the derived display/effect state.
type WeatherState string

const (
	WeatherClear     WeatherState = "clear"
	WeatherFoggy     WeatherState = "fog"
	WeatherDenseFog  WeatherState = "dense_fog"
	WeatherRainy     WeatherState = "rain"
	WeatherHeavyRain WeatherState = "heavy_rain"
	WeatherStorm     WeatherState = "storm"
)

// Weather is process-wide per session and persists across battles.
type Weather struct {
	Value float64     `json:"value"` // 0..Max, rises with every move
	Type  WeatherType `json:"type"`
}
