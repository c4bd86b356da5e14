/*
Package game
File: session.go
Description:
    Owns the mutable state of one game: chapter map, position, player,
    weather and the active battle. The session is the single entry point the
    presentation layer mutates through: GenerateChapterMap, NavigateToNode,
    UpdateVisibility, InitiateBattle, AdvanceBattle, EndBattle, ResolveEvent.

    The session itself is not safe for concurrent use; the API layer holds a
    per-session lock around every call.
*/

package game

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
)

// Phase is where the session is in the navigation/encounter loop.
type Phase string

const (
	PhaseNavigation      Phase = "navigation"
	PhaseEvent           Phase = "event"  // Non-combat node awaiting ResolveEvent
	PhaseBattle          Phase = "battle" // Combat node; battle pending or running
	PhaseChapterComplete Phase = "chapter_complete"
	PhaseGameOver        Phase = "game_over"
)

var (
	ErrInvalidPhase     = errors.New("action not allowed in current phase")
	ErrNoBattle         = errors.New("no battle in progress")
	ErrBattleInProgress = errors.New("battle has not finished")
)

// Session is one running game.
type Session struct {
	ID      string
	Catalog *Catalog

	rng         Rand
	logger      *log.Logger
	mapBuilder  *MapBuilder
	weapons     *WeaponForge
	relics      *RelicForge
	weather     *WeatherSystem
	simulator   *Simulator
	chapterCfg  ChapterConfig
	lootGranted bool
	portStock   []Weapon

	Chapter       int
	Map           *ChapterMap
	CurrentNodeID string
	Player        PlayerParameters
	Variables     map[string]any
	Visited       map[string]bool
	Weather       Weather
	Phase         Phase
	Battle        *BattleState
}

// Option customizes a new Session.
type Option func(*Session)

// WithRand injects the random source shared by every service of the session.
func WithRand(r Rand) Option { return func(s *Session) { s.rng = r } }

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithID overrides the generated session ID.
func WithID(id string) Option { return func(s *Session) { s.ID = id } }

// NewSession builds the services, equips the starting ship and generates chapter 1.
func NewSession(catalog *Catalog, opts ...Option) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		Catalog:   catalog,
		Variables: make(map[string]any),
		Visited:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand(0)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}

	// 1. Services share the session's random source
	s.mapBuilder = NewMapBuilder(s.rng)
	s.weapons = NewWeaponForge(catalog, s.rng)
	s.relics = NewRelicForge(catalog, s.rng)
	s.weather = NewWeatherSystem(catalog.Weather, s.rng)
	s.simulator = NewSimulator(catalog.Battle, s.rng, s.logger)

	// 2. Starting ship and resources
	s.Player = PlayerParameters{
		Ship:    catalog.Ship,
		Hull:    catalog.Ship.HullMax,
		Crew:    catalog.Ship.CrewMax,
		Speed:   catalog.Ship.Speed,
		Food:    catalog.Start.Food,
		Money:   catalog.Start.Money,
		Sight:   catalog.Start.Sight,
		Weapons: []Weapon{},
		Relics:  []Relic{},
	}
	for _, id := range catalog.Start.Weapons {
		w, err := s.weapons.Forge(id, RarityCommon)
		if err != nil {
			return nil, fmt.Errorf("starting weapon: %w", err)
		}
		if err := s.Player.AddWeapon(w); err != nil {
			return nil, fmt.Errorf("starting weapon %s: %w", id, err)
		}
	}

	// 3. First chapter
	if err := s.GenerateChapterMap(1); err != nil {
		return nil, err
	}
	return s, nil
}

// Weapons exposes the session's weapon forge.
func (s *Session) Weapons() *WeaponForge { return s.weapons }

// Relics exposes the session's relic forge.
func (s *Session) Relics() *RelicForge { return s.relics }

// WeatherState is the derived weather state.
func (s *Session) WeatherState() WeatherState { return s.weather.State(s.Weather) }

// WeatherEffect is the gameplay impact of the current weather.
func (s *Session) WeatherEffect() WeatherEffect { return s.weather.Effect(s.Weather) }

// GenerateChapterMap replaces the current map with a freshly built chapter.
func (s *Session) GenerateChapterMap(chapter int) error {
	cfg, err := s.Catalog.Chapter(chapter)
	if err != nil {
		return err
	}
	m, err := s.mapBuilder.Build(cfg)
	if err != nil {
		return err
	}

	s.chapterCfg = cfg
	s.Chapter = chapter
	s.Map = m
	s.CurrentNodeID = m.StartID
	s.Visited = map[string]bool{m.StartID: true}
	s.Battle = nil
	s.portStock = nil
	s.Phase = PhaseNavigation
	s.UpdateVisibility()

	s.logger.Printf("SESSION %s: chapter %d generated (%d nodes, %d layers)", s.ID, chapter, len(m.Nodes), m.TotalLayers)
	return nil
}

// EventsCompleted counts visited nodes other than the start.
func (s *Session) EventsCompleted() int {
	n := 0
	for id := range s.Visited {
		if id != s.Map.StartID {
			n++
		}
	}
	return n
}

// UpdateVisibility refreshes node flags around the current node.
func (s *Session) UpdateVisibility() {
	UpdateVisibility(s.Map, s.CurrentNodeID, s.Player.Sight, s.EventsCompleted())
}

// CurrentNode returns the node the ship is on.
func (s *Session) CurrentNode() *MapNode {
	return s.Map.Node(s.CurrentNodeID)
}

// Label is the display label of a node from the ship's current position.
func (s *Session) Label(n *MapNode) string {
	layer := 0
	if cur := s.CurrentNode(); cur != nil {
		layer = cur.Layer
	}
	return NodeLabel(n, layer, s.Player.Sight)
}

// NavigateToNode moves the ship. It returns false, without mutating
// anything, when the session is not navigating or the node is not accessible.
func (s *Session) NavigateToNode(id string) bool {
	if s.Phase != PhaseNavigation {
		return false
	}
	target := s.Map.Node(id)
	if target == nil || !target.Accessible {
		return false
	}

	// 1. Move
	s.CurrentNodeID = id
	s.Visited[id] = true

	// 2. Weather and upkeep
	s.weather.Advance(&s.Weather)
	s.Player.Damage(s.WeatherEffect().HullDamagePerMove)
	s.consumeFood()

	// 3. Visibility and next phase
	s.UpdateVisibility()
	switch {
	case s.Player.Hull <= 0 || s.Player.Crew <= 0:
		s.Phase = PhaseGameOver
	case target.Event.IsCombat():
		s.Phase = PhaseBattle
	default:
		s.Phase = PhaseEvent
	}
	return true
}

func (s *Session) consumeFood() {
	need := s.Catalog.Start.FoodPerMove
	if need <= 0 {
		return
	}
	if s.Player.Food >= need {
		s.Player.Food -= need
		return
	}
	s.Player.Food = 0
	s.Player.Crew -= s.Catalog.Start.StarvationCrewLoss
	if s.Player.Crew < 0 {
		s.Player.Crew = 0
	}
}

// InitiateBattle spawns the encounter for the current combat node.
// Configuration problems abort the call and leave the session unchanged.
func (s *Session) InitiateBattle(now time.Time) (*BattleState, error) {
	if s.Phase != PhaseBattle || s.Battle != nil {
		return nil, ErrInvalidPhase
	}
	node := s.CurrentNode()

	// 1. Pick an encounter for the node's event type
	encounters := s.chapterCfg.Encounters[node.Event]
	if len(encounters) == 0 {
		return nil, configErr("encounter", fmt.Sprintf("chapter %d/%s", s.Chapter, node.Event), "no encounters configured")
	}
	enc := pickEncounter(s.rng, encounters)

	// 2. Spawn every monster
	monsters := make([]*Monster, 0, len(enc.Monsters))
	for _, mid := range enc.Monsters {
		def, err := s.Catalog.MonsterDefinition(mid)
		if err != nil {
			return nil, err
		}
		m, err := SpawnMonster(def, s.weapons)
		if err != nil {
			return nil, err
		}
		monsters = append(monsters, m)
	}

	// 3. Create the battle
	b := NewBattle(node.ID, node.Event, monsters, now)
	if d := frenzyDuration(&s.Player); d > 0 {
		b.PlayerEffects = applyEffect(b.PlayerEffects, EffectFrenzy, d, now)
	}
	s.Battle = b
	s.lootGranted = false

	s.logger.Printf("SESSION %s: battle %s started at %s with %d monsters", s.ID, b.ID, node.ID, len(monsters))
	return b, nil
}

func pickEncounter(rng Rand, encounters []Encounter) Encounter {
	total := 0
	for _, e := range encounters {
		total += e.Weight
	}
	roll := rng.Intn(total)
	for _, e := range encounters {
		if roll < e.Weight {
			return e
		}
		roll -= e.Weight
	}
	return encounters[len(encounters)-1]
}

// AdvanceBattle runs one battle tick. It is a no-op without an active battle.
func (s *Session) AdvanceBattle(now time.Time) {
	b := s.Battle
	if b == nil {
		return
	}
	s.simulator.Advance(b, &s.Player, s.WeatherEffect(), now)

	if b.Phase == PhaseVictory && !s.lootGranted {
		s.lootGranted = true
		s.rollLoot(b)
	}
}

func (s *Session) rollLoot(b *BattleState) {
	chance := s.Catalog.Battle.LootChance[b.Event]
	if chance <= 0 || s.rng.Float64() >= chance {
		return
	}
	w, err := s.weapons.ForgeRandom()
	if err != nil {
		s.logger.Printf("SESSION %s: loot roll failed: %v", s.ID, err)
		return
	}
	b.Reward.Weapon = &w
}

// EndBattle applies the result of a finished battle and clears it.
func (s *Session) EndBattle() (*BattleReward, error) {
	b := s.Battle
	if b == nil {
		return nil, ErrNoBattle
	}
	if !b.Phase.Terminal() {
		return nil, ErrBattleInProgress
	}
	s.Battle = nil

	if b.Phase == PhaseDefeat {
		s.Phase = PhaseGameOver
		return nil, nil
	}

	reward := b.Reward
	if reward != nil {
		s.Player.Money += reward.Gold
		if reward.Weapon != nil {
			if err := s.Player.AddWeapon(*reward.Weapon); err != nil {
				// No free slot: the drop is lost
				reward.Weapon = nil
			}
		}
	}

	if b.Event == EventBoss {
		s.Phase = PhaseChapterComplete
	} else {
		s.Phase = PhaseNavigation
	}
	return reward, nil
}

// NextChapter starts the following chapter once the boss is defeated.
func (s *Session) NextChapter() error {
	if s.Phase != PhaseChapterComplete {
		return ErrInvalidPhase
	}
	return s.GenerateChapterMap(s.Chapter + 1)
}
