package game

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func newTestSession(t *testing.T, rng Rand) *Session {
	t.Helper()
	s, err := NewSession(testCatalog(t), WithRand(rng), WithLogger(quietLogger()), WithID("test"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

// enterNode rewrites the first accessible node to the given event and sails there.
func enterNode(t *testing.T, s *Session, event EventType) *MapNode {
	t.Helper()
	for _, id := range s.CurrentNode().Connections {
		n := s.Map.Node(id)
		if !n.Accessible || id == s.Map.BossID {
			continue
		}
		n.Event = event
		if !s.NavigateToNode(id) {
			t.Fatalf("navigation to %s rejected", id)
		}
		return n
	}
	t.Fatalf("no accessible node from %s", s.CurrentNodeID)
	return nil
}

// overpower makes the player's weapon kill anything on the first shot.
func overpower(s *Session) {
	w := &s.Player.Weapons[0]
	w.Damage = Range{Min: 500, Max: 500}
	w.Accuracy = 100
	w.Cooldown = FloatRange{}
	w.CritRate = 0
}

func runBattle(s *Session, start time.Time) {
	for i := 1; i <= 50 && s.Battle.Active; i++ {
		s.AdvanceBattle(start.Add(time.Duration(i) * 100 * time.Millisecond))
	}
}

func TestNewSession(t *testing.T) {
	s := newTestSession(t, NewRand(1))
	if s.ID != "test" || s.Chapter != 1 || s.Phase != PhaseNavigation {
		t.Fatalf("unexpected session %s chapter=%d phase=%s", s.ID, s.Chapter, s.Phase)
	}
	if s.Player.Hull != 50 || s.Player.Crew != 6 || s.Player.Food != 10 || len(s.Player.Weapons) != 1 {
		t.Fatalf("unexpected starting player %+v", s.Player)
	}
	if s.Player.Weapons[0].Rarity != RarityCommon {
		t.Fatalf("starting weapons are forged at common")
	}
	if s.CurrentNodeID != s.Map.StartID || !s.Visited[s.Map.StartID] || s.EventsCompleted() != 0 {
		t.Fatalf("session should start on the start node")
	}
}

func TestNavigateRejectsInaccessible(t *testing.T) {
	s := newTestSession(t, NewRand(2))
	before := s.Player

	if s.NavigateToNode(s.Map.BossID) {
		t.Fatalf("boss must not be reachable from the start")
	}
	if s.NavigateToNode("node-99-0") {
		t.Fatalf("unknown node accepted")
	}
	if s.CurrentNodeID != s.Map.StartID || s.Player.Food != before.Food || s.Weather.Value != 0 {
		t.Fatalf("rejected navigation mutated the session")
	}
}

func TestNavigateUpkeep(t *testing.T) {
	s := newTestSession(t, NewRand(3))
	n := enterNode(t, s, EventTreasure)

	if s.CurrentNodeID != n.ID || s.EventsCompleted() != 1 {
		t.Fatalf("move not recorded")
	}
	if s.Player.Food != 9 {
		t.Fatalf("expected food 9, got %d", s.Player.Food)
	}
	if s.Weather.Value != 5 || s.Weather.Type == WeatherUnset {
		t.Fatalf("weather did not advance: %+v", s.Weather)
	}
	if s.Phase != PhaseEvent {
		t.Fatalf("expected event phase, got %s", s.Phase)
	}
	if s.NavigateToNode(n.Connections[0]) {
		t.Fatalf("navigation must be rejected until the event is resolved")
	}
}

func TestNavigateStarvationAndStorm(t *testing.T) {
	s := newTestSession(t, NewRand(4))
	s.Player.Food = 0
	s.Weather = Weather{Value: 15, Type: WeatherFog}

	enterNode(t, s, EventTemple)
	if s.Player.Crew != 5 {
		t.Fatalf("starvation should cost one crew, got %d", s.Player.Crew)
	}
	if s.WeatherState() != WeatherStorm || s.Player.Hull != 46 {
		t.Fatalf("storm should damage the hull: state=%s hull=%d", s.WeatherState(), s.Player.Hull)
	}
}

func TestNavigateGameOver(t *testing.T) {
	s := newTestSession(t, NewRand(5))
	s.Player.Hull = 2
	s.Weather = Weather{Value: 15, Type: WeatherRain}

	enterNode(t, s, EventTreasure)
	if s.Phase != PhaseGameOver {
		t.Fatalf("expected game over, got %s", s.Phase)
	}
}

func TestBattleFlowVictory(t *testing.T) {
	s := newTestSession(t, NewRand(6))
	overpower(s)
	enterNode(t, s, EventMonster)
	if s.Phase != PhaseBattle {
		t.Fatalf("expected battle phase, got %s", s.Phase)
	}

	now := time.Now()
	b, err := s.InitiateBattle(now)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if len(b.Monsters) != 1 || b.Monsters[0].Name != "Eel" {
		t.Fatalf("unexpected encounter %+v", b.Monsters)
	}
	if _, err := s.InitiateBattle(now); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("second initiate should fail, got %v", err)
	}
	if _, err := s.EndBattle(); !errors.Is(err, ErrBattleInProgress) {
		t.Fatalf("ending a running battle should fail, got %v", err)
	}

	runBattle(s, now)
	if b.Phase != PhaseVictory {
		t.Fatalf("expected victory, got %s", b.Phase)
	}
	reward, err := s.EndBattle()
	if err != nil {
		t.Fatalf("end battle: %v", err)
	}
	if reward.Gold != 10 || s.Player.Money != 110 {
		t.Fatalf("expected 10 gold, reward=%+v money=%d", reward, s.Player.Money)
	}
	if s.Battle != nil || s.Phase != PhaseNavigation {
		t.Fatalf("battle should be cleared, phase=%s", s.Phase)
	}
	if _, err := s.EndBattle(); !errors.Is(err, ErrNoBattle) {
		t.Fatalf("expected ErrNoBattle, got %v", err)
	}
}

func TestBattleFlowBoss(t *testing.T) {
	s := newTestSession(t, NewRand(7))
	overpower(s)
	s.CurrentNodeID = s.Map.BossID
	s.Phase = PhaseBattle

	now := time.Now()
	b, err := s.InitiateBattle(now)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	runBattle(s, now)
	if b.Phase != PhaseVictory {
		t.Fatalf("expected victory, got %s", b.Phase)
	}
	reward, err := s.EndBattle()
	if err != nil {
		t.Fatalf("end battle: %v", err)
	}
	if reward.Weapon == nil || len(s.Player.Weapons) != 2 {
		t.Fatalf("boss loot should be guaranteed, reward=%+v", reward)
	}
	if s.Phase != PhaseChapterComplete {
		t.Fatalf("expected chapter complete, got %s", s.Phase)
	}

	if err := s.NextChapter(); err != nil {
		t.Fatalf("next chapter: %v", err)
	}
	if s.Chapter != 2 || s.Phase != PhaseNavigation || s.CurrentNodeID != s.Map.StartID {
		t.Fatalf("next chapter not started: chapter=%d phase=%s", s.Chapter, s.Phase)
	}
}

func TestBattleFlowDefeat(t *testing.T) {
	s := newTestSession(t, NewRand(8))
	enterNode(t, s, EventMonster)
	now := time.Now()
	if _, err := s.InitiateBattle(now); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	s.Player.Hull = 0
	s.AdvanceBattle(now)

	reward, err := s.EndBattle()
	if err != nil || reward != nil {
		t.Fatalf("defeat should end without reward: %+v %v", reward, err)
	}
	if s.Phase != PhaseGameOver {
		t.Fatalf("expected game over, got %s", s.Phase)
	}
}

func TestInitiateBattleWithoutEncounters(t *testing.T) {
	s := newTestSession(t, NewRand(9))
	enterNode(t, s, EventMonster)
	s.chapterCfg.Encounters = nil

	_, err := s.InitiateBattle(time.Now())
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected a config error, got %v", err)
	}
	if s.Battle != nil || s.Phase != PhaseBattle {
		t.Fatalf("failed initiation must leave the session unchanged")
	}
}

func TestInitiateBattleFrenzy(t *testing.T) {
	s := newTestSession(t, NewRand(10))
	s.Player.Relics = []Relic{{Effects: []RelicEffect{{Type: RelicBerserk, Value: 10, Legendary: true}}}}
	enterNode(t, s, EventMonster)

	b, err := s.InitiateBattle(time.Now())
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if len(b.PlayerEffects) != 1 || b.PlayerEffects[0].Type != EffectFrenzy || b.PlayerEffects[0].Duration != 10*time.Second {
		t.Fatalf("expected a 10s frenzy, got %+v", b.PlayerEffects)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestSession(t, NewRand(11))
	enterNode(t, s, EventTemple)
	s.Variables["met_oracle"] = true

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	other := newTestSession(t, NewRand(12))
	if err := other.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if other.CurrentNodeID != s.CurrentNodeID || other.Player.Food != s.Player.Food || other.Weather != s.Weather {
		t.Fatalf("restored state differs")
	}
	if other.EventsCompleted() != 1 || other.Variables["met_oracle"] != true {
		t.Fatalf("visited nodes or variables lost")
	}
	if other.Phase != PhaseNavigation {
		t.Fatalf("restored sessions resume navigating, got %s", other.Phase)
	}
	if len(other.Map.Nodes) != len(s.Map.Nodes) {
		t.Fatalf("map not restored")
	}
}

func TestRestoreRejectsBrokenSnapshot(t *testing.T) {
	s := newTestSession(t, NewRand(13))
	if err := s.Restore(Snapshot{Chapter: 1}); err == nil {
		t.Fatalf("expected an error for a snapshot without a map")
	}
	snap := s.Snapshot()
	snap.CurrentNodeID = "nowhere"
	if err := s.Restore(snap); err == nil {
		t.Fatalf("expected an error for an unknown current node")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newTestSession(t, NewRand(14))
	s.Player.Relics = []Relic{{ID: "r1", Effects: []RelicEffect{{Type: RelicBonusWeapon, Weapon: &Weapon{ID: "w1", Name: "Tidebreaker"}}}}}
	s.Variables["log"] = []any{"first"}
	snap := s.Snapshot()

	// Mutating the session must not reach the snapshot
	for _, n := range s.Map.Nodes {
		n.Visible = !n.Visible
		n.Connections = append(n.Connections[:0:0], "elsewhere")
	}
	s.Player.Weapons[0].Name = "changed"
	s.Player.Relics[0].Effects[0].Weapon.Name = "changed"
	s.Variables["log"].([]any)[0] = "changed"
	s.Variables["new"] = 1

	for id, n := range snap.Map.Nodes {
		if n == s.Map.Nodes[id] {
			t.Fatalf("node %s shared with the session", id)
		}
		for _, c := range n.Connections {
			if c == "elsewhere" {
				t.Fatalf("node %s connections shared with the session", id)
			}
		}
	}
	if snap.Player.Weapons[0].Name == "changed" || snap.Player.Relics[0].Effects[0].Weapon.Name == "changed" {
		t.Fatalf("player lists shared with the session")
	}
	if snap.Variables["log"].([]any)[0] != "first" || snap.Variables["new"] != nil {
		t.Fatalf("variables shared with the session: %v", snap.Variables)
	}

	// And restoring must not tie the session to the snapshot
	if err := s.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	s.Player.Weapons[0].Name = "again"
	if snap.Player.Weapons[0].Name == "again" {
		t.Fatalf("restore kept a reference to the snapshot")
	}
}
