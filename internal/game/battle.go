/*
Package game
File: battle.go
Description:
    The real-time battle simulator.
    Advance is called on a fixed external cadence and resolves, in order:
    1. the terminate check, 2. player weapons whose cooldown has elapsed,
    3. monster actions (flat per-tick fire chance), 4. status effect upkeep.
    Every fired action is appended to the battle log, which is never pruned.
*/

package game

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
)

const playerActor = "player"

// Simulator advances battles using the configured tuning.
type Simulator struct {
	tuning BattleTuning
	rng    Rand
	logger *log.Logger
}

// NewSimulator creates a simulator. A nil logger discards output.
func NewSimulator(tuning BattleTuning, rng Rand, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Simulator{tuning: tuning, rng: rng, logger: logger}
}

// NewBattle creates an active battle in the preparation phase.
func NewBattle(nodeID string, event EventType, monsters []*Monster, now time.Time) *BattleState {
	return &BattleState{
		ID:            uuid.NewString(),
		NodeID:        nodeID,
		Event:         event,
		Active:        true,
		Phase:         PhasePreparation,
		Monsters:      monsters,
		LastUsed:      make(map[string]time.Time),
		Log:           []BattleLogEntry{},
		PlayerEffects: []StatusEffect{},
		StartTime:     now,
	}
}

// Advance runs one tick. It is a no-op for inactive or finished battles.
func (s *Simulator) Advance(b *BattleState, p *PlayerParameters, weather WeatherEffect, now time.Time) {
	if b == nil || !b.Active || b.Phase.Terminal() {
		return
	}
	if b.Phase == PhasePreparation {
		b.Phase = PhaseCombat
	}

	// 1. Terminate check
	if p.Hull <= 0 || allDefeated(b.Monsters) {
		s.resolve(b, p)
		return
	}

	// 2. Player weapons
	s.firePlayerWeapons(b, p, weather, now)

	// 3. Monster actions
	s.monsterActions(b, p, weather, now)

	// 4. Effect upkeep and expiry
	b.PlayerEffects = s.updateEffects(b.PlayerEffects, now, func(dmg int) { p.Damage(dmg) })
	for _, m := range b.Monsters {
		m.Effects = s.updateEffects(m.Effects, now, func(dmg int) { m.takeDamage(dmg) })
	}
}

func (s *Simulator) firePlayerWeapons(b *BattleState, p *PlayerParameters, weather WeatherEffect, now time.Time) {
	cooldownMult := s.tuning.crewCooldownMultiplier(p) * s.tuning.effectCooldownMultiplier(b.PlayerEffects)

	for i := range p.Weapons {
		w := &p.Weapons[i]
		target := lowestHPMonster(b.Monsters)
		if target == nil {
			return
		}

		last, ok := b.LastUsed[w.ID]
		if !ok {
			last = b.StartTime
		}
		cooldown := seconds(rollFloat(s.rng, w.Cooldown) * cooldownMult)
		if now.Sub(last) < cooldown {
			continue
		}
		b.LastUsed[w.ID] = now
		s.playerAttack(b, p, w, target, weather, now)
	}
}

func (s *Simulator) playerAttack(b *BattleState, p *PlayerParameters, w *Weapon, target *Monster, weather WeatherEffect, now time.Time) {
	playerSpeed := s.tuning.effectiveSpeed(p.Speed-weather.SpeedPenalty, b.PlayerEffects)
	monsterSpeed := s.tuning.effectiveSpeed(target.Speed, target.Effects)

	// Hit chance = accuracy x speed x sight x weather (x blind)
	chance := float64(w.Accuracy + p.RelicBonus(RelicAccuracy))
	chance *= s.tuning.speedModifier(playerSpeed, monsterSpeed)
	chance *= s.tuning.sightModifier(p.Sight)
	chance *= weatherSightMultiplier(weather)
	chance *= s.tuning.effectAccuracyMultiplier(b.PlayerEffects)

	entry := BattleLogEntry{Actor: playerActor, Weapon: w.Name, Target: target.ID, Time: now}
	if s.rng.Float64()*100 < chance {
		dmg, crit := s.rollDamage(*w)
		dmg += p.RelicBonus(RelicDamage)
		if dmg < 0 {
			dmg = 0
		}
		target.takeDamage(dmg)
		entry.Hit, entry.Damage, entry.Critical = true, dmg, crit
		if w.Effect != EffectNone {
			target.Effects = applyEffect(target.Effects, w.Effect, s.tuning.effectDuration(w.Effect), now)
			entry.Effect = w.Effect
		}
	}
	b.Log = append(b.Log, entry)
}

func (s *Simulator) monsterActions(b *BattleState, p *PlayerParameters, weather WeatherEffect, now time.Time) {
	playerSpeed := s.tuning.effectiveSpeed(p.Speed-weather.SpeedPenalty, b.PlayerEffects)

	for _, m := range b.Monsters {
		if m.HP <= 0 {
			continue
		}
		berserk := m.MaxHP > 0 && float64(m.HP)/float64(m.MaxHP) <= s.tuning.Berserk.HPRatioThreshold
		monsterSpeed := s.tuning.effectiveSpeed(m.Speed, m.Effects)

		// A shorter cooldown means a higher chance to act on any given tick
		fireChance := s.tuning.MonsterFireChance / s.tuning.effectCooldownMultiplier(m.Effects)
		if berserk {
			fireChance /= s.tuning.Berserk.CooldownMultiplier
		}

		for i := range m.Weapons {
			w := &m.Weapons[i]
			if s.rng.Float64() >= fireChance {
				continue
			}

			chance := float64(w.Accuracy)
			chance *= s.tuning.speedModifier(monsterSpeed, playerSpeed)
			chance *= s.tuning.effectAccuracyMultiplier(m.Effects)
			if berserk {
				chance *= s.tuning.Berserk.AccuracyMultiplier
			}

			entry := BattleLogEntry{Actor: m.ID, Weapon: w.Name, Target: playerActor, Time: now}
			if s.rng.Float64()*100 < chance {
				dmg, crit := s.rollDamage(*w)
				p.Damage(dmg)
				entry.Hit, entry.Damage, entry.Critical = true, dmg, crit
				if w.Effect != EffectNone {
					b.PlayerEffects = applyEffect(b.PlayerEffects, w.Effect, s.tuning.effectDuration(w.Effect), now)
					entry.Effect = w.Effect
				}
			}
			b.Log = append(b.Log, entry)
		}
	}
}

func (s *Simulator) rollDamage(w Weapon) (int, bool) {
	dmg := rollRange(s.rng, w.Damage)
	if w.CritRate > 0 && s.rng.Float64() < w.CritRate {
		return int(float64(dmg) * w.CritMultiplier), true
	}
	return dmg, false
}

// updateEffects applies burn damage for whole elapsed seconds and drops
// effects whose duration has passed.
func (s *Simulator) updateEffects(effects []StatusEffect, now time.Time, burn func(int)) []StatusEffect {
	kept := effects[:0]
	for _, e := range effects {
		elapsed := now.Sub(e.StartTime)
		if e.Type == EffectBurn {
			active := elapsed
			if active > e.Duration {
				active = e.Duration
			}
			if whole := int(active / time.Second); whole > e.Ticks {
				burn((whole - e.Ticks) * s.tuning.Effects[EffectBurn].DamagePerSecond)
				e.Ticks = whole
			}
		}
		if elapsed >= e.Duration {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// resolve ends the battle. Defeat wins over victory when both hold.
func (s *Simulator) resolve(b *BattleState, p *PlayerParameters) {
	b.Active = false
	if p.Hull <= 0 {
		b.Phase = PhaseDefeat
		s.logger.Printf("BATTLE %s: defeat after %d actions", b.ID, len(b.Log))
		return
	}

	gold := 0
	for _, m := range b.Monsters {
		gold += rollRange(s.rng, m.GoldReward)
	}
	if bonus := p.RelicBonus(RelicGoldBonus); bonus > 0 {
		gold += gold * bonus / 100
	}
	b.Phase = PhaseVictory
	b.Reward = &BattleReward{Gold: gold}
	s.logger.Printf("BATTLE %s: victory, gold=%d", b.ID, gold)
}

func (m *Monster) takeDamage(dmg int) {
	m.HP -= dmg
	if m.HP < 0 {
		m.HP = 0
	}
}

func allDefeated(monsters []*Monster) bool {
	for _, m := range monsters {
		if m.HP > 0 {
			return false
		}
	}
	return true
}

// lowestHPMonster returns the living monster with the least hp, first on ties.
func lowestHPMonster(monsters []*Monster) *Monster {
	var target *Monster
	for _, m := range monsters {
		if m.HP <= 0 {
			continue
		}
		if target == nil || m.HP < target.HP {
			target = m
		}
	}
	return target
}

func weatherSightMultiplier(w WeatherEffect) float64 {
	if w.SightMultiplier <= 0 {
		return 1.0
	}
	return w.SightMultiplier
}

// SpawnMonster instantiates a monster definition with freshly forged weapons.
func SpawnMonster(def MonsterDefinition, forge *WeaponForge) (*Monster, error) {
	m := &Monster{
		ID:           uuid.NewString(),
		DefinitionID: def.ID,
		Name:         def.Name,
		HP:           def.HP,
		MaxHP:        def.HP,
		Speed:        def.Speed,
		WeaponIDs:    append([]string(nil), def.Weapons...),
		GoldReward:   def.GoldReward,
		Difficulty:   def.Difficulty,
		Effects:      []StatusEffect{},
	}
	for _, wid := range def.Weapons {
		w, err := forge.Forge(wid, def.WeaponRarity)
		if err != nil {
			return nil, err
		}
		m.Weapons = append(m.Weapons, w)
	}
	return m, nil
}

// RunBattleLoop calls step on every tick of interval until step reports
// completion or ctx is cancelled. Ticks never overlap: step runs
// synchronously inside the loop.
func RunBattleLoop(ctx context.Context, interval time.Duration, step func(now time.Time) (done bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if step(now) {
				return
			}
		}
	}
}
