package game

import (
	"fmt"
	"sort"
)

// Snapshot is the persisted form of a session. Battles and port stock are
// transient and never saved.
type Snapshot struct {
	Chapter       int              `json:"chapter"`
	Map           *ChapterMap      `json:"map"`
	CurrentNodeID string           `json:"current_node_id"`
	Player        PlayerParameters `json:"player"`
	Variables     map[string]any   `json:"variables"`
	VisitedNodes  []string         `json:"visited_nodes"`
	Weather       Weather          `json:"weather"`
}

// Snapshot captures the session. The visited set is flattened to a sorted list.
// The result shares no memory with the session, so it can be encoded after
// the session lock is released.
func (s *Session) Snapshot() Snapshot {
	visited := make([]string, 0, len(s.Visited))
	for id := range s.Visited {
		visited = append(visited, id)
	}
	sort.Strings(visited)

	return Snapshot{
		Chapter:       s.Chapter,
		Map:           s.Map.Clone(),
		CurrentNodeID: s.CurrentNodeID,
		Player:        s.Player.Clone(),
		Variables:     cloneVariables(s.Variables),
		VisitedNodes:  visited,
		Weather:       s.Weather,
	}
}

// Clone deep-copies the map and its nodes.
func (m *ChapterMap) Clone() *ChapterMap {
	if m == nil {
		return nil
	}
	c := *m
	c.Nodes = make(map[string]*MapNode, len(m.Nodes))
	for id, n := range m.Nodes {
		cn := *n
		cn.Connections = append([]string(nil), n.Connections...)
		c.Nodes[id] = &cn
	}
	c.EventConfig = make(EventConfig, len(m.EventConfig))
	for t, r := range m.EventConfig {
		c.EventConfig[t] = r
	}
	return &c
}

// Clone deep-copies the weapon and relic lists.
func (p PlayerParameters) Clone() PlayerParameters {
	p.Weapons = append([]Weapon{}, p.Weapons...)
	relics := make([]Relic, len(p.Relics))
	for i, r := range p.Relics {
		effects := make([]RelicEffect, len(r.Effects))
		for j, e := range r.Effects {
			if e.Weapon != nil {
				w := *e.Weapon
				e.Weapon = &w
			}
			effects[j] = e
		}
		r.Effects = effects
		relics[i] = r
	}
	p.Relics = relics
	return p
}

func cloneVariables(vars map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneVariables(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Restore replaces the session state with snap. The session resumes in
// navigation, or game over when the ship was already lost.
func (s *Session) Restore(snap Snapshot) error {
	if snap.Map == nil {
		return fmt.Errorf("restore: snapshot has no map")
	}
	if snap.Map.Node(snap.CurrentNodeID) == nil {
		return fmt.Errorf("restore: current node %q not on map", snap.CurrentNodeID)
	}
	cfg, err := s.Catalog.Chapter(snap.Chapter)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	s.chapterCfg = cfg
	s.Chapter = snap.Chapter
	s.Map = snap.Map.Clone()
	s.CurrentNodeID = snap.CurrentNodeID
	s.Player = snap.Player.Clone()
	s.Variables = cloneVariables(snap.Variables)
	if s.Variables == nil {
		s.Variables = make(map[string]any)
	}
	s.Visited = make(map[string]bool, len(snap.VisitedNodes))
	for _, id := range snap.VisitedNodes {
		s.Visited[id] = true
	}
	s.Visited[snap.Map.StartID] = true
	s.Weather = snap.Weather
	s.Battle = nil
	s.portStock = nil

	if s.Player.Hull <= 0 {
		s.Phase = PhaseGameOver
	} else {
		s.Phase = PhaseNavigation
	}
	s.UpdateVisibility()
	return nil
}
