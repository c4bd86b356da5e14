/*
Package game
File: mapgen.go
Description:
    Builds the layered chapter map: start -> N event layers -> boss.
    Layers are wired with a greedy matching that prefers proportional
    targets, avoids crossing edges when the two layers are drawn as ordered
    columns, and patches orphaned nodes so every node is reachable.
*/

package game

import (
	"fmt"
	"math"
	"sort"
)

const (
	StartNodeID = "start"
	BossNodeID  = "boss"

	maxConnectionsPerNode = 3
)

// MapBuilder generates chapter maps.
type MapBuilder struct {
	rng         Rand
	distributor *Distributor
}

// NewMapBuilder creates a MapBuilder whose distributor shares rng.
func NewMapBuilder(rng Rand) *MapBuilder {
	return &MapBuilder{rng: rng, distributor: NewDistributor(rng)}
}

// Build generates a ChapterMap from a chapter configuration.
func (b *MapBuilder) Build(ch ChapterConfig) (*ChapterMap, error) {
	if ch.RequiredEvents < 1 {
		return nil, configErr("chapter", fmt.Sprint(ch.Number), "required_events must be at least 1")
	}
	minB, maxB := branchBounds(ch)
	step := ch.DifficultyStep
	if step <= 0 {
		step = 3
	}

	// 1. Decide branch counts per event layer
	branches := make([]int, ch.RequiredEvents)
	total := 0
	for i := range branches {
		branches[i] = minB + b.rng.Intn(maxB-minB+1)
		total += branches[i]
	}

	// 2. Distribute event types across all intermediate slots
	list := b.distributor.Distribute(ch.Events, total)
	picker := b.distributor.NewLayerPicker(ch.Events, list)

	// 3. Create nodes layer by layer
	m := &ChapterMap{
		Chapter:        ch.Number,
		Nodes:          make(map[string]*MapNode, total+2),
		StartID:        StartNodeID,
		BossID:         BossNodeID,
		TotalLayers:    ch.RequiredEvents + 2,
		RequiredEvents: ch.RequiredEvents,
		EventConfig:    ch.Events,
	}

	start := &MapNode{ID: StartNodeID, Layer: 0, Event: EventStart, Connections: []string{}}
	layers := make([][]*MapNode, 0, ch.RequiredEvents+1)
	layers = append(layers, []*MapNode{start})
	m.Nodes[start.ID] = start

	for layer := 1; layer <= ch.RequiredEvents; layer++ {
		events := picker.PickLayer(layer, branches[layer-1])
		nodes := make([]*MapNode, len(events))
		for branch, et := range events {
			n := &MapNode{
				ID:          fmt.Sprintf("node-%d-%d", layer, branch),
				Layer:       layer,
				Branch:      branch,
				Event:       et,
				Difficulty:  ch.BaseDifficulty + (layer-1)/step,
				Connections: []string{},
			}
			if et == EventEliteMonster {
				n.Difficulty++
			}
			nodes[branch] = n
			m.Nodes[n.ID] = n
		}
		layers = append(layers, nodes)
	}

	bossDifficulty := ch.BossDifficulty
	if bossDifficulty == 0 {
		bossDifficulty = ch.BaseDifficulty + ch.RequiredEvents/step + 2
	}
	boss := &MapNode{
		ID:          BossNodeID,
		Layer:       ch.RequiredEvents + 1,
		Event:       EventBoss,
		Difficulty:  bossDifficulty,
		Connections: []string{},
	}
	m.Nodes[boss.ID] = boss

	// 4. Wire consecutive layers
	for i := 0; i+1 < len(layers); i++ {
		b.connectLayers(layers[i], layers[i+1])
	}

	// 5. Every node of the final event layer leads to the boss
	for _, n := range layers[len(layers)-1] {
		n.Connections = append(n.Connections, boss.ID)
	}

	return m, nil
}

func branchBounds(ch ChapterConfig) (int, int) {
	minB, maxB := ch.MinBranches, ch.MaxBranches
	if minB <= 0 {
		minB = 1
	}
	if maxB <= 0 {
		maxB = 4
	}
	if maxB < minB {
		maxB = minB
	}
	return minB, maxB
}

// link is a committed connection between a source index and a target index.
type link struct {
	source, target int
}

// crosses reports whether two links cross when both layers are drawn as
// vertically ordered columns: source order and target order are inverted.
func (a link) crosses(b link) bool {
	return (a.source < b.source && a.target > b.target) ||
		(a.source > b.source && a.target < b.target)
}

func crossesAny(l link, committed []link) bool {
	for _, c := range committed {
		if l.crosses(c) {
			return true
		}
	}
	return false
}

// proportionalIndex maps index i of a column of size from onto a column of size to.
func proportionalIndex(i, from, to int) float64 {
	if to <= 1 {
		return 0
	}
	if from <= 1 {
		return float64(to-1) / 2
	}
	return float64(i) * float64(to-1) / float64(from-1)
}

// byDistance returns the indices 0..n-1 ordered by distance to ideal, lower index first on ties.
func byDistance(n int, ideal float64) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(float64(idx[a])-ideal) < math.Abs(float64(idx[b])-ideal)
	})
	return idx
}

// connectLayers wires src to dst and guarantees every dst node has an incoming edge.
func (b *MapBuilder) connectLayers(src, dst []*MapNode) []link {
	var committed []link
	incoming := make([]int, len(dst))

	commit := func(l link) {
		committed = append(committed, l)
		incoming[l.target]++
		src[l.source].Connections = append(src[l.source].Connections, dst[l.target].ID)
	}

	// 1. Greedy pass: each source picks 1-3 nearby targets that cross nothing
	for si := range src {
		want := 1 + b.rng.Intn(maxConnectionsPerNode)
		if want > len(dst) {
			want = len(dst)
		}
		ideal := proportionalIndex(si, len(src), len(dst))
		candidates := byDistance(len(dst), ideal)

		chosen := 0
		for _, ti := range candidates {
			if chosen == want {
				break
			}
			l := link{source: si, target: ti}
			if crossesAny(l, committed) {
				continue
			}
			commit(l)
			chosen++
		}

		// Crossing avoidance is a preference: fall back to the nearest target
		if chosen == 0 {
			commit(link{source: si, target: candidates[0]})
		}
	}

	// 2. Patch orphans from the nearest source that introduces no crossing
	for ti := range dst {
		if incoming[ti] > 0 {
			continue
		}
		ideal := proportionalIndex(ti, len(dst), len(src))
		candidates := byDistance(len(src), ideal)
		pick := candidates[0]
		for _, si := range candidates {
			if !crossesAny(link{source: si, target: ti}, committed) {
				pick = si
				break
			}
		}
		commit(link{source: pick, target: ti})
	}

	return committed
}

// Layer returns the nodes of one layer ordered by branch.
func (m *ChapterMap) Layer(layer int) []*MapNode {
	var nodes []*MapNode
	for _, n := range m.Nodes {
		if n.Layer == layer {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Branch < nodes[j].Branch })
	return nodes
}

// Node returns a node by ID, or nil.
func (m *ChapterMap) Node(id string) *MapNode {
	if m == nil {
		return nil
	}
	return m.Nodes[id]
}
