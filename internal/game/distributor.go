/*
Package game
File: distributor.go
Description:
    Decides which event types appear on a chapter map.
    1. Fixed allocation, 2. minimum satisfaction, 3. weighted fill bounded by
    max counts. The result is reordered so every distinct type shows up early,
    and a LayerPicker then hands the list out layer by layer.
*/

package game

// Distributor turns an EventConfig into a concrete list of event types.
type Distributor struct {
	rng Rand
}

// NewDistributor creates a Distributor drawing from rng.
func NewDistributor(rng Rand) *Distributor {
	return &Distributor{rng: rng}
}

// Distribute returns up to totalSlots event types satisfying the fixed, min and
// max counts of cfg. Fixed and minimum counts are placed unconditionally, so
// they may exceed totalSlots. When every weighted type hits its max count the
// list comes back short and the caller substitutes EventUnknown.
func (d *Distributor) Distribute(cfg EventConfig, totalSlots int) []EventType {
	counts := make(map[EventType]int)
	result := make([]EventType, 0, totalSlots)

	// 1. Fixed allocation
	for _, et := range distributableEvents {
		rule, ok := cfg[et]
		if !ok {
			continue
		}
		for i := 0; i < rule.FixedCount; i++ {
			result = append(result, et)
			counts[et]++
		}
	}

	// 2. Minimum satisfaction
	for _, et := range distributableEvents {
		rule, ok := cfg[et]
		if !ok {
			continue
		}
		for counts[et] < rule.MinCount {
			result = append(result, et)
			counts[et]++
		}
	}

	// 3. Weighted fill
	pool := weightedPool(cfg, counts, nil)
	for len(result) < totalSlots && len(pool) > 0 {
		et := pool[d.rng.Intn(len(pool))]
		result = append(result, et)
		counts[et]++
		if limit := cfg[et].MaxCount; limit > 0 && counts[et] >= limit {
			pool = removeType(pool, et)
		}
	}

	return d.diversify(result)
}

// diversify puts one instance of each distinct type (shuffled) in front and
// the remaining instances after it, also shuffled.
func (d *Distributor) diversify(list []EventType) []EventType {
	seen := make(map[EventType]bool)
	base := make([]EventType, 0, len(distributableEvents))
	rest := make([]EventType, 0, len(list))
	for _, et := range list {
		if !seen[et] {
			seen[et] = true
			base = append(base, et)
			continue
		}
		rest = append(rest, et)
	}
	d.rng.Shuffle(len(base), func(i, j int) { base[i], base[j] = base[j], base[i] })
	d.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	return append(base, rest...)
}

// weightedPool builds a pool holding `weight` copies of every type that has
// not reached its max count. exclude, when non-nil, filters types out.
func weightedPool(cfg EventConfig, counts map[EventType]int, exclude func(EventType) bool) []EventType {
	var pool []EventType
	for _, et := range distributableEvents {
		rule, ok := cfg[et]
		if !ok || rule.Weight <= 0 {
			continue
		}
		if rule.MaxCount > 0 && counts[et] >= rule.MaxCount {
			continue
		}
		if exclude != nil && exclude(et) {
			continue
		}
		for i := 0; i < rule.Weight; i++ {
			pool = append(pool, et)
		}
	}
	return pool
}

func removeType(pool []EventType, et EventType) []EventType {
	kept := pool[:0]
	for _, p := range pool {
		if p != et {
			kept = append(kept, p)
		}
	}
	return kept
}

// eliteExcluded reports whether elite monsters are banned on a layer.
// Elites never appear within two layers of the start.
func eliteExcluded(layer int) bool {
	return layer <= 2
}

// LayerPicker hands out a distributed event list node by node. The list is
// never modified; consumption is tracked by index and a consumed marker set.
type LayerPicker struct {
	rng      Rand
	cfg      EventConfig
	list     []EventType
	consumed []bool
	next     int // First index that may still be unconsumed
	counts   map[EventType]int
}

// NewLayerPicker wraps a list returned by Distribute.
func (d *Distributor) NewLayerPicker(cfg EventConfig, list []EventType) *LayerPicker {
	snapshot := make([]EventType, len(list))
	copy(snapshot, list)
	return &LayerPicker{
		rng:      d.rng,
		cfg:      cfg,
		list:     snapshot,
		consumed: make([]bool, len(snapshot)),
		counts:   make(map[EventType]int),
	}
}

// PickLayer returns event types for every branch of one layer.
func (p *LayerPicker) PickLayer(layer, branches int) []EventType {
	out := make([]EventType, 0, branches)
	for i := 0; i < branches; i++ {
		out = append(out, p.Pick(layer))
	}
	return out
}

// Pick returns the event type for one node on the given layer.
func (p *LayerPicker) Pick(layer int) EventType {
	restricted := eliteExcluded(layer)

	// 1. Next acceptable entry from the shared list
	for i := p.next; i < len(p.list); i++ {
		if p.consumed[i] {
			continue
		}
		if restricted && p.list[i] == EventEliteMonster {
			continue
		}
		return p.take(i)
	}

	// 2. Only unacceptable entries remain: force-accept the first one
	for i := p.next; i < len(p.list); i++ {
		if !p.consumed[i] {
			return p.take(i)
		}
	}

	// 3. List exhausted: fresh weighted draw within remaining max headroom
	var exclude func(EventType) bool
	if restricted {
		exclude = func(et EventType) bool { return et == EventEliteMonster }
	}
	pool := weightedPool(p.cfg, p.counts, exclude)
	if len(pool) == 0 {
		return EventUnknown
	}
	et := pool[p.rng.Intn(len(pool))]
	p.counts[et]++
	return et
}

// Remaining is the number of unconsumed entries of the shared list.
func (p *LayerPicker) Remaining() int {
	n := 0
	for i := p.next; i < len(p.list); i++ {
		if !p.consumed[i] {
			n++
		}
	}
	return n
}

func (p *LayerPicker) take(i int) EventType {
	p.consumed[i] = true
	for p.next < len(p.list) && p.consumed[p.next] {
		p.next++
	}
	et := p.list[i]
	p.counts[et]++
	return et
}
