package game

const maskedLabel = "???"

// VisibleRadius is how many layers around the current one the player can see.
func VisibleRadius(sight int) int {
	r := sight / 5
	if r < 1 {
		return 1
	}
	if r > 2 {
		return 2
	}
	return r
}

// UpdateVisibility recomputes node flags after the ship moves to currentID.
// Visibility is sticky; accessibility is rebuilt from the current node's
// outgoing edges on every call. The boss is always visible and accessible
// only once eventsCompleted reaches the chapter's required event count.
func UpdateVisibility(m *ChapterMap, currentID string, sight, eventsCompleted int) {
	current := m.Node(currentID)
	if current == nil {
		return
	}
	radius := VisibleRadius(sight)

	reachable := make(map[string]bool, len(current.Connections))
	for _, id := range current.Connections {
		reachable[id] = true
	}

	for _, n := range m.Nodes {
		if abs(n.Layer-current.Layer) <= radius {
			n.Visible = true
		}
		n.Accessible = reachable[n.ID]
	}

	if boss := m.Node(m.BossID); boss != nil {
		boss.Visible = true
		boss.Accessible = eventsCompleted >= m.RequiredEvents
	}
}

// NodeLabel is the event name shown for a node. Past layers always show the
// real name; current and future layers are masked while sight is too low
// for the node's difficulty.
func NodeLabel(n *MapNode, currentLayer, sight int) string {
	if n.Layer < currentLayer {
		return string(n.Event)
	}
	if sight < n.Difficulty*3 {
		return maskedLabel
	}
	return string(n.Event)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
