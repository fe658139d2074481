// Package topics builds an id-indexed arena over the topical map so
// parent/child traversal never degrades into repeated linear scans.
package topics

import (
	"sort"
	"strings"

	"github.com/topicforge/go-site-audit/models"
)

// Arena is an immutable index over a topic hierarchy. It is built once
// per audit run and read concurrently by phases and the overlap
// detector.
type Arena struct {
	nodes    []models.EnrichedTopic
	byID     map[string]int
	parents  []int   // index into nodes, -1 for roots
	children [][]int // indices into nodes, sorted by topic id
	roots    []int
	depths   []int
}

// BuildArena indexes the supplied topics. Topics referencing a missing
// parent are treated as roots. Input order does not matter; the arena
// orders nodes by id for deterministic traversal.
func BuildArena(list []models.EnrichedTopic) *Arena {
	nodes := make([]models.EnrichedTopic, len(list))
	copy(nodes, list)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	a := &Arena{
		nodes:    nodes,
		byID:     make(map[string]int, len(nodes)),
		parents:  make([]int, len(nodes)),
		children: make([][]int, len(nodes)),
		depths:   make([]int, len(nodes)),
	}
	for i, t := range nodes {
		a.byID[t.ID] = i
	}
	for i, t := range nodes {
		parent, ok := a.byID[t.ParentID]
		if !ok || t.ParentID == "" || parent == i {
			a.parents[i] = -1
			a.roots = append(a.roots, i)
			continue
		}
		a.parents[i] = parent
		a.children[parent] = append(a.children[parent], i)
	}
	for i := range nodes {
		a.depths[i] = a.computeDepth(i)
	}
	return a
}

// walk to the nearest root, bailing out if the parent chain loops
func (a *Arena) computeDepth(idx int) int {
	depth := 0
	seen := make(map[int]struct{})
	for cur := idx; a.parents[cur] >= 0; cur = a.parents[cur] {
		if _, looped := seen[cur]; looped {
			break
		}
		seen[cur] = struct{}{}
		depth++
	}
	return depth
}

// Len returns the number of topics in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Get returns the topic with the given id.
func (a *Arena) Get(id string) (models.EnrichedTopic, bool) {
	idx, ok := a.byID[id]
	if !ok {
		return models.EnrichedTopic{}, false
	}
	return a.nodes[idx], true
}

// Parent returns the parent topic of id, if any.
func (a *Arena) Parent(id string) (models.EnrichedTopic, bool) {
	idx, ok := a.byID[id]
	if !ok || a.parents[idx] < 0 {
		return models.EnrichedTopic{}, false
	}
	return a.nodes[a.parents[idx]], true
}

// Children returns the direct children of id in id order.
func (a *Arena) Children(id string) []models.EnrichedTopic {
	idx, ok := a.byID[id]
	if !ok {
		return nil
	}
	out := make([]models.EnrichedTopic, 0, len(a.children[idx]))
	for _, c := range a.children[idx] {
		out = append(out, a.nodes[c])
	}
	return out
}

// Depth returns the distance from id to its root, or -1 for unknown ids.
func (a *Arena) Depth(id string) int {
	idx, ok := a.byID[id]
	if !ok {
		return -1
	}
	return a.depths[idx]
}

// Roots returns the root topics in id order.
func (a *Arena) Roots() []models.EnrichedTopic {
	out := make([]models.EnrichedTopic, 0, len(a.roots))
	for _, r := range a.roots {
		out = append(out, a.nodes[r])
	}
	return out
}

// All returns every topic in id order.
func (a *Arena) All() []models.EnrichedTopic {
	out := make([]models.EnrichedTopic, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// NormalizeEntity canonicalizes an entity name for bucketing and
// signature comparison.
func NormalizeEntity(entity string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(entity))), " ")
}

// SiblingEntities returns the normalized central entities of the
// siblings of id (shared parent), in sorted order. Used by the overlap
// detector to pick adjacent blocking buckets.
func (a *Arena) SiblingEntities(id string) []string {
	idx, ok := a.byID[id]
	if !ok || a.parents[idx] < 0 {
		return nil
	}
	parent := a.parents[idx]
	set := make(map[string]struct{})
	for _, sib := range a.children[parent] {
		if sib == idx {
			continue
		}
		entity := NormalizeEntity(a.nodes[sib].CentralEntity)
		if entity != "" {
			set[entity] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for entity := range set {
		out = append(out, entity)
	}
	sort.Strings(out)
	return out
}
