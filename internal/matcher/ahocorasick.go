// Package matcher implements a multi-pattern Aho-Corasick byte matcher
// with streaming "contains" semantics over chunked input (spec §4.1,
// component C1). Per spec §9's "Cyclic references in AC" design note,
// nodes are arena-indexed (small integers, failure links as int32)
// rather than built from pointer-cyclic structs, avoiding the reference
// cycles a naive translation would otherwise need to manage.
package matcher

const rootIndex = 0

// node is one trie node in the arena. children maps byte -> node index,
// with -1 meaning "no child"; root is always arena index 0.
type node struct {
	children [256]int32
	failure  int32
	terminal bool
}

// Matcher is an Aho-Corasick automaton built from a fixed pattern set.
// It is immutable after New returns; multiple independent streams may
// advance through it concurrently via separate State values.
type Matcher struct {
	nodes []node
}

// State is an independent streaming cursor into a Matcher.
type State struct {
	current int32
}

// Reset begins a new independent stream at the root.
func (s *State) Reset() { s.current = rootIndex }

// New constructs a matcher from a finite set of byte-sequence patterns.
// Empty patterns are ignored; duplicate patterns are idempotent. An
// empty pattern set yields a matcher whose Feed never reports found.
func New(patterns [][]byte) *Matcher {
	m := &Matcher{nodes: []node{newNode()}} // index 0: root

	for _, p := range patterns {
		if len(p) == 0 {
			continue
		}
		m.insert(p)
	}
	m.buildFailureLinks()
	return m
}

// NewFromStrings is a convenience constructor over string patterns.
func NewFromStrings(patterns []string) *Matcher {
	bs := make([][]byte, len(patterns))
	for i, p := range patterns {
		bs[i] = []byte(p)
	}
	return New(bs)
}

func newNode() node {
	n := node{failure: rootIndex}
	for i := range n.children {
		n.children[i] = -1
	}
	return n
}

func (m *Matcher) insert(pattern []byte) {
	cur := int32(rootIndex)
	for _, b := range pattern {
		next := m.nodes[cur].children[b]
		if next == -1 {
			m.nodes = append(m.nodes, newNode())
			next = int32(len(m.nodes) - 1)
			m.nodes[cur].children[b] = next
		}
		cur = next
	}
	m.nodes[cur].terminal = true
}

// buildFailureLinks computes failure links via BFS, per spec §4.1:
// root's failure points to itself; for a non-root node N reached from
// parent P via byte b, N.failure is the deepest proper-suffix node
// reachable from root by following P.failure chains until a node with
// a child on b is found (else root).
func (m *Matcher) buildFailureLinks() {
	queue := make([]int32, 0, len(m.nodes))

	// Immediate children of root: failure = root (spec §4.1 edge case).
	for b := 0; b < 256; b++ {
		child := m.nodes[rootIndex].children[b]
		if child == -1 {
			continue
		}
		m.nodes[child].failure = rootIndex
		queue = append(queue, child)
	}

	for qi := 0; qi < len(queue); qi++ {
		cur := queue[qi]
		for b := 0; b < 256; b++ {
			child := m.nodes[cur].children[b]
			if child == -1 {
				continue
			}
			fail := m.nodes[cur].failure
			for fail != rootIndex && m.nodes[fail].children[b] == -1 {
				fail = m.nodes[fail].failure
			}
			if target := m.nodes[fail].children[b]; target != -1 && target != child {
				m.nodes[child].failure = target
			} else {
				m.nodes[child].failure = rootIndex
			}
			// A node inherits terminal-ness transitively through
			// failure links: if the node we fail to is itself
			// terminal, we also close a match at this node. Folding
			// that into the trie once at build time keeps Feed's hot
			// loop to a single field check.
			if m.nodes[m.nodes[child].failure].terminal {
				m.nodes[child].terminal = true
			}
			queue = append(queue, child)
		}
	}
}

// Feed advances state through bytes, returning true as soon as a
// terminal node is reached. The caller may stop or keep feeding after
// found=true; state keeps advancing either way.
func (m *Matcher) Feed(s *State, data []byte) (found bool) {
	cur := s.current
	for _, b := range data {
		for cur != rootIndex && m.nodes[cur].children[b] == -1 {
			cur = m.nodes[cur].failure
		}
		if next := m.nodes[cur].children[b]; next != -1 {
			cur = next
		}
		if m.nodes[cur].terminal {
			s.current = cur
			return true
		}
	}
	s.current = cur
	return false
}

// Contains is a one-shot convenience wrapper: true iff any pattern
// occurs as a substring of data.
func (m *Matcher) Contains(data []byte) bool {
	var s State
	return m.Feed(&s, data)
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return len(m.nodes) == 1
}
