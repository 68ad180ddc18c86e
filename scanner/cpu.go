package scanner

import (
	"github.com/caseforge/filecarver/chunk"
)

// ahoNode is one state of the Aho-Corasick automaton.
type ahoNode struct {
	children [256]int32 // index into automaton.nodes, 0 = absent (root has no self-loop here)
	fail     int32
	outputs  []int // indices into automaton.patterns matched at this state
}

// CPUScanner is an Aho-Corasick multi-pattern matcher: all configured
// header patterns are searched in a single pass over the chunk regardless
// of how many file types are configured.
type CPUScanner struct {
	patterns []Pattern
	nodes    []ahoNode
}

// NewCPUScanner builds the automaton once; ScanChunk is then safe for
// concurrent use from multiple scan workers since the automaton is never
// mutated after construction.
func NewCPUScanner(patterns []Pattern) *CPUScanner {
	s := &CPUScanner{patterns: patterns}
	s.nodes = []ahoNode{{}} // root
	for i, p := range patterns {
		s.insert(p.Bytes, i)
	}
	s.buildFailureLinks()
	return s
}

func (s *CPUScanner) insert(pattern []byte, patternIdx int) {
	cur := int32(0)
	for _, b := range pattern {
		next := s.nodes[cur].children[b]
		if next == 0 {
			s.nodes = append(s.nodes, ahoNode{})
			next = int32(len(s.nodes) - 1)
			s.nodes[cur].children[b] = next
		}
		cur = next
	}
	s.nodes[cur].outputs = append(s.nodes[cur].outputs, patternIdx)
}

func (s *CPUScanner) buildFailureLinks() {
	var queue []int32
	root := &s.nodes[0]
	for b := 0; b < 256; b++ {
		if child := root.children[b]; child != 0 {
			s.nodes[child].fail = 0
			queue = append(queue, child)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for b := 0; b < 256; b++ {
			child := s.nodes[cur].children[b]
			if child == 0 {
				continue
			}
			fail := s.nodes[cur].fail
			for fail != 0 && s.nodes[fail].children[b] == 0 {
				fail = s.nodes[fail].fail
			}
			if next := s.nodes[fail].children[b]; next != 0 && next != child {
				fail = next
			}
			s.nodes[child].fail = fail
			s.nodes[child].outputs = append(s.nodes[child].outputs, s.nodes[fail].outputs...)
			queue = append(queue, child)
		}
	}
}

func (s *CPUScanner) Name() string { return "cpu-aho-corasick" }

func (s *CPUScanner) ScanChunk(c chunk.ScanChunk, data []byte) ([]Hit, error) {
	var hits []Hit
	state := int32(0)
	for i, b := range data {
		for state != 0 && s.nodes[state].children[b] == 0 {
			state = s.nodes[state].fail
		}
		if next := s.nodes[state].children[b]; next != 0 {
			state = next
		}
		for _, patIdx := range s.nodes[state].outputs {
			p := s.patterns[patIdx]
			localOffset := i - len(p.Bytes) + 1
			if localOffset < 0 {
				continue
			}
			hits = append(hits, Hit{
				ChunkID:     c.ID,
				LocalOffset: localOffset,
				PatternID:   p.PatternID,
				FileTypeID:  p.FileTypeID,
			})
		}
	}
	return hits, nil
}
