// Package seqdiff aligns two line sequences and describes the transformation
// from one to the other as a list of edit operations.
//
// The alignment is the classic "longest matching block" recursion: find the
// longest run of equal lines in the current window, then recurse on the
// windows to its left and right. No line is ever treated as junk. When
// several runs have the same length the one starting earliest in the old
// sequence (then earliest in the new one) wins, so results are reproducible.
package seqdiff

import "sort"

// Tag classifies an edit operation.
type Tag string

const (
	Equal   Tag = "equal"
	Delete  Tag = "delete"
	Insert  Tag = "insert"
	Replace Tag = "replace"
)

// Op describes that a[I1:I2] should be transformed into b[J1:J2].
// Equal ops have equal spans; Delete ops have J1 == J2; Insert ops have I1 == I2.
type Op struct {
	Tag Tag `json:"tag"`
	I1  int `json:"i1"`
	I2  int `json:"i2"`
	J1  int `json:"j1"`
	J2  int `json:"j2"`
}

// Match is a run of Size equal lines starting at A in the old sequence and
// at B in the new one.
type Match struct {
	A    int
	B    int
	Size int
}

type matcher struct {
	a, b []string
	b2j  map[string][]int
}

func newMatcher(a, b []string) *matcher {
	b2j := make(map[string][]int, len(b))
	for j, line := range b {
		b2j[line] = append(b2j[line], j)
	}
	return &matcher{a: a, b: b, b2j: b2j}
}

// longestMatch finds the longest block of equal lines in a[alo:ahi] and
// b[blo:bhi]. Among equally long blocks the earliest in a, then in b, wins.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) Match {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}
	return Match{A: besti, B: bestj, Size: bestsize}
}

type window struct{ alo, ahi, blo, bhi int }

// MatchingBlocks returns the non-overlapping, strictly increasing matching
// blocks between a and b, adjacent blocks merged, terminated by the sentinel
// {len(a), len(b), 0}.
func MatchingBlocks(a, b []string) []Match {
	m := newMatcher(a, b)
	la, lb := len(a), len(b)

	var blocks []Match
	queue := []window{{0, la, 0, lb}}
	for len(queue) > 0 {
		w := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		x := m.longestMatch(w.alo, w.ahi, w.blo, w.bhi)
		if x.Size == 0 {
			continue
		}
		blocks = append(blocks, x)
		if w.alo < x.A && w.blo < x.B {
			queue = append(queue, window{w.alo, x.A, w.blo, x.B})
		}
		if x.A+x.Size < w.ahi && x.B+x.Size < w.bhi {
			queue = append(queue, window{x.A + x.Size, w.ahi, x.B + x.Size, w.bhi})
		}
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].A != blocks[j].A {
			return blocks[i].A < blocks[j].A
		}
		return blocks[i].B < blocks[j].B
	})

	merged := make([]Match, 0, len(blocks)+1)
	for _, blk := range blocks {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.A+last.Size == blk.A && last.B+last.Size == blk.B {
				last.Size += blk.Size
				continue
			}
		}
		merged = append(merged, blk)
	}
	return append(merged, Match{A: la, B: lb, Size: 0})
}

// Diff returns the edit operations transforming a into b. The ops cover
// every index of both inputs exactly once, in increasing order.
func Diff(a, b []string) []Op {
	var ops []Op
	i, j := 0, 0
	for _, blk := range MatchingBlocks(a, b) {
		var tag Tag
		switch {
		case i < blk.A && j < blk.B:
			tag = Replace
		case i < blk.A:
			tag = Delete
		case j < blk.B:
			tag = Insert
		}
		if tag != "" {
			ops = append(ops, Op{Tag: tag, I1: i, I2: blk.A, J1: j, J2: blk.B})
		}
		i, j = blk.A+blk.Size, blk.B+blk.Size
		if blk.Size > 0 {
			ops = append(ops, Op{Tag: Equal, I1: blk.A, I2: i, J1: blk.B, J2: j})
		}
	}
	return ops
}

// Ratio is 2*M/T where M is the number of matched lines and T the total
// number of lines in both sequences. Two empty sequences have ratio 1.
func Ratio(a, b []string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	matched := 0
	for _, blk := range MatchingBlocks(a, b) {
		matched += blk.Size
	}
	return 2 * float64(matched) / float64(total)
}

// Stats counts the lines touched by each kind of operation.
type Stats struct {
	Equal    int `json:"equal"`
	Deleted  int `json:"deleted"`
	Inserted int `json:"inserted"`
	Replaced int `json:"replaced"`
}

// Summarize tallies ops. Replace counts the longer of its two spans.
func Summarize(ops []Op) Stats {
	var s Stats
	for _, op := range ops {
		switch op.Tag {
		case Equal:
			s.Equal += op.I2 - op.I1
		case Delete:
			s.Deleted += op.I2 - op.I1
		case Insert:
			s.Inserted += op.J2 - op.J1
		case Replace:
			s.Replaced += max(op.I2-op.I1, op.J2-op.J1)
		}
	}
	return s
}

// Changed reports whether ops contain anything other than Equal.
func Changed(ops []Op) bool {
	for _, op := range ops {
		if op.Tag != Equal {
			return true
		}
	}
	return false
}
