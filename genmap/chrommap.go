// Package genmap loads per-chromosome genetic maps and converts between
// physical coordinates (base pairs) and genetic coordinates (centimorgans).
package genmap

import (
	"fmt"
	"math"
	"sort"
)

// Entry pairs a physical position with its genetic position.
type Entry struct {
	BP int     // physical position, base pairs
	CM float64 // genetic position, centimorgans
}

// ChromMap is one chromosome's genetic map: entries strictly increasing in
// both physical and genetic coordinates. Positions between entries are
// linearly interpolated; positions beyond either end are extrapolated using
// the rate of the nearest mapped interval.
type ChromMap struct {
	Chrom   string
	entries []Entry
}

// NewChromMap validates the entries and wraps them in a ChromMap. At least
// two entries are required, since a single point defines no recombination
// rate.
func NewChromMap(chrom string, entries []Entry) (*ChromMap, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("chromosome %s: a genetic map needs at least 2 entries, found %d", chrom, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].BP <= entries[i-1].BP {
			return nil, fmt.Errorf("chromosome %s: physical positions must strictly increase, but entry %d (%d bp) does not follow %d bp", chrom, i, entries[i].BP, entries[i-1].BP)
		}
		if entries[i].CM <= entries[i-1].CM {
			return nil, fmt.Errorf("chromosome %s: genetic positions must strictly increase, but entry %d (%g cM) does not follow %g cM", chrom, i, entries[i].CM, entries[i-1].CM)
		}
	}

	return &ChromMap{Chrom: chrom, entries: entries}, nil
}

func (m *ChromMap) FirstPosition() int { return m.entries[0].BP }

func (m *ChromMap) LastPosition() int { return m.entries[len(m.entries)-1].BP }

func (m *ChromMap) FirstCM() float64 { return m.entries[0].CM }

func (m *ChromMap) LastCM() float64 { return m.entries[len(m.entries)-1].CM }

// GeneticLength is the mapped genetic span in centimorgans.
func (m *ChromMap) GeneticLength() float64 { return m.LastCM() - m.FirstCM() }

// CMAt converts a physical position to centimorgans.
func (m *ChromMap) CMAt(bp int) float64 {
	e := m.entries

	// Index of the first entry at or beyond bp.
	i := sort.Search(len(e), func(j int) bool { return e[j].BP >= bp })

	switch {
	case i < len(e) && e[i].BP == bp:
		return e[i].CM
	case i == 0:
		return e[0].CM - float64(e[0].BP-bp)*m.rate(0)
	case i == len(e):
		return e[len(e)-1].CM + float64(bp-e[len(e)-1].BP)*m.rate(len(e)-2)
	}

	lo, hi := e[i-1], e[i]
	frac := float64(bp-lo.BP) / float64(hi.BP-lo.BP)

	return lo.CM + frac*(hi.CM-lo.CM)
}

// BPAt converts a genetic position to the nearest physical position.
func (m *ChromMap) BPAt(cm float64) int {
	e := m.entries

	i := sort.Search(len(e), func(j int) bool { return e[j].CM >= cm })

	switch {
	case i < len(e) && e[i].CM == cm:
		return e[i].BP
	case i == 0:
		return e[0].BP - roundBP((e[0].CM-cm)/m.rate(0))
	case i == len(e):
		last := len(e) - 1
		return e[last].BP + roundBP((cm-e[last].CM)/m.rate(last-1))
	}

	lo, hi := e[i-1], e[i]
	frac := (cm - lo.CM) / (hi.CM - lo.CM)

	return lo.BP + roundBP(frac*float64(hi.BP-lo.BP))
}

// ToGeneticDistance converts the physical interval [posA, posB] to a signed
// genetic distance in Morgans.
func (m *ChromMap) ToGeneticDistance(posA, posB int) float64 {
	return (m.CMAt(posB) - m.CMAt(posA)) / 100
}

// rate returns centimorgans per base pair over the interval whose left edge
// is entry i.
func (m *ChromMap) rate(i int) float64 {
	lo, hi := m.entries[i], m.entries[i+1]

	return (hi.CM - lo.CM) / float64(hi.BP-lo.BP)
}

func roundBP(v float64) int {
	return int(math.Round(v))
}

// Cursor converts increasing genetic positions to physical positions with a
// forward-only scan, keeping a whole-chromosome recombination walk linear in
// the number of map entries. Queries must not move backward.
type Cursor struct {
	m *ChromMap
	i int // left entry of the interval under the cursor
}

func (m *ChromMap) Cursor() *Cursor { return &Cursor{m: m} }

// BPAt converts cm to a physical position, advancing the cursor as needed.
func (c *Cursor) BPAt(cm float64) int {
	e := c.m.entries
	for c.i < len(e)-2 && e[c.i+1].CM < cm {
		c.i++
	}

	lo, hi := e[c.i], e[c.i+1]
	if cm < lo.CM && c.i == 0 {
		return lo.BP - roundBP((lo.CM-cm)/c.m.rate(0))
	}

	frac := (cm - lo.CM) / (hi.CM - lo.CM)

	return lo.BP + roundBP(frac*float64(hi.BP-lo.BP))
}
