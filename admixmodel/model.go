// Package admixmodel parses admixture model files, which describe how many
// admixed samples to simulate and the per-generation mixing proportions
// between founder populations and the previously admixed pool.
package admixmodel

import (
	"fmt"
)

// ProportionTolerance is the allowed deviation from 1.0 when summing the
// proportions listed for one generation.
const ProportionTolerance = 1e-6

type Model struct {
	// NumSamples is the number of admixed samples requested from the final
	// generation.
	NumSamples int

	// AdmixedLabel names the simulated population itself, e.g. "Admixed".
	AdmixedLabel string

	// Pops lists the founder population labels in file order.
	Pops []string

	// Listed holds one entry per data line of the model file, in ascending
	// generation order. Generations may be skipped; use Schedule to expand
	// the gaps.
	Listed []Generation
}

// Generation holds the mixing proportions used to produce one generation.
type Generation struct {
	Number int

	// PropAdmixed is the probability that a parent is drawn from the
	// previous admixed generation rather than from a founder population.
	PropAdmixed float64

	// PopProps holds founder draw probabilities, parallel to Model.Pops.
	PopProps []float64
}

// Weights returns the draw probabilities for one parent of this generation:
// the admixed pool first, then each founder population in Model.Pops order.
func (g Generation) Weights() []float64 {
	w := make([]float64, 0, 1+len(g.PopProps))
	w = append(w, g.PropAdmixed)
	w = append(w, g.PopProps...)

	return w
}

// Schedule expands Listed into one entry per generation, from 1 through the
// final listed generation. Generations skipped in the model file mate purely
// within the admixed pool.
func (m *Model) Schedule() []Generation {
	if len(m.Listed) == 0 {
		return nil
	}

	last := m.Listed[len(m.Listed)-1].Number
	out := make([]Generation, 0, last)

	idx := 0
	for number := 1; number <= last; number++ {
		if idx < len(m.Listed) && m.Listed[idx].Number == number {
			out = append(out, m.Listed[idx])
			idx++
			continue
		}

		out = append(out, Generation{
			Number:      number,
			PropAdmixed: 1,
			PopProps:    make([]float64, len(m.Pops)),
		})
	}

	return out
}

// NumGenerations reports the total number of generations the model simulates,
// which is the number of the final listed generation.
func (m *Model) NumGenerations() int {
	if len(m.Listed) == 0 {
		return 0
	}

	return m.Listed[len(m.Listed)-1].Number
}

// FormatError describes a malformed model file.
type FormatError struct {
	Line   int // 1-based line number; 0 when no line applies
	Reason string
}

func (e FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("model format error on line %d: %s", e.Line, e.Reason)
	}

	return "model format error: " + e.Reason
}
