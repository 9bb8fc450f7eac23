// Package pedsim simulates admixed genomes generation by generation. Each
// generation is an arena of individuals whose haplotypes are ancestry tracks;
// generation g is computed only from generation g-1 and the model's mixing
// proportions, and earlier arenas are discarded.
//
// All randomness flows from one seeded source in a fixed order so that equal
// seeds reproduce equal output: for each generation, for each individual in
// index order, for each haplotype (0 then 1), one source draw selects the
// admixed pool or a founder population; an admixed source consumes one parent
// draw and then, per chromosome in map order, one starting-haplotype draw
// followed by the exponential inter-crossover distances of the recombination
// walk. A founder source consumes no further draws.
package pedsim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/carbocation/admixsim/admixmodel"
	"github.com/carbocation/admixsim/breakpoint"
	"github.com/carbocation/admixsim/genmap"
)

// PedigreeError reports a generation that requires parents from a population
// with no eligible individuals.
type PedigreeError struct {
	Generation int
	Population string
}

func (e PedigreeError) Error() string {
	return fmt.Sprintf("generation %d: population %s has no individuals to draw parents from", e.Generation, e.Population)
}

// Simulator produces ancestry tracks for the admixed samples that a model
// requests.
type Simulator struct {
	model     *admixmodel.Model
	chroms    []string
	chromMaps []*genmap.ChromMap
	popSize   int

	src rand.Source
	rng *rand.Rand
	exp distuv.Exponential
}

// New validates the inputs and prepares a simulator. Every chromosome loaded
// in maps is simulated, in the order maps reports them. popSize is the number
// of individuals bred per generation and must be at least the model's sample
// count; seed fixes the random stream.
func New(model *admixmodel.Model, maps *genmap.Store, popSize int, seed uint64) (*Simulator, error) {
	if model == nil || len(model.Listed) == 0 {
		return nil, fmt.Errorf("the admixture model lists no generations")
	}

	chroms := maps.Chroms()
	if len(chroms) == 0 {
		return nil, fmt.Errorf("no genetic maps are loaded")
	}
	chromMaps := make([]*genmap.ChromMap, len(chroms))
	for i, chrom := range chroms {
		m, err := maps.Chrom(chrom)
		if err != nil {
			return nil, err
		}
		chromMaps[i] = m
	}

	if popSize < 1 {
		return nil, fmt.Errorf("the population size must be positive, not %d", popSize)
	}
	if popSize < model.NumSamples {
		return nil, fmt.Errorf("the population size (%d) cannot be smaller than the number of requested samples (%d)", popSize, model.NumSamples)
	}

	src := rand.NewSource(seed)

	return &Simulator{
		model:     model,
		chroms:    chroms,
		chromMaps: chromMaps,
		popSize:   popSize,
		src:       src,
		rng:       rand.New(src),
		exp:       distuv.Exponential{Rate: 1, Src: src},
	}, nil
}

// Run breeds each scheduled generation and returns the first NumSamples
// individuals of the final one as breakpoint samples.
func (s *Simulator) Run() ([]breakpoint.Sample, error) {
	var pool []individual

	for _, gen := range s.model.Schedule() {
		next := make([]individual, s.popSize)
		source := distuv.NewCategorical(gen.Weights(), s.src)

		for i := range next {
			for hap := 0; hap < 2; hap++ {
				drawn := int(source.Rand())
				if drawn == 0 {
					if len(pool) == 0 {
						return nil, PedigreeError{Generation: gen.Number, Population: s.model.AdmixedLabel}
					}
					parent := pool[s.rng.Intn(len(pool))]
					next[i].haps[hap] = s.gamete(parent)
					continue
				}

				next[i].haps[hap] = s.founderTrack(drawn - 1)
			}
		}

		pool = next
	}

	return s.emit(pool), nil
}

// emit converts the first NumSamples individuals into breakpoint samples,
// translating population indexes back to the model's labels.
func (s *Simulator) emit(pool []individual) []breakpoint.Sample {
	out := make([]breakpoint.Sample, s.model.NumSamples)

	for i := range out {
		out[i].ID = breakpoint.SampleID(i + 1)
		for hap := 0; hap < 2; hap++ {
			var t breakpoint.Haplotype
			for ci, chrom := range s.chroms {
				for _, sg := range pool[i].haps[hap][ci] {
					t = append(t, breakpoint.Segment{
						Population: s.model.Pops[sg.pop],
						Chrom:      chrom,
						EndBP:      sg.endBP,
						EndCM:      sg.endCM,
					})
				}
			}
			out[i].Haplotypes[hap] = t
		}
	}

	return out
}
