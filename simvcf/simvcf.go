// Package simvcf materializes concrete genotypes from simulated ancestry
// tracks. For each reference variant, each simulated haplotype copies the
// allele of a reference donor drawn from the population named by its active
// ancestry segment. A donor is drawn when a segment first covers a site and
// is kept until the track crosses into the next segment, so each contiguous
// inherited block is copied from a single reference individual; re-drawing
// per site would break that mosaic structure.
//
// Donor draws consume a dedicated seeded stream in a fixed order: sites in
// file order, samples in index order, haplotypes 0 then 1. The donor's own
// haplotype index always mirrors the simulated haplotype index.
package simvcf

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
	"golang.org/x/exp/rand"

	"github.com/carbocation/admixsim/breakpoint"
	"github.com/carbocation/admixsim/panel"
)

// Region is a 1-based, inclusive query window into a tabix-indexed VCF.
type Region struct {
	Chrom string
	Start int
	End   int
}

// ParseRegion parses chrom or chrom:start-end.
func ParseRegion(s string) (Region, error) {
	chrom, span, found := strings.Cut(s, ":")
	if chrom == "" {
		return Region{}, fmt.Errorf("region %q names no chromosome", s)
	}
	if !found {
		return Region{Chrom: chrom, Start: 1, End: math.MaxInt32}, nil
	}

	lo, hi, found := strings.Cut(span, "-")
	if !found {
		return Region{}, fmt.Errorf("region %q must look like chrom:start-end", s)
	}
	start, err := strconv.Atoi(lo)
	if err != nil {
		return Region{}, fmt.Errorf("region start %q is not an integer", lo)
	}
	end, err := strconv.Atoi(hi)
	if err != nil {
		return Region{}, fmt.Errorf("region end %q is not an integer", hi)
	}
	if start < 1 || end < start {
		return Region{}, fmt.Errorf("region %q has an empty or negative span", s)
	}

	return Region{Chrom: chrom, Start: start, End: end}, nil
}

type Options struct {
	// DiscardMissing redraws the donor when it lacks a call at a site,
	// excluding it for the rest of the active segment, instead of emitting a
	// missing allele.
	DiscardMissing bool

	// Region restricts materialization to one window of a tabix-indexed VCF.
	Region *Region
}

// Stats summarizes one materialization pass.
type Stats struct {
	SitesTotal      int // variants read from the reference
	SitesWritten    int
	SitesSkipped    int // variants on chromosomes that were not simulated
	SitesClamped    int // variants beyond the final breakpoint of some track
	MissingCalls    int // missing alleles propagated to the output
	DonorsDiscarded int // donors dropped in discard-missing mode
}

// MaterializationError reports a reference VCF or breakpoint artifact that
// cannot be materialized.
type MaterializationError struct {
	Chrom  string
	Pos    int
	Sample string
	Reason string
}

func (e MaterializationError) Error() string {
	var b strings.Builder
	b.WriteString("materialization error")
	if e.Chrom != "" {
		fmt.Fprintf(&b, " at %s", e.Chrom)
		if e.Pos > 0 {
			fmt.Fprintf(&b, ":%d", e.Pos)
		}
	}
	if e.Sample != "" {
		fmt.Fprintf(&b, " for %s", e.Sample)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)

	return b.String()
}

// Materialize streams the reference VCF at invcf and writes the synthesized
// genotype matrix for the simulated samples to out. The panel assigns
// reference samples to populations; seed fixes the donor-draw stream.
func Materialize(invcf string, client *storage.Client, samples []breakpoint.Sample, pnl *panel.Panel, out io.Writer, seed uint64, opts Options) (Stats, error) {
	var stats Stats
	if len(samples) == 0 {
		return stats, fmt.Errorf("no simulated samples to materialize")
	}

	var (
		src variantSource
		err error
	)
	if opts.Region != nil {
		src, err = newRegionSource(invcf, client, *opts.Region)
	} else {
		src, err = newStreamSource(invcf, client)
	}
	if err != nil {
		return stats, err
	}
	defer src.Close()

	chroms, aliases := trackChroms(samples)
	m := &materializer{
		samples:   samples,
		rng:       rand.New(rand.NewSource(seed)),
		opts:      opts,
		stats:     &stats,
		donorCols: donorColumns(src.SampleNames(), pnl),
		aliases:   aliases,
	}

	w := newVCFWriter(out)
	sampleIDs := make([]string, len(samples))
	for i, s := range samples {
		sampleIDs[i] = s.ID
	}
	if err := w.WriteHeader(chroms, sampleIDs); err != nil {
		return stats, err
	}

	if err := m.run(src, w); err != nil {
		return stats, err
	}

	return stats, w.Flush()
}

type materializer struct {
	samples   []breakpoint.Sample
	rng       *rand.Rand
	opts      Options
	stats     *Stats
	donorCols map[string][]int  // population -> VCF sample columns
	aliases   map[string]string // normalized chromosome -> track label
}

// hapState walks one simulated haplotype through one chromosome: its segment
// list, the active segment, the active donor column, and, in discard-missing
// mode, the donors still eligible for the active segment.
type hapState struct {
	segs     []breakpoint.Segment
	idx      int
	donor    int
	eligible []int
}

func (m *materializer) run(src variantSource, w *vcfWriter) error {
	genotypes := make([]string, len(m.samples))

	var (
		curChrom string
		states   [][2]hapState
		prevPos  int
	)

	for {
		v, err := src.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return pfx.Err(err)
		}
		m.stats.SitesTotal++

		norm := normalizeChrom(v.Chrom())
		trackLabel, simulated := m.aliases[norm]
		if !simulated {
			m.stats.SitesSkipped++
			continue
		}

		if norm != curChrom {
			states, err = m.statesFor(trackLabel)
			if err != nil {
				return err
			}
			curChrom = norm
			prevPos = 0
		}

		pos := int(v.Pos)
		if pos < prevPos {
			return MaterializationError{Chrom: v.Chrom(), Pos: pos, Reason: fmt.Sprintf("position decreases from %d; the reference VCF must be position-sorted", prevPos)}
		}
		prevPos = pos

		clamped := false
		for i := range m.samples {
			var gt [2]string
			for h := 0; h < 2; h++ {
				allele, cl, err := m.alleleFor(&states[i][h], v, pos, h, m.samples[i].ID)
				if err != nil {
					return err
				}
				clamped = clamped || cl
				gt[h] = allele
			}
			genotypes[i] = gt[0] + "|" + gt[1]
		}
		if clamped {
			m.stats.SitesClamped++
		}

		if err := w.WriteSite(v, genotypes); err != nil {
			return err
		}
		m.stats.SitesWritten++
	}

	return nil
}

// statesFor builds fresh per-haplotype cursors for one chromosome.
func (m *materializer) statesFor(trackLabel string) ([][2]hapState, error) {
	states := make([][2]hapState, len(m.samples))
	for i, s := range m.samples {
		for h := 0; h < 2; h++ {
			segs := s.Haplotypes[h].ChromSegments(trackLabel)
			if len(segs) == 0 {
				return nil, MaterializationError{Chrom: trackLabel, Sample: s.ID, Reason: "the breakpoint artifact covers none of this chromosome"}
			}
			states[i][h] = hapState{segs: segs, donor: -1}
		}
	}

	return states, nil
}

// alleleFor advances the haplotype's cursor to the segment covering pos,
// re-drawing the donor if the segment changed, and returns the allele text.
func (m *materializer) alleleFor(st *hapState, v *vcfgo.Variant, pos, hap int, sampleID string) (string, bool, error) {
	moved := st.donor < 0
	for st.idx < len(st.segs)-1 && pos > st.segs[st.idx].EndBP {
		st.idx++
		moved = true
	}

	// Beyond the final breakpoint the last segment's ancestry applies.
	clamped := pos > st.segs[st.idx].EndBP

	seg := st.segs[st.idx]
	if moved {
		cands := m.donorCols[seg.Population]
		if len(cands) == 0 {
			return "", clamped, MaterializationError{Chrom: v.Chrom(), Pos: pos, Sample: sampleID, Reason: fmt.Sprintf("no reference donors carry population %s", seg.Population)}
		}
		st.donor = cands[m.rng.Intn(len(cands))]
		st.eligible = nil
	}

	allele, ok := alleleAt(v, st.donor, hap)
	for !ok && m.opts.DiscardMissing {
		if st.eligible == nil {
			st.eligible = m.donorCols[seg.Population]
		}
		st.eligible = without(st.eligible, st.donor)
		m.stats.DonorsDiscarded++
		if len(st.eligible) == 0 {
			return "", clamped, MaterializationError{Chrom: v.Chrom(), Pos: pos, Sample: sampleID, Reason: fmt.Sprintf("every %s reference donor lacks a call at this site", seg.Population)}
		}

		st.donor = st.eligible[m.rng.Intn(len(st.eligible))]
		allele, ok = alleleAt(v, st.donor, hap)
	}

	if !ok {
		m.stats.MissingCalls++
		return ".", clamped, nil
	}

	return strconv.Itoa(allele), clamped, nil
}

// alleleAt reads one allele index from a reference sample's genotype. The
// second return is false when the call is absent, including haploid calls
// queried for their second haplotype.
func alleleAt(v *vcfgo.Variant, col, hap int) (int, bool) {
	if col < 0 || col >= len(v.Samples) || v.Samples[col] == nil {
		return 0, false
	}

	gt := v.Samples[col].GT
	if hap >= len(gt) || gt[hap] < 0 {
		return 0, false
	}

	return gt[hap], true
}

// donorColumns indexes the VCF sample columns by panel population. Column
// order within each population fixes the donor draw order, which keeps runs
// reproducible for a given reference file.
func donorColumns(sampleNames []string, pnl *panel.Panel) map[string][]int {
	byPop := make(map[string][]int)
	for col, name := range sampleNames {
		if pop, ok := pnl.Population(name); ok {
			byPop[pop] = append(byPop[pop], col)
		}
	}

	return byPop
}

// trackChroms lists the chromosomes of the simulated tracks in track order,
// plus an alias table from normalized names so that a reference VCF using
// chr-prefixed names still matches.
func trackChroms(samples []breakpoint.Sample) ([]string, map[string]string) {
	var order []string
	aliases := make(map[string]string)

	for _, h := range samples[0].Haplotypes {
		for _, seg := range h {
			norm := normalizeChrom(seg.Chrom)
			if _, ok := aliases[norm]; !ok {
				aliases[norm] = seg.Chrom
				order = append(order, seg.Chrom)
			}
		}
	}

	return order, aliases
}

func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}

func without(cols []int, drop int) []int {
	out := make([]int, 0, len(cols))
	for _, c := range cols {
		if c != drop {
			out = append(out, c)
		}
	}

	return out
}
