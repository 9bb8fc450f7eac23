// Package breakpoint defines the ancestry-track model of a simulated sample
// and reads and writes the breakpoint artifact: one section per sample
// haplotype, each line carrying a population label, chromosome, end physical
// position, and end genetic position.
package breakpoint

import "fmt"

// Segment is one contiguous run of ancestry on a haplotype. It spans from
// the end of the previous segment on the same chromosome (or the chromosome
// start) through EndBP.
type Segment struct {
	Population string
	Chrom      string
	EndBP      int
	EndCM      float64
}

// Haplotype is one haplotype's ancestry track: segments ordered by
// chromosome (in simulation order) and then by increasing end position.
type Haplotype []Segment

// Sample holds the two haplotype tracks of one simulated sample.
type Sample struct {
	ID         string
	Haplotypes [2]Haplotype
}

// SampleID formats the conventional name of the i-th (1-based) simulated
// sample.
func SampleID(i int) string {
	return fmt.Sprintf("Sample_%d", i)
}

// ChromSegments returns the contiguous run of segments for one chromosome.
// Segments for a chromosome appear exactly once and in order within a track,
// so the first matching run is the whole answer.
func (h Haplotype) ChromSegments(chrom string) []Segment {
	start := -1
	for i, seg := range h {
		if seg.Chrom == chrom {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return h[start:i]
		}
	}

	if start < 0 {
		return nil
	}

	return h[start:]
}
