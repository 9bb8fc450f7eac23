package pedsim

// seg is one ancestry run during simulation, with the population kept as an
// index into the model's founder labels.
type seg struct {
	pop   int
	endBP int
	endCM float64
}

// track holds one haplotype's segments for every chromosome, indexed in map
// order.
type track [][]seg

type individual struct {
	haps [2]track
}

// founderTrack builds the track of a gamete drawn directly from a founder
// population: one full-length segment per chromosome.
func (s *Simulator) founderTrack(pop int) track {
	t := make(track, len(s.chromMaps))
	for ci, m := range s.chromMaps {
		t[ci] = []seg{{pop: pop, endBP: m.LastPosition(), endCM: m.LastCM()}}
	}

	return t
}

// gamete recombines one parent's two haplotypes into a transmitted haplotype,
// chromosome by chromosome.
func (s *Simulator) gamete(parent individual) track {
	t := make(track, len(s.chromMaps))
	for ci := range s.chromMaps {
		t[ci] = s.crossoverChrom(parent, ci)
	}

	return t
}

// crossoverChrom walks one chromosome from its first mapped position, drawing
// the genetic distance to each next crossover from the exponential
// distribution with rate 1 per Morgan. The walk copies ancestry from the
// active parental haplotype and flips it at every crossover, then transmits
// the active haplotype through the chromosome end.
func (s *Simulator) crossoverChrom(parent individual, ci int) []seg {
	m := s.chromMaps[ci]
	p := [2][]seg{parent.haps[0][ci], parent.haps[1][ci]}

	active := s.rng.Intn(2)

	out := make([]seg, 0, len(p[0])+len(p[1]))
	cursor := m.Cursor()
	idx := [2]int{}

	cm := m.FirstCM()
	for {
		cm += s.exp.Rand() * 100 // Morgans to centimorgans
		if cm >= m.LastCM() {
			break
		}

		// Copy the segments the active haplotype fully transmits before the
		// crossover, then cut its current segment at the crossover point.
		for idx[active] < len(p[active]) && p[active][idx[active]].endCM <= cm {
			out = appendSeg(out, p[active][idx[active]])
			idx[active]++
		}
		cut := p[active][idx[active]]
		out = appendSeg(out, seg{pop: cut.pop, endBP: cursor.BPAt(cm), endCM: cm})

		// Flip haplotypes and discard the newly active one's history up to
		// the crossover; that ancestry is not transmitted.
		active = 1 - active
		for idx[active] < len(p[active]) && p[active][idx[active]].endCM <= cm {
			idx[active]++
		}
	}

	for idx[active] < len(p[active]) {
		out = appendSeg(out, p[active][idx[active]])
		idx[active]++
	}

	return out
}

// appendSeg appends one segment, merging it into the previous one when both
// carry the same population or when rounding genetic positions to physical
// coordinates left it physically empty. Merging keeps every track free of
// adjacent same-population segments.
func appendSeg(out []seg, sg seg) []seg {
	if n := len(out); n > 0 {
		last := &out[n-1]
		if last.pop == sg.pop || sg.endBP <= last.endBP {
			if sg.endCM > last.endCM {
				last.endCM = sg.endCM
			}
			if sg.endBP > last.endBP {
				last.endBP = sg.endBP
			}

			return out
		}
	}

	return append(out, sg)
}
