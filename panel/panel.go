// Package panel maps reference-panel sample identifiers to population labels
// and validates them against an admixture model and a reference VCF.
package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/admixsim"
	"github.com/carbocation/pfx"
)

// Panel holds the sample-to-population assignments of a reference panel.
type Panel struct {
	samples []Sample
	pops    []string // populations in first-appearance order
	byPop   map[string][]string
	popOf   map[string]string
}

type Sample struct {
	ID         string
	Population string
}

// Load reads a sample-info file from a local or gs:// path. The file is
// nominally tab-delimited with the sample identifier in the first column and
// the population label in the second, but other delimiters are sniffed and
// accepted.
func Load(path string, client *storage.Client) (*Panel, error) {
	rdr, closer, err := admixsim.OpenDelimited(path, client, '\t')
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer closer.Close()

	p, err := ParseRows(rdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// ParseRows consumes sample-info rows from a configured csv.Reader. A leading
// header row naming the first column "sample" (as in the 1000 Genomes panel
// file) is recognized and used to locate the sample and population columns;
// otherwise columns one and two are used. Extra columns are ignored.
func ParseRows(rdr *csv.Reader) (*Panel, error) {
	rdr.FieldsPerRecord = -1
	rdr.Comment = '#'

	p := &Panel{
		byPop: make(map[string][]string),
		popOf: make(map[string]string),
	}

	sampleCol, popCol := 0, 1
	line := 0
	for {
		cols, err := rdr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}
		line++

		if len(cols) == 1 && strings.TrimSpace(cols[0]) == "" {
			continue
		}
		if len(cols) < 2 {
			return nil, ValidationError{Line: line, Reason: fmt.Sprintf("expected at least 2 columns, found %d", len(cols))}
		}

		if line == 1 && strings.EqualFold(cols[sampleCol], "sample") {
			// Header row. Honor its column order.
			for i, name := range cols {
				switch strings.ToLower(name) {
				case "sample":
					sampleCol = i
				case "pop":
					popCol = i
				}
			}
			continue
		}

		maxCol := popCol
		if sampleCol > maxCol {
			maxCol = sampleCol
		}
		if len(cols) <= maxCol {
			return nil, ValidationError{Line: line, Reason: fmt.Sprintf("expected at least %d columns, found %d", maxCol+1, len(cols))}
		}

		if err := p.add(Sample{ID: cols[sampleCol], Population: cols[popCol]}, line); err != nil {
			return nil, err
		}
	}

	if len(p.samples) == 0 {
		return nil, ValidationError{Reason: "the sample-info file lists no samples"}
	}

	return p, nil
}

func (p *Panel) add(s Sample, line int) error {
	if _, dup := p.popOf[s.ID]; dup {
		return ValidationError{Line: line, Sample: s.ID, Reason: "sample is listed more than once"}
	}

	p.samples = append(p.samples, s)
	p.popOf[s.ID] = s.Population
	if _, seen := p.byPop[s.Population]; !seen {
		p.pops = append(p.pops, s.Population)
	}
	p.byPop[s.Population] = append(p.byPop[s.Population], s.ID)

	return nil
}

// Len reports the number of panel samples.
func (p *Panel) Len() int { return len(p.samples) }

// Pops returns the panel's population labels in first-appearance order.
func (p *Panel) Pops() []string {
	out := make([]string, len(p.pops))
	copy(out, p.pops)

	return out
}

// SamplesFor returns the sample identifiers assigned to pop, in file order.
func (p *Panel) SamplesFor(pop string) []string {
	ids := p.byPop[pop]
	out := make([]string, len(ids))
	copy(out, ids)

	return out
}

// Population reports the population assigned to one sample.
func (p *Panel) Population(sampleID string) (string, bool) {
	pop, ok := p.popOf[sampleID]

	return pop, ok
}
