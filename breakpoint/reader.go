package breakpoint

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/admixsim"
	"github.com/carbocation/pfx"
)

// ReadFile parses a breakpoint artifact from a local or gs:// path,
// transparently decompressing it.
func ReadFile(path string, client *storage.Client) ([]Sample, error) {
	r, err := admixsim.OpenDecompressed(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	samples, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return samples, nil
}

// Read parses a breakpoint artifact into samples, preserving the order in
// which sample sections first appear.
func Read(r io.Reader) ([]Sample, error) {
	var samples []Sample
	index := make(map[string]int)

	var cur *Haplotype
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		switch len(fields) {
		case 1:
			id, hap, err := splitSectionHeader(fields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}

			i, ok := index[id]
			if !ok {
				index[id] = len(samples)
				samples = append(samples, Sample{ID: id})
				i = len(samples) - 1
			}

			cur = &samples[i].Haplotypes[hap]
			if len(*cur) > 0 {
				return nil, fmt.Errorf("line %d: haplotype section %s appears more than once", line, fields[0])
			}

		case 4:
			if cur == nil {
				return nil, fmt.Errorf("line %d: segment appears before any sample section header", line)
			}

			bp, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: end position %q is not an integer", line, fields[2])
			}
			cm, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: genetic position %q is not a number", line, fields[3])
			}

			*cur = append(*cur, Segment{Population: fields[0], Chrom: fields[1], EndBP: bp, EndCM: cm})

		default:
			return nil, fmt.Errorf("line %d: expected a section header or a 4-column segment, found %d columns", line, len(fields))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("the breakpoint artifact lists no samples")
	}

	return samples, nil
}

// splitSectionHeader breaks a section name like Sample_3_2 into the sample
// identifier (Sample_3) and the 0-based haplotype index (1).
func splitSectionHeader(s string) (string, int, error) {
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("section header %q lacks a haplotype suffix", s)
	}

	switch s[i+1:] {
	case "1":
		return s[:i], 0, nil
	case "2":
		return s[:i], 1, nil
	}

	return "", 0, fmt.Errorf("section header %q must end in _1 or _2", s)
}
