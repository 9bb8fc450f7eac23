package genmap

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/admixsim"
	"github.com/carbocation/pfx"
)

// Map columns in a PLINK-format genetic map file to their positions
const (
	colChromosome int = iota
	colVariantID
	colCentimorgans
	colCoordinate
)

func loadChromMap(path, chrom string) (*ChromMap, error) {
	r, err := admixsim.OpenDecompressed(path, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	entries, err := parseMapFile(r, chrom)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return NewChromMap(chrom, entries)
}

// parseMapFile reads PLINK-format map rows (chromosome, variant ID,
// centimorgans, base-pair coordinate) separated by any whitespace. Blank
// lines and lines starting with # are skipped. Every row must belong to
// chrom, ignoring any chr prefix.
func parseMapFile(r io.Reader, chrom string) ([]Entry, error) {
	want := normalizeChrom(chrom)

	var entries []Entry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		cols := strings.Fields(text)
		if len(cols) < colCoordinate+1 {
			return nil, fmt.Errorf("line %d: expected %d columns, found %d", line, colCoordinate+1, len(cols))
		}

		if got := normalizeChrom(cols[colChromosome]); got != want {
			return nil, fmt.Errorf("line %d: found chromosome %s in a map for chromosome %s", line, cols[colChromosome], chrom)
		}

		cm, err := strconv.ParseFloat(cols[colCentimorgans], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: centimorgan value %q is not a number", line, cols[colCentimorgans])
		}
		bp, err := strconv.Atoi(cols[colCoordinate])
		if err != nil {
			return nil, fmt.Errorf("line %d: coordinate %q is not an integer", line, cols[colCoordinate])
		}

		entries = append(entries, Entry{BP: bp, CM: cm})
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return entries, nil
}

func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}
