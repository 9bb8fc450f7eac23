package breakpoint

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
)

const writeBufferSize = 4096 * 8

// Write serializes samples in order. Each sample contributes two sections,
// one per haplotype, headed by the sample identifier with a 1-based haplotype
// suffix (Sample_3_2 is the second haplotype of the third sample). Genetic
// positions are written with six decimal places.
func Write(w io.Writer, samples []Sample) error {
	bw := bufio.NewWriterSize(w, writeBufferSize)

	for _, s := range samples {
		for hap, track := range s.Haplotypes {
			if _, err := fmt.Fprintf(bw, "%s_%d\n", s.ID, hap+1); err != nil {
				return pfx.Err(err)
			}
			for _, seg := range track {
				if _, err := fmt.Fprintf(bw, "%s\t%s\t%d\t%.6f\n", seg.Population, seg.Chrom, seg.EndBP, seg.EndCM); err != nil {
					return pfx.Err(err)
				}
			}
		}
	}

	return bw.Flush()
}

// WriteFile writes the breakpoint artifact to a local path, gzip-compressing
// when the path ends in .gz.
func WriteFile(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		if err := Write(gz, samples); err != nil {
			f.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			f.Close()
			return pfx.Err(err)
		}

		return f.Close()
	}

	if err := Write(f, samples); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
