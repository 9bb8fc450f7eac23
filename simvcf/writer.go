package simvcf

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
)

// vcfWriter emits the synthesized genotype matrix: a minimal VCF carrying one
// phased GT column per simulated sample.
type vcfWriter struct {
	w *bufio.Writer
}

func newVCFWriter(w io.Writer) *vcfWriter {
	return &vcfWriter{w: bufio.NewWriterSize(w, readBufferSize)}
}

func (vw *vcfWriter) WriteHeader(chroms, sampleIDs []string) error {
	fmt.Fprintln(vw.w, "##fileformat=VCFv4.2")
	fmt.Fprintln(vw.w, "##source=simgenotype")
	fmt.Fprintln(vw.w, `##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`)
	for _, chrom := range chroms {
		fmt.Fprintf(vw.w, "##contig=<ID=%s>\n", chrom)
	}

	fmt.Fprint(vw.w, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT")
	for _, id := range sampleIDs {
		fmt.Fprintf(vw.w, "\t%s", id)
	}
	if _, err := fmt.Fprintln(vw.w); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// WriteSite copies the site identity from the reference variant and appends
// one pre-formatted phased genotype per simulated sample.
func (vw *vcfWriter) WriteSite(v *vcfgo.Variant, genotypes []string) error {
	id := v.Id()
	if id == "" {
		id = "."
	}
	alt := strings.Join(v.Alt(), ",")
	if alt == "" {
		alt = "."
	}

	fmt.Fprintf(vw.w, "%s\t%d\t%s\t%s\t%s\t.\t.\t.\tGT", v.Chrom(), v.Pos, id, v.Ref(), alt)
	for _, gt := range genotypes {
		fmt.Fprintf(vw.w, "\t%s", gt)
	}
	if _, err := fmt.Fprintln(vw.w); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func (vw *vcfWriter) Flush() error {
	return vw.w.Flush()
}
