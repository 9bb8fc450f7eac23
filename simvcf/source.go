package simvcf

import (
	"bufio"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/brentp/irelate/interfaces"
	"github.com/carbocation/admixsim"
	"github.com/carbocation/bix"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
)

const readBufferSize = 4096 * 8

// variantSource yields reference variants one at a time with their sample
// genotypes already parsed, ending with io.EOF.
type variantSource interface {
	Next() (*vcfgo.Variant, error)
	SampleNames() []string
	Close() error
}

// streamSource reads a whole VCF in file order.
type streamSource struct {
	rdr    *vcfgo.Reader
	closer io.Closer
}

func newStreamSource(path string, client *storage.Client) (*streamSource, error) {
	r, err := admixsim.OpenDecompressed(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	buffRead := bufio.NewReaderSize(r, readBufferSize)
	rdr, err := vcfgo.NewReader(buffRead, true)
	if err != nil {
		r.Close()
		return nil, pfx.Err(err)
	}

	return &streamSource{rdr: rdr, closer: r}, nil
}

func (s *streamSource) Next() (*vcfgo.Variant, error) {
	variant := s.rdr.Read()
	if variant == nil {
		return nil, io.EOF
	}

	if err := variant.Header.ParseSamples(variant); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", variant.Chrom(), variant.Pos, err)
	}

	// Drop the reader's accumulated soft errors; sample fields we do not
	// consume are allowed to be unparseable.
	s.rdr.Clear()

	return variant, nil
}

func (s *streamSource) SampleNames() []string {
	return s.rdr.Header.SampleNames
}

func (s *streamSource) Close() error {
	return s.closer.Close()
}

// tabixLocus is a query window for a tabix-indexed VCF. Start is 0-based,
// End is 1-based, per the tabix convention.
type tabixLocus struct {
	chrom string
	start int
	end   int
}

func (l tabixLocus) Chrom() string { return l.chrom }

func (l tabixLocus) Start() uint32 { return uint32(l.start) }

func (l tabixLocus) End() uint32 { return uint32(l.end) }

// regionSource reads only the variants inside one region of a tabix-indexed
// VCF.
type regionSource struct {
	tbx  *bix.Bix
	vals interfaces.RelatableIterator
}

func newRegionSource(path string, client *storage.Client, region Region) (*regionSource, error) {
	tbx, err := bix.NewGCP(admixsim.ExpandHome(path), client)
	if err != nil {
		return nil, pfx.Err(err)
	}

	vals, err := tbx.Query(tabixLocus{chrom: region.Chrom, start: region.Start - 1, end: region.End})
	if err != nil {
		tbx.Close()
		return nil, pfx.Err(err)
	}

	return &regionSource{tbx: tbx, vals: vals}, nil
}

func (s *regionSource) Next() (*vcfgo.Variant, error) {
	v, err := s.vals.Next()
	if err != nil {
		return nil, err
	}

	// Unwrap the iterator layers to get back to the vcfgo.Variant.
	wrap, ok := v.(interfaces.VarWrap)
	if !ok {
		return nil, fmt.Errorf("%s:%d: not a valid VarWrap", v.Chrom(), v.End())
	}
	variant, ok := wrap.IVariant.(*vcfgo.Variant)
	if !ok {
		return nil, fmt.Errorf("%s:%d: not a valid IVariant", v.Chrom(), v.End())
	}

	if err := s.tbx.VReader.Header.ParseSamples(variant); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", variant.Chrom(), variant.Pos, err)
	}

	return variant, nil
}

func (s *regionSource) SampleNames() []string {
	return s.tbx.VReader.Header.SampleNames
}

func (s *regionSource) Close() error {
	return s.tbx.Close()
}

// SampleNames reads only the header of the reference VCF and returns its
// sample column names, so callers can validate a panel against the reference
// before doing any simulation work.
func SampleNames(path string, client *storage.Client) ([]string, error) {
	src, err := newStreamSource(path, client)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return src.SampleNames(), nil
}
