// bpsummary summarizes a breakpoint file produced by simgenotype. For each
// population it reports how many ancestry segments the simulated haplotypes
// carry and the genetic lengths of those segments, optionally with a terminal
// histogram of the length distribution.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"

	"github.com/carbocation/admixsim/breakpoint"
	_ "github.com/carbocation/admixsim/compileinfoprint"
)

var client *storage.Client

type PopulationSummary struct {
	Population string  `csv:"population"`
	Haplotypes int     `csv:"n_haplotypes"`
	Segments   int     `csv:"n_segments"`
	TotalCM    float64 `csv:"total_cm"`
	MeanCM     float64 `csv:"mean_cm"`
	MedianCM   float64 `csv:"median_cm"`
	MaxCM      float64 `csv:"max_cm"`
}

func main() {
	var input, sampleFilter string
	var histBuckets int
	flag.StringVar(&input, "input", "", "Path to the breakpoint file. Optionally, may be a google storage URL (gs://)")
	flag.StringVar(&sampleFilter, "sample", "", "If set, only summarizes this sample")
	flag.IntVar(&histBuckets, "hist", 0, "If nonzero, prints a histogram of segment genetic lengths with this many buckets per population")
	flag.Parse()

	if input == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --input")
	}

	if strings.HasPrefix(input, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	samples, err := breakpoint.ReadFile(input, client)
	if err != nil {
		log.Fatalln(err)
	}

	if sampleFilter != "" {
		kept := samples[:0]
		for _, s := range samples {
			if s.ID == sampleFilter {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			log.Fatalf("sample %s is not present in %s\n", sampleFilter, input)
		}
		samples = kept
	}

	pops, lengths, haps := segmentLengths(samples)

	summaries := make([]*PopulationSummary, 0, len(pops))
	for _, pop := range pops {
		summary, err := summarize(pop, lengths[pop], haps[pop])
		if err != nil {
			log.Fatalln(err)
		}
		summaries = append(summaries, summary)
	}

	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
	if err := gocsv.Marshal(&summaries, os.Stdout); err != nil {
		log.Fatalln(err)
	}

	if histBuckets > 0 {
		for _, pop := range pops {
			fmt.Printf("\nSegment genetic lengths (cM) for %s:\n", pop)
			hist := histogram.Hist(histBuckets, lengths[pop])
			if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
				log.Fatalln(err)
			}
		}
	}
}

// segmentLengths walks every haplotype track and collects, per population,
// the genetic length of each segment and the number of distinct haplotypes
// carrying that population. Segment ends are cumulative within a chromosome,
// so each length is the gap back to the previous segment's end.
func segmentLengths(samples []breakpoint.Sample) ([]string, map[string][]float64, map[string]int) {
	var pops []string
	lengths := make(map[string][]float64)
	haps := make(map[string]int)

	for _, s := range samples {
		for _, track := range s.Haplotypes {
			carried := make(map[string]bool)

			var prevChrom string
			var prevCM float64
			for _, seg := range track {
				if seg.Chrom != prevChrom {
					prevChrom = seg.Chrom
					prevCM = 0
				}

				if _, seen := lengths[seg.Population]; !seen {
					pops = append(pops, seg.Population)
				}
				lengths[seg.Population] = append(lengths[seg.Population], seg.EndCM-prevCM)
				carried[seg.Population] = true

				prevCM = seg.EndCM
			}

			for pop := range carried {
				haps[pop]++
			}
		}
	}

	return pops, lengths, haps
}

func summarize(pop string, lens []float64, nHaps int) (*PopulationSummary, error) {
	data := stats.Float64Data(lens)

	total, err := data.Sum()
	if err != nil {
		return nil, err
	}
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}
	max, err := data.Max()
	if err != nil {
		return nil, err
	}

	return &PopulationSummary{
		Population: pop,
		Haplotypes: nHaps,
		Segments:   len(lens),
		TotalCM:    total,
		MeanCM:     mean,
		MedianCM:   median,
		MaxCM:      max,
	}, nil
}
