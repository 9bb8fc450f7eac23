// simgenotype simulates admixed genomes. It breeds the generations described
// by a model file over per-chromosome genetic maps, writes the resulting
// ancestry tracks to a breakpoint file, and, unless asked for breakpoints
// only, copies alleles from a phased reference VCF to emit concrete genotypes
// for the simulated samples.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/carbocation/admixsim/admixmodel"
	"github.com/carbocation/admixsim/breakpoint"
	_ "github.com/carbocation/admixsim/compileinfoprint"
	"github.com/carbocation/admixsim/genmap"
	"github.com/carbocation/admixsim/panel"
	"github.com/carbocation/admixsim/pedsim"
	"github.com/carbocation/admixsim/simvcf"
)

var client *storage.Client

func main() {
	var modelFile, mapDir, outPrefix, chromList, invcf, sampleInfo, region string
	var seed uint64
	var popSize int
	var onlyBreakpoint, discardMissing, verbose bool
	flag.StringVar(&modelFile, "model", "", "Path to the admixture model file. Optionally, may be a google storage URL (gs://)")
	flag.StringVar(&mapDir, "mapdir", "", "Local directory containing one PLINK-format genetic map per chromosome")
	flag.StringVar(&outPrefix, "out", "", "Output prefix; writes <out>.bp and, unless --only_breakpoint, <out>.vcf")
	flag.StringVar(&chromList, "chroms", defaultChroms(), "Comma-separated chromosomes to simulate")
	flag.Uint64Var(&seed, "seed", 0, "Seed for the random draws. 0 derives a seed from the clock and logs it")
	flag.IntVar(&popSize, "popsize", 10000, "Number of individuals bred per generation")
	flag.StringVar(&invcf, "invcf", "", "Path to the phased reference VCF. Optionally, may be a google storage URL (gs://)")
	flag.StringVar(&sampleInfo, "sample_info", "", "Path to the file assigning reference samples to populations. Optionally, may be a google storage URL (gs://)")
	flag.BoolVar(&onlyBreakpoint, "only_breakpoint", false, "Stop after writing the breakpoint file")
	flag.StringVar(&region, "region", "", "Materialize only chrom:start-end of a tabix-indexed reference VCF")
	flag.BoolVar(&discardMissing, "discard-missing", false, "Redraw the donor instead of emitting a missing allele when the donor lacks a call")
	flag.BoolVar(&verbose, "verbose", false, "Log per-phase wall times")
	flag.Parse()

	if modelFile == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --model")
	}
	if mapDir == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --mapdir")
	}
	if outPrefix == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide --out")
	}
	if !onlyBreakpoint {
		if invcf == "" {
			flag.PrintDefaults()
			log.Fatalln("Please provide --invcf (or pass --only_breakpoint)")
		}
		if sampleInfo == "" {
			flag.PrintDefaults()
			log.Fatalln("Please provide --sample_info (or pass --only_breakpoint)")
		}
	}

	chroms := splitChroms(chromList)
	if len(chroms) == 0 {
		log.Fatalln("--chroms names no chromosomes")
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
		log.Println("No --seed given; using", seed)
	}

	if strings.HasPrefix(modelFile, "gs://") ||
		strings.HasPrefix(invcf, "gs://") ||
		strings.HasPrefix(sampleInfo, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	// All validation happens before any simulation work, so a bad input
	// never leaves output files behind.

	start := time.Now()
	model, err := admixmodel.Load(modelFile, client)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Model: %d samples, %d founder populations, %d generations\n", model.NumSamples, len(model.Pops), model.NumGenerations())

	maps, err := genmap.Load(mapDir, chroms)
	if err != nil {
		log.Fatalln(err)
	}
	if verbose {
		log.Printf("Loaded %d genetic maps in %s\n", len(maps.Chroms()), time.Since(start))
	}

	var pnl *panel.Panel
	if !onlyBreakpoint {
		pnl, err = panel.Load(sampleInfo, client)
		if err != nil {
			log.Fatalln(err)
		}

		vcfSamples, err := simvcf.SampleNames(invcf, client)
		if err != nil {
			log.Fatalln(err)
		}

		if err := pnl.Validate(model.Pops, vcfSamples); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Panel: %d reference samples across %d populations\n", pnl.Len(), len(pnl.Pops()))
	}

	start = time.Now()
	sim, err := pedsim.New(model, maps, popSize, seed)
	if err != nil {
		log.Fatalln(err)
	}

	samples, err := sim.Run()
	if err != nil {
		log.Fatalln(err)
	}
	if verbose {
		log.Printf("Simulated %d generations in %s\n", model.NumGenerations(), time.Since(start))
	}

	bpFile := outPrefix + ".bp"
	if err := breakpoint.WriteFile(bpFile, samples); err != nil {
		log.Fatalln(err)
	}
	log.Printf("Wrote ancestry tracks for %d samples to %s\n", len(samples), bpFile)

	if onlyBreakpoint {
		return
	}

	opts := simvcf.Options{DiscardMissing: discardMissing}
	if region != "" {
		r, err := simvcf.ParseRegion(region)
		if err != nil {
			log.Fatalln(err)
		}
		opts.Region = &r
	}

	start = time.Now()
	vcfFile := outPrefix + ".vcf"
	out, err := os.Create(vcfFile)
	if err != nil {
		log.Fatalln(err)
	}
	defer out.Close()

	stats, err := simvcf.Materialize(invcf, client, samples, pnl, out, seed, opts)
	if err != nil {
		log.Fatalln(err)
	}
	if verbose {
		log.Printf("Materialized genotypes in %s\n", time.Since(start))
	}

	log.Printf("Wrote %d of %d sites to %s (%d skipped, %d clamped, %d missing calls)\n",
		stats.SitesWritten, stats.SitesTotal, vcfFile, stats.SitesSkipped, stats.SitesClamped, stats.MissingCalls)
	if discardMissing {
		log.Println("Donors discarded over missing calls:", stats.DonorsDiscarded)
	}
}

func defaultChroms() string {
	chroms := make([]string, 0, 23)
	for i := 1; i <= 22; i++ {
		chroms = append(chroms, strconv.Itoa(i))
	}
	chroms = append(chroms, "X")

	return strings.Join(chroms, ",")
}

func splitChroms(list string) []string {
	var chroms []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			chroms = append(chroms, c)
		}
	}

	return chroms
}
