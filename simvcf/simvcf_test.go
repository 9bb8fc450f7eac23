package simvcf

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/carbocation/admixsim/breakpoint"
	"github.com/carbocation/admixsim/panel"
)

func writeVCF(t *testing.T, donors []string, rows ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("##fileformat=VCFv4.2\n")
	b.WriteString("##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n")
	b.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t" + strings.Join(donors, "\t") + "\n")
	for _, row := range rows {
		b.WriteString(row + "\n")
	}

	path := filepath.Join(t.TempDir(), "ref.vcf")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	return path
}

func site(chrom string, pos int, gts ...string) string {
	cols := append([]string{chrom, strconv.Itoa(pos), "rs" + strconv.Itoa(pos), "A", "G", "100", "PASS", ".", "GT"}, gts...)

	return strings.Join(cols, "\t")
}

func testPanel(t *testing.T, rows string) *panel.Panel {
	t.Helper()

	rdr := csv.NewReader(strings.NewReader(rows))
	rdr.Comma = '\t'
	p, err := panel.ParseRows(rdr)
	if err != nil {
		t.Fatalf("parsing panel fixture: %v", err)
	}

	return p
}

func fullSpan(pop, chrom string, endBP int) breakpoint.Haplotype {
	return breakpoint.Haplotype{{Population: pop, Chrom: chrom, EndBP: endBP, EndCM: 1.5}}
}

// genotypeRows extracts the sample genotype columns of each emitted site.
func genotypeRows(t *testing.T, out *bytes.Buffer) [][]string {
	t.Helper()

	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 10 {
			t.Fatalf("site row has %d columns: %q", len(cols), line)
		}
		rows = append(rows, cols[9:])
	}

	return rows
}

func allele(gt string, hap int) string {
	return strings.Split(gt, "|")[hap]
}

// With one donor per population every draw is forced, so the output is exact:
// haplotype 0 copies the YRI donor's first allele and haplotype 1 copies the
// CEU donor's second allele.
func TestMaterializeCopiesDonorHaplotypes(t *testing.T) {
	invcf := writeVCF(t, []string{"ref1", "ref2"},
		site("1", 100, "0|1", "1|1"),
		site("1", 200, "1|0", "0|0"),
	)
	pnl := testPanel(t, "ref1\tYRI\nref2\tCEU\n")

	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("YRI", "1", 1000), fullSpan("CEU", "1", 1000)},
	}}

	var out bytes.Buffer
	stats, err := Materialize(invcf, nil, samples, pnl, &out, 1, Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stats.SitesWritten != 2 {
		t.Errorf("SitesWritten = %d, want 2", stats.SitesWritten)
	}

	rows := genotypeRows(t, &out)
	if len(rows) != 2 {
		t.Fatalf("emitted %d sites, want 2", len(rows))
	}
	if rows[0][0] != "0|1" {
		t.Errorf("site 100 genotype = %q, want 0|1", rows[0][0])
	}
	if rows[1][0] != "1|0" {
		t.Errorf("site 200 genotype = %q, want 1|0", rows[1][0])
	}
}

func TestDonorIsConstantWithinASegment(t *testing.T) {
	positions := []int{100, 300, 500, 700, 900, 1100, 1300, 1500, 1700, 1900}
	vcfRows := make([]string, 0, len(positions))
	for _, pos := range positions {
		vcfRows = append(vcfRows, site("1", pos, "0|0", "1|1", "0|1"))
	}
	invcf := writeVCF(t, []string{"a1", "a2", "b1"}, vcfRows...)
	pnl := testPanel(t, "a1\tYRI\na2\tYRI\nb1\tCEU\n")

	track := breakpoint.Haplotype{
		{Population: "YRI", Chrom: "1", EndBP: 600, EndCM: 0.6},
		{Population: "CEU", Chrom: "1", EndBP: 1200, EndCM: 1.2},
		{Population: "YRI", Chrom: "1", EndBP: 2000, EndCM: 2.0},
	}
	samples := []breakpoint.Sample{{ID: "Sample_1", Haplotypes: [2]breakpoint.Haplotype{track, track}}}

	var out bytes.Buffer
	if _, err := Materialize(invcf, nil, samples, pnl, &out, 7, Options{}); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	rows := genotypeRows(t, &out)
	if len(rows) != len(positions) {
		t.Fatalf("emitted %d sites, want %d", len(rows), len(positions))
	}

	// The middle segment has a single CEU donor.
	for _, i := range []int{3, 4, 5} {
		if rows[i][0] != "0|1" {
			t.Errorf("site %d genotype = %q, want 0|1 from the CEU donor", positions[i], rows[i][0])
		}
	}

	// The YRI donors are opposite homozygotes, so a mid-segment donor switch
	// would show up as a changed allele.
	checkConstant := func(idx []int) {
		t.Helper()
		for hap := 0; hap < 2; hap++ {
			first := allele(rows[idx[0]][0], hap)
			for _, i := range idx[1:] {
				if got := allele(rows[i][0], hap); got != first {
					t.Errorf("haplotype %d switches donors mid-segment at %d: %q then %q", hap, positions[i], first, got)
				}
			}
		}
	}
	checkConstant([]int{0, 1, 2})
	checkConstant([]int{6, 7, 8, 9})
}

func TestMissingCallsPropagate(t *testing.T) {
	invcf := writeVCF(t, []string{"b1"},
		site("1", 100, "0|1"),
		site("1", 200, "./."),
		site("1", 300, "1|0"),
	)
	pnl := testPanel(t, "b1\tCEU\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("CEU", "1", 1000), fullSpan("CEU", "1", 1000)},
	}}

	var out bytes.Buffer
	stats, err := Materialize(invcf, nil, samples, pnl, &out, 3, Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	rows := genotypeRows(t, &out)
	want := []string{"0|1", ".|.", "1|0"}
	for i, w := range want {
		if rows[i][0] != w {
			t.Errorf("site %d genotype = %q, want %q", i, rows[i][0], w)
		}
	}
	if stats.MissingCalls != 2 {
		t.Errorf("MissingCalls = %d, want 2", stats.MissingCalls)
	}
}

func TestDiscardMissingRedrawsWithinSegment(t *testing.T) {
	invcf := writeVCF(t, []string{"a1", "a2"},
		site("1", 100, "0|0", "1|1"),
		site("1", 200, "./.", "1|1"),
		site("1", 300, "0|0", "1|1"),
	)
	pnl := testPanel(t, "a1\tYRI\na2\tYRI\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("YRI", "1", 1000), fullSpan("YRI", "1", 1000)},
	}}

	var out bytes.Buffer
	stats, err := Materialize(invcf, nil, samples, pnl, &out, 11, Options{DiscardMissing: true})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stats.MissingCalls != 0 {
		t.Errorf("MissingCalls = %d, want 0 in discard mode", stats.MissingCalls)
	}

	rows := genotypeRows(t, &out)

	// Whichever donor a haplotype starts on, by site 200 only a2 can serve
	// it, and the replacement persists through the rest of the segment.
	if rows[1][0] != "1|1" {
		t.Errorf("site 200 genotype = %q, want 1|1 from the redrawn donor", rows[1][0])
	}
	if rows[2][0] != "1|1" {
		t.Errorf("site 300 genotype = %q, want 1|1 after the discard", rows[2][0])
	}

	discards := 0
	for hap := 0; hap < 2; hap++ {
		if allele(rows[0][0], hap) == "0" {
			discards++
		}
	}
	if stats.DonorsDiscarded != discards {
		t.Errorf("DonorsDiscarded = %d, want %d", stats.DonorsDiscarded, discards)
	}
}

func TestDiscardMissingFailsWhenPoolEmpties(t *testing.T) {
	invcf := writeVCF(t, []string{"b1"},
		site("1", 100, "0|1"),
		site("1", 200, "./."),
	)
	pnl := testPanel(t, "b1\tCEU\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("CEU", "1", 1000), fullSpan("CEU", "1", 1000)},
	}}

	var out bytes.Buffer
	_, err := Materialize(invcf, nil, samples, pnl, &out, 5, Options{DiscardMissing: true})

	var merr MaterializationError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want a MaterializationError", err)
	}
	if merr.Pos != 200 {
		t.Errorf("error position = %d, want 200", merr.Pos)
	}
}

func TestUnsortedReferenceIsRejected(t *testing.T) {
	invcf := writeVCF(t, []string{"b1"},
		site("1", 500, "0|1"),
		site("1", 300, "0|1"),
	)
	pnl := testPanel(t, "b1\tCEU\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("CEU", "1", 1000), fullSpan("CEU", "1", 1000)},
	}}

	var out bytes.Buffer
	_, err := Materialize(invcf, nil, samples, pnl, &out, 5, Options{})

	var merr MaterializationError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want a MaterializationError", err)
	}
	if merr.Pos != 300 {
		t.Errorf("error position = %d, want 300", merr.Pos)
	}
}

func TestSkipAndClampAccounting(t *testing.T) {
	invcf := writeVCF(t, []string{"b1"},
		site("1", 100, "0|1"),
		site("1", 5000, "1|1"),
		site("2", 200, "0|0"),
	)
	pnl := testPanel(t, "b1\tCEU\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("CEU", "1", 1000), fullSpan("CEU", "1", 1000)},
	}}

	var out bytes.Buffer
	stats, err := Materialize(invcf, nil, samples, pnl, &out, 9, Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if stats.SitesTotal != 3 {
		t.Errorf("SitesTotal = %d, want 3", stats.SitesTotal)
	}
	if stats.SitesWritten != 2 {
		t.Errorf("SitesWritten = %d, want 2", stats.SitesWritten)
	}
	if stats.SitesSkipped != 1 {
		t.Errorf("SitesSkipped = %d, want 1", stats.SitesSkipped)
	}
	if stats.SitesClamped != 1 {
		t.Errorf("SitesClamped = %d, want 1", stats.SitesClamped)
	}

	// The clamped site still copies the final segment's ancestry.
	rows := genotypeRows(t, &out)
	if len(rows) != 2 || rows[1][0] != "1|1" {
		t.Errorf("clamped site genotype rows = %v, want final row 1|1", rows)
	}
}

func TestChrPrefixedReferenceMatchesBareTrackNames(t *testing.T) {
	invcf := writeVCF(t, []string{"b1"}, site("chr1", 100, "0|1"))
	pnl := testPanel(t, "b1\tCEU\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("CEU", "1", 1000), fullSpan("CEU", "1", 1000)},
	}}

	var out bytes.Buffer
	stats, err := Materialize(invcf, nil, samples, pnl, &out, 13, Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if stats.SitesWritten != 1 {
		t.Errorf("SitesWritten = %d, want 1", stats.SitesWritten)
	}

	rows := genotypeRows(t, &out)
	if len(rows) != 1 || rows[0][0] != "0|1" {
		t.Errorf("genotype rows = %v, want a single 0|1", rows)
	}
}

func TestUnrepresentedPopulationIsRejected(t *testing.T) {
	invcf := writeVCF(t, []string{"b1"}, site("1", 100, "0|1"))
	pnl := testPanel(t, "b1\tCEU\n")
	samples := []breakpoint.Sample{{
		ID:         "Sample_1",
		Haplotypes: [2]breakpoint.Haplotype{fullSpan("YRI", "1", 1000), fullSpan("YRI", "1", 1000)},
	}}

	var out bytes.Buffer
	_, err := Materialize(invcf, nil, samples, pnl, &out, 5, Options{})

	var merr MaterializationError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want a MaterializationError", err)
	}
	if !strings.Contains(merr.Reason, "YRI") {
		t.Errorf("error reason %q does not name the missing population", merr.Reason)
	}
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("chr1:2000-3000")
	if err != nil {
		t.Fatalf("ParseRegion: %v", err)
	}
	if r.Chrom != "chr1" || r.Start != 2000 || r.End != 3000 {
		t.Errorf("parsed %+v", r)
	}

	r, err = ParseRegion("5")
	if err != nil {
		t.Fatalf("ParseRegion: %v", err)
	}
	if r.Chrom != "5" || r.Start != 1 {
		t.Errorf("parsed %+v", r)
	}

	for _, bad := range []string{"", ":100-200", "chr1:x-200", "chr1:200-100", "chr1:100"} {
		if _, err := ParseRegion(bad); err == nil {
			t.Errorf("ParseRegion(%q) unexpectedly succeeded", bad)
		}
	}
}
