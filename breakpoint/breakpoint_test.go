package breakpoint

import (
	"bytes"
	"strings"
	"testing"
)

func testSamples() []Sample {
	return []Sample{
		{
			ID: "Sample_1",
			Haplotypes: [2]Haplotype{
				{
					{Population: "CEU", Chrom: "1", EndBP: 10114, EndCM: 0.008404},
					{Population: "YRI", Chrom: "1", EndBP: 249218992, EndCM: 249.529931},
					{Population: "CEU", Chrom: "2", EndBP: 243048760, EndCM: 244.717921},
				},
				{
					{Population: "YRI", Chrom: "1", EndBP: 249218992, EndCM: 249.529931},
					{Population: "YRI", Chrom: "2", EndBP: 243048760, EndCM: 244.717921},
				},
			},
		},
		{
			ID: "Sample_2",
			Haplotypes: [2]Haplotype{
				{{Population: "CEU", Chrom: "1", EndBP: 249218992, EndCM: 249.529931}},
				{{Population: "YRI", Chrom: "1", EndBP: 249218992, EndCM: 249.529931}},
			},
		},
	}
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, testSamples()[1:]); err != nil {
		t.Fatal(err)
	}

	want := "Sample_2_1\nCEU\t1\t249218992\t249.529931\nSample_2_2\nYRI\t1\t249218992\t249.529931\n"
	if buf.String() != want {
		t.Errorf("Write produced:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRoundTrip(t *testing.T) {
	samples := testSamples()

	var first bytes.Buffer
	if err := Write(&first, samples); err != nil {
		t.Fatal(err)
	}

	parsed, err := Read(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatal(err)
	}

	if len(parsed) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(parsed))
	}
	for i, s := range parsed {
		if s.ID != samples[i].ID {
			t.Errorf("sample %d is named %s, want %s", i, s.ID, samples[i].ID)
		}
		for hap, track := range s.Haplotypes {
			wantTrack := samples[i].Haplotypes[hap]
			if len(track) != len(wantTrack) {
				t.Fatalf("%s haplotype %d has %d segments, want %d", s.ID, hap, len(track), len(wantTrack))
			}
			for j, seg := range track {
				w := wantTrack[j]
				if seg.Population != w.Population || seg.Chrom != w.Chrom || seg.EndBP != w.EndBP {
					t.Errorf("%s haplotype %d segment %d = %+v, want %+v", s.ID, hap, j, seg, w)
				}
			}
		}
	}

	// A second serialization of the parsed samples must be byte-identical.
	var second bytes.Buffer
	if err := Write(&second, parsed); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("re-serializing a parsed artifact changed its bytes")
	}
}

func TestChromSegments(t *testing.T) {
	track := testSamples()[0].Haplotypes[0]

	chr1 := track.ChromSegments("1")
	if len(chr1) != 2 || chr1[0].Population != "CEU" || chr1[1].Population != "YRI" {
		t.Errorf("ChromSegments(1) = %v", chr1)
	}

	chr2 := track.ChromSegments("2")
	if len(chr2) != 1 || chr2[0].EndBP != 243048760 {
		t.Errorf("ChromSegments(2) = %v", chr2)
	}

	if got := track.ChromSegments("3"); got != nil {
		t.Errorf("ChromSegments(3) = %v, want nil", got)
	}
}

func TestReadRejectsMalformedArtifacts(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"segment before header", "CEU\t1\t100\t0.5\n"},
		{"bad haplotype suffix", "Sample_1_3\nCEU\t1\t100\t0.5\n"},
		{"no haplotype suffix", "Sample\nCEU\t1\t100\t0.5\n"},
		{"repeated section", "Sample_1_1\nCEU\t1\t100\t0.5\nSample_1_1\nCEU\t1\t100\t0.5\n"},
		{"bad position", "Sample_1_1\nCEU\t1\tx\t0.5\n"},
		{"bad genetic position", "Sample_1_1\nCEU\t1\t100\tx\n"},
		{"wrong column count", "Sample_1_1\nCEU\t1\t100\n"},
	}

	for _, c := range cases {
		if _, err := Read(strings.NewReader(c.text)); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestSampleID(t *testing.T) {
	if got := SampleID(7); got != "Sample_7" {
		t.Errorf("SampleID(7) = %s", got)
	}
}
