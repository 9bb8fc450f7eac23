package panel

import (
	"fmt"
	"strings"
)

// ValidationError reports a sample-info file that is malformed or
// inconsistent with the admixture model or the reference VCF.
type ValidationError struct {
	Reason     string
	Line       int    // 1-based line in the sample-info file, if known
	Sample     string // offending sample, if any
	Population string // offending population, if any
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("sample-info validation error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " on line %d", e.Line)
	}
	if e.Sample != "" {
		fmt.Fprintf(&b, " for sample %s", e.Sample)
	}
	if e.Population != "" {
		fmt.Fprintf(&b, " for population %s", e.Population)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)

	return b.String()
}

// Validate confirms that the panel can serve as a donor pool for a model
// whose founder populations are founderPops, against a reference VCF whose
// sample column names are vcfSamples. Every panel population must be a model
// founder population, every panel sample must be present in the VCF, and
// every founder population must have at least one panel sample.
func (p *Panel) Validate(founderPops []string, vcfSamples []string) error {
	founders := make(map[string]struct{}, len(founderPops))
	for _, pop := range founderPops {
		founders[pop] = struct{}{}
	}

	for _, pop := range p.pops {
		if _, ok := founders[pop]; !ok {
			return ValidationError{Population: pop, Reason: "population does not appear in the model's founder populations"}
		}
	}

	inVCF := make(map[string]struct{}, len(vcfSamples))
	for _, id := range vcfSamples {
		inVCF[id] = struct{}{}
	}
	for _, s := range p.samples {
		if _, ok := inVCF[s.ID]; !ok {
			return ValidationError{Sample: s.ID, Reason: "sample does not appear in the reference VCF"}
		}
	}

	for _, pop := range founderPops {
		if len(p.byPop[pop]) == 0 {
			return ValidationError{Population: pop, Reason: "no reference samples are assigned to this founder population"}
		}
	}

	return nil
}
