package admixmodel

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/admixsim"
	"github.com/carbocation/pfx"
)

// Load reads and validates a model file from a local or gs:// path,
// transparently decompressing it if needed.
func Load(path string, client *storage.Client) (*Model, error) {
	r, err := admixsim.OpenDecompressed(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer r.Close()

	m, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// Parse reads a model file. The first non-blank line is the header (sample
// count, admixed label, then one label per founder population); each
// subsequent line lists a generation number, the admixed proportion, and one
// proportion per founder population. Blank lines and lines starting with #
// are skipped.
func Parse(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)

	var m *Model
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)

		if m == nil {
			header, err := parseHeader(fields, line)
			if err != nil {
				return nil, err
			}
			m = header
			continue
		}

		gen, err := parseGeneration(m, fields, line)
		if err != nil {
			return nil, err
		}
		m.Listed = append(m.Listed, gen)
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	if m == nil {
		return nil, FormatError{Line: 0, Reason: "the file is empty"}
	}
	if len(m.Listed) == 0 {
		return nil, FormatError{Line: line, Reason: "no generations are listed after the header"}
	}

	return m, nil
}

func parseHeader(fields []string, line int) (*Model, error) {
	if len(fields) < 3 {
		return nil, FormatError{line, "the header must list a sample count, an admixed population label, and at least one founder population label"}
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, FormatError{line, fmt.Sprintf("sample count %q is not an integer", fields[0])}
	}
	if n < 1 {
		return nil, FormatError{line, fmt.Sprintf("sample count must be positive, not %d", n)}
	}

	seen := map[string]struct{}{fields[1]: {}}
	pops := make([]string, 0, len(fields)-2)
	for _, pop := range fields[2:] {
		if _, dup := seen[pop]; dup {
			return nil, FormatError{line, fmt.Sprintf("population label %q is repeated", pop)}
		}
		seen[pop] = struct{}{}
		pops = append(pops, pop)
	}

	return &Model{NumSamples: n, AdmixedLabel: fields[1], Pops: pops}, nil
}

func parseGeneration(m *Model, fields []string, line int) (Generation, error) {
	want := 2 + len(m.Pops)
	if len(fields) != want {
		return Generation{}, FormatError{line, fmt.Sprintf("expected %d columns (generation, admixed proportion, and one proportion per founder population), found %d", want, len(fields))}
	}

	number, err := strconv.Atoi(fields[0])
	if err != nil {
		return Generation{}, FormatError{line, fmt.Sprintf("generation %q is not an integer", fields[0])}
	}
	if len(m.Listed) == 0 && number != 1 {
		return Generation{}, FormatError{line, fmt.Sprintf("the first listed generation must be 1, not %d", number)}
	}
	if prev := m.Listed; len(prev) > 0 && number <= prev[len(prev)-1].Number {
		return Generation{}, FormatError{line, fmt.Sprintf("generation %d does not ascend from generation %d", number, prev[len(prev)-1].Number)}
	}

	g := Generation{Number: number, PopProps: make([]float64, 0, len(m.Pops))}
	sum := 0.0
	for i, field := range fields[1:] {
		p, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Generation{}, FormatError{line, fmt.Sprintf("proportion %q is not a number", field)}
		}
		if p < 0 || p > 1 {
			return Generation{}, FormatError{line, fmt.Sprintf("proportion %v lies outside [0, 1]", p)}
		}

		sum += p
		if i == 0 {
			g.PropAdmixed = p
		} else {
			g.PopProps = append(g.PopProps, p)
		}
	}
	if math.Abs(sum-1) > ProportionTolerance {
		return Generation{}, FormatError{line, fmt.Sprintf("proportions sum to %v rather than 1", sum)}
	}

	// Generation 1 has no admixed pool to draw from.
	if number == 1 && g.PropAdmixed != 0 {
		return Generation{}, FormatError{line, "generation 1 cannot draw admixed parents because no prior generation exists"}
	}

	return g, nil
}
