package genmap

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/carbocation/admixsim"
)

// Store caches one loaded ChromMap per requested chromosome. All maps are
// loaded up front by Load, so a missing or ambiguous map file fails the run
// before any simulation begins. Once built, a Store is read-only and safe for
// concurrent use.
type Store struct {
	dir   string
	order []string
	maps  map[string]*ChromMap
}

// NewStore builds a Store directly from already-constructed maps, kept in the
// order given. Maps for a repeated chromosome are rejected.
func NewStore(maps ...*ChromMap) (*Store, error) {
	s := &Store{maps: make(map[string]*ChromMap, len(maps))}
	for _, m := range maps {
		if _, dup := s.maps[m.Chrom]; dup {
			return nil, fmt.Errorf("chromosome %s appears more than once", m.Chrom)
		}
		s.maps[m.Chrom] = m
		s.order = append(s.order, m.Chrom)
	}

	return s, nil
}

// NotFoundError reports that a requested chromosome could not be resolved to
// exactly one map file.
type NotFoundError struct {
	Chrom   string
	Dir     string
	Matches []string // set when more than one file matched
}

func (e NotFoundError) Error() string {
	if len(e.Matches) > 1 {
		return fmt.Sprintf("chromosome %s matches %d genetic map files in %s: %v", e.Chrom, len(e.Matches), e.Dir, e.Matches)
	}

	return fmt.Sprintf("no genetic map file for chromosome %s found in %s", e.Chrom, e.Dir)
}

// Load resolves and reads one map file per requested chromosome from a local
// directory. Filenames must contain chr followed by the chromosome identifier
// (for example chr1 or chrX); a chromosome that matches no file, or more than
// one, fails with NotFoundError before any file is parsed. Individual map
// files may be compressed.
func Load(dir string, chroms []string) (*Store, error) {
	if strings.HasPrefix(dir, "gs://") {
		return nil, fmt.Errorf("genetic map directories must be local paths, not %s", dir)
	}
	dir = admixsim.ExpandHome(dir)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dirEntries))
	for _, ent := range dirEntries {
		if !ent.IsDir() {
			names = append(names, ent.Name())
		}
	}

	// Resolve every chromosome to its file before parsing any of them, so a
	// missing or ambiguous map fails the run without partial work.
	s := &Store{dir: dir, maps: make(map[string]*ChromMap, len(chroms))}
	files := make(map[string]string, len(chroms))
	for _, chrom := range chroms {
		if _, dup := files[chrom]; dup {
			continue
		}

		name, err := matchMapFile(names, dir, chrom)
		if err != nil {
			return nil, err
		}
		files[chrom] = name
		s.order = append(s.order, chrom)
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	pool := sync.WaitGroup{}
	concurrencyLimit := make(chan struct{}, runtime.NumCPU()*2)

	for _, chrom := range s.order {
		pool.Add(1)
		concurrencyLimit <- struct{}{}

		go func(chrom, name string) {
			defer pool.Done()

			m, err := loadChromMap(filepath.Join(dir, name), chrom)

			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if err == nil {
				s.maps[chrom] = m
			}
			mu.Unlock()

			<-concurrencyLimit
		}(chrom, files[chrom])
	}
	pool.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return s, nil
}

// Chroms returns the loaded chromosomes in the order they were requested.
func (s *Store) Chroms() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)

	return out
}

// Chrom returns the cached map for one chromosome.
func (s *Store) Chrom(chrom string) (*ChromMap, error) {
	m, ok := s.maps[chrom]
	if !ok {
		return nil, NotFoundError{Chrom: chrom, Dir: s.dir}
	}

	return m, nil
}

// GeneticLength reports the chromosome's mapped genetic span in centimorgans.
func (s *Store) GeneticLength(chrom string) (float64, error) {
	m, err := s.Chrom(chrom)
	if err != nil {
		return 0, err
	}

	return m.GeneticLength(), nil
}

// ToGeneticDistance converts a physical interval on one chromosome to a
// signed genetic distance in Morgans.
func (s *Store) ToGeneticDistance(chrom string, posA, posB int) (float64, error) {
	m, err := s.Chrom(chrom)
	if err != nil {
		return 0, err
	}

	return m.ToGeneticDistance(posA, posB), nil
}

func matchMapFile(names []string, dir, chrom string) (string, error) {
	token := "chr" + normalizeChrom(chrom)

	var matches []string
	for _, name := range names {
		if nameMatchesChrom(name, token) {
			matches = append(matches, name)
		}
	}
	if len(matches) != 1 {
		return "", NotFoundError{Chrom: chrom, Dir: dir, Matches: matches}
	}

	return matches[0], nil
}

// nameMatchesChrom reports whether name contains token at a position where
// the next character cannot extend the chromosome identifier, so that a
// request for chromosome 1 does not claim a chromosome 10 file.
func nameMatchesChrom(name, token string) bool {
	for start := 0; start < len(name); {
		i := strings.Index(name[start:], token)
		if i < 0 {
			return false
		}

		end := start + i + len(token)
		if end == len(name) || !isChromRune(rune(name[end])) {
			return true
		}
		start = start + i + 1
	}

	return false
}

func isChromRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
