package admixsim

import (
	"encoding/csv"
	"io"

	"cloud.google.com/go/storage"
	"github.com/csimplestring/go-csv/detector"
)

// OpenDecompressed opens a local or gs:// path and transparently decompresses
// it based on its byte signature. Closing the returned reader closes the
// underlying file or object handle as well.
func OpenDecompressed(path string, client *storage.Client) (io.ReadCloser, error) {
	f, err := MaybeOpenSeekerFromGoogleStorage(ExpandHome(path), client)
	if err != nil {
		return nil, err
	}

	r, err := MaybeDecompressReadSeeker(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &layeredReadCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

// OpenDelimited opens a local or gs:// path, transparently decompresses it,
// sniffs the field delimiter, and returns a csv.Reader configured with that
// delimiter. The caller must close the returned Closer when done.
func OpenDelimited(path string, client *storage.Client, fallbackDelim rune) (*csv.Reader, io.Closer, error) {
	f, err := MaybeOpenSeekerFromGoogleStorage(ExpandHome(path), client)
	if err != nil {
		return nil, nil, err
	}

	r, err := MaybeDecompressReadSeeker(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	delim := DetermineDelimiter(r, fallbackDelim)
	r.Close()

	// Sort of nuts but we have to re-decompress the file since the
	// decompressed reader cannot seek.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}
	r, err = MaybeDecompressReadSeeker(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	rdr := csv.NewReader(r)
	rdr.Comma = delim

	return rdr, &layeredReadCloser{Reader: r, closers: []io.Closer{r, f}}, nil
}

// DetermineDelimiter returns the single most likely rune that would delimit
// the values in the reader, assuming a CSV-like file, or fallback if no
// candidate stands out.
func DetermineDelimiter(r io.Reader, fallback rune) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return fallback
}

// layeredReadCloser closes every layer of a reader stack, outermost first.
type layeredReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (l *layeredReadCloser) Close() error {
	var err error
	for _, c := range l.closers {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	return err
}
