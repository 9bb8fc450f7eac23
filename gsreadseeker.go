package admixsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// GSReadSeekCloser decorates a Google Storage object handle with io.Reader,
// io.Seeker, and io.Closer. Seeking is emulated by discarding the active
// range reader and opening a new one at the requested offset, so it is only
// cheap for the rewind-and-rescan pattern used by the file openers here.
type GSReadSeekCloser struct {
	*storage.ObjectHandle
	Context context.Context
	r       *storage.Reader
	offset  int64 // where the next NewRangeReader will begin
}

func (s *GSReadSeekCloser) Read(buf []byte) (int, error) {
	var err error
	if s.r == nil {
		s.r, err = s.NewRangeReader(s.Context, s.offset, -1)
		if err != nil {
			return 0, err
		}
	}

	return s.r.Read(buf)
}

func (s *GSReadSeekCloser) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("io.Seeker 'whence' value %d is not implemented for Google Storage objects", whence)
	}

	// Drop the current connection. The next Read will open a fresh range
	// reader at the new offset.
	if s.r != nil {
		s.r.Close()
		s.r = nil
	}
	s.offset = offset

	return s.offset, nil
}

func (s *GSReadSeekCloser) Close() error {
	if s.r != nil {
		return s.r.Close()
	}

	return nil
}

// MaybeOpenSeekerFromGoogleStorage opens a local file, unless the path has a
// gs:// prefix and a non-nil storage client is provided, in which case it
// opens the Google Storage object instead.
func MaybeOpenSeekerFromGoogleStorage(path string, client *storage.Client) (ReadSeekCloser, error) {
	if client != nil && strings.HasPrefix(path, "gs://") {
		pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, fmt.Errorf("tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
		}
		bucketName := pathParts[0]
		pathName := pathParts[1]

		bkt := client.Bucket(bucketName)
		handle := bkt.Object(pathName)

		wrappedHandle := &GSReadSeekCloser{
			ObjectHandle: handle,
			Context:      context.Background(),
		}

		// Confirm that the object exists before handing it back, so that a
		// typo fails here rather than at first read.
		if _, err := wrappedHandle.ObjectHandle.Attrs(wrappedHandle.Context); err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrappedHandle, nil
	}

	return os.Open(path)
}
