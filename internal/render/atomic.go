package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/san-kum/trajlab/internal/dynamo"
)

// WriteAtomic writes the output of fn to path. The bytes go to a temporary
// file in the same directory which is synced and renamed into place, so a
// reader never sees a partial file. On failure the temporary file is removed
// and any existing file at path is left untouched. Errors from fn that already
// carry ErrConfig or ErrParse are returned as is; everything else wraps
// dynamo.ErrIO.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", dynamo.ErrIO, path, err)
	}
	name := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(name)
		if errors.Is(err, dynamo.ErrConfig) || errors.Is(err, dynamo.ErrParse) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", dynamo.ErrIO, path, err)
	}

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %s: %v", dynamo.ErrIO, path, err)
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %s: %v", dynamo.ErrIO, path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %s: %v", dynamo.ErrIO, path, err)
	}
	return nil
}
