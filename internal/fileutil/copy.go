// Package fileutil holds the file helpers shared by the plugins.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Copy copies src to dst, keeping the mode and the modification time of src. dst is
// overwritten.
func Copy(src, dst string) (err error) {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "unable to stat %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dst)
	}
	defer func() {
		cErr := out.Close()
		if cErr != nil && err == nil {
			err = errors.Wrapf(cErr, "unable to close %s", dst)
		}
	}()

	_, err = io.Copy(out, in)
	if err != nil {
		return errors.Wrapf(err, "unable to copy %s to %s", src, dst)
	}

	err = os.Chtimes(dst, info.ModTime(), info.ModTime())
	if err != nil {
		return errors.Wrapf(err, "unable to set times of %s", dst)
	}

	return nil
}

// FreeName returns dir/name when nothing exists there, otherwise the first free
// dir/<base>.<i><ext> with i starting at 2.
func FreeName(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	target := filepath.Join(dir, name)
	for i := 2; exists(target); i++ {
		target = filepath.Join(dir, base+"."+strconv.Itoa(i)+ext)
	}

	return target
}

// SplitName splits the base name of path into its stem and its extension.
func SplitName(path string) (stem, ext string) {
	name := filepath.Base(path)
	ext = filepath.Ext(name)

	return strings.TrimSuffix(name, ext), ext
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
