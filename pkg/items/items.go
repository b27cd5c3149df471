package items

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// scope guards the process working directory.
var scope sync.Mutex

// List is an ordered set of files sharing one directory.
type List struct {
	paths []string
	index map[string]int
	dir   string
}

// New creates a list from the given paths. It fails on the first path that is not an existing
// regular file or that lives outside the common directory.
func New(paths ...string) (*List, error) {
	l := &List{index: make(map[string]int)}
	for _, p := range paths {
		err := l.Append(p)
		if err != nil {
			return nil, err
		}
	}

	return l, nil
}

// MustNew is like New but panics on error. It is meant for tests and static fixtures.
func MustNew(paths ...string) *List {
	l, err := New(paths...)
	if err != nil {
		panic(err)
	}

	return l
}

func (l *List) check(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", errors.Wrapf(ErrNotRegularFile, "cannot add %s", abs)
	}

	dir := filepath.Dir(abs)
	if l.dir != "" && l.dir != dir {
		return "", errors.Wrapf(ErrMixedDirectory, "new item has dir %s while common dir is %s", dir, l.dir)
	}

	return abs, nil
}

// Append adds a path at the end of the list. Appending a path already present is a no-op.
func (l *List) Append(path string) error {
	abs, err := l.check(path)
	if err != nil {
		return err
	}

	if l.index == nil {
		l.index = make(map[string]int)
	}

	if _, ok := l.index[abs]; ok {
		return nil
	}

	l.dir = filepath.Dir(abs)
	l.index[abs] = len(l.paths)
	l.paths = append(l.paths, abs)

	return nil
}

// Set replaces the path at index i.
func (l *List) Set(i int, path string) error {
	if i < 0 || i >= len(l.paths) {
		return errors.Wrapf(ErrIndexOutOfRange, "set %d on list of %d", i, len(l.paths))
	}

	abs, err := l.check(path)
	if err != nil {
		return err
	}

	if j, ok := l.index[abs]; ok && j != i {
		return errors.Errorf("%s is already at index %d", abs, j)
	}

	delete(l.index, l.paths[i])
	l.paths[i] = abs
	l.index[abs] = i
	l.dir = filepath.Dir(abs)

	return nil
}

// Len returns the number of paths.
func (l *List) Len() int {
	if l == nil {
		return 0
	}

	return len(l.paths)
}

// At returns the path at index i.
func (l *List) At(i int) string {
	return l.paths[i]
}

// Paths returns a copy of the paths in order.
func (l *List) Paths() []string {
	if l == nil {
		return nil
	}

	out := make([]string, len(l.paths))
	copy(out, l.paths)

	return out
}

// Dir returns the common directory, or an empty string for an empty list.
func (l *List) Dir() string {
	if l == nil {
		return ""
	}

	return l.dir
}

// Within runs fn with the working directory set to the list common directory. The previous
// working directory is restored however fn returns, including when it panics. Scopes cannot
// be nested or overlap: entering while another scope is active returns ErrScopeActive.
func (l *List) Within(fn func(paths []string) error) (err error) {
	if l.Dir() == "" {
		return ErrEmptyList
	}

	if !scope.TryLock() {
		return ErrScopeActive
	}
	defer scope.Unlock()

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "unable to get working directory")
	}

	err = os.Chdir(l.dir)
	if err != nil {
		return errors.Wrapf(err, "unable to change directory to %s", l.dir)
	}

	defer func() {
		cdErr := os.Chdir(cwd)
		if cdErr != nil && err == nil {
			err = errors.Wrapf(cdErr, "unable to restore directory %s", cwd)
		}
	}()

	return fn(l.Paths())
}
