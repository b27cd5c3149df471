package filer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidKeywords = errors.New("invalid keyword file")
	ErrRootMissing     = errors.New("root filing folder does not exist")
)

type keywordFile struct {
	Root      string    `yaml:"root"`
	Default   string    `yaml:"default"`
	Originals string    `yaml:"originals"`
	Folders   yaml.Node `yaml:"folders"`
}

type rule struct {
	keyword string
	folder  string
}

// Keywords maps keywords found in a document to the folder it is filed into.
type Keywords struct {
	Root      string
	Default   string
	Originals string
	// rules keep the order of the file: the first folder listed wins.
	rules []rule
}

// LoadKeywords reads a keyword file:
//
//	root: /archive
//	default: inbox
//	originals: originals
//	folders:
//	  taxes: [tax return, irs]
//	  bank: [statement]
//
// Root must exist. A keyword may only belong to one folder.
func LoadKeywords(path string) (*Keywords, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read keyword file %s", path)
	}

	var raw keywordFile
	err = yaml.Unmarshal(content, &raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidKeywords, "%s: %v", path, err)
	}

	switch {
	case raw.Root == "":
		return nil, errors.Wrapf(ErrInvalidKeywords, "%s must contain a root filing folder", path)
	case raw.Default == "":
		return nil, errors.Wrapf(ErrInvalidKeywords, "%s must contain a default folder", path)
	case raw.Folders.Kind != yaml.MappingNode:
		return nil, errors.Wrapf(ErrInvalidKeywords, "%s must contain a folders section", path)
	}

	kw := &Keywords{Root: raw.Root, Default: raw.Default, Originals: raw.Originals}
	seen := map[string]string{}
	for i := 0; i+1 < len(raw.Folders.Content); i += 2 {
		folder := raw.Folders.Content[i].Value

		var keywords []string
		err = raw.Folders.Content[i+1].Decode(&keywords)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidKeywords, "folder %s: %v", folder, err)
		}

		for _, keyword := range keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				continue
			}
			if other, ok := seen[keyword]; ok {
				return nil, errors.Wrapf(ErrInvalidKeywords, "keyword %q is used by %s and %s", keyword, other, folder)
			}
			seen[keyword] = folder
			kw.rules = append(kw.rules, rule{keyword: keyword, folder: folder})
		}
	}

	return kw, nil
}

// Folders returns every folder the file mentions, default and originals included.
func (kw *Keywords) Folders() []string {
	res := []string{kw.Default}
	seen := map[string]bool{kw.Default: true}
	for _, r := range kw.rules {
		if !seen[r.folder] {
			seen[r.folder] = true
			res = append(res, r.folder)
		}
	}
	if kw.Originals != "" && !seen[kw.Originals] {
		res = append(res, kw.Originals)
	}

	return res
}

// Prepare checks the root exists and creates the missing folders.
func (kw *Keywords) Prepare() error {
	info, err := os.Stat(kw.Root)
	if err != nil || !info.IsDir() {
		return errors.Wrapf(ErrRootMissing, "%s, please create it first", kw.Root)
	}

	for _, folder := range kw.Folders() {
		err = os.MkdirAll(filepath.Join(kw.Root, folder), 0o755) //nolint:gosec // filing folders are shared
		if err != nil {
			return errors.Wrapf(err, "unable to create filing folder %s", folder)
		}
	}

	return nil
}

// Match returns the folder for a document whose pages are given. Pages are scanned in order and
// the first keyword found decides. The default folder is used when nothing matches.
func (kw *Keywords) Match(pages []string) string {
	for _, page := range pages {
		page = strings.ToLower(strings.ReplaceAll(page, "\n", " "))
		for _, r := range kw.rules {
			if strings.Contains(page, r.keyword) {
				return r.folder
			}
		}
	}

	return kw.Default
}
