// Package argv renders command lines whose arguments are text/template strings.
package argv

import (
	"bytes"
	"strconv"
	"text/template"

	"github.com/pkg/errors"
)

var ErrEmpty = errors.New("command line must name a program")

// Template is a parsed command line.
type Template struct {
	raw  []string
	args []*template.Template
}

// Parse parses every argument of args. Referencing a field the data does not have fails at
// render time.
func Parse(args []string) (*Template, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, ErrEmpty
	}

	t := &Template{raw: args, args: make([]*template.Template, len(args))}
	for i, arg := range args {
		tpl, err := template.New(strconv.Itoa(i)).Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid argument %q", arg)
		}
		t.args[i] = tpl
	}

	return t, nil
}

// Render executes every argument against data.
func (t *Template) Render(data any) ([]string, error) {
	out := make([]string, len(t.args))
	for i, tpl := range t.args {
		var buf bytes.Buffer
		err := tpl.Execute(&buf, data)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to render %q", t.raw[i])
		}
		out[i] = buf.String()
	}

	return out, nil
}

// String renders a single template string.
func String(text string, data any) (string, error) {
	t, err := Parse([]string{text})
	if err != nil {
		return "", err
	}

	out, err := t.Render(data)
	if err != nil {
		return "", err
	}

	return out[0], nil
}
