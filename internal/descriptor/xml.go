package descriptor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Error reports a malformed descriptor element.
type Error struct {
	File    string // descriptor file, if known
	Element string // slash separated element path
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Element != "" {
		b.WriteString("<")
		b.WriteString(e.Element)
		b.WriteString(">: ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func errorAt(n *xmlquery.Node, format string, args ...any) error {
	return &Error{Element: elementPath(n), Err: fmt.Errorf(format, args...)}
}

// withFile stamps file onto descriptor errors that don't carry one yet.
func withFile(err error, file string) error {
	var de *Error
	if errors.As(err, &de) && de.File == "" {
		de.File = file
		return err
	}
	return err
}

// parseFile reads an XML document and returns its document element.
func parseFile(file string) (*xmlquery.Node, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%s: no document element", file)
}

// children returns the element children of n.
func children(n *xmlquery.Node) []*xmlquery.Node {
	var list []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			list = append(list, c)
		}
	}
	return list
}

// child returns the first element child of n named name, or nil.
func child(n *xmlquery.Node, name string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

func attr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func attrOr(n *xmlquery.Node, name, def string) string {
	if v, ok := attr(n, name); ok {
		return v
	}
	return def
}

func boolAttr(n *xmlquery.Node, name string) (bool, error) {
	v, ok := attr(n, name)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errorAt(n, "attribute %s: %w", name, err)
	}
	return b, nil
}

// elementPath renders the ancestry of n, naming elements by their name
// attribute where they have one.
func elementPath(n *xmlquery.Node) string {
	var parts []string
	for ; n != nil && n.Type == xmlquery.ElementNode; n = n.Parent {
		p := n.Data
		if name, ok := attr(n, "name"); ok {
			p += "[" + name + "]"
		}
		parts = append(parts, p)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// trimText strips surrounding whitespace, including blank leading and
// trailing lines, from element text.
func trimText(s string) string {
	return strings.TrimSpace(s)
}
