// Package split cuts JavaScript and CSS text into literal source and the
// directives embedded in it.
//
// It does not parse either language. The JS splitter knows just enough about
// comments and quoted strings to leave directive-shaped text inside them
// alone; the CSS splitter knows nothing at all.
package split

import "fmt"

// Kind tags a Segment.
type Kind int

const (
	KindSource Kind = iota
	KindRequires
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindRequires:
		return "requires"
	case KindURL:
		return "url"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Segment is one piece of a split file. Order matters.
type Segment struct {
	Kind  Kind
	Value string
}

func Source(text string) Segment   { return Segment{Kind: KindSource, Value: text} }
func Requires(name string) Segment { return Segment{Kind: KindRequires, Value: name} }
func URL(url string) Segment       { return Segment{Kind: KindURL, Value: url} }

func (s Segment) String() string {
	return fmt.Sprintf("%s(%q)", s.Kind, s.Value)
}

// MalformedDirectiveError reports a directive that is opened but never closed.
type MalformedDirectiveError struct {
	Directive string // opening token, e.g. "mRequires(" or "url("
	Offset    int    // byte offset of the opening token
	Want      string // terminator that was not found
}

func (e *MalformedDirectiveError) Error() string {
	return fmt.Sprintf("malformed directive %q at offset %d: missing %q", e.Directive, e.Offset, e.Want)
}
