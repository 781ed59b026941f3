package split

import "strings"

// DefaultDirective is the function name that marks a dependency in JS files.
const DefaultDirective = "mRequires"

// JSSplitter splits JavaScript on calls to Directive, e.g.
//
//	JS(`if (true) { mRequires("Foo.js", "Bar.js"); }`)
//
// yields
//
//	source("if (true) { "), requires("Foo.js"), requires("Bar.js"), source(" }")
//
// Directive-shaped text inside // and /* */ comments and inside single or
// double quoted strings is kept as source. Regex and template literals are
// not recognised.
type JSSplitter struct {
	// Directive is the function name; DefaultDirective when empty.
	Directive string
}

// JS splits text using DefaultDirective.
func JS(text string) ([]Segment, error) {
	return JSSplitter{}.Split(text)
}

type jsState int

const (
	stateCode jsState = iota
	stateLineComment
	stateBlockComment
	stateString
)

// Split cuts text into source and requires segments.
func (s JSSplitter) Split(text string) ([]Segment, error) {
	name := s.Directive
	if name == "" {
		name = DefaultDirective
	}
	open := name + "("
	const closing = ");"

	var (
		result  []Segment
		start   int // first byte not yet emitted
		state   = stateCode
		quote   byte
		escaped bool
	)

	for i := 0; i < len(text); {
		c := text[i]
		switch state {
		case stateLineComment:
			if c == '\n' {
				state = stateCode
			}
			i++
		case stateBlockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				state = stateCode
				i += 2
				continue
			}
			i++
		case stateString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				state = stateCode
			}
			i++
		default:
			if strings.HasPrefix(text[i:], open) {
				argStart := i + len(open)
				end := strings.Index(text[argStart:], closing)
				if end < 0 {
					return nil, &MalformedDirectiveError{Directive: open, Offset: i, Want: closing}
				}
				if i > start {
					result = append(result, Source(text[start:i]))
				}
				result = append(result, requiresArgs(text[argStart:argStart+end])...)
				i = argStart + end + len(closing)
				start = i
				continue
			}
			switch {
			case c == '/' && i+1 < len(text) && text[i+1] == '/':
				state = stateLineComment
				i += 2
				continue
			case c == '/' && i+1 < len(text) && text[i+1] == '*':
				state = stateBlockComment
				i += 2
				continue
			case c == '\'' || c == '"':
				state = stateString
				quote = c
			}
			i++
		}
	}

	if start < len(text) {
		result = append(result, Source(text[start:]))
	}
	return result, nil
}

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

// requiresArgs turns the text between the parentheses of a directive into
// one requires segment per argument.
func requiresArgs(args string) []Segment {
	args = strings.TrimSpace(args)
	if args == "" {
		return nil
	}
	var out []Segment
	for _, arg := range strings.Split(args, ",") {
		arg = strings.TrimSpace(arg)
		arg = quoteStripper.Replace(arg)
		if arg == "" {
			continue
		}
		out = append(out, Requires(arg))
	}
	return out
}
