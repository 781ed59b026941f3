package split

import "strings"

// CSS splits a stylesheet on url(...) references, e.g.
//
//	CSS(`body { background: url("img/bg.jpg") no-repeat }`)
//
// yields
//
//	source("body { background: "), url("img/bg.jpg"), source(" no-repeat }")
//
// The URL is trimmed and loses its surrounding quotes. Comments and strings
// are not special: a url( inside a comment is still a reference.
func CSS(text string) ([]Segment, error) {
	const (
		open    = "url("
		closing = ")"
	)

	var result []Segment
	offset := 0
	for text != "" {
		i := strings.Index(text, open)
		if i < 0 {
			result = append(result, Source(text))
			break
		}
		end := strings.Index(text[i+len(open):], closing)
		if end < 0 {
			return nil, &MalformedDirectiveError{Directive: open, Offset: offset + i, Want: closing}
		}
		if i > 0 {
			result = append(result, Source(text[:i]))
		}
		raw := text[i+len(open) : i+len(open)+end]
		result = append(result, URL(strings.Trim(strings.TrimSpace(raw), `"'`)))

		consumed := i + len(open) + end + len(closing)
		text = text[consumed:]
		offset += consumed
	}
	return result, nil
}
