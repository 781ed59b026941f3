package bundler

// Seen is the set of resolved paths already included in one Concat run.
// It remembers first-mark order.
type Seen struct {
	set   map[string]struct{}
	order []string
}

func NewSeen() *Seen {
	return &Seen{set: make(map[string]struct{})}
}

func (s *Seen) Has(path string) bool {
	_, ok := s.set[path]
	return ok
}

// Mark adds path and reports whether it was new.
func (s *Seen) Mark(path string) bool {
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	if _, ok := s.set[path]; ok {
		return false
	}
	s.set[path] = struct{}{}
	s.order = append(s.order, path)
	return true
}

func (s *Seen) Len() int { return len(s.order) }

// Paths returns the marked paths in the order they were first marked.
func (s *Seen) Paths() []string {
	return append([]string(nil), s.order...)
}
