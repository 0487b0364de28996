package services

// SeenSet records the machines already inspected. It only grows: a machine
// added once is never inspected again for the lifetime of the process.
// It is owned by the worker and not safe for concurrent use.
type SeenSet struct {
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add marks id as seen and reports whether it was unseen before.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *SeenSet) Len() int {
	return len(s.ids)
}
