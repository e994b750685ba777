package core

// IdentifierSource hands out monotonically increasing identifiers. Ids are
// never reused, so a stale id can never alias a newer resource.
// Zero is never returned and can be used as "no id".
type IdentifierSource struct {
	last uint64
}

func (s *IdentifierSource) Next() uint64 {
	s.last++
	return s.last
}

// Last returns the most recently issued identifier, or zero.
func (s *IdentifierSource) Last() uint64 {
	return s.last
}
