package models

// Scope is the resolved set of categories a caller may see. Unrestricted
// (the admin case) is a distinct marker rather than an enumerated set so
// that categories created after the scope was resolved stay visible.
type Scope struct {
	Unrestricted bool
	Categories   []string
}

// UnrestrictedScope is the admin scope.
func UnrestrictedScope() Scope {
	return Scope{Unrestricted: true}
}

// ScopeOf builds an analyst scope over an explicit category set.
func ScopeOf(categories ...string) Scope {
	return Scope{Categories: categories}
}

// Allows reports whether the given category is visible in this scope.
func (s Scope) Allows(category string) bool {
	if s.Unrestricted {
		return true
	}
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Empty reports whether the scope grants access to no data at all. An empty
// scope is a valid state (a fresh analyst with no assignments yet); every
// query against it must short-circuit to the zero shape.
func (s Scope) Empty() bool {
	return !s.Unrestricted && len(s.Categories) == 0
}
