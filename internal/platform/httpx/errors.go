package httpx

import (
	"errors"
	"net/http"
)

// Mapping turns errors matching any of Targets into one problem response.
type Mapping struct {
	Targets []error
	Status  int
	Title   string
	// Detail replaces err.Error() when set.
	Detail string
}

// Match returns the first mapping err satisfies.
func Match(err error, mappings []Mapping) (Mapping, bool) {
	for _, m := range mappings {
		for _, target := range m.Targets {
			if errors.Is(err, target) {
				return m, true
			}
		}
	}
	return Mapping{}, false
}

// RespondError writes the problem of the first matching mapping and returns its
// status. Unmatched errors become a 500 without detail so internals do not
// leak.
func RespondError(w http.ResponseWriter, err error, mappings []Mapping) int {
	m, ok := Match(err, mappings)
	if !ok {
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return http.StatusInternalServerError
	}
	detail := m.Detail
	if detail == "" {
		detail = err.Error()
	}
	Problem(w, m.Status, m.Title, detail)
	return m.Status
}
