// Package catalog retrieves the published version manifest and applies the
// version selection policy over it.
package catalog

import (
	"sort"

	semver "github.com/Masterminds/semver/v3"
)

// Catalog is the ordered list of published versions, ascending by semantic
// version. It is immutable once built.
type Catalog struct {
	versions []string
}

// NewCatalog builds a catalog from raw version strings, sorting ascending by
// semantic-version comparison. Entries that do not parse as semver sort
// below all parseable entries, keeping their relative order.
func NewCatalog(raw []string) Catalog {
	versions := make([]string, len(raw))
	copy(versions, raw)

	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := semver.NewVersion(versions[i])
		vj, errj := semver.NewVersion(versions[j])
		switch {
		case erri != nil && errj != nil:
			return false
		case erri != nil:
			return true
		case errj != nil:
			return false
		}
		return vi.LessThan(vj)
	})

	return Catalog{versions: versions}
}

// Versions returns a copy of the catalog contents.
func (c Catalog) Versions() []string {
	out := make([]string, len(c.versions))
	copy(out, c.versions)
	return out
}

// Len returns the number of catalog entries.
func (c Catalog) Len() int { return len(c.versions) }

// IsEmpty reports whether the catalog has no entries.
func (c Catalog) IsEmpty() bool { return len(c.versions) == 0 }

// Contains reports whether the exact version string is present.
func (c Catalog) Contains(version string) bool {
	for _, v := range c.versions {
		if v == version {
			return true
		}
	}
	return false
}
