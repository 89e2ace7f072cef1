package catalog

import (
	"fmt"
	"regexp"
)

// PolicyKind enumerates the supported selection policies.
type PolicyKind int

const (
	// PolicyExplicit selects an exact version string.
	PolicyExplicit PolicyKind = iota
	// PolicyMostRecentStable selects the newest MAJOR.MINOR.PATCH version.
	PolicyMostRecentStable
	// PolicyMostRecentAny selects the newest version, pre-releases included.
	PolicyMostRecentAny
)

// Policy describes how a version is chosen from the catalog.
type Policy struct {
	Kind    PolicyKind
	Version string
}

// Explicit returns a policy requesting the exact version string.
func Explicit(version string) Policy {
	return Policy{Kind: PolicyExplicit, Version: version}
}

// MostRecentStable returns the newest-stable selection policy.
func MostRecentStable() Policy { return Policy{Kind: PolicyMostRecentStable} }

// MostRecentAny returns the newest-version selection policy.
func MostRecentAny() Policy { return Policy{Kind: PolicyMostRecentAny} }

func (p Policy) String() string {
	switch p.Kind {
	case PolicyExplicit:
		return fmt.Sprintf("version %s", p.Version)
	case PolicyMostRecentStable:
		return "most recent stable version"
	case PolicyMostRecentAny:
		return "most recent version"
	default:
		return "unknown policy"
	}
}

// SelectionError indicates the catalog holds no version satisfying the
// policy. It is fatal: retrying cannot change catalog contents within a run.
type SelectionError struct {
	Policy Policy
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("no published version matches %s", e.Policy)
}

// Stable versions carry no pre-release suffix and no build metadata.
var stableVersionPattern = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// Select applies the policy over the catalog. The catalog must be non-empty;
// the orchestrator rejects empty catalogs before selection.
func Select(policy Policy, cat Catalog) (string, error) {
	versions := cat.Versions()

	switch policy.Kind {
	case PolicyExplicit:
		if cat.Contains(policy.Version) {
			return policy.Version, nil
		}
		return "", &SelectionError{Policy: policy}

	case PolicyMostRecentStable:
		for i := len(versions) - 1; i >= 0; i-- {
			if stableVersionPattern.MatchString(versions[i]) {
				return versions[i], nil
			}
		}
		return "", &SelectionError{Policy: policy}

	case PolicyMostRecentAny:
		if len(versions) == 0 {
			return "", &SelectionError{Policy: policy}
		}
		return versions[len(versions)-1], nil

	default:
		return "", fmt.Errorf("unknown selection policy kind %d", policy.Kind)
	}
}
