package plugin

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ToolName is the requirement subject that refers to berth itself.
const ToolName = "berth"

// Requirement is a parsed "subject constraint" entry, e.g. "berth >=0.4.0".
type Requirement struct {
	Subject    string
	Constraint string
}

// ParseRequirement splits an entry into subject and constraint. A missing
// constraint matches any version.
func ParseRequirement(s string) (Requirement, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return Requirement{}, fmt.Errorf("empty requirement")
	case 1:
		return Requirement{Subject: fields[0]}, nil
	default:
		return Requirement{Subject: fields[0], Constraint: strings.Join(fields[1:], "")}, nil
	}
}

func (r Requirement) String() string {
	if r.Constraint == "" {
		return r.Subject
	}
	return r.Subject + " " + r.Constraint
}

// UnmetRequirements reports the requirements of every registered plugin
// that the tool version or the other registered plugins do not satisfy.
// Versions that are not semantic are not checked.
func UnmetRequirements(reg *Registry, toolVersion string) []string {
	var unmet []string
	for _, lp := range reg.All() {
		for _, raw := range lp.Descriptor.Requires {
			req, err := ParseRequirement(raw)
			if err != nil {
				continue
			}
			var version string
			if req.Subject == ToolName {
				version = toolVersion
			} else {
				dep, err := reg.Get(req.Subject)
				if err != nil {
					unmet = append(unmet, fmt.Sprintf("%s requires %s, which is not installed", lp.Name(), req))
					continue
				}
				version = dep.Descriptor.Version
			}
			if req.Constraint == "" || !semver.IsValid(canonical(version)) {
				continue
			}
			if !satisfiesVersionConstraint(version, req.Constraint) {
				unmet = append(unmet, fmt.Sprintf("%s requires %s, found %s", lp.Name(), req, version))
			}
		}
	}
	return unmet
}

// satisfiesVersionConstraint checks if a version satisfies a constraint.
// Supports: =, >=, <=, >, <, ^, ~ and bare versions.
func satisfiesVersionConstraint(version, constraint string) bool {
	version = canonical(version)

	var op, target string
	switch {
	case strings.HasPrefix(constraint, ">="):
		op, target = ">=", constraint[2:]
	case strings.HasPrefix(constraint, "<="):
		op, target = "<=", constraint[2:]
	case strings.HasPrefix(constraint, ">"):
		op, target = ">", constraint[1:]
	case strings.HasPrefix(constraint, "<"):
		op, target = "<", constraint[1:]
	case strings.HasPrefix(constraint, "^"):
		op, target = "^", constraint[1:]
	case strings.HasPrefix(constraint, "~"):
		op, target = "~", constraint[1:]
	case strings.HasPrefix(constraint, "="):
		op, target = "=", constraint[1:]
	default:
		op, target = "=", constraint
	}
	target = canonical(strings.TrimSpace(target))
	if !semver.IsValid(target) {
		return false
	}

	cmp := semver.Compare(version, target)
	switch op {
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case "^":
		return cmp >= 0 && semver.Major(version) == semver.Major(target)
	case "~":
		return cmp >= 0 && semver.MajorMinor(version) == semver.MajorMinor(target)
	default:
		return cmp == 0
	}
}

func canonical(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
