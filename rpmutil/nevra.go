// Package rpmutil collects the small RPM-naming and file utilities spec.md
// §4.L scopes as a thin external-collaborator layer rather than a package
// of its own: EVR comparison, NEVR(A) parsing, temp-name generation,
// atomic copy, and a minimal Koji build-root predicate.
package rpmutil

import (
	"strings"

	rpmversion "github.com/knqyf263/go-rpm-version"

	"github.com/cr-go/rpmrepo/errs"
)

// NEVR is a parsed name-epoch-version-release string.
type NEVR struct {
	Name    string
	Epoch   string
	Version string
	Release string
}

// NEVRA is a NEVR plus an architecture, parsed from an RPM filename-shaped
// string ("name-version-release.arch" or "name-version-release.arch:epoch").
type NEVRA struct {
	NEVR
	Arch string
}

// ParseNEVR splits instr into name/epoch/version/release, accepting every
// form createrepo_c's cr_str_to_nevr does: "N-V-R:E", "E:N-V-R", "N-E:V-R"
// and plain "N-V-R" (epoch absent). The heuristics here mirror
// original_source/src/misc.c's cr_str_to_nevr exactly, including its
// "does the half after the first colon contain a dash" disambiguation.
func ParseNEVR(instr string) (*NEVR, error) {
	if instr == "" {
		return nil, errs.New(errs.BadArg, "ParseNEVR: empty input")
	}

	nvr := instr
	var epoch string
	hasEpoch := false

	if i := strings.IndexByte(instr, ':'); i >= 0 {
		candidateNVR := instr[:i]
		candidateEpoch := instr[i+1:]
		if strings.Contains(candidateEpoch, "-") {
			if !strings.Contains(candidateNVR, "-") {
				// E:N-V-R -- the halves are swapped relative to N-V-R:E.
				nvr, epoch = candidateEpoch, candidateNVR
				hasEpoch = true
			} else {
				// Probably N-E:V-R; handle the E:V split after the N-V-R
				// split below, treating the whole string as the NVR for now.
				nvr = instr
			}
		} else {
			nvr, epoch = candidateNVR, candidateEpoch
			hasEpoch = true
		}
	}

	release, rest, ok := cutLastDash(nvr)
	if !ok {
		return nil, errs.New(errs.BadArg, "ParseNEVR: no release component in "+instr)
	}
	version, name, ok := cutLastDash(rest)
	if !ok {
		return nil, errs.New(errs.BadArg, "ParseNEVR: no version component in "+instr)
	}

	n := &NEVR{Name: name, Version: version, Release: release}

	if hasEpoch {
		n.Epoch = epoch
	} else if i := strings.IndexByte(n.Version, ':'); i >= 0 {
		// N-E:V-R: the epoch rode along inside what we took for version.
		n.Epoch = n.Version[:i]
		n.Version = n.Version[i+1:]
	}

	return n, nil
}

// cutLastDash splits s at its last '-', returning (after, before, true); ok
// is false when s has no '-'.
func cutLastDash(s string) (after, before string, ok bool) {
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return "", "", false
	}
	return s[i+1:], s[:i], true
}

// ParseNEVRA splits instr into name/epoch/version/release/arch, accepting
// "N-V-R.A" with an optional trailing ":E", mirroring
// original_source/src/misc.c's cr_str_to_nevra.
func ParseNEVRA(instr string) (*NEVRA, error) {
	if instr == "" {
		return nil, errs.New(errs.BadArg, "ParseNEVRA: empty input")
	}

	str := instr
	var trailingEpoch string
	hasTrailingEpoch := false

	if i := strings.IndexByte(str, ':'); i >= 0 {
		candidate := str[i+1:]
		if !strings.ContainsAny(candidate, "-.") {
			trailingEpoch = candidate
			hasTrailingEpoch = true
			str = str[:i]
		}
	}

	i := strings.LastIndexByte(str, '.')
	if i < 0 {
		return nil, errs.New(errs.BadArg, "ParseNEVRA: no arch component in "+instr)
	}
	arch := str[i+1:]
	if strings.Contains(arch, "-") {
		return nil, errs.New(errs.BadArg, "ParseNEVRA: invalid arch "+arch)
	}

	nevr, err := ParseNEVR(str[:i])
	if err != nil {
		return nil, err
	}

	if hasTrailingEpoch {
		nevr.Epoch = trailingEpoch
	}

	return &NEVRA{NEVR: *nevr, Arch: arch}, nil
}

// CompareEVR compares two epoch:version-release strings using RPM's
// version-comparison algorithm, delegating to go-rpm-version the same way
// claircore's vulnerability matchers do.
func CompareEVR(a, b string) int {
	return rpmversion.NewVersion(a).Compare(rpmversion.NewVersion(b))
}

// FormatEVR renders epoch/version/release back into the canonical
// "[epoch:]version-release" form, the inverse of the EVR half of ParseNEVR.
func FormatEVR(epoch, version, release string) string {
	var b strings.Builder
	if epoch != "" && epoch != "0" {
		b.WriteString(epoch)
		b.WriteByte(':')
	}
	b.WriteString(version)
	if release != "" {
		b.WriteByte('-')
		b.WriteString(release)
	}
	return b.String()
}

