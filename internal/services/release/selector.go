package release

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/github"
)

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

type semver struct {
	major int
	minor int
	patch int
}

func (v semver) String() string {
	return strconv.Itoa(v.major) + "." + strconv.Itoa(v.minor) + "." + strconv.Itoa(v.patch)
}

func parseSemver(s string) (semver, bool) {
	m := versionRe.FindStringSubmatch(s)
	if len(m) != 4 {
		return semver{}, false
	}
	maj, err1 := strconv.Atoi(m[1])
	minor, err2 := strconv.Atoi(m[2])
	pat, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return semver{}, false
	}
	return semver{major: maj, minor: minor, patch: pat}, true
}

func cmp(a, b semver) int {
	switch {
	case a.major != b.major:
		return sign(a.major - b.major)
	case a.minor != b.minor:
		return sign(a.minor - b.minor)
	default:
		return sign(a.patch - b.patch)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

var errNoStableRelease = errors.New("no stable releases with semver tags found")

// SelectHighest picks the release with the highest version. The tag is
// parsed first and the release name is the fallback. Drafts are skipped, as
// are prereleases unless includePrerelease is set.
func SelectHighest(repo string, releases []github.Release, includePrerelease bool) (Info, error) {
	var (
		bestV semver
		best  github.Release
		found bool
	)

	for _, r := range releases {
		if r.Draft || (!includePrerelease && r.Prerelease) {
			continue
		}
		v, ok := parseSemver(strings.TrimSpace(r.TagName))
		if !ok {
			v, ok = parseSemver(strings.TrimSpace(r.Name))
		}
		if !ok {
			continue
		}
		if !found || cmp(v, bestV) > 0 {
			found = true
			bestV = v
			best = r
		}
	}

	if !found {
		return Info{}, errNoStableRelease
	}
	return Info{
		Repo:         repo,
		Version:      bestV.String(),
		Tag:          best.TagName,
		Name:         best.Name,
		URL:          best.HTMLURL,
		IsPrerelease: best.Prerelease,
	}, nil
}

// Newer reports whether latest is a higher version than current. known
// is false when either side carries no major.minor.patch, as in dev builds.
func Newer(current, latest string) (newer bool, known bool) {
	c, ok := parseSemver(current)
	if !ok {
		return false, false
	}
	l, ok := parseSemver(latest)
	if !ok {
		return false, false
	}
	return cmp(l, c) > 0, true
}
