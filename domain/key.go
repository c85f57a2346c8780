package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidKey = errors.New("invalid key")

const (
	courseKeyPrefix = "course-v1:"
	usageKeyPrefix  = "block-v1:"
	assetKeyPrefix  = "asset-v1:"
	legacyUsage     = "i4x://"
	legacyAsset     = "/c4x/"

	CourseCategory = "course"
	AssetCategory  = "asset"
)

const idChars = `[\w\-~.:%]+`

var (
	canonicalCourseRe = regexp.MustCompile(`^course-v1:(` + idChars + `)\+(` + idChars + `)\+(` + idChars + `)$`)
	legacyCourseRe    = regexp.MustCompile(`^(` + idChars + `)/(` + idChars + `)/(` + idChars + `)$`)
	canonicalUsageRe  = regexp.MustCompile(`^block-v1:(` + idChars + `)\+(` + idChars + `)\+(` + idChars + `)\+type@(` + idChars + `)\+block@(` + idChars + `)$`)
	legacyUsageRe     = regexp.MustCompile(`^i4x://(` + idChars + `)/(` + idChars + `)/(` + idChars + `)/(` + idChars + `)$`)
	idRe              = regexp.MustCompile(`^` + idChars + `$`)
)

// CourseKey identifies a course. Deprecated keys keep their legacy slash form
// when printed.
type CourseKey struct {
	Org        string `json:"org" bson:"org"`
	Course     string `json:"course" bson:"course"`
	Run        string `json:"run" bson:"run"`
	Deprecated bool   `json:"deprecated,omitempty" bson:"deprecated,omitempty"`
}

// ParseCourseKey accepts the canonical form first and falls back to the legacy one.
func ParseCourseKey(s string) (CourseKey, error) {
	if m := canonicalCourseRe.FindStringSubmatch(s); m != nil {
		return CourseKey{Org: m[1], Course: m[2], Run: m[3]}, nil
	}
	if m := legacyCourseRe.FindStringSubmatch(s); m != nil {
		return CourseKey{Org: m[1], Course: m[2], Run: m[3], Deprecated: true}, nil
	}
	return CourseKey{}, fmt.Errorf("%w: course key %q", ErrInvalidKey, s)
}

func (k CourseKey) String() string {
	if k.Deprecated {
		return k.Org + "/" + k.Course + "/" + k.Run
	}
	return courseKeyPrefix + k.Org + "+" + k.Course + "+" + k.Run
}

// Canonical returns the key in its non-deprecated form.
func (k CourseKey) Canonical() CourseKey {
	k.Deprecated = false
	return k
}

// RootKey is the usage key of the course block itself.
func (k CourseKey) RootKey() UsageKey {
	return UsageKey{Course: k, Category: CourseCategory, Name: CourseCategory}
}

func (k CourseKey) Validate() error {
	if !idRe.MatchString(k.Org) || !idRe.MatchString(k.Course) || !idRe.MatchString(k.Run) {
		return fmt.Errorf("%w: course key %q", ErrInvalidKey, k.String())
	}
	return nil
}

// UsageKey identifies a single node within a course.
type UsageKey struct {
	Course   CourseKey `json:"course" bson:"course"`
	Category string    `json:"category" bson:"category"`
	Name     string    `json:"name" bson:"name"`
}

// ParseUsageKey accepts block-v1 keys and legacy i4x locations. Legacy
// locations do not carry a run.
func ParseUsageKey(s string) (UsageKey, error) {
	if m := canonicalUsageRe.FindStringSubmatch(s); m != nil {
		return UsageKey{
			Course:   CourseKey{Org: m[1], Course: m[2], Run: m[3]},
			Category: m[4],
			Name:     m[5],
		}, nil
	}
	if m := legacyUsageRe.FindStringSubmatch(s); m != nil {
		return UsageKey{
			Course:   CourseKey{Org: m[1], Course: m[2], Deprecated: true},
			Category: m[3],
			Name:     m[4],
		}, nil
	}
	return UsageKey{}, fmt.Errorf("%w: usage key %q", ErrInvalidKey, s)
}

func (k UsageKey) String() string {
	if k.Course.Deprecated {
		return legacyUsage + k.Course.Org + "/" + k.Course.Course + "/" + k.Category + "/" + k.Name
	}
	return usageKeyPrefix + k.Course.Org + "+" + k.Course.Course + "+" + k.Course.Run +
		"+type@" + k.Category + "+block@" + k.Name
}

// MapIntoCourse binds the key to the given course. Legacy keys lose their
// missing run this way.
func (k UsageKey) MapIntoCourse(course CourseKey) UsageKey {
	k.Course = course
	return k
}

// AssetKey identifies a stored course asset in caches.
type AssetKey struct {
	Course CourseKey `json:"course"`
	Name   string    `json:"name"`
}

func (k AssetKey) String() string {
	if k.Course.Deprecated {
		return legacyAsset + k.Course.Org + "/" + k.Course.Course + "/" + AssetCategory + "/" + k.Name
	}
	return assetKeyPrefix + k.Course.Org + "+" + k.Course.Course + "+" + k.Course.Run +
		"+type@" + AssetCategory + "+block@" + k.Name
}

// ReplaceRun returns a copy bound to another run. Canonical keys can't exist
// without a run.
func (k AssetKey) ReplaceRun(run string) (AssetKey, error) {
	if run == "" && !k.Course.Deprecated {
		return AssetKey{}, fmt.Errorf("%w: run is required for %q", ErrInvalidKey, k.String())
	}
	k.Course.Run = run
	return k, nil
}

// AssetName turns a storage path into a name usable inside an asset key.
func AssetName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
