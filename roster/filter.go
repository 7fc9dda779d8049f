package roster

import (
	"strconv"
	"strings"

	"github.com/jrsteele09/syllabus-tracker/trackerapi"
)

// Entry is one student x syllabus row of the roster.
type Entry = trackerapi.RosterEntry

// Progress buckets. Bounds are inclusive on both ends, so 25 falls into 0-25 and 25-50.
const (
	BucketAll     = "all"
	Bucket0To25   = "0-25"
	Bucket25To50  = "25-50"
	Bucket50To75  = "50-75"
	Bucket75To100 = "75-100"
)

// SyllabusAll selects every syllabus except the contact placeholder.
const SyllabusAll = "all"

// Buckets lists the selectable progress filters in display order.
var Buckets = []string{BucketAll, Bucket0To25, Bucket25To50, Bucket50To75, Bucket75To100}

// Resolver maps a syllabus id onto its catalog entry.
type Resolver interface {
	Lookup(id string) (trackerapi.SyllabusInfo, bool)
}

// Filter is the teacher's current view selection. Zero values mean "all".
type Filter struct {
	Search     string
	Bucket     string
	SyllabusID string
}

// ParseBucket returns the bounds of a "min-max" bucket. ok is false for "all" and for
// anything that does not parse, both of which match every entry.
func ParseBucket(bucket string) (lo, hi float64, ok bool) {
	minStr, maxStr, found := strings.Cut(bucket, "-")
	if !found {
		return 0, 0, false
	}
	lo, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.ParseFloat(maxStr, 64)
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// Apply returns the entries matching f, in input order.
func Apply(entries []Entry, f Filter, syllabuses Resolver) []Entry {
	m := newMatcher(f, syllabuses)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if m.match(e) {
			out = append(out, e)
		}
	}
	return out
}

type matcher struct {
	search      string
	lo, hi      float64
	hasBucket   bool
	allSyllabus bool
	syllabus    string
}

func newMatcher(f Filter, syllabuses Resolver) matcher {
	m := matcher{search: strings.ToLower(f.Search)}
	m.lo, m.hi, m.hasBucket = ParseBucket(f.Bucket)

	switch {
	case f.SyllabusID == "" || f.SyllabusID == SyllabusAll:
		m.allSyllabus = true
	case f.SyllabusID == trackerapi.ContactSyllabusID:
		m.syllabus = trackerapi.ContactSyllabusName
	case syllabuses != nil:
		if s, ok := syllabuses.Lookup(f.SyllabusID); ok {
			m.syllabus = s.Name
		}
	}
	return m
}

func (m matcher) match(e Entry) bool {
	if m.allSyllabus {
		if e.SyllabusName == trackerapi.ContactSyllabusName {
			return false
		}
	} else if m.syllabus == "" || e.SyllabusName != m.syllabus {
		return false
	}

	if m.hasBucket && (e.ProgressPercentage < m.lo || e.ProgressPercentage > m.hi) {
		return false
	}

	if m.search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), m.search) ||
		strings.Contains(strings.ToLower(e.Email), m.search) ||
		strings.Contains(strings.ToLower(e.SyllabusName), m.search)
}
