package catalog

import (
	"regexp"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🧩 ParseResult is the tagged outcome of reading a date out of a folder name
type ParseResult struct {
	Time   time.Time
	Label  string
	Format string // name of the pattern that matched
	Err    error  // set when no pattern produced a date
}

// OK reports whether a date was parsed
func (r ParseResult) OK() bool {
	return r.Err == nil && !r.Time.IsZero()
}

type namePattern struct {
	name   string
	re     *regexp.Regexp
	layout string
	stamp  int // capture group of the timestamp
	label  int // capture group of the label, 0 for none
}

// 🔍 NameParser extracts dates from date-encoded folder names
type NameParser struct {
	patterns []namePattern
	loc      *time.Location
}

// ErrNoDateInName is wrapped by ParseResult.Err when nothing matched
var ErrNoDateInName = errors.Base("no date in folder name")

// 🏭 NewNameParser creates a parser for the known naming conventions, interpreting stamps in loc
func NewNameParser(loc *time.Location) *NameParser {
	if loc == nil {
		loc = time.Local
	}
	return &NameParser{
		loc: loc,
		patterns: []namePattern{
			{
				// import-<label>-YYYYMMDDhhmm-<uuid>
				name:   "import",
				re:     regexp.MustCompile(`^import-([a-zA-Z0-9_ -]+)-(\d{12})-([a-fA-F0-9-]{36})$`),
				layout: "200601021504",
				stamp:  2,
				label:  1,
			},
			{
				name:   "iso_date",
				re:     regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:[_ T-](.+))?$`),
				layout: "2006-01-02",
				stamp:  1,
				label:  2,
			},
			{
				name:   "compact_minute",
				re:     regexp.MustCompile(`^(\d{12})(?:[_-](.+))?$`),
				layout: "200601021504",
				stamp:  1,
				label:  2,
			},
			{
				name:   "compact_date",
				re:     regexp.MustCompile(`^(\d{8})(?:[_-](.+))?$`),
				layout: "20060102",
				stamp:  1,
				label:  2,
			},
		},
	}
}

// Parse reads the date and label out of a folder name
func (p *NameParser) Parse(name string) ParseResult {
	for _, pat := range p.patterns {
		m := pat.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation(pat.layout, m[pat.stamp], p.loc)
		if err != nil {
			return ParseResult{Format: pat.name, Err: errors.Errorf("%w: %q matches %s but %v", ErrNoDateInName, name, pat.name, err)}
		}
		label := ""
		if pat.label > 0 {
			label = strings.TrimSpace(m[pat.label])
		}
		if label == "" {
			label = name
		}
		return ParseResult{Time: t, Label: label, Format: pat.name}
	}
	return ParseResult{Err: errors.Errorf("%w: %q", ErrNoDateInName, name)}
}
