// Package header provides field extraction patterns for astronomical image
// headers. Two on-disk dialects are supported: the XML tag dialect used by
// XISF files and the fixed keyword-record dialect used by FITS files. Both
// are matched against a decoded text prefix of the file rather than a fully
// parsed header, which keeps extraction cheap and tolerant of truncation.
package header

import (
	"regexp"
	"strings"
)

// Field identifies one logical metadata field extracted from a frame header.
type Field string

const (
	FieldType     Field = "type"
	FieldDate     Field = "date"
	FieldFilter   Field = "filter"
	FieldExposure Field = "exposure"
	FieldGain     Field = "gain"
	FieldBinning  Field = "binning"
)

// Fields lists every extractable field in a stable order.
var Fields = []Field{FieldType, FieldDate, FieldFilter, FieldExposure, FieldGain, FieldBinning}

// Format identifies a header dialect.
type Format string

const (
	FormatXISF Format = "xisf"
	FormatFITS Format = "fits"
)

// Each logical field accepts several keyword spellings because capture
// software disagrees on header vocabulary (e.g. EXPTIME vs EXPOSURE).
var fieldKeywords = map[Field]string{
	FieldType:     `IMAGETYP|TYPE`,
	FieldDate:     `DATE-LOC|DATE-OBS|DATE`,
	FieldFilter:   `FILTER|FILT`,
	FieldExposure: `EXPTIME|EXPOSURE`,
	FieldGain:     `GAIN|ISO`,
	FieldBinning:  `XBINNING|BINNING`,
}

// PatternSet holds the compiled extraction patterns for one header format.
// A PatternSet is immutable after construction and safe for concurrent use.
type PatternSet struct {
	format   Format
	patterns map[Field]*regexp.Regexp
}

var (
	xisfPatterns = compile(FormatXISF)
	fitsPatterns = compile(FormatFITS)
)

func compile(format Format) *PatternSet {
	ps := &PatternSet{
		format:   format,
		patterns: make(map[Field]*regexp.Regexp, len(fieldKeywords)),
	}
	for field, keywords := range fieldKeywords {
		var expr string
		switch format {
		case FormatXISF:
			// XISF serialises FITS keywords as XML attributes:
			//   <FITSKeyword name="EXPTIME" value="300.0" comment="..."/>
			// Empty-valued tags must not match, or they would shadow a later
			// populated synonym.
			expr = `(?i)<FITSKeyword\s+name="(?:` + keywords + `)"\s+value="([^"]+)"`
		default:
			// FITS keyword records carry either a quoted string or a bare
			// numeric literal after the equals sign:
			//   IMAGETYP= 'LIGHT   '           EXPTIME =                300.0
			expr = `(?i)(?:` + keywords + `)\s*=\s*(?:'([^']*)'|([0-9.+-]+))`
		}
		ps.patterns[field] = regexp.MustCompile(expr)
	}
	return ps
}

// ForPath selects the pattern set matching the file's extension. Only a
// case-insensitive ".xisf" suffix selects the XISF dialect; every other
// path is treated as FITS.
func ForPath(path string) *PatternSet {
	if strings.HasSuffix(strings.ToLower(path), ".xisf") {
		return xisfPatterns
	}
	return fitsPatterns
}

// ForFormat returns the pattern set for an explicit format.
func ForFormat(format Format) *PatternSet {
	if format == FormatXISF {
		return xisfPatterns
	}
	return fitsPatterns
}

// Format reports which dialect this set matches.
func (ps *PatternSet) Format() Format { return ps.format }

// Extract scans decoded header text for the given field. It returns the
// trimmed value of the first match and true, or "" and false when the field
// does not occur in the text.
func (ps *PatternSet) Extract(field Field, text string) (string, bool) {
	re, ok := ps.patterns[field]
	if !ok {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	// The FITS expression has two capture groups (quoted string, bare
	// number); exactly one of them is populated per match.
	for _, group := range m[1:] {
		if group != "" {
			return strings.TrimSpace(group), true
		}
	}
	// Matched but captured an empty value (e.g. FILTER = '').
	return "", true
}
