// Package tempdata holds the pattern tables the "temporary" and
// "legacy" per-entry checks consult (spec §1: "the large static tables
// of temporary/legacy extensions ... [are] data inputs supplied to the
// core", not core logic). The core's contribution is the classifier
// that evaluates a mixed rule set — path substrings, full filenames,
// start/end patterns, and extensions (spec §9's open question on the
// temporary-files table's shape) — against a candidate path. The
// tables themselves are the Default* values below; the engine uses
// them as they are, and the configuration has no field to replace them.
//
// The glob-to-regex compiler is adapted from the teacher's
// internal/filter/pattern.go, generalized from copy-filter globs to the
// broader rule-kind set this check needs; it is unexported.
package tempdata

import (
	"regexp"
	"strings"
)

// RuleKind selects how a Rule's Value is interpreted.
type RuleKind int

const (
	// KindSubstring matches if Value occurs anywhere in the path.
	KindSubstring RuleKind = iota
	// KindFilename matches the exact base name of the path.
	KindFilename
	// KindPrefix matches if the base name starts with Value.
	KindPrefix
	// KindSuffix matches if the base name ends with Value.
	KindSuffix
	// KindExtension matches the lowercase extension (without the dot).
	KindExtension
	// KindGlob compiles Value as an rsync-style glob over the relative path.
	KindGlob
)

// Rule is one entry in a temporary/legacy table.
type Rule struct {
	Kind  RuleKind
	Value string
	glob  *regexp.Regexp // lazily compiled for KindGlob
}

// Table is an ordered set of rules; Match is true if any rule matches.
type Table []Rule

// Match reports whether relPath matches any rule in the table. base is
// the path's final element (filepath.Base), precomputed by the caller
// since most checks already have it from the walker entry.
func (t Table) Match(relPath, base string) bool {
	for i := range t {
		if t[i].match(relPath, base) {
			return true
		}
	}
	return false
}

func (r *Rule) match(relPath, base string) bool {
	switch r.Kind {
	case KindSubstring:
		return strings.Contains(relPath, r.Value)
	case KindFilename:
		return base == r.Value
	case KindPrefix:
		return strings.HasPrefix(base, r.Value)
	case KindSuffix:
		return strings.HasSuffix(base, r.Value)
	case KindExtension:
		return strings.EqualFold(extension(base), r.Value)
	case KindGlob:
		if r.glob == nil {
			r.glob = compileGlob(r.Value)
		}
		return r.glob != nil && r.glob.MatchString(relPath)
	default:
		return false
	}
}

func extension(base string) string {
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}

// compileGlob converts an rsync-style glob into an anchored regexp,
// returning nil if the pattern fails to compile (a malformed host-
// supplied rule is simply inert, never a fatal error).
func compileGlob(pattern string) *regexp.Regexp {
	anchored := strings.HasPrefix(pattern, "/") || strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")

	reStr := globToRegex(pattern)
	if anchored {
		reStr = "^" + reStr + "$"
	} else {
		reStr = "(^|/)" + reStr + "$"
	}
	re, err := regexp.Compile(reStr)
	if err != nil {
		return nil
	}
	return re
}

//nolint:gocyclo,revive // character-by-character glob parser
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString("(.*/)?")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				// Unterminated class: written raw so regexp.Compile rejects it.
				b.WriteByte('[')
				i++
				break
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 2
		case '.', '(', ')', '+', '{', '}', '^', '$', '|', '\\', ']':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// DefaultTemporaryTable is a small, illustrative default for the
// "temporary" check (spec §1 treats the full table as an external data
// input); the engine always uses this table.
var DefaultTemporaryTable = Table{
	{Kind: KindExtension, Value: "tmp"},
	{Kind: KindExtension, Value: "temp"},
	{Kind: KindExtension, Value: "bak"},
	{Kind: KindExtension, Value: "swp"},
	{Kind: KindExtension, Value: "~"},
	{Kind: KindPrefix, Value: "~$"},
	{Kind: KindSuffix, Value: "~"},
	{Kind: KindFilename, Value: "Thumbs.db"},
	{Kind: KindFilename, Value: ".DS_Store"},
	{Kind: KindSubstring, Value: "/.cache/"},
}

// DefaultLegacyTable is a small, illustrative default for the "legacy"
// extension check. Several entries deliberately overlap with
// magic.CompositeFormats (.mov, .wav, .tiff):
// spec §9's open question notes the source warns from both tables for
// these extensions, and this implementation preserves that — the
// temporary/legacy check and the magic-number check run independently
// and neither suppresses the other's report for the same file.
var DefaultLegacyTable = Table{
	{Kind: KindExtension, Value: "mov"},
	{Kind: KindExtension, Value: "wav"},
	{Kind: KindExtension, Value: "tiff"},
	{Kind: KindExtension, Value: "rtf"},
	{Kind: KindExtension, Value: "wma"},
	{Kind: KindExtension, Value: "wmv"},
	{Kind: KindExtension, Value: "pst"},
}

// DefaultCompressedTable is a small, illustrative default for the
// "compressed" check: extensions that name an archive or compression
// container, another large static table spec §1 treats as a data
// input rather than core logic.
var DefaultCompressedTable = Table{
	{Kind: KindExtension, Value: "zip"},
	{Kind: KindExtension, Value: "gz"},
	{Kind: KindExtension, Value: "tgz"},
	{Kind: KindExtension, Value: "tar"},
	{Kind: KindExtension, Value: "7z"},
	{Kind: KindExtension, Value: "rar"},
	{Kind: KindExtension, Value: "bz2"},
	{Kind: KindExtension, Value: "xz"},
	{Kind: KindExtension, Value: "zst"},
	{Kind: KindExtension, Value: "lz4"},
}

// HasDuplicateExtension reports whether base's extension is repeated
// immediately, e.g. "x.tar.tar" (spec §9's open question: duplicate-
// extension detection "appears only in the newer i18n; behavior must
// match whichever build is targeted" — this implementation resolves
// the question by implementing it, since a file literally named
// "x.tar.tar" is a real and low-risk-to-detect quality signal, and
// nothing in spec.md's Non-goals excludes it).
func HasDuplicateExtension(base string) bool {
	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return false
	}
	last := parts[len(parts)-1]
	prev := parts[len(parts)-2]
	return last != "" && strings.EqualFold(last, prev)
}
