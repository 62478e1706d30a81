// Package strhelper contains string helpers shared by the importer packages.
package strhelper

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const SlugSeparator = "_"

var (
	quotesRegexp          = regexp.MustCompile(`['"]+`)
	numberSeparatorRegexp = regexp.MustCompile(`(\d),(\d)`)
	disallowedRegexp      = regexp.MustCompile(`[^a-z0-9]+`)
)

// latinReplacer folds letters which have no NFKD decomposition.
var latinReplacer = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "TH",
)

// Slugify converts a display name to a lowercase ASCII key with underscore separators.
// For example "Snowflake Prod" -> "snowflake_prod", "git@x:repo.git" -> "git_x_repo_git".
//
// Accents are removed, common Latin ligatures are spelled out ("Straße" -> "strasse"),
// other non-ASCII characters are dropped.
// A comma between two digits is removed ("1,000" -> "1000").
// The function is idempotent: Slugify(Slugify(s)) == Slugify(s).
func Slugify(text string) string {
	text = quotesRegexp.ReplaceAllString(text, SlugSeparator)
	text = strings.ToLower(toASCII(text))

	// Repeat, the regexp cannot match overlapping pairs, e.g. "1,2,3"
	for {
		replaced := numberSeparatorRegexp.ReplaceAllString(text, "$1$2")
		if replaced == text {
			break
		}
		text = replaced
	}

	text = disallowedRegexp.ReplaceAllString(text, SlugSeparator)
	return strings.Trim(text, SlugSeparator)
}

func toASCII(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, latinReplacer.Replace(text))
	if err != nil {
		return text
	}
	return out
}
