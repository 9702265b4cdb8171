package processing

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Ellipsis is appended to every truncated description.
const Ellipsis = "..."

var (
	tagRegex    = regexp.MustCompile(`<[^>]*>`)
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {},
	"and": {}, "or": {}, "of": {}, "on": {}, "at": {}, "with": {},
	"is": {}, "are": {}, "this": {}, "that": {}, "your": {}, "from": {},
}

var prizePrinter = message.NewPrinter(language.AmericanEnglish)

// StripTags removes anything that looks like an HTML tag.
func StripTags(input string) string {
	return tagRegex.ReplaceAllString(input, "")
}

// Truncate keeps at most limit characters of input.
func Truncate(input string, limit int) string {
	if limit < 0 {
		return input
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit])
}

// Summarize strips markup from raw, cuts it to limit characters and appends an ellipsis.
// An empty raw value yields fallback unchanged.
func Summarize(raw string, limit int, fallback string) string {
	if raw == "" {
		return fallback
	}
	return Truncate(StripTags(raw), limit) + Ellipsis
}

// FormatPrize renders an upstream prize amount the way the portal shows it.
func FormatPrize(amount float64) string {
	if amount == math.Trunc(amount) && math.Abs(amount) < math.MaxInt64 {
		return prizePrinter.Sprintf("Prize: $%d", int64(amount))
	}
	return "Prize: $" + prizePrinter.Sprint(number.Decimal(amount, number.MaxFractionDigits(3)))
}

// RemoveURLs removes all URLs from the input text.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// CleanText strips tags, HTML entities, URLs and punctuation, then squeezes whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(StripTags(input))
	decoded = RemoveURLs(decoded)
	decoded = punctuation.ReplaceAllString(decoded, " ")
	decoded = whitespace.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(decoded)
}

// ExtractKeywords returns the most frequent words that are not stop-words.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(token)) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}

	if len(freq) == 0 {
		return nil
	}

	type kv struct {
		word  string
		count int
	}

	pairs := make([]kv, 0, len(freq))
	for word, count := range freq {
		pairs = append(pairs, kv{word: word, count: count})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].word < pairs[j].word
		}
		return pairs[i].count > pairs[j].count
	})

	max := limit
	if max <= 0 || max > len(pairs) {
		max = len(pairs)
	}

	keywords := make([]string, 0, max)
	for i := 0; i < max; i++ {
		keywords = append(keywords, pairs[i].word)
	}

	return keywords
}

// Fingerprint hashes the given fields into a stable content digest.
func Fingerprint(fields ...string) string {
	s := sha1.Sum([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(s[:])
}
