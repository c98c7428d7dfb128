package pathplan

import (
	"regexp"
	"strconv"
	"strings"
)

var chineseDigits = map[rune]int{
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9, '十': 10,
}

// ExtractSeasonNumber scans title for "第X季" (Chinese numerals 一..十, or
// an Arabic numeral capped at 50) or "Season X"/"season X", falling back
// to fallback when nothing matches. This mirrors the original project's
// extract_season_number exactly: the Chinese-numeral table only covers
// 一 through 十 (1..10) — anything past that under "第…季" falls through
// to the Arabic-numeral branch, never to a compound reading like 十一. A
// parsed value of exactly 1 is treated as "maybe default" rather than
// authoritative — fallback wins when the caller has a real stored
// season_number — matching the original's `1 => season_number.unwrap_or(1)`
// arm: a "第一季" title must not override a stored season_number of, say, 2.
func ExtractSeasonNumber(title string, fallback int) int {
	title = strings.TrimPrefix(strings.TrimSpace(title), "_")

	if pos := strings.Index(title, "第"); pos >= 0 {
		after := title[pos+len("第"):]
		if ji := strings.Index(after, "季"); ji >= 0 {
			seasonStr := after[:ji]
			if n, ok := chineseDigits[firstRune(seasonStr)]; ok && len([]rune(seasonStr)) == 1 {
				if n == 1 && fallback > 0 {
					return fallback
				}
				return n
			}
			if n, err := strconv.Atoi(seasonStr); err == nil && n > 0 && n <= 50 {
				if n == 1 && fallback > 0 {
					return fallback
				}
				return n
			}
		}
	}

	for _, pattern := range []string{"Season ", "season "} {
		if pos := strings.Index(title, pattern); pos >= 0 {
			after := title[pos+len(pattern):]
			end := 0
			for end < len(after) && after[end] >= '0' && after[end] <= '9' {
				end++
			}
			if end > 0 {
				if n, err := strconv.Atoi(after[:end]); err == nil && n > 0 && n <= 50 {
					return n
				}
			}
		}
	}

	if fallback > 0 {
		return fallback
	}
	return 1
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

var versionInfoBanned = regexp.MustCompile(`第|话|集`)

// ExtractVersionInfo returns a short version tag (e.g. "NC", "SP") embedded
// in a short video title that carries no season/episode markers, matching
// the original project's extract_version_info.
func ExtractVersionInfo(title string) string {
	title = strings.TrimPrefix(strings.TrimSpace(title), "_")
	runes := []rune(title)
	if len(runes) <= 6 && !versionInfoBanned.MatchString(title) {
		return title
	}
	return ""
}

// ExtractSeriesTitle prefers an API-provided title (normalized), else
// splits the stored name on the first space or underscore, else returns
// the raw name — per the original project's
// extract_series_title_with_context.
func ExtractSeriesTitle(apiTitle, storedName string) string {
	if apiTitle != "" {
		return NormalizeSeasonTitle(apiTitle)
	}
	name := strings.TrimSpace(storedName)
	if pos := strings.IndexByte(name, ' '); pos >= 0 {
		return strings.TrimSpace(name[:pos])
	}
	if pos := strings.IndexByte(name, '_'); pos >= 0 {
		return strings.TrimSpace(name[:pos])
	}
	return name
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeSeasonTitle collapses whitespace runs to a single space, then
// removes the space before a left parenthesis (half-width and full-width),
// per spec.md §4.9.
func NormalizeSeasonTitle(title string) string {
	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(title, " "))
	collapsed = strings.ReplaceAll(collapsed, " （", "（")
	collapsed = strings.ReplaceAll(collapsed, " (", "(")
	return collapsed
}
