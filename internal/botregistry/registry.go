// Package botregistry classifies user agents against an ordered catalogue of
// search-engine and AI crawler signatures. Only recognized bots are reported;
// excluded and unknown agents classify as nothing.
package botregistry

import "strings"

// signature is one flattened (pattern, bot, family) lookup entry.
type signature struct {
	pattern string
	bot     string
	family  string
}

// lookup preserves declaration order, which is the match priority.
var lookup = buildLookup(families)

var categories = buildCategories(families)

func buildLookup(fams []Family) []signature {
	var out []signature
	for _, fam := range fams {
		for _, bot := range fam.Bots {
			for _, pattern := range bot.Patterns {
				out = append(out, signature{pattern: pattern, bot: bot.Name, family: fam.Name})
			}
		}
	}
	return out
}

func buildCategories(fams []Family) map[string]Category {
	out := make(map[string]Category, len(fams))
	for _, fam := range fams {
		out[fam.Name] = fam.Category
	}
	return out
}

// Classify returns the bot and family for a user agent. ok is false when the
// agent is empty, matches the exclusion list, or is not a known bot.
func Classify(userAgent string) (bot, family string, ok bool) {
	if userAgent == "" {
		return "", "", false
	}
	ua := strings.ToLower(userAgent)
	if IsExcluded(ua) {
		return "", "", false
	}
	for _, sig := range lookup {
		if strings.Contains(ua, sig.pattern) {
			return sig.bot, sig.family, true
		}
	}
	return "", "", false
}

// IsExcluded reports whether a lowercased user agent hits the exclusion list.
func IsExcluded(lowerUA string) bool {
	for _, pattern := range excluded {
		if strings.Contains(lowerUA, pattern) {
			return true
		}
	}
	return false
}

// CategoryOf returns the category of a family name.
func CategoryOf(family string) (Category, bool) {
	c, ok := categories[family]
	return c, ok
}

// FamilySummary is the catalogue view served to filter UIs.
type FamilySummary struct {
	Family   string   `json:"family"`
	Category Category `json:"type"`
	Color    string   `json:"color"`
	Bots     []string `json:"bots"`
}

// Families returns the catalogue in priority order. The result is a copy.
func Families() []FamilySummary {
	out := make([]FamilySummary, 0, len(families))
	for _, fam := range families {
		names := make([]string, 0, len(fam.Bots))
		for _, bot := range fam.Bots {
			names = append(names, bot.Name)
		}
		out = append(out, FamilySummary{
			Family:   fam.Name,
			Category: fam.Category,
			Color:    fam.Color,
			Bots:     names,
		})
	}
	return out
}
