package catalog

import (
	"sort"
	"strings"
	"unicode"

	"minisearch/internal/model"
)

// tokenize lowercases text and splits it into match units: ASCII-ish word
// runs become whole-word tokens, Han runs additionally contribute character
// bigrams so Chinese keywords match without word segmentation.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := make([]string, 0, 16)

	var word []rune
	flushWord := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}

	var han []rune
	flushHan := func() {
		if len(han) == 0 {
			return
		}
		if len(han) == 1 {
			tokens = append(tokens, string(han))
		}
		for i := 0; i+1 < len(han); i++ {
			tokens = append(tokens, string(han[i:i+2]))
		}
		han = han[:0]
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// matches reports whether text matches the search term. Chinese terms match
// by substring; other terms match when every word of the term appears as a
// whole token of the text.
func matches(textLower string, textTokens []string, term string) bool {
	if hasHan(term) {
		return strings.Contains(textLower, strings.ToLower(term))
	}
	termTokens := tokenize(term)
	if len(termTokens) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(textTokens))
	for _, t := range textTokens {
		set[t] = struct{}{}
	}
	for _, t := range termTokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

type searchHit struct {
	rank int
	idx  int
}

// SearchByKeyword matches term against field names and descriptions,
// case-insensitively. Exact name matches come first, then other name
// matches, then description matches; ties break by ascending field id.
// An empty result is a valid answer, not an error.
func (c *Catalog) SearchByKeyword(term string, limit int) []model.FieldRecord {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	termLower := strings.ToLower(term)

	hits := make([]searchHit, 0, 32)
	for i, f := range c.fields {
		nameLower := strings.ToLower(f.Name)
		nameTokens := tokenize(f.Name)
		switch {
		case nameLower == termLower:
			hits = append(hits, searchHit{rank: 0, idx: i})
		case matches(nameLower, nameTokens, term):
			hits = append(hits, searchHit{rank: 1, idx: i})
		case matches(strings.ToLower(f.Description), tokenize(f.Description), term):
			hits = append(hits, searchHit{rank: 2, idx: i})
		}
	}

	// fields are stored in ascending id order, so a stable sort on rank
	// keeps ties ordered by id.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.FieldRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, c.fields[h.idx])
	}
	return out
}

const categoryBonus = 3.0

// RecommendRelated scores every other field against the seed field by
// shared category plus name/description token overlap, and returns the top
// matches in descending score order, ties broken by ascending id. The seed
// itself is never included; an unknown seed yields an empty result.
func (c *Catalog) RecommendRelated(seedID, limit int) []model.ScoredField {
	seedIdx, ok := c.byID[seedID]
	if !ok {
		return nil
	}
	seed := c.fields[seedIdx]
	seedTokens := make(map[string]struct{}, len(c.tokens[seedIdx]))
	for _, t := range c.tokens[seedIdx] {
		seedTokens[t] = struct{}{}
	}

	return c.scoreFields(limit, func(i int, f model.FieldRecord) float64 {
		if f.ID == seedID {
			return 0
		}
		score := overlap(seedTokens, c.tokens[i])
		if f.Category != "" && strings.EqualFold(f.Category, seed.Category) {
			score += categoryBonus
		}
		return score
	})
}

// RecommendByKeywords scores fields against a free-text description of the
// research topic, by token overlap only.
func (c *Catalog) RecommendByKeywords(keywords string, limit int) []model.ScoredField {
	want := tokenize(keywords)
	if len(want) == 0 {
		return nil
	}
	wantSet := make(map[string]struct{}, len(want))
	for _, t := range want {
		wantSet[t] = struct{}{}
	}

	return c.scoreFields(limit, func(i int, f model.FieldRecord) float64 {
		return overlap(wantSet, c.tokens[i])
	})
}

func overlap(want map[string]struct{}, tokens []string) float64 {
	seen := make(map[string]struct{})
	n := 0.0
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := want[t]; ok {
			n++
		}
	}
	return n
}

func (c *Catalog) scoreFields(limit int, score func(int, model.FieldRecord) float64) []model.ScoredField {
	scored := make([]model.ScoredField, 0, 32)
	for i, f := range c.fields {
		if s := score(i, f); s > 0 {
			scored = append(scored, model.ScoredField{FieldRecord: f, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
