package category

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Rules maps merchant names to a default expense category. Lookup is pure and
// deterministic: an exact (case-insensitive) table match wins, then the first
// keyword rule whose word appears in the merchant name. No match returns
// ok=false, which is what drives the conversation to ask the question.
type Rules struct {
	exact    map[string]string
	keywords []keywordRule
}

type keywordRule struct {
	words    []string
	category string
}

// ruleFile is the on-disk JSON shape for configurable rules.
type ruleFile struct {
	Exact    map[string]string `json:"exact"`
	Keywords []struct {
		Words    []string `json:"words"`
		Category string   `json:"category"`
	} `json:"keywords"`
}

// Default returns the built-in rule set.
func Default() *Rules {
	return &Rules{
		exact: map[string]string{
			"starbucks": "Meals",
		},
		keywords: []keywordRule{
			{words: []string{"restaurant", "cafe", "coffee", "pizza", "burger", "food", "diner", "bistro"}, category: "Meals & Entertainment"},
			{words: []string{"uber", "lyft", "taxi", "airline", "hotel", "airbnb"}, category: "Travel"},
			{words: []string{"office", "depot", "staples", "supply"}, category: "Office Supplies"},
			{words: []string{"gas", "fuel", "shell", "chevron", "exxon"}, category: "Transportation"},
			{words: []string{"amazon", "best buy", "target", "walmart"}, category: "General Supplies"},
		},
	}
}

// Load reads a rule file and layers it over the built-in defaults. File
// entries win over defaults for exact matches and are tried before the
// default keyword rules.
func Load(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var file ruleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	rules := Default()
	for merchant, cat := range file.Exact {
		rules.exact[strings.ToLower(strings.TrimSpace(merchant))] = cat
	}

	loaded := make([]keywordRule, 0, len(file.Keywords))
	for _, kr := range file.Keywords {
		words := make([]string, 0, len(kr.Words))
		for _, w := range kr.Words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}
		if len(words) > 0 && kr.Category != "" {
			loaded = append(loaded, keywordRule{words: words, category: kr.Category})
		}
	}
	rules.keywords = append(loaded, rules.keywords...)

	return rules, nil
}

// Suggest returns the default category for a merchant name, or ok=false when
// no rule matches.
func (r *Rules) Suggest(merchant string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(merchant))
	if name == "" {
		return "", false
	}

	if cat, ok := r.exact[name]; ok {
		return cat, true
	}

	for _, kr := range r.keywords {
		for _, word := range kr.words {
			if strings.Contains(name, word) {
				return kr.category, true
			}
		}
	}

	return "", false
}
