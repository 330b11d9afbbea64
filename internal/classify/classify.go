// Package classify assigns transactions to categories through ordered,
// case-insensitive keyword patterns.
package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/expense-report/pkg/transaction"
)

// DefaultFallback is the category for expenses no keyword matched.
const DefaultFallback = "misc"

// Reasons attached to skipped rows.
const (
	ReasonMissingField = "missing recipient or amount"
	ReasonNonExpense   = "non-expense"
)

// ErrInvalidRules is returned for rule sets that cannot be compiled.
var ErrInvalidRules = errors.New("invalid classification rules")

// Matcher tests recipient text against one keyword fragment.
type Matcher struct {
	Pattern string
	re      *regexp.Regexp
}

// Match reports whether the pattern occurs anywhere in text, ignoring case.
func (m Matcher) Match(text string) bool {
	return m.re.MatchString(text)
}

// CompileMatchers compiles regular expression fragments into case-insensitive matchers.
func CompileMatchers(patterns []string) ([]Matcher, error) {
	matchers := make([]Matcher, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %w", ErrInvalidRules, p, err)
		}
		matchers = append(matchers, Matcher{Pattern: p, re: re})
	}
	return matchers, nil
}

// CategoryRule is the uncompiled keyword list of one category.
type CategoryRule struct {
	Name     string
	Keywords []string
}

// Rules is the injected keyword configuration.
type Rules struct {
	Exclusions []string
	// Categories are tested in order; the first hit wins.
	Categories []CategoryRule
	// Fallback names the catch-all category. Defaults to DefaultFallback.
	Fallback string
}

// Category is a compiled CategoryRule.
type Category struct {
	Name     string
	Matchers []Matcher
}

// Classifier is a pure function of its rule tables.
type Classifier struct {
	exclusions []Matcher
	categories []Category
	fallback   string
}

// New compiles rules into a Classifier.
func New(rules Rules) (*Classifier, error) {
	fallback := rules.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	exclusions, err := CompileMatchers(rules.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("exclusions: %w", err)
	}

	seen := map[string]bool{fallback: true}
	categories := make([]Category, 0, len(rules.Categories))
	for _, cr := range rules.Categories {
		if cr.Name == "" {
			return nil, fmt.Errorf("%w: category without name", ErrInvalidRules)
		}
		if seen[cr.Name] {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidRules, cr.Name)
		}
		seen[cr.Name] = true

		matchers, err := CompileMatchers(cr.Keywords)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cr.Name, err)
		}
		categories = append(categories, Category{Name: cr.Name, Matchers: matchers})
	}

	return &Classifier{
		exclusions: exclusions,
		categories: categories,
		fallback:   fallback,
	}, nil
}

// Classify decides what happens to one transaction. The checks run in a
// fixed order: admission, expense sign, exclusions, categories, fallback.
func (c *Classifier) Classify(txn transaction.Transaction) transaction.Classification {
	if !txn.Admissible() {
		return transaction.Skip(ReasonMissingField)
	}
	if !txn.IsExpense() {
		return transaction.Skip(ReasonNonExpense)
	}
	if _, ok := firstMatch(c.exclusions, txn.Recipient); ok {
		return transaction.Exclude()
	}
	if cat, _, ok := c.matchCategory(txn.Recipient); ok {
		return transaction.Categorize(cat)
	}
	return transaction.Categorize(c.fallback)
}

// Explanation describes how a recipient would be classified.
type Explanation struct {
	Recipient string
	Excluded  bool
	Category  string
	// Pattern is the keyword that decided the outcome; empty for the fallback.
	Pattern string
}

// Explain classifies a bare recipient as if it were an expense.
func (c *Classifier) Explain(recipient string) Explanation {
	if m, ok := firstMatch(c.exclusions, recipient); ok {
		return Explanation{Recipient: recipient, Excluded: true, Pattern: m.Pattern}
	}
	if cat, m, ok := c.matchCategory(recipient); ok {
		return Explanation{Recipient: recipient, Category: cat, Pattern: m.Pattern}
	}
	return Explanation{Recipient: recipient, Category: c.fallback}
}

// Categories returns the declared category names followed by the fallback.
func (c *Classifier) Categories() []string {
	names := make([]string, 0, len(c.categories)+1)
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return append(names, c.fallback)
}

func (c *Classifier) matchCategory(text string) (string, Matcher, bool) {
	for _, cat := range c.categories {
		if m, ok := firstMatch(cat.Matchers, text); ok {
			return cat.Name, m, true
		}
	}
	return "", Matcher{}, false
}

func firstMatch(matchers []Matcher, text string) (Matcher, bool) {
	for _, m := range matchers {
		if m.Match(text) {
			return m, true
		}
	}
	return Matcher{}, false
}
