// Package animation turns a free-text prompt into a Manim scene script.
package animation

import "strings"

// Category is the template family chosen for a prompt.
type Category string

const (
	CategoryCircle  Category = "circle"
	CategorySquare  Category = "square"
	CategoryText    Category = "text"
	CategoryGraph   Category = "graph"
	CategoryDefault Category = "default"
)

// Rule maps a set of keywords to a category. A rule matches when any keyword
// occurs in the lower-cased prompt.
type Rule struct {
	Category Category
	Keywords []string
}

// DefaultRules is evaluated in order; earlier rules shadow later ones, so
// "a ball with text" is a circle.
var DefaultRules = []Rule{
	{CategoryCircle, []string{"circle", "round", "ball"}},
	{CategorySquare, []string{"square", "rectangle", "box"}},
	{CategoryText, []string{"text", "write", "words", "letters"}},
	{CategoryGraph, []string{"graph", "plot", "chart"}},
}

// Selector picks a category for a prompt.
type Selector interface {
	Select(prompt string) Category
}

// RuleSelector is a Selector backed by an ordered keyword table.
type RuleSelector struct {
	Rules []Rule
}

// NewRuleSelector returns a selector over DefaultRules.
func NewRuleSelector() RuleSelector {
	return RuleSelector{Rules: DefaultRules}
}

// Select returns the category of the first matching rule, or
// CategoryDefault.
func (s RuleSelector) Select(prompt string) Category {
	p := strings.ToLower(prompt)
	for _, r := range s.Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(p, kw) {
				return r.Category
			}
		}
	}
	return CategoryDefault
}

// Select classifies prompt with the default rule table.
func Select(prompt string) Category {
	return NewRuleSelector().Select(prompt)
}

// waitOffset is the time already spent by a template's own animation beats.
func (c Category) waitOffset() float64 {
	switch c {
	case CategoryCircle, CategorySquare, CategoryText:
		return 4.0
	case CategoryGraph:
		return 3.0
	default:
		return 5.0
	}
}
