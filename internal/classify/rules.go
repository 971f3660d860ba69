package classify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/storyagent/storyagent-go/internal/domain"
)

// ComponentRule maps a narrative keyword to a component label
type ComponentRule struct {
	Keyword   string `yaml:"keyword"`
	Component string `yaml:"component"`
}

// Rules is the configurable classification policy. Component rules are
// ordered: the first matching rule is authoritative.
type Rules struct {
	UrgentTerms      []string        `yaml:"urgent_terms"`
	UrgentPriority   domain.Priority `yaml:"urgent_priority"`
	Components       []ComponentRule `yaml:"components"`
	DefaultComponent string          `yaml:"default_component"`
}

// DefaultRules returns the built-in rule set, used when no rules file is
// configured.
func DefaultRules() Rules {
	return Rules{
		UrgentTerms: []string{
			"security", "credential", "password", "authentication",
			"vulnerability", "encrypt",
		},
		UrgentPriority: domain.PriorityHigh,
		Components: []ComponentRule{
			{Keyword: "log in", Component: "Auth"},
			{Keyword: "login", Component: "Auth"},
			{Keyword: "register", Component: "Auth"},
			{Keyword: "password", Component: "Auth"},
			{Keyword: "report", Component: "Reporting"},
			{Keyword: "dashboard", Component: "Reporting"},
			{Keyword: "payment", Component: "Billing"},
			{Keyword: "invoice", Component: "Billing"},
			{Keyword: "search", Component: "Search"},
			{Keyword: "notification", Component: "Notifications"},
			{Keyword: "email", Component: "Notifications"},
			{Keyword: "api", Component: "API"},
		},
		DefaultComponent: DefaultComponent,
	}
}

// LoadRules reads a rule set from a YAML file
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	return rules, nil
}

// normalized lowercases match terms and fills in unset defaults so matching
// and classification stay total
func (r Rules) normalized() Rules {
	out := Rules{
		UrgentTerms:      make([]string, 0, len(r.UrgentTerms)),
		UrgentPriority:   r.UrgentPriority,
		Components:       make([]ComponentRule, 0, len(r.Components)),
		DefaultComponent: r.DefaultComponent,
	}

	for _, term := range r.UrgentTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			out.UrgentTerms = append(out.UrgentTerms, term)
		}
	}

	for _, rule := range r.Components {
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" || rule.Component == "" {
			continue
		}
		out.Components = append(out.Components, ComponentRule{
			Keyword:   keyword,
			Component: rule.Component,
		})
	}

	if out.UrgentPriority == "" {
		out.UrgentPriority = domain.PriorityHigh
	}
	if out.DefaultComponent == "" {
		out.DefaultComponent = DefaultComponent
	}

	return out
}
