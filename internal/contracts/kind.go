package contracts

import "fmt"

// Kind identifies one of the four capability families.
type Kind string

const (
	KindParser        Kind = "parser"
	KindLLMProvider   Kind = "llm_provider"
	KindAgent         Kind = "agent"
	KindSocialNetwork Kind = "social_network"
)

// Kinds lists every capability kind in a stable order.
var Kinds = []Kind{KindParser, KindLLMProvider, KindAgent, KindSocialNetwork}

// Dir is the conventional subdirectory of a module tree holding modules of
// this kind.
func (k Kind) Dir() string {
	switch k {
	case KindParser:
		return "parsers"
	case KindLLMProvider:
		return "llm_providers"
	case KindAgent:
		return "agents"
	case KindSocialNetwork:
		return "social_networks"
	default:
		return string(k)
	}
}

// Plural is the key used for this kind in stats and listings.
func (k Kind) Plural() string {
	return k.Dir()
}

// ParseKind accepts a kind name, its plural, or its hyphenated URL form.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "parser", "parsers":
		return KindParser, nil
	case "llm_provider", "llm_providers", "llm-providers", "llm", "provider", "providers":
		return KindLLMProvider, nil
	case "agent", "agents":
		return KindAgent, nil
	case "social_network", "social_networks", "social-networks", "social", "network", "networks":
		return KindSocialNetwork, nil
	}
	return "", fmt.Errorf("unknown module kind %q", s)
}
