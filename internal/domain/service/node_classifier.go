package service

import (
	"strings"

	"onchain-intel/internal/domain/entity"
)

// RiskKeywords mark a counterparty as risky when found in its entity type or label
var RiskKeywords = []string{"sanctioned", "warning", "mixer"}

// CounterpartyTags returns the descriptive tags of an endpoint: entity type then label name
func CounterpartyTags(ep entity.Endpoint) []string {
	var tags []string
	if ep.Entity != nil && ep.Entity.Type != "" {
		tags = append(tags, ep.Entity.Type)
	}
	if ep.Label != nil && ep.Label.Name != "" {
		tags = append(tags, ep.Label.Name)
	}
	return tags
}

// IsRiskyCounterparty reports whether any endpoint tag contains a risk keyword
func IsRiskyCounterparty(ep entity.Endpoint) bool {
	for _, tag := range CounterpartyTags(ep) {
		lower := strings.ToLower(tag)
		for _, kw := range RiskKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// ClassifyCounterparty assigns a category to a counterparty.
// Risk wins over flow direction.
func ClassifyCounterparty(ep entity.Endpoint, inbound bool) entity.NodeCategory {
	switch {
	case IsRiskyCounterparty(ep):
		return entity.NodeCategoryRisk
	case inbound:
		return entity.NodeCategorySource
	default:
		return entity.NodeCategoryDestination
	}
}

// ShortAddress abbreviates an address for display
func ShortAddress(address string) string {
	if len(address) <= 6 {
		return address
	}
	return address[:6] + "..."
}

// CounterpartyName returns the entity name, the label name, or the short address
func CounterpartyName(ep entity.Endpoint) string {
	if ep.Entity != nil && ep.Entity.Name != "" {
		return ep.Entity.Name
	}
	if ep.Label != nil && ep.Label.Name != "" {
		return ep.Label.Name
	}
	return ShortAddress(ep.Address)
}
