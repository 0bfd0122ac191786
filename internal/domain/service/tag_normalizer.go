package service

import (
	"regexp"
	"sort"
	"strings"

	"onchain-intel/internal/domain/entity"
)

var assetPattern = regexp.MustCompile(`\[(.*?)\]`)

// CategoryRule maps a keyword set to a tag category
type CategoryRule struct {
	Category entity.TagCategory
	Keywords []string
}

// CategoryRules are tested in order; the first rule with a matching keyword wins.
// Downstream displays depend on this precedence.
var CategoryRules = []CategoryRule{
	{Category: entity.TagCategoryIdentity, Keywords: []string{"kol", "founder", "og", "influencer"}},
	{Category: entity.TagCategoryBehavior, Keywords: []string{"sniper", "farmer", "hunter", "hands"}},
	{Category: entity.TagCategoryWarning, Keywords: []string{"risk", "warning", "scammer", "hacker"}},
	{Category: entity.TagCategoryAsset, Keywords: []string{"whale", "holder", "pepe", "brett", "币安", "gate.io"}},
}

// ExtractAsset splits a raw tag into its bracketed asset and display text.
// The first [...] group is the asset. Every bracketed group is removed from the text
// so that the text never yields another asset.
func ExtractAsset(raw string) (asset string, text string, ok bool) {
	match := assetPattern.FindStringSubmatch(raw)
	if match == nil {
		return "", strings.TrimSpace(raw), false
	}
	cleaned := assetPattern.ReplaceAllString(raw, " ")
	return match[1], strings.Join(strings.Fields(cleaned), " "), true
}

// Categorize returns the category of a display text
func Categorize(text string) entity.TagCategory {
	lower := strings.ToLower(text)
	for _, rule := range CategoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return entity.TagCategoryGeneral
}

// NormalizeTag turns a raw official tag string into a categorized tag
func NormalizeTag(raw string) entity.Tag {
	asset, text, _ := ExtractAsset(raw)
	return entity.Tag{
		ID:          "official-" + raw,
		Text:        text,
		Category:    Categorize(text),
		Asset:       asset,
		SubmittedBy: entity.SubmitterOfficial,
		IsOfficial:  true,
	}
}

// CommunityTagFromSource builds a third-party community tag from a tag source entry
func CommunityTagFromSource(address string, src entity.SourceTag) entity.Tag {
	tag := NormalizeTag(src.TagName)
	tag.ID = "found-ct-" + address + "-" + src.TagName
	tag.IsOfficial = false
	tag.SubmittedBy = entity.SubmitterMemeRadar
	if src.Count > 0 {
		tag.Upvotes = uint64(src.Count)
	}
	return tag
}

// RankTags combines official and community tags ordered by net score, highest first.
// Ties keep official tags ahead of community tags, each in input order.
func RankTags(official []string, community []entity.Tag) []entity.Tag {
	out := make([]entity.Tag, 0, len(official)+len(community))
	for _, raw := range official {
		out = append(out, NormalizeTag(raw))
	}
	for _, t := range community {
		c := t.Clone()
		c.IsOfficial = false
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetScore() > out[j].NetScore()
	})
	return out
}
