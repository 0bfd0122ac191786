package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
)

func TestExtractAsset(t *testing.T) {
	asset, text, ok := ExtractAsset("Whale [PEPE]")
	assert.True(t, ok)
	assert.Equal(t, "PEPE", asset)
	assert.Equal(t, "Whale", text)

	asset, text, ok = ExtractAsset("Whale")
	assert.False(t, ok)
	assert.Empty(t, asset)
	assert.Equal(t, "Whale", text)

	asset, text, ok = ExtractAsset("Early [MOG] Adopter [X]")
	assert.True(t, ok)
	assert.Equal(t, "MOG", asset)
	assert.Equal(t, "Early Adopter", text)

	asset, text, ok = ExtractAsset("  Early   Adopter [MOG]")
	assert.True(t, ok)
	assert.Equal(t, "MOG", asset)
	assert.Equal(t, "Early Adopter", text)

	// normalizing the display text again finds no asset
	_, again, ok := ExtractAsset(text)
	assert.False(t, ok)
	assert.Equal(t, text, again)
}

func TestNormalizeTagCategories(t *testing.T) {
	tests := []struct {
		raw      string
		category entity.TagCategory
	}{
		{"KOL", entity.TagCategoryIdentity},
		{"Ethereum Founder", entity.TagCategoryIdentity},
		{"Sniper Bot", entity.TagCategoryBehavior},
		{"Diamond Hands", entity.TagCategoryBehavior},
		{"Known Scammer", entity.TagCategoryWarning},
		{"BRETT Whale [BRETT]", entity.TagCategoryAsset},
		{"币安", entity.TagCategoryAsset},
		{"Gate.io Hot Wallet", entity.TagCategoryAsset},
		{"Early Adopter [MOG]", entity.TagCategoryGeneral},
		// identity is tested before asset
		{"OG Whale", entity.TagCategoryIdentity},
		// "hacker" is a warning even though "hands" is not present
		{"Hacker", entity.TagCategoryWarning},
		// "blog" contains "og"
		{"Blog Writer", entity.TagCategoryIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.category, NormalizeTag(tt.raw).Category)
		})
	}
}

func TestNormalizeTagFields(t *testing.T) {
	tag := NormalizeTag("Early Adopter [MOG]")
	assert.Equal(t, "official-Early Adopter [MOG]", tag.ID)
	assert.Equal(t, "Early Adopter", tag.Text)
	assert.Equal(t, "MOG", tag.Asset)
	assert.True(t, tag.IsOfficial)
	assert.Equal(t, entity.SubmitterOfficial, tag.SubmittedBy)
	assert.Zero(t, tag.Upvotes)
	assert.Zero(t, tag.Downvotes)
	assert.False(t, tag.Upvoted)
	assert.False(t, tag.Downvoted)
}

func TestNormalizeTagIdempotent(t *testing.T) {
	for _, raw := range []string{"Whale [PEPE]", "Sniper [A] [B]", "  Risky  Wallet ", "plain"} {
		first := NormalizeTag(raw)
		second := NormalizeTag(first.Text)
		assert.Equal(t, first.Category, second.Category, raw)
		assert.Equal(t, first.Text, second.Text, raw)
		assert.Empty(t, second.Asset, raw)
	}
}

func TestCommunityTagFromSource(t *testing.T) {
	tag := CommunityTagFromSource("0xabc", entity.SourceTag{TagName: "PEPE Holder [PEPE]", Count: 7})
	assert.Equal(t, "found-ct-0xabc-PEPE Holder [PEPE]", tag.ID)
	assert.Equal(t, "PEPE Holder", tag.Text)
	assert.Equal(t, entity.TagCategoryAsset, tag.Category)
	assert.Equal(t, uint64(7), tag.Upvotes)
	assert.False(t, tag.IsOfficial)
	assert.Equal(t, entity.SubmitterMemeRadar, tag.SubmittedBy)
}

func TestRankTags(t *testing.T) {
	community := []entity.Tag{
		{ID: "a", Text: "low", Upvotes: 1, Downvotes: 3},
		{ID: "b", Text: "high", Upvotes: 10},
	}
	ranked := RankTags([]string{"OG"}, community)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].ID)
	assert.Equal(t, "official-OG", ranked[1].ID)
	assert.Equal(t, "a", ranked[2].ID)
}
