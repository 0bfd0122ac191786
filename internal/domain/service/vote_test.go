package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
)

func baseTag() entity.Tag {
	return entity.Tag{ID: "ct-1", Text: "Degen", Upvotes: 5, Downvotes: 2}
}

func TestApplyVoteRetract(t *testing.T) {
	tag, err := ApplyVote(baseTag(), entity.VoteUp)
	require.NoError(t, err)
	assert.True(t, tag.Upvoted)
	assert.Equal(t, uint64(6), tag.Upvotes)

	tag, err = ApplyVote(tag, entity.VoteUp)
	require.NoError(t, err)
	assert.False(t, tag.Upvoted)
	assert.False(t, tag.Downvoted)
	assert.Equal(t, uint64(5), tag.Upvotes)
	assert.Equal(t, uint64(2), tag.Downvotes)
}

func TestApplyVoteMove(t *testing.T) {
	tag, err := ApplyVote(baseTag(), entity.VoteUp)
	require.NoError(t, err)

	tag, err = ApplyVote(tag, entity.VoteDown)
	require.NoError(t, err)
	assert.False(t, tag.Upvoted)
	assert.True(t, tag.Downvoted)
	assert.Equal(t, uint64(5), tag.Upvotes)
	assert.Equal(t, uint64(3), tag.Downvotes)

	tag, err = ApplyVote(tag, entity.VoteUp)
	require.NoError(t, err)
	assert.True(t, tag.Upvoted)
	assert.False(t, tag.Downvoted)
	assert.Equal(t, uint64(6), tag.Upvotes)
	assert.Equal(t, uint64(2), tag.Downvotes)
}

func TestApplyVoteNeverNegative(t *testing.T) {
	tag := entity.Tag{ID: "ct-2", Upvoted: true}
	out, err := ApplyVote(tag, entity.VoteUp)
	require.NoError(t, err)
	assert.Zero(t, out.Upvotes)
	assert.False(t, out.Upvoted)
}

func TestApplyVoteOfficialRejected(t *testing.T) {
	_, err := ApplyVote(NormalizeTag("OG"), entity.VoteUp)
	assert.ErrorIs(t, err, entity.ErrImmutableTarget)
}

func TestApplyVoteInvalidDirection(t *testing.T) {
	_, err := ApplyVote(baseTag(), entity.VoteDirection("sideways"))
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestApplyVoteDoesNotMutateInput(t *testing.T) {
	in := baseTag()
	_, err := ApplyVote(in, entity.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, baseTag(), in)
}

func TestRecordBallot(t *testing.T) {
	voter := "0xAbC0000000000000000000000000000000000001"
	tag, err := ApplyVote(baseTag(), entity.VoteUp)
	require.NoError(t, err)
	RecordBallot(&tag, voter)
	assert.Equal(t, []string{voter}, tag.Voters)
	assert.True(t, tag.ViewFor(voter).Upvoted)
	assert.False(t, tag.ViewFor("0x0000000000000000000000000000000000000002").Upvoted)

	tag, err = ApplyVote(tag.ViewFor(voter), entity.VoteUp)
	require.NoError(t, err)
	RecordBallot(&tag, voter)
	assert.Empty(t, tag.Voters)
	assert.Empty(t, tag.Ballots)
}
