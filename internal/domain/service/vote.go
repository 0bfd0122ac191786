package service

import (
	"fmt"

	"onchain-intel/internal/domain/entity"
)

// ApplyVote returns the tag after a vote in the given direction.
// Casting the active direction again retracts it. Casting the opposite direction
// moves the vote. Counters never drop below zero. Official tags are rejected.
func ApplyVote(tag entity.Tag, direction entity.VoteDirection) (entity.Tag, error) {
	if tag.IsOfficial {
		return tag, fmt.Errorf("failed to vote on tag %s: %w", tag.ID, entity.ErrImmutableTarget)
	}
	if !direction.IsValid() {
		return tag, fmt.Errorf("unknown vote direction %q: %w", direction, entity.ErrInvalidInput)
	}

	out := tag.Clone()
	wasUp, wasDown := tag.Upvoted, tag.Downvoted

	switch direction {
	case entity.VoteUp:
		if wasUp {
			out.Upvotes = decrement(out.Upvotes)
		} else {
			out.Upvotes++
		}
		if wasDown {
			out.Downvotes = decrement(out.Downvotes)
		}
		out.Upvoted = !wasUp
		out.Downvoted = false
	case entity.VoteDown:
		if wasDown {
			out.Downvotes = decrement(out.Downvotes)
		} else {
			out.Downvotes++
		}
		if wasUp {
			out.Upvotes = decrement(out.Upvotes)
		}
		out.Downvoted = !wasDown
		out.Upvoted = false
	}

	return out, nil
}

// RecordBallot stores the voter's resulting vote state on the tag and keeps the voter list current
func RecordBallot(tag *entity.Tag, identity string) {
	voter := entity.CanonicalAddress(identity)
	if tag.Ballots == nil {
		tag.Ballots = make(map[string]entity.VoteDirection)
	}
	switch {
	case tag.Upvoted:
		tag.Ballots[voter] = entity.VoteUp
	case tag.Downvoted:
		tag.Ballots[voter] = entity.VoteDown
	default:
		delete(tag.Ballots, voter)
	}

	voters := tag.Voters[:0:0]
	for _, v := range tag.Voters {
		if entity.CanonicalAddress(v) != voter {
			voters = append(voters, v)
		}
	}
	if tag.Upvoted {
		voters = append(voters, identity)
	}
	tag.Voters = voters
}

func decrement(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return n - 1
}
