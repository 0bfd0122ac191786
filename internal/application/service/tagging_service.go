package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	"onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

const (
	voteHistoryDays   = 30
	voteHistoryLayout = "2006-01-02"
	maxTagTextLength  = 64
)

// TaggingService submits community tags and votes through the ledger and
// commits them locally once the ledger confirms them
type TaggingService struct {
	store  repository.AddressRepository
	ledger service.Ledger
	now    func() time.Time
	newID  func() string
	logger *logger.Logger
}

// NewTaggingService creates a new tagging service
func NewTaggingService(store repository.AddressRepository, ledger service.Ledger, logger *logger.Logger) *TaggingService {
	return &TaggingService{
		store:  store,
		ledger: ledger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		logger: logger.WithComponent("tagging-service"),
	}
}

// Vote casts identity's vote on a community tag of a record.
// The record changes only after the ledger reports success.
func (s *TaggingService) Vote(ctx context.Context, identity, recordID, tagID string, direction entity.VoteDirection) (*entity.Tag, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, entity.ErrAuthorizationRequired
	}
	if !direction.IsValid() {
		return nil, fmt.Errorf("unknown vote direction %q: %w", direction, entity.ErrInvalidInput)
	}

	rec, err := s.store.Get(recordID)
	if err != nil {
		return nil, err
	}
	if isOfficialTagID(rec, tagID) {
		return nil, fmt.Errorf("failed to vote on tag %s: %w", tagID, entity.ErrImmutableTarget)
	}
	idx := rec.FindTag(tagID)
	if idx < 0 {
		return nil, fmt.Errorf("tag %s on %s: %w", tagID, recordID, entity.ErrTagNotFound)
	}

	// Validate against the current snapshot before spending anything on the ledger.
	if _, err := service.ApplyVote(rec.CommunityTags[idx].ViewFor(identity), direction); err != nil {
		return nil, err
	}

	status, err := s.ledger.SubmitVote(ctx, rec.Address, direction)
	if err != nil {
		return nil, fmt.Errorf("failed to submit vote: %w", err)
	}
	if status != service.TxStatusSuccess {
		return nil, fmt.Errorf("vote transaction %s: %w", status, entity.ErrLedgerRejected)
	}

	var committed entity.Tag
	_, err = s.store.Update(recordID, func(r *entity.AddressRecord) error {
		i := r.FindTag(tagID)
		if i < 0 {
			return entity.ErrTagNotFound
		}
		next, err := service.ApplyVote(r.CommunityTags[i].ViewFor(identity), direction)
		if err != nil {
			return err
		}
		service.RecordBallot(&next, identity)
		next.VoteHistory = recordVoteHistory(next.VoteHistory, s.now(), next.Upvotes)
		r.CommunityTags[i] = next
		committed = next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit vote on %s: %w", tagID, err)
	}

	s.logger.Info("Vote committed",
		zap.String("record_id", recordID),
		zap.String("tag_id", tagID),
		zap.String("direction", string(direction)),
		zap.Uint64("upvotes", committed.Upvotes),
		zap.Uint64("downvotes", committed.Downvotes))

	view := committed.ViewFor(identity)
	return &view, nil
}

// SubmitTag registers a new community tag on a record.
// An empty category is inferred from the text.
func (s *TaggingService) SubmitTag(ctx context.Context, identity, recordID, text string, category entity.TagCategory) (*entity.Tag, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, entity.ErrAuthorizationRequired
	}
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxTagTextLength {
		return nil, fmt.Errorf("tag text must be 1 to %d characters: %w", maxTagTextLength, entity.ErrInvalidInput)
	}
	if category == "" {
		category = service.Categorize(text)
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("unknown tag category %q: %w", category, entity.ErrInvalidInput)
	}

	rec, err := s.store.Get(recordID)
	if err != nil {
		return nil, err
	}
	if rec.HasTagText(text) {
		return nil, fmt.Errorf("tag %q on %s: %w", text, recordID, entity.ErrDuplicateTag)
	}

	if err := s.submitToLedger(ctx, rec.Address, text); err != nil {
		return nil, err
	}

	asset, _, _ := service.ExtractAsset(text)
	tag := entity.Tag{
		ID:          "ct-" + s.newID(),
		Text:        text,
		Category:    category,
		Asset:       asset,
		Upvotes:     1,
		Upvoted:     true,
		SubmittedBy: identity,
	}
	service.RecordBallot(&tag, identity)
	tag.VoteHistory = recordVoteHistory(nil, s.now(), tag.Upvotes)

	_, err = s.store.Update(recordID, func(r *entity.AddressRecord) error {
		if r.HasTagText(text) {
			return entity.ErrDuplicateTag
		}
		r.CommunityTags = append(r.CommunityTags, tag.Clone())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store tag on %s: %w", recordID, err)
	}

	s.logger.Info("Tag submitted",
		zap.String("record_id", recordID),
		zap.String("tag_id", tag.ID),
		zap.String("category", string(category)))
	return &tag, nil
}

func (s *TaggingService) submitToLedger(ctx context.Context, address, text string) error {
	cost, err := s.ledger.TagSubmitCost(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tag submit cost: %w", err)
	}
	allowance, err := s.ledger.Allowance(ctx, s.ledger.Account())
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}

	approved := false
	if allowance.Cmp(cost) < 0 {
		status, err := s.ledger.Approve(ctx, maxUint256())
		if err != nil {
			return fmt.Errorf("failed to approve tag registry: %w", err)
		}
		if status != service.TxStatusSuccess {
			return fmt.Errorf("approve transaction %s: %w", status, entity.ErrLedgerRejected)
		}
		approved = true
		s.logger.Debug("Tag registry approved", zap.String("account", s.ledger.Account()))
	}

	status, err := s.ledger.SubmitTag(ctx, address, text)
	if err == nil && status != service.TxStatusSuccess {
		err = fmt.Errorf("submit transaction %s: %w", status, entity.ErrLedgerRejected)
	}
	if err != nil {
		if approved {
			return &entity.PartialFailure{Step: "submit_tag", Err: err}
		}
		if errors.Is(err, entity.ErrLedgerRejected) {
			return err
		}
		return fmt.Errorf("failed to submit tag: %w", err)
	}
	return nil
}

func maxUint256() *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
}

func isOfficialTagID(rec *entity.AddressRecord, tagID string) bool {
	raw, ok := strings.CutPrefix(tagID, "official-")
	if !ok {
		return false
	}
	for _, t := range rec.OfficialTags {
		if t == raw {
			return true
		}
	}
	return false
}

// recordVoteHistory sets today's point to count and keeps the most recent days
func recordVoteHistory(history []entity.VotePoint, now time.Time, count uint64) []entity.VotePoint {
	today := now.UTC().Format(voteHistoryLayout)
	out := append([]entity.VotePoint(nil), history...)
	if n := len(out); n > 0 && out[n-1].Date == today {
		out[n-1].Count = int64(count)
	} else {
		out = append(out, entity.VotePoint{Date: today, Count: int64(count)})
	}
	if len(out) > voteHistoryDays {
		out = out[len(out)-voteHistoryDays:]
	}
	return out
}
