package journal

import (
	"context"
	"fmt"
	"time"

	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/id"
	"stockflow/pkg/logger"
)

// Repository appends postings and reads them back.
type Repository interface {
	Insert(ctx context.Context, p *Posting) error
	List(ctx context.Context, filter Filter) ([]Posting, error)
}

// Filter narrows List.
type Filter struct {
	RefType string
	RefID   *id.ID
	Limit   int
}

// Poster writes postings. It must be called inside the document's
// transaction so a failed posting rolls the document back.
type Poster struct {
	repo Repository
}

// NewPoster creates a journal poster.
func NewPoster(repo Repository) *Poster {
	return &Poster{repo: repo}
}

// Post appends the payload as derived. Zero amounts are skipped.
func (p *Poster) Post(ctx context.Context, payload Payload, action Action) (*Posting, error) {
	return p.write(ctx, payload, action, false)
}

// Reverse appends the payload with debit and credit exchanged, cancelling an
// earlier Post of the same payload.
func (p *Poster) Reverse(ctx context.Context, payload Payload, action Action) (*Posting, error) {
	return p.write(ctx, payload.Swapped(), action, true)
}

// List returns postings for a reference.
func (p *Poster) List(ctx context.Context, filter Filter) ([]Posting, error) {
	if filter.Limit <= 0 {
		filter.Limit = 200
	}
	return p.repo.List(ctx, filter)
}

func (p *Poster) write(ctx context.Context, payload Payload, action Action, reversal bool) (*Posting, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if payload.Amount.IsZero() {
		logger.Debug(ctx, "journal posting skipped: zero amount",
			"ref_type", payload.RefType,
			"ref_id", payload.RefID,
			"action", action,
		)
		return nil, nil
	}

	posting := &Posting{
		ID:              id.New(),
		Date:            payload.Date,
		RefType:         payload.RefType,
		RefID:           payload.RefID,
		DebitAccountID:  payload.DebitAccountID,
		CreditAccountID: payload.CreditAccountID,
		Amount:          payload.Amount,
		Description:     payload.Description,
		Action:          action,
		Reversal:        reversal,
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       appctx.ActorPtr(ctx),
	}
	if err := p.repo.Insert(ctx, posting); err != nil {
		return nil, fmt.Errorf("insert journal posting: %w", err)
	}

	logger.Info(ctx, "journal posted",
		"ref_type", posting.RefType,
		"ref_id", posting.RefID,
		"action", action,
		"reversal", reversal,
		"amount", posting.Amount.String(),
	)
	return posting, nil
}
