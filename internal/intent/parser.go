// Package intent turns user text into a command batch. Parsers are tried as
// tiers: cheap local matching first, the LLM last.
package intent

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/commands"
	"github.com/rafabd1/Paleta/internal/types"
)

var (
	// ErrParserUnavailable means the parser could not be reached or did not
	// produce a usable answer.
	ErrParserUnavailable = errors.New("intent parser unavailable")

	// ErrNoMatch tells a Chain to try the next tier.
	ErrNoMatch = errors.New("no intent matched")
)

// Parser maps text plus desktop context to a batch. A batch with
// NeedsClarification set asks the user to confirm or correct the text.
type Parser interface {
	Parse(ctx context.Context, text string, snap types.Snapshot) (*commands.Batch, error)
}

// ClarifyUnknown is the reason used when no tier understood the text.
const ClarifyUnknown = "Could not understand the command"

// Chain tries each tier in order until one returns something other than
// ErrNoMatch.
type Chain struct {
	tiers  []Parser
	logger *zap.Logger
}

func NewChain(logger *zap.Logger, tiers ...Parser) *Chain {
	return &Chain{tiers: tiers, logger: logger}
}

func (c *Chain) Parse(ctx context.Context, text string, snap types.Snapshot) (*commands.Batch, error) {
	for i, tier := range c.tiers {
		b, err := tier.Parse(ctx, text, snap)
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		if err == nil {
			c.logger.Debug("intent parsed", zap.Int("tier", i), zap.Int("commands", len(b.Commands)))
		}
		return b, err
	}
	return &commands.Batch{NeedsClarification: true, ClarificationReason: ClarifyUnknown}, nil
}
