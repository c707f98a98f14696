// Package agent ties text input to execution: it parses a submission,
// either runs it or asks for clarification, and publishes the outcome to
// the shared store for the front-ends to collect.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/Paleta/internal/clarify"
	"github.com/rafabd1/Paleta/internal/engine"
	"github.com/rafabd1/Paleta/internal/intent"
	"github.com/rafabd1/Paleta/internal/store"
	"github.com/rafabd1/Paleta/internal/types"
)

// ErrEmptyCommand rejects blank submissions.
var ErrEmptyCommand = errors.New("command text is empty")

const defaultTimeout = 60 * time.Second

// Journal records submissions for suggestion history.
type Journal interface {
	RecordSubmission(ctx context.Context, text string) error
}

type Option func(*Agent)

func WithJournal(j Journal) Option {
	return func(a *Agent) { a.journal = j }
}

// WithTimeout bounds parsing a submission. A batch that has started runs
// to completion regardless.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) { a.timeout = d }
}

// Agent processes submissions one at a time. The engine lease taken in
// Submit is held through parsing and execution, so a second submission
// made meanwhile is rejected with engine.ErrEngineBusy.
type Agent struct {
	engine    *engine.Engine
	parser    intent.Parser
	store     *store.Store
	clarifier *clarify.Machine
	journal   Journal
	logger    *zap.Logger
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, eng *engine.Engine, parser intent.Parser, st *store.Store, logger *zap.Logger, opts ...Option) *Agent {
	ctx, cancel := context.WithCancel(ctx)
	a := &Agent{
		engine:    eng,
		parser:    parser,
		store:     st,
		clarifier: clarify.New(),
		logger:    logger,
		timeout:   defaultTimeout,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit starts processing text and returns the submission ID. It fails
// fast with engine.ErrEngineBusy while another submission is in flight.
// A pending clarification is superseded.
func (a *Agent) Submit(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCommand
	}
	lease, err := a.engine.Acquire()
	if err != nil {
		return "", err
	}
	if _, pending := a.clarifier.Pending(); pending {
		a.logger.Info("new submission supersedes pending clarification")
	}
	a.clarifier.Reset()
	a.store.Clarifications.Discard()
	return a.start(lease, text), nil
}

// Clarification returns the request being awaited, if any.
func (a *Agent) Clarification() (types.Clarification, bool) {
	return a.clarifier.Pending()
}

// ResolveClarification answers the pending clarification. A cancellation
// runs nothing and returns an empty ID. Corrected text is processed like a
// fresh submission, and may itself need clarification.
func (a *Agent) ResolveClarification(r clarify.Resolution) (string, error) {
	if r.Cancel {
		if _, err := a.clarifier.Resolve(r); err != nil {
			return "", err
		}
		a.store.Clarifications.Discard()
		a.logger.Info("clarification cancelled")
		return "", nil
	}

	lease, err := a.engine.Acquire()
	if err != nil {
		return "", err
	}
	text, err := a.clarifier.Resolve(r)
	if err != nil {
		lease.Release()
		return "", err
	}
	a.store.Clarifications.Discard()
	return a.start(lease, text), nil
}

func (a *Agent) start(lease *engine.Lease, text string) string {
	id := uuid.NewString()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer lease.Release()
		a.process(lease, id, text)
	}()
	return id
}

func (a *Agent) process(lease *engine.Lease, id, text string) {
	ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
	defer cancel()
	// once parsed, the batch is never cancelled
	runCtx := context.WithoutCancel(a.ctx)
	log := a.logger.With(zap.String("id", id))
	log.Info("processing submission", zap.String("text", text))

	if a.journal != nil {
		if err := a.journal.RecordSubmission(ctx, text); err != nil {
			log.Warn("could not record submission", zap.Error(err))
		}
	}

	batch, err := a.parser.Parse(ctx, text, a.engine.Snapshot(ctx))
	if err != nil {
		log.Warn("parse failed", zap.Error(err))
		a.publish(id, types.Failure(parseFailure(err)))
		return
	}
	if batch.NeedsClarification {
		c := a.clarifier.Request(text, batch.ClarificationReason)
		a.store.Clarifications.Put(c)
		log.Info("clarification requested", zap.String("reason", c.Reason))
		return
	}
	a.publish(id, lease.Run(runCtx, batch))
}

// publish overwrites whatever result is still unread.
func (a *Agent) publish(id string, res types.Result) {
	res.ID = id
	a.store.Results.Put(res)
}

func parseFailure(err error) string {
	if errors.Is(err, intent.ErrParserUnavailable) {
		return "Could not interpret the command: " + err.Error()
	}
	return "Invalid command: " + err.Error()
}

// Wait blocks until every in-flight submission has published.
func (a *Agent) Wait() {
	a.wg.Wait()
}

// Close abandons in-flight parsing and waits for running batches to finish.
func (a *Agent) Close() {
	a.cancel()
	a.wg.Wait()
}
