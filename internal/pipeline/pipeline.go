package pipeline

import (
	"context"

	"go.uber.org/zap"

	"ticket2ics/internal/models"
	"ticket2ics/internal/storage"
)

// Normalizer prepares raw image bytes for recognition.
type Normalizer interface {
	Process(raw []byte) ([]byte, error)
}

// Extractor turns a normalized image into structured ticket data.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (*models.TicketData, error)
}

// Generator turns ticket data into calendar bytes.
type Generator interface {
	Generate(ticket *models.TicketData) ([]byte, error)
}

// Outcome is the tagged result of one pipeline run: either Ticket is
// set and Status is completed, or Err is set and Status is failed.
type Outcome struct {
	Status models.TaskStatus
	Ticket *models.TicketData
	Err    error
}

// Pipeline runs normalize → extract → generate over one submission
// and persists artifacts through the task store. It exposes the same
// computation in two modes: Submit detaches the run onto the worker
// pool and records durable status transitions; Run executes inline
// and persists only the artifacts, never a status record.
type Pipeline struct {
	store      storage.TaskStore
	normalizer Normalizer
	extractor  Extractor
	generator  Generator
	pool       *WorkerPool
	logger     *zap.Logger
}

func New(store storage.TaskStore, normalizer Normalizer, extractor Extractor, generator Generator, pool *WorkerPool, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		normalizer: normalizer,
		extractor:  extractor,
		generator:  generator,
		pool:       pool,
		logger:     logger,
	}
}

// Submit allocates a task, marks it processing and schedules the
// pipeline on the worker pool. It returns the task id as soon as the
// record and raw image are durable; callers observe progress through
// Result. The scheduled run cannot be cancelled by the caller.
func (p *Pipeline) Submit(ctx context.Context, filename string, image []byte) (string, error) {
	id, err := p.store.CreateTask(ctx, filename, image)
	if err != nil {
		return "", err
	}
	if err := p.store.WriteStatus(ctx, id, models.StatusProcessing, nil, ""); err != nil {
		return "", err
	}

	// Detach from the request context so an early client disconnect
	// does not abort the scheduled run.
	runCtx := context.WithoutCancel(ctx)
	p.pool.Submit(runCtx, func(ctx context.Context) {
		outcome := p.execute(ctx, id, image)
		p.persistOutcome(ctx, id, outcome)
	})

	return id, nil
}

// Run executes the pipeline inline and returns the terminal outcome.
// Result and calendar artifacts are persisted so a later calendar
// fetch succeeds, but no status record is ever written: ReadStatus on
// a sync-only task reports not found even after success.
func (p *Pipeline) Run(ctx context.Context, filename string, image []byte) (string, Outcome, error) {
	id, err := p.store.CreateTask(ctx, filename, image)
	if err != nil {
		return "", Outcome{}, err
	}
	return id, p.execute(ctx, id, image), nil
}

// Result reads the durable status record for an id.
func (p *Pipeline) Result(ctx context.Context, id string) (*models.TaskRecord, error) {
	return p.store.ReadStatus(ctx, id)
}

// CalendarPath reports where the generated calendar artifact lives.
func (p *Pipeline) CalendarPath(ctx context.Context, id string) (string, error) {
	return p.store.CalendarPath(ctx, id)
}

// Drain blocks until every scheduled run has finished.
func (p *Pipeline) Drain() {
	p.pool.Wait()
}

// execute runs the three stages sequentially. A failure at any stage
// short-circuits the rest and classifies the task as failed; no stage
// is ever retried.
func (p *Pipeline) execute(ctx context.Context, id string, image []byte) Outcome {
	normalized, err := p.normalizer.Process(image)
	if err != nil {
		p.logger.Warn("Image normalization failed", zap.String("task_id", id), zap.Error(err))
		return Outcome{Status: models.StatusFailed, Err: err}
	}

	ticket, err := p.extractor.Extract(ctx, normalized)
	if err != nil {
		p.logger.Warn("Ticket recognition failed", zap.String("task_id", id), zap.Error(err))
		return Outcome{Status: models.StatusFailed, Err: err}
	}
	ticket.ID = id

	if err := p.store.WriteResult(ctx, id, ticket); err != nil {
		p.logger.Error("Failed to persist result", zap.String("task_id", id), zap.Error(err))
		return Outcome{Status: models.StatusFailed, Err: err}
	}

	calendar, err := p.generator.Generate(ticket)
	if err != nil {
		p.logger.Warn("Calendar generation failed", zap.String("task_id", id), zap.Error(err))
		return Outcome{Status: models.StatusFailed, Err: err}
	}
	if err := p.store.WriteCalendar(ctx, id, calendar); err != nil {
		p.logger.Error("Failed to persist calendar", zap.String("task_id", id), zap.Error(err))
		return Outcome{Status: models.StatusFailed, Err: err}
	}

	p.logger.Info("Task completed",
		zap.String("task_id", id),
		zap.String("type", string(ticket.Type)),
		zap.Float64("confidence", ticket.Confidence),
	)
	return Outcome{Status: models.StatusCompleted, Ticket: ticket}
}

// persistOutcome records the terminal status transition for an
// asynchronous run. The record only ever moves processing→completed
// or processing→failed; a non-terminal outcome is never written, so
// a terminal record cannot transition backward.
func (p *Pipeline) persistOutcome(ctx context.Context, id string, outcome Outcome) {
	if !outcome.Status.Terminal() {
		p.logger.Error("Refusing to persist non-terminal outcome",
			zap.String("task_id", id),
			zap.String("status", string(outcome.Status)),
		)
		return
	}

	errMsg := ""
	if outcome.Err != nil {
		errMsg = outcome.Err.Error()
	}
	if err := p.store.WriteStatus(ctx, id, outcome.Status, outcome.Ticket, errMsg); err != nil {
		p.logger.Error("Failed to persist task status", zap.String("task_id", id), zap.Error(err))
	}
}
