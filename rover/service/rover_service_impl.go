package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/marsrover/rover/engine"
	"github.com/wricardo/marsrover/rover/journal"
	"github.com/wricardo/marsrover/telemetry"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var tracer = otel.Tracer("github.com/wricardo/marsrover/rover/service")

// roverServiceImpl implements the RoverService interface
type roverServiceImpl struct {
	rover   *engine.Rover
	mu      sync.Locker
	journal journal.Journal
	events  EventPublisher
	logger  *log.Logger
}

// NewRoverService creates a new rover service instance
func NewRoverService(deps Dependencies) (RoverService, error) {
	if deps.Rover == nil {
		return nil, errors.New("rover is required")
	}

	s := &roverServiceImpl{
		rover:   deps.Rover,
		mu:      deps.Lock,
		journal: deps.Journal,
		events:  deps.Events,
		logger:  deps.Logger,
	}
	if s.mu == nil {
		s.mu = &sync.Mutex{}
	}
	if s.journal == nil {
		s.journal = journal.NewMemoryJournal(journal.DefaultCapacity)
	}
	if s.events == nil {
		s.events = NopPublisher{}
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// Execute runs a command batch under the rover lock
func (s *roverServiceImpl) Execute(ctx context.Context, commands string) (*BatchResult, error) {
	count := utf8.RuneCountInString(commands)
	if count > engine.MaxBatchCommands {
		return nil, fmt.Errorf("%w: %d commands, limit is %d", ErrBatchTooLarge, count, engine.MaxBatchCommands)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "rover.execute", trace.WithAttributes(
		attribute.Int("rover.requested_commands", count),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Once the lock is held every step is journaled and published, even if
	// ctx is canceled mid-batch.
	auditCtx := context.WithoutCancel(ctx)

	r := s.rover
	result := &BatchResult{
		RequestedCommands: count,
		Success:           true,
		StartPos:          r.Position,
		StartDirection:    r.Direction,
		Steps:             make([]StepInfo, 0, count),
	}

	engine.Run(r, commands, func(step engine.Step) {
		entry := &engine.MoveHistoryEntry{
			Command:       string(step.Command),
			From:          step.From,
			To:            r.Position,
			FromDirection: step.FromDirection,
			ToDirection:   r.Direction,
			Success:       step.Err == nil,
			Timestamp:     time.Now(),
		}
		if step.Err != nil {
			entry.Error = step.Err.Error()
		}
		s.record(auditCtx, entry)

		if step.Err != nil {
			s.stop(auditCtx, result, step.Index, step.Command, step.Err)
			return
		}
		s.applied(auditCtx, result, step)
	})

	result.EndPos = r.Position
	result.EndDirection = r.Direction
	result.State = r.State()
	result.Rendered = r.String()

	outcome := "completed"
	if !result.Success {
		outcome = result.StopReasonCode
		span.SetStatus(codes.Error, result.StoppedReason)
	}
	telemetry.BatchesTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int("rover.commands_executed", result.CommandsExecuted),
		attribute.Int("rover.pole_crossings", result.PoleCrossings),
	)

	s.logger.Debug("batch executed",
		"requested", result.RequestedCommands,
		"executed", result.CommandsExecuted,
		"stop", result.StopReasonCode,
		"position", result.EndPos.String(),
		"direction", result.EndDirection)

	return result, nil
}

// applied adds a successful step to result and publishes its events
func (s *roverServiceImpl) applied(ctx context.Context, result *BatchResult, step engine.Step) {
	r := s.rover
	cmd := engine.Command(step.Command)
	info := StepInfo{
		Idx:           step.Index,
		Command:       cmd.String(),
		From:          step.From,
		To:            r.Position,
		FromDirection: step.FromDirection,
		ToDirection:   r.Direction,
		PoleCrossed:   !cmd.IsTurn() && step.FromDirection != r.Direction,
	}
	result.Steps = append(result.Steps, info)
	result.CommandsExecuted++
	telemetry.CommandsTotal.WithLabelValues(cmd.Name(), "ok").Inc()

	if cmd.IsTurn() {
		s.publish(ctx, EventTurned, cmd.String(), "")
		return
	}
	s.publish(ctx, EventMoved, cmd.String(), "")
	if info.PoleCrossed {
		result.PoleCrossings++
		telemetry.PoleCrossingsTotal.Inc()
		s.publish(ctx, EventPoleCrossed, cmd.String(), fmt.Sprintf("crossed pole, now facing %s", r.Direction))
	}
}

// stop fills the failure fields of result for the command at idx
func (s *roverServiceImpl) stop(ctx context.Context, result *BatchResult, idx int, c rune, err error) {
	result.Success = false
	result.StoppedOnCommand = idx
	result.StoppedReason = err.Error()

	var obstacle *engine.ObstacleError
	switch {
	case errors.As(err, &obstacle):
		result.StopReasonCode = StopObstacle
		telemetry.CommandsTotal.WithLabelValues(engine.Command(c).Name(), StopObstacle).Inc()
		telemetry.ObstaclesTotal.WithLabelValues(obstacle.Heading.String()).Inc()
		s.publish(ctx, EventObstacle, string(c), err.Error())
		s.logger.Info("obstacle detected", "command", string(c), "target", obstacle.Target.String(), "heading", obstacle.Heading)
	case errors.Is(err, engine.ErrUnrecognizedCommand):
		result.StopReasonCode = StopUnrecognizedCommand
		telemetry.CommandsTotal.WithLabelValues("unknown", StopUnrecognizedCommand).Inc()
		s.logger.Debug("unrecognized command", "command", fmt.Sprintf("%q", c), "index", idx)
	}
}

func (s *roverServiceImpl) record(ctx context.Context, entry *engine.MoveHistoryEntry) {
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to journal move", "command", entry.Command, "error", err)
	}
}

func (s *roverServiceImpl) publish(ctx context.Context, eventType, command, message string) {
	event := Event{
		Type:      eventType,
		Command:   command,
		Position:  s.rover.Position,
		Direction: s.rover.Direction,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

// State returns a snapshot of the rover
func (s *roverServiceImpl) State(ctx context.Context) (*engine.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.rover.State()
	return &state, nil
}

// History returns a page of the move journal
func (s *roverServiceImpl) History(ctx context.Context, opts HistoryOptions) (*HistoryResponse, error) {
	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}
	if opts.Order != "asc" && opts.Order != "desc" {
		return nil, ErrInvalidOrder
	}

	total, err := s.journal.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count moves: %w", err)
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	// Pages past the end are empty. Checking first also keeps the offset
	// below total, so it cannot overflow for huge page numbers.
	var moves []engine.MoveHistoryEntry
	if opts.Page <= totalPages {
		moves, err = s.journal.List(ctx, (opts.Page-1)*opts.Limit, opts.Limit, opts.Order == "desc")
		if err != nil {
			return nil, fmt.Errorf("failed to list moves: %w", err)
		}
	}
	if moves == nil {
		moves = []engine.MoveHistoryEntry{}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}
