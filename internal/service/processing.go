package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ticket-tagger/backend/internal/ai"
	"github.com/ticket-tagger/backend/internal/models"
	"github.com/ticket-tagger/backend/internal/tagging"
	"github.com/ticket-tagger/backend/internal/ticketfile"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// ErrorPolicy decides what a classifier failure does to the rest of the batch.
type ErrorPolicy string

const (
	AbortOnError    ErrorPolicy = "abort"
	ContinueOnError ErrorPolicy = "continue"
)

// RunRecorder keeps an audit trail of batch runs. db.Store implements it.
type RunRecorder interface {
	CreateRun(ctx context.Context, runID string, input, output string) error
	FinishRun(ctx context.Context, runID string, status string, summary []byte) error
}

type TaggingService struct {
	Classifier        ai.Classifier
	Categories        []models.Category
	Logger            zerolog.Logger
	OnClassifierError ErrorPolicy
	Recorder          RunRecorder
}

type RunSummary struct {
	RunID            string `json:"run_id"`
	Status           string `json:"status"`
	InputPath        string `json:"input_path"`
	OutputPath       string `json:"output_path"`
	Tickets          int    `json:"tickets"`
	Tagged           int    `json:"tagged"`
	Malformed        int    `json:"malformed"`
	ClassifierErrors int    `json:"classifier_errors"`
	ElapsedMs        int64  `json:"elapsed_ms"`
	Error            string `json:"error,omitempty"`
}

// ClassifierFailure reports the ticket whose classification aborted a run.
type ClassifierFailure struct {
	TicketID models.TicketID
	Err      error
}

func (e *ClassifierFailure) Error() string {
	return fmt.Sprintf("ticket %s: %v", e.TicketID, e.Err)
}

func (e *ClassifierFailure) Unwrap() error {
	return e.Err
}

func (s *TaggingService) categories() []models.Category {
	if len(s.Categories) == 0 {
		return models.Categories
	}
	return s.Categories
}

// Run tags every ticket in inputPath, in order, and writes the full result
// list to outputPath once all tickets are done. Nothing is written when the
// input cannot be read or a classifier failure aborts the batch.
func (s *TaggingService) Run(ctx context.Context, inputPath, outputPath string) (RunSummary, error) {
	summary := RunSummary{
		RunID:      uuid.NewString(),
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
	logger := s.Logger.With().Str("run_id", summary.RunID).Logger()
	start := time.Now()

	if s.Recorder != nil {
		if err := s.Recorder.CreateRun(ctx, summary.RunID, inputPath, outputPath); err != nil {
			logger.Error().Err(err).Msg("failed to create run")
		}
	}

	results, err := s.tagAll(ctx, logger, inputPath, &summary)
	if err == nil {
		err = ticketfile.Write(outputPath, results)
	}

	summary.ElapsedMs = time.Since(start).Milliseconds()
	summary.Status = StatusSuccess
	if err != nil {
		summary.Status = StatusFailed
		summary.Error = err.Error()
	}
	s.finish(ctx, logger, summary)

	if err != nil {
		logger.Error().Err(err).Str("stage", "aborted").Msg("tagging run failed")
		return summary, err
	}
	logger.Info().
		Str("stage", "written").
		Str("output", outputPath).
		Int("tickets", summary.Tickets).
		Int("malformed", summary.Malformed).
		Int("classifier_errors", summary.ClassifierErrors).
		Int64("elapsed_ms", summary.ElapsedMs).
		Msg("tagged tickets saved")
	return summary, nil
}

func (s *TaggingService) tagAll(ctx context.Context, logger zerolog.Logger, inputPath string, summary *RunSummary) ([]models.TagAssignment, error) {
	tickets, err := ticketfile.Load(inputPath)
	if err != nil {
		return nil, err
	}
	summary.Tickets = len(tickets)
	logger.Info().Str("input", inputPath).Int("count", len(tickets)).Msg("tickets loaded")

	allowed := tagging.NewCategorySet(s.categories())
	results := make([]models.TagAssignment, 0, len(tickets))
	for _, t := range tickets {
		tlog := logger.With().Str("ticket_id", t.ID.String()).Logger()
		tlog.Info().Str("stage", "classifying").Msg("tagging ticket")

		res, err := s.classify(ctx, t.Message, allowed)
		if err != nil {
			if s.OnClassifierError != ContinueOnError {
				return nil, &ClassifierFailure{TicketID: t.ID, Err: err}
			}
			summary.ClassifierErrors++
			tlog.Error().Err(err).Str("stage", "classifying").Str("outcome", "classifier_error").Msg("classification failed, continuing")
			results = append(results, models.TagAssignment{ID: t.ID, Message: t.Message, Tags: []models.Category{}})
			continue
		}

		if res.Outcome == tagging.Malformed {
			summary.Malformed++
			tlog.Warn().
				Str("stage", "validating").
				Str("outcome", string(res.Outcome)).
				Str("reason", res.Reason).
				Str("raw", res.Raw).
				Msg("unexpected model response")
		} else {
			summary.Tagged++
			tlog.Debug().Str("stage", "recorded").Interface("tags", res.Tags).Msg("ticket tagged")
		}
		results = append(results, models.TagAssignment{ID: t.ID, Message: t.Message, Tags: res.TagsOrEmpty()})
	}
	return results, nil
}

func (s *TaggingService) classify(ctx context.Context, message string, allowed tagging.CategorySet) (tagging.Result, error) {
	prompt := tagging.BuildPrompt(message, s.categories())
	raw, err := s.Classifier.Classify(ctx, prompt)
	if err != nil {
		var te *ai.TransportError
		if !errors.As(err, &te) {
			err = &ai.TransportError{Err: err}
		}
		return tagging.Result{}, err
	}
	return tagging.ParseTags(raw, allowed), nil
}

// ClassifyMessage runs a single message through prompt, classifier and
// validation without touching any file.
func (s *TaggingService) ClassifyMessage(ctx context.Context, message string) (tagging.Result, error) {
	return s.classify(ctx, message, tagging.NewCategorySet(s.categories()))
}

func (s *TaggingService) finish(ctx context.Context, logger zerolog.Logger, summary RunSummary) {
	if s.Recorder == nil {
		return
	}
	b, _ := json.Marshal(summary)
	if err := s.Recorder.FinishRun(ctx, summary.RunID, summary.Status, b); err != nil {
		logger.Error().Err(err).Msg("failed to finish run")
	}
}
