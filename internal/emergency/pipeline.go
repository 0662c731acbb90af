package emergency

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"haven/internal/adapters"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/audit"
	"haven/pkg/platform/sentinel"
)

// execute runs the pipeline from capture to completion. Stage order is
// fixed; each stage gets a bounded number of attempts and the run fails at
// the first stage that exhausts them. Wiping is only ever reached after
// the upload produced a definite outcome; on upload failure the pipeline
// stops before it, deliberately retaining the local evidence.
func (s *Service) execute(run *Run) {
	ctx, span := s.tracer.Start(context.Background(), "emergency.pipeline",
		trace.WithAttributes(
			attribute.String("run_id", run.ID.String()),
			attribute.Bool("covert", run.Covert),
		))
	defer span.End()

	var media *adapters.MediaHandle
	err := s.attemptStage(ctx, run, domain.StageCapturing, func(c context.Context) error {
		h, err := s.ports.Capture.StartCapture(c)
		if err != nil {
			return err
		}
		if err := s.ports.Capture.StopCapture(c, h); err != nil {
			return err
		}
		media = h
		return nil
	})
	if err != nil {
		s.failRun(ctx, run, domain.StageCapturing, err)
		return
	}
	s.mu.Lock()
	run.Media = media
	s.mu.Unlock()

	if err := s.runStage(ctx, run, domain.StageEncrypting, func(c context.Context) error {
		return s.ports.Sealer.Seal(c, media)
	}); err != nil {
		s.failRun(ctx, run, domain.StageEncrypting, err)
		return
	}

	var receipt string
	if err := s.runStage(ctx, run, domain.StageUploading, func(c context.Context) error {
		r, err := s.ports.Vault.Upload(c, media)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}); err != nil {
		// Upload never confirmed durable custody, so the wipe stage is
		// skipped entirely and the evidence stays on device.
		if s.m != nil {
			s.m.EvidenceRetained.Inc()
		}
		s.logger.Warn("upload exhausted retries, retaining local evidence",
			"run_id", run.ID, "media_id", media.ID)
		s.failRun(ctx, run, domain.StageUploading, err)
		return
	}
	s.mu.Lock()
	run.Receipt = receipt
	s.mu.Unlock()

	if err := s.runStage(ctx, run, domain.StageNotifying, func(c context.Context) error {
		return s.notifyAll(c, run, receipt)
	}); err != nil {
		s.failRun(ctx, run, domain.StageNotifying, err)
		return
	}

	if err := s.runStage(ctx, run, domain.StageWiping, func(c context.Context) error {
		err := s.ports.Wiper.Wipe(c, media)
		if errors.Is(err, sentinel.ErrAlreadyGone) {
			// Distinguishable success: nothing left to destroy.
			s.logger.Info("evidence already gone at wipe", "run_id", run.ID, "media_id", media.ID)
			return nil
		}
		return err
	}); err != nil {
		s.failRun(ctx, run, domain.StageWiping, err)
		return
	}

	s.mu.Lock()
	run.Media = nil
	run.Stage = domain.StageCompleted
	run.UpdatedAt = s.clk.Now()
	s.mu.Unlock()

	if err := s.core.NoteTerminal(ctx, run.ID, audit.OutcomeCompleted); err != nil {
		s.logger.Error("terminal note failed", "run_id", run.ID, "error", err)
	}
	s.logger.Info("emergency run completed", "run_id", run.ID)
}

// runStage advances the run to stage and executes it with the retry
// policy.
func (s *Service) runStage(ctx context.Context, run *Run, stage domain.Stage, fn func(context.Context) error) error {
	s.mu.Lock()
	run.Stage = stage
	run.UpdatedAt = s.clk.Now()
	s.mu.Unlock()

	if err := s.core.NoteStage(ctx, run.ID, stage); err != nil {
		s.logger.Error("stage note failed", "run_id", run.ID, "stage", stage, "error", err)
	}
	return s.attemptStage(ctx, run, stage, fn)
}

// attemptStage executes one stage with a per-attempt timeout and up to
// StageRetries retries under exponential backoff with jitter. The returned
// error is coded by failure class: deadline expiry is an adapter timeout,
// anything else an adapter error.
func (s *Service) attemptStage(ctx context.Context, run *Run, stage domain.Stage, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "stage."+string(stage))
	defer span.End()

	start := s.clk.Now()
	var lastErr error
	for attempt := 0; attempt <= s.cfg.StageRetries; attempt++ {
		if attempt > 0 {
			if s.m != nil {
				s.m.StageRetries.WithLabelValues(string(stage)).Inc()
			}
			s.backoff(attempt)
		}
		s.mu.Lock()
		run.Attempts[stage]++
		s.mu.Unlock()

		stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
		err := fn(stageCtx)
		cancel()
		if err == nil {
			if s.m != nil {
				s.m.StageDuration.WithLabelValues(string(stage)).Observe(s.clk.Now().Sub(start).Seconds())
			}
			span.SetAttributes(attribute.Int("attempts", attempt+1))
			return nil
		}
		lastErr = err
		s.logger.Warn("stage attempt failed",
			"run_id", run.ID, "stage", stage, "attempt", attempt+1, "error", err)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, fmt.Sprintf("%s exhausted %d attempts", stage, s.cfg.StageRetries+1))
	if s.m != nil {
		s.m.StageFailures.WithLabelValues(string(stage)).Inc()
		s.m.StageDuration.WithLabelValues(string(stage)).Observe(s.clk.Now().Sub(start).Seconds())
	}
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return derrors.Wrap(lastErr, derrors.CodeAdapterTimeout, string(stage)+" timed out")
	}
	return derrors.Wrap(lastErr, derrors.CodeAdapterError, string(stage)+" failed")
}

func (s *Service) backoff(attempt int) {
	if s.cfg.RetryBackoff <= 0 {
		return
	}
	d := s.cfg.RetryBackoff << (attempt - 1)
	d += rand.N(d/2 + 1)
	time.Sleep(d)
}

// notifyAll fans the escalation out to every contact concurrently, primary
// first in the recipient ordering. Delivery is at-least-once: a retried
// stage may re-send to contacts that already got the message, which is the
// right trade for an emergency.
func (s *Service) notifyAll(ctx context.Context, run *Run, receipt string) error {
	s.mu.Lock()
	recipients := s.recipientsLocked()
	s.mu.Unlock()
	if len(recipients) == 0 {
		s.logger.Warn("no emergency contacts configured, skipping notification", "run_id", run.ID)
		return nil
	}

	msg := adapters.Message{
		RunID:   run.ID.String(),
		Body:    "Emergency alert: evidence has been secured. Please check in immediately.",
		Receipt: receipt,
		Device:  s.device,
		SentAt:  s.clk.Now(),
	}
	if s.locate != nil {
		msg.Location = s.locate(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, rcpt := range recipients {
		g.Go(func() error {
			return s.ports.Notifier.Notify(gctx, []adapters.Recipient{rcpt}, msg)
		})
	}
	return g.Wait()
}

// failRun marks the run failed at stage and releases the mode. The media
// handle is kept on the run when it still exists locally, so the snapshot
// can report retained evidence.
func (s *Service) failRun(ctx context.Context, run *Run, stage domain.Stage, err error) {
	s.mu.Lock()
	run.Stage = domain.StageFailed
	run.FailedStage = stage
	run.UpdatedAt = s.clk.Now()
	s.mu.Unlock()

	s.logger.Error("emergency run failed",
		"run_id", run.ID, "failed_stage", stage, "error", err)
	if nerr := s.core.NoteTerminal(ctx, run.ID, audit.OutcomeFailed); nerr != nil {
		s.logger.Error("terminal note failed", "run_id", run.ID, "error", nerr)
	}
}
