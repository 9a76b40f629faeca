// Package session owns the verification state machine: credential scan,
// per-identity training, live verification, and outcome dispatch.
//
// One session is active at a time. The camera and the trained classifier
// are owned exclusively by the active session and never outlive it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"facegate/internal/feedback"
	"facegate/internal/hardware"
	"facegate/internal/identity"
	"facegate/internal/notify"
	"facegate/internal/quota"
	"facegate/internal/recognize"
	"facegate/internal/record"
)

var sessionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "facegate_session_outcomes_total",
	Help: "Finished verification sessions, by outcome.",
}, []string{"outcome"})

// Params wires a Controller. Reader, Identities, Recognizer, Quota, Camera
// and Sink are required; Notifier and Recorder may be nil when the device
// runs without the respective channel.
type Params struct {
	Reader     hardware.CredentialReader
	Identities *identity.Store
	Recognizer *recognize.Recognizer
	Quota      *quota.Tracker
	Camera     hardware.Camera
	Sink       feedback.Sink
	Notifier   notify.Notifier
	Recorder   record.Recorder
	Logger     *slog.Logger

	// MaxFrames and MaxDuration bound the live verification loop; zero
	// means unbounded, which is the reference behavior.
	MaxFrames   int
	MaxDuration time.Duration
	// HoldDelay keeps terminal feedback on screen before the next session.
	HoldDelay time.Duration
}

// Controller runs verification sessions until cancelled or a fatal reader
// error occurs.
type Controller struct {
	reader     hardware.CredentialReader
	identities *identity.Store
	recognizer *recognize.Recognizer
	quota      *quota.Tracker
	camera     hardware.Camera
	sink       feedback.Sink
	notifier   notify.Notifier
	recorder   record.Recorder
	logger     *slog.Logger

	maxFrames   int
	maxDuration time.Duration
	holdDelay   time.Duration

	now func() time.Time
}

func NewController(p Params) *Controller {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		reader:      p.Reader,
		identities:  p.Identities,
		recognizer:  p.Recognizer,
		quota:       p.Quota,
		camera:      p.Camera,
		sink:        p.Sink,
		notifier:    p.Notifier,
		recorder:    p.Recorder,
		logger:      logger,
		maxFrames:   p.MaxFrames,
		maxDuration: p.MaxDuration,
		holdDelay:   p.HoldDelay,
		now:         time.Now,
	}
}

// Run loops sessions until the context is cancelled (orderly shutdown,
// returns nil) or the credential reader fails (returns the error).
func (c *Controller) Run(ctx context.Context) error {
	c.sink.Show(feedback.EventBoot)

	for {
		if ctx.Err() != nil {
			return nil
		}

		outcome, err := c.runSession(ctx)
		sessionOutcomes.WithLabelValues(outcome.Kind.String()).Inc()
		c.logger.Info("session finished", "outcome", outcome.Kind.String())

		if err != nil {
			c.sink.Show(feedback.EventReadError)
			return err
		}
		if outcome.Kind == OutcomeCancelled {
			return nil
		}

		c.wait(ctx, c.holdDelay)
	}
}

// runSession drives one credential-scan-to-outcome cycle. A non-nil error
// is fatal for the run; every recoverable condition is folded into the
// outcome.
func (c *Controller) runSession(ctx context.Context) (Outcome, error) {
	c.sink.Show(feedback.EventScanPrompt)

	credential, err := c.reader.Read(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Outcome{Kind: OutcomeCancelled}, nil
		}
		return Outcome{Kind: OutcomeReadFailure}, err
	}

	logger := c.logger.With("session", uuid.NewString(), "credential", credential)
	logger.Info("credential scanned")
	c.sink.Show(feedback.EventCardAccepted)

	id, err := c.identities.Resolve(credential)
	if err != nil {
		if errors.Is(err, identity.ErrUnknownCredential) {
			logger.Warn("unknown credential")
			c.sink.Show(feedback.EventAccessDenied)
			return Outcome{Kind: OutcomeDenied, Timestamp: c.now()}, nil
		}
		logger.Error("resolving identity", "error", err)
		c.sink.Show(feedback.EventAccessDenied)
		return Outcome{Kind: OutcomeDenied, Timestamp: c.now()}, nil
	}

	c.sink.Show(feedback.EventTraining)
	classifier, err := c.recognizer.Train(ctx, id.Images())
	if err != nil {
		if errors.Is(err, recognize.ErrNoEnrollmentData) {
			logger.Warn("no usable enrollment images")
			c.sink.Show(feedback.EventAccessDenied)
			return Outcome{Kind: OutcomeDenied, Timestamp: c.now()}, nil
		}
		logger.Error("training classifier", "error", err)
		c.sink.Show(feedback.EventAccessDenied)
		return Outcome{Kind: OutcomeDenied, Timestamp: c.now()}, nil
	}
	defer classifier.Close()
	logger.Info("classifier trained", "samples", classifier.Samples())

	frames, err := c.camera.Open(ctx)
	if err != nil {
		logger.Error("acquiring camera", "error", err)
		c.sink.Show(feedback.EventAccessDenied)
		return Outcome{Kind: OutcomeDenied, Timestamp: c.now()}, nil
	}
	// One acquisition per session; release on every exit path, the cancel
	// path included.
	defer frames.Close()

	return c.liveVerify(ctx, logger, id, classifier, frames), nil
}

// liveVerify polls frames until a terminal decision, a configured bound,
// or cancellation.
func (c *Controller) liveVerify(ctx context.Context, logger *slog.Logger, id *identity.Identity, classifier *recognize.Classifier, frames hardware.FrameSource) Outcome {
	c.sink.Show(feedback.EventVerifying)

	start := c.now()
	scored := 0
	for {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeCancelled}
		}
		if c.maxFrames > 0 && scored >= c.maxFrames {
			logger.Warn("frame bound reached without a match", "frames", scored)
			c.sink.Show(feedback.EventRetryPrompt)
			return Outcome{Kind: OutcomeUnknownFace, Timestamp: c.now()}
		}
		if c.maxDuration > 0 && c.now().Sub(start) >= c.maxDuration {
			logger.Warn("time bound reached without a match", "elapsed", c.now().Sub(start))
			c.sink.Show(feedback.EventRetryPrompt)
			return Outcome{Kind: OutcomeUnknownFace, Timestamp: c.now()}
		}

		frame, err := frames.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{Kind: OutcomeCancelled}
			}
			// A single missed frame is transient; keep polling.
			logger.Warn("frame capture failed", "error", err)
			continue
		}
		scored++

		attempts, err := c.recognizer.Score(ctx, frame, classifier)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{Kind: OutcomeCancelled}
			}
			logger.Warn("scoring frame failed", "error", err)
			continue
		}
		if len(attempts) == 0 {
			continue
		}

		// The first region's decision is authoritative for the frame.
		attempt := attempts[0]
		if !attempt.Match {
			logger.Info("unknown face", "confidence", attempt.Confidence)
			c.sink.Show(feedback.EventUnknownFace)
			c.sink.Show(feedback.EventRetryPrompt)
			continue
		}

		now := c.now()
		logger.Info("face matched", "confidence", attempt.Confidence)

		if c.quota.Check(id.CredentialID, now) == quota.Exceeded {
			c.dispatchLimitReached(ctx, logger, id, frame)
			return Outcome{Kind: OutcomeQuotaExceeded, Timestamp: now}
		}

		c.dispatchMatched(ctx, logger, id, frame, now)
		return Outcome{Kind: OutcomeMatched, Timestamp: now}
	}
}

// dispatchMatched runs the Matched effects in order; each is best-effort
// and independent of the others' success.
func (c *Controller) dispatchMatched(ctx context.Context, logger *slog.Logger, id *identity.Identity, frame []byte, at time.Time) {
	c.sink.ShowMatched(id.DisplayName)

	timestamp := at.Format(record.TimestampLayout)
	if c.notifier != nil {
		caption := notify.MatchedCaption(id.DisplayName, id.CredentialID, timestamp)
		if err := c.notifier.Send(ctx, frame, caption); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}
	if c.recorder != nil {
		event := record.NewAttendanceEvent(id.DisplayName, id.CredentialID, at)
		if err := c.recorder.Submit(ctx, event); err != nil {
			logger.Warn("attendance submission failed", "error", err)
		}
	}

	c.quota.Commit(id.CredentialID, at)
}

// dispatchLimitReached runs the LimitReached effects: distinct feedback and
// notification, no attendance submission, no quota commit.
func (c *Controller) dispatchLimitReached(ctx context.Context, logger *slog.Logger, id *identity.Identity, frame []byte) {
	c.sink.Show(feedback.EventLimitReached)

	if c.notifier != nil {
		caption := notify.LimitCaption(id.DisplayName, id.CredentialID)
		if err := c.notifier.Send(ctx, frame, caption); err != nil {
			logger.Warn("limit notification failed", "error", err)
		}
	}
}

// wait sleeps for d but returns early on cancellation.
func (c *Controller) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
