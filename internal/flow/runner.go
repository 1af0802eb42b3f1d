// internal/flow/runner.go
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/parkpass/internal/config"
	"github.com/xkilldash9x/parkpass/internal/interaction"
	"github.com/xkilldash9x/parkpass/internal/observability"
	"github.com/xkilldash9x/parkpass/internal/profile"
)

// Session is an exclusively owned browser tab.
type Session interface {
	interaction.Page
	Navigate(ctx context.Context, url string) error
	Maximize(ctx context.Context) error
	Close(ctx context.Context) error
}

// OpenFunc acquires a browser session for one run.
type OpenFunc func(ctx context.Context) (Session, error)

// StepError names the stage a run failed in. The underlying error, usually
// an *interaction.ElementTimeoutError, is kept intact for errors.As.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Step names in execution order.
const (
	StepSelectProperty        = "SelectProperty"
	StepSelectPropertyResult  = "SelectPropertyResult"
	StepAcceptGuestRules      = "AcceptGuestRules"
	StepChooseVisitorParking  = "ChooseVisitorParking"
	StepEnterGuestCode        = "EnterGuestCode"
	StepFillVehicleInfo       = "FillVehicleInfo"
	StepSendEmailConfirmation = "SendEmailConfirmation"
)

type step struct {
	name string
	run  func(ctx context.Context, page interaction.Page, p profile.Profile) error
	// settle is waited after the step succeeds.
	settle time.Duration
}

// Runner sequences the flow stages over a single browser session and owns
// that session for the duration of the run.
type Runner struct {
	flow   *Flow
	open   OpenFunc
	cfg    config.FlowConfig
	logger *zap.Logger
	sleep  Sleeper
}

// NewRunner creates a Runner that acquires its session through open.
func NewRunner(logger *zap.Logger, cfg config.FlowConfig, open OpenFunc, opts ...Option) *Runner {
	o := buildOptions(opts)
	return &Runner{
		flow:   New(logger, cfg, opts...),
		open:   open,
		cfg:    cfg,
		logger: logger.Named("runner"),
		sleep:  o.sleep,
	}
}

func (r *Runner) steps() []step {
	f := r.flow
	return []step{
		{name: StepSelectProperty, run: func(ctx context.Context, page interaction.Page, p profile.Profile) error {
			return f.SelectProperty(ctx, page, p.PropertyName)
		}},
		{name: StepSelectPropertyResult, run: func(ctx context.Context, page interaction.Page, _ profile.Profile) error {
			return f.SelectPropertyResult(ctx, page)
		}},
		{name: StepAcceptGuestRules, run: func(ctx context.Context, page interaction.Page, _ profile.Profile) error {
			return f.AcceptGuestRules(ctx, page)
		}},
		{name: StepChooseVisitorParking, run: func(ctx context.Context, page interaction.Page, _ profile.Profile) error {
			return f.ChooseVisitorParking(ctx, page)
		}},
		{name: StepEnterGuestCode, settle: r.cfg.GuestCodeSettle, run: func(ctx context.Context, page interaction.Page, p profile.Profile) error {
			return f.EnterGuestCode(ctx, page, p.GuestCode)
		}},
		{name: StepFillVehicleInfo, run: func(ctx context.Context, page interaction.Page, p profile.Profile) error {
			return f.FillVehicleInfo(ctx, page, p.VehicleMake, p.VehicleModel, p.LicensePlate)
		}},
		{name: StepSendEmailConfirmation, settle: r.cfg.ConfirmationSettle, run: func(ctx context.Context, page interaction.Page, p profile.Profile) error {
			return f.SendEmailConfirmation(ctx, page, p.EmailAddress)
		}},
	}
}

// Run performs one registration for p. The session is closed exactly once
// on every exit path, including step failures and panics.
func (r *Runner) Run(ctx context.Context, p profile.Profile) (err error) {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID), zap.String("profile", p.Name))

	ctx, span := observability.StartSpan(ctx, "parkpass.run",
		observability.AttrRunID.String(runID),
		observability.AttrProfile.String(p.Name),
	)
	defer func() { observability.EndSpan(span, err) }()

	log.Info("Running profile.", zap.String("name", p.DisplayName()), zap.String("url", r.cfg.RegisterURL))

	sess, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer r.closeSession(ctx, log, sess)

	if err := sess.Maximize(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Could not maximize the browser window.", zap.Error(err))
	}
	if err := sess.Navigate(ctx, r.cfg.RegisterURL); err != nil {
		return fmt.Errorf("failed to load %s: %w", r.cfg.RegisterURL, err)
	}

	for _, s := range r.steps() {
		if err := r.runStep(ctx, log, sess, p, s); err != nil {
			return err
		}
	}

	log.Info("Registration run complete.")
	return nil
}

func (r *Runner) runStep(ctx context.Context, log *zap.Logger, page interaction.Page, p profile.Profile, s step) error {
	stepCtx, span := observability.StartSpan(ctx, "parkpass.step", observability.AttrStep.String(s.name))
	start := time.Now()
	err := s.run(stepCtx, page, p)
	observability.EndSpan(span, err)

	if err != nil {
		log.Error("Step failed.", zap.String("step", s.name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return &StepError{Step: s.name, Err: err}
	}
	log.Debug("Step done.", zap.String("step", s.name), zap.Duration("elapsed", time.Since(start)))

	if s.settle > 0 {
		log.Debug("Letting the page settle.", zap.String("after", s.name), zap.Duration("settle", s.settle))
		if err := r.sleep(ctx, s.settle); err != nil {
			return &StepError{Step: s.name, Err: err}
		}
	}
	return nil
}

// closeSession uses a context detached from ctx so the browser is still torn
// down after an interrupt.
func (r *Runner) closeSession(ctx context.Context, log *zap.Logger, sess Session) {
	timeout := r.cfg.CloseTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := sess.Close(closeCtx); err != nil {
		log.Warn("Failed to close browser session.", zap.Error(err))
		return
	}
	log.Debug("Browser session closed.")
}
