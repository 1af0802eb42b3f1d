// internal/flow/steps.go
// This file holds one function per stage of the guest registration form.
// Each stage is built only from the interaction primitives plus the stage's
// selectors, timeouts and failure policy. Every stage except the email
// confirmation is fatal: its timeout propagates unchanged to the caller.
package flow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/parkpass/internal/config"
	"github.com/xkilldash9x/parkpass/internal/interaction"
)

// Selectors of the register2park guest form.
const (
	SelPropertyName        = `input[type="text"]`
	SelConfirmProperty     = "#confirmProperty"
	SelPropertyResult      = "button.select-property"
	SelRulesModal          = "#visitor-rules-modal"
	SelRulesAccept         = SelRulesModal + " button.btn.btn-primary"
	SelVisitorParking      = "#registrationTypeVisitor"
	SelGuestCode           = "#guestCode"
	SelGuestCodeSubmit     = "#propertyGuestCode"
	SelVehicleMake         = "#vehicleMake"
	SelVehicleModel        = "#vehicleModel"
	SelLicensePlate        = "#vehicleLicensePlate"
	SelLicensePlateConfirm = "#vehicleLicensePlateConfirm"
	SelVehicleSubmit       = "#vehicleInformationVIP"
	SelEmailTrigger        = "#email-confirmation"
	SelEmailModal          = "#email-confirmation-view"
	SelEmailInput          = SelEmailModal + " #emailConfirmationEmailView"
	SelEmailSend           = SelEmailModal + " button.btn.btn-success"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Flow or a Runner.
type Option func(*options)

type options struct {
	sleep Sleeper
}

// WithSleeper replaces the clock used for settle intervals and diagnostic pauses.
func WithSleeper(s Sleeper) Option {
	return func(o *options) {
		if s != nil {
			o.sleep = s
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Flow runs the individual form stages against a page.
type Flow struct {
	interactor *interaction.Interactor
	logger     *zap.Logger
	cfg        config.FlowConfig
	sleep      Sleeper
}

// New creates a Flow with the waits configured in cfg.
func New(logger *zap.Logger, cfg config.FlowConfig, opts ...Option) *Flow {
	o := buildOptions(opts)
	return &Flow{
		interactor: interaction.New(logger, interaction.WithPollInterval(cfg.PollInterval)),
		logger:     logger.Named("flow"),
		cfg:        cfg,
		sleep:      o.sleep,
	}
}

// SelectProperty types the property name into the search field and confirms it.
func (f *Flow) SelectProperty(ctx context.Context, page interaction.Page, name string) error {
	if _, err := f.interactor.WaitAndType(ctx, page, SelPropertyName, name, f.cfg.StepTimeout); err != nil {
		return err
	}
	if _, err := f.interactor.WaitAndClick(ctx, page, SelConfirmProperty, f.cfg.StepTimeout); err != nil {
		return err
	}
	f.logger.Info("Typed property name and clicked Next.", zap.String("property", name))
	return nil
}

// SelectPropertyResult picks the property the search resolved to.
func (f *Flow) SelectPropertyResult(ctx context.Context, page interaction.Page) error {
	if _, err := f.interactor.WaitAndClick(ctx, page, SelPropertyResult, f.cfg.StepTimeout); err != nil {
		return err
	}
	f.logger.Info("Selected property.")
	return nil
}

// AcceptGuestRules accepts the visitor rules modal. The modal intercepts
// native clicks, so its button is clicked through script injection.
func (f *Flow) AcceptGuestRules(ctx context.Context, page interaction.Page) error {
	if _, err := f.interactor.WaitVisible(ctx, page, SelRulesModal, f.cfg.StepTimeout); err != nil {
		return err
	}
	btn, err := f.interactor.WaitPresent(ctx, page, SelRulesAccept, f.cfg.StepTimeout)
	if err != nil {
		return err
	}
	if err := f.interactor.ScriptClick(ctx, btn, SelRulesAccept); err != nil {
		return err
	}
	f.logger.Info("Accepted guest rules.")
	return nil
}

// ChooseVisitorParking selects the visitor registration type.
func (f *Flow) ChooseVisitorParking(ctx context.Context, page interaction.Page) error {
	btn, err := f.interactor.WaitClickable(ctx, page, SelVisitorParking, f.cfg.StepTimeout)
	if err != nil {
		return err
	}
	if err := f.interactor.ScriptClick(ctx, btn, SelVisitorParking); err != nil {
		return err
	}
	f.logger.Info("Selected visitor parking.")
	return nil
}

// EnterGuestCode types the property's guest code and submits it.
func (f *Flow) EnterGuestCode(ctx context.Context, page interaction.Page, code string) error {
	if _, err := f.interactor.WaitAndType(ctx, page, SelGuestCode, code, f.cfg.StepTimeout); err != nil {
		return err
	}
	if _, err := f.interactor.WaitAndClick(ctx, page, SelGuestCodeSubmit, f.cfg.StepTimeout); err != nil {
		return err
	}
	f.logger.Info("Entered guest code.", zap.String("guest_code", code))
	return nil
}

// FillVehicleInfo fills the vehicle fields, lets client-side validation
// settle and submits. A submit control that never shows up means the form
// rejected the vehicle, so the timeout is fatal; the page is held for the
// diagnostic pause first so it can be inspected.
func (f *Flow) FillVehicleInfo(ctx context.Context, page interaction.Page, vehicleMake, vehicleModel, plate string) error {
	fields := []struct{ selector, value string }{
		{SelVehicleMake, vehicleMake},
		{SelVehicleModel, vehicleModel},
		{SelLicensePlate, plate},
		{SelLicensePlateConfirm, plate},
	}
	for _, fld := range fields {
		if _, err := f.interactor.WaitAndType(ctx, page, fld.selector, fld.value, f.cfg.StepTimeout); err != nil {
			return err
		}
	}

	if err := f.sleep(ctx, f.cfg.ValidationSettle); err != nil {
		return err
	}

	btn, err := f.interactor.WaitPresent(ctx, page, SelVehicleSubmit, f.cfg.SubmitTimeout)
	if err != nil {
		var timeoutErr *interaction.ElementTimeoutError
		if errors.As(err, &timeoutErr) {
			f.logger.Warn("Could not find the vehicle Next button; the vehicle details were probably rejected.",
				zap.String("selector", SelVehicleSubmit),
				zap.Duration("diagnostic_pause", f.cfg.DiagnosticPause),
				zap.Error(err),
			)
			if perr := f.sleep(ctx, f.cfg.DiagnosticPause); perr != nil {
				return perr
			}
		}
		return err
	}
	if err := f.interactor.ScriptClick(ctx, btn, SelVehicleSubmit); err != nil {
		return err
	}

	f.logger.Info("Submitted vehicle info.",
		zap.String("make", vehicleMake),
		zap.String("model", vehicleModel),
		zap.String("plate", plate),
	)
	return nil
}

// SendEmailConfirmation asks the approval page to email the registration.
// The registration is already committed at this point, so a missing trigger
// or modal is logged, followed by the diagnostic pause, and the step still
// succeeds. Only context cancellation is returned.
func (f *Flow) SendEmailConfirmation(ctx context.Context, page interaction.Page, email string) error {
	stage, err := f.sendEmailConfirmation(ctx, page, email)
	if err == nil {
		f.logger.Info("Email confirmation sent.", zap.String("email", email))
		return nil
	}

	var timeoutErr *interaction.ElementTimeoutError
	if !errors.As(err, &timeoutErr) {
		return err
	}
	f.logger.Warn("Email confirmation skipped.",
		zap.String("stage", stage),
		zap.Duration("diagnostic_pause", f.cfg.DiagnosticPause),
		zap.Error(err),
	)
	return f.sleep(ctx, f.cfg.DiagnosticPause)
}

func (f *Flow) sendEmailConfirmation(ctx context.Context, page interaction.Page, email string) (string, error) {
	f.logger.Info("Waiting for the email confirmation button.")
	trigger, err := f.interactor.WaitPresent(ctx, page, SelEmailTrigger, f.cfg.StepTimeout)
	if err != nil {
		return "trigger", err
	}
	if err := f.interactor.ScriptClick(ctx, trigger, SelEmailTrigger); err != nil {
		return "trigger", err
	}

	f.logger.Info("Waiting for the email confirmation modal.")
	if _, err := f.interactor.WaitVisible(ctx, page, SelEmailModal, f.cfg.StepTimeout); err != nil {
		return "modal", err
	}
	if _, err := f.interactor.WaitAndType(ctx, page, SelEmailInput, email, f.cfg.SubmitTimeout); err != nil {
		return "modal", err
	}
	send, err := f.interactor.WaitPresent(ctx, page, SelEmailSend, f.cfg.SubmitTimeout)
	if err != nil {
		return "modal", err
	}
	if err := f.interactor.ScriptClick(ctx, send, SelEmailSend); err != nil {
		return "modal", err
	}
	return "", nil
}
