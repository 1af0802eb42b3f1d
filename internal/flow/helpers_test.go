// internal/flow/helpers_test.go
package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/parkpass/internal/config"
	"github.com/xkilldash9x/parkpass/internal/profile"
	"github.com/xkilldash9x/parkpass/internal/testing/fakepage"
)

const testURL = "https://example.test/register"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testFlowConfig keeps the real settle and pause values (they are recorded,
// not slept) and shrinks the element waits.
func testFlowConfig() config.FlowConfig {
	cfg := config.NewDefaultConfig().Flow()
	cfg.RegisterURL = testURL
	cfg.PollInterval = 5 * time.Millisecond
	cfg.StepTimeout = 100 * time.Millisecond
	cfg.SubmitTimeout = 50 * time.Millisecond
	return cfg
}

func testProfile() profile.Profile {
	return profile.Profile{
		Name:         "maple",
		PropertyName: "Maple Court",
		GuestCode:    "1234",
		VehicleMake:  "Honda",
		VehicleModel: "Civic",
		LicensePlate: "ABC123",
		EmailAddress: "a@b.com",
	}
}

// sleepRecorder records requested pauses without sleeping.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func (s *sleepRecorder) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// selectors of a complete registration form, in the order the flow uses them.
var formSelectors = []string{
	SelPropertyName,
	SelConfirmProperty,
	SelPropertyResult,
	SelRulesModal,
	SelRulesAccept,
	SelVisitorParking,
	SelGuestCode,
	SelGuestCodeSubmit,
	SelVehicleMake,
	SelVehicleModel,
	SelLicensePlate,
	SelLicensePlateConfirm,
	SelVehicleSubmit,
	SelEmailTrigger,
	SelEmailModal,
	SelEmailInput,
	SelEmailSend,
}

// newFormPage builds a page holding every form element except those in skip.
func newFormPage(skip ...string) *fakepage.Page {
	omit := make(map[string]bool, len(skip))
	for _, s := range skip {
		omit[s] = true
	}
	page := fakepage.New()
	for _, sel := range formSelectors {
		if !omit[sel] {
			page.Add(sel)
		}
	}
	return page
}
