// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/parkpass/internal/config"
	"github.com/xkilldash9x/parkpass/internal/flow"
	"github.com/xkilldash9x/parkpass/internal/observability"
	"github.com/xkilldash9x/parkpass/internal/profile"
	"github.com/xkilldash9x/parkpass/internal/testing/fakepage"
)

// browserStub counts launches and hands out a prepared page.
type browserStub struct {
	opened int
	page   *fakepage.Page
	err    error
}

// resetForTest isolates a test from the global logger, the real browser and
// any config file in the working directory.
func resetForTest(t *testing.T) (*browserStub, string) {
	t.Helper()

	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"}, zapTestSink{})
	t.Cleanup(observability.ResetForTest)

	stub := &browserStub{}
	orig := openBrowser
	openBrowser = func(context.Context, *zap.Logger, config.BrowserConfig) (flow.Session, error) {
		stub.opened++
		if stub.err != nil {
			return nil, stub.err
		}
		return stub.page, nil
	}
	t.Cleanup(func() { openBrowser = orig })

	dir := t.TempDir()
	t.Chdir(dir)
	profiles := filepath.Join(dir, "env")
	require.NoError(t, os.Mkdir(profiles, 0o755))

	// Keep runs fast: real pauses are only needed against the live site.
	t.Setenv("PARKPASS_FLOW_POLL_INTERVAL", "5ms")
	t.Setenv("PARKPASS_FLOW_STEP_TIMEOUT", "200ms")
	t.Setenv("PARKPASS_FLOW_SUBMIT_TIMEOUT", "100ms")
	t.Setenv("PARKPASS_FLOW_VALIDATION_SETTLE", "0s")
	t.Setenv("PARKPASS_FLOW_DIAGNOSTIC_PAUSE", "0s")
	t.Setenv("PARKPASS_FLOW_GUEST_CODE_SETTLE", "0s")
	t.Setenv("PARKPASS_FLOW_CONFIRMATION_SETTLE", "0s")
	return stub, profiles
}

type zapTestSink struct{}

func (zapTestSink) Write(p []byte) (int, error) { return len(p), nil }
func (zapTestSink) Sync() error                 { return nil }

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".env"), []byte(body), 0o600))
}

const completeProfile = `PROPERTY_NAME="Maple Court"
GUEST_CODE=1234
VEHICLE_MAKE=Honda
VEHICLE_MODEL=Civic
LICENSE_PLATE=ABC123
`

func completeForm() *fakepage.Page {
	page := fakepage.New()
	for _, sel := range []string{
		flow.SelPropertyName, flow.SelConfirmProperty, flow.SelPropertyResult,
		flow.SelRulesModal, flow.SelRulesAccept, flow.SelVisitorParking,
		flow.SelGuestCode, flow.SelGuestCodeSubmit,
		flow.SelVehicleMake, flow.SelVehicleModel, flow.SelLicensePlate, flow.SelLicensePlateConfirm,
		flow.SelVehicleSubmit,
		flow.SelEmailTrigger, flow.SelEmailModal, flow.SelEmailInput, flow.SelEmailSend,
	} {
		page.Add(sel)
	}
	return page
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestRootCmd_DefaultProfile(t *testing.T) {
	stub, dir := resetForTest(t)
	writeProfile(t, dir, "tatiana", completeProfile)
	stub.page = completeForm()

	_, err := execute(t)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.opened)
	assert.Equal(t, 1, stub.page.Count(fakepage.KindClose))
	assert.Contains(t, stub.page.Actions(), `type `+flow.SelEmailInput+` "iammaxlichter@gmail.com"`)
}

func TestRootCmd_NamedProfile(t *testing.T) {
	stub, dir := resetForTest(t)
	writeProfile(t, dir, "guest", completeProfile+"EMAIL_ADDRESS=a@b.com\n")
	stub.page = completeForm()

	_, err := execute(t, "guest")
	require.NoError(t, err)
	assert.Contains(t, stub.page.Actions(), `type #guestCode "1234"`)
	assert.Contains(t, stub.page.Actions(), `type `+flow.SelEmailInput+` "a@b.com"`)
}

func TestRootCmd_MissingGuestCodeNeverLaunchesBrowser(t *testing.T) {
	stub, dir := resetForTest(t)
	writeProfile(t, dir, "tatiana", `PROPERTY_NAME="Maple Court"
VEHICLE_MAKE=Honda
VEHICLE_MODEL=Civic
LICENSE_PLATE=ABC123
`)

	_, err := execute(t)

	var missing *profile.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, profile.KeyGuestCode, missing.Key)
	assert.Zero(t, stub.opened)
}

func TestRootCmd_UnknownProfileNeverLaunchesBrowser(t *testing.T) {
	stub, dir := resetForTest(t)
	writeProfile(t, dir, "tatiana", completeProfile)

	_, err := execute(t, "nobody")

	var notFound *profile.ProfileNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody", notFound.Name)
	assert.Zero(t, stub.opened)
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	stub, _ := resetForTest(t)

	_, err := execute(t, "one", "two")
	require.Error(t, err)
	assert.Zero(t, stub.opened)
}

func TestRootCmd_BrowserFailure(t *testing.T) {
	stub, dir := resetForTest(t)
	writeProfile(t, dir, "tatiana", completeProfile)
	stub.err = errors.New("chrome not found")

	_, err := execute(t)
	assert.ErrorIs(t, err, stub.err)
	assert.Equal(t, 1, stub.opened)
}

func TestRootCmd_StepFailureIsReturned(t *testing.T) {
	stub, dir := resetForTest(t)
	writeProfile(t, dir, "tatiana", completeProfile)
	stub.page = fakepage.New()

	_, err := execute(t)

	var stepErr *flow.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, flow.StepSelectProperty, stepErr.Step)
	assert.Equal(t, 1, stub.page.Count(fakepage.KindClose))
}

func TestRootCmd_ExplicitMissingConfigFile(t *testing.T) {
	stub, _ := resetForTest(t)

	_, err := execute(t, "--config", "does-not-exist.yaml")
	require.Error(t, err)
	assert.Zero(t, stub.opened)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	stub, dir := resetForTest(t)
	custom := filepath.Join(filepath.Dir(dir), "profiles")
	require.NoError(t, os.Mkdir(custom, 0o755))
	writeProfile(t, custom, "house", completeProfile)
	stub.page = completeForm()

	cfgPath := filepath.Join(filepath.Dir(dir), "parkpass.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("flow:\n  profile_dir: "+custom+"\n  default_profile: house\n"), 0o600))

	_, err := execute(t, "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.opened)
}
