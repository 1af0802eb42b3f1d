// internal/interaction/interactor_test.go
package interaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/parkpass/internal/interaction"
	"github.com/xkilldash9x/parkpass/internal/testing/fakepage"
)

const (
	testPoll = 10 * time.Millisecond
	// epsilon bounds how late a timeout may be reported.
	epsilon = 150 * time.Millisecond
)

func newInteractor(t *testing.T) *interaction.Interactor {
	t.Helper()
	return interaction.New(zaptest.NewLogger(t), interaction.WithPollInterval(testPoll))
}

// -- Timeout behavior --

func TestWaitPrimitives_TimeoutWindow(t *testing.T) {
	const timeout = 200 * time.Millisecond

	cases := map[string]func(ctx context.Context, i *interaction.Interactor, p interaction.Page) error{
		"WaitAndClick": func(ctx context.Context, i *interaction.Interactor, p interaction.Page) error {
			_, err := i.WaitAndClick(ctx, p, "#missing", timeout)
			return err
		},
		"WaitAndType": func(ctx context.Context, i *interaction.Interactor, p interaction.Page) error {
			_, err := i.WaitAndType(ctx, p, "#missing", "text", timeout)
			return err
		},
	}

	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			page := fakepage.New()
			start := time.Now()
			err := run(context.Background(), newInteractor(t), page)
			elapsed := time.Since(start)

			var timeoutErr *interaction.ElementTimeoutError
			require.ErrorAs(t, err, &timeoutErr)
			assert.Equal(t, "#missing", timeoutErr.Selector)
			assert.Equal(t, interaction.ConditionClickable, timeoutErr.Condition)
			assert.Equal(t, timeout, timeoutErr.Timeout)
			assert.GreaterOrEqual(t, elapsed, timeout, "must not give up before the timeout")
			assert.Less(t, elapsed, timeout+epsilon, "must give up promptly after the timeout")
			assert.Greater(t, page.Queries("#missing"), 1, "the page should be polled repeatedly")
			assert.Empty(t, page.Actions())
		})
	}
}

func TestWaitAndClick_NeverClickableElementTimesOut(t *testing.T) {
	page := fakepage.New()
	page.Add("#disabled").Disabled()
	page.Add("#hidden").Hidden()

	i := newInteractor(t)
	for _, sel := range []string{"#disabled", "#hidden"} {
		_, err := i.WaitAndClick(context.Background(), page, sel, 50*time.Millisecond)
		var timeoutErr *interaction.ElementTimeoutError
		require.ErrorAs(t, err, &timeoutErr, sel)
	}
	assert.Zero(t, page.Count(fakepage.KindClick))
	assert.Zero(t, page.Count(fakepage.KindScriptClick))
}

func TestWaitAndClick_ParentCancellationIsNotATimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := newInteractor(t).WaitAndClick(ctx, fakepage.New(), "#missing", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	var timeoutErr *interaction.ElementTimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

// -- Delayed readiness --

func TestWaitAndType_DelayedField(t *testing.T) {
	const (
		delay   = 120 * time.Millisecond
		timeout = time.Second
	)

	setups := map[string]func(el *fakepage.Element){
		"appears late":         func(el *fakepage.Element) { el.AppearAfter(delay) },
		"becomes visible late": func(el *fakepage.Element) { el.VisibleAfter(delay) },
		"becomes enabled late": func(el *fakepage.Element) { el.EnabledAfter(delay) },
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			page := fakepage.New()
			field := page.Add("#vehicleMake").WithValue("stale")
			setup(field)

			el, err := newInteractor(t).WaitAndType(context.Background(), page, "#vehicleMake", "Honda", timeout)
			require.NoError(t, err)
			require.NotNil(t, el)

			assert.Equal(t, "Honda", field.Value())
			events := page.Events()
			require.NotEmpty(t, events)
			for _, e := range events {
				assert.GreaterOrEqual(t, e.At.Sub(start), delay, "field mutated before it was ready: %s", e)
			}
			assert.Equal(t, []string{
				"click #vehicleMake",
				"clear #vehicleMake",
				`type #vehicleMake "Honda"`,
			}, page.Actions())
		})
	}
}

// -- Fallback paths --

func TestWaitAndClick_InterceptedClickFallsBackToScript(t *testing.T) {
	page := fakepage.New()
	page.Add("#confirmProperty").Intercepted()

	el, err := newInteractor(t).WaitAndClick(context.Background(), page, "#confirmProperty", time.Second)
	require.NoError(t, err)
	require.NotNil(t, el)

	assert.Equal(t, []string{"script-click #confirmProperty"}, page.Actions())
	assert.Equal(t, 1, page.Count(fakepage.KindScroll))
}

func TestWaitAndClick_NativeClickPreferred(t *testing.T) {
	page := fakepage.New()
	page.Add("#confirmProperty")

	_, err := newInteractor(t).WaitAndClick(context.Background(), page, "#confirmProperty", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"click #confirmProperty"}, page.Actions())
}

func TestWaitAndClick_FallbackFailureIsNotSurfaced(t *testing.T) {
	page := fakepage.New()
	page.Add("#confirmProperty").Intercepted().ScriptFails()

	el, err := newInteractor(t).WaitAndClick(context.Background(), page, "#confirmProperty", time.Second)
	require.NoError(t, err)
	assert.NotNil(t, el)
	assert.Empty(t, page.Actions())
}

func TestWaitAndType_KeyInputFailureFallsBackToValueAssignment(t *testing.T) {
	page := fakepage.New()
	field := page.Add("#guestCode").NotTypeable().WithValue("old")

	_, err := newInteractor(t).WaitAndType(context.Background(), page, "#guestCode", "1234", time.Second)
	require.NoError(t, err)

	assert.Equal(t, "1234", field.Value())
	assert.Equal(t, []string{"input", "change"}, field.Dispatched())
	assert.Equal(t, 1, page.Count(fakepage.KindSetValue))
	assert.Zero(t, page.Count(fakepage.KindType))
}

func TestWaitAndType_InterceptedFocusFallsBackToValueAssignment(t *testing.T) {
	page := fakepage.New()
	field := page.Add("#guestCode").Intercepted()

	_, err := newInteractor(t).WaitAndType(context.Background(), page, "#guestCode", "1234", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1234", field.Value())
	assert.Equal(t, []string{`set-value #guestCode "1234"`}, page.Actions())
}

func TestScriptClick(t *testing.T) {
	t.Run("script first", func(t *testing.T) {
		page := fakepage.New()
		page.Add("#registrationTypeVisitor")
		i := newInteractor(t)

		el, err := i.WaitClickable(context.Background(), page, "#registrationTypeVisitor", time.Second)
		require.NoError(t, err)
		require.NoError(t, i.ScriptClick(context.Background(), el, "#registrationTypeVisitor"))
		assert.Equal(t, []string{"script-click #registrationTypeVisitor"}, page.Actions())
	})

	t.Run("native when the script fails", func(t *testing.T) {
		page := fakepage.New()
		page.Add("#email-confirmation").ScriptFails()
		i := newInteractor(t)

		el, err := i.WaitPresent(context.Background(), page, "#email-confirmation", time.Second)
		require.NoError(t, err)
		require.NoError(t, i.ScriptClick(context.Background(), el, "#email-confirmation"))
		assert.Equal(t, []string{"click #email-confirmation"}, page.Actions())
	})
}

// -- Readiness conditions --

func TestWaitConditions(t *testing.T) {
	page := fakepage.New()
	page.Add("#hidden-modal").Hidden()
	page.Add("#disabled-button").Disabled()
	i := newInteractor(t)
	ctx := context.Background()
	short := 40 * time.Millisecond

	_, err := i.WaitPresent(ctx, page, "#hidden-modal", short)
	assert.NoError(t, err, "a hidden element is still present")

	_, err = i.WaitVisible(ctx, page, "#hidden-modal", short)
	var timeoutErr *interaction.ElementTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, interaction.ConditionVisible, timeoutErr.Condition)

	_, err = i.WaitVisible(ctx, page, "#disabled-button", short)
	assert.NoError(t, err, "a disabled element can be visible")

	_, err = i.WaitClickable(ctx, page, "#disabled-button", short)
	require.ErrorAs(t, err, &timeoutErr)
	assert.Contains(t, err.Error(), `"#disabled-button" to be clickable`)
}
