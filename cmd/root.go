// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/parkpass/internal/browser"
	"github.com/xkilldash9x/parkpass/internal/config"
	"github.com/xkilldash9x/parkpass/internal/flow"
	"github.com/xkilldash9x/parkpass/internal/observability"
	"github.com/xkilldash9x/parkpass/internal/profile"
)

const serviceName = "parkpass"

// openBrowser launches the browser for a run. Tests replace it so that no
// real browser is started.
var openBrowser = func(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (flow.Session, error) {
	tab, err := browser.NewLauncher(logger, cfg).Open(ctx)
	if err != nil {
		return nil, err
	}
	return tab, nil
}

// NewRootCommand builds a fresh root command with its own viper instance.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile string
		cfg     *config.Config
	)
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "parkpass [profile]",
		Short: "Registers a guest vehicle on register2park.com.",
		Long: `parkpass fills in the register2park guest registration form for one
vehicle profile. Profiles are read from env/<profile>.env and hold
PROPERTY_NAME, GUEST_CODE, VEHICLE_MAKE, VEHICLE_MODEL, LICENSE_PLATE and
optionally EMAIL_ADDRESS.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetDefaults(v)
			if err := initializeConfig(v, cfgFile); err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			c, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.NewDefaultConfig().Logger())
				return err
			}
			observability.InitializeLogger(c.Logger())
			cfg = c

			observability.GetLogger().Debug("Starting parkpass", zap.String("version", Version))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistration(cmd.Context(), cfg, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	return cmd
}

// Execute runs the root command and logs a failure before returning it.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Run interrupted.")
		} else {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
		return err
	}
	return nil
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PARKPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}

// runRegistration loads the profile before anything else so a broken
// profile never costs a browser launch.
func runRegistration(ctx context.Context, cfg *config.Config, args []string) error {
	logger := observability.GetLogger()
	flowCfg := cfg.Flow()

	name := flowCfg.DefaultProfile
	if len(args) == 1 {
		name = args[0]
	}

	loader := profile.NewLoader(flowCfg.ProfileDir, flowCfg.DefaultEmail)
	p, err := loader.Load(name)
	if err != nil {
		if profile.IsNotFound(err) {
			if names, lerr := loader.Available(); lerr == nil && len(names) > 0 {
				logger.Info("Available profiles.", zap.Strings("profiles", names))
			}
		}
		return err
	}

	tp, err := observability.InitializeTracing(cfg.Tracing(), serviceName, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces.", zap.Error(err))
		}
	}()

	browserCfg := cfg.Browser()
	open := func(ctx context.Context) (flow.Session, error) {
		return openBrowser(ctx, logger, browserCfg)
	}
	return flow.NewRunner(logger, flowCfg, open).Run(ctx, p)
}
