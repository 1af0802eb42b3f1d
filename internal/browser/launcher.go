// internal/browser/launcher.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/parkpass/internal/config"
)

// Launcher starts one Chrome/Chromium process per Open call.
type Launcher struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
	goarch string
}

// NewLauncher creates a Launcher for the host architecture.
func NewLauncher(logger *zap.Logger, cfg config.BrowserConfig) *Launcher {
	return &Launcher{
		logger: logger.Named("browser"),
		cfg:    cfg,
		goarch: runtime.GOARCH,
	}
}

// launchPlan is the resolved set of process settings for one launch.
type launchPlan struct {
	ExecPath string
	Headless bool
	Flags    map[string]any
}

func isARM(goarch string) bool {
	return goarch == "arm" || goarch == "arm64"
}

// planLaunch resolves the executable and flags. ARM boards have no display
// and ship Chromium at a fixed path, so headless is forced there.
func planLaunch(cfg config.BrowserConfig, goarch string) launchPlan {
	p := launchPlan{
		ExecPath: cfg.ExecPath,
		Headless: cfg.Headless,
		Flags: map[string]any{
			"no-sandbox":            true,
			"disable-dev-shm-usage": true,
			"disable-gpu":           true,
		},
	}

	if isARM(goarch) {
		p.Headless = true
		if p.ExecPath == "" {
			p.ExecPath = cfg.ARMExecPath
		}
	}
	p.Flags["headless"] = p.Headless

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		p.Flags["window-size"] = fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)
	}

	// Custom arguments from the config file, in --name[=value] form.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			p.Flags[name] = parts[1]
		} else {
			p.Flags[name] = true
		}
	}
	return p
}

func (p launchPlan) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	names := make([]string, 0, len(p.Flags))
	for name := range p.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, p.Flags[name]))
	}

	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}
	return opts
}

// Open launches a browser and returns its first tab. The process lives until
// the tab is closed; it is detached from ctx cancellation so the caller can
// still shut it down cleanly after an interrupt.
func (l *Launcher) Open(ctx context.Context) (*Tab, error) {
	plan := planLaunch(l.cfg, l.goarch)
	l.logger.Info("Launching browser.",
		zap.String("exec_path", plan.ExecPath),
		zap.Bool("headless", plan.Headless),
		zap.String("arch", l.goarch),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), plan.allocatorOptions()...)

	var ctxOpts []chromedp.ContextOption
	if l.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(l.logger.Sugar().Debugf))
	}
	ctxOpts = append(ctxOpts, chromedp.WithErrorf(l.logger.Sugar().Errorf))
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// The first Run starts the process. A hung start is cut off by
	// cancelling the tab rather than a derived context, which would tear
	// the browser down again once it returned.
	startTimeout := l.cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = 30 * time.Second
	}
	timer := time.AfterFunc(startTimeout, tabCancel)
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	timer.Stop()
	stop()
	if err == nil {
		err = tabCtx.Err()
	}

	if err != nil {
		tabCancel()
		allocCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("browser failed to start: %w", err)
	}

	l.logger.Debug("Browser started.")
	return &Tab{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		navTimeout:  l.cfg.NavTimeout,
		logger:      l.logger,
	}, nil
}
