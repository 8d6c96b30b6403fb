// Package pipeline orchestrates the run: authenticate, discover, capture,
// extract tokens, assemble the manifest, then advance through the validation
// gates in fixed order. Execution is strictly sequential; the single browser
// session is the only shared resource and is closed on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/auth"
	"github.com/kaidhar/prism-cli/internal/browser"
	"github.com/kaidhar/prism-cli/internal/capture"
	"github.com/kaidhar/prism-cli/internal/config"
	"github.com/kaidhar/prism-cli/internal/discovery"
	"github.com/kaidhar/prism-cli/internal/gates"
	"github.com/kaidhar/prism-cli/internal/manifest"
	"github.com/kaidhar/prism-cli/internal/tokens"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DriverFactory builds the browser session. Tests substitute a fake.
type DriverFactory func(ctx context.Context) (schemas.BrowserDriver, error)

// Summary is the final outcome of a run, used for reporting and the process
// exit status.
type Summary struct {
	RunID       string
	Stats       schemas.RunStats
	GateResults []*schemas.ValidationResult
	// HaltedAt names the gate that blocked advancement, if any.
	HaltedAt schemas.GatePhase
}

// Success reports whether every evaluated gate passed.
func (s *Summary) Success() bool {
	return s.HaltedAt == ""
}

// Pipeline wires the phases over one configuration.
type Pipeline struct {
	cfg       *config.Config
	logger    *zap.Logger
	gates     *gates.Engine
	newDriver DriverFactory
}

// New builds a pipeline. A nil factory launches a real browser.
func New(cfg *config.Config, logger *zap.Logger, factory DriverFactory) *Pipeline {
	if factory == nil {
		factory = func(ctx context.Context) (schemas.BrowserDriver, error) {
			opts := browser.DefaultOptions()
			if cfg.Capture.ActionTimeout > 0 {
				opts.ActionTimeout = cfg.Capture.ActionTimeout
			}
			return browser.New(ctx, opts, logger)
		}
	}
	return &Pipeline{
		cfg:       cfg,
		logger:    logger.Named("pipeline"),
		gates:     gates.NewEngine(cfg, logger),
		newDriver: factory,
	}
}

// Run executes the full pipeline: pre-capture gate, capture, then the
// post-capture and pre-generation gates. The post-generation gate runs only
// when a generated tree is configured, since generation itself is an
// external step. Advancement halts at the first failing required gate; the
// artifacts that produced the failure are left in place for inspection.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	p.logger = p.logger.With(zap.String("run_id", summary.RunID))
	p.logger.Info("Pipeline run starting.")

	if halted, err := p.runGate(ctx, schemas.PhasePreCapture, summary); err != nil || halted {
		return summary, err
	}

	stats, err := p.Capture(ctx)
	if err != nil {
		return summary, err
	}
	summary.Stats = *stats

	for _, phase := range []schemas.GatePhase{schemas.PhasePostCapture, schemas.PhasePreGeneration} {
		if halted, err := p.runGate(ctx, phase, summary); err != nil || halted {
			return summary, err
		}
	}

	if p.cfg.Gates.GeneratedDir != "" && dirExists(p.cfg.Gates.GeneratedDir) {
		if halted, err := p.runGate(ctx, schemas.PhasePostGeneration, summary); err != nil || halted {
			return summary, err
		}
	} else {
		p.logger.Info("No generated tree present; skipping post-generation gate.")
	}

	return summary, nil
}

// Validate evaluates one gate phase, or every phase when asked for "all".
// Unlike the pipeline, "all" never stops at a failing gate: the operator
// asked for the complete picture, so every phase is evaluated and reported.
// The first failing phase is still recorded so the exit status stays honest.
func (p *Pipeline) Validate(ctx context.Context, phase string) (*Summary, error) {
	summary := &Summary{}
	if phase == "all" {
		results, err := p.gates.RunAll(ctx)
		summary.GateResults = results
		for _, result := range results {
			p.persistReport(result)
			if !result.Passed && summary.HaltedAt == "" {
				summary.HaltedAt = result.Phase
			}
		}
		return summary, err
	}
	_, err := p.runGate(ctx, schemas.GatePhase(phase), summary)
	return summary, err
}

// runGate evaluates one gate, persists its JSON report, and reports whether
// the pipeline must halt.
func (p *Pipeline) runGate(ctx context.Context, phase schemas.GatePhase, summary *Summary) (bool, error) {
	result, err := p.gates.Run(ctx, phase)
	if err != nil {
		return false, err
	}
	summary.GateResults = append(summary.GateResults, result)
	p.persistReport(result)

	if !result.Passed {
		summary.HaltedAt = phase
		return true, nil
	}
	return false, nil
}

func (p *Pipeline) persistReport(result *schemas.ValidationResult) {
	if path, err := p.gates.WriteReport(result); err != nil {
		p.logger.Warn("Could not persist gate report.", zap.Error(err))
	} else {
		p.logger.Info("Gate report written.", zap.String("path", path))
	}
}

// Capture runs the capture phase end to end and persists all artifacts. The
// returned statistics include token counts.
func (p *Pipeline) Capture(ctx context.Context) (*schemas.RunStats, error) {
	driver, err := p.newDriver(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not start browser: %w", err)
	}
	// The browser session must be released on every exit path, including
	// panics and fatal auth errors; a leaked session outlives the process.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := driver.Close(closeCtx); err != nil {
			p.logger.Warn("Browser session did not close cleanly.", zap.Error(err))
		}
	}()

	landingURL, err := auth.Login(ctx, driver, p.cfg, p.logger)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Authenticated.", zap.String("landing_url", landingURL))

	scope, err := discovery.NewScope(p.cfg.Platform.BaseURL, p.cfg.Crawl.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if p.cfg.Crawl.RespectRobots {
		p.loadRobots(ctx, scope)
	}

	crawler := discovery.NewCrawler(driver, scope, p.cfg.Crawl, p.logger)
	pages, err := crawler.Discover(ctx, landingURL)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Discovery complete.", zap.Int("pages", len(pages)))

	executor := capture.NewExecutor(driver, p.cfg.Capture, p.cfg.Output, p.logger)
	result, err := executor.Run(ctx, pages, p.cfg.Crawl.Viewports)
	if err != nil {
		return nil, err
	}

	tokenSet := tokens.NewExtractor(p.logger).ExtractFiles(htmlPaths(result))
	result.Stats.ColorsFound = tokenSet.TotalColorsFound
	result.Stats.FontsFound = len(tokenSet.Fonts.Families)

	if err := p.persistArtifacts(pages, result, tokenSet); err != nil {
		return nil, err
	}
	return &result.Stats, nil
}

// persistArtifacts writes design-tokens.json, manifest.json, and the capture
// error log beside the screenshots.
func (p *Pipeline) persistArtifacts(pages []schemas.DiscoveredPage, result *capture.Result, tokenSet *schemas.DesignTokenSet) error {
	dir := p.cfg.Output.Directory

	tokenBytes, err := manifest.Canonical(tokenSet)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "design-tokens.json"), tokenBytes, 0o644); err != nil {
		return fmt.Errorf("could not write design tokens: %w", err)
	}

	builder := manifest.NewBuilder(p.cfg.Platform, p.logger)
	m := builder.Build(pages, result, "design-tokens.json")
	if err := builder.Write(m, filepath.Join(dir, "manifest.json")); err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		data, err := json.MarshalIndent(result.Errors, "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal capture errors: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "capture-errors.json"), data, 0o644); err != nil {
			return fmt.Errorf("could not write capture error log: %w", err)
		}
	}

	p.logger.Info("Artifacts persisted.",
		zap.String("dir", dir),
		zap.Int("pages", len(m.Pages)),
		zap.Int("capture_errors", len(result.Errors)))
	return nil
}

// loadRobots fetches and installs robots.txt rules. Failures are soft; an
// unreachable robots file means no robots restrictions.
func (p *Pipeline) loadRobots(ctx context.Context, scope *discovery.Scope) {
	robotsURL := scope.Base().JoinPath("robots.txt").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		p.logger.Debug("Could not fetch robots.txt.", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return
	}
	if err := scope.SetRobots(body); err != nil {
		p.logger.Warn("Could not parse robots.txt.", zap.Error(err))
	}
}

func htmlPaths(result *capture.Result) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, a := range result.Artifacts {
		if a.HTMLPath != "" && !seen[a.HTMLPath] {
			seen[a.HTMLPath] = true
			paths = append(paths, a.HTMLPath)
		}
	}
	return paths
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
