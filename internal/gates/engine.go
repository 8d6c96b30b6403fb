// Package gates implements the four validation checkpoints that gate
// pipeline advancement. Each gate is a pure evaluation over the config and
// persisted artifacts: it always evaluates every check in the gate and
// returns the complete ordered list, never halting at the first failure, so
// operators get the whole picture in one pass.
package gates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kaidhar/prism-cli/api/schemas"
	"github.com/kaidhar/prism-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Engine evaluates validation gates against the artifact directory.
type Engine struct {
	cfg     *config.Config
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewEngine wires a gate engine for the given configuration.
func NewEngine(cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger.Named("gates"), nowFunc: time.Now}
}

// Run evaluates one gate phase and returns its full check list. The error
// return covers engine-level problems (unknown phase, context cancellation);
// failing checks are data, not errors.
func (e *Engine) Run(ctx context.Context, phase schemas.GatePhase) (*schemas.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &schemas.ValidationResult{Phase: phase, EvaluatedAt: e.nowFunc()}
	switch phase {
	case schemas.PhasePreCapture:
		e.preCapture(result)
	case schemas.PhasePostCapture:
		e.postCapture(result)
	case schemas.PhasePreGeneration:
		e.preGeneration(result)
	case schemas.PhasePostGeneration:
		if err := e.postGeneration(ctx, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown gate phase %q", phase)
	}

	result.Finalize()
	e.logResult(result)
	return result, nil
}

// RunAll evaluates every phase in pipeline order and returns all results.
// Evaluation continues past failing gates; the caller decides what blocks.
func (e *Engine) RunAll(ctx context.Context) ([]*schemas.ValidationResult, error) {
	var results []*schemas.ValidationResult
	for _, phase := range schemas.GatePhases {
		r, err := e.Run(ctx, phase)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// WriteReport persists the structured JSON report for a gate invocation
// beside the artifacts, named validation-<phase>.json.
func (e *Engine) WriteReport(result *schemas.ValidationResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not marshal gate report: %w", err)
	}
	path := filepath.Join(e.cfg.Output.Directory, fmt.Sprintf("validation-%s.json", result.Phase))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("could not write gate report: %w", err)
	}
	return path, nil
}

func (e *Engine) logResult(r *schemas.ValidationResult) {
	if r.Passed {
		e.logger.Info("Gate passed.", zap.String("phase", string(r.Phase)), zap.Int("checks", len(r.Checks)))
		return
	}
	for _, c := range r.FailedChecks() {
		e.logger.Warn("Gate check failed.",
			zap.String("phase", string(r.Phase)),
			zap.String("check", c.Name),
			zap.String("expected", c.Expected),
			zap.String("actual", c.Actual))
	}
}

// addCheck appends one expected/actual comparison to the result.
func addCheck(r *schemas.ValidationResult, name, expected, actual string, passed, required bool) {
	r.Checks = append(r.Checks, schemas.GateCheck{
		Name:     name,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
		Required: required,
	})
}

func (e *Engine) manifestPath() string {
	return filepath.Join(e.cfg.Output.Directory, "manifest.json")
}

func (e *Engine) tokensPath() string {
	return filepath.Join(e.cfg.Output.Directory, "design-tokens.json")
}

// resolveArtifact makes a manifest-relative reference absolute against the
// output directory. Absolute references are used as-is.
func (e *Engine) resolveArtifact(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(e.cfg.Output.Directory, ref)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
