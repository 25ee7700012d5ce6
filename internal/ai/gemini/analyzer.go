package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/ai"
	"github.com/spigell/applicant-screener/internal/applicant"
	"github.com/spigell/applicant-screener/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultMaxAttempts  = 3
	defaultBackoffBase  = 2
)

var wait = utils.WaitFor

// Options tunes retries and log previews of the Analyzer.
type Options struct {
	MaxAttempts  int
	BackoffBase  float64
	MaxLogLength int
}

// Analyzer asks the model for a summary, score, issues and follow-up questions about an applicant.
type Analyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	opts      Options
}

func NewAnalyzer(generator contentGenerator, logger *zap.Logger, opts Options) *Analyzer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{generator: generator, logger: logger, opts: opts}
}

// Analyze never fails because of the model. Once every attempt failed it returns ai.FallbackAnalysis.
// Only context cancellation is reported as an error.
func (a *Analyzer) Analyze(ctx context.Context, compressed *applicant.Compressed) (*ai.Analysis, error) {
	if compressed == nil {
		return nil, errors.New("compressed applicant is required")
	}

	payload, err := compressed.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal applicant payload: %w", err)
	}

	prompt := buildPrompt(payload)

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		a.logger.Info("sending prompt to gemini",
			zap.Int("attempt", attempt),
			zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		)
		a.logger.Debug("gemini generate content request",
			zap.String("prompt_preview", utils.TruncateForLog(prompt, a.opts.MaxLogLength)),
		)

		analysis, err := a.attempt(ctx, prompt)
		if err == nil {
			return analysis, nil
		}

		a.logger.Error("gemini analysis attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == a.opts.MaxAttempts {
			break
		}

		delay := a.backoff(attempt)
		a.logger.Info("retrying gemini analysis", zap.Duration("wait", delay))
		if err := wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("wait before retry: %w", err)
		}
	}

	a.logger.Error("maximum gemini attempts reached, returning fallback analysis",
		zap.Int("attempts", a.opts.MaxAttempts),
	)

	return ai.FallbackAnalysis(), nil
}

func (a *Analyzer) attempt(ctx context.Context, prompt string) (*ai.Analysis, error) {
	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.opts.MaxLogLength)),
	)

	return ParseResponse(raw)
}

// backoff returns base^attempt seconds.
func (a *Analyzer) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(a.opts.BackoffBase, float64(attempt)) * float64(time.Second))
}

func (a *Analyzer) Model() string {
	return a.generator.Model()
}

func buildPrompt(applicantJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Applicant JSON:\n{{APPLICANT_JSON}}\n"
	}
	return strings.ReplaceAll(template, "{{APPLICANT_JSON}}", applicantJSON)
}
