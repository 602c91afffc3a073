package scoring

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/namelens/pitchscore/internal/ailink"
	apperrors "github.com/namelens/pitchscore/internal/errors"
	"github.com/namelens/pitchscore/internal/metrics"
)

// Validation errors returned by Score before any provider call.
var (
	ErrNameRequired        = errors.New("project name is required")
	ErrDescriptionRequired = errors.New("project description is required")
)

// FailureMessage is the user-facing text for any scoring failure.
const FailureMessage = "Failed to analyze project. Please try again."

// Completer runs one prompt. *ailink.Service satisfies it.
type Completer interface {
	Complete(ctx context.Context, req ailink.CompleteRequest) (*ailink.CompleteResponse, error)
}

// Options configures an Orchestrator.
type Options struct {
	ScorePrompt    string
	FeedbackPrompt string
	ScoreRole      string
	FeedbackRole   string
	// Timeout bounds the whole fan-out. Zero means no extra bound.
	Timeout time.Duration
	Logger  *logging.Logger
}

// Orchestrator fans a pitch out to six score calls and one feedback call.
type Orchestrator struct {
	ai   Completer
	opts Options
}

// NewOrchestrator builds an orchestrator over ai.
func NewOrchestrator(ai Completer, opts Options) *Orchestrator {
	if strings.TrimSpace(opts.ScorePrompt) == "" {
		opts.ScorePrompt = "project-score"
	}
	if strings.TrimSpace(opts.FeedbackPrompt) == "" {
		opts.FeedbackPrompt = "project-feedback"
	}
	if strings.TrimSpace(opts.ScoreRole) == "" {
		opts.ScoreRole = "scoring"
	}
	if strings.TrimSpace(opts.FeedbackRole) == "" {
		opts.FeedbackRole = "feedback"
	}
	return &Orchestrator{ai: ai, opts: opts}
}

// PromptSlugs returns the score and feedback prompt slugs in use.
func (o *Orchestrator) PromptSlugs() []string {
	return []string{o.opts.ScorePrompt, o.opts.FeedbackPrompt}
}

// Score runs all calls in parallel. Any failed call fails the whole request
// with an EXTERNAL_SERVICE_ERROR envelope; no partial result is returned.
func (o *Orchestrator) Score(ctx context.Context, input ProjectInput) (*Result, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, apperrors.WrapInvalidInput(ctx, err, err.Error())
	}
	if o == nil || o.ai == nil {
		return nil, apperrors.NewServiceUnavailableError("scoring is not configured")
	}

	start := time.Now()
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	scores := make([]int, len(Dimensions))
	var feedbackText string

	g, gctx := errgroup.WithContext(ctx)
	for i, dim := range Dimensions {
		g.Go(func() error {
			resp, err := o.ai.Complete(gctx, ailink.CompleteRequest{
				Role:       o.opts.ScoreRole,
				PromptSlug: o.opts.ScorePrompt,
				Variables: map[string]string{
					"dimension":           dim.Label,
					"criteria":            dim.Criteria,
					"project_name":        input.Name,
					"project_description": input.Description,
				},
			})
			if err != nil {
				o.logFailure("score", dim.Key, err)
				return err
			}
			scores[i] = ParseScore(resp.Text)
			return nil
		})
	}
	g.Go(func() error {
		resp, err := o.ai.Complete(gctx, ailink.CompleteRequest{
			Role:       o.opts.FeedbackRole,
			PromptSlug: o.opts.FeedbackPrompt,
			Variables: map[string]string{
				"project_name":        input.Name,
				"project_description": input.Description,
			},
		})
		if err != nil {
			o.logFailure("feedback", "", err)
			return err
		}
		feedbackText = resp.Text
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.RecordScoring(false, time.Since(start))
		return nil, apperrors.WrapExternalService(ctx, err, FailureMessage)
	}

	result := &Result{Feedback: ParseFeedback(feedbackText)}
	for i, dim := range Dimensions {
		result.Set(dim.Key, scores[i])
	}
	metrics.RecordScoring(true, time.Since(start))
	return result, nil
}

func (o *Orchestrator) logFailure(call, dimension string, err error) {
	if o.opts.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("call", call), zap.Error(err)}
	if dimension != "" {
		fields = append(fields, zap.String("dimension", dimension))
	}
	var aerr *ailink.Error
	if errors.As(err, &aerr) {
		fields = append(fields, zap.String("code", aerr.Code))
	}
	o.opts.Logger.Warn("AI call failed", fields...)
}
