package planner

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/reelplan/reelplan/internal/asset"
	"github.com/reelplan/reelplan/internal/prompt"
)

// PlanExtractor turns a script into a structured plan. Typically backed by
// an LLM; the planner validates the result before committing it.
type PlanExtractor interface {
	ExtractPlan(ctx context.Context, script asset.Script, bible asset.ProjectBible) (*asset.Plan, error)
}

// ShotPlanner breaks a plan into an ordered shot list.
type ShotPlanner interface {
	PlanShots(ctx context.Context, plan *asset.Plan) (*asset.ShotPlan, error)
}

// FeedbackInterpreter turns free-text image feedback into a structured edit
// delta. Used only on the image-edit path.
type FeedbackInterpreter interface {
	InterpretFeedback(ctx context.Context, img asset.Image, feedback string) (prompt.EditDelta, error)
}

// ImageBackend renders one image and returns its URL. The planner supplies
// the merged lock profile; the URL is stored verbatim.
type ImageBackend interface {
	Generate(ctx context.Context, promptText, negativePrompt string, lock asset.LockProfile) (string, error)
}

// PlaceholderImageBackend returns deterministic placeholder:// URLs derived
// from the prompt. Useful for local runs and tests where no real image
// service is wired up.
type PlaceholderImageBackend struct{}

func (PlaceholderImageBackend) Generate(_ context.Context, promptText, negativePrompt string, _ asset.LockProfile) (string, error) {
	sum := sha256.Sum256([]byte(promptText + "\x00" + negativePrompt))
	return fmt.Sprintf("placeholder://image/%x", sum[:8]), nil
}

// LiteralFeedbackInterpreter treats the feedback text as a single element to
// add. A stand-in for an LLM interpreter.
type LiteralFeedbackInterpreter struct{}

func (LiteralFeedbackInterpreter) InterpretFeedback(_ context.Context, _ asset.Image, feedback string) (prompt.EditDelta, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return prompt.EditDelta{}, nil
	}
	return prompt.EditDelta{AddElements: []string{feedback}}, nil
}
