package animation

import (
	"time"

	"scenecast/internal/pkg/errors"
)

// Resolution is a frame size keyed by its label.
type Resolution struct {
	Label  string
	Width  int
	Height int
}

var resolutions = map[string]Resolution{
	"480p":  {"480p", 854, 480},
	"720p":  {"720p", 1280, 720},
	"1080p": {"1080p", 1920, 1080},
}

// DefaultResolution is used for unknown labels.
var DefaultResolution = resolutions["720p"]

// LookupResolution resolves a label such as "1080p".
func LookupResolution(label string) (Resolution, bool) {
	r, ok := resolutions[label]
	if !ok {
		return DefaultResolution, false
	}
	return r, true
}

// GenerateOptions are the user-facing knobs of a generation request.
type GenerateOptions struct {
	Duration        float64
	Resolution      string
	FrameRate       int
	BackgroundColor string
}

// Generated is a materialized script plus how it was produced.
type Generated struct {
	Script   string
	Category Category
	Elapsed  time.Duration
}

// Generator couples a Selector with the materializer.
type Generator struct {
	selector Selector
}

// NewGenerator uses sel, or the default keyword rules when sel is nil.
func NewGenerator(sel Selector) *Generator {
	if sel == nil {
		sel = NewRuleSelector()
	}
	return &Generator{selector: sel}
}

// Generate classifies prompt and fills the matching template.
func (g *Generator) Generate(prompt string, opts GenerateOptions) (*Generated, error) {
	start := time.Now()

	res, _ := LookupResolution(opts.Resolution)
	category := g.selector.Select(prompt)

	script, err := Materialize(category, Params{
		Prompt:          prompt,
		Duration:        opts.Duration,
		BackgroundColor: opts.BackgroundColor,
		Width:           res.Width,
		Height:          res.Height,
		FrameRate:       opts.FrameRate,
	})
	if err != nil {
		return nil, errors.Wrap(err, "animation.generate", "could not generate scene script")
	}
	return &Generated{Script: script, Category: category, Elapsed: time.Since(start)}, nil
}
