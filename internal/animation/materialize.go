package animation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"scenecast/internal/pkg/errors"
)

// SceneName is the class every generated script declares.
const SceneName = "GeneratedAnimation"

// DefaultText is used by the text template when the prompt quotes nothing.
const DefaultText = "Hello World"

const minWait = 0.1

var (
	quotedText = regexp.MustCompile(`["']([^"']+)["']`)
	hexColor   = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

	pyStringEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
)

// requiredMarkers must all appear in a generated script.
var requiredMarkers = []string{
	"from manim import *",
	"class " + SceneName + "(Scene):",
	"def construct(self):",
	"self.play(",
}

// Params are the values a template is filled with.
type Params struct {
	// Prompt is only read by the text template.
	Prompt          string
	Duration        float64
	BackgroundColor string
	Width           int
	Height          int
	FrameRate       int
}

// Materialize renders the template for category and validates the result.
func Materialize(category Category, p Params) (string, error) {
	const op = "animation.materialize"

	if p.Duration < 0 || math.IsNaN(p.Duration) {
		return "", errors.ValidationField("duration", "duration must not be negative")
	}
	if !hexColor.MatchString(p.BackgroundColor) {
		return "", errors.ValidationField("backgroundColor", "background color must match #RRGGBB")
	}
	if p.Width <= 0 || p.Height <= 0 || p.FrameRate <= 0 {
		return "", errors.Validation("width, height and frame rate must be positive")
	}

	tmpl, ok := templates[category]
	if !ok {
		tmpl = templates[CategoryDefault]
		category = CategoryDefault
	}

	data := sceneData{
		BackgroundColor: p.BackgroundColor,
		FrameRate:       p.FrameRate,
		Width:           p.Width,
		Height:          p.Height,
		Wait:            FormatWait(WaitSeconds(category, p.Duration)),
		NeedsNumpy:      category == CategoryGraph,
	}
	if category == CategoryText {
		data.Text = pyStringEscaper.Replace(ExtractText(p.Prompt))
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", errors.WrapWithCode(err, errors.CodeGeneration, op, "template execution failed")
	}
	script := b.String()

	if err := Validate(script); err != nil {
		return "", errors.Wrap(err, op, "generated script is incomplete")
	}
	return script, nil
}

// Validate reports the first required marker missing from script.
func Validate(script string) error {
	for _, m := range requiredMarkers {
		if !strings.Contains(script, m) {
			return errors.Generation(fmt.Sprintf("missing required marker %q", m)).WithField("marker", m)
		}
	}
	return nil
}

// WaitSeconds is the trailing wait of a template: duration minus the
// template's built-in beats, never below 0.1.
func WaitSeconds(category Category, duration float64) float64 {
	return math.Max(minWait, duration-category.waitOffset())
}

// FormatWait prints w the way a Python float literal looks: 1.0, 0.1, 2.5.
func FormatWait(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ExtractText returns the first quoted phrase in prompt, or DefaultText.
func ExtractText(prompt string) string {
	if m := quotedText.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return DefaultText
}
