package animation

import (
	"strings"
	"testing"

	"scenecast/internal/pkg/errors"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		prompt string
		want   Category
	}{
		{"draw a blue circle", CategoryCircle},
		{"A BOUNCING BALL", CategoryCircle},
		{"a rotating Rectangle", CategorySquare},
		{"write 'hi there' slowly", CategoryText},
		{"plot a sine wave", CategoryGraph},
		{"a bar CHART of sales", CategoryGraph},
		{"an exploding star", CategoryDefault},
		// rule order: circle shadows text and square
		{"write text inside a round box", CategoryCircle},
		{"a box chart", CategorySquare},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			if got := Select(tt.prompt); got != tt.want {
				t.Errorf("Select(%q) = %s, want %s", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	first := Select("a square dancing with a circle")
	for i := 0; i < 50; i++ {
		if got := Select("a square dancing with a circle"); got != first {
			t.Fatalf("iteration %d: got %s, first was %s", i, got, first)
		}
	}
}

func TestCustomSelectorRules(t *testing.T) {
	sel := RuleSelector{Rules: []Rule{{CategoryGraph, []string{"sine"}}}}
	if got := sel.Select("draw a sine circle"); got != CategoryGraph {
		t.Errorf("expected custom table to win, got %s", got)
	}
}

func TestWaitSeconds(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		duration float64
		want     float64
	}{
		{"circle default duration", CategoryCircle, 5, 1},
		{"graph offset", CategoryGraph, 5, 2},
		{"default offset", CategoryDefault, 5, 0.1},
		{"zero duration clamps", CategoryText, 0, 0.1},
		{"exact offset clamps", CategorySquare, 4, 0.1},
		{"long", CategoryDefault, 60, 55},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WaitSeconds(tt.category, tt.duration); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFormatWait(t *testing.T) {
	for in, want := range map[float64]string{1: "1.0", 0.1: "0.1", 2.5: "2.5", 55: "55.0"} {
		if got := FormatWait(in); got != want {
			t.Errorf("FormatWait(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestExtractText(t *testing.T) {
	tests := map[string]string{
		`write "Hello Go" in yellow`:     "Hello Go",
		`show the words 'scenecast'`:     "scenecast",
		`write some letters`:             DefaultText,
		`write "first" and then "second"`: "first",
	}
	for prompt, want := range tests {
		if got := ExtractText(prompt); got != want {
			t.Errorf("ExtractText(%q) = %q, want %q", prompt, got, want)
		}
	}
}

func defaultParams(prompt string) Params {
	return Params{Prompt: prompt, Duration: 5.0, BackgroundColor: "#000000", Width: 1280, Height: 720, FrameRate: 30}
}

func TestMaterializeBlueCircle(t *testing.T) {
	prompt := "draw a blue circle"
	category := Select(prompt)
	if category != CategoryCircle {
		t.Fatalf("expected circle, got %s", category)
	}

	script, err := Materialize(category, defaultParams(prompt))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	for _, want := range []string{
		"class GeneratedAnimation(Scene):",
		"Circle(radius=1.5, color=BLUE)",
		"self.wait(1.0)",
		`self.camera.background_color = "#000000"`,
		"config.frame_rate = 30",
		"config.pixel_width = 1280",
		"config.pixel_height = 720",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("expected script to contain %q\n%s", want, script)
		}
	}
	if n := strings.Count(script, "self.play("); n != 3 {
		t.Errorf("expected three play calls, got %d", n)
	}
	if strings.Contains(script, "numpy") {
		t.Error("circle template should not import numpy")
	}
}

func TestMaterializeEveryCategoryValidates(t *testing.T) {
	for _, c := range []Category{CategoryCircle, CategorySquare, CategoryText, CategoryGraph, CategoryDefault} {
		t.Run(string(c), func(t *testing.T) {
			p := defaultParams("x")
			p.Duration = 0
			script, err := Materialize(c, p)
			if err != nil {
				t.Fatalf("Materialize: %v", err)
			}
			if err := Validate(script); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !strings.Contains(script, "self.wait(0.1)") {
				t.Errorf("expected clamped wait in\n%s", script)
			}
		})
	}
}

func TestMaterializeGraphImportsNumpy(t *testing.T) {
	script, err := Materialize(CategoryGraph, defaultParams("plot"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(script, "from manim import *\nimport numpy as np\n") {
		t.Errorf("unexpected header:\n%s", script)
	}
	if !strings.Contains(script, "self.wait(2.0)") {
		t.Error("expected graph wait of 2.0")
	}
}

func TestMaterializeTextEscapes(t *testing.T) {
	script, err := Materialize(CategoryText, defaultParams(`write "C:\temp" please`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(script, `Text("C:\\temp", font_size=48`) {
		t.Errorf("expected escaped backslash in\n%s", script)
	}
}

func TestMaterializeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"color", func(p *Params) { p.BackgroundColor = "black" }},
		{"short color", func(p *Params) { p.BackgroundColor = "#FFF" }},
		{"negative duration", func(p *Params) { p.Duration = -1 }},
		{"zero width", func(p *Params) { p.Width = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams("x")
			tt.mutate(&p)
			_, err := Materialize(CategoryCircle, p)
			if !errors.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateMissingMarker(t *testing.T) {
	err := Validate("from manim import *\nclass GeneratedAnimation(Scene):\n    def construct(self):\n        pass\n")
	if !errors.IsCode(err, errors.CodeGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if errors.GetFields(err)["marker"] != "self.play(" {
		t.Errorf("expected missing play marker, got %v", errors.GetFields(err))
	}
}

type fixedSelector Category

func (f fixedSelector) Select(string) Category { return Category(f) }

func TestGenerator(t *testing.T) {
	g := NewGenerator(nil)
	out, err := g.Generate("draw a square", GenerateOptions{Duration: 6, Resolution: "1080p", FrameRate: 60, BackgroundColor: "#112233"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Category != CategorySquare {
		t.Errorf("expected square, got %s", out.Category)
	}
	for _, want := range []string{"config.pixel_width = 1920", "config.frame_rate = 60", "self.wait(2.0)", "#112233"} {
		if !strings.Contains(out.Script, want) {
			t.Errorf("expected %q in script", want)
		}
	}

	out, err = NewGenerator(fixedSelector(CategoryGraph)).Generate("draw a square", GenerateOptions{Duration: 5, Resolution: "4k", FrameRate: 30, BackgroundColor: "#000000"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Category != CategoryGraph || !strings.Contains(out.Script, "config.pixel_height = 720") {
		t.Errorf("expected injected selector and default resolution, got %s", out.Category)
	}
}

func TestGeneratorWrapsValidation(t *testing.T) {
	_, err := NewGenerator(nil).Generate("draw a circle", GenerateOptions{Duration: 5, Resolution: "720p", FrameRate: 30, BackgroundColor: "red"})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation code to survive wrapping, got %v", err)
	}
}
