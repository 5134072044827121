package animation

import "text/template"

// sceneHeader is shared by every template. The config assignments make the
// requested frame rate and resolution reach the renderer.
const sceneHeader = `from manim import *
{{- if .NeedsNumpy}}
import numpy as np
{{- end}}

config.frame_rate = {{.FrameRate}}
config.pixel_width = {{.Width}}
config.pixel_height = {{.Height}}

class GeneratedAnimation(Scene):
    def construct(self):
        self.camera.background_color = "{{.BackgroundColor}}"
`

var bodies = map[Category]string{
	CategoryCircle: `
        circle = Circle(radius=1.5, color=BLUE)
        circle.set_fill(BLUE, opacity=0.7)

        self.play(Create(circle), run_time=1)
        self.play(
            circle.animate.scale(1.5).set_color(RED),
            run_time=1.5
        )
        self.play(
            circle.animate.shift(RIGHT * 2).rotate(PI),
            run_time=1.5
        )
        self.wait({{.Wait}})
`,
	CategorySquare: `
        square = Square(side_length=2, color=GREEN)
        square.set_fill(GREEN, opacity=0.6)

        self.play(Create(square), run_time=1)
        self.play(
            square.animate.rotate(PI/4).set_color(YELLOW),
            run_time=1.5
        )
        self.play(
            square.animate.scale(0.5).shift(UP * 2),
            run_time=1.5
        )
        self.wait({{.Wait}})
`,
	CategoryText: `
        text_obj = Text("{{.Text}}", font_size=48, color=WHITE)

        self.play(Write(text_obj), run_time=2)
        self.play(
            text_obj.animate.scale(1.2).set_color(YELLOW),
            run_time=1
        )
        self.play(
            text_obj.animate.rotate(PI/6),
            run_time=1
        )
        self.wait({{.Wait}})
`,
	CategoryGraph: `
        axes = Axes(
            x_range=[-3, 3, 1],
            y_range=[-2, 2, 1],
            x_length=6,
            y_length=4
        )
        func = axes.plot(lambda x: np.sin(x), color=BLUE, x_range=[-3, 3])

        self.play(Create(axes), run_time=1)
        self.play(Create(func), run_time=2)
        self.wait({{.Wait}})
`,
	CategoryDefault: `
        circle = Circle(radius=1, color=BLUE).shift(LEFT * 2)
        square = Square(side_length=1.5, color=RED)
        triangle = Triangle(color=GREEN).shift(RIGHT * 2)
        shapes = Group(circle, square, triangle)

        self.play(Create(shapes), run_time=2)
        self.play(
            shapes.animate.rotate(PI/2),
            run_time=1.5
        )
        self.play(
            shapes.animate.scale(0.8).shift(UP),
            run_time=1.5
        )
        self.wait({{.Wait}})
`,
}

var templates = func() map[Category]*template.Template {
	out := make(map[Category]*template.Template, len(bodies))
	for c, body := range bodies {
		out[c] = template.Must(template.New(string(c)).Parse(sceneHeader + body))
	}
	return out
}()

// sceneData is what every template renders from.
type sceneData struct {
	BackgroundColor string
	FrameRate       int
	Width           int
	Height          int
	Wait            string
	Text            string
	NeedsNumpy      bool
}
