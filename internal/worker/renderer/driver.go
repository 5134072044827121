// Package renderer runs the external Manim CLI against a generated script.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/animation"
	"scenecast/internal/pkg/errors"
	"scenecast/internal/pkg/logger"
)

// waitDelay is how long Wait keeps reading output after the renderer was
// killed.
const waitDelay = 2 * time.Second

// DefaultResolution applies when the options carry no resolution.
const DefaultResolution = "720p"

var qualityFlags = map[string]string{
	"480p":  "-ql",
	"720p":  "-qm",
	"1080p": "-qh",
}

// QualityFlag maps a resolution label to a Manim quality preset. Unknown
// labels render at medium quality.
func QualityFlag(resolution string) string {
	if f, ok := qualityFlags[resolution]; ok {
		return f
	}
	return "-qm"
}

// Metrics describe a finished render.
type Metrics struct {
	DurationSeconds float64
	ByteSize        int64
	Resolution      string
	Filename        string
}

// Output is a rendered video on local disk.
type Output struct {
	Path    string
	Metrics Metrics
}

// Config locates the executable and the working directories.
type Config struct {
	Executable string
	OutputDir  string
	ScratchDir string
	// Timeout bounds a single renderer run; zero waits forever.
	Timeout time.Duration
}

// Driver runs one renderer process per Render call. It holds no state
// between calls and is safe for concurrent use.
type Driver struct {
	cfg Config
	log *logger.Logger
	now func() time.Time
}

func New(cfg Config, log *logger.Logger) *Driver {
	return &Driver{cfg: cfg, log: log.WithComponent("renderer"), now: time.Now}
}

// ResolutionOf reads options["resolution"], defaulting to 720p.
func ResolutionOf(options map[string]any) string {
	if s, ok := options["resolution"].(string); ok && s != "" {
		return s
	}
	return DefaultResolution
}

// Render writes script to a fresh scratch file, renders it into
// OutputDir/outputName and reports metrics. Failures are RENDER_ERROR
// errors carrying the renderer's stderr. The scratch file is removed on
// every return path.
func (d *Driver) Render(ctx context.Context, script, outputName string, options map[string]any) (*Output, error) {
	const op = "renderer.render"
	start := d.now()

	if outputName == "" || filepath.Base(outputName) != outputName {
		return nil, errors.ValidationField("outputName", "output name must be a plain file name")
	}

	scriptPath, err := d.writeScript(script)
	if err != nil {
		return nil, errors.Wrap(err, op, "could not write scene script")
	}
	defer func() {
		if err := os.Remove(scriptPath); err != nil && !os.IsNotExist(err) {
			d.log.Warn("could not remove scene script", "path", scriptPath, "error", err.Error())
		}
	}()

	resolution := ResolutionOf(options)
	outPath := filepath.Join(d.cfg.OutputDir, outputName)
	args := []string{
		scriptPath,
		animation.SceneName,
		QualityFlag(resolution),
		"--output_file", outPath,
		"--disable_caching",
	}

	runCtx := ctx
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	d.log.FromContext(ctx).Info("starting render", "cmd", d.cfg.Executable+" "+strings.Join(args, " "))

	cmd := command(runCtx, d.cfg.Executable, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if d.cfg.Timeout > 0 && runCtx.Err() == context.DeadlineExceeded {
			return nil, errors.Render(fmt.Sprintf("renderer timed out after %s", d.cfg.Timeout), tail(stderr.String())).
				WithField("timeout", d.cfg.Timeout.String())
		}
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = "unknown rendering error"
		}
		d.log.FromContext(ctx).Error("render failed", "error", err.Error(), "stderr", tail(diagnostic))
		rerr := errors.Render("rendering failed: "+firstLine(diagnostic), diagnostic)
		rerr.Op = op
		rerr.Err = err
		return nil, rerr
	}
	d.log.FromContext(ctx).Debug("renderer output", "stdout", tail(stdout.String()))

	info, err := os.Stat(outPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.Render("output video file was not created", tail(stderr.String())).WithField("path", outPath)
	}

	elapsed := d.now().Sub(start)
	d.log.FromContext(ctx).Info("render completed",
		"filename", outputName,
		"duration_ms", elapsed.Milliseconds(),
		logger.Bytes("size", info.Size()),
	)

	return &Output{
		Path: outPath,
		Metrics: Metrics{
			DurationSeconds: elapsed.Seconds(),
			ByteSize:        info.Size(),
			Resolution:      resolution,
			Filename:        outputName,
		},
	}, nil
}

// Version runs `<executable> --version`.
func (d *Driver) Version(ctx context.Context) (string, error) {
	out, err := command(ctx, d.cfg.Executable, "--version").Output()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, "renderer.version", "renderer is not available")
	}
	return strings.TrimSpace(string(out)), nil
}

// command builds a renderer invocation whose cancellation reaches every
// process it spawned. WaitDelay bounds the wait for pipes still held open
// by anything that escaped the group kill.
func command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	return cmd
}

func (d *Driver) writeScript(script string) (string, error) {
	f, err := os.CreateTemp(d.cfg.ScratchDir, "scene_*.py")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// tail keeps log lines bounded; the full stderr still goes to the error.
func tail(s string) string {
	const max = 4096
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
