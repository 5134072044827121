// Package testutil provides stand-in executables for the renderer and the
// thumbnailer so tests never need Manim or ffmpeg installed.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ManimOK writes a fake video to the --output_file argument and records its
// arguments next to itself in args.txt.
const ManimOK = `#!/bin/sh
echo "$@" > "$(dirname "$0")/args.txt"
if [ "$1" = "--version" ]; then
  echo "Manim Community v0.18.1"
  exit 0
fi
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_file" ]; then out="$2"; fi
  shift
done
printf 'fake-mp4-bytes' > "$out"
`

// ManimFail exits non-zero with a traceback on stderr.
const ManimFail = `#!/bin/sh
echo "Traceback (most recent call last):" >&2
echo "NameError: name 'Circel' is not defined" >&2
exit 1
`

// ManimSilentFail exits non-zero without diagnostics.
const ManimSilentFail = "#!/bin/sh\nexit 2\n"

// ManimNoOutput exits zero but never writes the video.
const ManimNoOutput = "#!/bin/sh\nexit 0\n"

// ManimHang never finishes on its own.
const ManimHang = "#!/bin/sh\nexec sleep 30\n"

// ManimForkHang leaves a child process holding stdout and stderr while the
// shell itself waits on it.
const ManimForkHang = "#!/bin/sh\nsleep 30\necho done\n"

// FFmpegOK writes a fake jpeg to its last argument.
const FFmpegOK = `#!/bin/sh
for last; do :; done
printf 'fake-jpg' > "$last"
`

// FFmpegFail reports a decode error.
const FFmpegFail = `#!/bin/sh
echo "moov atom not found" >&2
exit 1
`

// WriteStub writes an executable script named name into a fresh temp dir
// and returns its path.
func WriteStub(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

// StubArgs returns what a ManimOK stub last recorded.
func StubArgs(t *testing.T, stubPath string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(filepath.Dir(stubPath), "args.txt"))
	if err != nil {
		t.Fatalf("read stub args: %v", err)
	}
	return string(b)
}

// PollUntil calls cond every few milliseconds until it returns true or the
// timeout passes.
func PollUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
