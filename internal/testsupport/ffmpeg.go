package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Environment variables steering the stub written by StubFFmpeg.
const (
	// StubFailEnv makes the stub write a partial output, print a diagnostic and exit 1.
	StubFailEnv = "RECPROC_STUB_FAIL"
	// StubHangEnv makes the stub write a partial output and wait until interrupted.
	StubHangEnv = "RECPROC_STUB_HANG"
	// StubArgsEnv names a file the stub appends its arguments to, one invocation per line.
	StubArgsEnv = "RECPROC_STUB_ARGS"
	// StubWarnEnv is printed to stderr as a diagnostic line when set.
	StubWarnEnv = "RECPROC_STUB_WARN"
)

const stubFFmpegScript = `#!/bin/sh
if [ "$1" = "-version" ]; then
	echo "ffmpeg version stub"
	exit 0
fi
for last in "$@"; do :; done
if [ -n "$RECPROC_STUB_ARGS" ]; then
	echo "$*" >> "$RECPROC_STUB_ARGS"
fi
if [ -n "$RECPROC_STUB_WARN" ]; then
	echo "$RECPROC_STUB_WARN" >&2
fi
if [ -n "$RECPROC_STUB_FAIL" ]; then
	printf partial > "$last"
	echo "stub ffmpeg: simulated failure" >&2
	exit 1
fi
if [ -n "$RECPROC_STUB_HANG" ]; then
	printf partial > "$last"
	trap 'exit 255' INT TERM
	while :; do sleep 0.1; done
fi
printf encoded > "$last"
exit 0
`

// StubFFmpeg writes a shell script standing in for ffmpeg into dir and returns
// its path. The script answers -version and otherwise writes "encoded" to
// its last argument; its behaviour
// can be changed with the Stub*Env variables.
func StubFFmpeg(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(stubFFmpegScript), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return path
}

// StubFFprobe writes a script that prints payload (ffprobe JSON) and returns its path.
func StubFFprobe(t testing.TB, dir, payload string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	dataPath := filepath.Join(dir, "ffprobe.json")
	if err := os.WriteFile(dataPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write ffprobe payload: %v", err)
	}
	path := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat '" + dataPath + "'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}
	return path
}
