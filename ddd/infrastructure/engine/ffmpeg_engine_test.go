package engine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript installs an executable shell script standing in for ffmpeg.
func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	p := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func TestFFmpegEngineFileOps(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := NewFFmpegEngine("ffmpeg", "/stage", fs, 0, Hooks{})
	ctx := context.Background()

	require.NoError(t, e.WriteFile(ctx, "input-abc.mov", []byte("raw")))
	data, err := e.ReadFile(ctx, "input-abc.mov")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(data))

	require.NoError(t, e.DeleteFile(ctx, "input-abc.mov"))
	require.NoError(t, e.DeleteFile(ctx, "input-abc.mov"))
	_, err = e.ReadFile(ctx, "input-abc.mov")
	assert.Error(t, err)

	assert.Equal(t, DefaultExecTimeout, e.timeout)
	assert.Equal(t, "ffmpeg", e.Binary())
}

func TestStagedPathRejectsEscapes(t *testing.T) {
	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, "/etc/passwd"} {
		_, err := stagedPath(name)
		assert.Error(t, err, name)
	}
	p, err := stagedPath("output-abc.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/output-abc.mp4", p)
}

func TestFFmpegEngineExecReportsProgress(t *testing.T) {
	bin := writeScript(t, t.TempDir(), `
for a; do out="$a"; done
echo "$@" > args.txt
echo "  Duration: 00:00:04.00, start: 0.000000, bitrate: 900 kb/s" >&2
echo "out_time_us=1000000" >&2
echo "progress=continue" >&2
echo "out_time_us=3000000" >&2
echo "progress=end" >&2
printf 'compressed' > "$out"
`)
	dir := t.TempDir()
	var logs []string
	var hookRatios []float64
	e := NewFFmpegEngine(bin, dir, nil, 10*time.Second, Hooks{
		OnLog:      func(line string) { logs = append(logs, line) },
		OnProgress: func(r float64) { hookRatios = append(hookRatios, r) },
	})

	var ratios []float64
	err := e.Exec(context.Background(), []string{"-i", "input.mov", "output.mp4"}, func(r float64) {
		ratios = append(ratios, r)
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.25, 0.75, 1}, ratios)
	assert.Equal(t, ratios, hookRatios)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "Duration: 00:00:04.00")

	out, err := e.ReadFile(context.Background(), "output.mp4")
	require.NoError(t, err)
	assert.Equal(t, "compressed", string(out))

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err)
	assert.Equal(t, "-hide_banner -nostats -progress pipe:2 -i input.mov output.mp4", strings.TrimSpace(string(args)))
}

func TestFFmpegEngineExecFailureCarriesStderrTail(t *testing.T) {
	bin := writeScript(t, t.TempDir(), `
echo "input.mov: Invalid data found when processing input" >&2
echo "Conversion failed!" >&2
exit 1
`)
	e := NewFFmpegEngine(bin, t.TempDir(), nil, 10*time.Second, Hooks{})

	err := e.Exec(context.Background(), []string{"-i", "input.mov", "output.mp4"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg failed")
	assert.Contains(t, err.Error(), "Conversion failed!")
}

func TestFFmpegEngineExecTimeout(t *testing.T) {
	bin := writeScript(t, t.TempDir(), "exec sleep 5\n")
	e := NewFFmpegEngine(bin, t.TempDir(), nil, 100*time.Millisecond, Hooks{})

	started := time.Now()
	err := e.Exec(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(started), 4*time.Second)
}

func TestFFmpegEngineExecDrainsOverlongStderrLine(t *testing.T) {
	for _, tool := range []string{"head", "tr"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
	// 超过扫描缓冲上限的单行输出，之后还有足够填满管道的内容
	bin := writeScript(t, t.TempDir(), `
head -c 1200000 /dev/zero | tr '\0' 'x' >&2
echo >&2
head -c 200000 /dev/zero | tr '\0' 'y' >&2
exit 0
`)
	e := NewFFmpegEngine(bin, t.TempDir(), nil, 10*time.Second, Hooks{})

	started := time.Now()
	require.NoError(t, e.Exec(context.Background(), nil, nil))
	assert.Less(t, time.Since(started), 5*time.Second)
}
