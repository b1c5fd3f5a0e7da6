package media

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates a fake yt-dlp that understands only --output.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\nwhile [ $# -gt 0 ]; do\n  case \"$1\" in\n    --output) shift; out=\"$1\";;\n  esac\n  shift\ndone\ndir=$(dirname \"$out\")\n" + body
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestYTDLPFetcher_Args(t *testing.T) {
	f := NewYTDLPFetcher("yt-dlp")
	args := f.args(FetchRequest{URL: "https://youtu.be/x", Dir: "/tmp/slot"})

	assert.Contains(t, args, "best")
	assert.Contains(t, args, filepath.Join("/tmp/slot", "%(title).100B.%(ext)s"))
	assert.Equal(t, "https://youtu.be/x", args[len(args)-1])
	assert.Equal(t, "--", args[len(args)-2], "links starting with a dash must not be parsed as flags")
}

func TestYTDLPFetcher_Success(t *testing.T) {
	bin := writeScript(t, "printf 'data' > \"$dir/Some Title.mp4\"\necho 'Some Title'\n")
	dir := t.TempDir()

	res, err := NewYTDLPFetcher(bin).Fetch(context.Background(), FetchRequest{URL: "https://youtu.be/x", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "Some Title", res.Title)
	assert.Equal(t, filepath.Join(dir, "Some Title.mp4"), res.Path)
}

func TestYTDLPFetcher_Failure(t *testing.T) {
	bin := writeScript(t, "echo 'ERROR: Unsupported URL: https://foo.example/x' >&2\nexit 1\n")

	_, err := NewYTDLPFetcher(bin).Fetch(context.Background(), FetchRequest{URL: "https://foo.example/x", Dir: t.TempDir()})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Unsupported URL: https://foo.example/x", fe.Reason)
}

func TestYTDLPFetcher_NoOutput(t *testing.T) {
	bin := writeScript(t, "echo 'Title'\n")

	_, err := NewYTDLPFetcher(bin).Fetch(context.Background(), FetchRequest{URL: "https://youtu.be/x", Dir: t.TempDir()})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "no file was produced", fe.Reason)
}

func TestYTDLPFetcher_Timeout(t *testing.T) {
	bin := writeScript(t, "exec sleep 10\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewYTDLPFetcher(bin).Fetch(ctx, FetchRequest{URL: "https://youtu.be/x", Dir: t.TempDir()})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "timed out", fe.Reason)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestYTDLPFetcher_Canceled(t *testing.T) {
	bin := writeScript(t, "exec sleep 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := NewYTDLPFetcher(bin).Fetch(ctx, FetchRequest{URL: "https://youtu.be/x", Dir: t.TempDir()})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ReasonCanceled, fe.Reason)
}

func TestFindOutput_SkipsPartials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4.part"), []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("01"), 0o644))

	path, err := findOutput(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.mp4"), path)
}
