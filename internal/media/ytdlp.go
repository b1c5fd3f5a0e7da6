package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// YTDLPFetcher shells out to yt-dlp. Each call writes into the request's own
// staging directory and picks up whatever single file appears there.
type YTDLPFetcher struct {
	binary string
}

func NewYTDLPFetcher(binary string) *YTDLPFetcher {
	return &YTDLPFetcher{binary: binary}
}

func (f *YTDLPFetcher) args(req FetchRequest) []string {
	quality := req.Quality
	if quality == "" {
		quality = QualityBest
	}
	return []string{
		"--no-playlist",
		"--no-progress",
		"--no-part",
		"--format", string(quality),
		"--output", filepath.Join(req.Dir, "%(title).100B.%(ext)s"),
		"--no-simulate",
		"--print", "title",
		"--",
		req.URL,
	}
}

func (f *YTDLPFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, f.binary, f.args(req)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		if fe := contextFailure(ctx.Err()); fe != nil {
			return nil, fe
		}
		reason := stderr.String()
		if strings.TrimSpace(reason) == "" {
			reason = err.Error()
		}
		return nil, &FetchError{Reason: Sanitize(reason, req.Dir), Err: err}
	}

	path, err := findOutput(req.Dir)
	if err != nil {
		return nil, &FetchError{Reason: "no file was produced", Err: err}
	}

	title := strings.TrimSpace(stdout.String())
	if i := strings.LastIndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[i+1:])
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &FetchResult{Path: path, Title: title}, nil
}

// findOutput returns the largest regular file in dir, ignoring leftovers of
// interrupted downloads.
func findOutput(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}

	var (
		best     string
		bestSize int64 = -1
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = filepath.Join(dir, name), info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no output in %s", dir)
	}
	return best, nil
}
