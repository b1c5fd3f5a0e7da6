package media

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteFetcher talks to a cobalt-compatible extraction API: the API resolves
// the link to a direct media URL which is then downloaded into the slot.
type RemoteFetcher struct {
	client *resty.Client
}

func NewRemoteFetcher(baseURL, apiKey string) *RemoteFetcher {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0).
		SetTimeout(0)
	if apiKey != "" {
		client.SetHeader("Authorization", fmt.Sprintf("Api-Key %s", apiKey))
	}
	return &RemoteFetcher{client: client}
}

type remoteRequest struct {
	URL          string `json:"url"`
	VideoQuality string `json:"videoQuality"`
	DownloadMode string `json:"downloadMode"`
}

type remoteResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Picker   []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"picker"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (f *RemoteFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	quality := "max"
	if req.Quality != "" && req.Quality != QualityBest {
		quality = string(req.Quality)
	}

	resolved := &remoteResponse{}
	resp, err := f.client.R().
		SetContext(ctx).
		SetBody(&remoteRequest{URL: req.URL, VideoQuality: quality, DownloadMode: "auto"}).
		SetResult(resolved).
		SetError(resolved).
		Post("/")
	if err != nil {
		return nil, fetchFailure(ctx, "extractor unreachable", err)
	}

	mediaURL, err := resolved.mediaURL()
	if err != nil {
		return nil, &FetchError{Reason: err.Error()}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{Reason: fmt.Sprintf("extractor returned %d", resp.StatusCode())}
	}

	name := safeFilename(resolved.Filename)
	path := filepath.Join(req.Dir, name)

	dl, err := f.client.R().
		SetContext(ctx).
		SetOutput(path).
		Get(mediaURL)
	if err != nil {
		return nil, fetchFailure(ctx, "download failed", err)
	}
	if dl.IsError() {
		return nil, &FetchError{Reason: fmt.Sprintf("download returned %d", dl.StatusCode())}
	}

	return &FetchResult{
		Path:  path,
		Title: strings.TrimSuffix(name, filepath.Ext(name)),
	}, nil
}

func (r *remoteResponse) mediaURL() (string, error) {
	switch r.Status {
	case "tunnel", "redirect", "stream":
		if r.URL == "" {
			return "", fmt.Errorf("extractor returned no url")
		}
		return r.URL, nil
	case "picker":
		for _, item := range r.Picker {
			if item.URL != "" {
				return item.URL, nil
			}
		}
		return "", fmt.Errorf("extractor returned an empty picker")
	case "error":
		if r.Error != nil && r.Error.Code != "" {
			return "", fmt.Errorf("extractor error: %s", r.Error.Code)
		}
		return "", fmt.Errorf("extractor error")
	default:
		return "", fmt.Errorf("unexpected extractor status %q", r.Status)
	}
}

func fetchFailure(ctx context.Context, reason string, err error) *FetchError {
	if fe := contextFailure(ctx.Err()); fe != nil {
		return fe
	}
	return &FetchError{Reason: reason, Err: err}
}

func safeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" || name == ".." {
		return fmt.Sprintf("media-%d.bin", time.Now().UnixNano())
	}
	return name
}
