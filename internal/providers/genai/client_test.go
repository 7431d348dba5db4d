package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateImageDecodesInlineData(t *testing.T) {
	data := tinyPNG(t)
	var captured generateRequest
	client, err := NewClient(Options{
		APIKey: "key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("x-goog-api-key") != "key" || r.URL.Query().Get("key") != "" {
				t.Fatalf("api key must travel in the header only")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			body := `{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/png","data":"` +
				base64.StdEncoding.EncodeToString(data) + `"}}]}}]}`
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	asset, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "a cabin", AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("GenerateImage returned error: %v", err)
	}
	if asset.Width != 4 || asset.Height != 3 || asset.Format != "image/png" {
		t.Fatalf("unexpected asset: %+v", asset)
	}
	if len(captured.GenerationConfig.ResponseModalities) != 2 {
		t.Fatalf("response modalities not requested: %+v", captured.GenerationConfig)
	}
	if captured.GenerationConfig.ImageConfig == nil || captured.GenerationConfig.ImageConfig.AspectRatio != "16:9" {
		t.Fatalf("image config = %+v", captured.GenerationConfig.ImageConfig)
	}
	if !strings.Contains(captured.Contents[0].Parts[0].Text, "Aspect ratio: 16:9") {
		t.Fatalf("prompt = %q", captured.Contents[0].Parts[0].Text)
	}
}

func TestGenerateImageErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"code":429,"message":"quota"}}`, want: "quota"},
		{name: "text only", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":"no"}]}}]}`, want: "no image"},
		{name: "blocked", status: http.StatusOK, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, want: "blocked"},
		{name: "garbage image", status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"aGVsbG8="}}]}}]}`, want: "not a decodable image"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := NewClient(Options{
				APIKey: "key",
				HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
					return &http.Response{StatusCode: tc.status, Body: io.NopCloser(strings.NewReader(tc.body)), Header: http.Header{}}, nil
				})},
			})
			_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestGenerateImageWithoutKey(t *testing.T) {
	client, _ := NewClient(Options{})
	if _, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestAPIErrorTransient(t *testing.T) {
	for status, want := range map[int]bool{429: true, 500: true, 503: true, 400: false, 403: false} {
		client, _ := NewClient(Options{
			APIKey: "key",
			HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("{}")), Header: http.Header{}}, nil
			})},
		})
		_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Transient() != want {
			t.Fatalf("status %d: err = %v, want transient %v", status, err, want)
		}
	}
}
