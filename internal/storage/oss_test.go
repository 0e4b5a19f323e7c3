package storage

import (
	"context"
	"strings"
	"testing"
)

func TestProcessImageURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		quality Quality
		want    string
	}{
		{
			name:    "thumbnail transform",
			raw:     "https://img.example-oss.com/posts/abc.jpg",
			quality: QualityThumbnail,
			want:    "image/resize,w_480/quality,q_60/format,webp",
		},
		{
			name:    "preview transform",
			raw:     "https://img.example-oss.com/posts/abc.jpg",
			quality: QualityPreview,
			want:    "image/resize,w_800/quality,q_75/format,webp",
		},
		{
			name:    "existing query params preserved",
			raw:     "https://img.example-oss.com/posts/abc.jpg?v=2",
			quality: QualityThumbnail,
			want:    "image/resize,w_480/quality,q_60/format,webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProcessImageURL(tt.raw, tt.quality)
			if !strings.Contains(got, "x-oss-process=") {
				t.Fatalf("ProcessImageURL(%q) = %q, missing transform param", tt.raw, got)
			}
			if !strings.HasPrefix(got, "https://img.example-oss.com/posts/abc.jpg?") {
				t.Errorf("base URL mangled: %q", got)
			}
			// The transform value is percent-encoded inside the query.
			decoded := strings.NewReplacer("%2C", ",", "%2F", "/").Replace(got)
			if !strings.Contains(decoded, tt.want) {
				t.Errorf("ProcessImageURL(%q) = %q, want transform %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestProcessImageURLPassThrough(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"already transformed", "https://img.example-oss.com/a.jpg?x-oss-process=image/resize,w_100"},
		{"relative path", "/local/upload.jpg"},
		{"unparseable", "://missing-scheme"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProcessImageURL(tt.raw, QualityThumbnail); got != tt.raw {
				t.Errorf("ProcessImageURL(%q) = %q, want unchanged", tt.raw, got)
			}
		})
	}
}

func TestObjectKeyFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://img.example-oss.com/posts/2026/abc.jpg", "posts/2026/abc.jpg"},
		{"https://img.example-oss.com/posts/abc.jpg?x-oss-process=image/resize,w_480", "posts/abc.jpg"},
		{"not a url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ObjectKeyFromURL(tt.raw); got != tt.want {
			t.Errorf("ObjectKeyFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNilBucketIsNoOp(t *testing.T) {
	var b *Bucket
	if err := b.RemoveObjects(context.Background(), []string{"posts/a.jpg"}); err != nil {
		t.Errorf("nil bucket RemoveObjects = %v, want nil", err)
	}
}
