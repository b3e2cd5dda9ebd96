package storage

import (
	"strings"
	"testing"
)

func TestNewS3ImageStore_MissingBucket_ReturnsError(t *testing.T) {
	_, err := NewS3ImageStore(Config{
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err == nil {
		t.Fatal("expected error for missing bucket")
	}
}

func TestNewS3ImageStore_MissingCredentials_ReturnsError(t *testing.T) {
	_, err := NewS3ImageStore(Config{
		Bucket: "honeyboard-images",
	})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestS3ImageStore_PublicURL_AWSStyle(t *testing.T) {
	store, err := NewS3ImageStore(Config{
		Bucket:    "honeyboard-images",
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "ap-northeast-2",
	})
	if err != nil {
		t.Fatalf("NewS3ImageStore() error = %v", err)
	}

	url := store.PublicURL("images/abc.png")
	want := "https://honeyboard-images.s3.ap-northeast-2.amazonaws.com/images/abc.png"
	if url != want {
		t.Errorf("PublicURL = %q, want %q", url, want)
	}
}

func TestS3ImageStore_PublicURL_CustomEndpoint(t *testing.T) {
	store, err := NewS3ImageStore(Config{
		Bucket:    "honeyboard-images",
		Endpoint:  "http://localhost:9000/",
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3ImageStore() error = %v", err)
	}

	url := store.PublicURL("images/abc.png")
	if url != "http://localhost:9000/honeyboard-images/images/abc.png" {
		t.Errorf("PublicURL = %q", url)
	}
	if strings.Contains(url, "//honeyboard-images") {
		t.Errorf("endpoint slash not trimmed: %q", url)
	}
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png", ".png"},
		{"image/gif", ".gif"},
		{"image/webp", ".webp"},
		{"application/octet-stream", ""},
	}

	for _, tt := range tests {
		if got := extensionFor(tt.contentType); got != tt.want {
			t.Errorf("extensionFor(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
