package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchURLExtractsText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><style>body{color:red}</style></head>
                        <body><h1>Alice</h1><script>alert("x")</script><p>Likes hiking</p></body></html>`))
	}))
	defer server.Close()

	text, err := New().FetchURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch url: %v", err)
	}
	if !strings.Contains(text, "Alice") || !strings.Contains(text, "Likes hiking") {
		t.Fatalf("expected visible text, got %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Fatalf("expected script/style stripped, got %q", text)
	}
}

func TestFetchURLNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	if _, err := New().FetchURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected error on HTTP 404")
	}
}

func TestFetchURLOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		big := strings.Repeat("a", maxContentSize+100)
		_, _ = w.Write([]byte(big))
	}))
	defer server.Close()

	if _, err := New().FetchURL(context.Background(), server.URL); err == nil {
		t.Fatal("expected error on oversized body")
	}
}

func TestFetchAllToleratesPartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>page " + r.Host + "</p>"))
	}))
	defer good.Close()
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>second page</p>"))
	}))
	defer second.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer failing.Close()

	combined, err := New().FetchAll(context.Background(), []string{good.URL, failing.URL, second.URL})
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if !strings.Contains(combined, "second page") {
		t.Fatalf("expected second page content, got %q", combined)
	}
	if !strings.Contains(combined, batchSeparator) {
		t.Fatal("expected separator between fetched pages")
	}
}

func TestFetchAllFailsWhenAllFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer failing.Close()

	_, err := New().FetchAll(context.Background(), []string{failing.URL, failing.URL})
	if !errors.Is(err, ErrAllFetchesFailed) {
		t.Fatalf("expected ErrAllFetchesFailed, got %v", err)
	}
}

func TestExtractTextEmptyInput(t *testing.T) {
	if got := ExtractText(""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
