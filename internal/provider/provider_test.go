package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const ddgFixture = `
<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&rut=x">Go Documentation</a>
  <a class="result__snippet">The official Go documentation.</a>
</div>
<div class="result">
  <a class="result__a" href="https://en.wikipedia.org/wiki/Go_(programming_language)">Go (programming language)</a>
  <a class="result__snippet">Go is a statically typed language.</a>
</div>
<div class="result">
  <a class="result__a" href="">No URL result</a>
</div>
</body></html>`

func TestParseDuckDuckGoHTML(t *testing.T) {
	docs, err := parseDuckDuckGoHTML([]byte(ddgFixture), 10)
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].URL != "https://go.dev/doc/" {
		t.Errorf("redirect not unwrapped: %q", docs[0].URL)
	}
	if docs[0].Title != "Go Documentation" {
		t.Errorf("Title = %q", docs[0].Title)
	}
	if docs[0].Snippet != "The official Go documentation." {
		t.Errorf("Snippet = %q", docs[0].Snippet)
	}
	if docs[1].Source != "en.wikipedia.org" {
		t.Errorf("Source = %q", docs[1].Source)
	}
}

func TestParseDuckDuckGoHTMLRespectsMax(t *testing.T) {
	docs, err := parseDuckDuckGoHTML([]byte(ddgFixture), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d docs, want 1", len(docs))
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "key123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"Go","url":"https://go.dev","description":"The Go language","page_age":"2024-03-01T00:00:00"},
			{"title":"","url":"https://skip.me"}
		]}}`))
	}))
	defer srv.Close()

	b, err := NewBrave(srv.URL, "key123")
	if err != nil {
		t.Fatal(err)
	}
	res, err := b.Search(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if res.ProviderName != "brave" {
		t.Errorf("ProviderName = %q", res.ProviderName)
	}
	if len(res.Documents) != 1 {
		t.Fatalf("got %d docs, want 1 (untitled result skipped)", len(res.Documents))
	}
	if res.Documents[0].PublishedAt == nil {
		t.Error("expected page_age parsed")
	}
}

func TestBraveRequiresKey(t *testing.T) {
	if _, err := NewBrave("", ""); err == nil {
		t.Error("expected error without api key")
	}
}

func TestTavilySearchEmptyResultsIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	tv, err := NewTavily(srv.URL, "tvly-key")
	if err != nil {
		t.Fatal(err)
	}
	res, err := tv.Search(context.Background(), "obscure query", 5)
	if err != nil {
		t.Fatalf("empty results must not error, got %v", err)
	}
	if len(res.Documents) != 0 {
		t.Errorf("got %d docs", len(res.Documents))
	}
}

func TestSerperTransportErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s, err := NewSerper(srv.URL, "key")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Search(context.Background(), "golang", 5); err == nil {
		t.Error("expected error on 429")
	}
}

func TestSearxNGSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"Result A","url":"https://a.example","content":"snippet a","engine":"google"},
			{"title":"Result B","url":"https://b.example","content":"snippet b"}
		]}`))
	}))
	defer srv.Close()

	s, err := NewSearxNG(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Search(context.Background(), "golang", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("got %d docs, want 2", len(res.Documents))
	}
	if res.Documents[0].Source != "google" {
		t.Errorf("Source = %q, want engine name", res.Documents[0].Source)
	}
}

func TestClampResults(t *testing.T) {
	tests := []struct {
		in, cap, want int
	}{
		{0, 10, 1},
		{-3, 10, 1},
		{5, 10, 5},
		{25, 10, 10},
	}
	for _, tt := range tests {
		if got := clampResults(tt.in, tt.cap); got != tt.want {
			t.Errorf("clampResults(%d, %d) = %d, want %d", tt.in, tt.cap, got, tt.want)
		}
	}
}
