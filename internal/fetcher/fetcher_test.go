package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pepperwatch/internal/config"
)

type staticRotator struct{ proxy string }

func (r staticRotator) Current() string { return r.proxy }

func newClient(baseURL, proxy string) *Client {
	cfg := &config.Config{
		BaseURL:               baseURL,
		UserAgent:             "pepperwatch-test/1.0",
		RequestTimeout:        2 * time.Second,
		MaxConcurrentRequests: 5,
	}
	return New(cfg, staticRotator{proxy: proxy})
}

func TestFetch_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Promocje</h1></body></html>`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	doc, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Promocje" {
		t.Errorf("parsed h1 = %q, want %q", got, "Promocje")
	}
}

func TestFetch_SetsRequestHeaders(t *testing.T) {
	var ua, accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if ua != "pepperwatch-test/1.0" {
		t.Errorf("User-Agent = %q, want configured agent", ua)
	}
	if accept == "" {
		t.Error("Accept header not set")
	}
}

func TestFetch_DeadProxyFallsBackToDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>ok</p></body></html>`))
	}))
	defer srv.Close()

	// Nothing listens on port 1; the proxied attempt must fail fast and the
	// direct retry must succeed.
	c := newClient(srv.URL, "http://127.0.0.1:1")
	doc, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if got := doc.Find("p").Text(); got != "ok" {
		t.Errorf("parsed p = %q, want %q", got, "ok")
	}
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	if _, err := c.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch() of 503 page succeeded, want error")
	}
}

func TestFetch_ResolvesRelativeAgainstBase(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	if _, err := c.Fetch(context.Background(), "/promocje/oferta-123"); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if path != "/promocje/oferta-123" {
		t.Errorf("requested path = %q, want base-relative resolution", path)
	}
}

func TestResolveRedirect_OneHop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://www.x-kom.pl/p/999", http.StatusFound)
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	if got := c.ResolveRedirect(context.Background(), srv.URL+"/visit/threadmain/555"); got != "https://www.x-kom.pl/p/999" {
		t.Errorf("ResolveRedirect() = %q, want redirect target", got)
	}
}

func TestResolveRedirect_NoRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	in := srv.URL + "/final"
	if got := c.ResolveRedirect(context.Background(), in); got != in {
		t.Errorf("ResolveRedirect() = %q, want input unchanged", got)
	}
}

func TestResolveRedirect_RequestFailure(t *testing.T) {
	c := newClient("http://127.0.0.1:1", "")
	in := "http://127.0.0.1:1/visit/1"
	if got := c.ResolveRedirect(context.Background(), in); got != in {
		t.Errorf("ResolveRedirect() = %q, want input unchanged on failure", got)
	}
}
