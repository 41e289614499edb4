package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minios-linux/transync/batch"
	"github.com/minios-linux/transync/localemap"
)

func fastRetries(t *testing.T) {
	t.Helper()
	oldUnit, oldBuf, oldDef := backoffUnit, retryBuffer, defaultRetryDelay
	backoffUnit, retryBuffer, defaultRetryDelay = time.Millisecond, time.Millisecond, 5*time.Millisecond
	t.Cleanup(func() {
		backoffUnit, retryBuffer, defaultRetryDelay = oldUnit, oldBuf, oldDef
	})
}

func providerAt(id, baseURL string) Provider {
	p, _ := Lookup(id)
	p.BaseURL = baseURL
	p.APIKey = "secret"
	return p
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	google, _ := Lookup(ProviderGoogle)
	if _, err := New(Options{Provider: google}); err == nil {
		t.Fatal("google without key should fail")
	}

	custom, _ := Lookup(ProviderCustomOpenAI)
	custom.Model = "m"
	if _, err := New(Options{Provider: custom}); err == nil {
		t.Fatal("custom-openai without base URL should fail")
	}

	if _, err := New(Options{Provider: Provider{ID: "nope"}}); err == nil {
		t.Fatal("unknown provider should fail")
	}

	free, _ := Lookup(ProviderGoogleFree)
	if _, err := New(Options{Provider: free}); err != nil {
		t.Fatalf("google-free needs no key: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Google Cloud Translation v2
// ---------------------------------------------------------------------------

func googleServer(t *testing.T, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/language/translate/v2" || r.URL.Query().Get("key") != "secret" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		if form.Get("source") != "en" || form.Get("target") != "fr" || form.Get("format") != "text" {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		type tr struct {
			TranslatedText string `json:"translatedText"`
		}
		var out struct {
			Data struct {
				Translations []tr `json:"translations"`
			} `json:"data"`
		}
		for _, q := range form["q"] {
			out.Data.Translations = append(out.Data.Translations, tr{TranslatedText: "fr:" + q})
		}
		json.NewEncoder(w).Encode(out)
	}))
}

func TestGoogle_ListAndSingle(t *testing.T) {
	var hits int32
	srv := googleServer(t, &hits)
	defer srv.Close()

	tr, err := New(Options{Provider: providerAt(ProviderGoogle, srv.URL)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := tr.Translate(context.Background(), []string{"Hello", "World __PH0__"}, "en", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !resp.IsList || strings.Join(resp.Texts, "|") != "fr:Hello|fr:World __PH0__" {
		t.Fatalf("resp = %#v", resp)
	}

	resp, err = tr.Translate(context.Background(), []string{"Hello"}, "en", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if resp.IsList || resp.Text != "fr:Hello" {
		t.Fatalf("single resp = %#v", resp)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("hits = %d, want one request per call", hits)
	}
}

func TestGoogle_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	tr, _ := New(Options{Provider: providerAt(ProviderGoogle, srv.URL)})
	_, err := tr.Translate(context.Background(), []string{"a", "b"}, "en", "fr")
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Retries
// ---------------------------------------------------------------------------

func TestPost_RetriesServerErrorsAndRateLimit(t *testing.T) {
	fastRetries(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"0.001s"}]}}`))
		default:
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	p := newPoster(Options{Provider: Provider{Name: "test"}, MaxRetries: 3})
	body, err := p.post(context.Background(), srv.URL, nil, []byte("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if string(body) != `{"ok":true}` || atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("body=%s hits=%d", body, hits)
	}
}

func TestPost_GivesUpOnClientError(t *testing.T) {
	fastRetries(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newPoster(Options{Provider: Provider{Name: "test"}})
	if _, err := p.post(context.Background(), srv.URL, nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("4xx must not be retried, hits = %d", hits)
	}
}

func TestParseRetryDelay(t *testing.T) {
	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"30s"}]}}`)
	if got := parseRetryDelay(body); got != 30*time.Second+retryBuffer {
		t.Errorf("got %v", got)
	}
	if got := parseRetryDelay([]byte("not json")); got != defaultRetryDelay+retryBuffer {
		t.Errorf("fallback got %v", got)
	}
}

// ---------------------------------------------------------------------------
// LLM chat
// ---------------------------------------------------------------------------

func TestChat_OpenAICompatible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[0].Content, "French") ||
			!strings.Contains(req.Messages[1].Content, `2. "Bye __PH0__"`) {
			http.Error(w, "bad prompt", http.StatusBadRequest)
			return
		}
		answer := "```json\n[\"Bonjour\", \"Au revoir __PH0__\"]\n```"
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": answer}}},
		})
	}))
	defer srv.Close()

	prov := providerAt(ProviderOpenAI, srv.URL+"/v1")
	tr, err := New(Options{Provider: prov})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := tr.Translate(context.Background(), []string{"Hello", "Bye __PH0__"}, "en", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !resp.IsList || strings.Join(resp.Texts, "|") != "Bonjour|Au revoir __PH0__" {
		t.Fatalf("resp = %#v", resp)
	}
}

func TestChat_Gemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.0-flash:generateContent" || r.Header.Get("x-goog-api-key") != "secret" {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[\"Hallo\"]"}]}}]}`))
	}))
	defer srv.Close()

	tr, err := New(Options{Provider: providerAt(ProviderGemini, srv.URL)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := tr.Translate(context.Background(), []string{"Hello"}, "en", "de")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	b := batch.Build("en", "de", "de.json", localemap.FromPairs("hello", "Hello"))
	got, err := batch.Demux(b, resp)
	if err != nil {
		t.Fatalf("Demux: %v", err)
	}
	if v, _ := got.Get("hello"); v != "Hallo" {
		t.Fatalf("hello = %q", v)
	}
}

func TestParseTranslations(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", `["a", "b"]`, []string{"a", "b"}},
		{"fenced", "```json\n[\"a\"]\n```", []string{"a"}},
		{"chatter", `Sure! Here you go: ["x", "y"] Hope it helps.`, []string{"x", "y"}},
		{"invalid escape", `["a \& b", "line\nbreak"]`, []string{`a \& b`, "line\nbreak"}},
	}
	for _, tc := range cases {
		got, err := parseTranslations(tc.in, len(tc.want))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}

	if _, err := parseTranslations("no array here", 1); err == nil {
		t.Fatal("expected error for non-JSON answer")
	}
	if _, err := parseTranslations("[]", 2); err == nil {
		t.Fatal("expected error for empty array")
	}
}

// ---------------------------------------------------------------------------
// Keyless Google
// ---------------------------------------------------------------------------

func TestFree_PerValueCalls(t *testing.T) {
	old := freeTranslate
	t.Cleanup(func() { freeTranslate = old })

	var calls int
	freeTranslate = func(text, from, to string) (string, error) {
		calls++
		if text == "boom" {
			return "", errors.New("blocked")
		}
		return to + ":" + text, nil
	}

	free, _ := Lookup(ProviderGoogleFree)
	tr, _ := New(Options{Provider: free})

	resp, err := tr.Translate(context.Background(), []string{"a", "b"}, "en", "es")
	if err != nil || !resp.IsList || strings.Join(resp.Texts, ",") != "es:a,es:b" {
		t.Fatalf("resp = %#v, err = %v", resp, err)
	}

	resp, err = tr.Translate(context.Background(), []string{"a"}, "en", "es")
	if err != nil || resp.IsList || resp.Text != "es:a" {
		t.Fatalf("single resp = %#v, err = %v", resp, err)
	}

	if _, err := tr.Translate(context.Background(), []string{"a", "boom", "c"}, "en", "es"); err == nil {
		t.Fatal("a failing value must fail the batch")
	}
	if calls != 5 {
		t.Fatalf("calls = %d, want 5 (stops at first failure)", calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Translate(ctx, []string{"a"}, "en", "es"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
