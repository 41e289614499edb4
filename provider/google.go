package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/bregydoc/gtranslate"

	"github.com/minios-linux/transync/batch"
)

// ---------------------------------------------------------------------------
// Google Cloud Translation v2 (REST)
// ---------------------------------------------------------------------------

type googleClient struct {
	prov Provider
	http *poster
}

func newGoogleClient(opts Options) *googleClient {
	return &googleClient{prov: opts.Provider, http: newPoster(opts)}
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate sends every value as a repeated q parameter in one request.
// The service answers in request order.
func (g *googleClient) Translate(ctx context.Context, values []string, sourceLang, targetLang string) (batch.Response, error) {
	form := url.Values{}
	for _, v := range values {
		form.Add("q", v)
	}
	form.Set("source", sourceLang)
	form.Set("target", targetLang)
	form.Set("format", "text")

	endpoint := strings.TrimRight(g.prov.BaseURL, "/") + "/language/translate/v2?key=" + url.QueryEscape(g.prov.APIKey)
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}

	body, err := g.http.post(ctx, endpoint, headers, []byte(form.Encode()))
	if err != nil {
		return batch.Response{}, err
	}

	var resp googleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return batch.Response{}, fmt.Errorf("invalid JSON response: %w", err)
	}

	texts := make([]string, len(resp.Data.Translations))
	for i, t := range resp.Data.Translations {
		texts[i] = t.TranslatedText
	}
	if len(values) == 1 && len(texts) == 1 {
		return batch.Single(texts[0]), nil
	}
	return batch.List(texts...), nil
}

// ---------------------------------------------------------------------------
// Keyless Google Translate
// ---------------------------------------------------------------------------

// freeTranslate is swapped out in tests.
var freeTranslate = func(text, from, to string) (string, error) {
	return gtranslate.TranslateWithParams(text, gtranslate.TranslationParams{From: from, To: to})
}

type freeClient struct {
	opts Options
}

func newFreeClient(opts Options) *freeClient {
	return &freeClient{opts: opts}
}

// Translate issues one call per value; the first failure fails the whole
// batch so no partial results are ever returned.
func (f *freeClient) Translate(ctx context.Context, values []string, sourceLang, targetLang string) (batch.Response, error) {
	texts := make([]string, 0, len(values))
	for i, v := range values {
		if err := ctx.Err(); err != nil {
			return batch.Response{}, err
		}
		f.opts.debugf("%s %s -> %s: value %d/%d", f.opts.Provider.Name, sourceLang, targetLang, i+1, len(values))
		out, err := freeTranslate(v, sourceLang, targetLang)
		if err != nil {
			return batch.Response{}, fmt.Errorf("translating value %d: %w", i+1, err)
		}
		texts = append(texts, out)
	}
	if len(texts) == 1 {
		return batch.Single(texts[0]), nil
	}
	return batch.List(texts...), nil
}
