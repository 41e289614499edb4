package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/minios-linux/transync/batch"
	"github.com/minios-linux/transync/langmeta"
)

// DefaultSystemPrompt is sent to LLM providers; {{targetLang}} and
// {{sourceLang}} are replaced with English language names.
const DefaultSystemPrompt = `You are a professional translator specializing in software localization. You are translating UI strings of an application from {{sourceLang}} to {{targetLang}}.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for naturalness and fluency in {{targetLang}}, not word-for-word
- Use established software terminology in {{targetLang}}
- Keep the tone of the source: short labels stay short

CRITICAL RULES:
- Tokens of the form __PH0__, __PH1__, __PHX0__, ... are placeholders. Copy them verbatim, never translate, reorder inside words or drop them
- Preserve leading/trailing whitespace, punctuation and escape sequences such as \n
- Return ONLY a JSON array of translated strings, one per input, in input order, with no commentary`

// ---------------------------------------------------------------------------
// API formats
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions
	formatGeminiNative                  // Google Gemini generateContent
)

type chatClient struct {
	prov   Provider
	format apiFormat
	prompt string
	http   *poster
}

func newChatClient(opts Options, format apiFormat) *chatClient {
	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &chatClient{prov: opts.Provider, format: format, prompt: prompt, http: newPoster(opts)}
}

// Translate asks the model for a JSON array with one string per value.
func (c *chatClient) Translate(ctx context.Context, values []string, sourceLang, targetLang string) (batch.Response, error) {
	systemPrompt := strings.NewReplacer(
		"{{targetLang}}", langmeta.EnglishName(targetLang),
		"{{sourceLang}}", langmeta.EnglishName(sourceLang),
	).Replace(c.prompt)

	endpoint, headers, body, err := c.buildRequest(systemPrompt, userPrompt(values))
	if err != nil {
		return batch.Response{}, fmt.Errorf("building request: %w", err)
	}

	respBody, err := c.http.post(ctx, endpoint, headers, body)
	if err != nil {
		return batch.Response{}, err
	}
	text, err := extractResponseText(respBody)
	if err != nil {
		return batch.Response{}, err
	}
	texts, err := parseTranslations(text, len(values))
	if err != nil {
		return batch.Response{}, err
	}
	return batch.List(texts...), nil
}

func userPrompt(values []string) string {
	var b strings.Builder
	b.WriteString("Translate these entries:\n\n")
	for i, v := range values {
		fmt.Fprintf(&b, "%d. %s\n", i+1, escapeForPrompt(v))
	}
	fmt.Fprintf(&b, "\nReturn a JSON array with exactly %d translated strings.", len(values))
	return b.String()
}

// escapeForPrompt quotes s as a JSON string so newlines and quotes survive.
func escapeForPrompt(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `"` + s + `"`
	}
	return string(data)
}

// buildRequest constructs the endpoint, headers, and body for the format.
func (c *chatClient) buildRequest(systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	var endpoint string
	var body []byte
	var err error

	switch c.format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(c.prov.BaseURL, "/"), c.prov.Model)
		if c.prov.APIKey != "" {
			headers["x-goog-api-key"] = c.prov.APIKey
		}
		body, err = buildGeminiRequest(systemPrompt, userPrompt, 0.3)

	default:
		baseURL := strings.TrimRight(c.prov.BaseURL, "/")
		if strings.HasSuffix(baseURL, "/chat/completions") {
			endpoint = baseURL
		} else {
			endpoint = baseURL + "/chat/completions"
		}
		if c.prov.APIKey != "" {
			headers["Authorization"] = "Bearer " + c.prov.APIKey
		}
		body, err = buildOpenAIChatRequest(c.prov.Model, systemPrompt, userPrompt, 0.3)
	}

	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// extractResponseText returns the text of an OpenAI chat or Gemini answer.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat format: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Gemini format: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// fixInvalidEscapes doubles backslashes that do not start a valid JSON
// escape inside string literals. Models echo sequences like \& or \m
// verbatim, which encoding/json rejects.
func fixInvalidEscapes(jsonContent string) string {
	var fixed strings.Builder
	inQuote := false
	escaped := false

	for i := 0; i < len(jsonContent); i++ {
		c := jsonContent[i]

		if c == '"' && !escaped {
			inQuote = !inQuote
			fixed.WriteByte(c)
			continue
		}

		if inQuote && c == '\\' && !escaped {
			if i+1 < len(jsonContent) {
				switch jsonContent[i+1] {
				case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
					fixed.WriteByte(c)
					escaped = true
					continue
				}
			}
			fixed.WriteString(`\\`)
			continue
		}

		fixed.WriteByte(c)
		escaped = false
	}

	return fixed.String()
}

// parseTranslations extracts the JSON string array from a model answer.
// The element count is checked later against the batch.
func parseTranslations(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)

	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx >= 0 && endIdx > startIdx {
		content = content[startIdx : endIdx+1]
	}

	content = fixInvalidEscapes(content)

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation response as JSON array: %w\nResponse: %s", err, truncate(content, 300))
	}

	if len(translations) == 0 {
		return nil, fmt.Errorf("got 0 translations, expected %d", expected)
	}

	return translations, nil
}
