// AngelaMos | 2026
// translate.go

package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Translator renders UI strings in the visitor's language. It is a
// presentation-side collaborator: safe under concurrent callers and
// never on the auth flow's critical path.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

type cacheKey struct {
	text string
	lang string
}

// HTTPTranslator calls the backend translation endpoint and memoizes
// results per (text, language) pair.
type HTTPTranslator struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	cache map[cacheKey]string
}

func NewHTTPTranslator(baseURL string, client *http.Client) *HTTPTranslator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPTranslator{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		cache:   make(map[cacheKey]string),
	}
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	Translated string `json:"translated"`
}

func (t *HTTPTranslator) Translate(
	ctx context.Context,
	text, targetLang string,
) (string, error) {
	key := cacheKey{text: text, lang: targetLang}

	t.mu.RLock()
	cached, ok := t.cache[key]
	t.mu.RUnlock()
	if ok {
		return cached, nil
	}

	payload, err := json.Marshal(translateRequest{
		Text:       text,
		TargetLang: targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.baseURL+"/translate",
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		//nolint:errcheck // drain for connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translate: status %d", resp.StatusCode)
	}

	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	t.mu.Lock()
	t.cache[key] = decoded.Translated
	t.mu.Unlock()

	return decoded.Translated, nil
}

// Noop returns the input untranslated. Used when no translation
// service is configured.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
