// Package nlp talks to a CoreNLP-compatible annotation server.
package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cognicore/itemizer/pkg/itemizer/internalerr"
)

// DefaultURL is where a local CoreNLP server listens.
const DefaultURL = "http://localhost:9000/"

// Token is one annotated token.
type Token struct {
	Word               string `json:"word"`
	OriginalText       string `json:"originalText"`
	Lemma              string `json:"lemma"`
	POS                string `json:"pos"`
	CharacterOffsetEnd int    `json:"characterOffsetEnd"`
}

// Sentence is a run of tokens the server split as one sentence.
type Sentence struct {
	Tokens []Token `json:"tokens"`
}

// Annotator splits and tags text.
type Annotator interface {
	Annotate(ctx context.Context, text string, lemmatize bool) ([]Sentence, error)
}

// Client posts text to a CoreNLP server.
type Client struct {
	BaseURL string

	HTTPClient *http.Client
}

type annotateResponse struct {
	Sentences []Sentence `json:"sentences"`
}

type properties struct {
	Annotators   string `json:"annotators"`
	OutputFormat string `json:"outputFormat"`
}

// Annotate tokenizes, sentence-splits and POS-tags text, adding lemmas when
// lemmatize is set. Any non-2xx response is an error.
func (c *Client) Annotate(ctx context.Context, text string, lemmatize bool) ([]Sentence, error) {
	endpoint, err := c.endpoint(lemmatize)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", internalerr.ErrRemote, resp.Status, strings.TrimSpace(string(body)))
	}

	var payload annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", internalerr.ErrRemote, err)
	}
	return payload.Sentences, nil
}

func (c *Client) endpoint(lemmatize bool) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("nlp: base URL: %w", err)
	}

	annotators := "tokenize,ssplit,pos"
	if lemmatize {
		annotators = "lemma," + annotators
	}
	props, err := json.Marshal(properties{Annotators: annotators, OutputFormat: "json"})
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("properties", string(props))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
