package separator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stemsplit/internal/engine"
	"stemsplit/internal/model"
)

type ObserverFunc func(endpoint string, status int, duration time.Duration)

type Option func(*Client)

func WithObserver(observer ObserverFunc) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   ObserverFunc
}

func New(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) Name() string { return "remote" }

func (c *Client) Separate(ctx context.Context, req engine.Request) (engine.Stems, error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe("call", statusCode, time.Since(started)) }()

	encoded := base64.StdEncoding.EncodeToString(req.Audio)
	payload, err := json.Marshal(model.SeparationRequest{AudioFile: &encoded})
	if err != nil {
		return engine.Stems{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(payload))
	if err != nil {
		return engine.Stems{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return engine.Stems{}, err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return engine.Stems{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return engine.Stems{}, &engine.Error{
			Engine:     c.Name(),
			StatusCode: resp.StatusCode,
			Detail:     truncateBody(string(respBody)),
		}
	}

	return parseStems(respBody)
}

func (c *Client) Check(ctx context.Context) error {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe("info", statusCode, time.Since(started)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &engine.Error{
			Engine:     c.Name(),
			StatusCode: resp.StatusCode,
			Detail:     truncateBody(string(body)),
		}
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, status, duration)
	}
}

func parseStems(data []byte) (engine.Stems, error) {
	var parsed struct {
		VocalsFile        *string `json:"vocals_file"`
		AccompanimentFile *string `json:"accompaniment_file"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return engine.Stems{}, fmt.Errorf("invalid separation response: %w", err)
	}
	if parsed.VocalsFile == nil {
		return engine.Stems{}, fmt.Errorf("separation response missing vocals_file")
	}
	if parsed.AccompanimentFile == nil {
		return engine.Stems{}, fmt.Errorf("separation response missing accompaniment_file")
	}

	vocals, err := base64.StdEncoding.DecodeString(*parsed.VocalsFile)
	if err != nil {
		return engine.Stems{}, fmt.Errorf("invalid vocals_file encoding: %w", err)
	}
	accompaniment, err := base64.StdEncoding.DecodeString(*parsed.AccompanimentFile)
	if err != nil {
		return engine.Stems{}, fmt.Errorf("invalid accompaniment_file encoding: %w", err)
	}
	return engine.Stems{Vocals: vocals, Accompaniment: accompaniment}, nil
}

func truncateBody(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4096 {
		return s
	}
	return s[:4096] + "..."
}
