// Package gsheet reads Google Sheets spreadsheets through the xlsx export
// endpoint.
package gsheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/newthinker/sheetpulse/internal/normalize"
	"github.com/newthinker/sheetpulse/internal/source"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://docs.google.com"
	defaultTimeout = 30 * time.Second
	// maxExportSize bounds the export body read into memory
	maxExportSize = 50 << 20
	// readonlyScope is requested for service account and user credentials
	readonlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// Config configures one spreadsheet
type Config struct {
	ID          string
	SheetID     string
	Worksheet   string
	SheetIndex  int
	BaseURL     string
	AccessToken string
	// CredentialsFile points at a service account or authorized user JSON
	// key. It takes precedence over AccessToken.
	CredentialsFile string
	Timeout         time.Duration
}

// Sheet implements source.Source for a Google spreadsheet
type Sheet struct {
	id          string
	sheetID     string
	sheet       source.SheetSelector
	baseURL     string
	accessToken string
	client      *http.Client
}

// New creates a Google Sheets source
func New(cfg Config) (*Sheet, error) {
	if cfg.SheetID == "" {
		return nil, fmt.Errorf("gsheet: sheet id required")
	}
	id := cfg.ID
	if id == "" {
		id = cfg.SheetID
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	accessToken := cfg.AccessToken
	if cfg.CredentialsFile != "" {
		authed, err := credentialsClient(cfg.CredentialsFile, timeout)
		if err != nil {
			return nil, fmt.Errorf("gsheet %s: %w", id, err)
		}
		client = authed
		accessToken = ""
	}

	return &Sheet{
		id:          id,
		sheetID:     cfg.SheetID,
		sheet:       source.SheetSelector{Name: cfg.Worksheet, Index: cfg.SheetIndex},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		client:      client,
	}, nil
}

// credentialsClient returns an HTTP client that refreshes OAuth2 tokens from
// a Google JSON key file
func credentialsClient(path string, timeout time.Duration) (*http.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	// The token source keeps this context for refreshes, so it must not be
	// cancelled when New returns.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	creds, err := google.CredentialsFromJSON(ctx, data, readonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout
	return client, nil
}

func (s *Sheet) ID() string {
	return s.id
}

func (s *Sheet) Kind() string {
	return "gsheet"
}

func (s *Sheet) FetchRows(ctx context.Context) ([]normalize.Row, error) {
	return s.fetch(ctx, s.sheet)
}

// FetchWorksheet reads another worksheet of the same spreadsheet by name
func (s *Sheet) FetchWorksheet(ctx context.Context, name string) ([]normalize.Row, error) {
	return s.fetch(ctx, source.SheetSelector{Name: name})
}

func (s *Sheet) fetch(ctx context.Context, sel source.SheetSelector) ([]normalize.Row, error) {
	data, err := s.export(ctx)
	if err != nil {
		return nil, source.FetchError(s.id, err)
	}
	rows, err := source.ParseWorkbook(data, sel)
	if err != nil {
		return nil, source.FetchError(s.id, err)
	}
	return rows, nil
}

func (s *Sheet) exportURL() string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=xlsx", s.baseURL, s.sheetID)
}

func (s *Sheet) export(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.exportURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exporting spreadsheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	if len(data) > maxExportSize {
		return nil, fmt.Errorf("export exceeds %d bytes", maxExportSize)
	}
	return data, nil
}
