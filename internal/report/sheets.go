package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/example/expense-report/internal/aggregate"
)

// SheetsConfig holds settings for the Google Sheets writer.
type SheetsConfig struct {
	// SpreadsheetID selects an existing spreadsheet. Empty creates a new one
	// titled SpreadsheetName.
	SpreadsheetID   string
	SpreadsheetName string

	// ServiceAccountPath wins over the OAuth refresh token fields.
	ServiceAccountPath string
	ClientID           string
	ClientSecret       string
	RefreshToken       string

	RetryAttempts uint
	RetryDelay    time.Duration
}

// SheetsWriter writes one tab per period to a Google spreadsheet.
type SheetsWriter struct {
	service *sheets.Service
	cfg     SheetsConfig
	logger  *slog.Logger
}

// NewSheetsWriter authenticates and creates a writer.
func NewSheetsWriter(ctx context.Context, cfg SheetsConfig, logger *slog.Logger) (*SheetsWriter, error) {
	srv, err := createSheetsService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSheetsWriterWithService(srv, cfg, logger), nil
}

// NewSheetsWriterWithService creates a writer around an existing service.
func NewSheetsWriterWithService(srv *sheets.Service, cfg SheetsConfig, logger *slog.Logger) *SheetsWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	return &SheetsWriter{service: srv, cfg: cfg, logger: logger}
}

func createSheetsService(ctx context.Context, cfg SheetsConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if cfg.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(cfg.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: cfg.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// Write replaces the content of one tab per period. Missing tabs are added.
func (w *SheetsWriter) Write(ctx context.Context, r *aggregate.Report) error {
	id, existing, err := w.spreadsheet(ctx)
	if err != nil {
		return err
	}

	buckets := r.Periods()
	names := SheetNames(buckets)

	var add []*sheets.Request
	for _, name := range names {
		if !existing[name] {
			add = append(add, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}
	if len(add) > 0 {
		err := w.retry(ctx, func() error {
			_, err := w.service.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: add,
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("adding sheets: %w", err)
		}
	}

	for i, name := range names {
		tab := quoteSheet(name)
		values := Rows(buckets[i])

		err := w.retry(ctx, func() error {
			if _, err := w.service.Spreadsheets.Values.Clear(id, tab, &sheets.ClearValuesRequest{}).
				Context(ctx).Do(); err != nil {
				return err
			}
			_, err := w.service.Spreadsheets.Values.Update(id, tab+"!A1", &sheets.ValueRange{Values: values}).
				ValueInputOption("RAW").
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("writing sheet %q: %w", name, err)
		}
		w.logger.Debug("sheet written", "sheet", name, "rows", len(values))
	}

	w.logger.Info("spreadsheet updated", "spreadsheet_id", id, "sheets", len(names))
	return nil
}

// spreadsheet returns the target id and the titles of its tabs.
func (w *SheetsWriter) spreadsheet(ctx context.Context) (string, map[string]bool, error) {
	titles := make(map[string]bool)

	if w.cfg.SpreadsheetID != "" {
		sp, err := w.service.Spreadsheets.Get(w.cfg.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.cfg.SpreadsheetID, err)
		}
		for _, s := range sp.Sheets {
			if s.Properties != nil {
				titles[s.Properties.Title] = true
			}
		}
		return sp.SpreadsheetId, titles, nil
	}

	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: w.cfg.SpreadsheetName},
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}
	for _, s := range created.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = true
		}
	}

	w.logger.Info("created new spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return created.SpreadsheetId, titles, nil
}

// retry runs fn again while the API answers with 429.
func (w *SheetsWriter) retry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.RetryIf(func(err error) bool {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
				w.logger.Warn("rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(w.cfg.RetryAttempts),
		retry.Delay(w.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
