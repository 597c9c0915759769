package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// lastColumn bounds the columns cleared and resized before a write.
const lastColumn = 7

// Writer exports reports to a Google spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sheets config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return newWriter(srv, config, logger), nil
}

func newWriter(srv *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		service: srv,
		config:  config,
		logger:  logger.With("component", "sheets"),
	}
}

// Write replaces the first sheet's contents with the report.
func (w *Writer) Write(ctx context.Context, report *model.FinancialReport) error {
	if report == nil {
		return common.NewValidationError("report", "is required")
	}
	w.logger.Info("starting report export", "user_id", report.User.ID)

	target, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := w.clearSheet(ctx, target.id); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	layout := BuildLayout(report)

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 1
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, target.id, layout.Rows)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, target, layout)
		}, retryOpts)
		if err != nil {
			// The data is already written; formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", target.id,
		"rows_written", len(layout.Rows))
	return nil
}

// createSheetsService authenticates with a service account key or an
// OAuth2 refresh token.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

type spreadsheetTarget struct {
	id      string
	sheetID int64
}

func firstSheet(s *sheets.Spreadsheet) spreadsheetTarget {
	target := spreadsheetTarget{id: s.SpreadsheetId}
	if len(s.Sheets) > 0 && s.Sheets[0].Properties != nil {
		target.sheetID = s.Sheets[0].Properties.SheetId
	}
	return target
}

func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (spreadsheetTarget, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return spreadsheetTarget{}, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		if existing.SpreadsheetId == "" {
			existing.SpreadsheetId = w.config.SpreadsheetID
		}
		return firstSheet(existing), nil
	}

	name := w.config.SpreadsheetName
	if name == "" {
		name = DefaultSpreadsheetName
	}
	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name, TimeZone: w.config.TimeZone},
		Sheets:     []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: "Report"}}},
	}).Context(ctx).Do()
	if err != nil {
		return spreadsheetTarget{}, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return firstSheet(created), nil
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes rows in batches of BatchSize.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	size := w.config.BatchSize
	if size <= 0 {
		size = len(values)
	}
	for i := 0; i < len(values); i += size {
		end := min(i+size, len(values))
		batch := values[i:end]

		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, fmt.Sprintf("A%d", i+1), &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}
		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func (w *Writer) applyFormatting(ctx context.Context, target spreadsheetTarget, layout Layout) error {
	rowRange := func(row int64, cols int64) *sheets.GridRange {
		return &sheets.GridRange{
			SheetId:          target.sheetID,
			StartRowIndex:    row,
			EndRowIndex:      row + 1,
			StartColumnIndex: 0,
			EndColumnIndex:   cols,
			ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
		}
	}
	bold := func(r *sheets.GridRange, size int64) *sheets.Request {
		return &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
			Range: r,
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				TextFormat: &sheets.TextFormat{Bold: true, FontSize: size},
			}},
			Fields: "userEnteredFormat.textFormat",
		}}
	}

	requests := []*sheets.Request{bold(rowRange(0, 3), 16)}
	for _, row := range layout.SectionRows {
		requests = append(requests, bold(rowRange(int64(row), 3), 12))
	}
	for _, row := range layout.HeaderRows {
		requests = append(requests, bold(rowRange(int64(row), lastColumn), 0))
	}
	requests = append(requests,
		&sheets.Request{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{
				SheetId:         target.sheetID,
				Dimension:       "COLUMNS",
				StartIndex:      0,
				EndIndex:        lastColumn,
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
		}},
		&sheets.Request{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:         target.sheetID,
				GridProperties:  &sheets.GridProperties{FrozenRowCount: 1},
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "gridProperties.frozenRowCount",
		}},
	)

	_, err := w.service.Spreadsheets.BatchUpdate(target.id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
