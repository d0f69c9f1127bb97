package tracker

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/channel-agent/internal/config"
	"github.com/channel-agent/internal/models"
	"github.com/channel-agent/pkg/logger"
)

// SheetColumns defines the column headers for the tracking sheet
var SheetColumns = []string{
	"ID",
	"Status",
	"Template",
	"Link Format",
	"Bonus",
	"Attempts",
	"Fallback",
	"Telegram Message ID",
	"Content Preview",
	"Error",
	"Created At",
	"Published At",
}

// previewLength is how much of a post the sheet shows
const previewLength = 200

// SheetsTracker logs generated posts to a Google Sheet
type SheetsTracker struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *logger.Logger
}

// NewSheetsTracker creates a new Google Sheets tracker. It returns nil
// when tracking is disabled.
func NewSheetsTracker(ctx context.Context, cfg config.TrackerConfig, log *logger.Logger) (*SheetsTracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("tracker.spreadsheet_id is required")
	}

	var srv *sheets.Service
	var err error

	// Try service account JSON first (for env var injection)
	if cfg.ServiceAccountJSON != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.CredentialsFile != "" {
		srv, err = sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	} else {
		return nil, fmt.Errorf("no Google credentials provided: set credentials_file or service_account_json")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Generated"
	}

	return &SheetsTracker{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		log:           log.WithComponent("sheets-tracker"),
	}, nil
}

// InitializeSheet creates the sheet and headers if they don't exist
func (t *SheetsTracker) InitializeSheet(ctx context.Context) error {
	if err := t.ensureSheetExists(ctx); err != nil {
		return err
	}

	readRange := fmt.Sprintf("%s!A1:%s1", t.sheetName, lastColumn())
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	if len(resp.Values) == 0 {
		t.log.Info().Msg("Initializing sheet with headers")
		return t.writeHeaders(ctx)
	}

	t.log.Debug().Msg("Sheet already has headers")
	return nil
}

// ensureSheetExists creates the sheet if it doesn't exist
func (t *SheetsTracker) ensureSheetExists(ctx context.Context) error {
	spreadsheet, err := t.service.Spreadsheets.Get(t.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == t.sheetName {
			return nil
		}
	}

	t.log.Info().Str("sheet", t.sheetName).Msg("Creating new sheet")
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: t.sheetName,
					},
				},
			},
		},
	}

	_, err = t.service.Spreadsheets.BatchUpdate(t.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	return nil
}

// writeHeaders writes column headers to the first row
func (t *SheetsTracker) writeHeaders(ctx context.Context) error {
	var headerRow []interface{}
	for _, col := range SheetColumns {
		headerRow = append(headerRow, col)
	}

	writeRange := fmt.Sprintf("%s!A1", t.sheetName)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{headerRow},
	}

	_, err := t.service.Spreadsheets.Values.Update(t.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	return nil
}

// TrackGenerated appends a row for a newly generated post
func (t *SheetsTracker) TrackGenerated(ctx context.Context, post *models.GeneratedPost) error {
	appendRange := fmt.Sprintf("%s!A:%s", t.sheetName, lastColumn())
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{postToRow(post)},
	}

	_, err := t.service.Spreadsheets.Values.Append(t.spreadsheetID, appendRange, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	t.log.Debug().Uint("post_id", post.ID).Msg("Post added to tracker")
	return nil
}

// MarkPublished rewrites the post's row after it reached the channel
func (t *SheetsTracker) MarkPublished(ctx context.Context, post *models.GeneratedPost) error {
	return t.updateRow(ctx, post)
}

// MarkFailed rewrites the post's row after a failed publish
func (t *SheetsTracker) MarkFailed(ctx context.Context, post *models.GeneratedPost) error {
	return t.updateRow(ctx, post)
}

// updateRow overwrites the row of a tracked post, appending it when the
// post was never tracked
func (t *SheetsTracker) updateRow(ctx context.Context, post *models.GeneratedPost) error {
	rowNum, err := t.findRowByID(ctx, post.ID)
	if err != nil {
		return err
	}
	if rowNum == 0 {
		return t.TrackGenerated(ctx, post)
	}

	writeRange := fmt.Sprintf("%s!A%d:%s%d", t.sheetName, rowNum, lastColumn(), rowNum)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{postToRow(post)},
	}

	_, err = t.service.Spreadsheets.Values.Update(t.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update row %d: %w", rowNum, err)
	}

	return nil
}

// findRowByID returns the 1-indexed row holding the post, 0 when absent
func (t *SheetsTracker) findRowByID(ctx context.Context, id uint) (int, error) {
	readRange := fmt.Sprintf("%s!A:A", t.sheetName)
	resp, err := t.service.Spreadsheets.Values.Get(t.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to search for post: %w", err)
	}

	return rowIndex(resp.Values, id), nil
}

func rowIndex(values [][]interface{}, id uint) int {
	idStr := strconv.FormatUint(uint64(id), 10)
	for i, row := range values {
		if len(row) > 0 && fmt.Sprintf("%v", row[0]) == idStr {
			return i + 1
		}
	}
	return 0
}

// postToRow lays a post out in SheetColumns order
func postToRow(post *models.GeneratedPost) []interface{} {
	var published time.Time
	if post.PublishedAt != nil {
		published = *post.PublishedAt
	}

	messageID := ""
	if post.TelegramMessageID != 0 {
		messageID = strconv.Itoa(post.TelegramMessageID)
	}

	return []interface{}{
		post.ID,
		string(post.Status),
		post.Template,
		string(post.LinkFormat),
		post.BonusName,
		post.Attempts,
		post.Fallback,
		messageID,
		preview(post.Content),
		post.ErrorMessage,
		formatTime(post.CreatedAt),
		formatTime(published),
	}
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	return string([]rune(s)[:previewLength-3]) + "..."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// lastColumn is the letter of the last SheetColumns column
func lastColumn() string {
	return string(rune('A' + len(SheetColumns) - 1))
}
