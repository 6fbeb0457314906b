// Package google mirrors expenses to a Google Sheets worksheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"brokeometer/internal/core"
	"brokeometer/internal/log"
	ports "brokeometer/internal/sheets"
)

const DefaultSheetName = "Expenses"

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON is a service account key. Empty means the client
	// options must carry authentication.
	CredentialsJSON []byte
}

type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// Serialises find-then-write sequences of this process.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var (
	_ ports.ExpenseMirror = (*Mirror)(nil)
	_ ports.ExpenseLister = (*Mirror)(nil)
)

func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Mirror, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = DefaultSheetName
	}
	if logger == nil {
		logger = log.FromContext(ctx)
	}

	var clientOpts []goption.ClientOption
	if len(cfg.CredentialsJSON) > 0 {
		clientOpts = append(clientOpts,
			goption.WithCredentialsJSON(cfg.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger = logger.WithComponent(log.ComponentSheets)
	logger.InfoContext(ctx, "Google Sheets mirror ready", "sheet", name)

	return &Mirror{
		svc:           svc,
		spreadsheetID: id,
		sheetName:     name,
		logger:        logger,
	}, nil
}

// LoadCredentials returns the inline service account JSON, or the contents
// of file when no inline value is set.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	if s := strings.TrimSpace(inlineJSON); s != "" {
		return []byte(s), nil
	}
	if file = strings.TrimSpace(file); file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func (m *Mirror) idColumn(ctx context.Context) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!A:A", m.sheetName)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// Append implements ports.ExpenseMirror. Redelivered expenses are not
// written twice.
func (m *Mirror) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.idColumn(ctx)
	if err != nil {
		return "", err
	}
	if i := rowIndex(ids, e.ID); i >= 0 {
		ref := fmt.Sprintf("%s!A%d:F%d", m.sheetName, i+1, i+1)
		m.logger.DebugContext(ctx, "Expense already mirrored", log.FieldExpenseID, e.ID, "ref", ref)
		return ref, nil
	}

	rng := fmt.Sprintf("%s!A:F", m.sheetName)
	vr := &gsheet.ValueRange{Values: [][]interface{}{expenseRow(e)}}
	resp, err := m.svc.Spreadsheets.Values.Append(m.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", m.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	m.logger.InfoContext(ctx, "Expense mirrored", log.FieldExpenseID, e.ID, "ref", ref)
	return ref, nil
}

// Delete implements ports.ExpenseMirror by removing the row whose first
// cell equals id.
func (m *Mirror) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.idColumn(ctx)
	if err != nil {
		return err
	}
	idx := rowIndex(ids, id)
	if idx < 0 {
		return fmt.Errorf("%s: %w", id, ports.ErrRowNotFound)
	}

	sheetID, err := m.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
					// Zero values are omitted from the request otherwise.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", idx+1, m.sheetName, err)
	}

	m.logger.InfoContext(ctx, "Mirrored expense removed", log.FieldExpenseID, id, "row", idx+1)
	return nil
}

func (m *Mirror) lookupSheetID(ctx context.Context) (int64, error) {
	if m.sheetID != nil {
		return *m.sheetID, nil
	}

	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == m.sheetName {
			id := s.Properties.SheetId
			m.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", m.sheetName)
}

// ListExpenses implements ports.ExpenseLister. Rows that do not parse are
// skipped and logged.
func (m *Mirror) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rng := fmt.Sprintf("%s!A:F", m.sheetName)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	out := make([]core.Expense, 0, len(resp.Values))
	for i, row := range resp.Values {
		e, ok, err := parseRow(row)
		if err != nil {
			m.logger.WarnContext(ctx, "Skipping unreadable row", "row", i+1, log.FieldError, err)
			continue
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}
