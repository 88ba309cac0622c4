// Package sheets wraps the Google Sheets values API behind a small gateway
// so pipelines depend on an interface instead of the concrete service, and
// tests run against an in-memory fake.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	gsheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// ValueInput selects how the backend interprets written values.
type ValueInput string

const (
	// InputUserEntered lets the backend reinterpret formula strings and
	// date-like strings, as a user typing them would.
	InputUserEntered ValueInput = "USER_ENTERED"
	// InputRaw stores values literally.
	InputRaw ValueInput = "RAW"
)

// ValueRange pairs an A1 range with the rows destined for it.
type ValueRange struct {
	Range string
	Rows  [][]any
}

// Gateway is the spreadsheet surface the pipelines use. The destination is
// a 2-D grid addressed by sheet name plus column letters and row numbers;
// nothing here knows about column meanings.
type Gateway interface {
	ReadRange(ctx context.Context, spreadsheetID, a1 string) ([][]string, error)
	AppendRows(ctx context.Context, spreadsheetID, a1 string, rows [][]any, input ValueInput) error
	UpdateRange(ctx context.Context, spreadsheetID, a1 string, rows [][]any, input ValueInput) error
	BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange, input ValueInput) error
	ClearRange(ctx context.Context, spreadsheetID, a1 string) error
}

// Client is the live Gateway backed by the Sheets API.
type Client struct {
	svc    *gsheets.Service
	logger *slog.Logger
}

// NewClient builds a client from service-account JSON credentials.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		svc:    svc,
		logger: slog.Default().With("component", "sheets"),
	}, nil
}

func (c *Client) ReadRange(ctx context.Context, spreadsheetID, a1 string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, a1).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a1, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			if cell != nil {
				row[j] = fmt.Sprint(cell)
			}
		}
		rows[i] = row
	}
	return rows, nil
}

func (c *Client) AppendRows(ctx context.Context, spreadsheetID, a1 string, rows [][]any, input ValueInput) error {
	if len(rows) == 0 {
		return nil
	}

	_, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, a1, &gsheets.ValueRange{
		Values: rows,
	}).
		ValueInputOption(string(input)).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", a1, err)
	}

	c.logger.Debug("appended rows", "range", a1, "count", len(rows))
	return nil
}

func (c *Client) UpdateRange(ctx context.Context, spreadsheetID, a1 string, rows [][]any, input ValueInput) error {
	if len(rows) == 0 {
		return nil
	}

	_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, a1, &gsheets.ValueRange{
		Values: rows,
	}).
		ValueInputOption(string(input)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", a1, err)
	}
	return nil
}

func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, data []ValueRange, input ValueInput) error {
	if len(data) == 0 {
		return nil
	}

	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: string(input),
	}
	for _, vr := range data {
		req.Data = append(req.Data, &gsheets.ValueRange{
			Range:  vr.Range,
			Values: vr.Rows,
		})
	}

	_, err := c.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to batch update %d ranges: %w", len(data), err)
	}
	return nil
}

// ClearRange empties a range's values without touching formatting.
func (c *Client) ClearRange(ctx context.Context, spreadsheetID, a1 string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, a1, &gsheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", a1, err)
	}
	return nil
}

// StringRow converts one string row to the any-typed form the write calls
// take.
func StringRow(row []string) []any {
	cells := make([]any, len(row))
	for i, c := range row {
		cells[i] = c
	}
	return cells
}

// StringRows converts string rows to the any-typed rows the write calls
// take, preserving column order.
func StringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, c := range row {
			cells[j] = c
		}
		out[i] = cells
	}
	return out
}
