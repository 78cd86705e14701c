package sheetdb

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Ensure finds the backing spreadsheet in the app folder, creating and
// seeding it on first run, and returns its id.
//
// The Drive search is retried once after a short jitter before
// creating, which narrows (but cannot close) the window in which two
// concurrent first runs both see "not found" and both create. If the
// race loses anyway, later searches return both copies and the first
// hit wins consistently.
func (c *Client) Ensure(ctx context.Context) (string, error) {
	id, err := c.find(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		c.log.Info("found existing spreadsheet", zap.String("spreadsheet_id", id))
		return id, nil
	}

	time.Sleep(time.Duration(rand.Intn(500)) * time.Millisecond)
	id, err = c.find(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	return c.create(ctx)
}

func (c *Client) find(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		SpreadsheetName, c.rootFolderID, spreadsheetMimeType)
	list, err := c.drive.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", c.check(fmt.Errorf("failed to search for spreadsheet: %w", err))
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	if len(list.Files) > 1 {
		c.log.Warn("multiple spreadsheets found, using first",
			zap.Int("count", len(list.Files)))
	}
	return list.Files[0].Id, nil
}

func (c *Client) create(ctx context.Context) (string, error) {
	c.log.Info("creating new spreadsheet", zap.String("name", SpreadsheetName))

	file, err := c.drive.Files.Create(&drive.File{
		Name:     SpreadsheetName,
		MimeType: spreadsheetMimeType,
		Parents:  []string{c.rootFolderID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", c.check(fmt.Errorf("failed to create spreadsheet: %w", err))
	}
	if file.Id == "" {
		return "", fmt.Errorf("drive returned no id for created spreadsheet")
	}

	if err := c.seed(ctx, file.Id); err != nil {
		return "", err
	}
	return file.Id, nil
}

// seed adds the three named tabs and the recipe header row.
func (c *Client) seed(ctx context.Context, spreadsheetID string) error {
	requests := []*sheets.Request{
		{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: TabRecipes}}},
		{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: TabShoppingList}}},
		{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: TabSyncData}}},
	}
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return c.check(fmt.Errorf("failed to add tabs: %w", err))
	}

	if err := c.OverwriteRange(ctx, spreadsheetID, RangeRecipeHeader, [][]interface{}{recipeHeader}); err != nil {
		return fmt.Errorf("failed to seed recipe header: %w", err)
	}
	return nil
}
