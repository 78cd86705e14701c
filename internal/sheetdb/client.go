// Package sheetdb treats one Google spreadsheet as the family database.
// It locates or creates the backing spreadsheet and exposes the handful
// of range operations the repositories are built on.
package sheetdb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

// Tab and range names inside the backing spreadsheet.
const (
	SpreadsheetName = "FamilyHarmonyDB"

	TabRecipes      = "Recipes"
	TabShoppingList = "ShoppingList"
	TabSyncData     = "SyncData"

	RangeRecipeHeader = "Recipes!A1:F1"
	RangeRecipes      = "Recipes!A2:F"
	RangeShoppingList = "ShoppingList!A:C"
	RangeSyncData     = "SyncData!A1"
)

// recipeHeader is seeded into a freshly created spreadsheet.
var recipeHeader = []interface{}{"Name", "Ingredients", "ImageURL", "Tags", "Instructions", "ID"}

// Client wraps the Sheets and Drive services. Writes are rate limited
// to stay under the per-user Sheets quota, and every 401 reported by
// Google is forwarded to onUnauthorized so the session can be marked
// expired before anything retries.
type Client struct {
	sheets         *sheets.Service
	drive          *drive.Service
	rootFolderID   string
	limiter        *rate.Limiter
	onUnauthorized func()
	log            *zap.Logger
}

// New creates a Client around already constructed Google services.
func New(sheetsSvc *sheets.Service, driveSvc *drive.Service, rootFolderID string, onUnauthorized func(), log *zap.Logger) *Client {
	return &Client{
		sheets:         sheetsSvc,
		drive:          driveSvc,
		rootFolderID:   rootFolderID,
		limiter:        rate.NewLimiter(rate.Limit(1), 3),
		onUnauthorized: onUnauthorized,
		log:            log,
	}
}

// IsUnauthorized reports whether err is a 401 from a Google API.
func IsUnauthorized(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 401
}

// check funnels every remote error through the unauthorized hook.
func (c *Client) check(err error) error {
	if err != nil && IsUnauthorized(err) {
		c.log.Warn("google api returned 401, marking session expired")
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}
	return err
}

// ReadRange reads a named range, returning the raw value grid.
func (c *Client) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, c.check(fmt.Errorf("failed to read range %s: %w", readRange, err))
	}
	return resp.Values, nil
}

// OverwriteRange replaces a named range with the given values.
func (c *Client) OverwriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return c.check(fmt.Errorf("failed to write range %s: %w", writeRange, err))
	}
	return nil
}

// ClearRange empties a named range.
func (c *Client) ClearRange(ctx context.Context, spreadsheetID, clearRange string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.sheets.Spreadsheets.Values.Clear(spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return c.check(fmt.Errorf("failed to clear range %s: %w", clearRange, err))
	}
	return nil
}
