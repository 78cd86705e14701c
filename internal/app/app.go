// Package app assembles the application: session, spreadsheet-backed
// repositories, synchronizer, calendar and the optional extras.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"family-harmony/internal/calendar"
	"family-harmony/internal/config"
	"family-harmony/internal/household"
	"family-harmony/internal/importer"
	"family-harmony/internal/localstate"
	"family-harmony/internal/media"
	"family-harmony/internal/notify"
	"family-harmony/internal/recipe"
	"family-harmony/internal/session"
	"family-harmony/internal/sheetdb"
)

// ErrNotConnected is returned while the family database has not been
// located yet (signed out, or initialization failed).
var ErrNotConnected = errors.New("not connected to family database")

// App holds the application's dependencies. Components behind the
// Google session are built lazily on Connect, because they need a
// signed-in token source.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *localstate.Store
	session  *session.Manager
	importer *importer.Importer
	notifier *notify.Notifier

	mu        sync.Mutex
	connected bool
	recipes   *recipe.Repository
	sync      *household.Synchronizer
	calendar  *calendar.Client
}

// New creates the App and everything that does not require a Google
// session.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := localstate.Open(cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	sess := session.NewManager(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL,
		cfg.SessionSecret, cfg.DemoMode, store, log,
	)

	var textGen importer.TextGenerator
	if cfg.GeminiAPIKey != "" {
		textGen, err = importer.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("gemini unavailable, recipe import disabled", zap.Error(err))
			textGen = nil
		}
	}

	notifier, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID, log)
	if err != nil {
		log.Warn("telegram unavailable, shopping list push disabled", zap.Error(err))
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		store:    store,
		session:  sess,
		importer: importer.NewImporter(textGen, log),
		notifier: notifier,
	}

	if cfg.DemoMode {
		a.setupDemo()
	}
	return a, nil
}

// Resume restores a persisted session at startup and connects.
func (a *App) Resume(ctx context.Context) {
	if a.cfg.DemoMode {
		return
	}
	resumed, err := a.session.Resume(ctx)
	if err != nil {
		a.log.Warn("could not resume session", zap.Error(err))
		return
	}
	if !resumed {
		return
	}
	if err := a.Connect(ctx); err != nil {
		a.log.Warn("could not connect after resume", zap.Error(err))
	}
}

// Connect builds the Google-backed components and loads remote state.
// Called after login and at startup with a resumed session. A failure
// here leaves the app in the not-connected error state; it never
// proceeds with a missing spreadsheet handle.
func (a *App) Connect(ctx context.Context) error {
	if a.cfg.DemoMode {
		return nil
	}

	tokenOpt := option.WithTokenSource(a.session)

	sheetsSvc, err := sheets.NewService(ctx, tokenOpt)
	if err != nil {
		return fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, tokenOpt)
	if err != nil {
		return fmt.Errorf("failed to create drive service: %w", err)
	}
	calSvc, err := gcal.NewService(ctx, tokenOpt)
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	client := sheetdb.New(sheetsSvc, driveSvc, a.cfg.DriveRootFolderID, a.session.MarkExpired, a.log)

	spreadsheetID, err := a.store.Get(ctx, localstate.KeySpreadsheetID)
	if err != nil {
		return err
	}
	if spreadsheetID == "" {
		spreadsheetID, err = client.Ensure(ctx)
		if err != nil {
			return fmt.Errorf("failed to locate family database: %w", err)
		}
		if err := a.store.Set(ctx, localstate.KeySpreadsheetID, spreadsheetID); err != nil {
			a.log.Warn("failed to cache spreadsheet id", zap.Error(err))
		}
	}

	mediaStore := media.NewStore(driveSvc, a.cfg.DriveRootFolderID, a.session.MarkExpired, a.log)
	recipes := recipe.NewRepository(client, mediaStore, spreadsheetID, a.log)
	synchronizer := household.New(client, spreadsheetID, recipes, a.session.Blocked, a.log)

	if err := recipes.Load(ctx); err != nil {
		return fmt.Errorf("failed to load recipe book: %w", err)
	}
	if err := synchronizer.Load(ctx); err != nil {
		// Stale-but-available: keep defaults, the UI still works.
		a.log.Warn("failed to load synced state", zap.Error(err))
	}

	a.mu.Lock()
	a.recipes = recipes
	a.sync = synchronizer
	a.calendar = calendar.NewClient(calSvc, a.session.MarkExpired, a.log)
	a.connected = true
	a.mu.Unlock()

	a.log.Info("connected to family database", zap.String("spreadsheet_id", spreadsheetID))
	return nil
}

// Disconnect tears down the connected components. Called on logout.
func (a *App) Disconnect() {
	a.mu.Lock()
	a.connected = false
	a.recipes = nil
	a.sync = nil
	a.calendar = nil
	a.mu.Unlock()
}

// setupDemo seeds in-memory components that never touch Google.
func (a *App) setupDemo() {
	recipes := recipe.NewRepository(nil, nil, "", a.log)
	recipes.Seed([]recipe.Recipe{{
		ID:   "m1",
		Name: "Summer Avocado Toast",
		Ingredients: []recipe.Ingredient{
			{Amount: "2", Unit: "slices", Item: "Sourdough Bread"},
			{Amount: "1", Unit: "", Item: "Avocado"},
			{Amount: "1", Unit: "pinch", Item: "Chili Flakes"},
		},
		Instructions: []recipe.Instruction{
			{Text: "Preparation", IsHeader: true},
			{Text: "Toast the bread until golden."},
			{Text: "Mash avocado with lemon and salt."},
			{Text: "Assembly", IsHeader: true},
			{Text: "Spread on toast and top with a poached egg."},
		},
		ImageURL: "https://images.unsplash.com/photo-1525351484163-7529414344d8?w=500&q=80",
		Tags:     []string{"Breakfast", "Healthy"},
	}})

	a.mu.Lock()
	a.recipes = recipes
	a.sync = household.New(nil, "", recipes, func() bool { return true }, a.log)
	a.connected = true
	a.mu.Unlock()
}

// Session returns the session manager.
func (a *App) Session() *session.Manager { return a.session }

// Importer returns the AI recipe importer.
func (a *App) Importer() *importer.Importer { return a.importer }

// Notifier returns the Telegram notifier, or nil when disabled.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Recipes returns the recipe repository once connected.
func (a *App) Recipes() (*recipe.Repository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, ErrNotConnected
	}
	return a.recipes, nil
}

// Sync returns the state synchronizer once connected.
func (a *App) Sync() (*household.Synchronizer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, ErrNotConnected
	}
	return a.sync, nil
}

// Calendar returns the calendar client once connected. Nil in demo
// mode, where the calendar is unavailable.
func (a *App) Calendar() (*calendar.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, ErrNotConnected
	}
	return a.calendar, nil
}

// Logout clears the session, the cached handle and local state.
func (a *App) Logout(ctx context.Context) error {
	a.Disconnect()
	return a.session.Logout(ctx)
}

// Close releases held resources.
func (a *App) Close() error {
	return a.store.Close()
}
