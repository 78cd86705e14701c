package household

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"family-harmony/internal/debounce"
	"family-harmony/internal/recipe"
	"family-harmony/internal/sheetdb"
)

// Timing of the synchronization protocol. Saves wait for a quiet
// period so bursts of edits become one write against the rate-limited
// Sheets API; the suppression window stops a fresh load from being
// echoed straight back as a spurious write.
const (
	saveQuietPeriod    = 2 * time.Second
	mirrorQuietPeriod  = 3 * time.Second
	loadSuppressWindow = time.Second
)

// ValuesAPI is the slice of the sheet client the synchronizer needs.
type ValuesAPI interface {
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	OverwriteRange(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
	ClearRange(ctx context.Context, spreadsheetID, clearRange string) error
}

// RecipeSource resolves plan references for the derived shopping view.
type RecipeSource interface {
	Index() map[string]recipe.Recipe
}

// Synchronizer owns the synced state bundle. Mutations are applied to
// local state immediately; persistence is debounced and writes the
// whole bundle to SyncData!A1, last writer wins. There is no
// optimistic concurrency: a single active household is assumed.
type Synchronizer struct {
	values        ValuesAPI
	spreadsheetID string
	recipes       RecipeSource
	blocked       func() bool
	log           *zap.Logger

	mu            sync.Mutex
	state         State
	suppressUntil time.Time

	saveTimer   debounce.Timer
	mirrorTimer debounce.Timer

	saveQuiet   time.Duration
	mirrorQuiet time.Duration
	suppress    time.Duration
	now         func() time.Time
	newID       func() string
}

// New creates a Synchronizer. values may be nil in demo mode, in which
// case every remote operation is a no-op. blocked gates both load and
// save (expired session, demo mode).
func New(values ValuesAPI, spreadsheetID string, recipes RecipeSource, blocked func() bool, log *zap.Logger) *Synchronizer {
	return &Synchronizer{
		values:        values,
		spreadsheetID: spreadsheetID,
		recipes:       recipes,
		blocked:       blocked,
		log:           log,
		state:         NewState(),
		saveQuiet:     saveQuietPeriod,
		mirrorQuiet:   mirrorQuietPeriod,
		suppress:      loadSuppressWindow,
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
}

// Load fetches the bundle from its well-known cell and applies it
// field by field. A malformed document is logged and ignored, leaving
// the current state in place. Load always opens the suppression
// window, even when the cell is empty.
func (s *Synchronizer) Load(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.suppressUntil = s.now().Add(s.suppress)
		s.mu.Unlock()
	}()

	if s.values == nil || s.isBlocked() {
		return nil
	}

	rows, err := s.values.ReadRange(ctx, s.spreadsheetID, sheetdb.RangeSyncData)
	if err != nil {
		return fmt.Errorf("failed to load synced state: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	raw, ok := rows[0][0].(string)
	if !ok || raw == "" {
		return nil
	}

	s.applyRemote(raw)
	return nil
}

// applyRemote merges a remote document into local state. Each of the
// five fields is independently optional; a present field fully
// replaces the local value, an absent one leaves it untouched.
func (s *Synchronizer) applyRemote(raw string) {
	var doc struct {
		WeeklyPlan         json.RawMessage `json:"weeklyPlan"`
		Notes              *[]Note         `json:"notes"`
		ManualItems        *[]ManualItem   `json:"manualItems"`
		HiddenIngredients  *[]string       `json:"hiddenIngredients"`
		CheckedIngredients *[]string       `json:"checkedIngredients"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.log.Error("failed to parse synced state, keeping defaults", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.WeeklyPlan != nil {
		s.state.WeeklyPlan = decodePlan(doc.WeeklyPlan)
	}
	if doc.Notes != nil {
		s.state.Notes = *doc.Notes
	}
	if doc.ManualItems != nil {
		s.state.ManualItems = *doc.ManualItems
	}
	if doc.HiddenIngredients != nil {
		s.state.HiddenIngredients = *doc.HiddenIngredients
	}
	if doc.CheckedIngredients != nil {
		s.state.CheckedIngredients = *doc.CheckedIngredients
	}
}

// decodePlan normalizes the stored plan onto the seven weekday keys.
// Older documents stored a single value instead of a list, or embedded
// whole recipe objects instead of ids; both shapes are coerced.
func decodePlan(raw json.RawMessage) WeeklyPlan {
	plan := NewWeeklyPlan()

	var days map[string]json.RawMessage
	if err := json.Unmarshal(raw, &days); err != nil {
		return plan
	}

	for _, day := range Weekdays {
		val, ok := days[day]
		if !ok {
			continue
		}
		if ids := decodePlanDay(val); ids != nil {
			plan[day] = ids
		}
	}
	return plan
}

func decodePlanDay(raw json.RawMessage) []string {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err == nil {
		return ids
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return []string{}
		}
		return []string{single}
	}

	// Legacy documents embedded full recipe snapshots in the plan.
	var embedded []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &embedded); err == nil {
		ids = []string{}
		for _, e := range embedded {
			if e.ID != "" {
				ids = append(ids, e.ID)
			}
		}
		return ids
	}

	var one struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &one); err == nil && one.ID != "" {
		return []string{one.ID}
	}
	return nil
}

// State returns a copy of the current bundle.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Aggregate builds the derived shopping list from the current plan.
func (s *Synchronizer) Aggregate() []AggregateItem {
	state := s.State()
	var index map[string]recipe.Recipe
	if s.recipes != nil {
		index = s.recipes.Index()
	}
	return ShoppingAggregate(state.WeeklyPlan, index, state.HiddenIngredients, state.CheckedIngredients)
}

// --- mutations ---

// AddMeal schedules a recipe on a day.
func (s *Synchronizer) AddMeal(day, recipeID string) error {
	if !ValidDay(day) {
		return fmt.Errorf("invalid day %q", day)
	}
	s.mu.Lock()
	s.state.WeeklyPlan[day] = append(s.state.WeeklyPlan[day], recipeID)
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
	return nil
}

// RemoveMeal unschedules every occurrence of a recipe on a day.
func (s *Synchronizer) RemoveMeal(day, recipeID string) error {
	if !ValidDay(day) {
		return fmt.Errorf("invalid day %q", day)
	}
	s.mu.Lock()
	s.state.WeeklyPlan[day] = removeString(s.state.WeeklyPlan[day], recipeID)
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
	return nil
}

// MoveMeal moves a recipe from one day to another.
func (s *Synchronizer) MoveMeal(fromDay, toDay, recipeID string) error {
	if !ValidDay(fromDay) || !ValidDay(toDay) {
		return fmt.Errorf("invalid day pair %q -> %q", fromDay, toDay)
	}
	s.mu.Lock()
	if containsString(s.state.WeeklyPlan[fromDay], recipeID) {
		s.state.WeeklyPlan[fromDay] = removeString(s.state.WeeklyPlan[fromDay], recipeID)
		s.state.WeeklyPlan[toDay] = append(s.state.WeeklyPlan[toDay], recipeID)
	}
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
	return nil
}

// AddNote prepends a note.
func (s *Synchronizer) AddNote(text, color string) Note {
	note := Note{ID: s.newID(), Text: text, Color: color}
	s.mu.Lock()
	s.state.Notes = append([]Note{note}, s.state.Notes...)
	s.mu.Unlock()
	s.scheduleSave()
	return note
}

// RemoveNote deletes a note by id.
func (s *Synchronizer) RemoveNote(id string) {
	s.mu.Lock()
	notes := s.state.Notes[:0]
	for _, n := range s.state.Notes {
		if n.ID != id {
			notes = append(notes, n)
		}
	}
	s.state.Notes = notes
	s.mu.Unlock()
	s.scheduleSave()
}

// AddManualItem appends a hand-typed shopping item.
func (s *Synchronizer) AddManualItem(name string) ManualItem {
	item := ManualItem{ID: s.newID(), Name: name}
	s.mu.Lock()
	s.state.ManualItems = append(s.state.ManualItems, item)
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
	return item
}

// ToggleManualItem flips the checked flag of a manual item.
func (s *Synchronizer) ToggleManualItem(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.state.ManualItems {
		if s.state.ManualItems[i].ID == id {
			s.state.ManualItems[i].Checked = !s.state.ManualItems[i].Checked
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.scheduleSave()
		s.scheduleMirror()
	}
	return found
}

// ToggleChecked flips the transient check-off flag of a recipe
// ingredient, keyed by normalized name.
func (s *Synchronizer) ToggleChecked(name string) {
	name = NormalizeIngredient(name)
	s.mu.Lock()
	if containsString(s.state.CheckedIngredients, name) {
		s.state.CheckedIngredients = removeString(s.state.CheckedIngredients, name)
	} else {
		s.state.CheckedIngredients = append(s.state.CheckedIngredients, name)
	}
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
}

// ToggleHidden flips whether an ingredient name is excluded from the
// shopping aggregate.
func (s *Synchronizer) ToggleHidden(name string) {
	name = NormalizeIngredient(name)
	s.mu.Lock()
	if containsString(s.state.HiddenIngredients, name) {
		s.state.HiddenIngredients = removeString(s.state.HiddenIngredients, name)
	} else {
		s.state.HiddenIngredients = append(s.state.HiddenIngredients, name)
	}
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
}

// ClearSelected removes checked manual items and hides every checked
// recipe ingredient.
func (s *Synchronizer) ClearSelected() {
	s.mu.Lock()
	items := s.state.ManualItems[:0]
	for _, item := range s.state.ManualItems {
		if !item.Checked {
			items = append(items, item)
		}
	}
	s.state.ManualItems = items
	s.state.HiddenIngredients = append(s.state.HiddenIngredients, s.state.CheckedIngredients...)
	s.state.CheckedIngredients = []string{}
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
}

// RestoreHidden brings every hidden ingredient back into the
// aggregate.
func (s *Synchronizer) RestoreHidden() {
	s.mu.Lock()
	s.state.HiddenIngredients = []string{}
	s.mu.Unlock()
	s.scheduleSave()
	s.scheduleMirror()
}

// --- persistence ---

func (s *Synchronizer) isBlocked() bool {
	return s.blocked != nil && s.blocked()
}

// scheduleSave arms the debounced bundle write. Mutations inside the
// post-load suppression window are local-only; anything later re-arms
// the quiet-period timer.
func (s *Synchronizer) scheduleSave() {
	if s.values == nil || s.isBlocked() {
		return
	}
	s.mu.Lock()
	suppressed := s.now().Before(s.suppressUntil)
	s.mu.Unlock()
	if suppressed {
		return
	}
	s.saveTimer.Arm(s.saveQuiet, func() {
		s.flushState(context.Background())
	})
}

// flushState serializes the whole bundle and overwrites the remote
// cell. On failure local state stays the source of truth and the next
// mutation's save is the retry.
func (s *Synchronizer) flushState(ctx context.Context) {
	if s.values == nil || s.isBlocked() {
		return
	}
	s.mu.Lock()
	payload, err := json.Marshal(s.state)
	s.mu.Unlock()
	if err != nil {
		s.log.Error("failed to serialize synced state", zap.Error(err))
		return
	}

	err = s.values.OverwriteRange(ctx, s.spreadsheetID, sheetdb.RangeSyncData, [][]interface{}{{string(payload)}})
	if err != nil {
		s.log.Warn("failed to sync state, will retry on next mutation", zap.Error(err))
		return
	}
	s.log.Debug("synced state saved")
}

// scheduleMirror arms the slower rewrite of the human-readable
// ShoppingList tab.
func (s *Synchronizer) scheduleMirror() {
	if s.values == nil || s.isBlocked() {
		return
	}
	s.mu.Lock()
	suppressed := s.now().Before(s.suppressUntil)
	s.mu.Unlock()
	if suppressed {
		return
	}
	s.mirrorTimer.Arm(s.mirrorQuiet, func() {
		s.flushMirror(context.Background())
	})
}

func (s *Synchronizer) flushMirror(ctx context.Context) {
	if s.values == nil || s.isBlocked() {
		return
	}

	state := s.State()
	var index map[string]recipe.Recipe
	if s.recipes != nil {
		index = s.recipes.Index()
	}
	aggregate := ShoppingAggregate(state.WeeklyPlan, index, state.HiddenIngredients, nil)

	values := [][]interface{}{
		{"Date", s.now().Format("2006-01-02")},
		{"Category", "Item"},
	}
	for _, item := range aggregate {
		label := item.Name
		if item.Count > 1 {
			label = fmt.Sprintf("%s (x%d)", item.Name, item.Count)
		}
		values = append(values, []interface{}{"Recipe", label})
	}
	for _, item := range state.ManualItems {
		values = append(values, []interface{}{"Manual", item.Name})
	}

	if err := s.values.ClearRange(ctx, s.spreadsheetID, sheetdb.RangeShoppingList); err != nil {
		s.log.Warn("failed to clear shopping list tab", zap.Error(err))
		return
	}
	if err := s.values.OverwriteRange(ctx, s.spreadsheetID, sheetdb.TabShoppingList+"!A1", values); err != nil {
		s.log.Warn("failed to mirror shopping list tab", zap.Error(err))
	}
}
