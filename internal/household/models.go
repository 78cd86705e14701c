// Package household holds the shared mutable family state (meal plan,
// notes, manual shopping items, ingredient flags), the synchronizer
// that persists it as one JSON document in the spreadsheet, and the
// pure view builders derived from it.
package household

import "strings"

// Weekdays are the fixed keys of the weekly plan, in display order.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeeklyPlan maps weekday name to the scheduled recipe ids for that
// day. A recipe id may appear on several days and several times within
// a day. Ids are references into the recipe book; dangling references
// are dropped at read time rather than enforced here.
type WeeklyPlan map[string][]string

// NewWeeklyPlan returns a plan with all seven days present and empty.
func NewWeeklyPlan() WeeklyPlan {
	plan := make(WeeklyPlan, len(Weekdays))
	for _, day := range Weekdays {
		plan[day] = []string{}
	}
	return plan
}

// ValidDay reports whether day is one of the seven weekday keys.
func ValidDay(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Note is a sticky note on the family dashboard.
type Note struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// ManualItem is a hand-added shopping list entry.
type ManualItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// State is the synchronized bundle. It is always read and written as a
// whole; each field independently replaces the local value when present
// in the remote document.
//
// HiddenIngredients and CheckedIngredients are keyed by normalized
// ingredient name, not by recipe identity: the same name across
// different recipes intentionally shares one flag.
type State struct {
	WeeklyPlan         WeeklyPlan   `json:"weeklyPlan"`
	Notes              []Note       `json:"notes"`
	ManualItems        []ManualItem `json:"manualItems"`
	HiddenIngredients  []string     `json:"hiddenIngredients"`
	CheckedIngredients []string     `json:"checkedIngredients"`
}

// NewState returns the signed-in defaults.
func NewState() State {
	return State{
		WeeklyPlan:         NewWeeklyPlan(),
		Notes:              []Note{},
		ManualItems:        []ManualItem{},
		HiddenIngredients:  []string{},
		CheckedIngredients: []string{},
	}
}

// Clone returns a deep copy safe to hand to callers.
func (s State) Clone() State {
	out := State{
		WeeklyPlan:         make(WeeklyPlan, len(s.WeeklyPlan)),
		Notes:              append([]Note(nil), s.Notes...),
		ManualItems:        append([]ManualItem(nil), s.ManualItems...),
		HiddenIngredients:  append([]string(nil), s.HiddenIngredients...),
		CheckedIngredients: append([]string(nil), s.CheckedIngredients...),
	}
	for day, ids := range s.WeeklyPlan {
		out.WeeklyPlan[day] = append([]string(nil), ids...)
	}
	return out
}

// NormalizeIngredient is the shared key normalization for the hidden
// and checked sets.
func NormalizeIngredient(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
