package household

import (
	"sort"

	"family-harmony/internal/recipe"
)

// AggregateItem is one line of the derived shopping list.
type AggregateItem struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Checked bool   `json:"checked"`
}

// ShoppingAggregate flattens every scheduled recipe's ingredients into
// a deterministic, name-sorted list. Ingredient names are normalized
// before counting, names in hidden are excluded, and the count is the
// number of scheduled occurrences. Plan entries without a matching
// recipe are skipped. Manual items are not merged here; they are a
// separate, additive section of the list.
func ShoppingAggregate(plan WeeklyPlan, recipes map[string]recipe.Recipe, hidden, checked []string) []AggregateItem {
	hiddenSet := make(map[string]struct{}, len(hidden))
	for _, h := range hidden {
		hiddenSet[NormalizeIngredient(h)] = struct{}{}
	}
	checkedSet := make(map[string]struct{}, len(checked))
	for _, c := range checked {
		checkedSet[NormalizeIngredient(c)] = struct{}{}
	}

	counts := make(map[string]int)
	for _, ids := range plan {
		for _, id := range ids {
			rec, ok := recipes[id]
			if !ok {
				continue
			}
			for _, ing := range rec.Ingredients {
				name := NormalizeIngredient(ing.Item)
				if name == "" {
					continue
				}
				if _, isHidden := hiddenSet[name]; isHidden {
					continue
				}
				counts[name]++
			}
		}
	}

	items := make([]AggregateItem, 0, len(counts))
	for name, count := range counts {
		_, isChecked := checkedSet[name]
		items = append(items, AggregateItem{Name: name, Count: count, Checked: isChecked})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
