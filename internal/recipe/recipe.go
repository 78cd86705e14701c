// Package recipe holds the recipe model, the spreadsheet row codec and
// the repository that persists the recipe book to the Recipes tab.
package recipe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ingredient is a single structured ingredient line.
type Ingredient struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
	Item   string `json:"item"`
}

// Instruction is a single instruction line. Header lines ("For the
// sauce") group the steps that follow them.
type Instruction struct {
	Text     string `json:"text"`
	IsHeader bool   `json:"isHeader"`
}

// Recipe is one entry of the family recipe book.
type Recipe struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Ingredients  []Ingredient  `json:"ingredients"`
	Instructions []Instruction `json:"instructions"`
	ImageURL     string        `json:"imageUrl"`
	Tags         []string      `json:"tags"`
}

// Sheet row layout: Name | Ingredients | ImageURL | Tags | Instructions | ID.
const (
	colName = iota
	colIngredients
	colImageURL
	colTags
	colInstructions
	colID
	rowWidth
)

// FromRow maps one sheet row to a Recipe. Rows written by old app
// versions store ingredients as a comma-joined string and instructions
// as a "||"-joined string; newer rows store JSON. The JSON decode is
// attempted first and the legacy split is the fallback, so the mapper
// never fails. A missing ID column falls back to the row index, which
// stays stable because every write rewrites the full table with IDs.
func FromRow(row []interface{}, index int) Recipe {
	id := cell(row, colID)
	if id == "" {
		id = fmt.Sprintf("%d", index)
	}

	imageURL := cell(row, colImageURL)
	if imageURL == "" {
		imageURL = fmt.Sprintf("https://picsum.photos/seed/%d/400/300", index)
	}

	return Recipe{
		ID:           id,
		Name:         cell(row, colName),
		Ingredients:  decodeIngredients(cell(row, colIngredients)),
		Instructions: decodeInstructions(cell(row, colInstructions)),
		ImageURL:     imageURL,
		Tags:         splitTags(cell(row, colTags)),
	}
}

// ToRow maps a Recipe to its sheet row. Ingredients and instructions
// are written in the structured JSON encoding.
func ToRow(r Recipe) []interface{} {
	ingredients, _ := json.Marshal(r.Ingredients)
	instructions, _ := json.Marshal(r.Instructions)
	return []interface{}{
		r.Name,
		string(ingredients),
		r.ImageURL,
		strings.Join(r.Tags, ", "),
		string(instructions),
		r.ID,
	}
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case float64:
		// Sheets coerces numeric-looking cells (timestamp ids) to
		// numbers; %v would render them in scientific notation.
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func decodeIngredients(raw string) []Ingredient {
	if raw == "" {
		return nil
	}
	var structured []Ingredient
	if err := json.Unmarshal([]byte(raw), &structured); err == nil {
		return structured
	}
	// Legacy encoding: "flour, milk, eggs".
	var legacy []Ingredient
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		legacy = append(legacy, Ingredient{Item: part})
	}
	return legacy
}

func decodeInstructions(raw string) []Instruction {
	if raw == "" {
		return nil
	}
	var structured []Instruction
	if err := json.Unmarshal([]byte(raw), &structured); err == nil {
		return structured
	}
	// Legacy encoding: "step one||step two".
	var legacy []Instruction
	for _, part := range strings.Split(raw, "||") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		legacy = append(legacy, Instruction{Text: part})
	}
	return legacy
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
