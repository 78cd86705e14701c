package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"family-harmony/internal/household"
	"family-harmony/internal/recipe"
)

type mealRequest struct {
	Day      string `json:"day"`
	RecipeID string `json:"recipeId"`
}

func (r mealRequest) Validate() error {
	days := make([]interface{}, len(household.Weekdays))
	for i, d := range household.Weekdays {
		days[i] = d
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Day, validation.Required, validation.In(days...)),
		validation.Field(&r.RecipeID, validation.Required),
	)
}

type moveMealRequest struct {
	FromDay  string `json:"fromDay"`
	ToDay    string `json:"toDay"`
	RecipeID string `json:"recipeId"`
}

func (r moveMealRequest) Validate() error {
	days := make([]interface{}, len(household.Weekdays))
	for i, d := range household.Weekdays {
		days[i] = d
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.FromDay, validation.Required, validation.In(days...)),
		validation.Field(&r.ToDay, validation.Required, validation.In(days...)),
		validation.Field(&r.RecipeID, validation.Required),
	)
}

type noteRequest struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

func (r noteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required, validation.Length(1, 500)),
	)
}

type manualItemRequest struct {
	Name string `json:"name"`
}

func (r manualItemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

type ingredientRequest struct {
	Name string `json:"name"`
}

func (r ingredientRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

type recipeRequest struct {
	Name         string               `json:"name"`
	Ingredients  []recipe.Ingredient  `json:"ingredients"`
	Instructions []recipe.Instruction `json:"instructions"`
	ImageURL     string               `json:"imageUrl"`
	Tags         []string             `json:"tags"`
}

func (r recipeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

func (r recipeRequest) toRecipe(id string) recipe.Recipe {
	return recipe.Recipe{
		ID:           id,
		Name:         r.Name,
		Ingredients:  r.Ingredients,
		Instructions: r.Instructions,
		ImageURL:     r.ImageURL,
		Tags:         r.Tags,
	}
}

type importRequest struct {
	URL string `json:"url"`
}

func (r importRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.Required, is.URL),
	)
}

type eventRequest struct {
	Summary string `json:"summary"`
	Start   string `json:"start"`
	AllDay  bool   `json:"allDay"`
}

func (r eventRequest) Validate() error {
	layout := time.RFC3339
	if r.AllDay {
		layout = "2006-01-02"
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Summary, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Start, validation.Required, validation.Date(layout)),
	)
}

// startTime parses the validated start value.
func (r eventRequest) startTime() (time.Time, error) {
	if r.AllDay {
		return time.Parse("2006-01-02", r.Start)
	}
	return time.Parse(time.RFC3339, r.Start)
}
