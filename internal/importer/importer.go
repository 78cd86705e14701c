// Package importer turns a recipe web page into a structured recipe
// draft using an AI extraction model. Model output is untrusted and
// goes through the same defensive parsing as legacy spreadsheet rows.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"family-harmony/internal/recipe"
)

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Importer handles fetching and extracting recipes from URLs.
type Importer struct {
	textGen    TextGenerator
	httpClient *http.Client
	log        *zap.Logger
}

// NewImporter creates an Importer. textGen may be nil, in which case
// FromURL reports import as unavailable.
func NewImporter(textGen TextGenerator, log *zap.Logger) *Importer {
	return &Importer{
		textGen:    textGen,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Enabled reports whether an extraction model is configured.
func (i *Importer) Enabled() bool {
	return i.textGen != nil
}

// extractedRecipe mirrors the JSON structure requested from the model.
// Tags come back as one comma-separated string.
type extractedRecipe struct {
	Name         string               `json:"name"`
	Ingredients  []recipe.Ingredient  `json:"ingredients"`
	Instructions []recipe.Instruction `json:"instructions"`
	Tags         string               `json:"tags"`
	ImageURL     string               `json:"imageUrl"`
}

// FromURL fetches the page, extracts the recipe via the model and
// returns a draft without an id. The caller saves it through the
// repository like any hand-entered recipe.
func (i *Importer) FromURL(ctx context.Context, url string) (recipe.Recipe, error) {
	if i.textGen == nil {
		return recipe.Recipe{}, fmt.Errorf("recipe import is not configured")
	}

	content, err := i.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to fetch page: %w", err)
	}

	prompt := fmt.Sprintf(`You are a recipe extraction expert. Extract the recipe from the following page text.
Return the result strictly as a JSON object with this structure:
{
  "name": "string",
  "ingredients": [ { "amount": "string (number or fraction)", "unit": "string", "item": "string" } ],
  "instructions": [ { "text": "string", "isHeader": boolean } ],
  "tags": "string (comma separated)",
  "imageUrl": "string"
}
For instruction headers (like "For the Sauce"), set isHeader to true.
For ingredient amounts, use fractions like "1/2" where possible.
Return ONLY the raw JSON. Do not wrap the response in markdown code blocks.

Page text (source: %s):
%s`, url, content)

	raw, err := i.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("ai extraction failed: %w", err)
	}

	extracted, err := parseModelOutput(raw)
	if err != nil {
		return recipe.Recipe{}, err
	}

	return recipe.Recipe{
		Name:         extracted.Name,
		Ingredients:  extracted.Ingredients,
		Instructions: extracted.Instructions,
		ImageURL:     extracted.ImageURL,
		Tags:         splitTags(extracted.Tags),
	}, nil
}

// fetchAndCleanHTML downloads the page and strips markup that only
// wastes model tokens.
func (i *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// parseModelOutput tolerates markdown fences and stray prose around
// the JSON object.
func parseModelOutput(raw string) (extractedRecipe, error) {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	if block := jsonBlock.FindString(clean); block != "" {
		clean = block
	}

	var extracted extractedRecipe
	if err := json.Unmarshal([]byte(clean), &extracted); err != nil {
		return extractedRecipe{}, fmt.Errorf("failed to parse ai response: %w", err)
	}
	return extracted, nil
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
