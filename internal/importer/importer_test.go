package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type mockTextGenerator struct {
	response   string
	lastPrompt string
}

func (m *mockTextGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	return m.response, nil
}

const recipePage = `<html><head><style>body { color: red }</style></head><body>
<nav>Home | Recipes</nav>
<script>trackVisitor();</script>
<h1>Grandma's Pancakes</h1>
<p>Mix flour, milk and eggs.</p>
<div class="ads">Buy our pans!</div>
<footer>Copyright</footer>
</body></html>`

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recipePage))
	}))
	defer srv.Close()

	gen := &mockTextGenerator{response: "```json\n" + `{
		"name": "Grandma's Pancakes",
		"ingredients": [{"amount":"2","unit":"cups","item":"Flour"}],
		"instructions": [{"text":"Batter","isHeader":true},{"text":"Mix everything","isHeader":false}],
		"tags": "Breakfast, Sweet",
		"imageUrl": "https://example.com/p.jpg"
	}` + "\n```"}

	imp := NewImporter(gen, zap.NewNop())
	draft, err := imp.FromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}

	if draft.ID != "" {
		t.Errorf("draft ID = %q, want empty until saved", draft.ID)
	}
	if draft.Name != "Grandma's Pancakes" {
		t.Errorf("Name = %q", draft.Name)
	}
	if len(draft.Ingredients) != 1 || draft.Ingredients[0].Item != "Flour" {
		t.Errorf("Ingredients = %+v", draft.Ingredients)
	}
	if len(draft.Instructions) != 2 || !draft.Instructions[0].IsHeader {
		t.Errorf("Instructions = %+v", draft.Instructions)
	}
	if len(draft.Tags) != 2 || draft.Tags[0] != "Breakfast" {
		t.Errorf("Tags = %v", draft.Tags)
	}

	// The prompt carries the page text with noise elements stripped.
	if !strings.Contains(gen.lastPrompt, "Grandma's Pancakes") {
		t.Error("prompt missing page heading")
	}
	for _, noise := range []string{"trackVisitor", "Buy our pans", "color: red", "Copyright", "Home | Recipes"} {
		if strings.Contains(gen.lastPrompt, noise) {
			t.Errorf("prompt contains stripped content %q", noise)
		}
	}
}

func TestFromURLWithoutModel(t *testing.T) {
	imp := NewImporter(nil, zap.NewNop())
	if imp.Enabled() {
		t.Error("Enabled() = true with nil generator")
	}
	if _, err := imp.FromURL(context.Background(), "https://example.com"); err == nil {
		t.Error("expected error with nil generator")
	}
}

func TestFromURLServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	imp := NewImporter(&mockTextGenerator{}, zap.NewNop())
	if _, err := imp.FromURL(context.Background(), srv.URL); err == nil {
		t.Error("expected error for non-200 page")
	}
}

func TestParseModelOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"bare json", `{"name":"Soup"}`, false},
		{"fenced json", "```json\n{\"name\":\"Soup\"}\n```", false},
		{"prose around json", "Here you go:\n{\"name\":\"Soup\"}\nEnjoy!", false},
		{"no json at all", "I could not find a recipe.", true},
		{"broken json", `{"name": "Soup"`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseModelOutput(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Errorf("parseModelOutput(%q) succeeded, want error", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseModelOutput(%q): %v", tc.raw, err)
			}
			if got.Name != "Soup" {
				t.Errorf("Name = %q, want Soup", got.Name)
			}
		})
	}
}
