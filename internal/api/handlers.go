package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"family-harmony/internal/app"
	"family-harmony/internal/recipe"
)

// Server holds the API route handlers.
type Server struct {
	app *app.App
	log *zap.Logger
}

// NewServer creates a Server.
func NewServer(application *app.App, log *zap.Logger) *Server {
	return &Server{app: application, log: log}
}

// guard blocks remote operations while the session is expired. The UI
// shows the reconnect overlay on this response.
func (s *Server) guard(w http.ResponseWriter) bool {
	if s.app.Session().Expired() {
		writeJSON(w, http.StatusUnauthorized, reconnectBody())
		return false
	}
	return true
}

// remoteError maps component errors onto API responses.
func (s *Server) remoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotConnected):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("family database unavailable"))
	case s.app.Session().Expired():
		writeJSON(w, http.StatusUnauthorized, reconnectBody())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// --- auth ---

func (s *Server) handleLoginURL(w http.ResponseWriter, r *http.Request) {
	sess := s.app.Session()

	// Demo mode has no consent flow; hand out the session token here.
	if sess.Demo() {
		token, err := sess.MintSessionToken()
		if err != nil {
			s.remoteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"demo":  true,
			"token": token,
		})
		return
	}

	state := uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]string{
		"url":   sess.LoginURL(state),
		"state": state,
	})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("missing authorization code"))
		return
	}

	profile, err := s.app.Session().Exchange(r.Context(), code)
	if err != nil {
		s.log.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, errorBody("login failed"))
		return
	}

	if err := s.app.Connect(r.Context()); err != nil {
		s.log.Error("initialization failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("could not initialize family database"))
		return
	}

	token, err := s.app.Session().MintSessionToken()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"profile": profile,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.app.Session()
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": sess.Authenticated(),
		"expired":       sess.Expired(),
		"demo":          sess.Demo(),
		"profile":       sess.Profile(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Logout(r.Context()); err != nil {
		s.remoteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- synced state ---

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": sync.State()})
}

func (s *Server) handleAddMeal(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req mealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if err := sync.AddMeal(req.Day, req.RecipeID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeklyPlan": sync.State().WeeklyPlan})
}

func (s *Server) handleRemoveMeal(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req mealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if err := sync.RemoveMeal(req.Day, req.RecipeID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeklyPlan": sync.State().WeeklyPlan})
}

func (s *Server) handleMoveMeal(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req moveMealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if err := sync.MoveMeal(req.FromDay, req.ToDay, req.RecipeID); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeklyPlan": sync.State().WeeklyPlan})
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	note := sync.AddNote(req.Text, req.Color)
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleRemoveNote(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	sync.RemoveNote(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// --- recipes ---

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	repo, err := s.app.Recipes()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": repo.List()})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	repo, err := s.app.Recipes()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	rec, ok := repo.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("recipe not found"))
		return
	}

	if raw := r.URL.Query().Get("scale"); raw != "" {
		factor, err := strconv.ParseFloat(raw, 64)
		if err != nil || factor <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid scale factor"))
			return
		}
		// The slice is shared with the stored recipe; scale a copy.
		scaled := append([]recipe.Ingredient(nil), rec.Ingredients...)
		for i := range scaled {
			scaled[i].Amount = recipe.ScaleAmount(scaled[i].Amount, factor)
		}
		rec.Ingredients = scaled
	}
	writeJSON(w, http.StatusOK, rec)
}

// parseRecipePayload accepts either a JSON body or a multipart form
// with a "recipe" JSON field and an optional "image" file.
func parseRecipePayload(r *http.Request) (recipeRequest, *recipe.ImageUpload, error) {
	var req recipeRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return req, nil, err
		}
		if err := json.Unmarshal([]byte(r.FormValue("recipe")), &req); err != nil {
			return req, nil, err
		}
		file, header, err := r.FormFile("image")
		if err == http.ErrMissingFile {
			return req, nil, nil
		}
		if err != nil {
			return req, nil, err
		}
		return req, &recipe.ImageUpload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Data:     file,
		}, nil
	}

	err := json.NewDecoder(r.Body).Decode(&req)
	return req, nil, err
}

func closeUpload(upload *recipe.ImageUpload) {
	if upload == nil {
		return
	}
	if closer, ok := upload.Data.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	req, upload, err := parseRecipePayload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid recipe payload"))
		return
	}
	defer closeUpload(upload)
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	repo, err := s.app.Recipes()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	created, err := repo.Create(r.Context(), req.toRecipe(""), upload)
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	req, upload, err := parseRecipePayload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid recipe payload"))
		return
	}
	defer closeUpload(upload)
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	repo, err := s.app.Recipes()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	updated, err := repo.Update(r.Context(), req.toRecipe(chi.URLParam(r, "id")), upload)
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("recipe not found"))
			return
		}
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	repo, err := s.app.Recipes()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if err := repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("recipe not found"))
			return
		}
		s.remoteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportRecipe(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	if !s.app.Importer().Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("recipe import is not configured"))
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	draft, err := s.app.Importer().FromURL(r.Context(), req.URL)
	if err != nil {
		s.log.Warn("recipe import failed", zap.String("url", req.URL), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody("import failed, try entering the recipe manually"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipe": draft})
}

// --- shopping ---

func (s *Server) handleGetShopping(w http.ResponseWriter, r *http.Request) {
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	state := sync.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  sync.Aggregate(),
		"manual": state.ManualItems,
		"hidden": state.HiddenIngredients,
	})
}

func (s *Server) handleAddManualItem(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req manualItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	item := sync.AddManualItem(strings.TrimSpace(req.Name))
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleToggleManualItem(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if !sync.ToggleManualItem(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, errorBody("item not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleChecked(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req ingredientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	sync.ToggleChecked(req.Name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleHidden(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req ingredientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	sync.ToggleHidden(req.Name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSelected(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	sync.ClearSelected()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreHidden(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	sync.RestoreHidden()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePushShoppingList(w http.ResponseWriter, r *http.Request) {
	notifier := s.app.Notifier()
	if notifier == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("telegram push is not configured"))
		return
	}
	sync, err := s.app.Sync()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	state := sync.State()
	if err := notifier.SendShoppingList(sync.Aggregate(), state.ManualItems); err != nil {
		s.log.Error("shopping list push failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorBody("push failed"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// --- calendar ---

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	cal, err := s.app.Calendar()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if cal == nil {
		// Demo mode has no calendar account.
		writeJSON(w, http.StatusOK, map[string]any{"events": []any{}})
		return
	}
	events, err := cal.UpcomingEvents(r.Context())
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	if !s.guard(w) {
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	cal, err := s.app.Calendar()
	if err != nil {
		s.remoteError(w, err)
		return
	}
	if cal == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("calendar unavailable in demo mode"))
		return
	}

	start, err := req.startTime()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid start time"))
		return
	}
	event, err := cal.AddEvent(r.Context(), req.Summary, start, req.AllDay)
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}
