package sheetdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeGoogle serves just enough of the Drive and Sheets surface for the
// locator and range operations.
type fakeGoogle struct {
	listFiles    []map[string]string
	listCalls    int
	createCalls  int
	batchCalls   int
	updateRanges []string
	unauthorized bool
}

func (f *fakeGoogle) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
			return
		}

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
			f.listCalls++
			json.NewEncoder(w).Encode(map[string]any{"files": f.listFiles})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
			f.createCalls++
			json.NewEncoder(w).Encode(map[string]string{"id": "created-id"})
		case strings.Contains(r.URL.Path, ":batchUpdate"):
			f.batchCalls++
			w.Write([]byte(`{}`))
		case strings.Contains(r.URL.Path, "/values/"):
			parts := strings.SplitN(r.URL.Path, "/values/", 2)
			f.updateRanges = append(f.updateRanges, parts[1])
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, fake *fakeGoogle, onUnauthorized func()) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	sheetsSvc, err := sheets.NewService(ctx, option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("drive service: %v", err)
	}
	return New(sheetsSvc, driveSvc, "root", onUnauthorized, zap.NewNop())
}

func TestEnsureFindsExistingSpreadsheet(t *testing.T) {
	fake := &fakeGoogle{listFiles: []map[string]string{{"id": "existing-id", "name": SpreadsheetName}}}
	client := newTestClient(t, fake, nil)

	id, err := client.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if id != "existing-id" {
		t.Errorf("id = %q, want existing-id", id)
	}
	if fake.createCalls != 0 {
		t.Errorf("createCalls = %d, want 0", fake.createCalls)
	}
	if fake.listCalls != 1 {
		t.Errorf("listCalls = %d, want no retry when found", fake.listCalls)
	}
}

func TestEnsureUsesFirstOfDuplicates(t *testing.T) {
	fake := &fakeGoogle{listFiles: []map[string]string{
		{"id": "first-id", "name": SpreadsheetName},
		{"id": "second-id", "name": SpreadsheetName},
	}}
	client := newTestClient(t, fake, nil)

	id, err := client.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if id != "first-id" {
		t.Errorf("id = %q, want the first hit", id)
	}
}

func TestEnsureCreatesAndSeeds(t *testing.T) {
	fake := &fakeGoogle{}
	client := newTestClient(t, fake, nil)

	id, err := client.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if id != "created-id" {
		t.Errorf("id = %q, want created-id", id)
	}
	if fake.listCalls != 2 {
		t.Errorf("listCalls = %d, want a re-check before creating", fake.listCalls)
	}
	if fake.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", fake.createCalls)
	}
	if fake.batchCalls != 1 {
		t.Errorf("batchCalls = %d, want the tabs added once", fake.batchCalls)
	}
	if len(fake.updateRanges) != 1 {
		t.Fatalf("updateRanges = %v, want the header row seeded", fake.updateRanges)
	}
}

func TestUnauthorizedMarksSessionExpired(t *testing.T) {
	fake := &fakeGoogle{unauthorized: true}
	marked := false
	client := newTestClient(t, fake, func() { marked = true })

	_, err := client.ReadRange(context.Background(), "sheet-1", RangeSyncData)
	if err == nil {
		t.Fatal("expected error from 401 response")
	}
	if !IsUnauthorized(err) {
		t.Errorf("IsUnauthorized(%v) = false", err)
	}
	if !marked {
		t.Error("onUnauthorized hook not called")
	}
}
