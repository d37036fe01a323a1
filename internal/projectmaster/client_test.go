package projectmaster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetProjectMaster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/project-masters/pm1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(masterDTO{ID: "pm1", Title: "Bridge repair", CustomerName: "Acme"})
	}))
	defer srv.Close()

	pm, err := New(srv.URL).Get(context.Background(), "pm1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pm.Title != "Bridge repair" || pm.CustomerName != "Acme" {
		t.Errorf("snapshot = %+v", pm)
	}
}

func TestResolveOrCreateReturnsExistingMatch(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			if got := r.URL.Query().Get("title"); got != "Bridge repair" {
				t.Errorf("title query = %q", got)
			}
			json.NewEncoder(w).Encode([]masterDTO{{ID: "pm1", Title: "Bridge repair"}})
		case r.Method == http.MethodPost:
			created = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	pm, err := New(srv.URL).ResolveOrCreate(context.Background(), NewMaster{Title: "Bridge repair"})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if pm.ID != "pm1" {
		t.Errorf("resolved id = %q", pm.ID)
	}
	if created {
		t.Error("create issued despite existing match")
	}
}

func TestResolveOrCreateCreatesWhenNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]masterDTO{})
		case http.MethodPost:
			var in NewMaster
			json.NewDecoder(r.Body).Decode(&in)
			json.NewEncoder(w).Encode(masterDTO{
				ID: "pm-new", Title: in.Title, ConstructionType: in.ConstructionType,
			})
		}
	}))
	defer srv.Close()

	pm, err := New(srv.URL).ResolveOrCreate(context.Background(), NewMaster{
		Title: "New site", ConstructionType: "paving",
	})
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if pm.ID != "pm-new" || pm.ConstructionType != "paving" {
		t.Errorf("created = %+v", pm)
	}
}

func TestGetSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
}
