package sync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func clioFixtureServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page := r.URL.Query().Get("page")
		if page != "1" {
			json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
			return
		}
		switch r.URL.Path {
		case "/activities.json":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{
						"id":   1001,
						"type": "TimeEntry",
						"date": "2024-01-05",
						"note": "Drafted motion to dismiss",
						"user": map[string]interface{}{"id": 7, "name": "J. Smith"},
						"matter": map[string]interface{}{
							"id":             501,
							"display_number": "M-100",
						},
						"quantity": 3.0,
						"rate":     350.0,
						"total":    1050.0,
						"billable": true,
					},
					{
						"id":       1002,
						"type":     "ExpenseEntry",
						"date":     "2024-01-10",
						"note":     "Court filing fee",
						"user":     map[string]interface{}{"id": 7, "name": "J. Smith"},
						"matter":   map[string]interface{}{"id": 501, "display_number": "M-100"},
						"total":    125.0,
						"billable": true,
					},
				},
			})
		case "/matters.json":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{
						"id":             501,
						"display_number": "M-100",
						"description":    "Acme Corp v. Widget Inc",
						"client":         map[string]interface{}{"id": 9, "name": "Acme Corp"},
						"status":         "Open",
					},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func testClioClient(t *testing.T, api *httptest.Server, token OAuthToken, save TokenSaver) *ClioClient {
	t.Helper()
	c := NewClioClient(token, "client-id", "client-secret", save)
	c.BaseURL = api.URL
	return c
}

func TestClioFetchEntries(t *testing.T) {
	api := clioFixtureServer(t, "good-token")
	defer api.Close()

	c := testClioClient(t, api, OAuthToken{AccessToken: "good-token"}, nil)

	entries, err := c.FetchEntries(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ExternalID != "1001" {
		t.Errorf("Wrong external id: %s", first.ExternalID)
	}
	if first.Timekeeper != "J. Smith" || first.MatterRef != "M-100" {
		t.Errorf("Wrong attribution: %s / %s", first.Timekeeper, first.MatterRef)
	}
	if first.EntryType != "time" {
		t.Errorf("Expected time entry, got %s", first.EntryType)
	}
	if !first.Hours.Equal(decimal.NewFromFloat(3.0)) {
		t.Errorf("Wrong hours: %s", first.Hours)
	}

	if entries[1].EntryType != "expense" {
		t.Errorf("ExpenseEntry should map to expense, got %s", entries[1].EntryType)
	}
}

func TestClioFetchMatters(t *testing.T) {
	api := clioFixtureServer(t, "good-token")
	defer api.Close()

	c := testClioClient(t, api, OAuthToken{AccessToken: "good-token"}, nil)

	matters, err := c.FetchMatters()
	if err != nil {
		t.Fatalf("FetchMatters failed: %v", err)
	}
	if len(matters) != 1 {
		t.Fatalf("Expected 1 matter, got %d", len(matters))
	}
	m := matters[0]
	if m.ExternalID != "501" || m.DisplayNumber != "M-100" || m.ClientName != "Acme Corp" {
		t.Errorf("Wrong matter mapping: %+v", m)
	}
}

func TestClioRefreshOnUnauthorized(t *testing.T) {
	api := clioFixtureServer(t, "fresh-token")
	defer api.Close()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad token request: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("Wrong grant type: %s", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "refresh-1" {
			t.Errorf("Wrong refresh token: %s", r.PostForm.Get("refresh_token"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "fresh-token",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	var saved *OAuthToken
	c := testClioClient(t, api,
		OAuthToken{AccessToken: "stale-token", RefreshToken: "refresh-1"},
		func(tok OAuthToken) error {
			saved = &tok
			return nil
		})
	c.TokenURL = tokenServer.URL

	matters, err := c.FetchMatters()
	if err != nil {
		t.Fatalf("FetchMatters should recover from 401: %v", err)
	}
	if len(matters) != 1 {
		t.Fatalf("Expected 1 matter after refresh, got %d", len(matters))
	}
	if saved == nil {
		t.Fatal("Refreshed token was never saved")
	}
	if saved.AccessToken != "fresh-token" || saved.RefreshToken != "refresh-2" {
		t.Errorf("Wrong saved token: %+v", saved)
	}
}

func TestClioRefreshOnKnownExpiry(t *testing.T) {
	api := clioFixtureServer(t, "fresh-token")
	defer api.Close()

	refreshCalls := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "fresh-token",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	past := time.Now().Add(-time.Hour)
	c := testClioClient(t, api,
		OAuthToken{AccessToken: "stale-token", RefreshToken: "refresh-1", ExpiresAt: &past},
		nil)
	c.TokenURL = tokenServer.URL

	if _, err := c.FetchMatters(); err != nil {
		t.Fatalf("FetchMatters failed: %v", err)
	}
	if refreshCalls != 1 {
		t.Errorf("Expected exactly one pre-emptive refresh, got %d", refreshCalls)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	_, err := refreshToken(http.DefaultClient, "http://unused", "id", "secret", OAuthToken{AccessToken: "x"})
	if err == nil {
		t.Fatal("Expected error when no refresh token is available")
	}
}

func TestTokenExpired(t *testing.T) {
	if (OAuthToken{AccessToken: "x"}).expired() {
		t.Error("Token without expiry must not count as expired")
	}
	past := time.Now().Add(-time.Minute)
	if !(OAuthToken{AccessToken: "x", ExpiresAt: &past}).expired() {
		t.Error("Past expiry must count as expired")
	}
	future := time.Now().Add(time.Hour)
	if (OAuthToken{AccessToken: "x", ExpiresAt: &future}).expired() {
		t.Error("Future expiry must not count as expired")
	}
}
