package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ListPending(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-bot-api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"rows": []map[string]any{
				{
					"id":           "r1",
					"username":     "bob",
					"vales":        100,
					"priceUzs":     15000,
					"packageLabel": "starter",
					"createdAt":    1700000000,
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	rows, err := c.ListPending(context.Background(), "admin")
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}

	if gotPath != "/api/bot/topup/pending" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("x-bot-api-key = %q, want %q", gotKey, "secret")
	}
	if gotBody["actorTelegramUsername"] != "admin" {
		t.Errorf("actorTelegramUsername = %q, want %q", gotBody["actorTelegramUsername"], "admin")
	}

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	want := TopupRequest{
		ID: "r1", Username: "bob", Vales: 100, PriceUZS: 15000,
		PackageLabel: "starter", CreatedAt: 1700000000,
	}
	if rows[0] != want {
		t.Errorf("row = %+v, want %+v", rows[0], want)
	}
}

func TestClient_ListPending_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "message": "forbidden actor"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	_, err := c.ListPending(context.Background(), "admin")
	var berr *Error
	if !errors.As(err, &berr) {
		t.Fatalf("ListPending() error = %v, want *Error", err)
	}
	if berr.Message != "forbidden actor" {
		t.Errorf("message = %q, want server message verbatim", berr.Message)
	}
}

func TestClient_ListPending_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	rows, err := c.ListPending(context.Background(), "admin")
	if err == nil {
		t.Fatal("ListPending() on non-JSON body: error = nil, want error")
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil (never treat transport failure as empty queue)", rows)
	}
}

func TestClient_Resolve(t *testing.T) {
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"request": map[string]any{
				"status":   "approved",
				"username": "bob",
				"vales":    100,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	req, err := c.Resolve(context.Background(), "admin", "r1", ActionApprove, "checked")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if gotBody["requestId"] != "r1" || gotBody["action"] != "approve" {
		t.Errorf("request body = %v", gotBody)
	}
	if req.Status != "approved" || req.Username != "bob" || req.Vales != 100 {
		t.Errorf("resolved = %+v", req)
	}
}

func TestClient_Resolve_InvalidAction(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	for _, action := range []string{"", "delete", "APPROVE", "approve "} {
		if _, err := c.Resolve(context.Background(), "admin", "r1", action, ""); err == nil {
			t.Errorf("Resolve(action=%q) error = nil, want error", action)
		}
	}
	if calls != 0 {
		t.Errorf("server hit %d times, want 0 (invalid action must not reach the network)", calls)
	}
}

func TestClient_Resolve_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "message": "already resolved"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	_, err := c.Resolve(context.Background(), "admin", "r1", ActionReject, "")
	var berr *Error
	if !errors.As(err, &berr) {
		t.Fatalf("Resolve() error = %v, want *Error", err)
	}
	if berr.Error() != "already resolved" {
		t.Errorf("Error() = %q, want %q", berr.Error(), "already resolved")
	}
}

func TestClient_AccountOps(t *testing.T) {
	type call struct {
		path string
		key  string
		body map[string]any
	}
	var last call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = call{path: r.URL.Path}
		if _, ok := r.Header["X-Bot-Api-Key"]; ok {
			last.key = r.Header.Get("x-bot-api-key")
		}
		json.NewDecoder(r.Body).Decode(&last.body)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "message": "done", "username": "bob"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	ctx := context.Background()

	t.Run("link is unauthenticated", func(t *testing.T) {
		res, err := c.LinkAccount(ctx, "bob", "bobby_tg")
		if err != nil {
			t.Fatalf("LinkAccount() error = %v", err)
		}
		if last.path != "/api/profile/link-telegram" {
			t.Errorf("path = %q", last.path)
		}
		if last.key != "" {
			t.Errorf("link call sent api key %q, want none", last.key)
		}
		if !res.OK || res.Username != "bob" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("confirm link code", func(t *testing.T) {
		if _, err := c.ConfirmLinkCode(ctx, "ABCD", "bobby_tg"); err != nil {
			t.Fatalf("ConfirmLinkCode() error = %v", err)
		}
		if last.path != "/api/profile/link-code/confirm" || last.key != "secret" {
			t.Errorf("path = %q, key = %q", last.path, last.key)
		}
		if last.body["code"] != "ABCD" {
			t.Errorf("body = %v", last.body)
		}
	})

	t.Run("reset password", func(t *testing.T) {
		if _, err := c.ResetPassword(ctx, "bobby_tg", "hunter2"); err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}
		if last.path != "/api/profile/reset-self-from-telegram" || last.key != "secret" {
			t.Errorf("path = %q, key = %q", last.path, last.key)
		}
	})

	t.Run("block", func(t *testing.T) {
		if _, err := c.SetBlocked(ctx, "mallory", true, "admin"); err != nil {
			t.Fatalf("SetBlocked() error = %v", err)
		}
		if last.path != "/api/profile/admin/block" {
			t.Errorf("path = %q", last.path)
		}
		if last.body["blocked"] != true || last.body["actorTelegramUsername"] != "admin" {
			t.Errorf("body = %v", last.body)
		}
	})
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "secret")

	if _, err := c.ListPending(context.Background(), "admin"); err == nil {
		t.Error("ListPending() against closed server: error = nil, want error")
	}
}
