package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpupo63/portfolio-site-backend/errs"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithLogger(zerolog.Nop()), WithHTTPClient(srv.Client())}, opts...)
	return New(srv.URL+"/", "anon-key", opts...), srv
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Email: "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestSignInPersistsToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, exp)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing apikey header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "admin@example.com" || body["password"] != "pw" {
			t.Errorf("unexpected body %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user":          map[string]any{"id": "user-1", "email": "admin@example.com"},
		})
	})

	resp, err := client.SignIn(context.Background(), "admin@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if resp.User == nil || resp.User.ID != "user-1" {
		t.Errorf("unexpected user %+v", resp.User)
	}

	tok := client.Token()
	if tok == nil || tok.AccessToken != access || tok.RefreshToken != "refresh-1" {
		t.Fatalf("token not persisted: %+v", tok)
	}
	if !tok.Expiry.Equal(exp) {
		t.Errorf("expiry should come from the exp claim: got %v want %v", tok.Expiry, exp)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	store := NewMemoryTokenStore()
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
	}, WithTokenStore(store))

	_, err := client.SignIn(context.Background(), "admin@example.com", "wrong")
	if !errs.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if err.Error() != "Invalid login credentials" {
		t.Errorf("expected server message, got %q", err.Error())
	}
	if tok, _ := store.Load(); tok != nil {
		t.Errorf("no token should be persisted, got %+v", tok)
	}
}

func TestSignInFallbackMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `not json`)
	})

	_, err := client.SignIn(context.Background(), "a@b.co", "pw")
	if err == nil || err.Error() != "Login failed" {
		t.Fatalf("expected fallback message, got %v", err)
	}
}

func TestGetSessionWithoutTokenMakesNoRequest(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	user, err := client.GetSession(context.Background())
	if err != nil || user != nil {
		t.Fatalf("expected no session, got %+v %v", user, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no network call")
	}
}

func TestGetSessionRejectedSignsOut(t *testing.T) {
	store := NewMemoryTokenStore()
	_ = store.Save(&oauth2.Token{AccessToken: "stale"})

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer stale" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusUnauthorized)
	}, WithTokenStore(store))

	user, err := client.GetSession(context.Background())
	if err != nil || user != nil {
		t.Fatalf("expected no session, got %+v %v", user, err)
	}
	if tok, _ := store.Load(); tok != nil {
		t.Errorf("token should be cleared after rejection")
	}
	if client.Token() != nil {
		t.Errorf("in-memory token should be cleared")
	}
}

func TestGetSessionValid(t *testing.T) {
	store := NewMemoryTokenStore()
	_ = store.Save(&oauth2.Token{AccessToken: "good"})

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"user-1","email":"admin@example.com"}`)
	}, WithTokenStore(store))

	user, err := client.GetSession(context.Background())
	if err != nil || user == nil || user.Email != "admin@example.com" {
		t.Fatalf("unexpected session %+v %v", user, err)
	}
}

func TestSelectBuildsQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		want := "select=*&id=eq.a%20b%26c&type=eq.Doc&order=display_order.asc&limit=5"
		if r.URL.Path != "/rest/v1/projects" || r.URL.RawQuery != want {
			t.Errorf("unexpected url %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Errorf("reads should use the anon key, got %q", r.Header.Get("Authorization"))
		}
		_, _ = io.WriteString(w, `[{"id":"x"},{"id":"y"}]`)
	})

	var rows []map[string]any
	err := client.Select(context.Background(), "projects", Query{
		Eq:    Match{"type": "Doc", "id": "a b&c"},
		Order: "display_order.asc",
		Limit: 5,
	}, &rows)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestSelectErrorCarriesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"relation \"nope\" does not exist"}`)
	})

	var rows []map[string]any
	err := client.Select(context.Background(), "nope", Query{}, &rows)
	if !errs.IsQueryError(err) {
		t.Fatalf("expected query error, got %v", err)
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected server message, got %q", err.Error())
	}
}

func TestSelectSingleEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `[]`)
	})

	var row map[string]any
	found, err := client.SelectSingle(context.Background(), "site_settings", Query{}, &row)
	if err != nil || found {
		t.Fatalf("expected not found without error, got %v %v", found, err)
	}
}

func TestWritesUseContextToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Errorf("expected context token, got %q", r.Header.Get("Authorization"))
		}
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Prefer") != "return=representation" {
				t.Errorf("missing Prefer header")
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `[{"id":"new","created_at":"2024-01-01T00:00:00Z"}]`)
		case http.MethodPatch:
			if r.URL.RawQuery != "id=eq.new" {
				t.Errorf("unexpected filter %q", r.URL.RawQuery)
			}
			_, _ = io.WriteString(w, `[]`)
		case http.MethodDelete:
			if r.URL.RawQuery != "id=eq.new" {
				t.Errorf("unexpected filter %q", r.URL.RawQuery)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := WithAccessToken(context.Background(), "user-token")

	var inserted []map[string]any
	if err := client.Insert(ctx, "projects", map[string]any{"id": "new"}, &inserted); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(inserted) != 1 || inserted[0]["created_at"] == nil {
		t.Errorf("expected server representation, got %v", inserted)
	}

	if err := client.Update(ctx, "projects", map[string]any{"title": "T"}, Match{"id": "new"}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	ok, err := client.Delete(ctx, "projects", Match{"id": "new"})
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

func TestWriteErrorsAreTyped(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()

	if err := client.Insert(ctx, "projects", map[string]any{}, nil); !errs.IsInsertError(err) || err.Error() != "Failed to insert data" {
		t.Errorf("insert: %v", err)
	}
	if err := client.Update(ctx, "projects", map[string]any{}, Match{"id": 1}, nil); !errs.IsUpdateError(err) {
		t.Errorf("update: %v", err)
	}
	if _, err := client.Delete(ctx, "projects", Match{"id": 1}); !errs.IsDeleteError(err) {
		t.Errorf("delete: %v", err)
	}
	if _, err := client.Delete(ctx, "projects", nil); !errs.IsValidation(err) {
		t.Errorf("unfiltered delete should be refused, got %v", err)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(url, "anon-key", WithLogger(zerolog.Nop()))
	var rows []map[string]any
	err := client.Select(context.Background(), "projects", Query{}, &rows)
	if !errs.IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestUploadFile(t *testing.T) {
	payload := strings.Repeat("v", 4096)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/videos/hero-video-1.mp4" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-upsert") != "true" {
			t.Errorf("missing x-upsert header")
		}
		if r.Header.Get("Content-Type") != "video/mp4" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		b, _ := io.ReadAll(r.Body)
		if len(b) != len(payload) {
			t.Errorf("short body %d", len(b))
		}
		_, _ = io.WriteString(w, `{"Key":"videos/hero-video-1.mp4"}`)
	})
	client.tokens.Save(&oauth2.Token{AccessToken: "session"})

	var last int64
	res, err := client.UploadFile(context.Background(), "videos", "hero-video-1.mp4", strings.NewReader(payload), UploadOptions{
		Upsert:        true,
		ContentType:   "video/mp4",
		ContentLength: int64(len(payload)),
		OnProgress:    func(sent, total int64) { last = sent },
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Key != "videos/hero-video-1.mp4" {
		t.Errorf("unexpected key %q", res.Key)
	}
	if last != int64(len(payload)) {
		t.Errorf("progress should reach %d, got %d", len(payload), last)
	}
	if FormatProgress(last, int64(len(payload))) != "100%" {
		t.Errorf("unexpected progress text")
	}
}

func TestUploadFileError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Payload too large"}`)
	})

	_, err := client.UploadFile(context.Background(), "videos", "a.mp4", strings.NewReader("x"), UploadOptions{})
	if !errs.IsUploadError(err) || err.Error() != "Payload too large" {
		t.Fatalf("expected upload error with server message, got %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	client := New("https://proj.supabase.co/", "anon", WithLogger(zerolog.Nop()))
	got := client.PublicURL("videos", "hero video.mp4")
	want := "https://proj.supabase.co/storage/v1/object/public/videos/hero%20video.mp4"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileTokenStore(path)

	tok, err := store.Load()
	if err != nil || tok != nil {
		t.Fatalf("empty store: %v %v", tok, err)
	}

	if err := store.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	tok, err = store.Load()
	if err != nil || tok == nil || tok.RefreshToken != "r" {
		t.Fatalf("load: %+v %v", tok, err)
	}

	// A new client picks the stored session up.
	client := New("https://proj.supabase.co", "anon", WithTokenStore(store), WithLogger(zerolog.Nop()))
	if client.Token() == nil || client.Token().AccessToken != "a" {
		t.Errorf("client should load the persisted token")
	}

	client.SignOut()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("sign out should remove the token file")
	}
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	claims, err := ParseClaims(signedToken(t, exp))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "admin@example.com" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if !claims.Expired(time.Now()) {
		t.Errorf("token should be expired")
	}

	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Errorf("expected error for garbage token")
	}
}

func TestRefreshSessionWithoutToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	if _, err := client.RefreshSession(context.Background()); !errs.IsAuthenticationError(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestUploadFileUnreadableResponse(t *testing.T) {
	var logs bytes.Buffer
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>ok</html>`)
	}, WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))

	res, err := client.UploadFile(context.Background(), "videos", "clip.mp4", strings.NewReader("v"), UploadOptions{})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Key != "videos/clip.mp4" {
		t.Errorf("key = %q", res.Key)
	}
	if !strings.Contains(logs.String(), "Unreadable upload response") {
		t.Errorf("decode failure not logged: %s", logs.String())
	}
}

func TestSessionsSignInLeavesClientSignedOut(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	tokenFile := filepath.Join(t.TempDir(), "session.json")

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}, WithTokenStore(NewFileTokenStore(tokenFile)))

	resp, err := NewSessions(client).SignIn(context.Background(), "admin@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if resp.AccessToken != access {
		t.Errorf("access token = %q", resp.AccessToken)
	}
	if tok := client.Token(); tok != nil {
		t.Errorf("client picked up the session: %+v", tok)
	}
	if _, err := os.Stat(tokenFile); !os.IsNotExist(err) {
		t.Errorf("token file written: %v", err)
	}
}
