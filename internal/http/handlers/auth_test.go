package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smais007/eventora/internal/auth"
	"github.com/smais007/eventora/internal/http/handlers"
	"github.com/smais007/eventora/internal/repo/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		PhotoURL string `json:"photoUrl"`
	} `json:"user"`
}

func newAuthRouter() (*gin.Engine, *memory.UsersRepo, *auth.Manager) {
	users := memory.NewUsersRepo()
	tokens := auth.NewManager("test-secret", 30*24*time.Hour)
	h := handlers.NewAuthHandler(users, users, tokens)

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	return r, users, tokens
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"name":"Ada","email":"ada@example.com","password":"hunter2hunter2","photoUrl":"https://example.com/ada.png"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "invalid_email",
			body:           `{"name":"Ada","email":"not-an-email","password":"hunter2hunter2"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "short_password",
			body:           `{"name":"Ada","email":"ada@example.com","password":"short"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing_name",
			body:           `{"email":"ada@example.com","password":"hunter2hunter2"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r, _, tokens := newAuthRouter()

			w := postJSON(t, r, "/auth/register", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusCreated {
				return
			}

			var resp authResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			if resp.Token == "" {
				t.Fatal("expected a token in the response")
			}

			userID, err := tokens.Verify(resp.Token)
			if err != nil {
				t.Fatalf("issued token does not verify: %v", err)
			}
			if userID != resp.User.ID {
				t.Fatalf("token subject %q != user id %q", userID, resp.User.ID)
			}

			// the hash must never leak, under any field name
			if strings.Contains(strings.ToLower(w.Body.String()), "password") {
				t.Fatalf("response leaks password material: %s", w.Body.String())
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r, users, _ := newAuthRouter()

	w := postJSON(t, r, "/auth/register", `{"name":"Ada","email":"ada@example.com","password":"hunter2hunter2"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register failed: %d %s", w.Code, w.Body.String())
	}

	w = postJSON(t, r, "/auth/register", `{"name":"Imposter","email":"ada@example.com","password":"differentpass1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: got %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "email_taken") {
		t.Fatalf("expected email_taken code, body=%s", w.Body.String())
	}

	// no second record was written
	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("original user vanished: %v", err)
	}
	if u.Name != "Ada" {
		t.Fatalf("original record overwritten: %+v", u)
	}
}

func TestLogin(t *testing.T) {
	r, _, tokens := newAuthRouter()

	w := postJSON(t, r, "/auth/register", `{"name":"Ada","email":"ada@example.com","password":"hunter2hunter2"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"email":"ada@example.com","password":"hunter2hunter2"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "wrong_password",
			body:           `{"email":"ada@example.com","password":"wrongpassword"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "unknown_email",
			body:           `{"email":"nobody@example.com","password":"hunter2hunter2"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "missing_password",
			body:           `{"email":"ada@example.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/auth/login", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp authResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if _, err := tokens.Verify(resp.Token); err != nil {
					t.Fatalf("login token does not verify: %v", err)
				}
			}

			if tt.wantStatusCode == http.StatusUnauthorized {
				// both failure paths must look identical to the client
				if !strings.Contains(w.Body.String(), "invalid_credentials") {
					t.Fatalf("expected invalid_credentials code, body=%s", w.Body.String())
				}
			}
		})
	}
}
