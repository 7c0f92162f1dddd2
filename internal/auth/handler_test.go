package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/imbhaskarn/devboss-blog/internal/auth"
	"github.com/imbhaskarn/devboss-blog/internal/mail"
	"github.com/imbhaskarn/devboss-blog/internal/token"
	_ "github.com/imbhaskarn/devboss-blog/testing"
)

func newAuthServer(t *testing.T) (*httptest.Server, *testEnv) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	renderer, err := mail.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	repo := newStubRepo()
	queue := &captureQueue{}
	tokens := token.NewManager("test-secret", "devboss")
	service := auth.NewService(repo, tokens, token.NewStore(client, time.Hour), renderer, queue, nil, auth.Config{
		APIURL:           "http://localhost:8080",
		RefreshTokenTTL:  7 * 24 * time.Hour,
		SignupAccessTTL:  60 * time.Second,
		SigninAccessTTL:  24 * time.Hour,
		RefreshAccessTTL: 15 * time.Minute,
	})
	handler := auth.NewHandler(nil, service)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", handler.MountRoutes)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server, &testEnv{service: service, repo: repo, queue: queue, tokens: tokens, redis: mr}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return payload
}

func TestSignupSigninScenario(t *testing.T) {
	server, _ := newAuthServer(t)
	base := server.URL + "/api/v1/auth"

	// signup("alice","alice@x.com","pw1") -> 201
	res := postJSON(t, base+"/signup", `{"username":"alice","email":"alice@x.com","password":"pw1"}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	body := decodeBody(t, res)
	data := body["data"].(map[string]any)
	if data["accessToken"] == "" || data["refreshToken"] == "" {
		t.Fatalf("expected token pair in signup response")
	}
	user := data["user"].(map[string]any)
	if user["isVerified"] != false {
		t.Fatalf("expected fresh account to be unverified")
	}

	// signup("bob","alice@x.com","pw2") -> 409 "Email is already registered."
	res = postJSON(t, base+"/signup", `{"username":"bob","email":"alice@x.com","password":"pw2"}`)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.StatusCode)
	}
	if detail := decodeBody(t, res)["detail"]; detail != "Email is already registered." {
		t.Fatalf("unexpected conflict detail: %v", detail)
	}

	// signin("alice@x.com","pw1") -> 200 with tokens
	res = postJSON(t, base+"/signin", `{"email":"alice@x.com","password":"pw1"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	data = decodeBody(t, res)["data"].(map[string]any)
	if data["accessToken"] == "" || data["refreshToken"] == "" {
		t.Fatalf("expected token pair in signin response")
	}

	// signin("alice@x.com","wrong") -> 401 "Invalid credentials."
	res = postJSON(t, base+"/signin", `{"email":"alice@x.com","password":"wrong"}`)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if detail := decodeBody(t, res)["detail"]; detail != "Invalid credentials." {
		t.Fatalf("unexpected unauthorized detail: %v", detail)
	}
}

func TestSignupDuplicateUsernameConflict(t *testing.T) {
	server, _ := newAuthServer(t)
	base := server.URL + "/api/v1/auth"

	res := postJSON(t, base+"/signup", `{"username":"alice","email":"alice@x.com","password":"pw1"}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	res.Body.Close()

	res = postJSON(t, base+"/signup", `{"username":"alice","email":"other@x.com","password":"pw2"}`)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.StatusCode)
	}
	if detail := decodeBody(t, res)["detail"]; detail != "Username is already in use." {
		t.Fatalf("unexpected conflict detail: %v", detail)
	}
}

func TestSigninUnknownIdentifierSameMessage(t *testing.T) {
	server, _ := newAuthServer(t)
	base := server.URL + "/api/v1/auth"

	res := postJSON(t, base+"/signin", `{"email":"ghost@x.com","password":"pw"}`)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	if detail := decodeBody(t, res)["detail"]; detail != "Invalid credentials." {
		t.Fatalf("unknown identifier must produce the generic message, got %v", detail)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	server, env := newAuthServer(t)
	base := server.URL + "/api/v1/auth"

	res := postJSON(t, base+"/signup", `{"username":"alice","email":"alice@x.com","password":"pw1"}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	res.Body.Close()

	cached, err := env.redis.Get("verify:alice@x.com")
	if err != nil {
		t.Fatalf("cached verification token: %v", err)
	}

	// Mismatched token -> 401, flag untouched.
	res, err = http.Get(base + "/verify-email?token=bogus&email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for mismatch, got %d", res.StatusCode)
	}
	res.Body.Close()
	if env.repo.users["alice@x.com"].IsVerified {
		t.Fatalf("mismatched token must not verify the account")
	}

	// Exact token -> 200 and isVerified true.
	res, err = http.Get(base + "/verify-email?token=" + cached + "&email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	data := decodeBody(t, res)["data"].(map[string]any)
	user := data["user"].(map[string]any)
	if user["isVerified"] != true {
		t.Fatalf("expected verified user in response")
	}

	// Missing parameters -> 400.
	res, err = http.Get(base + "/verify-email?email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing token, got %d", res.StatusCode)
	}
	res.Body.Close()
}

func TestRefreshTokenEndpoint(t *testing.T) {
	server, env := newAuthServer(t)
	base := server.URL + "/api/v1/auth"

	res := postJSON(t, base+"/signup", `{"username":"alice","email":"alice@x.com","password":"pw1"}`)
	body := decodeBody(t, res)
	refreshToken := body["data"].(map[string]any)["refreshToken"].(string)

	// Missing token -> 403.
	res = postJSON(t, base+"/refresh-token", `{}`)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for missing token, got %d", res.StatusCode)
	}
	if detail := decodeBody(t, res)["detail"]; detail != "Access denied, token missing!" {
		t.Fatalf("unexpected detail: %v", detail)
	}

	// Garbage token -> 403.
	res = postJSON(t, base+"/refresh-token", `{"refreshToken":"garbage"}`)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for invalid token, got %d", res.StatusCode)
	}
	res.Body.Close()

	// Valid token -> 200 with a fresh access token.
	res = postJSON(t, base+"/refresh-token", `{"refreshToken":"`+refreshToken+`"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	accessToken := decodeBody(t, res)["data"].(map[string]any)["accessToken"].(string)
	if _, err := env.tokens.ValidateAccessToken(accessToken); err != nil {
		t.Fatalf("refreshed access token must verify: %v", err)
	}
}

func TestForgotPasswordEndpoints(t *testing.T) {
	server, env := newAuthServer(t)
	base := server.URL + "/api/v1/auth"

	res := postJSON(t, base+"/signup", `{"username":"alice","email":"alice@x.com","password":"pw1"}`)
	res.Body.Close()

	// Request without email -> 400.
	res = postJSON(t, base+"/forgot-password", `{}`)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	res.Body.Close()

	// Registered and unregistered addresses both -> 200.
	res = postJSON(t, base+"/forgot-password", `{"email":"alice@x.com"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	res.Body.Close()
	res = postJSON(t, base+"/forgot-password", `{"email":"ghost@x.com"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for unregistered email, got %d", res.StatusCode)
	}
	res.Body.Close()

	cached, err := env.redis.Get("fp:alice@x.com")
	if err != nil {
		t.Fatalf("cached reset token: %v", err)
	}

	// Confirm with the exact token -> 200 with access token.
	res, err = http.Get(base + "/verify-forgot-password?token=" + cached + "&email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	accessToken := decodeBody(t, res)["data"].(map[string]any)["accessToken"].(string)
	if _, err := env.tokens.ValidateAccessToken(accessToken); err != nil {
		t.Fatalf("reset access token must verify: %v", err)
	}

	// Mismatch -> 401.
	res, err = http.Get(base + "/verify-forgot-password?token=bogus&email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	res.Body.Close()

	// Missing parameters -> 400.
	res, err = http.Get(base + "/verify-forgot-password?email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	res.Body.Close()
}
