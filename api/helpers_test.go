package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/Matcry12/careervr/api"
	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/migrator"
	"github.com/Matcry12/careervr/internal/repository"
	"github.com/Matcry12/careervr/internal/store/local"
)

const testSecret = "testsecret"

func signToken(t *testing.T, secret, username, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  username,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

type testServer struct {
	router *mux.Router
	repos  *repository.Repos
	dir    string
}

func newTestServer(t *testing.T, in gate.Inputs) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = testSecret

	dir := t.TempDir() + "/data"
	backend := local.New(dir, nil)
	g := gate.New(in)
	repos := repository.New(backend, g, nil)
	r := api.SetupRoutes(cfg, "test", "now", api.Deps{
		Backend:  backend,
		Gate:     g,
		Repos:    repos,
		Migrator: migrator.New(backend, g, nil),
	})
	return &testServer{router: r, repos: repos, dir: dir}
}

// do sends body as JSON. token may be empty for a guest request.
func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	res := w.Result()
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	return res.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", string(data), err)
	}
	return v
}
