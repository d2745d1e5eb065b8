package zoltar_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/BrettBoval/zoltpy/pkg/zoltar"
)

const (
	testUser  = "model_owner1"
	testPass  = "s3cret"
	testToken = "tok-abc123"
)

// zoltarServer fakes the remote repository for tests: a token endpoint plus
// per-path JSON handlers with request counting.
type zoltarServer struct {
	srv *httptest.Server
	mux *http.ServeMux

	mu         sync.Mutex
	tokenPosts int
	hits       map[string]int
}

func newZoltarServer() *zoltarServer {
	z := &zoltarServer{mux: http.NewServeMux(), hits: map[string]int{}}
	z.mux.HandleFunc("/api-token-auth/", func(w http.ResponseWriter, r *http.Request) {
		z.mu.Lock()
		z.tokenPosts++
		z.mu.Unlock()
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("username") != testUser || r.PostFormValue("password") != testPass {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": testToken})
	})
	z.srv = httptest.NewServer(z.mux)
	return z
}

func (z *zoltarServer) base() string { return z.srv.URL }

func (z *zoltarServer) close() { z.srv.Close() }

// handle registers an authenticated handler that counts hits by method+path
// and writes the produced value as JSON with the produced status.
func (z *zoltarServer) handle(path string, produce func(r *http.Request) (int, any)) {
	z.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "JWT "+testToken {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}
		z.mu.Lock()
		z.hits[r.Method+" "+path]++
		z.mu.Unlock()

		status, body := produce(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
}

func (z *zoltarServer) count(method, path string) int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.hits[method+" "+path]
}

func (z *zoltarServer) tokenPostCount() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.tokenPosts
}

// connect builds an authenticated Connection against the fake server. A long
// token TTL keeps most tests from re-authenticating on every call.
func (z *zoltarServer) connect(ctx context.Context, opts ...zoltar.Option) (*zoltar.Connection, error) {
	opts = append([]zoltar.Option{zoltar.WithTokenTTL(time.Hour)}, opts...)
	conn := zoltar.New(z.base(), opts...)
	if err := conn.Authenticate(ctx, testUser, testPass); err != nil {
		return nil, err
	}
	return conn, nil
}

// projectDoc builds a project list element with locators rooted at base.
func projectDoc(base string, id int, name string, public bool) map[string]any {
	return map[string]any{
		"id":          id,
		"url":         base + "/api/project/" + strconv.Itoa(id) + "/",
		"name":        name,
		"is_public":   public,
		"description": "d",
	}
}
