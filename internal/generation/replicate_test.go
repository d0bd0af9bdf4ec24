package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func replicateServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/stability-ai/stable-diffusion-3/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Prefer"); got != "wait" {
			t.Errorf("Prefer header = %q, want wait", got)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestReplicate_SucceededWithOutputArray(t *testing.T) {
	srv := replicateServer(t, http.StatusCreated, map[string]any{
		"status": "succeeded",
		"output": []string{"https://cdn.test/out.png"},
	})
	defer srv.Close()

	gen := NewSDGenerator(ReplicateConfig{BaseURL: srv.URL, APIToken: "tok"})
	res, err := gen.Generate(context.Background(), "a landscape")
	if err != nil {
		t.Fatal(err)
	}
	if res.Rejected || res.URL != "https://cdn.test/out.png" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestReplicate_NSFWFailureIsRejection(t *testing.T) {
	srv := replicateServer(t, http.StatusCreated, map[string]any{
		"status": "failed",
		"error":  "NSFW content detected in output",
	})
	defer srv.Close()

	gen := NewSDGenerator(ReplicateConfig{BaseURL: srv.URL, APIToken: "tok"})
	res, err := gen.Generate(context.Background(), "something blocked")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Rejected {
		t.Fatalf("safety-filter failure not classified as rejection: %+v", res)
	}
}

func TestReplicate_OperationalFailureIsError(t *testing.T) {
	srv := replicateServer(t, http.StatusCreated, map[string]any{
		"status": "failed",
		"error":  "CUDA out of memory",
	})
	defer srv.Close()

	gen := NewSDGenerator(ReplicateConfig{BaseURL: srv.URL, APIToken: "tok"})
	if _, err := gen.Generate(context.Background(), "a landscape"); err == nil {
		t.Fatal("operational failure masked as a non-error")
	}
}

func TestReplicate_HTTPErrorIsError(t *testing.T) {
	srv := replicateServer(t, http.StatusUnauthorized, map[string]any{"detail": "bad token"})
	defer srv.Close()

	gen := NewSDGenerator(ReplicateConfig{BaseURL: srv.URL, APIToken: "bad"})
	if _, err := gen.Generate(context.Background(), "a landscape"); err == nil {
		t.Fatal("HTTP error not surfaced")
	}
}

func TestFirstOutputURL_SingleString(t *testing.T) {
	got, err := firstOutputURL(json.RawMessage(`"https://cdn.test/one.png"`))
	if err != nil || got != "https://cdn.test/one.png" {
		t.Fatalf("got (%q, %v)", got, err)
	}
}
