package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignIn_StoresReturnedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != signinPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		username, password, ok := r.BasicAuth()
		if !ok || username != "alice" || password != "s3cret" {
			t.Errorf("unexpected credentials %q:%q ok=%v", username, password, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode("token-value")
	}))
	defer server.Close()

	client := New(server.URL, "/mod")
	token, err := client.SignIn(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if token != "token-value" {
		t.Fatalf("expected token-value, got %q", token)
	}
}

func TestSignIn_RejectionSurfacesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"User does not exist or password incorrect"}`))
	}))
	defer server.Close()

	client := New(server.URL, "/mod")
	_, err := client.SignIn(context.Background(), "alice", "wrong")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized kind, got %s", KindOf(err))
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Message != "User does not exist or password incorrect" {
		t.Fatalf("expected upstream message, got %v", err)
	}
}

func TestSignIn_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL, "/mod")
	_, err := client.SignIn(context.Background(), "alice", "s3cret")
	if err == nil {
		t.Fatalf("expected error")
	}
	if KindOf(err) != KindTransport {
		t.Fatalf("expected transport kind, got %s", KindOf(err))
	}
}

func TestSignIn_EmptyTokenIsBadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`""`))
	}))
	defer server.Close()

	client := New(server.URL, "/mod")
	_, err := client.SignIn(context.Background(), "alice", "s3cret")
	if KindOf(err) != KindBadResponse {
		t.Fatalf("expected bad-response kind, got %v", err)
	}
}

func TestQuery_GraphQLErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"field 'nope' not found"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "/mod")
	var out struct{}
	err := client.query(context.Background(), "tok", "query {}", nil, &out)
	if KindOf(err) != KindUpstream {
		t.Fatalf("expected upstream kind, got %v", err)
	}
}

func TestQuery_JWTErrorIsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write([]byte(`{"errors":[{"message":"Could not verify JWT: JWTExpired"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "/mod")
	var out struct{}
	err := client.query(context.Background(), "tok", "query {}", nil, &out)
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized kind, got %v", err)
	}
}

func TestQuery_MalformedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := New(server.URL, "/mod")
	var out struct{}
	err := client.query(context.Background(), "tok", "query {}", nil, &out)
	if KindOf(err) != KindBadResponse {
		t.Fatalf("expected bad-response kind, got %v", err)
	}
}
