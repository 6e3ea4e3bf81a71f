package herelaw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"herelaw/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL}, nil), server
}

func TestClientLoginSuccess(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode failed: %v", err)
		}
		if body["username"] != "june" || body["password"] != "secret" {
			t.Errorf("unexpected credentials: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":    "tok-1",
			"user_id":  "u-1",
			"username": "june",
		})
	}))

	auth, err := client.Login(context.Background(), "june", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if auth.Token != "tok-1" || auth.UserID != "u-1" || auth.Username != "june" {
		t.Fatalf("unexpected auth result: %+v", auth)
	}
}

func TestClientGenerateComplaintCarriesBearerToken(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-9" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if got := r.Header.Get("X-Request-ID"); got == "" {
			t.Errorf("expected request id header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["user_input"] != "my spouse left" {
			t.Errorf("unexpected input: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"complaint":  "COMPLAINT TEXT",
			"session_id": "S1",
		})
	}))
	client.SetToken("tok-9")

	result, err := client.GenerateComplaint(context.Background(), "my spouse left")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Complaint != "COMPLAINT TEXT" || result.SessionID != "S1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClientUnauthorizedBecomesSentinel(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
	}))

	_, err := client.Sessions(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClientErrorBodyMessagePreference(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"generation failed"}`, "generation failed"},
		{"error field", `{"error":"no input"}`, "no input"},
		{"non-json body", `<html>boom</html>`, "request failed with status 500"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tc.body))
			}))

			_, err := client.GenerateComplaint(context.Background(), "x")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Error() != tc.want {
				t.Fatalf("unexpected message: %q", apiErr.Error())
			}
		})
	}
}

func TestClientTranscribeAudioMultipart(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload-audio" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart failed: %v", err)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio field: %v", err)
			http.Error(w, `{"error":"No audio file uploaded"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "art-1.wav" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "dictated text"})
	}))

	text, err := client.TranscribeAudio(context.Background(), domain.AudioArtifact{
		ID:       "art-1",
		MIMEType: "audio/wav",
		Data:     []byte("RIFFdata"),
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != "dictated text" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestClientTranscribeAudioRejectsEmptyArtifact(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{BaseURL: "http://localhost:1"}, nil)
	if _, err := client.TranscribeAudio(context.Background(), domain.AudioArtifact{}); err == nil {
		t.Fatalf("expected empty artifact error")
	}
}

func TestClientRateSessionPayload(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID string `json:"session_id"`
			Rating    int    `json:"rating"`
			Feedback  string `json:"feedback"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.SessionID != "S1" || body.Rating != 4 || body.Feedback != "helpful" {
			t.Errorf("unexpected payload: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"rating": 4})
	}))

	if err := client.RateSession(context.Background(), "S1", 4, "helpful"); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
}

func TestClientSessionRequiresID(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{BaseURL: "http://localhost:1"}, nil)
	if _, err := client.Session(context.Background(), "  "); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestClientSessionsDecodesRecords(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"session_id":"S1","consultation_text":"t","complaint":"c","rating":5}]`))
	}))

	records, err := client.Sessions(context.Background())
	if err != nil {
		t.Fatalf("sessions failed: %v", err)
	}
	if len(records) != 1 || records[0].SessionID != "S1" || records[0].Rating != 5 {
		t.Fatalf("unexpected records: %+v", records)
	}
}
