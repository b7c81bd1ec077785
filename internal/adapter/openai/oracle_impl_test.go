package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nextdoor-crawler/internal/adapter/openai"
	"github.com/user/nextdoor-crawler/internal/repository"
)

func TestOracle_Chat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" yes \n"}}]}`))
	}))
	defer srv.Close()

	oracle := openai.NewOracle(srv.URL+"/v1/", "sk-test", "gpt-4")
	answer, err := oracle.Chat(context.Background(), []repository.Message{
		{Role: repository.RoleSystem, Content: "Answer yes or no."},
		{Role: repository.RoleUser, Content: "Anyone know a good lawn service?"},
	})
	require.NoError(t, err)
	assert.Equal(t, " yes \n", answer)

	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Anyone know a good lawn service?", got.Messages[1].Content)
}

func TestOracle_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, true},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, false},
		{"no choices", http.StatusOK, `{"choices":[]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			oracle := openai.NewOracle(srv.URL, "sk-test", "gpt-4")
			_, err := oracle.Chat(context.Background(), []repository.Message{{Role: repository.RoleUser, Content: "hi"}})
			require.Error(t, err)
			assert.Equal(t, tt.rateLimited, errors.Is(err, repository.ErrOracleRateLimited))
		})
	}
}
