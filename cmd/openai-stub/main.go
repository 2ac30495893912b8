// Command openai-stub is a tiny OpenAI-compatible endpoint that returns canned
// Clarity replies, for local runs and end-to-end checks without a real model.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// cannedSummary follows the summary contract, with one alias key ("points")
// and a string confidence so clients exercise their normalizer.
var cannedSummary = map[string]any{
	"tldr":         "A stub model summarized this page without reading it.",
	"points":       []string{"The stub ignores the article", "Every field is present", "Replies are deterministic"},
	"article_type": "Report",
	"tone":         map[string]any{"primary": "Neutral", "confidence_score": "75"},
	"tags":         []string{"Testing", "Stub", "Clarity"},
	"entities": map[string]any{
		"people":    []map[string]string{{"name": "Ada Lovelace", "role_or_context": "placeholder person"}},
		"companies": []map[string]string{{"name": "Example Corp", "industry_or_context": "placeholder company"}},
		"products":  []map[string]string{},
	},
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := envOr("MODEL_ID", "test-model")
	addr := envOr("ADDR", ":8081")
	requiredKey := strings.TrimSpace(os.Getenv("STUB_API_KEY"))
	fence := os.Getenv("STUB_FENCE") == "1"
	failStatus, _ := strconv.Atoi(os.Getenv("STUB_FAIL_STATUS"))

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if requiredKey != "" && r.Header.Get("Authorization") != "Bearer "+requiredKey {
			writeError(w, http.StatusUnauthorized, "Incorrect API key provided")
			return
		}
		if failStatus >= 400 {
			writeError(w, failStatus, "stub configured to fail")
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user := ""
		if n := len(req.Messages); n > 0 {
			user = req.Messages[n-1].Content
		}

		var content string
		if i := strings.LastIndex(user, "User question:"); i >= 0 {
			q := strings.TrimSpace(user[i+len("User question:"):])
			content = "The stub cannot read the article, but you asked: " + q
		} else {
			b, _ := json.Marshal(cannedSummary)
			content = string(b)
			if fence {
				content = "```json\n" + content + "\n```"
			}
		}
		log.Debug().Str("model", req.Model).Int("user_len", len(user)).Msg("stub reply")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "stub-" + strconv.FormatInt(time.Now().UnixNano(), 36),
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		})
	})

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("openai-stub stopped")
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": msg, "type": "invalid_request_error"},
	})
}
