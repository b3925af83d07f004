package grading

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/denken-trainer/internal/quiz"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "grader-model" || req.MaxTokens != DefaultMaxTokens {
			t.Errorf("request model=%q max_tokens=%d", req.Model, req.MaxTokens)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "grader-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAICompleterGrades(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "```json\n{\"score\": 90, \"is_correct\": true, \"feedback\": \"十分\"}\n```")
	ev := NewEvaluator(WithCompleter(NewOpenAICompleter("test-key", srv.URL+"/v1/", "grader-model")))
	fb := ev.Evaluate(context.Background(), essay(), "回答")
	if fb.Method != quiz.MethodAI || fb.Score != 90 || !fb.IsCorrect || fb.Feedback != "十分" {
		t.Fatalf("feedback = %+v", fb)
	}
}

func TestOpenAICompleterServerError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "")
	ev := NewEvaluator(WithCompleter(NewOpenAICompleter("test-key", srv.URL+"/v1", "grader-model")))
	fb := ev.Evaluate(context.Background(), essay(), essayAnswer)
	if fb.Method != quiz.MethodHeuristic || !fb.IsCorrect {
		t.Fatalf("fallback = %+v", fb)
	}
}

func TestOpenAICompleterGarbage(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "申し訳ありませんが採点できません。")
	ev := NewEvaluator(WithCompleter(NewOpenAICompleter("test-key", srv.URL+"/v1", "grader-model")))
	fb := ev.Evaluate(context.Background(), essay(), "短い")
	if fb.Method != quiz.MethodHeuristic || fb.Score != 0 {
		t.Fatalf("fallback = %+v", fb)
	}
}
