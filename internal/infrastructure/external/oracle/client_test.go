package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/retry"
)

func testConfig(baseURL string) ClientConfig {
	config := DefaultClientConfig(baseURL)
	config.Timeout = 2 * time.Second
	config.RetryConfig = retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return config
}

func TestClient_Evaluate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/evaluations", r.URL.Path)

		err := r.ParseMultipartForm(16 << 20)
		require.NoError(t, err)
		assert.Equal(t, "2:255", r.FormValue("content_ref"))
		assert.Equal(t, "95", r.FormValue("duration_seconds"))

		_, _, err = r.FormFile("audio")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"overall_score": 87,
				"skill_scores": {"madd": 90, "ghunna": 82},
				"feedback": "Lengthen the madd in ayah opening.",
				"confidence": 0.93
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	eval, err := client.Evaluate(context.Background(), EvaluationRequest{
		ContentRef:      "2:255",
		DurationSeconds: 95,
		AudioFilename:   "ayat-al-kursi.webm",
		Audio:           []byte("fake audio bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, 87, eval.OverallScore)
	assert.False(t, eval.Degraded)
	assert.Equal(t, 90, eval.SkillScores[progress.SkillMadd])
	assert.Equal(t, 82, eval.SkillScores[progress.SkillGhunna])
	assert.Equal(t, "Lengthen the madd in ayah opening.", eval.Feedback)
}

func TestClient_Evaluate_ServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Evaluate(context.Background(), EvaluationRequest{
		ContentRef: "1:1",
		Audio:      []byte("audio"),
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls, "server errors should be retried")
}

func TestClient_Evaluate_BadRequestNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": "UNSUPPORTED_FORMAT", "message": "audio format not supported"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Evaluate(context.Background(), EvaluationRequest{
		ContentRef: "1:1",
		Audio:      []byte("audio"),
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "client errors must not be retried")
}

func TestClient_EvaluateOrDegrade_FallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	eval := client.EvaluateOrDegrade(context.Background(), EvaluationRequest{
		ContentRef: "1:1",
		Audio:      []byte("audio"),
	})
	require.NotNil(t, eval)

	assert.True(t, eval.Degraded)
	assert.Equal(t, 0, eval.OverallScore)
	assert.Equal(t, DegradedFeedback, eval.Feedback)
	assert.Len(t, eval.SkillScores, len(progress.AllSkills()))
	for skill, score := range eval.SkillScores {
		assert.Equal(t, 0, score, "skill %s", skill)
	}
}

func TestClient_EvaluateOrDegrade_UnusablePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {"overall_score": 140, "skill_scores": {}, "feedback": ""}
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	eval := client.EvaluateOrDegrade(context.Background(), EvaluationRequest{
		ContentRef: "1:1",
		Audio:      []byte("audio"),
	})
	require.NotNil(t, eval)
	assert.True(t, eval.Degraded)
}

func TestMapper_EvaluationFromDTO(t *testing.T) {
	mapper := NewMapper()

	t.Run("valid response", func(t *testing.T) {
		eval, err := mapper.EvaluationFromDTO(&EvaluationResponseDTO{
			OverallScore: 72,
			SkillScores:  map[string]int{"qalqala": 60},
			Feedback:     "Sharpen the qalqala bounce.",
		})
		require.NoError(t, err)
		assert.Equal(t, 72, eval.OverallScore)
		assert.Equal(t, 60, eval.SkillScores[progress.SkillQalqala])
	})

	t.Run("unknown skill rejected", func(t *testing.T) {
		_, err := mapper.EvaluationFromDTO(&EvaluationResponseDTO{
			OverallScore: 50,
			SkillScores:  map[string]int{"vibrato": 50},
		})
		assert.Error(t, err)
	})

	t.Run("skill score out of range rejected", func(t *testing.T) {
		_, err := mapper.EvaluationFromDTO(&EvaluationResponseDTO{
			OverallScore: 50,
			SkillScores:  map[string]int{"madd": -1},
		})
		assert.Error(t, err)
	})

	t.Run("nil dto", func(t *testing.T) {
		_, err := mapper.EvaluationFromDTO(nil)
		assert.ErrorIs(t, err, ErrNilDTO)
	})
}
