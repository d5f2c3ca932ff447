package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextstop.transit.org/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newLimited(t *testing.T, ratePerInterval int, interval time.Duration, exempt ...string) http.Handler {
	t.Helper()
	rl := NewRateLimitMiddleware(ratePerInterval, interval, exempt)
	t.Cleanup(rl.Stop)
	return rl.Handler(okHandler())
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestRateLimitMiddleware_BlocksRequestsOverLimit(t *testing.T) {
	limited := newLimited(t, 3, time.Second)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(limited, "/test?key=test-api-key").Code, "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(limited, "/test?key=test-api-key").Code)
}

func TestRateLimitMiddleware_PerAPIKeyLimiting(t *testing.T) {
	limited := newLimited(t, 2, time.Second)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(limited, "/test?key=api-key-1").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(limited, "/test?key=api-key-1").Code)
	assert.Equal(t, http.StatusOK, get(limited, "/test?key=api-key-2").Code, "keys have separate budgets")
}

func TestRateLimitMiddleware_ExemptKeys(t *testing.T) {
	limited := newLimited(t, 1, time.Second, "kiosk")

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, get(limited, "/test?key=kiosk").Code, "request %d", i+1)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	limited := newLimited(t, 0, time.Second)

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, get(limited, "/test?key=any").Code)
	}
}

func TestRateLimitMiddleware_HandlesNoAPIKey(t *testing.T) {
	limited := newLimited(t, 1, time.Second)

	assert.Equal(t, http.StatusOK, get(limited, "/test").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(limited, "/test").Code, "keyless callers share one budget")
}

func TestRateLimitMiddleware_RefillsOverTime(t *testing.T) {
	limited := newLimited(t, 1, 100*time.Millisecond)

	assert.Equal(t, http.StatusOK, get(limited, "/test?key=test-key").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(limited, "/test?key=test-key").Code)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(limited, "/test?key=test-key").Code)
}

func TestRateLimitMiddleware_ConcurrentRequests(t *testing.T) {
	limited := newLimited(t, 5, time.Second)

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			results[index] = get(limited, "/test?key=concurrent-test").Code
		}(i)
	}
	wg.Wait()

	successCount, rateLimitedCount := 0, 0
	for _, code := range results {
		switch code {
		case http.StatusOK:
			successCount++
		case http.StatusTooManyRequests:
			rateLimitedCount++
		}
	}
	assert.Equal(t, 5, successCount)
	assert.Equal(t, 5, rateLimitedCount)
}

func TestRateLimitMiddleware_RateLimitedResponseFormat(t *testing.T) {
	limited := newLimited(t, 1, time.Second)
	get(limited, "/test?key=test-key")

	w := get(limited, "/test?key=test-key")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body models.ResponseModel
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusTooManyRequests, body.Code)
	assert.Contains(t, body.Text, "Rate limit exceeded")
}

func TestRateLimitMiddleware_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimitMiddleware(1, time.Second, nil)
	rl.Stop()
	rl.Stop()
}

func TestRateLimitIntegration(t *testing.T) {
	cfg := testAppConfig()
	cfg.RateLimit = 2
	api := createTestApiWithConfig(t, cfg)

	for i := 0; i < 2; i++ {
		resp, _ := serveApiAndRetrieveEndpoint(t, api, "/api/where/current-time.json?key=TEST")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, model := serveApiAndRetrieveEndpoint(t, api, "/api/where/current-time.json?key=TEST")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, model.Code)
}
