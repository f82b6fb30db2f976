package vertex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

func testPollPolicy(maxAttempts int) PollPolicy {
	return PollPolicy{
		Interval:    time.Millisecond,
		MaxAttempts: maxAttempts,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func newTestClient(t *testing.T, maxAttempts int, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("proj", "global", "default_catalog", "0",
		StaticTokenSource("test-token"), testPollPolicy(maxAttempts), logger.New("error"))
	c.BaseURL = srv.URL
	return c
}

func sampleItems() []*Product {
	return []*Product{
		{ID: "prod-1", Title: "Blue Shirt", Availability: AvailabilityInStock},
		{ID: "prod-2", Title: "Red Shirt", Availability: AvailabilityOutOfStock},
	}
}

func TestImportBatchPollsToCompletion(t *testing.T) {
	polls := 0
	c := newTestClient(t, 5, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		if r.Method == "POST" && strings.HasSuffix(r.URL.Path, "products:import") {
			assert.Contains(t, r.URL.Path, "projects/proj/locations/global/catalogs/default_catalog/branches/0")
			fmt.Fprint(w, `{"name": "projects/proj/operations/op-1", "done": false}`)
			return
		}

		polls++
		if polls < 3 {
			fmt.Fprint(w, `{"name": "projects/proj/operations/op-1", "done": false}`)
			return
		}
		fmt.Fprint(w, `{
			"name": "projects/proj/operations/op-1",
			"done": true,
			"metadata": {"successCount": "2", "failureCount": "0"}
		}`)
	})

	result, err := c.ImportBatch(context.Background(), sampleItems())

	require.NoError(t, err)
	assert.Equal(t, "projects/proj/operations/op-1", result.OperationName)
	assert.Equal(t, int64(2), result.SuccessCount)
	assert.Equal(t, 3, polls)
}

func TestImportBatchTimesOut(t *testing.T) {
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name": "projects/proj/operations/op-2", "done": false}`)
	})

	result, err := c.ImportBatch(context.Background(), sampleItems())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrOperationTimeout)
}

func TestImportBatchReportsPartialFailure(t *testing.T) {
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			fmt.Fprint(w, `{"name": "projects/proj/operations/op-3", "done": false}`)
			return
		}
		fmt.Fprint(w, `{
			"name": "projects/proj/operations/op-3",
			"done": true,
			"metadata": {"successCount": "1", "failureCount": "1"},
			"response": {"errorSamples": [{"code": 3, "message": "invalid item: missing title"}]}
		}`)
	})

	result, err := c.ImportBatch(context.Background(), sampleItems())

	assert.Nil(t, result)
	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, int64(1), importErr.FailureCount)
	require.Len(t, importErr.Samples, 1)
	assert.Contains(t, importErr.Samples[0], "missing title")
}

func TestImportBatchReportsOperationError(t *testing.T) {
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			fmt.Fprint(w, `{"name": "projects/proj/operations/op-4", "done": false}`)
			return
		}
		fmt.Fprint(w, `{
			"name": "projects/proj/operations/op-4",
			"done": true,
			"error": {"code": 7, "message": "permission denied on branch"}
		}`)
	})

	_, err := c.ImportBatch(context.Background(), sampleItems())

	var importErr *ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Contains(t, importErr.Samples[0], "permission denied")
}

func TestImportBatchImmediateCompletion(t *testing.T) {
	// The first poll happens without any sleep.
	c := newTestClient(t, 1, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			fmt.Fprint(w, `{"name": "projects/proj/operations/op-5", "done": false}`)
			return
		}
		fmt.Fprint(w, `{
			"name": "projects/proj/operations/op-5",
			"done": true,
			"metadata": {"successCount": "2", "failureCount": "0"}
		}`)
	})

	result, err := c.ImportBatch(context.Background(), sampleItems())

	require.NoError(t, err)
	assert.Equal(t, int64(2), result.SuccessCount)
}

func TestImportRejectedRequest(t *testing.T) {
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid argument"}}`, http.StatusBadRequest)
	})

	_, err := c.Import(context.Background(), sampleItems()[0])

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		fmt.Fprint(w, `{}`)
	})

	err := c.Delete(context.Background(), "prod-1")

	require.NoError(t, err)
	assert.Equal(t, "DELETE", gotMethod)
	assert.Contains(t, gotPath, "branches/0/products/prod-1")
}

func TestDeleteMissingItemSurfacesError(t *testing.T) {
	c := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "product not found"}}`, http.StatusNotFound)
	})

	err := c.Delete(context.Background(), "gone")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStaticTokenSource(t *testing.T) {
	token, err := StaticTokenSource("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
