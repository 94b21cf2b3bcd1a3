package nlu_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomninja/roomninja/internal/nlu"
)

func TestQueryParsesEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "book the tardis at 3", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("subscription-key"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"query":            "book the tardis at 3",
			"topScoringIntent": map[string]interface{}{"intent": "BookRoom", "score": 0.93},
			"entities": []map[string]interface{}{
				{
					"entity": "3",
					"type":   "builtin.datetimeV2.time",
					"resolution": map[string]interface{}{
						"values": []map[string]string{
							{"type": "time", "value": "03:00:00"},
							{"type": "time", "value": "15:00:00"},
						},
					},
				},
				{
					"entity": "tardis",
					"type":   "Room",
				},
			},
		})
	}))
	defer srv.Close()

	client := nlu.NewClient(srv.URL, "app-1", "test-key")

	result, err := client.Query(context.Background(), "book the tardis at 3")
	require.NoError(t, err)

	assert.Equal(t, "BookRoom", result.Intent)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, nlu.TypeTime, result.Entities[0].Type)
	assert.Equal(t, []string{"03:00:00", "15:00:00"}, result.Entities[0].Values)
	assert.Equal(t, nlu.TypeRoom, result.Entities[1].Type)
	assert.Equal(t, "tardis", result.Entities[1].Text)
}

func TestQueryParsesRanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"query":            "from 2 to 3",
			"topScoringIntent": map[string]interface{}{"intent": "BookRoom"},
			"entities": []map[string]interface{}{
				{
					"entity": "from 2 to 3",
					"type":   "builtin.datetimeV2.timerange",
					"resolution": map[string]interface{}{
						"values": []map[string]string{
							{"start": "14:00:00", "end": "15:00:00"},
						},
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := nlu.NewClient(srv.URL, "app-1", "test-key")

	result, err := client.Query(context.Background(), "from 2 to 3")
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, nlu.TypeTimeRange, result.Entities[0].Type)
	require.Len(t, result.Entities[0].Ranges, 1)
	assert.Equal(t, "14:00:00", result.Entities[0].Ranges[0].Start)
	assert.Equal(t, "15:00:00", result.Entities[0].Ranges[0].End)
}

func TestQueryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := nlu.NewClient(srv.URL, "app-1", "test-key")

	_, err := client.Query(context.Background(), "anything")
	assert.Error(t, err)
}
