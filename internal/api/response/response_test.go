package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, map[string]string{"kind": "point"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"kind":"point"}}`, rec.Body.String())
}

func TestAcceptedStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Accepted(rec, map[string]string{"status": "pending"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "SCAN_NOT_FOUND", "No scan with that id", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SCAN_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "No scan with that id", resp.Error.Message)
}

func TestCollectionMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	Collection(rec, []int{1, 2, 3}, NewPaginationMeta(1, 20, 3))

	var resp struct {
		Data []int          `json:"data"`
		Meta PaginationMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 3)
	assert.Equal(t, 3, resp.Meta.Total)
	assert.False(t, resp.Meta.HasNext)
}

func TestPaginationHasNext(t *testing.T) {
	tests := []struct {
		page, limit, total int
		want               bool
	}{
		{1, 20, 0, false},
		{1, 20, 20, false},
		{1, 20, 21, true},
		{2, 20, 41, true},
		{3, 20, 41, false},
	}
	for _, tt := range tests {
		got := NewPaginationMeta(tt.page, tt.limit, tt.total).HasNext
		assert.Equal(t, tt.want, got, "page=%d limit=%d total=%d", tt.page, tt.limit, tt.total)
	}
}
