package history_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"lookout/features/history"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) List(ctx context.Context, limit int) ([]history.Record, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.Record), args.Error(1)
}

func TestHandler_List(t *testing.T) {
	t.Run("Default Limit", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything, 20).Return([]history.Record{
			{ID: "row-1", QueryID: "q1", Query: "rust ownership"},
		}, nil)

		h := history.NewHandler(repo)
		req := httptest.NewRequest("GET", "/searches", nil)
		w := httptest.NewRecorder()
		h.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []history.Record `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "q1", resp.Data[0].QueryID)
	})

	t.Run("Explicit Limit", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything, 5).Return([]history.Record{}, nil)

		h := history.NewHandler(repo)
		req := httptest.NewRequest("GET", "/searches?limit=5", nil)
		w := httptest.NewRecorder()
		h.List(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("Invalid Limit Rejected", func(t *testing.T) {
		repo := new(MockRepo)
		h := history.NewHandler(repo)
		req := httptest.NewRequest("GET", "/searches?limit=banana", nil)
		w := httptest.NewRecorder()
		h.List(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		repo.AssertNotCalled(t, "List")
	})

	t.Run("Nil Records Encoded As Empty Array", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything, 20).Return([]history.Record(nil), nil)

		h := history.NewHandler(repo)
		req := httptest.NewRequest("GET", "/searches", nil)
		w := httptest.NewRecorder()
		h.List(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("Repo Failure", func(t *testing.T) {
		repo := new(MockRepo)
		repo.On("List", mock.Anything, 20).Return(nil, assert.AnError)

		h := history.NewHandler(repo)
		req := httptest.NewRequest("GET", "/searches", nil)
		w := httptest.NewRecorder()
		h.List(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
