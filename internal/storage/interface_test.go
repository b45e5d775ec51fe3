package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/retry"
)

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]interface{}
		want    Where
	}{
		{
			name:    "empty filters",
			filters: map[string]interface{}{},
			want:    nil,
		},
		{
			name:    "single constraint",
			filters: map[string]interface{}{"type": "case"},
			want:    Where{"type": "case"},
		},
		{
			name:    "sentinel dropped",
			filters: map[string]interface{}{"type": "string", "category": "형사"},
			want:    Where{"category": "형사"},
		},
		{
			name:    "empty string dropped",
			filters: map[string]interface{}{"type": "", "category": "형사"},
			want:    Where{"category": "형사"},
		},
		{
			name:    "all sentinels yields nil",
			filters: map[string]interface{}{"type": "string", "category": "string"},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildWhere(tt.filters))
		})
	}
}

func TestBuildWhereConjunction(t *testing.T) {
	where := BuildWhere(map[string]interface{}{
		"type":        "case",
		"case_number": "2005고합694",
	})
	require.NotNil(t, where)

	and, ok := where["$and"]
	require.True(t, ok, "two constraints must use $and form")
	conditions, ok := and.([]Where)
	require.True(t, ok)
	assert.Len(t, conditions, 2)

	flat := where.Conditions()
	assert.Equal(t, "case", flat["type"])
	assert.Equal(t, "2005고합694", flat["case_number"])
}

func TestWhereConditionsSingle(t *testing.T) {
	where := Where{"category": "형사"}
	assert.Equal(t, map[string]interface{}{"category": "형사"}, where.Conditions())

	var none Where
	assert.Nil(t, none.Conditions())
}

func TestRetryableStoreRetriesTransientFailures(t *testing.T) {
	mockStore := new(MockVectorStore)
	mockStore.On("Count", mock.Anything).Return(int64(0), errors.New("connection refused")).Once()
	mockStore.On("Count", mock.Anything).Return(int64(42), nil).Once()

	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	store := NewRetryableVectorStore(mockStore, cfg)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	mockStore.AssertExpectations(t)
}

func TestRetryableStoreFailsFastOnPermanent(t *testing.T) {
	mockStore := new(MockVectorStore)
	mockStore.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, retry.Permanent(errors.New("bad request"))).Once()

	cfg := retry.DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	store := NewRetryableVectorStore(mockStore, cfg)

	_, err := store.Search(context.Background(), []float64{0.1}, 5, nil)
	require.Error(t, err)
	mockStore.AssertNumberOfCalls(t, "Search", 1)
}
