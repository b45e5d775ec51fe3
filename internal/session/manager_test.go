package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAddMessageAndHistory(t *testing.T) {
	session := NewSession("test")

	session.AddMessage("user", "사기죄 처벌은?")
	session.AddMessage("assistant", "사기죄는 10년 이하의 징역에 처합니다.")
	session.AddMessage("user", "미수범도 처벌되나요?")
	session.AddMessage("assistant", "네, 미수범도 처벌됩니다.")

	assert.Len(t, session.Messages, 4)
	assert.False(t, session.UpdatedAt.Before(session.CreatedAt))

	// One turn = question + answer
	last := session.History(1)
	require.Len(t, last, 2)
	assert.Equal(t, "미수범도 처벌되나요?", last[0].Content)

	all := session.History(0)
	assert.Len(t, all, 4)
}

func TestSessionContextString(t *testing.T) {
	session := NewSession("test")
	assert.Empty(t, session.ContextString(3))

	session.AddMessage("user", "질문")
	session.AddMessage("assistant", "답변")
	assert.Equal(t, "user: 질문\nassistant: 답변", session.ContextString(3))
}

func TestNewSessionGeneratesID(t *testing.T) {
	session := NewSession("")
	assert.NotEmpty(t, session.SessionID)

	named := NewSession("my-session")
	assert.Equal(t, "my-session", named.SessionID)
}

func TestMemoryStoreGetMissingReturnsNil(t *testing.T) {
	store := NewMemoryStore(10, 30*time.Minute)
	session, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestMemoryStoreExpiredGetDeletes(t *testing.T) {
	store := NewMemoryStore(10, time.Minute)
	session, err := store.Create(context.Background(), "s1")
	require.NoError(t, err)

	session.UpdatedAt = time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, store.Update(context.Background(), session))

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired session reads as missing")
	assert.Equal(t, 0, store.Len(), "expired session removed on read")
}

func TestMemoryStoreEvictsOldestHalf(t *testing.T) {
	store := NewMemoryStore(4, time.Hour)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		session, err := store.Create(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		// Distinct activity times make eviction order deterministic
		session.UpdatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Update(ctx, session))
	}

	_, err := store.Create(ctx, "s4")
	require.NoError(t, err)

	assert.Equal(t, 3, store.Len(), "oldest half evicted before insert")
	oldest, err := store.Get(ctx, "s0")
	require.NoError(t, err)
	assert.Nil(t, oldest)
	newest, err := store.Get(ctx, "s4")
	require.NoError(t, err)
	assert.NotNil(t, newest)
}

func TestManagerGetOrCreate(t *testing.T) {
	manager := NewManagerWithStore(NewMemoryStore(10, time.Hour), 3)
	ctx := context.Background()

	created, err := manager.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, created.SessionID)

	same, err := manager.GetOrCreate(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, same.SessionID)
}

func TestManagerAppendExchangeAndHistoryContext(t *testing.T) {
	manager := NewManagerWithStore(NewMemoryStore(10, time.Hour), 3)
	ctx := context.Background()

	_, err := manager.AppendExchange(ctx, "conv", "사기죄 형량은?", "10년 이하의 징역입니다.")
	require.NoError(t, err)

	history, err := manager.HistoryContext(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, "user: 사기죄 형량은?\nassistant: 10년 이하의 징역입니다.", history)

	empty, err := manager.HistoryContext(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestManagerSerializesConcurrentAppends(t *testing.T) {
	manager := NewManagerWithStore(NewMemoryStore(10, time.Hour), 3)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.AppendExchange(ctx, "conv",
				fmt.Sprintf("question-%d", i), fmt.Sprintf("answer-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	session, err := manager.GetOrCreate(ctx, "conv")
	require.NoError(t, err)
	require.Len(t, session.Messages, writers*2)

	// Each answer must directly follow its question
	for i := 0; i < len(session.Messages); i += 2 {
		q := session.Messages[i]
		a := session.Messages[i+1]
		assert.Equal(t, "user", q.Role)
		assert.Equal(t, "assistant", a.Role)
		assert.Equal(t, q.Content[len("question-"):], a.Content[len("answer-"):])
	}
}

func TestManagerRejectsEmptySessionIDOnAppend(t *testing.T) {
	manager := NewManagerWithStore(NewMemoryStore(10, time.Hour), 3)
	_, err := manager.AppendExchange(context.Background(), "", "q", "a")
	assert.Error(t, err)
}
