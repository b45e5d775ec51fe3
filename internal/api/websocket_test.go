package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-rag-service/internal/llm"
)

func TestAskWebSocketRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	f.stubSearch("doc_001_chunk_0")
	f.llmMock.On("GenerateStreamWithSystem", mock.Anything, mock.Anything, mock.Anything).
		Return(llm.ChunkChannel("사기죄는 ", "형법 제347조에 규정됩니다."), nil)

	server := httptest.NewServer(f.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ask/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"query": "사기죄란?"}))

	var chunks []string
	for {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame))
		if chunk, ok := frame["chunk"].(string); ok {
			chunks = append(chunks, chunk)
			continue
		}
		require.Equal(t, true, frame["done"])
		assert.NotEmpty(t, frame["session_id"])
		sources := frame["sources"].([]interface{})
		require.Len(t, sources, 1)
		break
	}
	assert.Equal(t, "사기죄는 형법 제347조에 규정됩니다.", strings.Join(chunks, ""))
}

func TestAskWebSocketEmptyQuery(t *testing.T) {
	f := newFixture(t, nil)

	server := httptest.NewServer(f.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ask/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"query": ""}))

	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	errBody := frame["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}
