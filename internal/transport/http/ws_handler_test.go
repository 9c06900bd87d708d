package http

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"levelquiz-service/internal/app"
	"levelquiz-service/internal/domain"
	"levelquiz-service/internal/infra/memory"
)

func TestLiveLeaderboardStreamsUpdates(t *testing.T) {
	results := app.NewResultService(nil, memory.NewResultRepository(), nil, nil)
	handler := NewWSHandler(results, nil)

	server := httptest.NewServer(nethttp.HandlerFunc(handler.ServeLive))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var initial outboundMessage
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if initial.Type != "leaderboard" || len(initial.Payload.Entries) != 0 {
		t.Fatalf("unexpected initial message %+v", initial)
	}

	actor := domain.Actor{Kind: domain.ActorLocal, ID: "u1", Name: "Alice"}
	if _, err := results.Record(context.Background(), actor, "Nature", 1, 9); err != nil {
		t.Fatalf("record: %v", err)
	}

	var update outboundMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Payload.Entries) != 1 || update.Payload.Entries[0].Score != 9 {
		t.Fatalf("unexpected update %+v", update.Payload.Entries)
	}
}
