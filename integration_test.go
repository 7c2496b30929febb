package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lottery-insight-server/config"
	"lottery-insight-server/storage"
)

const testCatalog = `
games:
  - key: pick5
    name: Pick 5
    region: US
    game_type: national
    rules: {main_count: 5, main_min: 1, main_max: 69, bonus_count: 1, bonus_min: 1, bonus_max: 26}
    draws:
      - {date: "2025-01-01", main: [1, 2, 3, 4, 5], bonus: [1]}
  - key: bingo-night
    name: Bingo Night
    region: AK
    game_type: regional_charitable
    rules: {format: ticket}
`

// setupTestServer wires the full stack over an in-memory store seeded from
// testCatalog and returns the server and the pick5 game id.
func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	catalog, err := storage.ParseCatalog(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	mem := storage.NewMemoryStore()
	if err := catalog.SeedMemory(ctx, mem); err != nil {
		t.Fatal(err)
	}
	g, err := mem.GetGameByKey(ctx, "pick5")
	if err != nil || g == nil {
		t.Fatalf("seeded game missing: %v", err)
	}

	cfg := config.Defaults()
	cfg.Import.AdminKey = "integration"
	a := newApp(cfg, mem, nil)
	go a.hub.Run(ctx)

	server := httptest.NewServer(a.server.Handler())
	t.Cleanup(server.Close)
	return server, g.ID
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m map[string]any
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestImportPushesAnalyticsToSubscribers(t *testing.T) {
	server, gameID := setupTestServer(t)

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("draw_date,main_numbers,bonus_numbers\n2025-01-08,10 20 30 40 50,2\n2025-01-15,11 21 31 41 51,3\n"))
	}))
	defer feed.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.WriteJSON(map[string]string{"type": "subscribe", "game_id": gameID})
	if msg := readMsg(t, conn); msg["type"] != "subscribed" {
		t.Fatalf("expected subscribed, got %v", msg)
	}

	body, _ := json.Marshal(map[string]string{"game_id": gameID, "mode": "csv", "source_url": feed.URL})
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/v1/import", bytes.NewReader(body))
	req.Header.Set("X-Admin-Key", "integration")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var res map[string]any
	json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || res["imported"] != float64(2) {
		t.Fatalf("import failed: %d %v", resp.StatusCode, res)
	}

	msg := readMsg(t, conn)
	if msg["type"] != "analytics_updated" || msg["game_id"] != gameID {
		t.Fatalf("expected analytics_updated, got %v", msg)
	}
	analytics := msg["analytics"].(map[string]any)
	if analytics["window_draws"] != float64(3) {
		t.Errorf("expected 3 draws in window after import, got %v", analytics["window_draws"])
	}
}

func TestGenerateAndAnalyticsOverHTTP(t *testing.T) {
	server, gameID := setupTestServer(t)

	resp, err := http.Get(server.URL + "/v1/analytics?game_id=" + gameID + "&window=20")
	if err != nil {
		t.Fatal(err)
	}
	var analytics map[string]any
	json.NewDecoder(resp.Body).Decode(&analytics)
	resp.Body.Close()
	if analytics["window_draws"] != float64(1) {
		t.Errorf("expected window_draws 1, got %v", analytics["window_draws"])
	}

	body := `{"game_id":"` + gameID + `","n_lines":4,"strategy":"cold","constraints":{"odd_even":"balanced","avoid_runs":true}}`
	resp, err = http.Post(server.URL+"/v1/generate", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Lines []struct {
			Main  []int `json:"main"`
			Bonus []int `json:"bonus"`
			Meta  struct {
				Strategy  string  `json:"strategy"`
				ScoreHint float64 `json:"score_hint"`
			} `json:"meta"`
		} `json:"lines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(out.Lines))
	}
	for _, l := range out.Lines {
		odd := 0
		for i, n := range l.Main {
			if n%2 == 1 {
				odd++
			}
			if i > 0 && l.Main[i-1] >= n {
				t.Errorf("line not strictly ascending: %v", l.Main)
			}
		}
		if d := odd - (len(l.Main) - odd); d < -1 || d > 1 {
			t.Errorf("line not balanced: %v", l.Main)
		}
		if l.Meta.Strategy != "cold" || len(l.Bonus) != 1 {
			t.Errorf("unexpected line %+v", l)
		}
	}
}

func TestNonNumericGame(t *testing.T) {
	server, _ := setupTestServer(t)
	resp, err := http.Get(server.URL + "/v1/games")
	if err != nil {
		t.Fatal(err)
	}
	var games struct {
		Games []struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"games"`
	}
	json.NewDecoder(resp.Body).Decode(&games)
	resp.Body.Close()

	var bingo string
	for _, g := range games.Games {
		if g.Key == "bingo-night" {
			bingo = g.ID
		}
	}
	if bingo == "" {
		t.Fatalf("bingo-night not listed: %+v", games)
	}

	resp, err = http.Get(server.URL + "/v1/analytics?game_id=" + bingo)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var analytics map[string]any
	json.NewDecoder(resp.Body).Decode(&analytics)
	if analytics["note"] != "non_numeric_game" {
		t.Errorf("expected non_numeric_game note, got %v", analytics)
	}
}
