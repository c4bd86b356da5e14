package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
	"github.com/giantroach/Mistvoyage-sub000/internal/store"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	catalog, err := game.LoadCatalog(filepath.Join("..", "..", "voyage.yaml"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	hub := NewHub()
	go hub.Run()

	srv := NewServer(catalog, store.NewFileStore(t.TempDir()), hub, time.Millisecond)
	t.Cleanup(srv.Close)
	return srv, srv.Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func createSession(t *testing.T, h http.Handler) SessionView {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", `{"seed": 42}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	var v SessionView
	decodeBody(t, rec, &v)
	return v
}

// enterNode rewrites an accessible first-layer node to event and sails there.
func enterNode(t *testing.T, srv *Server, id string, event game.EventType) {
	t.Helper()
	srv.mu.RLock()
	e := srv.sessions[id]
	srv.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	gs := e.session
	for _, n := range gs.Map.Layer(1) {
		if !n.Accessible {
			continue
		}
		n.Event = event
		if !gs.NavigateToNode(n.ID) {
			t.Fatalf("navigate to %s failed", n.ID)
		}
		return
	}
	t.Fatalf("no accessible node on layer 1")
}

func TestCreateAndGetSession(t *testing.T) {
	_, h := newTestServer(t)
	v := createSession(t, h)
	if v.ID == "" || v.Chapter != 1 || v.Phase != game.PhaseNavigation {
		t.Fatalf("unexpected session: %+v", v)
	}
	if v.Player.Hull != v.Player.Ship.HullMax {
		t.Fatalf("hull=%d want %d", v.Player.Hull, v.Player.Ship.HullMax)
	}

	rec := do(t, h, http.MethodGet, "/api/sessions/"+v.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var got SessionView
	decodeBody(t, rec, &got)
	if got.ID != v.ID || got.CurrentNodeID != v.CurrentNodeID {
		t.Fatalf("got %+v want %+v", got, v)
	}
}

func TestUnknownSession(t *testing.T) {
	_, h := newTestServer(t)
	for _, path := range []string{"/api/sessions/missing", "/api/sessions/missing/map", "/api/sessions/missing/battle"} {
		if rec := do(t, h, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status %d want 404", path, rec.Code)
		}
	}
}

func TestDeleteSession(t *testing.T) {
	_, h := newTestServer(t)
	v := createSession(t, h)
	if rec := do(t, h, http.MethodDelete, "/api/sessions/"+v.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/sessions/"+v.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", rec.Code)
	}
}

func TestMapShowsOnlyVisibleNodes(t *testing.T) {
	srv, h := newTestServer(t)
	v := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+v.ID+"/map", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("map: status %d", rec.Code)
	}
	var m MapView
	decodeBody(t, rec, &m)

	gs := srv.sessions[v.ID].session
	if len(m.Nodes) == 0 || len(m.Nodes) >= len(gs.Map.Nodes) {
		t.Fatalf("expected a partial map, got %d of %d nodes", len(m.Nodes), len(gs.Map.Nodes))
	}
	sawBoss := false
	accessible := 0
	for _, n := range m.Nodes {
		if n.ID == m.BossID {
			sawBoss = true
		}
		if n.Accessible {
			accessible++
			if n.Layer != 1 {
				t.Errorf("node %s accessible on layer %d", n.ID, n.Layer)
			}
		}
	}
	if !sawBoss {
		t.Fatalf("boss must always be visible")
	}
	if accessible == 0 {
		t.Fatalf("start node must lead somewhere")
	}
}

func TestNavigate(t *testing.T) {
	_, h := newTestServer(t)
	v := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+v.ID+"/navigate", `{"node_id": "nowhere"}`)
	var resp NavigateResponse
	decodeBody(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Success {
		t.Fatalf("inaccessible node: status %d success %v", rec.Code, resp.Success)
	}
	if resp.Session.CurrentNodeID != v.CurrentNodeID {
		t.Fatalf("failed navigation moved the ship")
	}

	var m MapView
	decodeBody(t, do(t, h, http.MethodGet, "/api/sessions/"+v.ID+"/map", ""), &m)
	var target string
	for _, n := range m.Nodes {
		if n.Accessible {
			target = n.ID
			break
		}
	}

	rec = do(t, h, http.MethodPost, "/api/sessions/"+v.ID+"/navigate", `{"node_id": "`+target+`"}`)
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.Session.CurrentNodeID != target {
		t.Fatalf("navigate to %s: %+v", target, resp)
	}
	if resp.Session.Phase == game.PhaseNavigation {
		t.Fatalf("arriving at a node must leave navigation")
	}
	if resp.Session.EventsCompleted != 1 {
		t.Fatalf("events completed=%d want 1", resp.Session.EventsCompleted)
	}

	if rec := do(t, h, http.MethodPost, "/api/sessions/"+v.ID+"/navigate", "{bad"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", rec.Code)
	}
}

func TestPortEvent(t *testing.T) {
	srv, h := newTestServer(t)
	v := createSession(t, h)
	base := "/api/sessions/" + v.ID

	// Not at a port yet
	if rec := do(t, h, http.MethodGet, base+"/port", ""); rec.Code != http.StatusConflict {
		t.Fatalf("port outside port: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, base+"/event", `{"action":"leave"}`); rec.Code != http.StatusConflict {
		t.Fatalf("event while navigating: status %d", rec.Code)
	}

	enterNode(t, srv, v.ID, game.EventPort)

	rec := do(t, h, http.MethodGet, base+"/port", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("port: status %d", rec.Code)
	}
	var stock []game.Weapon
	decodeBody(t, rec, &stock)
	if len(stock) != srv.catalog.Port.StockSize {
		t.Fatalf("stock=%d want %d", len(stock), srv.catalog.Port.StockSize)
	}

	if rec := do(t, h, http.MethodPost, base+"/event", `{"action":"juggle"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, base+"/event", `{"action":"hire_crew","amount":500}`); rec.Code != http.StatusOK {
		t.Fatalf("hire at full crew: status %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, base+"/event", `{"action":"leave"}`)
	var out game.EventOutcome
	decodeBody(t, rec, &out)
	if rec.Code != http.StatusOK || !out.Done || out.Event != game.EventPort {
		t.Fatalf("leave: status %d outcome %+v", rec.Code, out)
	}

	var after SessionView
	decodeBody(t, do(t, h, http.MethodGet, base, ""), &after)
	if after.Phase != game.PhaseNavigation {
		t.Fatalf("phase=%s want navigation", after.Phase)
	}
}

func TestTempleEvent(t *testing.T) {
	srv, h := newTestServer(t)
	v := createSession(t, h)
	enterNode(t, srv, v.ID, game.EventTemple)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+v.ID+"/event", "")
	var out game.EventOutcome
	decodeBody(t, rec, &out)
	if rec.Code != http.StatusOK || !out.Done || out.Event != game.EventTemple {
		t.Fatalf("temple: status %d outcome %+v", rec.Code, out)
	}
}

func TestBattleEndpointsOutsideBattle(t *testing.T) {
	_, h := newTestServer(t)
	v := createSession(t, h)
	base := "/api/sessions/" + v.ID

	if rec := do(t, h, http.MethodPost, base+"/battle", ""); rec.Code != http.StatusConflict {
		t.Fatalf("start battle while navigating: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, base+"/battle", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get battle: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, base+"/battle/end", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("end battle: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, base+"/chapter", ""); rec.Code != http.StatusConflict {
		t.Fatalf("next chapter before boss: status %d", rec.Code)
	}
}

func TestBattleRunsToVictory(t *testing.T) {
	srv, h := newTestServer(t)
	v := createSession(t, h)
	base := "/api/sessions/" + v.ID
	enterNode(t, srv, v.ID, game.EventMonster)

	rec := do(t, h, http.MethodPost, base+"/battle", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start battle: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, base+"/battle", ""); rec.Code != http.StatusConflict {
		t.Fatalf("second start: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, base+"/battle/end", ""); rec.Code != http.StatusConflict {
		t.Fatalf("end while running: status %d", rec.Code)
	}

	// Sink every monster; the next tick resolves the battle
	e := srv.sessions[v.ID]
	e.mu.Lock()
	moneyBefore := e.session.Player.Money
	for _, m := range e.session.Battle.Monsters {
		m.HP = 0
	}
	e.mu.Unlock()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var b game.BattleState
		decodeBody(t, do(t, h, http.MethodGet, base+"/battle", ""), &b)
		if !b.Active {
			if b.Phase != game.PhaseVictory {
				t.Fatalf("phase=%s want victory", b.Phase)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("battle never resolved")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = do(t, h, http.MethodPost, base+"/battle/end", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("end battle: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp EndBattleResponse
	decodeBody(t, rec, &resp)
	if resp.Reward == nil {
		t.Fatalf("victory without reward")
	}
	if resp.Session.Player.Money != moneyBefore+resp.Reward.Gold {
		t.Fatalf("money=%d want %d", resp.Session.Player.Money, moneyBefore+resp.Reward.Gold)
	}
	if resp.Session.Phase != game.PhaseNavigation || resp.Session.Battle != nil {
		t.Fatalf("session not back in navigation: %+v", resp.Session)
	}
}

func TestSaveAndLoad(t *testing.T) {
	srv, h := newTestServer(t)
	v := createSession(t, h)
	base := "/api/sessions/" + v.ID

	var res SlotResponse
	decodeBody(t, do(t, h, http.MethodPost, base+"/save", `{"slot":"Slot 1"}`), &res)
	if !res.Success {
		t.Fatalf("save: %s", res.Message)
	}

	enterNode(t, srv, v.ID, game.EventTemple)

	decodeBody(t, do(t, h, http.MethodPost, base+"/load", `{"slot":"Slot 1"}`), &res)
	if !res.Success {
		t.Fatalf("load: %s", res.Message)
	}
	var after SessionView
	decodeBody(t, do(t, h, http.MethodGet, base, ""), &after)
	if after.CurrentNodeID != v.CurrentNodeID || after.Phase != game.PhaseNavigation {
		t.Fatalf("load did not restore: %+v", after)
	}
	if after.Player.Food != v.Player.Food {
		t.Fatalf("food=%d want %d", after.Player.Food, v.Player.Food)
	}

	decodeBody(t, do(t, h, http.MethodPost, base+"/load", `{"slot":"empty"}`), &res)
	if res.Success {
		t.Fatalf("loading an empty slot must fail")
	}
}

// Saves encode outside the session lock, so they must not observe a session
// that is being mutated. Run with -race.
func TestSaveWhileSessionChanges(t *testing.T) {
	srv, h := newTestServer(t)
	v := createSession(t, h)
	e := srv.sessions[v.ID]

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			e.mu.Lock()
			gs := e.session
			gs.UpdateVisibility()
			gs.Variables["tick"] = i
			gs.Player.Weapons[0].Name = fmt.Sprintf("cannon %d", i)
			for _, n := range gs.Map.Nodes {
				n.Visible = i%2 == 0
			}
			e.mu.Unlock()
		}
	}()

	for i := 0; i < 50; i++ {
		var res SlotResponse
		decodeBody(t, do(t, h, http.MethodPost, "/api/sessions/"+v.ID+"/save", `{"slot":"busy"}`), &res)
		if !res.Success {
			close(done)
			wg.Wait()
			t.Fatalf("save %d: %s", i, res.Message)
		}
	}
	close(done)
	wg.Wait()
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodOptions, "/api/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight: status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestWebSocketReceivesBattleTicks(t *testing.T) {
	srv, h := newTestServer(t)
	ts := httptest.NewServer(h)
	defer ts.Close()

	v := createSession(t, h)
	if rec := do(t, h, http.MethodGet, "/ws", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("ws without session: status %d", rec.Code)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + v.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	enterNode(t, srv, v.ID, game.EventMonster)
	if rec := do(t, h, http.MethodPost, "/api/sessions/"+v.ID+"/battle", ""); rec.Code != http.StatusCreated {
		t.Fatalf("start battle: status %d", rec.Code)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type   string          `json:"type"`
		Sender string          `json:"sender"`
		Data   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MsgBattleTick && msg.Type != MsgBattleOver {
		t.Fatalf("type=%q", msg.Type)
	}
	if msg.Sender != v.ID || len(msg.Data) == 0 {
		t.Fatalf("unexpected message %s", data)
	}
}
