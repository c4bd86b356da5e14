/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These functions decode JSON requests, look up the target session,
    drive the game logic (internal/game) and return JSON responses.

    Key Responsibilities:
    - Input Validation (Is the JSON valid? Does the session exist?)
    - State Modification (navigation, events, battles, chapters)
    - Thread Safety (one mutex per session; battle ticks take the same lock)
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/giantroach/Mistvoyage-sub000/internal/game"
	"github.com/giantroach/Mistvoyage-sub000/internal/store"
)

// DefaultTick is the battle tick interval used when none is configured.
const DefaultTick = 100 * time.Millisecond

// Request DTOs (Data Transfer Objects)

type CreateSessionRequest struct {
	Seed int64 `json:"seed,omitempty"` // 0 = random
}

type NavigateRequest struct {
	NodeID string `json:"node_id"`
}

type SlotRequest struct {
	Slot string `json:"slot"`
}

// Response DTOs

type SessionView struct {
	ID              string                `json:"id"`
	Chapter         int                   `json:"chapter"`
	ChapterName     string                `json:"chapter_name"`
	Phase           game.Phase            `json:"phase"`
	CurrentNodeID   string                `json:"current_node_id"`
	Player          game.PlayerParameters `json:"player"`
	Weather         game.Weather          `json:"weather"`
	WeatherState    game.WeatherState     `json:"weather_state"`
	EventsCompleted int                   `json:"events_completed"`
	RequiredEvents  int                   `json:"required_events"`
	Battle          *game.BattleState     `json:"battle,omitempty"`
}

type NodeView struct {
	ID          string   `json:"id"`
	Layer       int      `json:"layer"`
	Branch      int      `json:"branch"`
	Label       string   `json:"label"`
	Connections []string `json:"connections"`
	Accessible  bool     `json:"accessible"`
	Visited     bool     `json:"visited"`
}

type MapView struct {
	Chapter       int        `json:"chapter"`
	TotalLayers   int        `json:"total_layers"`
	CurrentNodeID string     `json:"current_node_id"`
	BossID        string     `json:"boss_id"`
	Nodes         []NodeView `json:"nodes"` // Visible nodes only
}

type NavigateResponse struct {
	Success bool        `json:"success"`
	Session SessionView `json:"session"`
}

type EndBattleResponse struct {
	Reward  *game.BattleReward `json:"reward"`
	Session SessionView        `json:"session"`
}

// SlotResponse is the structured result of save and load.
type SlotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// sessionEntry pairs a session with its lock and battle runner.
type sessionEntry struct {
	mu      sync.Mutex
	session *game.Session
	stop    context.CancelFunc // Cancels the running battle loop, if any
}

// Server owns the live sessions and the shared services behind the API.
type Server struct {
	mu       sync.RWMutex // Guards catalog and sessions
	catalog  *game.Catalog
	sessions map[string]*sessionEntry

	store  store.Store
	hub    *Hub
	tick   time.Duration
	logger *log.Logger

	ctx    context.Context // Parent of every battle loop
	cancel context.CancelFunc
}

// NewServer wires a catalog, a save store and a hub together.
func NewServer(catalog *game.Catalog, st store.Store, hub *Hub, tick time.Duration) *Server {
	if tick <= 0 {
		tick = DefaultTick
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		catalog:  catalog,
		sessions: make(map[string]*sessionEntry),
		store:    st,
		hub:      hub,
		tick:     tick,
		logger:   log.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetCatalog swaps the catalog used by new sessions. Running sessions keep theirs.
func (s *Server) SetCatalog(c *game.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}

// Close stops every running battle loop.
func (s *Server) Close() {
	s.cancel()
}

func (s *Server) lookup(r *http.Request) *sessionEntry {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps game errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrBattleInProgress),
		errors.Is(err, game.ErrWeaponSlotsFull), errors.Is(err, game.ErrStorageFull):
		status = http.StatusConflict
	case errors.Is(err, game.ErrNoBattle):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, game.ErrConfig):
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

func view(gs *game.Session) SessionView {
	return SessionView{
		ID:              gs.ID,
		Chapter:         gs.Chapter,
		ChapterName:     chapterName(gs),
		Phase:           gs.Phase,
		CurrentNodeID:   gs.CurrentNodeID,
		Player:          gs.Player,
		Weather:         gs.Weather,
		WeatherState:    gs.WeatherState(),
		EventsCompleted: gs.EventsCompleted(),
		RequiredEvents:  gs.Map.RequiredEvents,
		Battle:          gs.Battle,
	}
}

func chapterName(gs *game.Session) string {
	cfg, err := gs.Catalog.Chapter(gs.Chapter)
	if err != nil {
		return ""
	}
	return cfg.Name
}

// HandleCreateSession starts a new voyage on the current catalog.
func (s *Server) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}

	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()

	gs, err := game.NewSession(catalog, game.WithRand(game.NewRand(req.Seed)), game.WithLogger(s.logger))
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	s.sessions[gs.ID] = &sessionEntry{session: gs}
	s.mu.Unlock()

	s.logger.Printf("API: session %s created", gs.ID)
	writeJSON(w, http.StatusCreated, view(gs))
}

// HandleGetSession returns the session summary.
func (s *Server) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	writeJSON(w, http.StatusOK, view(e.session))
}

// HandleDeleteSession drops a session and stops its battle loop.
func (s *Server) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	e := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	e.mu.Lock()
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	e.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetMap returns the nodes the ship can currently see.
// Unseen nodes are withheld entirely.
func (s *Server) HandleGetMap(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	gs := e.session
	m := gs.Map
	resp := MapView{
		Chapter:       m.Chapter,
		TotalLayers:   m.TotalLayers,
		CurrentNodeID: gs.CurrentNodeID,
		BossID:        m.BossID,
		Nodes:         []NodeView{},
	}
	for layer := 0; layer < m.TotalLayers; layer++ {
		for _, n := range m.Layer(layer) {
			if !n.Visible {
				continue
			}
			resp.Nodes = append(resp.Nodes, NodeView{
				ID:          n.ID,
				Layer:       n.Layer,
				Branch:      n.Branch,
				Label:       gs.Label(n),
				Connections: n.Connections,
				Accessible:  n.Accessible,
				Visited:     gs.Visited[n.ID],
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleNavigate moves the ship. An inaccessible node is not an HTTP error:
// the response reports success=false and the unchanged session.
func (s *Server) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid Request", http.StatusBadRequest)
		return
	}
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ok := e.session.NavigateToNode(req.NodeID)
	writeJSON(w, http.StatusOK, NavigateResponse{Success: ok, Session: view(e.session)})
}

// HandleGetPort lists the weapons for sale at the current port.
func (s *Server) HandleGetPort(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	stock := e.session.PortStock()
	if stock == nil {
		http.Error(w, "No port service at this location", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

// HandleResolveEvent applies a decision at a port, treasure, temple or unknown node.
func (s *Server) HandleResolveEvent(w http.ResponseWriter, r *http.Request) {
	var req game.EventRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.session.ResolveEvent(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleNextChapter advances past a defeated boss.
func (s *Server) HandleNextChapter(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.session.NextChapter(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(e.session))
}

// HandleStartBattle spawns the encounter and starts the battle loop.
func (s *Server) HandleStartBattle(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.session.InitiateBattle(time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, stop := context.WithCancel(s.ctx)
	e.stop = stop
	go s.runBattle(ctx, e)

	writeJSON(w, http.StatusCreated, b)
}

// HandleGetBattle returns the current battle state.
func (s *Server) HandleGetBattle(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Battle == nil {
		writeError(w, game.ErrNoBattle)
		return
	}
	writeJSON(w, http.StatusOK, e.session.Battle)
}

// HandleEndBattle applies the reward of a finished battle.
func (s *Server) HandleEndBattle(w http.ResponseWriter, r *http.Request) {
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	reward, err := e.session.EndBattle()
	if err != nil {
		writeError(w, err)
		return
	}
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	writeJSON(w, http.StatusOK, EndBattleResponse{Reward: reward, Session: view(e.session)})
}

// runBattle ticks the session's battle until it resolves, pushing every
// tick to the session's WebSocket subscribers.
func (s *Server) runBattle(ctx context.Context, e *sessionEntry) {
	game.RunBattleLoop(ctx, s.tick, func(now time.Time) bool {
		e.mu.Lock()
		defer e.mu.Unlock()

		gs := e.session
		b := gs.Battle
		if b == nil {
			return true
		}
		gs.AdvanceBattle(now)

		msgType := MsgBattleTick
		if !b.Active {
			msgType = MsgBattleOver
		}
		s.hub.Publish(gs.ID, Message{Type: msgType, Payload: b, Sender: gs.ID})
		return !b.Active
	})
}

// HandleSave writes the session into a save slot.
func (s *Server) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req SlotRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	e.mu.Lock()
	snap := e.session.Snapshot()
	e.mu.Unlock()

	slot := store.SanitizeSlot(req.Slot)
	if err := s.store.Save(r.Context(), slot, snap); err != nil {
		s.logger.Printf("API: save %s: %v", slot, err)
		writeJSON(w, http.StatusOK, SlotResponse{Success: false, Message: fmt.Sprintf("Save failed: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, SlotResponse{Success: true, Message: fmt.Sprintf("Saved to slot %s", slot)})
}

// HandleLoad restores the session from a save slot. A running battle is abandoned.
func (s *Server) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var req SlotRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
	}
	e := s.lookup(r)
	if e == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	slot := store.SanitizeSlot(req.Slot)
	snap, err := s.store.Load(r.Context(), slot)
	if err != nil {
		msg := fmt.Sprintf("Load failed: %v", err)
		if errors.Is(err, store.ErrNotFound) {
			msg = fmt.Sprintf("No save in slot %s", slot)
		}
		writeJSON(w, http.StatusOK, SlotResponse{Success: false, Message: msg})
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.session.Restore(snap); err != nil {
		writeJSON(w, http.StatusOK, SlotResponse{Success: false, Message: fmt.Sprintf("Load failed: %v", err)})
		return
	}
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	writeJSON(w, http.StatusOK, SlotResponse{Success: true, Message: fmt.Sprintf("Loaded slot %s", slot)})
}

// HandleWs subscribes a WebSocket to a session's battle updates.
func (s *Server) HandleWs(w http.ResponseWriter, r *http.Request) {
	ServeWs(s.hub, w, r)
}
