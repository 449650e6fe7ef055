// internal/httpserver/server.go
//
// HTTP server wiring for the number guesser.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: POST /game/new, POST /game/guess, GET /game/{id}.
//   - Daily endpoint: POST /daily/new (mounted from routes_daily.go).
//   - Per-game JWTs: creating a game returns a token, and only the holder of
//     that token may ask the engine for guesses or read the history.
//
// Notes:
//   - The server never accepts guesses from the client; every guess comes
//     from the engine. The client only says "make the next guess".
//   - Games live in the in-memory store and are gone after a restart.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/engine"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/store"
)

// Range limits accepted from clients.
const (
	MinMaxNumber = 2
	MaxMaxNumber = 1_000_000
)

// Config carries the server's tunables.
type Config struct {
	JWTSecret    string        // HS256 key for game tokens
	TokenTTL     time.Duration // lifetime of a game token
	DailySalt    string        // key for the number of the day
	MaxNumber    int           // range used when a request does not name one
	ClientOrigin string        // allowed CORS origin
}

// Server bundles router, game store and guess engine.
type Server struct {
	r      *chi.Mux
	store  store.Store
	engine *engine.Engine
	cfg    Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, eng *engine.Engine, cfg Config) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.MaxNumber < MinMaxNumber {
		cfg.MaxNumber = 100
	}
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), store: st, engine: eng, cfg: cfg}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"numguess","endpoints":["/health","POST /game/new","POST /game/guess","GET /game/{id}","POST /daily/new"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "games": s.store.Len()})
	})

	// --- game ---
	s.r.Post("/game/new", s.handleNewGame)
	s.r.With(s.requireGameToken).Post("/game/guess", s.handleGuess)
	s.r.With(s.requireGameToken).Get("/game/{id}", s.handleGetGame)

	s.mountDaily(s.r)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new and POST /daily/new.
type newGameReq struct {
	MaxNumber int `json:"maxNumber"` // optional, defaults to Config.MaxNumber
	Target    int `json:"target"`    // optional fixed target (testing); ignored by /daily/new
}
type newGameRes struct {
	GameID    string    `json:"gameId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	MaxNumber int       `json:"maxNumber"`
	Date      string    `json:"date,omitempty"` // daily games only
}

// handleNewGame creates a game with a random (or requested) target.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeNewGame(w, r)
	if !ok {
		return
	}
	g, err := game.New(req.MaxNumber, req.Target)
	if err != nil {
		http.Error(w, `{"error":"bad_target"}`, http.StatusBadRequest)
		return
	}
	s.startGame(w, r, g, "")
}

// decodeNewGame reads an optional newGameReq and applies the range default.
func (s *Server) decodeNewGame(w http.ResponseWriter, r *http.Request) (newGameReq, bool) {
	var req newGameReq
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return req, false
	}
	if req.MaxNumber == 0 {
		req.MaxNumber = s.cfg.MaxNumber
	}
	if req.MaxNumber < MinMaxNumber || req.MaxNumber > MaxMaxNumber {
		http.Error(w, `{"error":"bad_max_number"}`, http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// decodeOptional decodes a JSON body into v; an empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// startGame stores g and answers with its token.
func (s *Server) startGame(w http.ResponseWriter, r *http.Request, g *game.Game, date string) {
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	tok, exp, err := s.signGameToken(g.ID)
	if err != nil {
		log.Error().Err(err).Str("gameId", g.ID).Msg("sign game token")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	log.Info().Str("gameId", g.ID).Int("maxNumber", g.State.RangeMax).Str("date", date).Msg("game started")
	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:    g.ID,
		Token:     tok,
		ExpiresAt: exp,
		MaxNumber: g.State.RangeMax,
		Date:      date,
	})
}

// guessReq/Res payloads for POST /game/guess.
type guessReq struct {
	GameID string `json:"gameId"` // optional; must match the token when set
}
type guessRes struct {
	Guess    int          `json:"guess"`
	Outcome  game.Outcome `json:"outcome"`
	Low      int          `json:"low"`
	High     int          `json:"high"`
	Guesses  int          `json:"guesses"`
	Finished bool         `json:"finished"`
	Target   *int         `json:"target,omitempty"` // revealed once finished
}

// handleGuess asks the engine for the next guess and applies it.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	id := gameIDFrom(r.Context())
	var req guessReq
	if err := decodeOptional(r, &req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.GameID != "" && req.GameID != id {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	var res guessRes
	err := s.store.Update(r.Context(), id, func(g *game.Game) error {
		guess, o, err := s.engine.MakeGuess(g)
		if err != nil {
			return err
		}
		res = guessRes{
			Guess:    guess,
			Outcome:  o,
			Low:      g.State.Low,
			High:     g.State.High,
			Guesses:  len(g.State.Guesses),
			Finished: g.Finished,
		}
		if t, ok := g.Target(); ok {
			res.Target = &t
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	case errors.Is(err, game.ErrFinished):
		http.Error(w, `{"error":"game_finished"}`, http.StatusConflict)
		return
	case err != nil:
		log.Error().Err(err).Str("gameId", id).Msg("make guess")
		http.Error(w, `{"error":"guess_failed"}`, http.StatusInternalServerError)
		return
	}
	if res.Finished {
		log.Info().Str("gameId", id).Int("guesses", res.Guesses).Msg("game won")
	}
	_ = json.NewEncoder(w).Encode(res)
}

// historyRow is one line of the guess history table.
type historyRow struct {
	N        int          `json:"n"`
	Guess    int          `json:"guess"`
	Feedback game.Outcome `json:"feedback"`
}
type gameRes struct {
	GameID    string       `json:"gameId"`
	MaxNumber int          `json:"maxNumber"`
	Low       int          `json:"low"`
	High      int          `json:"high"`
	Finished  bool         `json:"finished"`
	Target    *int         `json:"target,omitempty"`
	History   []historyRow `json:"history"`
}

// handleGetGame returns the current bounds and the guess history.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != gameIDFrom(r.Context()) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	res := gameRes{
		GameID:    g.ID,
		MaxNumber: g.State.RangeMax,
		Low:       g.State.Low,
		High:      g.State.High,
		Finished:  g.Finished,
		History:   make([]historyRow, len(g.State.Guesses)),
	}
	for i, guess := range g.State.Guesses {
		res.History[i] = historyRow{N: i + 1, Guess: guess, Feedback: g.State.Feedback[i]}
	}
	if t, ok := g.Target(); ok {
		res.Target = &t
	}
	_ = json.NewEncoder(w).Encode(res)
}

// ------------------------------ JWT ----------------------------------------

// signGameToken creates an HS256 JWT bound to one game.
func (s *Server) signGameToken(gameID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"gid": gameID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// parseGameToken verifies a token and returns its game ID.
func (s *Server) parseGameToken(tok string) (string, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", errors.New("invalid token")
	}
	id, _ := claims["gid"].(string)
	if id == "" {
		return "", errors.New("token without game")
	}
	return id, nil
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// ctxGameKey is the context key type for the authorized game ID.
type ctxGameKey struct{}

// requireGameToken enforces a valid game token and stores its game ID in
// the request context.
func (s *Server) requireGameToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		id, err := s.parseGameToken(tok)
		if err != nil {
			http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxGameKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func gameIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxGameKey{}).(string)
	return id
}
