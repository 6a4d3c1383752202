/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/simon/internal/sequence"
	"github.com/Seednode/simon/internal/solo"
)

const (
	visitorCookieName = "simon_id"
	defaultUsername   = "tourist"
	maxBodySize       = 16 << 10
)

func getOrSetVisitorID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(visitorCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	return json.NewDecoder(r.Body).Decode(v)
}

type usernameRequest struct {
	Username string `json:"username"`
}

type usernameResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
}

func serveSaveUsername(cfg *Config, store *solo.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()
		id := getOrSetVisitorID(w, r)

		var req usernameRequest
		if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.Username) == "" {
			if err := writeError(cfg, w, r, http.StatusBadRequest, "username must not be empty", startTime); err != nil {
				errs <- err
			}

			return
		}

		store.SetUsername(id, req.Username)

		if err := writeJSON(cfg, w, r, http.StatusOK, usernameResponse{"success", req.Username}, "Username", startTime); err != nil {
			errs <- err
		}
	}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Redirect string `json:"redirect"`
	Username string `json:"username"`
	Mode     string `json:"mode"`
}

func serveSelectMode(cfg *Config, store *solo.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()
		id := getOrSetVisitorID(w, r)

		var req modeRequest
		_ = decodeBody(w, r, &req)

		username := store.Username(id)
		if username == "" {
			username = defaultUsername
		}

		var redirect string
		switch req.Mode {
		case "single":
			redirect = cfg.prefix + "/single"
		case "multi":
			redirect = cfg.prefix + "/multi/" + cfg.defaultRoom
		default:
			if err := writeError(cfg, w, r, http.StatusBadRequest, "invalid input", startTime); err != nil {
				errs <- err
			}

			return
		}

		if err := writeJSON(cfg, w, r, http.StatusOK, modeResponse{redirect, username, req.Mode}, "Mode selection", startTime); err != nil {
			errs <- err
		}
	}
}

type startResponse struct {
	Status   string   `json:"status"`
	Level    int      `json:"level"`
	Sequence []string `json:"sequence"`
	Score    int      `json:"score"`
}

func serveSoloStart(cfg *Config, store *solo.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()
		id := getOrSetVisitorID(w, r)

		round := store.Start(id)

		logf(cfg, "GAMES: Solo visitor %s started", id)

		resp := startResponse{
			Status:   "started",
			Level:    round.Level,
			Sequence: round.Sequence.Strings(),
			Score:    round.Score,
		}

		if err := writeJSON(cfg, w, r, http.StatusOK, resp, "Solo start", startTime); err != nil {
			errs <- err
		}
	}
}

type checkRequest struct {
	PlayerSequence []string `json:"playerSequence"`
}

type correctResponse struct {
	Result    string `json:"result"`
	Score     int    `json:"score"`
	NextLevel int    `json:"nextLevel"`
}

type incorrectResponse struct {
	Result     string `json:"result"`
	FinalScore int    `json:"final_score"`
	MaxLevel   int    `json:"max_level"`
}

func serveSoloCheck(cfg *Config, store *solo.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()
		id := getOrSetVisitorID(w, r)

		var req checkRequest
		if err := decodeBody(w, r, &req); err != nil {
			if err := writeError(cfg, w, r, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err), startTime); err != nil {
				errs <- err
			}

			return
		}

		res, err := store.Check(id, sequence.Parse(req.PlayerSequence))
		if err != nil {
			if err := writeError(cfg, w, r, http.StatusBadRequest, "Game not active", startTime); err != nil {
				errs <- err
			}

			return
		}

		var resp any = incorrectResponse{"incorrect", res.Score, res.MaxLevel}
		if res.Correct {
			resp = correctResponse{"correct", res.Score, res.NextLevel}
		}

		if err := writeJSON(cfg, w, r, http.StatusOK, resp, "Solo check", startTime); err != nil {
			errs <- err
		}
	}
}

type sequenceResponse struct {
	Sequence []string `json:"sequence"`
	Level    int      `json:"level"`
}

func serveSoloSequence(cfg *Config, store *solo.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()
		id := getOrSetVisitorID(w, r)

		level := 0
		if raw := r.URL.Query().Get("level"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				if err := writeError(cfg, w, r, http.StatusBadRequest, "level must be a positive integer", startTime); err != nil {
					errs <- err
				}

				return
			}
			level = n
		}

		round := store.Deal(id, level)

		resp := sequenceResponse{
			Sequence: round.Sequence.Strings(),
			Level:    round.Level,
		}

		if err := writeJSON(cfg, w, r, http.StatusOK, resp, "Solo sequence", startTime); err != nil {
			errs <- err
		}
	}
}

type resetResponse struct {
	Status string `json:"status"`
	Score  int    `json:"score"`
	Level  int    `json:"level"`
}

func serveSoloReset(cfg *Config, store *solo.Store, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()
		id := getOrSetVisitorID(w, r)

		store.Reset(id)

		if err := writeJSON(cfg, w, r, http.StatusOK, resetResponse{"reset", 0, 1}, "Solo reset", startTime); err != nil {
			errs <- err
		}
	}
}

func serveSoloPage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_ = getOrSetVisitorID(w, r)

		page := newPage("Simon: single player",
			"Start with POST "+cfg.prefix+"/api/game/start, then answer with POST "+cfg.prefix+"/api/game/check.")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte(page)); err != nil {
			errs <- err
		}
	}
}

func registerSolo(cfg *Config, mux *httprouter.Router, store *solo.Store, errs chan<- error) {
	mux.GET(cfg.prefix+"/single", serveSoloPage(cfg, errs))

	mux.POST(cfg.prefix+"/api/save_username", serveSaveUsername(cfg, store, errs))
	mux.POST(cfg.prefix+"/api/select_mode", serveSelectMode(cfg, store, errs))

	mux.POST(cfg.prefix+"/api/game/start", serveSoloStart(cfg, store, errs))
	mux.POST(cfg.prefix+"/api/game/check", serveSoloCheck(cfg, store, errs))
	mux.GET(cfg.prefix+"/api/game/sequence", serveSoloSequence(cfg, store, errs))
	mux.POST(cfg.prefix+"/api/game/reset", serveSoloReset(cfg, store, errs))
}
