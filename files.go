/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// writeJSON sends v with the given status and logs what was served.
func writeJSON(cfg *Config, w http.ResponseWriter, r *http.Request, status int, v any, what string, started time.Time) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	body = append(body, '\n')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	written, err := w.Write(body)
	if err != nil {
		return err
	}

	logf(cfg, "SERVE: %s (%s) to %s in %s",
		what,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(started).Round(time.Microsecond),
	)

	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(cfg *Config, w http.ResponseWriter, r *http.Request, status int, msg string, started time.Time) error {
	return writeJSON(cfg, w, r, status, errorBody{Error: msg}, http.StatusText(status), started)
}
