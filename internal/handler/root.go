package handler

import (
	"net/http"
	"strings"
)

// APIRoot is the entry point clients start browsing from.
type APIRoot struct {
	Users    string `json:"users"`
	Snippets string `json:"snippets"`
}

// HandleRoot lists the top-level collections.
//
// HTTP: GET /
func HandleRoot(base BaseURL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := strings.TrimRight(base.For(r), "/")
		writeJSON(w, http.StatusOK, APIRoot{
			Users:    b + "/users/",
			Snippets: b + "/snippets/",
		})
	}
}

// Pinger reports whether a dependency is reachable. *sqlite.DB implements it.
type Pinger interface {
	Ping() error
}

// HandleHealth answers load balancer probes.
//
// HTTP: GET /healthz
// 200 {"status":"ok"} while the database answers, 503 otherwise.
func HandleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
