// Package site serves the minimal operator landing page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

// Register attaches the landing page to mux. Registered last so every
// unclaimed path falls through to it.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", handleRoot)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Armory</title>
  </head>
  <body>
    <h1>Armory</h1>
    <p>Offer resolution and crowd feedback service.</p>
    <ul>
      <li><a href="/api-docs">API documentation</a></li>
      <li><a href="/offers">Resolved offers</a></li>
      <li><a href="/stats">Service statistics</a></li>
      <li><a href="/healthz">Metrics</a></li>
    </ul>
  </body>
</html>`
