package api

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var pageHTML []byte

// servePage serves the chat form. The mux pattern "GET /" also matches every
// unregistered path, so anything but the root is a 404.
func servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(pageHTML)
}
