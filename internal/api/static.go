package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// WithStatic serves the dashboard files in webDir under /gastos/ and hands
// every other request to apiHandler. Missing files fall through so the
// router can redirect to the login page.
func WithStatic(apiHandler http.Handler, webDir string) http.Handler {
	fileServer := securityHeaders(defaultHeadersConfig())(
		http.StripPrefix(basePath, http.FileServer(http.Dir(webDir))),
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			apiHandler.ServeHTTP(w, r)
			return
		}
		cleanPath := path.Clean("/" + r.URL.Path)
		if isAPIPath(cleanPath) || !strings.HasPrefix(cleanPath, basePath+"/") {
			apiHandler.ServeHTTP(w, r)
			return
		}
		cleanPath = strings.TrimPrefix(cleanPath, basePath+"/")

		fullPath := filepath.Join(webDir, filepath.FromSlash(cleanPath))
		info, err := os.Stat(fullPath)
		if err != nil || info.IsDir() {
			apiHandler.ServeHTTP(w, r)
			return
		}
		if strings.HasSuffix(cleanPath, ".html") {
			w.Header().Set("Cache-Control", "no-store")
		}
		fileServer.ServeHTTP(w, r)
	})
}
