package httpapi

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed static/*
var embeddedStatic embed.FS

// newStaticHandler serves the frontend bundle from dir, or from the bundle
// compiled into the binary when dir is empty.
func newStaticHandler(dir string) http.Handler {
	var root fs.FS
	if strings.TrimSpace(dir) != "" {
		root = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(embeddedStatic, "static")
		if err != nil {
			return http.NotFoundHandler()
		}
		root = sub
	}
	return http.FileServer(http.FS(noListingFS{root}))
}

// noListingFS hides directories that have no index.html so the file server
// answers 404 instead of rendering a listing.
type noListingFS struct {
	fs.FS
}

func (n noListingFS) Open(name string) (fs.File, error) {
	f, err := n.FS.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		if _, err := fs.Stat(n.FS, path.Join(name, "index.html")); err != nil {
			_ = f.Close()
			return nil, fs.ErrNotExist
		}
	}
	return f, nil
}
