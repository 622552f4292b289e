// Package site serves the embedded stylesheet and the sample preferences
// CSV.
package site

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// SampleFile is the example preferences CSV offered on the form page.
const SampleFile = "oh_prefs_toy.csv"

// Error constants
var (
	ErrNotAsset = errors.New("not an embedded asset")
)

// builtAt stands in for the modification time of embedded files.
var builtAt = time.Now()

// Register attaches the /static/ route to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(FS())))
}

// ServeAsset writes the named embedded file as an attachment.
func ServeAsset(w http.ResponseWriter, r *http.Request, name string) error {
	f, err := assets.Open(name)
	if err != nil {
		return errors.Join(ErrNotAsset, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return ErrNotAsset
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		return ErrNotAsset
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, builtAt, rs)
	return nil
}
