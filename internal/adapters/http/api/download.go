package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/matthigger/oh-sched-web/internal/adapters/http/site"
	"github.com/matthigger/oh-sched-web/pkg/logger"
)

// usageDownload is the name under which the combined usage CSV is served.
const usageDownload = "usage.csv"

// HandleDownload handles GET /download/{name}: the sample CSV or the
// combined usage file.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	switch name {
	case site.SampleFile:
		if err := site.ServeAsset(w, r, name); err != nil {
			notFound(w, name)
		}
	case usageDownload:
		s.serveAttachment(w, r, s.usageFile, name)
	default:
		notFound(w, name)
	}
}

// HandleRunDownload handles GET /download/{run}/{name} for run outputs.
func (s *Server) HandleRunDownload(w http.ResponseWriter, r *http.Request) {
	run, name := r.PathValue("run"), r.PathValue("name")
	if _, err := uuid.Parse(run); err != nil || !plainName(name) {
		notFound(w, name)
		return
	}
	s.serveAttachment(w, r, filepath.Join(s.outputRoot, run, name), name)
}

func (s *Server) serveAttachment(w http.ResponseWriter, r *http.Request, path, name string) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn(r.Context(), "open download failed", logger.String("file", name), logger.Error(err))
		}
		notFound(w, name)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		notFound(w, name)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func plainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func notFound(w http.ResponseWriter, name string) {
	http.Error(w, "File "+name+" not found", http.StatusNotFound)
}
