package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/matthigger/oh-sched-web/internal/adapters/http/site"
	"github.com/matthigger/oh-sched-web/internal/app"
	"github.com/matthigger/oh-sched-web/internal/domain/schedule"
	"github.com/matthigger/oh-sched-web/pkg/logger"
)

type indexData struct {
	SampleFile string
	Defaults   schedule.Config
	Notice     string
}

func newIndexData(notice string) indexData {
	return indexData{SampleFile: site.SampleFile, Defaults: schedule.Default(), Notice: notice}
}

// HandleIndex handles GET / requests with the upload form.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(r.Context(), w, http.StatusOK, indexPage, newIndexData(""))
}

// HandleRun handles POST / requests: one scheduling run per submission.
func (s *Server) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		notice := "The upload could not be read; submit the form again."
		var tooLarge *http.MaxBytesError
		kind := ErrBadRequest
		if errors.As(err, &tooLarge) {
			kind = ErrTooLarge
			notice = "The upload is too large."
		}
		s.logger.Info(ctx, "rejected upload", logger.Error(wrapKind("parse form", kind, err)))
		s.render(ctx, w, http.StatusBadRequest, indexPage, newIndexData(notice))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := app.Input{
		Form: schedule.FormFields{
			OHPerTA:    r.FormValue("oh_per_ta"),
			MaxTAPerOH: r.FormValue("max_ta_per_oh"),
			DateStart:  r.FormValue("date_start"),
			DateEnd:    r.FormValue("date_end"),
			ScaleDict:  r.FormValue("scale_dict"),
			TZ:         r.FormValue("tz"),
		},
	}

	csvFile, csvHeader, err := r.FormFile("csv_file")
	if err == nil {
		defer csvFile.Close()
		in.CSV = upload(csvFile, csvHeader)
	} else if !errors.Is(err, http.ErrMissingFile) {
		s.render(ctx, w, http.StatusBadRequest, indexPage, newIndexData("The CSV upload could not be read."))
		return
	}

	yamlFile, yamlHeader, err := r.FormFile("yaml_file")
	if err == nil {
		defer yamlFile.Close()
		in.YAML = upload(yamlFile, yamlHeader)
	}

	res := s.runner.Run(ctx, in)
	s.render(ctx, w, statusFor(res), resultsPage, res)
}

func upload(f multipart.File, h *multipart.FileHeader) *app.Upload {
	return &app.Upload{Filename: h.Filename, Size: h.Size, Body: f}
}

// statusFor maps a run outcome to the HTTP status of the results page.
// Config and engine failures are normal results rather than HTTP errors.
func statusFor(res app.Result) int {
	if res.Err == nil {
		return http.StatusOK
	}
	switch res.Err.Kind {
	case app.KindUpload:
		return http.StatusBadRequest
	case app.KindFilesystem:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
