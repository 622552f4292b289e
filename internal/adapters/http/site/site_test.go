package site

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a site handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()
		Register(ctx, mux)

		Convey("When the stylesheet is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it is served as CSS", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
			})
		})

		Convey("When an unknown asset is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/static/missing.js", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the root is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServeAsset(t *testing.T) {
	Convey("Given the embedded assets", t, func() {
		Convey("When the sample CSV is served", func() {
			req := httptest.NewRequest(http.MethodGet, "/download/"+SampleFile, nil)
			w := httptest.NewRecorder()
			err := ServeAsset(w, req, SampleFile)

			Convey("Then it is an attachment with an email column", func() {
				So(err, ShouldBeNil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "attachment")
				body, _ := io.ReadAll(w.Body)
				header, _, _ := strings.Cut(string(body), "\n")
				So(header, ShouldContainSubstring, "Email Address")
			})
		})

		Convey("When the name is not embedded", func() {
			w := httptest.NewRecorder()
			err := ServeAsset(w, httptest.NewRequest(http.MethodGet, "/", nil), "secrets.env")
			So(errors.Is(err, ErrNotAsset), ShouldBeTrue)
		})

		Convey("When the name is a directory", func() {
			w := httptest.NewRecorder()
			err := ServeAsset(w, httptest.NewRequest(http.MethodGet, "/", nil), ".")
			So(errors.Is(err, ErrNotAsset), ShouldBeTrue)
		})
	})
}

func TestSiteHandlerWithNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		Convey("Then registering should panic", func() {
			So(func() { Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}
