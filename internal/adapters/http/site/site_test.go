package site

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a router with the scoring page registered", t, func() {
		r := chi.NewRouter()
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
		Register(r)

		Convey("When requesting the root page", func() {
			req := httptest.NewRequest("GET", "/?id=abc", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			Convey("Then the page is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "/app.js")
			})
		})

		Convey("When requesting the script", func() {
			req := httptest.NewRequest("GET", "/app.js", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			Convey("Then it is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "/ws")
			})

			Convey("Then it consumes the id parameter once and clears it", func() {
				body := w.Body.String()
				So(body, ShouldContainSubstring, "importID = null")
				So(body, ShouldContainSubstring, "history.replaceState(null, '', '/')")
			})
		})

		Convey("When requesting an explicit route", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			Convey("Then the explicit route wins", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When requesting a missing asset", func() {
			req := httptest.NewRequest("GET", "/missing.png", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSiteErrors(t *testing.T) {
	Convey("Given site error constants", t, func() {
		So(ErrServe, ShouldNotBeNil)
		So(ErrServe.Error(), ShouldEqual, "scoring page serve failed")
	})
}

func TestSiteHandlerWithNilRouter(t *testing.T) {
	Convey("Given a nil router", t, func() {
		So(func() { Register(nil) }, ShouldPanic)
	})
}
