package site_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rampagelabs/armory/internal/adapters/http/site"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given the landing page on a mux", t, func() {
		mux := http.NewServeMux()
		site.Register(context.Background(), mux)

		Convey("The root path serves the landing page", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "Armory")
		})

		Convey("Unknown paths are not swallowed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Registering on a nil mux panics", t, func() {
		So(func() { site.Register(context.Background(), nil) }, ShouldPanic)
	})
}
