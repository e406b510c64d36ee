package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifyStatus(t *testing.T) {
	Convey("Given response statuses", t, func() {
		cases := []struct {
			status   int
			kind     string
			severity string
			failed   bool
		}{
			{http.StatusOK, "", "", false},
			{http.StatusNoContent, "", "", false},
			{http.StatusBadRequest, "client_error", "medium", true},
			{http.StatusNotFound, "not_found", "medium", true},
			{http.StatusMethodNotAllowed, "method_not_allowed", "medium", true},
			{http.StatusInternalServerError, "server_error", "high", true},
			{http.StatusServiceUnavailable, "unavailable", "high", true},
		}

		for _, c := range cases {
			kind, severity, failed := classifyStatus(c.status)
			So(kind, ShouldEqual, c.kind)
			So(severity, ShouldEqual, c.severity)
			So(failed, ShouldEqual, c.failed)
		}
	})
}

func TestStatusRecorder(t *testing.T) {
	Convey("Given a status recorder", t, func() {
		w := httptest.NewRecorder()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		Convey("When the handler writes a body without a header", func() {
			_, err := rec.Write([]byte("ok"))

			Convey("Then the implicit 200 is kept", func() {
				So(err, ShouldBeNil)
				So(rec.status, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "ok")
			})
		})

		Convey("When the handler writes an explicit status", func() {
			rec.WriteHeader(http.StatusServiceUnavailable)

			Convey("Then it is recorded", func() {
				So(rec.status, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}
