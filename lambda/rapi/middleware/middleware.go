// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
)

// AccessLogMiddleware logs every request and its response status. Non-2xx
// responses are logged at error level.
func AccessLogMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debugf("API request - %s %s, Headers:%v", r.Method, r.URL, r.Header)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := 200
			if ww.Status() != 0 {
				status = ww.Status()
			}

			if status/100 != 2 {
				log.Errorf("API response - %s %s %d %v", r.Method, r.URL, status, w.Header())
			} else {
				log.Debugf("API response - %s %s %d, %d bytes", r.Method, r.URL, status, ww.BytesWritten())
			}
		})
	}
}
