package middleware

import (
	"net/http"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicMiddleware wraps each request in a New Relic transaction named
// after its chi route. A nil app disables it.
func NewRelicMiddleware(app *newrelic.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if app == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txn := app.StartTransaction(r.Method + " " + r.URL.Path)
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			w = txn.SetWebResponse(w)
			r = newrelic.RequestWithTransactionContext(r, txn)

			next.ServeHTTP(w, r)

			// The pattern is only known once chi has routed the request.
			txn.SetName(r.Method + " " + routePattern(r))
		})
	}
}
