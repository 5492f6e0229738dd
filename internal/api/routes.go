package api

import (
	"net/http"

	"github.com/winnowhq/winnow/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	payload := newPayloadHandler(domain.Batches, runtime.Storage, runtime.Logger)

	routes.Register(
		mux,
		domain.Records.Handler().Routes(),
		domain.Batches.Handler().Routes(),
		payload.routes(),
	)
}
