package router

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-converter/internal/api/handlers/job"
)

// Setup registers the run API, the health check and the metrics endpoint.
func Setup(h *job.Handler, metrics http.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/healthz", h.Health)
	r.GET("/metrics", func(c *ginext.Context) {
		metrics.ServeHTTP(c.Writer, c.Request)
	})

	api := r.Group("/api")

	api.POST("/jobs", h.Create) // starting a run
	api.GET("/jobs", h.List)    // listing known runs
	api.GET("/jobs/:id", h.Get) // run status and summary

	return r
}
