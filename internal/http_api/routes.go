package http_api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/api/v1")
	v1.GET("/checkpoint", s.checkpoint)
	v1.GET("/deposits", s.listDeposits)
	v1.GET("/deposits/:tx_hash", s.getDeposit)
	v1.GET("/vault/balance", s.vaultBalance)

	if s.opts.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}
}
