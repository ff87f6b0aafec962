package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oggyb/podmatch/internal/config"
)

// StartHTTPServer boots the API server and blocks until it exits.
func StartHTTPServer(cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// No global write timeout: training via /api/admin/train can run
		// for seconds to low minutes at this data scale.
		IdleTimeout: time.Minute,
	}
	return srv.Serve(lis)
}
