package bootstrap

import (
	"fmt"
	"net/http"

	"threadwatch/internal/api"
	"threadwatch/internal/config"
	"threadwatch/internal/database"
	"threadwatch/internal/logger"
	"threadwatch/internal/repository"
)

// SetupHTTPServer creates and configures the status API server.
func SetupHTTPServer(
	cfg *config.Config,
	db *database.DB,
	log logger.Logger,
) *http.Server {
	posts := repository.NewPostRepository(db.DB(), log)
	channels := repository.NewChannelRepository(db.DB(), log)
	router := api.NewRouter(cfg.Server, posts, channels, log)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
