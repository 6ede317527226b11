package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumapay/ledger-service/internal/config"
	"github.com/lumapay/ledger-service/internal/service"
)

func NewRouter(svc *service.WalletService, cfg *config.Config, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	RegisterHandlers(r, svc, cfg.Pagination.MaxLimit, log)
	return r
}
