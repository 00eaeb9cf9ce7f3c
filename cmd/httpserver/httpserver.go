// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/caribfx/bureau/internal/accountdelivery"
	"github.com/caribfx/bureau/internal/accountrepo"
	"github.com/caribfx/bureau/internal/accountservice"
	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/internal/middleware"
	"github.com/caribfx/bureau/internal/receipt"
	"github.com/caribfx/bureau/internal/reportdelivery"
	"github.com/caribfx/bureau/internal/reportrepo"
	"github.com/caribfx/bureau/internal/reportservice"
	"github.com/caribfx/bureau/internal/sessiondelivery"
	"github.com/caribfx/bureau/internal/sessionrepo"
	"github.com/caribfx/bureau/internal/sessionservice"
	"github.com/caribfx/bureau/internal/settingdelivery"
	"github.com/caribfx/bureau/internal/settingrepo"
	"github.com/caribfx/bureau/internal/settingservice"
	"github.com/caribfx/bureau/internal/txndelivery"
	"github.com/caribfx/bureau/internal/txnrepo"
	"github.com/caribfx/bureau/internal/txnservice"
	"github.com/caribfx/bureau/internal/userdelivery"
	"github.com/caribfx/bureau/internal/userrepo"
	"github.com/caribfx/bureau/internal/userservice"
	"github.com/caribfx/bureau/pkg/configpkg"
	"github.com/caribfx/bureau/pkg/currencypkg"
	"github.com/caribfx/bureau/pkg/tokenpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	userRepo := userrepo.NewRepoPGS(conn)
	accountRepo := accountrepo.NewRepoPGS(conn)
	txnRepo := txnrepo.NewRepoPGS(conn)
	sessionRepo := sessionrepo.NewRepoPGS(conn)
	settingRepo := settingrepo.NewRepoPGS(conn)
	reportRepo := reportrepo.NewRepoPGS(conn)

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		return nil, errors.New("cannot create token maker")
	}

	userService := userservice.New(userRepo)
	accountService := accountservice.New(accountRepo)
	txnService := txnservice.New(txnRepo, accountService, receipt.NewLogSender())
	settingService := settingservice.New(settingRepo)
	reportService := reportservice.New(reportRepo)
	sessionService, err := sessionservice.New(sessionRepo, config, tokenMaker)

	if err != nil {
		return nil, errors.New("cannot initialize session service")
	}

	userHandler := userdelivery.NewHandler(userService, sessionService)
	accountHandler := accountdelivery.NewHandler(accountService)
	txnHandler := txndelivery.NewHandler(txnService)
	sessionHandler := sessiondelivery.NewHandler(sessionService)
	settingHandler := settingdelivery.NewHandler(settingService)
	reportHandler := reportdelivery.NewHandler(reportService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/users", userHandler.Create)
	engine.POST("/users/login", userHandler.Login)
	engine.POST("/sessions", sessionHandler.RenewAccessToken)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(sessionService.TokenMaker))

	authRoutes.GET("/accounts/:currency", accountHandler.Get)
	authRoutes.GET("/accounts", accountHandler.List)

	authRoutes.POST("/transactions", txnHandler.Create)
	authRoutes.GET("/transactions/:id", txnHandler.Get)
	authRoutes.GET("/transactions", txnHandler.List)
	authRoutes.PATCH("/transactions/:id", txnHandler.Update)
	authRoutes.DELETE("/transactions/:id", txnHandler.Delete)

	authRoutes.GET("/reports/summary", reportHandler.Summary)
	authRoutes.GET("/reports/export", reportHandler.Export)

	authRoutes.GET("/settings/:key", settingHandler.Get)
	authRoutes.GET("/settings", settingHandler.List)

	adminRoutes := engine.Group("/").
		Use(middleware.AuthMiddleware(sessionService.TokenMaker)).
		Use(middleware.RequireRole(domain.RoleAdmin))

	adminRoutes.POST("/accounts", accountHandler.Create)
	adminRoutes.PUT("/settings/:key", settingHandler.Upsert)
	adminRoutes.DELETE("/settings/:key", settingHandler.Delete)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("currency", currencypkg.ValidCurrency)
		if err != nil {
			return nil, errors.New("cannot register currency validator")
		}
	}

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
