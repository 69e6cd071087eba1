package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/ThakurMayank5/Telestrations-Server/internal/clock"
	"github.com/ThakurMayank5/Telestrations-Server/internal/config"
	"github.com/ThakurMayank5/Telestrations-Server/internal/directory"
	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/game"
	"github.com/ThakurMayank5/Telestrations-Server/internal/logger"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
	"github.com/ThakurMayank5/Telestrations-Server/internal/transport"
	"github.com/ThakurMayank5/Telestrations-Server/internal/words"
)

const qrSize = 256

// app wires the game to its HTTP and websocket surface.
type app struct {
	cfg    *config.Config
	store  *room.Store
	svc    *game.Service
	hub    *transport.Hub
	ws     *transport.Server
	logger *zap.Logger
}

func newApp(cfg *config.Config, clk clock.Clock, logger *zap.Logger) *app {
	store := room.NewStore(words.NewSupply(cfg.Game.Words), cfg.Limits(), logger.Named("rooms"))
	hub := transport.NewHub(logger.Named("hub"))
	svc := game.NewService(store, directory.New(), clk, hub, cfg.GameSettings(), logger.Named("game"))
	router := transport.NewRouter(svc, logger.Named("router"))
	ws := transport.NewServer(hub, router, cfg.TransportOptions(), cfg.AllowOrigin, logger.Named("ws"))

	return &app{cfg: cfg, store: store, svc: svc, hub: hub, ws: ws, logger: logger}
}

// reload applies the parts of a new config that can change at runtime.
func (a *app) reload(cfg *config.Config) {
	a.svc.SetSettings(cfg.GameSettings())
	a.store.SetLimits(cfg.Limits())
}

func (a *app) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(requestLogger(a.logger.Named("http")))
	engine.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if a.cfg.AllowOrigin("*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = a.cfg.Server.AllowedOrigins
	}
	engine.Use(cors.New(corsConfig))

	engine.GET("/ws", a.ws.Handle)
	engine.GET("/healthz", a.health)

	api := engine.Group("/api")
	api.GET("/lobbies", a.lobbies)
	api.GET("/rooms/:code/qr", a.roomQR)

	return engine
}

func (a *app) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"rooms":   a.store.Count(),
		"clients": a.hub.OnlineCount(),
	})
}

func (a *app) lobbies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lobbies": a.svc.PublicLobbies()})
}

// roomQR serves a PNG QR code of the link that joins the room.
func (a *app) roomQR(c *gin.Context) {
	code, err := room.NormalizeCode(c.Param("code"))
	if err == nil && !a.svc.RoomExists(code) {
		err = apperrors.New(apperrors.ErrRoomNotFound)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	png, err := qrcode.Encode(joinLink(a.cfg.Server.PublicURL, code), qrcode.Medium, qrSize)
	if err != nil {
		abortWithError(c, apperrors.Wrap(err, apperrors.ErrUnknown))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func joinLink(publicURL, code string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return publicURL + "?room=" + code
	}
	q := u.Query()
	q.Set("room", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": apperrors.Message(err),
		"code":  apperrors.GetCode(err),
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	loader, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg := loader.Get()

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	gin.SetMode(cfg.Server.Mode)
	a := newApp(cfg, clock.Real(), log.Logger)

	loader.Watch(func(next *config.Config) {
		a.reload(next)
		log.SetLevel(next.Log.Level)
		log.Info("config reloaded", zap.String("file", loader.File()))
	}, func(err error) {
		log.Warn("config reload failed", zap.Error(err))
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("config", loader.File()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
