package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/khelzone/gameroom/internal/api/handler"
	"github.com/khelzone/gameroom/internal/api/middleware"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/khelzone/gameroom/internal/service"
	"github.com/khelzone/gameroom/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc       *service.AuthService
	WalletSvc     *service.WalletService
	RoomSvc       *service.RoomService
	WithdrawalSvc *service.WithdrawalService
	UserRepo      *repository.UserRepository
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.UserRepo)
	roomH := handler.NewRoomHandler(deps.RoomSvc)
	walletH := handler.NewWalletHandler(deps.WalletSvc, deps.WithdrawalSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10) // 10 req/s per IP for auth endpoints
	roomRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for room endpoints

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Lobby (public) ───────────────────────────────────────────────────
		api.GET("/rooms/lobby", roomH.GetLobby)

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", userH.Me)

			// Rooms
			rooms := authed.Group("/rooms")
			rooms.Use(roomRL)
			{
				rooms.POST("", roomH.CreateRoom)
				rooms.GET("/my", roomH.GetMyRooms)
				rooms.GET("/:code", roomH.GetRoom)
				rooms.POST("/:code/join", roomH.JoinRoom)
				rooms.POST("/:code/leave", roomH.LeaveRoom)
				rooms.POST("/:code/winner", roomH.DeclareWinner)
			}

			// Wallet
			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.GET("/transactions", walletH.GetTransactions)
				wallet.POST("/deposit", walletH.Deposit)
				wallet.POST("/withdraw", walletH.Withdraw)
				wallet.POST("/withdraw/:id/cancel", walletH.CancelWithdrawal)
				wallet.GET("/withdraw/status", walletH.GetWithdrawStatus)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In DEBUG mode all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			// Production: allow only khelzone.com (and www.)
			allowed := map[string]bool{
				"https://khelzone.com":     true,
				"https://www.khelzone.com": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
