package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/khelzone/gameroom/internal/backoffice/handler"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/khelzone/gameroom/internal/service"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuthSvc       *service.AuthService
	RoomSvc       *service.RoomService
	WalletSvc     *service.WalletService
	WithdrawalSvc *service.WithdrawalService
	CorrectionSvc *service.CorrectionService
	UserRepo      *repository.UserRepository
	RoomRepo      *repository.RoomRepository
	LedgerRepo    *repository.LedgerRepository
	Cfg           *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine on the backoffice port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	roomH := handler.NewRoomAdminHandler(deps.RoomSvc, deps.CorrectionSvc, deps.RoomRepo, deps.Cfg)
	userH := handler.NewUserAdminHandler(deps.UserRepo, deps.Cfg)
	financeH := handler.NewFinanceHandler(deps.WithdrawalSvc, deps.WalletSvc, deps.LedgerRepo, deps.Cfg)

	jwtMW := adminJWTMiddleware(deps.AuthSvc)

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		// Rooms
		rooms := admin.Group("/rooms")
		{
			rooms.GET("", roomH.List)
			rooms.GET("/:code", roomH.Detail)
			rooms.POST("/:code/cancel", roomH.Cancel)
			rooms.POST("/:code/correct-winner", roomH.CorrectWinner)
		}

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", userH.Suspend)
			u.POST("/:id/activate", userH.Activate)
		}

		// Finance
		fin := admin.Group("/finance")
		{
			fin.GET("/withdrawals", financeH.Withdrawals)
			fin.POST("/withdrawals/:id/approve", financeH.ApproveWithdrawal)
			fin.POST("/withdrawals/:id/reject", financeH.RejectWithdrawal)
			fin.GET("/reconcile/:user_id", financeH.Reconcile)
			fin.GET("/ledger/:user_id", financeH.UserLedger)
			fin.GET("/rooms/:code/ledger", financeH.RoomLedger)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT and requires the caller to have a
// backoffice-capable role (admin, finance, ops, readonly).
func adminJWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Require at least one backoffice role
		backofficeRoles := map[string]bool{
			"admin":    true,
			"finance":  true,
			"ops":      true,
			"readonly": true,
		}
		if !backofficeRoles[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}
