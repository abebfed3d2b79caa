package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
	escrowHttp "github.com/nekogravitycat/space-booking-backend/internal/escrow/http"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/space-booking-backend/internal/reservation/http"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/space-booking-backend/internal/user/http"
)

// Config carries everything the router needs to register its modules.
type Config struct {
	IsProduction       bool
	ProdOrigins        string
	Logger             *logrus.Logger
	UserService        user.Service
	ReservationService reservation.Service
	Ledger             escrow.Ledger
	ReleaseChecker     escrowHttp.ReleaseChecker
	JWTManager         *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - RequestLogger: Logs one structured line per request.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(cfg.Logger), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins(cfg.IsProduction, cfg.ProdOrigins)
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	// sysAdminMiddleware: Further checks if the authenticated user has System Admin privileges.
	sysAdminMiddleware := RequireSystemAdmin(cfg.UserService)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService)
	reservationHandler := reservationHttp.NewHandler(cfg.ReservationService)
	escrowHandler := escrowHttp.NewHandler(cfg.Ledger, cfg.ReleaseChecker, cfg.Logger)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, sysAdminMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
		escrowHttp.RegisterRoutes(v1, escrowHandler, authMiddleware, sysAdminMiddleware)
	}

	return r
}

func allowedOrigins(isProduction bool, prodOrigins string) []string {
	if !isProduction {
		return []string{
			"http://localhost:8081", // Swagger
			"http://localhost:3000",
		}
	}
	var origins []string
	for _, o := range strings.Split(prodOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		// cors.New panics on an empty origin list.
		origins = []string{"https://localhost"}
	}
	return origins
}
