package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/api"
	"github.com/nekogravitycat/space-booking-backend/internal/auth"
	"github.com/nekogravitycat/space-booking-backend/internal/booking"
	"github.com/nekogravitycat/space-booking-backend/internal/db"
	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
	"github.com/nekogravitycat/space-booking-backend/internal/listing"
	"github.com/nekogravitycat/space-booking-backend/internal/lock"
	"github.com/nekogravitycat/space-booking-backend/internal/logging"
	"github.com/nekogravitycat/space-booking-backend/internal/payment"
	"github.com/nekogravitycat/space-booking-backend/internal/pricing"
	"github.com/nekogravitycat/space-booking-backend/internal/reservation"
	"github.com/nekogravitycat/space-booking-backend/internal/scheduler"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	// DBPool may be nil, in which case every store is kept in memory.
	DBPool *pgxpool.Pool
	// Redis may be nil, in which case locks only cover this process.
	Redis     *redis.Client
	JWTSecret string
	JWTTTL    time.Duration
	Logger    *logrus.Logger

	ServiceFeeRate  float64
	ReleasePolicy   escrow.Policy
	ReleaseInterval time.Duration
	Now             func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
	Scheduler  *scheduler.Scheduler
	Gateway    *payment.MockGateway

	// Set only when running without a database.
	Listings *listing.MemoryRepository
	Users    *user.MemoryRepository
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.ServiceFeeRate == 0 {
		cfg.ServiceFeeRate = pricing.DefaultServiceFeeRate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &Container{}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var (
		listingRepo listing.Repository
		userRepo    user.Repository
		bookingRepo booking.Repository
		escrowRepo  escrow.Repository
	)
	if cfg.DBPool != nil {
		listingRepo = listing.NewPgxRepository(cfg.DBPool, logger)
		userRepo = user.NewPgxRepository(cfg.DBPool)
		bookingRepo = booking.NewPgxRepository(cfg.DBPool)
		escrowRepo = escrow.NewSQLRepository(db.OpenSQL(cfg.DBPool), logger)
	} else {
		logger.Warn("no database configured, using in-memory stores")
		c.Listings = listing.NewMemoryRepository()
		c.Users = user.NewMemoryRepository()
		listingRepo = c.Listings
		userRepo = c.Users
		bookingRepo = booking.NewMemoryRepository()
		escrowRepo = escrow.NewMemoryRepository()
	}

	var locker lock.Locker
	if cfg.Redis != nil {
		locker = lock.NewRedisLocker(cfg.Redis, "space-booking:")
	} else {
		locker = lock.NewLocalLocker()
	}

	// Listing & User Modules
	listingService := listing.NewService(listingRepo)
	userService := user.NewService(userRepo)

	// Booking Module
	bookingService := booking.NewService(bookingRepo)

	// Escrow Module
	ledger := escrow.NewLedger(escrowRepo, bookingService, logger)

	// Payment gateway
	c.Gateway = payment.NewMockGateway(nil)

	// Reservation Module
	reservationService := reservation.NewService(reservation.Deps{
		Listings:   listingService,
		Users:      userService,
		Bookings:   bookingService,
		Ledger:     ledger,
		Gateway:    c.Gateway,
		Calculator: pricing.NewCalculator(cfg.ServiceFeeRate),
		Locker:     locker,
		Logger:     logger,
		Policy:     cfg.ReleasePolicy,
		Now:        cfg.Now,
	})

	// Release Scheduler
	c.Scheduler = scheduler.New(bookingService, listingService, ledger, logger, scheduler.Options{
		Interval: cfg.ReleaseInterval,
		Locker:   locker,
		Now:      cfg.Now,
	})

	// Router
	c.Router = api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		Logger:             logger,
		UserService:        userService,
		ReservationService: reservationService,
		Ledger:             ledger,
		ReleaseChecker:     c.Scheduler,
		JWTManager:         jwtManager,
	})
	c.JWTManager = jwtManager

	return c
}
