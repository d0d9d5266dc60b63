package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"sipHappensAPI/handlers"
	"sipHappensAPI/internal/notification"
	"sipHappensAPI/internal/urlcache"
	"sipHappensAPI/middleware"
	"sipHappensAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	redisClient         *redis.Client
	photoCache          *urlcache.Cache
	notificationService *services.NotificationService
	achievementService  *services.AchievementService
	userService         *services.UserService
	venueService        *services.VenueService
	collectionService   *services.CollectionService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to NeonDB")

	// Redis is optional; without it signed photo URLs are just re-signed on
	// every request.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Printf("Warning: invalid REDIS_URL, running without cache: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: Redis unreachable, running without cache: %v", err)
				redisClient = nil
			} else {
				log.Println("Connected to Redis")
			}
		}
	}

	signer, err := urlcache.NewHMACSigner(os.Getenv("MEDIA_BASE_URL"), os.Getenv("MEDIA_SIGNING_SECRET"))
	if err != nil {
		log.Printf("Warning: photo URL signing disabled: %v", err)
	} else {
		photoCache = urlcache.New(redisClient, signer, 10*time.Minute)
	}

	notificationService = services.NewNotificationService(dbPool)
	achievementService = services.NewAchievementService(dbPool, notificationService)
	userService = services.NewUserService(dbPool, achievementService, photoCache)
	venueService = services.NewVenueService(dbPool)
	collectionService = services.NewCollectionService(dbPool)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}()

	userHandler := handlers.NewUserHandler(userService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	venueHandler := handlers.NewVenueHandler(venueService)
	collectionHandler := handlers.NewCollectionHandler(collectionService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	// Nightly sweep corrects unlock timestamps for users whose achievements
	// were granted late (imports, outages, definition fixes).
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("30 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		report, err := achievementService.BackfillUnlockDates(ctx)
		if err != nil {
			log.Printf("Nightly backfill failed: %v", err)
			return
		}
		log.Printf("Nightly backfill: %d users processed, %d corrections", report.UsersProcessed, report.UpdatedCount)
	}); err != nil {
		log.Printf("Warning: could not schedule nightly backfill: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "sipHappens-api"}`))
	}).Methods("GET")

	standardRouter.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// Admin endpoints share the metrics basic auth.
	api.Handle("/admin/achievements/backfill",
		middleware.BasicAuthMiddleware(http.HandlerFunc(achievementHandler.RunBackfill))).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/display-profile", userHandler.DisplayProfile).Methods("GET")
	protected.HandleFunc("/user/friends", userHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/user/friends", userHandler.AddFriend).Methods("POST")
	protected.HandleFunc("/user/friends", userHandler.RemoveFriend).Methods("DELETE")
	protected.HandleFunc("/user/discovery", userHandler.GetDiscovery).Methods("GET")
	protected.HandleFunc("/user/search", userHandler.SearchUsers).Methods("GET")

	protected.HandleFunc("/user/drink", userHandler.LogDrink).Methods("POST")
	protected.HandleFunc("/user/drink", userHandler.RemoveDrink).Methods("DELETE")
	protected.HandleFunc("/user/cheers", userHandler.AddCheer).Methods("POST")
	protected.HandleFunc("/user/feed", userHandler.GetFeed).Methods("GET")

	protected.HandleFunc("/user/stats", userHandler.GetUserStats).Methods("GET")
	protected.HandleFunc("/user/stats/days-drank", userHandler.GetDaysDrank).Methods("GET")
	protected.HandleFunc("/user/calendar", userHandler.GetCalendar).Methods("GET")
	protected.HandleFunc("/user/leaderboard/friends", userHandler.GetFriendsLeaderboard).Methods("GET")
	protected.HandleFunc("/user/leaderboard/global", userHandler.GetGlobalLeaderboard).Methods("GET")

	protected.HandleFunc("/user/achievements", achievementHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/user/achievements/check", achievementHandler.CheckAchievements).Methods("POST")
	protected.HandleFunc("/user/achievements/celebration", achievementHandler.NextCelebration).Methods("GET")
	protected.HandleFunc("/user/achievements/celebration", achievementHandler.DismissCelebration).Methods("DELETE")

	protected.HandleFunc("/collection", collectionHandler.GetCollection).Methods("GET")
	protected.HandleFunc("/collection/search", collectionHandler.SearchCollection).Methods("GET")

	protected.HandleFunc("/venues", venueHandler.GetAllVenues).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
