package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/ledger"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/internal/workflow"
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Property Workflow API
// @version         1.0
// @description     Workflow and ledger core for property operations: leave approval, cash registers, kitchen orders, housekeeping.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Permission middleware needs direct DB access for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	kotRepo := repository.NewKOTRepository(db)
	housekeepingRepo := repository.NewHousekeepingRepository(db)

	propagator := workflow.NewPropagator(txManager, idemRepo, wsHub, logger)
	ledgerEngine := ledger.NewService(registerRepo, txManager, logger)

	userService := service.NewUserService(userRepo)
	auditService := service.NewAuditService(auditRepo)
	roleService := service.NewRoleService(db)
	leaveService := service.NewLeaveService(leaveRepo, attendanceRepo, auditRepo, txManager, propagator)
	ledgerService := service.NewLedgerService(ledgerEngine, auditRepo, txManager)
	kotService := service.NewKOTService(kotRepo, auditRepo, txManager, propagator, ledgerEngine, service.KOTConfig{
		RequireItemsServed: os.Getenv("KOT_ALLOW_PENDING_CLOSE") != "true",
	})
	housekeepingService := service.NewHousekeepingService(housekeepingRepo, auditRepo, txManager, propagator)

	// Seed default roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Println("WARNING: Failed to seed roles/permissions:", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditService)
	roleHandler := handler.NewRoleHandler(roleService)
	leaveHandler := handler.NewLeaveHandler(leaveService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)
	kotHandler := handler.NewKOTHandler(kotService)
	housekeepingHandler := handler.NewHousekeepingHandler(housekeepingService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint — streams committed transition events
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	leaveHandler.RegisterRoutes(router.Group(""))
	ledgerHandler.RegisterRoutes(router.Group(""))
	kotHandler.RegisterRoutes(router.Group(""))
	housekeepingHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
