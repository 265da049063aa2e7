package main

import (
	"context"
	"log"
	"os"
	"time"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/crypto/bcrypt"
)

// @title           Sales Management API
// @version         1.0
// @description     Sales backend with hierarchical role-based access control.
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

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	if err := seedAdmin(userRepo, roleRepo); err != nil {
		log.Println("WARNING: admin seed failed:", err)
	}

	// Sweep expired refresh tokens hourly
	go func() {
		for range time.Tick(time.Hour) {
			if err := userRepo.DeleteExpiredRefreshTokens(context.Background()); err != nil {
				log.Println("WARNING: refresh token sweep failed:", err)
			}
		}
	}()

	authService := service.NewAuthService(userRepo, middleware.GetJWTSecret())
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, txManager)
	roleService := service.NewRoleService(roleRepo, userRepo, auditRepo, txManager)
	customerService := service.NewCustomerService(customerRepo, roleRepo, userRepo)
	productService := service.NewProductService(productRepo, roleRepo, userRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, productRepo, customerRepo, roleRepo, userRepo, auditRepo, txManager, wsHub)
	statisticsService := service.NewStatisticsService(db)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	customerHandler := handler.NewCustomerHandler(customerService)
	productHandler := handler.NewProductHandler(productService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)
	auditHandler := handler.NewAuditHandler(auditService)

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

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Public auth routes, everything else behind authentication
	authHandler.RegisterRoutes(router.Group(""))

	protected := router.Group("", middleware.Authenticate(userRepo))
	authHandler.RegisterProtectedRoutes(protected)
	userHandler.RegisterRoutes(protected)
	roleHandler.RegisterRoutes(protected)
	customerHandler.RegisterRoutes(protected)
	productHandler.RegisterRoutes(protected)
	invoiceHandler.RegisterRoutes(protected)
	statisticsHandler.RegisterRoutes(protected)
	auditHandler.RegisterRoutes(protected)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// seedAdmin guarantees one admin role and one superuser account exist so
// a fresh database is usable. Credentials come from ADMIN_EMAIL and
// ADMIN_PASSWORD; nothing is touched when the account already exists.
func seedAdmin(userRepo repository.UserRepository, roleRepo repository.RoleRepository) error {
	ctx := context.Background()

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	if _, err := userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	}

	var adminRole *model.Role
	roles, err := roleRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range roles {
		if roles[i].IsAdmin() {
			adminRole = &roles[i]
			break
		}
	}
	if adminRole == nil {
		adminRole = &model.Role{Name: model.AdminRoleName, Active: true}
		if err := roleRepo.Create(ctx, adminRole); err != nil {
			return err
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &model.User{
		Name:      "Administrator",
		Email:     email,
		Password:  string(hashed),
		RoleID:    &adminRole.ID,
		Active:    true,
		Superuser: true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return err
	}
	log.Println("Seeded admin account:", email)
	return nil
}
