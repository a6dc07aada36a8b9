package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/sitegrid/sitegrid_backend/internal/access"
	"github.com/sitegrid/sitegrid_backend/internal/config"
	"github.com/sitegrid/sitegrid_backend/internal/db"
	"github.com/sitegrid/sitegrid_backend/internal/handlers"
	"github.com/sitegrid/sitegrid_backend/internal/middleware"
	"github.com/sitegrid/sitegrid_backend/internal/models"
	"github.com/sitegrid/sitegrid_backend/internal/realtime"
	"github.com/sitegrid/sitegrid_backend/internal/services/escrow"
	"github.com/sitegrid/sitegrid_backend/internal/services/paystack"
	"github.com/sitegrid/sitegrid_backend/internal/services/wallet"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.Project{},
		&models.Assignment{},
		&models.EscrowTransfer{},
		&models.EscrowWithdrawal{},
		&models.Report{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.BankAccount{},
		&models.Milestone{},
	); err != nil {
		log.Fatal(err)
	}

	policy := access.NewPolicy()
	gateway := paystack.NewPaystackService(cfg.PaystackSecret, cfg.PaystackBaseURL)

	walletSvc := wallet.NewWalletService(wallet.NewGormStore(gdb), gateway, policy)
	escrowSvc := escrow.NewEscrowService(escrow.NewGormStore(gdb), policy)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	walletH := handlers.NewWalletHandler(gdb, walletSvc, hub)
	escrowH := handlers.NewEscrowHandler(gdb, escrowSvc, hub)
	projectH := handlers.NewProjectHandler(gdb, hub)
	reportH := handlers.NewReportHandler(gdb, hub)
	milestoneH := handlers.NewMilestoneHandler(gdb, hub)
	chatH := handlers.NewChatHandler(gdb, hub, rdb)
	notifH := handlers.NewNotificationHandler(gdb)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)

	// protected (JWT)
	protected := api.Group("/",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)

	// wallet
	protected.Get("/wallet", walletH.GetWallet)
	protected.Get("/wallet/transactions", walletH.GetTransactions)
	protected.Post("/wallet/deposit", walletH.InitiateDeposit)
	protected.Get("/wallet/deposit/:reference/verify", walletH.VerifyDeposit)
	protected.Post("/wallet/withdraw", walletH.RequestWithdrawal)
	protected.Post("/wallet/pin", walletH.SetPin)
	protected.Get("/wallet/banks", walletH.GetBanks)
	protected.Get("/wallet/banks/resolve", walletH.VerifyAccount)
	protected.Post("/wallet/bank-accounts", walletH.AddBankAccount)
	protected.Get("/wallet/bank-accounts", walletH.ListBankAccounts)
	protected.Delete("/wallet/bank-accounts/:id", walletH.DeleteBankAccount)

	protected.Post("/admin/wallet/withdrawals/:id/cancel",
		middleware.RequireRoles("admin"),
		walletH.CancelWithdrawal,
	)

	// projects
	protected.Post("/projects", middleware.RequireRoles("client"), projectH.Create)
	protected.Get("/projects", projectH.List)
	protected.Get("/projects/:id", projectH.Get)
	protected.Patch("/projects/:id", projectH.Update)
	protected.Post("/projects/:id/accept", middleware.RequireRoles("developer"), projectH.AcceptAssignment)
	protected.Post("/projects/:id/reject", middleware.RequireRoles("developer"), projectH.RejectAssignment)

	protected.Post("/admin/projects/:id/approve", middleware.RequireRoles("admin"), projectH.Approve)
	protected.Post("/admin/projects/:id/reject", middleware.RequireRoles("admin"), projectH.Reject)
	protected.Post("/admin/projects/:id/assign", middleware.RequireRoles("admin"), projectH.AssignDeveloper)

	// milestones
	protected.Get("/milestones/project/:projectId", milestoneH.ListByProject)
	protected.Post("/milestones", middleware.RequireRoles("developer", "admin"), milestoneH.Create)
	protected.Patch("/milestones/:id", middleware.RequireRoles("developer", "admin"), milestoneH.Update)
	protected.Delete("/milestones/:id", middleware.RequireRoles("developer", "admin"), milestoneH.Delete)

	// escrow
	protected.Post("/escrow/transfers", escrowH.CreateTransfer)
	protected.Get("/escrow/transfers", escrowH.ListTransfers)
	protected.Post("/escrow/withdrawals", escrowH.CreateWithdrawal)
	protected.Get("/escrow/withdrawals", escrowH.ListWithdrawals)
	protected.Get("/escrow/stats", escrowH.GetStats)

	protected.Post("/admin/escrow/transfers/:id/approve", middleware.RequireRoles("admin"), escrowH.ApproveTransfer)
	protected.Post("/admin/escrow/transfers/:id/reject", middleware.RequireRoles("admin"), escrowH.RejectTransfer)
	protected.Post("/admin/escrow/withdrawals/:id/approve", middleware.RequireRoles("admin"), escrowH.ApproveWithdrawal)
	protected.Post("/admin/escrow/withdrawals/:id/reject", middleware.RequireRoles("admin"), escrowH.RejectWithdrawal)

	// reports
	protected.Post("/reports", middleware.RequireRoles("developer"), reportH.Create)
	protected.Get("/projects/:projectId/reports", reportH.List)
	protected.Post("/reports/:id/review", reportH.Review)

	// chat
	chat := protected.Group("/chat")
	chat.Get("/conversations", chatH.GetConversations)
	chat.Get("/conversations/:id/messages", chatH.GetMessages)
	chat.Post("/conversations/:id/messages", chatH.SendMessage)
	chat.Patch("/conversations/:id/read", chatH.MarkAsRead)
	chat.Get("/unread", chatH.GetUnreadTotal)

	// notifications
	protected.Get("/notifications", notifH.List)
	protected.Patch("/notifications/:id/read", notifH.MarkRead)
	protected.Patch("/notifications/read-all", notifH.MarkAllRead)

	// WebSocket endpoint (auth via query param, no JWT middleware)
	app.Get("/ws/chat", websocket.New(chatH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
