package routes

import (
	"net/http"

	"tool_custody/app"
	"tool_custody/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	itemCtl := controllers.NewItemController(s)
	trainerCtl := controllers.NewTrainerController(s)
	reportCtl := controllers.NewReportController(s)
	streamCtl := controllers.NewStreamController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.AppSessions(), a.Engine)
	adminMW := app.AdminOnly()
	trainerMW := app.TrainerOnly()
	storeMW := app.StoreGuard(a.Store, a.RDB, a.InstanceID, a.Config.StoreCheckInterval, a.Metrics)

	// Health
	r.GET("/healthz", func(c *app.Ctx) {
		if err := a.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, app.H{"ok": false, "store": "down"})
			return
		}
		c.JSON(http.StatusOK, app.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	api := r.Group("/api", storeMW)

	// ------------------------------
	// 登录（公开）
	// ------------------------------
	auth := api.Group("/auth")
	{
		auth.POST("/admin", authCtl.AdminLogin)
		auth.POST("/trainer", authCtl.TrainerLogin)
		auth.POST("/logout", authCtl.Logout)
		auth.GET("/whoami", authMW, authCtl.WhoAmI)
	}
	api.GET("/trainers/directory", authCtl.Directory)

	// 实时快照（任意已登录会话）
	api.GET("/stream", authMW, streamCtl.Stream)

	// ------------------------------
	// 管理端（主管、库管）
	// ------------------------------
	admin := api.Group("/admin", authMW, adminMW)
	{
		admin.GET("/items", itemCtl.ListItemsAdmin)
		admin.POST("/items", itemCtl.CreateItem)
		admin.PUT("/items/:id/maintenance", itemCtl.SetMaintenance)

		admin.GET("/trainers", trainerCtl.ListTrainers)
		admin.POST("/trainers", trainerCtl.CreateTrainer)
		admin.DELETE("/trainers/:id", trainerCtl.DeleteTrainer)
		admin.PUT("/trainers/:id/password", trainerCtl.ResetPassword)

		admin.POST("/checkouts", itemCtl.AdminCheckout)
		admin.GET("/transactions", itemCtl.ListTransactions) // ?view=active|pending|open&q=
		admin.POST("/transactions/:id/approve", itemCtl.Approve)

		admin.GET("/dashboard", reportCtl.Dashboard)
		admin.GET("/history", reportCtl.History) // ?from=&to=
		admin.GET("/history.csv", reportCtl.HistoryCSV)
		admin.GET("/backup", reportCtl.Backup)
		admin.POST("/backup/archive", reportCtl.Archive)
		admin.POST("/assistant", reportCtl.Assistant)
	}

	// ------------------------------
	// 培训师门户
	// ------------------------------
	portal := api.Group("/portal", authMW, trainerMW)
	{
		portal.GET("/items", itemCtl.ListAvailable) // ?q=
		portal.POST("/items", itemCtl.CreateItem)
		portal.POST("/checkouts", itemCtl.PortalCheckout)
		portal.GET("/loans", itemCtl.MyLoans)
		portal.POST("/loans/:id/return-request", itemCtl.RequestReturn)
		portal.PUT("/password", trainerCtl.ChangeOwnPassword)
	}
}
