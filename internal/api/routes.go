package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/service"
)

// Services bundles everything the router dispatches to.
type Services struct {
	Accounts   service.AccountService
	Uploads    service.UploadService
	Texts      service.TextService
	Calendars  service.CalendarService
	Extraction service.ExtractionService
}

func SetupRoutes(router *gin.Engine, jwtSecret, bridgeSecret string, svc Services, log logging.Logger) {
	authHandler := NewAuthHandler(svc.Accounts)
	uploadHandler := NewUploadHandler(svc.Uploads, svc.Texts)
	calendarHandler := NewCalendarHandler(svc.Calendars, svc.Extraction)

	router.Use(RequestLogger(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/signin", BridgeSecretMiddleware(bridgeSecret), authHandler.SignIn)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			p := principal(c)
			c.JSON(http.StatusOK, gin.H{"accountId": p.AccountID, "folder": p.Folder()})
		})

		uploadGroup := protected.Group("/uploads")
		{
			uploadGroup.POST("/presign", uploadHandler.Presign)
			uploadGroup.POST("/confirm", uploadHandler.Confirm)
			uploadGroup.GET("", uploadHandler.ListUploads)
			uploadGroup.GET("/cleaned", uploadHandler.ListCleanedSources)
			uploadGroup.DELETE("/:uploadId", uploadHandler.DeleteUpload)
			uploadGroup.GET("/:uploadId/text", uploadHandler.GetUploadText)
		}

		protected.GET("/texts", uploadHandler.GetText)

		calendarGroup := protected.Group("/calendars")
		{
			calendarGroup.POST("", calendarHandler.CreateCalendar)
			calendarGroup.GET("", calendarHandler.ListCalendars)
			calendarGroup.POST("/import", calendarHandler.ImportICS)
			calendarGroup.GET("/:calendarId", calendarHandler.GetCalendar)
			calendarGroup.PUT("/:calendarId", calendarHandler.SaveCalendar)
			calendarGroup.DELETE("/:calendarId", calendarHandler.DeleteCalendar)
			calendarGroup.POST("/:calendarId/extract", calendarHandler.Extract)
			calendarGroup.GET("/:calendarId/ics", calendarHandler.ExportICS)
		}
	}
}
