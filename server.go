package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/middlewares"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/models/reports"
	"bitbucket.org/hbfadata/mylar_backend/opssync"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const reportDateLayout = "2006-01-02"

// reportDay reads the optional ?date=YYYY-MM-DD query, defaulting to now.
func reportDay(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(reportDateLayout, raw)
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func tokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		operator := strings.TrimSpace(os.Getenv("OPERATOR_USERNAME"))
		hash := strings.TrimSpace(os.Getenv("OPERATOR_PASSWORD_HASH"))
		if operator == "" || hash == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth not configured"})
			return
		}
		if req.Username != operator || utils.ComparePassword(hash, req.Password) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		token, err := utils.JwtGenerate(req.Username, "operator")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func reportRowsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		today, err := reportDay(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		rows, err := reports.GetSalesTransactionReport(c.Request.Context(), today)
		if err != nil {
			if errors.Is(err, utils.ErrorEmptyInput) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": today.Format(reportDateLayout), "rows": rows})
	}
}

func reportSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		today, err := reportDay(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		summary, err := reports.GetSalesSummaryReport(c.Request.Context(), today)
		if err != nil {
			if errors.Is(err, utils.ErrorEmptyInput) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": today.Format(reportDateLayout), "summary": summary})
	}
}

func reportExcelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		today, err := reportDay(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		data, err := reports.RenderReportExcel(c.Request.Context(), today)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("sales_report_%s.xlsx", today.Format(reportDateLayout))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

func triggerRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req opssync.TriggerRunRequest
		_ = c.ShouldBindJSON(&req)

		today := time.Now()
		if strings.TrimSpace(req.TodayDate) != "" {
			parsed, err := time.Parse(reportDateLayout, req.TodayDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "todayDate must be YYYY-MM-DD"})
				return
			}
			today = parsed
		}

		triggeredBy := strings.TrimSpace(req.TriggeredBy)
		if triggeredBy == "" {
			if claim := middlewares.CtxValue(c.Request.Context()); claim != nil {
				triggeredBy = claim.Subject
			}
		}

		run := &models.ReportRun{
			ID:          uuid.NewString(),
			Status:      models.RunPending,
			TodayDate:   today,
			TriggeredBy: triggeredBy,
		}
		if err := run.Save(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		payload := opssync.ReportRunPayload{RunId: run.ID, TodayDate: today.Format(reportDateLayout)}
		if strings.EqualFold(strings.TrimSpace(os.Getenv("REPORT_RUN_INLINE")), "true") {
			go func() {
				if err := opssync.ProcessReportRun(context.Background(), payload); err != nil {
					config.LogError(logger, "server.go", "triggerRunHandler", "inline run", payload, err)
				}
			}()
		} else if err := opssync.PublishReportRun(c.Request.Context(), run.ID, payload.TodayDate); err != nil {
			config.LogError(logger, "server.go", "triggerRunHandler", "publish run", payload, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not enqueue run"})
			return
		}

		c.JSON(http.StatusAccepted, opssync.RunResponse(run))
	}
}

func runStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := models.GetReportRun(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusOK, opssync.RunResponse(run))
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; allow all elsewhere.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/auth/token", tokenHandler())
	r.POST("/pubsub/report-run", opssync.PubSubPushHandler())

	authed := r.Group("/", middlewares.RequireAuth())
	authed.GET("/report/rows", reportRowsHandler())
	authed.GET("/report/summary", reportSummaryHandler())
	authed.GET("/report/excel", reportExcelHandler())
	authed.POST("/report/run", triggerRunHandler())
	authed.GET("/report/run/:id", runStatusHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that collected errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
