package transport

import (
	"bytes"
	"context"
	"errors"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/anime-shed/certscan-go/internal/config"
	apperrors "github.com/anime-shed/certscan-go/internal/errors"
	"github.com/anime-shed/certscan-go/internal/frame"
	"github.com/anime-shed/certscan-go/internal/logger"
	"github.com/anime-shed/certscan-go/internal/service"
	"github.com/anime-shed/certscan-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func NewHandler(svc service.ScanService, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(svc))
	r.GET("/metrics", metrics(svc))
	r.GET("/manual/sample", manualSample)

	sessions := r.Group("/sessions")
	{
		sessions.POST("", createSession(svc))
		sessions.GET("", listSessions(svc))
		sessions.GET("/:id", getSession(svc))
		sessions.DELETE("/:id", closeSession(svc))
		sessions.POST("/:id/start", startSession(svc))
		sessions.POST("/:id/frames", pushFrame(svc, cfg.MaxFramePixels))
		sessions.POST("/:id/device-error", reportDeviceError(svc))
		sessions.POST("/:id/switch", switchFacing(svc))
		sessions.POST("/:id/torch", toggleTorch(svc))
		sessions.POST("/:id/manual", submitManual(svc))
	}

	return r
}

func createSession(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		resp, err := svc.CreateSession(req)
		if err != nil {
			respondAppError(c, "failed to create session", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"session_id": resp.ID,
			"device":     resp.Device,
			"profile":    resp.Profile,
			"ip":         c.ClientIP(),
		}).Info("Session created")
		c.JSON(http.StatusCreated, resp)
	}
}

func listSessions(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.ListSessions())
	}
}

func getSession(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := svc.GetSession(c.Param("id"))
		if err != nil {
			respondAppError(c, "failed to get session", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func closeSession(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.CloseSession(c.Param("id")); err != nil {
			respondAppError(c, "failed to close session", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// startSession returns as soon as the acquisition is requested; clients poll
// the session for the grant
func startSession(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := svc.StartSession(c.Param("id"))
		if err != nil {
			respondAppError(c, "failed to start session", err)
			return
		}
		c.JSON(http.StatusAccepted, resp)
	}
}

// pushFrame rejects frames declaring more than maxPixels pixels before
// decoding them
func pushFrame(svc service.ScanService, maxPixels int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respondError(c, http.StatusRequestEntityTooLarge, "frame too large", err)
				return
			}
			respondError(c, http.StatusBadRequest, "failed to read frame", err)
			return
		}
		img, format, err := frame.DecodeImage(bytes.NewReader(body), maxPixels)
		if errors.Is(err, frame.ErrTooManyPixels) {
			respondError(c, http.StatusRequestEntityTooLarge, "frame too large", err)
			return
		}
		if err != nil {
			respondError(c, http.StatusUnsupportedMediaType, "frame must be a PNG or JPEG image", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"session_id": c.Param("id"),
			"format":     format,
			"bytes":      len(body),
		}).Debug("Frame received")

		resp, err := svc.PushFrame(c.Param("id"), img)
		if err != nil {
			respondAppError(c, "failed to push frame", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func reportDeviceError(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DeviceErrorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		resp, err := svc.ReportDeviceError(c.Param("id"), req.Error)
		if err != nil {
			respondAppError(c, "failed to report device error", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func switchFacing(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := svc.SwitchFacing(c.Param("id"))
		if err != nil {
			respondAppError(c, "failed to switch camera", err)
			return
		}
		c.JSON(http.StatusAccepted, resp)
	}
}

func toggleTorch(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := svc.ToggleTorch(c.Param("id"))
		if err != nil {
			respondAppError(c, "failed to toggle torch", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// submitManual answers 422 with the validation details for rejected input so
// the operator can correct it inline
func submitManual(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ManualEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		resp, err := svc.SubmitManual(c.Param("id"), req.Payload)
		if err != nil {
			respondAppError(c, "manual entry rejected", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func manualSample(c *gin.Context) {
	c.JSON(http.StatusOK, models.SamplePayload(time.Now()))
}

func healthCheck(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   "available",
			Time:     time.Now().UTC().Format(time.RFC3339),
			Sessions: svc.SessionCount(),
		})
	}
}

func metrics(svc service.ScanService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Metrics())
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError answers with the status and operator message carried by err
func respondAppError(c *gin.Context, message string, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		respondError(c, determineStatusCode(err), message, err)
		return
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": appErr.StatusCode,
		"error_type":  appErr.Type,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Warn(message)
	}

	c.AbortWithStatusJSON(appErr.StatusCode, models.ErrorResponse{
		Error:   string(appErr.Type),
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message + ": " + err.Error(),
	})
}
