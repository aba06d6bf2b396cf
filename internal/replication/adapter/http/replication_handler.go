package http

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/replication/usecase"
	apperrors "replication-connector/internal/shared/errors"
	"replication-connector/internal/shared/logger"
	"replication-connector/internal/shared/utils"
)

// ReplicationHandler exposes the connector to the agent host over REST and websocket
type ReplicationHandler struct {
	uc  usecase.ReplicationUsecase
	log logger.Logger
}

// NewReplicationHandler creates a handler
func NewReplicationHandler(uc usecase.ReplicationUsecase, log logger.Logger) *ReplicationHandler {
	return &ReplicationHandler{uc: uc, log: log.WithComponent("replication_http")}
}

// WriteRecordsRequest is a batch of records for one job
type WriteRecordsRequest struct {
	Records []model.Record `json:"records"`
}

// RegisterRoutes registers the replication API. auth guards every route except /health.
func (h *ReplicationHandler) RegisterRoutes(app fiber.Router, auth fiber.Handler) {
	app.Get("/health", h.Health)

	api := app.Group("/api/v1/replication", auth)
	api.Post("/configure", h.ConfigureReplication)
	api.Post("/prepare", h.PrepareWrite)
	api.Post("/jobs/:jobId/records", h.WriteRecords)
	api.Delete("/jobs/:jobId", h.Disconnect)

	api.Use("/jobs/:jobId/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/jobs/:jobId/stream", websocket.New(h.handleStream))
}

// Health reports store connectivity
func (h *ReplicationHandler) Health(c *fiber.Ctx) error {
	if err := h.uc.Ping(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unavailable",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ConfigureReplication validates the replication form
func (h *ReplicationHandler) ConfigureReplication(c *fiber.Ctx) error {
	var req model.ConfigureReplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody(err))
	}
	return c.JSON(h.uc.ConfigureReplication(req))
}

// PrepareWrite reconciles the job's collections before records are streamed
func (h *ReplicationHandler) PrepareWrite(c *fiber.Ctx) error {
	var req model.PrepareWriteRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody(err))
	}

	ctx := utils.WithJobID(c.UserContext(), req.DataVersions.JobID)
	plan, err := h.uc.PrepareWrite(ctx, req)
	if err != nil {
		if apperrors.IsValidation(err) {
			h.log.WithContext(ctx).Warnf("Prepare write rejected: %v", err)
		} else {
			h.log.WithContext(ctx).Errorf("Prepare write failed: %v", err)
		}
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"jobId":       req.DataVersions.JobID,
		"replication": req.IsReplication(),
		"plan":        plan,
	})
}

// WriteRecords writes a batch and returns one ack per record
func (h *ReplicationHandler) WriteRecords(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	var req WriteRecordsRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, errInvalidBody(err))
	}

	acks, err := h.uc.WriteBatch(utils.WithJobID(c.UserContext(), jobID), jobID, req.Records)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"acks":  acks,
		"count": len(acks),
	})
}

// Disconnect drops the job's write session
func (h *ReplicationHandler) Disconnect(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if !h.uc.Disconnect(jobID) {
		return writeError(c, apperrors.NewNotFoundError("write session for job "+jobID).WithCode("session_not_found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// retryAfterSeconds is advertised when a collection has not become ready yet
const retryAfterSeconds = "5"

func errInvalidBody(err error) *apperrors.AppError {
	return apperrors.NewValidationError("Failed to parse request body").
		WithCode("invalid_request_body").
		WithCause(err)
}

// writeError renders err as {error, message} with the status of its AppError
func writeError(c *fiber.Ctx, err error) error {
	appErr := toAppError(err)
	if apperrors.HasCode(err, apperrors.CodeCollectionNotReady) {
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(statusOf(appErr)).JSON(fiber.Map{
		"error":   codeOf(appErr),
		"message": err.Error(),
	})
}

// errorStatus maps a usecase error to an HTTP status and error code
func errorStatus(err error) (int, string) {
	appErr := toAppError(err)
	return statusOf(appErr), codeOf(appErr)
}

// toAppError returns the outermost AppError in err's chain, translating the
// write-path sentinels and wrapping anything else as an internal error.
func toAppError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, apperrors.ErrWriteNotPrepared):
		return apperrors.NewConflictError(err.Error()).WithCode("write_not_prepared").WithCause(err)
	case errors.Is(err, apperrors.ErrReplicationOnly):
		return apperrors.NewValidationError(err.Error()).WithCode("replication_only").WithCause(err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.WrapError(err, "internal error").WithCode("internal_error")
}

func statusOf(appErr *apperrors.AppError) int {
	if appErr.HTTPCode == 0 {
		return fiber.StatusInternalServerError
	}
	return appErr.HTTPCode
}

func codeOf(appErr *apperrors.AppError) string {
	if appErr.Code != "" {
		return appErr.Code
	}
	return string(appErr.Type)
}
