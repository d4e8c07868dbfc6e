package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ParseUUIDParam reads a path parameter as a UUID; on failure it answers 400 and returns false.
func ParseUUIDParam(c *gin.Context, param string) (uuid.UUID, bool) {
	idStr := strings.TrimSpace(c.Param(param))
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a UUID",
			Code:    CodeValidation,
		})
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUIDQuery returns nil when the query parameter is absent.
func parseOptionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Details: "must be a UUID",
			Code:    CodeValidation,
		})
		return nil, false
	}
	return &id, true
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// actorFromContext returns the caller stored by RequireAuth.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return services.Actor{}, false
	}
	id, ok := userID.(uuid.UUID)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(models.UserRole)
	return services.Actor{UserID: id, Role: r}, true
}

func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    CodeUnauthorized,
		})
	}
	return actor, ok
}
