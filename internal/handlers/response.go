package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/minisocial/internal/middleware"
	"github.com/joshua-takyi/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError writes the status and public message for err. Unexpected
// errors are attached to the context so ErrorHandler logs them, and the
// client only sees a generic message.
func respondError(c *gin.Context, err error) {
	status := models.HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, models.ApiResponse{
			OK:        false,
			Error:     "Internal server error",
			RequestID: c.GetString("request_id"),
		})
		return
	}
	c.JSON(status, models.ErrorResponse(models.PublicMessage(err)))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse(msg))
}

// requireUser returns the authenticated caller or writes a 401.
func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, models.ErrUnauthenticated)
		return nil, false
	}
	return user, true
}

// objectIDParam parses a hex id path parameter. A malformed id is the same
// as a missing record, so notFound is written on failure.
func objectIDParam(c *gin.Context, name string, notFound error) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		respondError(c, notFound)
		return primitive.NilObjectID, false
	}
	return id, true
}
