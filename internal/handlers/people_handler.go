package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/minisocial/internal/middleware"
	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/joshua-takyi/minisocial/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID is the hex id of an optional caller, or nil.
func currentUserID(c *gin.Context) (primitive.ObjectID, interface{}) {
	if user, ok := middleware.CurrentUser(c); ok {
		return user.ID, user.ID.Hex()
	}
	return primitive.NilObjectID, nil
}

func ListPeople(ss *services.SocialService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.Query("page"))
		perPage, _ := strconv.Atoi(c.Query("perPage"))

		res, err := ss.ListPeople(c.Request.Context(), page, perPage)
		if err != nil {
			respondError(c, err)
			return
		}

		_, current := currentUserID(c)
		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"users":       res.Users,
			"currentPage": res.CurrentPage,
			"totalPages":  res.TotalPages,
			"perPage":     res.PerPage,
			"currentUser": current,
		})
	}
}

func GetProfile(ss *services.SocialService) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, ok := objectIDParam(c, "id", models.ErrUserNotFound)
		if !ok {
			return
		}

		callerID, current := currentUserID(c)
		profile, err := ss.GetProfile(c.Request.Context(), targetID, callerID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"user":        profile.User,
			"posts":       profile.Posts,
			"isFollowing": profile.IsFollowing,
			"currentUser": current,
		})
	}
}

func Follow(ss *services.SocialService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		targetID, ok := objectIDParam(c, "id", models.ErrUserNotFound)
		if !ok {
			return
		}

		res, err := ss.Follow(c.Request.Context(), user.ID, targetID)
		if err != nil {
			respondError(c, err)
			return
		}

		message := "Followed"
		if res.AlreadyFollowing {
			message = "Already following"
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":             true,
			"message":        message,
			"isFollowing":    true,
			"followersCount": res.FollowersCount,
		})
	}
}
