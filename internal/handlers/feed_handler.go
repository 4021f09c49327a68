package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/joshua-takyi/minisocial/internal/services"
)

type contentRequest struct {
	Content string `json:"content" form:"content"`
}

func GetFeed(fs *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		posts, current, err := fs.GetFeed(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"posts":       posts,
			"currentUser": current.Public(),
		})
	}
}

func CreatePost(fs *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		var req contentRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		post, err := fs.CreatePost(c.Request.Context(), user.ID, req.Content)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true, "post": post})
	}
}

func ToggleLike(fs *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		postID, ok := objectIDParam(c, "id", models.ErrPostNotFound)
		if !ok {
			return
		}

		res, err := fs.ToggleLike(c.Request.Context(), user.ID, postID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"liked":      res.Liked,
			"likesCount": res.LikesCount,
			"likes":      res.Likes,
		})
	}
}

func EditPost(fs *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		postID, ok := objectIDParam(c, "id", models.ErrPostNotFound)
		if !ok {
			return
		}

		var req contentRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		post, err := fs.EditPost(c.Request.Context(), user.ID, postID, req.Content)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "post": post})
	}
}

func DeletePost(fs *services.FeedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		postID, ok := objectIDParam(c, "id", models.ErrPostNotFound)
		if !ok {
			return
		}

		if err := fs.DeletePost(c.Request.Context(), user.ID, postID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse("Post deleted"))
	}
}
