package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/minisocial/internal/middleware"
	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/joshua-takyi/minisocial/internal/services"
)

type signupRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type otpRequest struct {
	Email string `json:"email" form:"email"`
	OTP   string `json:"otp" form:"otp"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotRequest struct {
	EmailOrUsername string `json:"emailOrUsername" form:"emailOrUsername"`
}

type resetRequest struct {
	Email       string `json:"email" form:"email"`
	OTP         string `json:"otp" form:"otp"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

type deleteAccountRequest struct {
	Password    string `json:"password" form:"password"`
	ConfirmText string `json:"confirmText" form:"confirmText"`
}

func Signup(is *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		user, err := is.Signup(c.Request.Context(), req.Email, req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"message": "Signup successful. Check your email for the OTP.",
			"email":   user.Email,
		})
	}
}

// writeAuth sets the session cookie and returns the bearer token.
func writeAuth(c *gin.Context, cookie middleware.SessionCookie, res *services.AuthResult) {
	cookie.Set(c, res.SessionID)
	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"token": res.Token,
		"user":  res.User.Public(),
	})
}

func VerifyOTP(is *services.IdentityService, cookie middleware.SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req otpRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		res, err := is.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
		if err != nil {
			respondError(c, err)
			return
		}
		writeAuth(c, cookie, res)
	}
}

func Login(is *services.IdentityService, cookie middleware.SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		res, err := is.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		writeAuth(c, cookie, res)
	}
}

func ForgotPassword(is *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req forgotRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		email, err := is.ForgotPassword(c.Request.Context(), req.EmailOrUsername)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"message": "OTP sent to your email",
			"email":   email,
		})
	}
}

func VerifyForgotOTP(is *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req otpRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		if err := is.VerifyForgotOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse("OTP verified"))
	}
}

func ResetPassword(is *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		if err := is.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse("Password reset successful"))
	}
}

// Logout destroys the server-side session and clears the cookie. Bearer
// tokens are dropped by the client.
func Logout(is *services.IdentityService, cookie middleware.SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := cookie.Read(c)
		if err := is.Logout(c.Request.Context(), sessionID); err != nil {
			respondError(c, err)
			return
		}

		cookie.Clear(c)
		c.JSON(http.StatusOK, models.SuccessResponse("Logged out successfully"))
	}
}

func DeleteAccount(is *services.IdentityService, cookie middleware.SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}

		var req deleteAccountRequest
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		if err := is.DeleteAccount(c.Request.Context(), user.ID, req.Password, req.ConfirmText); err != nil {
			respondError(c, err)
			return
		}

		cookie.Clear(c)
		c.JSON(http.StatusOK, models.SuccessResponse("Account deleted"))
	}
}
