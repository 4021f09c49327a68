package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/minisocial/internal/helpers"
	"github.com/joshua-takyi/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConfirmDeletePhrase must be typed exactly to delete an account.
const ConfirmDeletePhrase = "DELETE"

type IdentityConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	SessionTTL     time.Duration
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// AuthResult is what a successful login or verification hands back: the
// user, a bearer token and a server-side session id.
type AuthResult struct {
	User      *models.User
	Token     string
	SessionID string
}

type IdentityService struct {
	userRepo models.UserRepo
	postRepo models.PostRepo
	sessions models.SessionStore
	attempts models.AttemptLimiter
	mailer   helpers.Mailer
	logger   *slog.Logger
	cfg      IdentityConfig
	now      func() time.Time
}

// NewIdentityService wires the identity flows. attempts may be nil, which
// disables OTP attempt limiting.
func NewIdentityService(
	userRepo models.UserRepo,
	postRepo models.PostRepo,
	sessions models.SessionStore,
	attempts models.AttemptLimiter,
	mailer helpers.Mailer,
	logger *slog.Logger,
	cfg IdentityConfig,
) *IdentityService {
	return &IdentityService{
		userRepo: userRepo,
		postRepo: postRepo,
		sessions: sessions,
		attempts: attempts,
		mailer:   mailer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (is *IdentityService) Signup(ctx context.Context, email, username, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return nil, fmt.Errorf("Email, username and password are required: %w", models.ErrValidation)
	}
	if err := models.Validate.Var(email, "email"); err != nil {
		return nil, fmt.Errorf("Invalid email address: %w", models.ErrValidation)
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	otp, err := helpers.GenerateOTP()
	if err != nil {
		return nil, err
	}

	now := is.now()
	expiry := now.Add(is.cfg.OTPTTL)
	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		OTP:          otp,
		OTPExpiry:    &expiry,
		OTPVerified:  false,
	}
	user.BeforeCreate(now)
	if err := models.Validate.Struct(user); err != nil {
		return nil, fmt.Errorf("Invalid signup data: %w", models.ErrValidation)
	}

	if err := is.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	is.sendOTP(ctx, user.Email, otp, helpers.SignupOTPSubject)
	return user, nil
}

// sendOTP is best-effort. A delivery failure is logged and the calling
// flow still succeeds.
func (is *IdentityService) sendOTP(ctx context.Context, to, otp, subject string) {
	if err := is.mailer.SendOTP(ctx, to, otp, subject, is.cfg.OTPTTL); err != nil {
		is.logger.Warn("Failed to send OTP email", "to", to, "subject", subject, "error", err)
		return
	}
	is.logger.Info("OTP email sent", "to", to, "subject", subject)
}

func (is *IdentityService) VerifyOTP(ctx context.Context, email, otp string) (*AuthResult, error) {
	otp = strings.TrimSpace(otp)
	user, err := is.userForOTP(ctx, email, otp)
	if err != nil {
		return nil, err
	}

	ok, err := is.userRepo.ConsumeOTP(ctx, user.ID, otp)
	if err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		// consumed by a concurrent request
		return nil, models.ErrInvalidOTP
	}
	is.resetAttempts(ctx, user.Email)

	user.OTPVerified = true
	user.OTP = ""
	user.OTPExpiry = nil
	return is.startSession(ctx, user)
}

func (is *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("Email and password are required: %w", models.ErrValidation)
	}

	user, err := is.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !helpers.CheckPassword(user.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}

	return is.startSession(ctx, user)
}

// ForgotPassword issues a fresh reset OTP and returns the account email.
func (is *IdentityService) ForgotPassword(ctx context.Context, identifier string) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", fmt.Errorf("Email or username is required: %w", models.ErrValidation)
	}

	user, err := is.userRepo.GetUserByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("No user found with that email or username: %w", models.ErrNotFound)
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	otp, err := helpers.GenerateOTP()
	if err != nil {
		return "", err
	}
	if err := is.userRepo.SetOTP(ctx, user.ID, otp, is.now().Add(is.cfg.OTPTTL)); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	is.resetAttempts(ctx, user.Email)

	is.sendOTP(ctx, user.Email, otp, helpers.ResetOTPSubject)
	return user.Email, nil
}

// VerifyForgotOTP checks a reset code without consuming it. The code is
// checked again by ResetPassword, so a match clears the attempt counter.
func (is *IdentityService) VerifyForgotOTP(ctx context.Context, email, otp string) error {
	user, err := is.userForOTP(ctx, email, strings.TrimSpace(otp))
	if err != nil {
		return err
	}
	is.resetAttempts(ctx, user.Email)
	return nil
}

func (is *IdentityService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("New password is required: %w", models.ErrValidation)
	}
	otp = strings.TrimSpace(otp)

	user, err := is.userForOTP(ctx, email, otp)
	if err != nil {
		return err
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := is.userRepo.ResetPassword(ctx, user.ID, otp, hash)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if !ok {
		return models.ErrInvalidOTP
	}
	is.resetAttempts(ctx, user.Email)
	return nil
}

func (is *IdentityService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := is.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DeleteAccount removes the user together with their posts, their likes
// and every follow edge that points at them, then ends their sessions.
func (is *IdentityService) DeleteAccount(ctx context.Context, userID primitive.ObjectID, password, confirmText string) error {
	user, err := is.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !helpers.CheckPassword(user.PasswordHash, password) {
		return fmt.Errorf("Password you entered is incorrect: %w", models.ErrInvalidCredentials)
	}
	if confirmText != ConfirmDeletePhrase {
		return models.ErrConfirmation
	}

	removed, err := is.postRepo.DeletePostsByAuthor(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	if err := is.postRepo.PullLikesByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to remove likes: %w", err)
	}
	if err := is.userRepo.RemoveFromFollowGraph(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to remove follows: %w", err)
	}
	if err := is.userRepo.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := is.sessions.DeleteUserSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to destroy sessions: %w", err)
	}

	is.logger.Info("Account deleted", "user_id", user.ID.Hex(), "posts_removed", removed)
	return nil
}

// userForOTP loads the user by email and checks otp against the stored
// code: unknown email, then attempt limit, then mismatch, then expiry.
func (is *IdentityService) userForOTP(ctx context.Context, email, otp string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || otp == "" {
		return nil, fmt.Errorf("Email and OTP are required: %w", models.ErrValidation)
	}

	user, err := is.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := is.registerAttempt(ctx, user.Email); err != nil {
		return nil, err
	}
	if user.OTP == "" || user.OTP != otp {
		return nil, models.ErrInvalidOTP
	}
	if user.OTPExpiry == nil || is.now().After(*user.OTPExpiry) {
		return nil, models.ErrExpiredOTP
	}
	return user, nil
}

func (is *IdentityService) registerAttempt(ctx context.Context, email string) error {
	if is.attempts == nil || is.cfg.OTPMaxAttempts <= 0 {
		return nil
	}
	n, err := is.attempts.RegisterAttempt(ctx, email, is.cfg.OTPTTL)
	if err != nil {
		return fmt.Errorf("failed to register otp attempt: %w", err)
	}
	if n > int64(is.cfg.OTPMaxAttempts) {
		return models.ErrTooManyAttempts
	}
	return nil
}

func (is *IdentityService) resetAttempts(ctx context.Context, email string) {
	if is.attempts == nil {
		return
	}
	if err := is.attempts.ResetAttempts(ctx, email); err != nil {
		is.logger.Warn("Failed to reset OTP attempts", "email", email, "error", err)
	}
}

func (is *IdentityService) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	sessionID := helpers.NewSessionID()
	if err := is.sessions.CreateSession(ctx, sessionID, user.ID, is.cfg.SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := helpers.IssueToken(user.ID.Hex(), is.cfg.JWTSecret, is.cfg.TokenTTL, is.now())
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Token: token, SessionID: sessionID}, nil
}
