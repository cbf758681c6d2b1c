package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/widgetml/gatekeeper/config"
	"github.com/widgetml/gatekeeper/core"
	"github.com/widgetml/gatekeeper/ports"
	"github.com/widgetml/gatekeeper/service"
)

// AuthHandlers contains HTTP handlers for the token endpoints
type AuthHandlers struct {
	sessions      *service.SessionService
	verifications *service.VerificationService
	challenges    *service.ChallengeService
	accounts      ports.AccountStore
	accessTTL     int64 // seconds, reported as expires_in
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(
	sessions *service.SessionService,
	verifications *service.VerificationService,
	challenges *service.ChallengeService,
	accounts ports.AccountStore,
	cfg *config.Config,
) *AuthHandlers {
	return &AuthHandlers{
		sessions:      sessions,
		verifications: verifications,
		challenges:    challenges,
		accounts:      accounts,
		accessTTL:     int64(cfg.AccessTTL.Seconds()),
	}
}

// Challenge hands out a new human challenge
func (h *AuthHandlers) Challenge(c *gin.Context) {
	challengeID, question, token, err := h.challenges.Issue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_id": challengeID,
		"question":     question,
		"token":        token,
	})
}

// Login issues a session pair for an existing account. Credential checks
// belong to the external account layer; issuance here is gated on a solved
// human challenge and an account existence check.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Identity        uint64 `json:"identity" binding:"required"`
		ChallengeToken  string `json:"challenge_token" binding:"required"`
		ChallengeAnswer string `json:"challenge_answer" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.challenges.Validate(c.Request.Context(), req.ChallengeToken, req.ChallengeAnswer); err != nil {
		c.JSON(challengeStatus(err), gin.H{"error": "Challenge failed"})
		return
	}

	identity := core.Identity(req.Identity)
	if h.accounts != nil {
		if _, err := h.accounts.Lookup(c.Request.Context(), identity); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication failed"})
			return
		}
	}

	pair, err := h.sessions.Issue(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    h.accessTTL,
	})
}

// Refresh rotates a refresh token
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		status := http.StatusUnauthorized
		msg := "Invalid refresh token"

		switch {
		case errors.Is(err, core.ErrTokenExpired):
			msg = "Refresh token expired"
		case errors.Is(err, core.ErrTokenRevoked), errors.Is(err, core.ErrTokenAlreadyUsed):
			msg = "Refresh token has been invalidated"
		case errors.Is(err, core.ErrStoreUnavailable):
			status = http.StatusServiceUnavailable
			msg = "Temporarily unavailable, please retry"
		}

		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    h.accessTTL,
	})
}

// Logout revokes both tokens of the presented pair
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req struct {
		AccessToken  string `json:"access_token" binding:"required"`
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), req.AccessToken, req.RefreshToken); err != nil {
		if errors.Is(err, core.ErrTokenExpired) {
			// An expired pair is as logged out as it gets.
			c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
			return
		}
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable, please retry"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// RevokeAll revokes every session of the authenticated identity
func (h *AuthHandlers) RevokeAll(c *gin.Context) {
	identity, exists := identityFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	if err := h.sessions.RevokeAll(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable, please retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All sessions revoked"})
}

// RequestVerification issues a verification token and hands it to the
// mailer. Password-recovery requests are additionally gated by a human
// challenge, since they can be fired at any account by anyone.
func (h *AuthHandlers) RequestVerification(c *gin.Context) {
	var req struct {
		Identity        uint64 `json:"identity" binding:"required"`
		Purpose         string `json:"purpose" binding:"required"`
		ChallengeToken  string `json:"challenge_token"`
		ChallengeAnswer string `json:"challenge_answer"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	purpose := core.Purpose(req.Purpose)
	if purpose != core.PurposeEmailVerify && purpose != core.PurposePasswordReset {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown purpose"})
		return
	}

	if purpose == core.PurposePasswordReset {
		if req.ChallengeToken == "" || req.ChallengeAnswer == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Challenge required"})
			return
		}
		if err := h.challenges.Validate(c.Request.Context(), req.ChallengeToken, req.ChallengeAnswer); err != nil {
			c.JSON(challengeStatus(err), gin.H{"error": "Challenge failed"})
			return
		}
	}

	if _, err := h.verifications.Issue(c.Request.Context(), core.Identity(req.Identity), purpose); err != nil {
		switch {
		case errors.Is(err, core.ErrAlreadyRequested):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Wait, a link was already sent"})
		case errors.Is(err, core.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable, please retry"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service is temporarily unavailable, please try again later"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "A link was sent"})
}

// ConfirmVerification consumes a verification token
func (h *AuthHandlers) ConfirmVerification(c *gin.Context) {
	var req struct {
		Token   string `json:"token" binding:"required"`
		Purpose string `json:"purpose" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	purpose := core.Purpose(req.Purpose)
	if purpose != core.PurposeEmailVerify && purpose != core.PurposePasswordReset {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown purpose"})
		return
	}

	identity, err := h.verifications.Consume(c.Request.Context(), req.Token, purpose)
	if err != nil {
		if errors.Is(err, core.ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable, please retry"})
			return
		}
		// Expired, consumed, wrong purpose and forged all read the same
		// from outside; the detailed reason is logged server-side.
		c.JSON(http.StatusBadRequest, gin.H{"error": "Link is incorrect or expired"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity": identity,
		"message":  "Confirmed",
	})
}

// Me returns information about the authenticated identity
func (h *AuthHandlers) Me(c *gin.Context) {
	identity, exists := identityFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	if h.accounts != nil {
		profile, err := h.accounts.Lookup(c.Request.Context(), identity)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"identity": profile.Identity,
				"email":    profile.Email,
				"verified": profile.Verified,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"identity": identity})
}

// Authorize reports that the presented token passed the gate
func (h *AuthHandlers) Authorize(c *gin.Context) {
	identity, exists := identityFromContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorized": true,
		"identity":   identity,
	})
}

// challengeStatus maps challenge validation failures to HTTP statuses
// without leaking which check tripped.
func challengeStatus(err error) int {
	if errors.Is(err, core.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}
