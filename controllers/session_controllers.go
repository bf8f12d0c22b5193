package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/qrdine/services"
	"github.com/yeremiapane/qrdine/utils"
)

type SessionController struct {
	Sessions *services.SessionService
}

func NewSessionController(sessions *services.SessionService) *SessionController {
	return &SessionController{Sessions: sessions}
}

// CheckEligibility -> GET /qr/:qr_id, halaman landing setelah scan
func (sc *SessionController) CheckEligibility(c *gin.Context) {
	elig, err := sc.Sessions.CheckEligibility(c.Request.Context(), c.Param("qr_id"))
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table status", elig)
}

// LookupSession -> re-scan dari device yang sama menemukan sesi yang ada
func (sc *SessionController) LookupSession(c *gin.Context) {
	fingerprint := c.Query("device_fingerprint")
	if fingerprint == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("device_fingerprint is required"))
		return
	}

	session, err := sc.Sessions.LookupExistingSession(c.Request.Context(), c.Param("qr_id"), fingerprint)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Existing session", session)
}

// CreateSession -> buat sesi unverified untuk device ini
func (sc *SessionController) CreateSession(c *gin.Context) {
	var req struct {
		CustomerName      string   `json:"customer_name"`
		CustomerPhone     string   `json:"customer_phone" binding:"required"`
		DeviceFingerprint string   `json:"device_fingerprint" binding:"required"`
		Latitude          *float64 `json:"latitude"`
		Longitude         *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, err := sc.Sessions.CreateSession(c.Request.Context(), services.CreateSessionInput{
		QRID:              c.Param("qr_id"),
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		DeviceFingerprint: req.DeviceFingerprint,
		IP:                c.ClientIP(),
		UserAgent:         c.Request.UserAgent(),
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
	})
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Session created", session)
}

// RequestCode -> POST /verify/request
func (sc *SessionController) RequestCode(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
		QRID  string `json:"qr_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	expiresIn, err := sc.Sessions.RequestCode(c.Request.Context(), req.QRID, req.Phone)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Verification code sent", gin.H{"expires_in": expiresIn})
}

// VerifyCode -> POST /verify/confirm, sukses mengembalikan session token
func (sc *SessionController) VerifyCode(c *gin.Context) {
	var req struct {
		Phone             string `json:"phone" binding:"required"`
		Code              string `json:"code" binding:"required"`
		QRID              string `json:"qr_id" binding:"required"`
		DeviceFingerprint string `json:"device_fingerprint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	session, token, err := sc.Sessions.VerifyAndActivate(c.Request.Context(),
		req.QRID, req.Phone, req.Code, req.DeviceFingerprint)
	if err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session verified", gin.H{
		"session":       session,
		"session_token": token,
	})
}

// EndSession -> customer mengakhiri sesinya sendiri
func (sc *SessionController) EndSession(c *gin.Context) {
	session := sessionFromCtx(c)
	if session == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session missing"))
		return
	}

	if err := sc.Sessions.EndSession(c.Request.Context(), session.RestaurantID, session.ID); err != nil {
		respondServiceErr(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session ended", gin.H{"session_id": session.ID})
}
