package handlers

import (
	"errors"
	"net/http"
	"time"

	"kiln_controller/internal/kiln"
	"kiln_controller/internal/models"
	"kiln_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK        = "ok"
	statusStarted   = "started"
	statusCancelled = "cancelled"

	errGetStatus       = "failed to load status"
	errGetProfile      = "failed to load profile"
	errStartFiring     = "failed to start firing"
	errCancelFiring    = "failed to cancel firing"
	errGetHistory      = "failed to load history"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// SegmentRequest is one leg of a firing profile.
type SegmentRequest struct {
	// Target temperature in Celsius
	TargetC float64 `json:"target_c" example:"1000"`
	// Ramp rate in Celsius per hour
	RateCPerHour float64 `json:"rate_c_per_hour" example:"150"`
	// Hold time at target in minutes
	HoldMinutes int `json:"hold_min" example:"15"`
}

// FiringRequest is the payload of a firing or estimate request. Exactly four
// segments are required.
type FiringRequest struct {
	Segments []SegmentRequest `json:"segments" binding:"required,len=4"`
}

func (r FiringRequest) profile() models.FiringProfile {
	var p models.FiringProfile
	for i, s := range r.Segments {
		p.Segments[i] = models.Segment{TargetC: s.TargetC, RateCPerHour: s.RateCPerHour, HoldMinutes: s.HoldMinutes}
	}
	return p
}

// cancelRequest is the optional body of a cancel request.
type cancelRequest struct {
	Reason string `json:"reason"`
}

// validationError maps a rejected profile to a 400 body naming the segment.
func validationError(c *gin.Context, err error) {
	resp := gin.H{"error": err.Error()}
	var verr *kiln.ValidationError
	if errors.As(err, &verr) {
		resp["segment"] = verr.Segment + 1
		resp["field"] = verr.Field
	}
	c.JSON(http.StatusBadRequest, resp)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start firing
// @Description  Validates the 4-segment profile and starts a run. Rejected while another firing is in progress.
// @Tags         kiln
// @Accept       json
// @Produce      json
// @Param        body  body      FiringRequest  true  "Firing profile"
// @Success      201   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/kiln/firing [post]
func (h *Handler) startFiring(c *gin.Context) {
	var req FiringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	st, err := h.services.Firing.Start(ctx, req.profile())
	switch {
	case err == nil:
		if h.log != nil {
			h.log.Infow("firing_started", "run_id", st.RunID, "estimated_minutes", st.EstimatedMinutes)
		}
		c.JSON(http.StatusCreated, gin.H{"status": statusStarted, "state": st})
	case errors.Is(err, kiln.ErrFiringInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": st})
	case service.IsValidation(err):
		validationError(c, err)
	case st.RunID != "":
		// the run is live; only the bookkeeping failed
		if h.log != nil {
			h.log.Errorw("firing_bookkeeping_failed", "err", err, "run_id", st.RunID)
		}
		c.JSON(http.StatusCreated, gin.H{"status": statusStarted, "state": st, "warning": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errStartFiring, "firing_start_failed", err)
	}
}

// @Summary      Cancel firing
// @Description  Switches the output off and ends the active run.
// @Tags         kiln
// @Accept       json
// @Produce      json
// @Param        body  body      cancelRequest  false  "Optional reason"
// @Success      200   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/kiln/firing [delete]
func (h *Handler) cancelFiring(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	ctx := c.Request.Context()
	err := h.services.Firing.Cancel(ctx, req.Reason)
	switch {
	case errors.Is(err, kiln.ErrNotFiring):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrBookkeeping):
		// the relay is off and the run is over; only the bookkeeping failed
		if h.log != nil {
			h.log.Errorw("firing_cancel_bookkeeping_failed", "err", err)
		}
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, errCancelFiring, "firing_cancel_failed", err)
		return
	}
	resp := gin.H{"status": statusCancelled}
	if err != nil {
		resp["warning"] = err.Error()
	}
	if st, err := h.services.Monitoring.GetStatus(ctx); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Get kiln status
// @Tags         kiln
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status fields plus active alarms"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/kiln/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.Monitoring.GetStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetStatus, "kiln_get_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Status: st, Alarms: h.services.Monitoring.ActiveAlarms()})
}

type statusResponse struct {
	models.Status
	Alarms []models.AlarmCode `json:"alarms"`
}

// @Summary      Get firing profile
// @Description  Returns the running profile, or the last persisted one.
// @Tags         kiln
// @Produce      json
// @Success      200  {object}  models.FiringProfile
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/kiln/profile [get]
func (h *Handler) getProfile(c *gin.Context) {
	p, ok, err := h.services.Firing.Profile(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetProfile, "kiln_get_profile_failed", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no profile stored"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Estimate firing duration
// @Description  Validates a profile and returns the estimated duration from the current temperature without starting it.
// @Tags         kiln
// @Accept       json
// @Produce      json
// @Param        body  body      FiringRequest  true  "Firing profile"
// @Success      200   {object}  map[string]interface{}  "estimated_minutes"
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/v1/kiln/estimate [post]
func (h *Handler) estimate(c *gin.Context) {
	var req FiringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	minutes, err := h.services.Firing.Estimate(req.profile())
	if err != nil {
		validationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"estimated_minutes": minutes,
		"estimated":         (time.Duration(minutes) * time.Minute).String(),
	})
}

// @Summary      Telemetry history
// @Description  Stored telemetry samples between from and to (defaults to the last hour).
// @Tags         kiln
// @Produce      json
// @Param        from  query     string  false  "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        to    query     string  false  "End of range; date-only is treated as end of day"
// @Success      200   {object}  map[string]interface{}  "count, samples"
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/kiln/history [get]
func (h *Handler) getHistory(c *gin.Context) {
	from, to, ok := parseRange(c)
	if !ok {
		return
	}
	samples, err := h.services.History.Range(c.Request.Context(), service.HistoryFilter{From: from, To: to})
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, errGetHistory, "history_range_failed", err, "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}
