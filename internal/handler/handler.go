package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samithreddychinni/anokha-2025-attendex/internal/auth"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/config"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/hospitality"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/metrics"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/queue"
)

// Handler wires the accommodation workflow to the desk HTTP API.
type Handler struct {
	svc *hospitality.Service
	q   queue.Queue
	log *zap.Logger
	cfg config.App
}

// New creates a handler.
func New(svc *hospitality.Service, q queue.Queue, log *zap.Logger, cfg config.App) *Handler {
	return &Handler{svc: svc, q: q, log: log, cfg: cfg}
}

// response is the uniform envelope every endpoint returns.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data any, message string) {
	c.JSON(status, response{Success: true, Data: data, Message: message})
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), response{Success: false, Error: err.Error()})
}

func statusFor(err error) int {
	switch hospitality.CodeOf(err) {
	case hospitality.CodeInvalidFormat:
		return http.StatusBadRequest
	case hospitality.CodeNotFound, hospitality.CodeProfileNotFound:
		return http.StatusNotFound
	case hospitality.CodeConflict, hospitality.CodeAlreadyCheckedIn:
		return http.StatusConflict
	case hospitality.CodeMissingHostel, hospitality.CodeNoHostelAssigned,
		hospitality.CodeHostelFull, hospitality.CodeInvalidTransition,
		hospitality.CodePaymentNotVerified, hospitality.CodeWrongAccommodation,
		hospitality.CodeNoActiveCheckIn:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Register mounts all routes. Mutating routes are gated by desk role.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/auth/login", h.login)

	v1 := r.Group("/v1", auth.OperatorAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	v1.GET("/students", h.listStudents)
	v1.GET("/students/:hospID", h.getStudent)
	v1.GET("/students/by-student-id/:studentID", h.getStudentByStudentID)
	v1.GET("/hostels", h.listHostels)
	v1.GET("/stats", h.stats)
	v1.GET("/hospitality-ids/:hospID/availability", h.availability)

	hosp1 := v1.Group("", auth.RequireRole(auth.RoleHosp1))
	hosp1.GET("/students/profile/:studentID", h.getProfile)
	hosp1.POST("/students", h.bind)
	hosp1.PATCH("/students/:hospID", h.updateStudent)
	hosp1.POST("/students/:hospID/checkout", h.finalCheckOut)

	v1.POST("/students/:hospID/daily",
		auth.RequireRole(auth.RoleHosp1, auth.RoleSecurity), h.dailyCheckInOut)
	v1.POST("/students/:hospID/payment",
		auth.RequireRole(auth.RoleFinance), h.processPayment)
	v1.POST("/students/:hospID/hostel-checkin",
		auth.RequireRole(auth.RoleHosp2), h.hostelCheckIn)
}

// login issues desk tokens. Operator identity is verified upstream by
// the event SSO; this service only binds a role to a token.
func (h *Handler) login(c *gin.Context) {
	var req struct {
		OperatorID string    `json:"operator_id" binding:"required"`
		Role       auth.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
		return
	}
	tokens, err := auth.Issue(req.OperatorID, req.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	}, "")
}

func (h *Handler) getProfile(c *gin.Context) {
	profile, err := h.svc.LookupProfile(c.Request.Context(), c.Param("studentID"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, profile, "")
}

func (h *Handler) getStudent(c *gin.Context) {
	rec, err := h.svc.GetRecord(c.Request.Context(), c.Param("hospID"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec, "")
}

func (h *Handler) getStudentByStudentID(c *gin.Context) {
	rec, err := h.svc.GetRecordByStudentID(c.Request.Context(), c.Param("studentID"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec, "")
}

func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.svc.ListRecords(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"students": students, "total": len(students)}, "")
}

func (h *Handler) bind(c *gin.Context) {
	var req hospitality.BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
		return
	}
	rec, err := h.svc.Bind(c.Request.Context(), req)
	metrics.ObserveOperation(hospitality.OpBind, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, hospitality.OpBind, rec)
	ok(c, http.StatusCreated, rec, hospitality.RegistrationMessage(rec.AccommodationStatus))
}

func (h *Handler) updateStudent(c *gin.Context) {
	var req struct {
		CheckInDate time.Time `json:"check_in_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
		return
	}
	rec, err := h.svc.UpdateCheckInDate(c.Request.Context(), c.Param("hospID"), req.CheckInDate)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rec, "Student updated successfully")
}

func (h *Handler) processPayment(c *gin.Context) {
	rec, err := h.svc.ProcessPayment(c.Request.Context(), c.Param("hospID"))
	metrics.ObserveOperation(hospitality.OpPayment, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, hospitality.OpPayment, rec)
	ok(c, http.StatusOK, rec, "Payment processed. Redirect student to hostel desk for check-in.")
}

func (h *Handler) hostelCheckIn(c *gin.Context) {
	rec, err := h.svc.HostelCheckIn(c.Request.Context(), c.Param("hospID"))
	metrics.ObserveOperation(hospitality.OpHostelCheckIn, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, hospitality.OpHostelCheckIn, rec)
	ok(c, http.StatusOK, rec, fmt.Sprintf("Checked into %s", rec.HostelName))
}

func (h *Handler) finalCheckOut(c *gin.Context) {
	rec, err := h.svc.FinalCheckOut(c.Request.Context(), c.Param("hospID"))
	metrics.ObserveOperation(hospitality.OpFinalCheckOut, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, hospitality.OpFinalCheckOut, rec)
	ok(c, http.StatusOK, rec, "Final check-out completed")
}

func (h *Handler) dailyCheckInOut(c *gin.Context) {
	var req struct {
		IsCheckingOut bool `json:"is_checking_out"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Success: false, Error: err.Error()})
		return
	}
	op := hospitality.OpDailyCheckIn
	message := "Daily check-in successful"
	if req.IsCheckingOut {
		op = hospitality.OpDailyCheckOut
		message = "Daily check-out successful"
	}
	rec, err := h.svc.DailyCheckInOut(c.Request.Context(), c.Param("hospID"), req.IsCheckingOut)
	metrics.ObserveOperation(op, err)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, op, rec)
	ok(c, http.StatusOK, rec, message)
}

func (h *Handler) availability(c *gin.Context) {
	available, err := h.svc.CheckAvailability(c.Request.Context(), c.Param("hospID"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"available": available}, "")
}

func (h *Handler) listHostels(c *gin.Context) {
	hostels, err := h.svc.Hostels(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"hostels": hostels}, "")
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, st, "")
}

// publish emits a transition event for the audit worker. Publishing is
// best effort; a queue outage must not fail the desk operation.
func (h *Handler) publish(c *gin.Context, operation string, rec *hospitality.StudentRecord) {
	evt := hospitality.TransitionEvent{
		ID:            uuid.NewString(),
		HospitalityID: rec.HospitalityID,
		Operation:     operation,
		Status:        rec.AccommodationStatus,
		At:            rec.UpdatedAt,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("encode transition event", zap.Error(err))
		return
	}
	if err := h.q.Publish(c.Request.Context(), queue.Message{Type: "transition", Body: body}); err != nil {
		h.log.Warn("queue publish failed", zap.String("operation", operation), zap.Error(err))
	}
}
