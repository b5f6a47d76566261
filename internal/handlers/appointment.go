package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/therapulse-backend/internal/services"
)

type AppointmentHandler struct {
	appointmentService services.AppointmentService
}

func NewAppointmentHandler(appointmentService services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

func (ah *AppointmentHandler) Create(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.AppointmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	appointment, err := ah.appointmentService.Create(c.Request.Context(), therapistID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, appointment)
}

func (ah *AppointmentHandler) List(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	appointments, err := ah.appointmentService.List(c.Request.Context(), therapistID, c.Query("date"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, appointments)
}

func (ah *AppointmentHandler) Get(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(c, "appointmentID")
	if !ok {
		return
	}
	appointment, err := ah.appointmentService.Get(c.Request.Context(), therapistID, appointmentID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "appointment_not_found", err)
		return
	}
	RespondOK(c, appointment)
}

func (ah *AppointmentHandler) Update(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(c, "appointmentID")
	if !ok {
		return
	}
	var req services.AppointmentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	appointment, err := ah.appointmentService.Update(c.Request.Context(), therapistID, appointmentID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, appointment)
}

func (ah *AppointmentHandler) Delete(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(c, "appointmentID")
	if !ok {
		return
	}
	if err := ah.appointmentService.Delete(c.Request.Context(), therapistID, appointmentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
