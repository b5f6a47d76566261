package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/therapulse-backend/internal/services"
)

type PatientHandler struct {
	patientService services.PatientService
}

func NewPatientHandler(patientService services.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (ph *PatientHandler) Create(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.PatientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	patient, err := ph.patientService.Create(c.Request.Context(), therapistID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, patient)
}

func (ph *PatientHandler) List(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patients, err := ph.patientService.List(c.Request.Context(), therapistID, c.Query("status"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, patients)
}

func (ph *PatientHandler) Get(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	patient, err := ph.patientService.Get(c.Request.Context(), therapistID, patientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, patient)
}

func (ph *PatientHandler) Update(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	var req services.PatientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	patient, err := ph.patientService.Update(c.Request.Context(), therapistID, patientID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, patient)
}

func (ph *PatientHandler) Delete(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	if err := ph.patientService.Delete(c.Request.Context(), therapistID, patientID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (ph *PatientHandler) UploadDocument(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	filename, data, err := readUpload(c, "file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	doc, err := ph.patientService.UploadDocument(c.Request.Context(), therapistID, patientID, c.PostForm("title"), filename, data)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, doc)
}

func (ph *PatientHandler) DeleteDocument(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	documentID, ok := pathUUID(c, "documentID")
	if !ok {
		return
	}
	if err := ph.patientService.DeleteDocument(c.Request.Context(), therapistID, patientID, documentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
