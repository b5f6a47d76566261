package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/therapulse-backend/internal/pkg/ctxutil"
	"github.com/yungbote/therapulse-backend/internal/services"
)

// currentUserID pulls the authenticated therapist id out of the request
// context. The auth middleware guarantees it for protected routes.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errNoAuth)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

var errNoAuth = &authRequiredError{}

type authRequiredError struct{}

func (*authRequiredError) Error() string { return "authentication required" }

const maxUploadBytes = 512 << 20 // 512 MiB, session videos included

func readUpload(c *gin.Context, field string) (string, []byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	if fileHeader.Size > maxUploadBytes {
		return "", nil, errUploadTooLarge
	}
	f, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return "", nil, err
	}
	if int64(len(data)) > maxUploadBytes {
		return "", nil, errUploadTooLarge
	}
	return fileHeader.Filename, data, nil
}

var errUploadTooLarge = &uploadTooLargeError{}

type uploadTooLargeError struct{}

func (*uploadTooLargeError) Error() string { return "uploaded file exceeds size limit" }

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := uh.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "user_not_found", err)
		return
	}
	RespondOK(c, user)
}

func (uh *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.UserProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	user, err := uh.userService.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, user)
}

func (uh *UserHandler) UploadProfileImage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	filename, data, err := readUpload(c, "image")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	url, err := uh.userService.UploadProfileImage(c.Request.Context(), userID, filename, data)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"profile_image": url})
}
