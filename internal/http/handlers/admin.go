package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/csvshare-backend/internal/http/response"
	"github.com/yungbote/csvshare-backend/internal/platform/ctxutil"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/services"
)

type AdminHandler struct {
	log         *logger.Logger
	csvService  services.CSVService
	userService services.UserService
}

func NewAdminHandler(log *logger.Logger, csvService services.CSVService, userService services.UserService) *AdminHandler {
	return &AdminHandler{
		log:         log.With("handler", "AdminHandler"),
		csvService:  csvService,
		userService: userService,
	}
}

// POST /api/admin/csv/upload (multipart field "file")
func (h *AdminHandler) UploadCSV(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("Not authenticated"))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer f.Close()

	record, err := h.csvService.Upload(c.Request.Context(), rd.UserID, fh.Filename, f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, record)
}

// DELETE /api/admin/csv/:id
func (h *AdminHandler) DeleteCSV(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.csvService.Delete(c.Request.Context(), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/admin/csv
func (h *AdminHandler) ListCSV(c *gin.Context) {
	files, err := h.csvService.List(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, files)
}

// GET /api/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	response.RespondOK(c, out)
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("Not authenticated"))
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.userService.Delete(c.Request.Context(), rd.UserID, id); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
