package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
)

func parseIDParam(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, apierr.New(http.StatusBadRequest, "invalid_id", errors.New("invalid "+name))
	}
	return uint(id), nil
}
