package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/tutor-api/internal/middleware"
	"github.com/tutorbase/tutor-api/internal/models"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
	"github.com/tutorbase/tutor-api/pkg/response"
)

const defaultPageSize = 50

// requireClaims pulls the authenticated user's claims out of the request
// context. When the JWT middleware did not run or stored something
// unexpected, it writes the 401 itself and the caller just returns.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok || claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// pageQuery parses the page and limit query parameters shared by every
// list endpoint. Out-of-range values fall back rather than erroring, since
// the repositories clamp again before building SQL.
func pageQuery(c *gin.Context) (page, size int) {
	page, size = 1, defaultPageSize
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize))); err == nil && v > 0 {
		size = v
	}
	return page, size
}
