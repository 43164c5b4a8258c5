package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/heritage-api/internal/middleware"
	"github.com/noah-isme/heritage-api/internal/models"
	appErrors "github.com/noah-isme/heritage-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// pageRequest reads page and limit. Absent values take defaults; malformed ones are rejected.
func pageRequest(c *gin.Context) (models.PageRequest, error) {
	var req models.PageRequest
	var err error
	if req.Page, err = positiveQuery(c, "page"); err != nil {
		return req, err
	}
	if req.Limit, err = positiveQuery(c, "limit"); err != nil {
		return req, err
	}
	return req.Normalize(), nil
}

func positiveQuery(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return v, nil
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return &v, nil
}

func optionalDate(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a date (YYYY-MM-DD)")
		}
	}
	return &t, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

// actor returns the authenticated user placed on the context by the auth middleware.
func actor(c *gin.Context) (*models.User, error) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return user, nil
}

func upper(c *gin.Context, key string) string {
	return strings.ToUpper(strings.TrimSpace(c.Query(key)))
}
