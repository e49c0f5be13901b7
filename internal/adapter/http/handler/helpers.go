package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/spamguardian/spam-guardian/internal/domain/entity"
	"github.com/spamguardian/spam-guardian/internal/usecase"
)

// PaginationParams holds pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination extracts pagination parameters, falling back to the
// usecase's list defaults for missing or malformed values.
func ParsePagination(c *gin.Context) *PaginationParams {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(usecase.DefaultListLimit)))
	if err != nil || limit < 1 {
		limit = usecase.DefaultListLimit
	}
	if limit > usecase.MaxListLimit {
		limit = usecase.MaxListLimit
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return &PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}

// ExtractUUIDParam extracts and parses a UUID parameter from the URL path.
func ExtractUUIDParam(c *gin.Context, param string) (uuid.UUID, error) {
	idStr := c.Param(param)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", param, err)
	}
	return id, nil
}

// ParseVerdictFilter reads the label and since query parameters.
// label is "spam" or "ham"; since is an RFC 3339 timestamp.
func ParseVerdictFilter(c *gin.Context) (entity.VerdictFilter, error) {
	var filter entity.VerdictFilter

	switch label := c.Query("label"); label {
	case "":
	case entity.LabelSpam, entity.LabelHam:
		isSpam := label == entity.LabelSpam
		filter.IsSpam = &isSpam
	default:
		return filter, fmt.Errorf("invalid label %q", label)
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return filter, fmt.Errorf("invalid since: %w", err)
		}
		filter.Since = &t
	}

	return filter, nil
}
