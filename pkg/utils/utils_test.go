package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderID(t *testing.T) {
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^SCRIM-20260309-[0-9A-F]{12}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		id := GenerateOrderID(now)
		assert.Regexp(t, pattern, id)
		_, dup := seen[id]
		assert.False(t, dup, "duplicate order id %s", id)
		seen[id] = struct{}{}
	}
}

func TestParseInt(t *testing.T) {
	assert.Equal(t, 5, ParseInt("", 5))
	assert.Equal(t, 5, ParseInt("abc", 5))
	assert.Equal(t, 5, ParseInt("0", 5))
	assert.Equal(t, 3, ParseInt("3", 5))
}

func TestPlayerContext(t *testing.T) {
	_, ok := GetPlayerIDFromContext(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	ctx := SetPlayerContext(context.Background(), id, "organizer")

	got, ok := GetPlayerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	role, ok := GetRoleFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "organizer", role)
}

func TestValidateStruct(t *testing.T) {
	type sample struct {
		Name  string `json:"display_name" validate:"required"`
		Email string `json:"email,omitempty" validate:"omitempty,email"`
		Team  string `validate:"omitempty,min=3"`
	}

	errs := ValidateStruct(sample{Email: "not-an-email", Team: "ab"})
	assert.Equal(t, "This field is required", errs["display_name"])
	assert.Equal(t, "Invalid email format", errs["email"])
	assert.Equal(t, "Must be at least 3 characters", errs["Team"])
	assert.Equal(t, "Team: Must be at least 3 characters; display_name: This field is required; email: Invalid email format",
		FormatValidationErrors(errs))

	assert.Nil(t, ValidateStruct(sample{Name: "ok"}))
}

func TestResponseRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/payments/return", nil)

	ResponseRedirect(rec, req, "https://play.example.com/scrims/1?payment=success")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://play.example.com/scrims/1?payment=success", rec.Header().Get("Location"))
}

func TestCalculateTotalPages(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 1, CalculateTotalPages(10, 10))
	assert.Equal(t, 2, CalculateTotalPages(11, 10))
	assert.Equal(t, 20, CalculateOffset(3, 10))
	assert.Equal(t, 0, CalculateOffset(0, 10))
}

func TestNormalizePage(t *testing.T) {
	page, perPage := NormalizePage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPerPage, perPage)

	page, perPage = NormalizePage(4, 500)
	assert.Equal(t, 4, page)
	assert.Equal(t, MaxPerPage, perPage)
}

func TestInitLogger_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := InitLogger(dir, false)
	require.NoError(t, err)

	logger.Info("ledger ready")
	_ = logger.Sync() // stdout sync fails on some terminals

	body, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"msg":"ledger ready"`)
}
