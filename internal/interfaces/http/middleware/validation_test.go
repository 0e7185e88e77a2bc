package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welfare/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()
	gin.SetMode(gin.TestMode)

	type paymentInput struct {
		MemberID string `json:"member_id" binding:"required,uuid"`
		Type     string `json:"payment_type" binding:"required,oneof=MONTHLY OTHER"`
	}

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var input paymentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("reports field-level details using json names", func(t *testing.T) {
		body := strings.NewReader(`{"member_id": "not-a-uuid", "payment_type": "WEEKLY"}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "member_id")
		assert.Contains(t, fields, "payment_type")
	})

	t.Run("malformed json gets a plain bad request", func(t *testing.T) {
		body := strings.NewReader(`{"member_id": `)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid input passes through", func(t *testing.T) {
		body := strings.NewReader(`{"member_id": "7a9cdb3e-8c2f-4a64-9c7d-2f1e4e1a0b55", "payment_type": "MONTHLY"}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string `binding:"required"`
		OneOf    string `binding:"oneof=MONTHLY OTHER"`
		UUID     string `binding:"uuid"`
		Min      string `binding:"min=5"`
		GTE      int    `binding:"gte=10"`
	}

	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(input{UUID: "nope", Min: "ab"})
	require.Error(t, err)

	expected := map[string]string{
		"Required": "This field is required",
		"OneOf":    "Must be one of: MONTHLY OTHER",
		"UUID":     "Invalid UUID format",
		"Min":      "Must be at least 5 characters",
		"GTE":      "Must be greater than or equal to 10",
	}

	validationErrs := err.(validator.ValidationErrors)
	for _, e := range validationErrs {
		t.Run(e.Field(), func(t *testing.T) {
			want, ok := expected[e.Field()]
			require.True(t, ok, "unexpected field %s", e.Field())
			assert.Equal(t, want, getValidationMessage(e))
		})
	}
}
