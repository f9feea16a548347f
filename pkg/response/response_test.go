package response

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestSuccessResponse(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		data []any
		want Response
	}{
		{
			name: "without data",
			msg:  "Operation successful.",
			want: Response{
				Status:  StatusSuccess,
				Message: "Operation successful.",
			},
		},
		{
			name: "with data",
			msg:  "Operation successful.",
			data: []any{map[string]any{"id": 1}},
			want: Response{
				Status:  StatusSuccess,
				Message: "Operation successful.",
				Data:    map[string]any{"id": 1},
			},
		},
		{
			name: "with multiple data",
			msg:  "Operation successful.",
			data: []any{
				map[string]any{"id": 1},
				map[string]any{"id": 2},
			},
			want: Response{
				Status:  StatusSuccess,
				Message: "Operation successful.",
				Data:    map[string]any{"id": 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuccessResponse(tt.msg, tt.data...)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	type req struct {
		URL   string `validate:"required,url"`
		Alias string `validate:"omitempty,alphanum,max=8"`
		Days  int    `validate:"required,min=1"`
	}

	validate := validator.New()

	t.Run("not a validation error", func(t *testing.T) {
		got := ValidationErrorResponse(errors.New("unknown error"))

		assert.Equal(t, StatusError, got.Status)
		assert.Empty(t, got.Details)
	})

	t.Run("one detail per failed field", func(t *testing.T) {
		err := validate.Struct(req{
			URL:   "not url",
			Alias: "with spaces!",
			Days:  0,
		})

		got := ValidationErrorResponse(err)

		assert.Equal(t, StatusError, got.Status)
		assert.Equal(t, []any{
			"The URL field must be a valid URL.",
			"The Alias field must contain only letters and digits.",
			"The Days field is required.",
		}, got.Details)
	})

	t.Run("min and max params are reported", func(t *testing.T) {
		err := validate.Struct(req{
			URL:   "https://example.com",
			Alias: "toolongalias",
			Days:  1,
		})

		got := ValidationErrorResponse(err)

		assert.Equal(t, []any{
			"The Alias field must be at most 8.",
		}, got.Details)
	})
}
