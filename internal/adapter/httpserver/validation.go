package httpserver

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// validateStruct runs the tag validator and flattens failures into a
// field→tag map usable as error details.
func validateStruct(v interface{}) (map[string]string, error) {
	err := getValidator().Struct(v)
	if err == nil {
		return nil, nil
	}
	details := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return details, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
}

// maxTranscriptLen caps a client-supplied transcript; longer submissions are
// abuse, not answers.
const maxTranscriptLen = 20000

// sanitizeTranscript strips null bytes, repairs invalid UTF-8 and caps length.
func sanitizeTranscript(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	if len(s) > maxTranscriptLen {
		s = s[:maxTranscriptLen]
	}
	return strings.TrimSpace(s)
}

// parseDuration reads an optional duration_seconds form value; blank is zero.
func parseDuration(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: duration_seconds must be a non-negative number", domain.ErrInvalidArgument)
	}
	return d, nil
}
