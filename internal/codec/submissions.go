package codec

import (
	"context"
	"strings"

	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
)

// AnswerCount is the number of questions in the RIASEC quiz.
const AnswerCount = 50

var submissionSchema = mustSchema(`{
	"type": "object",
	"required": ["riasec", "scores", "answers"],
	"properties": {
		"name":            {"type": "string"},
		"class":           {"type": "string"},
		"school":          {"type": "string"},
		"riasec":          {"type": "array", "items": {"type": "string"}},
		"scores": {
			"type": "object",
			"required": ["R", "I", "A", "S", "E", "C"],
			"properties": {
				"R": {"type": "integer"},
				"I": {"type": "integer"},
				"A": {"type": "integer"},
				"S": {"type": "integer"},
				"E": {"type": "integer"},
				"C": {"type": "integer"}
			}
		},
		"answers": {
			"type": "array",
			"minItems": 50,
			"maxItems": 50,
			"items": {"type": "integer", "minimum": 1, "maximum": 5}
		},
		"suggestedMajors": {"type": "string"},
		"combinations":    {"type": "string"},
		"time":            {"type": "string"}
	}
}`)

// DecodeSubmission validates a quiz submission and fills the defaults for
// the optional identity fields.
func DecodeSubmission(ctx context.Context, raw map[string]any) (models.Submission, error) {
	if raw == nil {
		return models.Submission{}, invalid("invalid_submission")
	}
	kerr, err := checkSchema(ctx, submissionSchema, raw)
	if err != nil {
		return models.Submission{}, err
	}
	if kerr != nil {
		return models.Submission{}, &Error{Reason: submissionReason(kerr.PropertyPath), Detail: kerr.Message}
	}

	var s models.Submission
	if err := store.Decode(store.Document(raw), &s); err != nil {
		return models.Submission{}, &Error{Reason: "invalid_submission", Detail: err.Error()}
	}

	s.Name = orDefault(s.Name, models.AnonymousAuthor)
	s.Class = orDefault(s.Class, "-")
	s.School = orDefault(s.School, "-")
	if strings.TrimSpace(s.Time) == "" {
		s.Time = Timestamp(Now())
	}
	return s, nil
}

// submissionReason maps a schema property path such as "/answers/3" to
// "invalid_answers". Root level failures (missing required keys) map to
// "invalid_submission".
func submissionReason(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "invalid_submission"
	}
	return "invalid_" + snake(strings.SplitN(path, "/", 2)[0])
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func DecodeSubmissionDoc(doc store.Document) (models.Submission, error) {
	var s models.Submission
	err := store.Decode(doc, &s)
	return s, err
}
