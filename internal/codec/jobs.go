package codec

import (
	"context"
	"fmt"
	"strings"

	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
)

// DefaultJobIcon is used when a catalog entry has no icon.
const DefaultJobIcon = "🎬"

var jobSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"id":          {"type": "string"},
		"title":       {"type": "string"},
		"videoId":     {"type": "string"},
		"riasecCode":  {"type": "string"},
		"description": {"type": "string"},
		"icon":        {"type": "string"}
	}
}`)

var requiredJobFields = []string{"id", "title", "videoId", "riasecCode"}

// NormalizeRiasec uppercases code and drops every character outside RIASEC,
// so "r-i-c" becomes "RIC". The result must be exactly three letters.
func NormalizeRiasec(code string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if strings.ContainsRune("RIASEC", r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	return out, len(out) == 3
}

// DecodeJobs validates a whole catalog batch before anything is written.
// The first failure wins, in this order per entry: shape, required fields,
// RIASEC code, duplicate id.
func DecodeJobs(ctx context.Context, payload any, allowEmpty bool) ([]models.Job, error) {
	generic, err := toGeneric(payload)
	if err != nil {
		return nil, invalid("jobs_must_be_list")
	}
	items, ok := generic.([]any)
	if !ok {
		return nil, invalid("jobs_must_be_list")
	}
	if len(items) == 0 && !allowEmpty {
		return nil, invalid("empty_jobs")
	}

	jobs := make([]models.Job, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalid(fmt.Sprintf("invalid_job_%d", i))
		}
		kerr, err := checkSchema(ctx, jobSchema, m)
		if err != nil {
			return nil, err
		}
		if kerr != nil {
			return nil, &Error{Reason: fmt.Sprintf("invalid_job_%d", i), Detail: kerr.Message}
		}
		for _, f := range requiredJobFields {
			if v, _ := m[f].(string); strings.TrimSpace(v) == "" {
				return nil, invalid(fmt.Sprintf("missing_%s_%d", f, i))
			}
		}

		job := models.Job{
			ID:          strings.TrimSpace(m["id"].(string)),
			Title:       strings.TrimSpace(m["title"].(string)),
			VideoID:     strings.TrimSpace(m["videoId"].(string)),
			Description: stringField(m, "description"),
			Icon:        stringField(m, "icon"),
		}
		code, ok := NormalizeRiasec(m["riasecCode"].(string))
		if !ok {
			return nil, invalid("invalid_riasec_" + job.ID)
		}
		job.RiasecCode = code
		if job.Icon == "" {
			job.Icon = DefaultJobIcon
		}
		if seen[job.ID] {
			return nil, invalid("duplicate_id_" + job.ID)
		}
		seen[job.ID] = true
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

// JobDocuments converts validated jobs to storage documents.
func JobDocuments(jobs []models.Job) ([]store.Document, error) {
	docs := make([]store.Document, 0, len(jobs))
	for _, j := range jobs {
		d, err := store.Encode(j)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// DecodeJob reads a stored job. Stored codes are normalized again so that
// catalogs written by older deployments come back in canonical form.
func DecodeJob(doc store.Document) (models.Job, error) {
	var j models.Job
	if err := store.Decode(doc, &j); err != nil {
		return models.Job{}, err
	}
	if code, ok := NormalizeRiasec(j.RiasecCode); ok {
		j.RiasecCode = code
	}
	if j.Icon == "" {
		j.Icon = DefaultJobIcon
	}
	return j, nil
}
