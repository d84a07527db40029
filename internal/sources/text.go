package sources

import (
	"context"
	"fmt"
	"strings"

	"jobtracker-backend/internal/extract"
	"jobtracker-backend/internal/shared/storage/object"
	"jobtracker-backend/internal/shared/telemetry"
)

// TextLoader resolves the text a prompt needs from a source document.
type TextLoader struct {
	Store   Store
	Objects object.ObjectStore
}

// NewTextLoader constructs a TextLoader. objects may be nil, in which case
// resumes must carry summary text.
func NewTextLoader(store Store, objects object.ObjectStore) *TextLoader {
	return &TextLoader{Store: store, Objects: objects}
}

// ResumeText loads a resume and its text: the stored summary when present,
// otherwise the text extracted from its uploaded file.
func (l *TextLoader) ResumeText(ctx context.Context, ownerID, id string) (Resume, string, error) {
	r, err := l.Store.GetResume(ctx, ownerID, id)
	if err != nil {
		return Resume{}, "", err
	}
	if text := strings.TrimSpace(r.SummaryText); text != "" {
		return r, text, nil
	}
	if r.StorageKey == "" || l.Objects == nil {
		return Resume{}, "", fmt.Errorf("%w: resume %s", ErrNoContent, id)
	}
	text, err := extract.Text(ctx, l.Objects, extract.Source{Key: r.StorageKey, MimeType: r.MimeType, FileName: r.FileName})
	if err != nil {
		telemetry.Warn("sources.extract_failed", map[string]any{"resume_id": id, "error": err})
		return Resume{}, "", fmt.Errorf("%w: resume %s: %v", ErrNoContent, id, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Resume{}, "", fmt.Errorf("%w: resume %s", ErrNoContent, id)
	}
	return r, text, nil
}

// JobPosting loads a posting and rejects one without a description.
func (l *TextLoader) JobPosting(ctx context.Context, ownerID, id string) (JobPosting, error) {
	p, err := l.Store.GetJobPosting(ctx, ownerID, id)
	if err != nil {
		return JobPosting{}, err
	}
	if strings.TrimSpace(p.Description) == "" {
		return JobPosting{}, fmt.Errorf("%w: job posting %s", ErrNoContent, id)
	}
	return p, nil
}
