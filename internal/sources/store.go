package sources

import "context"

// Store reads source documents owned by other parts of the tracker. Every
// lookup is scoped to the owner; foreign records read as ErrNotFound.
type Store interface {
	GetResume(ctx context.Context, ownerID, id string) (Resume, error)
	GetJobPosting(ctx context.Context, ownerID, id string) (JobPosting, error)
	GetApplication(ctx context.Context, ownerID, id string) (Application, error)
}
