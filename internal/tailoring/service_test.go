package tailoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobtracker-backend/internal/generation"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/sources"
	"jobtracker-backend/internal/versions"
)

type fakeProvider struct {
	mu     sync.Mutex
	script []error
	text   string
	calls  int
	last   llm.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(_ context.Context, req llm.Request) (llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = req
	if len(p.script) > 0 {
		err := p.script[0]
		p.script = p.script[1:]
		if err != nil {
			return llm.Completion{}, err
		}
	}
	return llm.Completion{Text: p.text}, nil
}

type harness struct {
	svc      *Service
	provider *fakeProvider
	store    *versions.MemoryStore
	prompts  *prompts.MemoryRepo
}

func newHarness(t *testing.T, provider *fakeProvider) *harness {
	t.Helper()
	src := sources.NewMemoryStore()
	src.PutResume(sources.Resume{ID: "resume-1", OwnerID: "user-1", ApplicantName: "Ada", SummaryText: "Ten years building Go services."})
	src.PutJobPosting(sources.JobPosting{ID: "job-1", OwnerID: "user-1", Title: "Platform Engineer", Company: "Acme", RoleType: "engineering", Description: "Run Kubernetes at scale."})
	src.PutJobPosting(sources.JobPosting{ID: "job-empty", OwnerID: "user-1", Title: "Mystery"})

	repo := prompts.NewMemoryRepo()
	resolver := prompts.NewResolver(repo, nil)
	if err := prompts.Seed(context.Background(), repo, resolver); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	gw, err := llm.NewGateway(provider, llm.Config{
		Provider:       "fake",
		Model:          "fake-model",
		MaxRetries:     3,
		Timeout:        time.Second,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	store := versions.NewMemoryStore()
	return &harness{
		svc: &Service{
			Sources:   sources.NewTextLoader(src, nil),
			Runner:    generation.NewRunner(resolver, gw, nil),
			Sanitizer: modifications.NewSanitizer(),
			Versions:  versions.NewManager(store, nil),
			Usage:     prompts.NewService(repo),
		},
		provider: provider,
		store:    store,
		prompts:  repo,
	}
}

func timeout() error { return &llm.ProviderError{Provider: "fake", Kind: llm.KindTimeout} }

func TestTailorRetriesThenPersistsOneVersion(t *testing.T) {
	h := newHarness(t, &fakeProvider{
		script: []error{timeout(), timeout()},
		text:   `{"summary": "  Go platform engineer  ", "skills": ["Go", "go", "Kubernetes"], "mood": "great"}`,
	})

	rv, err := h.svc.Tailor(context.Background(), "user-1", TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1"})
	if err != nil {
		t.Fatalf("Tailor: %v", err)
	}
	if h.provider.calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", h.provider.calls)
	}
	if rv.VersionNumber != 1 || rv.SourceDocumentID != "resume-1" || rv.TargetJobPostingID != "job-1" {
		t.Fatalf("unexpected version %+v", rv)
	}
	if rv.Modifications.Summary() != "Go platform engineer" {
		t.Fatalf("summary not sanitized: %q", rv.Modifications.Summary())
	}
	if got := rv.Modifications.List("skills"); len(got) != 2 {
		t.Fatalf("expected deduped skills, got %v", got)
	}
	if _, ok := rv.Modifications["mood"]; ok {
		t.Fatalf("unrecognized key persisted")
	}
	if rv.Provider != "fake" || rv.Model != "fake-model" || rv.TemplateID == "" {
		t.Fatalf("metadata missing: %+v", rv)
	}

	list, err := h.svc.List(context.Background(), "user-1", "resume-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one persisted version, got %d", len(list))
	}
	tpl, err := h.prompts.Get(context.Background(), rv.TemplateID)
	if err != nil {
		t.Fatalf("Get template: %v", err)
	}
	if tpl.UsageCount != 1 {
		t.Fatalf("expected usage count 1, got %d", tpl.UsageCount)
	}
}

func TestTailorNumbersSequentially(t *testing.T) {
	h := newHarness(t, &fakeProvider{text: `{"summary": "v"}`})
	for want := 1; want <= 3; want++ {
		rv, err := h.svc.Tailor(context.Background(), "user-1", TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1"})
		if err != nil {
			t.Fatalf("Tailor: %v", err)
		}
		if rv.VersionNumber != want {
			t.Fatalf("expected version %d, got %d", want, rv.VersionNumber)
		}
	}
	list, _ := h.svc.List(context.Background(), "user-1", "resume-1")
	if len(list) != 3 || list[0].VersionNumber != 3 {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestTailorParseFailurePersistsNothing(t *testing.T) {
	h := newHarness(t, &fakeProvider{text: "I'd rather not."})

	_, err := h.svc.Tailor(context.Background(), "user-1", TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1"})
	var ge *generation.Error
	if !errors.As(err, &ge) || ge.Code != generation.CodeResponseParse {
		t.Fatalf("expected RESPONSE_PARSE, got %v", err)
	}
	list, _ := h.svc.List(context.Background(), "user-1", "resume-1")
	if len(list) != 0 {
		t.Fatalf("expected no versions, got %d", len(list))
	}
}

func TestTailorEmptyModificationsPersistsNothing(t *testing.T) {
	h := newHarness(t, &fakeProvider{text: `{"mood": "great"}`})

	_, err := h.svc.Tailor(context.Background(), "user-1", TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1"})
	var ge *generation.Error
	if !errors.As(err, &ge) || ge.Code != generation.CodeContentValidation {
		t.Fatalf("expected CONTENT_VALIDATION, got %v", err)
	}
	if n, _ := h.store.MaxNumber(context.Background(), versions.KindResume, "resume-1"); n != 0 {
		t.Fatalf("expected nothing stored, max=%d", n)
	}
}

func TestTailorInputErrors(t *testing.T) {
	tests := []struct {
		name string
		req  TailorRequest
		want generation.Code
	}{
		{name: "missing ids", req: TailorRequest{}, want: generation.CodeInvalidInput},
		{name: "foreign resume", req: TailorRequest{MasterResumeID: "resume-2", JobPostingID: "job-1"}, want: generation.CodeNotFound},
		{name: "posting without description", req: TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-empty"}, want: generation.CodeInvalidInput},
		{name: "unknown template", req: TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1", TemplateID: "nope"}, want: generation.CodeTemplateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeProvider{text: `{"summary": "x"}`})
			_, err := h.svc.Tailor(context.Background(), "user-1", tt.req)
			var ge *generation.Error
			if !errors.As(err, &ge) || ge.Code != tt.want {
				t.Fatalf("expected %s, got %v", tt.want, err)
			}
			if h.provider.calls != 0 {
				t.Fatalf("provider must not be called, got %d calls", h.provider.calls)
			}
		})
	}
}

func TestTailorTimeoutExhaustsRetries(t *testing.T) {
	h := newHarness(t, &fakeProvider{script: []error{timeout(), timeout(), timeout(), timeout()}, text: `{"summary": "x"}`})

	_, err := h.svc.Tailor(context.Background(), "user-1", TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1"})
	var ge *generation.Error
	if !errors.As(err, &ge) || ge.Code != generation.CodeProviderTimeout || !ge.Retryable {
		t.Fatalf("expected retryable PROVIDER_TIMEOUT, got %v", err)
	}
	if h.provider.calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", h.provider.calls)
	}
}

func TestGetAndDeleteAreOwnerScoped(t *testing.T) {
	h := newHarness(t, &fakeProvider{text: `{"summary": "x"}`})
	rv, err := h.svc.Tailor(context.Background(), "user-1", TailorRequest{MasterResumeID: "resume-1", JobPostingID: "job-1"})
	if err != nil {
		t.Fatalf("Tailor: %v", err)
	}

	if _, err := h.svc.Get(context.Background(), "user-2", rv.ID); generation.Translate(err).Code != generation.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign owner, got %v", err)
	}
	if err := h.svc.Delete(context.Background(), "user-2", rv.ID); generation.Translate(err).Code != generation.CodeNotFound {
		t.Fatalf("expected NOT_FOUND on foreign delete, got %v", err)
	}
	got, err := h.svc.Get(context.Background(), "user-1", rv.ID)
	if err != nil || got.Modifications.Summary() != "x" {
		t.Fatalf("Get: %+v %v", got, err)
	}
	if err := h.svc.Delete(context.Background(), "user-1", rv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.svc.Get(context.Background(), "user-1", rv.ID); generation.Translate(err).Code != generation.CodeNotFound {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}
