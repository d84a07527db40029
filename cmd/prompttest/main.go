// Command prompttest runs one generation against the configured provider
// without persisting anything. Useful for iterating on prompt templates.
//
//	go run ./cmd/prompttest -task resume_tailor -resume cv.pdf -jd job.txt
//	go run ./cmd/prompttest -task cover_letter -tone formal -resume cv.docx -jd job.txt
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobtracker-backend/internal/bootstrap"
	"jobtracker-backend/internal/coverletters"
	"jobtracker-backend/internal/extract"
	"jobtracker-backend/internal/generation"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/shared/config"
	"jobtracker-backend/internal/shared/telemetry"
)

const cliOwner = "prompttest"

func main() {
	cfg := config.Load()
	telemetry.Init("warn")

	task := flag.String("task", string(prompts.TaskResumeTailor), "resume_tailor or cover_letter")
	resumePath := flag.String("resume", "", "Path to resume file (pdf, docx, txt or md)")
	jdPath := flag.String("jd", "", "Path to job description file")
	title := flag.String("title", "", "Job title")
	company := flag.String("company", "", "Company name")
	role := flag.String("role", "", "Role type for resume templates")
	tone := flag.String("tone", "", "Cover letter tone")
	templatePath := flag.String("template", "", "Prompt template file to try instead of the defaults (optional)")
	outPath := flag.String("out", "", "Path to write the result (optional)")
	flag.Parse()

	ctx := context.Background()
	taskType := prompts.TaskType(strings.TrimSpace(*task))
	if !taskType.Valid() {
		exitErr(fmt.Sprintf("unsupported task: %s", *task))
	}
	if strings.TrimSpace(*resumePath) == "" || strings.TrimSpace(*jdPath) == "" {
		exitErr("resume and jd paths are required")
	}

	resumeText, err := readResume(ctx, *resumePath)
	if err != nil {
		exitErr(err.Error())
	}
	jd, err := os.ReadFile(*jdPath)
	if err != nil {
		exitErr(fmt.Sprintf("read job description: %v", err))
	}

	llmCfg, err := bootstrap.LLMConfig(cfg.LLM)
	if err != nil {
		exitErr(err.Error())
	}
	provider, err := bootstrap.NewProvider(ctx, cfg.LLM)
	if err != nil {
		exitErr(err.Error())
	}
	gateway, err := llm.NewGateway(provider, llmCfg)
	if err != nil {
		exitErr(err.Error())
	}

	repo := prompts.NewMemoryRepo()
	resolver := prompts.NewResolver(repo, nil)
	if err := prompts.Seed(ctx, repo, resolver); err != nil {
		exitErr(err.Error())
	}

	job := generation.Job{
		Task:    taskType,
		OwnerID: cliOwner,
		Mode:    llm.ModeStructured,
		Vars: map[string]string{
			prompts.VarResumeSummary:  resumeText,
			prompts.VarJobDescription: string(jd),
			prompts.VarJobTitle:       *title,
			prompts.VarCompany:        *company,
			prompts.VarRoleType:       *role,
		},
		RoleType: *role,
	}
	if taskType == prompts.TaskCoverLetter {
		t, ok := coverletters.ParseTone(*tone)
		if !ok {
			exitErr(fmt.Sprintf("unknown tone: %s", *tone))
		}
		job.Mode = llm.ModeProse
		job.RoleType = string(t)
		job.Vars[prompts.VarTone] = string(t)
	}
	if *templatePath != "" {
		text, err := os.ReadFile(*templatePath)
		if err != nil {
			exitErr(fmt.Sprintf("read template: %v", err))
		}
		tpl, err := prompts.NewService(repo).Create(ctx, cliOwner, prompts.NewTemplate{
			TaskType:   taskType,
			RoleType:   job.RoleType,
			Name:       filepath.Base(*templatePath),
			PromptText: string(text),
		})
		if err != nil {
			exitErr(err.Error())
		}
		job.TemplateID = tpl.ID
	}

	out, err := generation.NewRunner(resolver, gateway, nil).Run(ctx, job)
	if err != nil {
		ge := generation.Translate(err)
		if ge.Raw != "" {
			_, _ = fmt.Fprintln(os.Stderr, ge.Raw)
		}
		exitErr(ge.Error())
	}

	var result []byte
	if job.Mode == llm.ModeProse {
		result = []byte(out.Text + "\n")
	} else {
		content, err := modifications.NewSanitizer().Sanitize(out.Data)
		if err != nil {
			exitErr(generation.Translate(err).Error())
		}
		result, err = json.MarshalIndent(content, "", "  ")
		if err != nil {
			exitErr(fmt.Sprintf("format json: %v", err))
		}
		result = append(result, '\n')
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, result, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(result); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	_, _ = fmt.Fprintf(os.Stderr, "template=%s provider=%s model=%s tokens=%d/%d\n",
		out.Template.Name, out.Completion.Provider, out.Completion.Model,
		out.Completion.PromptTokens, out.Completion.CompletionTokens)
}

func readResume(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}
	text, err := extract.FromBytes(ctx, data, "", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("extract resume text: %w", err)
	}
	return text, nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
