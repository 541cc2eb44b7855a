package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/jsonx"
)

// ResumeService ingests uploaded resumes: it stores the raw document, extracts
// normalized text, and derives a structured Profile, preferring a model parse
// and falling back to the deterministic heuristic.
type ResumeService struct {
	Resumes   domain.ResumeRepository
	Blobs     domain.BlobStore
	Extractor domain.TextExtractor
	AI        domain.AIClient
	Budget    domain.AIBudget
	Cfg       config.Config
}

// NewResumeService constructs a ResumeService.
func NewResumeService(resumes domain.ResumeRepository, blobs domain.BlobStore, extractor domain.TextExtractor, aicl domain.AIClient, budget domain.AIBudget, cfg config.Config) ResumeService {
	return ResumeService{Resumes: resumes, Blobs: blobs, Extractor: extractor, AI: aicl, Budget: budget, Cfg: cfg}
}

// Upload ingests one resume document for userID and returns the stored
// Resume. An unsupported media type fails; a failed extraction does not, the
// heuristic then works off whatever text is available. Each upload creates a
// new Resume; profiles are never updated in place.
func (s ResumeService) Upload(ctx domain.Context, userID, filename, mediaType string, data []byte) (domain.Resume, error) {
	lg := observability.LoggerFromContext(ctx)

	text, err := s.Extractor.Extract(ctx, data, mediaType)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) {
			return domain.Resume{}, err
		}
		// Extraction failure degrades, it does not abort the upload.
		lg.Warn("resume text extraction failed, continuing with empty text",
			slog.String("user_id", userID),
			slog.String("filename", filename),
			slog.Any("error", err))
		text = ""
	}

	profile, source := s.profileFor(ctx, userID, text)

	blobRef, err := s.Blobs.Save(ctx, domain.BlobKindResume, filename, bytes.NewReader(data))
	if err != nil {
		return domain.Resume{}, fmt.Errorf("op=resume.Upload: store blob: %w", err)
	}

	res := domain.Resume{
		UserID:        userID,
		Filename:      filename,
		MIME:          mediaType,
		Size:          int64(len(data)),
		BlobRef:       blobRef,
		Text:          text,
		Profile:       profile,
		ProfileSource: source,
	}
	id, err := s.Resumes.Create(ctx, res)
	if err != nil {
		// Best-effort cleanup; an orphaned blob is preferable to a row
		// pointing at nothing, not the other way around.
		_ = s.Blobs.Delete(ctx, blobRef)
		return domain.Resume{}, err
	}
	res.ID = id
	return res, nil
}

// profileFor derives the Profile for the extracted text, recording which path
// produced it.
func (s ResumeService) profileFor(ctx domain.Context, userID, text string) (domain.Profile, string) {
	lg := observability.LoggerFromContext(ctx)

	if text != "" {
		if p, ok := s.profileFromModel(ctx, userID, text); ok {
			return p, domain.SourceModel
		}
		lg.Warn("profile extraction using heuristic fallback", slog.String("user_id", userID))
		observability.RecordFallback("profile")
	}
	return ProfileFromText(text), domain.SourceHeuristic
}

func (s ResumeService) profileFromModel(ctx domain.Context, userID, text string) (domain.Profile, bool) {
	if s.AI == nil {
		return domain.Profile{}, false
	}
	if s.Budget != nil {
		allowed, err := s.Budget.Allow(ctx, userID)
		if err == nil && !allowed {
			observability.RecordBudgetDenied("profile")
			return domain.Profile{}, false
		}
	}

	reply, err := s.AI.ChatJSON(ctx,
		buildProfileSystemPrompt(),
		buildProfileUserPrompt(text, s.Cfg.ChatModel, s.Cfg.PromptTokenBudget),
		s.Cfg.AIMaxTokens)
	if err != nil {
		return domain.Profile{}, false
	}

	var p domain.Profile
	if !jsonx.ExtractInto(reply, &p) {
		return domain.Profile{}, false
	}
	if p.Empty() {
		return domain.Profile{}, false
	}
	return p, true
}

// Get returns one resume owned by userID.
func (s ResumeService) Get(ctx domain.Context, id, userID string) (domain.Resume, error) {
	return s.Resumes.Get(ctx, id, userID)
}

// List returns the user's resumes, newest first.
func (s ResumeService) List(ctx domain.Context, userID string) ([]domain.Resume, error) {
	return s.Resumes.List(ctx, userID)
}

// Delete removes a resume row and best-effort removes its stored document.
func (s ResumeService) Delete(ctx domain.Context, id, userID string) error {
	res, err := s.Resumes.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.Resumes.Delete(ctx, id, userID); err != nil {
		return err
	}
	if res.BlobRef != "" {
		if err := s.Blobs.Delete(ctx, res.BlobRef); err != nil {
			observability.LoggerFromContext(ctx).Warn("resume blob cleanup failed",
				slog.String("resume_id", id),
				slog.Any("error", err))
		}
	}
	return nil
}
