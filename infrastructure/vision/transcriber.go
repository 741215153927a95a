package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"peermark/internal/domain"
	"peermark/internal/ports"
)

// transcriptionPromptTemplate instructs the model to read the score table
// and answer with strict JSON. A null score marks a cell the model could
// not read; the pipeline counts those rather than guessing.
const transcriptionPromptTemplate = `This image is a handwritten peer-grading score sheet with a numbered table of %d students.
For every row, read the handwritten score. Scores are whole numbers from %d to %d.

Respond with ONLY a JSON object in exactly this format:
{"total_students": %d, "scores": [{"order": 1, "score": 7}, {"order": 2, "score": null}]}

Rules:
- "order" is the printed row number, starting at 1.
- "score" is the handwritten number, or null if the cell is empty or illegible.
- Never guess: if a digit is ambiguous, use null.
- Include every row exactly once.%s`

const identitySuffix = `
- Also include "student_id" and "name" for each row, transcribed from the roll number and name columns; use "" where illegible.`

// wireEntry is one row of the provider's JSON answer.
type wireEntry struct {
	Order      int    `json:"order" validate:"required,min=1"`
	Score      *int   `json:"score"`
	RollNumber string `json:"student_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// wireSheet is the provider's JSON answer for one page.
type wireSheet struct {
	TotalStudents int         `json:"total_students"`
	Scores        []wireEntry `json:"scores" validate:"required,min=1,dive"`
}

// TranscriberConfig controls how sheets are presented to the model.
type TranscriberConfig struct {
	// RowCount is the number of student rows on the sheet template.
	RowCount int `validate:"required,min=1,max=37"`

	// IncludeIdentity asks the model to also read roll numbers and names.
	// Only meaningful when identity masking is disabled.
	IncludeIdentity bool

	// Options is passed through to the provider on every request
	// (temperature, max_tokens and the like).
	Options map[string]any
}

// Transcriber turns one rendered sheet image into a structured
// transcription using a CoreVision provider. It implements
// ports.Transcriber.
type Transcriber struct {
	core     CoreVision
	cfg      TranscriberConfig
	validate *validator.Validate
}

// NewTranscriber builds a Transcriber over the given provider chain.
func NewTranscriber(core CoreVision, cfg TranscriberConfig) (*Transcriber, error) {
	if core == nil {
		return nil, domain.NewConfigError("transcriber", "vision provider is required")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, domain.NewConfigError("transcriber", err.Error())
	}
	return &Transcriber{
		core:     core,
		cfg:      cfg,
		validate: validator.New(),
	}, nil
}

// Model returns the provider's configured model name.
func (t *Transcriber) Model() string { return t.core.GetModel() }

// Transcribe sends the page image to the provider and parses the JSON
// answer into a Transcription. Parse and structural failures are wrapped in
// a domain.TranscriptionError carrying the sheet ID.
func (t *Transcriber) Transcribe(ctx context.Context, sheetID string, imagePNG []byte) (domain.Transcription, error) {
	if len(imagePNG) == 0 {
		return domain.Transcription{}, &domain.TranscriptionError{
			SheetID: sheetID, Err: fmt.Errorf("empty page image"),
		}
	}

	response, _, _, err := t.core.DoRequest(ctx, Request{
		Prompt:   t.buildPrompt(),
		ImagePNG: imagePNG,
	}, t.cfg.Options)
	if err != nil {
		return domain.Transcription{}, &domain.TranscriptionError{SheetID: sheetID, Err: err}
	}

	sheet, err := t.parseResponse(response)
	if err != nil {
		return domain.Transcription{}, &domain.TranscriptionError{SheetID: sheetID, Err: err}
	}

	tr := domain.Transcription{
		SheetID:       sheetID,
		TotalStudents: sheet.TotalStudents,
		Rows:          make([]domain.RowScore, 0, len(sheet.Scores)),
	}
	for _, entry := range sheet.Scores {
		row := domain.RowScore{
			Row:        entry.Order,
			RollNumber: strings.TrimSpace(entry.RollNumber),
			Name:       strings.TrimSpace(entry.Name),
		}
		if entry.Score == nil {
			row.Unreadable = true
		} else {
			row.Score = *entry.Score
		}
		tr.Rows = append(tr.Rows, row)
	}
	return tr, nil
}

func (t *Transcriber) buildPrompt() string {
	suffix := ""
	if t.cfg.IncludeIdentity {
		suffix = identitySuffix
	}
	return fmt.Sprintf(transcriptionPromptTemplate,
		t.cfg.RowCount, domain.MinScore, domain.MaxScore, t.cfg.RowCount, suffix)
}

func (t *Transcriber) parseResponse(response string) (wireSheet, error) {
	var sheet wireSheet

	payload := extractJSON(response)
	if payload == "" {
		return sheet, fmt.Errorf("no JSON object in response: %q", truncate(response, 120))
	}
	if err := json.Unmarshal([]byte(payload), &sheet); err != nil {
		return sheet, fmt.Errorf("parsing response JSON: %w", err)
	}
	if err := t.validate.Struct(sheet); err != nil {
		return sheet, fmt.Errorf("response failed validation: %w", err)
	}
	return sheet, nil
}

// extractJSON pulls a JSON object out of a model response that may wrap it
// in markdown code fences or surrounding prose.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	if start := strings.Index(response, "```"); start != -1 {
		start += len("```")
		// Skip a language identifier on the fence line.
		if nl := strings.Index(response[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ ports.Transcriber = (*Transcriber)(nil)
