package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport captures high-level metrics about a site generation run.
type BuildReport struct {
	BuildID string
	Start   time.Time
	End     time.Time
	Outcome BuildOutcome

	ScannedArticles  int // source files classified as articles
	RenderedArticles int // articles written as full pages
	EmbeddedArticles int // articles written in embedded form
	FailedArticles   int // articles skipped due to per-file errors
	AssetsCopied     int
	IndexWritten     bool
	FeedWritten      bool

	Errors          []error // fatal errors causing build abortion
	Warnings        []error // non-fatal issues (per-article failures, feed problems)
	StageDurations  map[StageName]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		BuildID:         uuid.NewString(),
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
	}
}

func (r *BuildReport) recordError(stage StageName, se *StageError) {
	r.StageErrorKinds[stage] = se.Kind
	r.Errors = append(r.Errors, se)
}

// finish stamps the end time and derives the outcome.
func (r *BuildReport) finish(err error) {
	r.End = time.Now()
	switch {
	case err == nil && len(r.Warnings) == 0:
		r.Outcome = OutcomeSuccess
	case err == nil:
		r.Outcome = OutcomeWarning
	case isCanceled(r):
		r.Outcome = OutcomeCanceled
	default:
		r.Outcome = OutcomeFailed
	}
}

func isCanceled(r *BuildReport) bool {
	for _, kind := range r.StageErrorKinds {
		if kind == StageErrorCanceled {
			return true
		}
	}
	return false
}

// Duration is the wall-clock build time.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// reportDocument is the stable JSON shape of a BuildReport. Errors serialize
// as strings and durations as milliseconds.
type reportDocument struct {
	SchemaVersion    int                `json:"schema_version"`
	BuildID          string             `json:"build_id"`
	Start            time.Time          `json:"start"`
	End              time.Time          `json:"end"`
	Outcome          BuildOutcome       `json:"outcome"`
	ScannedArticles  int                `json:"scanned_articles"`
	RenderedArticles int                `json:"rendered_articles"`
	EmbeddedArticles int                `json:"embedded_articles"`
	FailedArticles   int                `json:"failed_articles"`
	AssetsCopied     int                `json:"assets_copied"`
	IndexWritten     bool               `json:"index_written"`
	FeedWritten      bool               `json:"feed_written"`
	Errors           []string           `json:"errors,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
	StageDurationsMS map[string]float64 `json:"stage_durations_ms"`
	StageErrorKinds  map[string]string  `json:"stage_error_kinds,omitempty"`
}

const reportSchemaVersion = 1

// Persist writes the report as build-report.json in the output directory.
func (r *BuildReport) Persist(outputDir string) error {
	doc := reportDocument{
		SchemaVersion:    reportSchemaVersion,
		BuildID:          r.BuildID,
		Start:            r.Start,
		End:              r.End,
		Outcome:          r.Outcome,
		ScannedArticles:  r.ScannedArticles,
		RenderedArticles: r.RenderedArticles,
		EmbeddedArticles: r.EmbeddedArticles,
		FailedArticles:   r.FailedArticles,
		AssetsCopied:     r.AssetsCopied,
		IndexWritten:     r.IndexWritten,
		FeedWritten:      r.FeedWritten,
		StageDurationsMS: make(map[string]float64, len(r.StageDurations)),
		StageErrorKinds:  make(map[string]string, len(r.StageErrorKinds)),
	}
	for _, err := range r.Errors {
		doc.Errors = append(doc.Errors, err.Error())
	}
	for _, err := range r.Warnings {
		doc.Warnings = append(doc.Warnings, err.Error())
	}
	for stage, d := range r.StageDurations {
		doc.StageDurationsMS[string(stage)] = float64(d.Microseconds()) / 1000.0
	}
	for stage, kind := range r.StageErrorKinds {
		doc.StageErrorKinds[string(stage)] = string(kind)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	path := filepath.Join(outputDir, "build-report.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write build report: %w", err)
	}
	return nil
}
