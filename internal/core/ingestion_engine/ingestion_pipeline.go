package ingestion_engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielokon-py/Tutora/internal/core"
	"github.com/danielokon-py/Tutora/internal/models"
)

// extractConcurrency bounds how many sources are fetched/uploaded at once.
const extractConcurrency = 4

// Pipeline orchestrates source ingestion: it dispatches every source to the
// extractor matching its type and assembles the resulting prompt fragments
// in source order. It never talks to the generative model itself; it only
// prepares prompt material.
//
// files:  remote file store for binary sources (PDF, images, drive files).
// docs:   local text extraction for document formats.
// httpc:  client for drive downloads.
type Pipeline struct {
	files    core.FileStore
	docs     core.DocumentExtractor
	httpc    *http.Client
	defaults []models.Source
	log      *zap.Logger
}

// NewPipeline wires the pipeline's collaborators. A nil httpc gets a
// client with a 2-minute timeout for drive downloads.
func NewPipeline(files core.FileStore, docs core.DocumentExtractor, httpc *http.Client, defaults []models.Source, log *zap.Logger) *Pipeline {
	if httpc == nil {
		httpc = &http.Client{Timeout: 2 * time.Minute}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		files:    files,
		docs:     docs,
		httpc:    httpc,
		defaults: defaults,
		log:      log,
	}
}

type sourceResult struct {
	parts []models.PromptPart
	err   error
}

// Ingest builds StudyMaterial from the given sources. Extraction runs
// concurrently but fragments are assembled strictly in source order.
// Per-source failures are non-fatal: a failed source contributes a typed
// warning plus an inline notice fragment, and the batch continues.
func (p *Pipeline) Ingest(ctx context.Context, sources []models.Source, useDefaults bool) (*models.StudyMaterial, error) {
	signature := models.SourceSignature(sources)

	if len(sources) == 0 {
		if !useDefaults || len(p.defaults) == 0 {
			return nil, core.E(core.KindNoSources, "no sources to ingest; add a source first")
		}
		sources = p.defaults
	}

	started := time.Now()
	results := make([]sourceResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			parts, err := p.extract(gctx, src)
			results[i] = sourceResult{parts: parts, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, core.WrapErr(core.KindUpstreamFailure, err, "ingestion canceled")
	}

	material := &models.StudyMaterial{
		Signature:  signature,
		IngestedAt: time.Now(),
	}
	for i, res := range results {
		src := sources[i]
		if res.err != nil {
			p.log.Warn("source skipped during ingestion",
				zap.String("source", src.Name),
				zap.String("type", string(src.Type)),
				zap.Error(res.err))
			material.Warnings = append(material.Warnings, models.IngestionWarning{
				SourceID:   src.ID,
				SourceName: src.Name,
				Message:    res.err.Error(),
			})
			material.ContextParts = append(material.ContextParts,
				models.TextPart(fmt.Sprintf("[Source %q could not be processed: %v]", src.Name, res.err)))
			continue
		}
		material.ContextParts = append(material.ContextParts, res.parts...)
		material.Sources = append(material.Sources, models.SourceInfo{Name: src.Name, Type: src.Type})
	}

	material.Stats = models.MaterialStats{
		SourceCount:  len(material.Sources),
		Sources:      material.Sources,
		IsMultimodal: true,
	}

	p.log.Info("ingestion complete",
		zap.Int("sources", len(sources)),
		zap.Int("included", len(material.Sources)),
		zap.Int("warnings", len(material.Warnings)),
		zap.Duration("took", time.Since(started)))

	return material, nil
}

// extract dispatches a source to the extractor for its kind. The switch is
// exhaustive over models.SourceType.
func (p *Pipeline) extract(ctx context.Context, src models.Source) ([]models.PromptPart, error) {
	switch src.Type {
	case models.SourceFile:
		return p.extractFile(src)
	case models.SourceDrive:
		return p.extractDrive(ctx, src)
	case models.SourceYouTube:
		return extractYouTube(src)
	case models.SourceText:
		return extractText(src)
	default:
		return nil, core.E(core.KindUnsupportedType, "unknown source type %q", src.Type)
	}
}

var _ Ingestor = (*Pipeline)(nil)
