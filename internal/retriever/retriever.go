// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package retriever

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/sigil-dev/georag/internal/store"
	ragerr "github.com/sigil-dev/georag/pkg/errors"
)

const (
	DefaultTextWeight  = 0.7
	DefaultImageWeight = 0.3
)

// Option configures a Retriever.
type Option func(*Retriever)

// WithImageQuery adds an image query vector. Candidates that carry an image
// embedding are then scored as a weighted sum of both similarities.
func WithImageQuery(v []float32) Option {
	return func(r *Retriever) {
		r.imageQuery = v
	}
}

// WithWeights sets the text and image weights used for combined scoring.
// They need not sum to 1.
func WithWeights(text, image float64) Option {
	return func(r *Retriever) {
		r.textWeight = text
		r.imageWeight = image
	}
}

// WithModelName restricts candidates to text embeddings produced by model.
func WithModelName(model string) Option {
	return func(r *Retriever) {
		r.modelName = model
	}
}

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever ranks stored documents against a fixed query representation.
type Retriever struct {
	src         store.CandidateScanner
	textQuery   []float32
	imageQuery  []float32
	textWeight  float64
	imageWeight float64
	modelName   string
	logger      *slog.Logger
}

// New binds a query representation to a candidate source. textQuery is
// required.
func New(src store.CandidateScanner, textQuery []float32, opts ...Option) (*Retriever, error) {
	if src == nil {
		return nil, ragerr.New(ragerr.CodeRetrieverInvalidInput, "retriever: candidate source is required")
	}
	if len(textQuery) == 0 {
		return nil, ragerr.New(ragerr.CodeRetrieverNoQueryVector, "retriever: text query vector is required")
	}

	r := &Retriever{
		src:         src,
		textQuery:   textQuery,
		textWeight:  DefaultTextWeight,
		imageWeight: DefaultImageWeight,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}

	if err := checkQuery(store.ModalityText, r.textQuery); err != nil {
		return nil, err
	}
	if r.imageQuery != nil {
		if err := checkQuery(store.ModalityImage, r.imageQuery); err != nil {
			return nil, err
		}
	}
	if !finite(r.textWeight) || !finite(r.imageWeight) {
		return nil, ragerr.Errorf(ragerr.CodeRetrieverInvalidInput,
			"retriever: weights must be finite, got text=%v image=%v", r.textWeight, r.imageWeight)
	}
	return r, nil
}

func checkQuery(m store.Modality, v []float32) error {
	if err := store.ValidateVector(m, v); err != nil {
		return ragerr.Wrap(err, ragerr.CodeRetrieverInvalidInput, "retriever: invalid query vector",
			ragerr.FieldModality(string(m)))
	}
	return nil
}

// Result is one ranked document.
type Result struct {
	ID          string
	Class       string
	Description string
	SourcePath  string
	Score       float64
	TextScore   float64
	ImageScore  *float64 // nil when the image similarity did not contribute
	Metadata    map[string]any
}

// View merges the stored metadata with the id, class and similarity of the
// result. The three fixed keys win over metadata keys of the same name.
func (r Result) View() map[string]any {
	out := make(map[string]any, len(r.Metadata)+3)
	for k, v := range r.Metadata {
		out[k] = v
	}
	out["id"] = r.ID
	out["class"] = r.Class
	out["similarity"] = r.Score
	return out
}

type scored struct {
	cand       store.Candidate
	score      float64
	textScore  float64
	imageScore *float64
}

// GetRelevantDocuments returns up to topK documents ordered by descending
// score, ties broken by ascending id. An empty filterClass matches every
// class. Rows with undecodable or incompatible embeddings are skipped.
func (r *Retriever) GetRelevantDocuments(ctx context.Context, topK int, filterClass string) ([]Result, error) {
	if topK < 1 {
		return nil, ragerr.Errorf(ragerr.CodeRetrieverInvalidInput, "retriever: topK must be at least 1, got %d", topK)
	}

	var (
		ranked  []scored
		skipped int
	)
	filter := store.CandidateFilter{Class: filterClass, TextModel: r.modelName}
	err := r.src.ScanCandidates(ctx, filter, func(c store.Candidate) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if store.IsReservedID(c.ID) {
			return nil
		}
		s, err := r.score(c)
		if err != nil {
			skipped++
			r.logger.Warn("skipping document with unusable embedding",
				slog.String("document_id", c.ID),
				slog.String("code", string(ragerr.CodeOf(err))),
				slog.Any("error", err),
			)
			return nil
		}
		ranked = append(ranked, s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].cand.ID < ranked[j].cand.ID
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	r.logger.Debug("ranked documents",
		slog.Int("returned", len(ranked)),
		slog.Int("skipped", skipped),
		slog.String("class", filterClass),
	)

	results := make([]Result, len(ranked))
	for i, s := range ranked {
		results[i] = Result{
			ID:          s.cand.ID,
			Class:       s.cand.Class,
			Description: s.cand.Description,
			SourcePath:  s.cand.SourcePath,
			Score:       s.score,
			TextScore:   s.textScore,
			ImageScore:  s.imageScore,
			Metadata:    r.decodeMetadata(s.cand),
		}
	}
	return results, nil
}

func (r *Retriever) score(c store.Candidate) (scored, error) {
	textVec, err := store.DecodeVector(c.TextVector, c.TextDim)
	if err != nil {
		return scored{}, err
	}
	if len(textVec) != len(r.textQuery) {
		return scored{}, ragerr.Errorf(ragerr.CodeStoreEmbeddingCorrupt,
			"text embedding has dimension %d, query has %d", len(textVec), len(r.textQuery))
	}
	textScore := cosine(r.textQuery, textVec)
	if !finite(textScore) {
		return scored{}, ragerr.New(ragerr.CodeStoreEmbeddingCorrupt, "text similarity is not finite")
	}

	s := scored{cand: c, score: textScore, textScore: textScore}
	if r.imageQuery == nil || !c.HasImage() {
		return s, nil
	}

	imageVec, err := store.DecodeVector(c.ImageVector, c.ImageDim)
	if err != nil {
		return scored{}, err
	}
	if len(imageVec) != len(r.imageQuery) {
		return scored{}, ragerr.Errorf(ragerr.CodeStoreEmbeddingCorrupt,
			"image embedding has dimension %d, query has %d", len(imageVec), len(r.imageQuery))
	}
	imageScore := cosine(r.imageQuery, imageVec)
	combined := r.textWeight*textScore + r.imageWeight*imageScore
	if !finite(imageScore) || !finite(combined) {
		return scored{}, ragerr.New(ragerr.CodeStoreEmbeddingCorrupt, "image similarity is not finite")
	}
	s.score = combined
	s.imageScore = &imageScore
	return s, nil
}

func (r *Retriever) decodeMetadata(c store.Candidate) map[string]any {
	md := map[string]any{}
	if c.Metadata == "" {
		return md
	}
	if err := json.Unmarshal([]byte(c.Metadata), &md); err != nil {
		r.logger.Warn("ignoring undecodable document metadata",
			slog.String("document_id", c.ID),
			slog.Any("error", err),
		)
		return map[string]any{}
	}
	if md == nil {
		md = map[string]any{}
	}
	return md
}
