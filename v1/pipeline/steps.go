package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aleph-Alpha/trackindex/v1/events"
	"github.com/Aleph-Alpha/trackindex/v1/interpretation"
	"github.com/Aleph-Alpha/trackindex/v1/lyrics"
	"github.com/Aleph-Alpha/trackindex/v1/sparseembedding"
	"github.com/Aleph-Alpha/trackindex/v1/track"
)

// runState accumulates step outputs during one attempt. Each field is the memoized
// value of one step.
type runState struct {
	isrc  string
	runID string

	features       *track.AudioFeatures
	lyrics         *lyrics.Result
	interpretation *interpretation.Output
	embedding      []float32
	stored         *storedDocument
	emitted        *emission
}

type storedDocument struct {
	ID        string    `json:"id"`
	IndexedAt time.Time `json:"indexedAt"`
}

type emission struct {
	OccurredAt time.Time `json:"occurredAt"`
}

func (s *runState) slot(step Step) any {
	switch step {
	case StepFetchAudioFeatures:
		return &s.features
	case StepFetchLyrics:
		return &s.lyrics
	case StepGenerateInterpretation:
		return &s.interpretation
	case StepEmbedInterpretation:
		return &s.embedding
	case StepStoreDocument:
		return &s.stored
	case StepEmitCompletion:
		return &s.emitted
	default:
		return nil
	}
}

func (s *runState) restore(step Step, value json.RawMessage) error {
	slot := s.slot(step)
	if slot == nil {
		return fmt.Errorf("unknown step %q", step)
	}
	if len(value) == 0 {
		return nil
	}
	return json.Unmarshal(value, slot)
}

func (s *runState) snapshot(step Step) (json.RawMessage, error) {
	slot := s.slot(step)
	if slot == nil {
		return nil, fmt.Errorf("unknown step %q", step)
	}
	return json.Marshal(slot)
}

func (o *Orchestrator) runStep(ctx context.Context, step Step, s *runState) error {
	switch step {
	case StepFetchAudioFeatures:
		features, err := o.ports.AudioFeatures.Fetch(ctx, s.isrc)
		if err != nil {
			return err
		}
		if features.IsEmpty() {
			features = nil
		}
		s.features = features

	case StepFetchLyrics:
		res, err := o.ports.Lyrics.Fetch(ctx, lyrics.Query{ISRC: s.isrc})
		if err != nil {
			return err
		}
		if res == nil {
			return errors.New("lyrics source returned no track")
		}
		s.lyrics = res

	case StepGenerateInterpretation:
		out, err := o.ports.Interpreter.Interpret(ctx, interpretation.Input{
			Title:         s.lyrics.Metadata.Title,
			Artist:        s.lyrics.Metadata.Artist,
			Album:         s.lyrics.Metadata.Album,
			Lyrics:        s.lyrics.Lyrics,
			AudioFeatures: s.features,
		})
		if err != nil {
			return err
		}
		if out == nil {
			out = &interpretation.Output{}
		}
		s.interpretation = out

	case StepEmbedInterpretation:
		vec, err := o.ports.Embedder.Embed(ctx, embeddingText(s))
		if err != nil {
			return err
		}
		s.embedding = vec

	case StepStoreDocument:
		doc, err := o.assembler.Assemble(s.parts())
		if err != nil {
			return err
		}
		sparse := sparseembedding.EncodeFields(doc.TextFields()...)
		if o.ports.Archive != nil {
			if err := o.ports.Archive.Put(ctx, doc); err != nil {
				return transient("archive document", err)
			}
		}
		if err := o.ports.Index.Upsert(ctx, doc, sparse); err != nil {
			return err
		}
		s.stored = &storedDocument{ID: doc.ID, IndexedAt: doc.IndexedAt}

	case StepEmitCompletion:
		now := o.now().UTC()
		err := o.ports.Publisher.Publish(ctx, events.CompletionEvent{
			ISRC:       s.isrc,
			RunID:      s.runID,
			Status:     events.StatusCompleted,
			OccurredAt: now,
		})
		if err != nil {
			return transient("publish completion", err)
		}
		s.emitted = &emission{OccurredAt: now}

	default:
		return fmt.Errorf("unknown step %q", step)
	}
	return nil
}

func (s *runState) parts() track.Parts {
	p := track.Parts{
		ISRC:          s.isrc,
		AudioFeatures: s.features,
		Embedding:     s.embedding,
	}
	if s.lyrics != nil {
		p.Metadata = s.lyrics.Metadata
		p.Lyrics = s.lyrics.Lyrics
	}
	if s.interpretation != nil {
		p.Interpretation = s.interpretation.Interpretation
		p.Descriptions = s.interpretation.Descriptions
	}
	return p
}

// embeddingText is the text the dense vector is computed from: the catalogue line,
// then the interpretation, then the short description when it adds anything.
func embeddingText(s *runState) string {
	var parts []string
	if s.lyrics != nil {
		m := s.lyrics.Metadata
		parts = append(parts, strings.TrimSpace(m.Title+" by "+m.Artist))
		if m.Album != "" {
			parts = append(parts, "Album: "+m.Album)
		}
	}
	var interp string
	if s.interpretation != nil {
		if s.interpretation.Interpretation != nil {
			interp = strings.TrimSpace(*s.interpretation.Interpretation)
			if interp != "" {
				parts = append(parts, interp)
			}
		}
		if desc := track.ChooseShortDescription(s.interpretation.Descriptions); desc != nil && *desc != interp && !strings.HasPrefix(interp, *desc) {
			parts = append(parts, *desc)
		}
	}
	return strings.Join(parts, "\n")
}
