package campaign

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"

	"github.com/specloom/specloom/internal/session"
	"github.com/specloom/specloom/internal/stage"
)

// stopwords are excluded from keyword counting. The list covers filler
// words common in interview answers, not a full NLP treatment.
var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "are": true,
	"was": true, "with": true, "that": true, "this": true, "have": true,
	"has": true, "its": true, "not": true, "you": true, "all": true,
	"can": true, "when": true, "they": true, "them": true, "from": true,
	"too": true, "very": true, "just": true, "into": true, "out": true,
	"about": true, "their": true, "would": true, "there": true, "which": true,
	"because": true, "been": true, "being": true, "also": true, "than": true,
}

// Aggregate merges the fact artifacts of a campaign's completed
// respondents into ranked cross-respondent statistics. Nothing is
// materialized; every call recomputes from the stored artifacts.
func (s *Store) Aggregate(ctx context.Context, c *Campaign) (*Aggregate, error) {
	respondents, err := s.sessions.ListByCampaign(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{
		TotalSessions: len(respondents),
		CommonFacts:   []CommonFact{},
		PainPoints:    []PainPoint{},
		KeywordCounts: map[string]int{},
	}

	factGroups := map[string]*CommonFact{}
	painGroups := map[string]*PainPoint{}
	var groupOrder, painOrder []string

	for _, sess := range respondents {
		if !session.DoneForAggregation(sess.Status) {
			continue
		}
		artifact, err := s.sessions.GetArtifact(ctx, sess.ID, session.StageFacts)
		if err != nil {
			return nil, err
		}
		if artifact == nil {
			continue
		}

		var facts stage.FactsArtifact
		if err := json.Unmarshal(artifact.Payload, &facts); err != nil {
			log.Printf("[campaign] skipping unreadable facts artifact for session %s: %v", sess.ID, err)
			continue
		}

		agg.CompletedSessions++
		for _, f := range facts.Facts {
			content := strings.TrimSpace(f.Content)
			if content == "" {
				continue
			}

			// Groups key on exact trimmed content; the first
			// occurrence's type and severity stand for the group.
			if g, ok := factGroups[content]; ok {
				g.Count++
			} else {
				factGroups[content] = &CommonFact{Content: content, Count: 1, Type: f.Type, Severity: f.Severity}
				groupOrder = append(groupOrder, content)
			}

			if f.Type == "pain" {
				if p, ok := painGroups[content]; ok {
					p.Count++
				} else {
					painGroups[content] = &PainPoint{Content: content, Count: 1, Severity: f.Severity}
					painOrder = append(painOrder, content)
				}
			}

			countKeywords(agg.KeywordCounts, content)
		}
	}

	for _, content := range groupOrder {
		agg.CommonFacts = append(agg.CommonFacts, *factGroups[content])
	}
	for _, content := range painOrder {
		agg.PainPoints = append(agg.PainPoints, *painGroups[content])
	}
	sortByCount(agg.CommonFacts, func(f CommonFact) (int, string) { return f.Count, f.Content })
	sortByCount(agg.PainPoints, func(p PainPoint) (int, string) { return p.Count, p.Content })

	counters, err := s.Counters(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	agg.Funnel = counters

	return agg, nil
}

// sortByCount orders groups by descending count, ties broken by
// content so the output is stable across calls.
func sortByCount[T any](items []T, key func(T) (int, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, si := key(items[i])
		cj, sj := key(items[j])
		if ci != cj {
			return ci > cj
		}
		return si < sj
	})
}

func countKeywords(counts map[string]int, content string) {
	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		counts[w]++
	}
}
