package services

import (
	"context"
	"sort"
	"time"

	"github.com/soaringjerry/FootPulse/internal/models"
)

type ExportParams struct {
	Format    string
	Selection FilterSelection
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders visibility-scoped data as CSV. It reads through the
// analytics pipeline so exports never widen what the actor can see.
type ExportService struct {
	analytics *AnalyticsService
}

func NewExportService(analytics *AnalyticsService) *ExportService {
	return &ExportService{analytics: analytics}
}

const csvContentType = "text/csv; charset=utf-8"

func (s *ExportService) ExportResponses(ctx context.Context, actor *models.User, params ExportParams) (*ExportResult, error) {
	format := params.Format
	if format == "" {
		format = "long"
	}
	p, err := s.analytics.Pipeline(ctx, actor, params.Selection)
	if err != nil {
		return nil, err
	}
	rs := p.Responses(params.Selection)
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Month != rs[j].Month {
			return rs[i].Month < rs[j].Month
		}
		return rs[i].ID < rs[j].ID
	})

	switch format {
	case "long":
		b, err := ExportLongCSV(buildLongRows(p, params.Selection.compile(), rs))
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "responses-long.csv", ContentType: csvContentType, Data: b}, nil
	case "wide":
		mp := map[string]map[string]float64{}
		for _, r := range rs {
			mp[r.ID] = r.Answers
		}
		b, err := ExportWideCSV(mp)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "responses-wide.csv", ContentType: csvContentType, Data: b}, nil
	case "score":
		rows := make([]ScoreRow, 0, len(rs))
		for _, r := range rs {
			rows = append(rows, ScoreRow{ResponseID: r.ID, Month: r.Month, TemplateID: r.TemplateID, RespondentID: r.UserID, TargetID: r.TargetPlayerID, WeightedScore: r.WeightedScore})
		}
		b, err := ExportScoreCSV(rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "responses-score.csv", ContentType: csvContentType, Data: b}, nil
	default:
		return nil, NewInvalidError("unsupported format")
	}
}

// buildLongRows walks each template in question order so the output is stable.
func buildLongRows(p *Pipeline, f compiledFilter, rs []*models.Response) []LongRow {
	out := []LongRow{}
	for _, r := range rs {
		tpl := p.templates[r.TemplateID]
		if tpl == nil {
			continue
		}
		for ci := range tpl.Categories {
			c := &tpl.Categories[ci]
			for qi := range c.Questions {
				q := &c.Questions[qi]
				if !f.questionSelected(c, q) {
					continue
				}
				v, ok := r.Answers[q.ID]
				if !ok {
					continue
				}
				out = append(out, LongRow{
					ResponseID:   r.ID,
					Month:        r.Month,
					TemplateID:   r.TemplateID,
					RespondentID: r.UserID,
					TargetID:     r.TargetPlayerID,
					CategoryID:   c.ID,
					QuestionID:   q.ID,
					RawValue:     v,
					Normalized:   NormalizedPercent(q, v),
					SubmittedAt:  r.Date.UTC().Format(time.RFC3339),
				})
			}
		}
	}
	return out
}

// ExportComparison renders the comparison table with one column per target,
// labelled by user name.
func (s *ExportService) ExportComparison(ctx context.Context, actor *models.User, sel FilterSelection) (*ExportResult, error) {
	p, err := s.analytics.Pipeline(ctx, actor, sel)
	if err != nil {
		return nil, err
	}
	rows := p.Comparison(sel)
	columns := sel.UserIDs
	if len(columns) == 0 {
		set := idSet{}
		for _, r := range rows {
			for id := range r.Values {
				set[id] = struct{}{}
			}
		}
		columns = set.sorted()
	}
	labels := map[string]string{}
	for _, id := range columns {
		if u := p.users[id]; u != nil {
			labels[id] = u.Name
		}
	}
	b, err := ExportComparisonCSV(rows, columns, labels)
	if err != nil {
		return nil, err
	}
	return &ExportResult{Filename: "comparison.csv", ContentType: csvContentType, Data: b}, nil
}
