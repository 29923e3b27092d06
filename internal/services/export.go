package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
)

// LongRow is one answered question of one response.
type LongRow struct {
	ResponseID   string
	Month        string
	TemplateID   string
	RespondentID string
	TargetID     string
	CategoryID   string
	QuestionID   string
	RawValue     float64
	Normalized   float64
	SubmittedAt  string // RFC3339
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// round1 keeps exported means readable.
func round1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

// ExportLongCSV renders rows into a long-format CSV.
func ExportLongCSV(rows []LongRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "month", "template_id", "respondent_id", "target_id", "category_id", "question_id", "raw_value", "normalized", "submitted_at"})
	for _, r := range rows {
		rec := []string{
			r.ResponseID,
			r.Month,
			r.TemplateID,
			r.RespondentID,
			r.TargetID,
			r.CategoryID,
			r.QuestionID,
			ftoa(r.RawValue),
			round1(r.Normalized),
			r.SubmittedAt,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportWideCSV renders one row per response and one column per question id.
// inputs is a map[responseID]map[questionID]rawValue; unanswered cells are empty.
func ExportWideCSV(inputs map[string]map[string]float64) ([]byte, error) {
	qSet := map[string]struct{}{}
	for _, m := range inputs {
		for qid := range m {
			qSet[qid] = struct{}{}
		}
	}
	questions := make([]string, 0, len(qSet))
	for id := range qSet {
		questions = append(questions, id)
	}
	sort.Strings(questions)

	rids := make([]string, 0, len(inputs))
	for rid := range inputs {
		rids = append(rids, rid)
	}
	sort.Strings(rids)

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(append([]string{"response_id"}, questions...))
	for _, rid := range rids {
		row := make([]string, 0, 1+len(questions))
		row = append(row, rid)
		for _, qid := range questions {
			if v, ok := inputs[rid][qid]; ok {
				row = append(row, ftoa(v))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ScoreRow is the total of one response.
type ScoreRow struct {
	ResponseID    string
	Month         string
	TemplateID    string
	RespondentID  string
	TargetID      string
	WeightedScore int
}

// ExportScoreCSV renders the weighted score per response.
func ExportScoreCSV(rows []ScoreRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "month", "template_id", "respondent_id", "target_id", "weighted_score"})
	for _, r := range rows {
		if err := w.Write([]string{r.ResponseID, r.Month, r.TemplateID, r.RespondentID, r.TargetID, strconv.Itoa(r.WeightedScore)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportComparisonCSV renders the month x target table. columns fixes the
// target order; labels maps target ids to header text.
func ExportComparisonCSV(rows []ComparisonRow, columns []string, labels map[string]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"month"}
	for _, id := range columns {
		if l := labels[id]; l != "" {
			header = append(header, l)
		} else {
			header = append(header, id)
		}
	}
	_ = w.Write(header)
	for _, r := range rows {
		rec := make([]string, 0, 1+len(columns))
		rec = append(rec, r.Month)
		for _, id := range columns {
			if v, ok := r.Values[id]; ok {
				rec = append(rec, round1(v))
			} else {
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
