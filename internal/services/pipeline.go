package services

import (
	"math"
	"sort"

	"github.com/soaringjerry/FootPulse/internal/models"
)

// Snapshot is the immutable input of one analytics computation.
type Snapshot struct {
	Users       []*models.User       `json:"users"`
	Templates   []*models.Template   `json:"templates"`
	Responses   []*models.Response   `json:"responses"`
	Assignments []*models.Assignment `json:"assignments"`
}

type TrendPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// ComparisonRow holds one month of the multi-target table. Targets without
// data in the month have no entry in Values.
type ComparisonRow struct {
	Month  string             `json:"month"`
	Values map[string]float64 `json:"values"`
}

type RadarPoint struct {
	Category  string  `json:"category"`
	Selected  float64 `json:"selected"`
	Benchmark float64 `json:"benchmark"`
}

type GrowthDelta struct {
	Category string  `json:"category"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Delta    int     `json:"delta"`
}

type CompletionPoint struct {
	Month     string `json:"month"`
	Pending   int    `json:"pending"`
	Completed int    `json:"completed"`
}

// Pipeline answers analytics queries for one actor over one snapshot.
// Every query is scoped by the actor's visibility before any filter applies.
type Pipeline struct {
	snap      *Snapshot
	actor     *models.User
	users     map[string]*models.User
	templates map[string]*models.Template
	visible   func(*models.Response) bool
	target    func(string) bool
}

func NewPipeline(snap *Snapshot, actor *models.User) *Pipeline {
	if snap == nil {
		snap = &Snapshot{}
	}
	p := &Pipeline{
		snap:      snap,
		actor:     actor,
		users:     make(map[string]*models.User, len(snap.Users)),
		templates: make(map[string]*models.Template, len(snap.Templates)),
		visible:   VisibilityPredicate(actor, snap.Users),
		target:    TargetPredicate(actor, snap.Users),
	}
	for _, u := range snap.Users {
		if u != nil {
			p.users[u.ID] = u
		}
	}
	for _, t := range snap.Templates {
		if t != nil {
			p.templates[t.ID] = t
		}
	}
	return p
}

// matches applies the response-level dimensions of the filter.
func (p *Pipeline) matches(f compiledFilter, r *models.Response) bool {
	return f.users.allows(r.TargetPlayerID) &&
		f.months.allows(r.Month) &&
		f.templates.allows(r.TemplateID) &&
		f.trainerAllows(p.users[r.TargetPlayerID])
}

func (p *Pipeline) collect(keep func(*models.Response) bool) []*models.Response {
	out := []*models.Response{}
	for _, r := range p.snap.Responses {
		if r != nil && keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Responses returns the visible responses that pass the filter.
func (p *Pipeline) Responses(sel FilterSelection) []*models.Response {
	f := sel.compile()
	return p.collect(func(r *models.Response) bool { return p.visible(r) && p.matches(f, r) })
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) { m.sum += v; m.n++ }

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// Trend returns one point per month, ascending. With a category or question
// filter the value is the pooled mean of the selected answers (0..100);
// otherwise it is the mean weighted score.
func (p *Pipeline) Trend(sel FilterSelection) []TrendPoint {
	f := sel.compile()
	byMonth := map[string]*mean{}
	for _, r := range p.Responses(sel) {
		m := byMonth[r.Month]
		if m == nil {
			m = &mean{}
			byMonth[r.Month] = m
		}
		if !f.narrowsQuestions() {
			m.add(float64(r.WeightedScore))
			continue
		}
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
				if v, ok := r.Answers[q.ID]; ok {
					m.add(NormalizedPercent(q, v))
				}
			}
		}
	}
	months := make([]string, 0, len(byMonth))
	for month, m := range byMonth {
		if m.n > 0 {
			months = append(months, month)
		}
	}
	sort.Strings(months)
	out := make([]TrendPoint, 0, len(months))
	for _, month := range months {
		out = append(out, TrendPoint{Month: month, Value: byMonth[month].value()})
	}
	return out
}

// Comparison builds a month x target table of mean weighted scores. An
// empty user selection compares every visible target; an empty month
// selection uses every month with data.
func (p *Pipeline) Comparison(sel FilterSelection) []ComparisonRow {
	f := sel.compile()
	responses := p.Responses(sel)
	cells := map[string]map[string]*mean{}
	months := idSet{}
	for _, r := range responses {
		months[r.Month] = struct{}{}
		row := cells[r.Month]
		if row == nil {
			row = map[string]*mean{}
			cells[r.Month] = row
		}
		m := row[r.TargetPlayerID]
		if m == nil {
			m = &mean{}
			row[r.TargetPlayerID] = m
		}
		m.add(float64(r.WeightedScore))
	}
	if len(f.months) > 0 {
		months = f.months
	}
	out := make([]ComparisonRow, 0, len(months))
	for _, month := range months.sorted() {
		row := ComparisonRow{Month: month, Values: map[string]float64{}}
		for target, m := range cells[month] {
			row.Values[target] = m.value()
		}
		out = append(out, row)
	}
	return out
}

// categoryScore is the mean normalized value (0..100) of the answered,
// selected questions of c in r. ok is false when none were answered.
func categoryScore(f compiledFilter, c *models.Category, r *models.Response) (float64, bool) {
	var m mean
	for qi := range c.Questions {
		q := &c.Questions[qi]
		if !f.questionSelected(c, q) {
			continue
		}
		if v, ok := r.Answers[q.ID]; ok {
			m.add(NormalizedPercent(q, v))
		}
	}
	return m.value(), m.n > 0
}

// categoryNames lists distinct category names of the templates in scope, in
// first-appearance order, skipping categories the filter removes entirely.
func (p *Pipeline) categoryNames(f compiledFilter) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, t := range p.snap.Templates {
		if t == nil || !f.templates.allows(t.ID) {
			continue
		}
		for ci := range t.Categories {
			c := &t.Categories[ci]
			selected := false
			for qi := range c.Questions {
				if f.questionSelected(c, &c.Questions[qi]) {
					selected = true
					break
				}
			}
			if !selected {
				continue
			}
			if _, ok := seen[c.Name]; ok {
				continue
			}
			seen[c.Name] = struct{}{}
			names = append(names, c.Name)
		}
	}
	return names
}

// categoryMeans averages per-response category scores by category name.
func (p *Pipeline) categoryMeans(f compiledFilter, responses []*models.Response) map[string]*mean {
	out := map[string]*mean{}
	for _, r := range responses {
		tpl := p.templates[r.TemplateID]
		if tpl == nil {
			continue
		}
		for ci := range tpl.Categories {
			c := &tpl.Categories[ci]
			score, ok := categoryScore(f, c, r)
			if !ok {
				continue
			}
			m := out[c.Name]
			if m == nil {
				m = &mean{}
				out[c.Name] = m
			}
			m.add(score)
		}
	}
	return out
}

func valueOf(ms map[string]*mean, name string) float64 {
	if m := ms[name]; m != nil {
		return m.value()
	}
	return 0
}

// benchmark selects the comparison population for the radar: the whole
// academy for admins, the own squad for trainers and all academy players
// for everyone else. Only aggregated means leave this population.
func (p *Pipeline) benchmark(r *models.Response) bool {
	if p.actor == nil {
		return false
	}
	target := p.users[r.TargetPlayerID]
	switch p.actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTrainer:
		return target != nil && target.Role == models.RolePlayer && target.TrainerID == p.actor.ID
	default:
		return target != nil && target.Role == models.RolePlayer
	}
}

// Radar pairs, per competency, the mean of the selected targets with the
// mean of the actor's benchmark population. An empty user selection yields
// zero selected values.
func (p *Pipeline) Radar(sel FilterSelection) []RadarPoint {
	f := sel.compile()
	selected := []*models.Response{}
	if len(f.users) > 0 {
		selected = p.Responses(sel)
	}
	bench := p.collect(func(r *models.Response) bool {
		return p.benchmark(r) && f.months.allows(r.Month) && f.templates.allows(r.TemplateID)
	})
	a := p.categoryMeans(f, selected)
	b := p.categoryMeans(f, bench)
	out := []RadarPoint{}
	for _, name := range p.categoryNames(f) {
		pt := RadarPoint{Category: name, Selected: valueOf(a, name), Benchmark: valueOf(b, name)}
		if pt.Selected == 0 && pt.Benchmark == 0 {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// Growth compares the two latest selected months per category. It needs at
// least two distinct months in the selection and reports nothing otherwise.
func (p *Pipeline) Growth(sel FilterSelection) []GrowthDelta {
	f := sel.compile()
	out := []GrowthDelta{}
	months := f.months.sorted()
	if len(months) < 2 {
		return out
	}
	current, previous := months[len(months)-1], months[len(months)-2]

	narrowed := sel
	narrowed.MonthIDs = []string{current}
	cur := p.categoryMeans(f, p.Responses(narrowed))
	narrowed.MonthIDs = []string{previous}
	prev := p.categoryMeans(f, p.Responses(narrowed))

	for _, name := range p.categoryNames(f) {
		c := cur[name]
		if c == nil || c.n == 0 {
			continue
		}
		pv := valueOf(prev, name)
		out = append(out, GrowthDelta{
			Category: name,
			Current:  c.value(),
			Previous: pv,
			Delta:    int(math.Round(c.value() - pv)),
		})
	}
	return out
}

// Completion counts pending and completed assignments per month among the
// assignments the actor answers or may see the target of.
func (p *Pipeline) Completion(sel FilterSelection) []CompletionPoint {
	f := sel.compile()
	byMonth := map[string]*CompletionPoint{}
	for _, a := range p.snap.Assignments {
		if a == nil || p.actor == nil {
			continue
		}
		if a.RespondentID != p.actor.ID && !p.target(a.TargetID) {
			continue
		}
		if !f.users.allows(a.TargetID) || !f.months.allows(a.Month) || !f.templates.allows(a.TemplateID) {
			continue
		}
		pt := byMonth[a.Month]
		if pt == nil {
			pt = &CompletionPoint{Month: a.Month}
			byMonth[a.Month] = pt
		}
		if a.Status == models.StatusCompleted {
			pt.Completed++
		} else {
			pt.Pending++
		}
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]CompletionPoint, 0, len(months))
	for _, m := range months {
		out = append(out, *byMonth[m])
	}
	return out
}
