package services

import (
	"testing"

	"github.com/soaringjerry/FootPulse/internal/models"
)

func validCategories() []models.Category {
	return []models.Category{
		{ID: "c1", Name: "Technical", ArName: "فني", Weight: 70, Questions: []models.Question{
			{ID: "q1", Text: "Passing", ArText: "التمرير", Weight: 60, Type: models.QuestionRating, ScaleMax: 5},
			{ID: "q2", Text: "Dribbling", Weight: 40, Type: models.QuestionRating},
		}},
		{ID: "c2", Name: "Attitude", Weight: 30, Questions: []models.Question{
			{ID: "q3", Text: "Punctuality", Weight: 100, Type: models.QuestionMultipleChoice, Options: []models.Option{
				{ID: "o1", Text: "Late", ArText: "متأخر", Value: 1}, {ID: "o2", Text: "On time", Value: 3},
			}},
		}},
	}
}

func TestValidateTemplate(t *testing.T) {
	if err := ValidateTemplate(validCategories()); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}
	mutate := map[string]func(cs []models.Category){
		"category weights":    func(cs []models.Category) { cs[0].Weight = 60 },
		"question weights":    func(cs []models.Category) { cs[0].Questions[1].Weight = 30 },
		"duplicate ids":       func(cs []models.Category) { cs[1].Questions[0].ID = "q1" },
		"missing options":     func(cs []models.Category) { cs[1].Questions[0].Options = nil },
		"unknown type":        func(cs []models.Category) { cs[0].Questions[0].Type = "SLIDER" },
		"negative scale":      func(cs []models.Category) { cs[0].Questions[0].ScaleMax = -1 },
		"empty category":      func(cs []models.Category) { cs[1].Questions = nil },
		"blank category id":   func(cs []models.Category) { cs[0].ID = " " },
		"blank name":          func(cs []models.Category) { cs[1].Name = "" },
		"negative cat weight": func(cs []models.Category) { cs[0].Weight, cs[1].Weight = -10, 110 },
	}
	for name, m := range mutate {
		cs := validCategories()
		m(cs)
		if err := ValidateTemplate(cs); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := ValidateTemplate(nil); err == nil {
		t.Fatalf("empty template accepted")
	}
}

func TestTemplateCreateAndGet(t *testing.T) {
	store := seededStore()
	svc := NewTemplateService(store, store)
	svc.idGen = func(prefix string) string { return prefix + "-generated" }

	tpl, err := svc.Create(stubAdmin, CreateTemplateInput{Name: " Monthly ", Categories: validCategories()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tpl.ID != "t-generated" || tpl.Name != "Monthly" {
		t.Fatalf("unexpected template %+v", tpl)
	}
	got, err := svc.Get("t-generated")
	if err != nil || got.Name != "Monthly" {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if _, err := svc.Create(stubAdmin, CreateTemplateInput{ID: "T1", Name: "Dup", Categories: validCategories()}); err == nil {
		t.Fatalf("expected conflict on existing id")
	}
	if _, err := svc.Create(stubCoach, CreateTemplateInput{Name: "X", Categories: validCategories()}); err == nil {
		t.Fatalf("trainer must not author templates")
	}
	_, err = svc.Get("missing")
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	list, err := svc.List()
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %d, %v", len(list), err)
	}
}

func TestLocalize(t *testing.T) {
	tpl := &models.Template{ID: "t", Name: "Eval", ArName: "تقييم", Description: "Monthly", Categories: validCategories()}
	ar := Localize(tpl, "ar")
	if ar.Name != "تقييم" || ar.Description != "Monthly" {
		t.Fatalf("localized header = %q / %q", ar.Name, ar.Description)
	}
	if ar.Categories[0].Name != "فني" || ar.Categories[1].Name != "Attitude" {
		t.Fatalf("localized categories = %+v", ar.Categories)
	}
	if ar.Categories[0].Questions[0].Text != "التمرير" || ar.Categories[1].Questions[0].Options[0].Text != "متأخر" {
		t.Fatalf("localized questions not applied")
	}
	if tpl.Categories[0].Name != "Technical" || tpl.Categories[1].Questions[0].Options[0].Text != "Late" {
		t.Fatalf("Localize mutated its input")
	}
	if Localize(tpl, "en") != tpl {
		t.Fatalf("english should return the template as-is")
	}
}
