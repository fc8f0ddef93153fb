package question

import (
	"testing"
	"time"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog(time.UTC)
	if err != nil {
		t.Fatalf("DefaultCatalog returned error: %v", err)
	}
	if catalog.Len() != 3 {
		t.Fatalf("expected 3 questions, got %d", catalog.Len())
	}

	breakfast, ok := catalog.Get(0)
	if !ok {
		t.Fatal("expected question at index 0")
	}
	if breakfast.Prompt != "Did you have your breakfast as per the diet plan?" {
		t.Errorf("unexpected breakfast prompt: %q", breakfast.Prompt)
	}
	if got := breakfast.CronSpec(); got != "0 10 * * *" {
		t.Errorf("breakfast cron spec = %q, want %q", got, "0 10 * * *")
	}

	lunch, _ := catalog.Get(1)
	if got := lunch.CronSpec(); got != "30 14 * * *" {
		t.Errorf("lunch cron spec = %q, want %q", got, "30 14 * * *")
	}
}

func TestCatalogGetOutOfRange(t *testing.T) {
	catalog, err := DefaultCatalog(time.UTC)
	if err != nil {
		t.Fatalf("DefaultCatalog returned error: %v", err)
	}
	if _, ok := catalog.Get(-1); ok {
		t.Error("Get(-1) should not succeed")
	}
	if _, ok := catalog.Get(catalog.Len()); ok {
		t.Error("Get(len) should not succeed")
	}
}

func TestNewCatalogValidation(t *testing.T) {
	valid := Question{
		Hour:        9,
		Minute:      0,
		Prompt:      "q",
		YesFollowUp: "yes",
		NoFollowUp:  "no",
	}

	cases := []struct {
		name      string
		questions []Question
		location  *time.Location
	}{
		{name: "empty catalog", questions: nil, location: time.UTC},
		{name: "nil location", questions: []Question{valid}, location: nil},
		{
			name: "invalid hour",
			questions: []Question{func() Question {
				q := valid
				q.Hour = 24
				return q
			}()},
			location: time.UTC,
		},
		{
			name: "invalid minute",
			questions: []Question{func() Question {
				q := valid
				q.Minute = 60
				return q
			}()},
			location: time.UTC,
		},
		{
			name: "empty prompt",
			questions: []Question{func() Question {
				q := valid
				q.Prompt = ""
				return q
			}()},
			location: time.UTC,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalog(tc.questions, tc.location); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
