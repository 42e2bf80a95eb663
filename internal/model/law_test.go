package model_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/raysh454/lawtrack/internal/model"
)

func TestPushHistory_NewestFirstAndBounded(t *testing.T) {
	t.Parallel()
	var law model.TrackedLaw
	for i := 1; i <= 13; i++ {
		law.PushHistory(model.HistoryEntry{Description: fmt.Sprintf("change %d", i)})
	}

	if len(law.History) != model.HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(law.History), model.HistoryLimit)
	}
	if law.History[0].Description != "change 13" {
		t.Errorf("newest entry = %q, want change 13", law.History[0].Description)
	}
	if law.History[9].Description != "change 4" {
		t.Errorf("oldest kept entry = %q, want change 4", law.History[9].Description)
	}
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()
	now := time.Now()
	art := "a.html"
	law := model.TrackedLaw{Name: "x", LastChecked: &now}
	law.PushHistory(model.HistoryEntry{Artifact: &art})

	c := law.Clone()
	*c.LastChecked = now.Add(time.Hour)
	*c.History[0].Artifact = "b.html"
	c.History[0].Description = "mutated"

	if !law.LastChecked.Equal(now) {
		t.Error("clone shares LastChecked")
	}
	if *law.History[0].Artifact != "a.html" || law.History[0].Description != "" {
		t.Error("clone shares history")
	}
}
