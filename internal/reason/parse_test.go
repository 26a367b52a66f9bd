package reason

import (
	"testing"

	"github.com/taskfleet/taskfleet/pkg/models"
)

func TestParseUnderstanding(t *testing.T) {
	reply := `Here is the classification you asked for:
{
  "primary_intent": "Build a billing API",
  "complexity": "Complex",
  "required_expertise": ["backend", "database"]
}
Let me know if you need anything else.`

	u, err := ParseUnderstanding(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.PrimaryIntent != "Build a billing API" {
		t.Errorf("primary intent = %q", u.PrimaryIntent)
	}
	if u.Complexity != "Complex" {
		t.Errorf("complexity = %q", u.Complexity)
	}
	if len(u.RequiredExpertise) != 2 {
		t.Errorf("expertise = %v", u.RequiredExpertise)
	}
}

func TestParseUnderstandingDefaults(t *testing.T) {
	u, err := ParseUnderstanding(`{"primary_intent": "do a thing"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Complexity != "Moderate" {
		t.Errorf("complexity should default to Moderate, got %q", u.Complexity)
	}
	if len(u.RequiredExpertise) != 1 || u.RequiredExpertise[0] != "General" {
		t.Errorf("expertise should default to [General], got %v", u.RequiredExpertise)
	}
}

func TestParseUnderstandingNoJSON(t *testing.T) {
	if _, err := ParseUnderstanding("I could not classify that task."); err == nil {
		t.Error("prose-only reply should fail to parse")
	}
}

func TestParsePlan(t *testing.T) {
	reply := `{
  "overview": "Two packages",
  "work_packages": [
    {"id": "wp-1", "name": "API", "description": "build endpoints", "assigned_to": "backend-1", "elements": ["schema", "handlers"]},
    {"id": "wp-2", "name": "Tests", "description": "cover endpoints", "assigned_to": "qa-1", "elements": []}
  ]
}`

	p, err := ParsePlan(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(p.WorkPackages) != 2 {
		t.Fatalf("packages = %d, want 2", len(p.WorkPackages))
	}
	// A package with no elements gets its description as the single element.
	if len(p.WorkPackages[1].Elements) != 1 || p.WorkPackages[1].Elements[0] != "cover endpoints" {
		t.Errorf("empty elements not backfilled: %v", p.WorkPackages[1].Elements)
	}
}

func TestParsePlanRejectsMissingAgent(t *testing.T) {
	reply := `{"overview": "x", "work_packages": [{"id": "wp-1", "name": "n", "description": "d", "elements": ["e"]}]}`
	if _, err := ParsePlan(reply); err == nil {
		t.Error("work package without assigned_to should be rejected")
	}
}

func TestParseDecomposition(t *testing.T) {
	reply := "```json\n" + `{
  "tasks": [
    {"description": "write schema", "bot_type": "code-generation", "expected_output": "migration file"},
    {"description": "eyeball the tests", "bot_type": "squinting"}
  ],
  "strategy": "by artifact"
}` + "\n```"

	d, err := ParseDecomposition(reply)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(d.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(d.Tasks))
	}
	if d.Tasks[0].BotType != models.BotTypeCodeGeneration {
		t.Errorf("bot type = %q", d.Tasks[0].BotType)
	}
	// Unknown bot types degrade to general instead of failing.
	if d.Tasks[1].BotType != models.BotTypeGeneral {
		t.Errorf("unknown bot type should degrade to general, got %q", d.Tasks[1].BotType)
	}
}

func TestParseDecompositionEmpty(t *testing.T) {
	if _, err := ParseDecomposition(`{"tasks": []}`); err == nil {
		t.Error("empty decomposition should be rejected")
	}
}
