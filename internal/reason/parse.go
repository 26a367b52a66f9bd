package reason

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// extractJSONObject pulls the outermost JSON object out of a model reply,
// tolerating prose or code fences around it.
func extractJSONObject(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		preview := response
		if len(preview) > 500 {
			preview = preview[:500] + "... (truncated)"
		}
		return "", fmt.Errorf("no JSON object found in response (got %d chars): %q", len(response), preview)
	}
	return response[start : end+1], nil
}

// ParseUnderstanding parses a classification reply.
func ParseUnderstanding(response string) (*models.Understanding, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var u models.Understanding
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("unmarshal understanding: %w", err)
	}
	if u.PrimaryIntent == "" {
		return nil, fmt.Errorf("understanding missing primary_intent")
	}
	if u.Complexity == "" {
		u.Complexity = "Moderate"
	}
	if len(u.RequiredExpertise) == 0 {
		u.RequiredExpertise = []string{"General"}
	}
	return &u, nil
}

// ParsePlan parses a project plan reply.
func ParsePlan(response string) (*models.ProjectPlan, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var p models.ProjectPlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if len(p.WorkPackages) == 0 {
		return nil, fmt.Errorf("plan has no work packages")
	}
	for i, wp := range p.WorkPackages {
		if wp.AssignedTo == "" {
			return nil, fmt.Errorf("work package %d missing assigned_to", i)
		}
		if len(wp.Elements) == 0 {
			// A package without elements still gets one unit of work.
			p.WorkPackages[i].Elements = []string{wp.Description}
		}
	}
	return &p, nil
}

// ParseDecomposition parses a bot-spec reply. Unknown bot types degrade
// to general rather than failing the whole decomposition.
func ParseDecomposition(response string) (*models.Decomposition, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var d models.Decomposition
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("unmarshal decomposition: %w", err)
	}
	if len(d.Tasks) == 0 {
		return nil, fmt.Errorf("decomposition has no tasks")
	}
	for i, spec := range d.Tasks {
		if spec.Description == "" {
			return nil, fmt.Errorf("decomposition task %d missing description", i)
		}
		if !spec.BotType.Valid() {
			d.Tasks[i].BotType = models.BotTypeGeneral
		}
	}
	return &d, nil
}
