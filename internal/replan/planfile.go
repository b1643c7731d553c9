package replan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/strategos/internal/types"
)

// planDocument is the YAML wire form of an ExecutionPlan. Durations are
// strings ("30s", "5m") and the ID is optional; both are normalized during
// conversion.
type planDocument struct {
	ID   string `yaml:"id,omitempty"`
	Goal struct {
		Description         string   `yaml:"description"`
		FlexibleConstraints []string `yaml:"flexible_constraints,omitempty"`
		SuccessCriteria     []struct {
			Name     string `yaml:"name"`
			Required bool   `yaml:"required"`
		} `yaml:"success_criteria,omitempty"`
	} `yaml:"goal"`
	Actions []struct {
		Name              string   `yaml:"name"`
		Type              string   `yaml:"type"`
		Status            string   `yaml:"status,omitempty"`
		ContributesTo     []string `yaml:"contributes_to,omitempty"`
		DependsOn         []string `yaml:"depends_on,omitempty"`
		EstimatedDuration string   `yaml:"estimated_duration,omitempty"`
	} `yaml:"actions"`
	EstimatedDuration string `yaml:"estimated_duration,omitempty"`
}

// ParseExecutionPlan decodes a declarative YAML plan definition into an
// ExecutionPlan. Actions without an explicit status start pending; a missing
// plan ID is generated.
func ParseExecutionPlan(data []byte) (*ExecutionPlan, error) {
	var doc planDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.WrapError(types.REPLAN_INVALID_PLAN, "malformed plan document", err)
	}

	plan := &ExecutionPlan{}

	if doc.ID == "" {
		plan.ID = types.NewID()
	} else {
		id, err := types.ParseID(doc.ID)
		if err != nil {
			return nil, types.WrapError(types.REPLAN_INVALID_PLAN, "invalid plan id", err)
		}
		plan.ID = id
	}

	plan.Goal.Description = doc.Goal.Description
	plan.Goal.FlexibleConstraints = doc.Goal.FlexibleConstraints
	for _, c := range doc.Goal.SuccessCriteria {
		if c.Name == "" {
			return nil, types.NewError(types.REPLAN_INVALID_PLAN, "success criterion without a name")
		}
		plan.Goal.SuccessCriteria = append(plan.Goal.SuccessCriteria, Criterion{
			Name:     c.Name,
			Required: c.Required,
		})
	}

	total, err := parseOptionalDuration(doc.EstimatedDuration)
	if err != nil {
		return nil, err
	}
	plan.EstimatedDuration = total

	seen := make(map[string]struct{}, len(doc.Actions))
	for _, a := range doc.Actions {
		if a.Name == "" {
			return nil, types.NewError(types.REPLAN_INVALID_PLAN, "action without a name")
		}
		if _, dup := seen[a.Name]; dup {
			return nil, types.NewError(types.REPLAN_INVALID_PLAN,
				fmt.Sprintf("duplicate action name %q", a.Name))
		}
		seen[a.Name] = struct{}{}

		status := ActionStatus(a.Status)
		if a.Status == "" {
			status = ActionStatusPending
		}
		switch status {
		case ActionStatusPending, ActionStatusRunning, ActionStatusCompleted,
			ActionStatusFailed, ActionStatusSkipped:
		default:
			return nil, types.NewError(types.REPLAN_INVALID_PLAN,
				fmt.Sprintf("action %q has unknown status %q", a.Name, a.Status))
		}

		dur, err := parseOptionalDuration(a.EstimatedDuration)
		if err != nil {
			return nil, err
		}

		plan.Actions = append(plan.Actions, PlannedAction{
			Name:              a.Name,
			Type:              a.Type,
			Status:            status,
			ContributesTo:     a.ContributesTo,
			DependsOn:         a.DependsOn,
			EstimatedDuration: dur,
		})
	}

	// Dependencies must resolve within the plan.
	for _, action := range plan.Actions {
		for _, dep := range action.DependsOn {
			if _, ok := seen[dep]; !ok {
				return nil, types.NewError(types.REPLAN_INVALID_PLAN,
					fmt.Sprintf("action %q depends on unknown action %q", action.Name, dep))
			}
		}
	}

	return plan, nil
}

// LoadExecutionPlan reads and parses a YAML plan definition from a file.
func LoadExecutionPlan(path string) (*ExecutionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.REPLAN_INVALID_PLAN, "failed to read plan file", err)
	}
	return ParseExecutionPlan(data)
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, types.WrapError(types.REPLAN_INVALID_PLAN, "invalid duration", err)
	}
	return d, nil
}
