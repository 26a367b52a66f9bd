package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}

	invalid := []TaskStatus{"", "done", "failed", "PENDING"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestPriorityValid(t *testing.T) {
	valid := []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}
	for _, p := range valid {
		if !p.Valid() {
			t.Errorf("priority %q should be valid", p)
		}
	}

	if Priority("urgent").Valid() {
		t.Error("priority \"urgent\" should be invalid")
	}
}

func TestAssignmentStatusTerminal(t *testing.T) {
	terminal := []AssignmentStatus{
		AssignmentStatusCompleted, AssignmentStatusPartial, AssignmentStatusFailed,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("status %q should be terminal", s)
		}
	}

	open := []AssignmentStatus{AssignmentStatusAssigned, AssignmentStatusInProgress}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("status %q should not be terminal", s)
		}
	}
}

func TestBotTypeValid(t *testing.T) {
	valid := []BotType{
		BotTypeResearch, BotTypeCodeGeneration, BotTypeTesting,
		BotTypeDocumentation, BotTypeDeployment, BotTypeAnalysis, BotTypeGeneral,
	}
	for _, bt := range valid {
		if !bt.Valid() {
			t.Errorf("bot type %q should be valid", bt)
		}
	}

	if BotType("design").Valid() {
		t.Error("bot type \"design\" should be invalid")
	}
}

func TestAgentHasCapacity(t *testing.T) {
	a := &Agent{CurrentLoad: 2, MaxCapacity: 3}
	if !a.HasCapacity() {
		t.Error("agent below capacity should have capacity")
	}

	a.CurrentLoad = 3
	if a.HasCapacity() {
		t.Error("agent at capacity should not have capacity")
	}
}
