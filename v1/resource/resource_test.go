package resource

import (
	"errors"
	"strings"
	"testing"

	reserrors "github.com/testforge/reslock/v1/errors"
	"github.com/testforge/reslock/v1/task"
)

func TestValidName(t *testing.T) {
	valid := []string{"staging-account", "db_1", "A", "0", "a-B_9"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("expected %q valid", name)
		}
	}
	invalid := []string{"", "has space", "semi;colon", "slash/y", "ünïcode", "dot.name"}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("expected %q invalid", name)
		}
	}
}

func TestValidateNameErrorCategory(t *testing.T) {
	if err := ValidateName("ok-name"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := ValidateName("not ok")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, reserrors.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestValidateTaskNamesOffender(t *testing.T) {
	err := ValidateTask(task.New("t1", "good", "bad name", "also-good"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, reserrors.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	for _, want := range []string{"t1", "bad name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %q", err, want)
		}
	}

	if err := ValidateTask(task.New("t2", "good", "also-good")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateTask(task.New("t3")); err != nil {
		t.Fatalf("task with no resources: %v", err)
	}
}
