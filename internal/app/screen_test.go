package app_test

import (
	"errors"
	"testing"

	"math-physical/internal/app"
	"math-physical/internal/domain"
)

func TestScreenControllerSingleActive(t *testing.T) {
	c := app.NewScreenController()
	if !c.IsActive(domain.ScreenMenu) {
		t.Fatalf("expected menu at start, got %s", c.Active())
	}

	for _, s := range domain.Screens {
		if err := c.SwitchTo(s); err != nil {
			t.Fatalf("switch to %s: %v", s, err)
		}
		for _, other := range domain.Screens {
			if c.IsActive(other) != (other == s) {
				t.Fatalf("screen %s active state wrong while on %s", other, s)
			}
		}
	}

	if err := c.SwitchTo("settings"); !errors.Is(err, domain.ErrUnknownScreen) {
		t.Fatalf("expected unknown screen, got %v", err)
	}
	if c.Active() != domain.ScreenInfo {
		t.Fatalf("expected screen unchanged, got %s", c.Active())
	}
}
