package app

import (
	"fmt"
	"sync"

	"math-physical/internal/domain"
)

// ScreenController tracks the single visible screen. There is no history:
// going back is a forward jump to a named screen.
type ScreenController struct {
	mu     sync.RWMutex
	active domain.Screen
}

func NewScreenController() *ScreenController {
	return &ScreenController{active: domain.ScreenMenu}
}

// SwitchTo deactivates the current screen and activates target.
func (c *ScreenController) SwitchTo(target domain.Screen) error {
	if !target.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownScreen, target)
	}
	c.mu.Lock()
	c.active = target
	c.mu.Unlock()
	return nil
}

func (c *ScreenController) Active() domain.Screen {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

func (c *ScreenController) IsActive(s domain.Screen) bool {
	return c.Active() == s
}

// mustSwitch is for transitions between known screens.
func (c *ScreenController) mustSwitch(target domain.Screen) {
	if err := c.SwitchTo(target); err != nil {
		panic(err)
	}
}
