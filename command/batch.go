package command

// CompositeCommand groups several commands into a single undo-stack
// entry, applied in order and undone in reverse order. Used by
// Engine.PerformBatch for a single user gesture that touches many
// targets at once (e.g. a cue recall writing several channels' faders).
type CompositeCommand struct {
	Description_ string
	Commands     []Command

	applied int
}

func (c *CompositeCommand) Description() string { return c.Description_ }

// Do runs every command in order. If one fails partway, the commands
// already applied are unwound in reverse before the error is returned, so
// a failed batch never leaves partial state on the undo stack.
func (c *CompositeCommand) Do(r Resolver) error {
	for i, cmd := range c.Commands {
		if err := cmd.Do(r); err != nil {
			for j := i - 1; j >= 0; j-- {
				c.Commands[j].Undo(r)
			}
			c.applied = 0
			return err
		}
		c.applied = i + 1
	}
	return nil
}

func (c *CompositeCommand) Undo(r Resolver) error {
	for i := c.applied - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(r); err != nil {
			return err
		}
	}
	c.applied = 0
	return nil
}
