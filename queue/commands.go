package queue

// Commands queues console command lines for the host console.
type Commands struct {
	q Queue[string]
}

func (c *Commands) Submit(text string) {
	c.q.Push(text)
}

func (c *Commands) Len() int {
	return c.q.Len()
}

// Drain hands each pending command to exec. exec returns false while the
// console is unavailable; that command and the rest stay queued in order.
func (c *Commands) Drain(exec func(text string) bool) int {
	return c.q.Drain(exec)
}
