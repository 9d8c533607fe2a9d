package external

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// BreakerCheck reports an upstream as unhealthy while its circuit breaker
// is open. It never calls the upstream itself.
type BreakerCheck struct {
	name   string
	client *BaseClient
}

// NewBreakerCheck names the client's breaker for /health.
func NewBreakerCheck(name string, client *BaseClient) *BreakerCheck {
	return &BreakerCheck{name: name, client: client}
}

func (c *BreakerCheck) Name() string { return c.name }

// Check fails when the breaker is open.
func (c *BreakerCheck) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state := c.client.breaker.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("%s circuit breaker is %s", c.name, state)
	}
	return nil
}
