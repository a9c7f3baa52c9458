package behaviors

import (
	"context"

	"go.uber.org/zap"

	"github.com/PravEF/EFNadekoBot/internal/gateway"
)

// EarlyBlockingExecutor gets a look at every inbound message before normal
// command handling. Returning true claims the message and stops both the
// remaining executors and any later handling stage.
type EarlyBlockingExecutor interface {
	TryExecuteEarly(ctx context.Context, client gateway.Client, msg *gateway.Message) (bool, error)
}

// AliasableExecutor additionally accepts pre-substituted content, used when
// an alias expands to text that should be matched instead of the raw message.
type AliasableExecutor interface {
	TryExecuteEarlyAs(ctx context.Context, client gateway.Client, msg *gateway.Message, alias string) (bool, error)
}

// Dispatcher fans inbound messages out to registered executors in fixed
// priority order. Executor errors are logged and do not stop the scan; a
// failing feature must not block its siblings from seeing the message.
type Dispatcher struct {
	executors []EarlyBlockingExecutor
	client    gateway.Client
	logger    *zap.Logger
}

func NewDispatcher(client gateway.Client, logger *zap.Logger, executors ...EarlyBlockingExecutor) *Dispatcher {
	return &Dispatcher{executors: executors, client: client, logger: logger}
}

// Dispatch runs the executor chain for one message and reports whether any
// executor claimed it.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *gateway.Message) bool {
	for _, ex := range d.executors {
		handled, err := ex.TryExecuteEarly(ctx, d.client, msg)
		if err != nil {
			d.logger.Warn("early executor failed",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if handled {
			return true
		}
	}
	return false
}
