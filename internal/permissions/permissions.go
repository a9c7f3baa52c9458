package permissions

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/PravEF/EFNadekoBot/internal/gateway"
)

// CategoryReactions is the permission category every reaction check runs
// under; tenant permission rules can target the category as a whole or an
// individual trigger.
const CategoryReactions = "ActualCustomReactions"

// Checker is the tenant permission engine. On deny, ruleIndex identifies the
// permission rule that blocked, for use in the verbose denial message.
type Checker interface {
	CheckPermissions(msg *gateway.Message, trigger, category string) (allowed bool, ruleIndex int)

	// IsVerbose reports whether the tenant wants denials announced in the
	// channel instead of silently swallowed.
	IsVerbose(tenantID uuid.UUID) bool
}

// DenialText formats the user-visible explanation for a blocked trigger.
func DenialText(ruleIndex int) string {
	return fmt.Sprintf("trigger blocked by permission rule #%d", ruleIndex+1)
}

// AllowAll permits everything and never announces. It stands in until the
// real permission engine is wired to the shard.
type AllowAll struct{}

func (AllowAll) CheckPermissions(*gateway.Message, string, string) (bool, int) { return true, -1 }

func (AllowAll) IsVerbose(uuid.UUID) bool { return false }
