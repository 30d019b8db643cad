package activation

import (
	"fmt"
	"strings"

	"github.com/constraintd/constraintd/core"
)

// AnchorHeader begins every rendered injection message.
const AnchorHeader = "## Active Constraints"

// Formatter is the concrete Injection Formatter: deterministic, pure
// rendering of a selected atom set into the outgoing message. It holds no
// state.
type Formatter struct{}

// NewFormatter returns a ready-to-use Formatter.
func NewFormatter() *Formatter { return &Formatter{} }

// Format implements core.InjectionFormatter. It renders an anchor header,
// one bullet per atom with its title followed by its reminders, and a
// trailing interaction marker.
func (f *Formatter) Format(activated []core.ActivatedConstraint, sessionID string, interactionNumber int64) string {
	var b strings.Builder
	b.WriteString(AnchorHeader)
	b.WriteByte('\n')

	for _, ac := range activated {
		b.WriteString(fmt.Sprintf("- **%s**\n", ac.Atomic.Title))
		for _, reminder := range ac.Atomic.Reminders {
			b.WriteString(fmt.Sprintf("  - %s\n", reminder))
		}
	}

	b.WriteString(fmt.Sprintf("<!-- interaction:%s:%d -->\n", sessionID, interactionNumber))
	return b.String()
}

var _ core.InjectionFormatter = (*Formatter)(nil)
