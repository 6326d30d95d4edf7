package cli

import (
	"fmt"
	"io"

	"github.com/kuse-dev/cowork/internal/agent"
)

// eventEcho writes events in their wire form for --verbose.
type eventEcho struct {
	w io.Writer
}

func newEventEcho(w io.Writer) *eventEcho {
	return &eventEcho{w: w}
}

func (e *eventEcho) echo(ev agent.Event) {
	data, err := agent.EncodeEvent(ev)
	if err != nil {
		fmt.Fprintf(e.w, "# %v\n", err)
		return
	}
	fmt.Fprintf(e.w, "%s\n", data)
}
