package notification

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-print"
)

// ConsoleDispatcher writes notifications to an io.Writer instead of sending
// them. Use it in development.
type ConsoleDispatcher struct {
	mu  sync.Mutex
	out io.Writer
}

var _ accounts.NotificationDispatcher = (*ConsoleDispatcher)(nil)

// NewConsoleDispatcher writes to out, or stdout when out is nil
func NewConsoleDispatcher(out io.Writer) *ConsoleDispatcher {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleDispatcher{out: out}
}

func (c *ConsoleDispatcher) Send(_ context.Context, templateName, recipient string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, "====== SENDING EMAIL NOTIFICATION =======")
	fmt.Fprintf(c.out, "template: %s\n", templateName)
	fmt.Fprintf(c.out, "to: %s\n", recipient)
	if link, ok := data["ConfirmURL"]; ok {
		fmt.Fprintf(c.out, "link: %v\n", link)
	}
	fmt.Fprintln(c.out, print.MaybePrettyJSON(data))

	return nil
}
