// Package toast shows short-lived notices on a terminal.
//
// Producers call Show from anywhere in the process. The notice is delivered to
// the container mounted with Mount, printed once, and kept in Active until its
// duration elapses. Without a mounted container, notices are dropped.
package toast

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/docker/mcp-widgets/pkg/terminal"
)

const DefaultDuration = 3 * time.Second

type Kind int

const (
	Info Kind = iota
	Success
	Failure
)

type Item struct {
	ID       string
	Kind     Kind
	Content  string
	Duration time.Duration
}

var (
	busMu   sync.Mutex
	mounted *Container
)

// Container renders notices and tracks the ones that have not expired yet.
type Container struct {
	w      io.Writer
	styles map[Kind]*color.Color

	mu     sync.Mutex
	items  []Item
	timers map[string]*time.Timer
}

// Mount attaches the process-wide container to w. Mounting again returns the
// existing container, whatever writer is passed.
func Mount(w io.Writer) *Container {
	busMu.Lock()
	defer busMu.Unlock()

	if mounted != nil {
		return mounted
	}

	styles := map[Kind]*color.Color{
		Info:    color.New(color.FgCyan),
		Success: color.New(color.FgGreen),
		Failure: color.New(color.FgRed, color.Bold),
	}
	if !terminal.IsTerminal(w) {
		for _, style := range styles {
			style.DisableColor()
		}
	}

	mounted = &Container{
		w:      w,
		styles: styles,
		timers: map[string]*time.Timer{},
	}
	return mounted
}

// Show publishes an informational notice. A non-positive duration means DefaultDuration.
func Show(content string, duration time.Duration) {
	Publish(Info, content, duration)
}

// Publish delivers a notice of the given kind to the mounted container.
// It reports false when nothing is mounted.
func Publish(kind Kind, content string, duration time.Duration) bool {
	busMu.Lock()
	c := mounted
	busMu.Unlock()
	if c == nil {
		return false
	}

	if duration <= 0 {
		duration = DefaultDuration
	}
	c.add(Item{
		ID:       newID(),
		Kind:     kind,
		Content:  content,
		Duration: duration,
	})
	return true
}

// Active returns the notices that have not expired, oldest first.
func (c *Container) Active() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Unmount stops pending timers and detaches the container so a new one can be mounted.
func (c *Container) Unmount() {
	busMu.Lock()
	if mounted == c {
		mounted = nil
	}
	busMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, timer := range c.timers {
		timer.Stop()
	}
	c.items = nil
	c.timers = map[string]*time.Timer{}
}

func (c *Container) add(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, item)
	c.timers[item.ID] = time.AfterFunc(item.Duration, func() { c.remove(item.ID) })

	_, _ = c.styles[item.Kind].Fprintln(c.w, prefix(item.Kind)+item.Content)
}

func (c *Container) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = slices.DeleteFunc(c.items, func(item Item) bool { return item.ID == id })
	delete(c.timers, id)
}

func prefix(kind Kind) string {
	switch kind {
	case Success:
		return "✓ "
	case Failure:
		return "✗ "
	default:
		return "• "
	}
}

func newID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}
