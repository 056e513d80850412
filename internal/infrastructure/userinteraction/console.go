package userinteraction

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.ProgressReporter = (*ConsoleReporter)(nil)

var summaryBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 1).
	MarginTop(1)

// ConsoleReporter prints pipeline events as they arrive. It is safe to use
// as a handler for several concurrent runs.
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	reader *bufio.Reader
	multi  bool
}

func NewConsoleReporter() *ConsoleReporter {
	return NewReporter(os.Stdin, os.Stdout)
}

func NewReporter(in io.Reader, out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		reader: bufio.NewReader(in),
	}
}

// PrefixRunIDs tags every line with the run id, for batch output.
func (c *ConsoleReporter) PrefixRunIDs() *ConsoleReporter {
	c.multi = true
	return c
}

// AskQuestion prints question and reads one line of input.
func (c *ConsoleReporter) AskQuestion(question string) (string, error) {
	c.mu.Lock()
	fmt.Fprintf(c.out, "\n%s\n> ", question)
	c.mu.Unlock()

	answer, err := c.reader.ReadString('\n')
	if err != nil && (err != io.EOF || answer == "") {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (c *ConsoleReporter) HandleEvent(e entity.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := ""
	if c.multi {
		prefix = fmt.Sprintf("[%s] ", shortID(e.RunID))
	}
	icon, name := stageDisplay(e.Stage)

	switch e.Type {
	case entity.EventPipelineStarted:
		color.New(color.FgCyan, color.Bold).Fprintf(c.out, "\n%s━━━ Pipeline started: %v ━━━\n", prefix, e.Data[entity.MetaTopic])

	case entity.EventStageStarted:
		color.New(color.FgYellow, color.Bold).Fprintf(c.out, "%s%s %s\n", prefix, icon, name)

	case entity.EventStageCompleted:
		summary := ""
		if ms, ok := e.Data[entity.ResultMetaDurationMs].(int64); ok {
			summary = fmt.Sprintf(" (%s)", (time.Duration(ms) * time.Millisecond).Round(100*time.Millisecond))
		}
		color.New(color.FgGreen).Fprintf(c.out, "%s   ✓ %s done%s\n", prefix, name, summary)

	case entity.EventStageFailed:
		color.New(color.FgRed).Fprintf(c.out, "%s   ❌ %s failed: ", prefix, name)
		color.New(color.Faint).Fprintln(c.out, truncate(errorText(e.Error), 300))

	case entity.EventRevisionStarted:
		color.New(color.FgMagenta, color.Bold).Fprintf(c.out, "%s🔁 Revision %v: score %v below %v\n",
			prefix, e.Data["attempt"], e.Data["score"], e.Data["threshold"])

	case entity.EventPipelineCompleted:
		color.New(color.FgGreen, color.Bold).Fprintf(c.out, "%s━━━ Pipeline completed (approved: %v) ━━━\n", prefix, e.Data["approved"])

	case entity.EventPipelineFailed:
		color.New(color.FgRed, color.Bold).Fprintf(c.out, "%s━━━ Pipeline failed: %s ━━━\n", prefix, truncate(errorText(e.Error), 200))
	}
}

// ShowSummary prints the run outcome in a bordered box.
func (c *ConsoleReporter) ShowSummary(res *entity.PipelineRunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	color.New(color.Bold).Fprintf(&b, "Run %s\n", res.RunID)
	fmt.Fprintf(&b, "Status:    %s\n", res.Status)
	if res.Approved {
		color.New(color.FgGreen).Fprintln(&b, "Approved:  yes")
	} else {
		color.New(color.FgYellow).Fprintln(&b, "Approved:  no")
	}
	if len(res.Scores) > 0 {
		scores := make([]string, len(res.Scores))
		for i, s := range res.Scores {
			scores[i] = fmt.Sprintf("%.0f", s)
		}
		fmt.Fprintf(&b, "Scores:    %s\n", strings.Join(scores, " → "))
	}
	fmt.Fprintf(&b, "Revisions: %d\n", res.Revisions)
	fmt.Fprintf(&b, "Duration:  %s", res.Duration.Round(time.Second))

	if res.FailedStage != "" {
		color.New(color.FgRed).Fprintf(&b, "\nFailed at: %s", res.FailedStage)
	}
	for _, d := range res.Diagnostics {
		dim := color.New(color.Faint)
		if d.Stage != "" {
			dim.Fprintf(&b, "\n! %s [%s]: %s", d.Stage, d.Kind, truncate(d.Message, 120))
		} else {
			dim.Fprintf(&b, "\n! [%s]: %s", d.Kind, truncate(d.Message, 120))
		}
	}

	fmt.Fprintln(c.out, summaryBox.Render(b.String()))
}

func stageDisplay(stage entity.Stage) (string, string) {
	displays := map[entity.Stage][2]string{
		entity.StageResearch: {"🔎", "Research"},
		entity.StageWriter:   {"✍️", "Writing"},
		entity.StageEditor:   {"📝", "Editing"},
		entity.StageSEO:      {"📈", "SEO"},
		entity.StageQuality:  {"🧐", "Quality review"},
		entity.StageImage:    {"🎨", "Image prompts"},
		entity.StageVisual:   {"🖼️", "Visual suggestions"},
	}

	if display, ok := displays[stage]; ok {
		return display[0], display[1]
	}
	return "🔧", string(stage)
}

func errorText(err *entity.TaskError) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
