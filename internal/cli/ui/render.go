package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/aaronlmathis/seqprep/experiment"
	"github.com/aaronlmathis/seqprep/ledger"
	"github.com/aaronlmathis/seqprep/report"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	leafStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

// RenderSummary renders per task type report summaries and their total.
func RenderSummary(summaries []report.Summary) string {
	t := newTable("TASK TYPE", "TASKS", "FAILED", "TOTAL", "MAX", "MAX ATTEMPTS")
	rows := append(append([]report.Summary(nil), summaries...), report.Total(summaries))
	for _, s := range rows {
		failed := strconv.Itoa(s.Failed)
		if s.Failed > 0 {
			failed = failureStyle.Render(failed)
		}
		t.Row(s.TaskType, strconv.Itoa(s.Tasks), failed,
			s.TotalDuration.Round(time.Millisecond).String(),
			s.MaxDuration.Round(time.Millisecond).String(),
			strconv.Itoa(s.MaxAttempts))
	}
	return t.Render()
}

// RenderRuns renders ledger runs, most recent first.
func RenderRuns(runs []ledger.Run) string {
	if len(runs) == 0 {
		return keyStyle.Render("No runs recorded")
	}
	t := newTable("RUN", "STATUS", "OUTPUT", "CONFIG", "STARTED", "UPDATED")
	for _, r := range runs {
		status := string(r.Status)
		if r.Status == ledger.StatusFailed {
			status = failureStyle.Render(status)
		}
		t.Row(r.ID, status, r.OutDir, r.Config,
			r.CreatedAt.Local().Format(time.DateTime), r.UpdatedAt.Local().Format(time.DateTime))
	}
	return t.Render()
}

// RenderSequences renders the inputs handled in one run.
func RenderSequences(entries []ledger.SequenceEntry) string {
	if len(entries) == 0 {
		return keyStyle.Render("No sequences recorded")
	}
	t := newTable("INPUT", "OUTPUT", "OUTCOME")
	for _, e := range entries {
		t.Row(e.Input, e.Output, string(e.Outcome))
	}
	return t.Render()
}

// RenderExperiment renders an experiment descriptor: its settings followed by
// the species tree, with each leaf's sequence.
func RenderExperiment(e *experiment.Experiment) string {
	var b strings.Builder
	field := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", keyStyle.Render(key+":"), valueStyle.Render(value))
		}
	}

	field("version", strconv.Itoa(e.Version))
	field("config", e.ConfigPath)
	field("constraints", e.Constraints)
	field("outgroups", strings.Join(e.Outgroups, ", "))
	if e.Database != nil {
		field("database", fmt.Sprintf("%s (%s)", e.Database.Type(), e.Database.Dir()))
		if kt, ok := e.Database.(*experiment.NetworkedStore); ok {
			field("server", fmt.Sprintf("%s:%d", kt.Host, kt.Port))
		}
	}
	field("reference", e.ReferenceID)
	field("hal", e.HalID)

	if e.Tree != nil && e.Tree.Root != nil {
		b.WriteString("\n")
		b.WriteString(buildTree(e, e.Tree.Root).String())
	}
	return b.String()
}

func buildTree(e *experiment.Experiment, n *experiment.Node) *tree.Tree {
	t := tree.Root(nodeLabel(e, n))
	for _, child := range n.Children {
		if child.IsLeaf() {
			t.Child(nodeLabel(e, child))
		} else {
			t.Child(buildTree(e, child))
		}
	}
	return t
}

func nodeLabel(e *experiment.Experiment, n *experiment.Node) string {
	name := n.Name
	if name == "" {
		name = "(unnamed)"
	}
	label := headerStyle.Render(name)
	if n.IsLeaf() {
		label = leafStyle.Render(name)
	}
	if n.HasLength {
		label += keyStyle.Render(":" + strconv.FormatFloat(n.Length, 'g', -1, 64))
	}
	if seq, ok := e.Sequence(n.Name); ok && n.Name != "" {
		label += " " + valueStyle.Render(seq)
	}
	return label
}
