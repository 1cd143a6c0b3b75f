package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sudorandom/screenshot-automator/pkg/capture"
	"github.com/sudorandom/screenshot-automator/pkg/catalog"
)

type ListCmd struct {
	Catalog string `help:"Capture catalog directory." default:".screenshots.db"`
	Kind    string `help:"Only list captures of this kind (Manual, Automatic, Triggered)."`
	Prune   bool   `help:"Drop entries whose files no longer exist."`
}

func (c *ListCmd) Run(_ *Globals) error {
	var filter *capture.TriggerKind
	if c.Kind != "" {
		kind, err := capture.ParseTriggerKind(c.Kind)
		if err != nil {
			return err
		}
		filter = &kind
	}

	cat, err := catalog.Open(c.Catalog)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	if c.Prune {
		n, err := cat.Prune(nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Pruned %d stale entries\n", n)
	}

	entries, err := cat.List(filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CAPTURED\tKIND\tINDEX\tSIZE\tMETHOD\tSCENE\tPATH")
	for _, e := range entries {
		index := "-"
		if e.Index != capture.NoIndex {
			index = fmt.Sprint(e.Index)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CapturedAt.Format("2006-01-02 15:04:05"), e.Kind, index, e.Size, e.Method, e.Scene, e.Path)
	}
	return w.Flush()
}
