package task

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"imgharvest/pkg/journal"
	"imgharvest/pkg/models"
)

var digitRunRe = regexp.MustCompile(`[0-9]+`)

// MoreOptions tunes sequence mining
type MoreOptions struct {
	Folder        string
	MinDimension  int
	LowerMargin   int
	UpperMargin   int
	MaxSpan       int
	FailThreshold int
}

// MinedTemplate is a confirmed template with the digit strings seen for it
type MinedTemplate struct {
	Template models.LinkTemplate
	Values   []string
}

type observation struct {
	template  models.LinkTemplate
	values    []string
	seen      map[string]bool
	confirmed bool
}

// MineTemplates groups candidate filenames by the text around each digit
// run. A template is confirmed by two distinct digit strings, or at once
// when it is new and the filename holds a single digit run. The single
// sample rule is a heuristic and can confirm one-off numbered names.
// Only confirmed templates are returned, ordered by prefix.
func MineTemplates(candidates []models.Candidate, minDimension int) []MinedTemplate {
	observed := make(map[string]*observation)

	for _, c := range candidates {
		if c.Width <= minDimension && c.Height <= minDimension {
			continue
		}
		runs := digitRunRe.FindAllStringIndex(c.Filename, -1)
		if len(runs) == 0 {
			continue
		}

		suffixExt := ""
		if c.Extension != "" {
			suffixExt = "." + c.Extension
		}
		for _, run := range runs {
			tpl := models.LinkTemplate{
				Prefix: c.ParentDirectory + c.Filename[:run[0]],
				Suffix: c.Filename[run[1]:] + suffixExt,
			}
			digits := c.Filename[run[0]:run[1]]

			obs, exists := observed[tpl.Key()]
			if !exists {
				obs = &observation{template: tpl, seen: make(map[string]bool)}
				observed[tpl.Key()] = obs
			}
			if !obs.seen[digits] {
				obs.seen[digits] = true
				obs.values = append(obs.values, digits)
			}
			if len(obs.values) >= 2 || (!exists && len(runs) == 1) {
				obs.confirmed = true
			}
		}
	}

	var mined []MinedTemplate
	for _, obs := range observed {
		if obs.confirmed {
			mined = append(mined, MinedTemplate{Template: obs.template, Values: obs.values})
		}
	}
	sort.Slice(mined, func(a, b int) bool {
		return mined[a].Template.Prefix < mined[b].Template.Prefix
	})
	return mined
}

// SequencePlan is the range inferred from a mined template
type SequencePlan struct {
	Template SequenceTemplate
	Upper    int
	Observed []int
	Max      int
}

// planSequence turns observed digit strings into a download range. It
// fails when a value is not an integer, when every value ends in 0 (these
// look like size markers), or when the range exceeds maxSpan.
func planSequence(m MinedTemplate, opts MoreOptions) (SequencePlan, error) {
	var plan SequencePlan
	allZero := true
	minV, maxV := -1, -1
	width := 0

	for _, v := range m.Values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return plan, fmt.Errorf("%q is not an index", v)
		}
		if !strings.HasSuffix(v, "0") {
			allZero = false
		}
		if len(v) > 1 && v[0] == '0' && len(v) > width {
			width = len(v)
		}
		if minV < 0 || n < minV {
			minV = n
		}
		if n > maxV {
			maxV = n
		}
		plan.Observed = append(plan.Observed, n)
	}
	if len(plan.Observed) == 0 {
		return plan, fmt.Errorf("no values")
	}
	if allZero {
		return plan, fmt.Errorf("all values end in 0, likely size markers")
	}

	lower := minV - opts.LowerMargin
	if lower < 1 {
		lower = 1
	}
	upper := maxV + opts.UpperMargin
	if span := upper - lower + 1; opts.MaxSpan > 0 && span > opts.MaxSpan {
		return plan, fmt.Errorf("span %d-%d of %d exceeds the limit of %d", lower, upper, span, opts.MaxSpan)
	}

	plan.Template = SequenceTemplate{
		Prefix: m.Template.Prefix,
		Suffix: m.Template.Suffix,
		Lower:  lower,
		Width:  width,
	}
	plan.Upper = upper
	plan.Max = maxV
	return plan, nil
}

// FindMore mines candidates for numbered sequences and downloads each
// confirmed one with the observed indices excluded. Totals of every
// spawned sequence are folded into j. It returns false when cancellation
// cut the work short.
func FindMore(ctx context.Context, j *journal.Journal, fetcher Fetcher, candidates []models.Candidate, opts MoreOptions) bool {
	mined := MineTemplates(candidates, opts.MinDimension)
	if len(mined) == 0 {
		j.Info("no numbered sequences among %d candidates", len(candidates))
		return true
	}

	for _, m := range mined {
		if ctx.Err() != nil {
			return false
		}

		plan, err := planSequence(m, opts)
		if err != nil {
			j.Warn("skipping %s: %v", m.Template.Format("#"), err)
			continue
		}

		seq, err := newSequenceTask(plan.Template, plan.Upper, fetcher, SequenceOptions{
			Folder:        opts.Folder,
			Exclude:       plan.Observed,
			SafeThreshold: plan.Max,
			FailThreshold: opts.FailThreshold,
		})
		if err != nil {
			j.Warn("skipping %s: %v", m.Template.Format("#"), err)
			continue
		}

		childOpts := []journal.Option{journal.WithID(j.ID()), journal.WithListener(j)}
		if j.IsSilent() {
			childOpts = append(childOpts, journal.Silent())
		}
		child := journal.New(seq.Name(), childOpts...)
		seq.Run(ctx, child)
		fetcher.SetListener(journalEvents(j))

		s := child.Snapshot()
		j.AddWorkload(s.Workload)
		j.Advance(s.Progress)
		j.Absorb(s)
		if s.State == journal.Interrupted {
			return false
		}
	}
	return true
}
