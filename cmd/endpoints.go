package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/linesync/internal/formatter"
	"github.com/desertthunder/linesync/internal/services"
	"github.com/urfave/cli/v3"
)

// probeAttempt is the JSON form of a [services.Attempt].
type probeAttempt struct {
	Path      string           `json:"path"`
	Status    int              `json:"status"`
	Outcome   services.Outcome `json:"outcome"`
	RequestID string           `json:"request_id,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// probeReport is the JSON form of a [services.ProbeResult].
type probeReport struct {
	Family   services.Family `json:"family"`
	Path     string          `json:"path,omitempty"`
	Count    int             `json:"count"`
	Error    string          `json:"error,omitempty"`
	Attempts []probeAttempt  `json:"attempts"`
}

// EndpointsProbe resolves every family and reports which candidate route served it.
func (r *Runner) EndpointsProbe(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	if err := r.requireAuth(); err != nil {
		return err
	}

	results := r.resolver.Probe(ctx)

	if cmd.Bool("json") {
		reports := make([]probeReport, 0, len(results))
		for _, res := range results {
			report := probeReport{Family: res.Family, Path: res.Path, Count: res.Count}
			if res.Err != nil {
				report.Error = res.Err.Error()
			}
			for _, a := range res.Attempts {
				pa := probeAttempt{Path: a.Path, Status: a.Status, Outcome: a.Outcome, RequestID: a.RequestID}
				if a.Err != nil {
					pa.Error = a.Err.Error()
				}
				report.Attempts = append(report.Attempts, pa)
			}
			reports = append(reports, report)
		}
		return r.writeJSON(reports, true)
	}

	tbl := formatter.Table{Headers: []string{"Family", "Route", "Items", "Attempts"}}
	unresolved := 0
	for _, res := range results {
		route := res.Path
		if res.Err != nil {
			unresolved++
			route = "✗ " + res.Err.Error()
		}
		tbl.Rows = append(tbl.Rows, []string{string(res.Family), route, strconv.Itoa(res.Count), attemptSummary(res.Attempts)})
	}
	r.writePlain("%s\n", formatter.RenderTable(tbl))

	if unresolved > 0 {
		return fmt.Errorf("%d of %d families unresolved", unresolved, len(results))
	}
	return nil
}

func attemptSummary(attempts []services.Attempt) string {
	s := ""
	for i, a := range attempts {
		if i > 0 {
			s += ", "
		}
		if a.Status > 0 {
			s += strconv.Itoa(a.Status)
		} else {
			s += string(a.Outcome)
		}
	}
	return s
}
