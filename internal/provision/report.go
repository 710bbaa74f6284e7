package provision

import (
	"fmt"
	"io"
	"strconv"

	fcolor "github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"llmsvc/internal/config"
	"llmsvc/internal/unit"
)

var (
	okColor   = fcolor.New(fcolor.FgGreen)
	failColor = fcolor.New(fcolor.FgYellow)
)

func status(r unit.Result) string {
	s := "failed (" + string(r.Stage) + ")"
	if r.Started {
		s = "started"
	}
	if r.PortInUse {
		s += ", port was busy"
	}
	return s
}

// Report prints a summary table and follow-up guidance.
func Report(w io.Writer, cfg config.Config, results []unit.Result) {
	data := make([][]string, 0, len(results))
	for _, r := range results {
		data = append(data, []string{r.Target.ServiceID, r.Target.Kind.String(), strconv.Itoa(r.Port), r.Unit, status(r)})
	}
	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"SERVICE", "KIND", "PORT", "UNIT", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintln(w)
	for _, r := range results {
		if r.Started {
			okColor.Fprintf(w, "%s", r.Unit)
			fmt.Fprintf(w, " is starting on http://localhost:%d (models can take minutes to load)\n", r.Port)
			fmt.Fprintf(w, "    follow:  journalctl -u %s -f\n", r.Unit)
			continue
		}
		failColor.Fprintf(w, "%s", r.Unit)
		fmt.Fprintf(w, " did not start: %v\n", r.Err)
		fmt.Fprintf(w, "    status:  systemctl status %s\n", r.Unit)
		fmt.Fprintf(w, "    logs:    journalctl -u %s -e\n", r.Unit)
		fmt.Fprintf(w, "    retry:   systemctl start %s\n", r.Unit)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Models and the tool's venv live in %s (owned by %s:%s).\n", cfg.StorageDir, cfg.User, cfg.Group)
	fmt.Fprintf(w, "Group membership for %s takes effect at your next login.\n", cfg.Group)
	fmt.Fprintf(w, "Stop a service with 'systemctl disable --now <unit>'; re-run to add models.\n")
}
