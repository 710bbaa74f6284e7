package target

import (
	"context"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/olekukonko/tablewriter"

	"llmsvc/internal/prompt"
	"llmsvc/pkg/types"
)

// Lister returns the model identifiers the hub offers.
type Lister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// HubFlow lets the operator pick hub models by identifier, listing number or
// glob pattern.
type HubFlow struct {
	Prompt      *prompt.Prompter
	Lister      Lister
	GGUFBackend string
}

func (f *HubFlow) Run(ctx context.Context, c *Collection) error {
	ok, err := f.Prompt.Confirm(ctx, "Select models from the hub?", false)
	if err != nil || !ok {
		return ignoreClosed(err)
	}
	listing, err := f.Lister.ListModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.Prompt.Warnf("could not list hub models: %v", err)
		listing = nil
	} else if len(listing) == 0 {
		f.Prompt.Warnf("the hub listing is empty; identifiers can still be entered by hand")
	}
	if len(listing) > 0 {
		f.renderListing(listing)
	}
	ans, err := f.Prompt.Ask(ctx, "Models to serve (space-separated ids, numbers or globs; empty for none)", nil)
	if err != nil {
		return ignoreClosed(err)
	}
	for _, id := range f.expand(strings.Fields(ans), listing) {
		t := types.Target{Kind: types.KindHub, ServiceID: c.UniqueID(id), Model: id}
		if strings.Contains(strings.ToLower(id), "gguf") {
			t.Backend = f.GGUFBackend
		}
		if err := c.Add(t); err != nil {
			f.Prompt.Warnf("skipping %q: %v", id, err)
			continue
		}
		if t.ServiceID != id {
			f.Prompt.Printf("Added hub target %q as service id %q\n", id, t.ServiceID)
		} else {
			f.Prompt.Printf("Added hub target %q\n", id)
		}
	}
	return nil
}

func (f *HubFlow) renderListing(listing []string) {
	data := make([][]string, 0, len(listing))
	for i, id := range listing {
		data = append(data, []string{strconv.Itoa(i + 1), id})
	}
	table := tablewriter.NewWriter(f.Prompt.Out())
	table.SetHeader([]string{"#", "MODEL"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// expand resolves listing numbers and glob patterns. Plain identifiers pass
// through even when the listing does not mention them. Repeats are kept so
// the caller's collision handling applies.
func (f *HubFlow) expand(tokens, listing []string) []string {
	var out []string
	for _, tok := range tokens {
		if n, err := strconv.Atoi(tok); err == nil && len(listing) > 0 {
			if n < 1 || n > len(listing) {
				f.Prompt.Warnf("no listed model #%d", n)
				continue
			}
			out = append(out, listing[n-1])
			continue
		}
		if !strings.ContainsAny(tok, "*?[{") {
			out = append(out, tok)
			continue
		}
		g, err := glob.Compile(tok)
		if err != nil {
			f.Prompt.Warnf("invalid pattern %q: %v", tok, err)
			continue
		}
		matched := 0
		for _, id := range listing {
			if g.Match(id) {
				out = append(out, id)
				matched++
			}
		}
		if matched == 0 {
			f.Prompt.Warnf("pattern %q matched no listed models", tok)
		}
	}
	return out
}
