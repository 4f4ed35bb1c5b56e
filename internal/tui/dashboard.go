package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Mickeymouse32/torii-frontend/internal/dashboard"
	"github.com/Mickeymouse32/torii-frontend/internal/domain"
)

type (
	pageLoadedMsg struct {
		page *domain.Page
		err  error
	}
	statusDoneMsg struct {
		id  string
		err error
	}
	deleteDoneMsg struct {
		id     string
		result dashboard.DeleteResult
		err    error
	}
)

type dashboardView struct {
	ctx     context.Context
	deps    *Deps
	page    *domain.Page
	cursor  int
	loading bool
	spinner spinner.Model
}

func newDashboardView(ctx context.Context, deps *Deps) dashboardView {
	return dashboardView{
		ctx:     ctx,
		deps:    deps,
		page:    deps.Cache.Snapshot(),
		loading: true,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(mutedStyle)),
	}
}

func (d dashboardView) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.fetch(d.deps.Query.LoadPage, 1))
}

func (d *dashboardView) reload() tea.Cmd {
	d.loading = true
	q := d.deps.Query
	ctx := d.ctx
	return func() tea.Msg {
		p, err := q.Reload(ctx)
		return pageLoadedMsg{page: p, err: err}
	}
}

func (d dashboardView) fetch(load func(context.Context, int) (*domain.Page, error), index int) tea.Cmd {
	ctx := d.ctx
	return func() tea.Msg {
		p, err := load(ctx, index)
		return pageLoadedMsg{page: p, err: err}
	}
}

func (d dashboardView) step(move func(context.Context) (*domain.Page, error)) tea.Cmd {
	ctx := d.ctx
	return func() tea.Msg {
		p, err := move(ctx)
		return pageLoadedMsg{page: p, err: err}
	}
}

// idle reports that no menu or confirmation is waiting on a key.
func (d dashboardView) idle() bool {
	if d.deps.Deletion.Pending() != "" {
		return false
	}
	if sel := d.selected(); sel != nil && d.deps.Status.MenuOpen(sel.ID) {
		return false
	}
	return true
}

func (d dashboardView) selected() *domain.Listing {
	if d.page == nil || d.cursor < 0 || d.cursor >= len(d.page.Items) {
		return nil
	}
	return &d.page.Items[d.cursor]
}

func (d *dashboardView) refresh() {
	d.page = d.deps.Cache.Snapshot()
	if d.page == nil || len(d.page.Items) == 0 {
		d.cursor = 0
		return
	}
	d.cursor = min(d.cursor, len(d.page.Items)-1)
}

func (d dashboardView) Update(msg tea.Msg) (dashboardView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case pageLoadedMsg:
		if errors.Is(msg.err, dashboard.ErrStale) {
			return d, nil
		}
		d.loading = d.deps.Query.IsLoading()
		before := d.page
		d.refresh()
		if before == nil || d.page == nil || before.Index != d.page.Index {
			d.cursor = 0
		}
		if msg.err != nil {
			return d, failed(msg.err, "Could not load your listings.")
		}
		return d, nil

	case statusDoneMsg:
		d.refresh()
		if msg.err != nil {
			return d, failed(msg.err, "Could not update the listing status.")
		}
		return d, notify("Listing status updated.", false)

	case deleteDoneMsg:
		d.refresh()
		if errors.Is(msg.err, dashboard.ErrNotConfirmed) {
			return d, nil
		}
		if msg.err != nil {
			return d, failed(msg.err, "Could not delete the listing.")
		}
		cmds := []tea.Cmd{notify("Listing deleted.", false)}
		if msg.result.NeedsReload {
			d.loading = true
			cmds = append(cmds, d.fetch(d.deps.Query.LoadPage, msg.result.ReloadPage))
		}
		return d, tea.Batch(cmds...)

	case tea.KeyMsg:
		return d.handleKey(msg)
	}
	return d, nil
}

func (d dashboardView) handleKey(msg tea.KeyMsg) (dashboardView, tea.Cmd) {
	key := msg.String()
	sel := d.selected()

	if pending := d.deps.Deletion.Pending(); pending != "" {
		switch key {
		case "y":
			return d, d.remove(pending)
		case "n", "esc":
			d.deps.Deletion.CancelDeletion()
		}
		return d, nil
	}

	if sel != nil && d.deps.Status.MenuOpen(sel.ID) {
		switch key {
		case "a":
			return d.setStatus(sel.ID, domain.Available)
		case "r":
			return d.setStatus(sel.ID, domain.Rented)
		case "s", "esc":
			d.deps.Status.CloseMenu()
		}
		return d, nil
	}

	switch key {
	case "j", "down":
		if d.page != nil && d.cursor < len(d.page.Items)-1 {
			d.cursor++
		}
	case "k", "up":
		if d.cursor > 0 {
			d.cursor--
		}
	case "n", "right":
		if d.deps.Query.HasNext() {
			d.loading = true
			return d, d.step(d.deps.Query.NextPage)
		}
	case "p", "left":
		if d.deps.Query.HasPrev() {
			d.loading = true
			return d, d.step(d.deps.Query.PrevPage)
		}
	case "r":
		cmd := d.reload()
		return d, cmd
	case "s", "enter":
		if sel != nil {
			d.deps.Status.ToggleMenu(sel.ID)
		}
	case "d":
		if sel != nil {
			d.deps.Deletion.RequestDeletion(sel.ID)
		}
	case "c":
		return d, switchTo(screenForm)
	}
	return d, nil
}

// setStatus shows the new status straight away and sends it in the
// background.
func (d dashboardView) setStatus(id string, a domain.Availability) (dashboardView, tea.Cmd) {
	w, err := d.deps.Status.Apply(id, a)
	if err != nil {
		d.deps.Logger.Warn("failed to apply availability", "listing_id", id, "error", err)
		return d, notify("Could not update the listing status.", true)
	}
	d.refresh()
	ctx := d.ctx
	return d, func() tea.Msg {
		return statusDoneMsg{id: id, err: w.Commit(ctx)}
	}
}

func (d dashboardView) remove(id string) tea.Cmd {
	del := d.deps.Deletion
	ctx := d.ctx
	return func() tea.Msg {
		res, err := del.DeleteListing(ctx, id)
		return deleteDoneMsg{id: id, result: res, err: err}
	}
}

func (d dashboardView) View() string {
	var b strings.Builder

	greeting := "Welcome back"
	if d.deps.Greeting != "" {
		greeting += ", " + d.deps.Greeting
	}
	b.WriteString(titleStyle.Render(greeting) + "\n\n")

	if d.page == nil {
		if d.loading {
			b.WriteString(d.spinner.View() + " Loading your listings...\n")
		} else {
			b.WriteString(mutedStyle.Render("Could not load your listings. Press r to retry.") + "\n")
		}
		b.WriteString(helpStyle.Render("r reload • c new listing • q quit"))
		return b.String()
	}

	b.WriteString(renderTotals(d.page.Totals) + "\n\n")

	if d.page.Empty() {
		b.WriteString(mutedStyle.Render("No listings yet. Press c to add your first property.") + "\n")
		b.WriteString(helpStyle.Render("c new listing • r reload • q quit"))
		return b.String()
	}

	pending := d.deps.Deletion.Pending()
	for i, l := range d.page.Items {
		row := renderRow(l, d.deps.Cache.State(l.ID))
		if i == d.cursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
		if d.deps.Status.MenuOpen(l.ID) {
			b.WriteString(mutedStyle.Render("    set status: [a] available  [r] rented  [esc] close") + "\n")
		}
		if pending == l.ID {
			b.WriteString(errorStyle.Render(fmt.Sprintf("    Delete %q? This cannot be undone. [y] yes  [n] no", l.Title)) + "\n")
		}
	}

	if d.deps.Query.ShowPager() {
		b.WriteString("\n" + renderPager(d.page, d.deps.Query.HasPrev(), d.deps.Query.HasNext()))
	}
	if d.loading {
		b.WriteString(" " + d.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k move • s status • d delete • n/p page • c new listing • r reload • q quit"))
	return b.String()
}

func renderTotals(t domain.Totals) string {
	card := func(label string, value int) string {
		return cardStyle.Render(fmt.Sprintf("%s\n%s", statValueStyle.Render(humanize.Comma(int64(value))), statLabelStyle.Render(label)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total properties", t.Total),
		card("Available", t.Available),
		card("Rented", t.Rented),
	)
}

func renderRow(l domain.Listing, state dashboard.SyncState) string {
	status := availableStyle.Render(string(l.Availability))
	if l.Availability == domain.Rented {
		status = rentedStyle.Render(string(l.Availability))
	}
	switch state {
	case dashboard.Pending:
		status += mutedStyle.Render(" (saving)")
	case dashboard.Failed:
		status += errorStyle.Render(" (not saved)")
	}

	return fmt.Sprintf("%-28s %-18s %s  %s  %s",
		truncate(l.Title, 28),
		truncate(l.Location, 18),
		rooms(l),
		formatPrice(l),
		status,
	)
}

func rooms(l domain.Listing) string {
	return fmt.Sprintf("%d bed %d living %d bath %d kitchen", l.Bedroom, l.LivingRoom, l.Toilet, l.Kitchen)
}

func formatPrice(l domain.Listing) string {
	price := "₦" + humanize.Commaf(l.Price.InexactFloat64())
	if l.PaymentPeriod != "" {
		price += "/" + string(l.PaymentPeriod)
	}
	return price
}

func renderPager(p *domain.Page, hasPrev, hasNext bool) string {
	prev, next := "‹ prev", "next ›"
	if !hasPrev {
		prev = mutedStyle.Render(prev)
	}
	if !hasNext {
		next = mutedStyle.Render(next)
	}
	return fmt.Sprintf("%s  page %d of %d  %s", prev, p.Index, p.TotalPages, next)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
