package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/staging"
	"github.com/Mickeymouse32/torii-frontend/internal/submission"
	"github.com/Mickeymouse32/torii-frontend/internal/validate"
)

type formField struct {
	key         string
	label       string
	placeholder string
	limit       int
}

var formFields = []formField{
	{"title", "Title", "Two bedroom flat", 120},
	{"description", "Description", "Tiled floors, prepaid meter, close to the road", 1000},
	{"location", "Location", "Yaba, Lagos", 120},
	{"bedroom", "Bedrooms", "2", 3},
	{"livingRoom", "Living rooms", "1", 3},
	{"toilet", "Toilets", "2", 3},
	{"kitchen", "Kitchens", "1", 3},
	{"price", "Price", "850000", 15},
	{"paymentPeriod", "Payment period", "yearly, monthly or weekly", 10},
}

type (
	formOpenedMsg struct {
		restored bool
		err      error
	}
	submitDoneMsg struct {
		listing *domain.Listing
		err     error
	}
)

type formView struct {
	ctx    context.Context
	deps   *Deps
	inputs []textinput.Model
	focus  int

	// staged holds what each photo slot was last staged from, so an
	// unchanged path is not read again.
	staged   [domain.ImageCount]string
	slotErrs [domain.ImageCount]string

	fieldErrs  map[string]string
	formErr    string
	submitting bool
	spinner    spinner.Model
}

func newFormView(ctx context.Context, deps *Deps) formView {
	f := formView{
		ctx:     ctx,
		deps:    deps,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(mutedStyle)),
	}
	f.inputs = make([]textinput.Model, 0, len(formFields)+domain.ImageCount)
	for _, field := range formFields {
		f.inputs = append(f.inputs, newInput(field.placeholder, field.limit))
	}
	for range domain.ImageCount {
		f.inputs = append(f.inputs, newInput("path/to/photo.jpg", 512))
	}
	return f
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 50
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// open resets the form and brings back any saved draft.
func (f *formView) open() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Reset()
		f.inputs[i].Blur()
	}
	f.staged = [domain.ImageCount]string{}
	f.slotErrs = [domain.ImageCount]string{}
	f.fieldErrs = nil
	f.formErr = ""
	f.submitting = false
	f.focus = 0

	sub := f.deps.Submission
	ctx := f.ctx
	return tea.Batch(
		f.inputs[0].Focus(),
		f.spinner.Tick,
		func() tea.Msg {
			ok, err := sub.RestoreDraft(ctx)
			return formOpenedMsg{restored: ok, err: err}
		},
	)
}

// close leaves the form. Staged photos stay on disk for the draft.
func (f *formView) close() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.deps.Images.Detach()
}

// keepDraft saves what has been entered so far.
func (f formView) keepDraft() {
	f.deps.Submission.SetForm(f.formInput())
	if err := f.deps.Submission.SaveDraft(f.ctx); err != nil {
		f.deps.Logger.Warn("failed to save draft", "error", err)
	}
}

func (f formView) formInput() domain.FormInput {
	v := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }
	return domain.FormInput{
		Title:         v(0),
		Description:   v(1),
		Location:      v(2),
		Bedroom:       v(3),
		LivingRoom:    v(4),
		Toilet:        v(5),
		Kitchen:       v(6),
		Price:         v(7),
		PaymentPeriod: v(8),
	}
}

func (f *formView) setFormInput(in domain.FormInput) {
	values := []string{
		in.Title, in.Description, in.Location,
		in.Bedroom, in.LivingRoom, in.Toilet, in.Kitchen,
		in.Price, in.PaymentPeriod,
	}
	for i, v := range values {
		f.inputs[i].SetValue(v)
	}
}

func (f formView) Update(msg tea.Msg) (formView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		f.spinner, cmd = f.spinner.Update(msg)
		return f, cmd

	case formOpenedMsg:
		if msg.err != nil {
			f.deps.Logger.Warn("failed to restore draft", "error", msg.err)
			return f, notify("Could not restore your saved draft.", true)
		}
		if !msg.restored {
			return f, nil
		}
		f.setFormInput(f.deps.Submission.Form())
		for slot := range domain.ImageCount {
			if img, ok := f.deps.Images.Slot(slot); ok {
				f.staged[slot] = img.Name
				f.inputs[len(formFields)+slot].SetValue(img.Name)
			}
		}
		return f, notify("Restored your unfinished listing.", false)

	case submitDoneMsg:
		f.submitting = false
		return f.submitted(msg)

	case tea.KeyMsg:
		if f.submitting {
			return f, nil
		}
		return f.handleKey(msg)
	}
	return f, nil
}

func (f formView) handleKey(msg tea.KeyMsg) (formView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		f.leave()
		f.keepDraft()
		return f, switchTo(screenDashboard)
	case "ctrl+x":
		if err := f.deps.Submission.Cancel(f.ctx); err != nil {
			f.deps.Logger.Warn("failed to discard listing", "error", err)
		}
		return f, tea.Batch(switchTo(screenDashboard), notify("Listing discarded.", false))
	case "tab", "down":
		cmd := f.move(1)
		return f, cmd
	case "shift+tab", "up":
		cmd := f.move(-1)
		return f, cmd
	case "enter":
		if f.focus < len(f.inputs)-1 {
			cmd := f.move(1)
			return f, cmd
		}
		cmd := f.submit()
		return f, cmd
	case "ctrl+s":
		cmd := f.submit()
		return f, cmd
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *formView) move(delta int) tea.Cmd {
	f.leave()
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// leave stages the photo typed into the focused slot, if it changed.
func (f *formView) leave() {
	slot := f.focus - len(formFields)
	if slot < 0 {
		return
	}
	path := strings.TrimSpace(f.inputs[f.focus].Value())
	if path == f.staged[slot] {
		return
	}
	f.staged[slot] = path
	f.slotErrs[slot] = ""

	if path == "" {
		if err := f.deps.Images.Remove(f.ctx, slot); err != nil {
			f.deps.Logger.Warn("failed to clear photo", "slot", slot, "error", err)
		}
		return
	}

	c, err := staging.CandidateFromFile(path)
	if err == nil {
		err = f.deps.Images.Stage(f.ctx, slot, c)
	}
	if err != nil {
		f.deps.Logger.Debug("photo not staged", "slot", slot, "error", err)
		f.slotErrs[slot] = stageProblem(err)
	}
}

func stageProblem(err error) string {
	switch {
	case errors.Is(err, staging.ErrInvalidMediaType):
		return "not an image"
	case errors.Is(err, staging.ErrTooLarge):
		return "image is too large"
	case errors.Is(err, fs.ErrNotExist):
		return "file not found"
	default:
		return "could not use this file"
	}
}

func (f *formView) submit() tea.Cmd {
	f.leave()
	form := f.formInput()
	f.deps.Submission.SetForm(form)
	f.fieldErrs = nil
	f.formErr = ""
	f.submitting = true

	sub := f.deps.Submission
	ctx := f.ctx
	return func() tea.Msg {
		l, err := sub.Submit(ctx, form)
		return submitDoneMsg{listing: l, err: err}
	}
}

func (f formView) submitted(msg submitDoneMsg) (formView, tea.Cmd) {
	err := msg.err
	if err == nil {
		for i := range f.inputs {
			f.inputs[i].Reset()
		}
		f.staged = [domain.ImageCount]string{}
		text := "Listing created."
		if msg.listing != nil && msg.listing.Title != "" {
			text = fmt.Sprintf("Listing %q created.", msg.listing.Title)
		}
		return f, tea.Batch(switchTo(screenDashboard), notify(text, false))
	}

	if errors.Is(err, submission.ErrSubmitInProgress) {
		return f, nil
	}

	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		f.fieldErrs = ve.Fields
	}
	switch {
	case errors.Is(err, submission.ErrInsufficientImages):
		f.formErr = fmt.Sprintf("Add all %d photos before submitting.", domain.ImageCount)
	case ve != nil:
		f.formErr = "Some details need fixing."
	default:
		f.formErr = "Could not create the listing. Everything you entered is kept; press ctrl+s to try again."
		return f, failed(err, "Could not create the listing.")
	}
	return f, nil
}

func (f formView) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New listing") + "\n\n")

	for i, field := range formFields {
		b.WriteString(statLabelStyle.Render(field.label) + "\n")
		b.WriteString(f.inputs[i].View() + "\n")
		if msg, ok := f.fieldErrs[field.key]; ok {
			b.WriteString(errorStyle.Render(field.label+" "+msg) + "\n")
		}
	}

	b.WriteString("\n" + statLabelStyle.Render(fmt.Sprintf("Photos (%d of %d)", f.deps.Images.Filled(), domain.ImageCount)) + "\n")
	for slot := range domain.ImageCount {
		line := fmt.Sprintf("%d %s", slot+1, f.inputs[len(formFields)+slot].View())
		if e := f.slotErrs[slot]; e != "" {
			line += " " + errorStyle.Render(e)
		} else if img, ok := f.deps.Images.Slot(slot); ok {
			line += " " + availableStyle.Render("✓ "+img.MediaType)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	switch {
	case f.submitting:
		b.WriteString(f.spinner.View() + " Creating listing...\n")
	case f.formErr != "":
		b.WriteString(errorStyle.Render(f.formErr) + "\n")
	}
	b.WriteString(helpStyle.Render("tab next • shift+tab back • ctrl+s submit • esc save for later • ctrl+x discard"))
	return b.String()
}
