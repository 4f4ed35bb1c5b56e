package tui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mickeymouse32/torii-frontend/internal/dashboard"
	"github.com/Mickeymouse32/torii-frontend/internal/db"
	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/photostore/local"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/remote/remotetest"
	"github.com/Mickeymouse32/torii-frontend/internal/session"
	"github.com/Mickeymouse32/torii-frontend/internal/staging"
	"github.com/Mickeymouse32/torii-frontend/internal/store"
	"github.com/Mickeymouse32/torii-frontend/internal/submission"
)

const testToken = "tok-landlord"

type harness struct {
	t    *testing.T
	srv  *remotetest.Server
	sess *session.Static
	deps *Deps
	app  tea.Model
	quit bool
}

func newHarness(t *testing.T, listings ...domain.Listing) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	srv := remotetest.New(t, testToken, listings...)
	client := remote.NewClient(srv.URL, 5*time.Second, logger)
	sess := &session.Static{Credential: testToken}

	previews, err := local.NewPreviewStore(filepath.Join(t.TempDir(), "previews"), logger)
	require.NoError(t, err)
	d, err := db.Open(filepath.Join(t.TempDir(), "torii.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	cache := dashboard.NewCache()
	images := staging.New(previews, logger)
	deps := &Deps{
		Cache:      cache,
		Query:      dashboard.NewQueryModel(cache, client, sess, logger),
		Status:     dashboard.NewStatusModel(cache, client, sess, logger),
		Deletion:   dashboard.NewDeletionModel(cache, client, sess, logger),
		Submission: submission.New(client, images, store.NewDraftStore(d), sess, logger),
		Images:     images,
		Greeting:   "Ada",
		Logger:     logger,
	}

	h := &harness{t: t, srv: srv, sess: sess, deps: deps}
	h.app = New(ctx, deps)
	h.drain(h.app.Init())
	return h
}

// drain runs cmd and everything it leads to. Timers never fire here: spinner
// frames are dropped and commands that do not return promptly are abandoned.
func (h *harness) drain(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runCmd(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case spinner.TickMsg:
			continue
		case tea.QuitMsg:
			h.quit = true
			continue
		}
		var next tea.Cmd
		h.app, next = h.app.Update(msg)
		queue = append(queue, next)
	}
}

func runCmd(c tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(300 * time.Millisecond):
		return nil, false
	}
}

func (h *harness) press(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		case "ctrl+x":
			msg = tea.KeyMsg{Type: tea.KeyCtrlX}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var cmd tea.Cmd
		h.app, cmd = h.app.Update(msg)
		h.drain(cmd)
	}
}

// fill types each value into consecutive inputs, starting at the focused one.
func (h *harness) fill(values ...string) {
	h.t.Helper()
	for _, v := range values {
		if v != "" {
			h.press(v)
		}
		h.press("tab")
	}
}

func (h *harness) state() App {
	return h.app.(App)
}

func (h *harness) view() string {
	return h.app.View()
}

func writePhotos(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, n)
	for i := range n {
		p := filepath.Join(dir, "room"+strconv.Itoa(i)+".jpg")
		require.NoError(t, os.WriteFile(p, []byte{0xFF, 0xD8, 0xFF, 0xE0, byte(i)}, 0600))
		paths = append(paths, p)
	}
	return paths
}

func TestDashboardShowsFirstPage(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(3, 2)...)

	out := h.view()
	assert.Contains(t, out, "Welcome back, Ada")
	assert.Contains(t, out, "Total properties")
	assert.Contains(t, out, "Flat 1")
	assert.Contains(t, out, "Flat 5")
	assert.NotContains(t, out, "page 1 of")
	assert.False(t, h.state().dashboard.loading)
}

func TestDashboardEmpty(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.view(), "No listings yet")
}

func TestDashboardPaging(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(12, 0)...)
	assert.Contains(t, h.view(), "page 1 of 2")

	h.press("n")
	assert.Equal(t, 2, h.state().dashboard.page.Index)
	assert.Contains(t, h.view(), "Flat 11")
	assert.NotContains(t, h.view(), "Flat 1 ")

	// Already on the last page.
	h.press("n")
	assert.Equal(t, 2, h.srv.Count(remotetest.RouteList))

	h.press("p")
	assert.Equal(t, 1, h.state().dashboard.page.Index)
}

func TestStatusMenuSetsAvailability(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(2, 0)...)

	h.press("s")
	assert.True(t, h.deps.Status.MenuOpen("listing-1"))
	assert.Contains(t, h.view(), "set status")

	h.press("r")
	assert.False(t, h.deps.Status.MenuOpen("listing-1"))
	l, ok := h.srv.Listing("listing-1")
	require.True(t, ok)
	assert.Equal(t, domain.Rented, l.Availability)
	assert.Equal(t, domain.Rented, h.state().dashboard.page.Items[0].Availability)
	assert.Contains(t, h.view(), "Listing status updated.")
}

func TestStatusFailureShowsNoticeAndRollsBack(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(1, 0)...)
	h.srv.Fail(remotetest.RoutePatch, 500)

	h.press("s", "r")

	assert.Equal(t, domain.Available, h.state().dashboard.page.Items[0].Availability)
	assert.Contains(t, h.view(), "Could not update the listing status.")
	assert.False(t, h.state().SessionExpired())
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(2, 1)...)

	h.press("d")
	assert.Contains(t, h.view(), `Delete "Flat 1"?`)
	h.press("n")
	assert.Empty(t, h.deps.Deletion.Pending())
	assert.Zero(t, h.srv.Count(remotetest.RouteDelete))

	h.press("j", "d", "y")
	assert.Equal(t, 1, h.srv.Count(remotetest.RouteDelete))
	_, ok := h.srv.Listing("listing-2")
	assert.False(t, ok)

	p := h.state().dashboard.page
	require.Len(t, p.Items, 2)
	assert.Equal(t, domain.Totals{Total: 2, Available: 1, Rented: 1}, p.Totals)
	assert.Contains(t, h.view(), "Listing deleted.")
}

func TestQuitKeyIgnoredWhileConfirming(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(1, 0)...)

	h.press("d", "q")
	assert.False(t, h.quit)

	h.press("esc", "q")
	assert.True(t, h.quit)
}

func TestSessionExpiryQuits(t *testing.T) {
	h := newHarness(t, remotetest.Fixtures(1, 0)...)
	h.sess.Credential = "expired"

	h.press("r")

	assert.True(t, h.quit)
	assert.True(t, h.state().SessionExpired())
	assert.Equal(t, 1, h.sess.ExpireCount())
}

func TestCreateListingFromForm(t *testing.T) {
	h := newHarness(t)
	photos := writePhotos(t, domain.ImageCount)

	h.press("c")
	assert.Equal(t, screenForm, h.state().screen)
	assert.Contains(t, h.view(), "New listing")

	h.fill("Room and parlour", "Freshly painted", "Ikeja", "1", "1", "1", "1", "300000", "yearly")
	h.fill(photos...)
	assert.Equal(t, domain.ImageCount, h.deps.Images.Filled())

	h.press("ctrl+s")

	creations := h.srv.Creations()
	require.Len(t, creations, 1)
	assert.Equal(t, "Room and parlour", creations[0].Fields["title"])
	require.Len(t, creations[0].Images, domain.ImageCount)
	assert.Equal(t, "room0.jpg", creations[0].Images[0].Filename)

	assert.Equal(t, screenDashboard, h.state().screen)
	assert.Contains(t, h.view(), `Listing "Room and parlour" created.`)
	assert.Contains(t, h.view(), "Room and parlour")
	assert.Zero(t, h.deps.Images.Filled())
}

func TestFormShowsFieldErrors(t *testing.T) {
	h := newHarness(t)

	h.press("c")
	h.fill("Flat", "", "Yaba", "x")
	h.press("ctrl+s")

	f := h.state().form
	assert.Contains(t, f.fieldErrs, "description")
	assert.Contains(t, f.fieldErrs, "bedroom")
	assert.Contains(t, h.view(), "Add all 6 photos before submitting.")
	assert.Zero(t, h.srv.Count(remotetest.RouteCreate))
	assert.Equal(t, screenForm, h.state().screen)
}

func TestFormRejectsNonImage(t *testing.T) {
	h := newHarness(t)
	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("just some notes"), 0600))

	h.press("c")
	for range formFields {
		h.press("tab")
	}
	h.fill(p)

	assert.Zero(t, h.deps.Images.Filled())
	assert.Contains(t, h.view(), "not an image")
}

func TestFormEscKeepsDraft(t *testing.T) {
	h := newHarness(t)
	photos := writePhotos(t, 2)

	h.press("c")
	h.fill("Boys quarters")
	for range len(formFields) - 1 {
		h.press("tab")
	}
	h.fill(photos...)
	h.press("esc")
	assert.Equal(t, screenDashboard, h.state().screen)

	h.press("c")
	f := h.state().form
	assert.Equal(t, "Boys quarters", f.inputs[0].Value())
	assert.Equal(t, 2, h.deps.Images.Filled())
	assert.Equal(t, "room1.jpg", f.inputs[len(formFields)+1].Value())
	assert.Contains(t, h.view(), "Restored your unfinished listing.")
}

func TestFormDiscard(t *testing.T) {
	h := newHarness(t)

	h.press("c")
	h.fill("Shop space")
	h.press("esc", "c", "ctrl+x")
	assert.Equal(t, screenDashboard, h.state().screen)

	h.press("c")
	assert.Empty(t, h.state().form.inputs[0].Value())
}

func TestCreateFailureKeepsForm(t *testing.T) {
	h := newHarness(t)
	photos := writePhotos(t, domain.ImageCount)
	h.srv.Fail(remotetest.RouteCreate, 502)

	h.press("c")
	h.fill("Duplex", "Gated estate", "Lekki", "4", "2", "5", "1", "12000000", "yearly")
	h.fill(photos...)
	h.press("ctrl+s")

	assert.Equal(t, screenForm, h.state().screen)
	assert.Equal(t, "Duplex", h.state().form.inputs[0].Value())
	assert.Equal(t, domain.ImageCount, h.deps.Images.Filled())
	assert.Contains(t, h.view(), "press ctrl+s to try again")

	h.press("ctrl+s")
	assert.Len(t, h.srv.Creations(), 1)
	assert.Equal(t, screenDashboard, h.state().screen)
}

func TestStageProblem(t *testing.T) {
	_, err := staging.CandidateFromFile(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Equal(t, "file not found", stageProblem(err))
	assert.Equal(t, "not an image", stageProblem(staging.ErrInvalidMediaType))
	assert.Equal(t, "image is too large", stageProblem(staging.ErrTooLarge))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestFormatPrice(t *testing.T) {
	l := remotetest.Fixtures(1, 0)[0]
	assert.Equal(t, "₦1,500,000/yearly", formatPrice(l))
}
