package dashboard

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
	"github.com/Mickeymouse32/torii-frontend/internal/remote"
	"github.com/Mickeymouse32/torii-frontend/internal/remote/remotetest"
	"github.com/Mickeymouse32/torii-frontend/internal/session"
)

const testToken = "tok-landlord"

// syncBuffer lets the logger be written from request goroutines while the
// test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	srv      *remotetest.Server
	sess     *session.Static
	cache    *Cache
	query    *QueryModel
	status   *StatusModel
	deletion *DeletionModel
	logs     *syncBuffer
}

func newFixture(t *testing.T, listings ...domain.Listing) *fixture {
	t.Helper()

	logs := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := remotetest.New(t, testToken, listings...)
	client := remote.NewClient(srv.URL, 5*time.Second, logger)
	sess := &session.Static{Credential: testToken}
	cache := NewCache()

	return &fixture{
		srv:      srv,
		sess:     sess,
		cache:    cache,
		query:    NewQueryModel(cache, client, sess, logger),
		status:   NewStatusModel(cache, client, sess, logger),
		deletion: NewDeletionModel(cache, client, sess, logger),
		logs:     logs,
	}
}

func ids(p *domain.Page) []string {
	out := make([]string, 0, len(p.Items))
	for _, l := range p.Items {
		out = append(out, l.ID)
	}
	return out
}
