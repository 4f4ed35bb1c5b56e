// Package remotetest runs an in-process fake of the landlord REST service.
package remotetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
)

// Route names accepted by Fail and Gate.
const (
	RouteList   = "list"
	RoutePatch  = "patch"
	RouteDelete = "delete"
	RouteCreate = "create"
)

// Request is a record of one call the server received.
type Request struct {
	Route     string
	Method    string
	Path      string
	Auth      string
	RequestID string
}

// Image is one uploaded "images" part.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Creation is one received multipart creation request. Parts preserves the
// order of form part names as they appeared on the wire.
type Creation struct {
	Fields map[string]string
	Images []Image
	Parts  []string
}

type Server struct {
	*httptest.Server

	Token string

	mu        sync.Mutex
	pageSize  int
	listings  []domain.Listing
	failures  map[string][]int
	gates     map[string][]chan struct{}
	requests  []Request
	creations []Creation
	nextID    int
}

// New starts a fake service that accepts only token and holds listings. It is
// closed when the test ends.
func New(t testing.TB, token string, listings ...domain.Listing) *Server {
	t.Helper()

	s := &Server{
		Token:    token,
		pageSize: 10,
		listings: append([]domain.Listing(nil), listings...),
		failures: make(map[string][]int),
		gates:    make(map[string][]chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/property/landlord", s.wrap(RouteList, s.handleList)).Methods(http.MethodGet)
	r.HandleFunc("/property/landlord/{id}", s.wrap(RoutePatch, s.handlePatch)).Methods(http.MethodPatch)
	r.HandleFunc("/property/landlord/{id}", s.wrap(RouteDelete, s.handleDelete)).Methods(http.MethodDelete)
	r.HandleFunc("/property", s.wrap(RouteCreate, s.handleCreate)).Methods(http.MethodPost)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// SetPageSize changes how many listings each page holds (10 by default).
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// Fail makes the next call to route answer with status instead of being
// handled. Calls queue up in order.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

// Gate holds the next call to route until the returned func is called.
func (s *Server) Gate(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[route] = append(s.gates[route], ch)
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls route received.
func (s *Server) Count(route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

func (s *Server) Creations() []Creation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Creation(nil), s.creations...)
}

// Listing returns the server-side copy of a listing.
func (s *Server) Listing(id string) (domain.Listing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Listing{}, false
}

func (s *Server) wrap(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Route:     route,
			Method:    r.Method,
			Path:      r.URL.Path,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		var gate chan struct{}
		if q := s.gates[route]; len(q) > 0 {
			gate, s.gates[route] = q[0], q[1:]
		}
		status := 0
		if q := s.failures[route]; len(q) > 0 {
			status, s.failures[route] = q[0], q[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.listings)
	available := 0
	for _, l := range s.listings {
		if l.Availability == domain.Available {
			available++
		}
	}
	totalPages := (total + s.pageSize - 1) / s.pageSize

	start := min((page-1)*s.pageSize, total)
	end := min(start+s.pageSize, total)
	items := append([]domain.Listing{}, s.listings[start:end]...)

	writeJSON(w, http.StatusOK, map[string]any{
		"properties":          items,
		"currentPage":         page,
		"totalPages":          totalPages,
		"total":               total,
		"availableProperties": available,
		"rentedProperties":    total - available,
	})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Availability string `json:"availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	a, err := domain.ParseAvailability(body.Availability)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == id {
			s.listings[i].Availability = a
			writeJSON(w, http.StatusOK, map[string]any{"property": s.listings[i]})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == id {
			s.listings = append(s.listings[:i], s.listings[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	c := Creation{Fields: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		name := part.FormName()
		c.Parts = append(c.Parts, name)
		if name == "images" {
			c.Images = append(c.Images, Image{
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Data:        data,
			})
			continue
		}
		c.Fields[name] = string(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creations = append(s.creations, c)

	s.nextID++
	l := domain.Listing{
		ID:            "created-" + strconv.Itoa(s.nextID),
		Title:         c.Fields["title"],
		Description:   c.Fields["description"],
		Location:      c.Fields["location"],
		Bedroom:       atoi(c.Fields["bedroom"]),
		LivingRoom:    atoi(c.Fields["livingRoom"]),
		Toilet:        atoi(c.Fields["toilet"]),
		Kitchen:       atoi(c.Fields["kitchen"]),
		PaymentPeriod: domain.PaymentPeriod(c.Fields["paymentPeriod"]),
		Availability:  domain.Available,
	}
	l.Price, _ = decimal.NewFromString(c.Fields["price"])
	for i, img := range c.Images {
		l.Images = append(l.Images, "https://cdn.torii.test/"+l.ID+"/"+strconv.Itoa(i)+"-"+strings.ToLower(img.Filename))
	}
	s.listings = append(s.listings, l)

	writeJSON(w, http.StatusCreated, map[string]any{"property": l})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Fixtures builds available+rented listings with IDs listing-1, listing-2, ...
// The available ones come first.
func Fixtures(available, rented int) []domain.Listing {
	out := make([]domain.Listing, 0, available+rented)
	for i := range available + rented {
		a := domain.Available
		if i >= available {
			a = domain.Rented
		}
		id := "listing-" + strconv.Itoa(i+1)
		out = append(out, domain.Listing{
			ID:            id,
			Title:         "Flat " + strconv.Itoa(i+1),
			Location:      "Lekki, Lagos",
			Bedroom:       2,
			LivingRoom:    1,
			Toilet:        2,
			Kitchen:       1,
			Price:         decimal.NewFromInt(1500000),
			PaymentPeriod: domain.Yearly,
			Availability:  a,
			Images:        []string{"https://cdn.torii.test/" + id + "/0.jpg"},
		})
	}
	return out
}
