package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Mickeymouse32/torii-frontend/internal/domain"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// Upload is one image part of a listing creation request.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type pageResponse struct {
	Properties          []domain.Listing `json:"properties"`
	CurrentPage         int              `json:"currentPage"`
	TotalPages          int              `json:"totalPages"`
	Total               int              `json:"total"`
	RentedProperties    int              `json:"rentedProperties"`
	AvailableProperties int              `json:"availableProperties"`
}

// ListLandlordProperties fetches one page of the signed-in landlord's
// listings together with the landlord-wide totals.
func (c *Client) ListLandlordProperties(ctx context.Context, token string, page int) (*domain.Page, error) {
	const op = "list properties"

	u := c.baseURL + "/property/landlord?" + url.Values{"page": {strconv.Itoa(page)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req, token, op)
	if err != nil {
		return nil, err
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	items := resp.Properties
	if items == nil {
		items = []domain.Listing{}
	}
	index := resp.CurrentPage
	if index < 1 {
		index = page
	}

	return &domain.Page{
		Index:      index,
		TotalPages: resp.TotalPages,
		Items:      items,
		Totals: domain.Totals{
			Total:     resp.Total,
			Available: resp.AvailableProperties,
			Rented:    resp.RentedProperties,
		},
	}, nil
}

func (c *Client) UpdateAvailability(ctx context.Context, token, listingID string, availability domain.Availability) error {
	payload, err := json.Marshal(map[string]string{"availability": string(availability)})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.listingURL(listingID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req, token, "update availability")
	return err
}

func (c *Client) DeleteListing(ctx context.Context, token, listingID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.listingURL(listingID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = c.do(req, token, "delete listing")
	return err
}

// CreateListing sends one multipart request: every image under "images" in
// the order given, followed by the scalar fields. The returned listing is nil
// when the service does not echo the created record.
func (c *Client) CreateListing(ctx context.Context, token string, fields domain.ListingFields, images []Upload) (*domain.Listing, error) {
	const op = "create listing"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, img := range images {
		if err := writeImagePart(mw, img); err != nil {
			return nil, fmt.Errorf("failed to write image part: %w", err)
		}
	}
	for _, f := range formFields(fields) {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/property", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req, token, op)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Property *domain.Listing `json:"property"`
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("create listing response not decodable", "error", err)
		return nil, nil
	}
	return resp.Property, nil
}

func (c *Client) listingURL(id string) string {
	return c.baseURL + "/property/landlord/" + url.PathEscape(id)
}

// do sends req with the bearer credential and a fresh request ID. A 401 maps
// to ErrSessionExpired; any other non-2xx status becomes a *TransportError.
func (c *Client) do(req *http.Request, token, op string) ([]byte, error) {
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer closeWithLog(resp.Body, c.logger)

	c.logger.Debug("remote call",
		"op", op,
		"method", req.Method,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, nil
}

func writeImagePart(mw *multipart.Writer, img Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, img.Name))
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(img.Data)
	return err
}

func formFields(f domain.ListingFields) [][2]string {
	return [][2]string{
		{"title", f.Title},
		{"description", f.Description},
		{"location", f.Location},
		{"bedroom", strconv.Itoa(f.Bedroom)},
		{"livingRoom", strconv.Itoa(f.LivingRoom)},
		{"toilet", strconv.Itoa(f.Toilet)},
		{"kitchen", strconv.Itoa(f.Kitchen)},
		{"price", f.Price.String()},
		{"paymentPeriod", string(f.PaymentPeriod)},
	}
}

func closeWithLog(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("failed to close response body", "error", err)
	}
}
