package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Quote endpoints (implements port.UpstreamQuotes) ---

// ListQuotes calls GET /quote/list, optionally filtered by status.
func (c *Client) ListQuotes(ctx context.Context, token, status string) ([]domain.Quote, error) {
	ctx, span := tracer.Start(ctx, "Upstream.ListQuotes")
	defer span.End()
	span.SetAttributes(attribute.String("quote.status", status))

	path := "/quote/list"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	body, _, err := c.get(ctx, path, token)
	if err != nil {
		return nil, c.wrapErr("quote/list", err)
	}

	quotes := []domain.Quote{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &quotes); err != nil {
			return nil, &domain.ErrExternalService{Service: "pharmacy-api/quote/list", Err: fmt.Errorf("decode quotes: %w", err)}
		}
	}
	return quotes, nil
}

// ListPendingQuotes calls GET /quote/listpending (pharmacy view).
func (c *Client) ListPendingQuotes(ctx context.Context, token string) ([]domain.Quote, error) {
	ctx, span := tracer.Start(ctx, "Upstream.ListPendingQuotes")
	defer span.End()

	body, _, err := c.get(ctx, "/quote/listpending", token)
	if err != nil {
		return nil, c.wrapErr("quote/listpending", err)
	}

	quotes := []domain.Quote{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &quotes); err != nil {
			return nil, &domain.ErrExternalService{Service: "pharmacy-api/quote/listpending", Err: fmt.Errorf("decode quotes: %w", err)}
		}
	}
	return quotes, nil
}

// GetQuote calls GET /quote/{id}.
func (c *Client) GetQuote(ctx context.Context, token string, id int64) (*domain.QuoteDetail, error) {
	ctx, span := tracer.Start(ctx, "Upstream.GetQuote")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote.id", id))

	body, _, err := c.get(ctx, "/quote/"+strconv.FormatInt(id, 10), token)
	if err != nil {
		err = c.wrapErr("quote/get", err)
		var status *statusError
		if errors.As(err, &status) && status.Status == http.StatusNotFound {
			return nil, &domain.ErrNotFound{Resource: "quote", ID: strconv.FormatInt(id, 10)}
		}
		return nil, err
	}

	var detail domain.QuoteDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, &domain.ErrExternalService{Service: "pharmacy-api/quote/get", Err: fmt.Errorf("decode quote detail: %w", err)}
	}
	return &detail, nil
}

// CancelQuote calls POST /quote/{id}/cancel.
func (c *Client) CancelQuote(ctx context.Context, token string, id int64) error {
	ctx, span := tracer.Start(ctx, "Upstream.CancelQuote")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote.id", id))

	_, err := c.post(ctx, fmt.Sprintf("/quote/%d/cancel", id), token, nil, "")
	if err != nil {
		err = c.wrapErr("quote/cancel", err)
		var status *statusError
		if errors.As(err, &status) {
			if status.Status == http.StatusNotFound {
				return &domain.ErrNotFound{Resource: "quote", ID: strconv.FormatInt(id, 10)}
			}
			return &domain.ErrConflict{Message: status.Error()}
		}
		return err
	}
	return nil
}

// GetPrescriptionImage calls GET /prescription/{id}/image and returns the
// raw bytes plus the content type. The image is opaque to the gateway.
func (c *Client) GetPrescriptionImage(ctx context.Context, token string, imageID int64) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "Upstream.GetPrescriptionImage")
	defer span.End()
	span.SetAttributes(attribute.Int64("prescription.image_id", imageID))

	body, contentType, err := c.get(ctx, fmt.Sprintf("/prescription/%d/image", imageID), token)
	if err != nil {
		err = c.wrapErr("prescription/image", err)
		var status *statusError
		if errors.As(err, &status) && status.Status == http.StatusNotFound {
			return nil, "", &domain.ErrNotFound{Resource: "prescription image", ID: strconv.FormatInt(imageID, 10)}
		}
		return nil, "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return body, contentType, nil
}

// CreateQuote calls POST /quote/create with a prepared multipart body.
// The wizard owns the body layout; this method only moves bytes.
func (c *Client) CreateQuote(ctx context.Context, token string, body []byte, contentType string) error {
	ctx, span := tracer.Start(ctx, "Upstream.CreateQuote")
	defer span.End()

	_, err := c.post(ctx, "/quote/create", token, body, contentType)
	if err != nil {
		err = c.wrapErr("quote/create", err)
		var status *statusError
		if errors.As(err, &status) {
			return &domain.ErrConflict{Message: status.Error()}
		}
		return err
	}
	return nil
}
