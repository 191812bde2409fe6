package client

import (
	"context"
	"fmt"
	"net/url"
	"tripmarket/pkg/model"
)

type Metadata struct {
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

// BookingClient talks to the bookings service for one offering kind.
type BookingClient struct {
	httpClient *HttpClient
	basePath   string
}

func NewBookingClient(baseURL, token string, kind model.OfferingKind) *BookingClient {
	basePath := "/api/v1/activity-bookings"
	if kind == model.KindItinerary {
		basePath = "/api/v1/itinerary-bookings"
	}
	return &BookingClient{
		httpClient: NewHttpClient(baseURL, token),
		basePath:   basePath,
	}
}

// Create books an offering. A non-empty idempotencyKey makes retries safe.
func (c *BookingClient) Create(ctx context.Context, req *model.BookingRequest, idempotencyKey string) (*model.BookingReceipt, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}

	resp, err := c.httpClient.POST(ctx, c.basePath, req, headers)
	if err != nil {
		return nil, err
	}

	var receipt model.BookingReceipt
	if err := decodeData(resp, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *BookingClient) List(ctx context.Context, limit int, offset int64) ([]*model.Booking, *Metadata, error) {
	resp, err := c.httpClient.GET(ctx, fmt.Sprintf("%s?limit=%d&offset=%d", c.basePath, limit, offset))
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, nil, err
	}

	var page struct {
		Data []*model.Booking `json:"data"`
		Metadata
	}
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list: %w", err)
	}
	return page.Data, &page.Metadata, nil
}

func (c *BookingClient) Get(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, c.basePath+"/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	if err := decodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Cancel(ctx context.Context, id string) (*model.CancellationReceipt, error) {
	resp, err := c.httpClient.DELETE(ctx, c.basePath+"/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var receipt model.CancellationReceipt
	if err := decodeData(resp, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// RiderClient reads and spends the caller's loyalty balance.
type RiderClient struct {
	httpClient *HttpClient
}

func NewRiderClient(baseURL, token string) *RiderClient {
	return &RiderClient{httpClient: NewHttpClient(baseURL, token)}
}

func (c *RiderClient) Loyalty(ctx context.Context) (*model.LoyaltySummary, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/riders/me/loyalty")
	if err != nil {
		return nil, err
	}

	var summary model.LoyaltySummary
	if err := decodeData(resp, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *RiderClient) Redeem(ctx context.Context, points float64) (*model.RedeemReceipt, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/riders/me/redeem", model.RedeemRequest{Points: points}, nil)
	if err != nil {
		return nil, err
	}

	var receipt model.RedeemReceipt
	if err := decodeData(resp, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
