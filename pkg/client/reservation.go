package client

import (
	"fmt"
	"net/http"
	"net/url"

	"kitchenrent/pkg/model"
)

// ReservationClient is a typed wrapper over the reservations HTTP API.
// Non-2xx answers come back as *APIError.
type ReservationClient struct {
	http *HttpClient
}

type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type Page[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func NewReservationClient(hc *HttpClient) *ReservationClient {
	return &ReservationClient{http: hc}
}

func (c *ReservationClient) Create(req *model.ReservationCreate) (*model.Reservation, error) {
	resp, err := c.http.POST("/api/v1/reservations", req)
	return decode[model.Reservation](resp, err, http.StatusCreated)
}

// CreateIdempotent sends req with an Idempotency-Key so a retried call
// replays the first answer.
func (c *ReservationClient) CreateIdempotent(req *model.ReservationCreate, key string) (*model.Reservation, bool, error) {
	resp, err := c.http.POSTWithHeaders("/api/v1/reservations", req, map[string]string{"Idempotency-Key": key})
	reservation, err := decode[model.Reservation](resp, err, http.StatusCreated)
	if err != nil {
		return nil, false, err
	}
	return reservation, resp.Header.Get("Idempotent-Replayed") == "true", nil
}

func (c *ReservationClient) Get(id string) (*model.Reservation, error) {
	resp, err := c.http.GET("/api/v1/reservations/id/" + url.PathEscape(id))
	return decode[model.Reservation](resp, err, http.StatusOK)
}

func (c *ReservationClient) List(query url.Values) (*Page[model.Reservation], error) {
	path := "/api/v1/reservations"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	resp, err := c.http.GET(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var page Page[model.Reservation]
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	return &page, nil
}

func (c *ReservationClient) Update(id string, patch *model.ReservationUpdate) (*model.Reservation, error) {
	resp, err := c.http.PATCH("/api/v1/reservations/id/"+url.PathEscape(id), patch)
	return decode[model.Reservation](resp, err, http.StatusOK)
}

// Transition posts one lifecycle action: confirm, start, complete or cancel.
func (c *ReservationClient) Transition(id, action string) (*model.Reservation, error) {
	resp, err := c.http.POST(fmt.Sprintf("/api/v1/reservations/id/%s/%s", url.PathEscape(id), action), nil)
	return decode[model.Reservation](resp, err, http.StatusOK)
}

func (c *ReservationClient) Delete(id string) error {
	resp, err := c.http.DELETE("/api/v1/reservations/id/" + url.PathEscape(id))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (c *ReservationClient) Availability(equipmentID, startDate, endDate string) (*model.Availability, error) {
	query := url.Values{"start_date": {startDate}, "end_date": {endDate}}
	resp, err := c.http.GET(fmt.Sprintf("/api/v1/equipment/%s/availability?%s", url.PathEscape(equipmentID), query.Encode()))
	return decode[model.Availability](resp, err, http.StatusOK)
}

func decode[T any](resp *Response, err error, want int) (*T, error) {
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, apiError(resp)
	}
	var envelope struct {
		Data T `json:"data"`
	}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &envelope.Data, nil
}

func apiError(resp *Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = resp.DecodeJSON(&body)
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}
