package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mokjang/internal/attendance"
	"mokjang/pkg/platform/sentinel"
)

const apiPrefix = "/attendance/v1"

// Client talks to the attendance backend over REST. It is the
// authoritative write path; live updates arrive separately over the push
// channel.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient builds a client for the backend at baseURL (scheme + host).
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WebSocketURL returns the push subscription endpoint for a display name.
func (c *Client) WebSocketURL(name string) string {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"name": {name}}.Encode()
	return u.String()
}

// RosterForDay fetches the roster with facts for one day. A NotFound
// response means nobody is recorded for that day and yields an empty
// roster, not an error.
func (c *Client) RosterForDay(ctx context.Context, day string) ([]attendance.Person, error) {
	day, err := attendance.NormalizeDay(day)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []Student `json:"data"`
	}
	err = c.do(ctx, http.MethodGet, apiPrefix+"/attendance/"+day, nil, &out)
	if errors.Is(err, sentinel.ErrNotFound) {
		return []attendance.Person{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch roster for %s: %w", day, err)
	}
	people := make([]attendance.Person, 0, len(out.Data))
	for _, s := range out.Data {
		people = append(people, s.ToPerson())
	}
	return people, nil
}

// WriteFact issues the authoritative update for one flag pair.
func (c *Client) WriteFact(ctx context.Context, fact attendance.Fact) error {
	body := AttendanceUpdate{
		StudentID:      fact.PersonID,
		AttendanceDate: fact.Day,
		Worship:        fact.Worship,
		Mokjang:        fact.Mokjang,
	}
	if err := c.do(ctx, http.MethodPut, apiPrefix+"/attendance", body, nil); err != nil {
		return fmt.Errorf("write fact: %w", err)
	}
	return nil
}

// DayStats fetches the aggregate attendance stats for one day.
func (c *Client) DayStats(ctx context.Context, day string) (Stats, error) {
	day, err := attendance.NormalizeDay(day)
	if err != nil {
		return Stats{}, err
	}
	var out struct {
		Data Stats `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/attendance/"+day+"/stats", nil, &out); err != nil {
		return Stats{}, fmt.Errorf("fetch stats for %s: %w", day, err)
	}
	return out.Data, nil
}

// Students lists roster members, optionally filtered and sorted
// server-side.
func (c *Client) Students(ctx context.Context, search, mokjang, sortBy string) ([]attendance.Person, error) {
	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	if mokjang != "" {
		params.Set("mokjang", mokjang)
	}
	if sortBy != "" {
		params.Set("sort", sortBy)
	}
	path := apiPrefix + "/students"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out struct {
		Data []Student `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	people := make([]attendance.Person, 0, len(out.Data))
	for _, s := range out.Data {
		people = append(people, s.ToPerson())
	}
	return people, nil
}

// CreateStudent registers a new roster member.
func (c *Client) CreateStudent(ctx context.Context, name, mokjang string) (attendance.Person, error) {
	body := map[string]string{"name": name, "mokjang": mokjang}
	var out struct {
		Data Student `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/students", body, &out); err != nil {
		return attendance.Person{}, fmt.Errorf("create student: %w", err)
	}
	return out.Data.ToPerson(), nil
}

// UpdateStudent renames a member or moves them between mokjangs.
func (c *Client) UpdateStudent(ctx context.Context, id int64, name, mokjang string) error {
	body := map[string]string{"name": name, "mokjang": mokjang}
	path := apiPrefix + "/students/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("update student %d: %w", id, err)
	}
	return nil
}

// DeleteStudent removes a member and all their attendance records.
func (c *Client) DeleteStudent(ctx context.Context, id int64) error {
	path := apiPrefix + "/students/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	return nil
}

// StudentAttendance fetches one member's records, optionally bounded by
// inclusive start/end days.
func (c *Client) StudentAttendance(ctx context.Context, id int64, startDay, endDay string) ([]attendance.Fact, error) {
	params := url.Values{}
	if startDay != "" {
		params.Set("start_date", startDay)
	}
	if endDay != "" {
		params.Set("end_date", endDay)
	}
	path := apiPrefix + "/students/" + strconv.FormatInt(id, 10) + "/attendance"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out struct {
		Data []StudentAttendance `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch attendance for student %d: %w", id, err)
	}
	facts := make([]attendance.Fact, 0, len(out.Data))
	for _, a := range out.Data {
		day, err := attendance.NormalizeDay(a.AttendanceDate)
		if err != nil {
			continue
		}
		facts = append(facts, attendance.Fact{PersonID: id, Day: day, Worship: a.Worship, Mokjang: a.Mokjang})
	}
	return facts, nil
}

// Mokjangs lists the known groups with member counts.
func (c *Client) Mokjangs(ctx context.Context) ([]MokjangInfo, error) {
	var out struct {
		Data []MokjangInfo `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/mokjang", nil, &out); err != nil {
		return nil, fmt.Errorf("list mokjangs: %w", err)
	}
	return out.Data, nil
}

// do runs one round trip, encoding body and decoding into out when given.
// Statuses map to sentinel errors so callers can branch on the fact.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build request path: %w", err)
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sentinel.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return sentinel.ErrConflict
	case resp.StatusCode >= 500:
		return fmt.Errorf("status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(msg)), sentinel.ErrInvalidState)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
