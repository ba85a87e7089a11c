// Package catalog reads the external election-metadata service, a
// read-only HTTPS catalog listing which elections exist for a state.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"openelex-backend/lib/restyutil"
	"openelex-backend/internal/models"
)

var tracer = otel.Tracer("openelex.catalog")

type Client struct {
	http *resty.Client

	mu    sync.Mutex
	cache map[string][]models.Election
}

func NewClient(baseURL string) *Client {
	http := resty.New().SetBaseURL(baseURL)
	restyutil.Instrument(http, tracer, restyutil.FromEnv())
	return &Client{
		http:  http,
		cache: map[string][]models.Election{},
	}
}

// Elections lists the catalog records for a state, fetching once per
// process and serving subsequent calls from memory. Records missing a
// slug get the computed one.
func (c *Client) Elections(ctx context.Context, state string) ([]models.Election, error) {
	c.mu.Lock()
	cached, ok := c.cache[state]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	ctx, span := tracer.Start(ctx, "Elections")
	defer span.End()
	span.SetAttributes(attribute.String("state", state))

	res, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/elections/%s.json", state))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch election catalog")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("election catalog returned %s for state %q", res.Status(), state)
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog error status")
		return nil, err
	}

	var elections []models.Election
	if err := json.Unmarshal(res.Body(), &elections); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse election catalog")
		return nil, err
	}
	for i := range elections {
		if elections[i].Slug == "" {
			elections[i].Slug = models.ElectionSlug(
				state,
				elections[i].StartDate,
				elections[i].RaceType,
				elections[i].Special,
			)
		}
	}

	c.mu.Lock()
	c.cache[state] = elections
	c.mu.Unlock()
	return elections, nil
}

// ByYear buckets a state's elections by their start year.
func (c *Client) ByYear(ctx context.Context, state string) (map[string][]models.Election, error) {
	elections, err := c.Elections(ctx, state)
	if err != nil {
		return nil, err
	}
	byYear := map[string][]models.Election{}
	for _, e := range elections {
		byYear[e.Year()] = append(byYear[e.Year()], e)
	}
	return byYear, nil
}
