package fetchers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Swarm-DISC/SwarmPAL-processor/internal/models"
	"github.com/Swarm-DISC/SwarmPAL-processor/internal/paldata"
)

// timeLayout is the ISO-8601 form used in DataParams, UTC implied.
const timeLayout = "2006-01-02T15:04:05"

// ViresClient talks to a VirES-compatible data server.
type ViresClient struct {
	client  *resty.Client
	baseURL string
}

// NewViresClient creates a remote client with timeout and retry settings.
func NewViresClient(opts Options) *ViresClient {
	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(opts.RetryWait)

	return &ViresClient{
		client:  client,
		baseURL: strings.TrimRight(opts.ViresURL, "/"),
	}
}

// FetchInto requests one collection window and attaches the result to tree as
// a group named after the collection. Pad times widen the request window on
// both sides; the padding is recorded in the group attrs so downstream steps
// can trim back to the user's range.
func (v *ViresClient) FetchInto(ctx context.Context, tree *paldata.DataTree, p models.DataParams) error {
	if p.Collection == "" {
		return &FetchError{Source: "vires", Err: fmt.Errorf("collection is required")}
	}

	start, err := time.Parse(timeLayout, p.StartTime)
	if err != nil {
		return &FetchError{Source: p.Collection, Err: fmt.Errorf("invalid start_time %q: %w", p.StartTime, err)}
	}
	end, err := time.Parse(timeLayout, p.EndTime)
	if err != nil {
		return &FetchError{Source: p.Collection, Err: fmt.Errorf("invalid end_time %q: %w", p.EndTime, err)}
	}
	if !end.After(start) {
		return &FetchError{Source: p.Collection, Err: fmt.Errorf("end_time must be after start_time")}
	}

	padBefore, padAfter, err := parsePadTimes(p.PadTimes)
	if err != nil {
		return &FetchError{Source: p.Collection, Err: err}
	}

	req := models.ViresRequest{
		Collection:   p.Collection,
		Measurements: p.Measurements,
		Models:       p.Models,
		Auxiliaries:  p.Auxiliaries,
		Filters:      p.Filters,
		StartTime:    start.Add(-padBefore).Format(timeLayout),
		EndTime:      end.Add(padAfter).Format(timeLayout),
	}
	if p.Options != nil {
		req.Asynchronous = p.Options.Asynchronous
	}

	url := v.baseURL
	if p.ServerURL != "" {
		url = strings.TrimRight(p.ServerURL, "/")
	}
	url += "/fetch"

	var result models.ViresResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(url)
	if err != nil {
		return &FetchError{Source: p.Collection, Err: err}
	}
	if resp.IsError() {
		return &FetchError{Source: p.Collection, Err: fmt.Errorf("server returned status %d", resp.StatusCode())}
	}
	if len(result.Times) == 0 {
		return &FetchError{Source: p.Collection, Err: fmt.Errorf("empty response window")}
	}

	group := tree.Child(p.Collection)
	group.Times = result.Times
	for name, rv := range result.Variables {
		group.SetVar(name, &paldata.Variable{
			Dims:   rv.Dims,
			Shape:  rv.Shape,
			Values: rv.Values,
			Attrs:  unitAttrs(rv.Units),
		})
	}
	for k, val := range result.Attrs {
		group.Attrs[k] = val
	}
	group.Attrs["requested_start"] = p.StartTime
	group.Attrs["requested_end"] = p.EndTime
	if padBefore > 0 || padAfter > 0 {
		group.Attrs["pad_before_sec"] = strconv.Itoa(int(padBefore / time.Second))
		group.Attrs["pad_after_sec"] = strconv.Itoa(int(padAfter / time.Second))
	}
	return nil
}

func unitAttrs(units string) map[string]string {
	if units == "" {
		return nil
	}
	return map[string]string{"units": units}
}

// parsePadTimes converts a ["HH:MM:SS", "HH:MM:SS"] pair into durations.
// Missing entries mean no padding on that side.
func parsePadTimes(pads []string) (before, after time.Duration, err error) {
	parse := func(s string) (time.Duration, error) {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return 0, fmt.Errorf("invalid pad time %q, want HH:MM:SS", s)
		}
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid pad time %q: %w", s, err)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid pad time %q: %w", s, err)
		}
		sec, err := strconv.Atoi(parts[2])
		if err != nil {
			return 0, fmt.Errorf("invalid pad time %q: %w", s, err)
		}
		return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
	}

	if len(pads) > 0 {
		if before, err = parse(pads[0]); err != nil {
			return 0, 0, err
		}
	}
	if len(pads) > 1 {
		if after, err = parse(pads[1]); err != nil {
			return 0, 0, err
		}
	}
	return before, after, nil
}
