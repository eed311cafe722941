package polymkt

import (
	"context"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

type resolutionJSON struct {
	Resolved bool   `json:"resolved"`
	Outcome  string `json:"outcome"` // "YES" or "NO" once resolved on chain
}

// FetchResolution reports whether an event has resolved and to which side.
func (c *Client) FetchResolution(ctx context.Context, eventID string) (*types.Resolution, error) {
	var raw resolutionJSON
	if err := c.getJSON(ctx, "/events/"+eventID+"/resolution", &raw); err != nil {
		return nil, err
	}
	return &types.Resolution{
		Resolved: raw.Resolved,
		Outcome:  raw.Outcome == "YES",
	}, nil
}
