package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"toolbridge/internal/logging"
)

// LaunchTopic selects which slice of launch information to fetch.
type LaunchTopic string

const (
	// TopicLaunches is recent completed launches, the default.
	TopicLaunches LaunchTopic = "launches"

	// TopicMissions is recent completed launches with mission detail.
	TopicMissions LaunchTopic = "missions"

	// TopicRockets is the rocket fleet.
	TopicRockets LaunchTopic = "rockets"
)

// topicFor maps a free-text topic hint from the resolver onto a LaunchTopic.
func topicFor(hint string) LaunchTopic {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "rocket"):
		return TopicRockets
	case strings.Contains(h, "mission"):
		return TopicMissions
	default:
		return TopicLaunches
	}
}

// LaunchInfo summarizes one completed launch.
type LaunchInfo struct {
	MissionName   string `json:"mission_name"`
	FlightNumber  int    `json:"flight_number"`
	RocketName    string `json:"rocket_name,omitempty"`
	LaunchSite    string `json:"launch_site,omitempty"`
	LaunchDateUTC string `json:"launch_date_utc"`
	Success       *bool  `json:"success"`
	Details       string `json:"details,omitempty"`
}

// RocketInfo summarizes one rocket.
type RocketInfo struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	CostPerLaunch  int64   `json:"cost_per_launch"`
	SuccessRatePct float64 `json:"success_rate_pct"`
	Description    string  `json:"description,omitempty"`
}

// LaunchReport is the launch-info payload. Exactly one of Launches or
// Rockets is populated depending on the topic.
type LaunchReport struct {
	Topic    LaunchTopic  `json:"topic"`
	Launches []LaunchInfo `json:"launches,omitempty"`
	Rockets  []RocketInfo `json:"rockets,omitempty"`
}

// LaunchClient fetches launch and rocket information from the SpaceX v3 API.
// It needs no credential.
type LaunchClient struct {
	baseURL    string
	limit      int
	httpClient *http.Client
}

// NewLaunchClient creates a launch-info client. baseURL falls back to the
// public SpaceX v3 API and limit bounds how many entries a report carries.
func NewLaunchClient(baseURL string, limit int, timeout time.Duration) *LaunchClient {
	if baseURL == "" {
		baseURL = "https://api.spacexdata.com/v3"
	}
	if limit <= 0 {
		limit = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LaunchClient{
		baseURL:    baseURL,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// spacexLaunch is the slice of the v3 launch object this adapter reads.
type spacexLaunch struct {
	FlightNumber  int    `json:"flight_number"`
	MissionName   string `json:"mission_name"`
	LaunchDateUTC string `json:"launch_date_utc"`
	LaunchSuccess *bool  `json:"launch_success"`
	Upcoming      bool   `json:"upcoming"`
	Details       string `json:"details"`
	Rocket        struct {
		RocketName string `json:"rocket_name"`
	} `json:"rocket"`
	LaunchSite struct {
		SiteName string `json:"site_name"`
	} `json:"launch_site"`
}

// spacexRocket is the slice of the v3 rocket object this adapter reads.
type spacexRocket struct {
	RocketName     string  `json:"rocket_name"`
	RocketType     string  `json:"rocket_type"`
	CostPerLaunch  int64   `json:"cost_per_launch"`
	SuccessRatePct float64 `json:"success_rate_pct"`
	Description    string  `json:"description"`
}

// Fetch returns launch information for a free-text topic hint. An empty
// hint means recent launches.
func (c *LaunchClient) Fetch(ctx context.Context, topicHint string) (*LaunchReport, error) {
	topic := topicFor(topicHint)
	logging.API("Fetching launch info (topic=%s)", topic)

	if topic == TopicRockets {
		return c.fetchRockets(ctx)
	}
	return c.fetchLaunches(ctx, topic)
}

func (c *LaunchClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build launch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("launch request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read launch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("launch API returned status %d", resp.StatusCode)
	}
	return body, nil
}

func (c *LaunchClient) fetchLaunches(ctx context.Context, topic LaunchTopic) (*LaunchReport, error) {
	q := url.Values{}
	// Over-fetch so filtering out upcoming launches still fills the report.
	q.Set("limit", fmt.Sprintf("%d", c.limit*2))
	q.Set("order", "desc")

	body, err := c.get(ctx, "/launches", q)
	if err != nil {
		return nil, err
	}

	var raw []spacexLaunch
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse launch response: %w", err)
	}

	report := &LaunchReport{Topic: topic}
	for _, l := range raw {
		if l.Upcoming {
			continue
		}
		if len(report.Launches) >= c.limit {
			break
		}
		info := LaunchInfo{
			MissionName:   l.MissionName,
			FlightNumber:  l.FlightNumber,
			LaunchDateUTC: l.LaunchDateUTC,
			Success:       l.LaunchSuccess,
		}
		if topic == TopicMissions {
			info.RocketName = l.Rocket.RocketName
			info.LaunchSite = l.LaunchSite.SiteName
			info.Details = truncate(l.Details, 150)
		}
		report.Launches = append(report.Launches, info)
	}

	logging.APIDebug("Fetched %d launches", len(report.Launches))
	return report, nil
}

func (c *LaunchClient) fetchRockets(ctx context.Context) (*LaunchReport, error) {
	body, err := c.get(ctx, "/rockets", nil)
	if err != nil {
		return nil, err
	}

	var raw []spacexRocket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rocket response: %w", err)
	}

	report := &LaunchReport{Topic: TopicRockets}
	for _, r := range raw {
		if len(report.Rockets) >= c.limit {
			break
		}
		report.Rockets = append(report.Rockets, RocketInfo{
			Name:           r.RocketName,
			Type:           r.RocketType,
			CostPerLaunch:  r.CostPerLaunch,
			SuccessRatePct: r.SuccessRatePct,
			Description:    truncate(r.Description, 100),
		})
	}

	logging.APIDebug("Fetched %d rockets", len(report.Rockets))
	return report, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
