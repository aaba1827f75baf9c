package services

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Gin context keys filled by the middlewares and handlers and read by LoggingMiddleware.
const (
	ContextKeyRequestID = "requestID"
	ContextKeyCategory  = "predictedCategory"
)

// DefaultLogCapacity number of request logs kept in memory.
const DefaultLogCapacity = 10000

// LogEntry one served request.
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	RequestID    string        `json:"requestId,omitempty"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTime"`
	Category     string        `json:"category,omitempty"`
}

// MonitoringService keeps the latest request logs in a fixed size ring and
// aggregates them for the monitoring dashboard.
type MonitoringService struct {
	mu   sync.RWMutex
	logs []LogEntry
	next int
	full bool
	now  func() time.Time
}

// NewMonitoringService keeps up to capacity entries, DefaultLogCapacity when <= 0.
func NewMonitoringService(capacity int) *MonitoringService {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &MonitoringService{logs: make([]LogEntry, capacity), now: time.Now}
}

// LogRequest stores entry, overwriting the oldest one when full.
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[s.next] = entry
	s.next = (s.next + 1) % len(s.logs)
	if s.next == 0 {
		s.full = true
	}
}

// entries oldest first. Caller holds the read lock.
func (s *MonitoringService) entries() []LogEntry {
	if !s.full {
		return slices.Clone(s.logs[:s.next])
	}
	return append(slices.Clone(s.logs[s.next:]), s.logs[:s.next]...)
}

// LoggingMiddleware records every request except the admin and monitoring ones.
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()

		c.Next()

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/admin") || strings.HasPrefix(path, "/api/v1/monitoring") || path == "/metrics" {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			RequestID:    c.GetString(ContextKeyRequestID),
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: s.now().Sub(start),
			Category:     c.GetString(ContextKeyCategory),
		})
	}
}

// TimeBucket requests started during one hour.
type TimeBucket struct {
	Time     string `json:"time"`
	Requests int    `json:"requests"`
}

// NamedCount one slice of a dashboard pie chart.
type NamedCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// EndpointLatency average response time of a path, in milliseconds.
type EndpointLatency struct {
	Endpoint     string `json:"endpoint"`
	ResponseTime int64  `json:"responseTime"`
}

// DashboardData aggregated logs of a period.
type DashboardData struct {
	RequestsOverTime    []TimeBucket      `json:"requestsOverTime"`
	Endpoints           map[string]int    `json:"endpoints"`
	StatusCodes         []NamedCount      `json:"statusCodes"`
	AvgResponseTimes    []EndpointLatency `json:"avgResponseTimes"`
	PredictedCategories []NamedCount      `json:"predictedCategories"`
	RecentErrors        []LogEntry        `json:"recentErrors"`
}

const recentErrorCount = 10

// GetDashboardData aggregates the logs of the last periodHours hours, in UTC.
func (s *MonitoringService) GetDashboardData(periodHours int) DashboardData {
	if periodHours <= 0 {
		periodHours = 24
	}

	s.mu.RLock()
	all := s.entries()
	s.mu.RUnlock()

	now := s.now().UTC()
	since := now.Add(-time.Duration(periodHours) * time.Hour)
	var logs []LogEntry
	for _, l := range all {
		if l.Timestamp.After(since) {
			logs = append(logs, l)
		}
	}

	// hourly buckets from oldest to current hour
	current := now.Truncate(time.Hour)
	buckets := make([]TimeBucket, periodHours)
	for i := range buckets {
		buckets[i].Time = current.Add(-time.Duration(periodHours-1-i) * time.Hour).Format("2006-01-02 15:00")
	}

	data := DashboardData{
		Endpoints:           make(map[string]int),
		StatusCodes:         []NamedCount{{Name: "2xx Success"}, {Name: "4xx Client Error"}, {Name: "5xx Server Error"}},
		AvgResponseTimes:    []EndpointLatency{},
		PredictedCategories: []NamedCount{},
		RecentErrors:        []LogEntry{},
	}

	latencySum := make(map[string]time.Duration)
	categories := make(map[string]int)
	for _, l := range logs {
		age := int(current.Sub(l.Timestamp.UTC().Truncate(time.Hour)) / time.Hour)
		if age >= 0 && age < periodHours {
			buckets[periodHours-1-age].Requests++
		}

		data.Endpoints[l.Path]++
		latencySum[l.Path] += l.ResponseTime

		switch {
		case l.StatusCode >= 200 && l.StatusCode < 300:
			data.StatusCodes[0].Value++
		case l.StatusCode >= 400 && l.StatusCode < 500:
			data.StatusCodes[1].Value++
		case l.StatusCode >= 500:
			data.StatusCodes[2].Value++
		}

		if l.Category != "" {
			categories[l.Category]++
		}
	}
	data.RequestsOverTime = buckets

	for path, total := range latencySum {
		data.AvgResponseTimes = append(data.AvgResponseTimes, EndpointLatency{
			Endpoint:     path,
			ResponseTime: total.Milliseconds() / int64(data.Endpoints[path]),
		})
	}
	slices.SortFunc(data.AvgResponseTimes, func(a, b EndpointLatency) int { return cmp.Compare(a.Endpoint, b.Endpoint) })

	for name, n := range categories {
		data.PredictedCategories = append(data.PredictedCategories, NamedCount{Name: name, Value: n})
	}
	slices.SortFunc(data.PredictedCategories, func(a, b NamedCount) int {
		return cmp.Or(cmp.Compare(b.Value, a.Value), cmp.Compare(a.Name, b.Name))
	})

	for i := len(logs) - 1; i >= 0 && len(data.RecentErrors) < recentErrorCount; i-- {
		if logs[i].StatusCode >= 500 {
			data.RecentErrors = append(data.RecentErrors, logs[i])
		}
	}
	return data
}
