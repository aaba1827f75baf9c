package models

// PredictRequest is the body of POST /predict-category.
// EstimatedBudget is a pointer so that an explicit 0 passes the required check.
type PredictRequest struct {
	ProjectTitle    string `json:"projectTitle" binding:"notblank"`
	EstimatedBudget *int64 `json:"estimatedBudget" binding:"required"`
}

// PredictionInfo is what the classifier hands over to the metrics engine.
type PredictionInfo struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Analyse    string  `json:"analyse"`
}

// PredictResponse wraps the whole report under predictedCategory.
type PredictResponse struct {
	PredictedCategory PredictedCategory `json:"predictedCategory"`
}

// PredictedCategory prediction fields plus the optional metrics block.
// Metrics is nil when no historical record matches the predicted category.
type PredictedCategory struct {
	Name            string   `json:"name"`
	Confidence      float64  `json:"confidence"`
	Analyse         string   `json:"analyse"`
	ProjectTitle    string   `json:"projectTitle"`
	EstimatedBudget int64    `json:"estimatedBudget"`
	Metrics         *Metrics `json:"metrics"`
}

// Metrics statistics computed over the records of the predicted category.
type Metrics struct {
	StartingYear           int                      `json:"startingYear"`
	EndingYear             int                      `json:"endingYear"`
	NumberOfRecords        int                      `json:"numberOfRecords"`
	BreakdownByCategory    []CategoryBreakdown      `json:"breakdownByCategory"`
	PostalCodeDistribution []PostalCodeDistribution `json:"postalCodeDistribution"`
	Statuses               Statuses                 `json:"statuses"`
	PriorityArea           PriorityArea             `json:"priorityArea"`
	Budget                 Budget                   `json:"budget"`
}

// CategoryBreakdown one slice of the category pie chart.
type CategoryBreakdown struct {
	Category   string `json:"category"`
	Percentage int    `json:"percentage"`
	Selected   bool   `json:"selected"`
}

// PostalCodeDistribution number of projects in a district.
type PostalCodeDistribution struct {
	PostalCode string `json:"postalCode"`
	Count      int    `json:"count"`
}

// ProjectExample a single project surfaced for display.
type ProjectExample struct {
	Title  string `json:"title"`
	Budget int64  `json:"budget"`
	Year   string `json:"year"`
}

// StatusesPieChart progress status tallies.
type StatusesPieChart struct {
	Abandoned  int `json:"abandoned"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Statuses status tallies and a random sample of abandoned projects.
type Statuses struct {
	PieChart          StatusesPieChart `json:"pieChart"`
	AbandonedExamples []ProjectExample `json:"abandonedExamples"`
}

// PriorityArea projects inside / outside priority neighbourhoods.
type PriorityArea struct {
	HighPriority int `json:"highPriority"`
	LowPriority  int `json:"lowPriority"`
}

// Quartile one budget band.
type Quartile struct {
	Quartile    int    `json:"quartile"`
	Label       string `json:"label"`
	Min         int64  `json:"min"`
	Max         int64  `json:"max"`
	Description string `json:"description"`
}

// Position where the requested budget sits among the historical budgets.
type Position struct {
	Quartiles               []Quartile `json:"quartiles"`
	EstimatedBudgetQuartile *int       `json:"estimatedBudgetQuartile"`
}

// Budget budget statistics of the category.
type Budget struct {
	Median             int64            `json:"median"`
	Average            int64            `json:"average"`
	Min                int64            `json:"min"`
	Max                int64            `json:"max"`
	FiveMostExpensive  []ProjectExample `json:"fiveMostExpensive"`
	FiveLeastExpensive []ProjectExample `json:"fiveLeastExpensive"`
	Position           Position         `json:"position"`
}

// DatasetSummary describes the loaded reference dataset.
type DatasetSummary struct {
	Source          string   `json:"source"`
	LoadedAt        string   `json:"loadedAt"`
	NumberOfRecords int      `json:"numberOfRecords"`
	NumberOfThemes  int      `json:"numberOfThemes"`
	StartingYear    *int     `json:"startingYear"`
	EndingYear      *int     `json:"endingYear"`
	HasEdition      bool     `json:"hasEdition"`
	HasBudget       bool     `json:"hasBudget"`
	Themes          []string `json:"themes"`
}
