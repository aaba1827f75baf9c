package dataset

// Column names of the participatory budget open-data export.
const (
	ColumnTitle        = "Titre de l'opération"
	ColumnAwardedTitle = "Titre du projet lauréat"
	ColumnTheme        = "Thématique"
	ColumnEdition      = "Edition"
	ColumnDistrict     = "Arrondissement de l'opération"
	ColumnStatus       = "Avancement de l'opération"
	ColumnPriority     = "Opération en Quartier Populaire"
	ColumnBudget       = "Budget global du projet lauréat"
)

// RequiredColumns must be present in every dataset header.
// Edition and budget are optional: the metrics engine has explicit fallbacks for them.
var RequiredColumns = []string{
	ColumnTitle,
	ColumnAwardedTitle,
	ColumnTheme,
	ColumnDistrict,
	ColumnStatus,
	ColumnPriority,
}

// HistoricalRecord is one row of the reference dataset.
// Empty strings stand for missing cells; numeric cells carry a Has flag.
type HistoricalRecord struct {
	Title              string
	AwardedTitle       string
	Theme              string
	Edition            int
	HasEdition         bool
	District           string
	ProgressStatus     string
	IsPriorityDistrict string
	AwardedBudget      float64
	HasBudget          bool
}

// Columns reports which optional columns the dataset carried.
type Columns struct {
	Edition bool
	Budget  bool
}
