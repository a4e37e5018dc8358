package model

import "time"

// Mapping — какие колонки таблицы читать. Каждое поле допускает
// альтернативы через "|" (например: "Documento|NF|Nr Doc").
type Mapping struct {
	DateKey    string
	SourceKey  string
	DestKey    string
	DocKey     string
	ProductKey string
	SpeciesKey string
	ValueKey   string
	QtyKey     string
	HeaderRow  int // строка заголовков (1-based)
}

// TransferRecord — одна строка журнала (saída или entrada) после чтения файла.
type TransferRecord struct {
	Date     time.Time `json:"date"` // zero, если дата не распознана
	Source   string    `json:"source"`
	Dest     string    `json:"dest"`
	Document string    `json:"document"`
	Product  string    `json:"product"`
	Species  string    `json:"species,omitempty"`
	Value    float64   `json:"value"`
	Qty      float64   `json:"qty"`
}

// Descriptor — разложенное описание товара.
type Descriptor struct {
	Original      string   `json:"original"`
	Normalized    string   `json:"normalized"`
	Principal     string   `json:"principal"`
	Concentration string   `json:"concentration"`
	Form          string   `json:"form"`
	QuantityHint  string   `json:"quantityHint"`
	Dimension     string   `json:"dimension"`
	Keywords      []string `json:"keywords"`
}

const (
	StatusConforming    = "conforming"
	StatusNonConforming = "non_conforming"
	StatusNotReceived   = "not_received"
)

const (
	QualityExcellent  = "excellent"
	QualityGood       = "good"
	QualityReasonable = "reasonable"
	QualityAggregated = "aggregated"
)

// AnalysisRow — строка результата: либо исходящая запись (с парой или без),
// либо «сиротская» входящая.
type AnalysisRow struct {
	Date          time.Time `json:"date"`
	InboundDate   time.Time `json:"inboundDate,omitzero"`
	Source        string    `json:"source"`
	Dest          string    `json:"dest"`
	Document      string    `json:"document"`
	ProductOut    string    `json:"productOut"`
	ProductIn     string    `json:"productIn"`
	Species       string    `json:"species"`
	ValueOut      *float64  `json:"valueOut"`
	ValueIn       *float64  `json:"valueIn"`
	ValueDiff     *float64  `json:"valueDiff"`
	QtyOut        *float64  `json:"qtyOut"`
	QtyIn         *float64  `json:"qtyIn"`
	QtyDiff       *float64  `json:"qtyDiff"`
	LeadTimeDays  *int      `json:"leadTimeDays"`
	Status        string    `json:"status"`
	Divergence    string    `json:"divergence"`
	Quality       string    `json:"quality"`
	Score         *float64  `json:"score,omitempty"`
	ProductDetail string    `json:"productDetail"`
	Notes         string    `json:"notes"`
	OutboundIndex *int      `json:"outboundIndex,omitempty"`
	InboundIndex  *int      `json:"inboundIndex,omitempty"`
}

// Stats — счётчики одного прогона.
type Stats struct {
	Conforming        int `json:"conforming"`
	NonConforming     int `json:"nonConforming"`
	NotFound          int `json:"notFound"`
	ValueDivergent    int `json:"valueDivergent"`
	QtyDivergent      int `json:"qtyDivergent"`
	Orphans           int `json:"orphans"`
	Excluded          int `json:"excluded"`
	MatchesExcellent  int `json:"matchesExcellent"`
	MatchesGood       int `json:"matchesGood"`
	MatchesReasonable int `json:"matchesReasonable"`
	MatchesAggregated int `json:"matchesAggregated"`
}

type Result struct {
	Rows  []AnalysisRow `json:"rows"`
	Stats Stats         `json:"stats"`
	MapA  Mapping       `json:"mapOutbound"`
	MapB  Mapping       `json:"mapInbound"`
}
