package core

import "time"

// Direction is the side of a trade
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Tick is a single rate observation as written by the upstream fetcher
type Tick struct {
	Timestamp time.Time `json:"timestamp"`
	Rate      float64   `json:"rate"`
}

// IsValid checks if the tick has required fields
func (t Tick) IsValid() bool {
	return !t.Timestamp.IsZero() && t.Rate > 0
}

// Trade is one position opened by a strategy. A trade is closed once CloseTime is set.
type Trade struct {
	OpenTime   time.Time  `json:"open_time"`
	OpenPrice  float64    `json:"open_price"`
	Direction  Direction  `json:"direction"`
	SLPrice    float64    `json:"sl_price"`
	TPPrice    float64    `json:"tp_price"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	ClosePrice *float64   `json:"close_price,omitempty"`
	ResultPips float64    `json:"result_pips"`
}

// IsClosed reports whether the trade has been closed
func (t Trade) IsClosed() bool {
	return t.CloseTime != nil
}

// Strategy identifies a strategy and how it is drawn
type Strategy struct {
	Key   string `mapstructure:"key"`
	Title string `mapstructure:"title"`
	Color string `mapstructure:"color"`
}

// Point is one labelled value of a time series
type Point struct {
	Label string
	Value float64
}

// Series is one plotted line. All series of a chart share the chart's label axis.
type Series struct {
	Name   string
	Color  string
	Values []float64
}

// AlertKind classifies a streak alert
type AlertKind string

const (
	AlertWinStreak  AlertKind = "win_streak"
	AlertLossStreak AlertKind = "loss_streak"
	AlertThreshold  AlertKind = "threshold"
)

// Alert is raised when a strategy closes several trades in a row with the
// same outcome, or when a threshold rule on its results triggers.
type Alert struct {
	Pair     string    `json:"pair"`
	Strategy string    `json:"strategy"`
	Kind     AlertKind `json:"kind"`
	Streak   int       `json:"streak,omitempty"`
	Rule     string    `json:"rule,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}
