package weather

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Sample is one hour of weather at the station, in KNMI units.
type Sample struct {
	Temperature           int  `json:"temperature"`              // 0.1 °C
	MinTemperature        *int `json:"minTemperature,omitempty"` // 0.1 °C over the last 6 hours, only on some hours
	SunDuration           int  `json:"sunDuration"`              // 0.1 h, -1 for < 0.05 h
	PrecipitationDuration int  `json:"precipitationDuration"`    // 0.1 h
	PrecipitationSum      int  `json:"precipitationSum"`         // 0.1 mm, -1 for < 0.05 mm
	CloudCover            int  `json:"cloudCover"`               // octants, 9 = sky obscured
	Humidity              int  `json:"humidity"`                 // percent
	Fog                   bool `json:"fog"`
	Rain                  bool `json:"rain"`
	Snow                  bool `json:"snow"`
	Thunder               bool `json:"thunder"`
	Ice                   bool `json:"ice"`
}

// Observation is a parsed hourly record together with the slot it belongs to.
// Hour uses 0-23.
type Observation struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Sample Sample
}

// RecordPattern matches one whitespace-free hourly record:
// STN,YYYYMMDD,HH,T,T10N,SQ,DR,RH,N,U,M,R,S,O,Y
var RecordPattern = regexp.MustCompile(`^\d+,\d{8},\d{1,2}(,-?\d*){12}$`)

const recordColumns = 15

// StripSpace removes every whitespace character from line.
func StripSpace(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
}

// ParseRecord parses a record line into an Observation. The KNMI hour
// (1-24, hour ending) is shifted to 0-23.
func ParseRecord(line string) (Observation, error) {
	line = StripSpace(line)
	cols := strings.Split(line, ",")
	if len(cols) != recordColumns {
		return Observation{}, fmt.Errorf("weather record %q: expected %d columns, got %d", line, recordColumns, len(cols))
	}

	date, err := time.Parse("20060102", cols[1])
	if err != nil {
		return Observation{}, fmt.Errorf("weather record %q: invalid date: %w", line, err)
	}
	hour, err := strconv.Atoi(cols[2])
	if err != nil || hour < 1 || hour > 24 {
		return Observation{}, fmt.Errorf("weather record %q: invalid hour %q", line, cols[2])
	}

	var (
		p  = fieldParser{line: line}
		sm Sample
	)
	sm.Temperature = p.int(cols[3])
	sm.MinTemperature = p.optInt(cols[4])
	sm.SunDuration = p.int(cols[5])
	sm.PrecipitationDuration = p.int(cols[6])
	sm.PrecipitationSum = p.int(cols[7])
	sm.CloudCover = p.int(cols[8])
	sm.Humidity = p.int(cols[9])
	sm.Fog = p.int(cols[10]) != 0
	sm.Rain = p.int(cols[11]) != 0
	sm.Snow = p.int(cols[12]) != 0
	sm.Thunder = p.int(cols[13]) != 0
	sm.Ice = p.int(cols[14]) != 0
	if p.err != nil {
		return Observation{}, p.err
	}

	return Observation{
		Year:   date.Year(),
		Month:  int(date.Month()),
		Day:    date.Day(),
		Hour:   hour - 1,
		Sample: sm,
	}, nil
}

// fieldParser keeps the first conversion error so a record can be parsed
// column by column without checking after each one.
type fieldParser struct {
	line string
	err  error
}

func (p *fieldParser) int(s string) int {
	if s == "" || p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("weather record %q: %w", p.line, err)
	}
	return n
}

func (p *fieldParser) optInt(s string) *int {
	if s == "" {
		return nil
	}
	n := p.int(s)
	return &n
}
