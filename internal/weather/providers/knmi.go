package providers

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/site-analytics/internal/weather"
)

// DefaultKNMIURL is the KNMI hourly history endpoint.
const DefaultKNMIURL = "https://projects.knmi.nl/klimatologie/uurgegevens/getdata_uur.cgi"

// KNMIProvider implements weather.HourlySource for the KNMI hourly data form.
type KNMIProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewKNMIProvider creates a provider posting to baseURL. An empty baseURL
// selects DefaultKNMIURL.
func NewKNMIProvider(client *http.Client, baseURL string, log zerolog.Logger) *KNMIProvider {
	if baseURL == "" {
		baseURL = DefaultKNMIURL
	}
	p := &KNMIProvider{
		name:    "knmi",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      2,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		log: log.With().Str("component", "knmi").Logger(),
	}
	p.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "knmi",
		MaxRequests:  1,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return p
}

// WithBackoff overrides the retry policy.
func (p *KNMIProvider) WithBackoff(b BackoffConfig) *KNMIProvider {
	p.httpCfg.Backoff = b
	return p
}

func (p *KNMIProvider) Name() string {
	return p.name
}

// FetchHourly posts the query and streams matching records to fn. Any
// transport, status or read failure is returned as *weather.EnrichmentError;
// an error returned by fn is passed through unchanged.
func (p *KNMIProvider) FetchHourly(ctx context.Context, q weather.HistoricalQuery, fn func(weather.Observation) error) error {
	if err := q.Validate(); err != nil {
		return err
	}

	form := encodeForm(q)
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, p.baseURL, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return p.enrichmentError(err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var lines, matched int
	for scanner.Scan() {
		lines++
		line := weather.StripSpace(scanner.Text())
		if !weather.RecordPattern.MatchString(line) {
			continue
		}
		obs, err := weather.ParseRecord(line)
		if err != nil {
			p.log.Debug().Err(err).Int("line", lines).Msg("skipping unparsable weather record")
			continue
		}
		matched++
		if err := fn(obs); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return p.enrichmentError(err)
	}

	p.log.Debug().Int("lines", lines).Int("records", matched).Msg("weather response streamed")
	return nil
}

func (p *KNMIProvider) enrichmentError(err error) error {
	ee := &weather.EnrichmentError{Source: p.name, Message: err.Error(), Err: err}
	var se *StatusError
	if errors.As(err, &se) {
		ee.Status = se.Code
		ee.Message = http.StatusText(se.Code)
		if se.Body != "" {
			ee.Message = se.Body
		}
	}
	return ee
}

// encodeForm renders the query the way the KNMI form expects it.
func encodeForm(q weather.HistoricalQuery) string {
	v := url.Values{}
	v.Set("lang", q.Language)
	v.Set("byear", strconv.Itoa(q.StartDate.Year))
	v.Set("bmonth", strconv.Itoa(q.StartDate.Month))
	v.Set("bday", strconv.Itoa(q.StartDate.Day))
	v.Set("eyear", strconv.Itoa(q.EndDate.Year))
	v.Set("emonth", strconv.Itoa(q.EndDate.Month))
	v.Set("eday", strconv.Itoa(q.EndDate.Day))
	v.Set("bhour", strconv.Itoa(q.StartHour))
	v.Set("ehour", strconv.Itoa(q.EndHour))
	v.Set("stations", q.Station)
	for _, name := range q.Variables {
		v.Add("variabele", name)
	}
	v.Set("submit", "Download dataset")
	return v.Encode()
}

var _ weather.HourlySource = (*KNMIProvider)(nil)
