package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/config"
	"ElderCare360/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MinLookupTerm is the shortest term sent to RxNav.
const MinLookupTerm = 3

type approximateTermResponse struct {
	ApproximateGroup struct {
		InputTerm string `json:"inputTerm"`
		Candidate []struct {
			RxCUI string `json:"rxcui"`
			Score string `json:"score"`
			Name  string `json:"name"`
		} `json:"candidate"`
	} `json:"approximateGroup"`
}

// MedicationLookup suggests medication names from the RxNav approximate term search.
type MedicationLookup struct {
	client     *resty.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]string]
	maxEntries int
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func NewMedicationLookup(cfg config.RxNavConfig, log *zap.Logger, m *metrics.Metrics) *MedicationLookup {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	breaker := gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        "rxnav",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &MedicationLookup{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		breaker:    breaker,
		maxEntries: cfg.MaxEntries,
		log:        log,
		metrics:    m,
	}
}

/*
* Terms shorter than three characters return no suggestions and no request
* Wait for the rate limiter, then call RxNav through the circuit breaker
* Candidate names are returned in RxNav order without duplicates
 */
func (l *MedicationLookup) Suggest(ctx context.Context, term string) (names []string, err error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinLookupTerm {
		return []string{}, nil
	}
	defer func() { l.metrics.Observe("medicationLookup", err) }()

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, apperr.ErrLookupUnavailable.WithCause(err)
	}
	names, err = l.breaker.Execute(func() ([]string, error) {
		return l.fetch(ctx, term)
	})
	if err != nil {
		l.log.Warn("Error from RxNav lookup", zap.String("term", term), zap.Error(err))
		return nil, apperr.ErrLookupUnavailable.WithCause(err)
	}
	return names, nil
}

func (l *MedicationLookup) fetch(ctx context.Context, term string) ([]string, error) {
	var body approximateTermResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParam("term", term).
		SetQueryParam("maxEntries", strconv.Itoa(l.maxEntries)).
		SetResult(&body).
		Get("/REST/approximateTerm.json")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rxnav returned status %d", resp.StatusCode())
	}

	seen := make(map[string]struct{})
	names := []string{}
	for _, c := range body.ApproximateGroup.Candidate {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}
