package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/dhgwag/korail-reservation/database"
	"github.com/dhgwag/korail-reservation/korail"
	"github.com/dhgwag/korail-reservation/models"
	"github.com/dhgwag/korail-reservation/notify"
)

const banner = "=================================================="

// journalTimeout bounds a single journal write
const journalTimeout = 10 * time.Second

// Booker is the provider session the engine drives
type Booker interface {
	Login(ctx context.Context, id, password string) error
	Search(ctx context.Context, q models.SearchCriterion) ([]models.TrainOffer, error)
	Reserve(ctx context.Context, t models.TrainOffer, opt models.ReserveOption) (models.Reservation, error)
}

// EngineConfig holds the loop tuning
type EngineConfig struct {
	Interval       time.Duration
	SessionRefresh time.Duration
	MaxAttempts    int // 0 means unbounded
	ReserveOption  models.ReserveOption
	RunID          string
}

// AttemptState is the engine-local progress of one run
type AttemptState struct {
	Satisfied   map[int]bool
	Attempt     int
	LastRefresh time.Time
}

// SweepOutcome tells the loop how a sweep ended
type SweepOutcome int

const (
	SweepCompleted SweepOutcome = iota
	SweepSessionExpired
)

// Engine polls the provider for every criterion and reserves the first
// matching train. It is strictly sequential.
type Engine struct {
	booker   Booker
	notifier notify.Notifier
	journal  database.Journal
	creds    models.Credentials
	criteria []models.SearchCriterion
	cfg      EngineConfig
	logger   *log.Logger
	now      func() time.Time
}

func NewEngine(
	booker Booker,
	notifier notify.Notifier,
	journal database.Journal,
	creds models.Credentials,
	criteria []models.SearchCriterion,
	cfg EngineConfig,
	logger *log.Logger,
) *Engine {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if journal == nil {
		journal = database.NewNoOpJournal()
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.ReserveOption == "" {
		cfg.ReserveOption = models.GeneralFirst
	}
	normalized := make([]models.SearchCriterion, len(criteria))
	for i, c := range criteria {
		normalized[i] = c.Normalized()
	}
	return &Engine{
		booker:   booker,
		notifier: notifier,
		journal:  journal,
		creds:    creds,
		criteria: normalized,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run logs in and polls until every criterion is reserved, the attempt
// ceiling is exceeded or ctx is cancelled. It returns an error wrapping
// korail.ErrAuth when a login fails; every other outcome returns nil.
func (e *Engine) Run(ctx context.Context) error {
	e.printBanner()

	if len(e.criteria) == 0 {
		e.logger.Println("No search criteria configured. Nothing to do.")
		e.finish()
		return nil
	}

	state := &AttemptState{Satisfied: make(map[int]bool)}

	e.logger.Println("Logging in...")
	if err := e.authenticate(ctx, state); err != nil {
		e.logger.Printf("Login failed! Check KORAIL_ID/KORAIL_PW: %v", err)
		return err
	}
	e.logger.Println("Login succeeded!")
	e.notifier.Notify(ctx, "Korail auto reservation started")

	for {
		if ctx.Err() != nil {
			e.logger.Println("Interrupted. Stopping.")
			break
		}
		if len(state.Satisfied) >= len(e.criteria) {
			e.logger.Println("All criteria reserved!")
			break
		}

		state.Attempt++
		if e.cfg.MaxAttempts > 0 && state.Attempt > e.cfg.MaxAttempts {
			e.logger.Printf("Exceeded max attempts (%d). Stopping.", e.cfg.MaxAttempts)
			break
		}

		if e.cfg.SessionRefresh > 0 && e.now().Sub(state.LastRefresh) > e.cfg.SessionRefresh {
			e.logger.Println("Refreshing session...")
			if err := e.authenticate(ctx, state); err != nil {
				e.logger.Printf("Session refresh failed: %v", err)
			} else {
				e.logger.Println("Session refreshed")
			}
		}

		e.logger.Printf("Attempt #%d", state.Attempt)

		if e.PollOnce(ctx, state) == SweepSessionExpired {
			e.logger.Println("Session expired. Logging in again...")
			if err := e.authenticate(ctx, state); err != nil {
				e.logger.Printf("Re-login failed! Exiting: %v", err)
				e.notifier.Notify(ctx, "Re-login failed! Korail auto reservation stopped.")
				return err
			}
			e.logger.Println("Re-login succeeded!")
		}

		if len(state.Satisfied) >= len(e.criteria) {
			continue
		}

		e.logger.Printf("Retrying in %s...", e.cfg.Interval)
		select {
		case <-ctx.Done():
		case <-time.After(e.cfg.Interval):
		}
	}

	e.finish()
	return nil
}

// PollOnce runs one sweep over the unsatisfied criteria in list order. It
// stops early and reports SweepSessionExpired when the provider session is
// gone; criteria reserved before that point stay satisfied.
func (e *Engine) PollOnce(ctx context.Context, state *AttemptState) SweepOutcome {
	// in-flight provider calls finish even if the run is being stopped
	callCtx := context.WithoutCancel(ctx)

	for i, c := range e.criteria {
		if state.Satisfied[i] {
			continue
		}
		e.logger.Printf("Searching: %s->%s (%s)", c.DepStation, c.ArrStation, c.DepDate)

		reserved, outcome := e.attempt(callCtx, i, c)
		if outcome == SweepSessionExpired {
			return SweepSessionExpired
		}
		if reserved {
			state.Satisfied[i] = true
			e.logger.Printf("Criterion [%d] reserved!", i+1)
		}
	}
	return SweepCompleted
}

func (e *Engine) attempt(ctx context.Context, idx int, c models.SearchCriterion) (bool, SweepOutcome) {
	offers, err := e.booker.Search(ctx, c)
	if err != nil {
		switch korail.Classify(err) {
		case korail.FailureNoResults:
			return false, SweepCompleted
		case korail.FailureSessionExpired:
			e.logger.Printf("Search failed: %v", err)
			return false, SweepSessionExpired
		}
		e.logger.Printf("Search error: %v", err)
		return false, SweepCompleted
	}

	opt := ReserveOptionFor(c.SeatType, e.cfg.ReserveOption)
	for _, t := range FilterWindow(offers, c) {
		if !SeatAvailable(t, c.SeatType) {
			continue
		}
		e.logger.Printf("%s available! %s", capitalize(c.SeatType.Label()), t)

		r, err := e.booker.Reserve(ctx, t, opt)
		if err != nil {
			switch korail.Classify(err) {
			case korail.FailureSoldOut:
				e.logger.Printf("Sold out: %s", t)
				continue
			case korail.FailureSessionExpired:
				e.logger.Printf("Reservation failed: %v", err)
				return false, SweepSessionExpired
			}
			e.logger.Printf("Reservation failed: %v", err)
			continue
		}

		r.RunID = e.cfg.RunID
		r.Criterion = idx + 1
		e.reserved(ctx, c, r)
		return true, SweepCompleted
	}
	return false, SweepCompleted
}

func (e *Engine) reserved(ctx context.Context, c models.SearchCriterion, r models.Reservation) {
	label := c.SeatType.Label()
	e.logger.Println(banner)
	e.logger.Printf("Reservation succeeded! (%s)", label)
	e.logger.Println(r.String())
	e.logger.Println(banner)

	e.notifier.Notify(ctx, fmt.Sprintf("<b>Korail reservation succeeded! (%s)</b>\n\n%s",
		html.EscapeString(label), html.EscapeString(r.String())))

	jctx, cancel := context.WithTimeout(ctx, journalTimeout)
	defer cancel()
	if err := e.journal.Record(jctx, r); err != nil {
		e.logger.Printf("Journal write failed: %v", err)
	}
}

func (e *Engine) authenticate(ctx context.Context, state *AttemptState) error {
	if err := e.booker.Login(context.WithoutCancel(ctx), e.creds.KorailID, e.creds.KorailPW); err != nil {
		if !errors.Is(err, korail.ErrAuth) {
			err = fmt.Errorf("%w: %v", korail.ErrAuth, err)
		}
		return err
	}
	state.LastRefresh = e.now()
	return nil
}

func (e *Engine) printBanner() {
	e.logger.Println(banner)
	e.logger.Println("Korail auto reservation starting")
	e.logger.Printf("Search criteria: %d", len(e.criteria))
	for i, c := range e.criteria {
		e.logger.Printf("  [%d] %s", i+1, c.Describe())
	}
	e.logger.Printf("Search interval: %s", e.cfg.Interval)
	e.logger.Println(banner)
}

func (e *Engine) finish() {
	e.logger.Println("Program finished")
	e.logger.Println("Complete the payment in the Korail app or website.")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
