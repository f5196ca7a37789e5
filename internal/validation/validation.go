// Package validation checks trade, user and journal input before it reaches
// the store or the metrics engine.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	apperrors "tiltguard/internal/errors"
	"tiltguard/internal/models"
)

// Instrument pattern: tickers, FX pairs and futures codes such as
// "XAUUSD", "EUR/USD", "BTC-USD" or "ES.H26".
var instrumentPattern = regexp.MustCompile(`^[A-Za-z0-9/._-]{1,32}$`)

// TradeInput is the raw form of a trade submitted for recording.
type TradeInput struct {
	UserID         string    `json:"userId" validate:"required,max=64"`
	Instrument     string    `json:"instrument" validate:"required,instrument"`
	Direction      string    `json:"direction" validate:"required,direction"`
	RiskPercentage float64   `json:"riskPercentage" validate:"gt=0,lte=100"`
	Result         string    `json:"result" validate:"omitempty,oneof=win loss breakeven"`
	PnL            float64   `json:"pnl"`
	FollowedPlan   bool      `json:"followedPlan"`
	EntryTime      time.Time `json:"entryTime" validate:"required"`
	ExitTime       time.Time `json:"exitTime" validate:"required,gtefield=EntryTime"`
	Mood           string    `json:"mood" validate:"omitempty,mood"`
}

// UserInput is the raw form of a new user profile.
type UserInput struct {
	Username          string   `json:"username" validate:"required,min=2,max=50"`
	Email             string   `json:"email" validate:"required,email"`
	ExperienceLevel   string   `json:"experienceLevel" default:"BEGINNER" validate:"oneof=BEGINNER INTERMEDIATE ADVANCED"`
	PlannedDailyLimit int      `json:"plannedDailyLimit" default:"3" validate:"gte=1,lte=100"`
	TradingPlanRules  []string `json:"tradingPlanRules" validate:"max=20,dive,required,max=200"`
}

// StrategyInput updates a user's trading plan.
type StrategyInput struct {
	PlannedDailyLimit int      `json:"plannedDailyLimit" validate:"gte=1,lte=100"`
	TradingPlanRules  []string `json:"tradingPlanRules" validate:"max=20,dive,required,max=200"`
}

// JournalInput is the raw form of a reflective journal entry.
type JournalInput struct {
	UserID          string    `json:"userId" validate:"required,max=64"`
	EmotionalState  string    `json:"emotionalState" validate:"required,oneof=CALM CONFIDENT ANXIOUS FRUSTRATED IMPULSIVE FOCUSED"`
	ConfidenceLevel int       `json:"confidenceLevel" validate:"required,min=1,max=10"`
	SessionType     string    `json:"sessionType" default:"POST-MARKET" validate:"oneof=PRE-MARKET IN-TRADE POST-MARKET BREAK"`
	Notes           string    `json:"notes" validate:"max=2000"`
	Timestamp       time.Time `json:"timestamp"`
}

// Validator validates and normalises input.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the domain-specific tags registered.
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("instrument", func(fl validator.FieldLevel) bool {
		return instrumentPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("direction", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseDirection(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseMood(fl.Field().String())
		return ok
	})

	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// Trade validates a trade submission and converts it into a record.
func (v *Validator) Trade(in *TradeInput) (models.TradeRecord, error) {
	if err := v.check(in); err != nil {
		return models.TradeRecord{}, err
	}

	direction, _ := models.ParseDirection(in.Direction)
	mood, _ := models.ParseMood(in.Mood)

	result := models.ResultFromPnL(in.PnL)
	if in.Result != "" {
		result, _ = models.ParseResult(in.Result)
	}

	return models.TradeRecord{
		UserID:         strings.TrimSpace(in.UserID),
		Instrument:     strings.ToUpper(strings.TrimSpace(in.Instrument)),
		Direction:      direction,
		RiskPercentage: in.RiskPercentage,
		Result:         result,
		PnL:            in.PnL,
		FollowedPlan:   in.FollowedPlan,
		EntryTime:      in.EntryTime,
		ExitTime:       in.ExitTime,
		Mood:           mood,
	}, nil
}

// User validates a new user profile, filling in defaults.
func (v *Validator) User(in *UserInput) (models.User, error) {
	if err := v.check(in); err != nil {
		return models.User{}, err
	}

	rules := in.TradingPlanRules
	if len(rules) == 0 {
		rules = append([]string(nil), models.DefaultTradingPlanRules...)
	}

	return models.User{
		Username:          strings.TrimSpace(in.Username),
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		ExperienceLevel:   models.ExperienceLevel(in.ExperienceLevel),
		PlannedDailyLimit: in.PlannedDailyLimit,
		TradingPlanRules:  rules,
	}, nil
}

// Strategy validates a trading plan update.
func (v *Validator) Strategy(in *StrategyInput) error {
	return v.check(in)
}

// Journal validates a journal entry. The timestamp defaults to now.
func (v *Validator) Journal(in *JournalInput, now time.Time) (models.JournalEntry, error) {
	if err := v.check(in); err != nil {
		return models.JournalEntry{}, err
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}

	return models.JournalEntry{
		UserID:          strings.TrimSpace(in.UserID),
		EmotionalState:  models.EmotionalState(in.EmotionalState),
		ConfidenceLevel: in.ConfidenceLevel,
		SessionType:     models.SessionType(in.SessionType),
		Notes:           strings.TrimSpace(in.Notes),
		Timestamp:       ts,
	}, nil
}

// Record checks a trade record that did not come through TradeInput, such as
// one read from an import file.
func (v *Validator) Record(t models.TradeRecord) error {
	switch {
	case strings.TrimSpace(t.Instrument) == "":
		return apperrors.NewValidationError("instrument", t.Instrument, "instrument is required")
	case !instrumentPattern.MatchString(strings.TrimSpace(t.Instrument)):
		return apperrors.NewValidationError("instrument", t.Instrument, "invalid instrument format")
	case t.RiskPercentage <= 0:
		return apperrors.NewValidationError("riskPercentage", t.RiskPercentage, "riskPercentage must be greater than 0")
	case t.EntryTime.IsZero() || t.ExitTime.IsZero():
		return apperrors.NewValidationError("entryTime", t.EntryTime, "entry and exit times are required")
	case t.ExitTime.Before(t.EntryTime):
		return apperrors.NewValidationError("exitTime", t.ExitTime, "exitTime must not precede entryTime")
	}
	if _, ok := models.ParseDirection(string(t.Direction)); !ok {
		return apperrors.NewValidationError("direction", t.Direction, "direction must be long or short")
	}
	if _, ok := models.ParseResult(string(t.Result)); !ok {
		return apperrors.NewValidationError("result", t.Result, "result must be win, loss or breakeven")
	}
	return nil
}

func (v *Validator) check(in interface{}) error {
	if err := defaults.Set(in); err != nil {
		return apperrors.Wrap(err, "applying defaults")
	}
	if err := v.validate.Struct(in); err != nil {
		return convert(err)
	}
	return nil
}

// FieldErrors collects every failed field of one input.
type FieldErrors []*apperrors.ValidationError

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes each field error to errors.Is and errors.As.
func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, 0, len(fe))
	for _, e := range fe {
		errs = append(errs, e)
	}
	return errs
}

func convert(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Wrap(apperrors.ErrInputValidation, err.Error())
	}

	out := make(FieldErrors, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, apperrors.NewValidationError(fe.Field(), fe.Value(), message(fe)))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min", "gte":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Type().Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not precede %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "instrument":
		return fmt.Sprintf("%s has an invalid format", field)
	case "direction":
		return fmt.Sprintf("%s must be long or short", field)
	case "mood":
		return fmt.Sprintf("%s is not a recognised mood", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
