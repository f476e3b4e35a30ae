package scanconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

// newValidator reports fields by their YAML names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// cronParser matches the scheduler's cron.WithSeconds() format
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate runs tag rules first, then cross-field checks
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Config."),
				Message: fmt.Sprintf("failed %q rule (value=%v)", fe.Tag(), fe.Value()),
			}
		}
		return err
	}

	strategies := map[string]Strategy{
		"strategies.trend_seller":      cfg.Strategies.TrendSeller,
		"strategies.volatility_seller": cfg.Strategies.VolatilitySeller,
		"strategies.dividend_seller":   cfg.Strategies.DividendSeller,
	}
	for field, s := range strategies {
		if s.ExpiryMinDays > s.ExpiryMaxDays {
			return ValidationError{field, "expiry_min_days must be <= expiry_max_days"}
		}
	}

	crons := map[string]string{
		"schedule.scan_cron":        cfg.Schedule.ScanCron,
		"schedule.refresh_cron":     cfg.Schedule.RefreshCron,
		"schedule.maintenance_cron": cfg.Schedule.MaintenanceCron,
	}
	for field, expr := range crons {
		if _, err := cronParser.Parse(expr); err != nil {
			return ValidationError{field, err.Error()}
		}
	}

	if cfg.Refresh.HealthyMinFScore < cfg.Health.MinFScore {
		return ValidationError{"refresh.healthy_min_f_score", "must be >= health.min_f_score"}
	}

	return nil
}
