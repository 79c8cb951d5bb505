package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fastygo/crm/domain"
)

// Rules are the business constants. Zero values in the YAML file keep the defaults.
type Rules struct {
	RevisionDueHours      int                  `yaml:"revision_due_hours"`
	NoResponseRetryHours  int                  `yaml:"no_response_retry_hours"`
	ReminderIntervalHours int                  `yaml:"reminder_interval_hours"`
	MaxReminders          int                  `yaml:"max_reminders"`
	ThresholdMode         domain.ThresholdMode `yaml:"promotion_threshold_mode"`
	InvitationTTL         time.Duration        `yaml:"invitation_ttl"`
}

func DefaultRules() Rules {
	return Rules{
		RevisionDueHours:      24,
		NoResponseRetryHours:  24,
		ReminderIntervalHours: 5,
		MaxReminders:          6,
		ThresholdMode:         domain.ThresholdFrozen,
		InvitationTTL:         7 * 24 * time.Hour,
	}
}

// LoadRules overlays the YAML file at path onto base.
func LoadRules(path string, base Rules) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read rules file: %w", err)
	}
	var overlay Rules
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return base, fmt.Errorf("parse rules file: %w", err)
	}
	return base.merge(overlay)
}

func (r Rules) merge(o Rules) (Rules, error) {
	if o.RevisionDueHours > 0 {
		r.RevisionDueHours = o.RevisionDueHours
	}
	if o.NoResponseRetryHours > 0 {
		r.NoResponseRetryHours = o.NoResponseRetryHours
	}
	if o.ReminderIntervalHours > 0 {
		r.ReminderIntervalHours = o.ReminderIntervalHours
	}
	if o.MaxReminders > 0 {
		r.MaxReminders = o.MaxReminders
	}
	if o.ThresholdMode != "" {
		if !o.ThresholdMode.Valid() {
			return r, fmt.Errorf("unknown promotion threshold mode %q", o.ThresholdMode)
		}
		r.ThresholdMode = o.ThresholdMode
	}
	if o.InvitationTTL > 0 {
		r.InvitationTTL = o.InvitationTTL
	}
	return r, nil
}

func (r Rules) RevisionDue() time.Duration {
	return time.Duration(r.RevisionDueHours) * time.Hour
}

func (r Rules) NoResponseRetry() time.Duration {
	return time.Duration(r.NoResponseRetryHours) * time.Hour
}

func (r Rules) ReminderDefaults() domain.ReminderDefaults {
	return domain.ReminderDefaults{IntervalHours: r.ReminderIntervalHours, MaxReminders: r.MaxReminders}
}
