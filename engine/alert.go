package engine

import (
	"time"
)

type (
	// Alert is a message shown to the user for a while. Alerts with a Name
	// replace earlier alerts with the same name.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
		Duration time.Duration
		seen     bool
	}

	AlertPriority int

	// Alerts is the list of active alerts, owned by the model goroutine.
	Alerts struct {
		alerts []Alert
	}
)

const (
	Info AlertPriority = iota
	Warning
	Error
)

const defaultAlertDuration = 5 * time.Second

func (p AlertPriority) String() string {
	switch p {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

func (a *Alerts) Add(message string, priority AlertPriority) {
	a.AddAlert(Alert{Priority: priority, Message: message, Duration: defaultAlertDuration})
}

func (a *Alerts) AddNamed(name, message string, priority AlertPriority) {
	a.AddAlert(Alert{Name: name, Priority: priority, Message: message, Duration: defaultAlertDuration})
}

func (a *Alerts) AddAlert(alert Alert) {
	if alert.Name != "" {
		for i := range a.alerts {
			if a.alerts[i].Name == alert.Name {
				a.alerts[i] = alert
				return
			}
		}
	}
	a.alerts = append(a.alerts, alert)
}

func (a *Alerts) ClearNamed(name string) {
	for i := range a.alerts {
		if a.alerts[i].Name == name {
			a.alerts[i].Duration = 0
		}
	}
	a.Update(0)
}

// Update ages the alerts by d and drops the expired ones. It returns true if
// any alert is still active.
func (a *Alerts) Update(d time.Duration) bool {
	n := 0
	for _, alert := range a.alerts {
		alert.Duration -= d
		if alert.Duration > 0 {
			a.alerts[n] = alert
			n++
		}
	}
	a.alerts = a.alerts[:n]
	return n > 0
}

// Iterate yields the active alerts, oldest first.
func (a *Alerts) Iterate(yield func(Alert) bool) {
	for _, alert := range a.alerts {
		if !yield(alert) {
			return
		}
	}
}

// Unseen yields the alerts that have not been yielded by Unseen before,
// oldest first. A replaced named alert counts as unseen.
func (a *Alerts) Unseen(yield func(Alert) bool) {
	for i := range a.alerts {
		if a.alerts[i].seen {
			continue
		}
		a.alerts[i].seen = true
		if !yield(a.alerts[i]) {
			return
		}
	}
}

func (a *Alerts) Len() int { return len(a.alerts) }
