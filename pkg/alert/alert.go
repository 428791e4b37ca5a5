// Package alert delivers user-facing messages such as validation failures.
package alert

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/framefill/logging"
)

// Notifier shows a message to the user. Delivery is fire-and-forget.
type Notifier interface {
	Notify(title, message string)
}

// Func adapts a function to Notifier.
type Func func(title, message string)

func (f Func) Notify(title, message string) { f(title, message) }

// LogNotifier writes alerts to the component log.
type LogNotifier struct {
	logger *logrus.Entry
}

// NewLogNotifier creates a notifier that logs at warn level.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logging.NewLogger("alert")}
}

func (n *LogNotifier) Notify(title, message string) {
	n.logger.WithField("title", title).Warn(message)
}

// Multi fans an alert out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(title, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(title, message)
		}
	}
}

// Alert is one recorded notification.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Recorder keeps every alert it receives.
type Recorder struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *Recorder) Notify(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, Alert{Title: title, Message: message})
}

// Alerts returns the recorded alerts, oldest first.
func (r *Recorder) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.alerts...)
}
