// Package health отдаёт liveness/readiness-пробы и агрегированный
// отчёт о состоянии зависимостей магазина (хранилище, outbox).
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/adepetun22/shopapp/internal/domain"
)

// Status — состояние отдельного компонента или сервиса в целом.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker выполняет проверку одного компонента.
type Checker interface {
	Check() Check
}

// Handler собирает зарегистрированные проверки и отдаёт их по HTTP.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
}

func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker добавляет проверку под указанным именем. Повторная
// регистрация с тем же именем заменяет предыдущую проверку.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	h.checkers[name] = checker
	h.mu.Unlock()
}

// snapshot копирует карту проверок, чтобы не держать мьютекс
// во время их выполнения.
func (h *Handler) snapshot() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Checker, len(h.checkers))
	for name, c := range h.checkers {
		out[name] = c
	}
	return out
}

// runChecks выполняет все проверки и сводит их в общий статус:
// unhealthy у любого компонента перевешивает degraded.
func (h *Handler) runChecks() (map[string]Check, Status) {
	results := make(map[string]Check)
	overall := StatusHealthy

	for name, checker := range h.snapshot() {
		result := checker.Check()
		results[name] = result

		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return results, overall
}

// ServeHTTP отдаёт полный отчёт по /healthz.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks, overall := h.runChecks()

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler возвращает 503, если хоть один компонент unhealthy.
// Degraded-компоненты готовности не мешают.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	_, overall := h.runChecks()
	if overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// timedCheck замеряет длительность fn и превращает её результат в Check.
func timedCheck(name string, fn func() (Status, string)) Check {
	start := time.Now()
	status, message := fn()
	return Check{
		Name:       name,
		Status:     status,
		Message:    message,
		DurationMs: time.Since(start).Milliseconds(),
	}
}

// SimpleChecker оборачивает функцию вида "ошибка есть / ошибки нет".
type SimpleChecker struct {
	name    string
	checkFn func() error
}

func NewSimpleChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn}
}

func (c *SimpleChecker) Check() Check {
	return timedCheck(c.name, func() (Status, string) {
		if err := c.checkFn(); err != nil {
			return StatusUnhealthy, err.Error()
		}
		return StatusHealthy, ""
	})
}

// OutboxChecker следит за backlog transactional outbox: растущая очередь
// неопубликованных событий деградирует статус, но не валит readiness.
type OutboxChecker struct {
	name   string
	outbox domain.OutboxRepository
	maxAge time.Duration
}

// NewOutboxChecker создаёт проверку outbox. maxAge — допустимый возраст
// самого старого неопубликованного события.
func NewOutboxChecker(outbox domain.OutboxRepository, maxAge time.Duration) *OutboxChecker {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &OutboxChecker{name: "outbox", outbox: outbox, maxAge: maxAge}
}

// Check оценивает состояние очереди событий.
func (c *OutboxChecker) Check() Check {
	return timedCheck(c.name, func() (Status, string) {
		stats, err := c.outbox.Stats()
		if err != nil {
			return StatusUnhealthy, err.Error()
		}
		if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
			if age := time.Since(stats.OldestPendingAt); age > c.maxAge {
				msg := fmt.Sprintf("%d pending events, oldest %s", stats.PendingCount, age.Round(time.Second))
				return StatusDegraded, msg
			}
		}
		return StatusHealthy, ""
	})
}
