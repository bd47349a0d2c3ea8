package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message/mail"

	"cv-intake/internal/application"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 100
	sendTimeout      = 30 * time.Second
)

// Dispatcher sends submission emails from background workers. Submitted
// never blocks: when the queue is full the message is dropped and logged.
type Dispatcher struct {
	sender     Sender
	adminEmail string
	baseURL    string
	workers    int
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Message
	wg     sync.WaitGroup
}

func NewDispatcher(cfg Config, sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Dispatcher{
		sender:     sender,
		adminEmail: cfg.AdminEmail,
		baseURL:    cfg.BaseURL,
		workers:    workers,
		logger:     logger.With(slog.String("component", "mail")),
		queue:      make(chan Message, size),
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("mail workers started", slog.Int("workers", d.workers))
}

// Submitted queues the admin notice and the applicant confirmation as
// two independent jobs.
func (d *Dispatcher) Submitted(app application.Application) {
	msgs, err := Compose(app, d.adminEmail, d.baseURL)
	if err != nil {
		d.logger.Error("compose submission emails", slog.String("application_id", app.ID.String()), slog.String("error", err.Error()))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping emails", slog.String("application_id", app.ID.String()))
		return
	}
	for _, m := range msgs {
		select {
		case d.queue <- m:
		default:
			d.logger.Warn("mail queue full, dropping email",
				slog.String("application_id", app.ID.String()),
				slog.String("subject", m.Subject))
		}
	}
}

// Close stops accepting messages and waits for queued ones to be sent
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for m := range d.queue {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.sender.Send(ctx, m)
		cancel()
		if err != nil {
			d.logger.Error("send email failed",
				slog.Int("worker", n),
				slog.String("to", m.To),
				slog.String("subject", m.Subject),
				slog.String("error", err.Error()))
			continue
		}
		d.logger.Info("email sent",
			slog.Int("worker", n),
			slog.String("to", m.To),
			slog.Duration("took", time.Since(start)))
	}
}

func bareAddress(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}
