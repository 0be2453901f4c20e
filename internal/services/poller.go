package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/resume"
)

var (
	ErrPollExhausted = errors.New("polling gave up before processing finished")
	ErrPollStopped   = errors.New("polling stopped")
)

// StatusCheckFunc performs one status request for an upload.
type StatusCheckFunc func(ctx context.Context) (*models.StatusResult, error)

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Timeout bounds the whole run; zero means only MaxAttempts applies.
	Timeout time.Duration
}

// Poller checks the processing status of one upload at a fixed interval
// until it reaches a terminal state. There is never more than one request
// in flight.
type Poller interface {
	Start(ctx context.Context)
	Stop()
	Done() <-chan struct{}
	// Wait blocks until the run ends and returns the retrieved document.
	Wait() (*resume.Node, error)
}

type poller struct {
	cfg        PollConfig
	check      StatusCheckFunc
	onProgress func(attempt int)
	label      string

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}

	doc *resume.Node
	err error
}

// NewPoller builds a poller. onProgress, if not nil, is called after every
// in_progress answer.
func NewPoller(label string, cfg PollConfig, check StatusCheckFunc, onProgress func(attempt int)) Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &poller{
		cfg:        cfg,
		check:      check,
		onProgress: onProgress,
		label:      label,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start implements Poller. Only the first call has an effect.
func (p *poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

// Stop implements Poller. It does not wait for an outstanding request.
func (p *poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

// Done implements Poller.
func (p *poller) Done() <-chan struct{} {
	return p.done
}

// Wait implements Poller.
func (p *poller) Wait() (*resume.Node, error) {
	<-p.done
	return p.doc, p.err
}

func (p *poller) run(parent context.Context) {
	defer close(p.done)

	ctx, cancel := context.WithCancel(parent)
	if p.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, p.cfg.Timeout)
	}
	defer cancel()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	logger.Debug().Str("upload_id", p.label).Msg("🔄 Status poller started")

	attempt := 0
	for {
		select {
		case <-p.stopChan:
			p.err = ErrPollStopped
			return
		case <-ctx.Done():
			p.err = p.contextErr(parent)
			return
		case <-ticker.C:
			attempt++
			doc, finished, err := p.poll(ctx, parent, attempt)
			if !finished {
				continue
			}
			p.doc, p.err = doc, err
			if err != nil {
				logger.Warn().Err(err).Str("upload_id", p.label).Int("attempt", attempt).Msg("⚠️  Status poller finished without a document")
			} else {
				logger.Info().Str("upload_id", p.label).Int("attempt", attempt).Msg("✅ CV processing finished")
			}
			return
		}
	}
}

func (p *poller) poll(ctx, parent context.Context, attempt int) (*resume.Node, bool, error) {
	result, err := p.check(ctx)
	select {
	case <-p.stopChan:
		return nil, true, ErrPollStopped
	default:
	}
	if ctx.Err() != nil {
		return nil, true, p.contextErr(parent)
	}
	if err != nil {
		return nil, true, err
	}

	switch result.Status {
	case models.ProcessStatusReady:
		return result.Document, true, nil
	case models.ProcessStatusInProgress:
		if p.onProgress != nil {
			p.onProgress(attempt)
		}
		if p.cfg.MaxAttempts > 0 && attempt >= p.cfg.MaxAttempts {
			return nil, true, fmt.Errorf("%w: %d attempts", ErrPollExhausted, attempt)
		}
		return nil, false, nil
	default:
		return nil, true, fmt.Errorf("%w: status %q", ErrProcessingFailed, result.Status)
	}
}

// contextErr tells our own timeout apart from the caller cancelling.
func (p *poller) contextErr(parent context.Context) error {
	if parent.Err() != nil {
		return ErrPollStopped
	}
	return fmt.Errorf("%w: no result within %s", ErrPollExhausted, p.cfg.Timeout)
}
