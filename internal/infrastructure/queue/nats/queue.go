package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
	"github.com/kirillkom/vat-compliance-checker/internal/core/ports"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/resilience"
)

const workerQueueGroup = "vat-check-workers"

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// RequestTimeout bounds one dispatched check, including every model
	// endpoint the worker tries.
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

// Queue carries compliance checks between the API and workers over NATS
// request/reply.
type Queue struct {
	conn           *nats.Conn
	subject        string
	requestTimeout time.Duration
	executor       *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Minute
	}

	conn, err := nats.Connect(
		url,
		nats.Name("vat-compliance-checker"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		requestTimeout: requestTimeout,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Check dispatches the record to a worker and waits for its result. It
// satisfies ports.ComplianceChecker so the API can run checks remotely.
func (q *Queue) Check(ctx context.Context, record domain.InvoiceRecord) (*domain.CheckResult, error) {
	payload, err := encodeRequest(checkRequest{ID: uuid.NewString(), Record: record})
	if err != nil {
		return nil, err
	}

	var reply []byte
	call := func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, q.requestTimeout)
		defer cancel()
		msg, err := q.conn.RequestWithContext(reqCtx, q.subject, payload)
		if err != nil {
			return fmt.Errorf("nats request: %w", err)
		}
		reply = msg.Data
		return nil
	}

	if q.executor != nil {
		// Only the transport hop is retried; a worker reply is final.
		err = q.executor.Execute(ctx, "nats.request", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded(q.subject, err)
	}
	return decodeReply(reply)
}

// ServeHooks observe each handled check; both are optional.
type ServeHooks struct {
	OnStart  func()
	OnFinish func(status string, duration time.Duration)
}

// Serve answers dispatched checks until ctx is cancelled, then drains.
func (q *Queue) Serve(ctx context.Context, checker ports.ComplianceChecker, hooks ServeHooks) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		if hooks.OnStart != nil {
			hooks.OnStart()
		}
		started := time.Now()
		reply, status := handleRequest(ctx, checker, msg.Data)
		if hooks.OnFinish != nil {
			hooks.OnFinish(status, time.Since(started))
		}
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(reply); err != nil {
			slog.Error("check_reply_failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// handleRequest runs one check and returns the encoded reply with a status
// label for metrics.
func handleRequest(ctx context.Context, checker ports.ComplianceChecker, data []byte) ([]byte, string) {
	req, err := decodeRequest(data)
	if err != nil {
		slog.Warn("check_request_rejected", "error", err)
		return encodeReply(checkReply{Error: err.Error(), ErrorKind: domain.CodeInvalidInput}), "rejected"
	}

	result, err := checker.Check(ctx, req.Record)
	if err != nil {
		slog.Error("check_failed", "request_id", req.ID, "error", err)
		return encodeReply(checkReply{ID: req.ID, Error: err.Error(), ErrorKind: domain.ErrorCode(err)}), "error"
	}

	status := "analysis_failed"
	if result.Outcome.OK() {
		status = "analysis_succeeded"
	}
	slog.Info("check_completed", "request_id", req.ID, "status", status, "endpoint", result.Outcome.Endpoint)
	return encodeReply(checkReply{ID: req.ID, Result: result}), status
}
