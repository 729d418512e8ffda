package openai

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/openai/openai-go/v2"

	"github.com/processedornot/scanner/internal/core/domain"
	"github.com/processedornot/scanner/internal/infrastructure/resilience"
)

// classifyModelError drives retries and the circuit breaker for model
// calls. Malformed responses are permanent, transport trouble and
// throttling are retryable.
func classifyModelError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusRequestTimeout ||
			apiErr.StatusCode >= http.StatusInternalServerError
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	// Parse failures and empty completions.
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

// wrapTemporaryIfNeeded tags infrastructure-level failures so the HTTP
// layer can answer 503 instead of 500 for them.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
