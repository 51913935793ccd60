package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/danthegoodman1/CloudConnect/client"
)

var errRetryableStatus = errors.New("retryable status")

// Retrying resends a request when the transport fails or the server answers
// 429, 502, 503 or 504, waiting with exponential backoff between attempts.
// Requests whose body cannot be replayed are sent once. When the retries run
// out on a retryable status, the last response is returned as is.
func Retrying(next client.Transport, maxRetries uint64, initialInterval time.Duration) client.Transport {
	return client.TransportFunc(func(req *http.Request) (*http.Response, error) {
		replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
		if maxRetries == 0 || !replayable {
			return next.Do(req)
		}

		b := backoff.NewExponentialBackOff()
		if initialInterval > 0 {
			b.InitialInterval = initialInterval
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), req.Context())

		var last *http.Response
		attempt := 0
		op := func() error {
			if last != nil {
				io.Copy(io.Discard, last.Body)
				last.Body.Close()
				last = nil
			}

			attemptReq := req
			if attempt > 0 && req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return backoff.Permanent(fmt.Errorf("error in GetBody: %w", err))
				}
				attemptReq = req.Clone(req.Context())
				attemptReq.Body = body
			}
			attempt++

			resp, err := next.Do(attemptReq)
			if err != nil {
				return err
			}
			last = resp
			if retryableStatus(resp.StatusCode) {
				return fmt.Errorf("%w %d", errRetryableStatus, resp.StatusCode)
			}
			return nil
		}

		err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
			logger.Warn().Err(err).Str("path", req.URL.Path).Dur("wait", wait).Int("attempt", attempt).Msg("retrying request")
		})
		if last != nil {
			return last, nil
		}
		return nil, err
	})
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
