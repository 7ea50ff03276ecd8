// Package kyc reads verification statuses from the KYC provider. The
// provider is a black box; only the resulting status gates wallet
// activation.
package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Service fetches and caches verification statuses. Statuses are cached for
// a short TTL because the provider read sits on the activation path.
type Service struct {
	logger  *logger.Logger
	baseURL string
	client  *http.Client

	cacheTTL time.Duration

	cacheMutex sync.RWMutex
	cache      map[string]cachedStatus
}

type cachedStatus struct {
	status    string
	fetchedAt time.Time
}

type statusResponse struct {
	Status string `json:"status"`
}

// NewService creates a KYC provider client.
func NewService(baseURL string, cacheTTL time.Duration, logger *logger.Logger) *Service {
	return &Service{
		logger:   logger,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		client: &http.Client{
			Timeout: requestTimeout,
		},
		cache: make(map[string]cachedStatus),
	}
}

// VerificationStatus returns the provider's verification status for a user.
func (s *Service) VerificationStatus(ctx context.Context, userID string) (string, error) {
	s.cacheMutex.RLock()
	entry, ok := s.cache[userID]
	s.cacheMutex.RUnlock()
	if ok && time.Since(entry.fetchedAt) < s.cacheTTL {
		return entry.status, nil
	}

	url := fmt.Sprintf("%s/v1/verifications/%s", s.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build verification request: %s", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch verification status: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// The provider has never seen this user.
		s.store(userID, models.KYCStatusUnverified)
		return models.KYCStatusUnverified, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("verification status request failed with status %d", resp.StatusCode)
	}

	var parsed statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode verification status: %s", err)
	}

	switch parsed.Status {
	case models.KYCStatusUnverified, models.KYCStatusPending,
		models.KYCStatusVerified, models.KYCStatusRejected:
	default:
		return "", fmt.Errorf("unknown verification status %q", parsed.Status)
	}

	s.store(userID, parsed.Status)
	return parsed.Status, nil
}

func (s *Service) store(userID, status string) {
	s.cacheMutex.Lock()
	s.cache[userID] = cachedStatus{status: status, fetchedAt: time.Now()}
	s.cacheMutex.Unlock()
}
