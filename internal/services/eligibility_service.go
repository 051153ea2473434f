package services

import (
	"context"
	"sync"

	"mint-backend/internal/metrics"
	"mint-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Eligibility resolved mint eligibility for a single wallet
type Eligibility struct {
	// Root is the allowlist root the wallet should mint against. The zero
	// hash selects the public list.
	Root common.Hash
	// Proof is the Merkle proof path, empty for the public list
	Proof []common.Hash
	// Private reports whether the wallet qualified for the private list
	Private bool
}

// PublicEligibility is what every wallet falls back to
func PublicEligibility() *Eligibility {
	return &Eligibility{Root: common.Hash{}, Proof: nil, Private: false}
}

// ProofFetcher is the slice of the allowlist client the resolver needs
type ProofFetcher interface {
	EligibleLists(ctx context.Context, contract, wallet string) ([]string, error)
	Proof(ctx context.Context, contract, root, wallet string) ([]string, error)
}

// EligibilityService resolves and caches per-wallet allowlist eligibility.
// A wallet is fetched at most once while cached; Reset drops the entry so the
// next resolution fetches fresh data.
type EligibilityService struct {
	fetcher     ProofFetcher
	contract    string
	privateRoot string
	logger      *logrus.Logger

	mu       sync.Mutex
	cache    map[string]*Eligibility
	inflight map[string]*eligibilityFetch
}

type eligibilityFetch struct {
	done   chan struct{}
	result *Eligibility
}

// NewEligibilityService creates an eligibility resolver for one collection
func NewEligibilityService(fetcher ProofFetcher, contract, privateRoot string, logger *logrus.Logger) *EligibilityService {
	return &EligibilityService{
		fetcher:     fetcher,
		contract:    contract,
		privateRoot: privateRoot,
		logger:      logger,
		cache:       make(map[string]*Eligibility),
		inflight:    make(map[string]*eligibilityFetch),
	}
}

// Resolve returns the wallet's eligibility, fetching it on first use.
// Allowlist service failures degrade to public eligibility instead of
// blocking the mint flow; the error is logged, not returned.
func (s *EligibilityService) Resolve(ctx context.Context, wallet string) (*Eligibility, error) {
	wallet = utils.NormalizeAddress(wallet)

	s.mu.Lock()
	if cached, ok := s.cache[wallet]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	if fetch, ok := s.inflight[wallet]; ok {
		s.mu.Unlock()
		select {
		case <-fetch.done:
			return fetch.result, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fetch := &eligibilityFetch{done: make(chan struct{})}
	s.inflight[wallet] = fetch
	s.mu.Unlock()

	result := s.fetch(ctx, wallet)

	s.mu.Lock()
	// a result produced under a dead context is degraded noise, not the
	// wallet's real eligibility; keep it out of the cache so the next
	// resolution fetches for real
	if ctx.Err() == nil {
		s.cache[wallet] = result
	}
	delete(s.inflight, wallet)
	s.mu.Unlock()

	fetch.result = result
	close(fetch.done)
	return result, nil
}

func (s *EligibilityService) fetch(ctx context.Context, wallet string) *Eligibility {
	lists, err := s.fetcher.EligibleLists(ctx, s.contract, wallet)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"wallet": wallet,
			"error":  err.Error(),
		}).Warn("Eligible lists lookup failed, falling back to public mint")
		metrics.EligibilityResolutions.WithLabelValues("degraded").Inc()
		return PublicEligibility()
	}

	// the public list is always present, so membership in at most one list
	// means no private allowlist
	if len(lists) <= 1 || s.privateRoot == "" {
		metrics.EligibilityResolutions.WithLabelValues("public").Inc()
		return PublicEligibility()
	}

	proof, err := s.fetcher.Proof(ctx, s.contract, s.privateRoot, wallet)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"wallet": wallet,
			"error":  err.Error(),
		}).Warn("Proof lookup failed, falling back to public mint")
		metrics.EligibilityResolutions.WithLabelValues("degraded").Inc()
		return PublicEligibility()
	}
	if len(proof) == 0 {
		metrics.EligibilityResolutions.WithLabelValues("public").Inc()
		return PublicEligibility()
	}

	path := make([]common.Hash, len(proof))
	for i, p := range proof {
		path[i] = common.HexToHash(p)
	}
	metrics.EligibilityResolutions.WithLabelValues("private").Inc()
	return &Eligibility{
		Root:    common.HexToHash(s.privateRoot),
		Proof:   path,
		Private: true,
	}
}

// Status reports whether a fetch for the wallet is in flight
func (s *EligibilityService) Status(wallet string) string {
	wallet = utils.NormalizeAddress(wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[wallet]; ok {
		return "fetching"
	}
	return "idle"
}

// Reset drops the cached eligibility for a wallet
func (s *EligibilityService) Reset(wallet string) {
	wallet = utils.NormalizeAddress(wallet)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, wallet)
}
