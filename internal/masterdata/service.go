// Package masterdata caches the read-only reference lists used to enrich
// assignments for display: workers, vehicles, managers, and construction
// types with their calendar colors. The lists change rarely; the cache is
// refreshed on demand, never invalidated by the sync channels.
package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	stdsync "sync"
	"time"
)

// Worker is a crew member available for dispatch.
type Worker struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsAvailable bool   `json:"isAvailable"`
}

// Vehicle is a truck or machine available for dispatch.
type Vehicle struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Plate  string `json:"plate"`
	InUse  bool   `json:"inUse"`
	Remark string `json:"remark"`
}

// Manager is an employee assignments can be filtered by.
type Manager struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ConstructionType carries the calendar label and color for a work category.
type ConstructionType struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type payload struct {
	Workers           []Worker           `json:"workers"`
	Vehicles          []Vehicle          `json:"vehicles"`
	Managers          []Manager          `json:"managers"`
	ConstructionTypes []ConstructionType `json:"constructionTypes"`
}

// Service fetches and caches the master-data lists.
type Service struct {
	baseURL string
	http    *http.Client

	mu     stdsync.RWMutex
	data   payload
	loaded bool
}

// New creates a service for the given base URL.
func New(baseURL string) *Service {
	return &Service{baseURL: baseURL, http: &http.Client{Timeout: 15 * time.Second}}
}

// NewWithHTTPClient creates a service using a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Service {
	return &Service{baseURL: baseURL, http: hc}
}

// Refresh fetches all lists and swaps the cache.
func (s *Service) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/masters", nil)
	if err != nil {
		return fmt.Errorf("refresh master data: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh master data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("refresh master data: status %d", resp.StatusCode)
	}
	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return fmt.Errorf("refresh master data: decode: %w", err)
	}
	s.mu.Lock()
	s.data = p
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// ensure loads the cache on first use.
func (s *Service) ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Workers returns the cached worker list, loading it on first use.
func (s *Service) Workers(ctx context.Context) ([]Worker, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Worker(nil), s.data.Workers...), nil
}

// Vehicles returns the cached vehicle list, loading it on first use.
func (s *Service) Vehicles(ctx context.Context) ([]Vehicle, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Vehicle(nil), s.data.Vehicles...), nil
}

// Managers returns the cached manager list, loading it on first use.
func (s *Service) Managers(ctx context.Context) ([]Manager, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Manager(nil), s.data.Managers...), nil
}

// ConstructionType looks up a construction type by name; ok=false when the
// name is unknown or the cache was never loaded.
func (s *Service) ConstructionType(name string) (ConstructionType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ct := range s.data.ConstructionTypes {
		if ct.Name == name {
			return ct, true
		}
	}
	return ConstructionType{}, false
}
