package shipping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/storefront/pkg/pricing"
)

// ErrShippingResolution is only returned in strict mode.
var ErrShippingResolution = errors.New("shipping cost could not be resolved")

type Tier int

const (
	TierMajor Tier = iota
	TierSecondary
	TierOther
)

// Quote is one selectable shipping option.
type Quote struct {
	Provider string
	Name     string
	Amount   float64
	MinDays  int
	MaxDays  int
}

type Resolver struct {
	table     Table
	providers map[string]Provider
	tiers     map[string]Tier
	strict    bool
}

// NewResolver builds a resolver. In strict mode unknown providers are an
// error; otherwise they fall back to the default provider.
func NewResolver(table Table, strict bool) *Resolver {
	r := &Resolver{
		table:     table,
		providers: make(map[string]Provider, len(table.Providers)),
		tiers:     make(map[string]Tier),
		strict:    strict,
	}
	for _, p := range table.Providers {
		r.providers[normalize(p.ID)] = p
	}
	for _, c := range table.MajorCities {
		r.tiers[normalize(c)] = TierMajor
	}
	for _, c := range table.SecondaryCities {
		r.tiers[normalize(c)] = TierSecondary
	}
	return r
}

// Tier classifies a city; unknown or empty cities are TierOther.
func (r *Resolver) Tier(city string) Tier {
	if t, ok := r.tiers[normalize(city)]; ok {
		return t
	}
	return TierOther
}

// Resolve returns base cost of the provider plus the city tier modifier.
func (r *Resolver) Resolve(city, provider string) (float64, error) {
	p, err := r.provider(provider)
	if err != nil {
		return 0, err
	}
	return pricing.Round2(p.BaseCost + r.modifier(city)), nil
}

// Options returns the standard and express quotes for a destination.
func (r *Resolver) Options(city, provider string) (standard, express Quote, err error) {
	sp, err := r.provider(provider)
	if err != nil {
		return Quote{}, Quote{}, err
	}
	ep, err := r.provider(r.table.ExpressProvider)
	if err != nil {
		return Quote{}, Quote{}, err
	}
	mod := r.modifier(city)
	standard = Quote{Provider: sp.ID, Name: "Standard Shipping", Amount: pricing.Round2(sp.BaseCost + mod), MinDays: 3, MaxDays: 5}
	express = Quote{Provider: ep.ID, Name: "Express Shipping", Amount: pricing.Round2(ep.BaseCost + mod), MinDays: 1, MaxDays: 2}
	return standard, express, nil
}

func (r *Resolver) provider(id string) (Provider, error) {
	if p, ok := r.providers[normalize(id)]; ok {
		return p, nil
	}
	if r.strict {
		return Provider{}, fmt.Errorf("%w: unknown provider %q", ErrShippingResolution, id)
	}
	p, ok := r.providers[normalize(r.table.DefaultProvider)]
	if !ok {
		return Provider{}, fmt.Errorf("%w: default provider %q missing from table", ErrShippingResolution, r.table.DefaultProvider)
	}
	return p, nil
}

func (r *Resolver) modifier(city string) float64 {
	switch r.Tier(city) {
	case TierMajor:
		return 0
	case TierSecondary:
		return r.table.SecondarySurcharge
	default:
		return r.table.OtherSurcharge
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
