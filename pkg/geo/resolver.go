package geo

import (
	"fmt"
	"net"

	lru "github.com/hashicorp/golang-lru/v2"
)

const maxCacheEntries = 100000

// HostLookup resolves a hostname to its addresses.
type HostLookup func(host string) ([]net.IP, error)

// LocalReference is the point used for every private address. It is resolved
// once at startup from a configured public address.
type LocalReference struct {
	Address string
	Point   Point
}

// ResolveLocalReference looks up the public address standing in for the
// local network. address may be a hostname; a nil lookup uses DNS.
func ResolveLocalReference(db Database, address string, lookup HostLookup) (LocalReference, error) {
	if lookup == nil {
		lookup = net.LookupIP
	}
	ip, err := parseAddress(address, lookup)
	if err != nil {
		return LocalReference{}, fmt.Errorf("failed to resolve local address %q: %w", address, err)
	}
	p, err := lookupPoint(db, ip)
	if err != nil {
		return LocalReference{}, fmt.Errorf("failed to resolve local address %s: %w", address, err)
	}
	return LocalReference{Address: address, Point: p}, nil
}

// PointCache is an optional second-level cache consulted before the database.
type PointCache interface {
	Get(ip net.IP) (Point, bool, error)
	Put(ip net.IP, p Point) error
}

type Resolver struct {
	db         Database
	local      LocalReference
	disk       PointCache
	lookupHost HostLookup
	cache      *lru.Cache[string, Point]
}

type ResolverOption func(*Resolver)

// WithDiskCache adds a persistent cache behind the in-memory one.
func WithDiskCache(c PointCache) ResolverOption {
	return func(r *Resolver) { r.disk = c }
}

// WithHostLookup replaces the DNS lookup used for non-literal addresses.
func WithHostLookup(fn HostLookup) ResolverOption {
	return func(r *Resolver) { r.lookupHost = fn }
}

func NewResolver(db Database, local LocalReference, opts ...ResolverOption) *Resolver {
	// Only fails for a non-positive size.
	cache, _ := lru.New[string, Point](maxCacheEntries)
	r := &Resolver{
		db:         db,
		local:      local,
		lookupHost: net.LookupIP,
		cache:      cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps an address to a point. Loopback addresses and addresses without
// a known location fail with *ResolutionError; private addresses resolve to
// the local reference point.
func (r *Resolver) Resolve(address string) (Point, error) {
	ip, err := r.parse(address)
	if err != nil {
		return Point{}, &ResolutionError{Address: address, Err: err}
	}
	if ip.IsLoopback() {
		return Point{}, &ResolutionError{Address: address, Err: ErrLoopback}
	}
	if ip.IsPrivate() {
		return r.local.Point, nil
	}

	key := string(ip.To16())
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	if r.disk != nil {
		if p, ok, err := r.disk.Get(ip); err == nil && ok {
			r.cache.Add(key, p)
			return p, nil
		}
	}

	p, err := lookupPoint(r.db, ip)
	if err != nil {
		return Point{}, &ResolutionError{Address: address, Err: err}
	}
	r.cache.Add(key, p)
	if r.disk != nil {
		// Best effort; a miss falls back to the database next time.
		_ = r.disk.Put(ip, p)
	}
	return p, nil
}

func (r *Resolver) parse(address string) (net.IP, error) {
	return parseAddress(address, r.lookupHost)
}

func parseAddress(address string, lookup HostLookup) (net.IP, error) {
	if ip := net.ParseIP(address); ip != nil {
		return ip, nil
	}
	if address == "" {
		return nil, ErrUnknownHost
	}
	ips, err := lookup(address)
	if err != nil || len(ips) == 0 {
		return nil, ErrUnknownHost
	}
	return ips[0], nil
}
