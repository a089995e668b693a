package geo

import (
	"fmt"
	"io"
	"net"

	"github.com/oschwald/maxminddb-golang"

	"github.com/sudorandom/netflow-map/pkg/utils"
)

// Database is the subset of *maxminddb.Reader used by the resolver.
type Database interface {
	Lookup(ip net.IP, result any) error
}

// cityRecord follows the GeoLite2-City layout.
type cityRecord struct {
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Country struct {
		IsoCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// OpenDatabase opens a MaxMind database from a local path, or downloads it
// into the local cache first when given an http(s) URL.
func OpenDatabase(location string) (*maxminddb.Reader, error) {
	if !utils.IsURL(location) {
		db, err := maxminddb.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open geoip database %s: %w", location, err)
		}
		return db, nil
	}

	r, err := utils.GetCachedReader(location, true, "[GEOIP]")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch geoip database: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read geoip database: %w", err)
	}
	db, err := maxminddb.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geoip database: %w", err)
	}
	return db, nil
}

func lookupPoint(db Database, ip net.IP) (Point, error) {
	var rec cityRecord
	if err := db.Lookup(ip, &rec); err != nil {
		return Point{}, err
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return Point{}, ErrNoLocation
	}
	return NewPoint(rec.Location.Latitude, rec.Location.Longitude, rec.City.Names["en"], rec.Country.IsoCode)
}
