// Package emission converts logged digital activity into kilograms of
// CO2-equivalent using a static factor table.
package emission

// Service identifies a tracked digital service. The set is closed: every
// switch over Service must handle all constants.
type Service string

const (
	ServiceYouTube     Service = "youtube"
	ServiceNetflix     Service = "netflix"
	ServiceSpotify     Service = "spotify"
	ServiceGoogleDrive Service = "google_drive"
	ServiceWebBrowsing Service = "web_browsing"
)

// Services lists every known service in stable order.
func Services() []Service {
	return []Service{
		ServiceGoogleDrive,
		ServiceNetflix,
		ServiceSpotify,
		ServiceWebBrowsing,
		ServiceYouTube,
	}
}

// Valid reports whether the service is part of the closed enumeration.
func (s Service) Valid() bool {
	switch s {
	case ServiceYouTube, ServiceNetflix, ServiceSpotify, ServiceGoogleDrive, ServiceWebBrowsing:
		return true
	}
	return false
}

// Streaming reports whether the service streams video and therefore
// requires a resolution tier.
func (s Service) Streaming() bool {
	return s == ServiceYouTube || s == ServiceNetflix
}

// Resolution is the quality tier of a video streaming session.
type Resolution string

const (
	ResolutionSD Resolution = "SD"
	ResolutionHD Resolution = "HD"
	Resolution4K Resolution = "4K"
)

// Valid reports whether the resolution is a known tier.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionSD, ResolutionHD, Resolution4K:
		return true
	}
	return false
}

// Emission factors in kg CO2e. Streaming and browsing factors are per
// minute, the data transfer factor is per gigabyte. Read-only at runtime.
var streamingFactors = map[Service]map[Resolution]float64{
	ServiceYouTube: {
		ResolutionSD: 0.23,
		ResolutionHD: 0.46,
		Resolution4K: 1.52,
	},
	ServiceNetflix: {
		ResolutionSD: 0.21,
		ResolutionHD: 0.42,
		Resolution4K: 1.38,
	},
}

const (
	audioFactorPerMinute     = 0.025
	dataTransferPerGB        = 0.39
	browsingAveragePerMinute = 0.18
)
